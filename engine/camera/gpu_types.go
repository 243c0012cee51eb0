package camera

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUCameraUniformSource is the canonical WGSL definition of the CameraUniform struct.
// Matches GPUCameraUniform layout exactly (96 bytes).
//
//go:embed assets/camera_uniform.wgsl
var GPUCameraUniformSource string

// GPUCameraUniform is the GPU-aligned representation of the camera uniform buffer.
// Matches the WGSL CameraUniform struct layout exactly (see GPUCameraUniformSource).
type GPUCameraUniform struct {
	ViewProj     [16]float32 // offset  0: combined view-projection matrix (mat4x4<f32>)
	Position     [3]float32  // offset 64: world-space camera position (vec3<f32>)
	Near         float32     // offset 76
	Far          float32     // offset 80
	Orthographic uint32      // offset 84: 1 for orthographic projections
	_pad         [2]uint32   // offset 88: padding to 96 bytes
}

// NewGPUCameraUniform snapshots a camera into its uniform representation.
//
// Parameters:
//   - c: the camera to read
//
// Returns:
//   - GPUCameraUniform: the populated uniform
func NewGPUCameraUniform(c Camera) GPUCameraUniform {
	u := GPUCameraUniform{
		ViewProj: c.ViewProjectionMatrix(),
		Position: c.Position().Array(),
		Near:     c.Near(),
		Far:      c.Far(),
	}
	if c.Projection() == ProjectionOrthographic {
		u.Orthographic = 1
	}
	return u
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (96)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.ViewProj[i]))
	}
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.Position[i]))
	}
	binary.LittleEndian.PutUint32(buf[76:], math.Float32bits(g.Near))
	binary.LittleEndian.PutUint32(buf[80:], math.Float32bits(g.Far))
	binary.LittleEndian.PutUint32(buf[84:], g.Orthographic)
	return buf
}
