package light

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPULightSource is the canonical WGSL definition of the DirectionalLight struct.
// Matches GPULight layout exactly (32 bytes).
//
//go:embed assets/light.wgsl
var GPULightSource string

// GPULight is the GPU-aligned representation of the scene's directional light.
// Matches the WGSL DirectionalLight struct layout exactly (see GPULightSource).
type GPULight struct {
	Direction [3]float32 // offset  0: normalized direction toward the target
	Intensity float32    // offset 12: zero when the light does not shade
	Color     [3]float32 // offset 16: RGB color
	_pad      float32    // offset 28: padding to 32 bytes
}

// NewGPULight snapshots a light into its uniform representation.
//
// Parameters:
//   - l: the light to read
//
// Returns:
//   - GPULight: the populated uniform
func NewGPULight(l Light) GPULight {
	c := l.Color()
	return GPULight{
		Direction: l.Direction().Array(),
		Intensity: l.Intensity(),
		Color:     [3]float32{c.R, c.G, c.B},
	}
}

// Size returns the size of the GPULight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPULight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Direction[i]))
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(g.Color[i]))
	}
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(g.Intensity))
	return buf
}
