package composite

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUCompositeUniforms matches the WGSL CompositeUniforms struct (16 bytes).
type GPUCompositeUniforms struct {
	CameraNear float32 // offset 0
	CameraFar  float32 // offset 4
	Count      uint32  // offset 8
	_pad       uint32  // offset 12
}

// Size returns the size of the uniform block in bytes.
func (g *GPUCompositeUniforms) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the uniform block for GPU upload.
func (g *GPUCompositeUniforms) Marshal() []byte {
	buf := make([]byte, g.Size())
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(g.CameraNear))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(g.CameraFar))
	binary.LittleEndian.PutUint32(buf[8:], g.Count)
	return buf
}
