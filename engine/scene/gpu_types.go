package scene

import (
	_ "embed"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-depth/common"
)

// GPUVertexSource is the WGSL VertexInput struct matching Vertex.
//
//go:embed assets/vertex.wgsl
var GPUVertexSource string

// GPUSurfaceUniformSource is the WGSL SurfaceUniform struct matching GPUSurfaceUniform.
//
//go:embed assets/surface_uniform.wgsl
var GPUSurfaceUniformSource string

// GPUSurfaceUniform is the per-surface uniform block (96 bytes).
type GPUSurfaceUniform struct {
	Model  [16]float32
	Color  [4]float32
	Params [4]float32 // x: 1 for lit materials
}

// NewGPUSurfaceUniform packs a surface's model matrix, color and shading flags.
func NewGPUSurfaceUniform(s *Surface) GPUSurfaceUniform {
	u := GPUSurfaceUniform{
		Model: s.ModelMatrix(),
		Color: [4]float32{s.Color.R, s.Color.G, s.Color.B, s.Color.A},
	}
	if s.Material != MaterialUnlit {
		u.Params[0] = 1
	}
	return u
}

// Size returns the byte size of the uniform block.
func (u *GPUSurfaceUniform) Size() int {
	return int(unsafe.Sizeof(*u))
}

// Marshal returns the raw bytes of the uniform block for buffer upload.
func (u *GPUSurfaceUniform) Marshal() []byte {
	return common.StructToBytes(u)
}
