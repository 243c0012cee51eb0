package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

var vertexFormatMap = map[shader.VertexFormat]wgpu.VertexFormat{
	shader.VertexFormatFloat32:   wgpu.VertexFormatFloat32,
	shader.VertexFormatFloat32x2: wgpu.VertexFormatFloat32x2,
	shader.VertexFormatFloat32x3: wgpu.VertexFormatFloat32x3,
	shader.VertexFormatFloat32x4: wgpu.VertexFormatFloat32x4,
	shader.VertexFormatSint32:    wgpu.VertexFormatSint32,
	shader.VertexFormatSint32x2:  wgpu.VertexFormatSint32x2,
	shader.VertexFormatSint32x3:  wgpu.VertexFormatSint32x3,
	shader.VertexFormatSint32x4:  wgpu.VertexFormatSint32x4,
	shader.VertexFormatUint32:    wgpu.VertexFormatUint32,
	shader.VertexFormatUint32x2:  wgpu.VertexFormatUint32x2,
	shader.VertexFormatUint32x3:  wgpu.VertexFormatUint32x3,
	shader.VertexFormatUint32x4:  wgpu.VertexFormatUint32x4,
	shader.VertexFormatFloat16x2: wgpu.VertexFormatFloat16x2,
	shader.VertexFormatFloat16x4: wgpu.VertexFormatFloat16x4,
}

var viewDimensionMap = map[shader.ViewDimension]wgpu.TextureViewDimension{
	shader.ViewDimension1D:        wgpu.TextureViewDimension1D,
	shader.ViewDimension2D:        wgpu.TextureViewDimension2D,
	shader.ViewDimension2DArray:   wgpu.TextureViewDimension2DArray,
	shader.ViewDimension3D:        wgpu.TextureViewDimension3D,
	shader.ViewDimensionCube:      wgpu.TextureViewDimensionCube,
	shader.ViewDimensionCubeArray: wgpu.TextureViewDimensionCubeArray,
}

var sampleTypeMap = map[shader.SampleType]wgpu.TextureSampleType{
	shader.SampleTypeFloat: wgpu.TextureSampleTypeFloat,
	shader.SampleTypeSint:  wgpu.TextureSampleTypeSint,
	shader.SampleTypeUint:  wgpu.TextureSampleTypeUint,
	shader.SampleTypeDepth: wgpu.TextureSampleTypeDepth,
}

var storageAccessMap = map[string]wgpu.StorageTextureAccess{
	"write":      wgpu.StorageTextureAccessWriteOnly,
	"read":       wgpu.StorageTextureAccessReadOnly,
	"read_write": wgpu.StorageTextureAccessReadWrite,
}

var storageFormatMap = map[string]wgpu.TextureFormat{
	"rgba8unorm":  wgpu.TextureFormatRGBA8Unorm,
	"rgba16float": wgpu.TextureFormatRGBA16Float,
	"r32float":    wgpu.TextureFormatR32Float,
	"rgba32float": wgpu.TextureFormatRGBA32Float,
}

func shaderStage(s shader.Stage) wgpu.ShaderStage {
	stage := wgpu.ShaderStageNone
	if s&shader.StageVertex != 0 {
		stage |= wgpu.ShaderStageVertex
	}
	if s&shader.StageFragment != 0 {
		stage |= wgpu.ShaderStageFragment
	}
	return stage
}

// layoutEntry converts a reflected binding to a WebGPU layout entry.
func layoutEntry(b shader.Binding) (wgpu.BindGroupLayoutEntry, error) {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    uint32(b.Binding),
		Visibility: shaderStage(b.Visibility),
	}

	switch b.Kind {
	case shader.ResourceUniformBuffer:
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		entry.Buffer.MinBindingSize = b.MinBindingSize
	case shader.ResourceStorageBuffer:
		entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		entry.Buffer.MinBindingSize = b.MinBindingSize
	case shader.ResourceReadOnlyStorageBuffer:
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		entry.Buffer.MinBindingSize = b.MinBindingSize
	case shader.ResourceFilteringSampler:
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case shader.ResourceNonFilteringSampler:
		entry.Sampler.Type = wgpu.SamplerBindingTypeNonFiltering
	case shader.ResourceComparisonSampler:
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case shader.ResourceTexture, shader.ResourceDepthTexture:
		entry.Texture.SampleType = sampleTypeMap[b.SampleType]
		entry.Texture.ViewDimension = viewDimensionMap[b.ViewDimension]
		entry.Texture.Multisampled = b.Multisampled
	case shader.ResourceStorageTexture:
		entry.StorageTexture.ViewDimension = viewDimensionMap[b.ViewDimension]
		entry.StorageTexture.Access = storageAccessMap[b.StorageAccess]
		format, ok := storageFormatMap[b.StorageFormat]
		if !ok {
			return entry, fmt.Errorf("binding %s: unsupported storage format %q", b.Name, b.StorageFormat)
		}
		entry.StorageTexture.Format = format
	default:
		return entry, fmt.Errorf("binding %s: unsupported resource %s", b.Name, b.Kind)
	}
	return entry, nil
}

// BindGroupLayoutDescriptor builds the layout descriptor of one bind group from a shader's reflection.
//
// Parameters:
//   - sh: the reflected shader
//   - group: the bind group index
//
// Returns:
//   - wgpu.BindGroupLayoutDescriptor: the descriptor, with no entries if the group is not declared
//   - error: an error if a binding has no WebGPU equivalent
func BindGroupLayoutDescriptor(sh shader.Shader, group int) (wgpu.BindGroupLayoutDescriptor, error) {
	bindings := sh.Group(group)
	desc := wgpu.BindGroupLayoutDescriptor{
		Label:   fmt.Sprintf("%s group %d", sh.Key(), group),
		Entries: make([]wgpu.BindGroupLayoutEntry, 0, len(bindings)),
	}
	for _, b := range bindings {
		entry, err := layoutEntry(b)
		if err != nil {
			return desc, fmt.Errorf("shader %s: %w", sh.Key(), err)
		}
		desc.Entries = append(desc.Entries, entry)
	}
	return desc, nil
}

// VertexBufferLayouts converts the reflected vertex input structs to per-vertex buffer layouts.
func VertexBufferLayouts(sh shader.Shader) []wgpu.VertexBufferLayout {
	reflected := sh.VertexLayouts()
	layouts := make([]wgpu.VertexBufferLayout, 0, len(reflected))
	for _, vl := range reflected {
		attrs := make([]wgpu.VertexAttribute, 0, len(vl.Attributes))
		for _, a := range vl.Attributes {
			attrs = append(attrs, wgpu.VertexAttribute{
				Format:         vertexFormatMap[a.Format],
				Offset:         a.Offset,
				ShaderLocation: uint32(a.Location),
			})
		}
		layouts = append(layouts, wgpu.VertexBufferLayout{
			ArrayStride: vl.Stride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  attrs,
		})
	}
	return layouts
}
