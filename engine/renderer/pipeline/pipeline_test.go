package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const compositeSource = `
@group(0) @binding(0) var<uniform> camera: mat4x4<f32>;
@group(2) @binding(0) var<uniform> params: vec4<f32>;
@group(2) @binding(1) var depthSampler: sampler;
@group(2) @binding(2) var tDepth0: texture_depth_2d;

@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
	return camera * vec4<f32>(position, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
	return params;
}
`

func TestDepthOnlyLayoutsAreVertexVisible(t *testing.T) {
	sh := shader.MustShader(shader.KeyDepthOnly, shader.DepthOnlySource)
	assert.Empty(t, sh.FragmentEntryPoint())

	for _, group := range []int{0, 1} {
		desc, err := BindGroupLayoutDescriptor(sh, group)
		require.NoError(t, err)
		require.Len(t, desc.Entries, 1, "group %d", group)
		assert.Equal(t, wgpu.ShaderStageVertex, desc.Entries[0].Visibility)
		assert.Equal(t, wgpu.BufferBindingTypeUniform, desc.Entries[0].Buffer.Type)
	}
}

func TestSurfaceLayoutVisibility(t *testing.T) {
	sh := shader.MustShader(shader.KeySurface, shader.SurfaceSource)
	desc, err := BindGroupLayoutDescriptor(sh, 0)
	require.NoError(t, err)
	require.Len(t, desc.Entries, 2)

	assert.Equal(t, uint32(0), desc.Entries[0].Binding)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, desc.Entries[0].Visibility)
	assert.Equal(t, uint64(96), desc.Entries[0].Buffer.MinBindingSize)
	assert.Equal(t, uint32(1), desc.Entries[1].Binding)
	assert.NotZero(t, desc.Entries[1].Visibility&wgpu.ShaderStageFragment)
}

func TestUndeclaredGroupHasNoEntries(t *testing.T) {
	sh := shader.MustShader(shader.KeySurface, shader.SurfaceSource)
	desc, err := BindGroupLayoutDescriptor(sh, 3)
	require.NoError(t, err)
	assert.Empty(t, desc.Entries)
}

func TestDepthTextureGroupLayout(t *testing.T) {
	sh := shader.MustShader("composite-test", compositeSource)
	desc, err := BindGroupLayoutDescriptor(sh, 2)
	require.NoError(t, err)
	require.Len(t, desc.Entries, 3)

	assert.Equal(t, wgpu.BufferBindingTypeUniform, desc.Entries[0].Buffer.Type)
	assert.Equal(t, wgpu.SamplerBindingTypeNonFiltering, desc.Entries[1].Sampler.Type, "depth groups sample without filtering")
	assert.Equal(t, wgpu.TextureSampleTypeDepth, desc.Entries[2].Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension2D, desc.Entries[2].Texture.ViewDimension)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, desc.Entries[2].Visibility)
}

func TestVertexBufferLayoutMatchesMeshVertex(t *testing.T) {
	sh := shader.MustShader(shader.KeyDepthOnly, shader.DepthOnlySource)
	layouts := VertexBufferLayouts(sh)
	require.Len(t, layouts, 1)
	assert.Equal(t, uint64(32), layouts[0].ArrayStride)
	assert.Equal(t, wgpu.VertexStepModeVertex, layouts[0].StepMode)
	require.Len(t, layouts[0].Attributes, 3)
	assert.Equal(t, wgpu.VertexFormatFloat32x3, layouts[0].Attributes[0].Format)
	assert.Equal(t, uint64(12), layouts[0].Attributes[1].Offset)
	assert.Equal(t, wgpu.VertexFormatFloat32x2, layouts[0].Attributes[2].Format)
}

func TestNewPipelineDefaultsAndOptions(t *testing.T) {
	p := NewPipeline("depth/test", PipelineTypeDepth)
	assert.Equal(t, "depth", p.Type().String())
	assert.Equal(t, wgpu.TextureFormatDepth32Float, p.DepthFormat())
	assert.Equal(t, uint32(1), p.SampleCount())
	assert.Equal(t, wgpu.CullModeBack, p.CullMode())
	assert.True(t, p.DepthTestEnabled())
	assert.Nil(t, p.BindGroupLayout(0))

	p = NewPipeline("render/test", PipelineTypeRender,
		WithCullMode(wgpu.CullModeNone),
		WithSampleCount(0),
		WithDepthFormat(wgpu.TextureFormatDepth16Unorm),
	)
	assert.Equal(t, wgpu.CullModeNone, p.CullMode())
	assert.Equal(t, uint32(1), p.SampleCount(), "sample count is at least 1")
	assert.Equal(t, wgpu.TextureFormatDepth16Unorm, p.DepthFormat())
}
