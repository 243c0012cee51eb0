package shader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreProcessorExpandsIncludesAndGroups(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process("//@oxy:include camera\n//@oxy:include camera\n//@oxy:group 0 0 storage_uniform camera camera\n")
	require.NoError(t, err)

	assert.Contains(t, out, "struct CameraUniform")
	assert.Contains(t, out, "@group(0) @binding(0) var<uniform> camera: CameraUniform;")
	assert.Equal(t, 1, strings.Count(out, "struct CameraUniform"))

	decls := pp.Declarations()
	require.Len(t, decls, 1)
	assert.Equal(t, AnnotationTypeBindingGroup, decls[0].Type)
	assert.Equal(t, 0, *decls[0].Group)
	assert.Equal(t, 0, *decls[0].Binding)
}

func TestPreProcessorRejectsMalformedAnnotations(t *testing.T) {
	cases := []string{
		"//@oxy:",
		"//@oxy:include",
		"//@oxy:include teapot",
		"//@oxy:group x 0 storage_uniform camera camera",
		"//@oxy:group 0 0 storage_bogus camera camera",
		"//@oxy:group 0 0 storage_uniform camera teapot",
		"//@oxy:provider 0 0 material",
	}
	for _, src := range cases {
		_, err := NewPreProcessor().Process(src)
		assert.ErrorIs(t, err, ErrMalformedAnnotation, src)
	}
}

func TestBuiltinSurfaceShaderReflection(t *testing.T) {
	s, err := NewShader(KeySurface, SurfaceSource)
	require.NoError(t, err)

	assert.Equal(t, "vs_main", s.VertexEntryPoint())
	assert.Equal(t, "fs_main", s.FragmentEntryPoint())
	assert.Equal(t, StageVertex|StageFragment, s.Stages())
	assert.Equal(t, []int{0, 1}, s.Groups())

	cam, ok := s.BindingByName("camera")
	require.True(t, ok)
	assert.Equal(t, ResourceUniformBuffer, cam.Kind)
	assert.Equal(t, uint64(96), cam.MinBindingSize)
	assert.Equal(t, StageVertex|StageFragment, cam.Visibility)

	lightBinding, ok := s.BindingByName("light")
	require.True(t, ok)
	assert.Equal(t, 1, lightBinding.Binding)
	assert.Equal(t, uint64(32), lightBinding.MinBindingSize)

	surf := s.Group(1)
	require.Len(t, surf, 1)
	assert.Equal(t, uint64(96), surf[0].MinBindingSize)

	layouts := s.VertexLayouts()
	require.Len(t, layouts, 1)
	assert.Equal(t, uint64(32), layouts[0].Stride)
	require.Len(t, layouts[0].Attributes, 3)
	assert.Equal(t, VertexAttribute{Location: 2, Format: VertexFormatFloat32x2, Offset: 24}, layouts[0].Attributes[2])
}

func TestDepthOnlyShaderHasNoFragmentStage(t *testing.T) {
	s, err := NewShader(KeyDepthOnly, DepthOnlySource)
	require.NoError(t, err)

	assert.Empty(t, s.FragmentEntryPoint())
	assert.Equal(t, StageVertex, s.Stages())
	for _, b := range s.Bindings() {
		assert.Equal(t, StageVertex, b.Visibility)
	}
}

func TestNewShaderWithoutEntryPoint(t *testing.T) {
	_, err := NewShader("empty", "struct Foo { a: f32, };")
	assert.ErrorIs(t, err, ErrNoEntryPoint)
}

func TestDepthTextureGroupUsesNonFilteringSampler(t *testing.T) {
	src := `
struct Params { near: f32, far: f32, count: u32, _pad: u32, };
@group(2) @binding(0) var<uniform> params: Params;
@group(2) @binding(1) var depthSampler: sampler;
@group(2) @binding(3) var tDepth1: texture_depth_2d;
@group(2) @binding(2) var tDepth0: texture_depth_2d;
@group(3) @binding(0) var colorSampler: sampler;
@group(3) @binding(1) var colorTex: texture_2d<f32>;
@fragment
fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }
`
	s, err := NewShader("depth", src)
	require.NoError(t, err)

	group := s.Group(2)
	require.Len(t, group, 4)
	assert.Equal(t, ResourceUniformBuffer, group[0].Kind)
	assert.Equal(t, uint64(16), group[0].MinBindingSize)
	assert.Equal(t, ResourceNonFilteringSampler, group[1].Kind)
	assert.Equal(t, "tDepth0", group[2].Name)
	assert.Equal(t, ResourceDepthTexture, group[2].Kind)
	assert.Equal(t, SampleTypeDepth, group[2].SampleType)
	assert.Equal(t, ViewDimension2D, group[2].ViewDimension)
	assert.Equal(t, StageFragment, group[2].Visibility)

	other := s.Group(3)
	require.Len(t, other, 2)
	assert.Equal(t, ResourceFilteringSampler, other[0].Kind)
	assert.Equal(t, ResourceTexture, other[1].Kind)
	assert.Equal(t, SampleTypeFloat, other[1].SampleType)
}

func TestStructLayoutRules(t *testing.T) {
	structs := parseStructBlocks(stripComments(`
struct Inner { a: vec3<f32>, b: f32, };
struct Outer { m: mat4x4<f32>, inner: Inner, arr: array<vec4<f32>, 3>, /* comment */ tail: u32, };
`))
	sizes := computeStructSizes(structs)

	assert.Equal(t, wgslTypeLayout{16, 16}, sizes["Inner"])
	// 64 + 16 + 48 + 4 rounded to 16
	assert.Equal(t, uint64(144), sizes["Outer"].size)
}

func TestStorageTextureClassification(t *testing.T) {
	b := classifyResource("", "texture_storage_2d<rgba8unorm, write>")
	assert.Equal(t, ResourceStorageTexture, b.Kind)
	assert.Equal(t, ViewDimension2D, b.ViewDimension)
	assert.Equal(t, "rgba8unorm", b.StorageFormat)
	assert.Equal(t, "write", b.StorageAccess)

	assert.Equal(t, ResourceReadOnlyStorageBuffer, classifyResource("storage, read", "array<f32>").Kind)
	assert.Equal(t, ResourceStorageBuffer, classifyResource("storage, read_write", "array<f32>").Kind)
	assert.Equal(t, ResourceComparisonSampler, classifyResource("", "sampler_comparison").Kind)
}
