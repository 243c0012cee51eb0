package composite

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-depth/engine/camera"
	"github.com/Carmen-Shannon/oxy-depth/engine/registry"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/texture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T, textures ...texture.DepthTexture) registry.Registry {
	t.Helper()
	r := registry.NewRegistry(len(textures))
	for _, tex := range textures {
		require.NoError(t, r.Append(tex))
	}
	return r
}

func constant(t *testing.T, typ texture.DepthType, d float32) texture.DepthTexture {
	t.Helper()
	tex, err := texture.NewConstantDepthTexture("c", 4, 4, typ, d)
	require.NoError(t, err)
	return tex
}

func TestDecodeBoundaries(t *testing.T) {
	planes := [][2]float32{{0.1, 100}, {1, 10}, {0.01, 50}, {5, 6}}
	for _, p := range planes {
		near, far := p[0], p[1]
		// float32 cancellation at d=1 grows with far/near.
		tol := float64(5e-4 * far)
		assert.InDelta(t, near, -PerspectiveDepthToViewZ(0, near, far), tol, "near %v far %v", near, far)
		assert.InDelta(t, far, -PerspectiveDepthToViewZ(1, near, far), tol, "near %v far %v", near, far)

		assert.InDelta(t, 0, ViewZToOrthographicDepth(-near, near, far), 1e-6)
		assert.InDelta(t, 1, ViewZToOrthographicDepth(-far, near, far), 1e-6)
	}
}

func TestReadDepthLinearizes(t *testing.T) {
	tex := constant(t, texture.DepthTypeFloat, 1)
	d, err := ReadDepth(tex, 0.5, 0.5, 1, 10)
	require.NoError(t, err)
	assert.InDelta(t, 1, d, 1e-6)

	require.NoError(t, tex.Release())
	_, err = ReadDepth(tex, 0.5, 0.5, 1, 10)
	assert.ErrorIs(t, err, texture.ErrReleased)
}

func TestAverageOfIdenticalTextures(t *testing.T) {
	for _, typ := range []texture.DepthType{texture.DepthTypeUnsignedShort, texture.DepthTypeUnsignedInt, texture.DepthTypeFloat} {
		for _, n := range []int{1, 2, 3, 5, 7, 8} {
			for _, v := range []float32{0, 0.1, 0.333, 0.5, 0.9999, 1} {
				textures := make([]texture.DepthTexture, n)
				for i := range textures {
					textures[i] = constant(t, typ, v)
				}
				s, err := NewStage(newRegistry(t, textures...), camera.NewObserverCamera(10, 0, 10), n)
				require.NoError(t, err)

				stored := typ.Quantize(v)
				got, err := s.Shade(0.25, 0.75)
				require.NoError(t, err)
				assert.Equal(t, [4]float32{stored, stored, stored, 1}, got, "type %s n %d v %v", typ, n, v)
			}
		}
	}
}

func TestSingleTexturePassesThrough(t *testing.T) {
	data := make([]float32, 16)
	for i := range data {
		data[i] = float32(i) / 16
	}
	tex, err := texture.NewDepthTexture("ramp", 4, 4, texture.DepthTypeFloat, data)
	require.NoError(t, err)
	s, err := NewStage(newRegistry(t, tex), camera.NewObserverCamera(10, 0, 10), 1)
	require.NoError(t, err)

	for y := range 4 {
		for x := range 4 {
			u := (float32(x) + 0.5) / 4
			v := 1 - (float32(y)+0.5)/4
			raw, err := tex.At(x, y)
			require.NoError(t, err)

			got, err := s.Shade(u, v)
			require.NoError(t, err)
			assert.Equal(t, [4]float32{raw, raw, raw, 1}, got)
		}
	}
}

func TestLadderMatchesDynamicIndexing(t *testing.T) {
	for _, n := range []int{1, 2, 4, 6} {
		textures := make([]texture.DepthTexture, n)
		for i := range textures {
			data := make([]float32, 64)
			for p := range data {
				data[p] = float32((p*7+i*13)%64) / 63
			}
			tex, err := texture.NewDepthTexture(fmt.Sprintf("t%d", i), 8, 8, texture.DepthTypeUnsignedShort, data)
			require.NoError(t, err)
			textures[i] = tex
		}
		s, err := NewStage(newRegistry(t, textures...), camera.NewObserverCamera(10, 0, 10), n)
		require.NoError(t, err)

		for _, uv := range [][2]float32{{0, 0}, {0.1, 0.9}, {0.5, 0.5}, {0.99, 0.01}, {1, 1}} {
			dyn, err := s.Shade(uv[0], uv[1])
			require.NoError(t, err)
			ladder, err := s.ShadeLadder(uv[0], uv[1])
			require.NoError(t, err)
			assert.Equal(t, dyn, ladder, "n %d uv %v", n, uv)
		}
	}
}

func TestRegistryMismatchIsRejectedAtBuild(t *testing.T) {
	reg := newRegistry(t, constant(t, texture.DepthTypeFloat, 0.5))

	_, err := NewStage(reg, camera.NewObserverCamera(10, 0, 10), 2)
	assert.ErrorIs(t, err, ErrRegistryMismatch)
	assert.False(t, reg.Frozen())

	_, err = NewStage(reg, camera.NewObserverCamera(10, 0, 10), 0)
	assert.ErrorIs(t, err, ErrInvalidCount)
}

func TestStageFreezesRegistry(t *testing.T) {
	reg := newRegistry(t, constant(t, texture.DepthTypeFloat, 0.5))
	_, err := NewStage(reg, camera.NewObserverCamera(10, 0, 10), 1)
	require.NoError(t, err)

	assert.True(t, reg.Frozen())
	assert.ErrorIs(t, reg.Append(constant(t, texture.DepthTypeFloat, 0.1)), registry.ErrFrozen)
}

func TestGeneratedProgramIsReflected(t *testing.T) {
	const n = 3
	reg := newRegistry(t,
		constant(t, texture.DepthTypeFloat, 0.1),
		constant(t, texture.DepthTypeFloat, 0.2),
		constant(t, texture.DepthTypeFloat, 0.3),
	)
	s, err := NewStage(reg, camera.NewObserverCamera(10, 0, 10), n)
	require.NoError(t, err)

	src := s.Shader().Source()
	for i := range n {
		assert.Contains(t, src, fmt.Sprintf("case %du:", i))
		assert.Contains(t, src, fmt.Sprintf("var tDepth%d: texture_depth_2d;", i))
	}
	assert.NotContains(t, src, fmt.Sprintf("tDepth%d", n))
	assert.Equal(t, n, strings.Count(src, "textureSampleLevel("))
	assert.Contains(t, src, "struct CameraUniform")

	group := s.Shader().Group(DefaultGroup)
	require.Len(t, group, n+3)
	assert.Equal(t, shader.ResourceUniformBuffer, group[0].Kind)
	assert.Equal(t, uint64(16), group[0].MinBindingSize)
	assert.Equal(t, shader.ResourceNonFilteringSampler, group[1].Kind)
	assert.Equal(t, "tDiffuse", group[2].Name)
	for i := range n {
		b := group[DepthBinding(i)]
		assert.Equal(t, shader.ResourceDepthTexture, b.Kind)
		assert.Equal(t, fmt.Sprintf("tDepth%d", i), b.Name)
	}
	assert.Equal(t, "vs_main", s.Shader().VertexEntryPoint())
	assert.Equal(t, "fs_main", s.Shader().FragmentEntryPoint())
}

func TestConstantsFollowObserver(t *testing.T) {
	observer := camera.NewObserverCamera(10, 0.5, 20)
	s, err := NewStage(newRegistry(t, constant(t, texture.DepthTypeFloat, 0.5)), observer, 1)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), s.Near())
	assert.Equal(t, float32(20), s.Far())

	observer.SetNear(1)
	observer.SetFar(30)
	assert.Equal(t, float32(20), s.Far())

	s.Refresh()
	assert.Equal(t, uint64(1), s.Generation())
	u := s.Uniforms()
	assert.Equal(t, GPUCompositeUniforms{CameraNear: 1, CameraFar: 30, Count: 1}, u)
	assert.Len(t, s.UniformBytes(), 16)
}

func TestShadeSeesInPlaceReplacement(t *testing.T) {
	reg := newRegistry(t, constant(t, texture.DepthTypeFloat, 0.25))
	s, err := NewStage(reg, camera.NewObserverCamera(10, 0, 10), 1)
	require.NoError(t, err)

	_, err = reg.Replace(0, constant(t, texture.DepthTypeFloat, 0.75))
	require.NoError(t, err)

	got, err := s.ShadeLadder(0.5, 0.5)
	require.NoError(t, err)
	assert.Equal(t, float32(0.75), got[0])
	got, err = s.Shade(0.5, 0.5)
	require.NoError(t, err)
	assert.Equal(t, float32(0.75), got[0])
}
