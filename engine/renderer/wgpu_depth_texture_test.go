package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/texture"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestDepthProbeUsesConfiguredFormat(t *testing.T) {
	cases := map[texture.DepthType]wgpu.TextureFormat{
		texture.DepthTypeUnsignedShort: wgpu.TextureFormatDepth16Unorm,
		texture.DepthTypeUnsignedInt:   wgpu.TextureFormatDepth32Float,
		texture.DepthTypeFloat:         wgpu.TextureFormatDepth32Float,
	}
	for typ, format := range cases {
		desc := depthProbeDescriptor(typ)
		assert.Equal(t, format, desc.Format, typ.String())
		assert.Equal(t, depthTextureFormat(typ), desc.Format, typ.String())
		assert.NotZero(t, desc.Usage&wgpu.TextureUsageRenderAttachment)
		assert.NotZero(t, desc.Usage&wgpu.TextureUsageTextureBinding)
		assert.NotZero(t, desc.Usage&wgpu.TextureUsageCopySrc)
	}
}

func TestWithDepthTypeSetsProbeType(t *testing.T) {
	r := &renderer{depthType: texture.DepthTypeUnsignedShort}
	WithDepthType(texture.DepthTypeFloat)(r)
	assert.Equal(t, texture.DepthTypeFloat, r.depthType)
}
