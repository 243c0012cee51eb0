package texture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantize(t *testing.T) {
	assert.Equal(t, float32(0.5), DepthTypeFloat.Quantize(0.5))
	assert.InDelta(t, 0.5, DepthTypeUnsignedShort.Quantize(0.5), 1.0/65535)
	assert.InDelta(t, 0.5, DepthTypeUnsignedInt.Quantize(0.5), 1.0/16777215)
	assert.Equal(t, float32(1), DepthTypeUnsignedShort.Quantize(1.5))
	assert.Equal(t, float32(0), DepthTypeUnsignedShort.Quantize(-0.1))
	assert.Equal(t, float32(1), DepthTypeUnsignedShort.Quantize(1))
	assert.Equal(t, 16, DepthTypeUnsignedShort.Bits())
	assert.Equal(t, 24, DepthTypeUnsignedInt.Bits())
}

func TestParseNames(t *testing.T) {
	f, err := ParseDepthFormat("depth_stencil")
	require.NoError(t, err)
	assert.Equal(t, DepthFormatDepthStencil, f)
	_, err = ParseDepthFormat("stencil")
	assert.ErrorIs(t, err, ErrUnknownDepthFormat)

	typ, err := ParseDepthType("float")
	require.NoError(t, err)
	assert.Equal(t, DepthTypeFloat, typ)
	_, err = ParseDepthType("half")
	assert.ErrorIs(t, err, ErrUnknownDepthType)

	for _, typ := range []DepthType{DepthTypeUnsignedShort, DepthTypeUnsignedInt, DepthTypeFloat} {
		parsed, err := ParseDepthType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, parsed)
	}
}

func TestSampleFlipsV(t *testing.T) {
	// 2x2: top row 0.1 0.2, bottom row 0.3 0.4
	tex, err := NewDepthTexture("t", 2, 2, DepthTypeFloat, []float32{0.1, 0.2, 0.3, 0.4})
	require.NoError(t, err)

	cases := []struct {
		u, v float32
		want float32
	}{
		{0.25, 0.75, 0.1},
		{0.75, 0.75, 0.2},
		{0.25, 0.25, 0.3},
		{0.75, 0.25, 0.4},
		{1, 1, 0.2},
		{0, 0, 0.3},
		{-1, 2, 0.1},
	}
	for _, c := range cases {
		got, err := tex.Sample(c.u, c.v)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "u=%v v=%v", c.u, c.v)
	}
}

func TestTextureOwnsItsData(t *testing.T) {
	data := []float32{0.5, 0.5}
	tex, err := NewDepthTexture("t", 2, 1, DepthTypeFloat, data)
	require.NoError(t, err)
	data[0] = 1

	d, err := tex.At(0, 0)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), d)

	px, err := tex.Pixels()
	require.NoError(t, err)
	px[1] = 0
	d, _ = tex.At(1, 0)
	assert.Equal(t, float32(0.5), d)
}

func TestReleasedTexture(t *testing.T) {
	tex, err := NewConstantDepthTexture("t", 4, 4, DepthTypeUnsignedShort, 0.25)
	require.NoError(t, err)
	require.NoError(t, tex.Release())
	require.NoError(t, tex.Release())
	assert.True(t, tex.Released())

	_, err = tex.Sample(0.5, 0.5)
	assert.ErrorIs(t, err, ErrReleased)
	_, err = tex.Pixels()
	assert.ErrorIs(t, err, ErrReleased)
}

func TestNewDepthTextureValidates(t *testing.T) {
	_, err := NewDepthTexture("t", 2, 2, DepthTypeFloat, []float32{0})
	assert.Error(t, err)
	_, err = NewDepthTexture("t", 0, 2, DepthTypeFloat, nil)
	assert.Error(t, err)
}
