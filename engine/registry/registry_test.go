package registry

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/texture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constant(t *testing.T, d float32) texture.DepthTexture {
	t.Helper()
	tex, err := texture.NewConstantDepthTexture("c", 2, 2, texture.DepthTypeFloat, d)
	require.NoError(t, err)
	return tex
}

func TestAppendKeepsCaptureOrder(t *testing.T) {
	r := NewRegistry(3)
	a, b, c := constant(t, 0.1), constant(t, 0.2), constant(t, 0.3)
	require.NoError(t, r.Append(a))
	require.NoError(t, r.Append(b))
	require.NoError(t, r.Append(c))

	assert.Equal(t, 3, r.Len())
	got, err := r.At(1)
	require.NoError(t, err)
	assert.Same(t, b, got)

	texs := r.Textures()
	assert.Same(t, a, texs[0])
	assert.Same(t, c, texs[2])

	_, err = r.At(3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.ErrorIs(t, r.Append(nil), ErrNilTexture)
}

func TestFreezeBlocksAppendButAllowsReplace(t *testing.T) {
	r := NewRegistry(1)
	first := constant(t, 0.5)
	require.NoError(t, r.Append(first))
	r.Freeze()
	assert.True(t, r.Frozen())

	assert.ErrorIs(t, r.Append(constant(t, 0.1)), ErrFrozen)
	assert.Equal(t, 1, r.Len())

	next := constant(t, 0.7)
	old, err := r.Replace(0, next)
	require.NoError(t, err)
	assert.Same(t, first, old)
	assert.Equal(t, 1, r.Len())

	_, err = r.Replace(1, next)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestTexturesIsByReference(t *testing.T) {
	r := NewRegistry(1)
	require.NoError(t, r.Append(constant(t, 0.5)))
	view := r.Textures()

	replacement := constant(t, 0.9)
	_, err := r.Replace(0, replacement)
	require.NoError(t, err)
	assert.Same(t, replacement, view[0])
}
