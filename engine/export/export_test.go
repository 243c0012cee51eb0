package export

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/texture"
	"github.com/mrjoshuak/go-openexr/exr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradientTexture(t *testing.T, w, h int) texture.DepthTexture {
	t.Helper()
	data := make([]float32, w*h)
	for i := range data {
		data[i] = float32(i) / float32(len(data)-1)
	}
	tex, err := texture.NewDepthTexture("gradient", w, h, texture.DepthTypeFloat, data)
	require.NoError(t, err)
	return tex
}

func TestWriteDepthEXRRoundTrip(t *testing.T) {
	tex := gradientTexture(t, 8, 4)
	path := filepath.Join(t.TempDir(), "depth", "depth_0.exr")
	require.NoError(t, WriteDepthEXR(path, tex))

	f, err := exr.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sr, err := exr.NewScanlineReader(f)
	require.NoError(t, err)
	channels := sr.Header().Channels()
	require.Equal(t, 1, channels.Len())
	assert.Equal(t, DepthChannel, channels.At(0).Name)
	assert.Equal(t, exr.PixelTypeFloat, channels.At(0).Type)

	fb, _ := exr.AllocateChannels(channels, sr.DataWindow())
	sr.SetFrameBuffer(fb)
	require.NoError(t, sr.ReadPixels(0, 3))

	z := fb.Get(DepthChannel)
	for _, p := range [][2]int{{0, 0}, {7, 0}, {3, 2}, {7, 3}} {
		want, err := tex.At(p[0], p[1])
		require.NoError(t, err)
		assert.InDelta(t, want, z.GetFloat32(p[0], p[1]), 1e-6, "texel %v", p)
	}
}

func TestWriteDepthEXRReleasedTexture(t *testing.T) {
	tex := gradientTexture(t, 2, 2)
	require.NoError(t, tex.Release())

	err := WriteDepthEXR(filepath.Join(t.TempDir(), "d.exr"), tex)
	assert.ErrorIs(t, err, texture.ErrReleased)
}

func TestEncodeDepthEXRRejectsBadInput(t *testing.T) {
	var buf seekBuffer
	assert.ErrorIs(t, EncodeDepthEXR(&buf, 0, 4, nil), ErrEmptyImage)
	assert.Error(t, EncodeDepthEXR(&buf, 2, 2, []float32{1, 2, 3}))
}

func TestDepthImage(t *testing.T) {
	tex, err := texture.NewDepthTexture("d", 2, 1, texture.DepthTypeFloat, []float32{0, 1})
	require.NoError(t, err)

	img, err := DepthImage(tex)
	require.NoError(t, err)
	assert.Equal(t, color.Gray16{Y: 0}, img.Gray16At(0, 0))
	assert.Equal(t, color.Gray16{Y: 0xffff}, img.Gray16At(1, 0))
}

func TestScale(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	dst, err := Scale(src, 8, 2)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 2), dst.Bounds())
	assert.Equal(t, color.RGBA{0xff, 0xff, 0xff, 0xff}, dst.RGBAAt(3, 1))

	_, err = Scale(src, 0, 2)
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestWriteFramePNG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.SetRGBA(1, 1, color.RGBA{R: 200, A: 255})
	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, WriteFrame(path, "png", src))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	r, _, _, _ := img.At(1, 1).RGBA()
	assert.Equal(t, uint32(200)<<8|200, r)
}

func TestWriteFrameWebP(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	path := filepath.Join(t.TempDir(), "frame.webp")
	require.NoError(t, WriteFrame(path, "webp", src))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(raw), 12)
	assert.Equal(t, "RIFF", string(raw[0:4]))
	assert.Equal(t, "WEBP", string(raw[8:12]))
}

func TestWriteFrameErrors(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, WriteFrame(filepath.Join(dir, "f.bmp"), "bmp", image.NewRGBA(image.Rect(0, 0, 1, 1))))
	assert.ErrorIs(t, WriteFramePNG(filepath.Join(dir, "f.png"), image.NewRGBA(image.Rectangle{})), ErrEmptyImage)
}

// seekBuffer is an in-memory io.WriteSeeker.
type seekBuffer struct {
	buf []byte
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	if end := s.pos + len(p); end > len(s.buf) {
		s.buf = append(s.buf, make([]byte, end-len(s.buf))...)
	}
	copy(s.buf[s.pos:], p)
	s.pos += len(p)
	return len(p), nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case 1:
		offset += int64(s.pos)
	case 2:
		offset += int64(len(s.buf))
	}
	s.pos = int(offset)
	return offset, nil
}
