// Package export writes captured depth textures and rendered frames to disk.
package export

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/texture"
	"github.com/HugoSmits86/nativewebp"
	"github.com/mrjoshuak/go-openexr/exr"
	"golang.org/x/image/draw"
)

// DepthChannel is the name of the single channel written to depth EXR files.
const DepthChannel = "Z"

// ErrEmptyImage is returned when an image with no pixels is written or scaled.
var ErrEmptyImage = errors.New("export: empty image")

// WriteDepthEXR writes tex as a single-channel 32-bit float OpenEXR file with ZIP compression.
// Rows are written top to bottom, matching the texture's storage order.
//
// Parameters:
//   - path: the output file; parent directories are created
//   - tex: the depth texture to export
//
// Returns:
//   - error: if the texture is released or the file cannot be written
func WriteDepthEXR(path string, tex texture.DepthTexture) error {
	data, err := tex.Pixels()
	if err != nil {
		return fmt.Errorf("export %q: %w", tex.Label(), err)
	}
	f, err := create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := EncodeDepthEXR(f, tex.Width(), tex.Height(), data); err != nil {
		return fmt.Errorf("export %q: %w", tex.Label(), err)
	}
	return f.Close()
}

// EncodeDepthEXR encodes width*height row-major depth values as a "Z" float channel.
func EncodeDepthEXR(w io.WriteSeeker, width, height int, data []float32) error {
	if width <= 0 || height <= 0 || len(data) == 0 {
		return ErrEmptyImage
	}
	if len(data) != width*height {
		return fmt.Errorf("export: got %d values for %dx%d", len(data), width, height)
	}

	h := exr.NewScanlineHeader(width, height)
	h.SetCompression(exr.CompressionZIP)
	channels := exr.NewChannelList()
	channels.Add(exr.Channel{Name: DepthChannel, Type: exr.PixelTypeFloat, XSampling: 1, YSampling: 1})
	h.SetChannels(channels)

	fb := exr.NewFrameBuffer()
	fb.Set(DepthChannel, exr.NewSliceFromFloat32(data, width, height))

	sw, err := exr.NewScanlineWriter(w, h)
	if err != nil {
		return err
	}
	sw.SetFrameBuffer(fb)
	if err := sw.WritePixels(int(h.DataWindow().Min.Y), int(h.DataWindow().Max.Y)); err != nil {
		return err
	}
	return sw.Close()
}

// DepthImage converts tex to a 16-bit grayscale image, with white at the far plane.
//
// Parameters:
//   - tex: the depth texture to convert
//
// Returns:
//   - *image.Gray16: the converted image
//   - error: if the texture is released
func DepthImage(tex texture.DepthTexture) (*image.Gray16, error) {
	data, err := tex.Pixels()
	if err != nil {
		return nil, fmt.Errorf("export %q: %w", tex.Label(), err)
	}
	img := image.NewGray16(image.Rect(0, 0, tex.Width(), tex.Height()))
	for i, d := range data {
		d = min(max(d, 0), 1)
		v := uint16(d*0xffff + 0.5)
		img.Pix[2*i] = uint8(v >> 8)
		img.Pix[2*i+1] = uint8(v)
	}
	return img, nil
}

// Scale resamples img to width x height with a Catmull-Rom filter.
//
// Parameters:
//   - img: the source image
//   - width, height: the output size in pixels
//
// Returns:
//   - *image.RGBA: the resampled image
//   - error: ErrEmptyImage if the source or target size is empty
func Scale(img image.Image, width, height int) (*image.RGBA, error) {
	if img.Bounds().Empty() || width <= 0 || height <= 0 {
		return nil, ErrEmptyImage
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst, nil
}

// WriteFrameWebP writes img as a lossless WebP file.
func WriteFrameWebP(path string, img image.Image) error {
	return writeImage(path, img, func(w io.Writer, img image.Image) error {
		return nativewebp.Encode(w, img, nil)
	})
}

// WriteFramePNG writes img as a PNG file.
func WriteFramePNG(path string, img image.Image) error {
	return writeImage(path, img, png.Encode)
}

// WriteFrame writes img using the encoder named by format ("webp" or "png").
func WriteFrame(path, format string, img image.Image) error {
	switch format {
	case "webp":
		return WriteFrameWebP(path, img)
	case "png":
		return WriteFramePNG(path, img)
	default:
		return fmt.Errorf("export: unknown frame format %q", format)
	}
}

func writeImage(path string, img image.Image, encode func(io.Writer, image.Image) error) error {
	if img == nil || img.Bounds().Empty() {
		return ErrEmptyImage
	}
	f, err := create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := encode(f, img); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	return f.Close()
}

func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.Create(path)
}
