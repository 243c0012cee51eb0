package renderer

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/texture"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuTarget is a render target backed by a depth-only GPU texture.
type wgpuTarget struct {
	targetInfo
	owner  *wgpuRendererBackendImpl
	format wgpu.TextureFormat
	tex    *wgpu.Texture
	view   *wgpu.TextureView
}

var _ RenderTarget = &wgpuTarget{}

// gpuDepth is a sampleable GPU copy of a depth texture.
type gpuDepth struct {
	tex  *wgpu.Texture
	view *wgpu.TextureView
}

func (g *gpuDepth) release() {
	if g.view != nil {
		g.view.Release()
		g.view = nil
	}
	if g.tex != nil {
		g.tex.Release()
		g.tex = nil
	}
}

// wgpuDepthTexture is a snapshot read back from a target. The host copy serves At and Sample;
// the GPU copy is bound directly by the composite pass.
type wgpuDepthTexture struct {
	texture.DepthTexture

	mu  *sync.Mutex
	gpu *gpuDepth
}

var _ texture.DepthTexture = &wgpuDepthTexture{}

func (t *wgpuDepthTexture) Release() error {
	t.mu.Lock()
	if t.gpu != nil {
		t.gpu.release()
		t.gpu = nil
	}
	t.mu.Unlock()
	return t.DepthTexture.Release()
}

// depthTextureFormat maps a depth type to the GPU format of its attachment. Depth24Plus has no
// defined byte layout and cannot be read back, so 24 and 32 bit types share Depth32Float and are
// quantized on read-back.
func depthTextureFormat(t texture.DepthType) wgpu.TextureFormat {
	if t == texture.DepthTypeUnsignedShort {
		return wgpu.TextureFormatDepth16Unorm
	}
	return wgpu.TextureFormatDepth32Float
}

// depthProbeDescriptor describes the 1x1 texture used to probe depth texture support for t.
func depthProbeDescriptor(t texture.DepthType) *wgpu.TextureDescriptor {
	return &wgpu.TextureDescriptor{
		Label:         "Depth Probe",
		Size:          wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthTextureFormat(t),
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc,
	}
}

func bytesPerTexel(format wgpu.TextureFormat) uint32 {
	if format == wgpu.TextureFormatDepth16Unorm {
		return 2
	}
	return 4
}

// alignedRowBytes rounds a row up to the buffer copy alignment.
func alignedRowBytes(width int, format wgpu.TextureFormat) uint32 {
	row := uint32(width) * bytesPerTexel(format)
	align := uint32(wgpu.CopyBytesPerRowAlignment)
	return (row + align - 1) / align * align
}

// decodeDepthRows unpacks padded read-back rows into normalized depth values, row 0 at the top.
func decodeDepthRows(raw []byte, width, height int, rowBytes uint32, format wgpu.TextureFormat) ([]float32, error) {
	if uint64(len(raw)) < uint64(rowBytes)*uint64(height) {
		return nil, fmt.Errorf("depth read-back: got %d bytes, want %d", len(raw), uint64(rowBytes)*uint64(height))
	}
	out := make([]float32, width*height)
	for y := range height {
		row := raw[uint32(y)*rowBytes:]
		for x := range width {
			if format == wgpu.TextureFormatDepth16Unorm {
				out[y*width+x] = float32(binary.LittleEndian.Uint16(row[x*2:])) / math.MaxUint16
			} else {
				out[y*width+x] = math.Float32frombits(binary.LittleEndian.Uint32(row[x*4:]))
			}
		}
	}
	return out, nil
}

// encodeDepth16 packs host depth values for upload into a Depth16Unorm texture.
func encodeDepth16(pixels []float32, width, height int, rowBytes uint32) []byte {
	out := make([]byte, int(rowBytes)*height)
	for y := range height {
		row := out[uint32(y)*rowBytes:]
		for x := range width {
			d := min(max(pixels[y*width+x], 0), 1)
			binary.LittleEndian.PutUint16(row[x*2:], uint16(math.Round(float64(d)*math.MaxUint16)))
		}
	}
	return out
}
