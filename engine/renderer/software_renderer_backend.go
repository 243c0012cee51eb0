package renderer

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-depth/common"
	"github.com/Carmen-Shannon/oxy-depth/engine/camera"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-depth/engine/scene"
)

// bandHeight is the number of rows one rasterizer task covers.
const bandHeight = 32

// softwareRendererBackend rasterizes on the CPU. Rows are split into bands and each band is
// rasterized by a worker, so bands never touch the same pixels.
type softwareRendererBackend struct {
	mu     *sync.Mutex
	logger *slog.Logger
	pool   worker.DynamicWorkerPool

	depthTextureSupport bool

	width  int
	height int
	frame  *image.RGBA
	depth  []float32
	drawn  bool

	taskID atomic.Int64
}

// softwareTarget is a render target whose depth attachment lives in host memory.
type softwareTarget struct {
	targetInfo
	owner *softwareRendererBackend
	depth []float32
}

var _ RendererBackend = &softwareRendererBackend{}
var _ RenderTarget = &softwareTarget{}

// newSoftwareRendererBackend creates a CPU backend.
//
// Parameters:
//   - logger: the structured logger
//   - workers: the rasterizer worker count, runtime.NumCPU() when <= 0
//   - depthTextureSupport: the reported depth texture capability
//
// Returns:
//   - *softwareRendererBackend: the backend
func newSoftwareRendererBackend(logger *slog.Logger, workers int, depthTextureSupport bool) *softwareRendererBackend {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &softwareRendererBackend{
		mu:                  &sync.Mutex{},
		logger:              logger,
		pool:                worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
		depthTextureSupport: depthTextureSupport,
	}
}

func (b *softwareRendererBackend) SupportsDepthTexture() bool {
	return b.depthTextureSupport
}

func (b *softwareRendererBackend) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if width <= 0 || height <= 0 {
		return
	}
	b.width, b.height = width, height
	b.frame = image.NewRGBA(image.Rect(0, 0, width, height))
	b.depth = make([]float32, width*height)
	b.drawn = false
}

func (b *softwareRendererBackend) SetPresentMode(mode PresentMode) {}

func (b *softwareRendererBackend) CreateRenderTarget(desc RenderTargetDescriptor) (RenderTarget, error) {
	t := &softwareTarget{
		owner: b,
		depth: make([]float32, desc.Width*desc.Height),
	}
	t.targetInfo = newTargetInfo(desc, func() { t.depth = nil })
	return t, nil
}

func (b *softwareRendererBackend) target(t RenderTarget) (*softwareTarget, error) {
	st, ok := t.(*softwareTarget)
	if !ok || st.owner != b {
		return nil, ErrForeignTarget
	}
	if st.Released() {
		return nil, ErrTargetReleased
	}
	return st, nil
}

func (b *softwareRendererBackend) DrawDepth(target RenderTarget, surfaces []*scene.Surface, cam camera.Camera) error {
	st, err := b.target(target)
	if err != nil {
		return fmt.Errorf("draw depth into %q: %w", target.Label(), err)
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.released {
		return fmt.Errorf("draw depth into %q: %w", st.Label(), ErrTargetReleased)
	}

	w, h := st.Width(), st.Height()
	clearDepth(st.depth)

	viewProj := cam.ViewProjectionMatrix()
	var tris []triangle
	for _, surf := range surfaces {
		tris = append(tris, assembleTriangles(surf, viewProj, w, h)...)
	}
	b.logger.Debug("software depth pass", "target", st.Label(), "triangles", len(tris))

	return b.runBands(h, func(y0, y1 int) error {
		for i := range tris {
			err := tris[i].rasterizeRows(y0, y1, st.depth, w, func(f *fragment) error {
				st.depth[f.y*w+f.x] = f.depth
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *softwareRendererBackend) DrawFrame(frame FrameDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frame == nil {
		return fmt.Errorf("draw frame: %w", ErrInvalidTargetSize)
	}

	w, h := b.width, b.height
	clearDepth(b.depth)
	r, g, bl, a := frame.Background.Bytes()
	for i := 0; i < len(b.frame.Pix); i += 4 {
		b.frame.Pix[i], b.frame.Pix[i+1], b.frame.Pix[i+2], b.frame.Pix[i+3] = r, g, bl, a
	}

	viewProj := frame.Camera.ViewProjectionMatrix()
	var tris []triangle
	for _, surf := range frame.Surfaces {
		tris = append(tris, assembleTriangles(surf, viewProj, w, h)...)
	}

	lightDir, lightColor, intensity := common.V3(0, 0, -1), common.ColorWhite, float32(0)
	if frame.Light != nil {
		lightDir, lightColor, intensity = frame.Light.Direction(), frame.Light.Color(), frame.Light.Intensity()
	}

	pix, depth, stride := b.frame.Pix, b.depth, b.frame.Stride
	err := b.runBands(h, func(y0, y1 int) error {
		for i := range tris {
			surf := tris[i].surface
			err := tris[i].rasterizeRows(y0, y1, depth, w, func(f *fragment) error {
				var c [4]float32
				switch {
				case surf.Material == scene.MaterialUnlit:
					c = [4]float32{surf.Color.R, surf.Color.G, surf.Color.B, surf.Color.A}
				case surf.Material == scene.MaterialComposite && frame.Composite != nil:
					shaded, err := frame.Composite.Shade(f.uv[0], f.uv[1])
					if err != nil {
						return fmt.Errorf("shade %q: %w", surf.Name, err)
					}
					c = shaded
				default:
					n := f.normal.Normalize()
					if !f.front {
						n = n.Scale(-1)
					}
					c = shadeLambert(surf.Color, n, lightDir, lightColor, intensity)
				}

				depth[f.y*w+f.x] = f.depth
				o := f.y*stride + f.x*4
				cr, cg, cb, ca := common.Color{R: c[0], G: c[1], B: c[2], A: c[3]}.Bytes()
				pix[o], pix[o+1], pix[o+2], pix[o+3] = cr, cg, cb, ca
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.drawn = true
	return nil
}

func (b *softwareRendererBackend) CopyDepth(target RenderTarget, label string) (texture.DepthTexture, error) {
	st, err := b.target(target)
	if err != nil {
		return nil, fmt.Errorf("copy depth from %q: %w", target.Label(), err)
	}
	st.mu.Lock()
	if st.released {
		st.mu.Unlock()
		return nil, fmt.Errorf("copy depth from %q: %w", st.Label(), ErrTargetReleased)
	}
	data := make([]float32, len(st.depth))
	copy(data, st.depth)
	st.mu.Unlock()

	return texture.NewDepthTexture(label, st.Width(), st.Height(), st.DepthType(), data)
}

func (b *softwareRendererBackend) ReadFrame() (*image.RGBA, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.drawn {
		return nil, ErrFrameUnavailable
	}
	out := image.NewRGBA(b.frame.Rect)
	copy(out.Pix, b.frame.Pix)
	return out, nil
}

func (b *softwareRendererBackend) Release() {
	b.pool.Stop()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frame = nil
	b.depth = nil
	b.drawn = false
}

// runBands splits [0, height) into bands, rasterizes them on the pool and waits for all of them.
func (b *softwareRendererBackend) runBands(height int, band func(y0, y1 int) error) error {
	var (
		wg    sync.WaitGroup
		errMu sync.Mutex
		errs  []error
	)
	for y0 := 0; y0 < height; y0 += bandHeight {
		y1 := min(y0+bandHeight, height)
		wg.Add(1)
		b.pool.SubmitTask(worker.Task{
			ID: int(b.taskID.Add(1)),
			Do: func() (any, error) {
				defer wg.Done()
				if err := band(y0, y1); err != nil {
					errMu.Lock()
					errs = append(errs, err)
					errMu.Unlock()
					return nil, err
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
	return errors.Join(errs...)
}

func clearDepth(depth []float32) {
	for i := range depth {
		depth[i] = 1
	}
}
