package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-depth/engine/camera"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-depth/engine/scene"
)

// ErrNoTarget is returned by CaptureDepth before Allocate or after Release.
var ErrNoTarget = errors.New("capture: no target allocated")

type capturer struct {
	mu       *sync.Mutex
	logger   *slog.Logger
	renderer renderer.Renderer

	label     string
	target    renderer.RenderTarget
	snapshots []texture.DepthTexture
	captures  int
}

// Capturer owns the off-screen depth target and every snapshot copied out of it.
// Snapshots survive Release of the target and are freed only by ReleaseSnapshot(s).
type Capturer interface {
	// Allocate creates the capture target, releasing any existing one first.
	//
	// Parameters:
	//   - width, height: the target size in pixels, independent of the window
	//   - format: the depth attachment layout; DepthFormatDepthStencil is rejected
	//   - typ: the stored precision
	//
	// Returns:
	//   - renderer.RenderTarget: the new target
	//   - error: renderer.ErrStencilUnsupported, renderer.ErrDepthTextureUnsupported or renderer.ErrInvalidTargetSize
	Allocate(width, height int, format texture.DepthFormat, typ texture.DepthType) (renderer.RenderTarget, error)

	// Target returns the current target, nil if none is allocated.
	Target() renderer.RenderTarget

	// Release frees the current target. Releasing twice is a no-op.
	Release() error

	// CaptureDepth renders the depth-casting surfaces of s from observer into the target and
	// copies the result into a new snapshot. The screen is the render destination again when
	// it returns, whether or not the capture succeeded.
	//
	// Parameters:
	//   - s: the scene to capture
	//   - observer: the view to capture from
	//
	// Returns:
	//   - texture.DepthTexture: the snapshot, owned by the capturer
	//   - error: ErrNoTarget, camera.ErrAlreadyCapturing or a renderer error
	CaptureDepth(s scene.Scene, observer camera.Camera) (texture.DepthTexture, error)

	// Snapshots returns the live snapshots in capture order.
	Snapshots() []texture.DepthTexture

	// ReleaseSnapshot frees one snapshot and stops tracking it.
	//
	// Parameters:
	//   - tex: a snapshot returned by CaptureDepth
	//
	// Returns:
	//   - error: ErrUnknownSnapshot if tex is not owned by this capturer
	ReleaseSnapshot(tex texture.DepthTexture) error

	// ReleaseSnapshots frees every snapshot.
	ReleaseSnapshots() error
}

// ErrUnknownSnapshot is returned by ReleaseSnapshot for textures the capturer does not own.
var ErrUnknownSnapshot = errors.New("capture: unknown snapshot")

var _ Capturer = &capturer{}

// NewCapturer creates a Capturer drawing through r. No target is allocated yet.
//
// Parameters:
//   - r: the renderer to capture with
//   - options: functional options
//
// Returns:
//   - Capturer: the capturer
func NewCapturer(r renderer.Renderer, options ...CapturerBuilderOption) Capturer {
	c := &capturer{
		mu:       &sync.Mutex{},
		logger:   slog.Default(),
		renderer: r,
		label:    "depth",
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *capturer) Allocate(width, height int, format texture.DepthFormat, typ texture.DepthType) (renderer.RenderTarget, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.releaseTarget(); err != nil {
		return nil, err
	}

	t, err := c.renderer.CreateRenderTarget(renderer.RenderTargetDescriptor{
		Label:       c.label + "_target",
		Width:       width,
		Height:      height,
		DepthFormat: format,
		DepthType:   typ,
	})
	if err != nil {
		return nil, fmt.Errorf("allocate capture target: %w", err)
	}
	c.target = t
	c.logger.Info("capture target allocated",
		"width", width,
		"height", height,
		"depth_type", typ.String(),
	)
	return t, nil
}

func (c *capturer) Target() renderer.RenderTarget {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *capturer) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.releaseTarget()
}

func (c *capturer) releaseTarget() error {
	if c.target == nil {
		return nil
	}
	t := c.target
	c.target = nil
	if c.renderer.RenderTarget() == t {
		if err := c.renderer.SetRenderTarget(nil); err != nil {
			return err
		}
	}
	if err := t.Release(); err != nil {
		return fmt.Errorf("release capture target %q: %w", t.Label(), err)
	}
	c.logger.Debug("capture target released", "label", t.Label())
	return nil
}

func (c *capturer) CaptureDepth(s scene.Scene, observer camera.Camera) (_ texture.DepthTexture, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.target == nil {
		return nil, ErrNoTarget
	}
	if err := observer.BeginCapture(); err != nil {
		return nil, fmt.Errorf("capture %q: %w", observer.Name(), err)
	}
	defer observer.EndCapture()

	start := time.Now()
	if err := c.renderer.SetRenderTarget(c.target); err != nil {
		return nil, fmt.Errorf("capture %q: %w", observer.Name(), err)
	}
	defer func() {
		if restoreErr := c.renderer.SetRenderTarget(nil); restoreErr != nil {
			err = errors.Join(err, restoreErr)
		}
	}()

	if err := c.renderer.Render(s, observer); err != nil {
		return nil, fmt.Errorf("capture %q: %w", observer.Name(), err)
	}
	snap, err := c.renderer.CopyDepth(c.target, fmt.Sprintf("%s_%d", c.label, c.captures))
	if err != nil {
		return nil, fmt.Errorf("capture %q: %w", observer.Name(), err)
	}
	c.captures++
	c.snapshots = append(c.snapshots, snap)

	c.logger.Debug("depth captured",
		"observer", observer.Name(),
		"snapshot", snap.Label(),
		"elapsed", time.Since(start),
	)
	return snap, nil
}

func (c *capturer) Snapshots() []texture.DepthTexture {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.snapshots)
}

func (c *capturer) ReleaseSnapshot(tex texture.DepthTexture) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.Index(c.snapshots, tex)
	if i < 0 {
		return ErrUnknownSnapshot
	}
	c.snapshots = slices.Delete(c.snapshots, i, i+1)
	return tex.Release()
}

func (c *capturer) ReleaseSnapshots() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for _, snap := range c.snapshots {
		errs = append(errs, snap.Release())
	}
	c.snapshots = nil
	return errors.Join(errs...)
}
