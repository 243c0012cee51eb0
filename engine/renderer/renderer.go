package renderer

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-depth/common"
	"github.com/Carmen-Shannon/oxy-depth/engine/camera"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-depth/engine/scene"
	"github.com/Carmen-Shannon/oxy-depth/engine/window"
)

var (
	// ErrDepthTextureUnsupported is returned when the backend cannot create sampleable depth attachments.
	ErrDepthTextureUnsupported = errors.New("renderer: depth textures are not supported by this device")

	// ErrStencilUnsupported is returned for depth-stencil targets; capture targets never carry a stencil.
	ErrStencilUnsupported = errors.New("renderer: stencil attachments are disabled for capture targets")

	// ErrTargetReleased is returned when a released render target is used.
	ErrTargetReleased = errors.New("renderer: render target released")

	// ErrInvalidTargetSize is returned for non-positive render target dimensions.
	ErrInvalidTargetSize = errors.New("renderer: invalid render target size")

	// ErrForeignTarget is returned when a render target is used with a backend that did not create it.
	ErrForeignTarget = errors.New("renderer: render target belongs to another backend")

	// ErrFrameUnavailable is returned by ReadFrame before the first frame or on backends that cannot read back.
	ErrFrameUnavailable = errors.New("renderer: frame read-back unavailable")

	// ErrUnknownBackend is returned by ParseBackendType for unrecognised names.
	ErrUnknownBackend = errors.New("renderer: unknown backend")
)

// CompositeProgram is the per-pixel program that shades composite surfaces from the captured
// depth textures. The wgpu backend compiles Shader and binds DepthTextures in order; the
// software backend calls Shade per pixel.
type CompositeProgram interface {
	// Shader returns the reflected program.
	Shader() shader.Shader

	// Group returns the bind group that holds the uniform block, sampler and depth textures.
	Group() int

	// Count returns the fixed number of depth textures.
	Count() int

	// Generation changes whenever the uniform block or texture set must be rebound.
	Generation() uint64

	// UniformBytes returns the marshalled uniform block.
	UniformBytes() []byte

	// DepthTextures returns the bound textures in binding order.
	DepthTextures() []texture.DepthTexture

	// Shade evaluates the program at a mesh texture coordinate.
	//
	// Parameters:
	//   - u, v: texture coordinates with v = 0 at the bottom of the mesh
	//
	// Returns:
	//   - [4]float32: the RGBA result
	//   - error: an error if a texture was released
	Shade(u, v float32) ([4]float32, error)
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu     *sync.Mutex
	logger *slog.Logger

	backendType RendererBackendType
	backend     RendererBackend

	width  int
	height int

	target    RenderTarget
	composite CompositeProgram

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	depthTextureSupport  bool
	depthType            texture.DepthType
	workers              int
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
}

// Renderer defines the interface for the rendering system.
//
// The Renderer draws a scene either into the screen (the final frame) or into an off-screen
// depth target, depending on the current render destination. Backends are interchangeable:
// the wgpu backend draws through WebGPU, the software backend rasterizes on the CPU.
type Renderer interface {
	// BackendType returns the backend in use.
	BackendType() RendererBackendType

	// SupportsDepthTexture reports whether depth captures are possible on this device.
	//
	// Returns:
	//   - bool: false when depth attachments cannot be sampled or copied
	SupportsDepthTexture() bool

	// Width returns the width of the final frame in pixels.
	Width() int

	// Height returns the height of the final frame in pixels.
	Height() int

	// Resize configures the backend for a new frame size. Render targets are unaffected.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// CreateRenderTarget allocates an off-screen depth target with nearest filtering and no stencil.
	//
	// Parameters:
	//   - desc: the target's size, depth format and depth type
	//
	// Returns:
	//   - RenderTarget: the new target
	//   - error: ErrDepthTextureUnsupported, ErrStencilUnsupported or ErrInvalidTargetSize
	CreateRenderTarget(desc RenderTargetDescriptor) (RenderTarget, error)

	// SetRenderTarget selects the render destination. Nil selects the screen.
	//
	// Parameters:
	//   - t: the target, or nil
	//
	// Returns:
	//   - error: ErrTargetReleased if t was released
	SetRenderTarget(t RenderTarget) error

	// RenderTarget returns the current destination, nil for the screen.
	RenderTarget() RenderTarget

	// SetCompositeProgram sets the program used for composite surfaces. Nil draws them as standard surfaces.
	SetCompositeProgram(p CompositeProgram)

	// CompositeProgram returns the current composite program.
	CompositeProgram() CompositeProgram

	// Render draws the scene with cam into the current destination. Into a render target
	// only depth-casting surfaces are drawn and no color is produced; into the screen the
	// visible surfaces are shaded and the frame is presented.
	//
	// Parameters:
	//   - s: the scene to draw
	//   - cam: the view to draw from
	//
	// Returns:
	//   - error: ErrTargetReleased or a backend error
	Render(s scene.Scene, cam camera.Camera) error

	// CopyDepth copies a target's depth attachment into a new texture owned by the caller.
	//
	// Parameters:
	//   - t: the target to copy from
	//   - label: the label of the new texture
	//
	// Returns:
	//   - texture.DepthTexture: the snapshot, quantized to the target's depth type
	//   - error: ErrTargetReleased or a backend error
	CopyDepth(t RenderTarget, label string) (texture.DepthTexture, error)

	// ReadFrame returns a copy of the last presented frame.
	//
	// Returns:
	//   - *image.RGBA: the frame
	//   - error: ErrFrameUnavailable if no frame can be read back
	ReadFrame() (*image.RGBA, error)

	// Release frees every backend resource. Render targets must be released by their owners first.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer with the specified backend. The window supplies the
// initial frame size and, for the wgpu backend, the platform surface.
//
// Parameters:
//   - backendType: the type of rendering backend to use
//   - win: the window to present into; a headless window works for the software backend
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:                  &sync.Mutex{},
		logger:              slog.Default(),
		backendType:         backendType,
		width:               win.Width(),
		height:              win.Height(),
		depthTextureSupport: true,
		depthType:           texture.DepthTypeUnsignedShort,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	if backendType == BackendTypeWGPU && win.Headless() {
		r.logger.Warn("headless window has no surface, using the software renderer")
		backendType = BackendTypeSoftware
		r.backendType = backendType
	}

	switch backendType {
	case BackendTypeSoftware:
		r.backend = newSoftwareRendererBackend(r.logger, r.workers, r.depthTextureSupport)
	case BackendTypeWGPU:
		fallthrough
	default:
		msaa := MSAA4x
		if r.pendingMSAA != nil {
			msaa = *r.pendingMSAA
		}
		r.backend = newWGPURendererBackend(r.logger, win.SurfaceDescriptor(), r.forceFallbackAdapter, msaa, r.depthTextureSupport, r.depthType)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.backend.ConfigureSurface(r.width, r.height)
	r.logger.Info("renderer ready",
		"backend", backendType.String(),
		"width", r.width,
		"height", r.height,
		"depth_texture", r.backend.SupportsDepthTexture(),
	)
	return r
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) SupportsDepthTexture() bool {
	return r.backend.SupportsDepthTexture()
}

func (r *renderer) Width() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width
}

func (r *renderer) Height() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.height
}

func (r *renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.mu.Lock()
	r.width, r.height = width, height
	r.mu.Unlock()
	r.backend.ConfigureSurface(width, height)
	r.logger.Debug("renderer resized", "width", width, "height", height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) CreateRenderTarget(desc RenderTargetDescriptor) (RenderTarget, error) {
	if !r.backend.SupportsDepthTexture() {
		return nil, ErrDepthTextureUnsupported
	}
	if err := desc.validate(); err != nil {
		return nil, err
	}
	t, err := r.backend.CreateRenderTarget(desc)
	if err != nil {
		return nil, fmt.Errorf("create render target %q: %w", desc.Label, err)
	}
	r.logger.Debug("render target created",
		"label", t.Label(),
		"width", t.Width(),
		"height", t.Height(),
		"depth_type", t.DepthType().String(),
	)
	return t, nil
}

func (r *renderer) SetRenderTarget(t RenderTarget) error {
	if t != nil && t.Released() {
		return fmt.Errorf("set render target %q: %w", t.Label(), ErrTargetReleased)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = t
	return nil
}

func (r *renderer) RenderTarget() RenderTarget {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target
}

func (r *renderer) SetCompositeProgram(p CompositeProgram) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.composite = p
}

func (r *renderer) CompositeProgram() CompositeProgram {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.composite
}

func (r *renderer) Render(s scene.Scene, cam camera.Camera) error {
	r.mu.Lock()
	target, program := r.target, r.composite
	r.mu.Unlock()

	surfaces := s.Surfaces()
	if target != nil {
		if target.Released() {
			return fmt.Errorf("render into %q: %w", target.Label(), ErrTargetReleased)
		}
		casters := surfaces[:0:0]
		for _, surf := range surfaces {
			if surf.CastsDepth && surf.Mesh != nil {
				casters = append(casters, surf)
			}
		}
		return r.backend.DrawDepth(target, casters, cam)
	}

	visible := surfaces[:0:0]
	for _, surf := range surfaces {
		if surf.Visible && surf.Mesh != nil {
			visible = append(visible, surf)
		}
	}
	return r.backend.DrawFrame(FrameDescriptor{
		Background: s.Background(),
		Surfaces:   visible,
		Camera:     cam,
		Light:      s.Light(),
		Composite:  program,
	})
}

func (r *renderer) CopyDepth(t RenderTarget, label string) (texture.DepthTexture, error) {
	if t == nil || t.Released() {
		return nil, fmt.Errorf("copy depth: %w", ErrTargetReleased)
	}
	return r.backend.CopyDepth(t, label)
}

func (r *renderer) ReadFrame() (*image.RGBA, error) {
	return r.backend.ReadFrame()
}

func (r *renderer) Release() {
	r.mu.Lock()
	r.target = nil
	r.composite = nil
	r.mu.Unlock()
	r.backend.Release()
}

// shadeLambert mirrors the surface program: ambient plus a clamped diffuse term.
func shadeLambert(base common.Color, normal, lightDir common.Vec3, lightColor common.Color, intensity float32) [4]float32 {
	ndl := max(normal.Dot(lightDir.Scale(-1)), 0)
	shade := func(c float32) float32 {
		return min(ambient+c*intensity*ndl, 1)
	}
	return [4]float32{
		base.R * shade(lightColor.R),
		base.G * shade(lightColor.G),
		base.B * shade(lightColor.B),
		base.A,
	}
}

// ambient is the constant light term of the surface program.
const ambient float32 = 0.35
