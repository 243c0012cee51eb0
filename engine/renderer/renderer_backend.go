package renderer

import (
	"fmt"
	"image"
	"strings"

	"github.com/Carmen-Shannon/oxy-depth/common"
	"github.com/Carmen-Shannon/oxy-depth/engine/camera"
	"github.com/Carmen-Shannon/oxy-depth/engine/light"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-depth/engine/scene"
)

// RendererBackendType identifies the backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeSoftware selects the CPU rasterizer. It needs no window surface or GPU.
	BackendTypeSoftware
)

func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeSoftware:
		return "software"
	default:
		return fmt.Sprintf("RendererBackendType(%d)", int(t))
	}
}

// ParseBackendType converts a config name to a RendererBackendType.
func ParseBackendType(name string) (RendererBackendType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "wgpu", "":
		return BackendTypeWGPU, nil
	case "software", "cpu":
		return BackendTypeSoftware, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA)
// of the final frame. Depth captures are always single-sampled so they can be copied.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4x multisample anti-aliasing. This is the default for the wgpu backend.
	MSAA4x MSAASampleCount = 4
)

// FrameDescriptor is everything a backend needs to draw the final frame.
type FrameDescriptor struct {
	Background common.Color
	Surfaces   []*scene.Surface
	Camera     camera.Camera

	// Light shades standard surfaces. Nil means ambient only.
	Light light.Light

	// Composite shades composite surfaces. Nil draws them as standard surfaces.
	Composite CompositeProgram
}

// RendererBackend is the interface every backend implements. The Renderer owns the
// destination state and calls into the backend once per pass.
type RendererBackend interface {
	// SupportsDepthTexture reports whether depth attachments can be created as sampleable,
	// copyable textures.
	SupportsDepthTexture() bool

	// ConfigureSurface resizes the final frame.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets how frames are delivered to the display. Backends without a display ignore it.
	SetPresentMode(mode PresentMode)

	// CreateRenderTarget allocates an off-screen depth target.
	//
	// Parameters:
	//   - desc: a validated descriptor
	//
	// Returns:
	//   - RenderTarget: the new target
	//   - error: an error if allocation fails
	CreateRenderTarget(desc RenderTargetDescriptor) (RenderTarget, error)

	// DrawDepth clears the target's depth attachment and draws every surface into it with cam.
	// Returns only after the pass has completed.
	//
	// Parameters:
	//   - target: a live target created by this backend
	//   - surfaces: the depth-casting surfaces
	//   - cam: the view to render from
	//
	// Returns:
	//   - error: an error if the target is foreign or the pass fails
	DrawDepth(target RenderTarget, surfaces []*scene.Surface, cam camera.Camera) error

	// DrawFrame clears and draws the final frame and presents it.
	//
	// Parameters:
	//   - frame: the surfaces, camera and shading inputs
	//
	// Returns:
	//   - error: an error if a composite texture cannot be read or the surface is lost
	DrawFrame(frame FrameDescriptor) error

	// CopyDepth copies a target's depth attachment into a new, independently owned texture.
	//
	// Parameters:
	//   - target: a live target created by this backend
	//   - label: the label of the new texture
	//
	// Returns:
	//   - texture.DepthTexture: the snapshot
	//   - error: an error if the copy or read-back fails
	CopyDepth(target RenderTarget, label string) (texture.DepthTexture, error)

	// ReadFrame returns a copy of the last presented frame.
	//
	// Returns:
	//   - *image.RGBA: the frame, row 0 at the top
	//   - error: ErrFrameUnavailable when the backend cannot read its frame back
	ReadFrame() (*image.RGBA, error)

	// Release frees every backend resource.
	Release()
}
