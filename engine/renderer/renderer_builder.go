package renderer

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/texture"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithLogger sets the structured logger used by the renderer and its backend.
//
// Parameters:
//   - logger: the logger; nil keeps slog.Default()
//
// Returns:
//   - RendererBuilderOption: a function that applies the logger option to a renderer
func WithLogger(logger *slog.Logger) RendererBuilderOption {
	return func(r *renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithMSAA sets the multisample anti-aliasing sample count of the final frame on the wgpu backend.
// When not specified, the default is MSAA4x. Depth captures are never multisampled.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff or MSAA4x)
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingMSAA = &count
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe). It does not select BackendTypeSoftware.
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithDepthTextureSupport overrides the depth texture capability. Passing false makes every
// backend report the capability as missing, which is how the disabled path is exercised
// without special hardware.
//
// Parameters:
//   - supported: false to disable depth textures
//
// Returns:
//   - RendererBuilderOption: a function that applies the capability override to a renderer
func WithDepthTextureSupport(supported bool) RendererBuilderOption {
	return func(r *renderer) {
		r.depthTextureSupport = supported
	}
}

// WithDepthType sets the depth type the capability probe checks. Defaults to unsigned_short.
//
// Parameters:
//   - t: the depth type capture targets will be allocated with
//
// Returns:
//   - RendererBuilderOption: a function that applies the depth type to a renderer
func WithDepthType(t texture.DepthType) RendererBuilderOption {
	return func(r *renderer) {
		r.depthType = t
	}
}

// WithWorkers sets the number of rasterizer workers of the software backend.
// Zero or less uses runtime.NumCPU().
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - RendererBuilderOption: a function that applies the worker option to a renderer
func WithWorkers(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.workers = n
	}
}
