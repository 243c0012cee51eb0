package config

// Option overrides a Config after it is loaded, typically from command-line flags.
type Option func(*Config)

// WithCaptureCount sets the number of depth textures N.
//
// Parameters:
//   - n: the texture count, at least 1
//
// Returns:
//   - Option: the override
func WithCaptureCount(n int) Option {
	return func(c *Config) {
		c.CaptureCount = n
	}
}

// WithCaptureSize sets the capture resolution. Zero keeps the window size.
//
// Parameters:
//   - width, height: the resolution in pixels
//
// Returns:
//   - Option: the override
func WithCaptureSize(width, height int) Option {
	return func(c *Config) {
		c.CaptureWidth, c.CaptureHeight = width, height
	}
}

// WithDepthType sets the stored precision by name.
func WithDepthType(name string) Option {
	return func(c *Config) {
		c.DepthType = name
	}
}

// WithBackend selects the renderer backend by name ("wgpu" or "software").
//
// Parameters:
//   - name: the backend name
//
// Returns:
//   - Option: the override
func WithBackend(name string) Option {
	return func(c *Config) {
		c.Backend = name
	}
}

// WithSoftwareWorkers sets the rasterizer worker count. Zero uses every CPU.
func WithSoftwareWorkers(n int) Option {
	return func(c *Config) {
		c.SoftwareWorkers = n
	}
}

// WithViewerActive selects whether the final frame is drawn from the viewer or the observer.
func WithViewerActive(active bool) Option {
	return func(c *Config) {
		c.ViewerActive = active
	}
}

// WithLightPosition places the light.
//
// Parameters:
//   - x, y, z: the world position
//
// Returns:
//   - Option: the override
func WithLightPosition(x, y, z float32) Option {
	return func(c *Config) {
		c.LightPosition = [3]float32{x, y, z}
	}
}

// WithRecaptureOnLightMove enables recapturing every entry when the light moves.
func WithRecaptureOnLightMove(enabled bool) Option {
	return func(c *Config) {
		c.RecaptureOnLightMove = enabled
	}
}

// WithDebugPanel enables the debug panel, optionally watching a TOML file.
//
// Parameters:
//   - enabled: whether the panel is created
//   - file: the watched file, empty for key bindings only
//
// Returns:
//   - Option: the override
func WithDebugPanel(enabled bool, file string) Option {
	return func(c *Config) {
		c.EnableDebugPanel = enabled
		c.PanelFile = file
	}
}

// WithWindowSize sets the initial window size.
func WithWindowSize(width, height int) Option {
	return func(c *Config) {
		c.WindowWidth, c.WindowHeight = width, height
	}
}
