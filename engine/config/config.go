package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-depth/common"
	"github.com/Carmen-Shannon/oxy-depth/engine/camera"
	"github.com/Carmen-Shannon/oxy-depth/engine/light"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/texture"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
)

var (
	// ErrInvalid is returned by Validate, wrapped with the offending field.
	ErrInvalid = errors.New("config: invalid value")

	// ErrUnknownPreset is returned by Preset for unrecognised names.
	ErrUnknownPreset = errors.New("config: unknown preset")
)

// Config is the full pipeline configuration. Enumerations are kept as their config
// names and parsed by the accessor methods, so a decoded file round-trips unchanged.
type Config struct {
	BackgroundColor  string `toml:"background_color"`
	LightKind        string `toml:"light_kind"`
	EnableDebugPanel bool   `toml:"enable_debug_panel"`
	PanelFile        string `toml:"panel_file"`

	// CaptureWidth and CaptureHeight of 0 use the window size at startup.
	CaptureWidth  int    `toml:"capture_width"`
	CaptureHeight int    `toml:"capture_height"`
	CaptureCount  int    `toml:"capture_count"`
	DepthFormat   string `toml:"depth_format"`
	DepthType     string `toml:"depth_type"`

	ObserverProjection string  `toml:"observer_projection"`
	ObserverBounds     float32 `toml:"observer_bounds"`
	ObserverNear       float32 `toml:"observer_near"`
	ObserverFar        float32 `toml:"observer_far"`
	ObserverFov        float32 `toml:"observer_fov"` // degrees

	LightPosition        [3]float32 `toml:"light_position"`
	RecaptureOnLightMove bool       `toml:"recapture_on_light_move"`

	ViewerFov      float32    `toml:"viewer_fov"` // degrees
	ViewerNear     float32    `toml:"viewer_near"`
	ViewerFar      float32    `toml:"viewer_far"`
	ViewerPosition [3]float32 `toml:"viewer_position"`
	ViewerDamping  float32    `toml:"viewer_damping"`
	ViewerActive   bool       `toml:"viewer_active"`

	Backend         string `toml:"backend"`
	SoftwareWorkers int    `toml:"software_workers"`

	WindowWidth  int    `toml:"window_width"`
	WindowHeight int    `toml:"window_height"`
	WindowTitle  string `toml:"window_title"`
}

// Default returns the configuration of the directional demo without the debug panel.
func Default() Config {
	return Config{
		BackgroundColor:    "#ffffff",
		LightKind:          light.LightKindDirectional.String(),
		CaptureCount:       1,
		DepthFormat:        texture.DepthFormatDepth.String(),
		DepthType:          texture.DepthTypeUnsignedShort.String(),
		ObserverProjection: camera.ProjectionOrthographic.String(),
		ObserverBounds:     10,
		ObserverNear:       0,
		ObserverFar:        10,
		ObserverFov:        50,
		LightPosition:      [3]float32{0, 10, 10},
		ViewerFov:          70,
		ViewerNear:         0.01,
		ViewerFar:          50,
		ViewerPosition:     [3]float32{0, 0, 10},
		ViewerDamping:      0.05,
		ViewerActive:       true,
		Backend:            renderer.BackendTypeWGPU.String(),
		WindowWidth:        1280,
		WindowHeight:       720,
		WindowTitle:        "oxy-depth",
	}
}

// Preset returns one of the two demo variants: "directional" (a lit scene with the debug
// panel) or "orthographic_only" (an unlit observer with no panel).
//
// Parameters:
//   - name: the preset name
//
// Returns:
//   - Config: the preset
//   - error: ErrUnknownPreset wrapped with the name
func Preset(name string) (Config, error) {
	cfg := Default()
	switch name {
	case "directional":
		cfg.EnableDebugPanel = true
	case "orthographic_only":
		cfg.LightKind = light.LightKindOrthographicOnly.String()
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return cfg, nil
}

// Load decodes a TOML file over Default. Unknown keys are an error. A leading ~ in path
// is expanded to the home directory.
//
// Parameters:
//   - path: the file to read
//   - options: overrides applied after decoding
//
// Returns:
//   - Config: the validated configuration
//   - error: a read, decode or validation error
func Load(path string, options ...Option) (Config, error) {
	return LoadOver(Default(), path, options...)
}

// LoadOver decodes a TOML file over base, typically a Preset.
//
// Parameters:
//   - base: the values for keys the file leaves out
//   - path: the file to read
//   - options: overrides applied after decoding
//
// Returns:
//   - Config: the validated configuration
//   - error: a read, decode or validation error
func LoadOver(base Config, path string, options ...Option) (Config, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: expand %s: %w", path, err)
	}
	f, err := os.Open(expanded)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", expanded, err)
	}
	defer f.Close()

	cfg := base
	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("config: parse %s: %w\n%s", expanded, err, strict.String())
		}
		return Config{}, fmt.Errorf("config: parse %s: %w", expanded, err)
	}

	cfg = cfg.Apply(options...)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Apply returns a copy of c with options applied in order.
func (c Config) Apply(options ...Option) Config {
	for _, opt := range options {
		opt(&c)
	}
	return c
}

func invalid(field string, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalid, field, fmt.Sprintf(format, args...))
}

// Validate checks ranges and enumerations.
//
// Returns:
//   - error: ErrInvalid wrapped with the first offending field
func (c Config) Validate() error {
	if _, err := c.Background(); err != nil {
		return invalid("background_color", "%v", err)
	}
	if _, err := c.Light(); err != nil {
		return invalid("light_kind", "%v", err)
	}
	if c.EnableDebugPanel && c.PanelFile != "" {
		if _, err := homedir.Expand(c.PanelFile); err != nil {
			return invalid("panel_file", "%v", err)
		}
	}
	if c.CaptureWidth < 0 || c.CaptureHeight < 0 {
		return invalid("capture_width/capture_height", "%dx%d is negative", c.CaptureWidth, c.CaptureHeight)
	}
	if c.CaptureCount < 1 {
		return invalid("capture_count", "%d, must be at least 1", c.CaptureCount)
	}
	if _, err := c.Format(); err != nil {
		return invalid("depth_format", "%v", err)
	}
	if _, err := c.Type(); err != nil {
		return invalid("depth_type", "%v", err)
	}

	proj, err := c.Projection()
	if err != nil {
		return invalid("observer_projection", "%v", err)
	}
	if c.ObserverNear >= c.ObserverFar {
		return invalid("observer_near", "%v must be below observer_far %v", c.ObserverNear, c.ObserverFar)
	}
	switch proj {
	case camera.ProjectionPerspective:
		if c.ObserverNear <= 0 {
			return invalid("observer_near", "%v, perspective observers need a positive near plane", c.ObserverNear)
		}
		if c.ObserverFov <= 0 || c.ObserverFov >= 180 {
			return invalid("observer_fov", "%v degrees", c.ObserverFov)
		}
	case camera.ProjectionOrthographic:
		if c.ObserverNear < 0 {
			return invalid("observer_near", "%v is negative", c.ObserverNear)
		}
		if c.ObserverBounds <= 0 {
			return invalid("observer_bounds", "%v, must be positive", c.ObserverBounds)
		}
	}

	if c.ViewerNear <= 0 || c.ViewerNear >= c.ViewerFar {
		return invalid("viewer_near", "%v must be positive and below viewer_far %v", c.ViewerNear, c.ViewerFar)
	}
	if c.ViewerFov <= 0 || c.ViewerFov >= 180 {
		return invalid("viewer_fov", "%v degrees", c.ViewerFov)
	}
	if c.ViewerDamping < 0 || c.ViewerDamping > 1 {
		return invalid("viewer_damping", "%v, must be within [0, 1]", c.ViewerDamping)
	}

	if _, err := c.BackendType(); err != nil {
		return invalid("backend", "%v", err)
	}
	if c.SoftwareWorkers < 0 {
		return invalid("software_workers", "%d is negative", c.SoftwareWorkers)
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return invalid("window_width/window_height", "%dx%d", c.WindowWidth, c.WindowHeight)
	}
	return nil
}

// Background parses BackgroundColor.
func (c Config) Background() (common.Color, error) {
	return common.ParseHexColor(c.BackgroundColor)
}

// Light parses LightKind.
func (c Config) Light() (light.LightKind, error) {
	return light.ParseKind(c.LightKind)
}

// Format parses DepthFormat.
func (c Config) Format() (texture.DepthFormat, error) {
	return texture.ParseDepthFormat(c.DepthFormat)
}

// Type parses DepthType.
func (c Config) Type() (texture.DepthType, error) {
	return texture.ParseDepthType(c.DepthType)
}

// Projection parses ObserverProjection.
func (c Config) Projection() (camera.Projection, error) {
	return camera.ParseProjection(c.ObserverProjection)
}

// BackendType parses Backend.
func (c Config) BackendType() (renderer.RendererBackendType, error) {
	return renderer.ParseBackendType(c.Backend)
}

// CaptureSize returns the capture resolution, falling back to the given window size for
// zero dimensions.
//
// Parameters:
//   - windowWidth, windowHeight: the window size at startup
//
// Returns:
//   - int, int: the capture width and height
func (c Config) CaptureSize(windowWidth, windowHeight int) (int, int) {
	w, h := c.CaptureWidth, c.CaptureHeight
	if w == 0 {
		w = windowWidth
	}
	if h == 0 {
		h = windowHeight
	}
	return w, h
}

// PanelPath returns PanelFile with ~ expanded.
func (c Config) PanelPath() (string, error) {
	return homedir.Expand(c.PanelFile)
}
