package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-depth/engine/camera"
	"github.com/Carmen-Shannon/oxy-depth/engine/light"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/texture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "depth.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	bg, err := cfg.Background()
	require.NoError(t, err)
	assert.Equal(t, float32(1), bg.R)

	typ, err := cfg.Type()
	require.NoError(t, err)
	assert.Equal(t, texture.DepthTypeUnsignedShort, typ)

	proj, err := cfg.Projection()
	require.NoError(t, err)
	assert.Equal(t, camera.ProjectionOrthographic, proj)
	assert.Equal(t, [3]float32{0, 10, 10}, cfg.LightPosition)
	assert.False(t, cfg.RecaptureOnLightMove)
}

func TestPresets(t *testing.T) {
	directional, err := Preset("directional")
	require.NoError(t, err)
	kind, err := directional.Light()
	require.NoError(t, err)
	assert.Equal(t, light.LightKindDirectional, kind)
	assert.True(t, directional.EnableDebugPanel)

	ortho, err := Preset("orthographic_only")
	require.NoError(t, err)
	kind, err = ortho.Light()
	require.NoError(t, err)
	assert.Equal(t, light.LightKindOrthographicOnly, kind)
	assert.False(t, ortho.EnableDebugPanel)

	_, err = Preset("spot")
	assert.ErrorIs(t, err, ErrUnknownPreset)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
background_color = "#000000"
capture_count = 3
depth_type = "float"
observer_projection = "perspective"
observer_near = 0.5
observer_far = 20.0
backend = "software"
light_position = [1.0, 2.0, 3.0]
`)
	cfg, err := Load(path, WithSoftwareWorkers(4))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.CaptureCount)
	assert.Equal(t, "float", cfg.DepthType)
	assert.Equal(t, [3]float32{1, 2, 3}, cfg.LightPosition)
	assert.Equal(t, 4, cfg.SoftwareWorkers)
	assert.Equal(t, float32(70), cfg.ViewerFov, "keys left out keep their defaults")

	backend, err := cfg.BackendType()
	require.NoError(t, err)
	assert.Equal(t, renderer.BackendTypeSoftware, backend)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "capture_cont = 2\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capture_cont")
}

func TestLoadValidates(t *testing.T) {
	path := writeConfig(t, "capture_count = 0\n")
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "capture_count")
}

func TestLoadOverPreset(t *testing.T) {
	base, err := Preset("orthographic_only")
	require.NoError(t, err)
	cfg, err := LoadOver(base, writeConfig(t, "capture_width = 256\n"))
	require.NoError(t, err)
	assert.Equal(t, light.LightKindOrthographicOnly.String(), cfg.LightKind)
	assert.Equal(t, 256, cfg.CaptureWidth)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]Option{
		"capture_count":       WithCaptureCount(0),
		"capture_width":       WithCaptureSize(-1, 10),
		"depth_type":          WithDepthType("half"),
		"backend":             WithBackend("vulkan"),
		"software_workers":    WithSoftwareWorkers(-2),
		"window_width":        WithWindowSize(0, 10),
		"observer_near":       func(c *Config) { c.ObserverNear, c.ObserverFar = 5, 5 },
		"perspective near":    func(c *Config) { c.ObserverProjection, c.ObserverNear = "perspective", 0 },
		"viewer_damping":      func(c *Config) { c.ViewerDamping = 2 },
		"background_color":    func(c *Config) { c.BackgroundColor = "#zz" },
		"light_kind":          func(c *Config) { c.LightKind = "spot" },
		"depth_format":        func(c *Config) { c.DepthFormat = "stencil" },
		"observer_projection": func(c *Config) { c.ObserverProjection = "fisheye" },
	}
	for name, opt := range cases {
		t.Run(name, func(t *testing.T) {
			err := Default().Apply(opt).Validate()
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestDepthStencilIsAValidConfig(t *testing.T) {
	// The capture target rejects it at allocation time, not the config.
	cfg := Default()
	cfg.DepthFormat = "depth_stencil"
	require.NoError(t, cfg.Validate())
	format, err := cfg.Format()
	require.NoError(t, err)
	assert.Equal(t, texture.DepthFormatDepthStencil, format)
}

func TestCaptureSizeFallsBackToWindow(t *testing.T) {
	cfg := Default().Apply(WithCaptureSize(0, 512))
	w, h := cfg.CaptureSize(800, 600)
	assert.Equal(t, 800, w)
	assert.Equal(t, 512, h)
}

func TestApplyDoesNotMutateReceiver(t *testing.T) {
	base := Default()
	_ = base.Apply(WithCaptureCount(9), WithViewerActive(false), WithLightPosition(1, 1, 1), WithRecaptureOnLightMove(true), WithDebugPanel(true, "~/panel.toml"))
	assert.Equal(t, 1, base.CaptureCount)
	assert.True(t, base.ViewerActive)
}
