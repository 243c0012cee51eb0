package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWritesCapturesAndFrame(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "depth.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("capture_count = 2\nsoftware_workers = 2\n"), 0644))

	var stderr bytes.Buffer
	err := run([]string{
		"-config", cfgPath,
		"-frames", "2",
		"-out", dir,
		"-width", "64",
		"-height", "48",
		"-format", "png",
		"-viewer=false",
	}, &stderr)
	require.NoError(t, err, stderr.String())

	for _, name := range []string{"depth_0.exr", "depth_1.exr", "frame.png"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}
	assert.Contains(t, stderr.String(), "wrote frame")
}

func TestParseFlagsRejectsBadValues(t *testing.T) {
	var stderr bytes.Buffer
	_, err := parseFlags([]string{"-frames", "0"}, &stderr)
	assert.Error(t, err)
	_, err = parseFlags([]string{"-format", "gif"}, &stderr)
	assert.Error(t, err)

	o, err := parseFlags([]string{"-viewer=false", "-light", "1,2,3"}, &stderr)
	require.NoError(t, err)
	assert.True(t, o.set["viewer"])
	assert.False(t, o.set["width"])
}

func TestLoadConfigOverrides(t *testing.T) {
	var stderr bytes.Buffer
	o, err := parseFlags([]string{"-preset", "orthographic_only", "-light", "1, 2, 3", "-viewer=false"}, &stderr)
	require.NoError(t, err)

	cfg, err := loadConfig(o)
	require.NoError(t, err)
	assert.Equal(t, "orthographic_only", cfg.LightKind)
	assert.Equal(t, "software", cfg.Backend)
	assert.Equal(t, [3]float32{1, 2, 3}, cfg.LightPosition)
	assert.False(t, cfg.ViewerActive)
	assert.Equal(t, 1280, cfg.WindowWidth, "window size comes from the config unless set")

	o.light = "1,2"
	_, err = loadConfig(o)
	assert.Error(t, err)

	o.light, o.preset = "", "nope"
	_, err = loadConfig(o)
	assert.Error(t, err)
}
