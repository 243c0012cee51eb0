package panel

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-depth/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeysToggleViewerAndNudgeLight(t *testing.T) {
	p := NewPanel(WithInitialState(true, common.V3(0, 10, 10)), WithStep(1))

	assert.True(t, p.HandleKey(common.KeyC))
	assert.True(t, p.HandleKey(common.KeyLeft))
	assert.True(t, p.HandleKey(common.KeyPageDown))
	assert.False(t, p.HandleKey(common.KeySpace))
	assert.True(t, p.ViewerActive(), "nothing applies before Drain")

	changes := p.Drain()
	assert.True(t, changes.ViewerChanged)
	assert.True(t, changes.LightMoved)
	assert.False(t, p.ViewerActive())
	assert.Equal(t, common.V3(-1, 10, 9), p.Light())

	assert.False(t, p.Drain().Any())
}

func TestLightIsClamped(t *testing.T) {
	p := NewPanel(WithInitialState(true, common.V3(0, 25, -30)))
	assert.Equal(t, common.V3(0, 10, -10), p.Light())

	far := common.V3(100, -100, 3)
	p.Post(Update{Light: &far})
	p.Drain()
	assert.Equal(t, common.V3(10, -10, 3), p.Light())

	p.HandleKey(common.KeyRight)
	changes := p.Drain()
	assert.False(t, changes.LightMoved, "pushing past the limit is not a move")
	assert.Equal(t, float32(10), p.Light().X)
}

func TestDoubleToggleReportsChangeAndRestores(t *testing.T) {
	p := NewPanel()
	p.HandleKey(common.KeyC)
	p.HandleKey(common.KeyC)
	changes := p.Drain()
	assert.True(t, changes.ViewerChanged, "each update is compared on its own")
	assert.True(t, p.ViewerActive())
}

func TestWatchReloadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "panel.toml")
	require.NoError(t, os.WriteFile(path, []byte("viewer_active = false\n"), 0o644))

	p := NewPanel()
	t.Cleanup(func() { assert.NoError(t, p.Close()) })
	require.NoError(t, p.Watch(path))

	p.Drain()
	assert.False(t, p.ViewerActive(), "the file is read once when watching starts")

	require.NoError(t, os.WriteFile(path, []byte("viewer_active = true\nlight = [1.0, 2.0, 30.0]\n"), 0o644))
	require.Eventually(t, func() bool {
		p.Drain()
		return p.Light() == common.V3(1, 2, 10)
	}, 5*time.Second, 10*time.Millisecond)
	assert.True(t, p.ViewerActive())
}

func TestWatchIgnoresBadFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "panel.toml")
	require.NoError(t, os.WriteFile(path, []byte("light = \"up\"\n"), 0o644))

	p := NewPanel(WithInitialState(true, common.V3(1, 1, 1)))
	require.NoError(t, p.Watch(path))
	assert.False(t, p.Drain().Any())
	assert.Equal(t, common.V3(1, 1, 1), p.Light())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Watch(path), ErrClosed)
}
