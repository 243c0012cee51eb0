package engine

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-depth/common"
	"github.com/Carmen-Shannon/oxy-depth/engine/app"
	"github.com/Carmen-Shannon/oxy-depth/engine/config"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-depth/engine/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHeadless(t *testing.T, frames int, opts ...app.ContextBuilderOption) (window.Window, app.Context) {
	t.Helper()
	win := window.NewWindow(
		window.WithHeadless(),
		window.WithSize(48, 32),
		window.WithSizeLimits(1, 1, 4096, 4096),
		window.WithFrameLimit(frames),
	)
	cfg := config.Default().Apply(config.WithBackend("software"), config.WithSoftwareWorkers(2))
	ctx, err := app.NewContext(cfg, win, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctx.Close() })
	return win, ctx
}

func TestRunDrawsUntilFrameLimit(t *testing.T) {
	win, ctx := newHeadless(t, 4)
	calls := 0
	e := NewEngine(win, ctx, WithProfiling(true), WithFrameCallback(func(float32) { calls++ }))

	require.NoError(t, e.Run())
	assert.Equal(t, uint64(4), ctx.Frames())
	assert.Equal(t, 4, calls)
	assert.False(t, win.IsRunning())
}

func TestRunDisabledSchedulesNothing(t *testing.T) {
	win, ctx := newHeadless(t, 4, app.WithRendererOptions(renderer.WithDepthTextureSupport(false)))
	calls := 0
	e := NewEngine(win, ctx, WithFrameCallback(func(float32) { calls++ }))

	assert.ErrorIs(t, e.Run(), ErrDisabled)
	assert.Zero(t, ctx.Frames())
	assert.Zero(t, calls)
}

func TestInputIsRoutedToContext(t *testing.T) {
	win, ctx := newHeadless(t, 0)
	inj, ok := window.Inject(win)
	require.True(t, ok)

	e := NewEngine(win, ctx)
	e.SetFrameCallback(func(float32) {
		if ctx.Frames() == 1 {
			inj.Resize(96, 32)
			inj.KeyDown(common.KeyC)
		}
		if ctx.Frames() == 2 {
			inj.KeyDown(common.KeyEsc)
		}
	})

	require.NoError(t, e.Run())
	assert.Equal(t, uint64(2), ctx.Frames(), "escape closes the window")
	assert.InDelta(t, 3.0, ctx.Viewer().Aspect(), 1e-6)
	assert.Equal(t, 96, ctx.Renderer().Width())
	assert.False(t, ctx.ViewerActive())
}

func TestFrameErrorStopsLoop(t *testing.T) {
	win, ctx := newHeadless(t, 0)
	e := NewEngine(win, ctx)
	e.SetFrameCallback(func(float32) {
		// Releasing the captures makes the next composite draw fail.
		_ = ctx.Capturer().ReleaseSnapshots()
	})

	err := e.Run()
	require.Error(t, err)
	assert.Equal(t, uint64(1), ctx.Frames())
	assert.ErrorIs(t, err, texture.ErrReleased)
}

func TestFrameDuration(t *testing.T) {
	assert.Zero(t, frameDuration(0))
	assert.Zero(t, frameDuration(-1))
	assert.Equal(t, int64(16666666), int64(frameDuration(60)))
}
