package app

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-depth/common"
	"github.com/Carmen-Shannon/oxy-depth/engine/config"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer"
	"github.com/Carmen-Shannon/oxy-depth/engine/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T, width, height int, cfg config.Config, opts ...ContextBuilderOption) Context {
	t.Helper()
	win := window.NewWindow(window.WithHeadless(), window.WithSize(width, height), window.WithSizeLimits(1, 1, 4096, 4096))
	cfg = cfg.Apply(config.WithBackend("software"), config.WithSoftwareWorkers(2))
	ctx, err := NewContext(cfg, win, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx
}

func TestNewContextCapturesReferenceScene(t *testing.T) {
	ctx := newTestContext(t, 80, 60, config.Default())
	require.Equal(t, StateReady, ctx.State())
	assert.Empty(t, ctx.Message())

	require.Equal(t, 1, ctx.Registry().Len())
	assert.True(t, ctx.Registry().Frozen())
	assert.Equal(t, 1, ctx.Stage().Count())
	assert.Equal(t, float32(0), ctx.Stage().Near())
	assert.Equal(t, float32(10), ctx.Stage().Far())
	assert.NotNil(t, ctx.Scene().Surface(MarkerSurface))
	assert.False(t, ctx.Scene().Surface(MarkerSurface).CastsDepth)

	tex, err := ctx.Registry().At(0)
	require.NoError(t, err)
	assert.Equal(t, 80, tex.Width(), "capture size follows the window at startup")

	// The observer looks down -Z from (0, 10, 10): the obstacle is 5 units away.
	d, err := tex.Sample(0.5, 0.05)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, d, 1e-4)

	d, err = tex.Sample(0.5, 0.45)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, d, 1e-4, "nothing above the roof")
}

func TestResizeUpdatesViewerAspectOnly(t *testing.T) {
	ctx := newTestContext(t, 800, 600, config.Default())
	target := ctx.Capturer().Target()
	require.NotNil(t, target)

	ctx.Resize(1920, 1080)

	assert.InDelta(t, 1920.0/1080.0, ctx.Viewer().Aspect(), 1e-6)
	assert.Equal(t, 1920, ctx.Renderer().Width())
	assert.Equal(t, 1080, ctx.Renderer().Height())
	assert.Same(t, target, ctx.Capturer().Target())
	assert.Equal(t, 800, target.Width())
	assert.Equal(t, 600, target.Height())
}

func TestViewerToggleSelectsFrameCamera(t *testing.T) {
	ctx := newTestContext(t, 64, 48, config.Default())
	r := ctx.Renderer()
	require.True(t, ctx.ViewerActive())
	assert.Same(t, ctx.Viewer(), ctx.ActiveCamera())

	ctx.ToggleViewer()
	require.False(t, ctx.ViewerActive())
	observer := ctx.Light().ObserverView()
	assert.Same(t, observer, ctx.ActiveCamera())

	require.NoError(t, ctx.Frame())
	got, err := r.ReadFrame()
	require.NoError(t, err)
	require.NoError(t, r.Render(ctx.Scene(), observer))
	want, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, want.Pix, got.Pix, "frame drawn with the observer projection")

	ctx.ToggleViewer()
	require.NoError(t, ctx.Frame())
	got, err = r.ReadFrame()
	require.NoError(t, err)
	require.NoError(t, r.Render(ctx.Scene(), ctx.Viewer()))
	want, err = r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, want.Pix, got.Pix, "frame drawn with the viewer projection")
	assert.Equal(t, uint64(2), ctx.Frames())
}

func TestDisabledWithoutDepthTextures(t *testing.T) {
	ctx := newTestContext(t, 64, 48, config.Default(),
		WithRendererOptions(renderer.WithDepthTextureSupport(false)))

	assert.Equal(t, StateDisabled, ctx.State())
	assert.Equal(t, DisabledMessage, ctx.Message())
	assert.Nil(t, ctx.Stage())
	assert.Nil(t, ctx.Capturer())

	require.NoError(t, ctx.Frame())
	assert.Zero(t, ctx.Frames())
	_, err := ctx.Renderer().ReadFrame()
	assert.ErrorIs(t, err, renderer.ErrFrameUnavailable, "no frame is ever drawn")
	assert.ErrorIs(t, ctx.Recapture(), ErrDisabled)
	assert.ErrorIs(t, ctx.Rebuild(2), ErrDisabled)
}

func TestStencilFormatIsRejected(t *testing.T) {
	win := window.NewWindow(window.WithHeadless(), window.WithSize(32, 32), window.WithSizeLimits(1, 1, 4096, 4096))
	cfg := config.Default().Apply(config.WithBackend("software"))
	cfg.DepthFormat = "depth_stencil"

	_, err := NewContext(cfg, win)
	assert.ErrorIs(t, err, renderer.ErrStencilUnsupported)
}

func TestRecaptureOnLightMove(t *testing.T) {
	cfg := config.Default().Apply(config.WithRecaptureOnLightMove(true))
	ctx := newTestContext(t, 64, 48, cfg)

	before, err := ctx.Registry().At(0)
	require.NoError(t, err)
	generation := ctx.Stage().Generation()

	ctx.MoveLight(common.V3(0, 10, 7.5))
	assert.Equal(t, common.V3(0, 10, 7.5), ctx.Scene().Surface(MarkerSurface).Position)
	require.NoError(t, ctx.Frame())

	require.Equal(t, 1, ctx.Registry().Len())
	after, err := ctx.Registry().At(0)
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.True(t, before.Released(), "replaced captures are freed")
	assert.Greater(t, ctx.Stage().Generation(), generation)

	d, err := after.Sample(0.5, 0.05)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, d, 1e-4)
}

func TestLightMoveWithoutRecaptureKeepsCapture(t *testing.T) {
	ctx := newTestContext(t, 64, 48, config.Default())
	before, err := ctx.Registry().At(0)
	require.NoError(t, err)

	ctx.MoveLight(common.V3(0, 10, 7.5))
	require.NoError(t, ctx.Frame())

	after, err := ctx.Registry().At(0)
	require.NoError(t, err)
	assert.Same(t, before, after)
	assert.False(t, before.Released())
}

func TestRebuildChangesCount(t *testing.T) {
	ctx := newTestContext(t, 32, 24, config.Default())
	old, err := ctx.Registry().At(0)
	require.NoError(t, err)

	require.NoError(t, ctx.Rebuild(3))
	assert.Equal(t, 3, ctx.Registry().Len())
	assert.Equal(t, 3, ctx.Stage().Count())
	assert.Equal(t, 3, ctx.Config().CaptureCount)
	assert.Same(t, ctx.Stage(), ctx.Renderer().CompositeProgram())
	assert.True(t, old.Released())
	require.NoError(t, ctx.Frame())

	assert.Error(t, ctx.Rebuild(0))
	assert.Equal(t, 3, ctx.Registry().Len(), "a failed rebuild keeps the current stage")
}

func TestHandleKeyWithoutPanel(t *testing.T) {
	ctx := newTestContext(t, 32, 24, config.Default())
	assert.True(t, ctx.HandleKey(common.KeyC))
	assert.False(t, ctx.ViewerActive())
	assert.False(t, ctx.HandleKey(common.KeySpace))
}

func TestPanelDrivesViewerAndLight(t *testing.T) {
	preset, err := config.Preset("directional")
	require.NoError(t, err)
	ctx := newTestContext(t, 32, 24, preset)
	require.NotNil(t, ctx.Panel())

	require.True(t, ctx.HandleKey(common.KeyC))
	assert.True(t, ctx.ViewerActive(), "panel updates apply on the next frame")
	require.True(t, ctx.HandleKey(common.KeyUp))

	require.NoError(t, ctx.Frame())
	assert.False(t, ctx.ViewerActive())
	assert.Equal(t, common.V3(0, 10, 10), ctx.Light().Position(), "sliders clamp y to 10")

	require.True(t, ctx.HandleKey(common.KeyDown))
	require.NoError(t, ctx.Frame())
	assert.Equal(t, common.V3(0, 9.5, 10), ctx.Light().Position())
}

func TestOrthographicOnlyHasNoMarker(t *testing.T) {
	preset, err := config.Preset("orthographic_only")
	require.NoError(t, err)
	ctx := newTestContext(t, 32, 24, preset)
	assert.Nil(t, ctx.Scene().Surface(MarkerSurface))
	assert.Nil(t, ctx.Panel())
}
