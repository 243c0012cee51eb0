package capture

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-depth/common"
	"github.com/Carmen-Shannon/oxy-depth/engine/camera"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-depth/engine/scene"
	"github.com/Carmen-Shannon/oxy-depth/engine/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCapturer(t *testing.T, opts ...renderer.RendererBuilderOption) (Capturer, renderer.Renderer) {
	t.Helper()
	win := window.NewWindow(window.WithHeadless(), window.WithSize(640, 480))
	r := renderer.NewRenderer(renderer.BackendTypeSoftware, win, append([]renderer.RendererBuilderOption{renderer.WithWorkers(2)}, opts...)...)
	c := NewCapturer(r)
	t.Cleanup(func() {
		assert.NoError(t, c.ReleaseSnapshots())
		assert.NoError(t, c.Release())
		r.Release()
	})
	return c, r
}

func planeAt(z float32) scene.Scene {
	surf := scene.NewSurface("roof", scene.NewPlaneMesh(40, 40))
	surf.Position = common.V3(0, 0, z)
	surf.DoubleSided = true
	return scene.NewScene("test", scene.WithSurfaces(surf))
}

func centerDepth(t *testing.T, tex texture.DepthTexture) float32 {
	t.Helper()
	d, err := tex.Sample(0.5, 0.5)
	require.NoError(t, err)
	return d
}

func TestCaptureMatchesAnalyticDepth(t *testing.T) {
	const near, far float32 = 0.5, 10
	cases := []struct {
		name     string
		observer camera.Camera
		want     func(dist float32) float32
	}{
		{
			name:     "orthographic",
			observer: camera.NewObserverCamera(10, near, far, camera.WithPose(common.V3(0, 0, 10), common.V3(0, 0, 0))),
			want:     func(dist float32) float32 { return (dist - near) / (far - near) },
		},
		{
			name: "perspective",
			observer: camera.NewCamera(
				camera.WithFov(common.DegToRad(50)),
				camera.WithNear(near),
				camera.WithFar(far),
				camera.WithPose(common.V3(0, 0, 10), common.V3(0, 0, 0)),
			),
			want: func(dist float32) float32 { return far * (dist - near) / (dist * (far - near)) },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestCapturer(t)
			_, err := c.Allocate(48, 32, texture.DepthFormatDepth, texture.DepthTypeFloat)
			require.NoError(t, err)

			for _, z := range []float32{0, 4, 7.5} {
				snap, err := c.CaptureDepth(planeAt(z), tc.observer)
				require.NoError(t, err)

				want := tc.want(10 - z)
				pixels, err := snap.Pixels()
				require.NoError(t, err)
				for _, d := range pixels {
					require.InDelta(t, want, d, 1e-4, "plane at z=%v", z)
				}
			}
		})
	}
}

func TestUnsignedShortCaptureIsQuantized(t *testing.T) {
	c, _ := newTestCapturer(t)
	_, err := c.Allocate(16, 16, texture.DepthFormatDepth, texture.DepthTypeUnsignedShort)
	require.NoError(t, err)

	observer := camera.NewObserverCamera(10, 0, 10, camera.WithPose(common.V3(0, 0, 10), common.V3(0, 0, 0)))
	snap, err := c.CaptureDepth(planeAt(3), observer)
	require.NoError(t, err)

	d := centerDepth(t, snap)
	assert.InDelta(t, 0.7, d, 1e-4)
	assert.Equal(t, texture.DepthTypeUnsignedShort.Quantize(d), d)
}

func TestAllocateReleasesPreviousTarget(t *testing.T) {
	c, _ := newTestCapturer(t)
	first, err := c.Allocate(16, 16, texture.DepthFormatDepth, texture.DepthTypeUnsignedShort)
	require.NoError(t, err)

	second, err := c.Allocate(32, 32, texture.DepthFormatDepth, texture.DepthTypeUnsignedShort)
	require.NoError(t, err)

	assert.True(t, first.Released())
	assert.False(t, second.Released())
	assert.Same(t, second, c.Target())
}

func TestAllocateRejectsStencil(t *testing.T) {
	c, _ := newTestCapturer(t)
	old, err := c.Allocate(16, 16, texture.DepthFormatDepth, texture.DepthTypeUnsignedShort)
	require.NoError(t, err)

	_, err = c.Allocate(16, 16, texture.DepthFormatDepthStencil, texture.DepthTypeUnsignedShort)
	assert.ErrorIs(t, err, renderer.ErrStencilUnsupported)
	assert.True(t, old.Released(), "the old target is released before the new one is validated")
	assert.Nil(t, c.Target())
}

func TestAllocateWithoutDepthTextures(t *testing.T) {
	c, _ := newTestCapturer(t, renderer.WithDepthTextureSupport(false))
	_, err := c.Allocate(16, 16, texture.DepthFormatDepth, texture.DepthTypeUnsignedShort)
	assert.ErrorIs(t, err, renderer.ErrDepthTextureUnsupported)
}

func TestSnapshotsAreIndependent(t *testing.T) {
	c, r := newTestCapturer(t)
	_, err := c.Allocate(16, 16, texture.DepthFormatDepth, texture.DepthTypeFloat)
	require.NoError(t, err)
	observer := camera.NewObserverCamera(10, 0, 10, camera.WithPose(common.V3(0, 0, 10), common.V3(0, 0, 0)))

	first, err := c.CaptureDepth(planeAt(2), observer)
	require.NoError(t, err)
	second, err := c.CaptureDepth(planeAt(5), observer)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID(), second.ID())
	assert.InDelta(t, 0.8, centerDepth(t, first), 1e-4)
	assert.InDelta(t, 0.5, centerDepth(t, second), 1e-4)

	require.NoError(t, c.Release())
	require.NoError(t, c.Release(), "double release is a no-op")
	assert.InDelta(t, 0.8, centerDepth(t, first), 1e-4, "snapshots outlive the target")
	assert.Len(t, c.Snapshots(), 2)

	require.NoError(t, c.ReleaseSnapshot(first))
	assert.ErrorIs(t, c.ReleaseSnapshot(first), ErrUnknownSnapshot)
	_, err = first.At(0, 0)
	assert.ErrorIs(t, err, texture.ErrReleased)
	assert.Equal(t, []texture.DepthTexture{second}, c.Snapshots())

	_, err = c.CaptureDepth(planeAt(0), observer)
	assert.ErrorIs(t, err, ErrNoTarget)
	assert.Nil(t, r.RenderTarget())
}

func TestCaptureRestoresScreenAndObserverState(t *testing.T) {
	c, r := newTestCapturer(t)
	_, err := c.Allocate(16, 16, texture.DepthFormatDepth, texture.DepthTypeFloat)
	require.NoError(t, err)
	observer := camera.NewObserverCamera(10, 0, 10, camera.WithPose(common.V3(0, 0, 10), common.V3(0, 0, 0)))

	_, err = c.CaptureDepth(planeAt(0), observer)
	require.NoError(t, err)
	assert.Nil(t, r.RenderTarget())
	assert.Equal(t, camera.ViewStateIdle, observer.State())

	require.NoError(t, observer.BeginCapture())
	_, err = c.CaptureDepth(planeAt(0), observer)
	assert.ErrorIs(t, err, camera.ErrAlreadyCapturing)
	observer.EndCapture()
}
