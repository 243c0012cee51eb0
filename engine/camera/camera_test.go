package camera

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-depth/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverCameraOrthographicDepth(t *testing.T) {
	obs := NewObserverCamera(10, 0, 10, WithPose(common.V3(0, 10, 10), common.V3(0, 10, 9)))

	assert.Equal(t, ProjectionOrthographic, obs.Projection())
	assert.Equal(t, float32(0), obs.Near())
	assert.Equal(t, float32(10), obs.Far())
	assert.Equal(t, OrthoBounds{Left: -10, Right: 10, Top: 10, Bottom: -10}, obs.Bounds())

	vp := obs.ViewProjectionMatrix()
	// 5 units in front of the observer lands halfway through the depth range
	c := common.TransformPoint(vp[:], 0, 10, 5)
	assert.InDelta(t, 0.5, c[2]/c[3], 1e-6)
}

func TestPerspectiveCameraFollowsController(t *testing.T) {
	ctrl := NewCameraController(WithPosition(common.V3(0, 0, 10)), WithDamping(0))
	cam := NewCamera(
		WithFov(common.DegToRad(70)),
		WithAspect(800.0/600.0),
		WithNear(0.01),
		WithFar(50),
		WithController(ctrl),
	)

	assert.InDelta(t, 10.0, cam.Position().Z, 1e-5)
	assert.InDelta(t, 0.0, cam.Position().Y, 1e-5)

	cam.SetAspect(1920.0 / 1080.0)
	assert.InDelta(t, 1920.0/1080.0, cam.Aspect(), 1e-6)

	ctrl.OrbitRight()
	require.True(t, ctrl.Update())
	cam.Update()
	assert.NotEqual(t, float32(0), cam.Position().X)
	assert.InDelta(t, 10.0, cam.Position().Length(), 1e-4)
}

func TestCaptureStateMachine(t *testing.T) {
	cam := NewCamera()
	assert.Equal(t, ViewStateIdle, cam.State())

	require.NoError(t, cam.BeginCapture())
	assert.Equal(t, ViewStateCapturing, cam.State())
	assert.True(t, errors.Is(cam.BeginCapture(), ErrAlreadyCapturing))

	cam.EndCapture()
	assert.Equal(t, ViewStateIdle, cam.State())
	cam.EndCapture()
	assert.Equal(t, ViewStateIdle, cam.State())
}

func TestParseProjection(t *testing.T) {
	p, err := ParseProjection("Orthographic")
	require.NoError(t, err)
	assert.Equal(t, ProjectionOrthographic, p)

	p, err = ParseProjection("perspective")
	require.NoError(t, err)
	assert.Equal(t, ProjectionPerspective, p)

	_, err = ParseProjection("fisheye")
	assert.ErrorIs(t, err, ErrUnknownProjection)
}

func TestControllerDampingEasesOut(t *testing.T) {
	ctrl := NewCameraController(WithPosition(common.V3(0, 0, 10)), WithDamping(0.5))
	ctrl.Rotate(1, 0)

	require.True(t, ctrl.Update())
	assert.InDelta(t, 0.5, ctrl.Azimuth(), 1e-6)
	require.True(t, ctrl.Update())
	assert.InDelta(t, 0.75, ctrl.Azimuth(), 1e-6)

	for i := 0; i < 40 && !ctrl.Settled(); i++ {
		ctrl.Update()
	}
	assert.True(t, ctrl.Settled())
	assert.InDelta(t, 1.0, ctrl.Azimuth(), 1e-4)
	assert.False(t, ctrl.Update())
}

func TestControllerClampsElevationAndRadius(t *testing.T) {
	ctrl := NewCameraController(WithDamping(0), WithRadiusBounds(1, 20))

	ctrl.SetElevation(10)
	assert.Equal(t, ctrl.MaxElevation(), ctrl.Elevation())

	ctrl.Zoom(100)
	ctrl.Update()
	assert.Equal(t, float32(1), ctrl.Radius())

	ctrl.SetRadius(500)
	assert.Equal(t, float32(20), ctrl.Radius())
}

func TestGPUCameraUniformMarshal(t *testing.T) {
	obs := NewObserverCamera(10, 0, 10)
	u := NewGPUCameraUniform(obs)
	buf := u.Marshal()

	assert.Equal(t, 96, u.Size())
	assert.Len(t, buf, 96)
	assert.Equal(t, uint32(1), u.Orthographic)
	assert.Equal(t, byte(1), buf[84])
	assert.Contains(t, GPUCameraUniformSource, "struct CameraUniform")
}
