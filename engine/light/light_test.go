package light

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-depth/common"
	"github.com/Carmen-Shannon/oxy-depth/engine/camera"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverFollowsLight(t *testing.T) {
	l := NewLight(LightKindDirectional, WithTarget(common.V3(0, 0, 5)))
	obs := l.ObserverView()

	assert.Equal(t, common.V3(0, 10, 10), obs.Position())
	assert.Equal(t, common.V3(0, 10, 9), obs.Target())
	assert.Equal(t, camera.ProjectionOrthographic, obs.Projection())
	assert.Equal(t, DefaultObserverNear, obs.Near())
	assert.Equal(t, DefaultObserverFar, obs.Far())

	v := l.Version()
	l.SetPosition(common.V3(2, 3, 4))
	assert.Equal(t, v+1, l.Version())
	assert.Equal(t, common.V3(2, 3, 4), obs.Position())
	assert.Equal(t, common.V3(2, 3, 3), obs.Target())

	// same position is not a change
	l.SetPosition(common.V3(2, 3, 4))
	assert.Equal(t, v+1, l.Version())
}

func TestPerspectiveObserver(t *testing.T) {
	l := NewLight(LightKindDirectional,
		WithObserverProjection(camera.ProjectionPerspective),
		WithObserverClip(0.5, 20),
		WithObserverFov(common.DegToRad(60)),
	)
	obs := l.ObserverView()
	assert.Equal(t, camera.ProjectionPerspective, obs.Projection())
	assert.InDelta(t, common.DegToRad(60), obs.Fov(), 1e-6)
	assert.Equal(t, float32(0.5), obs.Near())
}

func TestOrthographicOnlyDoesNotShade(t *testing.T) {
	l := NewLight(LightKindOrthographicOnly)
	assert.Equal(t, float32(0), l.Intensity())
	assert.Equal(t, float32(0), l.MarkerRadius())
	assert.NotNil(t, l.ObserverView())
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("orthographic_only")
	require.NoError(t, err)
	assert.Equal(t, LightKindOrthographicOnly, k)

	_, err = ParseKind("spot")
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.Equal(t, "directional", LightKindDirectional.String())
}

func TestGPULightMarshal(t *testing.T) {
	l := NewLight(LightKindDirectional, WithPosition(common.V3(0, 10, 0)), WithIntensity(2))
	g := NewGPULight(l)
	buf := g.Marshal()

	require.Len(t, buf, 32)
	assert.InDelta(t, -1.0, math.Float32frombits(binary.LittleEndian.Uint32(buf[4:])), 1e-6)
	assert.Equal(t, float32(2), math.Float32frombits(binary.LittleEndian.Uint32(buf[12:])))
	assert.Contains(t, GPULightSource, "struct DirectionalLight")
}
