package scene

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-depth/common"
	"github.com/Carmen-Shannon/oxy-depth/engine/light"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSceneAddRemove(t *testing.T) {
	roof := NewSurface("roof", NewPlaneMesh(10, 10))
	s := NewScene("test", WithSurfaces(roof), WithLight(light.NewLight(light.LightKindDirectional)))

	assert.Equal(t, common.ColorWhite, s.Background())
	assert.NotNil(t, s.Light())
	require.Equal(t, 1, s.Count())

	err := s.Add(NewSurface("roof", NewPlaneMesh(1, 1)))
	assert.ErrorIs(t, err, ErrDuplicateSurface)

	require.NoError(t, s.Add(NewSurface("obstacle", NewPlaneMesh(5, 5))))
	assert.Equal(t, "obstacle", s.Surfaces()[1].Name)
	assert.Same(t, roof, s.Surface("roof"))

	s.Remove("roof")
	assert.Nil(t, s.Surface("roof"))
	assert.Equal(t, 1, s.Count())
	s.Remove("missing")
	assert.Equal(t, 1, s.Count())
}

func TestPlaneMesh(t *testing.T) {
	m := NewPlaneMesh(10, 4)
	require.Equal(t, 2, m.TriangleCount())

	center, r := m.BoundingSphere()
	assert.Equal(t, common.Vec3{}, center)
	assert.InDelta(t, common.V3(5, 2, 0).Length(), r, 1e-5)

	// first triangle winds counter-clockwise seen from +Z
	a := common.Vec3FromArray(m.Vertices[m.Indices[0]].Position)
	b := common.Vec3FromArray(m.Vertices[m.Indices[1]].Position)
	c := common.Vec3FromArray(m.Vertices[m.Indices[2]].Position)
	assert.Greater(t, b.Sub(a).Cross(c.Sub(a)).Z, float32(0))
}

func TestSphereMesh(t *testing.T) {
	m := NewSphereMesh(0.2, 16, 8)
	assert.Len(t, m.Vertices, 17*9)
	assert.Equal(t, 16*8*2-2*16, m.TriangleCount())
	for _, v := range m.Vertices {
		assert.InDelta(t, 0.2, common.Vec3FromArray(v.Position).Length(), 1e-5)
	}
}

func TestSurfaceModelMatrix(t *testing.T) {
	s := NewSurface("obstacle", NewPlaneMesh(5, 5))
	s.Position = common.V3(0, 0, 5)
	m := s.ModelMatrix()
	p := common.TransformPoint(m[:], 1, 1, 0)
	assert.InDelta(t, 5.0, p[2], 1e-6)
	assert.InDelta(t, 1.0, p[0], 1e-6)

	mat, err := ParseMaterial("composite")
	require.NoError(t, err)
	assert.Equal(t, MaterialComposite, mat)
	_, err = ParseMaterial("pbr")
	assert.ErrorIs(t, err, ErrUnknownMaterial)
}
