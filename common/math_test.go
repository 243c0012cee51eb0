package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clipDepth(proj []float32, viewZ float32) float32 {
	c := TransformPoint(proj, 0, 0, viewZ)
	return c[2] / c[3]
}

func TestPerspectiveMapsNearFarToUnitRange(t *testing.T) {
	proj := make([]float32, 16)
	Perspective(proj, DegToRad(70), 4.0/3.0, 0.5, 50)

	assert.InDelta(t, 0.0, clipDepth(proj, -0.5), 1e-5)
	assert.InDelta(t, 1.0, clipDepth(proj, -50), 1e-5)
	assert.InDelta(t, float32(-1), proj[11], 0)
}

func TestOrthographicMapsNearFarLinearly(t *testing.T) {
	proj := make([]float32, 16)
	Orthographic(proj, -10, 10, -10, 10, 0, 10)

	assert.InDelta(t, 0.0, clipDepth(proj, 0), 1e-6)
	assert.InDelta(t, 0.5, clipDepth(proj, -5), 1e-6)
	assert.InDelta(t, 1.0, clipDepth(proj, -10), 1e-6)

	c := TransformPoint(proj, 10, -10, -3)
	assert.InDelta(t, 1.0, c[0], 1e-6)
	assert.InDelta(t, -1.0, c[1], 1e-6)
	assert.InDelta(t, 1.0, c[3], 0)
}

func TestLookAtPlacesTargetDownNegativeZ(t *testing.T) {
	view := make([]float32, 16)
	LookAt(view, V3(0, 0, 10), V3(0, 0, 0), V3(0, 1, 0))

	p := TransformPoint(view, 0, 0, 0)
	assert.InDelta(t, 0.0, p[0], 1e-6)
	assert.InDelta(t, 0.0, p[1], 1e-6)
	assert.InDelta(t, -10.0, p[2], 1e-6)

	// straight down with a parallel up vector still yields a valid basis
	LookAt(view, V3(0, 10, 0), V3(0, 0, 0), V3(0, 1, 0))
	p = TransformPoint(view, 0, 0, 0)
	assert.InDelta(t, -10.0, p[2], 1e-5)
	assert.False(t, math.IsNaN(float64(view[0])))
}

func TestInvert4RoundTrip(t *testing.T) {
	m := make([]float32, 16)
	BuildModelMatrix(m, V3(1, 2, 3), V3(0.3, 0.7, -0.2), V3(2, 2, 2))

	inv := make([]float32, 16)
	require.True(t, Invert4(inv, m))

	out := make([]float32, 16)
	Mul4(out, m, inv)
	id := make([]float32, 16)
	Identity(id)
	for i := range id {
		assert.InDelta(t, id[i], out[i], 1e-5, "element %d", i)
	}

	singular := make([]float32, 16)
	assert.False(t, Invert4(inv, singular))
}

func TestFrustumUsesZeroToOneDepth(t *testing.T) {
	proj := make([]float32, 16)
	Perspective(proj, DegToRad(90), 1, 1, 10)
	f := ExtractFrustumFromMatrix(proj)

	assert.True(t, f.ContainsPoint(V3(0, 0, -5)))
	assert.False(t, f.ContainsPoint(V3(0, 0, -0.5)))
	assert.False(t, f.ContainsPoint(V3(0, 0, -11)))
	assert.False(t, f.ContainsPoint(V3(6, 0, -5)))
	assert.True(t, f.IntersectsSphere(V3(0, 0, -0.5), 1))

	Orthographic(proj, -10, 10, -10, 10, 0, 10)
	f = ExtractFrustumFromMatrix(proj)
	assert.True(t, f.ContainsPoint(V3(0, 0, 0)))
	assert.True(t, f.ContainsPoint(V3(9, -9, -10)))
	assert.False(t, f.ContainsPoint(V3(0, 0, 1)))
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    Color
		wantErr bool
	}{
		{in: "#ffffff", want: ColorWhite},
		{in: "000", want: ColorBlack},
		{in: "#ff000080", want: Color{1, 0, 0, 128.0 / 255}},
		{in: "#12345", wantErr: true},
		{in: "#gggggg", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHexColor(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want.R, got.R, 1e-6)
			assert.InDelta(t, tt.want.G, got.G, 1e-6)
			assert.InDelta(t, tt.want.B, got.B, 1e-6)
			assert.InDelta(t, tt.want.A, got.A, 1e-6)
		})
	}
	assert.Equal(t, "#ffffff", ColorWhite.Hex())
}

func TestClampAndCoalesce(t *testing.T) {
	assert.Equal(t, float32(10), Clamp(float32(12), -10, 10))
	assert.Equal(t, float32(-10), Clamp(float32(-12), -10, 10))
	assert.Equal(t, 3, Clamp(3, 0, 5))
	assert.Equal(t, "b", Coalesce("", "b", "c"))
}
