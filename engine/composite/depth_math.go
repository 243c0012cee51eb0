package composite

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/texture"
)

// PerspectiveDepthToViewZ inverts a perspective depth encoding. A stored depth of 0
// maps to -near and 1 maps to -far.
//
// Parameters:
//   - depth: stored depth sample in [0, 1]
//   - near: near plane distance of the view that produced the sample
//   - far: far plane distance of the view that produced the sample
//
// Returns:
//   - float32: view-space z (negative in front of the view)
func PerspectiveDepthToViewZ(depth, near, far float32) float32 {
	return (near * far) / ((far-near)*depth - far)
}

// ViewZToOrthographicDepth remaps a view-space z linearly onto [0, 1] between the clip planes.
//
// Parameters:
//   - viewZ: view-space z
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - float32: the linear depth
func ViewZToOrthographicDepth(viewZ, near, far float32) float32 {
	return (viewZ + near) / (near - far)
}

// ReadDepth samples a depth texture and returns its linearized depth. The composite
// colour path does not use it.
//
// Parameters:
//   - tex: the depth texture to sample
//   - u, v: texture coordinates with v = 0 at the bottom row
//   - near, far: the clip planes of the view that captured tex
//
// Returns:
//   - float32: linear depth in [0, 1]
//   - error: texture.ErrReleased if tex was released
func ReadDepth(tex texture.DepthTexture, u, v, near, far float32) (float32, error) {
	d, err := tex.Sample(u, v)
	if err != nil {
		return 0, fmt.Errorf("composite: read depth %q: %w", tex.Label(), err)
	}
	return ViewZToOrthographicDepth(PerspectiveDepthToViewZ(d, near, far), near, far), nil
}
