package scene

import (
	"github.com/Carmen-Shannon/oxy-depth/common"
	"github.com/Carmen-Shannon/oxy-depth/engine/light"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithBackground sets the clear color of the final frame.
//
// Parameters:
//   - c: the background color
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithBackground(c common.Color) SceneBuilderOption {
	return func(s *scene) {
		s.background = c
	}
}

// WithLight attaches the scene's light.
//
// Parameters:
//   - l: the light
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLight(l light.Light) SceneBuilderOption {
	return func(s *scene) {
		s.light = l
	}
}

// WithSurfaces adds initial surfaces to the scene. Surfaces whose name is already
// taken are skipped.
//
// Parameters:
//   - surfaces: the surfaces to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithSurfaces(surfaces ...*Surface) SceneBuilderOption {
	return func(s *scene) {
		for _, surf := range surfaces {
			_ = s.add(surf)
		}
	}
}
