package light

import (
	"github.com/Carmen-Shannon/oxy-depth/common"
	"github.com/Carmen-Shannon/oxy-depth/engine/camera"
)

// LightBuilderOption is a function that configures a Light instance during construction.
type LightBuilderOption func(*lightImpl)

// WithPosition is an option builder that sets the world-space position of the light.
//
// Parameters:
//   - p: the position
//
// Returns:
//   - LightBuilderOption: a function that applies the position option to a lightImpl
func WithPosition(p common.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		l.position = p
	}
}

// WithTarget sets the point the light shines toward.
//
// Parameters:
//   - t: the shading target
//
// Returns:
//   - LightBuilderOption: a function that applies the target option to a lightImpl
func WithTarget(t common.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		l.target = t
	}
}

// WithColor is an option builder that sets the color of the light.
func WithColor(c common.Color) LightBuilderOption {
	return func(l *lightImpl) {
		l.color = c
	}
}

// WithIntensity is an option builder that sets the intensity multiplier.
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.intensity = intensity
	}
}

// WithCastsShadows toggles whether the observer is used for depth capture.
func WithCastsShadows(castsShadows bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.castsShadows = castsShadows
	}
}

// WithMarkerRadius sets the debug sphere radius. Zero hides the marker.
func WithMarkerRadius(r float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.markerRadius = r
	}
}

// WithObserverProjection selects the observer view's projection variant.
//
// Parameters:
//   - p: camera.ProjectionOrthographic or camera.ProjectionPerspective
//
// Returns:
//   - LightBuilderOption: a function that applies the projection option to a lightImpl
func WithObserverProjection(p camera.Projection) LightBuilderOption {
	return func(l *lightImpl) {
		l.observerProjection = p
	}
}

// WithObserverBounds sets the half extent of an orthographic observer.
func WithObserverBounds(half float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.observerHalf = half
	}
}

// WithObserverClip sets the observer's near and far planes.
//
// Parameters:
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - LightBuilderOption: a function that applies the clip option to a lightImpl
func WithObserverClip(near, far float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.observerNear = near
		l.observerFar = far
	}
}

// WithObserverFov sets the vertical field of view, in radians, of a perspective observer.
func WithObserverFov(fov float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.observerFov = fov
	}
}
