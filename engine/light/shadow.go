package light

// DefaultObserverHalfExtent is the default orthographic half-extent (in world units)
// of the observer view. The box spans [-10, 10] on both axes.
const DefaultObserverHalfExtent float32 = 10.0

// DefaultObserverNear is the default near plane of the observer view.
const DefaultObserverNear float32 = 0.0

// DefaultObserverFar is the default far plane of the observer view.
const DefaultObserverFar float32 = 10.0

// DefaultObserverFovDegrees is the vertical field of view used when the observer is perspective.
const DefaultObserverFovDegrees float32 = 90.0

// DefaultMarkerRadius is the radius of the sphere drawn at a directional light's position.
const DefaultMarkerRadius float32 = 0.2
