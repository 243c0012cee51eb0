package camera

import "github.com/Carmen-Shannon/oxy-depth/common"

// CameraController defines orbit controls for the viewer camera.
// Controllers own positional state (position, target) in spherical coordinates
// (radius, azimuth, elevation) around the target. Input calls accumulate pending
// motion; Update applies it, easing it out over several frames when damping is enabled.
type CameraController interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - common.Vec3: world-space camera position
	Position() common.Vec3

	// Target returns the look-at point.
	//
	// Returns:
	//   - common.Vec3: world-space target position
	Target() common.Vec3

	// SetTarget sets the look-at/pivot point and recomputes position from spherical coordinates.
	//
	// Parameters:
	//   - target: world-space coordinates
	SetTarget(target common.Vec3)

	// Zoom queues a change of orbit radius. Positive delta zooms in (closer to target).
	//
	// Parameters:
	//   - delta: zoom amount scaled by ZoomSpeed
	Zoom(delta float32)

	// Rotate queues an orbit by the given angles, typically from a mouse drag.
	//
	// Parameters:
	//   - dAzimuth: horizontal angle in radians
	//   - dElevation: vertical angle in radians
	Rotate(dAzimuth, dElevation float32)

	// OrbitLeft queues a left rotation around the target by one orbit speed step.
	OrbitLeft()

	// OrbitRight queues a right rotation around the target by one orbit speed step.
	OrbitRight()

	// OrbitUp queues an upward tilt by one orbit speed step, clamped to max elevation.
	OrbitUp()

	// OrbitDown queues a downward tilt by one orbit speed step, clamped to min elevation.
	OrbitDown()

	// Update applies pending motion. With damping d in (0, 1], a fraction d of the
	// pending motion is applied and the remainder decays by (1 - d). With damping 0
	// all pending motion is applied at once.
	//
	// Returns:
	//   - bool: true if the position changed
	Update() bool

	// Settled reports whether no motion is pending.
	Settled() bool

	Radius() float32

	// SetRadius sets the orbit radius directly, clamped to min/max bounds.
	//
	// Parameters:
	//   - radius: new distance from target
	SetRadius(radius float32)

	MinRadius() float32
	MaxRadius() float32

	// Azimuth returns the current horizontal angle around the Y axis, 0 on the +Z axis.
	//
	// Returns:
	//   - float32: azimuth in radians
	Azimuth() float32

	// SetAzimuth sets the horizontal angle directly and recomputes position.
	//
	// Parameters:
	//   - azimuth: new horizontal angle in radians
	SetAzimuth(azimuth float32)

	// Elevation returns the current vertical angle from the horizontal plane.
	//
	// Returns:
	//   - float32: elevation in radians
	Elevation() float32

	// SetElevation sets the vertical angle directly, clamped to min/max bounds.
	//
	// Parameters:
	//   - elevation: new vertical angle in radians
	SetElevation(elevation float32)

	MinElevation() float32
	MaxElevation() float32
	OrbitSpeed() float32
	MouseSensitivity() float32
	ZoomSpeed() float32
	Damping() float32
}
