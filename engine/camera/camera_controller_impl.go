package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-depth/common"
	"github.com/chewxy/math32"
)

// settleEpsilon is the magnitude below which pending motion is dropped.
const settleEpsilon = 1e-5

// cameraControllerImpl is the single implementation of CameraController.
type cameraControllerImpl struct {
	mu *sync.Mutex

	// Camera position (computed from target + spherical coords)
	position common.Vec3
	target   common.Vec3

	// initialPosition, when set by WithPosition, is converted to spherical coordinates at construction
	initialPosition *common.Vec3

	// Spherical coordinates (offset from target)
	radius    float32
	azimuth   float32 // Horizontal angle around Y axis
	elevation float32 // Vertical angle from horizontal plane

	// Pending motion applied by Update
	pendingAzimuth   float32
	pendingElevation float32
	pendingRadius    float32

	// Orbit constraints
	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	orbitSpeed       float32
	mouseSensitivity float32
	zoomSpeed        float32
	damping          float32
}

// Compile-time interface compliance check
var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a new orbit controller. Defaults place the camera 10 units
// down +Z from the origin with a damping factor of 0.05.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu: &sync.Mutex{},

		radius: 10.0,

		minRadius:    0.01,
		maxRadius:    1000.0,
		minElevation: -math32.Pi/2 + 0.01,
		maxElevation: math32.Pi/2 - 0.01,

		orbitSpeed:       0.03,
		mouseSensitivity: 0.005,
		zoomSpeed:        1.0,
		damping:          0.05,
	}

	for _, option := range options {
		option(cc)
	}

	if cc.initialPosition != nil {
		cc.setFromPosition(*cc.initialPosition)
		cc.initialPosition = nil
	}
	cc.clamp()
	cc.updatePosition()
	return cc
}

// --- internal helpers ---

// setFromPosition derives spherical coordinates from a world-space position. Caller must hold the mutex.
func (cc *cameraControllerImpl) setFromPosition(p common.Vec3) {
	offset := p.Sub(cc.target)
	cc.radius = offset.Length()
	cc.azimuth = math32.Atan2(offset.X, offset.Z)
	cc.elevation = math32.Atan2(offset.Y, math32.Sqrt(offset.X*offset.X+offset.Z*offset.Z))
}

// clamp keeps radius and elevation within bounds. Caller must hold the mutex.
func (cc *cameraControllerImpl) clamp() {
	cc.radius = common.Clamp(cc.radius, cc.minRadius, cc.maxRadius)
	cc.elevation = common.Clamp(cc.elevation, cc.minElevation, cc.maxElevation)
}

// updatePosition recomputes the camera position from spherical coordinates.
// Must be called whenever radius, azimuth, elevation, or target changes.
// Caller must hold the mutex.
func (cc *cameraControllerImpl) updatePosition() {
	cosElev, sinElev := math32.Cos(cc.elevation), math32.Sin(cc.elevation)
	cosAzim, sinAzim := math32.Cos(cc.azimuth), math32.Sin(cc.azimuth)

	cc.position = common.Vec3{
		X: cc.target.X + cc.radius*cosElev*sinAzim,
		Y: cc.target.Y + cc.radius*sinElev,
		Z: cc.target.Z + cc.radius*cosElev*cosAzim,
	}
}

func (cc *cameraControllerImpl) Position() common.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *cameraControllerImpl) Target() common.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *cameraControllerImpl) SetTarget(target common.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = target
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.pendingRadius -= delta * cc.zoomSpeed
}

func (cc *cameraControllerImpl) Rotate(dAzimuth, dElevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.pendingAzimuth += dAzimuth
	cc.pendingElevation += dElevation
}

func (cc *cameraControllerImpl) OrbitLeft() {
	cc.Rotate(-cc.orbitSpeed, 0)
}

func (cc *cameraControllerImpl) OrbitRight() {
	cc.Rotate(cc.orbitSpeed, 0)
}

func (cc *cameraControllerImpl) OrbitUp() {
	cc.Rotate(0, cc.orbitSpeed)
}

func (cc *cameraControllerImpl) OrbitDown() {
	cc.Rotate(0, -cc.orbitSpeed)
}

func (cc *cameraControllerImpl) Update() bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if cc.settled() {
		cc.pendingAzimuth, cc.pendingElevation, cc.pendingRadius = 0, 0, 0
		return false
	}

	factor := float32(1)
	if cc.damping > 0 {
		factor = cc.damping
	}

	before := cc.position
	cc.azimuth += cc.pendingAzimuth * factor
	cc.elevation += cc.pendingElevation * factor
	cc.radius += cc.pendingRadius * factor
	cc.clamp()
	cc.updatePosition()

	decay := 1 - factor
	cc.pendingAzimuth *= decay
	cc.pendingElevation *= decay
	cc.pendingRadius *= decay

	return before != cc.position
}

func (cc *cameraControllerImpl) Settled() bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.settled()
}

// settled reports whether pending motion is negligible. Caller must hold the mutex.
func (cc *cameraControllerImpl) settled() bool {
	return math32.Abs(cc.pendingAzimuth) < settleEpsilon &&
		math32.Abs(cc.pendingElevation) < settleEpsilon &&
		math32.Abs(cc.pendingRadius) < settleEpsilon
}

func (cc *cameraControllerImpl) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *cameraControllerImpl) SetRadius(radius float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = radius
	cc.clamp()
	cc.updatePosition()
}

func (cc *cameraControllerImpl) MinRadius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.minRadius
}

func (cc *cameraControllerImpl) MaxRadius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.maxRadius
}

func (cc *cameraControllerImpl) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *cameraControllerImpl) SetAzimuth(azimuth float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth = azimuth
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.elevation
}

func (cc *cameraControllerImpl) SetElevation(elevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.elevation = elevation
	cc.clamp()
	cc.updatePosition()
}

func (cc *cameraControllerImpl) MinElevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.minElevation
}

func (cc *cameraControllerImpl) MaxElevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.maxElevation
}

func (cc *cameraControllerImpl) OrbitSpeed() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.orbitSpeed
}

func (cc *cameraControllerImpl) MouseSensitivity() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.mouseSensitivity
}

func (cc *cameraControllerImpl) ZoomSpeed() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.zoomSpeed
}

func (cc *cameraControllerImpl) Damping() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.damping
}
