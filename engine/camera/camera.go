package camera

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-depth/common"
)

// cameraCount is an atomic counter used to generate unique default names for each camera instance.
var cameraCount atomic.Uint64

type cameraImpl struct {
	mu *sync.Mutex

	name       string
	projection Projection
	state      ViewState

	position common.Vec3
	target   common.Vec3
	up       common.Vec3

	fov    float32
	aspect float32
	near   float32
	far    float32
	bounds OrthoBounds

	viewMatrix           [16]float32
	projectionMatrix     [16]float32
	viewProjectionMatrix [16]float32

	controller CameraController
}

// Camera defines the interface for the camera system.
// A camera is either the interactive viewer (perspective, driven by a CameraController)
// or an observer view used for depth capture (orthographic or perspective, posed directly).
// View and projection matrices are recomputed whenever a parameter changes.
type Camera interface {
	// Name returns the camera's identifier, used in logs.
	//
	// Returns:
	//   - string: the camera name
	Name() string

	// Projection returns the projection variant in use.
	//
	// Returns:
	//   - Projection: ProjectionPerspective or ProjectionOrthographic
	Projection() Projection

	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - common.Vec3: the eye position
	Position() common.Vec3

	// Target returns the world-space point the camera looks at.
	//
	// Returns:
	//   - common.Vec3: the look target
	Target() common.Vec3

	// Up returns the camera's up vector.
	//
	// Returns:
	//   - common.Vec3: the up vector
	Up() common.Vec3

	// Fov returns the vertical field of view in radians (perspective only).
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// Bounds returns the orthographic extents (orthographic only).
	//
	// Returns:
	//   - OrthoBounds: left, right, top and bottom in view space
	Bounds() OrthoBounds

	// ViewMatrix returns the current 4x4 view matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the view matrix
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the current 4x4 projection matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the projection matrix
	ProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns the current combined view-projection matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the combined view-projection matrix
	ViewProjectionMatrix() [16]float32

	// Frustum returns the world-space frustum of the current view-projection matrix.
	//
	// Returns:
	//   - common.Frustum: the six clip planes
	Frustum() common.Frustum

	// Controller returns the attached CameraController.
	// Returns nil if no controller is attached.
	//
	// Returns:
	//   - CameraController: the attached controller or nil
	Controller() CameraController

	// State returns the capture state of the view.
	//
	// Returns:
	//   - ViewState: ViewStateIdle or ViewStateCapturing
	State() ViewState

	// BeginCapture transitions the view from Idle to Capturing.
	//
	// Returns:
	//   - error: ErrAlreadyCapturing if a capture is already in progress
	BeginCapture() error

	// EndCapture returns the view to Idle. Calling it while idle is a no-op.
	EndCapture()

	// Update reads position/target from the controller and recomputes matrices.
	// Should be called once per frame. If no controller is attached, this method does nothing.
	Update()

	// SetPose places the camera directly. An attached controller overrides this on the next Update.
	//
	// Parameters:
	//   - position: eye position in world space
	//   - target: point to look at
	SetPose(position, target common.Vec3)

	// SetUp sets the camera's up vector.
	//
	// Parameters:
	//   - up: the up vector
	SetUp(up common.Vec3)

	// SetProjection switches the projection variant and recomputes matrices.
	//
	// Parameters:
	//   - p: the projection to use
	SetProjection(p Projection)

	// SetFov sets the field of view in radians and recomputes matrices.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetAspect sets the aspect ratio (width / height) and recomputes matrices.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// SetNear sets the near clipping plane distance and recomputes matrices.
	//
	// Parameters:
	//   - near: near plane distance
	SetNear(near float32)

	// SetFar sets the far clipping plane distance and recomputes matrices.
	//
	// Parameters:
	//   - far: far plane distance
	SetFar(far float32)

	// SetBounds sets the orthographic extents and recomputes matrices.
	//
	// Parameters:
	//   - b: the new bounds
	SetBounds(b OrthoBounds)

	// SetController attaches a CameraController to the camera.
	//
	// Parameters:
	//   - ctrl: the controller to attach
	SetController(ctrl CameraController)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with default perspective settings, positioned at
// (0, 0, 1) looking at the origin. Pose it with SetPose or attach a controller.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:         &sync.Mutex{},
		name:       "camera_" + strconv.FormatUint(cameraCount.Add(1)-1, 10),
		projection: ProjectionPerspective,
		position:   common.V3(0, 0, 1),
		up:         common.V3(0, 1, 0),
		fov:        common.DegToRad(45),
		aspect:     1.0,
		near:       0.1,
		far:        100.0,
		bounds:     SymmetricBounds(1),
	}
	for _, option := range options {
		option(c)
	}
	if c.controller != nil {
		c.pullPose()
	}
	c.updateMatrices()
	return c
}

// NewObserverCamera creates an orthographic camera for depth capture with symmetric bounds.
//
// Parameters:
//   - half: half extent of the orthographic box on both axes
//   - near: near plane distance (may be 0)
//   - far: far plane distance
//   - options: further functional options
//
// Returns:
//   - Camera: the newly created observer camera
func NewObserverCamera(half, near, far float32, options ...CameraBuilderOption) Camera {
	opts := append([]CameraBuilderOption{
		WithProjection(ProjectionOrthographic),
		WithBounds(SymmetricBounds(half)),
		WithNear(near),
		WithFar(far),
	}, options...)
	return NewCamera(opts...)
}

func (c *cameraImpl) Name() string {
	return c.name
}

func (c *cameraImpl) Projection() Projection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) Position() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Target() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Up() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Bounds() OrthoBounds {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bounds
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) Frustum() common.Frustum {
	c.mu.Lock()
	defer c.mu.Unlock()
	return common.ExtractFrustumFromMatrix(c.viewProjectionMatrix[:])
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *cameraImpl) BeginCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ViewStateCapturing {
		return ErrAlreadyCapturing
	}
	c.state = ViewStateCapturing
	return nil
}

func (c *cameraImpl) EndCapture() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = ViewStateIdle
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return
	}
	c.pullPose()
	c.updateMatrices()
}

func (c *cameraImpl) SetPose(position, target common.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = position
	c.target = target
	c.updateMatrices()
}

func (c *cameraImpl) SetUp(up common.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = up
	c.updateMatrices()
}

func (c *cameraImpl) SetProjection(p Projection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projection = p
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateMatrices()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) SetBounds(b OrthoBounds) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bounds = b
	c.updateMatrices()
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
}

// pullPose copies position and target from the controller. Caller must hold the mutex.
func (c *cameraImpl) pullPose() {
	c.position = c.controller.Position()
	c.target = c.controller.Target()
}

// updateMatrices recalculates the view, projection and view-projection matrices.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	common.LookAt(c.viewMatrix[:], c.position, c.target, c.up)

	switch c.projection {
	case ProjectionOrthographic:
		common.Orthographic(c.projectionMatrix[:],
			c.bounds.Left, c.bounds.Right, c.bounds.Bottom, c.bounds.Top, c.near, c.far,
		)
	default:
		common.Perspective(c.projectionMatrix[:], c.fov, c.aspect, c.near, c.far)
	}

	common.Mul4(c.viewProjectionMatrix[:], c.projectionMatrix[:], c.viewMatrix[:])
}
