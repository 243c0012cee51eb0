package light

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-depth/common"
	"github.com/Carmen-Shannon/oxy-depth/engine/camera"
)

// LightKind identifies how the depth observer is hosted.
type LightKind int

const (
	// LightKindDirectional is a shadow-casting directional light that shades standard
	// surfaces and carries its observer view as a child.
	LightKindDirectional LightKind = iota

	// LightKindOrthographicOnly hosts the observer view without contributing any lighting.
	LightKindOrthographicOnly
)

// ErrUnknownKind is returned by ParseKind for unrecognised names.
var ErrUnknownKind = errors.New("unknown light kind")

func (k LightKind) String() string {
	switch k {
	case LightKindDirectional:
		return "directional"
	case LightKindOrthographicOnly:
		return "orthographic_only"
	default:
		return fmt.Sprintf("LightKind(%d)", int(k))
	}
}

// ParseKind converts a config name to a LightKind.
func ParseKind(name string) (LightKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "directional":
		return LightKindDirectional, nil
	case "orthographic_only", "orthographic":
		return LightKindOrthographicOnly, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	mu *sync.Mutex

	kind         LightKind
	position     common.Vec3
	target       common.Vec3
	color        common.Color
	intensity    float32
	castsShadows bool
	markerRadius float32
	version      uint64

	observerProjection camera.Projection
	observerHalf       float32
	observerNear       float32
	observerFar        float32
	observerFov        float32
	observer           camera.Camera
}

// Light defines the interface for the single shadow-casting light of a scene.
//
// The light owns an observer view: a camera attached to the light that looks down
// the light's local -Z axis. Moving the light moves the observer with it, so a
// depth capture always sees the scene from where the light currently is.
type Light interface {
	// Kind returns whether the light shades surfaces or only hosts the observer.
	//
	// Returns:
	//   - LightKind: the light kind
	Kind() LightKind

	// Position returns the world-space position of the light.
	//
	// Returns:
	//   - common.Vec3: position as (x, y, z)
	Position() common.Vec3

	// Target returns the point the light shines toward, used for shading.
	//
	// Returns:
	//   - common.Vec3: world-space target
	Target() common.Vec3

	// Direction returns the normalized direction from position toward target.
	//
	// Returns:
	//   - common.Vec3: unit direction
	Direction() common.Vec3

	// Color returns the RGB color of the light.
	Color() common.Color

	// Intensity returns the scalar intensity multiplier for the light.
	Intensity() float32

	// CastsShadows returns whether the light's observer is used for depth capture.
	CastsShadows() bool

	// MarkerRadius returns the radius of the debug sphere drawn at the light position.
	// Zero means no marker.
	MarkerRadius() float32

	// Version increases every time the light's position changes.
	//
	// Returns:
	//   - uint64: a monotonically increasing change counter
	Version() uint64

	// ObserverView returns the camera attached to this light.
	//
	// Returns:
	//   - camera.Camera: the observer view, posed at the light looking down local -Z
	ObserverView() camera.Camera

	// SetPosition moves the light and its observer view.
	//
	// Parameters:
	//   - p: new world-space position
	SetPosition(p common.Vec3)

	// SetTarget changes the shading target. The observer orientation is unaffected.
	//
	// Parameters:
	//   - t: new world-space target
	SetTarget(t common.Vec3)

	SetColor(c common.Color)
	SetIntensity(intensity float32)
}

var _ Light = &lightImpl{}

// NewLight creates a new Light of the specified kind with its observer view.
// Defaults follow the reference scene: position (0, 10, 10), an orthographic
// observer with half extent 10, near 0 and far 10.
//
// Parameters:
//   - kind: the kind of light to create
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(kind LightKind, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		mu:                 &sync.Mutex{},
		kind:               kind,
		position:           common.V3(0, 10, 10),
		color:              common.ColorWhite,
		intensity:          1.0,
		castsShadows:       true,
		markerRadius:       DefaultMarkerRadius,
		observerProjection: camera.ProjectionOrthographic,
		observerHalf:       DefaultObserverHalfExtent,
		observerNear:       DefaultObserverNear,
		observerFar:        DefaultObserverFar,
		observerFov:        common.DegToRad(DefaultObserverFovDegrees),
	}
	for _, opt := range opts {
		opt(l)
	}
	if kind == LightKindOrthographicOnly {
		l.markerRadius = 0
	}

	l.observer = camera.NewCamera(
		camera.WithName("observer_"+kind.String()),
		camera.WithProjection(l.observerProjection),
		camera.WithBounds(camera.SymmetricBounds(l.observerHalf)),
		camera.WithFov(l.observerFov),
		camera.WithAspect(1),
		camera.WithNear(l.observerNear),
		camera.WithFar(l.observerFar),
		camera.WithPose(l.position, observerTarget(l.position)),
	)
	return l
}

// observerTarget returns the look target of a child camera at p with no local rotation.
func observerTarget(p common.Vec3) common.Vec3 {
	return p.Sub(common.V3(0, 0, 1))
}

func (l *lightImpl) Kind() LightKind {
	return l.kind
}

func (l *lightImpl) Position() common.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.position
}

func (l *lightImpl) Target() common.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.target
}

func (l *lightImpl) Direction() common.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.target.Sub(l.position).Normalize()
}

func (l *lightImpl) Color() common.Color {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.kind == LightKindOrthographicOnly {
		return 0
	}
	return l.intensity
}

func (l *lightImpl) CastsShadows() bool {
	return l.castsShadows
}

func (l *lightImpl) MarkerRadius() float32 {
	return l.markerRadius
}

func (l *lightImpl) Version() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version
}

func (l *lightImpl) ObserverView() camera.Camera {
	return l.observer
}

func (l *lightImpl) SetPosition(p common.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p == l.position {
		return
	}
	l.position = p
	l.version++
	l.observer.SetPose(p, observerTarget(p))
}

func (l *lightImpl) SetTarget(t common.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.target = t
}

func (l *lightImpl) SetColor(c common.Color) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = c
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.intensity = intensity
}
