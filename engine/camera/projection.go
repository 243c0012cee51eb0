package camera

import (
	"errors"
	"fmt"
	"strings"
)

// Projection selects how a camera maps view space to clip space.
type Projection int

const (
	// ProjectionPerspective uses a vertical field of view and aspect ratio.
	ProjectionPerspective Projection = iota
	// ProjectionOrthographic uses a fixed box described by OrthoBounds.
	ProjectionOrthographic
)

// ErrUnknownProjection is returned by ParseProjection for unrecognised names.
var ErrUnknownProjection = errors.New("unknown projection")

func (p Projection) String() string {
	switch p {
	case ProjectionPerspective:
		return "perspective"
	case ProjectionOrthographic:
		return "orthographic"
	default:
		return fmt.Sprintf("Projection(%d)", int(p))
	}
}

// ParseProjection converts a config name ("perspective" or "orthographic") to a Projection.
//
// Parameters:
//   - name: the projection name, case-insensitive
//
// Returns:
//   - Projection: the parsed projection
//   - error: ErrUnknownProjection wrapped with the offending name
func ParseProjection(name string) (Projection, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "perspective":
		return ProjectionPerspective, nil
	case "orthographic", "ortho":
		return ProjectionOrthographic, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownProjection, name)
}

// OrthoBounds holds the view-space extents of an orthographic projection.
type OrthoBounds struct {
	Left, Right, Top, Bottom float32
}

// SymmetricBounds returns bounds of [-half, half] on both axes.
func SymmetricBounds(half float32) OrthoBounds {
	return OrthoBounds{Left: -half, Right: half, Top: half, Bottom: -half}
}

// Width returns Right - Left.
func (b OrthoBounds) Width() float32 {
	return b.Right - b.Left
}

// Height returns Top - Bottom.
func (b OrthoBounds) Height() float32 {
	return b.Top - b.Bottom
}
