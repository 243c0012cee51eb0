package scene

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-depth/common"
)

// Material selects how a surface is shaded in the final frame.
type Material int

const (
	// MaterialStandard is lambert-shaded by the scene's directional light.
	MaterialStandard Material = iota
	// MaterialComposite is shaded by the composite program from the captured depth textures.
	MaterialComposite
	// MaterialUnlit writes the surface color unchanged.
	MaterialUnlit
)

// ErrUnknownMaterial is returned by ParseMaterial for unrecognised names.
var ErrUnknownMaterial = errors.New("unknown material")

func (m Material) String() string {
	switch m {
	case MaterialStandard:
		return "standard"
	case MaterialComposite:
		return "composite"
	case MaterialUnlit:
		return "unlit"
	default:
		return fmt.Sprintf("Material(%d)", int(m))
	}
}

// ParseMaterial converts a name to a Material.
func ParseMaterial(name string) (Material, error) {
	switch strings.ToLower(name) {
	case "standard":
		return MaterialStandard, nil
	case "composite":
		return MaterialComposite, nil
	case "unlit":
		return MaterialUnlit, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMaterial, name)
}

// Surface is a placed mesh with a material. Surfaces are plain values owned by the scene.
type Surface struct {
	Name     string
	Mesh     *Mesh
	Material Material
	Color    common.Color

	Position common.Vec3
	Rotation common.Vec3 // Euler angles in radians
	Scale    common.Vec3

	// DoubleSided disables back-face culling.
	DoubleSided bool
	// Visible surfaces are drawn in the final frame.
	Visible bool
	// CastsDepth surfaces are drawn into depth captures.
	CastsDepth bool
}

// NewSurface returns a visible, depth-casting surface with unit scale and a white standard material.
//
// Parameters:
//   - name: unique name within the scene
//   - mesh: the geometry to draw
//
// Returns:
//   - *Surface: the new surface
func NewSurface(name string, mesh *Mesh) *Surface {
	return &Surface{
		Name:       name,
		Mesh:       mesh,
		Material:   MaterialStandard,
		Color:      common.ColorWhite,
		Scale:      common.V3(1, 1, 1),
		Visible:    true,
		CastsDepth: true,
	}
}

// ModelMatrix returns the surface's model-to-world transform (column-major).
func (s *Surface) ModelMatrix() [16]float32 {
	var m [16]float32
	common.BuildModelMatrix(m[:], s.Position, s.Rotation, s.Scale)
	return m
}
