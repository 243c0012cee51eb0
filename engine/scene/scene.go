package scene

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-depth/common"
	"github.com/Carmen-Shannon/oxy-depth/engine/light"
)

// ErrDuplicateSurface is returned by Add when a surface with the same name already exists.
var ErrDuplicateSurface = errors.New("scene: duplicate surface name")

// Scene holds the surfaces to draw, the background color and the single shadow-casting light.
// Surfaces are kept in insertion order, which is also draw order.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Background returns the clear color of the final frame.
	Background() common.Color

	// SetBackground changes the clear color.
	//
	// Parameters:
	//   - c: the new clear color
	SetBackground(c common.Color)

	// Light returns the scene's light, or nil if none was attached.
	Light() light.Light

	// SetLight attaches the scene's light.
	//
	// Parameters:
	//   - l: the light
	SetLight(l light.Light)

	// Add appends a surface.
	//
	// Parameters:
	//   - s: the surface to add
	//
	// Returns:
	//   - error: ErrDuplicateSurface if the name is taken
	Add(s *Surface) error

	// Remove deletes a surface by name. Unknown names are ignored.
	//
	// Parameters:
	//   - name: the surface name
	Remove(name string)

	// Surface looks up a surface by name.
	//
	// Returns:
	//   - *Surface: the surface, or nil
	Surface(name string) *Surface

	// Surfaces returns a snapshot of the surfaces in draw order.
	Surfaces() []*Surface

	// Count returns the number of surfaces.
	Count() int
}

type scene struct {
	mu *sync.Mutex

	name       string
	background common.Color
	light      light.Light
	surfaces   []*Surface
}

var _ Scene = &scene{}

// NewScene creates an empty scene with a white background.
//
// Parameters:
//   - name: the scene identifier
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the new scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:         &sync.Mutex{},
		name:       name,
		background: common.ColorWhite,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Background() common.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.background
}

func (s *scene) SetBackground(c common.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.background = c
}

func (s *scene) Light() light.Light {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.light
}

func (s *scene) SetLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.light = l
}

func (s *scene) Add(surf *Surface) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(surf)
}

// add appends a surface. Caller must hold the mutex.
func (s *scene) add(surf *Surface) error {
	for _, existing := range s.surfaces {
		if existing.Name == surf.Name {
			return fmt.Errorf("%w: %q", ErrDuplicateSurface, surf.Name)
		}
	}
	s.surfaces = append(s.surfaces, surf)
	return nil
}

func (s *scene) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.surfaces {
		if existing.Name == name {
			s.surfaces = append(s.surfaces[:i], s.surfaces[i+1:]...)
			return
		}
	}
}

func (s *scene) Surface(name string) *Surface {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.surfaces {
		if existing.Name == name {
			return existing
		}
	}
	return nil
}

func (s *scene) Surfaces() []*Surface {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Surface, len(s.surfaces))
	copy(out, s.surfaces)
	return out
}

func (s *scene) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.surfaces)
}
