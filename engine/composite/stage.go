package composite

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-depth/engine/camera"
	"github.com/Carmen-Shannon/oxy-depth/engine/registry"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/texture"
)

var (
	// ErrRegistryMismatch is returned when the registry length differs from the stage's texture count.
	ErrRegistryMismatch = errors.New("composite: registry length does not match texture count")

	// ErrInvalidCount is returned for a texture count below one.
	ErrInvalidCount = errors.New("composite: texture count must be at least 1")

	// ErrBindingMismatch is returned when the reflected program does not declare one depth binding per texture.
	ErrBindingMismatch = errors.New("composite: reflected depth bindings do not match texture count")
)

// ShaderKey is the key of the generated composite shader.
const ShaderKey = "composite"

type stage struct {
	mu     *sync.Mutex
	logger *slog.Logger

	registry registry.Registry
	observer camera.Camera
	count    int
	group    int

	near       float32
	far        float32
	generation uint64

	shader shader.Shader

	// ladder has one fixed branch per index, mirroring the generated fetchDepth switch.
	ladder []func(u, v float32) (float32, error)
}

// Stage is the composite program that averages N captured depth textures onto a surface.
// N is fixed when the stage is built; the registry is frozen at the same time.
type Stage interface {
	// Count returns the fixed number of depth textures N.
	Count() int

	// Group returns the bind group index of the composite resources.
	Group() int

	// Near returns the decode near plane taken from the observer view.
	Near() float32

	// Far returns the decode far plane taken from the observer view.
	Far() float32

	// Observer returns the view whose clip planes feed the decode constants.
	Observer() camera.Camera

	// Registry returns the registry the stage reads from.
	Registry() registry.Registry

	// Refresh re-reads the decode constants from the observer and bumps the generation.
	// Call it after every recapture.
	Refresh()

	// Generation increases on every Refresh. Backends use it to rebuild cached bindings.
	Generation() uint64

	// Shader returns the reflected composite program.
	Shader() shader.Shader

	// Uniforms returns the current uniform block.
	Uniforms() GPUCompositeUniforms

	// UniformBytes returns the marshalled uniform block.
	UniformBytes() []byte

	// DepthTextures returns the registry's textures by reference, in binding order.
	DepthTextures() []texture.DepthTexture

	// Shade evaluates the composite colour at a texture coordinate, indexing the
	// registry dynamically.
	//
	// Parameters:
	//   - u, v: texture coordinates with v = 0 at the bottom row
	//
	// Returns:
	//   - [4]float32: the averaged RGBA value
	//   - error: wraps texture.ErrReleased if a texture was released
	Shade(u, v float32) ([4]float32, error)

	// ShadeLadder evaluates the composite colour through the fixed per-index dispatch
	// used by the generated program. It agrees with Shade for every input.
	//
	// Parameters:
	//   - u, v: texture coordinates with v = 0 at the bottom row
	//
	// Returns:
	//   - [4]float32: the averaged RGBA value
	//   - error: wraps texture.ErrReleased if a texture was released
	ShadeLadder(u, v float32) ([4]float32, error)

	// ReadDepth linearizes texture i at a texture coordinate with the stage's decode constants.
	//
	// Parameters:
	//   - i: the registry index
	//   - u, v: texture coordinates
	//
	// Returns:
	//   - float32: linear depth
	//   - error: registry.ErrIndexOutOfRange or texture.ErrReleased
	ReadDepth(i int, u, v float32) (float32, error)
}

var _ Stage = &stage{}

// NewStage validates the registry against count, generates and reflects the composite
// program and freezes the registry.
//
// Parameters:
//   - reg: the registry holding exactly count textures
//   - observer: the view that captured the textures
//   - count: the fixed texture count N
//   - options: functional options
//
// Returns:
//   - Stage: the built stage
//   - error: ErrInvalidCount, ErrRegistryMismatch or ErrBindingMismatch, wrapped with context
func NewStage(reg registry.Registry, observer camera.Camera, count int, options ...StageBuilderOption) (Stage, error) {
	s := &stage{
		mu:       &sync.Mutex{},
		logger:   slog.Default(),
		registry: reg,
		observer: observer,
		count:    count,
		group:    DefaultGroup,
	}
	for _, option := range options {
		option(s)
	}

	if count < 1 {
		return nil, fmt.Errorf("build composite stage: %w: %d", ErrInvalidCount, count)
	}
	if reg.Len() != count {
		return nil, fmt.Errorf("build composite stage: %w: registry has %d, program expects %d", ErrRegistryMismatch, reg.Len(), count)
	}

	src, err := GenerateSource(s.group, count)
	if err != nil {
		return nil, fmt.Errorf("build composite stage: %w", err)
	}
	sh, err := shader.NewShader(ShaderKey, src)
	if err != nil {
		return nil, fmt.Errorf("build composite stage: %w", err)
	}
	if err := validateBindings(sh, s.group, count); err != nil {
		return nil, fmt.Errorf("build composite stage: %w", err)
	}
	s.shader = sh

	s.ladder = make([]func(u, v float32) (float32, error), count)
	for i := range s.ladder {
		s.ladder[i] = s.fetchFixed(i)
	}

	reg.Freeze()
	s.near, s.far = observer.Near(), observer.Far()

	s.logger.Info("composite stage built",
		"count", count,
		"near", s.near,
		"far", s.far,
		"observer", observer.Name(),
	)
	return s, nil
}

// validateBindings checks the reflected composite group: one uniform buffer, one
// non-filtering sampler, the diffuse placeholder and exactly count depth textures at
// consecutive bindings.
func validateBindings(sh shader.Shader, group, count int) error {
	var depth, samplers, uniforms int
	for _, b := range sh.Group(group) {
		switch b.Kind {
		case shader.ResourceDepthTexture:
			if b.Binding != DepthBinding(depth) {
				return fmt.Errorf("%w: %s at binding %d", ErrBindingMismatch, b.Name, b.Binding)
			}
			depth++
		case shader.ResourceNonFilteringSampler:
			samplers++
		case shader.ResourceUniformBuffer:
			uniforms++
		}
	}
	if depth != count {
		return fmt.Errorf("%w: reflected %d, expected %d", ErrBindingMismatch, depth, count)
	}
	if samplers != 1 || uniforms != 1 {
		return fmt.Errorf("%w: expected one sampler and one uniform buffer, got %d and %d", ErrBindingMismatch, samplers, uniforms)
	}
	return nil
}

func (s *stage) Count() int {
	return s.count
}

func (s *stage) Group() int {
	return s.group
}

func (s *stage) Near() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.near
}

func (s *stage) Far() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.far
}

func (s *stage) Observer() camera.Camera {
	return s.observer
}

func (s *stage) Registry() registry.Registry {
	return s.registry
}

func (s *stage) Refresh() {
	near, far := s.observer.Near(), s.observer.Far()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.near, s.far = near, far
	s.generation++
	s.logger.Debug("composite constants refreshed", "near", near, "far", far, "generation", s.generation)
}

func (s *stage) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *stage) Shader() shader.Shader {
	return s.shader
}

func (s *stage) Uniforms() GPUCompositeUniforms {
	s.mu.Lock()
	defer s.mu.Unlock()
	return GPUCompositeUniforms{
		CameraNear: s.near,
		CameraFar:  s.far,
		Count:      uint32(s.count),
	}
}

func (s *stage) UniformBytes() []byte {
	u := s.Uniforms()
	return u.Marshal()
}

func (s *stage) DepthTextures() []texture.DepthTexture {
	return s.registry.Textures()
}

func (s *stage) Shade(u, v float32) ([4]float32, error) {
	textures := s.registry.Textures()
	var sum float64
	for i := 0; i < s.count; i++ {
		d, err := textures[i].Sample(u, v)
		if err != nil {
			return [4]float32{}, fmt.Errorf("composite: texture %d: %w", i, err)
		}
		sum += float64(d)
	}
	return average(sum, s.count), nil
}

func (s *stage) ShadeLadder(u, v float32) ([4]float32, error) {
	var sum float64
	for i := 0; i < s.count; i++ {
		d, err := s.fetchDepth(i, u, v)
		if err != nil {
			return [4]float32{}, err
		}
		sum += float64(d)
	}
	return average(sum, s.count), nil
}

func (s *stage) ReadDepth(i int, u, v float32) (float32, error) {
	tex, err := s.registry.At(i)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	near, far := s.near, s.far
	s.mu.Unlock()
	return ReadDepth(tex, u, v, near, far)
}

// fetchDepth dispatches to the fixed branch for index i. Indices outside the ladder read 0.
func (s *stage) fetchDepth(i int, u, v float32) (float32, error) {
	if i < 0 || i >= len(s.ladder) {
		return 0, nil
	}
	return s.ladder[i](u, v)
}

// fetchFixed returns the branch bound to registry slot i. The slot is resolved on every
// call so in-place replacements are picked up.
func (s *stage) fetchFixed(i int) func(u, v float32) (float32, error) {
	return func(u, v float32) (float32, error) {
		tex, err := s.registry.At(i)
		if err != nil {
			return 0, fmt.Errorf("composite: texture %d: %w", i, err)
		}
		d, err := tex.Sample(u, v)
		if err != nil {
			return 0, fmt.Errorf("composite: texture %d: %w", i, err)
		}
		return d, nil
	}
}

// average divides the summed raw texels vec4(d, d, d, 1) by n. The sum is kept in
// float64 so identical inputs average back to themselves exactly.
func average(sum float64, n int) [4]float32 {
	d := float32(sum / float64(n))
	return [4]float32{d, d, d, 1}
}
