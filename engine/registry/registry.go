package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/texture"
)

var (
	// ErrFrozen is returned by Append once the registry has been frozen by a composite stage.
	ErrFrozen = errors.New("registry: frozen")
	// ErrIndexOutOfRange is returned by Replace and At for indices outside [0, Len()).
	ErrIndexOutOfRange = errors.New("registry: index out of range")
	// ErrNilTexture is returned when a nil texture is appended or substituted.
	ErrNilTexture = errors.New("registry: nil texture")
)

// Registry is the ordered collection of captured depth textures. The i-th capture has index i.
// The composite stage reads the textures by reference; the registry never releases them.
type Registry interface {
	// Append adds a texture at the end.
	//
	// Parameters:
	//   - tex: the captured depth texture
	//
	// Returns:
	//   - error: ErrFrozen after Freeze, ErrNilTexture for nil
	Append(tex texture.DepthTexture) error

	// Len returns the number of textures.
	Len() int

	// At returns the texture at index i.
	//
	// Returns:
	//   - texture.DepthTexture: the texture
	//   - error: ErrIndexOutOfRange for invalid indices
	At(i int) (texture.DepthTexture, error)

	// Textures returns the backing slice by reference. Callers must not modify it.
	Textures() []texture.DepthTexture

	// Replace swaps the texture at index i, keeping the length unchanged. Allowed after Freeze.
	//
	// Parameters:
	//   - i: the index to replace
	//   - tex: the new texture
	//
	// Returns:
	//   - texture.DepthTexture: the previous texture, which the caller now owns
	//   - error: ErrIndexOutOfRange or ErrNilTexture
	Replace(i int, tex texture.DepthTexture) (texture.DepthTexture, error)

	// Freeze fixes the registry length. Called when a composite stage is built from it.
	Freeze()

	// Frozen reports whether Freeze has been called.
	Frozen() bool
}

type registryImpl struct {
	mu *sync.Mutex

	textures []texture.DepthTexture
	frozen   bool
}

var _ Registry = &registryImpl{}

// NewRegistry creates an empty registry with room for capacity textures.
//
// Parameters:
//   - capacity: expected number of captures
//
// Returns:
//   - Registry: the new registry
func NewRegistry(capacity int) Registry {
	return &registryImpl{
		mu:       &sync.Mutex{},
		textures: make([]texture.DepthTexture, 0, max(capacity, 0)),
	}
}

func (r *registryImpl) Append(tex texture.DepthTexture) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrFrozen
	}
	if tex == nil {
		return ErrNilTexture
	}
	r.textures = append(r.textures, tex)
	return nil
}

func (r *registryImpl) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.textures)
}

func (r *registryImpl) At(i int) (texture.DepthTexture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.textures) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(r.textures))
	}
	return r.textures[i], nil
}

func (r *registryImpl) Textures() []texture.DepthTexture {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.textures
}

func (r *registryImpl) Replace(i int, tex texture.DepthTexture) (texture.DepthTexture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tex == nil {
		return nil, ErrNilTexture
	}
	if i < 0 || i >= len(r.textures) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(r.textures))
	}
	old := r.textures[i]
	r.textures[i] = tex
	return old, nil
}

func (r *registryImpl) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

func (r *registryImpl) Frozen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frozen
}
