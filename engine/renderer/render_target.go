package renderer

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-depth/engine/renderer/texture"
)

// FilterMode is the min/mag filter a render target is sampled with.
type FilterMode int

const (
	// FilterNearest reads the closest texel. Depth targets are always nearest-filtered.
	FilterNearest FilterMode = iota
)

func (f FilterMode) String() string {
	if f == FilterNearest {
		return "nearest"
	}
	return fmt.Sprintf("FilterMode(%d)", int(f))
}

var targetCount atomic.Uint64

// RenderTargetDescriptor describes an off-screen depth capture target.
type RenderTargetDescriptor struct {
	Label       string
	Width       int
	Height      int
	DepthFormat texture.DepthFormat
	DepthType   texture.DepthType
}

// validate checks the descriptor against what every backend supports.
func (d RenderTargetDescriptor) validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidTargetSize, d.Width, d.Height)
	}
	if d.DepthFormat == texture.DepthFormatDepthStencil {
		return fmt.Errorf("render target %q: %w", d.Label, ErrStencilUnsupported)
	}
	return nil
}

// RenderTarget is an off-screen surface with a depth attachment and no color or stencil.
// The depth attachment is readable through Renderer.CopyDepth.
type RenderTarget interface {
	// ID returns a process-unique identifier.
	ID() uint64

	Label() string
	Width() int
	Height() int
	DepthFormat() texture.DepthFormat
	DepthType() texture.DepthType

	// Filter returns the sampling filter of the depth attachment.
	Filter() FilterMode

	// StencilEnabled reports whether a stencil attachment exists. Always false.
	StencilEnabled() bool

	// Release frees the backend resources. Releasing twice is a no-op.
	//
	// Returns:
	//   - error: always nil, present for io.Closer-style call sites
	Release() error

	// Released reports whether Release has been called.
	Released() bool
}

// targetInfo carries the backend-independent state of a render target. Backends embed it
// and install a release hook for their own resources.
type targetInfo struct {
	mu *sync.Mutex

	id        uint64
	desc      RenderTargetDescriptor
	released  bool
	onRelease func()
}

func newTargetInfo(desc RenderTargetDescriptor, onRelease func()) targetInfo {
	id := targetCount.Add(1)
	if desc.Label == "" {
		desc.Label = fmt.Sprintf("render_target_%d", id)
	}
	return targetInfo{
		mu:        &sync.Mutex{},
		id:        id,
		desc:      desc,
		onRelease: onRelease,
	}
}

func (t *targetInfo) ID() uint64 {
	return t.id
}

func (t *targetInfo) Label() string {
	return t.desc.Label
}

func (t *targetInfo) Width() int {
	return t.desc.Width
}

func (t *targetInfo) Height() int {
	return t.desc.Height
}

func (t *targetInfo) DepthFormat() texture.DepthFormat {
	return t.desc.DepthFormat
}

func (t *targetInfo) DepthType() texture.DepthType {
	return t.desc.DepthType
}

func (t *targetInfo) Filter() FilterMode {
	return FilterNearest
}

func (t *targetInfo) StencilEnabled() bool {
	return false
}

func (t *targetInfo) Release() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return nil
	}
	t.released = true
	if t.onRelease != nil {
		t.onRelease()
	}
	return nil
}

func (t *targetInfo) Released() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.released
}
