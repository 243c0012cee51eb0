package texture

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/chewxy/math32"
)

// ErrReleased is returned when a released texture is read.
var ErrReleased = errors.New("texture: released")

var textureCount atomic.Uint64

// DepthTexture is an immutable snapshot of a depth attachment, sampleable by the composite program.
// Texels are stored row-major with row 0 at the top of the image. Values are in [0, 1] with
// 0 at the near plane.
type DepthTexture interface {
	// ID returns a process-unique identifier.
	ID() uint64

	// Label returns a human-readable name, used in logs and exported file metadata.
	Label() string

	Width() int
	Height() int

	// Type returns the storage precision the values were quantized to.
	Type() DepthType

	// At returns the texel at integer coordinates, clamped to the edges.
	//
	// Parameters:
	//   - x: column, 0 at the left
	//   - y: row, 0 at the top
	//
	// Returns:
	//   - float32: the stored depth
	//   - error: ErrReleased after Release
	At(x, y int) (float32, error)

	// Sample performs a nearest-filtered lookup at texture coordinates.
	// v grows upward, so v = 1 is row 0.
	//
	// Parameters:
	//   - u, v: texture coordinates in [0, 1], clamped to the edges
	//
	// Returns:
	//   - float32: the stored depth
	//   - error: ErrReleased after Release
	Sample(u, v float32) (float32, error)

	// Pixels returns a copy of the texel data.
	//
	// Returns:
	//   - []float32: width*height values, row-major
	//   - error: ErrReleased after Release
	Pixels() ([]float32, error)

	// Release frees the texel storage. Releasing twice is a no-op.
	Release() error

	// Released reports whether Release has been called.
	Released() bool
}

type cpuDepthTexture struct {
	mu *sync.RWMutex

	id       uint64
	label    string
	width    int
	height   int
	typ      DepthType
	data     []float32
	released bool
}

var _ DepthTexture = &cpuDepthTexture{}

// NewDepthTexture creates a CPU-resident depth texture from a copy of data,
// quantized to typ.
//
// Parameters:
//   - label: a name for logs
//   - width, height: dimensions in texels
//   - typ: storage precision
//   - data: width*height depth values, row-major with row 0 at the top
//
// Returns:
//   - DepthTexture: the new texture
//   - error: if the data length does not match the dimensions
func NewDepthTexture(label string, width, height int, typ DepthType, data []float32) (DepthTexture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("texture %q: invalid size %dx%d", label, width, height)
	}
	if len(data) != width*height {
		return nil, fmt.Errorf("texture %q: got %d texels, want %d", label, len(data), width*height)
	}
	owned := make([]float32, len(data))
	for i, d := range data {
		owned[i] = typ.Quantize(d)
	}
	return &cpuDepthTexture{
		mu:     &sync.RWMutex{},
		id:     textureCount.Add(1),
		label:  label,
		width:  width,
		height: height,
		typ:    typ,
		data:   owned,
	}, nil
}

// NewConstantDepthTexture creates a texture where every texel equals d.
func NewConstantDepthTexture(label string, width, height int, typ DepthType, d float32) (DepthTexture, error) {
	data := make([]float32, width*height)
	for i := range data {
		data[i] = d
	}
	return NewDepthTexture(label, width, height, typ, data)
}

func (t *cpuDepthTexture) ID() uint64 {
	return t.id
}

func (t *cpuDepthTexture) Label() string {
	return t.label
}

func (t *cpuDepthTexture) Width() int {
	return t.width
}

func (t *cpuDepthTexture) Height() int {
	return t.height
}

func (t *cpuDepthTexture) Type() DepthType {
	return t.typ
}

func (t *cpuDepthTexture) At(x, y int) (float32, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.released {
		return 0, ErrReleased
	}
	x = max(0, min(x, t.width-1))
	y = max(0, min(y, t.height-1))
	return t.data[y*t.width+x], nil
}

func (t *cpuDepthTexture) Sample(u, v float32) (float32, error) {
	x := int(math32.Floor(u * float32(t.width)))
	y := int(math32.Floor((1 - v) * float32(t.height)))
	return t.At(x, y)
}

func (t *cpuDepthTexture) Pixels() ([]float32, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.released {
		return nil, ErrReleased
	}
	out := make([]float32, len(t.data))
	copy(out, t.data)
	return out, nil
}

func (t *cpuDepthTexture) Release() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.released = true
	t.data = nil
	return nil
}

func (t *cpuDepthTexture) Released() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.released
}
