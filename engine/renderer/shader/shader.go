package shader

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
)

// SurfaceSource is the built-in shader used to draw standard surfaces in the final frame.
//
//go:embed assets/surface.wgsl
var SurfaceSource string

// DepthOnlySource is the built-in vertex-only shader used by depth capture passes.
//
//go:embed assets/depth_only.wgsl
var DepthOnlySource string

const (
	// KeySurface is the key of the built-in surface shader.
	KeySurface = "surface"

	// KeyDepthOnly is the key of the built-in depth capture shader.
	KeyDepthOnly = "depth_only"
)

// ErrNoEntryPoint is returned when a shader declares neither a @vertex nor a @fragment function.
var ErrNoEntryPoint = errors.New("shader: no entry point")

// shader is the implementation of the Shader interface.
type shader struct {
	key                string
	source             string
	vertexEntryPoint   string
	fragmentEntryPoint string
	bindings           []Binding
	vertexLayouts      []VertexLayout
	declarations       []Annotation
}

// Shader is a pre-processed and reflected WGSL program. A single source may carry
// both the vertex and the fragment stage; every binding is visible to each stage that
// has an entry point.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// VertexEntryPoint returns the @vertex function name, or empty if there is none.
	VertexEntryPoint() string

	// FragmentEntryPoint returns the @fragment function name, or empty if there is none.
	FragmentEntryPoint() string

	// Stages returns the stages that have an entry point.
	Stages() Stage

	// Bindings returns every reflected binding sorted by group then binding.
	//
	// Returns:
	//   - []Binding: a copy of the reflected bindings
	Bindings() []Binding

	// Group returns the bindings of a single bind group, sorted by binding index.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - []Binding: the group's bindings, nil if the group is not declared
	Group(group int) []Binding

	// Groups returns the declared bind group indices in ascending order.
	Groups() []int

	// BindingByName looks up a binding by its WGSL variable name.
	//
	// Parameters:
	//   - name: the variable name, e.g. "tDepth0"
	//
	// Returns:
	//   - Binding: the binding
	//   - bool: false if no binding has that name
	BindingByName(name string) (Binding, bool)

	// VertexLayouts returns the vertex buffer layouts reflected from vertex input structs.
	//
	// Returns:
	//   - []VertexLayout: one layout per vertex input struct
	VertexLayouts() []VertexLayout

	// Declarations returns the @oxy:group annotations expanded by the pre-processor.
	//
	// Returns:
	//   - []Annotation: the expanded declarations in source order
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader pre-processes and reflects WGSL source.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - source: the WGSL source, which may contain @oxy: annotations
//
// Returns:
//   - Shader: the reflected shader
//   - error: ErrMalformedAnnotation or ErrNoEntryPoint, wrapped with the key
func NewShader(key, source string) (Shader, error) {
	pp := NewPreProcessor()
	processed, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader %q: %w", key, err)
	}

	s := &shader{
		key:                key,
		source:             processed,
		vertexEntryPoint:   parseEntryPoint(processed, StageVertex),
		fragmentEntryPoint: parseEntryPoint(processed, StageFragment),
		declarations:       slices.Clone(pp.Declarations()),
	}
	stages := s.Stages()
	if stages == StageNone {
		return nil, fmt.Errorf("shader %q: %w", key, ErrNoEntryPoint)
	}
	if stages&StageVertex != 0 {
		s.vertexLayouts = parseVertexLayouts(processed)
	}
	s.bindings = parseBindings(processed, stages)
	return s, nil
}

// NewShaderFromFile reads WGSL source from disk and calls NewShader.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - path: the file path to read WGSL source from
//
// Returns:
//   - Shader: the reflected shader
//   - error: a read error or any error returned by NewShader
func NewShaderFromFile(key, path string) (Shader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shader %q: failed to read %s: %w", key, path, err)
	}
	return NewShader(key, string(data))
}

// MustShader is NewShader for built-in sources; it panics on error.
func MustShader(key, source string) Shader {
	s, err := NewShader(key, source)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) VertexEntryPoint() string {
	return s.vertexEntryPoint
}

func (s *shader) FragmentEntryPoint() string {
	return s.fragmentEntryPoint
}

func (s *shader) Stages() Stage {
	stages := StageNone
	if s.vertexEntryPoint != "" {
		stages |= StageVertex
	}
	if s.fragmentEntryPoint != "" {
		stages |= StageFragment
	}
	return stages
}

func (s *shader) Bindings() []Binding {
	return slices.Clone(s.bindings)
}

func (s *shader) Group(group int) []Binding {
	var out []Binding
	for _, b := range s.bindings {
		if b.Group == group {
			out = append(out, b)
		}
	}
	return out
}

func (s *shader) Groups() []int {
	var groups []int
	for _, b := range s.bindings {
		if len(groups) == 0 || groups[len(groups)-1] != b.Group {
			groups = append(groups, b.Group)
		}
	}
	return groups
}

func (s *shader) BindingByName(name string) (Binding, bool) {
	for _, b := range s.bindings {
		if b.Name == name {
			return b, true
		}
	}
	return Binding{}, false
}

func (s *shader) VertexLayouts() []VertexLayout {
	return s.vertexLayouts
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}
