// annotations.go defines the annotation types and parser for the WGSL pre-processor.
// Annotations are single-line WGSL comments prefixed with @oxy: that inject shared
// struct definitions and generate @group/@binding declarations for them.
package shader

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an annotation within a WGSL comment line.
const annotationPrefix = "@oxy:"

// ErrMalformedAnnotation is returned when a line carries the @oxy: prefix but cannot be parsed.
var ErrMalformedAnnotation = errors.New("shader: malformed annotation")

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// AnnotationTypeInclude injects the WGSL source of a registered struct at the annotation site.
	//
	// Syntax: //@oxy:include <struct_type>
	//
	// Example: //@oxy:include camera
	AnnotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a @group/@binding variable declaration for a
	// registered struct and records it in the pre-processor's declarations list.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@oxy:group 0 0 storage_uniform camera camera
	AnnotationTypeBindingGroup AnnotationType = "group"
)

// Annotation is a single parsed @oxy: annotation.
type Annotation struct {
	Type AnnotationType

	// Args holds the annotation's arguments:
	//   - include: [0] = struct type key
	//   - group:   [0] = address space, [1] = var name, [2] = struct type key
	Args []AnnotationArg

	// Line is the 1-based source line, used in errors.
	Line int

	// Group and Binding are set for group annotations only.
	Group   *int
	Binding *int
}

// AnnotationArg is a typed annotation argument.
type AnnotationArg string

const (
	// AnnotationArgCamera identifies the CameraUniform struct.
	AnnotationArgCamera AnnotationArg = "camera"

	// AnnotationArgLight identifies the Light struct.
	AnnotationArgLight AnnotationArg = "light"

	// AnnotationArgVertex identifies the VertexInput struct used by surface meshes.
	AnnotationArgVertex AnnotationArg = "vertex"

	// AnnotationArgSurface identifies the per-surface SurfaceUniform struct.
	AnnotationArgSurface AnnotationArg = "surface"
)

const (
	annotationArgStorageTypeUniform   AnnotationArg = "storage_uniform"
	annotationArgStorageTypeRead      AnnotationArg = "storage_read"
	annotationArgStorageTypeReadWrite AnnotationArg = "storage_read_write"
)

var validStructTypes = []AnnotationArg{
	AnnotationArgCamera,
	AnnotationArgLight,
	AnnotationArgVertex,
	AnnotationArgSurface,
}

var validAddressSpaces = []AnnotationArg{
	annotationArgStorageTypeUniform,
	annotationArgStorageTypeRead,
	annotationArgStorageTypeReadWrite,
}

// parseAnnotation attempts to parse a single line of WGSL source as an @oxy: annotation.
// Lines without the prefix yield (nil, nil).
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: wraps ErrMalformedAnnotation when the annotation is invalid
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: line %d: empty annotation", ErrMalformedAnnotation, lineNum)
	}

	switch AnnotationType(args[0]) {
	case AnnotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: line %d: include requires exactly one argument", ErrMalformedAnnotation, lineNum)
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("%w: line %d: unknown struct type %q", ErrMalformedAnnotation, lineNum, args[1])
		}
		return &Annotation{
			Type: AnnotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("%w: line %d: group requires group, binding, address space, var name and type", ErrMalformedAnnotation, lineNum)
		}
		group, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid group number %q", ErrMalformedAnnotation, lineNum, args[1])
		}
		binding, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid binding number %q", ErrMalformedAnnotation, lineNum, args[2])
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("%w: line %d: unknown address space %q", ErrMalformedAnnotation, lineNum, args[3])
		}
		typeArg := args[5]
		elem := typeArg
		if inner, ok := strings.CutPrefix(typeArg, "array<"); ok {
			elem = strings.TrimSuffix(inner, ">")
		}
		if !slices.Contains(validStructTypes, AnnotationArg(elem)) {
			return nil, fmt.Errorf("%w: line %d: unknown struct type %q", ErrMalformedAnnotation, lineNum, elem)
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(typeArg)},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil
	default:
		return nil, fmt.Errorf("%w: line %d: unknown annotation type %q", ErrMalformedAnnotation, lineNum, args[0])
	}
}
