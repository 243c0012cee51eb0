package texture

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chewxy/math32"
)

// DepthFormat selects the attachments of a depth capture target.
type DepthFormat int

const (
	// DepthFormatDepth is a depth-only attachment.
	DepthFormatDepth DepthFormat = iota
	// DepthFormatDepthStencil is a combined depth and stencil attachment.
	DepthFormatDepthStencil
)

// DepthType is the storage precision of captured depth values.
type DepthType int

const (
	// DepthTypeUnsignedShort stores 16-bit normalized depth.
	DepthTypeUnsignedShort DepthType = iota
	// DepthTypeUnsignedInt stores 24-bit normalized depth.
	DepthTypeUnsignedInt
	// DepthTypeFloat stores 32-bit float depth.
	DepthTypeFloat
)

var (
	ErrUnknownDepthFormat = errors.New("unknown depth format")
	ErrUnknownDepthType   = errors.New("unknown depth type")
)

func (f DepthFormat) String() string {
	switch f {
	case DepthFormatDepth:
		return "depth"
	case DepthFormatDepthStencil:
		return "depth_stencil"
	default:
		return fmt.Sprintf("DepthFormat(%d)", int(f))
	}
}

// ParseDepthFormat converts a config name to a DepthFormat.
func ParseDepthFormat(name string) (DepthFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "depth", "":
		return DepthFormatDepth, nil
	case "depth_stencil":
		return DepthFormatDepthStencil, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDepthFormat, name)
}

func (t DepthType) String() string {
	switch t {
	case DepthTypeUnsignedShort:
		return "unsigned_short"
	case DepthTypeUnsignedInt:
		return "unsigned_int"
	case DepthTypeFloat:
		return "float"
	default:
		return fmt.Sprintf("DepthType(%d)", int(t))
	}
}

// ParseDepthType converts a config name to a DepthType.
func ParseDepthType(name string) (DepthType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "unsigned_short", "":
		return DepthTypeUnsignedShort, nil
	case "unsigned_int":
		return DepthTypeUnsignedInt, nil
	case "float":
		return DepthTypeFloat, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDepthType, name)
}

// Bits returns the storage precision in bits.
func (t DepthType) Bits() int {
	switch t {
	case DepthTypeUnsignedInt:
		return 24
	case DepthTypeFloat:
		return 32
	default:
		return 16
	}
}

// Quantize rounds a depth value in [0, 1] to the precision of t. Values outside
// the range are clamped for the normalized integer types.
//
// Parameters:
//   - d: the depth value
//
// Returns:
//   - float32: the value as it reads back from storage of type t
func (t DepthType) Quantize(d float32) float32 {
	var scale float32
	switch t {
	case DepthTypeUnsignedShort:
		scale = 65535
	case DepthTypeUnsignedInt:
		scale = 16777215
	default:
		return d
	}
	d = max(0, min(d, 1))
	return math32.Floor(d*scale+0.5) / scale
}
