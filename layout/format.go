package layout

import "github.com/gogpu/gputypes"

// Format is the data format of one vertex attribute slot.
type Format uint8

// Attribute formats.
const (
	FormatUndefined Format = iota
	Float32
	Float32x2
	Float32x3
	Float32x4
	Float64
	Float64x2
	Float64x3
	Float64x4
	Int32
	Int32x2
	Int32x3
	Int32x4
	Uint32
	Uint32x2
	Uint32x3
	Uint32x4
	Unorm8x3
	Unorm8x4
)

var formatNames = [...]string{
	FormatUndefined: "Undefined",
	Float32:         "Float32",
	Float32x2:       "Float32x2",
	Float32x3:       "Float32x3",
	Float32x4:       "Float32x4",
	Float64:         "Float64",
	Float64x2:       "Float64x2",
	Float64x3:       "Float64x3",
	Float64x4:       "Float64x4",
	Int32:           "Int32",
	Int32x2:         "Int32x2",
	Int32x3:         "Int32x3",
	Int32x4:         "Int32x4",
	Uint32:          "Uint32",
	Uint32x2:        "Uint32x2",
	Uint32x3:        "Uint32x3",
	Uint32x4:        "Uint32x4",
	Unorm8x3:        "Unorm8x3",
	Unorm8x4:        "Unorm8x4",
}

// String returns a human-readable name for the format.
func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return "Unknown"
}

// Components returns the number of scalar components in the format.
func (f Format) Components() int {
	switch f {
	case Float32, Float64, Int32, Uint32:
		return 1
	case Float32x2, Float64x2, Int32x2, Uint32x2:
		return 2
	case Float32x3, Float64x3, Int32x3, Uint32x3, Unorm8x3:
		return 3
	case Float32x4, Float64x4, Int32x4, Uint32x4, Unorm8x4:
		return 4
	default:
		return 0
	}
}

// Size returns the size of one attribute of this format in bytes.
func (f Format) Size() int {
	switch f {
	case Unorm8x3, Unorm8x4:
		return f.Components()
	case Float64, Float64x2, Float64x3, Float64x4:
		return 8 * f.Components()
	default:
		return 4 * f.Components()
	}
}

// VertexFormat maps the format to its WebGPU equivalent.
// Double precision and three-byte formats have none and return false.
func (f Format) VertexFormat() (gputypes.VertexFormat, bool) {
	switch f {
	case Float32:
		return gputypes.VertexFormatFloat32, true
	case Float32x2:
		return gputypes.VertexFormatFloat32x2, true
	case Float32x3:
		return gputypes.VertexFormatFloat32x3, true
	case Float32x4:
		return gputypes.VertexFormatFloat32x4, true
	case Int32:
		return gputypes.VertexFormatSint32, true
	case Int32x2:
		return gputypes.VertexFormatSint32x2, true
	case Int32x3:
		return gputypes.VertexFormatSint32x3, true
	case Int32x4:
		return gputypes.VertexFormatSint32x4, true
	case Uint32:
		return gputypes.VertexFormatUint32, true
	case Uint32x2:
		return gputypes.VertexFormatUint32x2, true
	case Uint32x3:
		return gputypes.VertexFormatUint32x3, true
	case Uint32x4:
		return gputypes.VertexFormatUint32x4, true
	case Unorm8x4:
		return gputypes.VertexFormatUnorm8x4, true
	default:
		return gputypes.VertexFormatUndefined, false
	}
}
