package device

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// BaseFormat is the channel layout of a pixel.
type BaseFormat uint8

// Channel layouts.
const (
	BaseR BaseFormat = iota + 1
	BaseRG
	BaseRGB
	BaseRGBA
)

// Components returns the number of channels.
func (b BaseFormat) Components() int {
	if b < BaseR || b > BaseRGBA {
		return 0
	}
	return int(b)
}

// String returns the channel names.
func (b BaseFormat) String() string {
	switch b {
	case BaseR:
		return "R"
	case BaseRG:
		return "RG"
	case BaseRGB:
		return "RGB"
	case BaseRGBA:
		return "RGBA"
	default:
		return fmt.Sprintf("BaseFormat(%d)", b)
	}
}

// BaseFormatFor returns the channel layout with n components.
func BaseFormatFor(n int) (BaseFormat, bool) {
	if n < 1 || n > 4 {
		return 0, false
	}
	return BaseFormat(n), true
}

// FormatLayout is the scalar type of each channel in host memory.
type FormatLayout uint8

// Host scalar layouts.
const (
	LayoutF32 FormatLayout = iota + 1
	LayoutU8
	LayoutU16
	LayoutU32
	LayoutI8
	LayoutI16
	LayoutI32
)

// Size returns the size of one channel in bytes.
func (l FormatLayout) Size() int {
	switch l {
	case LayoutU8, LayoutI8:
		return 1
	case LayoutU16, LayoutI16:
		return 2
	case LayoutF32, LayoutU32, LayoutI32:
		return 4
	default:
		return 0
	}
}

// String returns the scalar type name.
func (l FormatLayout) String() string {
	switch l {
	case LayoutF32:
		return "f32"
	case LayoutU8:
		return "u8"
	case LayoutU16:
		return "u16"
	case LayoutU32:
		return "u32"
	case LayoutI8:
		return "i8"
	case LayoutI16:
		return "i16"
	case LayoutI32:
		return "i32"
	default:
		return fmt.Sprintf("FormatLayout(%d)", l)
	}
}

// Format is the storage format of an image.
type Format uint8

// Image formats. Eight-bit unsigned data is stored normalized, other
// integer data is stored as plain integers.
const (
	FormatUndefined Format = iota
	FormatR8Unorm
	FormatRG8Unorm
	FormatRGBA8Unorm
	FormatR16Uint
	FormatRG16Uint
	FormatRGBA16Uint
	FormatR32Uint
	FormatRG32Uint
	FormatRGBA32Uint
	FormatR8Sint
	FormatRG8Sint
	FormatRGBA8Sint
	FormatR16Sint
	FormatRG16Sint
	FormatRGBA16Sint
	FormatR32Sint
	FormatRG32Sint
	FormatRGBA32Sint
	FormatR32Float
	FormatRG32Float
	FormatRGB32Float
	FormatRGBA32Float
	formatCount
)

type formatInfo struct {
	name   string
	base   BaseFormat
	layout FormatLayout
	wgpu   gputypes.TextureFormat
}

var formats = [formatCount]formatInfo{
	FormatUndefined:   {"Undefined", 0, 0, gputypes.TextureFormatUndefined},
	FormatR8Unorm:     {"R8Unorm", BaseR, LayoutU8, gputypes.TextureFormatR8Unorm},
	FormatRG8Unorm:    {"RG8Unorm", BaseRG, LayoutU8, gputypes.TextureFormatRG8Unorm},
	FormatRGBA8Unorm:  {"RGBA8Unorm", BaseRGBA, LayoutU8, gputypes.TextureFormatRGBA8Unorm},
	FormatR16Uint:     {"R16Uint", BaseR, LayoutU16, gputypes.TextureFormatR16Uint},
	FormatRG16Uint:    {"RG16Uint", BaseRG, LayoutU16, gputypes.TextureFormatRG16Uint},
	FormatRGBA16Uint:  {"RGBA16Uint", BaseRGBA, LayoutU16, gputypes.TextureFormatRGBA16Uint},
	FormatR32Uint:     {"R32Uint", BaseR, LayoutU32, gputypes.TextureFormatR32Uint},
	FormatRG32Uint:    {"RG32Uint", BaseRG, LayoutU32, gputypes.TextureFormatRG32Uint},
	FormatRGBA32Uint:  {"RGBA32Uint", BaseRGBA, LayoutU32, gputypes.TextureFormatRGBA32Uint},
	FormatR8Sint:      {"R8Sint", BaseR, LayoutI8, gputypes.TextureFormatR8Sint},
	FormatRG8Sint:     {"RG8Sint", BaseRG, LayoutI8, gputypes.TextureFormatRG8Sint},
	FormatRGBA8Sint:   {"RGBA8Sint", BaseRGBA, LayoutI8, gputypes.TextureFormatRGBA8Sint},
	FormatR16Sint:     {"R16Sint", BaseR, LayoutI16, gputypes.TextureFormatR16Sint},
	FormatRG16Sint:    {"RG16Sint", BaseRG, LayoutI16, gputypes.TextureFormatRG16Sint},
	FormatRGBA16Sint:  {"RGBA16Sint", BaseRGBA, LayoutI16, gputypes.TextureFormatRGBA16Sint},
	FormatR32Sint:     {"R32Sint", BaseR, LayoutI32, gputypes.TextureFormatR32Sint},
	FormatRG32Sint:    {"RG32Sint", BaseRG, LayoutI32, gputypes.TextureFormatRG32Sint},
	FormatRGBA32Sint:  {"RGBA32Sint", BaseRGBA, LayoutI32, gputypes.TextureFormatRGBA32Sint},
	FormatR32Float:    {"R32Float", BaseR, LayoutF32, gputypes.TextureFormatR32Float},
	FormatRG32Float:   {"RG32Float", BaseRG, LayoutF32, gputypes.TextureFormatRG32Float},
	FormatRGB32Float:  {"RGB32Float", BaseRGB, LayoutF32, gputypes.TextureFormatUndefined},
	FormatRGBA32Float: {"RGBA32Float", BaseRGBA, LayoutF32, gputypes.TextureFormatRGBA32Float},
}

func (f Format) info() formatInfo {
	if f >= formatCount {
		return formatInfo{}
	}
	return formats[f]
}

// String returns a human-readable name for the format.
func (f Format) String() string {
	if n := f.info().name; n != "" {
		return n
	}
	return fmt.Sprintf("Unknown(%d)", f)
}

// Base returns the channel layout of the format.
func (f Format) Base() BaseFormat { return f.info().base }

// Layout returns the host scalar type matching one channel.
func (f Format) Layout() FormatLayout { return f.info().layout }

// Components returns the number of channels per pixel.
func (f Format) Components() int { return f.info().base.Components() }

// BytesPerPixel returns the size of one pixel in bytes.
func (f Format) BytesPerPixel() int {
	return f.Components() * f.info().layout.Size()
}

// TextureFormat converts to the WebGPU texture format. Three-channel
// formats have no WebGPU equivalent and report false.
func (f Format) TextureFormat() (gputypes.TextureFormat, bool) {
	tf := f.info().wgpu
	return tf, tf != gputypes.TextureFormatUndefined
}

// FormatFrom is the fixed lookup from channel layout and host scalar type
// to an image format. Three-channel images exist only for f32 data.
func FormatFrom(base BaseFormat, layout FormatLayout) (Format, bool) {
	for f := FormatR8Unorm; f < formatCount; f++ {
		if formats[f].base == base && formats[f].layout == layout {
			return f, true
		}
	}
	return FormatUndefined, false
}
