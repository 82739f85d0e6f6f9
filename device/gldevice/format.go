//go:build !nogl

package gldevice

import (
	"github.com/go-gl/gl/v4.6-core/gl"

	"github.com/gogpu/gpures/device"
)

// internalFormats maps image formats to sized GL internal formats.
var internalFormats = map[device.Format]uint32{
	device.FormatR8Unorm:     gl.R8,
	device.FormatRG8Unorm:    gl.RG8,
	device.FormatRGBA8Unorm:  gl.RGBA8,
	device.FormatR16Uint:     gl.R16UI,
	device.FormatRG16Uint:    gl.RG16UI,
	device.FormatRGBA16Uint:  gl.RGBA16UI,
	device.FormatR32Uint:     gl.R32UI,
	device.FormatRG32Uint:    gl.RG32UI,
	device.FormatRGBA32Uint:  gl.RGBA32UI,
	device.FormatR8Sint:      gl.R8I,
	device.FormatRG8Sint:     gl.RG8I,
	device.FormatRGBA8Sint:   gl.RGBA8I,
	device.FormatR16Sint:     gl.R16I,
	device.FormatRG16Sint:    gl.RG16I,
	device.FormatRGBA16Sint:  gl.RGBA16I,
	device.FormatR32Sint:     gl.R32I,
	device.FormatRG32Sint:    gl.RG32I,
	device.FormatRGBA32Sint:  gl.RGBA32I,
	device.FormatR32Float:    gl.R32F,
	device.FormatRG32Float:   gl.RG32F,
	device.FormatRGB32Float:  gl.RGB32F,
	device.FormatRGBA32Float: gl.RGBA32F,
}

// integerFormat reports whether sampling f yields unnormalized integers.
func integerFormat(f device.Format) bool {
	switch f.Layout() {
	case device.LayoutF32:
		return false
	case device.LayoutU8:
		// 8-bit unsigned is stored normalized
		return false
	default:
		return true
	}
}

// pixelFormat returns the client pixel format for transfers of base into
// an image of format f.
func pixelFormat(base device.BaseFormat, f device.Format) uint32 {
	integer := integerFormat(f)
	switch base {
	case device.BaseR:
		if integer {
			return gl.RED_INTEGER
		}
		return gl.RED
	case device.BaseRG:
		if integer {
			return gl.RG_INTEGER
		}
		return gl.RG
	case device.BaseRGB:
		if integer {
			return gl.RGB_INTEGER
		}
		return gl.RGB
	default:
		if integer {
			return gl.RGBA_INTEGER
		}
		return gl.RGBA
	}
}

// pixelType returns the client scalar type of a host layout.
func pixelType(l device.FormatLayout) (uint32, bool) {
	switch l {
	case device.LayoutF32:
		return gl.FLOAT, true
	case device.LayoutU8:
		return gl.UNSIGNED_BYTE, true
	case device.LayoutU16:
		return gl.UNSIGNED_SHORT, true
	case device.LayoutU32:
		return gl.UNSIGNED_INT, true
	case device.LayoutI8:
		return gl.BYTE, true
	case device.LayoutI16:
		return gl.SHORT, true
	case device.LayoutI32:
		return gl.INT, true
	default:
		return 0, false
	}
}

// textureTarget returns the GL texture target for an image type.
func textureTarget(t device.ImageType) uint32 {
	switch t.Dim {
	case device.Dim1D:
		if t.Layers > 1 {
			return gl.TEXTURE_1D_ARRAY
		}
		return gl.TEXTURE_1D
	case device.Dim2D:
		switch {
		case t.Samples > 1 && t.Layers > 1:
			return gl.TEXTURE_2D_MULTISAMPLE_ARRAY
		case t.Samples > 1:
			return gl.TEXTURE_2D_MULTISAMPLE
		case t.Layers > 1:
			return gl.TEXTURE_2D_ARRAY
		default:
			return gl.TEXTURE_2D
		}
	default:
		return gl.TEXTURE_3D
	}
}

// viewTarget returns the GL texture target of a view.
func viewTarget(v device.ImageViewType, multisampled bool) (uint32, bool) {
	switch v {
	case device.View1D:
		return gl.TEXTURE_1D, true
	case device.View1DArray:
		return gl.TEXTURE_1D_ARRAY, true
	case device.View2D:
		if multisampled {
			return gl.TEXTURE_2D_MULTISAMPLE, true
		}
		return gl.TEXTURE_2D, true
	case device.View2DArray:
		if multisampled {
			return gl.TEXTURE_2D_MULTISAMPLE_ARRAY, true
		}
		return gl.TEXTURE_2D_ARRAY, true
	case device.View3D:
		return gl.TEXTURE_3D, true
	default:
		return 0, false
	}
}

// shaderType returns the GL shader type of a stage. Task and mesh shaders
// need GL_NV_mesh_shader.
func shaderType(s device.ShaderStage) (uint32, bool) {
	switch s {
	case device.StageVertex:
		return gl.VERTEX_SHADER, true
	case device.StageTessControl:
		return gl.TESS_CONTROL_SHADER, true
	case device.StageTessEval:
		return gl.TESS_EVALUATION_SHADER, true
	case device.StageGeometry:
		return gl.GEOMETRY_SHADER, true
	case device.StageFragment:
		return gl.FRAGMENT_SHADER, true
	case device.StageCompute:
		return gl.COMPUTE_SHADER, true
	case device.StageTask:
		return gl.TASK_SHADER_NV, true
	case device.StageMesh:
		return gl.MESH_SHADER_NV, true
	default:
		return 0, false
	}
}

// box is a copy region in the coordinates of a GL texture target: array
// layers take the place of the first unused axis.
type box struct {
	x, y, z int32
	w, h, d int32
}

func regionBox(target uint32, r device.Region) box {
	b := box{
		x: int32(r.Offset.X), y: int32(r.Offset.Y), z: int32(r.Offset.Z),
		w: int32(r.Extent.Width), h: int32(r.Extent.Height), d: int32(r.Extent.DepthOrArrayLayers),
	}
	layers := int32(max(r.Layers, 1))
	switch target {
	case gl.TEXTURE_1D_ARRAY:
		b.y, b.h = int32(r.BaseLayer), layers
	case gl.TEXTURE_2D_ARRAY:
		b.z, b.d = int32(r.BaseLayer), layers
	}
	return b
}

// dims returns how many coordinates a target's sub-image calls take.
func dims(target uint32) int {
	switch target {
	case gl.TEXTURE_1D:
		return 1
	case gl.TEXTURE_1D_ARRAY, gl.TEXTURE_2D:
		return 2
	default:
		return 3
	}
}
