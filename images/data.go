package images

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/gogpu/gpures/device"
)

// Texel is the set of scalar types image data can be uploaded from and
// read back into.
type Texel interface {
	float32 | uint8 | uint16 | uint32 | int8 | int16 | int32
}

// LayoutOf returns the host memory layout of scalar type T.
func LayoutOf[T Texel]() device.FormatLayout {
	var zero T
	switch any(zero).(type) {
	case float32:
		return device.LayoutF32
	case uint8:
		return device.LayoutU8
	case uint16:
		return device.LayoutU16
	case uint32:
		return device.LayoutU32
	case int8:
		return device.LayoutI8
	case int16:
		return device.LayoutI16
	default:
		return device.LayoutI32
	}
}

// Array is a row-major array of texels with one to three dimensions.
// Each element of the array is a texel of Components scalars.
//
// Shape lists dimensions outermost first, like a C array: {height, width}
// for a 2D image, {depth, height, width} for a 3D image. Strides, in
// texels, may describe a view into a larger buffer; nil means the array
// is contiguous.
type Array[T Texel] struct {
	Shape      []int
	Components int
	Strides    []int
	Data       []T
}

// NewArray wraps contiguous data as an array of the given shape.
func NewArray[T Texel](data []T, components int, shape ...int) Array[T] {
	return Array[T]{Shape: shape, Components: components, Data: data}
}

// Contiguous reports whether the strides describe a packed row-major
// array.
func (a Array[T]) Contiguous() bool {
	if a.Strides == nil {
		return true
	}
	if len(a.Strides) != len(a.Shape) {
		return false
	}
	want := 1
	for i := len(a.Shape) - 1; i >= 0; i-- {
		if a.Shape[i] > 1 && a.Strides[i] != want {
			return false
		}
		want *= a.Shape[i]
	}
	return true
}

// ImageType returns the image type matching the array's shape.
func (a Array[T]) ImageType() (device.ImageType, error) {
	for _, s := range a.Shape {
		if s <= 0 || uint64(s) > math.MaxUint32 {
			return device.ImageType{}, fmt.Errorf("%w: shape %v", ErrBadDataLayout, a.Shape)
		}
	}
	switch len(a.Shape) {
	case 1:
		return device.D1(uint32(a.Shape[0]), 1), nil
	case 2:
		return device.D2(uint32(a.Shape[1]), uint32(a.Shape[0]), 1, 1), nil
	case 3:
		return device.D3(uint32(a.Shape[2]), uint32(a.Shape[1]), uint32(a.Shape[0])), nil
	default:
		return device.ImageType{}, fmt.Errorf("%w: %d dimensions", ErrBadDataLayout, len(a.Shape))
	}
}

// Format returns the image format for the array's texels.
func (a Array[T]) Format() (device.Format, error) {
	base, ok := device.BaseFormatFor(a.Components)
	if !ok {
		return device.FormatUndefined, fmt.Errorf("%w: %d components", ErrImproperDataFormat, a.Components)
	}
	f, ok := device.FormatFrom(base, LayoutOf[T]())
	if !ok {
		return device.FormatUndefined, fmt.Errorf("%w: no %s format for %s", ErrImproperDataFormat, base, LayoutOf[T]())
	}
	return f, nil
}

// bytesOf reinterprets a texel slice as bytes in host order.
func bytesOf[T Texel](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*int(unsafe.Sizeof(zero)))
}

// CreateImageFromData creates an image from structured data and uploads
// it to mip level 0. The image dimensionality follows the array's rank and
// its format follows the component count and scalar type. When
// genMipmaps is set the remaining levels are generated from level 0.
//
// Non-contiguous arrays and element types without a matching format fail
// with ErrImproperDataFormat; arrays whose length does not match their
// shape fail with ErrBadDataLayout. No image is left behind on failure.
func CreateImageFromData[T Texel](m *Manager, a Array[T], levels uint32, genMipmaps bool) (ImageID, error) {
	if !a.Contiguous() {
		return ImageID{}, fmt.Errorf("%w: array is not contiguous", ErrImproperDataFormat)
	}
	t, err := a.ImageType()
	if err != nil {
		return ImageID{}, err
	}
	format, err := a.Format()
	if err != nil {
		return ImageID{}, err
	}
	if want := t.Texels() * a.Components; len(a.Data) != want {
		return ImageID{}, fmt.Errorf("%w: %d scalars for shape %v x%d, want %d",
			ErrBadDataLayout, len(a.Data), a.Shape, a.Components, want)
	}

	id, err := m.CreateImage(t, format, levels)
	if err != nil {
		return ImageID{}, err
	}
	img, _ := m.images.Get(id)

	layout := device.PackedLayout(format.Base(), format.Layout())
	if err := m.dev.WriteImage(img.native, device.WholeLevel(t, 0), layout, bytesOf(a.Data)); err != nil {
		m.DeleteImage(id)
		return ImageID{}, fmt.Errorf("images: upload %v: %w", id, err)
	}
	if genMipmaps {
		if err := m.dev.GenerateMipmaps(img.native); err != nil {
			m.DeleteImage(id)
			return ImageID{}, fmt.Errorf("images: generate mipmaps for %v: %w", id, err)
		}
	}
	return id, nil
}

// TexelData reads back mip level 0 of an image, every layer, as scalars
// of type T. The result holds texels × components values.
func TexelData[T Texel](m *Manager, id ImageID) ([]T, error) {
	img, ok := m.images.Get(id)
	if !ok {
		return nil, &MissingImageError{ID: id}
	}
	out := make([]T, img.typ.Texels()*img.format.Components())
	layout := device.PackedLayout(img.format.Base(), LayoutOf[T]())
	if err := m.dev.ReadImage(img.native, device.WholeLevel(img.typ, 0), layout, bytesOf(out)); err != nil {
		return nil, fmt.Errorf("images: read back %v: %w", id, err)
	}
	return out, nil
}
