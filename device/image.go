package device

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Dimension is the dimensionality of an image.
type Dimension uint8

// Image dimensionalities.
const (
	Dim1D Dimension = iota + 1
	Dim2D
	Dim3D
)

// String returns "1D", "2D" or "3D".
func (d Dimension) String() string {
	switch d {
	case Dim1D:
		return "1D"
	case Dim2D:
		return "2D"
	case Dim3D:
		return "3D"
	default:
		return fmt.Sprintf("Dimension(%d)", d)
	}
}

// TextureDimension converts to the WebGPU texture dimension.
func (d Dimension) TextureDimension() gputypes.TextureDimension {
	switch d {
	case Dim1D:
		return gputypes.TextureDimension1D
	case Dim2D:
		return gputypes.TextureDimension2D
	case Dim3D:
		return gputypes.TextureDimension3D
	default:
		return gputypes.TextureDimensionUndefined
	}
}

// ImageType describes the shape of an image. Build one with D1, D2 or D3.
type ImageType struct {
	Dim     Dimension
	Width   uint32
	Height  uint32
	Depth   uint32
	Layers  uint32
	Samples uint32
}

// D1 returns a one-dimensional image type with the given array layers.
func D1(width, layers uint32) ImageType {
	return ImageType{Dim: Dim1D, Width: width, Height: 1, Depth: 1, Layers: layers, Samples: 1}
}

// D2 returns a two-dimensional image type.
func D2(width, height, layers, samples uint32) ImageType {
	return ImageType{Dim: Dim2D, Width: width, Height: height, Depth: 1, Layers: layers, Samples: samples}
}

// D3 returns a three-dimensional image type. 3D images have one layer.
func D3(width, height, depth uint32) ImageType {
	return ImageType{Dim: Dim3D, Width: width, Height: height, Depth: depth, Layers: 1, Samples: 1}
}

func (t ImageType) String() string {
	switch t.Dim {
	case Dim1D:
		return fmt.Sprintf("1D{%d x%d}", t.Width, t.Layers)
	case Dim2D:
		return fmt.Sprintf("2D{%dx%d x%d samples=%d}", t.Width, t.Height, t.Layers, t.Samples)
	case Dim3D:
		return fmt.Sprintf("3D{%dx%dx%d}", t.Width, t.Height, t.Depth)
	default:
		return "invalid"
	}
}

// Validate reports whether the image type describes a non-empty image.
func (t ImageType) Validate() error {
	if t.Dim < Dim1D || t.Dim > Dim3D {
		return fmt.Errorf("%w: dimension %d", ErrInvalidImageType, t.Dim)
	}
	if t.Width == 0 || t.Height == 0 || t.Depth == 0 || t.Layers == 0 || t.Samples == 0 {
		return fmt.Errorf("%w: %s has a zero extent", ErrInvalidImageType, t)
	}
	if t.Dim == Dim3D && t.Layers != 1 {
		return fmt.Errorf("%w: 3D images cannot be layered", ErrInvalidImageType)
	}
	return nil
}

// ArrayLayers returns the number of array layers; 3D images have one.
func (t ImageType) ArrayLayers() uint32 {
	if t.Dim == Dim3D {
		return 1
	}
	return t.Layers
}

// Texels returns the number of texels in mip level 0 across all layers.
func (t ImageType) Texels() int {
	return int(t.Width) * int(t.Height) * int(t.Depth) * int(t.ArrayLayers())
}

// Extent returns the size of mip level 0 of one layer.
func (t ImageType) Extent() gputypes.Extent3D {
	return gputypes.Extent3D{Width: t.Width, Height: t.Height, DepthOrArrayLayers: t.Depth}
}

// LevelExtent returns the size of a mip level of one layer.
func (t ImageType) LevelExtent(level uint32) gputypes.Extent3D {
	shrink := func(v uint32) uint32 { return max(1, v>>level) }
	e := gputypes.Extent3D{Width: shrink(t.Width), Height: 1, DepthOrArrayLayers: 1}
	if t.Dim >= Dim2D {
		e.Height = shrink(t.Height)
	}
	if t.Dim == Dim3D {
		e.DepthOrArrayLayers = shrink(t.Depth)
	}
	return e
}

// MaxLevels returns the length of the full mip chain for the image.
func (t ImageType) MaxLevels() uint32 {
	m := max(t.Width, t.Height, t.Depth)
	n := uint32(1)
	for m > 1 {
		m >>= 1
		n++
	}
	return n
}

// ViewType returns the view type covering the whole image: the array
// variant when the image has more than one layer.
func (t ImageType) ViewType() ImageViewType {
	switch t.Dim {
	case Dim1D:
		if t.Layers == 1 {
			return View1D
		}
		return View1DArray
	case Dim2D:
		if t.Layers == 1 {
			return View2D
		}
		return View2DArray
	default:
		return View3D
	}
}

// ImageViewType is the type of an image view.
type ImageViewType uint8

// View types.
const (
	View1D ImageViewType = iota + 1
	View1DArray
	View2D
	View2DArray
	View3D
)

func (v ImageViewType) String() string {
	switch v {
	case View1D:
		return "1D"
	case View1DArray:
		return "1DArray"
	case View2D:
		return "2D"
	case View2DArray:
		return "2DArray"
	case View3D:
		return "3D"
	default:
		return fmt.Sprintf("ImageViewType(%d)", v)
	}
}

// TextureViewDimension converts to the WebGPU view dimension. WebGPU has
// no 1D array views.
func (v ImageViewType) TextureViewDimension() (gputypes.TextureViewDimension, bool) {
	switch v {
	case View1D:
		return gputypes.TextureViewDimension1D, true
	case View2D:
		return gputypes.TextureViewDimension2D, true
	case View2DArray:
		return gputypes.TextureViewDimension2DArray, true
	case View3D:
		return gputypes.TextureViewDimension3D, true
	default:
		return gputypes.TextureViewDimensionUndefined, false
	}
}

// SubresourceRange selects mip levels and array layers of an image.
type SubresourceRange struct {
	BaseLevel uint32
	Levels    uint32
	BaseLayer uint32
	Layers    uint32
}

// Region addresses a box of texels within one mip level and a range of
// array layers.
type Region struct {
	Level     uint32
	Offset    gputypes.Origin3D
	Extent    gputypes.Extent3D
	BaseLayer uint32
	Layers    uint32
}

// Texels returns the number of texels in the region.
func (r Region) Texels() int {
	return int(r.Extent.Width) * int(r.Extent.Height) * int(r.Extent.DepthOrArrayLayers) * int(max(r.Layers, 1))
}

// WholeLevel returns the region covering every layer of the given mip level.
func WholeLevel(t ImageType, level uint32) Region {
	return Region{Level: level, Extent: t.LevelExtent(level), Layers: t.ArrayLayers()}
}

// MemoryLayout describes texel data in host memory.
type MemoryLayout struct {
	Base   BaseFormat
	Layout FormatLayout

	// RowLength is the row pitch in texels; zero means tightly packed.
	RowLength uint32
	// ImageHeight is the number of rows per image slice; zero means tightly packed.
	ImageHeight uint32
	// Alignment is the row alignment in bytes (1, 2, 4 or 8).
	Alignment uint32
}

// PackedLayout returns a tightly packed layout with byte alignment.
func PackedLayout(base BaseFormat, layout FormatLayout) MemoryLayout {
	return MemoryLayout{Base: base, Layout: layout, Alignment: 1}
}

// TexelSize returns the size of one texel in bytes.
func (m MemoryLayout) TexelSize() int { return m.Base.Components() * m.Layout.Size() }

// RowPitch returns the byte distance between rows for the given width.
func (m MemoryLayout) RowPitch(width uint32) int {
	rl := m.RowLength
	if rl == 0 {
		rl = width
	}
	pitch := int(rl) * m.TexelSize()
	if a := int(m.Alignment); a > 1 {
		pitch = (pitch + a - 1) / a * a
	}
	return pitch
}

// Size returns the number of bytes the layout needs for region r.
func (m MemoryLayout) Size(r Region) int {
	rows := int(m.ImageHeight)
	if rows == 0 {
		rows = int(r.Extent.Height)
	}
	slices := int(r.Extent.DepthOrArrayLayers) * int(max(r.Layers, 1))
	if slices == 0 || r.Extent.Height == 0 {
		return 0
	}
	// The last row of the last slice needs no trailing padding.
	pitch := m.RowPitch(r.Extent.Width)
	return ((slices-1)*rows+int(r.Extent.Height)-1)*pitch + int(r.Extent.Width)*m.TexelSize()
}
