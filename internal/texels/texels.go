// Package texels keeps host copies of image data for devices that cannot
// read GPU memory back synchronously.
package texels

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gpures/device"
)

// Image is the host copy of every mip level of an image. Level data is
// tightly packed in the image's own format, ordered by layer, then slice,
// then row.
type Image struct {
	Type   device.ImageType
	Format device.Format
	Levels [][]byte
}

// New allocates zeroed storage for levels mip levels.
func New(t device.ImageType, f device.Format, levels uint32) *Image {
	im := &Image{Type: t, Format: f, Levels: make([][]byte, levels)}
	for l := range im.Levels {
		e := t.LevelExtent(uint32(l))
		n := int(e.Width) * int(e.Height) * int(e.DepthOrArrayLayers) * int(t.ArrayLayers())
		im.Levels[l] = make([]byte, n*f.BytesPerPixel())
	}
	return im
}

// Size returns the total number of bytes held.
func (im *Image) Size() int {
	n := 0
	for _, l := range im.Levels {
		n += len(l)
	}
	return n
}

func (im *Image) check(r device.Region, layout device.MemoryLayout, n int, convert bool) error {
	if layout.Base != im.Format.Base() || (!convert && layout.Layout != im.Format.Layout()) {
		return fmt.Errorf("%w: host layout %s/%s for %s image", device.ErrUnsupported, layout.Base, layout.Layout, im.Format)
	}
	if layout.Layout.Size() == 0 {
		return fmt.Errorf("%w: host layout %s", device.ErrUnsupported, layout.Layout)
	}
	if int(r.Level) >= len(im.Levels) {
		return fmt.Errorf("%w: level %d of %d", device.ErrBadRegion, r.Level, len(im.Levels))
	}
	e := im.Type.LevelExtent(r.Level)
	layers := max(r.Layers, 1)
	if r.Offset.X+r.Extent.Width > e.Width ||
		r.Offset.Y+r.Extent.Height > e.Height ||
		r.Offset.Z+r.Extent.DepthOrArrayLayers > e.DepthOrArrayLayers ||
		r.BaseLayer+layers > im.Type.ArrayLayers() {
		return fmt.Errorf("%w: region outside level %d", device.ErrBadRegion, r.Level)
	}
	if need := layout.Size(r); n < need {
		return fmt.Errorf("%w: host buffer holds %d bytes, need %d", device.ErrBadRegion, n, need)
	}
	return nil
}

// each calls fn for every row of region r with the byte offsets of the
// row in host memory and in level storage.
func (im *Image) each(r device.Region, layout device.MemoryLayout, fn func(host, store, n int)) {
	e := im.Type.LevelExtent(r.Level)
	bpp := im.Format.BytesPerPixel()
	pitch := layout.RowPitch(r.Extent.Width)
	rows := int(layout.ImageHeight)
	if rows == 0 {
		rows = int(r.Extent.Height)
	}
	rowBytes := int(r.Extent.Width) * bpp

	slice := 0
	for layer := range max(r.Layers, 1) {
		for z := range r.Extent.DepthOrArrayLayers {
			for y := range r.Extent.Height {
				host := (slice*rows + int(y)) * pitch
				sl := int(r.BaseLayer+layer)*int(e.DepthOrArrayLayers) + int(r.Offset.Z+z)
				store := ((sl*int(e.Height)+int(r.Offset.Y+y))*int(e.Width) + int(r.Offset.X)) * bpp
				fn(host, store, rowBytes)
			}
			slice++
		}
	}
}

// Write copies host data into region r. The host layout must match the
// image format.
func (im *Image) Write(r device.Region, layout device.MemoryLayout, data []byte) error {
	if err := im.check(r, layout, len(data), false); err != nil {
		return err
	}
	lvl := im.Levels[r.Level]
	im.each(r, layout, func(host, store, n int) {
		copy(lvl[store:store+n], data[host:host+n])
	})
	return nil
}

// Read copies region r into dst, converting each channel to the host
// scalar type. Normalized and float images convert to integer host types
// as normalized values; integer images convert by value, clamped to the
// host range.
func (im *Image) Read(r device.Region, layout device.MemoryLayout, dst []byte) error {
	if err := im.check(r, layout, len(dst), true); err != nil {
		return err
	}
	lvl := im.Levels[r.Level]
	from, to := im.Format.Layout(), layout.Layout
	if from == to {
		im.each(r, layout, func(host, store, n int) {
			copy(dst[host:host+n], lvl[store:store+n])
		})
		return nil
	}
	fs, ts := from.Size(), to.Size()
	normalized := !integer(from)
	im.each(r, layout, func(host, store, n int) {
		for i := range n / fs {
			v := decode(from, lvl[store+i*fs:])
			encode(to, dst[host+i*ts:], convert(from, to, v, normalized))
		}
	})
	return nil
}

// integer reports whether l holds unnormalized integer channels. 8-bit
// unsigned images are normalized.
func integer(l device.FormatLayout) bool {
	return l != device.LayoutF32 && l != device.LayoutU8
}

// convert maps a stored channel value of layout from to the value encoded
// for layout to.
func convert(from, to device.FormatLayout, v float64, normalized bool) float64 {
	if from == device.LayoutU8 {
		v /= math.MaxUint8
	}
	lo, hi := bounds(to)
	if !normalized || to == device.LayoutF32 {
		return min(max(v, lo), hi)
	}
	if lo < 0 {
		return min(max(v, -1), 1) * hi
	}
	return min(max(v, 0), 1) * hi
}

// bounds returns the representable range of l.
func bounds(l device.FormatLayout) (lo, hi float64) {
	switch l {
	case device.LayoutU8:
		return 0, math.MaxUint8
	case device.LayoutI8:
		return math.MinInt8, math.MaxInt8
	case device.LayoutU16:
		return 0, math.MaxUint16
	case device.LayoutI16:
		return math.MinInt16, math.MaxInt16
	case device.LayoutU32:
		return 0, math.MaxUint32
	case device.LayoutI32:
		return math.MinInt32, math.MaxInt32
	default:
		return math.Inf(-1), math.Inf(1)
	}
}

// GenerateMipmaps rebuilds levels 1..n from level 0 with a box filter.
func (im *Image) GenerateMipmaps() {
	comps := im.Format.Components()
	size := im.Format.Layout().Size()
	bpp := im.Format.BytesPerPixel()
	layers := int(im.Type.ArrayLayers())

	for l := 1; l < len(im.Levels); l++ {
		src, dst := im.Levels[l-1], im.Levels[l]
		se := im.Type.LevelExtent(uint32(l - 1))
		de := im.Type.LevelExtent(uint32(l))
		sw, sh, sd := int(se.Width), int(se.Height), int(se.DepthOrArrayLayers)
		dw, dh, dd := int(de.Width), int(de.Height), int(de.DepthOrArrayLayers)

		for layer := range layers {
			for z := range dd {
				for y := range dh {
					for x := range dw {
						di := (((layer*dd+z)*dh+y)*dw + x) * bpp
						for c := range comps {
							var sum float64
							var n int
							for _, sz := range footprint(z, sd) {
								for _, sy := range footprint(y, sh) {
									for _, sx := range footprint(x, sw) {
										si := (((layer*sd+sz)*sh+sy)*sw+sx)*bpp + c*size
										sum += decode(im.Format.Layout(), src[si:])
										n++
									}
								}
							}
							encode(im.Format.Layout(), dst[di+c*size:], sum/float64(n))
						}
					}
				}
			}
		}
	}
}

// footprint returns the source coordinates a destination coordinate
// averages over.
func footprint(d, srcLen int) []int {
	if srcLen == 1 {
		return []int{0}
	}
	a := 2 * d
	b := min(a+1, srcLen-1)
	if a == b {
		return []int{a}
	}
	return []int{a, b}
}

func decode(l device.FormatLayout, b []byte) float64 {
	switch l {
	case device.LayoutF32:
		return float64(math.Float32frombits(binary.NativeEndian.Uint32(b)))
	case device.LayoutU8:
		return float64(b[0])
	case device.LayoutI8:
		return float64(int8(b[0]))
	case device.LayoutU16:
		return float64(binary.NativeEndian.Uint16(b))
	case device.LayoutI16:
		return float64(int16(binary.NativeEndian.Uint16(b)))
	case device.LayoutU32:
		return float64(binary.NativeEndian.Uint32(b))
	case device.LayoutI32:
		return float64(int32(binary.NativeEndian.Uint32(b)))
	default:
		return 0
	}
}

func encode(l device.FormatLayout, b []byte, v float64) {
	if l != device.LayoutF32 {
		v = math.Round(v)
	}
	switch l {
	case device.LayoutF32:
		binary.NativeEndian.PutUint32(b, math.Float32bits(float32(v)))
	case device.LayoutU8:
		b[0] = uint8(v)
	case device.LayoutI8:
		b[0] = uint8(int8(v))
	case device.LayoutU16:
		binary.NativeEndian.PutUint16(b, uint16(v))
	case device.LayoutI16:
		binary.NativeEndian.PutUint16(b, uint16(int16(v)))
	case device.LayoutU32:
		binary.NativeEndian.PutUint32(b, uint32(v))
	case device.LayoutI32:
		binary.NativeEndian.PutUint32(b, uint32(int32(v)))
	}
}
