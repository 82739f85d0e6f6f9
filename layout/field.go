package layout

import (
	"fmt"
	"image/color"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// VertexField is the set of types that may appear as fields of a vertex
// record. Using any other type in FieldOf is a compile error.
//
// Terms are exact types: mgl32.Mat2 and mgl32.Vec4 share an underlying
// type but describe different attribute layouts.
type VertexField interface {
	float32 | float64 | int32 | uint32 |
		[1]float32 | [2]float32 | [3]float32 | [4]float32 |
		[1]float64 | [2]float64 | [3]float64 | [4]float64 |
		[2]int32 | [3]int32 | [4]int32 |
		[2]uint32 | [3]uint32 | [4]uint32 |
		[2][2]float32 | [3][3]float32 | [4][4]float32 |
		[3]uint8 | [4]uint8 |
		mgl32.Vec2 | mgl32.Vec3 | mgl32.Vec4 |
		mgl64.Vec2 | mgl64.Vec3 | mgl64.Vec4 |
		mgl32.Mat2 | mgl32.Mat3 | mgl32.Mat4 |
		mgl32.Quat |
		color.RGBA | color.NRGBA
}

// Field describes one vertex field: where it lives in the record and how
// many attribute slots it occupies.
type Field struct {
	// Offset is the true byte offset of the field inside its record,
	// including any padding the compiler inserted before it.
	Offset uint32

	// Format is the format of every slot of the field.
	Format Format

	// Slots is the number of consecutive shader locations the field
	// occupies. Matrices take one slot per column.
	Slots uint32

	// SlotSize is the byte distance between consecutive slots.
	SlotSize uint32
}

// FieldOf describes field f of record v. f must point inside *v:
//
//	func (v *Vertex) Fields() []layout.Field {
//		return []layout.Field{
//			layout.FieldOf(v, &v.Pos),
//			layout.FieldOf(v, &v.Normal),
//		}
//	}
//
// FieldOf panics if f does not point inside *v.
func FieldOf[V any, F VertexField](v *V, f *F) Field {
	base := uintptr(unsafe.Pointer(v))
	addr := uintptr(unsafe.Pointer(f))
	if addr < base || addr+unsafe.Sizeof(*f) > base+unsafe.Sizeof(*v) {
		panic(fmt.Sprintf("layout: field %T is not inside record %T", *f, *v))
	}
	format, slots, size := describe[F]()
	return Field{
		Offset:   uint32(addr - base),
		Format:   format,
		Slots:    slots,
		SlotSize: size,
	}
}

// describe returns the attribute format, slot count and slot size of a
// vertex field type.
func describe[F VertexField]() (Format, uint32, uint32) {
	var zero F
	switch any(zero).(type) {
	case float32, [1]float32:
		return Float32, 1, 4
	case [2]float32, mgl32.Vec2:
		return Float32x2, 1, 8
	case [3]float32, mgl32.Vec3:
		return Float32x3, 1, 12
	case [4]float32, mgl32.Vec4, mgl32.Quat:
		return Float32x4, 1, 16
	case float64, [1]float64:
		return Float64, 1, 8
	case [2]float64, mgl64.Vec2:
		return Float64x2, 1, 16
	case [3]float64, mgl64.Vec3:
		return Float64x3, 1, 24
	case [4]float64, mgl64.Vec4:
		return Float64x4, 1, 32
	case int32:
		return Int32, 1, 4
	case [2]int32:
		return Int32x2, 1, 8
	case [3]int32:
		return Int32x3, 1, 12
	case [4]int32:
		return Int32x4, 1, 16
	case uint32:
		return Uint32, 1, 4
	case [2]uint32:
		return Uint32x2, 1, 8
	case [3]uint32:
		return Uint32x3, 1, 12
	case [4]uint32:
		return Uint32x4, 1, 16
	case [2][2]float32, mgl32.Mat2:
		return Float32x2, 2, 8
	case [3][3]float32, mgl32.Mat3:
		return Float32x3, 3, 12
	case [4][4]float32, mgl32.Mat4:
		return Float32x4, 4, 16
	case [3]uint8:
		return Unorm8x3, 1, 3
	case [4]uint8, color.RGBA, color.NRGBA:
		return Unorm8x4, 1, 4
	}
	// Unreachable: the switch covers every VertexField term.
	panic(fmt.Sprintf("layout: no descriptor for %T", zero))
}
