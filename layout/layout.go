// Package layout derives GPU vertex attribute descriptors from Go vertex
// record types.
//
// A vertex record lists its fields once, through FieldOf:
//
//	type Vertex struct {
//		Pos   mgl32.Vec3
//		Color mgl32.Vec4
//	}
//
//	func (v *Vertex) Fields() []layout.Field {
//		return []layout.Field{
//			layout.FieldOf(v, &v.Pos),
//			layout.FieldOf(v, &v.Color),
//		}
//	}
//
// Attribs then yields one Attribute per shader location. Offsets are the
// real offsets the Go compiler chose, so padding between mixed-alignment
// fields is reflected exactly. Field types outside VertexField do not
// compile. The vertexgen command writes Fields methods for existing
// structs.
package layout

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"unsafe"

	"github.com/gogpu/gputypes"
)

// ErrUnsupportedFormat is returned by BufferLayout when an attribute has
// no WebGPU vertex format.
var ErrUnsupportedFormat = errors.New("layout: attribute format has no WebGPU vertex format")

// Vertex is implemented by pointers to vertex record types.
type Vertex interface {
	Fields() []Field
}

// Attribute is a single vertex attribute descriptor.
type Attribute struct {
	Binding  uint32
	Location uint32
	Format   Format
	Offset   uint32
}

func (a Attribute) String() string {
	return fmt.Sprintf("binding=%d location=%d format=%s offset=%d", a.Binding, a.Location, a.Format, a.Offset)
}

// Attribs returns the attribute descriptors of record type V. Every
// descriptor carries binding; locations start at start and advance by one
// per slot, fields in declaration order and slots in column order.
func Attribs[V any, PV interface {
	*V
	Vertex
}](binding, start uint32) []Attribute {
	var v V
	return attribsOf(PV(&v).Fields(), binding, start)
}

func attribsOf(fields []Field, binding, start uint32) []Attribute {
	// Go lays struct fields out in declaration order, so offset order is
	// declaration order even if Fields lists them differently.
	fields = slices.Clone(fields)
	slices.SortStableFunc(fields, func(a, b Field) int { return cmp.Compare(a.Offset, b.Offset) })

	n := 0
	for _, f := range fields {
		n += int(f.Slots)
	}
	attrs := make([]Attribute, 0, n)
	loc := start
	for _, f := range fields {
		for slot := range f.Slots {
			attrs = append(attrs, Attribute{
				Binding:  binding,
				Location: loc,
				Format:   f.Format,
				Offset:   f.Offset + slot*f.SlotSize,
			})
			loc++
		}
	}
	return attrs
}

// Stride returns the size of V in bytes, which is the distance between
// consecutive vertices in a tightly packed buffer.
func Stride[V any]() uint32 {
	var v V
	return uint32(unsafe.Sizeof(v))
}

// BufferLayout describes a vertex buffer holding a packed array of V for
// a WebGPU render pipeline. Attribute locations start at start.
func BufferLayout[V any, PV interface {
	*V
	Vertex
}](binding, start uint32) (gputypes.VertexBufferLayout, error) {
	attrs := Attribs[V, PV](binding, start)
	out := make([]gputypes.VertexAttribute, len(attrs))
	for i, a := range attrs {
		vf, ok := a.Format.VertexFormat()
		if !ok {
			return gputypes.VertexBufferLayout{}, fmt.Errorf("%w: location %d is %s", ErrUnsupportedFormat, a.Location, a.Format)
		}
		out[i] = gputypes.VertexAttribute{
			Format:         vf,
			Offset:         uint64(a.Offset),
			ShaderLocation: a.Location,
		}
	}
	return gputypes.VertexBufferLayout{
		ArrayStride: uint64(Stride[V]()),
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  out,
	}, nil
}
