package layout

import (
	"errors"
	"image/color"
	"slices"
	"testing"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/gogpu/gputypes"
)

type scalars struct {
	A float32
	B float32
	C float64
}

func (v *scalars) Fields() []Field {
	return []Field{FieldOf(v, &v.A), FieldOf(v, &v.B), FieldOf(v, &v.C)}
}

type matrix2 struct {
	A mgl32.Mat2
}

func (v *matrix2) Fields() []Field { return []Field{FieldOf(v, &v.A)} }

type padded struct {
	A mgl32.Vec3
	B mgl64.Vec2
}

func (v *padded) Fields() []Field { return []Field{FieldOf(v, &v.A), FieldOf(v, &v.B)} }

type vectors struct {
	V2 mgl32.Vec2
	V3 mgl32.Vec3
	V4 mgl32.Vec4
	P2 [2]float32
	P3 [3]float32
	P4 [4]float32
}

func (v *vectors) Fields() []Field {
	return []Field{
		FieldOf(v, &v.V2), FieldOf(v, &v.V3), FieldOf(v, &v.V4),
		FieldOf(v, &v.P2), FieldOf(v, &v.P3), FieldOf(v, &v.P4),
	}
}

type mixed struct {
	Pos    mgl32.Vec3
	Model  mgl32.Mat4
	Color  color.RGBA
	Normal [3][3]float32
	ID     uint32
}

func (v *mixed) Fields() []Field {
	// Listed out of order on purpose; output follows declaration order.
	return []Field{
		FieldOf(v, &v.ID), FieldOf(v, &v.Pos), FieldOf(v, &v.Normal),
		FieldOf(v, &v.Model), FieldOf(v, &v.Color),
	}
}

func TestAttribsScalars(t *testing.T) {
	got := Attribs[scalars](2, 5)
	want := []Attribute{
		{Binding: 2, Location: 5, Format: Float32, Offset: 0},
		{Binding: 2, Location: 6, Format: Float32, Offset: 4},
		{Binding: 2, Location: 7, Format: Float64, Offset: 8},
	}
	if !slices.Equal(got, want) {
		t.Errorf("Attribs[scalars] =\n%v\nwant\n%v", got, want)
	}
}

func TestAttribsMatrixSlots(t *testing.T) {
	got := Attribs[matrix2](0, 3)
	want := []Attribute{
		{Binding: 0, Location: 3, Format: Float32x2, Offset: 0},
		{Binding: 0, Location: 4, Format: Float32x2, Offset: 8},
	}
	if !slices.Equal(got, want) {
		t.Errorf("Attribs[matrix2] = %v, want %v", got, want)
	}
}

func TestAttribsTrueOffsets(t *testing.T) {
	got := Attribs[padded](0, 0)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// Vec3 is 12 bytes; the float64 vector is aligned to 8, so it starts
	// at 16 rather than at the packed sum 12.
	if got[1].Offset != 16 {
		t.Errorf("second field offset = %d, want 16", got[1].Offset)
	}
	if got[1].Format != Float64x2 {
		t.Errorf("second field format = %v, want Float64x2", got[1].Format)
	}
}

func TestAttribsVectorOffsets(t *testing.T) {
	got := Attribs[vectors](0, 0)
	wantOffsets := []uint32{0, 8, 20, 36, 44, 56}
	wantFormats := []Format{Float32x2, Float32x3, Float32x4, Float32x2, Float32x3, Float32x4}
	if len(got) != len(wantOffsets) {
		t.Fatalf("len = %d, want %d", len(got), len(wantOffsets))
	}
	for i, a := range got {
		if a.Offset != wantOffsets[i] || a.Format != wantFormats[i] || a.Location != uint32(i) {
			t.Errorf("attr %d = %v, want offset %d format %v location %d", i, a, wantOffsets[i], wantFormats[i], i)
		}
	}
}

func TestAttribsDeterminism(t *testing.T) {
	var v mixed
	const binding, start = 1, 2
	got := Attribs[mixed](binding, start)

	type slotSpec struct {
		base, size uint32
		slots      int
		format     Format
	}
	specs := []slotSpec{
		{uint32(unsafe.Offsetof(v.Pos)), 12, 1, Float32x3},
		{uint32(unsafe.Offsetof(v.Model)), 16, 4, Float32x4},
		{uint32(unsafe.Offsetof(v.Color)), 4, 1, Unorm8x4},
		{uint32(unsafe.Offsetof(v.Normal)), 12, 3, Float32x3},
		{uint32(unsafe.Offsetof(v.ID)), 4, 1, Uint32},
	}
	var want []Attribute
	loc := uint32(start)
	for _, s := range specs {
		for k := range s.slots {
			want = append(want, Attribute{Binding: binding, Location: loc, Format: s.format, Offset: s.base + uint32(k)*s.size})
			loc++
		}
	}
	if !slices.Equal(got, want) {
		t.Errorf("Attribs[mixed] =\n%v\nwant\n%v", got, want)
	}
	if again := Attribs[mixed](binding, start); !slices.Equal(got, again) {
		t.Error("Attribs is not deterministic")
	}
}

func TestFieldOfOutsideRecordPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("FieldOf with foreign pointer did not panic")
		}
	}()
	var a, b scalars
	FieldOf(&a, &b.C)
}

func TestStride(t *testing.T) {
	if got := Stride[padded](); got != 32 {
		t.Errorf("Stride[padded] = %d, want 32", got)
	}
	if got := Stride[scalars](); got != 16 {
		t.Errorf("Stride[scalars] = %d, want 16", got)
	}
}

func TestBufferLayout(t *testing.T) {
	bl, err := BufferLayout[vectors](0, 1)
	if err != nil {
		t.Fatalf("BufferLayout: %v", err)
	}
	if bl.ArrayStride != uint64(unsafe.Sizeof(vectors{})) {
		t.Errorf("ArrayStride = %d, want %d", bl.ArrayStride, unsafe.Sizeof(vectors{}))
	}
	if bl.StepMode != gputypes.VertexStepModeVertex {
		t.Errorf("StepMode = %v, want Vertex", bl.StepMode)
	}
	if len(bl.Attributes) != 6 {
		t.Fatalf("len(Attributes) = %d, want 6", len(bl.Attributes))
	}
	first := bl.Attributes[0]
	if first.Format != gputypes.VertexFormatFloat32x2 || first.ShaderLocation != 1 || first.Offset != 0 {
		t.Errorf("Attributes[0] = %+v", first)
	}
}

func TestBufferLayoutRejectsDoubles(t *testing.T) {
	_, err := BufferLayout[scalars](0, 0)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("BufferLayout[scalars] error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		f    Format
		size int
		comp int
	}{
		{Float32, 4, 1},
		{Float32x3, 12, 3},
		{Float64x2, 16, 2},
		{Uint32x4, 16, 4},
		{Unorm8x3, 3, 3},
		{Unorm8x4, 4, 4},
		{FormatUndefined, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.f.String(), func(t *testing.T) {
			if got := tt.f.Size(); got != tt.size {
				t.Errorf("Size() = %d, want %d", got, tt.size)
			}
			if got := tt.f.Components(); got != tt.comp {
				t.Errorf("Components() = %d, want %d", got, tt.comp)
			}
		})
	}
}

func TestDescribeAliasedUnderlyingTypes(t *testing.T) {
	// Mat2 and Vec4 are both [4]float32 underneath.
	if f, slots, _ := describe[mgl32.Mat2](); f != Float32x2 || slots != 2 {
		t.Errorf("Mat2 = %v x%d, want Float32x2 x2", f, slots)
	}
	if f, slots, _ := describe[mgl32.Vec4](); f != Float32x4 || slots != 1 {
		t.Errorf("Vec4 = %v x%d, want Float32x4 x1", f, slots)
	}
	if f, slots, size := describe[mgl32.Mat3](); f != Float32x3 || slots != 3 || size != 12 {
		t.Errorf("Mat3 = %v x%d size %d", f, slots, size)
	}
}
