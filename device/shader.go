package device

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ShaderStage is one programmable stage of the GPU pipeline.
type ShaderStage uint8

// Shader stages.
const (
	StageVertex ShaderStage = iota + 1
	StageTessControl
	StageTessEval
	StageGeometry
	StageFragment
	StageCompute
	StageTask
	StageMesh
)

var stageNames = [...]string{
	StageVertex:      "vertex",
	StageTessControl: "tessellation-control",
	StageTessEval:    "tessellation-evaluation",
	StageGeometry:    "geometry",
	StageFragment:    "fragment",
	StageCompute:     "compute",
	StageTask:        "task",
	StageMesh:        "mesh",
}

func (s ShaderStage) String() string {
	if s >= StageVertex && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("ShaderStage(%d)", s)
}

// ConstantKind identifies the value stored in a Constant.
type ConstantKind uint8

// Constant kinds.
const (
	ConstU32 ConstantKind = iota + 1
	ConstI32
	ConstF32
	ConstVec2
	ConstVec3
	ConstVec4
	ConstMat2
	ConstMat3
	ConstMat4
)

// Components returns the number of 32-bit words the constant occupies.
func (k ConstantKind) Components() int {
	switch k {
	case ConstU32, ConstI32, ConstF32:
		return 1
	case ConstVec2:
		return 2
	case ConstVec3:
		return 3
	case ConstVec4, ConstMat2:
		return 4
	case ConstMat3:
		return 9
	case ConstMat4:
		return 16
	default:
		return 0
	}
}

// Constant is a uniform constant value bound to consecutive uniform
// locations of a pipeline.
type Constant struct {
	kind ConstantKind
	u    uint32
	i    int32
	f    [16]float32
}

// Uint returns a uint32 constant.
func Uint(v uint32) Constant { return Constant{kind: ConstU32, u: v} }

// Int returns an int32 constant.
func Int(v int32) Constant { return Constant{kind: ConstI32, i: v} }

// Float returns a float32 constant.
func Float(v float32) Constant {
	c := Constant{kind: ConstF32}
	c.f[0] = v
	return c
}

// Vec2 returns a two-component vector constant.
func Vec2(v mgl32.Vec2) Constant { return floats(ConstVec2, v[:]) }

// Vec3 returns a three-component vector constant.
func Vec3(v mgl32.Vec3) Constant { return floats(ConstVec3, v[:]) }

// Vec4 returns a four-component vector constant.
func Vec4(v mgl32.Vec4) Constant { return floats(ConstVec4, v[:]) }

// Mat2 returns a column-major 2x2 matrix constant.
func Mat2(m mgl32.Mat2) Constant { return floats(ConstMat2, m[:]) }

// Mat3 returns a column-major 3x3 matrix constant.
func Mat3(m mgl32.Mat3) Constant { return floats(ConstMat3, m[:]) }

// Mat4 returns a column-major 4x4 matrix constant.
func Mat4(m mgl32.Mat4) Constant { return floats(ConstMat4, m[:]) }

func floats(k ConstantKind, v []float32) Constant {
	c := Constant{kind: k}
	copy(c.f[:], v)
	return c
}

// Kind returns the kind of value stored.
func (c Constant) Kind() ConstantKind { return c.kind }

// Uint32 returns the value of a ConstU32.
func (c Constant) Uint32() uint32 { return c.u }

// Int32 returns the value of a ConstI32.
func (c Constant) Int32() int32 { return c.i }

// Floats returns the float components of a float, vector or matrix
// constant, column-major for matrices.
func (c Constant) Floats() []float32 {
	switch c.kind {
	case ConstU32, ConstI32:
		return nil
	}
	return c.f[:c.kind.Components()]
}

func (c Constant) String() string {
	switch c.kind {
	case ConstU32:
		return fmt.Sprintf("u32(%d)", c.u)
	case ConstI32:
		return fmt.Sprintf("i32(%d)", c.i)
	case 0:
		return "invalid"
	default:
		return fmt.Sprintf("%v", c.Floats())
	}
}
