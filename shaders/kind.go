package shaders

import (
	"fmt"

	"github.com/gogpu/gpures/device"
)

// Kind is the kind of pipeline a set of shaders links into.
type Kind uint8

// Pipeline kinds, in the order inference tries them.
const (
	Graphics Kind = iota + 1
	Compute
	Mesh
)

var kinds = [...]Kind{Graphics, Compute, Mesh}

func (k Kind) String() string {
	switch k {
	case Graphics:
		return "graphics"
	case Compute:
		return "compute"
	case Mesh:
		return "mesh"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Accepts reports whether a shader of the given stage may be part of a
// pipeline of this kind.
func (k Kind) Accepts(s device.ShaderStage) bool {
	switch k {
	case Graphics:
		switch s {
		case device.StageVertex, device.StageTessControl, device.StageTessEval,
			device.StageGeometry, device.StageFragment:
			return true
		}
	case Compute:
		return s == device.StageCompute
	case Mesh:
		switch s {
		case device.StageMesh, device.StageTask, device.StageFragment:
			return true
		}
	}
	return false
}

// acceptsAll reports whether every shader in descs fits kind k.
func (k Kind) acceptsAll(descs []Desc) bool {
	for _, d := range descs {
		if !k.Accepts(d.Stage) {
			return false
		}
	}
	return true
}

// InferKind returns the first kind, trying Graphics, Compute and Mesh in
// that order, that accepts every shader in descs.
func InferKind(descs []Desc) (Kind, bool) {
	if len(descs) == 0 {
		return 0, false
	}
	for _, k := range kinds {
		if k.acceptsAll(descs) {
			return k, true
		}
	}
	return 0, false
}
