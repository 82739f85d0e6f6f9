package shaders

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gogpu/gpures/device"
)

// Source is where a shader's text comes from: a file, read again on
// every (re)load, or a literal string. Source values are comparable.
type Source struct {
	path    string
	literal string
	isFile  bool
}

// File returns a source read from path.
func File(path string) Source {
	return Source{path: path, isFile: true}
}

// Literal returns a source holding text directly.
func Literal(text string) Source {
	return Source{literal: text}
}

// Path returns the file path of a file source.
func (s Source) Path() (string, bool) {
	return s.path, s.isFile
}

// String describes the source for diagnostics. Literals are shortened to
// their first 100 characters.
func (s Source) String() string {
	if s.isFile {
		return fmt.Sprintf("file(%q)", s.path)
	}
	text := s.literal
	if r := []rune(text); len(r) > 100 {
		text = string(r[:100])
	}
	return fmt.Sprintf("literal(%q)", text)
}

// Desc is the recipe for one shader: its source and stage.
type Desc struct {
	Source Source
	Stage  device.ShaderStage
}

// FromFile describes a shader read from path.
func FromFile(path string, stage device.ShaderStage) Desc {
	return Desc{Source: File(path), Stage: stage}
}

// FromLiteral describes a shader compiled from text.
func FromLiteral(text string, stage device.ShaderStage) Desc {
	return Desc{Source: Literal(text), Stage: stage}
}

func (d Desc) String() string {
	return d.Stage.String() + " " + d.Source.String()
}

var stageExts = []struct {
	ext   string
	stage device.ShaderStage
}{
	{".vert", device.StageVertex},
	{".frag", device.StageFragment},
	{".comp", device.StageCompute},
	{".geom", device.StageGeometry},
	{".tesc", device.StageTessControl},
	{".tese", device.StageTessEval},
	{".mesh", device.StageMesh},
	{".task", device.StageTask},
}

// StageFromPath infers a shader stage from a file name: .vert, .frag,
// .comp, .geom, .tesc, .tese, .mesh or .task, optionally followed by a
// .glsl or .wgsl suffix ("blur.comp.wgsl").
func StageFromPath(path string) (device.ShaderStage, error) {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".glsl")
	name = strings.TrimSuffix(name, ".wgsl")
	for _, e := range stageExts {
		if strings.HasSuffix(name, e.ext) {
			return e.stage, nil
		}
	}
	return 0, &UnknownStageError{Path: path}
}
