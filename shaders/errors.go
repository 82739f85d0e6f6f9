package shaders

import (
	"errors"
	"fmt"
)

// Shader manager errors.
var (
	// ErrCompilation matches every *CompileError.
	ErrCompilation = errors.New("shaders: compilation failed")

	// ErrLink matches every *LinkError.
	ErrLink = errors.New("shaders: link failed")

	// ErrFile matches every *FileError.
	ErrFile = errors.New("shaders: cannot read shader file")

	// ErrUnknownStage matches every *UnknownStageError.
	ErrUnknownStage = errors.New("shaders: unknown shader stage")

	// ErrNoShadersToLink is returned when a pipeline is requested from an
	// empty shader list.
	ErrNoShadersToLink = errors.New("shaders: no shaders to link")

	// ErrIncompatibleShaderTypes is returned when the shader stages do not
	// fit the requested pipeline kind, or fit no kind at all.
	ErrIncompatibleShaderTypes = errors.New("shaders: incompatible shader types")

	// ErrMissingPipeline is returned when a pipeline handle does not
	// resolve to a live pipeline.
	ErrMissingPipeline = errors.New("shaders: missing pipeline")

	// ErrBadInterval is returned by Watcher.Run for a non-positive poll
	// interval.
	ErrBadInterval = errors.New("shaders: poll interval must be positive")
)

// CompileError carries the compiler log of a shader that failed to
// compile.
type CompileError struct {
	Source Source
	Log    string
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("shaders: compile %s: %s", e.Source, e.Log)
}

// Is reports whether target is ErrCompilation.
func (e *CompileError) Is(target error) bool { return target == ErrCompilation }

// Unwrap returns the device error.
func (e *CompileError) Unwrap() error { return e.Err }

// LinkError carries the linker log of a pipeline that failed to link.
type LinkError struct {
	Log string
	Err error
}

func (e *LinkError) Error() string {
	return "shaders: link: " + e.Log
}

// Is reports whether target is ErrLink.
func (e *LinkError) Is(target error) bool { return target == ErrLink }

// Unwrap returns the device error.
func (e *LinkError) Unwrap() error { return e.Err }

// FileError reports a shader source file that could not be read.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("shaders: read %s: %v", e.Path, e.Err)
}

// Is reports whether target is ErrFile.
func (e *FileError) Is(target error) bool { return target == ErrFile }

// Unwrap returns the underlying I/O error.
func (e *FileError) Unwrap() error { return e.Err }

// UnknownStageError reports a file name whose extension names no shader
// stage.
type UnknownStageError struct {
	Path string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("shaders: no shader stage for %q", e.Path)
}

// Is reports whether target is ErrUnknownStage.
func (e *UnknownStageError) Is(target error) bool { return target == ErrUnknownStage }
