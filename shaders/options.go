package shaders

import (
	"io/fs"
	"os"
)

// Option configures a Manager during creation.
//
// Example:
//
//	m := shaders.New(dev,
//		shaders.WithFS(os.DirFS("assets/shaders")),
//		shaders.WithLabelPrefix("scene"))
type Option func(*options)

type options struct {
	fsys        fs.FS
	readFile    func(string) ([]byte, error)
	labelPrefix string
}

func defaultOptions() options {
	return options{readFile: os.ReadFile}
}

// WithFS reads shader files from fsys instead of the operating system.
// Paths are then slash-separated and relative to the root of fsys.
func WithFS(fsys fs.FS) Option {
	return func(o *options) {
		o.fsys = fsys
		o.readFile = func(name string) ([]byte, error) {
			return fs.ReadFile(fsys, name)
		}
	}
}

// WithReadFile replaces the function used to read shader files.
func WithReadFile(read func(path string) ([]byte, error)) Option {
	return func(o *options) {
		o.fsys = nil
		o.readFile = read
	}
}

// WithLabelPrefix names every pipeline the manager creates
// "prefix/pipeline <id>" until a label is assigned explicitly.
func WithLabelPrefix(prefix string) Option {
	return func(o *options) {
		o.labelPrefix = prefix
	}
}

// PipelineOption configures a single CreatePipeline call.
type PipelineOption func(*pipelineOptions)

type pipelineOptions struct {
	kind  Kind
	label string
}

// WithKind forces the pipeline kind instead of inferring it from the
// shader stages. Every stage must be accepted by k.
func WithKind(k Kind) PipelineOption {
	return func(o *pipelineOptions) {
		o.kind = k
	}
}

// WithLabel assigns the pipeline's base name at creation, like
// AssignLabel.
func WithLabel(name string) PipelineOption {
	return func(o *pipelineOptions) {
		o.label = name
	}
}
