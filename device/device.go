// Package device defines the graphics device capability the resource
// managers are built on.
//
// A Device is an already-initialised native graphics context exposing
// primitive create, destroy and bind operations. Calls are synchronous
// and fail only through their returned errors. Managers borrow a Device;
// they never own or close it.
//
// Two implementations ship with the module: device/halgpu runs WGSL
// shaders on a gogpu/wgpu HAL device, and device/gldevice drives an
// OpenGL 4.6 context through go-gl.
package device

import (
	"errors"
	"fmt"
)

// Device errors.
var (
	// ErrCompileFailed is returned by CreateShader together with the
	// shader object when compilation fails. The object must be inspected
	// with ShaderLog and released with DeleteShader.
	ErrCompileFailed = errors.New("device: shader compilation failed")

	// ErrLinkFailed is returned by CreatePipeline together with the
	// pipeline object when linking fails. The object must be inspected
	// with PipelineLog and released with DeletePipeline.
	ErrLinkFailed = errors.New("device: pipeline link failed")

	// ErrUnsupported is returned for formats, stages or image types the
	// device cannot represent.
	ErrUnsupported = errors.New("device: unsupported")

	// ErrOutOfMemory is returned when an allocation fails.
	ErrOutOfMemory = errors.New("device: out of memory")

	// ErrInvalidObject is returned when a native object is unknown to the device.
	ErrInvalidObject = errors.New("device: invalid object")

	// ErrBadRegion is returned when a copy region lies outside the image
	// or the host buffer is too small.
	ErrBadRegion = errors.New("device: bad copy region")

	// ErrInvalidImageType is returned for empty or malformed image types.
	ErrInvalidImageType = errors.New("device: invalid image type")
)

// ObjectKind identifies the kind of a native object.
type ObjectKind uint8

// Native object kinds.
const (
	KindImage ObjectKind = iota + 1
	KindImageView
	KindShader
	KindPipeline
)

func (k ObjectKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindImageView:
		return "image view"
	case KindShader:
		return "shader"
	case KindPipeline:
		return "pipeline"
	default:
		return fmt.Sprintf("ObjectKind(%d)", k)
	}
}

// Object is a native object that can carry a debug name.
type Object interface {
	ObjectKind() ObjectKind
	Raw() uint64
}

// Native object handles. Zero is never a valid object.
type (
	Image     uint64
	ImageView uint64
	Shader    uint64
	Pipeline  uint64
)

func (Image) ObjectKind() ObjectKind     { return KindImage }
func (ImageView) ObjectKind() ObjectKind { return KindImageView }
func (Shader) ObjectKind() ObjectKind    { return KindShader }
func (Pipeline) ObjectKind() ObjectKind  { return KindPipeline }

func (i Image) Raw() uint64     { return uint64(i) }
func (v ImageView) Raw() uint64 { return uint64(v) }
func (s Shader) Raw() uint64    { return uint64(s) }
func (p Pipeline) Raw() uint64  { return uint64(p) }

// Device is the native graphics capability.
type Device interface {
	// CreateImage allocates storage for an image with the given number of
	// mip levels.
	CreateImage(t ImageType, format Format, levels uint32) (Image, error)
	DeleteImage(img Image)

	// CreateImageView creates a view of img. The view is valid while img
	// is alive.
	CreateImageView(img Image, viewType ImageViewType, format Format, r SubresourceRange) (ImageView, error)
	DeleteImageView(view ImageView)

	// WriteImage copies host data laid out as described by layout into
	// region r of img.
	WriteImage(img Image, r Region, layout MemoryLayout, data []byte) error

	// ReadImage copies region r of img into dst, converting to layout.
	ReadImage(img Image, r Region, layout MemoryLayout, dst []byte) error

	// GenerateMipmaps fills levels 1..n of img from level 0.
	GenerateMipmaps(img Image) error

	// CreateShader compiles source for stage. On a compilation failure it
	// returns the shader object and ErrCompileFailed.
	CreateShader(stage ShaderStage, source []byte) (Shader, error)
	// ShaderLog returns the compiler diagnostics of a shader.
	ShaderLog(s Shader) string
	DeleteShader(s Shader)

	// CreatePipeline links compiled shaders into a pipeline. On a link
	// failure it returns the pipeline object and ErrLinkFailed.
	CreatePipeline(shaders []Shader) (Pipeline, error)
	// PipelineLog returns the linker diagnostics of a pipeline.
	PipelineLog(p Pipeline) string
	DeletePipeline(p Pipeline)

	BindPipeline(p Pipeline)
	// BindUniformConstants assigns constants to consecutive uniform
	// locations of p starting at first.
	BindUniformConstants(p Pipeline, first uint32, constants []Constant)

	// ObjectName attaches a debug label to a native object.
	ObjectName(obj Object, name string)

	// BindImageViews binds views to sampled texture units starting at first.
	BindImageViews(first uint32, views []ImageView)
	// BindStorageImageViews binds views to storage image units starting at first.
	BindStorageImageViews(first uint32, views []ImageView)
}
