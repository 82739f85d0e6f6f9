package halgpu

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga/spirv"
)

// Option configures a Device during creation.
type Option func(*options)

type options struct {
	label        string
	spirvVersion spirv.Version
	debugInfo    bool
	colorFormat  gputypes.TextureFormat
	compileCache int
}

func defaultOptions() options {
	return options{
		label:        "gpures",
		spirvVersion: spirv.Version1_3,
		colorFormat:  gputypes.TextureFormatRGBA8Unorm,
		compileCache: 64,
	}
}

// WithLabel sets the prefix of the labels given to HAL objects.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}

// WithSPIRVVersion selects the SPIR-V version shaders are translated to.
// The default is 1.3.
func WithSPIRVVersion(v spirv.Version) Option {
	return func(o *options) {
		o.spirvVersion = v
	}
}

// WithDebugInfo keeps debug names in the generated SPIR-V.
func WithDebugInfo(enabled bool) Option {
	return func(o *options) {
		o.debugInfo = enabled
	}
}

// WithColorFormat sets the color target format of graphics pipelines.
// The default is RGBA8Unorm.
func WithColorFormat(f gputypes.TextureFormat) Option {
	return func(o *options) {
		o.colorFormat = f
	}
}

// WithCompileCache keeps the last n validated WGSL modules so that
// reloading a pipeline does not recompile unchanged sources. Zero
// disables the cache. The default is 64.
func WithCompileCache(n int) Option {
	return func(o *options) {
		o.compileCache = n
	}
}
