package gpures

import (
	"github.com/gogpu/gpures/device"
	"github.com/gogpu/gpures/images"
	"github.com/gogpu/gpures/shaders"
)

// Resources bundles the image and pipeline managers of one device.
type Resources struct {
	Images  *images.Manager
	Shaders *shaders.Manager
}

// Option configures Resources during creation.
type Option func(*options)

type options struct {
	images  []images.Option
	shaders []shaders.Option
}

// WithLabelPrefix prefixes the debug labels of every object both managers
// name.
func WithLabelPrefix(prefix string) Option {
	return func(o *options) {
		o.images = append(o.images, images.WithLabelPrefix(prefix))
		o.shaders = append(o.shaders, shaders.WithLabelPrefix(prefix))
	}
}

// WithImageOptions passes options to the image manager.
func WithImageOptions(opts ...images.Option) Option {
	return func(o *options) {
		o.images = append(o.images, opts...)
	}
}

// WithShaderOptions passes options to the pipeline manager.
func WithShaderOptions(opts ...shaders.Option) Option {
	return func(o *options) {
		o.shaders = append(o.shaders, opts...)
	}
}

// New returns managers creating their objects on dev.
func New(dev device.Device, opts ...Option) *Resources {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Resources{
		Images:  images.New(dev, o.images...),
		Shaders: shaders.New(dev, o.shaders...),
	}
}

// Close releases every pipeline, view and image the managers still hold.
// The device itself is left open. The managers stay usable.
func (r *Resources) Close() {
	r.Shaders.Clear()
	r.Images.Clear()
	Logger().Debug("gpures: resources released")
}
