package images

// Option configures a Manager during creation.
//
// Example:
//
//	m := images.New(dev,
//		images.WithLabelPrefix("terrain"),
//		images.WithMemoryBudget(256<<20))
type Option func(*options)

type options struct {
	labelPrefix string
	budget      uint64
}

// WithLabelPrefix gives every image and view the manager creates a debug
// label of the form "prefix/image 3v1".
func WithLabelPrefix(prefix string) Option {
	return func(o *options) {
		o.labelPrefix = prefix
	}
}

// WithMemoryBudget limits the estimated bytes of live images. Creations
// that would exceed it fail with ErrMemoryBudget. Zero means unlimited.
func WithMemoryBudget(bytes uint64) Option {
	return func(o *options) {
		o.budget = bytes
	}
}
