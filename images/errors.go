package images

import (
	"errors"
	"fmt"
)

// Image manager errors.
var (
	// ErrMissingImage is returned when an image handle does not resolve.
	ErrMissingImage = errors.New("images: missing image")

	// ErrBadDataLayout is returned when structured data has an unsupported
	// rank or its length does not match its shape.
	ErrBadDataLayout = errors.New("images: bad data layout")

	// ErrImproperDataFormat is returned when structured data is not
	// contiguous or no image format matches its element type.
	ErrImproperDataFormat = errors.New("images: improper data format")

	// ErrMemoryBudget is returned when an image would exceed the budget
	// set with WithMemoryBudget.
	ErrMemoryBudget = errors.New("images: memory budget exceeded")
)

// MissingImageError reports an image handle that does not resolve to a
// live image. It matches ErrMissingImage.
type MissingImageError struct {
	ID ImageID
}

func (e *MissingImageError) Error() string {
	return fmt.Sprintf("images: missing image %v", e.ID)
}

// Is reports whether target is ErrMissingImage.
func (e *MissingImageError) Is(target error) bool { return target == ErrMissingImage }
