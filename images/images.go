// Package images manages images and image views on a device.Device.
//
// The Manager hands out generation-checked handles for every image and
// view it creates and releases the native objects when they are deleted
// or when the manager is cleared. Images can be allocated empty, uploaded
// from structured host arrays or decoded pictures, read back and bound to
// texture units.
package images

import (
	"fmt"

	"github.com/gogpu/gpures/device"
	"github.com/gogpu/gpures/handle"
)

// Image is the bookkeeping record of a managed image.
type Image struct {
	native device.Image
	typ    device.ImageType
	levels uint32
	format device.Format
	bytes  uint64
}

// View is the bookkeeping record of a managed image view.
type View struct {
	native   device.ImageView
	image    ImageID
	viewType device.ImageViewType
	layers   uint32
	levels   uint32
	format   device.Format
}

// Handle types.
type (
	ImageID = handle.Handle[Image]
	ViewID  = handle.Handle[View]
)

// ImageInfo describes a live image.
type ImageInfo struct {
	Native device.Image
	Type   device.ImageType
	Format device.Format
	Levels uint32
}

// ViewInfo describes a live image view. Image is the image the view was
// created from; it may have been deleted since.
type ViewInfo struct {
	Native device.ImageView
	Image  ImageID
	Type   device.ImageViewType
	Format device.Format
	Levels uint32
	Layers uint32
}

// Manager owns images and views created on one device. The device is
// borrowed: the manager never closes it.
//
// Manager is not safe for concurrent use.
type Manager struct {
	dev    device.Device
	images handle.Table[Image]
	views  handle.Table[View]
	opts   options
	used   uint64
}

// New returns a manager for dev.
func New(dev device.Device, opts ...Option) *Manager {
	m := &Manager{dev: dev}
	for _, opt := range opts {
		opt(&m.opts)
	}
	return m
}

// imageBytes estimates the storage of an image across its mip chain.
func imageBytes(t device.ImageType, f device.Format, levels uint32) uint64 {
	var n uint64
	for l := range levels {
		e := t.LevelExtent(l)
		n += uint64(e.Width) * uint64(e.Height) * uint64(e.DepthOrArrayLayers)
	}
	return n * uint64(t.ArrayLayers()) * uint64(max(t.Samples, 1)) * uint64(f.BytesPerPixel())
}

// CreateImage allocates an image with the given type, format and number
// of mip levels. Zero levels means one.
func (m *Manager) CreateImage(t device.ImageType, format device.Format, levels uint32) (ImageID, error) {
	levels = max(levels, 1)
	size := imageBytes(t, format, levels)
	if m.opts.budget > 0 && m.used+size > m.opts.budget {
		return ImageID{}, fmt.Errorf("%w: %d bytes requested, %d of %d in use",
			ErrMemoryBudget, size, m.used, m.opts.budget)
	}

	native, err := m.dev.CreateImage(t, format, levels)
	if err != nil {
		return ImageID{}, fmt.Errorf("images: create %s %s image: %w", t, format, err)
	}
	id := m.images.Insert(Image{native: native, typ: t, levels: levels, format: format, bytes: size})
	m.used += size

	if m.opts.labelPrefix != "" {
		m.dev.ObjectName(native, fmt.Sprintf("%s/image %v", m.opts.labelPrefix, id))
	}
	slogger().Debug("images: created image", "id", id, "type", t, "format", format, "levels", levels)
	return id, nil
}

// CreateViewWhole creates a view spanning every mip level and layer of
// an image. The view is an array view when the image has more than one
// layer.
func (m *Manager) CreateViewWhole(id ImageID) (ViewID, error) {
	img, ok := m.images.Get(id)
	if !ok {
		return ViewID{}, &MissingImageError{ID: id}
	}

	viewType := img.typ.ViewType()
	layers := img.typ.ArrayLayers()
	r := device.SubresourceRange{Levels: img.levels, Layers: layers}

	native, err := m.dev.CreateImageView(img.native, viewType, img.format, r)
	if err != nil {
		return ViewID{}, fmt.Errorf("images: create view of %v: %w", id, err)
	}
	vid := m.views.Insert(View{
		native:   native,
		image:    id,
		viewType: viewType,
		layers:   layers,
		levels:   img.levels,
		format:   img.format,
	})

	if m.opts.labelPrefix != "" {
		m.dev.ObjectName(native, fmt.Sprintf("%s/view %v", m.opts.labelPrefix, vid))
	}
	slogger().Debug("images: created view", "id", vid, "image", id, "type", viewType)
	return vid, nil
}

// ImageHandle returns the native image behind id.
func (m *Manager) ImageHandle(id ImageID) (device.Image, bool) {
	img, ok := m.images.Get(id)
	return img.native, ok
}

// ViewHandle returns the native view behind id.
func (m *Manager) ViewHandle(id ViewID) (device.ImageView, bool) {
	v, ok := m.views.Get(id)
	return v.native, ok
}

// Info describes the image behind id.
func (m *Manager) Info(id ImageID) (ImageInfo, bool) {
	img, ok := m.images.Get(id)
	if !ok {
		return ImageInfo{}, false
	}
	return ImageInfo{Native: img.native, Type: img.typ, Format: img.format, Levels: img.levels}, true
}

// ViewInfo describes the view behind id.
func (m *Manager) ViewInfo(id ViewID) (ViewInfo, bool) {
	v, ok := m.views.Get(id)
	if !ok {
		return ViewInfo{}, false
	}
	return ViewInfo{
		Native: v.native,
		Image:  v.image,
		Type:   v.viewType,
		Format: v.format,
		Levels: v.levels,
		Layers: v.layers,
	}, true
}

// DeleteImage releases an image. Deleting an unknown or already deleted
// image does nothing. Views created from the image are not deleted.
func (m *Manager) DeleteImage(id ImageID) {
	img, ok := m.images.Remove(id)
	if !ok {
		return
	}
	m.dev.DeleteImage(img.native)
	m.used -= img.bytes
	slogger().Debug("images: deleted image", "id", id)
}

// DeleteView releases a view. Deleting an unknown or already deleted view
// does nothing.
func (m *Manager) DeleteView(id ViewID) {
	v, ok := m.views.Remove(id)
	if !ok {
		return
	}
	m.dev.DeleteImageView(v.native)
	slogger().Debug("images: deleted view", "id", id)
}

// Clear releases every view and then every image.
func (m *Manager) Clear() {
	nv, ni := m.views.Len(), m.images.Len()
	for _, v := range m.views.Drain() {
		m.dev.DeleteImageView(v.native)
	}
	for _, img := range m.images.Drain() {
		m.dev.DeleteImage(img.native)
	}
	m.used = 0
	if nv+ni > 0 {
		slogger().Debug("images: cleared", "views", nv, "images", ni)
	}
}

// Bind binds a view to a sampled texture unit. Unknown views are ignored.
func (m *Manager) Bind(unit uint32, id ViewID) {
	v, ok := m.views.Get(id)
	if !ok {
		slogger().Debug("images: bind of unknown view ignored", "id", id, "unit", unit)
		return
	}
	m.dev.BindImageViews(unit, []device.ImageView{v.native})
}

// BindStorage binds a view to a storage image unit. Unknown views are
// ignored.
func (m *Manager) BindStorage(unit uint32, id ViewID) {
	v, ok := m.views.Get(id)
	if !ok {
		slogger().Debug("images: storage bind of unknown view ignored", "id", id, "unit", unit)
		return
	}
	m.dev.BindStorageImageViews(unit, []device.ImageView{v.native})
}

// Labelable is an image or view handle.
type Labelable interface {
	ImageID | ViewID
}

// AssignLabel attaches a debug label to the native object behind an image
// or view handle. Unknown handles are ignored.
func AssignLabel[H Labelable](m *Manager, id H, label string) {
	switch id := any(id).(type) {
	case ImageID:
		if img, ok := m.images.Get(id); ok {
			m.dev.ObjectName(img.native, label)
		}
	case ViewID:
		if v, ok := m.views.Get(id); ok {
			m.dev.ObjectName(v.native, label)
		}
	}
}

// Len returns the number of live images and views.
func (m *Manager) Len() (images, views int) {
	return m.images.Len(), m.views.Len()
}
