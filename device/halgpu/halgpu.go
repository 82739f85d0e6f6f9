// Package halgpu implements device.Device on top of a gogpu/wgpu HAL
// device.
//
// Shaders are WGSL. They are checked with naga when created and
// translated to SPIR-V when a pipeline is linked, so compile and link
// failures surface with a log like on a GL driver. Image contents are
// mirrored on the host: uploads go to both the GPU texture and the
// mirror, and read-back and mipmap generation work on the mirror.
//
// The package runs headless on the noop HAL backend, which is how the
// command-line tools and tests use it:
//
//	api := noop.API{}
//	inst, _ := api.CreateInstance(nil)
//	open, _ := inst.EnumerateAdapters(nil)[0].Adapter.Open(0, gputypes.DefaultLimits())
//	dev := halgpu.New(open.Device, open.Queue)
package halgpu

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpures/device"
	"github.com/gogpu/gpures/internal/cache"
	"github.com/gogpu/gpures/internal/texels"
)

type texture struct {
	tex    hal.Texture
	mirror *texels.Image
}

type textureView struct {
	view  hal.TextureView
	image device.Image
}

type pipeline struct {
	stages  []device.ShaderStage
	render  hal.RenderPipeline
	compute hal.ComputePipeline
	layout  hal.PipelineLayout
	modules []hal.ShaderModule
	log     string
}

// Device is a device.Device backed by a HAL device and queue. The HAL
// device is borrowed; Close releases only the objects Device created.
type Device struct {
	mu sync.Mutex

	dev   hal.Device
	queue hal.Queue
	opts  options
	next  uint64

	images    map[device.Image]*texture
	views     map[device.ImageView]*textureView
	shaders   map[device.Shader]*shader
	pipelines map[device.Pipeline]*pipeline

	vertexLayouts []gputypes.VertexBufferLayout
	compiled      *cache.LRU[compileKey, compiled]

	labels       map[device.Object]string
	bound        device.Pipeline
	boundViews   map[uint32]device.ImageView
	boundStorage map[uint32]device.ImageView
	constants    map[device.Pipeline][]device.Constant
}

var _ device.Device = (*Device)(nil)

// New returns a Device creating its objects on dev and uploading through
// queue.
func New(dev hal.Device, queue hal.Queue, opts ...Option) *Device {
	d := &Device{
		dev:          dev,
		queue:        queue,
		opts:         defaultOptions(),
		images:       make(map[device.Image]*texture),
		views:        make(map[device.ImageView]*textureView),
		shaders:      make(map[device.Shader]*shader),
		pipelines:    make(map[device.Pipeline]*pipeline),
		labels:       make(map[device.Object]string),
		boundViews:   make(map[uint32]device.ImageView),
		boundStorage: make(map[uint32]device.ImageView),
		constants:    make(map[device.Pipeline][]device.Constant),
	}
	for _, opt := range opts {
		opt(&d.opts)
	}
	if d.opts.compileCache > 0 {
		d.compiled = cache.New[compileKey, compiled](d.opts.compileCache)
	}
	return d
}

func (d *Device) id() uint64 {
	d.next++
	return d.next
}

// storageFormats are the formats WebGPU allows as storage textures.
var storageFormats = []gputypes.TextureFormat{
	gputypes.TextureFormatRGBA8Unorm,
	gputypes.TextureFormatRGBA8Uint,
	gputypes.TextureFormatRGBA8Sint,
	gputypes.TextureFormatRGBA16Uint,
	gputypes.TextureFormatRGBA16Sint,
	gputypes.TextureFormatR32Uint,
	gputypes.TextureFormatR32Sint,
	gputypes.TextureFormatR32Float,
	gputypes.TextureFormatRG32Uint,
	gputypes.TextureFormatRG32Sint,
	gputypes.TextureFormatRG32Float,
	gputypes.TextureFormatRGBA32Uint,
	gputypes.TextureFormatRGBA32Sint,
	gputypes.TextureFormatRGBA32Float,
}

func textureUsage(t device.ImageType, f gputypes.TextureFormat) gputypes.TextureUsage {
	if t.Samples > 1 {
		return gputypes.TextureUsageTextureBinding | gputypes.TextureUsageRenderAttachment
	}
	u := gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding
	if slices.Contains(storageFormats, f) {
		u |= gputypes.TextureUsageStorageBinding
	}
	return u
}

// textureShape returns the HAL dimension and size of an image type.
// WebGPU has no layered 1D textures, so those become 2D arrays of
// height 1.
func textureShape(t device.ImageType) (gputypes.TextureDimension, hal.Extent3D) {
	size := hal.Extent3D{Width: t.Width, Height: t.Height, DepthOrArrayLayers: t.ArrayLayers()}
	switch {
	case t.Dim == device.Dim3D:
		size.DepthOrArrayLayers = t.Depth
		return gputypes.TextureDimension3D, size
	case t.Dim == device.Dim1D && t.Layers > 1:
		return gputypes.TextureDimension2D, size
	default:
		return t.Dim.TextureDimension(), size
	}
}

// CreateImage implements device.Device. Formats without a WebGPU
// equivalent fail with device.ErrUnsupported.
func (d *Device) CreateImage(t device.ImageType, f device.Format, levels uint32) (device.Image, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	tf, ok := f.TextureFormat()
	if !ok {
		return 0, fmt.Errorf("%w: %s has no WebGPU format", device.ErrUnsupported, f)
	}
	levels = max(levels, 1)
	if levels > t.MaxLevels() {
		return 0, fmt.Errorf("%w: %d levels for %s", device.ErrInvalidImageType, levels, t)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	id := device.Image(d.id())
	dim, size := textureShape(t)
	tex, err := d.dev.CreateTexture(&hal.TextureDescriptor{
		Label:         fmt.Sprintf("%s image %d", d.opts.label, id),
		Size:          size,
		MipLevelCount: levels,
		SampleCount:   t.Samples,
		Dimension:     dim,
		Format:        tf,
		Usage:         textureUsage(t, tf),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", device.ErrOutOfMemory, err)
	}
	d.images[id] = &texture{tex: tex, mirror: texels.New(t, f, levels)}
	slogger().Debug("halgpu: created texture", "id", id, "type", t, "format", f, "levels", levels)
	return id, nil
}

// DeleteImage implements device.Device.
func (d *Device) DeleteImage(img device.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.images[img]
	if !ok {
		return
	}
	d.dev.DestroyTexture(t.tex)
	delete(d.images, img)
	delete(d.labels, img)
}

// viewDimension maps a view type to WebGPU. 1D array views are 2D array
// views of a height-1 texture.
func viewDimension(vt device.ImageViewType) (gputypes.TextureViewDimension, bool) {
	if vt == device.View1DArray {
		return gputypes.TextureViewDimension2DArray, true
	}
	return vt.TextureViewDimension()
}

// CreateImageView implements device.Device.
func (d *Device) CreateImageView(img device.Image, vt device.ImageViewType, f device.Format, r device.SubresourceRange) (device.ImageView, error) {
	dim, ok := viewDimension(vt)
	if !ok {
		return 0, fmt.Errorf("%w: view type %s", device.ErrUnsupported, vt)
	}
	tf, ok := f.TextureFormat()
	if !ok {
		return 0, fmt.Errorf("%w: %s has no WebGPU format", device.ErrUnsupported, f)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.images[img]
	if !ok {
		return 0, fmt.Errorf("%w: image %d", device.ErrInvalidObject, img)
	}
	id := device.ImageView(d.id())
	view, err := d.dev.CreateTextureView(t.tex, &hal.TextureViewDescriptor{
		Label:           fmt.Sprintf("%s view %d", d.opts.label, id),
		Format:          tf,
		Dimension:       dim,
		Aspect:          gputypes.TextureAspectAll,
		BaseMipLevel:    r.BaseLevel,
		MipLevelCount:   r.Levels,
		BaseArrayLayer:  r.BaseLayer,
		ArrayLayerCount: r.Layers,
	})
	if err != nil {
		return 0, fmt.Errorf("halgpu: create view of image %d: %w", img, err)
	}
	d.views[id] = &textureView{view: view, image: img}
	return id, nil
}

// DeleteImageView implements device.Device.
func (d *Device) DeleteImageView(v device.ImageView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tv, ok := d.views[v]
	if !ok {
		return
	}
	d.dev.DestroyTextureView(tv.view)
	delete(d.views, v)
	delete(d.labels, v)
}

// upload copies region r of the mirror to the GPU texture.
func (d *Device) upload(t *texture, r device.Region) error {
	m := t.mirror
	packed := device.PackedLayout(m.Format.Base(), m.Format.Layout())
	data := make([]byte, packed.Size(r))
	if err := m.Read(r, packed, data); err != nil {
		return err
	}

	origin := hal.Origin3D{X: r.Offset.X, Y: r.Offset.Y, Z: r.Offset.Z}
	size := hal.Extent3D{Width: r.Extent.Width, Height: r.Extent.Height, DepthOrArrayLayers: r.Extent.DepthOrArrayLayers}
	if m.Type.Dim != device.Dim3D {
		origin.Z = r.BaseLayer
		size.DepthOrArrayLayers = max(r.Layers, 1)
	}
	return d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.tex, MipLevel: r.Level, Origin: origin, Aspect: gputypes.TextureAspectAll},
		data,
		&hal.ImageDataLayout{BytesPerRow: uint32(packed.RowPitch(r.Extent.Width)), RowsPerImage: r.Extent.Height},
		&size,
	)
}

// WriteImage implements device.Device. The host layout must match the
// image format.
func (d *Device) WriteImage(img device.Image, r device.Region, l device.MemoryLayout, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.images[img]
	if !ok {
		return fmt.Errorf("%w: image %d", device.ErrInvalidObject, img)
	}
	if err := t.mirror.Write(r, l, data); err != nil {
		return err
	}
	if err := d.upload(t, r); err != nil {
		return fmt.Errorf("halgpu: upload image %d: %w", img, err)
	}
	return nil
}

// ReadImage implements device.Device. Data is served from the host
// mirror and converted to the host scalar type.
func (d *Device) ReadImage(img device.Image, r device.Region, l device.MemoryLayout, dst []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.images[img]
	if !ok {
		return fmt.Errorf("%w: image %d", device.ErrInvalidObject, img)
	}
	return t.mirror.Read(r, l, dst)
}

// GenerateMipmaps implements device.Device. Levels are box-filtered on
// the host and uploaded.
func (d *Device) GenerateMipmaps(img device.Image) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.images[img]
	if !ok {
		return fmt.Errorf("%w: image %d", device.ErrInvalidObject, img)
	}
	t.mirror.GenerateMipmaps()
	for l := 1; l < len(t.mirror.Levels); l++ {
		if err := d.upload(t, device.WholeLevel(t.mirror.Type, uint32(l))); err != nil {
			return fmt.Errorf("halgpu: upload level %d of image %d: %w", l, img, err)
		}
	}
	return nil
}

// CreateShader implements device.Device. The source is WGSL and must
// declare an entry point of the given stage. On failure the shader object
// is still created and its log explains the error.
func (d *Device) CreateShader(stage device.ShaderStage, src []byte) (device.Shader, error) {
	key := compileKey{stage: stage, sum: sha256.Sum256(src)}
	d.mu.Lock()
	c, hit := d.cachedModule(key)
	d.mu.Unlock()

	var err error
	if !hit {
		c.module, c.entry, err = compile(stage, string(src))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !hit && err == nil && d.compiled != nil {
		d.compiled.Add(key, c)
	}
	id := device.Shader(d.id())
	sh := &shader{stage: stage, module: c.module, entry: c.entry}
	d.shaders[id] = sh
	if err != nil {
		sh.log = err.Error()
		return id, device.ErrCompileFailed
	}
	return id, nil
}

// cachedModule looks up a previous successful compilation of the same
// stage and source. Caller must hold d.mu.
func (d *Device) cachedModule(key compileKey) (compiled, bool) {
	if d.compiled == nil {
		return compiled{}, false
	}
	return d.compiled.Get(key)
}

// ShaderLog implements device.Device.
func (d *Device) ShaderLog(s device.Shader) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sh, ok := d.shaders[s]; ok {
		return sh.log
	}
	return ""
}

// DeleteShader implements device.Device.
func (d *Device) DeleteShader(s device.Shader) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.shaders, s)
	delete(d.labels, s)
}

// SetVertexLayouts sets the vertex buffer layouts of graphics pipelines
// linked from now on, for example from layout.BufferLayout.
func (d *Device) SetVertexLayouts(layouts ...gputypes.VertexBufferLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vertexLayouts = slices.Clone(layouts)
}

// CreatePipeline implements device.Device. A vertex shader with an
// optional fragment shader links into a render pipeline and a single
// compute shader into a compute pipeline. Other combinations, including
// mesh pipelines, fail to link.
func (d *Device) CreatePipeline(shaders []device.Shader) (device.Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	shs := make([]*shader, len(shaders))
	for i, s := range shaders {
		sh, ok := d.shaders[s]
		if !ok {
			return 0, fmt.Errorf("%w: shader %d", device.ErrInvalidObject, s)
		}
		shs[i] = sh
	}

	id := device.Pipeline(d.id())
	p := &pipeline{}
	for _, sh := range shs {
		p.stages = append(p.stages, sh.stage)
	}
	d.pipelines[id] = p
	if err := d.link(id, p, shs); err != nil {
		d.release(p)
		p.log = err.Error()
		slogger().Debug("halgpu: link failed", "id", id, "err", err)
		return id, device.ErrLinkFailed
	}
	return id, nil
}

// link builds the HAL pipeline for p. Objects created before a failure
// are left in p for release.
func (d *Device) link(id device.Pipeline, p *pipeline, shs []*shader) error {
	byStage := make(map[device.ShaderStage]*shader, len(shs))
	for _, sh := range shs {
		if sh.module == nil {
			return fmt.Errorf("%s shader did not compile", sh.stage)
		}
		if _, dup := byStage[sh.stage]; dup {
			return fmt.Errorf("more than one %s shader", sh.stage)
		}
		byStage[sh.stage] = sh
	}

	label := fmt.Sprintf("%s pipeline %d", d.opts.label, id)
	layout, err := d.dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("pipeline layout: %w", err)
	}
	p.layout = layout

	vs, fs, cs := byStage[device.StageVertex], byStage[device.StageFragment], byStage[device.StageCompute]
	switch {
	case cs != nil:
		if len(shs) != 1 {
			return fmt.Errorf("compute shader linked with %d other shaders", len(shs)-1)
		}
		mod, err := d.createModule(cs)
		if err != nil {
			return err
		}
		p.modules = append(p.modules, mod)
		p.compute, err = d.dev.CreateComputePipeline(&hal.ComputePipelineDescriptor{
			Label:   label,
			Layout:  layout,
			Compute: hal.ComputeState{Module: mod, EntryPoint: cs.entry},
		})
		return err

	case vs != nil:
		for st := range byStage {
			if st != device.StageVertex && st != device.StageFragment {
				return fmt.Errorf("render pipeline cannot hold a %s shader", st)
			}
		}
		vmod, err := d.createModule(vs)
		if err != nil {
			return err
		}
		p.modules = append(p.modules, vmod)
		desc := &hal.RenderPipelineDescriptor{
			Label:       label,
			Layout:      layout,
			Vertex:      hal.VertexState{Module: vmod, EntryPoint: vs.entry, Buffers: d.vertexLayouts},
			Primitive:   gputypes.PrimitiveState{Topology: gputypes.PrimitiveTopologyTriangleList},
			Multisample: gputypes.DefaultMultisampleState(),
		}
		if fs != nil {
			fmod, err := d.createModule(fs)
			if err != nil {
				return err
			}
			p.modules = append(p.modules, fmod)
			desc.Fragment = &hal.FragmentState{
				Module:     fmod,
				EntryPoint: fs.entry,
				Targets: []gputypes.ColorTargetState{{
					Format:    d.opts.colorFormat,
					WriteMask: gputypes.ColorWriteMaskAll,
				}},
			}
		}
		p.render, err = d.dev.CreateRenderPipeline(desc)
		return err

	case byStage[device.StageMesh] != nil || byStage[device.StageTask] != nil:
		return fmt.Errorf("mesh pipelines are not supported")

	default:
		return fmt.Errorf("render pipeline has no vertex shader")
	}
}

// release destroys every HAL object held by p.
func (d *Device) release(p *pipeline) {
	if p.render != nil {
		d.dev.DestroyRenderPipeline(p.render)
		p.render = nil
	}
	if p.compute != nil {
		d.dev.DestroyComputePipeline(p.compute)
		p.compute = nil
	}
	if p.layout != nil {
		d.dev.DestroyPipelineLayout(p.layout)
		p.layout = nil
	}
	for _, m := range p.modules {
		d.dev.DestroyShaderModule(m)
	}
	p.modules = nil
}

// PipelineLog implements device.Device.
func (d *Device) PipelineLog(p device.Pipeline) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if pl, ok := d.pipelines[p]; ok {
		return pl.log
	}
	return ""
}

// DeletePipeline implements device.Device.
func (d *Device) DeletePipeline(p device.Pipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pl, ok := d.pipelines[p]
	if !ok {
		return
	}
	d.release(pl)
	delete(d.pipelines, p)
	delete(d.constants, p)
	delete(d.labels, p)
	if d.bound == p {
		d.bound = 0
	}
}

// BindPipeline implements device.Device. The binding is recorded for the
// next pass.
func (d *Device) BindPipeline(p device.Pipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bound = p
}

// BindUniformConstants implements device.Device.
func (d *Device) BindUniformConstants(p device.Pipeline, first uint32, cs []device.Constant) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cur := d.constants[p]
	if need := int(first) + len(cs); len(cur) < need {
		cur = append(cur, make([]device.Constant, need-len(cur))...)
	}
	copy(cur[first:], cs)
	d.constants[p] = cur
}

// ObjectName implements device.Device. HAL objects are labelled at
// creation, so later names are kept on the side.
func (d *Device) ObjectName(obj device.Object, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.labels[obj] = name
}

// BindImageViews implements device.Device.
func (d *Device) BindImageViews(first uint32, views []device.ImageView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, v := range views {
		d.boundViews[first+uint32(i)] = v
	}
}

// BindStorageImageViews implements device.Device.
func (d *Device) BindStorageImageViews(first uint32, views []device.ImageView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, v := range views {
		d.boundStorage[first+uint32(i)] = v
	}
}

// Label returns the name given to obj with ObjectName.
func (d *Device) Label(obj device.Object) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.labels[obj]
}

// BoundPipeline returns the pipeline last bound.
func (d *Device) BoundPipeline() device.Pipeline {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bound
}

// BoundView returns the view bound to a sampled texture unit.
func (d *Device) BoundView(unit uint32) device.ImageView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.boundViews[unit]
}

// BoundStorageView returns the view bound to a storage image unit.
func (d *Device) BoundStorageView(unit uint32) device.ImageView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.boundStorage[unit]
}

// Constants returns the uniform constants set on a pipeline.
func (d *Device) Constants(p device.Pipeline) []device.Constant {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.constants[p])
}

// IsCompute reports whether p is a linked compute pipeline.
func (d *Device) IsCompute(p device.Pipeline) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	pl, ok := d.pipelines[p]
	return ok && pl.compute != nil
}

// Stats counts the live objects of each kind.
type Stats struct {
	Images, Views, Shaders, Pipelines int

	// CompileHits and CompileMisses count lookups in the compile cache.
	CompileHits, CompileMisses uint64
}

// Stats returns the number of live objects.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := Stats{
		Images:    len(d.images),
		Views:     len(d.views),
		Shaders:   len(d.shaders),
		Pipelines: len(d.pipelines),
	}
	if d.compiled != nil {
		s.CompileHits, s.CompileMisses = d.compiled.Stats()
	}
	return s
}

// Close destroys every HAL object the device still holds, views before
// textures. The HAL device and queue are not destroyed.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, p := range d.pipelines {
		d.release(p)
		delete(d.pipelines, id)
	}
	for id, v := range d.views {
		d.dev.DestroyTextureView(v.view)
		delete(d.views, id)
	}
	for id, t := range d.images {
		d.dev.DestroyTexture(t.tex)
		delete(d.images, id)
	}
	clear(d.shaders)
	clear(d.labels)
	clear(d.constants)
	if d.compiled != nil {
		d.compiled.Purge()
	}
	d.bound = 0
}
