//go:build !nogl

// Package gldevice implements device.Device on an OpenGL 4.6 core
// context through go-gl, using direct state access throughout.
//
// The context must be current on the goroutine calling into the Device,
// as for every OpenGL call. Shaders are GLSL and go straight to the
// driver; task and mesh stages need GL_NV_mesh_shader. Native handles
// are the GL object names.
//
// Build with the nogl tag to leave the package (and its cgo dependency)
// out.
package gldevice

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.6-core/gl"

	"github.com/gogpu/gpures/device"
)

type texture struct {
	target uint32
	t      device.ImageType
	format device.Format
	levels uint32
}

type textureView struct {
	image   device.Image
	format  device.Format
	layered bool
}

// Device is a device.Device driving the current OpenGL context.
type Device struct {
	images map[device.Image]*texture
	views  map[device.ImageView]*textureView
	bound  device.Pipeline
}

var _ device.Device = (*Device)(nil)

// New loads the OpenGL function pointers of the current context.
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("gldevice: init: %w", err)
	}
	slogger().Info("gldevice: context ready",
		"version", gl.GoStr(gl.GetString(gl.VERSION)),
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)))
	return &Device{
		images: make(map[device.Image]*texture),
		views:  make(map[device.ImageView]*textureView),
	}, nil
}

// glError drains the GL error queue and reports the first error.
func glError(op string) error {
	code := gl.GetError()
	if code == gl.NO_ERROR {
		return nil
	}
	for gl.GetError() != gl.NO_ERROR {
	}
	switch code {
	case gl.OUT_OF_MEMORY:
		return fmt.Errorf("gldevice: %s: %w", op, device.ErrOutOfMemory)
	case gl.INVALID_VALUE:
		return fmt.Errorf("gldevice: %s: %w", op, device.ErrBadRegion)
	default:
		return fmt.Errorf("gldevice: %s: GL error 0x%04x", op, code)
	}
}

// CreateImage allocates immutable texture storage.
func (d *Device) CreateImage(t device.ImageType, format device.Format, levels uint32) (device.Image, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	internal, ok := internalFormats[format]
	if !ok {
		return 0, fmt.Errorf("%w: format %s", device.ErrUnsupported, format)
	}
	levels = max(levels, 1)
	if levels > t.MaxLevels() {
		return 0, fmt.Errorf("%w: %d levels for %s", device.ErrInvalidImageType, levels, t)
	}

	target := textureTarget(t)
	var tex uint32
	gl.CreateTextures(target, 1, &tex)
	if tex == 0 {
		return 0, fmt.Errorf("gldevice: create texture: %w", device.ErrOutOfMemory)
	}

	w, h, depth := int32(t.Width), int32(t.Height), int32(t.Depth)
	l, n := int32(t.Layers), int32(levels)
	switch target {
	case gl.TEXTURE_1D:
		gl.TextureStorage1D(tex, n, internal, w)
	case gl.TEXTURE_1D_ARRAY:
		gl.TextureStorage2D(tex, n, internal, w, l)
	case gl.TEXTURE_2D:
		gl.TextureStorage2D(tex, n, internal, w, h)
	case gl.TEXTURE_2D_ARRAY:
		gl.TextureStorage3D(tex, n, internal, w, h, l)
	case gl.TEXTURE_2D_MULTISAMPLE:
		gl.TextureStorage2DMultisample(tex, int32(t.Samples), internal, w, h, true)
	case gl.TEXTURE_2D_MULTISAMPLE_ARRAY:
		gl.TextureStorage3DMultisample(tex, int32(t.Samples), internal, w, h, l, true)
	case gl.TEXTURE_3D:
		gl.TextureStorage3D(tex, n, internal, w, h, depth)
	}
	if err := glError("texture storage"); err != nil {
		gl.DeleteTextures(1, &tex)
		return 0, err
	}

	img := device.Image(tex)
	d.images[img] = &texture{target: target, t: t, format: format, levels: levels}
	slogger().Debug("gldevice: image created", "image", tex, "type", t, "format", format, "levels", levels)
	return img, nil
}

func (d *Device) DeleteImage(img device.Image) {
	if _, ok := d.images[img]; !ok {
		return
	}
	delete(d.images, img)
	tex := uint32(img)
	gl.DeleteTextures(1, &tex)
}

// CreateImageView creates a texture view sharing the storage of img.
func (d *Device) CreateImageView(img device.Image, viewType device.ImageViewType, format device.Format, r device.SubresourceRange) (device.ImageView, error) {
	src, ok := d.images[img]
	if !ok {
		return 0, fmt.Errorf("gldevice: image %d: %w", img, device.ErrInvalidObject)
	}
	target, ok := viewTarget(viewType, src.t.Samples > 1)
	if !ok {
		return 0, fmt.Errorf("%w: view type %s", device.ErrUnsupported, viewType)
	}
	internal, ok := internalFormats[format]
	if !ok {
		return 0, fmt.Errorf("%w: format %s", device.ErrUnsupported, format)
	}
	levels := r.Levels
	if levels == 0 {
		levels = src.levels - min(r.BaseLevel, src.levels)
	}
	layers := r.Layers
	if layers == 0 {
		layers = src.t.ArrayLayers() - min(r.BaseLayer, src.t.ArrayLayers())
	}
	if r.BaseLevel+levels > src.levels || r.BaseLayer+layers > src.t.ArrayLayers() || levels == 0 || layers == 0 {
		return 0, fmt.Errorf("gldevice: view of image %d: %w", img, device.ErrBadRegion)
	}

	// texture views need a name that has never been bound
	var view uint32
	gl.GenTextures(1, &view)
	gl.TextureView(view, target, uint32(img), internal, r.BaseLevel, levels, r.BaseLayer, layers)
	if err := glError("texture view"); err != nil {
		gl.DeleteTextures(1, &view)
		return 0, err
	}

	v := device.ImageView(view)
	d.views[v] = &textureView{
		image:   img,
		format:  format,
		layered: viewType == device.View1DArray || viewType == device.View2DArray || viewType == device.View3D,
	}
	return v, nil
}

func (d *Device) DeleteImageView(view device.ImageView) {
	if _, ok := d.views[view]; !ok {
		return
	}
	delete(d.views, view)
	tex := uint32(view)
	gl.DeleteTextures(1, &tex)
}

func (d *Device) transfer(img device.Image, r device.Region, layout device.MemoryLayout, n int) (*texture, uint32, uint32, error) {
	src, ok := d.images[img]
	if !ok {
		return nil, 0, 0, fmt.Errorf("gldevice: image %d: %w", img, device.ErrInvalidObject)
	}
	if src.t.Samples > 1 {
		return nil, 0, 0, fmt.Errorf("%w: transfer to a multisampled image", device.ErrUnsupported)
	}
	if r.Level >= src.levels || n < layout.Size(r) {
		return nil, 0, 0, fmt.Errorf("gldevice: image %d: %w", img, device.ErrBadRegion)
	}
	xtype, ok := pixelType(layout.Layout)
	if !ok {
		return nil, 0, 0, fmt.Errorf("%w: host layout %s", device.ErrUnsupported, layout.Layout)
	}
	return src, pixelFormat(layout.Base, src.format), xtype, nil
}

func pixelStore(rowLength, imageHeight, alignment uint32, layout device.MemoryLayout) {
	gl.PixelStorei(rowLength, int32(layout.RowLength))
	gl.PixelStorei(imageHeight, int32(layout.ImageHeight))
	gl.PixelStorei(alignment, int32(max(layout.Alignment, 1)))
}

// WriteImage uploads data into region r of img.
func (d *Device) WriteImage(img device.Image, r device.Region, layout device.MemoryLayout, data []byte) error {
	src, format, xtype, err := d.transfer(img, r, layout, len(data))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	pixelStore(gl.UNPACK_ROW_LENGTH, gl.UNPACK_IMAGE_HEIGHT, gl.UNPACK_ALIGNMENT, layout)

	tex, level := uint32(img), int32(r.Level)
	b := regionBox(src.target, r)
	switch dims(src.target) {
	case 1:
		gl.TextureSubImage1D(tex, level, b.x, b.w, format, xtype, gl.Ptr(data))
	case 2:
		gl.TextureSubImage2D(tex, level, b.x, b.y, b.w, b.h, format, xtype, gl.Ptr(data))
	default:
		gl.TextureSubImage3D(tex, level, b.x, b.y, b.z, b.w, b.h, b.d, format, xtype, gl.Ptr(data))
	}
	return glError("texture upload")
}

// ReadImage downloads region r of img into dst.
func (d *Device) ReadImage(img device.Image, r device.Region, layout device.MemoryLayout, dst []byte) error {
	src, format, xtype, err := d.transfer(img, r, layout, len(dst))
	if err != nil {
		return err
	}
	if len(dst) == 0 {
		return nil
	}
	pixelStore(gl.PACK_ROW_LENGTH, gl.PACK_IMAGE_HEIGHT, gl.PACK_ALIGNMENT, layout)

	b := regionBox(src.target, r)
	gl.GetTextureSubImage(uint32(img), int32(r.Level), b.x, b.y, b.z, b.w, b.h, b.d,
		format, xtype, int32(len(dst)), gl.Ptr(dst))
	return glError("texture read-back")
}

func (d *Device) GenerateMipmaps(img device.Image) error {
	src, ok := d.images[img]
	if !ok {
		return fmt.Errorf("gldevice: image %d: %w", img, device.ErrInvalidObject)
	}
	if src.t.Samples > 1 {
		return fmt.Errorf("%w: mipmaps of a multisampled image", device.ErrUnsupported)
	}
	gl.GenerateTextureMipmap(uint32(img))
	return glError("generate mipmaps")
}

// CreateShader compiles GLSL source for stage.
func (d *Device) CreateShader(stage device.ShaderStage, source []byte) (device.Shader, error) {
	typ, ok := shaderType(stage)
	if !ok {
		return 0, fmt.Errorf("%w: stage %s", device.ErrUnsupported, stage)
	}
	s := gl.CreateShader(typ)
	if s == 0 {
		return 0, glError("create shader")
	}
	csrc, free := gl.Strs(string(source) + "\x00")
	gl.ShaderSource(s, 1, csrc, nil)
	free()
	gl.CompileShader(s)

	var status int32
	gl.GetShaderiv(s, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		return device.Shader(s), device.ErrCompileFailed
	}
	return device.Shader(s), nil
}

func (d *Device) ShaderLog(s device.Shader) string {
	var n int32
	gl.GetShaderiv(uint32(s), gl.INFO_LOG_LENGTH, &n)
	if n <= 1 {
		return ""
	}
	buf := make([]uint8, n)
	gl.GetShaderInfoLog(uint32(s), n, nil, &buf[0])
	return strings.TrimRight(string(buf), "\x00")
}

func (d *Device) DeleteShader(s device.Shader) {
	gl.DeleteShader(uint32(s))
}

// CreatePipeline links shaders into a program. The shaders stay owned by
// the caller and are detached once linked.
func (d *Device) CreatePipeline(shaders []device.Shader) (device.Pipeline, error) {
	p := gl.CreateProgram()
	if p == 0 {
		return 0, glError("create program")
	}
	for _, s := range shaders {
		gl.AttachShader(p, uint32(s))
	}
	gl.LinkProgram(p)
	for _, s := range shaders {
		gl.DetachShader(p, uint32(s))
	}

	var status int32
	gl.GetProgramiv(p, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		return device.Pipeline(p), device.ErrLinkFailed
	}
	return device.Pipeline(p), nil
}

func (d *Device) PipelineLog(p device.Pipeline) string {
	var n int32
	gl.GetProgramiv(uint32(p), gl.INFO_LOG_LENGTH, &n)
	if n <= 1 {
		return ""
	}
	buf := make([]uint8, n)
	gl.GetProgramInfoLog(uint32(p), n, nil, &buf[0])
	return strings.TrimRight(string(buf), "\x00")
}

func (d *Device) DeletePipeline(p device.Pipeline) {
	if d.bound == p {
		gl.UseProgram(0)
		d.bound = 0
	}
	gl.DeleteProgram(uint32(p))
}

func (d *Device) BindPipeline(p device.Pipeline) {
	gl.UseProgram(uint32(p))
	d.bound = p
}

// BindUniformConstants sets one uniform location per constant.
func (d *Device) BindUniformConstants(p device.Pipeline, first uint32, constants []device.Constant) {
	prog := uint32(p)
	for i, c := range constants {
		loc := int32(first) + int32(i)
		f := c.Floats()
		switch c.Kind() {
		case device.ConstU32:
			gl.ProgramUniform1ui(prog, loc, c.Uint32())
		case device.ConstI32:
			gl.ProgramUniform1i(prog, loc, c.Int32())
		case device.ConstF32:
			gl.ProgramUniform1f(prog, loc, f[0])
		case device.ConstVec2:
			gl.ProgramUniform2fv(prog, loc, 1, &f[0])
		case device.ConstVec3:
			gl.ProgramUniform3fv(prog, loc, 1, &f[0])
		case device.ConstVec4:
			gl.ProgramUniform4fv(prog, loc, 1, &f[0])
		case device.ConstMat2:
			gl.ProgramUniformMatrix2fv(prog, loc, 1, false, &f[0])
		case device.ConstMat3:
			gl.ProgramUniformMatrix3fv(prog, loc, 1, false, &f[0])
		case device.ConstMat4:
			gl.ProgramUniformMatrix4fv(prog, loc, 1, false, &f[0])
		}
	}
}

// ObjectName labels obj for debuggers such as RenderDoc.
func (d *Device) ObjectName(obj device.Object, name string) {
	var identifier uint32
	switch obj.ObjectKind() {
	case device.KindImage, device.KindImageView:
		identifier = gl.TEXTURE
	case device.KindShader:
		identifier = gl.SHADER
	case device.KindPipeline:
		identifier = gl.PROGRAM
	default:
		return
	}
	gl.ObjectLabel(identifier, uint32(obj.Raw()), int32(len(name)), gl.Str(name+"\x00"))
}

func (d *Device) BindImageViews(first uint32, views []device.ImageView) {
	for i, v := range views {
		gl.BindTextureUnit(first+uint32(i), uint32(v))
	}
}

// BindStorageImageViews binds mip level 0 of each view for read-write
// image load/store.
func (d *Device) BindStorageImageViews(first uint32, views []device.ImageView) {
	for i, v := range views {
		unit := first + uint32(i)
		tv, ok := d.views[v]
		if !ok {
			gl.BindImageTexture(unit, 0, 0, false, 0, gl.READ_WRITE, gl.R8)
			continue
		}
		gl.BindImageTexture(unit, uint32(v), 0, tv.layered, 0, gl.READ_WRITE, internalFormats[tv.format])
	}
}
