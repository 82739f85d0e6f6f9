// Package fakegpu provides an in-memory device.Device for tests. It keeps
// texel data on the host, records every call, and can be told to fail
// compilation, linking or allocation.
package fakegpu

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gogpu/gpures/device"
	"github.com/gogpu/gpures/internal/texels"
)

// FailMarker makes CreateShader fail when it appears in the source.
const FailMarker = "#error"

// Device is a fake device.Device. The zero value is not usable; call New.
type Device struct {
	next uint64

	Images    map[device.Image]*texels.Image
	Views     map[device.ImageView]device.Image
	Shaders   map[device.Shader]device.ShaderStage
	Pipelines map[device.Pipeline][]device.ShaderStage

	shaderLogs   map[device.Shader]string
	pipelineLogs map[device.Pipeline]string

	Labels    map[device.Object]string
	Bound     device.Pipeline
	Samplers  map[uint32]device.ImageView
	Storage   map[uint32]device.ImageView
	Constants map[device.Pipeline][]device.Constant
	Calls     []string

	// FailImages makes CreateImage fail with ErrOutOfMemory.
	FailImages bool
	// FailLink makes CreatePipeline report a link failure.
	FailLink bool
	// FailWrites makes WriteImage fail with ErrBadRegion.
	FailWrites bool
}

// New returns an empty fake device.
func New() *Device {
	return &Device{
		Images:       map[device.Image]*texels.Image{},
		Views:        map[device.ImageView]device.Image{},
		Shaders:      map[device.Shader]device.ShaderStage{},
		Pipelines:    map[device.Pipeline][]device.ShaderStage{},
		shaderLogs:   map[device.Shader]string{},
		pipelineLogs: map[device.Pipeline]string{},
		Labels:       map[device.Object]string{},
		Samplers:     map[uint32]device.ImageView{},
		Storage:      map[uint32]device.ImageView{},
		Constants:    map[device.Pipeline][]device.Constant{},
	}
}

var _ device.Device = (*Device)(nil)

func (d *Device) id() uint64 {
	d.next++
	return d.next
}

func (d *Device) record(format string, args ...any) {
	d.Calls = append(d.Calls, fmt.Sprintf(format, args...))
}

// Live returns the number of native objects that have not been deleted.
func (d *Device) Live() int {
	return len(d.Images) + len(d.Views) + len(d.Shaders) + len(d.Pipelines)
}

// CreateImage implements device.Device.
func (d *Device) CreateImage(t device.ImageType, f device.Format, levels uint32) (device.Image, error) {
	if d.FailImages {
		return 0, device.ErrOutOfMemory
	}
	if err := t.Validate(); err != nil {
		return 0, err
	}
	img := device.Image(d.id())
	d.Images[img] = texels.New(t, f, max(levels, 1))
	d.record("CreateImage %d", img)
	return img, nil
}

// DeleteImage implements device.Device.
func (d *Device) DeleteImage(img device.Image) {
	delete(d.Images, img)
	d.record("DeleteImage %d", img)
}

// CreateImageView implements device.Device.
func (d *Device) CreateImageView(img device.Image, vt device.ImageViewType, f device.Format, r device.SubresourceRange) (device.ImageView, error) {
	if _, ok := d.Images[img]; !ok {
		return 0, device.ErrInvalidObject
	}
	v := device.ImageView(d.id())
	d.Views[v] = img
	d.record("CreateImageView %d %s levels=%d layers=%d", v, vt, r.Levels, r.Layers)
	return v, nil
}

// DeleteImageView implements device.Device.
func (d *Device) DeleteImageView(v device.ImageView) {
	delete(d.Views, v)
	d.record("DeleteImageView %d", v)
}

// WriteImage implements device.Device.
func (d *Device) WriteImage(img device.Image, r device.Region, l device.MemoryLayout, data []byte) error {
	if d.FailWrites {
		return device.ErrBadRegion
	}
	im, ok := d.Images[img]
	if !ok {
		return device.ErrInvalidObject
	}
	return im.Write(r, l, data)
}

// ReadImage implements device.Device.
func (d *Device) ReadImage(img device.Image, r device.Region, l device.MemoryLayout, dst []byte) error {
	im, ok := d.Images[img]
	if !ok {
		return device.ErrInvalidObject
	}
	return im.Read(r, l, dst)
}

// GenerateMipmaps implements device.Device.
func (d *Device) GenerateMipmaps(img device.Image) error {
	im, ok := d.Images[img]
	if !ok {
		return device.ErrInvalidObject
	}
	im.GenerateMipmaps()
	d.record("GenerateMipmaps %d", img)
	return nil
}

// CreateShader implements device.Device. Sources containing FailMarker
// fail to compile.
func (d *Device) CreateShader(stage device.ShaderStage, src []byte) (device.Shader, error) {
	s := device.Shader(d.id())
	d.Shaders[s] = stage
	d.record("CreateShader %d %s", s, stage)
	if i := bytes.Index(src, []byte(FailMarker)); i >= 0 {
		d.shaderLogs[s] = fmt.Sprintf("0:%d: %s", i, strings.TrimSpace(string(src[i:])))
		return s, device.ErrCompileFailed
	}
	return s, nil
}

// ShaderLog implements device.Device.
func (d *Device) ShaderLog(s device.Shader) string { return d.shaderLogs[s] }

// DeleteShader implements device.Device.
func (d *Device) DeleteShader(s device.Shader) {
	delete(d.Shaders, s)
	delete(d.shaderLogs, s)
	d.record("DeleteShader %d", s)
}

// CreatePipeline implements device.Device.
func (d *Device) CreatePipeline(shaders []device.Shader) (device.Pipeline, error) {
	stages := make([]device.ShaderStage, 0, len(shaders))
	for _, s := range shaders {
		st, ok := d.Shaders[s]
		if !ok {
			return 0, fmt.Errorf("%w: shader %d", device.ErrInvalidObject, s)
		}
		stages = append(stages, st)
	}
	p := device.Pipeline(d.id())
	d.Pipelines[p] = stages
	d.record("CreatePipeline %d", p)
	if d.FailLink {
		d.pipelineLogs[p] = "error: link failed"
		return p, device.ErrLinkFailed
	}
	return p, nil
}

// PipelineLog implements device.Device.
func (d *Device) PipelineLog(p device.Pipeline) string { return d.pipelineLogs[p] }

// DeletePipeline implements device.Device.
func (d *Device) DeletePipeline(p device.Pipeline) {
	delete(d.Pipelines, p)
	delete(d.pipelineLogs, p)
	delete(d.Constants, p)
	if d.Bound == p {
		d.Bound = 0
	}
	d.record("DeletePipeline %d", p)
}

// BindPipeline implements device.Device.
func (d *Device) BindPipeline(p device.Pipeline) {
	d.Bound = p
	d.record("BindPipeline %d", p)
}

// BindUniformConstants implements device.Device.
func (d *Device) BindUniformConstants(p device.Pipeline, first uint32, cs []device.Constant) {
	cur := d.Constants[p]
	if need := int(first) + len(cs); len(cur) < need {
		cur = append(cur, make([]device.Constant, need-len(cur))...)
	}
	copy(cur[first:], cs)
	d.Constants[p] = cur
	d.record("BindUniformConstants %d %d", p, first)
}

// ObjectName implements device.Device.
func (d *Device) ObjectName(obj device.Object, name string) {
	d.Labels[obj] = name
	d.record("ObjectName %s %d %q", obj.ObjectKind(), obj.Raw(), name)
}

// BindImageViews implements device.Device.
func (d *Device) BindImageViews(first uint32, views []device.ImageView) {
	for i, v := range views {
		d.Samplers[first+uint32(i)] = v
	}
	d.record("BindImageViews %d", first)
}

// BindStorageImageViews implements device.Device.
func (d *Device) BindStorageImageViews(first uint32, views []device.ImageView) {
	for i, v := range views {
		d.Storage[first+uint32(i)] = v
	}
	d.record("BindStorageImageViews %d", first)
}

// CallsWithPrefix returns the recorded calls that start with prefix.
func (d *Device) CallsWithPrefix(prefix string) []string {
	var out []string
	for _, c := range d.Calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}
