// Package shaders builds GPU pipelines from shader recipes and keeps them
// reloadable.
//
// A pipeline is created from a list of shader descriptions (source plus
// stage). The manager compiles every shader, links them, releases the
// intermediate shader objects and remembers the recipe. Reloading
// re-runs the recipe: on success the pipeline's native object is
// replaced, on failure the previous one stays live, so a broken edit to a
// shader file never leaves a pipeline without a valid native object.
//
// Basic usage:
//
//	m := shaders.New(dev)
//	id, err := m.CreatePipelineFromFiles("mesh.vert", "mesh.frag")
//	if err != nil {
//		return err
//	}
//	m.AssignLabel(id, "mesh")
//	...
//	for _, r := range m.ReloadAll() {
//		if r.Err != nil {
//			log.Printf("%v: %v", r.ID, r.Err)
//		}
//	}
package shaders

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gogpu/gpures/device"
	"github.com/gogpu/gpures/handle"
)

// Pipeline is the bookkeeping record of a managed pipeline.
type Pipeline struct {
	native    device.Pipeline
	kind      Kind
	descs     []Desc
	name      string
	iteration int
}

// label returns the debug label "name RL<iteration>", if the pipeline has
// a name.
func (p *Pipeline) label() (string, bool) {
	if p.name == "" {
		return "", false
	}
	return fmt.Sprintf("%s RL%d", p.name, p.iteration), true
}

// PipelineID identifies a managed pipeline.
type PipelineID = handle.Handle[Pipeline]

// ReloadResult is the outcome of reloading one pipeline. Err is nil when
// the pipeline now runs the new code; otherwise the previous native
// pipeline is still in place.
type ReloadResult struct {
	ID        PipelineID
	Label     string
	Iteration int
	Err       error
}

// Manager owns pipelines created on one device. The device is borrowed:
// the manager never closes it.
//
// Manager is not safe for concurrent use.
type Manager struct {
	dev       device.Device
	pipelines handle.Table[Pipeline]
	opts      options
	bound     PipelineID
}

// New returns a manager for dev.
func New(dev device.Device, opts ...Option) *Manager {
	m := &Manager{dev: dev, opts: defaultOptions()}
	for _, opt := range opts {
		opt(&m.opts)
	}
	return m
}

func (m *Manager) readSource(src Source) ([]byte, error) {
	path, ok := src.Path()
	if !ok {
		return []byte(src.literal), nil
	}
	b, err := m.opts.readFile(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	return b, nil
}

// loadShader compiles one shader. A shader that fails to compile is
// released before the error is returned.
func (m *Manager) loadShader(d Desc) (device.Shader, error) {
	src, err := m.readSource(d.Source)
	if err != nil {
		return 0, err
	}

	s, err := m.dev.CreateShader(d.Stage, src)
	switch {
	case err == nil:
		return s, nil
	case errors.Is(err, device.ErrCompileFailed):
		log := m.dev.ShaderLog(s)
		m.dev.DeleteShader(s)
		slogger().Debug("shaders: compile failed", "shader", d, "log", log)
		return 0, &CompileError{Source: d.Source, Log: log, Err: err}
	default:
		if s != 0 {
			m.dev.DeleteShader(s)
		}
		return 0, fmt.Errorf("shaders: create %s shader: %w", d.Stage, err)
	}
}

func stageList(descs []Desc) string {
	names := make([]string, len(descs))
	for i, d := range descs {
		names[i] = d.Stage.String()
	}
	return strings.Join(names, ", ")
}

// loadPipeline compiles and links descs into a native pipeline. A zero
// kind is inferred from the stages. Every intermediate shader is released
// whatever the outcome, and nothing is left behind on failure.
func (m *Manager) loadPipeline(descs []Desc, kind Kind) (device.Pipeline, Kind, error) {
	if len(descs) == 0 {
		return 0, 0, ErrNoShadersToLink
	}
	if kind != 0 {
		if !kind.acceptsAll(descs) {
			return 0, 0, fmt.Errorf("%w: %s pipeline cannot hold [%s]",
				ErrIncompatibleShaderTypes, kind, stageList(descs))
		}
	} else {
		var ok bool
		if kind, ok = InferKind(descs); !ok {
			return 0, 0, fmt.Errorf("%w: no pipeline kind holds [%s]",
				ErrIncompatibleShaderTypes, stageList(descs))
		}
	}

	compiled := make([]device.Shader, 0, len(descs))
	release := func() {
		for _, s := range compiled {
			m.dev.DeleteShader(s)
		}
	}
	for _, d := range descs {
		s, err := m.loadShader(d)
		if err != nil {
			release()
			return 0, 0, err
		}
		compiled = append(compiled, s)
	}

	p, err := m.dev.CreatePipeline(compiled)
	release()
	switch {
	case err == nil:
		return p, kind, nil
	case errors.Is(err, device.ErrLinkFailed):
		log := m.dev.PipelineLog(p)
		m.dev.DeletePipeline(p)
		slogger().Debug("shaders: link failed", "kind", kind, "log", log)
		return 0, 0, &LinkError{Log: log, Err: err}
	default:
		if p != 0 {
			m.dev.DeletePipeline(p)
		}
		return 0, 0, fmt.Errorf("shaders: create %s pipeline: %w", kind, err)
	}
}

// CreatePipeline compiles and links descs and starts managing the
// result. The pipeline kind is inferred from the shader stages unless
// WithKind is given. Nothing is created when an error is returned.
func (m *Manager) CreatePipeline(descs []Desc, opts ...PipelineOption) (PipelineID, error) {
	var po pipelineOptions
	for _, opt := range opts {
		opt(&po)
	}

	native, kind, err := m.loadPipeline(descs, po.kind)
	if err != nil {
		return PipelineID{}, err
	}
	id := m.pipelines.Insert(Pipeline{native: native, kind: kind, descs: slices.Clone(descs)})

	name := po.label
	if name == "" && m.opts.labelPrefix != "" {
		name = fmt.Sprintf("%s/pipeline %v", m.opts.labelPrefix, id)
	}
	if name != "" {
		m.AssignLabel(id, name)
	}
	slogger().Debug("shaders: created pipeline", "id", id, "kind", kind, "shaders", len(descs))
	return id, nil
}

// CreatePipelineFromFiles creates a pipeline from shader files, taking
// each shader's stage from its file name (see StageFromPath).
func (m *Manager) CreatePipelineFromFiles(paths ...string) (PipelineID, error) {
	descs := make([]Desc, 0, len(paths))
	for _, p := range paths {
		stage, err := StageFromPath(p)
		if err != nil {
			return PipelineID{}, err
		}
		descs = append(descs, FromFile(p, stage))
	}
	return m.CreatePipeline(descs)
}

// reload rebuilds one pipeline from its recipe with its current kind.
// The new native pipeline replaces the old one, which is released only
// after the swap; if the old one was bound the new one is bound first.
func (m *Manager) reload(id PipelineID) error {
	p := m.pipelines.Ptr(id)
	if p == nil {
		return fmt.Errorf("%w: %v", ErrMissingPipeline, id)
	}
	native, _, err := m.loadPipeline(p.descs, p.kind)
	if err != nil {
		return err
	}

	old := p.native
	p.native = native
	p.iteration++
	if name, ok := p.label(); ok {
		m.dev.ObjectName(native, name)
	}
	if m.bound == id {
		m.dev.BindPipeline(native)
	}
	m.dev.DeletePipeline(old)
	return nil
}

func (m *Manager) reloadResult(id PipelineID) ReloadResult {
	err := m.reload(id)
	r := ReloadResult{ID: id, Err: err}
	if p := m.pipelines.Ptr(id); p != nil {
		r.Label, _ = p.label()
		r.Iteration = p.iteration
	}
	if err != nil {
		slogger().Warn("shaders: reload failed, keeping previous pipeline", "id", id, "err", err)
	}
	return r
}

func (m *Manager) reloadEach(ids []PipelineID) []ReloadResult {
	results := make([]ReloadResult, 0, len(ids))
	failed := 0
	for _, id := range ids {
		r := m.reloadResult(id)
		if r.Err != nil {
			failed++
		}
		results = append(results, r)
	}
	if len(ids) > 0 {
		slogger().Info("shaders: reloaded pipelines", "ok", len(ids)-failed, "failed", failed)
	}
	return results
}

// ReloadAll rebuilds every pipeline from its recipe. A pipeline that
// fails to rebuild keeps its previous native pipeline; its failure is
// logged and reported in its result. Results are in table order.
func (m *Manager) ReloadAll() []ReloadResult {
	ids := make([]PipelineID, 0, m.pipelines.Len())
	for id := range m.pipelines.All() {
		ids = append(ids, id)
	}
	return m.reloadEach(ids)
}

// Reload rebuilds one pipeline. On error the pipeline is unchanged.
func (m *Manager) Reload(id PipelineID) error {
	r := m.reloadResult(id)
	return r.Err
}

// ReloadChanged rebuilds the pipelines whose recipe reads any of the
// given files.
func (m *Manager) ReloadChanged(paths []string) []ReloadResult {
	changed := make(map[string]bool, len(paths))
	for _, p := range paths {
		changed[filepath.Clean(p)] = true
	}

	var ids []PipelineID
	for id, p := range m.pipelines.All() {
		if slices.ContainsFunc(p.descs, func(d Desc) bool {
			path, ok := d.Source.Path()
			return ok && changed[filepath.Clean(path)]
		}) {
			ids = append(ids, id)
		}
	}
	return m.reloadEach(ids)
}

// Files returns the sorted set of shader files read by any pipeline.
func (m *Manager) Files() []string {
	var files []string
	for _, p := range m.pipelines.All() {
		for _, d := range p.descs {
			if path, ok := d.Source.Path(); ok {
				files = append(files, filepath.Clean(path))
			}
		}
	}
	slices.Sort(files)
	return slices.Compact(files)
}

// PipelineHandle returns the current native pipeline behind id.
func (m *Manager) PipelineHandle(id PipelineID) (device.Pipeline, bool) {
	p, ok := m.pipelines.Get(id)
	return p.native, ok
}

// Kind returns the kind of the pipeline behind id.
func (m *Manager) Kind(id PipelineID) (Kind, bool) {
	p, ok := m.pipelines.Get(id)
	return p.kind, ok
}

// Iteration returns how many times the pipeline has been reloaded
// successfully.
func (m *Manager) Iteration(id PipelineID) (int, bool) {
	p, ok := m.pipelines.Get(id)
	return p.iteration, ok
}

// Label returns the pipeline's current debug label, "name RL<iteration>",
// or false if it has no name.
func (m *Manager) Label(id PipelineID) (string, bool) {
	p := m.pipelines.Ptr(id)
	if p == nil {
		return "", false
	}
	return p.label()
}

// Shaders returns a copy of the pipeline's recipe.
func (m *Manager) Shaders(id PipelineID) []Desc {
	p, ok := m.pipelines.Get(id)
	if !ok {
		return nil
	}
	return slices.Clone(p.descs)
}

// AssignLabel sets the pipeline's base name and labels the native
// pipeline "name RL<iteration>". Reloads keep the name and bump the
// iteration. Unknown handles are ignored.
func (m *Manager) AssignLabel(id PipelineID, name string) {
	p := m.pipelines.Ptr(id)
	if p == nil {
		slogger().Debug("shaders: label of unknown pipeline ignored", "id", id)
		return
	}
	p.name = name
	label, _ := p.label()
	m.dev.ObjectName(p.native, label)
}

// BindPipeline makes the pipeline current. A reload of the bound
// pipeline binds its replacement.
func (m *Manager) BindPipeline(id PipelineID) error {
	p, ok := m.pipelines.Get(id)
	if !ok {
		return fmt.Errorf("%w: %v", ErrMissingPipeline, id)
	}
	m.dev.BindPipeline(p.native)
	m.bound = id
	return nil
}

// BindUniformConstants sets uniform constants of the pipeline starting at
// location first.
func (m *Manager) BindUniformConstants(id PipelineID, first uint32, constants []device.Constant) error {
	p, ok := m.pipelines.Get(id)
	if !ok {
		return fmt.Errorf("%w: %v", ErrMissingPipeline, id)
	}
	m.dev.BindUniformConstants(p.native, first, constants)
	return nil
}

// DeletePipeline releases the pipeline and forgets it.
func (m *Manager) DeletePipeline(id PipelineID) error {
	p, ok := m.pipelines.Remove(id)
	if !ok {
		return fmt.Errorf("%w: %v", ErrMissingPipeline, id)
	}
	m.dev.DeletePipeline(p.native)
	if m.bound == id {
		m.bound = PipelineID{}
	}
	slogger().Debug("shaders: deleted pipeline", "id", id)
	return nil
}

// Clear releases every pipeline.
func (m *Manager) Clear() {
	n := m.pipelines.Len()
	for _, p := range m.pipelines.Drain() {
		m.dev.DeletePipeline(p.native)
	}
	m.bound = PipelineID{}
	if n > 0 {
		slogger().Debug("shaders: cleared", "pipelines", n)
	}
}

// Len returns the number of live pipelines.
func (m *Manager) Len() int { return m.pipelines.Len() }
