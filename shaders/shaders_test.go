package shaders

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gogpu/gpures/device"
	"github.com/gogpu/gpures/internal/fakegpu"
)

const (
	vertSrc = "@vertex fn vs_main() {}"
	fragSrc = "@fragment fn fs_main() {}"
	compSrc = "@compute @workgroup_size(64) fn cs_main() {}"
)

func newManager(t *testing.T, opts ...Option) (*Manager, *fakegpu.Device) {
	t.Helper()
	dev := fakegpu.New()
	m := New(dev, opts...)
	t.Cleanup(m.Clear)
	return m, dev
}

func shaderFS() fstest.MapFS {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return fstest.MapFS{
		"mesh.vert":         {Data: []byte(vertSrc), ModTime: t0},
		"mesh.frag":         {Data: []byte(fragSrc), ModTime: t0},
		"blur.comp.wgsl":    {Data: []byte(compSrc), ModTime: t0},
		"post/tonemap.frag": {Data: []byte(fragSrc), ModTime: t0},
	}
}

func TestStageFromPath(t *testing.T) {
	tests := []struct {
		path string
		want device.ShaderStage
	}{
		{"a.vert", device.StageVertex},
		{"a.frag", device.StageFragment},
		{"dir/a.comp", device.StageCompute},
		{"a.geom", device.StageGeometry},
		{"a.tesc", device.StageTessControl},
		{"a.tese", device.StageTessEval},
		{"a.mesh", device.StageMesh},
		{"a.task", device.StageTask},
		{"a.frag.glsl", device.StageFragment},
		{"shaders/blur.comp.wgsl", device.StageCompute},
	}
	for _, tt := range tests {
		got, err := StageFromPath(tt.path)
		if err != nil || got != tt.want {
			t.Errorf("StageFromPath(%q) = %v, %v; want %v", tt.path, got, err, tt.want)
		}
	}

	for _, path := range []string{"a.txt", "a.glsl", "vert", "a.vert.txt"} {
		_, err := StageFromPath(path)
		var unknown *UnknownStageError
		if !errors.As(err, &unknown) || unknown.Path != path || !errors.Is(err, ErrUnknownStage) {
			t.Errorf("StageFromPath(%q) err = %v, want UnknownStageError", path, err)
		}
	}
}

func TestKindAccepts(t *testing.T) {
	tests := []struct {
		kind  Kind
		stage device.ShaderStage
		want  bool
	}{
		{Graphics, device.StageVertex, true},
		{Graphics, device.StageTessControl, true},
		{Graphics, device.StageTessEval, true},
		{Graphics, device.StageGeometry, true},
		{Graphics, device.StageFragment, true},
		{Graphics, device.StageCompute, false},
		{Graphics, device.StageMesh, false},
		{Compute, device.StageCompute, true},
		{Compute, device.StageFragment, false},
		{Mesh, device.StageMesh, true},
		{Mesh, device.StageTask, true},
		{Mesh, device.StageFragment, true},
		{Mesh, device.StageVertex, false},
	}
	for _, tt := range tests {
		if got := tt.kind.Accepts(tt.stage); got != tt.want {
			t.Errorf("%v.Accepts(%v) = %v, want %v", tt.kind, tt.stage, got, tt.want)
		}
	}
}

func TestInferKind(t *testing.T) {
	stages := func(ss ...device.ShaderStage) []Desc {
		descs := make([]Desc, len(ss))
		for i, s := range ss {
			descs[i] = FromLiteral("", s)
		}
		return descs
	}
	tests := []struct {
		name   string
		descs  []Desc
		want   Kind
		wantOK bool
	}{
		{"compute only", stages(device.StageCompute), Compute, true},
		{"vertex fragment", stages(device.StageVertex, device.StageFragment), Graphics, true},
		{"fragment prefers graphics", stages(device.StageFragment), Graphics, true},
		{"mesh fragment", stages(device.StageTask, device.StageMesh, device.StageFragment), Mesh, true},
		{"mixed", stages(device.StageVertex, device.StageCompute), 0, false},
		{"empty", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := InferKind(tt.descs)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("InferKind = %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestCreatePipelineInfersCompute(t *testing.T) {
	m, dev := newManager(t)
	id, err := m.CreatePipeline([]Desc{FromLiteral(compSrc, device.StageCompute)})
	if err != nil {
		t.Fatalf("CreatePipeline: %v", err)
	}
	if k, _ := m.Kind(id); k != Compute {
		t.Errorf("Kind = %v, want compute", k)
	}
	if len(dev.Shaders) != 0 {
		t.Errorf("%d shader objects leaked", len(dev.Shaders))
	}
	native, ok := m.PipelineHandle(id)
	if !ok || dev.Pipelines[native] == nil {
		t.Errorf("PipelineHandle = %v, %v; not live on device", native, ok)
	}
}

func TestCreatePipelineForcedKind(t *testing.T) {
	m, dev := newManager(t)
	_, err := m.CreatePipeline(
		[]Desc{FromLiteral(vertSrc, device.StageVertex)},
		WithKind(Compute))
	if !errors.Is(err, ErrIncompatibleShaderTypes) {
		t.Fatalf("err = %v, want ErrIncompatibleShaderTypes", err)
	}
	if len(dev.Calls) != 0 {
		t.Errorf("incompatible request reached the device: %v", dev.Calls)
	}

	id, err := m.CreatePipeline([]Desc{
		FromLiteral("mesh", device.StageMesh),
		FromLiteral(fragSrc, device.StageFragment),
	}, WithKind(Mesh))
	if err != nil {
		t.Fatalf("CreatePipeline(mesh): %v", err)
	}
	if k, _ := m.Kind(id); k != Mesh {
		t.Errorf("Kind = %v, want mesh", k)
	}
}

func TestCreatePipelineErrors(t *testing.T) {
	tests := []struct {
		name  string
		descs []Desc
		setup func(*fakegpu.Device)
		want  error
	}{
		{
			name: "empty",
			want: ErrNoShadersToLink,
		},
		{
			name:  "no kind fits",
			descs: []Desc{FromLiteral(vertSrc, device.StageVertex), FromLiteral(compSrc, device.StageCompute)},
			want:  ErrIncompatibleShaderTypes,
		},
		{
			name: "compile failure",
			descs: []Desc{
				FromLiteral(vertSrc, device.StageVertex),
				FromLiteral("fn main() { #error missing semicolon", device.StageFragment),
			},
			want: ErrCompilation,
		},
		{
			name:  "link failure",
			descs: []Desc{FromLiteral(vertSrc, device.StageVertex), FromLiteral(fragSrc, device.StageFragment)},
			setup: func(d *fakegpu.Device) { d.FailLink = true },
			want:  ErrLink,
		},
		{
			name:  "missing file",
			descs: []Desc{FromFile("nope.vert", device.StageVertex)},
			want:  ErrFile,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, dev := newManager(t, WithFS(shaderFS()))
			if tt.setup != nil {
				tt.setup(dev)
			}
			_, err := m.CreatePipeline(tt.descs)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if m.Len() != 0 {
				t.Errorf("failed creation left %d pipelines", m.Len())
			}
			if dev.Live() != 0 {
				t.Errorf("failed creation left %d native objects", dev.Live())
			}
		})
	}
}

func TestCompileErrorCarriesLog(t *testing.T) {
	m, _ := newManager(t)
	src := FromLiteral("#error bad token", device.StageFragment)
	_, err := m.CreatePipeline([]Desc{src})

	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *CompileError", err)
	}
	if ce.Source != src.Source || !strings.Contains(ce.Log, "bad token") {
		t.Errorf("CompileError = %+v", ce)
	}
	if !errors.Is(err, device.ErrCompileFailed) {
		t.Error("CompileError does not unwrap to device.ErrCompileFailed")
	}
}

func TestLinkErrorCarriesLog(t *testing.T) {
	m, dev := newManager(t)
	dev.FailLink = true
	_, err := m.CreatePipeline([]Desc{FromLiteral(compSrc, device.StageCompute)})

	var le *LinkError
	if !errors.As(err, &le) || le.Log != "error: link failed" {
		t.Fatalf("err = %v, want *LinkError with log", err)
	}
}

func TestFileErrorUnwraps(t *testing.T) {
	m, _ := newManager(t, WithFS(shaderFS()))
	_, err := m.CreatePipelineFromFiles("missing.frag")

	var fe *FileError
	if !errors.As(err, &fe) || fe.Path != "missing.frag" {
		t.Fatalf("err = %v, want *FileError", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("FileError does not unwrap to fs.ErrNotExist")
	}
}

func TestCreatePipelineFromFiles(t *testing.T) {
	m, dev := newManager(t, WithFS(shaderFS()))
	id, err := m.CreatePipelineFromFiles("mesh.vert", "mesh.frag")
	if err != nil {
		t.Fatalf("CreatePipelineFromFiles: %v", err)
	}
	if k, _ := m.Kind(id); k != Graphics {
		t.Errorf("Kind = %v, want graphics", k)
	}
	want := []Desc{FromFile("mesh.vert", device.StageVertex), FromFile("mesh.frag", device.StageFragment)}
	got := m.Shaders(id)
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Shaders = %v, want %v", got, want)
	}
	if n := len(dev.CallsWithPrefix("DeleteShader")); n != 2 {
		t.Errorf("DeleteShader called %d times, want 2", n)
	}

	if _, err := m.CreatePipelineFromFiles("mesh.vert", "notes.txt"); !errors.Is(err, ErrUnknownStage) {
		t.Errorf("err = %v, want ErrUnknownStage", err)
	}
}

func TestReloadFailureKeepsPipeline(t *testing.T) {
	fsys := shaderFS()
	m, dev := newManager(t, WithFS(fsys))
	id, err := m.CreatePipelineFromFiles("mesh.vert", "mesh.frag")
	if err != nil {
		t.Fatal(err)
	}
	m.AssignLabel(id, "mesh")
	before, _ := m.PipelineHandle(id)

	fsys["mesh.frag"].Data = []byte("@fragment fn fs_main() { #error }")
	results := m.ReloadAll()

	if len(results) != 1 || results[0].ID != id || !errors.Is(results[0].Err, ErrCompilation) {
		t.Fatalf("results = %+v", results)
	}
	after, ok := m.PipelineHandle(id)
	if !ok || after != before {
		t.Errorf("handle after failed reload = %v, want %v", after, before)
	}
	if dev.Live() != 1 {
		t.Errorf("%d native objects live, want only the first pipeline", dev.Live())
	}
	if it, _ := m.Iteration(id); it != 0 {
		t.Errorf("Iteration = %d after failed reload", it)
	}
	if dev.Labels[before] != "mesh RL0" {
		t.Errorf("label = %q", dev.Labels[before])
	}
}

func TestReloadSuccessSwapsPipeline(t *testing.T) {
	fsys := shaderFS()
	m, dev := newManager(t, WithFS(fsys))
	id, err := m.CreatePipelineFromFiles("mesh.vert", "mesh.frag")
	if err != nil {
		t.Fatal(err)
	}
	m.AssignLabel(id, "mesh")
	if err := m.BindPipeline(id); err != nil {
		t.Fatal(err)
	}
	before, _ := m.PipelineHandle(id)

	fsys["mesh.frag"].Data = []byte("@fragment fn fs_main() { discard; }")
	results := m.ReloadAll()
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Label != "mesh RL1" || results[0].Iteration != 1 {
		t.Errorf("result = %+v, want label mesh RL1", results[0])
	}

	after, _ := m.PipelineHandle(id)
	if after == before {
		t.Fatal("handle unchanged after successful reload")
	}
	if _, ok := dev.Pipelines[before]; ok {
		t.Error("old native pipeline not released")
	}
	if dev.Labels[after] != "mesh RL1" {
		t.Errorf("new label = %q, want %q", dev.Labels[after], "mesh RL1")
	}
	if dev.Bound != after {
		t.Errorf("bound = %v, want replacement %v", dev.Bound, after)
	}
	if label, _ := m.Label(id); label != "mesh RL1" {
		t.Errorf("Label = %q", label)
	}

	// The replacement must be bound before the old pipeline is released.
	var bindAt, deleteAt int
	for i, c := range dev.Calls {
		switch c {
		case fmt.Sprintf("BindPipeline %d", after):
			bindAt = i
		case fmt.Sprintf("DeletePipeline %d", before):
			deleteAt = i
		}
	}
	if bindAt > deleteAt {
		t.Errorf("old pipeline released before the replacement was bound: %v", dev.Calls)
	}
}

func TestReloadAllIsBestEffort(t *testing.T) {
	fsys := shaderFS()
	m, _ := newManager(t, WithFS(fsys))
	graphics, err := m.CreatePipelineFromFiles("mesh.vert", "mesh.frag")
	if err != nil {
		t.Fatal(err)
	}
	compute, err := m.CreatePipelineFromFiles("blur.comp.wgsl")
	if err != nil {
		t.Fatal(err)
	}
	gBefore, _ := m.PipelineHandle(graphics)
	cBefore, _ := m.PipelineHandle(compute)

	fsys["mesh.vert"].Data = []byte("#error")
	results := m.ReloadAll()
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		switch r.ID {
		case graphics:
			if r.Err == nil {
				t.Error("broken graphics pipeline reported success")
			}
		case compute:
			if r.Err != nil {
				t.Errorf("compute reload failed: %v", r.Err)
			}
		}
	}
	if h, _ := m.PipelineHandle(graphics); h != gBefore {
		t.Error("failed pipeline was replaced")
	}
	if h, _ := m.PipelineHandle(compute); h == cBefore {
		t.Error("healthy pipeline was not replaced")
	}
}

func TestReloadKeepsKind(t *testing.T) {
	m, _ := newManager(t)
	id, err := m.CreatePipeline([]Desc{FromLiteral(fragSrc, device.StageFragment)}, WithKind(Mesh))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Reload(id); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if k, _ := m.Kind(id); k != Mesh {
		t.Errorf("Kind after reload = %v, want mesh", k)
	}
}

func TestReloadChanged(t *testing.T) {
	m, _ := newManager(t, WithFS(shaderFS()))
	a, _ := m.CreatePipelineFromFiles("mesh.vert", "mesh.frag")
	b, _ := m.CreatePipelineFromFiles("mesh.vert", "post/tonemap.frag")
	c, _ := m.CreatePipelineFromFiles("blur.comp.wgsl")

	results := m.ReloadChanged([]string{"./post/tonemap.frag"})
	if len(results) != 1 || results[0].ID != b {
		t.Fatalf("results = %+v, want only %v", results, b)
	}

	results = m.ReloadChanged([]string{"mesh.vert"})
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.ID == c {
			t.Error("unrelated pipeline reloaded")
		}
	}
	if it, _ := m.Iteration(a); it != 1 {
		t.Errorf("Iteration(a) = %d, want 1", it)
	}
	if it, _ := m.Iteration(b); it != 2 {
		t.Errorf("Iteration(b) = %d, want 2", it)
	}

	want := []string{"blur.comp.wgsl", "mesh.frag", "mesh.vert", "post/tonemap.frag"}
	got := m.Files()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Files = %v, want %v", got, want)
	}
}

func TestReloadReadsFileAgain(t *testing.T) {
	reads := 0
	m, _ := newManager(t, WithReadFile(func(string) ([]byte, error) {
		reads++
		return []byte(compSrc), nil
	}))
	id, err := m.CreatePipelineFromFiles("blur.comp")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Reload(id); err != nil {
		t.Fatal(err)
	}
	if reads != 2 {
		t.Errorf("source read %d times, want 2", reads)
	}
}

func TestMissingPipeline(t *testing.T) {
	m, dev := newManager(t)
	id, err := m.CreatePipeline([]Desc{FromLiteral(compSrc, device.StageCompute)})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.DeletePipeline(id); err != nil {
		t.Fatalf("DeletePipeline: %v", err)
	}
	if dev.Live() != 0 || m.Len() != 0 {
		t.Errorf("after delete: %d native objects, %d entries", dev.Live(), m.Len())
	}

	if err := m.DeletePipeline(id); !errors.Is(err, ErrMissingPipeline) {
		t.Errorf("second DeletePipeline err = %v", err)
	}
	if err := m.BindPipeline(id); !errors.Is(err, ErrMissingPipeline) {
		t.Errorf("BindPipeline err = %v", err)
	}
	if err := m.BindUniformConstants(id, 0, []device.Constant{device.Float(1)}); !errors.Is(err, ErrMissingPipeline) {
		t.Errorf("BindUniformConstants err = %v", err)
	}
	if err := m.Reload(id); !errors.Is(err, ErrMissingPipeline) {
		t.Errorf("Reload err = %v", err)
	}

	dev.Calls = nil
	m.AssignLabel(id, "ghost")
	if len(dev.Calls) != 0 {
		t.Errorf("label of deleted pipeline reached device: %v", dev.Calls)
	}
	if _, ok := m.PipelineHandle(id); ok {
		t.Error("PipelineHandle resolved a deleted pipeline")
	}
}

func TestBindUniformConstants(t *testing.T) {
	m, dev := newManager(t)
	id, _ := m.CreatePipeline([]Desc{FromLiteral(compSrc, device.StageCompute)})
	cs := []device.Constant{device.Uint(7), device.Float(0.5)}
	if err := m.BindUniformConstants(id, 2, cs); err != nil {
		t.Fatal(err)
	}
	native, _ := m.PipelineHandle(id)
	got := dev.Constants[native]
	if len(got) != 4 || got[2].Uint32() != 7 {
		t.Errorf("constants = %v", got)
	}
}

func TestLabels(t *testing.T) {
	m, dev := newManager(t, WithLabelPrefix("scene"))
	auto, _ := m.CreatePipeline([]Desc{FromLiteral(compSrc, device.StageCompute)})
	named, _ := m.CreatePipeline([]Desc{FromLiteral(compSrc, device.StageCompute)}, WithLabel("blur"))

	label, ok := m.Label(auto)
	if !ok || !strings.HasPrefix(label, "scene/pipeline ") || !strings.HasSuffix(label, " RL0") {
		t.Errorf("auto label = %q", label)
	}
	if label, _ := m.Label(named); label != "blur RL0" {
		t.Errorf("named label = %q", label)
	}

	m.AssignLabel(named, "gauss")
	native, _ := m.PipelineHandle(named)
	if dev.Labels[native] != "gauss RL0" {
		t.Errorf("device label = %q", dev.Labels[native])
	}
}

func TestUnnamedPipelineHasNoLabel(t *testing.T) {
	m, dev := newManager(t)
	id, _ := m.CreatePipeline([]Desc{FromLiteral(compSrc, device.StageCompute)})
	if err := m.Reload(id); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Label(id); ok {
		t.Error("unnamed pipeline has a label")
	}
	if len(dev.Labels) != 0 {
		t.Errorf("labels = %v", dev.Labels)
	}
}

func TestClear(t *testing.T) {
	m, dev := newManager(t)
	for range 3 {
		if _, err := m.CreatePipeline([]Desc{FromLiteral(compSrc, device.StageCompute)}); err != nil {
			t.Fatal(err)
		}
	}
	m.Clear()
	if m.Len() != 0 || dev.Live() != 0 {
		t.Errorf("after Clear: %d entries, %d native objects", m.Len(), dev.Live())
	}
	if results := m.ReloadAll(); len(results) != 0 {
		t.Errorf("ReloadAll after Clear = %v", results)
	}
}

func TestSourceString(t *testing.T) {
	if got := File("a.vert").String(); got != `file("a.vert")` {
		t.Errorf("File.String = %s", got)
	}
	long := Literal(strings.Repeat("x", 300)).String()
	if strings.Count(long, "x") != 100 {
		t.Errorf("literal not shortened: %d chars", strings.Count(long, "x"))
	}
	if FromLiteral("a", device.StageVertex) != FromLiteral("a", device.StageVertex) {
		t.Error("equal descs compare unequal")
	}
}
