package shaders

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherPoll(t *testing.T) {
	fsys := shaderFS()
	m, _ := newManager(t, WithFS(fsys))
	mesh, err := m.CreatePipelineFromFiles("mesh.vert", "mesh.frag")
	if err != nil {
		t.Fatal(err)
	}
	blur, err := m.CreatePipelineFromFiles("blur.comp.wgsl")
	if err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(m)
	if rs := w.Poll(); rs != nil {
		t.Fatalf("Poll with no changes = %+v", rs)
	}

	fsys["mesh.frag"].ModTime = fsys["mesh.frag"].ModTime.Add(time.Second)
	rs := w.Poll()
	if len(rs) != 1 || rs[0].ID != mesh || rs[0].Err != nil {
		t.Fatalf("Poll after edit = %+v", rs)
	}
	if rs := w.Poll(); rs != nil {
		t.Errorf("second Poll = %+v", rs)
	}
	if it, _ := m.Iteration(blur); it != 0 {
		t.Errorf("unchanged pipeline reloaded %d times", it)
	}
}

func TestWatcherDeletedFile(t *testing.T) {
	fsys := shaderFS()
	m, _ := newManager(t, WithFS(fsys))
	id, err := m.CreatePipelineFromFiles("blur.comp.wgsl")
	if err != nil {
		t.Fatal(err)
	}
	w := NewWatcher(m)

	f := fsys["blur.comp.wgsl"]
	delete(fsys, "blur.comp.wgsl")
	if rs := w.Poll(); rs != nil {
		t.Errorf("Poll after delete = %+v", rs)
	}

	f.ModTime = f.ModTime.Add(time.Minute)
	fsys["blur.comp.wgsl"] = f
	rs := w.Poll()
	if len(rs) != 1 || rs[0].ID != id || rs[0].Err != nil {
		t.Errorf("Poll after restore = %+v", rs)
	}
}

func TestWatcherNewPipeline(t *testing.T) {
	fsys := shaderFS()
	m, _ := newManager(t, WithFS(fsys))
	w := NewWatcher(m)

	if _, err := m.CreatePipelineFromFiles("blur.comp.wgsl"); err != nil {
		t.Fatal(err)
	}
	if rs := w.Poll(); rs != nil {
		t.Errorf("first sight of a file reloaded: %+v", rs)
	}
	fsys["blur.comp.wgsl"].ModTime = time.Now()
	if rs := w.Poll(); len(rs) != 1 {
		t.Errorf("Poll = %+v, want one reload", rs)
	}
}

func TestWatcherRunOS(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blur.comp")
	if err := os.WriteFile(path, []byte(compSrc), 0o600); err != nil {
		t.Fatal(err)
	}
	m, _ := newManager(t)
	id, err := m.CreatePipelineFromFiles(path)
	if err != nil {
		t.Fatal(err)
	}
	w := NewWatcher(m)

	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var got []ReloadResult
	err = w.Run(ctx, 10*time.Millisecond, func(rs []ReloadResult) {
		got = rs
		cancel()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
	if len(got) != 1 || got[0].ID != id || got[0].Err != nil {
		t.Errorf("results = %+v", got)
	}
}

func TestWatcherRunRejectsBadInterval(t *testing.T) {
	m, _ := newManager(t)
	w := NewWatcher(m)
	for _, d := range []time.Duration{0, -time.Second} {
		if err := w.Run(context.Background(), d, nil); !errors.Is(err, ErrBadInterval) {
			t.Errorf("Run(%v) = %v, want ErrBadInterval", d, err)
		}
	}
}
