package shaders

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// Watcher reloads pipelines whose shader files change on disk. It polls
// modification times; call Poll from the render loop or use Run.
type Watcher struct {
	m    *Manager
	stat func(string) (fs.FileInfo, error)
	seen map[string]time.Time
}

// NewWatcher returns a watcher over every file m's pipelines read. Files
// of pipelines created later are picked up by the next Poll.
func NewWatcher(m *Manager) *Watcher {
	w := &Watcher{m: m, stat: os.Stat, seen: make(map[string]time.Time)}
	if fsys := m.opts.fsys; fsys != nil {
		w.stat = func(name string) (fs.FileInfo, error) { return fs.Stat(fsys, name) }
	}
	for _, f := range m.Files() {
		w.seen[f] = w.modTime(f)
	}
	return w
}

// modTime returns the zero time for files that cannot be stat'ed.
func (w *Watcher) modTime(path string) time.Time {
	fi, err := w.stat(path)
	if err != nil {
		return time.Time{}
	}
	return fi.ModTime()
}

// Poll reloads the pipelines reading a file modified since the previous
// poll and returns their results. A file that disappears is ignored until
// it comes back.
func (w *Watcher) Poll() []ReloadResult {
	var changed []string
	for _, f := range w.m.Files() {
		mod := w.modTime(f)
		prev, known := w.seen[f]
		w.seen[f] = mod
		if known && !mod.IsZero() && !mod.Equal(prev) {
			changed = append(changed, f)
		}
	}
	if len(changed) == 0 {
		return nil
	}
	slogger().Debug("shaders: files changed", "files", changed)
	return w.m.ReloadChanged(changed)
}

// Run polls every interval until ctx is done, passing non-empty results
// to fn. It returns ctx.Err(), or ErrBadInterval before polling if
// interval is not positive. Run reloads on the calling goroutine, so
// nothing else may use the manager while it runs.
func (w *Watcher) Run(ctx context.Context, interval time.Duration, fn func([]ReloadResult)) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %v", ErrBadInterval, interval)
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if rs := w.Poll(); len(rs) > 0 && fn != nil {
				fn(rs)
			}
		}
	}
}
