package gpures

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/gpures/device/halgpu"
	"github.com/gogpu/gpures/images"
	"github.com/gogpu/gpures/shaders"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for gpures and its sub-packages
// (images, shaders and device/halgpu). By default nothing is logged.
// device/gldevice is configured separately with gldevice.SetLogger so
// that this package does not depend on cgo.
//
// SetLogger is safe for concurrent use. Pass nil to restore the silent
// default.
//
// Log levels used:
//   - [slog.LevelDebug]: resource lifecycle, binds of unknown handles
//   - [slog.LevelInfo]: reload summaries, adapter selection
//   - [slog.LevelWarn]: failed reloads that kept the previous pipeline
//
// Example:
//
//	gpures.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	images.SetLogger(l)
	shaders.SetLogger(l)
	halgpu.SetLogger(l)
}

// Logger returns the current logger used by gpures.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
