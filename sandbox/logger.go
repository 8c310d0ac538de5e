package sandbox

import (
	"context"
	"log/slog"
	"sync/atomic"
)

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.Default())
}

// SetLogger replaces the package logger used by every sandbox that was not
// given its own with WithLogger. Pass nil to silence logging.
//
// Log levels used:
//   - [slog.LevelDebug]: per-compile and per-resize details
//   - [slog.LevelInfo]: context negotiation and lifecycle events
//   - [slog.LevelError]: errors reported by the default error handler
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the package logger. Safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
