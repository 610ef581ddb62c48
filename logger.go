package memoize

import (
	"context"
	"log/slog"
)

// Logger is the debug-logging collaborator this package needs — spec §7:
// "RefreshError: swallowed, logged at debug". Modeled the same way the
// teacher models its pluggable rwMutex (mutex.go): an interface plus
// ready-made implementations, rather than hard-wiring a specific logging
// library. With no logger configured, nothing is logged (noopLogger).
//
// No example repo in the retrieval pack wires a third-party structured
// logger (zerolog/zap/logrus) into a library of this shape, so the slog
// implementation below is the one ambient concern built on the standard
// library rather than an ecosystem package (see DESIGN.md).
type Logger interface {
	Debug(msg string, kv ...any)
}

// slogLogger is the Logger returned by NewSlogLogger, backed by log/slog at
// debug level.
type slogLogger struct {
	inner *slog.Logger
}

// NewSlogLogger wraps an existing *slog.Logger as a Logger. Passing nil
// uses slog.Default().
func NewSlogLogger(inner *slog.Logger) Logger {
	if inner == nil {
		inner = slog.Default()
	}
	return slogLogger{inner: inner}
}

func (l slogLogger) Debug(msg string, kv ...any) {
	l.inner.Log(context.Background(), slog.LevelDebug, msg, kv...)
}

// noopLogger discards everything; used when no logger is configured.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
