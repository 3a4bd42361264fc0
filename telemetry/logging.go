// Package telemetry carries the engine's ambient logging and metrics
// concerns: structured, tick/actor-correlated logging via log/slog, and a
// Prometheus metrics provider exposing operational counters.
package telemetry

import (
	"log/slog"
	"os"
)

// Logger wraps a *slog.Logger with the fields notable engine events are
// correlated by (tick, sim_time, actor_id), mirroring the correlated-logger
// pattern used elsewhere in the corpus for request-scoped logging.
type Logger struct {
	base *slog.Logger
}

// NewLogger builds a Logger writing structured text to stderr by default.
func NewLogger(base *slog.Logger) *Logger {
	if base == nil {
		base = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Logger{base: base}
}

// WithTick returns a Logger whose subsequent entries are tagged with the
// given tick number and simulation time.
func (l *Logger) WithTick(tick int64, simTime float64) *Logger {
	return &Logger{base: l.base.With("tick", tick, "sim_time", simTime)}
}

// WithActor returns a Logger whose subsequent entries are also tagged with
// an actor id.
func (l *Logger) WithActor(actorID string) *Logger {
	return &Logger{base: l.base.With("actor_id", actorID)}
}

func (l *Logger) Info(msg string, args ...any)  { l.base.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.base.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.base.Error(msg, args...) }
func (l *Logger) Debug(msg string, args ...any) { l.base.Debug(msg, args...) }
