// Package logger provides adapters for the logging interface.
package logger

import (
	"context"
	"fmt"
	"maps"
)

// Logger defines the logging interface used throughout the application.
// External loggers that implement these methods can be wrapped with ZapAdapter.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]any)
	Debug(ctx context.Context, msg string, fields map[string]any)
	Warn(ctx context.Context, msg string, fields map[string]any)
	Error(ctx context.Context, msg string, err error, fields map[string]any)
}

// ZapAdapter adapts a Logger to the application's logging interface.
// Base fields are attached to every entry; per-call fields win on conflict.
type ZapAdapter struct {
	log  Logger
	base map[string]any
}

// NewZapAdapter creates a new ZapAdapter wrapping the given logger.
func NewZapAdapter(log Logger) *ZapAdapter {
	return &ZapAdapter{log: log}
}

// With returns a child adapter that adds fields to every entry.
// The receiver is left unchanged.
func (a *ZapAdapter) With(fields map[string]any) *ZapAdapter {
	base := make(map[string]any, len(a.base)+len(fields))
	maps.Copy(base, a.base)
	maps.Copy(base, fields)
	return &ZapAdapter{log: a.log, base: base}
}

// Info logs an info message.
func (a *ZapAdapter) Info(ctx context.Context, msg string, fields map[string]any) {
	a.log.Info(ctx, msg, a.merge(fields))
}

// Debug logs a debug message.
func (a *ZapAdapter) Debug(ctx context.Context, msg string, fields map[string]any) {
	a.log.Debug(ctx, msg, a.merge(fields))
}

// Warn logs a warning message.
func (a *ZapAdapter) Warn(ctx context.Context, msg string, fields map[string]any) {
	a.log.Warn(ctx, msg, a.merge(fields))
}

// Error logs an error message.
func (a *ZapAdapter) Error(ctx context.Context, msg string, err error, fields map[string]any) {
	a.log.Error(ctx, msg, err, a.merge(fields))
}

// Printf logs a formatted message at debug level.
// It lets printf-style hooks such as maxprocs.Logger write through the adapter.
func (a *ZapAdapter) Printf(format string, args ...any) {
	a.log.Debug(context.Background(), fmt.Sprintf(format, args...), a.merge(nil))
}

func (a *ZapAdapter) merge(fields map[string]any) map[string]any {
	if len(a.base) == 0 {
		return fields
	}
	merged := make(map[string]any, len(a.base)+len(fields))
	maps.Copy(merged, a.base)
	maps.Copy(merged, fields)
	return merged
}
