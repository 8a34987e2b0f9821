// Package events defines the diagnostics sink that collaborators report
// through during package loading and target materialization. The resolution
// core passes handlers along without interpreting or buffering events.
package events

import (
	"context"
	"log/slog"
)

// Event is a single diagnostic report. Levels reuse the slog scale so
// handlers can forward events to a logger without translation.
type Event struct {
	Level   slog.Level
	Message string
	Attrs   []slog.Attr
}

// Info creates an informational event.
func Info(msg string, attrs ...slog.Attr) Event {
	return Event{Level: slog.LevelInfo, Message: msg, Attrs: attrs}
}

// Warning creates a warning event.
func Warning(msg string, attrs ...slog.Attr) Event {
	return Event{Level: slog.LevelWarn, Message: msg, Attrs: attrs}
}

// Error creates an error event. Reporting an error event does not abort
// anything by itself; error propagation is the caller's concern.
func Error(msg string, attrs ...slog.Attr) Event {
	return Event{Level: slog.LevelError, Message: msg, Attrs: attrs}
}

// Progress creates a low-priority progress event.
func Progress(msg string, attrs ...slog.Attr) Event {
	return Event{Level: slog.LevelDebug, Message: msg, Attrs: attrs}
}

// Handler receives events. Implementations must be safe for concurrent use;
// materialization may report from multiple goroutines.
type Handler interface {
	Handle(ctx context.Context, ev Event)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, ev Event)

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// Discard is a Handler that drops all events.
var Discard Handler = HandlerFunc(func(context.Context, Event) {})
