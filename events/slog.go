package events

import (
	"context"
	"log/slog"

	slogcontext "github.com/veqryn/slog-context"
)

// SlogHandler forwards events to the slog.Logger carried by the context,
// tagged with a realm attribute. The logger is looked up per event so the
// handler itself stays stateless and shareable.
type SlogHandler struct {
	realm string
}

var _ Handler = (*SlogHandler)(nil)

// NewSlogHandler creates a SlogHandler tagging every event with the given
// realm.
func NewSlogHandler(realm string) *SlogHandler {
	return &SlogHandler{realm: realm}
}

// Handle implements the Handler interface.
func (h *SlogHandler) Handle(ctx context.Context, ev Event) {
	logger := slogcontext.FromCtx(ctx).With(slog.String("realm", h.realm))
	logger.LogAttrs(ctx, ev.Level, ev.Message, ev.Attrs...)
}
