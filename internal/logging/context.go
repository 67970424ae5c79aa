package logging

import (
	"context"
	"log/slog"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/services"
)

// contextHandler copies request-scoped identifiers from the context onto
// every record, so handlers and engine code never thread them by hand.
type contextHandler struct {
	inner slog.Handler
}

func withContextAttrs(inner slog.Handler) slog.Handler {
	return &contextHandler{inner: inner}
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, record slog.Record) error {
	if id, ok := services.RequestIDFromContext(ctx); ok {
		record.AddAttrs(slog.Int64(FieldRequestID, id))
	}
	if command, ok := services.CommandFromContext(ctx); ok {
		record.AddAttrs(slog.String(FieldCommand, command))
	}
	if id, ok := services.CorrelationIDFromContext(ctx); ok {
		record.AddAttrs(slog.String(FieldCorrelationID, id))
	}
	return h.inner.Handle(ctx, record)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{inner: h.inner.WithGroup(name)}
}
