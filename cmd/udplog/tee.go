package main

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler hands every record to each of its handlers that is enabled for
// the record's level.
type teeHandler struct {
	hs []slog.Handler
}

func newTeeHandler(hs ...slog.Handler) *teeHandler {
	return &teeHandler{hs: hs}
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.hs {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs error
	for _, h := range t.hs {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		errs = errors.Join(errs, h.Handle(ctx, r.Clone()))
	}
	return errs
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(t.hs))
	for i, h := range t.hs {
		hs[i] = h.WithAttrs(attrs)
	}
	return &teeHandler{hs: hs}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(t.hs))
	for i, h := range t.hs {
		hs[i] = h.WithGroup(name)
	}
	return &teeHandler{hs: hs}
}
