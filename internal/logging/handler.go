// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that also records significant
// log lines in the event log. Records at WARN and above are persisted.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/olegiv/oloc-go/internal/model"
	"github.com/olegiv/oloc-go/internal/store"
	"github.com/olegiv/oloc-go/internal/util"
)

// Attribute keys with special meaning to the handler.
const (
	AttrCategory     = "category"
	AttrTranslatorID = "translator_id"
)

// ParseLevel maps a configured level name to a slog.Level. Unknown names
// yield INFO.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewTextLogger builds the process logger.
func NewTextLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// EventLogHandler wraps another handler and writes records at or above its
// level into the events table.
type EventLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level
	attrs   []slog.Attr
}

// NewEventLogHandler wraps inner, persisting WARN and ERROR records.
func NewEventLogHandler(inner slog.Handler, db *sql.DB) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, db, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel wraps inner with a custom persistence level.
func NewEventLogHandlerWithLevel(inner slog.Handler, db *sql.DB, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level >= h.level {
		h.persist(r)
	}
	return nil
}

// WithAttrs implements slog.Handler. The attributes also reach the event
// metadata.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EventLogHandler{
		inner:   h.inner.WithAttrs(attrs),
		queries: h.queries,
		level:   h.level,
		attrs:   append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	return &EventLogHandler{
		inner:   h.inner.WithGroup(name),
		queries: h.queries,
		level:   h.level,
		attrs:   h.attrs,
	}
}

// persist writes the record with a fresh context so a cancelled request
// still leaves its trace.
func (h *EventLogHandler) persist(r slog.Record) {
	var (
		category     string
		translatorID sql.NullInt64
		metadata     = map[string]any{}
	)
	collect := func(a slog.Attr) bool {
		switch a.Key {
		case AttrCategory:
			category = a.Value.String()
		case AttrTranslatorID:
			if a.Value.Kind() == slog.KindInt64 {
				translatorID = util.ValidID(a.Value.Int64())
			}
			metadata[a.Key] = a.Value.Any()
		default:
			metadata[a.Key] = attrValue(a.Value)
		}
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	if category == "" {
		category = InferCategory(r.Message)
	}

	encoded := "{}"
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			encoded = string(b)
		}
	}

	_ = h.queries.CreateEvent(context.Background(), store.CreateEventParams{
		Level:        eventLevel(r.Level),
		Category:     category,
		Message:      r.Message,
		TranslatorID: translatorID,
		Metadata:     encoded,
		CreatedAt:    r.Time,
	})
}

func attrValue(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		out := map[string]any{}
		for _, a := range v.Group() {
			out[a.Key] = attrValue(a.Value)
		}
		return out
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	default:
		return v.Any()
	}
}

func eventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// InferCategory guesses the event category from a log message.
func InferCategory(message string) string {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "vote") || strings.Contains(msg, "flagged"):
		return model.EventCategoryVote
	case strings.Contains(msg, "lock"):
		return model.EventCategoryLock
	case strings.Contains(msg, "sync") || strings.Contains(msg, "import") || strings.Contains(msg, "export"):
		return model.EventCategorySync
	case strings.Contains(msg, "translation") || strings.Contains(msg, "rule"):
		return model.EventCategoryTranslation
	case strings.Contains(msg, "cache") || strings.Contains(msg, "redis"):
		return model.EventCategoryCache
	default:
		return model.EventCategorySystem
	}
}
