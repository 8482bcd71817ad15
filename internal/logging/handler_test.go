// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/olegiv/oloc-go/internal/model"
	"github.com/olegiv/oloc-go/internal/store"
	"github.com/olegiv/oloc-go/internal/testutil"
)

// discardHandler is a slog.Handler that discards all logs.
type discardHandler struct{}

func (h discardHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h discardHandler) WithGroup(string) slog.Handler             { return h }

func listEvents(t *testing.T, db *sql.DB) []model.Event {
	t.Helper()
	events, err := store.New(db).ListEvents(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	return events
}

func TestEventLogHandler_Levels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(*slog.Logger)
		want  int
		level string
	}{
		{"error", func(l *slog.Logger) { l.Error("database connection failed", "port", 5432) }, 1, model.EventLevelError},
		{"warn", func(l *slog.Logger) { l.Warn("slow query detected", "duration_ms", 5000) }, 1, model.EventLevelWarning},
		{"info", func(l *slog.Logger) { l.Info("server started", "port", 8080) }, 0, ""},
		{"debug", func(l *slog.Logger) { l.Debug("import rejected", "reason", "blank label") }, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, cleanup := testutil.TestDB(t)
			defer cleanup()

			tt.log(slog.New(NewEventLogHandler(discardHandler{}, db)))

			events := listEvents(t, db)
			if len(events) != tt.want {
				t.Fatalf("expected %d events, got %d", tt.want, len(events))
			}
			if tt.want > 0 && events[0].Level != tt.level {
				t.Errorf("Level = %q, want %q", events[0].Level, tt.level)
			}
		})
	}
}

func TestEventLogHandler_CustomLevel(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	logger := slog.New(NewEventLogHandlerWithLevel(discardHandler{}, db, slog.LevelInfo))
	logger.Info("server started", "port", 8080)

	events := listEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Level != model.EventLevelInfo {
		t.Errorf("Level = %q, want %q", events[0].Level, model.EventLevelInfo)
	}
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"translator flagged for review", model.EventCategoryVote},
		{"vote rejected", model.EventCategoryVote},
		{"key lock contention", model.EventCategoryLock},
		{"sync import failed", model.EventCategorySync},
		{"translation rules no longer resolve", model.EventCategoryTranslation},
		{"redis unavailable", model.EventCategoryCache},
		{"shutting down", model.EventCategorySystem},
	}
	for _, tt := range tests {
		if got := InferCategory(tt.message); got != tt.want {
			t.Errorf("InferCategory(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestEventLogHandler_ExplicitCategoryAndTranslator(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	logger := slog.New(NewEventLogHandler(discardHandler{}, db))
	logger.Warn("something odd", AttrCategory, model.EventCategorySync, AttrTranslatorID, int64(42))

	events := listEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Category != model.EventCategorySync {
		t.Errorf("Category = %q, want %q", events[0].Category, model.EventCategorySync)
	}
	if !events[0].TranslatorID.Valid || events[0].TranslatorID.Int64 != 42 {
		t.Errorf("TranslatorID = %v, want 42", events[0].TranslatorID)
	}
}

func TestEventLogHandler_Metadata(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	logger := slog.New(NewEventLogHandler(discardHandler{}, db)).
		With("component", "webhook").
		WithGroup("delivery")
	logger.Error("delivery failed",
		"error", errors.New(`endpoint said "no"`),
		"attempt", 3,
		slog.Group("target", "host", "example.com"))

	events := listEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	var md map[string]any
	if err := json.Unmarshal([]byte(events[0].Metadata), &md); err != nil {
		t.Fatalf("metadata is not JSON: %v (%s)", err, events[0].Metadata)
	}
	if md["component"] != "webhook" {
		t.Errorf("component = %v, want webhook", md["component"])
	}
	if md["error"] != `endpoint said "no"` {
		t.Errorf("error = %v", md["error"])
	}
	if md["attempt"] != float64(3) {
		t.Errorf("attempt = %v, want 3", md["attempt"])
	}
	target, ok := md["target"].(map[string]any)
	if !ok || target["host"] != "example.com" {
		t.Errorf("target = %v", md["target"])
	}
}

func TestEventLogHandler_EmptyMetadata(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	slog.New(NewEventLogHandler(discardHandler{}, db)).Warn("bare")

	events := listEvents(t, db)
	if len(events) != 1 || events[0].Metadata != "{}" {
		t.Fatalf("events = %+v", events)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"loud":    slog.LevelInfo,
	}
	for name, want := range tests {
		if got := ParseLevel(name); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNewTextLogger_WrappedForEvents(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	var buf bytes.Buffer
	base := NewTextLogger(&buf, slog.LevelWarn)
	logger := slog.New(NewEventLogHandler(base.Handler(), db))

	logger.Info("quiet")
	logger.Warn("vote rejected", "translation_id", 3)

	out := buf.String()
	if strings.Contains(out, "quiet") || !strings.Contains(out, "vote rejected") {
		t.Fatalf("text output = %q", out)
	}
	if events := listEvents(t, db); len(events) != 1 || events[0].Message != "vote rejected" {
		t.Fatalf("events = %+v", events)
	}
}

func TestEventLevel(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  string
	}{
		{slog.LevelDebug, model.EventLevelInfo},
		{slog.LevelInfo, model.EventLevelInfo},
		{slog.LevelWarn, model.EventLevelWarning},
		{slog.LevelError, model.EventLevelError},
		{slog.LevelError + 4, model.EventLevelError},
	}
	for _, tt := range tests {
		if got := eventLevel(tt.level); got != tt.want {
			t.Errorf("eventLevel(%v) = %q, want %q", tt.level, got, tt.want)
		}
	}
}
