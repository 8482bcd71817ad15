// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/olegiv/oloc-go/internal/model"
	"github.com/olegiv/oloc-go/internal/store"
	"github.com/olegiv/oloc-go/internal/testutil"
)

func setupEventService(t *testing.T) (*EventService, *sql.DB, func()) {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	return NewEventService(store.New(db), testutil.TestLoggerSilent()), db, cleanup
}

func TestLogEvent(t *testing.T) {
	svc, db, cleanup := setupEventService(t)
	defer cleanup()
	ctx := context.Background()

	translatorID := int64(123)
	err := svc.LogEvent(ctx, model.EventLevelInfo, model.EventCategorySync, "Key imported", &translatorID, map[string]any{
		"key": "Inbox",
	})
	if err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	var level, category, message, metadata string
	var savedID sql.NullInt64
	err = db.QueryRow("SELECT level, category, message, translator_id, metadata FROM events").Scan(&level, &category, &message, &savedID, &metadata)
	if err != nil {
		t.Fatalf("failed to read event: %v", err)
	}

	if level != "info" {
		t.Errorf("level = %q, want %q", level, "info")
	}
	if category != "sync" {
		t.Errorf("category = %q, want %q", category, "sync")
	}
	if message != "Key imported" {
		t.Errorf("message = %q, want %q", message, "Key imported")
	}
	if !savedID.Valid || savedID.Int64 != 123 {
		t.Errorf("translator_id = %v, want 123", savedID)
	}
	if metadata != `{"key":"Inbox"}` {
		t.Errorf("metadata = %q, want %q", metadata, `{"key":"Inbox"}`)
	}
}

func TestLogEvent_NilTranslatorAndMetadata(t *testing.T) {
	svc, db, cleanup := setupEventService(t)
	defer cleanup()

	if err := svc.LogSystemEvent(context.Background(), model.EventLevelWarning, "No actor", nil); err != nil {
		t.Fatalf("LogSystemEvent failed: %v", err)
	}

	var savedID sql.NullInt64
	var metadata string
	if err := db.QueryRow("SELECT translator_id, metadata FROM events").Scan(&savedID, &metadata); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if savedID.Valid {
		t.Error("translator_id should be NULL")
	}
	if metadata != "{}" {
		t.Errorf("metadata = %q, want %q", metadata, "{}")
	}
}

func TestLogLevelsAndCategories(t *testing.T) {
	tests := []struct {
		name     string
		logFn    func(*EventService, context.Context) error
		level    string
		category string
	}{
		{"info", func(s *EventService, ctx context.Context) error {
			return s.LogInfo(ctx, model.EventCategoryVote, "Vote cast", nil, nil)
		}, "info", "vote"},
		{"warning", func(s *EventService, ctx context.Context) error {
			return s.LogWarning(ctx, model.EventCategoryTranslation, "Translator flagged", nil, nil)
		}, "warning", "translation"},
		{"error", func(s *EventService, ctx context.Context) error {
			return s.LogError(ctx, model.EventCategoryCache, "Cache unavailable", nil, nil)
		}, "error", "cache"},
		{"lock", func(s *EventService, ctx context.Context) error {
			return s.LogLockEvent(ctx, "Key locked", 7, map[string]any{"locale": "ru"})
		}, "info", "lock"},
		{"sync", func(s *EventService, ctx context.Context) error {
			return s.LogSyncEvent(ctx, model.EventLevelInfo, "Key exported", nil, nil)
		}, "info", "sync"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, db, cleanup := setupEventService(t)
			defer cleanup()

			if err := tt.logFn(svc, context.Background()); err != nil {
				t.Fatalf("log function failed: %v", err)
			}
			var level, category string
			if err := db.QueryRow("SELECT level, category FROM events").Scan(&level, &category); err != nil {
				t.Fatalf("failed to read event: %v", err)
			}
			if level != tt.level || category != tt.category {
				t.Errorf("got (%s, %s), want (%s, %s)", level, category, tt.level, tt.category)
			}
		})
	}
}

func TestEventService_ListAndDeleteOld(t *testing.T) {
	svc, db, cleanup := setupEventService(t)
	defer cleanup()
	ctx := context.Background()

	err := store.New(db).CreateEvent(ctx, store.CreateEventParams{
		Level:     model.EventLevelInfo,
		Category:  model.EventCategorySystem,
		Message:   "Old event",
		CreatedAt: time.Now().Add(-31 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("failed to insert old event: %v", err)
	}
	if err := svc.LogInfo(ctx, model.EventCategorySystem, "Recent event", nil, nil); err != nil {
		t.Fatalf("LogInfo failed: %v", err)
	}

	events, total, err := svc.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 2 || len(events) != 2 {
		t.Fatalf("List() = %d events, total %d; want 2, 2", len(events), total)
	}
	if events[0].Message != "Recent event" {
		t.Errorf("newest event = %q, want %q", events[0].Message, "Recent event")
	}

	removed, err := svc.DeleteOldEvents(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("DeleteOldEvents failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
}
