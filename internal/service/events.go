// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides the consensus facade that orchestrates voting,
// ranking, rules, key locks and sync, plus the audit event log.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/olegiv/oloc-go/internal/model"
	"github.com/olegiv/oloc-go/internal/store"
	"github.com/olegiv/oloc-go/internal/util"
)

// EventService provides event logging functionality.
type EventService struct {
	queries *store.Queries
	logger  *slog.Logger
}

// NewEventService creates a new EventService.
func NewEventService(queries *store.Queries, logger *slog.Logger) *EventService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventService{queries: queries, logger: logger}
}

// LogEvent creates a new event log entry.
func (s *EventService) LogEvent(ctx context.Context, level, category, message string, translatorID *int64, metadata map[string]any) error {
	nullTranslatorID := util.NullableID(translatorID)

	metadataJSON := "{}"
	if metadata != nil {
		jsonBytes, err := json.Marshal(metadata)
		if err == nil {
			metadataJSON = string(jsonBytes)
		}
	}

	err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:        level,
		Category:     category,
		Message:      message,
		TranslatorID: nullTranslatorID,
		Metadata:     metadataJSON,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		s.logger.Debug("failed to log event", "error", err)
		return err
	}
	return nil
}

// LogInfo logs an info-level event.
func (s *EventService) LogInfo(ctx context.Context, category, message string, translatorID *int64, metadata map[string]any) error {
	return s.LogEvent(ctx, model.EventLevelInfo, category, message, translatorID, metadata)
}

// LogWarning logs a warning-level event.
func (s *EventService) LogWarning(ctx context.Context, category, message string, translatorID *int64, metadata map[string]any) error {
	return s.LogEvent(ctx, model.EventLevelWarning, category, message, translatorID, metadata)
}

// LogError logs an error-level event.
func (s *EventService) LogError(ctx context.Context, category, message string, translatorID *int64, metadata map[string]any) error {
	return s.LogEvent(ctx, model.EventLevelError, category, message, translatorID, metadata)
}

// LogLockEvent logs a key lock event.
func (s *EventService) LogLockEvent(ctx context.Context, message string, translatorID int64, metadata map[string]any) error {
	return s.LogEvent(ctx, model.EventLevelInfo, model.EventCategoryLock, message, &translatorID, metadata)
}

// LogSyncEvent logs a sync import or export.
func (s *EventService) LogSyncEvent(ctx context.Context, level, message string, translatorID *int64, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategorySync, message, translatorID, metadata)
}

// LogSystemEvent logs a system-related event.
func (s *EventService) LogSystemEvent(ctx context.Context, level, message string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategorySystem, message, nil, metadata)
}

// List returns a page of events, newest first, and the total count.
func (s *EventService) List(ctx context.Context, limit, offset int) ([]model.Event, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	events, err := s.queries.ListEvents(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.queries.CountEvents(ctx)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// DeleteOldEvents removes events older than the specified duration.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.queries.DeleteEventsBefore(ctx, time.Now().Add(-olderThan))
}
