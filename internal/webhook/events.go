// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package webhook posts oLoc events to configured HTTP endpoints.
package webhook

import (
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	EventTranslationCreated  = "translation.created"
	EventTranslationUpdated  = "translation.updated"
	EventTranslationDeleted  = "translation.deleted"
	EventTranslationImported = "translation.imported"
	EventVoteCast            = "vote.cast"
	EventKeyLocked           = "key.locked"
	EventKeyUnlocked         = "key.unlocked"
	EventCommentCreated      = "comment.created"
	EventTest                = "test"
)

// Event represents a webhook event to be dispatched.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// NewEvent creates a new webhook event.
func NewEvent(eventType string, data any) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Entity is implemented by event payloads that describe one record.
// The debouncer coalesces events of the same type and entity.
type Entity interface {
	EntityID() int64
}

// TranslationEventData contains data for translation events.
type TranslationEventData struct {
	ID               int64  `json:"id"`
	TranslationKeyID int64  `json:"translation_key_id"`
	Locale           string `json:"locale"`
	TranslatorID     int64  `json:"translator_id"`
	ActorID          int64  `json:"actor_id"`
	Label            string `json:"label"`
	Rank             int    `json:"rank"`
}

// EntityID implements Entity.
func (d TranslationEventData) EntityID() int64 { return d.ID }

// VoteEventData contains data for vote events.
type VoteEventData struct {
	TranslationID int64  `json:"translation_id"`
	TranslatorID  int64  `json:"translator_id"`
	Score         int    `json:"score"`
	Rank          int    `json:"rank"`
	Status        string `json:"status"`
}

// EntityID implements Entity. Votes on one translation coalesce.
func (d VoteEventData) EntityID() int64 { return d.TranslationID }

// KeyLockEventData contains data for lock and unlock events.
type KeyLockEventData struct {
	ID               int64  `json:"id"`
	TranslationKeyID int64  `json:"translation_key_id"`
	Locale           string `json:"locale"`
	TranslatorID     int64  `json:"translator_id"`
	Locked           bool   `json:"locked"`
}

// EntityID implements Entity.
func (d KeyLockEventData) EntityID() int64 { return d.ID }

// CommentEventData contains data for comment events.
type CommentEventData struct {
	ID               int64  `json:"id"`
	TranslationKeyID int64  `json:"translation_key_id"`
	Locale           string `json:"locale"`
	TranslatorID     int64  `json:"translator_id"`
	Message          string `json:"message"`
}

// EntityID implements Entity.
func (d CommentEventData) EntityID() int64 { return d.ID }

// TestEventData contains data for test webhook events.
type TestEventData struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
