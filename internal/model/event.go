// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the domain types shared across oLoc: translations,
// votes, rules, key locks, languages, translators and event log entries.
package model

import (
	"database/sql"
	"time"
)

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryVote        = "vote"
	EventCategoryTranslation = "translation"
	EventCategoryLock        = "lock"
	EventCategorySync        = "sync"
	EventCategoryCache       = "cache"
	EventCategorySystem      = "system"
)

// Event represents an audit log entry.
type Event struct {
	ID           int64
	Level        string
	Category     string
	Message      string
	TranslatorID sql.NullInt64
	Metadata     string // JSON string
	CreatedAt    time.Time
}
