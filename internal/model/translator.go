// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Translator log actions
const (
	ActionVotedOnTranslation = "voted_on_translation"
	ActionAddedTranslation   = "added_translation"
	ActionUpdatedTranslation = "updated_translation"
	ActionDeletedTranslation = "deleted_translation"
	ActionLockedKey          = "locked_translation_key"
	ActionUnlockedKey        = "unlocked_translation_key"
	ActionCommentedOnKey     = "commented_on_translation_key"
)

// Translator is a community member who submits and votes on translations.
type Translator struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	VotingPower int       `json:"voting_power"`
	Manager     bool      `json:"manager"`
	Reported    bool      `json:"reported"`
	RemoteID    *int64    `json:"remote_id,omitempty"` // identity on the linked remote instance
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TranslatorMetrics aggregates a translator's activity in one language.
type TranslatorMetrics struct {
	TranslatorID         int64     `json:"translator_id"`
	LanguageID           int64     `json:"language_id"`
	TotalTranslations    int64     `json:"total_translations"`
	TotalVotes           int64     `json:"total_votes"`
	PositiveVotes        int64     `json:"positive_votes"`
	NegativeVotes        int64     `json:"negative_votes"`
	AcceptedTranslations int64     `json:"accepted_translations"`
	RejectedTranslations int64     `json:"rejected_translations"`
	Rank                 int64     `json:"rank"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// LanguageMetrics aggregates translation status counts for one language.
type LanguageMetrics struct {
	LanguageID           int64     `json:"language_id"`
	TotalTranslations    int64     `json:"total_translations"`
	AcceptedTranslations int64     `json:"accepted_translations"`
	PendingTranslations  int64     `json:"pending_translations"`
	RejectedTranslations int64     `json:"rejected_translations"`
	LockedKeys           int64     `json:"locked_keys"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Notification is a per-recipient record of something another translator did.
type Notification struct {
	ID           int64     `json:"id"`
	TranslatorID int64     `json:"translator_id"`
	ActorID      int64     `json:"actor_id"`
	Action       string    `json:"action"`
	ObjectType   string    `json:"object_type"`
	ObjectID     int64     `json:"object_id"`
	CreatedAt    time.Time `json:"created_at"`
}
