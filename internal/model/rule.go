// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// RuleKind identifies a grammar predicate family.
type RuleKind string

// Rule kinds
const (
	RuleKindNumber RuleKind = "number"
	RuleKindGender RuleKind = "gender"
	RuleKindCase   RuleKind = "case"
	RuleKindValue  RuleKind = "value"
)

// Rule is a language-scoped grammar predicate. Rules are immutable once created
// and shared by every translation that references them.
type Rule struct {
	ID         int64     `json:"id"`
	LanguageID int64     `json:"language_id"`
	Locale     string    `json:"locale"`
	Kind       RuleKind  `json:"type"`
	Keyword    string    `json:"keyword"`
	CreatedAt  time.Time `json:"created_at"`
}

// KeyLock is the moderation gate of a (phrase key, language) pair.
type KeyLock struct {
	ID               int64     `json:"id"`
	TranslationKeyID int64     `json:"translation_key_id"`
	LanguageID       int64     `json:"language_id"`
	TranslatorID     *int64    `json:"translator_id,omitempty"`
	Locked           bool      `json:"locked"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
