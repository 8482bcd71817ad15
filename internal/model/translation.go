// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Translation is a candidate rendering of a phrase key in one language,
// submitted by one translator.
type Translation struct {
	ID               int64      `json:"id"`
	TranslationKeyID int64      `json:"translation_key_id"`
	LanguageID       int64      `json:"language_id"`
	TranslatorID     int64      `json:"translator_id"`
	Label            string     `json:"label"`
	Rank             int        `json:"rank"`
	ApprovedByID     *int64     `json:"approved_by_id,omitempty"`
	Rules            []RuleRef  `json:"rules,omitempty"` // nil means no grammatical constraints
	SyncedAt         *time.Time `json:"synced_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// HasRules reports whether the translation carries a stored rule-set.
func (t *Translation) HasRules() bool {
	return len(t.Rules) > 0
}

// RuleRef binds a token of the phrase to one or more rule identifiers.
// Historical data may carry several candidate ids for the same token.
type RuleRef struct {
	Token   string  `json:"token"`
	RuleIDs []int64 `json:"rule_id"`
}

// UnmarshalJSON accepts both a scalar and a list rule_id.
func (r *RuleRef) UnmarshalJSON(data []byte) error {
	var raw struct {
		Token  string          `json:"token"`
		RuleID json.RawMessage `json:"rule_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Token = raw.Token
	r.RuleIDs = nil

	trimmed := bytes.TrimSpace(raw.RuleID)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &r.RuleIDs)
	}

	var id int64
	if err := json.Unmarshal(trimmed, &id); err != nil {
		return fmt.Errorf("rule_id for token %q: %w", raw.Token, err)
	}
	r.RuleIDs = []int64{id}
	return nil
}

// EncodeRuleRefs serializes a rule-set for storage.
// An empty rule-set is stored as NULL (returned as an empty string).
func EncodeRuleRefs(refs []RuleRef) (string, error) {
	if len(refs) == 0 {
		return "", nil
	}
	data, err := json.Marshal(refs)
	if err != nil {
		return "", fmt.Errorf("encoding rules: %w", err)
	}
	return string(data), nil
}

// DecodeRuleRefs parses a stored rule-set. Blank input and empty arrays
// decode to nil.
func DecodeRuleRefs(s string) ([]RuleRef, error) {
	if s == "" || s == "null" {
		return nil, nil
	}
	var refs []RuleRef
	if err := json.Unmarshal([]byte(s), &refs); err != nil {
		return nil, fmt.Errorf("decoding rules: %w", err)
	}
	if len(refs) == 0 {
		return nil, nil
	}
	return refs, nil
}

// Vote is one translator's opinion of one translation.
type Vote struct {
	ID            int64     `json:"id"`
	TranslationID int64     `json:"translation_id"`
	TranslatorID  int64     `json:"translator_id"`
	Score         int       `json:"score"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TranslationKey is the canonical source-language phrase all translations are variants of.
type TranslationKey struct {
	ID          int64     `json:"id"`
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	Locale      string    `json:"locale"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Comment is a discussion entry on a phrase key in one language.
type Comment struct {
	ID               int64     `json:"id"`
	TranslationKeyID int64     `json:"translation_key_id"`
	LanguageID       int64     `json:"language_id"`
	TranslatorID     int64     `json:"translator_id"`
	Message          string    `json:"message"`
	CreatedAt        time.Time `json:"created_at"`
}

// Status is the consensus classification of a translation's rank.
type Status string

// Translation statuses
const (
	StatusAccepted Status = "accepted"
	StatusPending  Status = "pending"
	StatusRejected Status = "rejected"
)
