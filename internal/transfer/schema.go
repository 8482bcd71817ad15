// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package transfer implements the sync codec that moves translations and
// their rules between oLoc instances.
//
// Rules cross the wire as self-describing descriptors, never as ids:
//
//	{"locale":"ru","label":"{count} сообщений",
//	 "rules":[{"count":[{"type":"number","key":"many"}]}]}
package transfer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"

	"github.com/olegiv/oloc-go/internal/rules"
)

// ExportVersion is the current version of the key export document.
const ExportVersion = "1.0"

// RuleEntry binds one token to its rule descriptors.
type RuleEntry map[string][]rules.Descriptor

// Tokens returns the entry's tokens in sorted order.
func (e RuleEntry) Tokens() []string {
	tokens := make([]string, 0, len(e))
	for t := range e {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens
}

// TranslatorRecord is the embedded identity of a translator.
type TranslatorRecord struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Record is the transport form of one translation. A comparison record
// carries only locale, label and rules.
type Record struct {
	ID           *int64            `json:"id,omitempty"`
	Locale       string            `json:"locale"`
	Label        string            `json:"label"`
	Rank         *int              `json:"rank,omitempty"`
	Rules        []RuleEntry       `json:"rules"`
	Translator   *TranslatorRecord `json:"translator,omitempty"`
	TranslatorID *int64            `json:"translator_id,omitempty"`
}

// Comparable strips identity, rank and attribution from the record.
func (r Record) Comparable() Record {
	rs := r.Rules
	if rs == nil {
		rs = []RuleEntry{}
	}
	return Record{Locale: r.Locale, Label: r.Label, Rules: rs}
}

// SameCandidate reports whether two records describe the same translation
// candidate, ignoring identity, rank and attribution.
func SameCandidate(a, b Record) bool {
	if a.Locale != b.Locale || a.Label != b.Label || len(a.Rules) != len(b.Rules) {
		return false
	}
	for i := range a.Rules {
		ea, eb := a.Rules[i], b.Rules[i]
		if !slices.Equal(ea.Tokens(), eb.Tokens()) {
			return false
		}
		for token, da := range ea {
			if !slices.Equal(da, eb[token]) {
				return false
			}
		}
	}
	return true
}

// KeyRecord is the export document of a phrase key with its translations.
type KeyRecord struct {
	Version      string   `json:"version,omitempty"`
	Key          string   `json:"key"`
	Label        string   `json:"label"`
	Description  string   `json:"description,omitempty"`
	Locale       string   `json:"locale"`
	Translations []Record `json:"translations"`
}

// ExportOptions configures the transport form.
type ExportOptions struct {
	// Comparable emits comparison records (locale, label, rules only).
	Comparable bool `json:"comparable"`
	// IncludeTranslator nests the full translator identity. Without it only
	// a linked translator's remote id is sent.
	IncludeTranslator bool `json:"include_translator"`
	// Locales restricts a key export to these locales; empty means all.
	Locales []string `json:"locales,omitempty"`
}

// ImportOptions configures the import of a record.
type ImportOptions struct {
	// DryRun resolves everything but creates no translation. Rules may
	// still be created, so run it in a transaction that is rolled back.
	DryRun bool `json:"dry_run"`
	// HonorAttribution credits the translator named by translator_id when
	// it exists locally, instead of the importing translator.
	HonorAttribution bool `json:"honor_attribution"`
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}

// ReadKeyRecord decodes a key export document.
func ReadKeyRecord(r io.Reader) (*KeyRecord, error) {
	var rec KeyRecord
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to parse key record: %w", err)
	}
	return &rec, nil
}

// ReadKeyRecordFile decodes a key export document from a file.
func ReadKeyRecordFile(path string) (*KeyRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadKeyRecord(f)
}
