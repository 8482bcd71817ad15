// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Language is a locale translations can be submitted for.
type Language struct {
	ID                    int64      `json:"id"`
	Locale                string     `json:"locale"`       // BCP 47: en, ru, pt-BR
	EnglishName           string     `json:"english_name"` // English, Russian
	NativeName            string     `json:"native_name"`  // English, Русский
	RightToLeft           bool       `json:"right_to_left"`
	Enabled               bool       `json:"enabled"`
	TranslationsChangedAt *time.Time `json:"translations_changed_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// IsRTL returns true if the language is right-to-left.
func (l *Language) IsRTL() bool {
	return l.RightToLeft
}

// CommonLanguages provides the languages seeded into a fresh database.
var CommonLanguages = []struct {
	Locale      string
	EnglishName string
	NativeName  string
	RightToLeft bool
}{
	{"en", "English", "English", false},
	{"ru", "Russian", "Русский", false},
	{"de", "German", "Deutsch", false},
	{"fr", "French", "Français", false},
	{"es", "Spanish", "Español", false},
	{"it", "Italian", "Italiano", false},
	{"pt-BR", "Portuguese (Brazil)", "Português (Brasil)", false},
	{"nl", "Dutch", "Nederlands", false},
	{"pl", "Polish", "Polski", false},
	{"uk", "Ukrainian", "Українська", false},
	{"zh", "Chinese", "中文", false},
	{"ja", "Japanese", "日本語", false},
	{"ar", "Arabic", "العربية", true},
	{"he", "Hebrew", "עברית", true},
	{"tr", "Turkish", "Türkçe", false},
}
