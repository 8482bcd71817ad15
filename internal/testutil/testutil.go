// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for the oLoc project.
package testutil

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/olegiv/oloc-go/internal/model"
	"github.com/olegiv/oloc-go/internal/store"
)

// TestLogger creates a silent test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestLoggerSilent creates a completely silent test logger (error level only).
func TestLoggerSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// TestDB creates a temporary test database with migrations applied.
// Returns the database and a cleanup function that should be deferred.
func TestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "oloc-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := store.NewDB(dbPath)
	if err != nil {
		_ = os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}

	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		_ = os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	return db, func() {
		_ = db.Close()
		_ = os.Remove(dbPath)
	}
}

// CreateLanguage inserts an enabled language.
func CreateLanguage(t *testing.T, db *sql.DB, locale string) model.Language {
	t.Helper()

	lang, err := store.New(db).CreateLanguage(context.Background(), store.CreateLanguageParams{
		Locale:      locale,
		EnglishName: locale,
		Enabled:     true,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateLanguage(%s): %v", locale, err)
	}
	return lang
}

// CreateTranslator inserts a translator with the given voting power.
func CreateTranslator(t *testing.T, db *sql.DB, name string, power int, manager bool) model.Translator {
	t.Helper()

	tr, err := store.New(db).CreateTranslator(context.Background(), store.CreateTranslatorParams{
		Name:        name,
		Email:       name + "@example.com",
		VotingPower: power,
		Manager:     manager,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateTranslator(%s): %v", name, err)
	}
	return tr
}

// CreateKey inserts an English phrase key.
func CreateKey(t *testing.T, db *sql.DB, key string) model.TranslationKey {
	t.Helper()

	k, err := store.New(db).CreateTranslationKey(context.Background(), store.CreateTranslationKeyParams{
		Key:       key,
		Label:     key,
		Locale:    "en",
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateTranslationKey(%q): %v", key, err)
	}
	return k
}

// CreateTranslation inserts a translation with the given rule references.
func CreateTranslation(t *testing.T, db *sql.DB, keyID, langID, translatorID int64, label string, refs []model.RuleRef) model.Translation {
	t.Helper()

	tr, err := store.New(db).CreateTranslation(context.Background(), store.CreateTranslationParams{
		TranslationKeyID: keyID,
		LanguageID:       langID,
		TranslatorID:     translatorID,
		Label:            label,
		Rules:            refs,
		CreatedAt:        time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateTranslation(%q): %v", label, err)
	}
	return tr
}

// CreateRule finds or creates a rule of a language.
func CreateRule(t *testing.T, db *sql.DB, langID int64, kind model.RuleKind, keyword string) model.Rule {
	t.Helper()

	r, err := store.New(db).FindOrCreateRule(context.Background(), langID, kind, keyword, time.Now())
	if err != nil {
		t.Fatalf("FindOrCreateRule(%s %s): %v", kind, keyword, err)
	}
	return r
}
