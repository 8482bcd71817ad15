// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/olegiv/oloc-go/internal/model"
)

// System translator created on first seed.
const (
	SystemTranslatorName  = "oLoc"
	SystemTranslatorEmail = "system@oloc.local"
)

// SeedData describes languages, translators and phrase keys to preload.
type SeedData struct {
	Languages   []SeedLanguage   `toml:"languages"`
	Translators []SeedTranslator `toml:"translators"`
	Keys        []SeedKey        `toml:"keys"`
}

// SeedLanguage is a language entry of a seed file.
type SeedLanguage struct {
	Locale      string `toml:"locale"`
	EnglishName string `toml:"english_name"`
	NativeName  string `toml:"native_name"`
	RightToLeft bool   `toml:"right_to_left"`
}

// SeedTranslator is a translator entry of a seed file.
type SeedTranslator struct {
	Name        string `toml:"name"`
	Email       string `toml:"email"`
	VotingPower int    `toml:"voting_power"`
	Manager     bool   `toml:"manager"`
	RemoteID    *int64 `toml:"remote_id,omitempty"`
}

// SeedKey is a phrase key entry of a seed file.
type SeedKey struct {
	Key         string `toml:"key"`
	Label       string `toml:"label"`
	Description string `toml:"description"`
	Locale      string `toml:"locale"`
}

// ReadSeedData decodes a TOML seed document.
func ReadSeedData(r io.Reader) (*SeedData, error) {
	var data SeedData
	if _, err := toml.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode seed data: %w", err)
	}
	return &data, nil
}

// ReadSeedFile reads a TOML seed file from path.
func ReadSeedFile(path string) (*SeedData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := ReadSeedData(f)
	if err != nil {
		return nil, fmt.Errorf("reading seed from %s: %w", path, err)
	}
	return data, nil
}

// Seed creates the common languages and the system translator. It is safe
// to run repeatedly.
func Seed(ctx context.Context, db *sql.DB) error {
	queries := New(db)
	now := time.Now()

	for _, l := range model.CommonLanguages {
		if _, err := queries.CreateLanguage(ctx, CreateLanguageParams{
			Locale:      l.Locale,
			EnglishName: l.EnglishName,
			NativeName:  l.NativeName,
			RightToLeft: l.RightToLeft,
			Enabled:     true,
			CreatedAt:   now,
		}); err != nil {
			return fmt.Errorf("seeding language %s: %w", l.Locale, err)
		}
	}

	var count int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM translators`).Scan(&count); err != nil {
		return fmt.Errorf("counting translators: %w", err)
	}
	if count > 0 {
		slog.Info("translators already exist, skipping system translator")
		return nil
	}

	t, err := queries.CreateTranslator(ctx, CreateTranslatorParams{
		Name:        SystemTranslatorName,
		Email:       SystemTranslatorEmail,
		VotingPower: 1,
		Manager:     true,
		CreatedAt:   now,
	})
	if err != nil {
		return fmt.Errorf("creating system translator: %w", err)
	}
	slog.Info("created system translator", "id", t.ID, "name", t.Name)
	return nil
}

// SeedFrom loads a seed document. Languages and keys are upserted by their
// natural key; translators are matched by email.
func SeedFrom(ctx context.Context, db *sql.DB, data *SeedData) error {
	queries := New(db)
	now := time.Now()

	for _, l := range data.Languages {
		if l.Locale == "" {
			return errors.New("seed language without locale")
		}
		name := l.EnglishName
		if name == "" {
			name = l.Locale
		}
		if _, err := queries.CreateLanguage(ctx, CreateLanguageParams{
			Locale:      l.Locale,
			EnglishName: name,
			NativeName:  l.NativeName,
			RightToLeft: l.RightToLeft,
			Enabled:     true,
			CreatedAt:   now,
		}); err != nil {
			return fmt.Errorf("seeding language %s: %w", l.Locale, err)
		}
	}

	for _, t := range data.Translators {
		var exists int64
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM translators WHERE email = ?`, t.Email).Scan(&exists); err != nil {
			return fmt.Errorf("checking translator %s: %w", t.Email, err)
		}
		if t.Email != "" && exists > 0 {
			continue
		}
		power := t.VotingPower
		if power == 0 {
			power = 1
		}
		if _, err := queries.CreateTranslator(ctx, CreateTranslatorParams{
			Name:        t.Name,
			Email:       t.Email,
			VotingPower: power,
			Manager:     t.Manager,
			RemoteID:    t.RemoteID,
			CreatedAt:   now,
		}); err != nil {
			return fmt.Errorf("seeding translator %s: %w", t.Name, err)
		}
	}

	for _, k := range data.Keys {
		locale := k.Locale
		if locale == "" {
			locale = "en"
		}
		label := k.Label
		if label == "" {
			label = k.Key
		}
		if _, err := queries.CreateTranslationKey(ctx, CreateTranslationKeyParams{
			Key:         k.Key,
			Label:       label,
			Description: k.Description,
			Locale:      locale,
			CreatedAt:   now,
		}); err != nil {
			return fmt.Errorf("seeding key %q: %w", k.Key, err)
		}
	}

	slog.Info("seed data loaded",
		"languages", len(data.Languages),
		"translators", len(data.Translators),
		"keys", len(data.Keys))
	return nil
}
