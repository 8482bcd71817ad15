// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/oloc-go/internal/model"
)

const languageColumns = `id, locale, english_name, native_name, right_to_left, enabled,
	translations_changed_at, created_at, updated_at`

func scanLanguage(row rowScanner) (model.Language, error) {
	var (
		l       model.Language
		changed sql.NullTime
	)
	err := row.Scan(&l.ID, &l.Locale, &l.EnglishName, &l.NativeName, &l.RightToLeft, &l.Enabled,
		&changed, &l.CreatedAt, &l.UpdatedAt)
	l.TranslationsChangedAt = timePtr(changed)
	return l, err
}

// CreateLanguageParams holds the columns of a new language.
type CreateLanguageParams struct {
	Locale      string
	EnglishName string
	NativeName  string
	RightToLeft bool
	Enabled     bool
	CreatedAt   time.Time
}

const createLanguage = `INSERT INTO languages (locale, english_name, native_name, right_to_left, enabled, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (locale) DO NOTHING`

// CreateLanguage inserts a language unless the locale already exists and
// returns the stored row either way.
func (q *Queries) CreateLanguage(ctx context.Context, arg CreateLanguageParams) (model.Language, error) {
	now := arg.CreatedAt.UTC()
	if _, err := q.db.ExecContext(ctx, createLanguage,
		arg.Locale, arg.EnglishName, arg.NativeName, arg.RightToLeft, arg.Enabled, now, now,
	); err != nil {
		return model.Language{}, err
	}
	return q.GetLanguageByLocale(ctx, arg.Locale)
}

const getLanguage = `SELECT ` + languageColumns + ` FROM languages WHERE id = ?`

// GetLanguage returns a language by id.
func (q *Queries) GetLanguage(ctx context.Context, id int64) (model.Language, error) {
	return scanLanguage(q.db.QueryRowContext(ctx, getLanguage, id))
}

const getLanguageByLocale = `SELECT ` + languageColumns + ` FROM languages WHERE locale = ?`

// GetLanguageByLocale returns a language by its exact locale code.
func (q *Queries) GetLanguageByLocale(ctx context.Context, locale string) (model.Language, error) {
	return scanLanguage(q.db.QueryRowContext(ctx, getLanguageByLocale, locale))
}

const listLanguages = `SELECT ` + languageColumns + ` FROM languages ORDER BY locale`

// ListLanguages returns every language ordered by locale.
func (q *Queries) ListLanguages(ctx context.Context) ([]model.Language, error) {
	rows, err := q.db.QueryContext(ctx, listLanguages)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []model.Language
	for rows.Next() {
		l, err := scanLanguage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

const touchLanguageTranslations = `UPDATE languages SET translations_changed_at = ?, updated_at = ? WHERE id = ?`

// TouchLanguageTranslations records that translations in the language changed.
func (q *Queries) TouchLanguageTranslations(ctx context.Context, id int64, at time.Time) error {
	at = at.UTC()
	_, err := q.db.ExecContext(ctx, touchLanguageTranslations, at, at, id)
	return err
}
