// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/olegiv/oloc-go/internal/model"
)

const translationKeyColumns = `id, key_text, label, description, locale, created_at, updated_at`

func scanTranslationKey(row rowScanner) (model.TranslationKey, error) {
	var k model.TranslationKey
	err := row.Scan(&k.ID, &k.Key, &k.Label, &k.Description, &k.Locale, &k.CreatedAt, &k.UpdatedAt)
	return k, err
}

// CreateTranslationKeyParams holds the columns of a new phrase key.
type CreateTranslationKeyParams struct {
	Key         string
	Label       string
	Description string
	Locale      string
	CreatedAt   time.Time
}

const createTranslationKey = `INSERT INTO translation_keys (key_text, label, description, locale, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (key_text) DO NOTHING`

// CreateTranslationKey registers a phrase key unless it exists and returns
// the stored row.
func (q *Queries) CreateTranslationKey(ctx context.Context, arg CreateTranslationKeyParams) (model.TranslationKey, error) {
	now := arg.CreatedAt.UTC()
	if _, err := q.db.ExecContext(ctx, createTranslationKey,
		arg.Key, arg.Label, arg.Description, arg.Locale, now, now,
	); err != nil {
		return model.TranslationKey{}, err
	}
	return q.GetTranslationKeyByKey(ctx, arg.Key)
}

const getTranslationKey = `SELECT ` + translationKeyColumns + ` FROM translation_keys WHERE id = ?`

// GetTranslationKey returns a phrase key by id.
func (q *Queries) GetTranslationKey(ctx context.Context, id int64) (model.TranslationKey, error) {
	return scanTranslationKey(q.db.QueryRowContext(ctx, getTranslationKey, id))
}

const getTranslationKeyByKey = `SELECT ` + translationKeyColumns + ` FROM translation_keys WHERE key_text = ?`

// GetTranslationKeyByKey returns a phrase key by its key text.
func (q *Queries) GetTranslationKeyByKey(ctx context.Context, key string) (model.TranslationKey, error) {
	return scanTranslationKey(q.db.QueryRowContext(ctx, getTranslationKeyByKey, key))
}

const touchTranslationKey = `UPDATE translation_keys SET updated_at = ? WHERE id = ?`

// TouchTranslationKey bumps updated_at, invalidating renderings keyed on it.
func (q *Queries) TouchTranslationKey(ctx context.Context, id int64, at time.Time) error {
	_, err := q.db.ExecContext(ctx, touchTranslationKey, at.UTC(), id)
	return err
}
