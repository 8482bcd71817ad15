// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/oloc-go/internal/model"
)

const keyLockColumns = `id, translation_key_id, language_id, translator_id, locked, created_at, updated_at`

func scanKeyLock(row rowScanner) (model.KeyLock, error) {
	var (
		l            model.KeyLock
		translatorID sql.NullInt64
	)
	err := row.Scan(&l.ID, &l.TranslationKeyID, &l.LanguageID, &translatorID, &l.Locked, &l.CreatedAt, &l.UpdatedAt)
	l.TranslatorID = int64Ptr(translatorID)
	return l, err
}

const insertKeyLockIgnore = `INSERT INTO translation_key_locks (translation_key_id, language_id, locked, created_at, updated_at)
VALUES (?, ?, 0, ?, ?)
ON CONFLICT (translation_key_id, language_id) DO NOTHING`

const getKeyLock = `SELECT ` + keyLockColumns + ` FROM translation_key_locks
WHERE translation_key_id = ? AND language_id = ?`

// FindOrCreateKeyLock materialises the lock row of a (key, language) pair
// without touching its locked flag. A concurrent creator loses the insert
// and reads the winner's row.
func (q *Queries) FindOrCreateKeyLock(ctx context.Context, keyID, languageID int64, at time.Time) (model.KeyLock, error) {
	at = at.UTC()
	if _, err := q.db.ExecContext(ctx, insertKeyLockIgnore, keyID, languageID, at, at); err != nil {
		return model.KeyLock{}, err
	}
	return q.GetKeyLock(ctx, keyID, languageID)
}

// GetKeyLock returns the lock row of a (key, language) pair.
func (q *Queries) GetKeyLock(ctx context.Context, keyID, languageID int64) (model.KeyLock, error) {
	return scanKeyLock(q.db.QueryRowContext(ctx, getKeyLock, keyID, languageID))
}

const updateKeyLock = `UPDATE translation_key_locks SET locked = ?, translator_id = ?, updated_at = ?
WHERE id = ?
RETURNING ` + keyLockColumns

// UpdateKeyLock sets the locked flag and the acting translator.
func (q *Queries) UpdateKeyLock(ctx context.Context, id int64, locked bool, translatorID int64, at time.Time) (model.KeyLock, error) {
	return scanKeyLock(q.db.QueryRowContext(ctx, updateKeyLock, locked, translatorID, at.UTC(), id))
}

const countKeyLocks = `SELECT COUNT(*) FROM translation_key_locks WHERE translation_key_id = ? AND language_id = ?`

// CountKeyLocks returns the number of lock rows for a pair; at most one.
func (q *Queries) CountKeyLocks(ctx context.Context, keyID, languageID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countKeyLocks, keyID, languageID).Scan(&n)
	return n, err
}
