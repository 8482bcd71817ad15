// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/oloc-go/internal/model"
	"github.com/olegiv/oloc-go/internal/util"
)

const translationColumns = `id, translation_key_id, language_id, translator_id, label, rank,
	approved_by_id, rules, synced_at, created_at, updated_at`

func scanTranslation(row rowScanner) (model.Translation, error) {
	var (
		t          model.Translation
		approvedBy sql.NullInt64
		rules      sql.NullString
		syncedAt   sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.TranslationKeyID, &t.LanguageID, &t.TranslatorID, &t.Label, &t.Rank,
		&approvedBy, &rules, &syncedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return t, err
	}
	t.ApprovedByID = int64Ptr(approvedBy)
	t.SyncedAt = timePtr(syncedAt)

	refs, err := model.DecodeRuleRefs(rules.String)
	if err != nil {
		return t, fmt.Errorf("translation %d: %w", t.ID, err)
	}
	t.Rules = refs
	return t, nil
}

func scanTranslations(rows *sql.Rows) ([]model.Translation, error) {
	defer func() { _ = rows.Close() }()

	var items []model.Translation
	for rows.Next() {
		t, err := scanTranslation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

// CreateTranslationParams holds the columns of a new translation.
type CreateTranslationParams struct {
	TranslationKeyID int64
	LanguageID       int64
	TranslatorID     int64
	Label            string
	Rules            []model.RuleRef
	CreatedAt        time.Time
}

const createTranslation = `INSERT INTO translations (translation_key_id, language_id, translator_id, label, rules, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + translationColumns

// CreateTranslation inserts a translation with rank 0.
func (q *Queries) CreateTranslation(ctx context.Context, arg CreateTranslationParams) (model.Translation, error) {
	rules, err := model.EncodeRuleRefs(arg.Rules)
	if err != nil {
		return model.Translation{}, err
	}
	now := arg.CreatedAt.UTC()
	return scanTranslation(q.db.QueryRowContext(ctx, createTranslation,
		arg.TranslationKeyID, arg.LanguageID, arg.TranslatorID, arg.Label, util.NullableText(rules), now, now))
}

const getTranslation = `SELECT ` + translationColumns + ` FROM translations WHERE id = ?`

// GetTranslation returns a translation by id.
func (q *Queries) GetTranslation(ctx context.Context, id int64) (model.Translation, error) {
	return scanTranslation(q.db.QueryRowContext(ctx, getTranslation, id))
}

const updateTranslationLabel = `UPDATE translations SET label = ?, updated_at = ? WHERE id = ?`

// UpdateTranslationLabel replaces the label of a translation.
func (q *Queries) UpdateTranslationLabel(ctx context.Context, id int64, label string, at time.Time) error {
	_, err := q.db.ExecContext(ctx, updateTranslationLabel, label, at.UTC(), id)
	return err
}

const updateTranslationRank = `UPDATE translations SET rank = ?, updated_at = ? WHERE id = ?`

// UpdateTranslationRank stores a recomputed rank.
func (q *Queries) UpdateTranslationRank(ctx context.Context, id int64, rank int, at time.Time) error {
	_, err := q.db.ExecContext(ctx, updateTranslationRank, rank, at.UTC(), id)
	return err
}

const setTranslationSyncedAt = `UPDATE translations SET synced_at = ? WHERE id = ?`

// SetTranslationSyncedAt records the last synchronisation time.
func (q *Queries) SetTranslationSyncedAt(ctx context.Context, id int64, at time.Time) error {
	_, err := q.db.ExecContext(ctx, setTranslationSyncedAt, at.UTC(), id)
	return err
}

const deleteTranslation = `DELETE FROM translations WHERE id = ?`

// DeleteTranslation removes a translation; its votes go with it.
func (q *Queries) DeleteTranslation(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteTranslation, id)
	return err
}

const listTranslationsForKey = `SELECT ` + translationColumns + `
FROM translations WHERE translation_key_id = ? AND language_id = ?
ORDER BY rank DESC, id ASC`

// ListTranslationsForKey returns the candidates of a key in one language,
// highest rank first.
func (q *Queries) ListTranslationsForKey(ctx context.Context, keyID, languageID int64) ([]model.Translation, error) {
	rows, err := q.db.QueryContext(ctx, listTranslationsForKey, keyID, languageID)
	if err != nil {
		return nil, err
	}
	return scanTranslations(rows)
}

const listTranslationsForKeyAllLanguages = `SELECT ` + translationColumns + `
FROM translations WHERE translation_key_id = ?
ORDER BY language_id, rank DESC, id ASC`

// ListTranslationsForKeyAllLanguages returns every candidate of a key.
func (q *Queries) ListTranslationsForKeyAllLanguages(ctx context.Context, keyID int64) ([]model.Translation, error) {
	rows, err := q.db.QueryContext(ctx, listTranslationsForKeyAllLanguages, keyID)
	if err != nil {
		return nil, err
	}
	return scanTranslations(rows)
}

const listTranslatorsForKey = `SELECT DISTINCT translator_id FROM translations
WHERE translation_key_id = ? AND language_id = ? ORDER BY translator_id`

// ListTranslatorsForKey returns the ids of translators who submitted
// candidates for a key in a language.
func (q *Queries) ListTranslatorsForKey(ctx context.Context, keyID, languageID int64) ([]int64, error) {
	return q.queryIDs(ctx, listTranslatorsForKey, keyID, languageID)
}

const countTranslationDuplicates = `SELECT COUNT(*) FROM translations
WHERE translation_key_id = ? AND language_id = ? AND label = ? AND COALESCE(rules, '') = ?`

// CountTranslationDuplicates counts candidates identical in label and stored rule-set.
func (q *Queries) CountTranslationDuplicates(ctx context.Context, keyID, languageID int64, label string, rules []model.RuleRef) (int64, error) {
	encoded, err := model.EncodeRuleRefs(rules)
	if err != nil {
		return 0, err
	}
	var n int64
	err = q.db.QueryRowContext(ctx, countTranslationDuplicates, keyID, languageID, label, encoded).Scan(&n)
	return n, err
}

// Translation list ordering.
const (
	OrderByDate = "date"
	OrderByRank = "rank"
)

// Translation status filters.
const (
	StatusAll      = "all"
	StatusAccepted = "accepted"
	StatusPending  = "pending"
	StatusRejected = "rejected"
)

// SearchTranslationsParams narrows a translation listing. Zero values
// leave the corresponding criterion out.
type SearchTranslationsParams struct {
	KeyID           int64
	LanguageID      int64
	TranslatorID    int64
	Status          string
	AcceptThreshold int
	Query           string
	Since           *time.Time
	Until           *time.Time
	OrderBy         string
	Limit           int
	Offset          int
}

// SearchTranslations lists translations matching the filter.
func (q *Queries) SearchTranslations(ctx context.Context, arg SearchTranslationsParams) ([]model.Translation, error) {
	var (
		where []string
		args  []any
	)
	if arg.KeyID > 0 {
		where = append(where, "translation_key_id = ?")
		args = append(args, arg.KeyID)
	}
	if arg.LanguageID > 0 {
		where = append(where, "language_id = ?")
		args = append(args, arg.LanguageID)
	}
	if arg.TranslatorID > 0 {
		where = append(where, "translator_id = ?")
		args = append(args, arg.TranslatorID)
	}
	switch arg.Status {
	case StatusAccepted:
		where = append(where, "rank >= ?")
		args = append(args, arg.AcceptThreshold)
	case StatusPending:
		where = append(where, "rank >= 0 AND rank < ?")
		args = append(args, arg.AcceptThreshold)
	case StatusRejected:
		where = append(where, "rank < 0")
	}
	if arg.Query != "" {
		where = append(where, "label LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(arg.Query)+"%")
	}
	if arg.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, arg.Since.UTC())
	}
	if arg.Until != nil {
		where = append(where, "created_at < ?")
		args = append(args, arg.Until.UTC())
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + translationColumns + " FROM translations")
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	if arg.OrderBy == OrderByRank {
		sb.WriteString(" ORDER BY rank DESC, id DESC")
	} else {
		sb.WriteString(" ORDER BY created_at DESC, id DESC")
	}
	limit := arg.Limit
	if limit <= 0 {
		limit = 50
	}
	sb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit, arg.Offset)

	rows, err := q.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	return scanTranslations(rows)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (q *Queries) queryIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
