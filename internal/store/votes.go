// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/olegiv/oloc-go/internal/model"
)

const voteColumns = `id, translation_id, translator_id, vote, created_at, updated_at`

func scanVote(row rowScanner) (model.Vote, error) {
	var v model.Vote
	err := row.Scan(&v.ID, &v.TranslationID, &v.TranslatorID, &v.Score, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

const upsertVote = `INSERT INTO translation_votes (translation_id, translator_id, vote, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (translation_id, translator_id) DO UPDATE SET vote = excluded.vote, updated_at = excluded.updated_at
RETURNING ` + voteColumns

// UpsertVote records a translator's vote, replacing any earlier one.
func (q *Queries) UpsertVote(ctx context.Context, translationID, translatorID int64, score int, at time.Time) (model.Vote, error) {
	at = at.UTC()
	return scanVote(q.db.QueryRowContext(ctx, upsertVote, translationID, translatorID, score, at, at))
}

const listVotes = `SELECT ` + voteColumns + ` FROM translation_votes WHERE translation_id = ? ORDER BY id`

// ListVotes returns the votes of a translation in cast order.
func (q *Queries) ListVotes(ctx context.Context, translationID int64) ([]model.Vote, error) {
	rows, err := q.db.QueryContext(ctx, listVotes, translationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []model.Vote
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

const deleteVotes = `DELETE FROM translation_votes WHERE translation_id = ?`

// DeleteVotes clears the ledger of a translation.
func (q *Queries) DeleteVotes(ctx context.Context, translationID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteVotes, translationID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
