// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/olegiv/oloc-go/internal/model"
)

const commentColumns = `id, translation_key_id, language_id, translator_id, message, created_at`

func scanComment(row rowScanner) (model.Comment, error) {
	var c model.Comment
	err := row.Scan(&c.ID, &c.TranslationKeyID, &c.LanguageID, &c.TranslatorID, &c.Message, &c.CreatedAt)
	return c, err
}

// CreateCommentParams holds the columns of a new comment.
type CreateCommentParams struct {
	TranslationKeyID int64
	LanguageID       int64
	TranslatorID     int64
	Message          string
	CreatedAt        time.Time
}

const createComment = `INSERT INTO translation_key_comments (translation_key_id, language_id, translator_id, message, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + commentColumns

// CreateComment inserts a comment.
func (q *Queries) CreateComment(ctx context.Context, arg CreateCommentParams) (model.Comment, error) {
	return scanComment(q.db.QueryRowContext(ctx, createComment,
		arg.TranslationKeyID, arg.LanguageID, arg.TranslatorID, arg.Message, arg.CreatedAt.UTC()))
}

const getComment = `SELECT ` + commentColumns + ` FROM translation_key_comments WHERE id = ?`

// GetComment returns a comment by id.
func (q *Queries) GetComment(ctx context.Context, id int64) (model.Comment, error) {
	return scanComment(q.db.QueryRowContext(ctx, getComment, id))
}

const deleteComment = `DELETE FROM translation_key_comments WHERE id = ?`

// DeleteComment removes a comment.
func (q *Queries) DeleteComment(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteComment, id)
	return err
}

const listCommenters = `SELECT DISTINCT translator_id FROM translation_key_comments
WHERE translation_key_id = ? AND language_id = ? ORDER BY translator_id`

// ListCommenters returns the ids of translators who commented on a key in a language.
func (q *Queries) ListCommenters(ctx context.Context, keyID, languageID int64) ([]int64, error) {
	return q.queryIDs(ctx, listCommenters, keyID, languageID)
}
