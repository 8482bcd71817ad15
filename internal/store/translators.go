// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/oloc-go/internal/model"
	"github.com/olegiv/oloc-go/internal/util"
)

const translatorColumns = `id, name, email, voting_power, manager, reported, remote_id, created_at, updated_at`

func scanTranslator(row rowScanner) (model.Translator, error) {
	var (
		t        model.Translator
		remoteID sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.Name, &t.Email, &t.VotingPower, &t.Manager, &t.Reported,
		&remoteID, &t.CreatedAt, &t.UpdatedAt)
	t.RemoteID = int64Ptr(remoteID)
	return t, err
}

// CreateTranslatorParams holds the columns of a new translator.
type CreateTranslatorParams struct {
	Name        string
	Email       string
	VotingPower int
	Manager     bool
	RemoteID    *int64
	CreatedAt   time.Time
}

const createTranslator = `INSERT INTO translators (name, email, voting_power, manager, remote_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + translatorColumns

// CreateTranslator inserts a translator.
func (q *Queries) CreateTranslator(ctx context.Context, arg CreateTranslatorParams) (model.Translator, error) {
	now := arg.CreatedAt.UTC()
	return scanTranslator(q.db.QueryRowContext(ctx, createTranslator,
		arg.Name, arg.Email, arg.VotingPower, arg.Manager, util.NullableID(arg.RemoteID), now, now))
}

const getTranslator = `SELECT ` + translatorColumns + ` FROM translators WHERE id = ?`

// GetTranslator returns a translator by id.
func (q *Queries) GetTranslator(ctx context.Context, id int64) (model.Translator, error) {
	return scanTranslator(q.db.QueryRowContext(ctx, getTranslator, id))
}

const getTranslatorByRemoteID = `SELECT ` + translatorColumns + ` FROM translators WHERE remote_id = ? ORDER BY id LIMIT 1`

// GetTranslatorByRemoteID returns the local translator linked to a remote identity.
func (q *Queries) GetTranslatorByRemoteID(ctx context.Context, remoteID int64) (model.Translator, error) {
	return scanTranslator(q.db.QueryRowContext(ctx, getTranslatorByRemoteID, remoteID))
}

const listTranslators = `SELECT ` + translatorColumns + ` FROM translators ORDER BY id`

// ListTranslators returns every translator.
func (q *Queries) ListTranslators(ctx context.Context) ([]model.Translator, error) {
	rows, err := q.db.QueryContext(ctx, listTranslators)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []model.Translator
	for rows.Next() {
		t, err := scanTranslator(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const setTranslatorReported = `UPDATE translators SET reported = ?, updated_at = ? WHERE id = ?`

// SetTranslatorReported flags or clears a translator for review.
func (q *Queries) SetTranslatorReported(ctx context.Context, id int64, reported bool, at time.Time) error {
	_, err := q.db.ExecContext(ctx, setTranslatorReported, reported, at.UTC(), id)
	return err
}

const deleteTranslator = `DELETE FROM translators WHERE id = ?`

// DeleteTranslator removes a translator account. Votes it cast remain and
// no longer contribute to rank.
func (q *Queries) DeleteTranslator(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteTranslator, id)
	return err
}

// TranslatorLog is one entry of a translator's activity history.
type TranslatorLog struct {
	ID            int64     `json:"id"`
	TranslatorID  int64     `json:"translator_id"`
	Action        string    `json:"action"`
	ReferenceType string    `json:"reference_type"`
	ReferenceID   *int64    `json:"reference_id,omitempty"`
	LanguageID    *int64    `json:"language_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateTranslatorLogParams holds the columns of a new activity entry.
type CreateTranslatorLogParams struct {
	TranslatorID  int64
	Action        string
	ReferenceType string
	ReferenceID   *int64
	LanguageID    *int64
	CreatedAt     time.Time
}

const createTranslatorLog = `INSERT INTO translator_logs (translator_id, action, reference_type, reference_id, language_id, created_at)
VALUES (?, ?, ?, ?, ?, ?)`

// CreateTranslatorLog appends to a translator's activity history.
func (q *Queries) CreateTranslatorLog(ctx context.Context, arg CreateTranslatorLogParams) error {
	_, err := q.db.ExecContext(ctx, createTranslatorLog,
		arg.TranslatorID, arg.Action, arg.ReferenceType, util.NullableID(arg.ReferenceID), util.NullableID(arg.LanguageID), arg.CreatedAt.UTC())
	return err
}

const listTranslatorLogs = `SELECT id, translator_id, action, reference_type, reference_id, language_id, created_at
FROM translator_logs WHERE translator_id = ? ORDER BY id DESC LIMIT ?`

// ListTranslatorLogs returns the most recent activity of a translator.
func (q *Queries) ListTranslatorLogs(ctx context.Context, translatorID int64, limit int) ([]TranslatorLog, error) {
	rows, err := q.db.QueryContext(ctx, listTranslatorLogs, translatorID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []TranslatorLog
	for rows.Next() {
		var (
			l         TranslatorLog
			ref, lang sql.NullInt64
		)
		if err := rows.Scan(&l.ID, &l.TranslatorID, &l.Action, &l.ReferenceType, &ref, &lang, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.ReferenceID = int64Ptr(ref)
		l.LanguageID = int64Ptr(lang)
		items = append(items, l)
	}
	return items, rows.Err()
}
