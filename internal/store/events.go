// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/oloc-go/internal/model"
)

// CreateEventParams holds the columns of a new event log entry.
type CreateEventParams struct {
	Level        string
	Category     string
	Message      string
	TranslatorID sql.NullInt64
	Metadata     string
	CreatedAt    time.Time
}

const createEvent = `INSERT INTO events (level, category, message, translator_id, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?)`

// CreateEvent appends to the event log.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) error {
	metadata := arg.Metadata
	if metadata == "" {
		metadata = "{}"
	}
	_, err := q.db.ExecContext(ctx, createEvent,
		arg.Level, arg.Category, arg.Message, arg.TranslatorID, metadata, arg.CreatedAt.UTC())
	return err
}

const listEvents = `SELECT id, level, category, message, translator_id, metadata, created_at
FROM events ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

// ListEvents returns event log entries, newest first.
func (q *Queries) ListEvents(ctx context.Context, limit, offset int) ([]model.Event, error) {
	rows, err := q.db.QueryContext(ctx, listEvents, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.TranslatorID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const countEvents = `SELECT COUNT(*) FROM events`

// CountEvents returns the number of event log entries.
func (q *Queries) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countEvents).Scan(&n)
	return n, err
}

const deleteEventsBefore = `DELETE FROM events WHERE created_at < ?`

// DeleteEventsBefore prunes the event log.
func (q *Queries) DeleteEventsBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteEventsBefore, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
