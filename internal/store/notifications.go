// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/olegiv/oloc-go/internal/model"
)

// CreateNotificationParams holds the columns of a new notification.
type CreateNotificationParams struct {
	TranslatorID int64
	ActorID      int64
	Action       string
	ObjectType   string
	ObjectID     int64
	CreatedAt    time.Time
}

const createNotification = `INSERT INTO notifications (translator_id, actor_id, action, object_type, object_id, created_at)
VALUES (?, ?, ?, ?, ?, ?)`

// CreateNotification stores one notification for one recipient.
func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) error {
	_, err := q.db.ExecContext(ctx, createNotification,
		arg.TranslatorID, arg.ActorID, arg.Action, arg.ObjectType, arg.ObjectID, arg.CreatedAt.UTC())
	return err
}

const listNotifications = `SELECT id, translator_id, actor_id, action, object_type, object_id, created_at
FROM notifications WHERE translator_id = ? ORDER BY id DESC LIMIT ?`

// ListNotifications returns the newest notifications of a recipient.
func (q *Queries) ListNotifications(ctx context.Context, translatorID int64, limit int) ([]model.Notification, error) {
	rows, err := q.db.QueryContext(ctx, listNotifications, translatorID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.TranslatorID, &n.ActorID, &n.Action, &n.ObjectType, &n.ObjectID, &n.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}
