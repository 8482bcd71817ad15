// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/oloc-go/internal/util"
)

// Webhook delivery statuses.
const (
	DeliveryPending   = "pending"
	DeliveryRetrying  = "retrying"
	DeliveryDelivered = "delivered"
	DeliveryDead      = "dead"
)

// WebhookDelivery is one attempt series of posting an event to one endpoint.
type WebhookDelivery struct {
	ID           int64
	UUID         string
	URL          string
	Event        string
	Payload      string
	Status       string
	Attempts     int64
	ResponseCode sql.NullInt64
	ErrorMessage sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeliveredAt  sql.NullTime
}

const webhookDeliveryColumns = `id, uuid, url, event, payload, status, attempts, response_code,
	error_message, created_at, updated_at, delivered_at`

func scanWebhookDelivery(row rowScanner) (WebhookDelivery, error) {
	var d WebhookDelivery
	err := row.Scan(&d.ID, &d.UUID, &d.URL, &d.Event, &d.Payload, &d.Status, &d.Attempts,
		&d.ResponseCode, &d.ErrorMessage, &d.CreatedAt, &d.UpdatedAt, &d.DeliveredAt)
	return d, err
}

// CreateWebhookDeliveryParams holds the columns of a new delivery.
type CreateWebhookDeliveryParams struct {
	UUID      string
	URL       string
	Event     string
	Payload   string
	CreatedAt time.Time
}

const createWebhookDelivery = `INSERT INTO webhook_deliveries (uuid, url, event, payload, status, created_at, updated_at)
VALUES (?, ?, ?, ?, 'pending', ?, ?)
RETURNING ` + webhookDeliveryColumns

// CreateWebhookDelivery inserts a pending delivery.
func (q *Queries) CreateWebhookDelivery(ctx context.Context, arg CreateWebhookDeliveryParams) (WebhookDelivery, error) {
	now := arg.CreatedAt.UTC()
	return scanWebhookDelivery(q.db.QueryRowContext(ctx, createWebhookDelivery,
		arg.UUID, arg.URL, arg.Event, arg.Payload, now, now))
}

const getWebhookDelivery = `SELECT ` + webhookDeliveryColumns + ` FROM webhook_deliveries WHERE id = ?`

// GetWebhookDelivery returns a delivery by id.
func (q *Queries) GetWebhookDelivery(ctx context.Context, id int64) (WebhookDelivery, error) {
	return scanWebhookDelivery(q.db.QueryRowContext(ctx, getWebhookDelivery, id))
}

const getWebhookDeliveryByUUID = `SELECT ` + webhookDeliveryColumns + ` FROM webhook_deliveries WHERE uuid = ?`

// GetWebhookDeliveryByUUID returns a delivery by its public identifier.
func (q *Queries) GetWebhookDeliveryByUUID(ctx context.Context, uuid string) (WebhookDelivery, error) {
	return scanWebhookDelivery(q.db.QueryRowContext(ctx, getWebhookDeliveryByUUID, uuid))
}

const listWebhookDeliveriesByStatus = `SELECT ` + webhookDeliveryColumns + `
FROM webhook_deliveries WHERE status = ? ORDER BY id LIMIT ?`

// ListWebhookDeliveriesByStatus returns deliveries in a status, oldest first.
func (q *Queries) ListWebhookDeliveriesByStatus(ctx context.Context, status string, limit int) ([]WebhookDelivery, error) {
	rows, err := q.db.QueryContext(ctx, listWebhookDeliveriesByStatus, status, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []WebhookDelivery
	for rows.Next() {
		d, err := scanWebhookDelivery(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// UpdateWebhookDeliveryParams records the outcome of one attempt.
type UpdateWebhookDeliveryParams struct {
	ID           int64
	Status       string
	ResponseCode int
	ErrorMessage string
	UpdatedAt    time.Time
}

const updateWebhookDelivery = `UPDATE webhook_deliveries SET
	status = ?,
	attempts = attempts + 1,
	response_code = ?,
	error_message = ?,
	updated_at = ?,
	delivered_at = CASE WHEN ? = 'delivered' THEN ? ELSE delivered_at END
WHERE id = ?`

// UpdateWebhookDelivery stores an attempt outcome and bumps the attempt counter.
func (q *Queries) UpdateWebhookDelivery(ctx context.Context, arg UpdateWebhookDeliveryParams) error {
	at := arg.UpdatedAt.UTC()
	code := sql.NullInt64{Int64: int64(arg.ResponseCode), Valid: arg.ResponseCode > 0}
	_, err := q.db.ExecContext(ctx, updateWebhookDelivery,
		arg.Status, code, util.NullableText(arg.ErrorMessage), at, arg.Status, at, arg.ID)
	return err
}
