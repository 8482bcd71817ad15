// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package notify fans consensus events out to the translators they concern
// and to the configured webhook endpoints.
package notify

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/olegiv/oloc-go/internal/store"
	"github.com/olegiv/oloc-go/internal/webhook"
)

// Object types stored with a notification.
const (
	ObjectTranslation = "translation"
	ObjectKeyLock     = "translation_key_lock"
	ObjectComment     = "translation_key_comment"
)

// Event is one consensus event. Type is one of the webhook event types.
type Event struct {
	Type       string
	ActorID    int64
	KeyID      int64
	LanguageID int64
	ObjectType string
	ObjectID   int64
	// OwnerID is the submitter of the translation a vote was cast on.
	OwnerID int64
	// Data is the webhook payload.
	Data any
}

// Forwarder receives every distributed event.
type Forwarder interface {
	Dispatch(ctx context.Context, event *webhook.Event) error
}

// Distributor persists per-recipient notifications and forwards events.
type Distributor struct {
	queries *store.Queries
	forward Forwarder
	logger  *slog.Logger
	now     func() time.Time
}

// NewDistributor creates a distributor. forward may be nil.
func NewDistributor(queries *store.Queries, forward Forwarder, logger *slog.Logger) *Distributor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Distributor{queries: queries, forward: forward, logger: logger, now: time.Now}
}

// Recipients returns the translators an event concerns, never the actor.
func (d *Distributor) Recipients(ctx context.Context, ev Event) ([]int64, error) {
	var ids []int64
	switch ev.Type {
	case webhook.EventVoteCast:
		ids = []int64{ev.OwnerID}
	case webhook.EventCommentCreated:
		translators, err := d.queries.ListTranslatorsForKey(ctx, ev.KeyID, ev.LanguageID)
		if err != nil {
			return nil, err
		}
		commenters, err := d.queries.ListCommenters(ctx, ev.KeyID, ev.LanguageID)
		if err != nil {
			return nil, err
		}
		ids = append(translators, commenters...)
	default:
		translators, err := d.queries.ListTranslatorsForKey(ctx, ev.KeyID, ev.LanguageID)
		if err != nil {
			return nil, err
		}
		ids = translators
	}

	ids = slices.DeleteFunc(ids, func(id int64) bool { return id == 0 || id == ev.ActorID })
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// Distribute notifies every recipient and forwards the event. It never
// fails; errors are logged.
func (d *Distributor) Distribute(ctx context.Context, ev Event) {
	recipients, err := d.Recipients(ctx, ev)
	if err != nil {
		d.logger.Error("failed to compute notification recipients", "error", err, "event_type", ev.Type)
	}

	now := d.now()
	for _, id := range recipients {
		err := d.queries.CreateNotification(ctx, store.CreateNotificationParams{
			TranslatorID: id,
			ActorID:      ev.ActorID,
			Action:       ev.Type,
			ObjectType:   ev.ObjectType,
			ObjectID:     ev.ObjectID,
			CreatedAt:    now,
		})
		if err != nil {
			d.logger.Error("failed to store notification", "error", err, "translator_id", id, "event_type", ev.Type)
		}
	}

	d.logger.Debug("event distributed", "event_type", ev.Type, "recipients", len(recipients))

	if d.forward == nil {
		return
	}
	if err := d.forward.Dispatch(ctx, webhook.NewEvent(ev.Type, ev.Data)); err != nil {
		d.logger.Error("failed to forward event", "error", err, "event_type", ev.Type)
	}
}
