// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package ledger keeps the votes cast on translations. A translator holds at
// most one vote per translation; casting again replaces the earlier score.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/olegiv/oloc-go/internal/model"
)

// ResetScore is the score of the synthetic vote left behind by Reset.
const ResetScore = 1

// Store is the persistence the ledger needs. *store.Queries satisfies it.
type Store interface {
	UpsertVote(ctx context.Context, translationID, translatorID int64, score int, at time.Time) (model.Vote, error)
	ListVotes(ctx context.Context, translationID int64) ([]model.Vote, error)
	DeleteVotes(ctx context.Context, translationID int64) (int64, error)
}

// Ledger records votes.
type Ledger struct {
	store Store
	now   func() time.Time
}

// New creates a ledger over s. Bind s to a transaction when the ledger
// write must commit together with the rank recompute.
func New(s Store) *Ledger {
	return &Ledger{store: s, now: time.Now}
}

// Cast records the translator's vote on a translation.
func (l *Ledger) Cast(ctx context.Context, translationID, translatorID int64, score int) (model.Vote, error) {
	v, err := l.store.UpsertVote(ctx, translationID, translatorID, score, l.now())
	if err != nil {
		return model.Vote{}, fmt.Errorf("casting vote on translation %d: %w", translationID, err)
	}
	return v, nil
}

// Votes returns the votes of a translation in cast order.
func (l *Ledger) Votes(ctx context.Context, translationID int64) ([]model.Vote, error) {
	votes, err := l.store.ListVotes(ctx, translationID)
	if err != nil {
		return nil, fmt.Errorf("listing votes of translation %d: %w", translationID, err)
	}
	return votes, nil
}

// Reset deletes every vote on the translation and leaves a single +1 vote
// from translatorID. It must run inside a transaction.
func (l *Ledger) Reset(ctx context.Context, translationID, translatorID int64) (model.Vote, int64, error) {
	removed, err := l.store.DeleteVotes(ctx, translationID)
	if err != nil {
		return model.Vote{}, 0, fmt.Errorf("clearing votes of translation %d: %w", translationID, err)
	}
	v, err := l.Cast(ctx, translationID, translatorID, ResetScore)
	if err != nil {
		return model.Vote{}, 0, err
	}
	return v, removed, nil
}
