// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/oloc-go/internal/model"
	"github.com/olegiv/oloc-go/internal/store"
)

// Keys is the phrase key registry.
type Keys struct {
	q      *store.Queries
	accept int
	now    func() time.Time
}

// NewKeys creates a key registry.
func NewKeys(q *store.Queries, acceptThreshold int) *Keys {
	return &Keys{q: q, accept: acceptThreshold, now: time.Now}
}

// With returns a copy bound to q.
func (k *Keys) With(q *store.Queries) *Keys {
	c := *k
	c.q = q
	return &c
}

// Get returns a phrase key.
func (k *Keys) Get(ctx context.Context, id int64) (model.TranslationKey, error) {
	key, err := k.q.GetTranslationKey(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TranslationKey{}, ErrNotFound
	}
	return key, err
}

// ByKey returns a phrase key by its key text.
func (k *Keys) ByKey(ctx context.Context, text string) (model.TranslationKey, error) {
	key, err := k.q.GetTranslationKeyByKey(ctx, text)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TranslationKey{}, ErrNotFound
	}
	return key, err
}

// RecomputeMetrics rebuilds the aggregates of a key in a language.
func (k *Keys) RecomputeMetrics(ctx context.Context, keyID, languageID int64) (store.KeyMetrics, error) {
	m, err := k.q.RecomputeKeyMetrics(ctx, keyID, languageID, k.accept, k.now())
	if err != nil {
		return m, fmt.Errorf("recomputing metrics of key %d: %w", keyID, err)
	}
	return m, nil
}
