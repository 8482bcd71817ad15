// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package directory provides the store-backed collaborators of the
// consensus core: the translator directory, the language registry and the
// phrase key registry.
//
// Every registry is bound to a *store.Queries. Inside a transaction use
// With to obtain a copy bound to the transaction's queries.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/oloc-go/internal/model"
	"github.com/olegiv/oloc-go/internal/ranking"
	"github.com/olegiv/oloc-go/internal/store"
)

// ErrNotFound is returned when a looked up record does not exist.
var ErrNotFound = errors.New("not found")

// Log reference types
const (
	RefTranslation    = "translation"
	RefTranslationKey = "translation_key"
	RefComment        = "comment"
)

// Translators is the translator directory.
type Translators struct {
	q      *store.Queries
	accept int
	now    func() time.Time
}

// NewTranslators creates a directory. acceptThreshold feeds the accepted and
// rejected counters of translator metrics.
func NewTranslators(q *store.Queries, acceptThreshold int) *Translators {
	return &Translators{q: q, accept: acceptThreshold, now: time.Now}
}

// With returns a copy bound to q.
func (t *Translators) With(q *store.Queries) *Translators {
	c := *t
	c.q = q
	return &c
}

// Get returns a translator.
func (t *Translators) Get(ctx context.Context, id int64) (model.Translator, error) {
	tr, err := t.q.GetTranslator(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Translator{}, ErrNotFound
	}
	return tr, err
}

// ByRemoteID returns the translator linked to a remote identity.
func (t *Translators) ByRemoteID(ctx context.Context, remoteID int64) (model.Translator, error) {
	tr, err := t.q.GetTranslatorByRemoteID(ctx, remoteID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Translator{}, ErrNotFound
	}
	return tr, err
}

// VotingPowerOf implements ranking.PowerSource.
func (t *Translators) VotingPowerOf(ctx context.Context, id int64) (int, error) {
	tr, err := t.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return 0, ranking.ErrUnknownTranslator
	}
	if err != nil {
		return 0, err
	}
	return tr.VotingPower, nil
}

// IsManager reports whether the translator holds the manager role. Unknown
// translators are not managers.
func (t *Translators) IsManager(ctx context.Context, id int64) (bool, error) {
	tr, err := t.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return tr.Manager, nil
}

// RemoteIDOf returns the translator's identity on the linked remote
// instance, or nil when it has none.
func (t *Translators) RemoteIDOf(ctx context.Context, id int64) (*int64, error) {
	tr, err := t.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tr.RemoteID, nil
}

// Flag marks a translator for review.
func (t *Translators) Flag(ctx context.Context, id int64) error {
	return t.q.SetTranslatorReported(ctx, id, true, t.now())
}

// RecomputeMetrics rebuilds the translator's metrics in a language.
func (t *Translators) RecomputeMetrics(ctx context.Context, translatorID, languageID int64) (model.TranslatorMetrics, error) {
	m, err := t.q.RecomputeTranslatorMetrics(ctx, translatorID, languageID, t.accept, t.now())
	if err != nil {
		return m, fmt.Errorf("recomputing metrics of translator %d: %w", translatorID, err)
	}
	return m, nil
}

func (t *Translators) log(ctx context.Context, translatorID int64, action, refType string, refID, languageID int64) error {
	err := t.q.CreateTranslatorLog(ctx, store.CreateTranslatorLogParams{
		TranslatorID:  translatorID,
		Action:        action,
		ReferenceType: refType,
		ReferenceID:   &refID,
		LanguageID:    &languageID,
		CreatedAt:     t.now(),
	})
	if err != nil {
		return fmt.Errorf("logging %s for translator %d: %w", action, translatorID, err)
	}
	return nil
}

// RecordVoteCast logs the vote and refreshes the voter's metrics.
func (t *Translators) RecordVoteCast(ctx context.Context, vote model.Vote, tr model.Translation) error {
	if err := t.log(ctx, vote.TranslatorID, model.ActionVotedOnTranslation, RefTranslation, tr.ID, tr.LanguageID); err != nil {
		return err
	}
	_, err := t.RecomputeMetrics(ctx, vote.TranslatorID, tr.LanguageID)
	return err
}

// RecordTranslationAdded logs a submission and refreshes the submitter's metrics.
func (t *Translators) RecordTranslationAdded(ctx context.Context, tr model.Translation) error {
	if err := t.log(ctx, tr.TranslatorID, model.ActionAddedTranslation, RefTranslation, tr.ID, tr.LanguageID); err != nil {
		return err
	}
	_, err := t.RecomputeMetrics(ctx, tr.TranslatorID, tr.LanguageID)
	return err
}

// RecordTranslationUpdated logs a label edit.
func (t *Translators) RecordTranslationUpdated(ctx context.Context, editorID int64, tr model.Translation) error {
	return t.log(ctx, editorID, model.ActionUpdatedTranslation, RefTranslation, tr.ID, tr.LanguageID)
}

// RecordTranslationDeleted logs a removal and refreshes the submitter's metrics.
func (t *Translators) RecordTranslationDeleted(ctx context.Context, editorID int64, tr model.Translation) error {
	if err := t.log(ctx, editorID, model.ActionDeletedTranslation, RefTranslation, tr.ID, tr.LanguageID); err != nil {
		return err
	}
	_, err := t.RecomputeMetrics(ctx, tr.TranslatorID, tr.LanguageID)
	return err
}

// RecordComment logs a comment on a key.
func (t *Translators) RecordComment(ctx context.Context, c model.Comment) error {
	return t.log(ctx, c.TranslatorID, model.ActionCommentedOnKey, RefTranslationKey, c.TranslationKeyID, c.LanguageID)
}

// RecordKeyLocked implements keylock.TranslatorHooks.
func (t *Translators) RecordKeyLocked(ctx context.Context, q *store.Queries, translatorID int64, lock model.KeyLock) error {
	return t.With(q).log(ctx, translatorID, model.ActionLockedKey, RefTranslationKey, lock.TranslationKeyID, lock.LanguageID)
}

// RecordKeyUnlocked implements keylock.TranslatorHooks.
func (t *Translators) RecordKeyUnlocked(ctx context.Context, q *store.Queries, translatorID int64, lock model.KeyLock) error {
	return t.With(q).log(ctx, translatorID, model.ActionUnlockedKey, RefTranslationKey, lock.TranslationKeyID, lock.LanguageID)
}
