// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package ranking converts the votes on a translation into a rank and
// classifies ranks into consensus statuses.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/oloc-go/internal/model"
)

// Default thresholds.
const (
	DefaultAcceptThreshold    = 1
	DefaultViolationThreshold = -10
)

// Thresholds configures classification.
type Thresholds struct {
	// Accept is the lowest rank considered accepted.
	Accept int
	// Violation is the score below which a vote flags the submitter. Ranks
	// at or below it are reported as flagged.
	Violation int
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Accept: DefaultAcceptThreshold, Violation: DefaultViolationThreshold}
}

// Validate checks that the thresholds are coherent.
func (t Thresholds) Validate() error {
	if t.Accept < 0 {
		return fmt.Errorf("accept threshold must be >= 0, got %d", t.Accept)
	}
	if t.Violation >= 0 {
		return fmt.Errorf("violation threshold must be negative, got %d", t.Violation)
	}
	return nil
}

// Classify maps a rank to its status.
func (t Thresholds) Classify(rank int) model.Status {
	switch {
	case rank >= t.Accept:
		return model.StatusAccepted
	case rank >= 0:
		return model.StatusPending
	default:
		return model.StatusRejected
	}
}

// Flagged reports whether a rank is low enough to warrant review.
func (t Thresholds) Flagged(rank int) bool {
	return rank <= t.Violation
}

// Violates reports whether a single vote score flags the submitter.
func (t Thresholds) Violates(score int) bool {
	return score < t.Violation
}

// ErrUnknownTranslator is returned by a PowerSource for a translator that
// no longer exists. Rank skips such votes.
var ErrUnknownTranslator = errors.New("unknown translator")

// PowerSource supplies translator voting power.
type PowerSource interface {
	VotingPowerOf(ctx context.Context, translatorID int64) (int, error)
}

// Rank sums score times voting power over the votes. Votes of unknown
// translators are skipped.
func Rank(ctx context.Context, votes []model.Vote, powers PowerSource) (int, error) {
	rank := 0
	for _, v := range votes {
		power, err := powers.VotingPowerOf(ctx, v.TranslatorID)
		if errors.Is(err, ErrUnknownTranslator) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("voting power of translator %d: %w", v.TranslatorID, err)
		}
		rank += v.Score * power
	}
	return rank, nil
}

// Store is the persistence the engine needs. *store.Queries satisfies it.
type Store interface {
	ListVotes(ctx context.Context, translationID int64) ([]model.Vote, error)
	UpdateTranslationRank(ctx context.Context, id int64, rank int, at time.Time) error
	TouchTranslationKey(ctx context.Context, id int64, at time.Time) error
}

// Engine recomputes and persists translation ranks.
type Engine struct {
	thresholds Thresholds
	now        func() time.Time
}

// NewEngine creates an engine with the given thresholds.
func NewEngine(t Thresholds) *Engine {
	return &Engine{thresholds: t, now: time.Now}
}

// Thresholds returns the engine's classification thresholds.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// Recompute sums the ledger of tr, stores the new rank and touches the
// owning key. The returned translation carries the new rank.
func (e *Engine) Recompute(ctx context.Context, s Store, powers PowerSource, tr model.Translation) (model.Translation, error) {
	votes, err := s.ListVotes(ctx, tr.ID)
	if err != nil {
		return tr, fmt.Errorf("listing votes: %w", err)
	}

	rank, err := Rank(ctx, votes, powers)
	if err != nil {
		return tr, err
	}

	now := e.now()
	if err := s.UpdateTranslationRank(ctx, tr.ID, rank, now); err != nil {
		return tr, fmt.Errorf("storing rank: %w", err)
	}
	if err := s.TouchTranslationKey(ctx, tr.TranslationKeyID, now); err != nil {
		return tr, fmt.Errorf("touching key: %w", err)
	}

	tr.Rank = rank
	tr.UpdatedAt = now
	return tr, nil
}
