// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"

	"github.com/olegiv/oloc-go/internal/ledger"
	"github.com/olegiv/oloc-go/internal/model"
	"github.com/olegiv/oloc-go/internal/notify"
	"github.com/olegiv/oloc-go/internal/store"
	"github.com/olegiv/oloc-go/internal/webhook"
)

// VoteResult is the state of a translation after a vote.
type VoteResult struct {
	Translation model.Translation `json:"translation"`
	Vote        model.Vote        `json:"vote"`
	Rank        int               `json:"rank"`
	Status      model.Status      `json:"status"`
	// Flagged is set when the rank is at or below the violation threshold
	// or the submitter was marked for review.
	Flagged bool `json:"flagged"`
	// SubmitterReported is set when this vote's score marked the submitter
	// for review.
	SubmitterReported bool `json:"submitter_reported"`
}

// CastVote records a translator's vote and recomputes everything that
// depends on it. A repeated vote from the same translator replaces the
// earlier one.
func (c *Consensus) CastVote(ctx context.Context, translationID, voterID int64, score int) (*VoteResult, error) {
	if _, err := c.translator(ctx, voterID); err != nil {
		return nil, err
	}

	var res VoteResult
	err := c.store.InTx(ctx, func(q *store.Queries) error {
		tr, err := c.translation(ctx, q, translationID)
		if err != nil {
			return err
		}
		translators := c.translators.With(q)

		vote, err := ledger.New(q).Cast(ctx, tr.ID, voterID, score)
		if err != nil {
			return err
		}
		if tr, err = c.engine.Recompute(ctx, q, translators, tr); err != nil {
			return err
		}
		if _, err := translators.RecomputeMetrics(ctx, tr.TranslatorID, tr.LanguageID); err != nil {
			return err
		}

		th := c.engine.Thresholds()
		if th.Violates(score) {
			if err := translators.Flag(ctx, tr.TranslatorID); err != nil {
				return err
			}
			res.SubmitterReported = true
		}
		res.Flagged = res.SubmitterReported || th.Flagged(tr.Rank)

		if err := translators.RecordVoteCast(ctx, vote, tr); err != nil {
			return err
		}
		if _, err := c.keys.With(q).RecomputeMetrics(ctx, tr.TranslationKeyID, tr.LanguageID); err != nil {
			return err
		}

		res.Translation, res.Vote = tr, vote
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Rank = res.Translation.Rank
	res.Status = c.engine.Thresholds().Classify(res.Rank)
	if res.SubmitterReported {
		c.logger.Warn("translator flagged for review",
			"translator_id", res.Translation.TranslatorID,
			"translation_id", translationID,
			"rank", res.Rank)
	}
	c.notifyVote(ctx, voterID, &res)
	return &res, nil
}

// ResetVotes clears the ledger of a translation and leaves a single +1
// vote from translatorID.
func (c *Consensus) ResetVotes(ctx context.Context, translationID, translatorID int64) (*VoteResult, error) {
	if _, err := c.translator(ctx, translatorID); err != nil {
		return nil, err
	}

	var (
		res     VoteResult
		removed int64
	)
	err := c.store.InTx(ctx, func(q *store.Queries) error {
		tr, err := c.translation(ctx, q, translationID)
		if err != nil {
			return err
		}
		translators := c.translators.With(q)

		vote, n, err := ledger.New(q).Reset(ctx, tr.ID, translatorID)
		if err != nil {
			return err
		}
		if tr, err = c.engine.Recompute(ctx, q, translators, tr); err != nil {
			return err
		}
		if _, err := translators.RecomputeMetrics(ctx, tr.TranslatorID, tr.LanguageID); err != nil {
			return err
		}
		if err := translators.RecordVoteCast(ctx, vote, tr); err != nil {
			return err
		}
		if _, err := c.keys.With(q).RecomputeMetrics(ctx, tr.TranslationKeyID, tr.LanguageID); err != nil {
			return err
		}

		res.Translation, res.Vote, removed = tr, vote, n
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Rank = res.Translation.Rank
	res.Status = c.engine.Thresholds().Classify(res.Rank)
	c.logger.Info("votes reset", "translation_id", translationID, "translator_id", translatorID, "removed", removed)
	c.notifyVote(ctx, translatorID, &res)
	return &res, nil
}

func (c *Consensus) notifyVote(ctx context.Context, voterID int64, res *VoteResult) {
	tr := res.Translation
	c.notifier.Distribute(ctx, notify.Event{
		Type:       webhook.EventVoteCast,
		ActorID:    voterID,
		KeyID:      tr.TranslationKeyID,
		LanguageID: tr.LanguageID,
		ObjectType: notify.ObjectTranslation,
		ObjectID:   tr.ID,
		OwnerID:    tr.TranslatorID,
		Data: webhook.VoteEventData{
			TranslationID: tr.ID,
			TranslatorID:  voterID,
			Score:         res.Vote.Score,
			Rank:          res.Rank,
			Status:        string(res.Status),
		},
	})
}
