// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/oloc-go/internal/model"
)

const translatorTranslationStats = `SELECT
	COUNT(*),
	COALESCE(SUM(CASE WHEN rank >= ? THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN rank < 0 THEN 1 ELSE 0 END), 0)
FROM translations WHERE translator_id = ? AND language_id = ?`

const translatorVoteStats = `SELECT
	COUNT(*),
	COALESCE(SUM(CASE WHEN v.vote > 0 THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN v.vote < 0 THEN 1 ELSE 0 END), 0)
FROM translation_votes v JOIN translations t ON t.id = v.translation_id
WHERE v.translator_id = ? AND t.language_id = ?`

const translatorRankSum = `SELECT COALESCE(SUM(rank), 0) FROM translations WHERE translator_id = ? AND language_id = ?`

const upsertTranslatorMetrics = `INSERT INTO translator_metrics (
	translator_id, language_id, total_translations, total_votes, positive_votes, negative_votes,
	accepted_translations, rejected_translations, rank, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (translator_id, language_id) DO UPDATE SET
	total_translations = excluded.total_translations,
	total_votes = excluded.total_votes,
	positive_votes = excluded.positive_votes,
	negative_votes = excluded.negative_votes,
	accepted_translations = excluded.accepted_translations,
	rejected_translations = excluded.rejected_translations,
	rank = excluded.rank,
	updated_at = excluded.updated_at`

// RecomputeTranslatorMetrics rebuilds a translator's aggregate row for one
// language from translations and votes.
func (q *Queries) RecomputeTranslatorMetrics(ctx context.Context, translatorID, languageID int64, acceptThreshold int, at time.Time) (model.TranslatorMetrics, error) {
	m := model.TranslatorMetrics{TranslatorID: translatorID, LanguageID: languageID, UpdatedAt: at.UTC()}

	if err := q.db.QueryRowContext(ctx, translatorTranslationStats, acceptThreshold, translatorID, languageID).
		Scan(&m.TotalTranslations, &m.AcceptedTranslations, &m.RejectedTranslations); err != nil {
		return m, err
	}
	if err := q.db.QueryRowContext(ctx, translatorVoteStats, translatorID, languageID).
		Scan(&m.TotalVotes, &m.PositiveVotes, &m.NegativeVotes); err != nil {
		return m, err
	}
	if err := q.db.QueryRowContext(ctx, translatorRankSum, translatorID, languageID).Scan(&m.Rank); err != nil {
		return m, err
	}

	_, err := q.db.ExecContext(ctx, upsertTranslatorMetrics,
		m.TranslatorID, m.LanguageID, m.TotalTranslations, m.TotalVotes, m.PositiveVotes, m.NegativeVotes,
		m.AcceptedTranslations, m.RejectedTranslations, m.Rank, m.UpdatedAt)
	return m, err
}

const getTranslatorMetrics = `SELECT translator_id, language_id, total_translations, total_votes, positive_votes,
	negative_votes, accepted_translations, rejected_translations, rank, updated_at
FROM translator_metrics WHERE translator_id = ? AND language_id = ?`

// GetTranslatorMetrics returns the stored aggregate row.
func (q *Queries) GetTranslatorMetrics(ctx context.Context, translatorID, languageID int64) (model.TranslatorMetrics, error) {
	var m model.TranslatorMetrics
	err := q.db.QueryRowContext(ctx, getTranslatorMetrics, translatorID, languageID).Scan(
		&m.TranslatorID, &m.LanguageID, &m.TotalTranslations, &m.TotalVotes, &m.PositiveVotes,
		&m.NegativeVotes, &m.AcceptedTranslations, &m.RejectedTranslations, &m.Rank, &m.UpdatedAt)
	return m, err
}

// KeyMetrics aggregates the candidates of one key in one language.
type KeyMetrics struct {
	TranslationKeyID     int64     `json:"translation_key_id"`
	LanguageID           int64     `json:"language_id"`
	TotalTranslations    int64     `json:"total_translations"`
	AcceptedTranslations int64     `json:"accepted_translations"`
	TopRank              *int64    `json:"top_rank,omitempty"`
	UpdatedAt            time.Time `json:"updated_at"`
}

const keyStats = `SELECT
	COUNT(*),
	COALESCE(SUM(CASE WHEN rank >= ? THEN 1 ELSE 0 END), 0),
	MAX(rank)
FROM translations WHERE translation_key_id = ? AND language_id = ?`

const upsertKeyMetrics = `INSERT INTO translation_key_metrics (
	translation_key_id, language_id, total_translations, accepted_translations, top_rank, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (translation_key_id, language_id) DO UPDATE SET
	total_translations = excluded.total_translations,
	accepted_translations = excluded.accepted_translations,
	top_rank = excluded.top_rank,
	updated_at = excluded.updated_at`

// RecomputeKeyMetrics rebuilds the aggregate row of a (key, language) pair.
func (q *Queries) RecomputeKeyMetrics(ctx context.Context, keyID, languageID int64, acceptThreshold int, at time.Time) (KeyMetrics, error) {
	m := KeyMetrics{TranslationKeyID: keyID, LanguageID: languageID, UpdatedAt: at.UTC()}

	var top sql.NullInt64
	if err := q.db.QueryRowContext(ctx, keyStats, acceptThreshold, keyID, languageID).
		Scan(&m.TotalTranslations, &m.AcceptedTranslations, &top); err != nil {
		return m, err
	}
	m.TopRank = int64Ptr(top)

	_, err := q.db.ExecContext(ctx, upsertKeyMetrics,
		m.TranslationKeyID, m.LanguageID, m.TotalTranslations, m.AcceptedTranslations, top, m.UpdatedAt)
	return m, err
}

const getKeyMetrics = `SELECT translation_key_id, language_id, total_translations, accepted_translations, top_rank, updated_at
FROM translation_key_metrics WHERE translation_key_id = ? AND language_id = ?`

// GetKeyMetrics returns the stored aggregate row of a (key, language) pair.
func (q *Queries) GetKeyMetrics(ctx context.Context, keyID, languageID int64) (KeyMetrics, error) {
	var (
		m   KeyMetrics
		top sql.NullInt64
	)
	err := q.db.QueryRowContext(ctx, getKeyMetrics, keyID, languageID).Scan(
		&m.TranslationKeyID, &m.LanguageID, &m.TotalTranslations, &m.AcceptedTranslations, &top, &m.UpdatedAt)
	m.TopRank = int64Ptr(top)
	return m, err
}

const languageStats = `SELECT
	COUNT(*),
	COALESCE(SUM(CASE WHEN rank >= ? THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN rank >= 0 AND rank < ? THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN rank < 0 THEN 1 ELSE 0 END), 0)
FROM translations WHERE language_id = ?`

const countLockedKeys = `SELECT COUNT(*) FROM translation_key_locks WHERE language_id = ? AND locked = 1`

const upsertLanguageMetrics = `INSERT INTO language_metrics (
	language_id, total_translations, accepted_translations, pending_translations, rejected_translations,
	locked_keys, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (language_id) DO UPDATE SET
	total_translations = excluded.total_translations,
	accepted_translations = excluded.accepted_translations,
	pending_translations = excluded.pending_translations,
	rejected_translations = excluded.rejected_translations,
	locked_keys = excluded.locked_keys,
	updated_at = excluded.updated_at`

// RecomputeLanguageMetrics rebuilds the aggregate row of a language.
func (q *Queries) RecomputeLanguageMetrics(ctx context.Context, languageID int64, acceptThreshold int, at time.Time) (model.LanguageMetrics, error) {
	m := model.LanguageMetrics{LanguageID: languageID, UpdatedAt: at.UTC()}

	if err := q.db.QueryRowContext(ctx, languageStats, acceptThreshold, acceptThreshold, languageID).
		Scan(&m.TotalTranslations, &m.AcceptedTranslations, &m.PendingTranslations, &m.RejectedTranslations); err != nil {
		return m, err
	}
	if err := q.db.QueryRowContext(ctx, countLockedKeys, languageID).Scan(&m.LockedKeys); err != nil {
		return m, err
	}

	_, err := q.db.ExecContext(ctx, upsertLanguageMetrics,
		m.LanguageID, m.TotalTranslations, m.AcceptedTranslations, m.PendingTranslations,
		m.RejectedTranslations, m.LockedKeys, m.UpdatedAt)
	return m, err
}

const getLanguageMetrics = `SELECT language_id, total_translations, accepted_translations, pending_translations,
	rejected_translations, locked_keys, updated_at
FROM language_metrics WHERE language_id = ?`

// GetLanguageMetrics returns the stored aggregate row of a language.
func (q *Queries) GetLanguageMetrics(ctx context.Context, languageID int64) (model.LanguageMetrics, error) {
	var m model.LanguageMetrics
	err := q.db.QueryRowContext(ctx, getLanguageMetrics, languageID).Scan(
		&m.LanguageID, &m.TotalTranslations, &m.AcceptedTranslations, &m.PendingTranslations,
		&m.RejectedTranslations, &m.LockedKeys, &m.UpdatedAt)
	return m, err
}
