// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/olegiv/oloc-go/internal/model"
)

const ruleColumns = `r.id, r.language_id, l.locale, r.type, r.keyword, r.created_at`

func scanRule(row rowScanner) (model.Rule, error) {
	var (
		r    model.Rule
		kind string
	)
	err := row.Scan(&r.ID, &r.LanguageID, &r.Locale, &kind, &r.Keyword, &r.CreatedAt)
	r.Kind = model.RuleKind(kind)
	return r, err
}

const getRule = `SELECT ` + ruleColumns + `
FROM language_rules r JOIN languages l ON l.id = r.language_id
WHERE r.id = ?`

// GetRule returns a rule by id.
func (q *Queries) GetRule(ctx context.Context, id int64) (model.Rule, error) {
	return scanRule(q.db.QueryRowContext(ctx, getRule, id))
}

const getRuleByDefinition = `SELECT ` + ruleColumns + `
FROM language_rules r JOIN languages l ON l.id = r.language_id
WHERE r.language_id = ? AND r.type = ? AND r.keyword = ?`

// GetRuleByDefinition returns the rule of a language with the given kind and keyword.
func (q *Queries) GetRuleByDefinition(ctx context.Context, languageID int64, kind model.RuleKind, keyword string) (model.Rule, error) {
	return scanRule(q.db.QueryRowContext(ctx, getRuleByDefinition, languageID, string(kind), keyword))
}

const insertRuleIgnore = `INSERT INTO language_rules (language_id, type, keyword, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (language_id, type, keyword) DO NOTHING`

// FindOrCreateRule returns the rule matching the definition, creating it in
// a single statement when absent. Concurrent callers converge on one row.
func (q *Queries) FindOrCreateRule(ctx context.Context, languageID int64, kind model.RuleKind, keyword string, at time.Time) (model.Rule, error) {
	if _, err := q.db.ExecContext(ctx, insertRuleIgnore, languageID, string(kind), keyword, at.UTC()); err != nil {
		return model.Rule{}, err
	}
	return q.GetRuleByDefinition(ctx, languageID, kind, keyword)
}

const listRulesByLanguage = `SELECT ` + ruleColumns + `
FROM language_rules r JOIN languages l ON l.id = r.language_id
WHERE r.language_id = ? ORDER BY r.type, r.keyword`

// ListRulesByLanguage returns the rules defined for a language.
func (q *Queries) ListRulesByLanguage(ctx context.Context, languageID int64) ([]model.Rule, error) {
	rows, err := q.db.QueryContext(ctx, listRulesByLanguage, languageID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []model.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const deleteRule = `DELETE FROM language_rules WHERE id = ?`

// DeleteRule removes a rule. Translations referencing it keep the dangling id.
func (q *Queries) DeleteRule(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteRule, id)
	return err
}
