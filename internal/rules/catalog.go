// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package rules

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/oloc-go/internal/model"
	"github.com/olegiv/oloc-go/internal/store"
)

// Catalog is the store-backed rule lookup. Bind it to a transaction with
// NewCatalog(q.WithTx(tx)) or pass the Queries handed out by Store.InTx.
type Catalog struct {
	queries *store.Queries
	now     func() time.Time
}

// NewCatalog creates a catalog over the given queries.
func NewCatalog(queries *store.Queries) *Catalog {
	return &Catalog{queries: queries, now: time.Now}
}

// Rule implements Lookup.
func (c *Catalog) Rule(ctx context.Context, id int64) (*model.Rule, error) {
	r, err := c.queries.GetRule(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// FindOrCreate resolves a descriptor for a language, creating the rule when
// the language does not define it yet. Descriptors outside the supported
// kinds and keywords are unresolvable and yield (nil, nil).
func (c *Catalog) FindOrCreate(ctx context.Context, languageID int64, d Descriptor) (*model.Rule, error) {
	kind := model.RuleKind(d.Type)
	if !Valid(kind, d.Key) {
		return nil, nil
	}
	r, err := c.queries.FindOrCreateRule(ctx, languageID, kind, d.Key, c.now())
	if err != nil {
		return nil, fmt.Errorf("creating %s rule %q: %w", d.Type, d.Key, err)
	}
	return &r, nil
}

// ForLanguage returns the rules a language defines.
func (c *Catalog) ForLanguage(ctx context.Context, languageID int64) ([]model.Rule, error) {
	return c.queries.ListRulesByLanguage(ctx, languageID)
}
