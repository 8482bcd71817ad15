// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/olegiv/oloc-go/internal/cache"
	"github.com/olegiv/oloc-go/internal/model"
	"github.com/olegiv/oloc-go/internal/store"
)

// NormalizeLocale canonicalises a BCP 47 locale ("pt_br" -> "pt-BR").
// The second result is false when the input is not a well-formed tag.
func NormalizeLocale(locale string) (string, bool) {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return "", false
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return "", false
	}
	return tag.String(), true
}

// Languages is the language registry.
type Languages struct {
	q      *store.Queries
	cache  *cache.TypedCache[model.Language]
	accept int
	logger *slog.Logger
	now    func() time.Time
}

// NewLanguages creates a registry. A nil cache disables locale caching.
func NewLanguages(q *store.Queries, c cache.Cacher, acceptThreshold int, logger *slog.Logger) *Languages {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Languages{q: q, accept: acceptThreshold, logger: logger, now: time.Now}
	if c != nil {
		l.cache = cache.NewTypedCache[model.Language](c, 0)
	}
	return l
}

// With returns a copy bound to q sharing the locale cache.
func (l *Languages) With(q *store.Queries) *Languages {
	c := *l
	c.q = q
	return &c
}

func languageCacheKey(locale string) string {
	return "language_locale_" + locale
}

// ResolveByLocale returns the enabled language for a locale, or nil when
// the locale is malformed, unknown or disabled.
func (l *Languages) ResolveByLocale(ctx context.Context, locale string) (*model.Language, error) {
	norm, ok := NormalizeLocale(locale)
	if !ok {
		return nil, nil
	}

	if l.cache != nil {
		if lang, ok := l.cache.Get(ctx, languageCacheKey(norm)); ok {
			return lang, nil
		}
	}

	lang, err := l.lookup(ctx, norm, locale)
	if err != nil || lang == nil {
		return nil, err
	}
	if !lang.Enabled {
		return nil, nil
	}

	if l.cache != nil {
		if err := l.cache.Set(ctx, languageCacheKey(norm), lang); err != nil {
			// Below WARN: this can run inside an import transaction.
			l.logger.Debug("language cache set failed", "locale", norm, "error", err)
		}
	}
	return lang, nil
}

func (l *Languages) lookup(ctx context.Context, candidates ...string) (*model.Language, error) {
	for _, c := range candidates {
		lang, err := l.q.GetLanguageByLocale(ctx, strings.TrimSpace(c))
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("looking up locale %q: %w", c, err)
		}
		return &lang, nil
	}
	return nil, nil
}

// Get returns a language by id.
func (l *Languages) Get(ctx context.Context, id int64) (model.Language, error) {
	lang, err := l.q.GetLanguage(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Language{}, ErrNotFound
	}
	return lang, err
}

// List returns every language.
func (l *Languages) List(ctx context.Context) ([]model.Language, error) {
	return l.q.ListLanguages(ctx)
}

// TouchTranslations records that translations of the language changed.
func (l *Languages) TouchTranslations(ctx context.Context, languageID int64) error {
	return l.q.TouchLanguageTranslations(ctx, languageID, l.now())
}

// RecomputeAggregateMetrics implements keylock.LanguageHooks.
func (l *Languages) RecomputeAggregateMetrics(ctx context.Context, q *store.Queries, languageID int64) error {
	if _, err := q.RecomputeLanguageMetrics(ctx, languageID, l.accept, l.now()); err != nil {
		return fmt.Errorf("recomputing metrics of language %d: %w", languageID, err)
	}
	return nil
}

// Metrics returns the stored aggregates of a language.
func (l *Languages) Metrics(ctx context.Context, languageID int64) (model.LanguageMetrics, error) {
	m, err := l.q.GetLanguageMetrics(ctx, languageID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LanguageMetrics{LanguageID: languageID}, nil
	}
	return m, err
}
