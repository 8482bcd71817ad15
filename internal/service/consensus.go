// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/olegiv/oloc-go/internal/cache"
	"github.com/olegiv/oloc-go/internal/directory"
	"github.com/olegiv/oloc-go/internal/keylock"
	"github.com/olegiv/oloc-go/internal/model"
	"github.com/olegiv/oloc-go/internal/notify"
	"github.com/olegiv/oloc-go/internal/ranking"
	"github.com/olegiv/oloc-go/internal/store"
)

// Notifier receives events after their transaction commits.
type Notifier interface {
	Distribute(ctx context.Context, ev notify.Event)
}

type nopNotifier struct{}

func (nopNotifier) Distribute(context.Context, notify.Event) {}

// Options configures the consensus rules.
type Options struct {
	Thresholds ranking.Thresholds
	// EnforceUnique rejects a submission identical in label and rules to
	// an existing candidate of the same key and language.
	EnforceUnique bool
	// IncludeTranslator makes every export embed the full translator.
	IncludeTranslator bool
}

// DefaultOptions returns the stock options.
func DefaultOptions() Options {
	return Options{Thresholds: ranking.DefaultThresholds()}
}

// Consensus orchestrates votes, ranking, rules, key locks and sync. Every
// mutation runs in one transaction; notifications follow the commit.
type Consensus struct {
	store       *store.Store
	engine      *ranking.Engine
	translators *directory.Translators
	languages   *directory.Languages
	keys        *directory.Keys
	locks       *keylock.Manager
	notifier    Notifier
	events      *EventService
	logger      *slog.Logger
	opts        Options
	now         func() time.Time
}

// NewConsensus wires the facade. c backs the key lock and locale caches;
// notifier may be nil.
func NewConsensus(s *store.Store, c cache.Cacher, notifier Notifier, logger *slog.Logger, opts Options) *Consensus {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	accept := opts.Thresholds.Accept

	translators := directory.NewTranslators(s.Queries, accept)
	languages := directory.NewLanguages(s.Queries, c, accept, logger)

	return &Consensus{
		store:       s,
		engine:      ranking.NewEngine(opts.Thresholds),
		translators: translators,
		languages:   languages,
		keys:        directory.NewKeys(s.Queries, accept),
		locks:       keylock.NewManager(s, c, translators, languages, logger),
		notifier:    notifier,
		events:      NewEventService(s.Queries, logger),
		logger:      logger,
		opts:        opts,
		now:         time.Now,
	}
}

// Thresholds returns the classification thresholds in force.
func (c *Consensus) Thresholds() ranking.Thresholds {
	return c.engine.Thresholds()
}

// Events returns the audit log.
func (c *Consensus) Events() *EventService {
	return c.events
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, directory.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (c *Consensus) translation(ctx context.Context, q *store.Queries, id int64) (model.Translation, error) {
	tr, err := q.GetTranslation(ctx, id)
	return tr, notFound(err)
}

func (c *Consensus) translator(ctx context.Context, id int64) (model.Translator, error) {
	t, err := c.translators.Get(ctx, id)
	return t, notFound(err)
}

func (c *Consensus) key(ctx context.Context, id int64) (model.TranslationKey, error) {
	k, err := c.keys.Get(ctx, id)
	return k, notFound(err)
}

// language resolves a locale or reports it as unsupported.
func (c *Consensus) language(ctx context.Context, locale string) (model.Language, error) {
	lang, err := c.languages.ResolveByLocale(ctx, locale)
	if err != nil {
		return model.Language{}, err
	}
	if lang == nil {
		return model.Language{}, invalid("locale", "unsupported locale %q", locale)
	}
	return *lang, nil
}

// scope loads the key and language a translation belongs to.
func (c *Consensus) scope(ctx context.Context, tr model.Translation) (model.TranslationKey, model.Language, error) {
	key, err := c.key(ctx, tr.TranslationKeyID)
	if err != nil {
		return key, model.Language{}, err
	}
	lang, err := c.languages.Get(ctx, tr.LanguageID)
	return key, lang, notFound(err)
}

// authorize applies the lock gate. While the pair is locked only managers
// pass; otherwise the owner or a manager does. ownerID 0 means a new
// record with no owner yet.
func (c *Consensus) authorize(ctx context.Context, key model.TranslationKey, lang model.Language, editorID, ownerID int64) error {
	manager, err := c.translators.IsManager(ctx, editorID)
	if err != nil {
		return err
	}
	locked, err := c.locks.IsLocked(ctx, key, lang)
	if err != nil {
		return err
	}
	if locked {
		if manager {
			return nil
		}
		return ErrLocked
	}
	if ownerID != 0 && ownerID != editorID && !manager {
		return ErrForbidden
	}
	return nil
}

func allowed(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrLocked), errors.Is(err, ErrForbidden):
		return false, nil
	default:
		return false, err
	}
}
