// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package keylock implements the moderation lock of a (phrase key, language)
// pair. A pair without a row is unlocked; rows are materialised lazily and
// fronted by a cache.
package keylock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/olegiv/oloc-go/internal/cache"
	"github.com/olegiv/oloc-go/internal/model"
	"github.com/olegiv/oloc-go/internal/store"
)

// TranslatorHooks records lock activity against the acting translator.
type TranslatorHooks interface {
	RecordKeyLocked(ctx context.Context, q *store.Queries, translatorID int64, lock model.KeyLock) error
	RecordKeyUnlocked(ctx context.Context, q *store.Queries, translatorID int64, lock model.KeyLock) error
}

// LanguageHooks refreshes language aggregates.
type LanguageHooks interface {
	RecomputeAggregateMetrics(ctx context.Context, q *store.Queries, languageID int64) error
}

// CacheKey returns the cache key of a lock.
func CacheKey(locale, key string) string {
	return "key_lock_" + locale + "_" + key
}

// Manager owns lock lookups and transitions.
type Manager struct {
	store       *store.Store
	cache       *cache.TypedCache[model.KeyLock]
	translators TranslatorHooks
	languages   LanguageHooks
	logger      *slog.Logger
	group       singleflight.Group
	now         func() time.Time
}

// NewManager creates a lock manager. Either hook may be nil.
func NewManager(s *store.Store, c cache.Cacher, translators TranslatorHooks, languages LanguageHooks, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:       s,
		cache:       cache.NewTypedCache[model.KeyLock](c, 0),
		translators: translators,
		languages:   languages,
		logger:      logger,
		now:         time.Now,
	}
}

// For returns the lock of a pair, creating an unlocked row on first access.
// Concurrent misses for the same pair share one database round trip.
func (m *Manager) For(ctx context.Context, key model.TranslationKey, lang model.Language) (model.KeyLock, error) {
	ck := CacheKey(lang.Locale, key.Key)
	if l, ok := m.cache.Get(ctx, ck); ok {
		return *l, nil
	}

	v, err, _ := m.group.Do(ck, func() (any, error) {
		l, err := m.store.FindOrCreateKeyLock(ctx, key.ID, lang.ID, m.now())
		if err != nil {
			return nil, err
		}
		if err := m.cache.Set(ctx, ck, &l); err != nil {
			m.logger.Warn("key lock cache set failed", "key", ck, "error", err)
		}
		return l, nil
	})
	if err != nil {
		return model.KeyLock{}, fmt.Errorf("loading key lock: %w", err)
	}
	return v.(model.KeyLock), nil
}

// IsLocked reports whether the pair is locked.
func (m *Manager) IsLocked(ctx context.Context, key model.TranslationKey, lang model.Language) (bool, error) {
	l, err := m.For(ctx, key, lang)
	if err != nil {
		return false, err
	}
	return l.Locked, nil
}

// Lock locks the pair on behalf of translatorID and refreshes the language
// aggregates, since locked keys leave the translatable set.
func (m *Manager) Lock(ctx context.Context, key model.TranslationKey, lang model.Language, translatorID int64) (model.KeyLock, error) {
	return m.transition(ctx, key, lang, translatorID, true)
}

// Unlock unlocks the pair on behalf of translatorID.
func (m *Manager) Unlock(ctx context.Context, key model.TranslationKey, lang model.Language, translatorID int64) (model.KeyLock, error) {
	return m.transition(ctx, key, lang, translatorID, false)
}

func (m *Manager) transition(ctx context.Context, key model.TranslationKey, lang model.Language, translatorID int64, locked bool) (model.KeyLock, error) {
	var out model.KeyLock
	err := m.store.InTx(ctx, func(q *store.Queries) error {
		now := m.now()
		l, err := q.FindOrCreateKeyLock(ctx, key.ID, lang.ID, now)
		if err != nil {
			return err
		}
		if out, err = q.UpdateKeyLock(ctx, l.ID, locked, translatorID, now); err != nil {
			return err
		}

		if locked {
			if m.translators != nil {
				if err := m.translators.RecordKeyLocked(ctx, q, translatorID, out); err != nil {
					return err
				}
			}
			if m.languages != nil {
				return m.languages.RecomputeAggregateMetrics(ctx, q, lang.ID)
			}
			return nil
		}
		if m.translators != nil {
			return m.translators.RecordKeyUnlocked(ctx, q, translatorID, out)
		}
		return nil
	})
	if err != nil {
		return model.KeyLock{}, fmt.Errorf("updating key lock: %w", err)
	}

	m.Invalidate(ctx, key, lang)
	m.logger.Info("key lock changed", "key_id", key.ID, "locale", lang.Locale, "locked", locked, "translator_id", translatorID)
	return out, nil
}

// Invalidate drops the cached lock of a pair.
func (m *Manager) Invalidate(ctx context.Context, key model.TranslationKey, lang model.Language) {
	ck := CacheKey(lang.Locale, key.Key)
	if err := m.cache.Delete(ctx, ck); err != nil {
		m.logger.Warn("key lock cache invalidation failed", "key", ck, "error", err)
	}
}
