// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/olegiv/oloc-go/internal/model"
	"github.com/olegiv/oloc-go/internal/notify"
	"github.com/olegiv/oloc-go/internal/rules"
	"github.com/olegiv/oloc-go/internal/store"
	"github.com/olegiv/oloc-go/internal/util"
	"github.com/olegiv/oloc-go/internal/webhook"
)

// Date windows accepted by Filter.Window.
const (
	WindowToday     = "today"
	WindowYesterday = "yesterday"
	WindowLastWeek  = "last_week"
)

// SubmitParams describes a new candidate translation.
type SubmitParams struct {
	KeyID        int64           `json:"key_id"`
	Locale       string          `json:"locale"`
	TranslatorID int64           `json:"translator_id"`
	Label        string          `json:"label"`
	Rules        []model.RuleRef `json:"rules,omitempty"`
}

// Filter selects translations for ListTranslations.
type Filter struct {
	KeyID        int64
	Locale       string
	Status       string
	TranslatorID int64
	Query        string
	Window       string
	OrderBy      string
	Limit        int
	Offset       int
}

// SubmitTranslation adds a candidate translation for a key.
func (c *Consensus) SubmitTranslation(ctx context.Context, p SubmitParams) (*model.Translation, error) {
	key, err := c.key(ctx, p.KeyID)
	if err != nil {
		return nil, err
	}
	lang, err := c.language(ctx, p.Locale)
	if err != nil {
		return nil, err
	}
	if _, err := c.translator(ctx, p.TranslatorID); err != nil {
		return nil, err
	}
	if err := c.authorize(ctx, key, lang, p.TranslatorID, 0); err != nil {
		return nil, err
	}

	label := util.SanitizeLabel(p.Label)
	if util.IsBlank(label) {
		return nil, invalid("label", "must not be blank")
	}
	refs, err := c.validateRules(ctx, lang, p.Rules)
	if err != nil {
		return nil, err
	}
	if err := c.checkUnique(ctx, key.ID, lang.ID, label, refs); err != nil {
		return nil, err
	}

	var tr model.Translation
	err = c.store.InTx(ctx, func(q *store.Queries) error {
		created, err := q.CreateTranslation(ctx, store.CreateTranslationParams{
			TranslationKeyID: key.ID,
			LanguageID:       lang.ID,
			TranslatorID:     p.TranslatorID,
			Label:            label,
			Rules:            refs,
			CreatedAt:        c.now(),
		})
		if err != nil {
			return fmt.Errorf("creating translation: %w", err)
		}
		if err := c.recordAdded(ctx, q, created); err != nil {
			return err
		}
		tr = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("translation submitted", "translation_id", tr.ID, "key", key.Key, "locale", lang.Locale, "translator_id", tr.TranslatorID)
	c.notifyTranslation(ctx, webhook.EventTranslationCreated, p.TranslatorID, lang, tr)
	return &tr, nil
}

// recordAdded runs the bookkeeping that follows a new translation.
func (c *Consensus) recordAdded(ctx context.Context, q *store.Queries, tr model.Translation) error {
	if err := c.translators.With(q).RecordTranslationAdded(ctx, tr); err != nil {
		return err
	}
	if err := c.languages.With(q).TouchTranslations(ctx, tr.LanguageID); err != nil {
		return err
	}
	_, err := c.keys.With(q).RecomputeMetrics(ctx, tr.TranslationKeyID, tr.LanguageID)
	return err
}

// validateRules checks that every referenced rule exists in the language.
func (c *Consensus) validateRules(ctx context.Context, lang model.Language, refs []model.RuleRef) ([]model.RuleRef, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	catalog := rules.NewCatalog(c.store.Queries)
	for _, ref := range refs {
		if ref.Token == "" {
			return nil, invalid("rules", "token must not be empty")
		}
		if len(ref.RuleIDs) == 0 {
			return nil, invalid("rules", "token %q has no rules", ref.Token)
		}
		for _, id := range ref.RuleIDs {
			rule, err := catalog.Rule(ctx, id)
			if err != nil {
				return nil, err
			}
			if rule == nil || rule.LanguageID != lang.ID {
				return nil, invalid("rules", "rule %d does not exist for %s", id, lang.Locale)
			}
		}
	}
	return refs, nil
}

func (c *Consensus) checkUnique(ctx context.Context, keyID, languageID int64, label string, refs []model.RuleRef) error {
	if !c.opts.EnforceUnique {
		return nil
	}
	n, err := c.store.CountTranslationDuplicates(ctx, keyID, languageID, label, refs)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicate
	}
	return nil
}

// UpdateTranslation replaces the label of a translation.
func (c *Consensus) UpdateTranslation(ctx context.Context, id, editorID int64, label string) (*model.Translation, error) {
	tr, err := c.translation(ctx, c.store.Queries, id)
	if err != nil {
		return nil, err
	}
	key, lang, err := c.scope(ctx, tr)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(ctx, key, lang, editorID, tr.TranslatorID); err != nil {
		return nil, err
	}

	label = util.SanitizeLabel(label)
	if util.IsBlank(label) {
		return nil, invalid("label", "must not be blank")
	}
	if label == tr.Label {
		return &tr, nil
	}
	if err := c.checkUnique(ctx, key.ID, lang.ID, label, tr.Rules); err != nil {
		return nil, err
	}

	err = c.store.InTx(ctx, func(q *store.Queries) error {
		if err := q.UpdateTranslationLabel(ctx, tr.ID, label, c.now()); err != nil {
			return fmt.Errorf("updating translation %d: %w", tr.ID, err)
		}
		updated, err := q.GetTranslation(ctx, tr.ID)
		if err != nil {
			return err
		}
		if err := c.translators.With(q).RecordTranslationUpdated(ctx, editorID, updated); err != nil {
			return err
		}
		if err := c.languages.With(q).TouchTranslations(ctx, lang.ID); err != nil {
			return err
		}
		tr = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("translation updated", "translation_id", tr.ID, "editor_id", editorID)
	c.notifyTranslation(ctx, webhook.EventTranslationUpdated, editorID, lang, tr)
	return &tr, nil
}

// DeleteTranslation removes a translation together with its votes.
func (c *Consensus) DeleteTranslation(ctx context.Context, id, editorID int64) error {
	tr, err := c.translation(ctx, c.store.Queries, id)
	if err != nil {
		return err
	}
	key, lang, err := c.scope(ctx, tr)
	if err != nil {
		return err
	}
	if err := c.authorize(ctx, key, lang, editorID, tr.TranslatorID); err != nil {
		return err
	}

	err = c.store.InTx(ctx, func(q *store.Queries) error {
		if err := q.DeleteTranslation(ctx, tr.ID); err != nil {
			return fmt.Errorf("deleting translation %d: %w", tr.ID, err)
		}
		if err := c.translators.With(q).RecordTranslationDeleted(ctx, editorID, tr); err != nil {
			return err
		}
		if err := c.languages.With(q).TouchTranslations(ctx, lang.ID); err != nil {
			return err
		}
		_, err := c.keys.With(q).RecomputeMetrics(ctx, key.ID, lang.ID)
		return err
	})
	if err != nil {
		return err
	}

	c.logger.Info("translation deleted", "translation_id", tr.ID, "editor_id", editorID)
	c.notifyTranslation(ctx, webhook.EventTranslationDeleted, editorID, lang, tr)
	return nil
}

// CanEdit reports whether editorID may change the translation.
func (c *Consensus) CanEdit(ctx context.Context, translationID, editorID int64) (bool, error) {
	tr, err := c.translation(ctx, c.store.Queries, translationID)
	if err != nil {
		return false, err
	}
	key, lang, err := c.scope(ctx, tr)
	if err != nil {
		return false, err
	}
	return allowed(c.authorize(ctx, key, lang, editorID, tr.TranslatorID))
}

// CanDelete reports whether editorID may remove the translation.
func (c *Consensus) CanDelete(ctx context.Context, translationID, editorID int64) (bool, error) {
	return c.CanEdit(ctx, translationID, editorID)
}

// BestTranslation selects the highest ranked accepted translation whose
// rules accept the token values. It returns nil when none qualifies.
func (c *Consensus) BestTranslation(ctx context.Context, keyID int64, locale string, tokenValues map[string]any) (*model.Translation, error) {
	if _, err := c.key(ctx, keyID); err != nil {
		return nil, err
	}
	lang, err := c.language(ctx, locale)
	if err != nil {
		return nil, err
	}
	candidates, err := c.store.ListTranslationsForKey(ctx, keyID, lang.ID)
	if err != nil {
		return nil, err
	}

	th := c.engine.Thresholds()
	lookup := rules.Memo(rules.NewCatalog(c.store.Queries))
	for _, tr := range candidates {
		if th.Classify(tr.Rank) != model.StatusAccepted {
			continue
		}
		set, err := rules.Resolve(ctx, lookup, tr.Rules)
		if err != nil {
			return nil, err
		}
		if set.Matches(tokenValues) {
			return &tr, nil
		}
	}
	return nil, nil
}

// DefaultTranslation returns the translator's own top translation without
// rules, or an unsaved draft seeded from the key label.
func (c *Consensus) DefaultTranslation(ctx context.Context, keyID int64, locale string, translatorID int64) (*model.Translation, error) {
	key, err := c.key(ctx, keyID)
	if err != nil {
		return nil, err
	}
	lang, err := c.language(ctx, locale)
	if err != nil {
		return nil, err
	}
	candidates, err := c.store.ListTranslationsForKey(ctx, key.ID, lang.ID)
	if err != nil {
		return nil, err
	}
	for _, tr := range candidates {
		if tr.TranslatorID == translatorID && !tr.HasRules() {
			return &tr, nil
		}
	}
	return &model.Translation{
		TranslationKeyID: key.ID,
		LanguageID:       lang.ID,
		TranslatorID:     translatorID,
		Label:            key.Label,
	}, nil
}

// ListTranslations returns translations matching the filter.
func (c *Consensus) ListTranslations(ctx context.Context, f Filter) ([]model.Translation, error) {
	params := store.SearchTranslationsParams{
		KeyID:           f.KeyID,
		TranslatorID:    f.TranslatorID,
		Status:          f.Status,
		AcceptThreshold: c.engine.Thresholds().Accept,
		Query:           f.Query,
		OrderBy:         f.OrderBy,
		Limit:           f.Limit,
		Offset:          f.Offset,
	}

	switch f.Status {
	case "", store.StatusAll, store.StatusAccepted, store.StatusPending, store.StatusRejected:
	default:
		return nil, invalid("status", "unknown status %q", f.Status)
	}
	switch f.OrderBy {
	case "", store.OrderByDate, store.OrderByRank:
	default:
		return nil, invalid("order", "unknown order %q", f.OrderBy)
	}

	if f.Locale != "" {
		lang, err := c.language(ctx, f.Locale)
		if err != nil {
			return nil, err
		}
		params.LanguageID = lang.ID
	}

	since, until, err := window(f.Window, c.now())
	if err != nil {
		return nil, err
	}
	params.Since, params.Until = since, until

	return c.store.SearchTranslations(ctx, params)
}

func window(name string, now time.Time) (since, until *time.Time, err error) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch name {
	case "":
		return nil, nil, nil
	case WindowToday:
		return &day, nil, nil
	case WindowYesterday:
		start := day.AddDate(0, 0, -1)
		return &start, &day, nil
	case WindowLastWeek:
		start := day.AddDate(0, 0, -7)
		return &start, &day, nil
	default:
		return nil, nil, invalid("window", "unknown date window %q", name)
	}
}

// HasRuleCombination reports whether some translation of the key already
// binds exactly the given token to rule combination.
func (c *Consensus) HasRuleCombination(ctx context.Context, keyID int64, locale string, defs map[string]int64) (bool, error) {
	lang, err := c.language(ctx, locale)
	if err != nil {
		return false, err
	}
	candidates, err := c.store.ListTranslationsForKey(ctx, keyID, lang.ID)
	if err != nil {
		return false, err
	}
	lookup := rules.Memo(rules.NewCatalog(c.store.Queries))
	for _, tr := range candidates {
		set, err := rules.Resolve(ctx, lookup, tr.Rules)
		if err != nil {
			return false, err
		}
		if set.MatchesRuleDefinitions(defs) {
			return true, nil
		}
	}
	return false, nil
}

func (c *Consensus) notifyTranslation(ctx context.Context, eventType string, actorID int64, lang model.Language, tr model.Translation) {
	c.notifier.Distribute(ctx, notify.Event{
		Type:       eventType,
		ActorID:    actorID,
		KeyID:      tr.TranslationKeyID,
		LanguageID: tr.LanguageID,
		ObjectType: notify.ObjectTranslation,
		ObjectID:   tr.ID,
		OwnerID:    tr.TranslatorID,
		Data: webhook.TranslationEventData{
			ID:               tr.ID,
			TranslationKeyID: tr.TranslationKeyID,
			Locale:           lang.Locale,
			TranslatorID:     tr.TranslatorID,
			ActorID:          actorID,
			Label:            tr.Label,
			Rank:             tr.Rank,
		},
	})
}
