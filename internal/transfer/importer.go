// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package transfer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/oloc-go/internal/model"
	"github.com/olegiv/oloc-go/internal/rules"
	"github.com/olegiv/oloc-go/internal/store"
	"github.com/olegiv/oloc-go/internal/util"
)

// Rejection reasons reported in ImportResult.
const (
	ReasonBlankLabel        = "blank label"
	ReasonUnsupportedLocale = "unsupported locale"
	ReasonUnresolvableRule  = "unresolvable rule"
)

// LanguageResolver maps a locale to a supported language, or nil.
type LanguageResolver interface {
	ResolveByLocale(ctx context.Context, locale string) (*model.Language, error)
}

// ImportResult is the outcome of importing one record.
type ImportResult struct {
	// Translation is nil when the record was rejected.
	Translation *model.Translation `json:"translation,omitempty"`
	// Created is false when an identical candidate already existed or the
	// import was a dry run.
	Created bool `json:"created"`
	// Language is the resolved target language.
	Language *model.Language `json:"language,omitempty"`
	// Reason explains a rejection.
	Reason string `json:"reason,omitempty"`
}

// Rejected reports whether nothing was imported.
func (r *ImportResult) Rejected() bool {
	return r.Translation == nil
}

// Importer rebuilds translations from their transport form.
type Importer struct {
	store     *store.Queries
	languages LanguageResolver
	logger    *slog.Logger
	now       func() time.Time
}

// NewImporter creates an importer. queries must belong to the transaction
// the import runs in: rules are created before the translation that
// references them, and a rejected record leaves them behind unless the
// transaction is rolled back.
func NewImporter(queries *store.Queries, languages LanguageResolver, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{store: queries, languages: languages, logger: logger, now: time.Now}
}

func (i *Importer) reject(rec Record, reason string) *ImportResult {
	i.logger.Debug("sync record rejected", "locale", rec.Locale, "label", rec.Label, "reason", reason)
	return &ImportResult{Reason: reason}
}

// Import creates the translation described by rec for key, attributed to
// translatorID. Validation failures are reported through the result, never
// as an error.
func (i *Importer) Import(ctx context.Context, key model.TranslationKey, translatorID int64, rec Record, opts ImportOptions) (*ImportResult, error) {
	label := util.SanitizeLabel(rec.Label)
	if util.IsBlank(label) {
		return i.reject(rec, ReasonBlankLabel), nil
	}

	lang, err := i.languages.ResolveByLocale(ctx, rec.Locale)
	if err != nil {
		return nil, fmt.Errorf("resolving locale %q: %w", rec.Locale, err)
	}
	if lang == nil {
		return i.reject(rec, ReasonUnsupportedLocale), nil
	}

	refs, ok, err := i.resolveRules(ctx, lang.ID, rec.Rules)
	if err != nil {
		return nil, err
	}
	if !ok {
		return i.reject(rec, ReasonUnresolvableRule), nil
	}

	existing, err := i.findCandidate(ctx, key.ID, lang, label, refs)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &ImportResult{Translation: existing, Language: lang}, nil
	}

	submitter, err := i.attribution(ctx, translatorID, rec, opts)
	if err != nil {
		return nil, err
	}

	draft := model.Translation{
		TranslationKeyID: key.ID,
		LanguageID:       lang.ID,
		TranslatorID:     submitter,
		Label:            label,
		Rules:            refs,
	}
	if opts.DryRun {
		return &ImportResult{Translation: &draft, Language: lang}, nil
	}

	tr, err := i.store.CreateTranslation(ctx, store.CreateTranslationParams{
		TranslationKeyID: draft.TranslationKeyID,
		LanguageID:       draft.LanguageID,
		TranslatorID:     draft.TranslatorID,
		Label:            draft.Label,
		Rules:            draft.Rules,
		CreatedAt:        i.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating imported translation: %w", err)
	}
	return &ImportResult{Translation: &tr, Created: true, Language: lang}, nil
}

// resolveRules resolves or creates every descriptor. It reports false as
// soon as one descriptor is unresolvable; an empty list yields nil refs.
func (i *Importer) resolveRules(ctx context.Context, languageID int64, entries []RuleEntry) ([]model.RuleRef, bool, error) {
	catalog := rules.NewCatalog(i.store)

	var refs []model.RuleRef
	for _, entry := range entries {
		for _, token := range entry.Tokens() {
			descriptors := entry[token]
			if token == "" || len(descriptors) == 0 {
				return nil, false, nil
			}
			ref := model.RuleRef{Token: token}
			for _, d := range descriptors {
				r, err := catalog.FindOrCreate(ctx, languageID, d)
				if err != nil {
					return nil, false, err
				}
				if r == nil {
					return nil, false, nil
				}
				ref.RuleIDs = append(ref.RuleIDs, r.ID)
			}
			refs = append(refs, ref)
		}
	}
	return refs, true, nil
}

// findCandidate returns the stored translation of the key that is the same
// candidate as label with refs, compared in transport form.
func (i *Importer) findCandidate(ctx context.Context, keyID int64, lang *model.Language, label string, refs []model.RuleRef) (*model.Translation, error) {
	current, err := i.store.ListTranslationsForKey(ctx, keyID, lang.ID)
	if err != nil {
		return nil, fmt.Errorf("listing translations of key %d: %w", keyID, err)
	}

	exp := NewExporter(i.store, i.logger)
	scope := exp.newScope()
	scope.locales[lang.ID] = lang.Locale
	asRecord := ExportOptions{Comparable: true}

	want, err := exp.export(ctx, scope, model.Translation{LanguageID: lang.ID, Label: label, Rules: refs}, asRecord)
	if err != nil {
		return nil, err
	}
	for _, tr := range current {
		if tr.Label != label {
			continue
		}
		got, err := exp.export(ctx, scope, tr, asRecord)
		if errors.Is(err, ErrBrokenRules) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if SameCandidate(want.Comparable(), got.Comparable()) {
			return &tr, nil
		}
	}
	return nil, nil
}

func (i *Importer) attribution(ctx context.Context, translatorID int64, rec Record, opts ImportOptions) (int64, error) {
	if !opts.HonorAttribution || rec.TranslatorID == nil {
		return translatorID, nil
	}
	t, err := i.store.GetTranslator(ctx, *rec.TranslatorID)
	if errors.Is(err, sql.ErrNoRows) {
		return translatorID, nil
	}
	if err != nil {
		return 0, fmt.Errorf("loading translator %d: %w", *rec.TranslatorID, err)
	}
	return t.ID, nil
}
