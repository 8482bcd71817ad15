// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package transfer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/olegiv/oloc-go/internal/model"
	"github.com/olegiv/oloc-go/internal/rules"
	"github.com/olegiv/oloc-go/internal/store"
)

// ErrBrokenRules is returned when a translation's rule-set no longer
// resolves. Exporting it would turn it into an unconstrained translation.
var ErrBrokenRules = errors.New("translation rules no longer resolve")

// Exporter converts translations to their transport form.
type Exporter struct {
	store  *store.Queries
	logger *slog.Logger
}

// NewExporter creates a new Exporter instance.
func NewExporter(queries *store.Queries, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{store: queries, logger: logger}
}

// exportScope memoises languages and rules across one export call.
type exportScope struct {
	locales map[int64]string
	rules   rules.Lookup
}

func (e *Exporter) newScope() *exportScope {
	return &exportScope{
		locales: map[int64]string{},
		rules:   rules.Memo(rules.NewCatalog(e.store)),
	}
}

func (e *Exporter) locale(ctx context.Context, scope *exportScope, languageID int64) (string, error) {
	if l, ok := scope.locales[languageID]; ok {
		return l, nil
	}
	lang, err := e.store.GetLanguage(ctx, languageID)
	if err != nil {
		return "", fmt.Errorf("loading language %d: %w", languageID, err)
	}
	scope.locales[languageID] = lang.Locale
	return lang.Locale, nil
}

// Export returns the transport form of a translation.
func (e *Exporter) Export(ctx context.Context, tr model.Translation, opts ExportOptions) (*Record, error) {
	return e.export(ctx, e.newScope(), tr, opts)
}

func (e *Exporter) export(ctx context.Context, scope *exportScope, tr model.Translation, opts ExportOptions) (*Record, error) {
	locale, err := e.locale(ctx, scope, tr.LanguageID)
	if err != nil {
		return nil, err
	}

	set, err := rules.Resolve(ctx, scope.rules, tr.Rules)
	if err != nil {
		return nil, err
	}
	if set.Broken() {
		return nil, ErrBrokenRules
	}

	rec := &Record{Locale: locale, Label: tr.Label, Rules: ruleEntries(set)}
	if opts.Comparable {
		return rec, nil
	}

	id, rank := tr.ID, tr.Rank
	rec.ID, rec.Rank = &id, &rank

	translator, err := e.store.GetTranslator(ctx, tr.TranslatorID)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading translator %d: %w", tr.TranslatorID, err)
	}
	switch {
	case opts.IncludeTranslator:
		rec.Translator = &TranslatorRecord{ID: translator.ID, Name: translator.Name}
	case translator.RemoteID != nil:
		remote := *translator.RemoteID
		rec.TranslatorID = &remote
	}
	return rec, nil
}

func ruleEntries(set *rules.RuleSet) []RuleEntry {
	entries := []RuleEntry{}
	for _, td := range set.Descriptors() {
		entries = append(entries, RuleEntry{td.Token: td.Descriptors})
	}
	return entries
}

// ExportKey returns the export document of a phrase key. Translations whose
// rules no longer resolve are skipped.
func (e *Exporter) ExportKey(ctx context.Context, key model.TranslationKey, opts ExportOptions) (*KeyRecord, error) {
	translations, err := e.store.ListTranslationsForKeyAllLanguages(ctx, key.ID)
	if err != nil {
		return nil, fmt.Errorf("listing translations of key %d: %w", key.ID, err)
	}

	doc := &KeyRecord{
		Version:      ExportVersion,
		Key:          key.Key,
		Label:        key.Label,
		Description:  key.Description,
		Locale:       key.Locale,
		Translations: []Record{},
	}

	scope := e.newScope()
	for _, tr := range translations {
		if len(opts.Locales) > 0 {
			locale, err := e.locale(ctx, scope, tr.LanguageID)
			if err != nil {
				return nil, err
			}
			if !slices.Contains(opts.Locales, locale) {
				continue
			}
		}

		rec, err := e.export(ctx, scope, tr, opts)
		if errors.Is(err, ErrBrokenRules) {
			e.logger.Debug("skipping translation with broken rules", "translation_id", tr.ID)
			continue
		}
		if err != nil {
			return nil, err
		}
		doc.Translations = append(doc.Translations, *rec)
	}
	return doc, nil
}
