// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"time"

	"github.com/olegiv/oloc-go/internal/model"
	"github.com/olegiv/oloc-go/internal/store"
	"github.com/olegiv/oloc-go/internal/transfer"
	"github.com/olegiv/oloc-go/internal/webhook"
)

// syncLag is added to synced_at so a translation saved in the same second
// as its sync is not reported as changed since.
const syncLag = 2 * time.Second

func (c *Consensus) exportOptions(opts transfer.ExportOptions) transfer.ExportOptions {
	if c.opts.IncludeTranslator {
		opts.IncludeTranslator = true
	}
	return opts
}

// ExportTranslation returns the transport form of one translation.
func (c *Consensus) ExportTranslation(ctx context.Context, id int64, opts transfer.ExportOptions) (*transfer.Record, error) {
	tr, err := c.translation(ctx, c.store.Queries, id)
	if err != nil {
		return nil, err
	}
	return transfer.NewExporter(c.store.Queries, c.logger).Export(ctx, tr, c.exportOptions(opts))
}

// ExportKey returns the export document of a key.
func (c *Consensus) ExportKey(ctx context.Context, keyID int64, opts transfer.ExportOptions) (*transfer.KeyRecord, error) {
	key, err := c.key(ctx, keyID)
	if err != nil {
		return nil, err
	}
	doc, err := transfer.NewExporter(c.store.Queries, c.logger).ExportKey(ctx, key, c.exportOptions(opts))
	if err != nil {
		return nil, err
	}
	_ = c.events.LogSyncEvent(ctx, model.EventLevelInfo, "Key exported", nil, map[string]any{
		"key":          key.Key,
		"translations": len(doc.Translations),
	})
	return doc, nil
}

// ImportTranslation rebuilds a translation of a key from its transport
// form. Nothing is kept when the record is rejected, already present or
// the import is a dry run.
func (c *Consensus) ImportTranslation(ctx context.Context, keyID, translatorID int64, rec transfer.Record, opts transfer.ImportOptions) (*transfer.ImportResult, error) {
	key, err := c.key(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if _, err := c.translator(ctx, translatorID); err != nil {
		return nil, err
	}

	var res *transfer.ImportResult
	err = c.store.InTx(ctx, func(q *store.Queries) error {
		imp := transfer.NewImporter(q, c.languages.With(q), c.logger)
		r, err := imp.Import(ctx, key, translatorID, rec, opts)
		if err != nil {
			return err
		}
		res = r
		if !r.Created {
			return store.ErrRollback
		}
		return c.recordAdded(ctx, q, *r.Translation)
	})
	if err != nil {
		return nil, err
	}

	switch {
	case res.Rejected():
		c.logger.Info("translation import rejected", "key", key.Key, "locale", rec.Locale, "reason", res.Reason)
	case res.Created:
		tr := *res.Translation
		c.notifyTranslation(ctx, webhook.EventTranslationImported, translatorID, *res.Language, tr)
	}
	return res, nil
}

// ImportKey imports every record of a key export document. Each record is
// imported on its own; a rejected record does not stop the rest.
func (c *Consensus) ImportKey(ctx context.Context, keyID, translatorID int64, recs []transfer.Record, opts transfer.ImportOptions) ([]*transfer.ImportResult, error) {
	results := make([]*transfer.ImportResult, 0, len(recs))
	created := 0
	for _, rec := range recs {
		res, err := c.ImportTranslation(ctx, keyID, translatorID, rec, opts)
		if err != nil {
			return results, err
		}
		if res.Created {
			created++
		}
		results = append(results, res)
	}
	_ = c.events.LogSyncEvent(ctx, model.EventLevelInfo, "Key imported", &translatorID, map[string]any{
		"key_id":  keyID,
		"records": len(recs),
		"created": created,
		"dry_run": opts.DryRun,
	})
	return results, nil
}

// MarkSynced records that a translation was sent to a remote instance.
func (c *Consensus) MarkSynced(ctx context.Context, id int64) error {
	if _, err := c.translation(ctx, c.store.Queries, id); err != nil {
		return err
	}
	return c.store.SetTranslationSyncedAt(ctx, id, c.now().Add(syncLag))
}
