// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/olegiv/oloc-go/internal/cache"
	"github.com/olegiv/oloc-go/internal/service"
	"github.com/olegiv/oloc-go/internal/transfer"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			a.logger.Info("database ready", "path", a.cfg.DBPath)
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed languages, the system translator and an optional TOML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return a.seed(cmd.Context(), file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "TOML seed file (default OLOC_SEED_FILE)")
	return cmd
}

// offlineConsensus builds a facade without notifications for CLI tasks.
func (a *app) offlineConsensus() (*service.Consensus, func()) {
	c := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: a.cfg.CacheTTLDuration()})
	return service.NewConsensus(a.store, c, nil, a.logger, a.consensusOptions()), func() { _ = c.Close() }
}

func newExportCmd() *cobra.Command {
	var (
		keyID int64
		out   string
		opts  transfer.ExportOptions
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a key with its translations as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyID <= 0 {
				return errors.New("--key is required")
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			consensus, done := a.offlineConsensus()
			defer done()

			doc, err := consensus.ExportKey(cmd.Context(), keyID, opts)
			if err != nil {
				return fmt.Errorf("exporting key %d: %w", keyID, err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating %s: %w", out, err)
				}
				defer func() { _ = f.Close() }()
				w = f
			}
			if err := transfer.WriteJSON(w, doc); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}
			a.logger.Info("key exported", "key_id", keyID, "translations", len(doc.Translations), "out", out)
			return nil
		},
	}
	cmd.Flags().Int64Var(&keyID, "key", 0, "translation key id")
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&opts.Comparable, "comparable", false, "emit comparison records only")
	cmd.Flags().BoolVar(&opts.IncludeTranslator, "include-translator", false, "embed translator identities")
	cmd.Flags().StringSliceVar(&opts.Locales, "locale", nil, "restrict to these locales")
	return cmd
}

func newImportCmd() *cobra.Command {
	var (
		keyID        int64
		translatorID int64
		in           string
		opts         transfer.ImportOptions
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import translations of a key from a JSON export",
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyID <= 0 || translatorID <= 0 || in == "" {
				return errors.New("--key, --translator and --in are required")
			}
			doc, err := transfer.ReadKeyRecordFile(in)
			if err != nil {
				return fmt.Errorf("reading %s: %w", in, err)
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			consensus, done := a.offlineConsensus()
			defer done()

			results, err := consensus.ImportKey(cmd.Context(), keyID, translatorID, doc.Translations, opts)
			if err != nil {
				return fmt.Errorf("importing into key %d: %w", keyID, err)
			}

			w := cmd.OutOrStdout()
			var created, existing, rejected int
			for i, res := range results {
				rec := doc.Translations[i]
				switch {
				case res.Rejected():
					rejected++
					_, _ = fmt.Fprintf(w, "rejected  %s %q: %s\n", rec.Locale, rec.Label, res.Reason)
				case res.Created:
					created++
					_, _ = fmt.Fprintf(w, "created   %s %q (#%d)\n", rec.Locale, rec.Label, res.Translation.ID)
				default:
					existing++
					_, _ = fmt.Fprintf(w, "unchanged %s %q\n", rec.Locale, rec.Label)
				}
			}
			_, _ = fmt.Fprintf(w, "%d created, %d unchanged, %d rejected\n", created, existing, rejected)
			return nil
		},
	}
	cmd.Flags().Int64Var(&keyID, "key", 0, "translation key id")
	cmd.Flags().Int64Var(&translatorID, "translator", 0, "importing translator id")
	cmd.Flags().StringVar(&in, "in", "", "JSON export file")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "resolve records without creating translations")
	cmd.Flags().BoolVar(&opts.HonorAttribution, "honor-attribution", false, "credit the translator named in each record when known")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionInfo().String())
		},
	}
}
