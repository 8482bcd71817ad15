// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command oloc runs the translation consensus service and its maintenance
// tasks.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/olegiv/oloc-go/internal/config"
	"github.com/olegiv/oloc-go/internal/logging"
	"github.com/olegiv/oloc-go/internal/store"
	"github.com/olegiv/oloc-go/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:          "oloc",
		Short:        "Translation consensus and rule engine",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if envFile != "" {
				config.LoadDotEnv(envFile)
			} else {
				config.LoadDotEnv()
			}
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env)")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newExportCmd(),
		newImportCmd(),
		newVersionCmd(),
	)
	return root
}

func versionInfo() version.Info {
	return version.New(appVersion, appGitCommit, appBuildTime)
}

// app is the shared runtime of every command: configuration, logger and
// a migrated database.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB
	store  *store.Store
}

// openApp loads the configuration, opens and migrates the database and
// upgrades the logger to persist WARN and ERROR records to the event log.
func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level := logging.ParseLevel(cfg.LogLevel)
	logger := logging.NewTextLogger(os.Stderr, level)
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbCfg := store.DefaultDBConfig()
	dbCfg.Driver = cfg.DBDriver
	logger.Info("initializing database", "path", cfg.DBPath, "driver", cfg.DBDriver)
	db, err := store.NewDBWithConfig(cfg.DBPath, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger = slog.New(logging.NewEventLogHandler(logger.Handler(), db))
	slog.SetDefault(logger)

	return &app{cfg: cfg, logger: logger, db: db, store: store.NewStore(db)}, nil
}

// seed creates the common languages and the system translator, then
// loads the configured seed file, if any.
func (a *app) seed(ctx context.Context, file string) error {
	if err := store.Seed(ctx, a.db); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}
	if file == "" {
		file = a.cfg.SeedFile
	}
	if file == "" {
		return nil
	}
	data, err := store.ReadSeedFile(file)
	if err != nil {
		return err
	}
	if err := store.SeedFrom(ctx, a.db, data); err != nil {
		return fmt.Errorf("seeding from %s: %w", file, err)
	}
	a.logger.Info("seed file loaded", "file", file,
		"languages", len(data.Languages), "translators", len(data.Translators), "keys", len(data.Keys))
	return nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("error closing database connection", "error", err)
	}
}
