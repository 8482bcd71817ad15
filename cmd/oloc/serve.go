// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/olegiv/oloc-go/internal/cache"
	"github.com/olegiv/oloc-go/internal/handler"
	"github.com/olegiv/oloc-go/internal/handler/api"
	"github.com/olegiv/oloc-go/internal/middleware"
	"github.com/olegiv/oloc-go/internal/notify"
	"github.com/olegiv/oloc-go/internal/ranking"
	"github.com/olegiv/oloc-go/internal/scheduler"
	"github.com/olegiv/oloc-go/internal/service"
	"github.com/olegiv/oloc-go/internal/webhook"
)

func newServeCmd() *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if seed {
				if err := a.seed(cmd.Context(), ""); err != nil {
					return err
				}
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "seed languages, the system translator and OLOC_SEED_FILE before serving")
	return cmd
}

func (a *app) consensusOptions() service.Options {
	return service.Options{
		Thresholds: ranking.Thresholds{
			Accept:    a.cfg.AcceptThreshold,
			Violation: a.cfg.ViolationThreshold,
		},
		EnforceUnique:     a.cfg.EnforceUnique,
		IncludeTranslator: a.cfg.SyncIncludeTranslator,
	}
}

// openCache selects the Redis or memory backend.
func (a *app) openCache() (cache.Cacher, cache.Info, error) {
	cfg := cache.DefaultConfig()
	cfg.RedisURL = a.cfg.RedisURL
	cfg.Prefix = a.cfg.CachePrefix
	cfg.DefaultTTL = a.cfg.CacheTTLDuration()
	cfg.MaxSize = a.cfg.CacheMaxSize

	c, info, err := cache.NewCacheWithInfo(cfg)
	if err != nil {
		return nil, info, fmt.Errorf("initializing cache: %w", err)
	}
	switch {
	case info.Backend == cache.BackendRedis:
		a.logger.Info("cache initialized", "backend", "redis", "url", cache.SanitizeRedisURL(a.cfg.RedisURL))
	case info.Fallback:
		a.logger.Warn("cache initialized", "backend", "memory", "note", "Redis unavailable, using fallback")
	default:
		a.logger.Info("cache initialized", "backend", "memory")
	}
	return c, info, nil
}

func (a *app) serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, info, err := a.openCache()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	var forward notify.Forwarder
	if a.cfg.WebhooksEnabled() {
		dispatcher := webhook.NewDispatcher(a.store.Queries, a.logger, webhook.Config{
			URLs:    a.cfg.WebhookURLs,
			Secret:  a.cfg.WebhookSecret,
			Workers: a.cfg.WebhookWorkers,
			Rate:    a.cfg.WebhookRate,
		})
		dispatcher.Start(ctx)
		defer dispatcher.Stop()

		debouncer := webhook.NewDebouncer(dispatcher, a.logger, webhook.DefaultDebounceConfig())
		defer debouncer.Stop()
		forward = debouncer
	}

	distributor := notify.NewDistributor(a.store.Queries, forward, a.logger)
	consensus := service.NewConsensus(a.store, c, distributor, a.logger, a.consensusOptions())

	sched := scheduler.New(a.logger)
	if err := sched.Add(scheduler.PruneEventsJob(consensus.Events(), a.cfg.PruneSchedule, a.cfg.EventRetention(), a.logger)); err != nil {
		return fmt.Errorf("scheduling event pruning: %w", err)
	}
	sched.Start(ctx)
	defer sched.Stop()

	ver := versionInfo().Version
	health := handler.NewHealthHandler(a.db, c, info.Backend, ver)
	srv := &http.Server{
		Addr:              a.cfg.ServerAddr(),
		Handler:           a.router(consensus, health, ver),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("starting server", "addr", srv.Addr, "env", a.cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("server stopped")
	return nil
}

// router assembles the middleware stack, health checks and the API.
func (a *app) router(consensus *service.Consensus, health *handler.HealthHandler, ver string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(a.cfg.IsDevelopment())))

	r.Get("/health", health.Health)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	apiHandler := api.NewHandler(consensus, a.logger, ver)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.NewGlobalRateLimiter(20, 40).Middleware())
		r.Mount("/", apiHandler.Routes(api.Options{TranslatorRPS: 5, TranslatorBurst: 10}))
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		api.WriteNotFound(w, "Route not found")
	})
	return r
}
