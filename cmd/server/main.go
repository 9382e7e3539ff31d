// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

// Package main is the entry point for the MediaNest sync core.
//
// The server maintains one push connection to the status backend, merges
// push updates into the shared cache, throttles media request submissions
// against a durable sliding window, and exposes the whole thing over HTTP.
//
// Startup order:
//
//  1. Configuration: defaults, optional YAML file, MEDIANEST_ env vars
//  2. Logging: zerolog, JSON or console format
//  3. Ledger: BadgerDB admission ledger
//  4. Cache and sync engine
//  5. Bus and push-message router (Watermill gochannel)
//  6. Connection manager (gorilla/websocket)
//  7. Submission orchestrator (admission + circuit breaker)
//  8. HTTP server (Chi)
//  9. Supervision tree (suture): messaging layer + API layer
//
// The server shuts down gracefully on SIGINT and SIGTERM.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/medianest/medianest/internal/api"
	"github.com/medianest/medianest/internal/cache"
	"github.com/medianest/medianest/internal/cachesync"
	"github.com/medianest/medianest/internal/config"
	"github.com/medianest/medianest/internal/events"
	"github.com/medianest/medianest/internal/logging"
	"github.com/medianest/medianest/internal/ratelimit"
	"github.com/medianest/medianest/internal/realtime"
	"github.com/medianest/medianest/internal/requests"
	"github.com/medianest/medianest/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "medianest: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().Str("addr", cfg.Server.Addr).Msg("starting medianest sync core")

	// Durable admission ledger.
	db, err := ratelimit.OpenBadger(cfg.Ledger.Path, cfg.Ledger.InMemory)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer db.Close()

	limiter := ratelimit.NewLimiter(
		ratelimit.NewBadgerStore(db),
		cfg.RateLimit.Limit,
		cfg.RateLimit.Window,
	)

	// Shared cache and the engine that applies push updates to it.
	store := cache.New()
	engine := cachesync.New(store, cfg.Cache.MarkerTTL)
	defer engine.Close()

	// Push pipeline: transport -> bus -> router -> engine.
	bus := events.NewBus()
	defer bus.Close()

	router, err := events.NewRouter(bus, engine)
	if err != nil {
		return fmt.Errorf("build push router: %w", err)
	}

	manager, err := realtime.NewManager(&cfg.Backend, bus)
	if err != nil {
		return fmt.Errorf("build connection manager: %w", err)
	}

	// Submission workflow.
	if cfg.RequestAPI.URL == "" {
		logging.Warn().Msg("request_api.url is not set; submissions will fail until configured")
	}
	submitter := requests.NewHTTPSubmitter(cfg.RequestAPI.URL, cfg.RequestAPI.Timeout)
	orchestrator := requests.NewOrchestrator(limiter, submitter, store, manager)

	// HTTP surface.
	handler := api.NewHandler(orchestrator, manager, store)
	httpServer := api.NewServer(&cfg.Server, api.NewRouter(handler, &cfg.Server).Setup())

	// Supervision tree.
	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(slog.New(logging.NewSlogHandler()), treeCfg)

	tree.AddMessagingService(manager)
	tree.AddMessagingService(supervisor.NewRouterService(router))
	tree.AddAPIService(httpServer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = tree.Serve(ctx)
	if err != nil && err != context.Canceled {
		return fmt.Errorf("supervisor: %w", err)
	}

	if unstopped, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service did not stop within timeout")
		}
	}

	logging.Info().Msg("medianest sync core stopped")
	return nil
}
