// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

// Package main is the entry point for the SMS relay server.
//
// The relay sits between a Twilio-compatible telephony provider and a
// PostgREST-compatible datastore. Clients send outbound SMS through the
// relay's guarded API; the provider delivers inbound SMS and status
// callbacks to the relay's webhooks; every message ends up in the
// datastore.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables over config file over defaults (Koanf v2)
//  2. Provider client: Twilio-compatible REST client behind a circuit breaker
//  3. Store client: PostgREST-compatible REST client
//  4. Guard pipeline: validation, recipient allow-list, quotas, content filter
//  5. HTTP Server: chi router with per-IP rate limiting and Prometheus metrics
//  6. Status sync (optional): background poller reconciling delivery statuses
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file (config.yaml),
// built-in defaults. The provider and store credentials are required;
// see config.Load for the full list.
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests and webhook deliveries (10s timeout)
//   - Stops the background status-sync poller
//
// # Example Usage
//
//	export PROVIDER_ACCOUNT_SID=ACxxxxxxxx
//	export PROVIDER_AUTH_TOKEN=your-auth-token
//	export PROVIDER_FROM_NUMBER=+15551234567
//	export STORE_URL=https://project.supabase.co
//	export STORE_ANON_KEY=your-anon-key
//	export SECURITY_PASSWORD=$(openssl rand -base64 24)
//	./smsrelay
//
// # Port 7726
//
// The default port 7726 spells "SPAM" on a phone keypad, the GSMA
// short code for reporting unwanted SMS.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/smsrelay/internal/api"
	"github.com/tomtom215/smsrelay/internal/config"
	"github.com/tomtom215/smsrelay/internal/guard"
	"github.com/tomtom215/smsrelay/internal/logging"
	"github.com/tomtom215/smsrelay/internal/provider"
	"github.com/tomtom215/smsrelay/internal/relay"
	"github.com/tomtom215/smsrelay/internal/store"
	"github.com/tomtom215/smsrelay/internal/supervisor"
	"github.com/tomtom215/smsrelay/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("from_number", cfg.Provider.FromNumber).
		Int("hourly_max", cfg.Guard.HourlyMax).
		Int("daily_max", cfg.Guard.DailyMax).
		Bool("password_set", cfg.Security.Password != "").
		Bool("sync_enabled", cfg.Sync.Enabled).
		Msg("Configuration loaded")

	if cfg.Security.Password == "" {
		logging.Warn().Msg("SECURITY_PASSWORD not set - send and admin endpoints are unauthenticated")
	}

	// Provider client behind a circuit breaker so a provider outage
	// cannot cascade into the relay.
	providerClient := provider.NewCircuitBreakerClient(provider.NewClient(&cfg.Provider))
	storeClient := store.NewClient(&cfg.Store)

	// Startup pings are advisory only; both collaborators may come up
	// after the relay does.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := providerClient.Ping(pingCtx); err != nil {
		logging.Warn().Err(err).Msg("Failed to reach telephony provider (will retry)")
	} else {
		logging.Info().Msg("Connected to telephony provider")
	}
	if err := storeClient.Ping(pingCtx); err != nil {
		logging.Warn().Err(err).Msg("Failed to reach datastore (will retry)")
	} else {
		logging.Info().Msg("Connected to datastore")
	}
	pingCancel()

	// Guard pipeline and orchestrator.
	quota := guard.NewQuotaTracker(cfg.Guard.HourlyMax, cfg.Guard.DailyMax)
	allowList := guard.NewAllowList(cfg.Guard.AllowedNumbers)
	filter := guard.NewContentFilter(cfg.Guard.BlockedWords)
	orch := relay.NewOrchestrator(providerClient, storeClient, quota, allowList, filter)

	handler := api.NewHandler(cfg, orch, providerClient, storeClient)
	router := api.NewRouter(handler, cfg)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog compatibility
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPService(server, addr, 10*time.Second))

	if cfg.Sync.Enabled {
		syncer := relay.NewStatusSyncer(providerClient, storeClient, cfg.Sync.PaceInterval)
		tree.AddSyncService(services.NewStatusSyncService(syncer, cfg.Sync.Interval, cfg.Sync.Window))
		logging.Info().Dur("interval", cfg.Sync.Interval).Msg("Background status sync enabled")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Relay stopped gracefully")
}
