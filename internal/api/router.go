// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/smsrelay/internal/config"
	"github.com/tomtom215/smsrelay/internal/middleware"
)

// NewRouter configures all HTTP routes using Chi.
//
// The outer per-IP rate limit protects every business endpoint from
// abuse; the application's own hourly and daily send quotas run
// inside the send pipeline and are not affected by it. Webhooks are
// exempt so a burst of provider callbacks is never refused.
func NewRouter(handler *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsHandler(cfg))

	// ========================
	// Health Endpoints
	// ========================
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", handler.HealthLive)
		r.Get("/ready", handler.HealthReady)
	})

	// ========================
	// Provider Webhooks
	// ========================
	// No outer rate limit: the provider controls delivery pacing, and
	// refusing a callback only triggers retries.
	r.Group(func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		r.Post("/api/webhook-incoming", handler.WebhookIncoming)
		r.Post("/api/webhook-status-update", handler.WebhookStatusUpdate)
	})

	// ========================
	// Relay API
	// ========================
	r.Group(func(r chi.Router) {
		if !cfg.Security.RateLimitDisabled {
			r.Use(httprate.LimitByIP(cfg.Security.RateLimitReqs, cfg.Security.RateLimitWindow))
		}
		r.Use(middleware.PrometheusMetrics)

		r.Post("/api/send-sms", handler.SendSMS)
		r.Get("/api/messages", handler.Messages)
		r.Post("/api/messages", handler.Messages)
		r.Post("/api/mark-read", handler.MarkRead)
		r.Get("/api/sent-messages", handler.SentMessages)
		r.Get("/api/debug-messages", handler.DebugMessages)

		r.Post("/api/migrate-historical-messages", handler.MigrateHistorical)
		r.Get("/api/verify-sent-messages", handler.VerifySent)
		r.Post("/api/sync-message-status", handler.SyncStatus)
	})

	// ========================
	// Observability
	// ========================
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// corsHandler builds the CORS middleware from the configured origins.
// An empty origin list allows any origin, matching the relay's use as
// a backend for static single-page frontends.
func corsHandler(cfg *config.Config) func(http.Handler) http.Handler {
	origins := cfg.Security.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
