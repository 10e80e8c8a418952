// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

// Package metrics provides Prometheus metrics for SMS Relay.
//
// Metrics are registered with promauto at package init and exposed at
// /metrics in Prometheus text format. Categories:
//
//   - API: request counts, latency, in-flight requests
//   - Send pipeline: attempts by result, guard rejections by reason
//   - Collaborators: provider / store request outcomes
//   - Circuit breaker: state, transitions, per-outcome requests
//   - Reconciliation: sync duration, updated records, last success
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Send Pipeline Metrics
	SendAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sms_send_attempts_total",
			Help: "Total outbound send attempts by final result",
		},
		[]string{"result"}, // "sent", "rejected", "provider_error"
	)

	GuardRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sms_guard_rejections_total",
			Help: "Sends rejected by the guard pipeline, by reason",
		},
		[]string{"reason"},
	)

	RemainingDailyQuota = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sms_remaining_daily_quota",
			Help: "Sends remaining under the daily cap",
		},
	)

	// Webhook Metrics
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Webhook deliveries received, by kind",
		},
		[]string{"kind"}, // "incoming", "status_update"
	)

	// Collaborator Metrics
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Requests to the telephony provider by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	StoreRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_requests_total",
			Help: "Requests to the datastore REST interface by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker by outcome",
		},
		[]string{"name", "outcome"}, // "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current consecutive failure count",
		},
		[]string{"name"},
	)

	// Reconciliation Metrics
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "status_sync_duration_seconds",
			Help:    "Duration of status-sync runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
	)

	SyncChecked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "status_sync_checked_total",
			Help: "Sent-message records checked against the provider",
		},
	)

	SyncUpdated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "status_sync_updated_total",
			Help: "Sent-message records whose status was updated",
		},
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_sync_errors_total",
			Help: "Status-sync errors by type",
		},
		[]string{"error_type"}, // "provider", "store"
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "status_sync_last_success_timestamp",
			Help: "Unix timestamp of last successful status-sync run",
		},
	)

	MigrationImported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "migration_imported_total",
			Help: "Historical messages imported into the store",
		},
	)
)

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(active bool) {
	if active {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordAPIRequest records a completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
