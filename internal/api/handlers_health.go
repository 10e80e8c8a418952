// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package api

import (
	"context"
	"net/http"
	"time"
)

// HealthLive handles GET /api/v1/health/live. Always healthy while
// the process can serve requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthReady handles GET /api/v1/health/ready: verifies both
// collaborators answer within a short deadline.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"provider": "ok", "store": "ok"}
	healthy := true

	if err := h.provider.Ping(ctx); err != nil {
		checks["provider"] = err.Error()
		healthy = false
	}
	if err := h.store.Ping(ctx); err != nil {
		checks["store"] = err.Error()
		healthy = false
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	respondJSON(w, status, map[string]interface{}{
		"status": overall,
		"checks": checks,
	})
}
