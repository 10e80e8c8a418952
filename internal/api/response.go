// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

// Package api provides the HTTP surface of the relay: the send
// endpoint, inbox reads, provider webhooks, and admin operations.
package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/smsrelay/internal/logging"
)

// respondJSON writes data as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// respondError writes the flat error shape callers expect:
// {"error": "..."}.
func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{"error": message})
}
