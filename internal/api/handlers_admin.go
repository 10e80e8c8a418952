// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/smsrelay/internal/logging"
	"github.com/tomtom215/smsrelay/internal/validation"
)

// MigrateHistorical handles POST /api/migrate-historical-messages:
// backfills the store from the provider's outbound log. Supports a
// dry run that reports what would be imported.
func (h *Handler) MigrateHistorical(w http.ResponseWriter, r *http.Request) {
	req := &migrateRequest{}
	if err := decodeJSONBody(r, req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request")
		return
	}
	if req.Password == "" {
		req.Password = formValue(r, "password")
	}
	if formValue(r, "dryRun") == "true" {
		req.DryRun = true
	}
	if req.Limit == 0 {
		req.Limit = queryInt(r, "limit", 0)
	}
	if !h.authorize(w, r, req.Password) {
		return
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		respondError(w, http.StatusBadRequest, verr.Error())
		return
	}
	if req.Limit <= 0 {
		req.Limit = 1000
	}

	result, err := h.migrator.Run(r.Context(), req.DryRun, req.Limit)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Migration failed")
		respondError(w, http.StatusInternalServerError, "migration failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  result,
	})
}

// VerifySent handles GET /api/verify-sent-messages: reconciles the
// store's sent log against the provider's and reports a health score
// as a percentage of provider records matched exactly. Accepts
// days (default 7) and limit (default 50) as query parameters or a
// JSON body.
func (h *Handler) VerifySent(w http.ResponseWriter, r *http.Request) {
	req := &verifyRequest{}
	if err := decodeJSONBody(r, req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request")
		return
	}
	if req.Password == "" {
		req.Password = formValue(r, "password")
	}
	if req.Days == 0 {
		req.Days = queryInt(r, "days", 0)
	}
	if req.Limit == 0 {
		req.Limit = queryInt(r, "limit", 0)
	}
	if !h.authorize(w, r, req.Password) {
		return
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		respondError(w, http.StatusBadRequest, verr.Error())
		return
	}

	window := time.Duration(req.Days) * 24 * time.Hour
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	report, err := h.verifier.Verify(r.Context(), window, limit)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Verification failed")
		respondError(w, http.StatusInternalServerError, "verification failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"report":  report,
	})
}

// SyncStatus handles POST /api/sync-message-status: one on-demand
// pass of the status sync, refreshing rows stuck in a non-terminal
// delivery status.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
		Hours    int    `json:"hours"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request")
		return
	}
	if body.Password == "" {
		body.Password = formValue(r, "password")
	}
	if body.Hours == 0 {
		body.Hours = queryInt(r, "hours", 0)
	}
	if !h.authorize(w, r, body.Password) {
		return
	}

	window := time.Duration(body.Hours) * time.Hour
	if window <= 0 || window > 365*24*time.Hour {
		window = h.cfg.Sync.Window
	}

	result, err := h.syncer.Run(r.Context(), window)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Status sync failed")
		respondError(w, http.StatusInternalServerError, "status sync failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  result,
	})
}
