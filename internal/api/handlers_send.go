// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/smsrelay/internal/guard"
	"github.com/tomtom215/smsrelay/internal/logging"
	"github.com/tomtom215/smsrelay/internal/provider"
)

// SendSMS handles POST /api/send-sms. The guard pipeline runs before
// the provider is contacted; the first failing check determines the
// response status.
func (h *Handler) SendSMS(w http.ResponseWriter, r *http.Request) {
	req, err := parseSendRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "malformed request")
		return
	}
	if !h.authorize(w, r, req.Password) {
		return
	}

	template := req.TemplateUsed
	if template == "" {
		template = "unknown"
	}
	logging.Ctx(r.Context()).Info().
		Str("to", maskNumber(sanitizeLogValue(req.To))).
		Str("template", sanitizeLogValue(template)).
		Int("message_len", len(req.Message)).
		Str("ip", sourceIP(r)).
		Msg("SMS requested")

	result, err := h.orch.Send(r.Context(), sourceIP(r), req.To, req.Message)
	if err != nil {
		h.respondSendError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"messageId":      result.MessageID,
		"status":         result.Status,
		"remainingToday": result.RemainingToday,
		"dailyLimit":     result.DailyLimit,
	})
}

func (h *Handler) respondSendError(w http.ResponseWriter, r *http.Request, err error) {
	var sendErr *guard.SendError
	if errors.As(err, &sendErr) {
		respondError(w, sendErr.HTTPStatus(), sendErr.Message)
		return
	}

	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		respondError(w, apiErr.HTTPStatus(), apiErr.CallerMessage())
		return
	}

	logging.Ctx(r.Context()).Error().Err(err).Msg("Send failed")
	respondError(w, http.StatusInternalServerError, "failed to send message")
}
