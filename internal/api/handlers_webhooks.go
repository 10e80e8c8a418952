// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/tomtom215/smsrelay/internal/logging"
	"github.com/tomtom215/smsrelay/internal/metrics"
	"github.com/tomtom215/smsrelay/internal/models"
)

// Opt-out and opt-in keywords, compared against the trimmed, upper-
// cased message body. These follow the carrier-mandated keyword set.
var (
	optOutKeywords = map[string]bool{
		"STOP": true, "STOPALL": true, "UNSUBSCRIBE": true,
		"CANCEL": true, "END": true, "QUIT": true,
	}
	optInKeywords = map[string]bool{
		"START": true, "YES": true, "UNSTOP": true,
	}
)

// WebhookIncoming handles POST /api/webhook-incoming, the provider's
// delivery of an inbound SMS. The message is stored and an auto-reply
// is chosen: opt-out and opt-in keywords take precedence over the
// after-hours reply, and during business hours a plain message gets
// no reply at all.
//
// The response is always 200 with a TwiML body, even when storage
// fails: a non-2xx would make the provider retry and the sender's
// message is already in hand.
func (h *Handler) WebhookIncoming(w http.ResponseWriter, r *http.Request) {
	metrics.WebhookEvents.WithLabelValues("incoming").Inc()

	if err := r.ParseForm(); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Malformed incoming webhook")
		respondTwiML(w, "")
		return
	}

	from := r.PostFormValue("From")
	body := r.PostFormValue("Body")

	numMedia, _ := strconv.Atoi(r.PostFormValue("NumMedia"))

	msg := &models.IncomingMessage{
		FromNumber: from,
		ToNumber:   r.PostFormValue("To"),
		Message:    body,
		MessageSid: r.PostFormValue("MessageSid"),
		Timestamp:  h.now().UTC(),
		Read:       false,
		Metadata: &models.IncomingMetadata{
			City:     r.PostFormValue("FromCity"),
			State:    r.PostFormValue("FromState"),
			Country:  r.PostFormValue("FromCountry"),
			Zip:      r.PostFormValue("FromZip"),
			HasMedia: numMedia > 0,
		},
	}

	if err := h.store.InsertIncoming(r.Context(), msg); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).
			Str("from", sanitizeLogValue(from)).
			Msg("Failed to store incoming message, acknowledging anyway")
	} else {
		logging.Ctx(r.Context()).Info().
			Str("from", sanitizeLogValue(from)).
			Int("body_len", len(body)).
			Msg("Incoming message stored")
	}

	respondTwiML(w, h.autoReply(body))
}

// autoReply picks the reply for an inbound message body.
func (h *Handler) autoReply(body string) string {
	keyword := strings.ToUpper(strings.TrimSpace(body))

	switch {
	case optOutKeywords[keyword]:
		return h.cfg.Webhook.OptOutReply
	case optInKeywords[keyword]:
		return h.cfg.Webhook.OptInReply
	case !h.withinBusinessHours():
		return h.cfg.Webhook.AfterHoursReply
	default:
		return ""
	}
}

// withinBusinessHours reports whether the current local hour falls in
// the configured open interval [open, close).
func (h *Handler) withinBusinessHours() bool {
	hour := h.now().Hour()
	return hour >= h.cfg.Webhook.BusinessOpenHour && hour < h.cfg.Webhook.BusinessCloseHour
}

// WebhookStatusUpdate handles POST /api/webhook-status-update, the
// provider's delivery-status callback for an outbound message. Unlike
// the inbound webhook this one answers JSON: the provider only needs
// an acknowledgement, and a 4xx/5xx here surfaces in its error log
// where a silent TwiML 200 would hide a broken store.
func (h *Handler) WebhookStatusUpdate(w http.ResponseWriter, r *http.Request) {
	metrics.WebhookEvents.WithLabelValues("status_update").Inc()

	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	sid := r.PostFormValue("MessageSid")
	status := r.PostFormValue("MessageStatus")
	if sid == "" || status == "" {
		logging.Ctx(r.Context()).Warn().Msg("Status webhook missing MessageSid or MessageStatus")
		respondError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	update := &models.SentMessage{Sid: sid, Status: status}
	if code := r.PostFormValue("ErrorCode"); code != "" {
		if n, err := strconv.Atoi(code); err == nil {
			update.ErrorCode = &n
		}
	}

	if err := h.store.UpdateSentStatus(r.Context(), sid, update); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).
			Str("sid", sanitizeLogValue(sid)).
			Msg("Failed to apply status update")
		respondError(w, http.StatusInternalServerError, "Failed to update status")
		return
	}

	logging.Ctx(r.Context()).Debug().
		Str("sid", sanitizeLogValue(sid)).
		Str("status", sanitizeLogValue(status)).
		Msg("Delivery status updated")

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"updated": sid,
	})
}
