// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package api

import (
	"net/http"

	"github.com/tomtom215/smsrelay/internal/logging"
	"github.com/tomtom215/smsrelay/internal/models"
	"github.com/tomtom215/smsrelay/internal/provider"
)

const (
	defaultListLimit = 50
	defaultSentLimit = 20
)

// Messages handles /api/messages. GET returns the inbound inbox,
// newest first; POST marks the listed rows read.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		h.markMessagesRead(w, r)
		return
	}

	if !h.authorize(w, r, formValue(r, "password")) {
		return
	}

	limit := queryInt(r, "limit", defaultListLimit)
	if limit < 1 || limit > 1000 {
		limit = defaultListLimit
	}

	msgs, err := h.store.ListIncoming(r.Context(), limit)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Listing inbox failed")
		respondError(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}
	if msgs == nil {
		msgs = []models.IncomingMessage{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"messages": msgs,
		"count":    len(msgs),
	})
}

// markMessagesRead flips the listed inbox rows to read.
func (h *Handler) markMessagesRead(w http.ResponseWriter, r *http.Request) {
	req := &markMessagesRequest{}
	if err := decodeJSONBody(r, req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request")
		return
	}
	if req.Password == "" {
		req.Password = formValue(r, "password")
	}
	if !h.authorize(w, r, req.Password) {
		return
	}

	if len(req.MessageIDs) == 0 {
		respondError(w, http.StatusBadRequest, "messageIds is required")
		return
	}

	if err := h.store.MarkReadByIDs(r.Context(), req.MessageIDs); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Mark read failed")
		respondError(w, http.StatusInternalServerError, "failed to update read status")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// MarkRead handles POST /api/mark-read: every message from one sender
// becomes read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	req := &markReadRequest{}
	if err := decodeJSONBody(r, req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request")
		return
	}
	if req.Password == "" {
		req.Password = formValue(r, "password")
	}
	if req.PhoneNumber == "" {
		req.PhoneNumber = formValue(r, "phoneNumber")
	}
	if !h.authorize(w, r, req.Password) {
		return
	}

	if req.PhoneNumber == "" {
		respondError(w, http.StatusBadRequest, "phone number is required")
		return
	}

	if err := h.store.MarkReadByNumber(r.Context(), req.PhoneNumber); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Mark read failed")
		respondError(w, http.StatusInternalServerError, "failed to update read status")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Messages marked as read",
	})
}

// sentMessageView is the caller-facing shape of one outbound message,
// flattened from the stored row.
type sentMessageView struct {
	ID           string  `json:"id"`
	To           string  `json:"to"`
	Message      string  `json:"message"`
	Status       string  `json:"status"`
	Timestamp    string  `json:"timestamp"`
	Direction    string  `json:"direction"`
	ErrorCode    *int    `json:"errorCode"`
	ErrorMessage *string `json:"errorMessage"`
	Price        *string `json:"price"`
	PriceUnit    *string `json:"priceUnit"`
}

// SentMessages handles GET /api/sent-messages: the outbox as the
// store recorded it, newest first. Rows land in the store at send
// time and delivery updates patch them in place, so this reads the
// store rather than asking the provider again.
func (h *Handler) SentMessages(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, formValue(r, "password")) {
		return
	}

	limit := queryInt(r, "limit", defaultSentLimit)
	if limit < 1 || limit > 1000 {
		limit = defaultSentLimit
	}

	rows, err := h.store.ListSent(r.Context(), limit)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Listing sent messages failed")
		respondError(w, http.StatusInternalServerError, "failed to fetch sent messages")
		return
	}

	views := make([]sentMessageView, 0, len(rows))
	for _, row := range rows {
		views = append(views, sentMessageView{
			ID:        row.Sid,
			To:        row.To,
			Message:   row.Body,
			Status:    row.Status,
			Timestamp: row.SentDate,
			Direction: row.Direction,
			ErrorCode: row.ErrorCode,
			Price:     row.Price,
			PriceUnit: row.PriceUnit,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"messages": views,
		"count":    len(views),
		"source":   "store",
	})
}

// DebugMessages handles GET /api/debug-messages: raw unfiltered rows
// from the store next to the provider's log, for operators chasing a
// discrepancy by eye.
func (h *Handler) DebugMessages(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, formValue(r, "password")) {
		return
	}

	limit := queryInt(r, "limit", 10)
	if limit < 1 || limit > 1000 {
		limit = 10
	}

	stored, storeErr := h.store.ListIncoming(r.Context(), limit)
	providerMsgs, providerErr := h.provider.ListMessages(r.Context(), provider.ListOptions{
		From:     h.cfg.Provider.FromNumber,
		PageSize: limit,
	})

	resp := map[string]interface{}{
		"success":          true,
		"storeMessages":    stored,
		"providerMessages": providerMsgs,
	}
	if storeErr != nil {
		resp["storeError"] = storeErr.Error()
	}
	if providerErr != nil {
		resp["providerError"] = providerErr.Error()
	}

	respondJSON(w, http.StatusOK, resp)
}
