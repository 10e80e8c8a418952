// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Requests are accepted as JSON bodies, form bodies, or query
// parameters; JSON wins when the content type says so. This mirrors
// how the relay's existing clients call it.

// sendRequest is the body of POST /api/send-sms.
type sendRequest struct {
	To           string `json:"to"`
	Message      string `json:"message"`
	TemplateUsed string `json:"templateUsed"`
	Password     string `json:"password"`
}

// markMessagesRequest is the body of POST /api/messages: specific
// inbox rows to flip to read.
type markMessagesRequest struct {
	MessageIDs []int64 `json:"messageIds"`
	Password   string  `json:"password"`
}

// markReadRequest is the body of POST /api/mark-read: every message
// from one sender becomes read.
type markReadRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

// migrateRequest is the body of POST /api/migrate-historical-messages.
type migrateRequest struct {
	DryRun   bool   `json:"dryRun"`
	Limit    int    `json:"limit" validate:"min=0,max=1000"`
	Password string `json:"password"`
}

// verifyRequest holds the /api/verify-sent-messages parameters.
type verifyRequest struct {
	Days     int    `json:"days" validate:"min=0,max=365"`
	Limit    int    `json:"limit" validate:"min=0,max=1000"`
	Password string `json:"password"`
}

func decodeJSONBody(r *http.Request, dst interface{}) error {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "application/json") {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	return dec.Decode(dst)
}

// parseSendRequest reads a send request from JSON, form fields, or
// query parameters, in that precedence.
func parseSendRequest(r *http.Request) (*sendRequest, error) {
	req := &sendRequest{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSONBody(r, req); err != nil {
			return nil, err
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	req.To = formValue(r, "to")
	req.Message = formValue(r, "message")
	req.TemplateUsed = formValue(r, "templateUsed")
	req.Password = formValue(r, "password")
	return req, nil
}

// formValue checks POST form fields before query parameters.
func formValue(r *http.Request, key string) string {
	if v := r.PostFormValue(key); v != "" {
		return v
	}
	return r.URL.Query().Get(key)
}

// queryInt parses an integer query parameter, returning def when the
// parameter is absent or malformed.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
