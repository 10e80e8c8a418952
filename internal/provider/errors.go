// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package provider

import "fmt"

// Provider error codes that map to caller-facing responses rather
// than a generic server error.
const (
	CodeAuthFailure      = 20003
	CodeInvalidTo        = 21211
	CodeCannotRoute      = 21408
	CodeUnverifiedNumber = 21608
	CodeBlockedRecipient = 21610
)

// APIError is the provider's error envelope: a numeric code, a
// message, and the HTTP status it arrived with.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// HTTPStatus maps the provider error to the status the relay returns.
// Authentication failures surface as 401, known request problems as
// 400, everything else as 500.
func (e *APIError) HTTPStatus() int {
	switch e.Code {
	case CodeAuthFailure:
		return 401
	case CodeInvalidTo, CodeCannotRoute, CodeUnverifiedNumber, CodeBlockedRecipient:
		return 400
	default:
		return 500
	}
}

// CallerMessage returns the message shown to API callers. Known codes
// get a stable description; unknown codes get a generic message so
// provider internals don't leak.
func (e *APIError) CallerMessage() string {
	switch e.Code {
	case CodeAuthFailure:
		return "provider authentication failed"
	case CodeInvalidTo:
		return "invalid recipient phone number"
	case CodeCannotRoute:
		return "provider cannot route to this number"
	case CodeUnverifiedNumber:
		return "recipient number is not verified for this account"
	case CodeBlockedRecipient:
		return "recipient has opted out of messages from this number"
	default:
		return "failed to send message"
	}
}
