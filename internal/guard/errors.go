// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

// Package guard implements the pre-send checks for outbound SMS:
// request validation, recipient allow-listing, hourly and daily send
// quotas, and content filtering. Checks run in a fixed order and the
// first failure stops the pipeline.
package guard

import "fmt"

// Code identifies why a send was rejected.
type Code string

const (
	CodeMissingField      Code = "MISSING_FIELD"
	CodeTooLong           Code = "TOO_LONG"
	CodeInvalidFormat     Code = "INVALID_FORMAT"
	CodeNotAllowed        Code = "NOT_ALLOWED_RECIPIENT"
	CodeRateLimited       Code = "RATE_LIMITED"
	CodeDailyCapReached   Code = "DAILY_CAP_REACHED"
	CodeProhibitedContent Code = "PROHIBITED_CONTENT"
)

// SendError is a guard rejection. HTTPStatus maps the code to the
// response status the API layer should return.
type SendError struct {
	Code    Code
	Message string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HTTPStatus returns the HTTP status code for this rejection.
func (e *SendError) HTTPStatus() int {
	switch e.Code {
	case CodeNotAllowed:
		return 403
	case CodeRateLimited, CodeDailyCapReached:
		return 429
	default:
		return 400
	}
}

// MetricReason returns the label used on rejection counters.
func (e *SendError) MetricReason() string {
	return string(e.Code)
}

func newSendError(code Code, format string, args ...any) *SendError {
	return &SendError{Code: code, Message: fmt.Sprintf(format, args...)}
}
