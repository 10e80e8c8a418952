// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package guard

import (
	"strings"
	"testing"
)

func TestValidateSend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		to       string
		body     string
		wantCode Code
	}{
		{"valid", "+15551234567", "hello", ""},
		{"valid max length", "+15551234567", strings.Repeat("a", MaxBodyLength), ""},
		{"missing to", "", "hello", CodeMissingField},
		{"missing body", "+15551234567", "", CodeMissingField},
		{"both missing", "", "", CodeMissingField},
		{"too long", "+15551234567", strings.Repeat("a", MaxBodyLength+1), CodeTooLong},
		{"multibyte at max length", "+15551234567", strings.Repeat("é", MaxBodyLength), ""},
		{"multibyte over max length", "+15551234567", strings.Repeat("é", MaxBodyLength+1), CodeTooLong},
		{"no plus", "15551234567", "hello", CodeInvalidFormat},
		{"leading zero", "+05551234567", "hello", CodeInvalidFormat},
		{"letters", "+1555ABCDEFG", "hello", CodeInvalidFormat},
		{"too many digits", "+1234567890123456", "hello", CodeInvalidFormat},
		{"single digit", "+1", "hello", CodeInvalidFormat},
		{"two digits ok", "+12", "hello", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateSend(tt.to, tt.body)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("ValidateSend(%q, ...) = %v, want nil", tt.to, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidateSend(%q, ...) = nil, want code %s", tt.to, tt.wantCode)
			}
			if err.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", err.Code, tt.wantCode)
			}
		})
	}
}

func TestValidateSendChecksLengthBeforeFormat(t *testing.T) {
	t.Parallel()

	// An over-long body to a malformed number must report TOO_LONG.
	err := ValidateSend("not-a-number", strings.Repeat("x", MaxBodyLength+1))
	if err == nil || err.Code != CodeTooLong {
		t.Fatalf("got %v, want TOO_LONG", err)
	}
}

func TestSendErrorHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code Code
		want int
	}{
		{CodeMissingField, 400},
		{CodeTooLong, 400},
		{CodeInvalidFormat, 400},
		{CodeProhibitedContent, 400},
		{CodeNotAllowed, 403},
		{CodeRateLimited, 429},
		{CodeDailyCapReached, 429},
	}

	for _, tt := range tests {
		tt := tt
		e := &SendError{Code: tt.code}
		if got := e.HTTPStatus(); got != tt.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
