// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package guard

import (
	"regexp"
	"unicode/utf8"
)

// MaxBodyLength is the longest message body accepted, matching the
// provider's concatenated-SMS ceiling.
const MaxBodyLength = 1600

// e164Pattern matches E.164 numbers: a plus sign, a non-zero leading
// digit, at most 15 digits total.
var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// ValidE164 reports whether s is a well-formed E.164 phone number.
func ValidE164(s string) bool {
	return e164Pattern.MatchString(s)
}

// ValidateSend checks the shape of a send request: both fields present,
// body within length, recipient in E.164 form. Returns a *SendError on
// the first failure.
func ValidateSend(to, body string) *SendError {
	if to == "" || body == "" {
		return newSendError(CodeMissingField, "both 'to' and 'message' are required")
	}
	// The length limit counts characters, not bytes: a body full of
	// multibyte runes still fits when its rune count is within bounds.
	if utf8.RuneCountInString(body) > MaxBodyLength {
		return newSendError(CodeTooLong, "message body exceeds %d characters", MaxBodyLength)
	}
	if !ValidE164(to) {
		return newSendError(CodeInvalidFormat, "recipient must be in E.164 format (e.g. +15551234567)")
	}
	return nil
}
