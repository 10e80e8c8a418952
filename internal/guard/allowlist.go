// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package guard

import "strings"

// AllowList restricts outbound recipients. An empty list allows every
// recipient; otherwise the recipient must contain one of the entries
// as a substring, so an entry can be a full number or a prefix like a
// country code.
type AllowList struct {
	entries []string
}

// NewAllowList builds an allow list from the configured entries.
// Blank entries are dropped.
func NewAllowList(entries []string) *AllowList {
	a := &AllowList{}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e != "" {
			a.entries = append(a.entries, e)
		}
	}
	return a
}

// Check returns a rejection when the recipient is not covered by the
// allow list.
func (a *AllowList) Check(to string) *SendError {
	if len(a.entries) == 0 {
		return nil
	}
	for _, e := range a.entries {
		if strings.Contains(to, e) {
			return nil
		}
	}
	return newSendError(CodeNotAllowed, "recipient is not on the allowed list")
}
