// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package guard

import "strings"

// ContentFilter rejects message bodies containing any configured
// blocked word. Matching is case-insensitive substring, so "FREE"
// also catches "freebie".
type ContentFilter struct {
	words []string
}

// NewContentFilter builds a filter from the configured word list.
// Entries are lowercased once at construction; blanks are dropped.
func NewContentFilter(words []string) *ContentFilter {
	f := &ContentFilter{}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			f.words = append(f.words, w)
		}
	}
	return f
}

// Scan returns a rejection when the body contains a blocked word. The
// rejection message never echoes the matched word back to the caller.
func (f *ContentFilter) Scan(body string) *SendError {
	if len(f.words) == 0 {
		return nil
	}
	lower := strings.ToLower(body)
	for _, w := range f.words {
		if strings.Contains(lower, w) {
			return newSendError(CodeProhibitedContent, "message contains prohibited content")
		}
	}
	return nil
}
