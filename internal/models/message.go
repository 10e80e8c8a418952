// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

// Package models defines the data types shared across the relay: store
// rows, provider wire records, and reconciliation reports.
package models

import "time"

// Terminal delivery statuses. Anything else is still in flight and
// eligible for status reconciliation.
var TerminalStatuses = map[string]bool{
	"delivered":   true,
	"undelivered": true,
	"failed":      true,
	"received":    true,
}

// NonTerminalStatuses are the in-flight statuses the status sync polls.
var NonTerminalStatuses = []string{"queued", "sending", "sent"}

// IncomingMetadata carries the provider's routing detail for an inbound
// message. Stored as a JSON column alongside the row.
type IncomingMetadata struct {
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	Country  string `json:"country,omitempty"`
	Zip      string `json:"zip,omitempty"`
	HasMedia bool   `json:"has_media"`
}

// IncomingMessage is a row in the incoming_messages table.
type IncomingMessage struct {
	ID         int64             `json:"id,omitempty"`
	FromNumber string            `json:"from_number"`
	ToNumber   string            `json:"to_number"`
	Message    string            `json:"message"`
	MessageSid string            `json:"message_sid,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	Read       bool              `json:"read"`
	Metadata   *IncomingMetadata `json:"metadata,omitempty"`
}

// SentMessage is a row in the sent_messages table. Column names follow
// the provider's field naming, hence the PascalCase tags.
type SentMessage struct {
	ID           int64   `json:"id,omitempty"`
	Sid          string  `json:"Sid"`
	To           string  `json:"To"`
	From         string  `json:"From"`
	Body         string  `json:"Body"`
	Status       string  `json:"Status"`
	SentDate     string  `json:"SentDate,omitempty"`
	Price        *string `json:"Price"`
	PriceUnit    *string `json:"PriceUnit,omitempty"`
	ErrorCode    *int    `json:"ErrorCode"`
	ErrorMessage *string `json:"ErrorMessage,omitempty"`
	Direction    string  `json:"Direction,omitempty"`
	NumSegments  string  `json:"NumSegments,omitempty"`
}

// IsTerminal reports whether the message has reached a final delivery
// state.
func (m *SentMessage) IsTerminal() bool {
	return TerminalStatuses[m.Status]
}

// FieldDiff is a single mismatched field between a store row and the
// provider's record for the same Sid.
type FieldDiff struct {
	Field    string `json:"field"`
	Store    string `json:"store"`
	Provider string `json:"provider"`
}

// Mismatch groups all field differences for one Sid.
type Mismatch struct {
	Sid   string      `json:"sid"`
	Diffs []FieldDiff `json:"diffs"`
}

// ReconciliationReport summarizes a comparison of the store's sent
// messages against the provider's log over some window.
type ReconciliationReport struct {
	StoreCount     int        `json:"storeCount"`
	ProviderCount  int        `json:"providerCount"`
	MatchCount     int        `json:"matchCount"`
	OnlyInStore    []string   `json:"onlyInStore"`
	OnlyInProvider []string   `json:"onlyInProvider"`
	Mismatches     []Mismatch `json:"mismatches"`
	HealthScore    float64    `json:"healthScore"`
}
