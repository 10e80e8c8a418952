// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

// Package relay holds the business core: the outbound send pipeline,
// store/provider reconciliation, historical migration, and background
// status sync.
package relay

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/smsrelay/internal/guard"
	"github.com/tomtom215/smsrelay/internal/logging"
	"github.com/tomtom215/smsrelay/internal/metrics"
	"github.com/tomtom215/smsrelay/internal/models"
	"github.com/tomtom215/smsrelay/internal/provider"
	"github.com/tomtom215/smsrelay/internal/store"
)

// SendResult is what a successful send returns to the caller.
type SendResult struct {
	MessageID      string
	Status         string
	RemainingToday int
	DailyLimit     int
}

// Orchestrator runs the guarded send pipeline: shape validation,
// recipient allow-listing, quota reservation, content filtering, then
// the provider call and a best-effort store insert.
type Orchestrator struct {
	provider  provider.ClientInterface
	store     store.ClientInterface
	quota     *guard.QuotaTracker
	allowList *guard.AllowList
	filter    *guard.ContentFilter

	// now is injectable for tests.
	now func() time.Time
}

// NewOrchestrator wires the send pipeline.
func NewOrchestrator(p provider.ClientInterface, s store.ClientInterface, q *guard.QuotaTracker, a *guard.AllowList, f *guard.ContentFilter) *Orchestrator {
	return &Orchestrator{
		provider:  p,
		store:     s,
		quota:     q,
		allowList: a,
		filter:    f,
		now:       time.Now,
	}
}

// Send runs the full pipeline for one outbound message. source is the
// caller's identity for hourly rate limiting, normally the client IP.
//
// Guard checks run in a fixed order and the first failure wins:
// validation, allow list, quota, content filter. Quota is reserved
// before the provider call, so a provider failure still consumes it.
// The store insert after a successful send is best effort; its failure
// is logged but never fails the send.
func (o *Orchestrator) Send(ctx context.Context, source, to, body string) (*SendResult, error) {
	if err := guard.ValidateSend(to, body); err != nil {
		return nil, o.reject(err)
	}
	if err := o.allowList.Check(to); err != nil {
		return nil, o.reject(err)
	}

	now := o.now()
	if err := o.quota.CheckAndReserve(source, now); err != nil {
		return nil, o.reject(err)
	}
	if err := o.filter.Scan(body); err != nil {
		return nil, o.reject(err)
	}

	msg, err := o.provider.CreateMessage(ctx, to, body)
	if err != nil {
		metrics.SendAttempts.WithLabelValues("provider_error").Inc()

		var apiErr *provider.APIError
		if errors.As(err, &apiErr) {
			logging.Warn().Int("code", apiErr.Code).Int("status", apiErr.Status).Msg("Provider rejected send")
		} else {
			logging.Error().Err(err).Msg("Provider send failed")
		}
		return nil, err
	}

	o.recordSent(ctx, msg, now)

	remaining := o.quota.RemainingToday(now)
	metrics.SendAttempts.WithLabelValues("sent").Inc()
	metrics.RemainingDailyQuota.Set(float64(remaining))

	logging.Info().
		Str("sid", msg.Sid).
		Str("status", msg.Status).
		Int("remaining_today", remaining).
		Msg("Message sent")

	return &SendResult{
		MessageID:      msg.Sid,
		Status:         msg.Status,
		RemainingToday: remaining,
		DailyLimit:     o.quota.DailyLimit(),
	}, nil
}

func (o *Orchestrator) reject(err *guard.SendError) error {
	metrics.SendAttempts.WithLabelValues("rejected").Inc()
	metrics.GuardRejections.WithLabelValues(err.MetricReason()).Inc()
	logging.Info().Str("reason", string(err.Code)).Msg("Send rejected")
	return err
}

// recordSent mirrors the provider's record into the store. Failure
// here is logged and swallowed; the message was already sent.
func (o *Orchestrator) recordSent(ctx context.Context, msg *provider.Message, now time.Time) {
	row := SentMessageFromProvider(msg)
	if row.SentDate == "" {
		row.SentDate = now.UTC().Format(time.RFC3339)
	}

	if err := o.store.InsertSent(ctx, row); err != nil {
		logging.Error().Err(err).Str("sid", msg.Sid).Msg("Failed to record sent message, continuing")
	}
}

// SentMessageFromProvider converts a provider wire record into a store
// row. SentDate is normalised to RFC 3339 when the provider timestamp
// parses, otherwise carried as-is.
func SentMessageFromProvider(msg *provider.Message) *models.SentMessage {
	row := &models.SentMessage{
		Sid:          msg.Sid,
		To:           msg.To,
		From:         msg.From,
		Body:         msg.Body,
		Status:       msg.Status,
		Price:        msg.Price,
		PriceUnit:    msg.PriceUnit,
		ErrorCode:    msg.ErrorCode,
		ErrorMessage: msg.ErrorMessage,
		Direction:    msg.Direction,
		NumSegments:  msg.NumSegments,
	}
	if ts, err := msg.SentTime(); err == nil {
		row.SentDate = ts.UTC().Format(time.RFC3339)
	} else {
		row.SentDate = msg.DateSent
	}
	return row
}
