// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/smsrelay/internal/logging"
	"github.com/tomtom215/smsrelay/internal/models"
	"github.com/tomtom215/smsrelay/internal/provider"
	"github.com/tomtom215/smsrelay/internal/store"
)

// Verifier reconciles the store's sent log against the provider's
// over a recent window.
type Verifier struct {
	provider provider.ClientInterface
	store    store.ClientInterface
	from     string
	now      func() time.Time
}

// NewVerifier creates a verifier scoped to the relay's sender number.
func NewVerifier(p provider.ClientInterface, s store.ClientInterface, from string) *Verifier {
	return &Verifier{provider: p, store: s, from: from, now: time.Now}
}

// Verify fetches both sides over the given window and diffs them. The
// report's health score is scaled to a 0-100 percentage.
func (v *Verifier) Verify(ctx context.Context, window time.Duration, pageSize int) (*models.ReconciliationReport, error) {
	since := v.now().Add(-window)

	providerMsgs, err := v.provider.ListMessages(ctx, provider.ListOptions{
		From:      v.from,
		PageSize:  pageSize,
		SentAfter: since,
	})
	if err != nil {
		return nil, fmt.Errorf("listing provider messages: %w", err)
	}

	storeRows, err := v.store.ListSentSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("listing stored messages: %w", err)
	}

	providerRows := make([]models.SentMessage, len(providerMsgs))
	for i := range providerMsgs {
		providerRows[i] = *SentMessageFromProvider(&providerMsgs[i])
	}

	report := Diff(storeRows, providerRows)
	report.HealthScore = report.HealthScore * 100

	logging.Info().
		Int("store_count", report.StoreCount).
		Int("provider_count", report.ProviderCount).
		Int("match_count", report.MatchCount).
		Float64("health_score", report.HealthScore).
		Msg("Verification completed")

	return report, nil
}
