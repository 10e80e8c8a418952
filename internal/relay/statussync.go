// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package relay

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/smsrelay/internal/logging"
	"github.com/tomtom215/smsrelay/internal/metrics"
	"github.com/tomtom215/smsrelay/internal/provider"
	"github.com/tomtom215/smsrelay/internal/store"
)

// SyncResult summarizes one status-sync run.
type SyncResult struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// StatusSyncer refreshes stored rows stuck in a non-terminal delivery
// status by fetching each Sid's current record from the provider.
// Fetches are paced to stay inside the provider's request budget.
type StatusSyncer struct {
	provider provider.ClientInterface
	store    store.ClientInterface
	limiter  *rate.Limiter
}

// NewStatusSyncer creates a syncer. paceInterval is the minimum gap
// between provider fetches.
func NewStatusSyncer(p provider.ClientInterface, s store.ClientInterface, paceInterval time.Duration) *StatusSyncer {
	limiter := rate.NewLimiter(rate.Every(paceInterval), 1)
	if paceInterval <= 0 {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &StatusSyncer{provider: p, store: s, limiter: limiter}
}

// Run performs one sync pass over rows sent within the window.
// Per-row failures are counted and logged but don't abort the run; an
// error is returned only when the pending listing itself fails.
func (s *StatusSyncer) Run(ctx context.Context, window time.Duration) (*SyncResult, error) {
	start := time.Now()
	if window <= 0 {
		window = 24 * time.Hour
	}

	pending, err := s.store.ListPendingSent(ctx, start.Add(-window))
	if err != nil {
		metrics.SyncErrors.WithLabelValues("store").Inc()
		return nil, fmt.Errorf("listing pending messages: %w", err)
	}

	result := &SyncResult{}
	for i := range pending {
		row := &pending[i]
		result.Checked++
		metrics.SyncChecked.Inc()

		if err := s.limiter.Wait(ctx); err != nil {
			return result, fmt.Errorf("sync cancelled: %w", err)
		}

		current, err := s.provider.FetchMessage(ctx, row.Sid)
		if err != nil {
			result.Failed++
			metrics.SyncErrors.WithLabelValues("provider").Inc()
			logging.Warn().Err(err).Str("sid", row.Sid).Msg("Status fetch failed")
			continue
		}

		if current.Status == row.Status {
			continue
		}

		update := SentMessageFromProvider(current)
		if err := s.store.UpdateSentStatus(ctx, row.Sid, update); err != nil {
			result.Failed++
			metrics.SyncErrors.WithLabelValues("store").Inc()
			logging.Warn().Err(err).Str("sid", row.Sid).Msg("Status update failed")
			continue
		}

		result.Updated++
		metrics.SyncUpdated.Inc()
		logging.Debug().Str("sid", row.Sid).Str("from", row.Status).Str("to", current.Status).Msg("Status updated")
	}

	metrics.SyncDuration.Observe(time.Since(start).Seconds())
	metrics.SyncLastSuccess.SetToCurrentTime()

	logging.Info().
		Int("checked", result.Checked).
		Int("updated", result.Updated).
		Int("failed", result.Failed).
		Dur("duration", time.Since(start)).
		Msg("Status sync completed")

	return result, nil
}
