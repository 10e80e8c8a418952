// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package services

import (
	"context"
	"time"

	"github.com/tomtom215/smsrelay/internal/logging"
	"github.com/tomtom215/smsrelay/internal/relay"
)

// StatusSyncer runs one reconciliation pass. Narrowed for testing;
// satisfied by *relay.StatusSyncer.
type StatusSyncer interface {
	Run(ctx context.Context, window time.Duration) (*relay.SyncResult, error)
}

// StatusSyncService periodically reconciles non-terminal message
// statuses against the provider.
type StatusSyncService struct {
	syncer   StatusSyncer
	interval time.Duration
	window   time.Duration
}

// NewStatusSyncService creates the periodic status-sync service.
func NewStatusSyncService(syncer StatusSyncer, interval, window time.Duration) *StatusSyncService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &StatusSyncService{
		syncer:   syncer,
		interval: interval,
		window:   window,
	}
}

// Serve runs one sync pass per interval until the context is canceled.
// An individual pass failing is logged and does not stop the service.
func (s *StatusSyncService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			result, err := s.syncer.Run(ctx, s.window)
			if err != nil {
				logging.Err(err).Msg("status sync pass failed")
				continue
			}
			logging.Info().
				Int("checked", result.Checked).
				Int("updated", result.Updated).
				Int("failed", result.Failed).
				Msg("status sync pass complete")
		}
	}
}

// String identifies the service in supervisor logs.
func (s *StatusSyncService) String() string {
	return "status-sync"
}
