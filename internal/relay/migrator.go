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
	"github.com/tomtom215/smsrelay/internal/models"
	"github.com/tomtom215/smsrelay/internal/provider"
	"github.com/tomtom215/smsrelay/internal/store"
)

// MigrationSample previews one message a dry run would import.
type MigrationSample struct {
	Sid      string `json:"sid"`
	To       string `json:"to"`
	Body     string `json:"body"`
	SentDate string `json:"sentDate"`
}

// MigrationResult summarizes one historical import run.
type MigrationResult struct {
	DryRun       bool              `json:"dryRun"`
	ProviderSeen int               `json:"providerSeen"`
	AlreadyHave  int               `json:"alreadyHave"`
	Imported     int               `json:"imported"`
	Batches      int               `json:"batches"`
	FailedSids   []string          `json:"failedSids,omitempty"`
	Samples      []MigrationSample `json:"sampleMessages,omitempty"`
}

const maxDrySamples = 3

// sampleBody shortens a message body for the dry-run preview.
func sampleBody(s string) string {
	if len(s) > 50 {
		return s[:50] + "..."
	}
	return s
}

// Migrator imports the provider's historical outbound log into the
// store, skipping Sids already present. Inserts run in batches, paced
// so a large backfill doesn't hammer the store.
type Migrator struct {
	provider  provider.ClientInterface
	store     store.ClientInterface
	from      string
	batchSize int
	limiter   *rate.Limiter
}

// NewMigrator creates a migrator for the given sender number.
// paceInterval is the minimum gap between store batches.
func NewMigrator(p provider.ClientInterface, s store.ClientInterface, from string, batchSize int, paceInterval time.Duration) *Migrator {
	if batchSize < 1 {
		batchSize = 100
	}
	limiter := rate.NewLimiter(rate.Every(paceInterval), 1)
	if paceInterval <= 0 {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Migrator{
		provider:  p,
		store:     s,
		from:      from,
		batchSize: batchSize,
		limiter:   limiter,
	}
}

// Run performs one migration. With dryRun set, it reports what would
// be imported without writing anything. pageSize caps how much of the
// provider log is fetched; zero means the provider default.
func (m *Migrator) Run(ctx context.Context, dryRun bool, pageSize int) (*MigrationResult, error) {
	providerMsgs, err := m.provider.ListMessages(ctx, provider.ListOptions{
		From:     m.from,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("listing provider messages: %w", err)
	}

	existing, err := m.store.ListSentSids(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing stored sids: %w", err)
	}

	result := &MigrationResult{DryRun: dryRun, ProviderSeen: len(providerMsgs)}

	var toImport []models.SentMessage
	for i := range providerMsgs {
		if existing[providerMsgs[i].Sid] {
			result.AlreadyHave++
			continue
		}
		toImport = append(toImport, *SentMessageFromProvider(&providerMsgs[i]))
	}

	if dryRun {
		result.Imported = len(toImport)
		for i := 0; i < len(toImport) && i < maxDrySamples; i++ {
			result.Samples = append(result.Samples, MigrationSample{
				Sid:      toImport[i].Sid,
				To:       toImport[i].To,
				Body:     sampleBody(toImport[i].Body),
				SentDate: toImport[i].SentDate,
			})
		}
		logging.Info().Int("would_import", len(toImport)).Msg("Migration dry run completed")
		return result, nil
	}

	for start := 0; start < len(toImport); start += m.batchSize {
		end := start + m.batchSize
		if end > len(toImport) {
			end = len(toImport)
		}
		batch := toImport[start:end]

		if err := m.limiter.Wait(ctx); err != nil {
			return result, fmt.Errorf("migration cancelled: %w", err)
		}

		if err := m.store.InsertSentBatch(ctx, batch); err != nil {
			logging.Error().Err(err).Int("batch_start", start).Int("batch_size", len(batch)).Msg("Migration batch failed")
			for i := range batch {
				result.FailedSids = append(result.FailedSids, batch[i].Sid)
			}
			continue
		}

		result.Imported += len(batch)
		result.Batches++
		metrics.MigrationImported.Add(float64(len(batch)))
	}

	logging.Info().
		Int("imported", result.Imported).
		Int("skipped", result.AlreadyHave).
		Int("failed", len(result.FailedSids)).
		Msg("Migration completed")

	return result, nil
}
