// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package relay

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/tomtom215/smsrelay/internal/provider"
)

func providerLog(n int) []provider.Message {
	msgs := make([]provider.Message, n)
	for i := range msgs {
		msgs[i] = provider.Message{
			Sid:      fmt.Sprintf("SM%03d", i),
			To:       "+15551234567",
			Body:     "historical",
			Status:   "delivered",
			DateSent: "Mon, 02 Mar 2026 15:04:05 +0000",
		}
	}
	return msgs
}

func TestMigratorImportsNewRows(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{listMsgs: providerLog(5)}
	s := &fakeStore{sids: map[string]bool{"SM001": true, "SM003": true}}
	m := NewMigrator(p, s, "+15550000000", 100, 0)

	result, err := m.Run(context.Background(), false, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ProviderSeen != 5 || result.AlreadyHave != 2 || result.Imported != 3 {
		t.Errorf("result = %+v", result)
	}
	if len(s.sentRows) != 3 {
		t.Errorf("stored %d rows, want 3", len(s.sentRows))
	}
}

func TestMigratorDryRunWritesNothing(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{listMsgs: providerLog(4)}
	s := &fakeStore{}
	m := NewMigrator(p, s, "+15550000000", 100, 0)

	result, err := m.Run(context.Background(), true, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.DryRun || result.Imported != 4 {
		t.Errorf("result = %+v", result)
	}
	if len(s.sentRows) != 0 || len(s.batches) != 0 {
		t.Error("dry run must not write")
	}
}

func TestMigratorDryRunSamples(t *testing.T) {
	t.Parallel()

	msgs := providerLog(5)
	msgs[0].Body = strings.Repeat("x", 80)
	p := &fakeProvider{listMsgs: msgs}
	s := &fakeStore{}
	m := NewMigrator(p, s, "+15550000000", 100, 0)

	result, err := m.Run(context.Background(), true, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Samples) != 3 {
		t.Fatalf("samples = %d, want 3", len(result.Samples))
	}
	first := result.Samples[0]
	if first.Sid != "SM000" || first.To != "+15551234567" || first.SentDate == "" {
		t.Errorf("sample = %+v", first)
	}
	if want := strings.Repeat("x", 50) + "..."; first.Body != want {
		t.Errorf("sample body = %q, want truncated preview", first.Body)
	}
	if result.Samples[1].Body != "historical" {
		t.Errorf("short body altered: %q", result.Samples[1].Body)
	}
}

func TestMigratorLiveRunHasNoSamples(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{listMsgs: providerLog(5)}
	s := &fakeStore{}
	m := NewMigrator(p, s, "+15550000000", 100, 0)

	result, err := m.Run(context.Background(), false, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Samples) != 0 {
		t.Errorf("samples = %+v, want none on a live run", result.Samples)
	}
}

func TestMigratorBatching(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{listMsgs: providerLog(250)}
	s := &fakeStore{}
	m := NewMigrator(p, s, "+15550000000", 100, 0)

	result, err := m.Run(context.Background(), false, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Imported != 250 || result.Batches != 3 {
		t.Errorf("result = %+v", result)
	}
	if len(s.batches) != 3 {
		t.Fatalf("batches = %d, want 3", len(s.batches))
	}
	if len(s.batches[0]) != 100 || len(s.batches[2]) != 50 {
		t.Errorf("batch sizes = %d, %d, %d", len(s.batches[0]), len(s.batches[1]), len(s.batches[2]))
	}
}

func TestMigratorBatchFailureContinues(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{listMsgs: providerLog(250)}
	s := &fakeStore{batchErrAt: 2}
	m := NewMigrator(p, s, "+15550000000", 100, 0)

	result, err := m.Run(context.Background(), false, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Imported != 150 {
		t.Errorf("Imported = %d, want 150", result.Imported)
	}
	if len(result.FailedSids) != 100 {
		t.Errorf("FailedSids = %d, want 100", len(result.FailedSids))
	}
}

func TestMigratorCancellation(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{listMsgs: providerLog(10)}
	s := &fakeStore{}
	m := NewMigrator(p, s, "+15550000000", 100, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Run(ctx, false, 0); err == nil {
		t.Fatal("expected cancellation error")
	}
}
