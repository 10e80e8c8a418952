// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package relay

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/smsrelay/internal/models"
	"github.com/tomtom215/smsrelay/internal/provider"
)

// fakeProvider implements provider.ClientInterface for tests.
type fakeProvider struct {
	mu sync.Mutex

	createErr   error
	createCalls int
	created     []provider.Message

	listMsgs []provider.Message
	listErr  error

	fetchMsgs map[string]*provider.Message
	fetchErr  error
}

func (f *fakeProvider) CreateMessage(_ context.Context, to, body string) (*provider.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	msg := provider.Message{
		Sid:      "SMfake1",
		To:       to,
		From:     "+15550000000",
		Body:     body,
		Status:   "queued",
		DateSent: "Mon, 02 Mar 2026 15:04:05 +0000",
	}
	f.created = append(f.created, msg)
	return &msg, nil
}

func (f *fakeProvider) ListMessages(_ context.Context, _ provider.ListOptions) ([]provider.Message, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listMsgs, nil
}

func (f *fakeProvider) FetchMessage(_ context.Context, sid string) (*provider.Message, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if msg, ok := f.fetchMsgs[sid]; ok {
		return msg, nil
	}
	return nil, &provider.APIError{Code: 20404, Message: "not found", Status: 404}
}

func (f *fakeProvider) Ping(_ context.Context) error { return nil }

// fakeStore implements store.ClientInterface for tests.
type fakeStore struct {
	mu sync.Mutex

	insertSentErr error
	sentRows      []models.SentMessage

	batches    [][]models.SentMessage
	batchErrAt int // 1-based batch index that fails; 0 = never

	sids    map[string]bool
	pending []models.SentMessage

	updates map[string]string // sid -> status
}

func (f *fakeStore) InsertIncoming(_ context.Context, _ *models.IncomingMessage) error { return nil }

func (f *fakeStore) ListIncoming(_ context.Context, _ int) ([]models.IncomingMessage, error) {
	return nil, nil
}

func (f *fakeStore) MarkReadByIDs(_ context.Context, _ []int64) error { return nil }

func (f *fakeStore) MarkReadByNumber(_ context.Context, _ string) error { return nil }

func (f *fakeStore) InsertSent(_ context.Context, msg *models.SentMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertSentErr != nil {
		return f.insertSentErr
	}
	f.sentRows = append(f.sentRows, *msg)
	return nil
}

func (f *fakeStore) InsertSentBatch(_ context.Context, msgs []models.SentMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, msgs)
	if f.batchErrAt > 0 && len(f.batches) == f.batchErrAt {
		return context.DeadlineExceeded
	}
	f.sentRows = append(f.sentRows, msgs...)
	return nil
}

func (f *fakeStore) ListSent(_ context.Context, _ int) ([]models.SentMessage, error) {
	return f.sentRows, nil
}

func (f *fakeStore) ListSentSince(_ context.Context, _ time.Time) ([]models.SentMessage, error) {
	return f.sentRows, nil
}

func (f *fakeStore) ListSentSids(_ context.Context) (map[string]bool, error) {
	if f.sids == nil {
		return map[string]bool{}, nil
	}
	return f.sids, nil
}

func (f *fakeStore) ListPendingSent(_ context.Context, _ time.Time) ([]models.SentMessage, error) {
	return f.pending, nil
}

func (f *fakeStore) UpdateSentStatus(_ context.Context, sid string, msg *models.SentMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updates == nil {
		f.updates = make(map[string]string)
	}
	f.updates[sid] = msg.Status
	return nil
}

func (f *fakeStore) Ping(_ context.Context) error { return nil }
