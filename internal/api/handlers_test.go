// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/smsrelay/internal/config"
	"github.com/tomtom215/smsrelay/internal/guard"
	"github.com/tomtom215/smsrelay/internal/models"
	"github.com/tomtom215/smsrelay/internal/provider"
	"github.com/tomtom215/smsrelay/internal/relay"
)

// stubProvider implements provider.ClientInterface.
type stubProvider struct {
	createErr error
	listMsgs  []provider.Message
	listErr   error
	pingErr   error
}

func (s *stubProvider) CreateMessage(_ context.Context, to, body string) (*provider.Message, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &provider.Message{Sid: "SM1", To: to, Body: body, Status: "queued"}, nil
}

func (s *stubProvider) ListMessages(_ context.Context, _ provider.ListOptions) ([]provider.Message, error) {
	return s.listMsgs, s.listErr
}

func (s *stubProvider) FetchMessage(_ context.Context, sid string) (*provider.Message, error) {
	return &provider.Message{Sid: sid, Status: "delivered"}, nil
}

func (s *stubProvider) Ping(_ context.Context) error { return s.pingErr }

// stubStore implements store.ClientInterface.
type stubStore struct {
	incoming      []models.IncomingMessage
	insertedIn    []models.IncomingMessage
	insertInErr   error
	listInErr     error
	markedIDs     []int64
	markedNumber  string
	sent          []models.SentMessage
	listSentErr   error
	statusUpdates map[string]string
	updateErr     error
	pingErr       error
}

func (s *stubStore) InsertIncoming(_ context.Context, msg *models.IncomingMessage) error {
	if s.insertInErr != nil {
		return s.insertInErr
	}
	s.insertedIn = append(s.insertedIn, *msg)
	return nil
}

func (s *stubStore) ListIncoming(_ context.Context, _ int) ([]models.IncomingMessage, error) {
	return s.incoming, s.listInErr
}

func (s *stubStore) MarkReadByIDs(_ context.Context, ids []int64) error {
	s.markedIDs = ids
	return nil
}

func (s *stubStore) MarkReadByNumber(_ context.Context, n string) error {
	s.markedNumber = n
	return nil
}

func (s *stubStore) InsertSent(_ context.Context, _ *models.SentMessage) error { return nil }

func (s *stubStore) ListSent(_ context.Context, _ int) ([]models.SentMessage, error) {
	return s.sent, s.listSentErr
}

func (s *stubStore) InsertSentBatch(_ context.Context, _ []models.SentMessage) error { return nil }

func (s *stubStore) ListSentSince(_ context.Context, _ time.Time) ([]models.SentMessage, error) {
	return nil, nil
}

func (s *stubStore) ListSentSids(_ context.Context) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func (s *stubStore) ListPendingSent(_ context.Context, _ time.Time) ([]models.SentMessage, error) {
	return nil, nil
}

func (s *stubStore) UpdateSentStatus(_ context.Context, sid string, msg *models.SentMessage) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if s.statusUpdates == nil {
		s.statusUpdates = make(map[string]string)
	}
	s.statusUpdates[sid] = msg.Status
	return nil
}

func (s *stubStore) Ping(_ context.Context) error { return s.pingErr }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Provider.FromNumber = "+15550000000"
	cfg.Guard.HourlyMax = 10
	cfg.Guard.DailyMax = 100
	cfg.Webhook.OptOutReply = "You have been unsubscribed."
	cfg.Webhook.OptInReply = "You are subscribed again."
	cfg.Webhook.AfterHoursReply = "We are closed, back at 9am."
	cfg.Webhook.BusinessOpenHour = 9
	cfg.Webhook.BusinessCloseHour = 18
	cfg.Sync.MigrationBatchSize = 100
	cfg.Sync.Window = 24 * time.Hour
	return cfg
}

func newTestHandler(cfg *config.Config, p *stubProvider, s *stubStore) *Handler {
	orch := relay.NewOrchestrator(
		p, s,
		guard.NewQuotaTracker(cfg.Guard.HourlyMax, cfg.Guard.DailyMax),
		guard.NewAllowList(cfg.Guard.AllowedNumbers),
		guard.NewContentFilter(cfg.Guard.BlockedWords),
	)
	return NewHandler(cfg, orch, p, s)
}

func postForm(h http.HandlerFunc, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "10.0.0.1:54321"
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func postJSON(h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.1:54321"
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestSendSMSSuccess(t *testing.T) {
	t.Parallel()

	h := newTestHandler(testConfig(), &stubProvider{}, &stubStore{})
	rec := postJSON(h.SendSMS, "/api/send-sms", `{"to":"+15551234567","message":"hello"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success        bool   `json:"success"`
		MessageID      string `json:"messageId"`
		Status         string `json:"status"`
		RemainingToday int    `json:"remainingToday"`
		DailyLimit     int    `json:"dailyLimit"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.MessageID != "SM1" || resp.RemainingToday != 99 || resp.DailyLimit != 100 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSendSMSStatusCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      func(*config.Config)
		provider *stubProvider
		body     string
		want     int
	}{
		{
			"missing field", nil, &stubProvider{},
			`{"to":"+15551234567"}`, http.StatusBadRequest,
		},
		{
			"invalid format", nil, &stubProvider{},
			`{"to":"12345","message":"hi"}`, http.StatusBadRequest,
		},
		{
			"not allowed",
			func(c *config.Config) { c.Guard.AllowedNumbers = []string{"+44"} },
			&stubProvider{},
			`{"to":"+15551234567","message":"hi"}`, http.StatusForbidden,
		},
		{
			"blocked content",
			func(c *config.Config) { c.Guard.BlockedWords = []string{"casino"} },
			&stubProvider{},
			`{"to":"+15551234567","message":"visit our casino"}`, http.StatusBadRequest,
		},
		{
			"daily cap",
			func(c *config.Config) { c.Guard.DailyMax = 0 },
			&stubProvider{},
			`{"to":"+15551234567","message":"hi"}`, http.StatusTooManyRequests,
		},
		{
			"provider auth failure", nil,
			&stubProvider{createErr: &provider.APIError{Code: 20003, Status: 401}},
			`{"to":"+15551234567","message":"hi"}`, http.StatusUnauthorized,
		},
		{
			"provider invalid number", nil,
			&stubProvider{createErr: &provider.APIError{Code: 21211, Status: 400}},
			`{"to":"+15551234567","message":"hi"}`, http.StatusBadRequest,
		},
		{
			"provider unknown error", nil,
			&stubProvider{createErr: &provider.APIError{Code: 30000, Status: 500}},
			`{"to":"+15551234567","message":"hi"}`, http.StatusInternalServerError,
		},
		{
			"provider transport error", nil,
			&stubProvider{createErr: errors.New("connection refused")},
			`{"to":"+15551234567","message":"hi"}`, http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig()
			if tt.cfg != nil {
				tt.cfg(cfg)
			}
			h := newTestHandler(cfg, tt.provider, &stubStore{})

			rec := postJSON(h.SendSMS, "/api/send-sms", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d, body = %s", rec.Code, tt.want, rec.Body.String())
			}

			var resp map[string]interface{}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if tt.want != http.StatusOK {
				if _, ok := resp["error"]; !ok {
					t.Errorf("error body missing 'error' key: %s", rec.Body.String())
				}
			}
		})
	}
}

func TestSendSMSPasswordRequired(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Security.Password = "secret"
	h := newTestHandler(cfg, &stubProvider{}, &stubStore{})

	rec := postJSON(h.SendSMS, "/api/send-sms", `{"to":"+15551234567","message":"hi"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("without password: status = %d, want 401", rec.Code)
	}

	rec = postJSON(h.SendSMS, "/api/send-sms", `{"to":"+15551234567","message":"hi","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: status = %d, want 401", rec.Code)
	}

	rec = postJSON(h.SendSMS, "/api/send-sms", `{"to":"+15551234567","message":"hi","password":"secret"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("correct password: status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestSendSMSAcceptsFormEncoding(t *testing.T) {
	t.Parallel()

	h := newTestHandler(testConfig(), &stubProvider{}, &stubStore{})

	form := url.Values{}
	form.Set("to", "+15551234567")
	form.Set("message", "hello from a form")

	rec := postForm(h.SendSMS, "/api/send-sms", form)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestMessagesList(t *testing.T) {
	t.Parallel()

	s := &stubStore{incoming: []models.IncomingMessage{
		{ID: 2, FromNumber: "+1555", Message: "later"},
		{ID: 1, FromNumber: "+1555", Message: "earlier", Read: true},
	}}
	h := newTestHandler(testConfig(), &stubProvider{}, s)

	req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	rec := httptest.NewRecorder()
	h.Messages(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Success  bool                     `json:"success"`
		Messages []models.IncomingMessage `json:"messages"`
		Count    int                      `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Count != 2 || len(resp.Messages) != 2 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestMessagesEmptyListIsArray(t *testing.T) {
	t.Parallel()

	h := newTestHandler(testConfig(), &stubProvider{}, &stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	rec := httptest.NewRecorder()
	h.Messages(rec, req)

	if !strings.Contains(rec.Body.String(), `"messages":[]`) {
		t.Errorf("empty inbox should serialize as [], body = %s", rec.Body.String())
	}
}

func TestMessagesMarkRead(t *testing.T) {
	t.Parallel()

	s := &stubStore{}
	h := newTestHandler(testConfig(), &stubProvider{}, s)

	rec := postJSON(h.Messages, "/api/messages", `{"messageIds":[3,7]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(s.markedIDs) != 2 {
		t.Errorf("markedIDs = %v", s.markedIDs)
	}

	rec = postJSON(h.Messages, "/api/messages", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty id list: status = %d, want 400", rec.Code)
	}
}

func TestMarkRead(t *testing.T) {
	t.Parallel()

	s := &stubStore{}
	h := newTestHandler(testConfig(), &stubProvider{}, s)

	rec := postJSON(h.MarkRead, "/api/mark-read", `{"phoneNumber":"+15551234567"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if s.markedNumber != "+15551234567" {
		t.Errorf("markedNumber = %q", s.markedNumber)
	}

	rec = postJSON(h.MarkRead, "/api/mark-read", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing phone number: status = %d, want 400", rec.Code)
	}
}

func TestSendSMSAcceptsTemplateField(t *testing.T) {
	t.Parallel()

	h := newTestHandler(testConfig(), &stubProvider{}, &stubStore{})
	rec := postJSON(h.SendSMS, "/api/send-sms",
		`{"to":"+15551234567","message":"see you at 3pm","templateUsed":"appointment-reminder"}`)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestSentMessagesReadsStore(t *testing.T) {
	t.Parallel()

	price := "-0.0075"
	unit := "USD"
	code := 30003
	s := &stubStore{sent: []models.SentMessage{
		{
			Sid: "SM9", To: "+15551234567", Body: "checkup reminder",
			Status: "delivered", SentDate: "2026-03-02T15:04:05Z",
			Direction: "outbound-api",
			Price:     &price, PriceUnit: &unit, ErrorCode: &code,
		},
	}}
	p := &stubProvider{listErr: errors.New("outbox must not hit the provider")}
	h := newTestHandler(testConfig(), p, s)

	req := httptest.NewRequest(http.MethodGet, "/api/sent-messages", nil)
	rec := httptest.NewRecorder()
	h.SentMessages(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success  bool `json:"success"`
		Messages []struct {
			ID        string  `json:"id"`
			To        string  `json:"to"`
			Message   string  `json:"message"`
			Status    string  `json:"status"`
			Timestamp string  `json:"timestamp"`
			Direction string  `json:"direction"`
			ErrorCode *int    `json:"errorCode"`
			Price     *string `json:"price"`
			PriceUnit *string `json:"priceUnit"`
		} `json:"messages"`
		Count  int    `json:"count"`
		Source string `json:"source"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Count != 1 || resp.Source != "store" {
		t.Fatalf("resp = %+v", resp)
	}

	got := resp.Messages[0]
	if got.ID != "SM9" || got.To != "+15551234567" || got.Message != "checkup reminder" {
		t.Errorf("row = %+v", got)
	}
	if got.Status != "delivered" || got.Timestamp != "2026-03-02T15:04:05Z" || got.Direction != "outbound-api" {
		t.Errorf("row = %+v", got)
	}
	if got.ErrorCode == nil || *got.ErrorCode != 30003 || got.Price == nil || *got.Price != "-0.0075" {
		t.Errorf("row = %+v", got)
	}
}

func TestSentMessagesStoreError(t *testing.T) {
	t.Parallel()

	s := &stubStore{listSentErr: errors.New("store down")}
	h := newTestHandler(testConfig(), &stubProvider{}, s)

	req := httptest.NewRequest(http.MethodGet, "/api/sent-messages", nil)
	rec := httptest.NewRecorder()
	h.SentMessages(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHealthReady(t *testing.T) {
	t.Parallel()

	h := newTestHandler(testConfig(), &stubProvider{}, &stubStore{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil)
	rec := httptest.NewRecorder()
	h.HealthReady(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}

	h = newTestHandler(testConfig(), &stubProvider{pingErr: errors.New("down")}, &stubStore{})
	rec = httptest.NewRecorder()
	h.HealthReady(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded status = %d, want 503", rec.Code)
	}
}
