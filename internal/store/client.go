// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

// Package store implements the datastore client. The datastore exposes
// its tables over a PostgREST-style interface: rows are JSON, filters
// are query parameters like "Sid=eq.SM1", and writes are authenticated
// with the service key in both the apikey header and a bearer token.
//
// Two tables back the relay: incoming_messages for inbound SMS and
// sent_messages mirroring the provider's outbound log.
package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/smsrelay/internal/config"
	"github.com/tomtom215/smsrelay/internal/logging"
	"github.com/tomtom215/smsrelay/internal/metrics"
	"github.com/tomtom215/smsrelay/internal/models"
)

const (
	incomingTable = "incoming_messages"
	sentTable     = "sent_messages"
)

// ClientInterface defines the datastore operations the relay uses.
type ClientInterface interface {
	InsertIncoming(ctx context.Context, msg *models.IncomingMessage) error
	ListIncoming(ctx context.Context, limit int) ([]models.IncomingMessage, error)
	MarkReadByIDs(ctx context.Context, ids []int64) error
	MarkReadByNumber(ctx context.Context, fromNumber string) error
	InsertSent(ctx context.Context, msg *models.SentMessage) error
	ListSent(ctx context.Context, limit int) ([]models.SentMessage, error)
	InsertSentBatch(ctx context.Context, msgs []models.SentMessage) error
	ListSentSince(ctx context.Context, since time.Time) ([]models.SentMessage, error)
	ListSentSids(ctx context.Context) (map[string]bool, error)
	ListPendingSent(ctx context.Context, since time.Time) ([]models.SentMessage, error)
	UpdateSentStatus(ctx context.Context, sid string, msg *models.SentMessage) error
	Ping(ctx context.Context) error
}

// Client talks to the datastore's REST interface.
type Client struct {
	baseURL    string
	serviceKey string
	anonKey    string
	httpClient *http.Client
}

// NewClient creates a datastore client from configuration.
func NewClient(cfg *config.StoreConfig) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		serviceKey: cfg.ServiceKey,
		anonKey:    cfg.AnonKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// tableURL builds the REST URL for a table with optional filters.
func (c *Client) tableURL(table string, query url.Values) string {
	u := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// InsertIncoming stores an inbound message.
func (c *Client) InsertIncoming(ctx context.Context, msg *models.IncomingMessage) error {
	return c.write(ctx, http.MethodPost, c.tableURL(incomingTable, nil), "insert_incoming", msg)
}

// ListIncoming returns the newest inbound messages, up to limit. The
// inbox listing is served with the anon key when one is configured:
// the row-level policy on incoming_messages allows anonymous reads,
// and keeping the service key off this hot path limits its exposure.
func (c *Client) ListIncoming(ctx context.Context, limit int) ([]models.IncomingMessage, error) {
	q := url.Values{}
	q.Set("order", "timestamp.desc")
	q.Set("limit", strconv.Itoa(limit))

	var msgs []models.IncomingMessage
	if err := c.readWith(ctx, c.tableURL(incomingTable, q), "list_incoming", c.anonOrService(), &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkReadByIDs flips the given inbound messages to read.
func (c *Client) MarkReadByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	q := url.Values{}
	q.Set("id", "in.("+strings.Join(parts, ",")+")")

	patch := map[string]bool{"read": true}
	return c.write(ctx, http.MethodPatch, c.tableURL(incomingTable, q), "mark_read", patch)
}

// MarkReadByNumber flips every inbound message from a sender to read.
func (c *Client) MarkReadByNumber(ctx context.Context, fromNumber string) error {
	q := url.Values{}
	q.Set("from_number", "eq."+fromNumber)

	patch := map[string]bool{"read": true}
	return c.write(ctx, http.MethodPatch, c.tableURL(incomingTable, q), "mark_read", patch)
}

// InsertSent records one outbound message.
func (c *Client) InsertSent(ctx context.Context, msg *models.SentMessage) error {
	return c.write(ctx, http.MethodPost, c.tableURL(sentTable, nil), "insert_sent", msg)
}

// InsertSentBatch records a batch of outbound messages in one request.
func (c *Client) InsertSentBatch(ctx context.Context, msgs []models.SentMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	return c.write(ctx, http.MethodPost, c.tableURL(sentTable, nil), "insert_sent_batch", msgs)
}

// ListSent returns the newest outbound rows, up to limit.
func (c *Client) ListSent(ctx context.Context, limit int) ([]models.SentMessage, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "SentDate.desc")
	q.Set("limit", strconv.Itoa(limit))

	var msgs []models.SentMessage
	if err := c.read(ctx, c.tableURL(sentTable, q), "list_sent_recent", &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListSentSince returns outbound rows sent on or after the given time.
func (c *Client) ListSentSince(ctx context.Context, since time.Time) ([]models.SentMessage, error) {
	q := url.Values{}
	q.Set("SentDate", "gte."+since.UTC().Format("2006-01-02"))

	var msgs []models.SentMessage
	if err := c.read(ctx, c.tableURL(sentTable, q), "list_sent", &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListSentSids returns the set of provider Sids already stored. Used
// by the migrator to skip rows that are already present.
func (c *Client) ListSentSids(ctx context.Context) (map[string]bool, error) {
	q := url.Values{}
	q.Set("select", "Sid")

	var rows []struct {
		Sid string `json:"Sid"`
	}
	if err := c.read(ctx, c.tableURL(sentTable, q), "list_sent_sids", &rows); err != nil {
		return nil, err
	}

	sids := make(map[string]bool, len(rows))
	for _, r := range rows {
		sids[r.Sid] = true
	}
	return sids, nil
}

// ListPendingSent returns outbound rows still in a non-terminal
// status, sent on or after the given time.
func (c *Client) ListPendingSent(ctx context.Context, since time.Time) ([]models.SentMessage, error) {
	q := url.Values{}
	q.Set("SentDate", "gte."+since.UTC().Format("2006-01-02"))
	q.Set("Status", "in.("+strings.Join(models.NonTerminalStatuses, ",")+")")

	var msgs []models.SentMessage
	if err := c.read(ctx, c.tableURL(sentTable, q), "list_pending_sent", &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// UpdateSentStatus patches the row for sid with the provider's current
// delivery fields.
func (c *Client) UpdateSentStatus(ctx context.Context, sid string, msg *models.SentMessage) error {
	q := url.Values{}
	q.Set("Sid", "eq."+sid)

	patch := map[string]interface{}{
		"Status":    msg.Status,
		"Price":     msg.Price,
		"ErrorCode": msg.ErrorCode,
	}
	return c.write(ctx, http.MethodPatch, c.tableURL(sentTable, q), "update_sent_status", patch)
}

// Ping verifies connectivity with a zero-row read.
func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("limit", "1")
	q.Set("select", "id")

	var rows []struct {
		ID int64 `json:"id"`
	}
	return c.read(ctx, c.tableURL(incomingTable, q), "ping", &rows)
}

func setAuth(req *http.Request, key string) {
	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", "Bearer "+key)
}

// anonOrService returns the anon key when one is configured, falling
// back to the service key for deployments that only set one key.
func (c *Client) anonOrService() string {
	if c.anonKey != "" {
		return c.anonKey
	}
	return c.serviceKey
}

// read executes a GET with the service key and decodes the JSON array
// response into out.
func (c *Client) read(ctx context.Context, u, operation string, out interface{}) error {
	return c.readWith(ctx, u, operation, c.serviceKey, out)
}

func (c *Client) readWith(ctx context.Context, u, operation, key string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	setAuth(req, key)
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, operation)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		metrics.StoreRequests.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// write executes a POST or PATCH with a JSON body and discards any
// representation in the response.
func (c *Client) write(ctx context.Context, method, u, operation string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	setAuth(req, c.serviceKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	_, err = c.do(req, operation)
	return err
}

func (c *Client) do(req *http.Request, operation string) ([]byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.StoreRequests.WithLabelValues(operation, "error").Inc()
		return nil, fmt.Errorf("store request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		metrics.StoreRequests.WithLabelValues(operation, "error").Inc()
		return nil, fmt.Errorf("reading response: %w", err)
	}

	logging.Debug().
		Str("operation", operation).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Store request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.StoreRequests.WithLabelValues(operation, "api_error").Inc()
		return nil, fmt.Errorf("store returned HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	metrics.StoreRequests.WithLabelValues(operation, "success").Inc()
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
