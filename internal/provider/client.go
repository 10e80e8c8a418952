// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

// Package provider implements the HTTP client for the telephony
// provider's messaging API: sending SMS, listing the outbound log,
// and fetching single message records. The API is form-encoded on
// write, JSON on read, and authenticated with basic auth using the
// account SID and auth token.
package provider

import (
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
)

// ClientInterface defines the provider operations the relay uses.
// *Client and *CircuitBreakerClient both implement it; handlers and
// tests depend on the interface.
type ClientInterface interface {
	CreateMessage(ctx context.Context, to, body string) (*Message, error)
	ListMessages(ctx context.Context, opts ListOptions) ([]Message, error)
	FetchMessage(ctx context.Context, sid string) (*Message, error)
	Ping(ctx context.Context) error
}

// Message is the provider's wire representation of an SMS.
type Message struct {
	Sid          string  `json:"sid"`
	To           string  `json:"to"`
	From         string  `json:"from"`
	Body         string  `json:"body"`
	Status       string  `json:"status"`
	DateSent     string  `json:"date_sent"`
	DateCreated  string  `json:"date_created"`
	Price        *string `json:"price"`
	PriceUnit    *string `json:"price_unit"`
	ErrorCode    *int    `json:"error_code"`
	ErrorMessage *string `json:"error_message"`
	Direction    string  `json:"direction"`
	NumSegments  string  `json:"num_segments"`
}

// SentTime parses the message's sent timestamp, falling back to the
// creation timestamp for messages not yet dispatched. The provider
// uses RFC 1123 with a numeric zone.
func (m *Message) SentTime() (time.Time, error) {
	s := m.DateSent
	if s == "" {
		s = m.DateCreated
	}
	if s == "" {
		return time.Time{}, fmt.Errorf("message %s has no timestamp", m.Sid)
	}
	return time.Parse(time.RFC1123Z, s)
}

// messageList is the envelope for list responses.
type messageList struct {
	Messages []Message `json:"messages"`
}

// ListOptions narrow a message listing.
type ListOptions struct {
	From      string
	PageSize  int
	SentAfter time.Time
}

// Client talks to the provider's REST API.
type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	callback   string
	httpClient *http.Client
}

// NewClient creates a provider client from configuration.
func NewClient(cfg *config.ProviderConfig) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.FromNumber,
		callback:   cfg.StatusCallbackURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// messagesURL returns the account-scoped Messages resource URL, with
// an optional "/{sid}" suffix baked in by the caller.
func (c *Client) messagesURL(suffix string) string {
	return fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages%s.json", c.baseURL, c.accountSID, suffix)
}

// CreateMessage submits an outbound SMS from the configured sender
// number. Provider-side rejections come back as *APIError.
func (c *Client) CreateMessage(ctx context.Context, to, body string) (*Message, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.from)
	form.Set("Body", body)
	if c.callback != "" {
		form.Set("StatusCallback", c.callback)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.messagesURL(""), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var msg Message
	if err := c.do(req, "create_message", &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages retrieves the outbound message log, newest first.
func (c *Client) ListMessages(ctx context.Context, opts ListOptions) ([]Message, error) {
	q := url.Values{}
	if opts.From != "" {
		q.Set("From", opts.From)
	}
	if opts.PageSize > 0 {
		q.Set("PageSize", strconv.Itoa(opts.PageSize))
	}
	if !opts.SentAfter.IsZero() {
		q.Set("DateSent>", opts.SentAfter.UTC().Format("2006-01-02"))
	}

	u := c.messagesURL("")
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var list messageList
	if err := c.do(req, "list_messages", &list); err != nil {
		return nil, err
	}
	return list.Messages, nil
}

// FetchMessage retrieves a single message record by Sid.
func (c *Client) FetchMessage(ctx context.Context, sid string) (*Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.messagesURL("/"+url.PathEscape(sid)), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var msg Message
	if err := c.do(req, "fetch_message", &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Ping verifies credentials and connectivity with a one-row listing.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ListMessages(ctx, ListOptions{PageSize: 1})
	return err
}

// do executes an authenticated request and decodes the JSON response
// into out. Non-2xx responses are decoded into *APIError.
func (c *Client) do(req *http.Request, operation string, out interface{}) error {
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("reading response: %w", err)
	}

	logging.Debug().
		Str("operation", operation).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Provider request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ProviderRequests.WithLabelValues(operation, "api_error").Inc()
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("provider returned HTTP %d", resp.StatusCode)
		}
		return apiErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		metrics.ProviderRequests.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("decoding response: %w", err)
	}

	metrics.ProviderRequests.WithLabelValues(operation, "success").Inc()
	return nil
}
