// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package api

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/smsrelay/internal/config"
	"github.com/tomtom215/smsrelay/internal/provider"
	"github.com/tomtom215/smsrelay/internal/relay"
	"github.com/tomtom215/smsrelay/internal/store"
)

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	cfg      *config.Config
	orch     *relay.Orchestrator
	provider provider.ClientInterface
	store    store.ClientInterface
	verifier *relay.Verifier
	migrator *relay.Migrator
	syncer   *relay.StatusSyncer

	// now is injectable for business-hours tests.
	now func() time.Time
}

// NewHandler wires the handler set.
func NewHandler(cfg *config.Config, orch *relay.Orchestrator, p provider.ClientInterface, s store.ClientInterface) *Handler {
	return &Handler{
		cfg:      cfg,
		orch:     orch,
		provider: p,
		store:    s,
		verifier: relay.NewVerifier(p, s, cfg.Provider.FromNumber),
		migrator: relay.NewMigrator(p, s, cfg.Provider.FromNumber, cfg.Sync.MigrationBatchSize, cfg.Sync.PaceInterval),
		syncer:   relay.NewStatusSyncer(p, s, cfg.Sync.PaceInterval),
		now:      time.Now,
	}
}

// authorize checks the shared-secret password carried in the request.
// Comparison is constant time. When no password is configured every
// request passes; returns false after writing a 401 otherwise.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, supplied string) bool {
	if h.cfg.Security.Password == "" {
		return true
	}
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(h.cfg.Security.Password)) == 1 {
		return true
	}
	respondError(w, http.StatusUnauthorized, "unauthorized")
	return false
}

// sourceIP identifies the caller for rate limiting. RealIP middleware
// has already rewritten RemoteAddr from X-Forwarded-For when present.
func sourceIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// maskNumber hides the last four digits of a phone number in log
// output.
func maskNumber(s string) string {
	if len(s) <= 4 {
		return "XXXX"
	}
	return s[:len(s)-4] + "XXXX"
}

// sanitizeLogValue strips newlines from request-derived strings before
// they reach the log, so a crafted value can't forge log records.
func sanitizeLogValue(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
