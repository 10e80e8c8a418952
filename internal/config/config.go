// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

// Package config holds all application configuration for SMS Relay.
//
// Configuration is loaded with Koanf v2 in three layers (highest wins):
//
//  1. Built-in defaults
//  2. Optional YAML config file (config.yaml)
//  3. Environment variables (PROVIDER_ACCOUNT_SID -> provider.account_sid)
//
// Legacy environment variable names from the original serverless deployment
// (TWILIO_ACCOUNT_SID, SUPABASE_URL, APP_PASSWORD, ...) are still honored;
// see envTransformFunc in koanf.go.
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"fmt"
	"regexp"
	"time"
)

// e164Pattern validates originating numbers at config time.
// Recipients are validated per request by the guard pipeline.
var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// Config is the root configuration object.
type Config struct {
	Provider ProviderConfig `koanf:"provider"`
	Store    StoreConfig    `koanf:"store"`
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Guard    GuardConfig    `koanf:"guard"`
	Webhook  WebhookConfig  `koanf:"webhook"`
	Sync     SyncConfig     `koanf:"sync"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ProviderConfig holds credentials and connection settings for the telephony
// provider (Twilio-compatible REST API).
//
// Environment Variables:
//   - PROVIDER_BASE_URL (default: https://api.twilio.com)
//   - PROVIDER_ACCOUNT_SID / TWILIO_ACCOUNT_SID
//   - PROVIDER_AUTH_TOKEN / TWILIO_AUTH_TOKEN
//   - PROVIDER_FROM_NUMBER / TWILIO_PHONE_NUMBER
//   - PROVIDER_STATUS_CALLBACK_URL: public URL of /api/webhook-status-update
type ProviderConfig struct {
	BaseURL           string        `koanf:"base_url"`
	AccountSID        string        `koanf:"account_sid"`
	AuthToken         string        `koanf:"auth_token"`
	FromNumber        string        `koanf:"from_number"`
	StatusCallbackURL string        `koanf:"status_callback_url"`
	Timeout           time.Duration `koanf:"timeout"`
}

// StoreConfig holds connection settings for the REST-accessible relational
// datastore (PostgREST-compatible, e.g. Supabase).
//
// The service key is used for all writes and privileged reads; the anon key,
// when set, is used for the public inbox listing. When the anon key is empty
// the service key is used everywhere.
type StoreConfig struct {
	URL        string        `koanf:"url"`
	ServiceKey string        `koanf:"service_key"`
	AnonKey    string        `koanf:"anon_key"`
	Timeout    time.Duration `koanf:"timeout"`
}

// ServerConfig holds HTTP server settings.
// Port 7726 spells "SPAM" on a phone keypad, the GSMA short code for
// reporting unwanted SMS.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// SecurityConfig holds the shared-secret gate and the outer HTTP limits.
//
// Password is the flat shared secret checked on every client-facing and
// admin endpoint. When empty, the gate is disabled (development only).
// The per-IP HTTP rate limit here is transport hygiene; the domain send
// quota lives in GuardConfig.
type SecurityConfig struct {
	Password          string        `koanf:"password"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// GuardConfig holds the outbound-send guard pipeline settings.
//
// Environment Variables (legacy names in parentheses):
//   - GUARD_HOURLY_MAX (MAX_REQUESTS_PER_HOUR): per-source sends per rolling hour
//   - GUARD_DAILY_MAX (DAILY_SMS_LIMIT): total sends per calendar day
//   - GUARD_ALLOWED_NUMBERS (ALLOWED_NUMBERS): recipient allow-list substrings
//   - GUARD_BLOCKED_WORDS (BLOCKED_WORDS): content block-list
type GuardConfig struct {
	HourlyMax      int      `koanf:"hourly_max"`
	DailyMax       int      `koanf:"daily_max"`
	AllowedNumbers []string `koanf:"allowed_numbers"`
	BlockedWords   []string `koanf:"blocked_words"`
}

// SyncConfig holds reconciliation settings shared by the admin endpoints and
// the optional background status-sync poller.
type SyncConfig struct {
	// Enabled starts the background status-sync poller. Off by default;
	// the POST /api/sync-message-status endpoint works either way.
	Enabled bool `koanf:"enabled"`

	// Interval between background poller runs.
	Interval time.Duration `koanf:"interval"`

	// Window is how far back the poller looks for non-terminal statuses.
	Window time.Duration `koanf:"window"`

	// PaceInterval is the fixed delay between provider fetches and between
	// migration batches, to avoid overwhelming the collaborators.
	PaceInterval time.Duration `koanf:"pace_interval"`

	// MigrationBatchSize is the number of records per store insert during
	// historical migration.
	MigrationBatchSize int `koanf:"migration_batch_size"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// WebhookConfig holds auto-reply texts and business hours for the
// incoming-message webhook. Empty reply texts suppress the corresponding
// auto-reply. Hours are local time, [open, close).
type WebhookConfig struct {
	OptOutReply       string `koanf:"opt_out_reply"`
	OptInReply        string `koanf:"opt_in_reply"`
	AfterHoursReply   string `koanf:"after_hours_reply"`
	BusinessOpenHour  int    `koanf:"business_open_hour"`
	BusinessCloseHour int    `koanf:"business_close_hour"`
}

// Validate checks the configuration for missing or malformed values.
// It is called by Load() after all layers are merged.
func (c *Config) Validate() error {
	if c.Provider.AccountSID == "" {
		return fmt.Errorf("provider.account_sid is required (PROVIDER_ACCOUNT_SID)")
	}
	if c.Provider.AuthToken == "" {
		return fmt.Errorf("provider.auth_token is required (PROVIDER_AUTH_TOKEN)")
	}
	if c.Provider.FromNumber == "" {
		return fmt.Errorf("provider.from_number is required (PROVIDER_FROM_NUMBER)")
	}
	if !e164Pattern.MatchString(c.Provider.FromNumber) {
		return fmt.Errorf("provider.from_number %q is not E.164", c.Provider.FromNumber)
	}
	if c.Store.URL == "" {
		return fmt.Errorf("store.url is required (STORE_URL)")
	}
	if c.Store.ServiceKey == "" {
		return fmt.Errorf("store.service_key is required (STORE_SERVICE_KEY)")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Guard.HourlyMax < 1 {
		return fmt.Errorf("guard.hourly_max must be positive, got %d", c.Guard.HourlyMax)
	}
	if c.Guard.DailyMax < 1 {
		return fmt.Errorf("guard.daily_max must be positive, got %d", c.Guard.DailyMax)
	}
	if c.Sync.Interval < time.Minute {
		return fmt.Errorf("sync.interval %s below 1m minimum", c.Sync.Interval)
	}
	if c.Sync.MigrationBatchSize < 1 {
		return fmt.Errorf("sync.migration_batch_size must be positive, got %d", c.Sync.MigrationBatchSize)
	}
	return nil
}
