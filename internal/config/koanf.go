// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/smsrelay/config.yaml",
	"/etc/smsrelay/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied. Defaults are
// loaded first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			BaseURL: "https://api.twilio.com",
			Timeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Timeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    7726,
			Timeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			Password:        "",
			CORSOrigins:     []string{}, // empty by default, requires explicit configuration
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Guard: GuardConfig{
			HourlyMax:      10,
			DailyMax:       100,
			AllowedNumbers: []string{},
			BlockedWords:   []string{},
		},
		Webhook: WebhookConfig{
			OptOutReply:       "You've been unsubscribed from SMS updates. Reply START to resubscribe.",
			OptInReply:        "Welcome back! You're now subscribed to SMS updates.",
			AfterHoursReply:   "Thanks for your message. We received it and will respond during business hours (9 AM - 6 PM).",
			BusinessOpenHour:  9,
			BusinessCloseHour: 18,
		},
		Sync: SyncConfig{
			Enabled:            false,
			Interval:           15 * time.Minute,
			Window:             24 * time.Hour,
			PaceInterval:       100 * time.Millisecond,
			MigrationBatchSize: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML (if found)
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Comma-separated env values become slices for known slice fields
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns empty string if none is found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated slices.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"guard.allowed_numbers",
	"guard.blocked_words",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars arrive as strings; YAML values are already
// slices and are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// legacyEnvVars maps environment variable names from the original serverless
// deployment to config paths, so existing .env files keep working.
var legacyEnvVars = map[string]string{
	"TWILIO_ACCOUNT_SID":        "provider.account_sid",
	"TWILIO_AUTH_TOKEN":         "provider.auth_token",
	"TWILIO_PHONE_NUMBER":       "provider.from_number",
	"SUPABASE_URL":              "store.url",
	"SUPABASE_SERVICE_ROLE_KEY": "store.service_key",
	"SUPABASE_SERVICE_KEY":      "store.service_key",
	"SUPABASE_ANON_KEY":         "store.anon_key",
	"APP_PASSWORD":              "security.password",
	"ALLOWED_ORIGINS":           "security.cors_origins",
	"ALLOWED_NUMBERS":           "guard.allowed_numbers",
	"BLOCKED_WORDS":             "guard.blocked_words",
	"MAX_REQUESTS_PER_HOUR":     "guard.hourly_max",
	"DAILY_SMS_LIMIT":           "guard.daily_max",
	"HTTP_PORT":                 "server.port",
	"LOG_LEVEL":                 "logging.level",
	"LOG_FORMAT":                "logging.format",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - PROVIDER_ACCOUNT_SID -> provider.account_sid
//   - GUARD_HOURLY_MAX     -> guard.hourly_max
//   - TWILIO_ACCOUNT_SID   -> provider.account_sid (legacy)
//
// Unknown variables without a recognized prefix are dropped so unrelated
// environment noise cannot leak into the config tree.
func envTransformFunc(key string) string {
	if path, ok := legacyEnvVars[key]; ok {
		return path
	}

	lower := strings.ToLower(key)
	for _, prefix := range []string{"provider_", "store_", "server_", "security_", "guard_", "webhook_", "sync_", "logging_"} {
		if strings.HasPrefix(lower, prefix) {
			section := strings.TrimSuffix(prefix, "_")
			return section + "." + strings.TrimPrefix(lower, prefix)
		}
	}
	return ""
}
