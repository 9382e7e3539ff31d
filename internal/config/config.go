// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the root configuration for the MediaNest sync core.
type Config struct {
	Backend    BackendConfig    `koanf:"backend"`
	RequestAPI RequestAPIConfig `koanf:"request_api"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	Ledger     LedgerConfig     `koanf:"ledger"`
	Cache      CacheConfig      `koanf:"cache"`
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// BackendConfig describes the status backend socket connection.
type BackendConfig struct {
	// URL is the backend base URL. http(s) schemes are normalized to
	// ws(s) before dialing.
	URL string `koanf:"url"`

	// Username and Password drive the optional login handshake emitted
	// right after connecting. Empty password skips the handshake.
	Username string `koanf:"username"`
	Password string `koanf:"password"`

	HandshakeTimeout time.Duration `koanf:"handshake_timeout"`
	PingInterval     time.Duration `koanf:"ping_interval"`
	PongWait         time.Duration `koanf:"pong_wait"`
	WriteWait        time.Duration `koanf:"write_wait"`

	// ReconnectInitialDelay and ReconnectMaxDelay bound the automatic
	// retry backoff. ReconnectDelay is the fixed pause used by an
	// explicit Reconnect() call.
	ReconnectInitialDelay time.Duration `koanf:"reconnect_initial_delay"`
	ReconnectMaxDelay     time.Duration `koanf:"reconnect_max_delay"`
	ReconnectDelay        time.Duration `koanf:"reconnect_delay"`

	// ProbeTimeout caps a connection-quality round trip.
	ProbeTimeout time.Duration `koanf:"probe_timeout"`

	// EmitPerSecond and EmitBurst pace outbound messages so reconnect
	// churn cannot flood the backend.
	EmitPerSecond float64 `koanf:"emit_per_second"`
	EmitBurst     int     `koanf:"emit_burst"`
}

// RequestAPIConfig describes the upstream media-request API the
// submission workflow calls.
type RequestAPIConfig struct {
	// URL is the API base URL. Empty disables submissions: they fail
	// with the standard user-safe message until configured.
	URL string `koanf:"url"`

	// Timeout caps one submission round trip.
	Timeout time.Duration `koanf:"timeout"`
}

// RateLimitConfig describes the user-request admission window.
type RateLimitConfig struct {
	// Limit is the number of requests admitted per window.
	Limit int `koanf:"limit"`

	// Window is the sliding admission window.
	Window time.Duration `koanf:"window"`
}

// LedgerConfig describes the durable admission-ledger store.
type LedgerConfig struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string `koanf:"path"`

	// InMemory keeps the ledger in process memory. Intended for tests;
	// the ledger loses its restart-survival guarantee when enabled.
	InMemory bool `koanf:"in_memory"`
}

// CacheConfig describes the shared record cache.
type CacheConfig struct {
	// MarkerTTL is how long a record keeps its "just updated" marker.
	MarkerTTL time.Duration `koanf:"marker_ttl"`
}

// ServerConfig describes the HTTP surface.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RequestsPerMinute is the per-client HTTP throttle (httprate),
	// separate from the domain admission window.
	RequestsPerMinute int `koanf:"requests_per_minute"`

	// AllowedOrigins is the CORS allow-list for the dashboard UI.
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// LoggingConfig mirrors logging.Config for file/env configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied.
// Defaults are loaded first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:                   "",
			Username:              "admin",
			Password:              "",
			HandshakeTimeout:      10 * time.Second,
			PingInterval:          30 * time.Second,
			PongWait:              60 * time.Second,
			WriteWait:             10 * time.Second,
			ReconnectInitialDelay: 1 * time.Second,
			ReconnectMaxDelay:     32 * time.Second,
			ReconnectDelay:        1 * time.Second,
			ProbeTimeout:          5 * time.Second,
			EmitPerSecond:         10,
			EmitBurst:             20,
		},
		RequestAPI: RequestAPIConfig{
			URL:     "",
			Timeout: 15 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Limit:  20,
			Window: time.Hour,
		},
		Ledger: LedgerConfig{
			Path:     "/data/medianest/ledger",
			InMemory: false,
		},
		Cache: CacheConfig{
			MarkerTTL: 1 * time.Second,
		},
		Server: ServerConfig{
			Addr:              ":8090",
			ShutdownTimeout:   10 * time.Second,
			RequestsPerMinute: 120,
			AllowedOrigins:    []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks the configuration for values that would fail at runtime.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required (set MEDIANEST_BACKEND_URL)")
	}
	if _, err := NormalizeSocketURL(c.Backend.URL); err != nil {
		return fmt.Errorf("backend.url: %w", err)
	}
	if c.RequestAPI.URL != "" && c.RequestAPI.Timeout <= 0 {
		return fmt.Errorf("request_api.timeout must be positive, got %s", c.RequestAPI.Timeout)
	}
	if c.RateLimit.Limit <= 0 {
		return fmt.Errorf("rate_limit.limit must be positive, got %d", c.RateLimit.Limit)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be positive, got %s", c.RateLimit.Window)
	}
	if !c.Ledger.InMemory && c.Ledger.Path == "" {
		return fmt.Errorf("ledger.path is required unless ledger.in_memory is set")
	}
	if c.Cache.MarkerTTL <= 0 {
		return fmt.Errorf("cache.marker_ttl must be positive, got %s", c.Cache.MarkerTTL)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// NormalizeSocketURL converts an http(s) backend URL to its ws(s)
// equivalent. ws and wss URLs pass through unchanged.
func NormalizeSocketURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// Already a socket URL.
	default:
		return "", fmt.Errorf("unsupported scheme %q (want http, https, ws or wss)", u.Scheme)
	}

	if u.Host == "" {
		return "", fmt.Errorf("missing host in %q", raw)
	}

	return u.String(), nil
}
