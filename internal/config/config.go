// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains example secrets that must never be used.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	APIURL        string `env:"CLINIC_API_URL,required"`
	SessionSecret string `env:"CLINIC_SESSION_SECRET,required"`
	DBPath        string `env:"CLINIC_DB_PATH" envDefault:"./data/clinic-admin.db"`
	ServerHost    string `env:"CLINIC_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"CLINIC_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"CLINIC_ENV" envDefault:"development"`
	LogLevel      string `env:"CLINIC_LOG_LEVEL" envDefault:"info"`

	APITimeout   time.Duration `env:"CLINIC_API_TIMEOUT" envDefault:"15s"`
	PageSize     int           `env:"CLINIC_PAGE_SIZE" envDefault:"10"`
	PollInterval time.Duration `env:"CLINIC_POLL_INTERVAL" envDefault:"30s"`

	// Cache configuration
	RedisURL    string `env:"CLINIC_REDIS_URL"`                          // Optional Redis URL for shared unread counts
	CachePrefix string `env:"CLINIC_CACHE_PREFIX" envDefault:"clinic:"` // Redis key prefix

	// Optional MaxMind GeoLite2-Country database for login event origin
	GeoIPDBPath string `env:"CLINIC_GEOIP_DB_PATH"`

	// Admin sections turned off at startup, e.g. "leads,forms"
	DisabledSections []string `env:"CLINIC_DISABLED_SECTIONS" envSeparator:","`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// SectionDisabled reports whether name is listed in DisabledSections.
func (c Config) SectionDisabled(name string) bool {
	for _, s := range c.DisabledSections {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return true
		}
	}
	return false
}

// LogLevelValue maps LogLevel to a slog level; unknown values mean info.
func (c Config) LogLevelValue() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	u, err := url.Parse(cfg.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("CLINIC_API_URL must be an absolute http(s) URL, got %q", cfg.APIURL)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("CLINIC_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}
	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("CLINIC_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}
	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("CLINIC_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	if cfg.PageSize < 1 {
		cfg.PageSize = 10
	}
	if cfg.PollInterval < time.Second {
		return nil, fmt.Errorf("CLINIC_POLL_INTERVAL must be at least 1s, got %s", cfg.PollInterval)
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
