// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"log/slog"
	"time"
)

// Config holds configuration for cache creation.
type Config struct {
	RedisURL        string // empty selects the memory cache
	Prefix          string
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
}

// New creates a Redis cache when RedisURL is set and reachable, falling back to
// memory otherwise. The second return value reports whether Redis is in use.
func New(cfg Config, logger *slog.Logger) (Cache, bool) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RedisURL != "" {
		prefix := cfg.Prefix
		if prefix == "" {
			prefix = "clinic:"
		}
		rc, err := NewRedisCache(RedisOptions{
			URL:        cfg.RedisURL,
			Prefix:     prefix,
			DefaultTTL: cfg.DefaultTTL,
		})
		if err == nil {
			return rc, true
		}
		logger.Warn("redis unavailable, using memory cache", "error", err)
	}

	cleanup := cfg.CleanupInterval
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		CleanupInterval: cleanup,
	}), false
}
