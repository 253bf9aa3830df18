// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Typed stores JSON-encoded values of type T in a Cache under a key namespace.
type Typed[T any] struct {
	cache      Cache
	namespace  string
	defaultTTL time.Duration
}

// NewTyped wraps c for values of type T; keys are prefixed with namespace.
func NewTyped[T any](c Cache, namespace string, defaultTTL time.Duration) *Typed[T] {
	return &Typed[T]{cache: c, namespace: namespace, defaultTTL: defaultTTL}
}

// Get returns the value stored under key and whether it was found.
func (t *Typed[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	data, err := t.cache.Get(ctx, t.namespace+key)
	if err != nil {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, false
	}
	return v, true
}

// Set stores value under key with the default TTL.
func (t *Typed[T]) Set(ctx context.Context, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return t.cache.Set(ctx, t.namespace+key, data, t.defaultTTL)
}

// Delete removes key.
func (t *Typed[T]) Delete(ctx context.Context, key string) error {
	return t.cache.Delete(ctx, t.namespace+key)
}
