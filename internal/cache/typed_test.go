// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"testing"
	"time"
)

type unreadCounts struct {
	Messages int `json:"messages"`
	Leads    int `json:"leads"`
}

func TestTyped_RoundTrip(t *testing.T) {
	mem := NewMemoryCache(MemoryCacheOptions{})
	defer func() { _ = mem.Close() }()
	ctx := context.Background()

	tc := NewTyped[unreadCounts](mem, "unread:", time.Minute)
	if err := tc.Set(ctx, "s1", unreadCounts{Messages: 3, Leads: 1}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok := tc.Get(ctx, "s1")
	if !ok {
		t.Fatal("expected value to be found")
	}
	if got.Messages != 3 || got.Leads != 1 {
		t.Errorf("unexpected value: %+v", got)
	}

	if _, err := mem.Get(ctx, "unread:s1"); err != nil {
		t.Errorf("expected namespaced key in underlying cache: %v", err)
	}
}

func TestTyped_MissAndCorrupt(t *testing.T) {
	mem := NewMemoryCache(MemoryCacheOptions{})
	defer func() { _ = mem.Close() }()
	ctx := context.Background()

	tc := NewTyped[unreadCounts](mem, "unread:", time.Minute)
	if _, ok := tc.Get(ctx, "nope"); ok {
		t.Error("expected miss")
	}

	_ = mem.Set(ctx, "unread:bad", []byte("{not json"), 0)
	if _, ok := tc.Get(ctx, "bad"); ok {
		t.Error("expected corrupt entry to be treated as a miss")
	}

	_ = tc.Set(ctx, "gone", unreadCounts{})
	_ = tc.Delete(ctx, "gone")
	if _, ok := tc.Get(ctx, "gone"); ok {
		t.Error("expected deleted entry to miss")
	}
}
