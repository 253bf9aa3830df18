// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

// testDB creates a temporary migrated database.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "nested", "clinic-test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestMigrate_CreatesTables(t *testing.T) {
	db := testDB(t)

	for _, table := range []string{"sessions", "events"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	n, err := Migrate(context.Background(), db)
	if err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if n != 0 {
		t.Errorf("second Migrate applied %d migrations, want 0", n)
	}
}

func TestCreateEvent(t *testing.T) {
	db := testDB(t)
	q := New(db)
	ctx := context.Background()

	e, err := q.CreateEvent(ctx, CreateEventParams{
		Level:     EventLevelInfo,
		Category:  EventCategoryAuth,
		Message:   "admin logged in",
		Actor:     "dana",
		IPAddress: "127.0.0.1",
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if e.ID == 0 {
		t.Error("expected generated id")
	}
	if e.Metadata != "{}" {
		t.Errorf("Metadata = %q, want {}", e.Metadata)
	}
	if e.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestListEvents_NewestFirst(t *testing.T) {
	db := testDB(t)
	q := New(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, msg := range []string{"first", "second", "third"} {
		_, err := q.CreateEvent(ctx, CreateEventParams{
			Level:     EventLevelWarning,
			Category:  EventCategorySystem,
			Message:   msg,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}

	events, err := q.ListEvents(ctx, ListEventsParams{Limit: 2})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Message != "third" || events[1].Message != "second" {
		t.Errorf("unexpected order: %q, %q", events[0].Message, events[1].Message)
	}

	n, err := q.CountEvents(ctx)
	if err != nil || n != 3 {
		t.Errorf("CountEvents = %d, %v; want 3", n, err)
	}

	removed, err := q.DeleteEventsBefore(ctx, base.Add(90*time.Second))
	if err != nil {
		t.Fatalf("DeleteEventsBefore: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed %d, want 2", removed)
	}
}
