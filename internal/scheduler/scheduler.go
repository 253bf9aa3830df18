// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the background jobs of the admin shell: periodic
// unread-count polling per admin session and housekeeping tasks.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/clinic-admin/internal/apiclient"
	"github.com/olegiv/clinic-admin/internal/cache"
)

// DefaultInterval is the unread polling period.
const DefaultInterval = 30 * time.Second

// CountFunc fetches the unread counts for one watched session, keyed by resource name.
type CountFunc func(ctx context.Context) (map[string]int, error)

// Scheduler polls unread counts on a fixed interval and stores the latest result in a cache.
type Scheduler struct {
	cron     *cron.Cron
	counts   *cache.Typed[map[string]int]
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	watches map[string]cron.EntryID
}

// New creates a scheduler instance.
func New(c cache.Cache, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:     cron.New(),
		counts:   cache.NewTyped[map[string]int](c, "unread:", 2*interval),
		interval: interval,
		timeout:  interval,
		logger:   logger,
		watches:  make(map[string]cron.EntryID),
	}
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()), "interval", s.interval)
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// Schedule adds a housekeeping job using a cron spec such as "@every 10m".
func (s *Scheduler) Schedule(spec string, fn func()) error {
	if _, err := s.cron.AddFunc(spec, fn); err != nil {
		return fmt.Errorf("scheduler: invalid spec %q: %w", spec, err)
	}
	return nil
}

// Watch starts polling for key. The first poll runs immediately. Watching an
// already watched key replaces its job.
func (s *Scheduler) Watch(key string, fn CountFunc) error {
	if key == "" {
		return errors.New("scheduler: empty watch key")
	}
	s.Unwatch(key)

	spec := "@every " + s.interval.String()
	id, err := s.cron.AddFunc(spec, func() { s.poll(key, fn) })
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	s.mu.Lock()
	s.watches[key] = id
	s.mu.Unlock()

	go s.poll(key, fn)
	return nil
}

// Unwatch stops polling for key and drops its cached counts.
func (s *Scheduler) Unwatch(key string) {
	s.mu.Lock()
	id, ok := s.watches[key]
	delete(s.watches, key)
	s.mu.Unlock()

	if ok {
		s.cron.Remove(id)
	}
	_ = s.counts.Delete(context.Background(), key)
}

// Watching reports whether key has an active poll job.
func (s *Scheduler) Watching(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.watches[key]
	return ok
}

// Counts returns the last polled counts for key.
func (s *Scheduler) Counts(ctx context.Context, key string) (map[string]int, bool) {
	return s.counts.Get(ctx, key)
}

func (s *Scheduler) poll(key string, fn CountFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	counts, err := fn(ctx)
	if err != nil {
		if apiclient.IsAuthError(err) {
			s.logger.Info("stopping unread polling, session no longer valid")
			s.Unwatch(key)
			return
		}
		s.logger.Warn("unread poll failed", "error", err)
		return
	}

	s.mu.Lock()
	_, active := s.watches[key]
	s.mu.Unlock()
	if !active {
		return
	}
	if err := s.counts.Set(ctx, key, counts); err != nil {
		s.logger.Warn("failed to cache unread counts", "error", err)
	}
}
