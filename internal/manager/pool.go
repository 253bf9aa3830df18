// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package manager

import (
	"log/slog"
	"sync"
	"time"

	"github.com/olegiv/clinic-admin/internal/resource"
)

// Pool keeps one Manager per (owner, resource) pair, where the owner is an admin session.
// Releasing an owner closes its managers so late responses are ignored.
type Pool struct {
	api    API
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]map[string]*poolEntry
}

type poolEntry struct {
	manager  *Manager
	lastUsed time.Time
}

// NewPool creates a Pool backed by api.
func NewPool(api API, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		api:     api,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]map[string]*poolEntry),
	}
}

// Get returns the owner's manager for def, creating it on first use.
func (p *Pool) Get(owner string, def resource.Definition) *Manager {
	p.mu.Lock()
	defer p.mu.Unlock()

	byName, ok := p.entries[owner]
	if !ok {
		byName = make(map[string]*poolEntry)
		p.entries[owner] = byName
	}
	e, ok := byName[def.Name]
	if !ok {
		e = &poolEntry{manager: New(p.api, def, WithLogger(p.logger.With("resource", def.Name)))}
		byName[def.Name] = e
	}
	e.lastUsed = p.now()
	return e.manager
}

// Release closes and forgets all managers of owner.
func (p *Pool) Release(owner string) {
	p.mu.Lock()
	byName := p.entries[owner]
	delete(p.entries, owner)
	p.mu.Unlock()

	for _, e := range byName {
		e.manager.Close()
	}
}

// Sweep releases owners whose managers have all been idle longer than maxIdle.
// It returns the number of owners released.
func (p *Pool) Sweep(maxIdle time.Duration) int {
	cutoff := p.now().Add(-maxIdle)

	p.mu.Lock()
	var stale []string
	for owner, byName := range p.entries {
		idle := true
		for _, e := range byName {
			if e.lastUsed.After(cutoff) {
				idle = false
				break
			}
		}
		if idle {
			stale = append(stale, owner)
		}
	}
	p.mu.Unlock()

	for _, owner := range stale {
		p.Release(owner)
	}
	if len(stale) > 0 {
		p.logger.Debug("released idle managers", "owners", len(stale))
	}
	return len(stale)
}

// Len returns the number of owners with live managers.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
