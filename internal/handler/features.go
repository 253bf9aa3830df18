// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"
)

type featuresKey struct{}

// Features tracks which admin sections are switched off. The zero value has
// every section enabled.
type Features struct {
	mu       sync.RWMutex
	disabled map[string]bool
}

// NewFeatures creates Features with the named sections disabled.
func NewFeatures(disabled []string) *Features {
	f := &Features{disabled: make(map[string]bool)}
	for _, name := range disabled {
		if name = normalizeFeature(name); name != "" {
			f.disabled[name] = true
		}
	}
	return f
}

// Enabled reports whether the section is enabled. A nil Features enables everything.
func (f *Features) Enabled(name string) bool {
	if f == nil {
		return true
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return !f.disabled[normalizeFeature(name)]
}

// Set enables or disables a section.
func (f *Features) Set(name string, enabled bool) {
	name = normalizeFeature(name)
	if name == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.disabled == nil {
		f.disabled = make(map[string]bool)
	}
	if enabled {
		delete(f.disabled, name)
	} else {
		f.disabled[name] = true
	}
}

// Disabled returns the disabled section names, sorted.
func (f *Features) Disabled() []string {
	if f == nil {
		return nil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.disabled))
	for name := range f.disabled {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Middleware stores f in the request context.
func (f *Features) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithFeatures(r.Context(), f)))
	})
}

// WithFeatures returns a context carrying f.
func WithFeatures(ctx context.Context, f *Features) context.Context {
	return context.WithValue(ctx, featuresKey{}, f)
}

// FeaturesFrom returns the Features in ctx, or nil (everything enabled).
func FeaturesFrom(ctx context.Context) *Features {
	f, _ := ctx.Value(featuresKey{}).(*Features)
	return f
}

func normalizeFeature(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
