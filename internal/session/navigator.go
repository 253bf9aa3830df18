// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"sync"
)

type navigatorKey struct{}

// Navigator records a redirect requested while handling a request, so code deep
// in the call stack (the API client's auth observer) can send the browser to login.
type Navigator struct {
	mu     sync.Mutex
	target string
}

// WithNavigator attaches a fresh Navigator to ctx.
func WithNavigator(ctx context.Context) (context.Context, *Navigator) {
	n := &Navigator{}
	return context.WithValue(ctx, navigatorKey{}, n), n
}

// RedirectTo asks the Navigator in ctx, if any, to redirect to path.
func RedirectTo(ctx context.Context, path string) {
	if n, ok := ctx.Value(navigatorKey{}).(*Navigator); ok {
		n.mu.Lock()
		n.target = path
		n.mu.Unlock()
	}
}

// RedirectTarget returns the redirect requested in ctx, or "".
func RedirectTarget(ctx context.Context) string {
	n, ok := ctx.Value(navigatorKey{}).(*Navigator)
	if !ok {
		return ""
	}
	return n.Target()
}

// Target returns the requested redirect path, or "".
func (n *Navigator) Target() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.target
}
