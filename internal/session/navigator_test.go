// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"testing"
)

func TestRedirectTo_WithoutNavigator(t *testing.T) {
	ctx := context.Background()
	RedirectTo(ctx, "/login")

	if got := RedirectTarget(ctx); got != "" {
		t.Errorf("RedirectTarget() = %q, want empty", got)
	}
}

func TestRedirectTo_LastWins(t *testing.T) {
	ctx, nav := WithNavigator(context.Background())
	RedirectTo(ctx, "/admin")
	RedirectTo(ctx, "/login")

	if got := nav.Target(); got != "/login" {
		t.Errorf("Target() = %q, want /login", got)
	}
}
