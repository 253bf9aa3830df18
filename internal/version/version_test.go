// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package version

import "testing"

func TestString(t *testing.T) {
	info := Info{
		Version:   "v1.0.0",
		GitCommit: "abc1234",
		BuildTime: "2025-01-30T12:00:00Z",
	}

	want := "v1.0.0 (commit: abc1234, built: 2025-01-30T12:00:00Z)"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestStringZeroValue(t *testing.T) {
	var info Info

	want := "dev (commit: unknown, built: unknown)"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestUserAgent(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{Version: "v2.1.0"}, "clinic-admin/v2.1.0"},
		{Info{}, "clinic-admin/dev"},
	}
	for _, tt := range tests {
		if got := tt.info.UserAgent("clinic-admin"); got != tt.want {
			t.Errorf("UserAgent() = %q, want %q", got, tt.want)
		}
	}
}
