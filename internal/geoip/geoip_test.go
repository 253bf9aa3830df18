// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package geoip

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_EmptyPath(t *testing.T) {
	l, err := Open("")
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	assert.False(t, l.Enabled())
	assert.NoError(t, l.Reload())
	assert.Equal(t, "", l.Country("8.8.8.8"))
}

func TestOpen_Missing(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "GeoLite2-Country.mmdb"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not found")
	require.NotNil(t, l)
	assert.False(t, l.Enabled())
}

func TestOpen_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.mmdb")
	require.NoError(t, os.WriteFile(path, []byte("not a database"), 0o600))

	l, err := Open(path)
	require.Error(t, err)
	assert.False(t, l.Enabled())
}

func TestCountry_Local(t *testing.T) {
	l, err := Open("")
	require.NoError(t, err)

	tests := []struct {
		ip   string
		want string
	}{
		{"127.0.0.1", CountryLocal},
		{"::1", CountryLocal},
		{"10.1.2.3", CountryLocal},
		{"172.20.0.5", CountryLocal},
		{"192.168.1.10", CountryLocal},
		{"fd00::1", CountryLocal},
		{"172.32.0.1", ""},
		{"not-an-ip", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.want, l.Country(tt.ip))
		})
	}
}
