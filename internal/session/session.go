// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session holds the admin's API session (token and user) and enforces
// that both are present together or not at all.
package session

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

const (
	// Lifetime is how long an admin session cookie stays valid.
	Lifetime = 24 * time.Hour

	// IdleTimeout ends sessions with no requests for this long.
	IdleTimeout = 2 * time.Hour

	cookieName       = "clinic_admin"
	secureCookieName = "__Host-clinic_admin"
)

// New creates a session manager persisted in the SQLite sessions table.
func New(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()
	sm.Store = sqlite3store.New(db)

	sm.Lifetime = Lifetime
	sm.IdleTimeout = IdleTimeout
	sm.Cookie.Name = cookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"
	if !isDev {
		sm.Cookie.Secure = true
		sm.Cookie.Name = secureCookieName
	}

	return sm
}
