// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// login protection and request context handling.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/olegiv/clinic-admin/internal/apiclient"
	"github.com/olegiv/clinic-admin/internal/session"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys.
const (
	ContextKeySession     ContextKey = "session"
	ContextKeyRequestPath ContextKey = "request_path"
)

// RequireAuth guards admin routes. It runs before any handler that fetches data:
// without a complete session the request is redirected to the login page and
// nothing is fetched. It also installs the Navigator the API client's auth
// observer reports redirects to.
func RequireAuth(auth *session.Auth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, _ := session.WithNavigator(r.Context())
			s := auth.Current(ctx)
			if !s.IsAuthenticated() {
				RedirectToLogin(w, r)
				return
			}
			ctx = context.WithValue(ctx, ContextKeySession, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RedirectToLogin sends the client to the login page. Script requests get a
// 401 JSON body naming the redirect instead of a 303.
func RedirectToLogin(w http.ResponseWriter, r *http.Request) {
	if WantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":    "unauthenticated",
			"redirect": session.LoginPath,
		})
		return
	}
	http.Redirect(w, r, session.LoginPath, http.StatusSeeOther)
}

// WantsJSON reports whether the request was made by admin scripts expecting JSON.
func WantsJSON(r *http.Request) bool {
	if r.Header.Get("X-Requested-With") == "fetch" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// GetSession returns the authenticated session stored by RequireAuth.
func GetSession(r *http.Request) session.Session {
	s, _ := r.Context().Value(ContextKeySession).(session.Session)
	return s
}

// GetUser returns the current admin user, or nil.
func GetUser(r *http.Request) *apiclient.User {
	return GetSession(r).User
}

// GetUsername returns the current admin's username, or "".
func GetUsername(r *http.Request) string {
	if u := GetUser(r); u != nil {
		return u.Username
	}
	return ""
}

// RequestPath stores the request path in the context for log records.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath retrieves the request path from the context.
func GetRequestPath(ctx context.Context) string {
	path, _ := ctx.Value(ContextKeyRequestPath).(string)
	return path
}
