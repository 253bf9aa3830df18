// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestProtection(t *testing.T, maxAttempts int) (*LoginProtection, *time.Time) {
	t.Helper()
	lp := NewLoginProtection(LoginProtectionConfig{
		IPRateLimit:       10,
		IPBurst:           100,
		MaxFailedAttempts: maxAttempts,
		LockoutDuration:   time.Minute,
		AttemptWindow:     10 * time.Minute,
	})
	t.Cleanup(lp.Stop)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	lp.now = func() time.Time { return now }
	return lp, &now
}

func TestDefaultLoginProtectionConfig(t *testing.T) {
	cfg := DefaultLoginProtectionConfig()
	assert.Equal(t, 0.5, cfg.IPRateLimit)
	assert.Equal(t, 5, cfg.IPBurst)
	assert.Equal(t, 5, cfg.MaxFailedAttempts)
	assert.Equal(t, 15*time.Minute, cfg.LockoutDuration)

	lp := NewLoginProtection(LoginProtectionConfig{})
	defer lp.Stop()
	assert.Equal(t, 5, lp.maxFailedAttempts)
}

func TestLoginProtection_Lockout(t *testing.T) {
	lp, _ := newTestProtection(t, 3)

	locked, _ := lp.RecordFailedAttempt("Admin@Clinic.test")
	assert.False(t, locked)
	locked, _ = lp.RecordFailedAttempt("admin@clinic.test ")
	assert.False(t, locked)
	assert.Equal(t, 1, lp.RemainingAttempts("admin@clinic.test"))

	locked, d := lp.RecordFailedAttempt("admin@clinic.test")
	assert.True(t, locked)
	assert.Equal(t, time.Minute, d)

	isLocked, remaining := lp.IsAccountLocked("ADMIN@clinic.test")
	assert.True(t, isLocked)
	assert.Equal(t, time.Minute, remaining)
}

func TestLoginProtection_BackoffAndExpiry(t *testing.T) {
	lp, now := newTestProtection(t, 2)
	email := "a@clinic.test"

	lp.RecordFailedAttempt(email)
	_, first := lp.RecordFailedAttempt(email)
	assert.Equal(t, time.Minute, first)

	*now = now.Add(2 * time.Minute)
	locked, _ := lp.IsAccountLocked(email)
	assert.False(t, locked, "lockout expires")

	lp.RecordFailedAttempt(email)
	_, second := lp.RecordFailedAttempt(email)
	assert.Equal(t, 2*time.Minute, second, "repeat lockouts double")
}

func TestLoginProtection_WindowResets(t *testing.T) {
	lp, now := newTestProtection(t, 3)
	email := "b@clinic.test"

	lp.RecordFailedAttempt(email)
	lp.RecordFailedAttempt(email)
	*now = now.Add(11 * time.Minute)

	assert.Equal(t, 3, lp.RemainingAttempts(email))
	locked, _ := lp.RecordFailedAttempt(email)
	assert.False(t, locked)
}

func TestLoginProtection_SuccessClears(t *testing.T) {
	lp, _ := newTestProtection(t, 3)
	email := "c@clinic.test"

	lp.RecordFailedAttempt(email)
	lp.RecordFailedAttempt(email)
	lp.RecordSuccessfulLogin(email)
	assert.Equal(t, 3, lp.RemainingAttempts(email))
}

func TestLoginProtection_Cleanup(t *testing.T) {
	lp, now := newTestProtection(t, 3)
	lp.RecordFailedAttempt("d@clinic.test")
	*now = now.Add(time.Hour)
	lp.cleanupStaleEntries()

	lp.mu.Lock()
	defer lp.mu.Unlock()
	assert.Empty(t, lp.attempts)
}

func TestLoginProtection_Middleware(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{IPRateLimit: 0.001, IPBurst: 2})
	defer lp.Stop()

	h := lp.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "192.0.2.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	// GET is never limited
	rec := httptest.NewRecorder()
	get := httptest.NewRequest(http.MethodGet, "/login", nil)
	get.RemoteAddr = "192.0.2.1:5555"
	h.ServeHTTP(rec, get)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.4:1234"
	assert.Equal(t, "198.51.100.4", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", ClientIP(req))

	req.Header.Set("X-Real-IP", "203.0.113.10")
	assert.Equal(t, "203.0.113.10", ClientIP(req))
}
