// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/alexedwards/scs/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/olegiv/clinic-admin/internal/apiclient"
)

// Session keys.
const (
	KeyToken = "auth_token"
	KeyUser  = "auth_user"
)

// LoginPath is where unauthenticated admins are sent.
const LoginPath = "/login"

// ErrMissingCredentials is returned when login is attempted with an empty field.
var ErrMissingCredentials = errors.New("session: email and password are required")

// LoginError wraps a failed login so the form can show why.
type LoginError struct {
	Err error
}

func (e *LoginError) Error() string {
	return "session: login failed: " + e.Err.Error()
}

func (e *LoginError) Unwrap() error {
	return e.Err
}

// Session is the authenticated admin's token and user.
type Session struct {
	Token string
	User  *apiclient.User
}

// IsAuthenticated reports whether both token and user are present.
func (s Session) IsAuthenticated() bool {
	return s.Token != "" && s.User != nil
}

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (apiclient.LoginResult, error)
}

// EndFunc is notified when a session ends, with the key of the ended session.
type EndFunc func(ctx context.Context, key string)

// Auth is the admin auth context backed by scs. It also serves the API client as
// its token source and auth observer.
type Auth struct {
	sm     *scs.SessionManager
	api    Authenticator
	logger *slog.Logger

	mu    sync.RWMutex
	onEnd []EndFunc
}

// NewAuth creates an Auth.
func NewAuth(sm *scs.SessionManager, api Authenticator, logger *slog.Logger) *Auth {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auth{sm: sm, api: api, logger: logger}
}

// SetAuthenticator sets the login backend.
func (a *Auth) SetAuthenticator(api Authenticator) {
	a.api = api
}

// OnEnd registers fn to run whenever a session ends by logout or expiry.
func (a *Auth) OnEnd(fn EndFunc) {
	a.mu.Lock()
	a.onEnd = append(a.onEnd, fn)
	a.mu.Unlock()
}

// Current returns the session loaded in ctx. A half-present session (token
// without user or user without token) is cleared and reported as logged out.
func (a *Auth) Current(ctx context.Context) Session {
	if !a.loaded(ctx) {
		return Session{}
	}
	token := a.sm.GetString(ctx, KeyToken)
	rawUser := a.sm.GetString(ctx, KeyUser)
	if token == "" && rawUser == "" {
		return Session{}
	}

	var user *apiclient.User
	if rawUser != "" {
		var u apiclient.User
		if err := json.Unmarshal([]byte(rawUser), &u); err == nil {
			user = &u
		}
	}
	if token == "" || user == nil {
		a.logger.Warn("clearing inconsistent admin session", "has_token", token != "", "has_user", user != nil)
		a.clear(ctx)
		return Session{}
	}
	return Session{Token: token, User: user}
}

// Token implements apiclient.TokenSource.
func (a *Auth) Token(ctx context.Context) string {
	return a.Current(ctx).Token
}

// Key returns a stable, non-reversible identifier for the current session, or "".
func (a *Auth) Key(ctx context.Context) string {
	return KeyFor(a.Current(ctx).Token)
}

// KeyFor hashes a token into a session key.
func KeyFor(token string) string {
	if token == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}

// Login authenticates against the API and stores token and user together.
func (a *Auth) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Session{}, &LoginError{Err: ErrMissingCredentials}
	}
	if a.api == nil {
		return Session{}, &LoginError{Err: errors.New("no authenticator configured")}
	}

	res, err := a.api.Login(ctx, email, password)
	if err != nil {
		return Session{}, &LoginError{Err: err}
	}
	rawUser, err := json.Marshal(res.User)
	if err != nil {
		return Session{}, fmt.Errorf("session: encode user: %w", err)
	}

	// End any previous session before switching identity.
	if prev := a.Current(ctx); prev.IsAuthenticated() {
		a.notifyEnd(ctx, KeyFor(prev.Token))
	}
	if err := a.sm.RenewToken(ctx); err != nil {
		return Session{}, fmt.Errorf("session: renew token: %w", err)
	}
	a.sm.Put(ctx, KeyToken, res.Token)
	a.sm.Put(ctx, KeyUser, string(rawUser))

	user := res.User
	return Session{Token: res.Token, User: &user}, nil
}

// Logout clears token and user in one step.
func (a *Auth) Logout(ctx context.Context) error {
	s := a.Current(ctx)
	if s.IsAuthenticated() {
		a.notifyEnd(ctx, KeyFor(s.Token))
	}
	if !a.loaded(ctx) {
		return nil
	}
	if err := a.sm.Destroy(ctx); err != nil {
		return fmt.Errorf("session: destroy: %w", err)
	}
	return nil
}

// LoginRequired implements apiclient.AuthObserver.
func (a *Auth) LoginRequired(ctx context.Context) {
	RedirectTo(ctx, LoginPath)
}

// SessionExpired implements apiclient.AuthObserver: the stored session is cleared
// and the request is redirected to the login page.
func (a *Auth) SessionExpired(ctx context.Context) {
	if s := a.Current(ctx); s.IsAuthenticated() {
		a.notifyEnd(ctx, KeyFor(s.Token))
		a.logger.Info("admin session expired", "user", s.User.Username)
	}
	a.clear(ctx)
	RedirectTo(ctx, LoginPath)
}

// clear removes both keys together.
func (a *Auth) clear(ctx context.Context) {
	if !a.loaded(ctx) {
		return
	}
	a.sm.Remove(ctx, KeyToken)
	a.sm.Remove(ctx, KeyUser)
}

func (a *Auth) notifyEnd(ctx context.Context, key string) {
	a.mu.RLock()
	fns := append([]EndFunc(nil), a.onEnd...)
	a.mu.RUnlock()
	for _, fn := range fns {
		fn(ctx, key)
	}
}

// loaded reports whether ctx carries scs session data; scs panics otherwise.
func (a *Auth) loaded(ctx context.Context) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	_ = a.sm.Status(ctx)
	return true
}
