// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/olegiv/clinic-admin/internal/apiclient"
	"github.com/olegiv/clinic-admin/internal/geoip"
	"github.com/olegiv/clinic-admin/internal/i18n"
	"github.com/olegiv/clinic-admin/internal/middleware"
	"github.com/olegiv/clinic-admin/internal/render"
	"github.com/olegiv/clinic-admin/internal/scheduler"
	"github.com/olegiv/clinic-admin/internal/session"
	"github.com/olegiv/clinic-admin/internal/store"
)

// AuthHandler handles authentication routes.
type AuthHandler struct {
	auth            *session.Auth
	renderer        *render.Renderer
	queries         *store.Queries
	loginProtection *middleware.LoginProtection
	scheduler       *scheduler.Scheduler
	counter         *UnreadCounter
	geo             *geoip.Lookup
	logger          *slog.Logger
}

// AuthHandlerConfig holds the dependencies of an AuthHandler. LoginProtection,
// Scheduler, Counter and GeoIP are optional.
type AuthHandlerConfig struct {
	Auth            *session.Auth
	Renderer        *render.Renderer
	DB              *sql.DB
	LoginProtection *middleware.LoginProtection
	Scheduler       *scheduler.Scheduler
	Counter         *UnreadCounter
	GeoIP           *geoip.Lookup
	Logger          *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(cfg AuthHandlerConfig) *AuthHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		auth:            cfg.Auth,
		renderer:        cfg.Renderer,
		queries:         store.New(cfg.DB),
		loginProtection: cfg.LoginProtection,
		scheduler:       cfg.Scheduler,
		counter:         cfg.Counter,
		geo:             cfg.GeoIP,
		logger:          logger,
	}
}

// loginData is passed to the login template.
type loginData struct {
	Email string
}

// LoginForm renders the login page. Authenticated admins go to the dashboard.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if h.auth.Current(r.Context()).IsAuthenticated() {
		http.Redirect(w, r, redirectAdmin, http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, loginData{Email: r.URL.Query().Get("email")}, "")
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetAdminLang(r)

	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, r, http.StatusBadRequest, loginData{}, i18n.T(lang, "auth.missing_credentials"))
		return
	}
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	data := loginData{Email: email}
	clientIP := middleware.ClientIP(r)

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(email); locked {
			h.logEvent(r, store.EventLevelWarning, "Login attempt on locked account", email)
			h.renderLogin(w, r, http.StatusTooManyRequests, data, i18n.T(lang, "auth.locked", formatDuration(remaining)))
			return
		}
	}

	sess, err := h.auth.Login(r.Context(), email, password)
	if err != nil {
		h.loginFailed(w, r, data, err)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(email)
	}
	h.logEvent(r, store.EventLevelInfo, "Admin logged in", sess.User.Username)
	h.logger.Info("admin logged in", "user", sess.User.Username, "ip", clientIP)

	if h.scheduler != nil && h.counter != nil {
		if err := h.scheduler.Watch(session.KeyFor(sess.Token), h.counter.For(sess.Token)); err != nil {
			h.logger.Warn("failed to start unread polling", "error", err)
		}
	}

	h.renderer.SetFlash(r, i18n.T(lang, "auth.welcome", sess.User.Username), flashSuccess)
	http.Redirect(w, r, redirectAdmin, http.StatusSeeOther)
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, data loginData, err error) {
	lang := middleware.GetAdminLang(r)

	var netErr *apiclient.NetworkError
	switch {
	case errors.Is(err, session.ErrMissingCredentials):
		h.renderLogin(w, r, http.StatusUnprocessableEntity, data, i18n.T(lang, "auth.missing_credentials"))
		return
	case errors.As(err, &netErr):
		h.logger.Error("login failed: api unreachable", "error", err)
		h.renderLogin(w, r, http.StatusBadGateway, data, i18n.T(lang, "error.network"))
		return
	}

	h.logEvent(r, store.EventLevelWarning, "Login failed", data.Email)
	if h.loginProtection != nil {
		if locked, lockDuration := h.loginProtection.RecordFailedAttempt(data.Email); locked {
			h.logEvent(r, store.EventLevelWarning, "Account locked due to failed attempts", data.Email)
			h.renderLogin(w, r, http.StatusTooManyRequests, data, i18n.T(lang, "auth.locked", formatDuration(lockDuration)))
			return
		}
	}

	msg := i18n.T(lang, "auth.invalid_credentials")
	var reqErr *apiclient.RequestError
	if errors.As(err, &reqErr) && reqErr.Status != http.StatusBadRequest && reqErr.Status != http.StatusUnauthorized {
		msg = apiclient.Message(err)
	}
	h.renderLogin(w, r, http.StatusUnauthorized, data, msg)
}

// Logout ends the session. Session-end hooks stop polling and release managers.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetAdminLang(r)
	if s := h.auth.Current(r.Context()); s.IsAuthenticated() {
		h.logEvent(r, store.EventLevelInfo, "Admin logged out", s.User.Username)
	}
	if err := h.auth.Logout(r.Context()); err != nil {
		h.logger.Error("failed to end session", "error", err)
	}
	h.renderer.SetFlash(r, i18n.T(lang, "auth.logged_out"), flashInfo)
	http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data loginData, errMsg string) {
	lang := middleware.GetAdminLang(r)
	td := render.TemplateData{
		Title: i18n.T(lang, "auth.title"),
		Lang:  lang,
		Data:  data,
	}
	if errMsg != "" {
		td.Flash, td.FlashType = errMsg, flashError
	}
	if err := h.renderer.RenderStatus(w, r, status, "auth/login", td); err != nil {
		h.logger.Error("render error", "error", err, "template", "auth/login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// logEvent records an auth event with client details.
func (h *AuthHandler) logEvent(r *http.Request, level, message, actor string) {
	clientIP := middleware.ClientIP(r)
	info := clientInfo(r.UserAgent())
	if h.geo != nil {
		if country := h.geo.Country(clientIP); country != "" {
			info["country"] = country
		}
	}
	meta, _ := json.Marshal(info)
	_, err := h.queries.CreateEvent(context.WithoutCancel(r.Context()), store.CreateEventParams{
		Level:     level,
		Category:  store.EventCategoryAuth,
		Message:   message,
		Actor:     actor,
		IPAddress: clientIP,
		Metadata:  string(meta),
	})
	if err != nil {
		h.logger.Error("failed to record auth event", "error", err)
	}
}
