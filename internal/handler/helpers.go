// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mileusna/useragent"

	"github.com/olegiv/clinic-admin/internal/apiclient"
	"github.com/olegiv/clinic-admin/internal/i18n"
	"github.com/olegiv/clinic-admin/internal/manager"
	"github.com/olegiv/clinic-admin/internal/resource"
)

// errorMessage translates err into a message for the admin UI.
// Validation and server messages are shown as they are.
func errorMessage(lang string, err error) string {
	var (
		netErr *apiclient.NetworkError
		valErr *resource.ValidationError
		reqErr *apiclient.RequestError
	)
	switch {
	case err == nil:
		return ""
	case apiclient.IsAuthError(err):
		return i18n.T(lang, "error.session")
	case errors.As(err, &netErr):
		return i18n.T(lang, "error.network")
	case errors.Is(err, manager.ErrBusy):
		return i18n.T(lang, "error.busy")
	case errors.As(err, &reqErr) && reqErr.Status == http.StatusNotFound:
		return i18n.T(lang, "error.not_found")
	case errors.Is(err, manager.ErrNotConfirmed):
		return i18n.T(lang, "error.not_confirmed")
	case errors.As(err, &valErr), errors.As(err, &reqErr):
		return apiclient.Message(err)
	default:
		return i18n.T(lang, "error.unknown")
	}
}

// errorStatus maps err to the HTTP status used for JSON responses.
func errorStatus(err error) int {
	var (
		valErr *resource.ValidationError
		reqErr *apiclient.RequestError
		netErr *apiclient.NetworkError
	)
	switch {
	case apiclient.IsAuthError(err):
		return http.StatusUnauthorized
	case errors.As(err, &valErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, manager.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, manager.ErrNotConfirmed):
		return http.StatusBadRequest
	case errors.As(err, &netErr):
		return http.StatusBadGateway
	case errors.As(err, &reqErr):
		if reqErr.Status >= 400 && reqErr.Status < 500 {
			return reqErr.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// queryInt reads a positive integer query parameter, returning def when absent or invalid.
func queryInt(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// clientInfo summarizes the user agent for the event log.
func clientInfo(uaString string) map[string]string {
	ua := useragent.Parse(uaString)
	info := map[string]string{
		"browser": ua.Name,
		"os":      ua.OS,
	}
	if info["browser"] == "" {
		info["browser"] = "Unknown"
	}
	if info["os"] == "" {
		info["os"] = "Unknown"
	}
	switch {
	case ua.Mobile:
		info["device"] = "mobile"
	case ua.Tablet:
		info["device"] = "tablet"
	case ua.Bot:
		info["device"] = "bot"
	default:
		info["device"] = "desktop"
	}
	return info
}

// formatDuration renders a lockout duration for the login form.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return strconv.Itoa(max(int(d.Seconds()), 1)) + "s"
	}
	return d.Round(time.Minute).String()
}
