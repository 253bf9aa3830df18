// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"
	// RouteHealth is the health check route.
	RouteHealth = "/health"

	// RouteAdmin is the admin panel prefix.
	RouteAdmin = "/admin"
	// RouteUnread is the unread counts route under the admin prefix.
	RouteUnread = "/unread"
	// RouteFeatureToggle toggles an admin section on or off.
	RouteFeatureToggle = "/features/{name}/{action}"

	// RouteResource is the resource list and create pattern.
	RouteResource = "/{resource}"
	// RouteItemField is the inline field edit pattern.
	RouteItemField = "/{resource}/{id}/field"
	// RouteItemDelete is the delete pattern.
	RouteItemDelete = "/{resource}/{id}/delete"
	// RouteItemRead is the mark-as-read pattern.
	RouteItemRead = "/{resource}/{id}/read"
)

// Flash types understood by the admin templates.
const (
	flashSuccess = "success"
	flashError   = "error"
	flashInfo    = "info"
)

// Limits.
const (
	maxBodyBytes = 1 << 20
	// unreadScanLimit is the page size used when counting unread records.
	unreadScanLimit = 100
	// recentEventsLimit is the number of events shown on the dashboard.
	recentEventsLimit = 10
	maxPageLimit      = 100
)

const redirectAdmin = RouteAdmin
