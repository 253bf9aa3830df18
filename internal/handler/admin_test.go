// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmin_RequiresLogin(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(RouteAdmin + "/pages")
	assert.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, RouteLogin, resp.location)

	resp = env.getJSON(RouteAdmin + RouteUnread)
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Equal(t, RouteLogin, resp.json(t)["redirect"])

	assert.Zero(t, env.clinic.callCount())
}

func TestList(t *testing.T) {
	env := newTestEnv(t)
	env.login()

	resp := env.get(RouteAdmin + "/pages?filter=ho&page=1")
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.body, "section=pages error= unread=0 item=Home item=About pages=1")

	last := env.clinic.queries[len(env.clinic.queries)-1]
	assert.Equal(t, "ho", last.Get("filter"))
	assert.Equal(t, "10", last.Get("limit"))
}

func TestList_UnknownSection(t *testing.T) {
	env := newTestEnv(t)
	env.login()

	resp := env.get(RouteAdmin + "/users")
	assert.Equal(t, http.StatusNotFound, resp.status)
	assert.Contains(t, resp.body, "not found")
}

func TestUnread(t *testing.T) {
	env := newTestEnv(t)
	env.login()

	resp := env.getJSON(RouteAdmin + RouteUnread)
	require.Equal(t, http.StatusOK, resp.status)
	body := resp.json(t)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, map[string]any{"messages": float64(1), "leads": float64(1)}, body["counts"])
}

func TestCreate(t *testing.T) {
	env := newTestEnv(t)
	env.login()
	env.get(RouteAdmin + "/pages")

	resp := env.postForm(RouteAdmin+"/pages", url.Values{"title": {"Our Team"}, "content": {""}})
	assert.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, RouteAdmin+"/pages", resp.location)

	require.Equal(t, 3, env.clinic.count("pages"))
	assert.Equal(t, "Our Team", env.clinic.field("pages", 2, "title"))
	assert.Equal(t, "our-team", env.clinic.field("pages", 2, "slug"))
	assert.Equal(t, float64(3), env.clinic.field("pages", 2, "display_order"))
	assert.Nil(t, env.clinic.field("pages", 2, "content"))
}

func TestCreate_JSONValidation(t *testing.T) {
	env := newTestEnv(t)
	env.login()

	resp := env.postJSON(RouteAdmin+"/services", map[string]any{"title": ""})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)
	assert.Equal(t, false, resp.json(t)["success"])
	assert.Equal(t, 1, env.clinic.count("services"))
}

func TestCreate_NotCreatable(t *testing.T) {
	env := newTestEnv(t)
	env.login()

	resp := env.postJSON(RouteAdmin+"/messages", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotFound, resp.status)
	assert.Equal(t, 2, env.clinic.count("messages"))
}

func TestUpdateField(t *testing.T) {
	env := newTestEnv(t)
	env.login()
	env.get(RouteAdmin + "/services")

	resp := env.postJSON(RouteAdmin+"/services/1/field", map[string]any{"field": "title", "value": " Orthodontics "})
	require.Equal(t, http.StatusOK, resp.status, resp.body)
	body := resp.json(t)
	assert.Equal(t, "Orthodontics", body["value"])
	assert.Equal(t, "Orthodontics", env.clinic.field("services", 0, "title"))
}

func TestUpdateField_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.login()
	env.get(RouteAdmin + "/services")

	resp := env.postJSON(RouteAdmin+"/services/1/field", map[string]any{"field": "title", "value": ""})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)

	resp = env.postJSON(RouteAdmin+"/services/1/field", map[string]any{"field": "display_order", "value": "first"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)

	resp = env.postJSON(RouteAdmin+"/services/99/field", map[string]any{"field": "title", "value": "x"})
	assert.Equal(t, http.StatusNotFound, resp.status)

	assert.Equal(t, "Dental", env.clinic.field("services", 0, "title"))
}

func TestUpdateField_FormRedirects(t *testing.T) {
	env := newTestEnv(t)
	env.login()
	env.get(RouteAdmin + "/services")

	resp := env.postForm(RouteAdmin+"/services/1/field", url.Values{"field": {"display_order"}, "value": {"4"}})
	assert.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, RouteAdmin+"/services", resp.location)
	assert.Equal(t, float64(4), env.clinic.field("services", 0, "display_order"))
}

func TestDelete_RequiresConfirmation(t *testing.T) {
	env := newTestEnv(t)
	env.login()
	env.get(RouteAdmin + "/pages")

	resp := env.postJSON(RouteAdmin+"/pages/2/delete", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, 2, env.clinic.count("pages"))

	resp = env.postJSON(RouteAdmin+"/pages/2/delete", map[string]any{"confirm": "yes"})
	require.Equal(t, http.StatusOK, resp.status, resp.body)
	assert.Equal(t, float64(1), resp.json(t)["total"])
	assert.Equal(t, 1, env.clinic.count("pages"))
}

func TestMarkRead(t *testing.T) {
	env := newTestEnv(t)
	env.login()
	env.get(RouteAdmin + "/leads")

	resp := env.postJSON(RouteAdmin+"/leads/7/read", nil)
	require.Equal(t, http.StatusOK, resp.status, resp.body)
	assert.Equal(t, float64(0), resp.json(t)["unread"])
	assert.Equal(t, true, env.clinic.field("leads", 0, "is_read"))

	resp = env.postJSON(RouteAdmin+"/pages/1/read", nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
}

func TestMutations_WithoutLoadedList(t *testing.T) {
	env := newTestEnv(t)
	env.login()
	// A page opened before a restart posts to managers that never loaded a list.
	require.Zero(t, env.pool.Len())

	resp := env.postJSON(RouteAdmin+"/services/1/field", map[string]any{"field": "title", "value": "Orthodontics"})
	require.Equal(t, http.StatusOK, resp.status, resp.body)
	assert.Equal(t, "Orthodontics", env.clinic.field("services", 0, "title"))

	resp = env.postJSON(RouteAdmin+"/leads/7/read", nil)
	require.Equal(t, http.StatusOK, resp.status, resp.body)
	assert.Equal(t, true, env.clinic.field("leads", 0, "is_read"))

	resp = env.postJSON(RouteAdmin+"/pages", map[string]any{"title": "Contact"})
	require.Equal(t, http.StatusOK, resp.status, resp.body)
	assert.Equal(t, float64(3), env.clinic.field("pages", 2, "display_order"))

	resp = env.postJSON(RouteAdmin+"/pages/2/delete", map[string]any{"confirm": "yes"})
	require.Equal(t, http.StatusOK, resp.status, resp.body)
	assert.Equal(t, 2, env.clinic.count("pages"))
}

func TestSessionExpired(t *testing.T) {
	env := newTestEnv(t)
	env.login()
	env.get(RouteAdmin + "/pages")
	env.clinic.expire()

	resp := env.get(RouteAdmin + "/pages")
	assert.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, RouteLogin, resp.location)
	assert.Equal(t, 0, env.pool.Len())

	resp = env.get(RouteAdmin)
	assert.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, RouteLogin, resp.location)
}

func TestSessionExpired_JSON(t *testing.T) {
	env := newTestEnv(t)
	env.login()
	env.get(RouteAdmin + "/services")
	env.clinic.expire()

	resp := env.postJSON(RouteAdmin+"/services/1/field", map[string]any{"field": "title", "value": "New"})
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	body := resp.json(t)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, RouteLogin, body["redirect"])
}

func TestToggleFeature(t *testing.T) {
	env := newTestEnv(t)
	env.login()

	resp := env.postForm(RouteAdmin+"/features/leads/disable", nil)
	assert.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, []string{"leads"}, env.features.Disabled())

	resp = env.get(RouteAdmin + "/leads")
	assert.Equal(t, http.StatusNotFound, resp.status)

	resp = env.getJSON(RouteAdmin + RouteUnread)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, map[string]any{"messages": float64(1)}, resp.json(t)["counts"])

	resp = env.postJSON(RouteAdmin+"/features/leads/enable", nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Empty(t, env.features.Disabled())

	resp = env.postForm(RouteAdmin+"/features/leads/toggle", nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
}
