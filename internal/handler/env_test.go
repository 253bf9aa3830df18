// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/clinic-admin/internal/apiclient"
	"github.com/olegiv/clinic-admin/internal/geoip"
	"github.com/olegiv/clinic-admin/internal/manager"
	"github.com/olegiv/clinic-admin/internal/middleware"
	"github.com/olegiv/clinic-admin/internal/render"
	"github.com/olegiv/clinic-admin/internal/resource"
	"github.com/olegiv/clinic-admin/internal/session"
	"github.com/olegiv/clinic-admin/internal/store"
)

const (
	testEmail    = "dana@clinic.test"
	testPassword = "correct-horse"
	testToken    = "tok-dana"
)

// testTemplates render just enough of each page for assertions.
var testTemplates = fstest.MapFS{
	"layouts/base.html": {Data: []byte(
		`{{define "base"}}{{if .Flash}}<p class="flash {{.FlashType}}">{{.Flash}}</p>{{end}}{{block "layout" .}}{{template "content" .}}{{end}}{{end}}`)},
	"layouts/admin.html": {Data: []byte(
		`{{define "layout"}}<nav>{{range .Nav}}[{{.Name}}:{{.Unread}}]{{end}}</nav>{{template "content" .}}{{end}}`)},
	"auth/login.html":      {Data: []byte(`{{define "content"}}login email={{.Data.Email}}{{end}}`)},
	"admin/dashboard.html": {Data: []byte(`{{define "content"}}dashboard total={{.Data.TotalUnread}} events={{len .Data.Events}}{{end}}`)},
	"admin/notfound.html":  {Data: []byte(`{{define "content"}}not found{{end}}`)},
	"admin/resource.html": {Data: []byte(
		`{{define "content"}}section={{.Data.Definition.Name}} error={{.Data.Error}} unread={{.Data.Unread}}{{range .Data.Items}} item={{field . "title"}}{{field . "name"}}{{end}} pages={{.Data.Pagination.TotalPages}}{{end}}`)},
}

// fakeClinic is an in-memory clinic API.
type fakeClinic struct {
	mu      sync.Mutex
	data    map[string][]map[string]any
	nextID  int
	expired bool
	queries []url.Values
	calls   int
}

func newFakeClinic() *fakeClinic {
	return &fakeClinic{
		nextID: 100,
		data: map[string][]map[string]any{
			"pages": {
				{"id": 1, "title": "Home", "slug": "home", "display_order": 1},
				{"id": 2, "title": "About", "slug": "about", "display_order": 2},
			},
			"services": {
				{"id": 1, "title": "Dental", "display_order": 1},
			},
			"forms": {},
			"messages": {
				{"id": 1, "name": "Noa", "is_read": false},
				{"id": 2, "name": "Avi", "is_read": true},
			},
			"leads": {
				{"id": 7, "name": "Yael", "is_read": false},
			},
		},
	}
}

func (f *fakeClinic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if r.URL.Path == "/"+apiclient.LoginPath {
		var body struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Email != testEmail || body.Password != testPassword {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token": testToken,
			"user":  map[string]any{"id": 1, "username": "dana", "role": "admin"},
		})
		return
	}
	if f.expired || r.Header.Get(apiclient.HeaderAuthorization) != "Bearer "+testToken {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Token expired"})
		return
	}

	items, ok := f.data[parts[0]]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not found"})
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		f.queries = append(f.queries, r.URL.Query())
		writeJSON(w, http.StatusOK, map[string]any{
			parts[0]:     items,
			"pagination": map[string]any{"total": len(items), "page": 1, "limit": 10},
		})
	case len(parts) == 1 && r.Method == http.MethodPost:
		var rec map[string]any
		_ = json.NewDecoder(r.Body).Decode(&rec)
		f.nextID++
		rec["id"] = f.nextID
		f.data[parts[0]] = append(items, rec)
		writeJSON(w, http.StatusCreated, map[string]any{"data": rec})
	case len(parts) >= 2:
		idx := -1
		for i, item := range items {
			if strconv.Itoa(item["id"].(int)) == parts[1] {
				idx = i
			}
		}
		if idx < 0 {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not found"})
			return
		}
		switch {
		case len(parts) == 3 && parts[2] == "read":
			items[idx]["is_read"] = true
		case r.Method == http.MethodDelete:
			f.data[parts[0]] = append(items[:idx:idx], items[idx+1:]...)
		default:
			var fields map[string]any
			_ = json.NewDecoder(r.Body).Decode(&fields)
			for k, v := range fields {
				items[idx][k] = v
			}
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeClinic) field(res string, idx int, name string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[res][idx][name]
}

func (f *fakeClinic) count(res string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data[res])
}

func (f *fakeClinic) expire() {
	f.mu.Lock()
	f.expired = true
	f.mu.Unlock()
}

func (f *fakeClinic) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type testEnv struct {
	t        *testing.T
	clinic   *fakeClinic
	server   *httptest.Server
	client   *http.Client
	queries  *store.Queries
	features *Features
	pool     *manager.Pool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := store.NewDB(filepath.Join(t.TempDir(), "admin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = store.Migrate(context.Background(), db)
	require.NoError(t, err)

	clinic := newFakeClinic()
	clinicSrv := httptest.NewServer(clinic)
	t.Cleanup(clinicSrv.Close)

	sm := scs.New()
	api, err := apiclient.New(apiclient.Config{BaseURL: clinicSrv.URL, Logger: logger})
	require.NoError(t, err)
	auth := session.NewAuth(sm, api, logger)
	api.SetTokenSource(auth)
	api.SetObserver(auth)

	registry := resource.Builtin()
	features := NewFeatures(nil)
	pool := manager.NewPool(api, logger)
	auth.OnEnd(func(_ context.Context, key string) { pool.Release(key) })
	counter := NewUnreadCounter(api, registry, features)

	renderer, err := render.New(render.Config{TemplatesFS: testTemplates, SessionManager: sm})
	require.NoError(t, err)

	geo, err := geoip.Open("")
	require.NoError(t, err)

	authHandler := NewAuthHandler(AuthHandlerConfig{
		Auth:     auth,
		Renderer: renderer,
		DB:       db,
		Counter:  counter,
		GeoIP:    geo,
		Logger:   logger,
	})
	adminHandler := NewAdminHandler(AdminHandlerConfig{
		Auth:     auth,
		Pool:     pool,
		Registry: registry,
		Renderer: renderer,
		DB:       db,
		Counter:  counter,
		Logger:   logger,
	})

	r := chi.NewRouter()
	r.Use(sm.LoadAndSave)
	r.Use(middleware.AdminLanguage(sm))
	r.Use(features.Middleware)
	r.Get(RouteLogin, authHandler.LoginForm)
	r.Post(RouteLogin, authHandler.Login)
	r.Post(RouteLogout, authHandler.Logout)
	r.Route(RouteAdmin, func(r chi.Router) {
		r.Use(middleware.RequireAuth(auth))
		adminHandler.Routes(r)
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testEnv{
		t:        t,
		clinic:   clinic,
		server:   server,
		client:   client,
		queries:  store.New(db),
		features: features,
		pool:     pool,
	}
}

type response struct {
	status   int
	location string
	body     string
}

func (r response) json(t *testing.T) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(r.body), &out), "body: %s", r.body)
	return out
}

func (e *testEnv) do(req *http.Request) response {
	e.t.Helper()
	resp, err := e.client.Do(req)
	require.NoError(e.t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return response{status: resp.StatusCode, location: resp.Header.Get("Location"), body: string(body)}
}

func (e *testEnv) get(path string) response {
	e.t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.server.URL+path, nil)
	require.NoError(e.t, err)
	return e.do(req)
}

func (e *testEnv) getJSON(path string) response {
	e.t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.server.URL+path, nil)
	require.NoError(e.t, err)
	req.Header.Set("X-Requested-With", "fetch")
	return e.do(req)
}

func (e *testEnv) postForm(path string, form url.Values) response {
	e.t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

func (e *testEnv) postJSON(path string, body map[string]any) response {
	e.t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(e.t, err)
	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, strings.NewReader(string(buf)))
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Requested-With", "fetch")
	return e.do(req)
}

func (e *testEnv) login() {
	e.t.Helper()
	resp := e.postForm(RouteLogin, url.Values{"email": {testEmail}, "password": {testPassword}})
	require.Equal(e.t, http.StatusSeeOther, resp.status, resp.body)
	require.Equal(e.t, RouteAdmin, resp.location)
}
