// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/clinic-admin/internal/apiclient"
	"github.com/olegiv/clinic-admin/internal/i18n"
	"github.com/olegiv/clinic-admin/internal/manager"
	"github.com/olegiv/clinic-admin/internal/middleware"
	"github.com/olegiv/clinic-admin/internal/render"
	"github.com/olegiv/clinic-admin/internal/resource"
	"github.com/olegiv/clinic-admin/internal/scheduler"
	"github.com/olegiv/clinic-admin/internal/session"
	"github.com/olegiv/clinic-admin/internal/store"
)

// AdminHandler serves the dashboard and the resource sections.
type AdminHandler struct {
	auth      *session.Auth
	pool      *manager.Pool
	registry  *resource.Registry
	renderer  *render.Renderer
	queries   *store.Queries
	scheduler *scheduler.Scheduler
	counter   *UnreadCounter
	pageSize  int
	logger    *slog.Logger
}

// AdminHandlerConfig holds the dependencies of an AdminHandler.
type AdminHandlerConfig struct {
	Auth      *session.Auth
	Pool      *manager.Pool
	Registry  *resource.Registry
	Renderer  *render.Renderer
	DB        *sql.DB
	Scheduler *scheduler.Scheduler
	Counter   *UnreadCounter
	PageSize  int
	Logger    *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(cfg AdminHandlerConfig) *AdminHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pageSize := cfg.PageSize
	if pageSize < 1 {
		pageSize = resource.DefaultLimit
	}
	return &AdminHandler{
		auth:      cfg.Auth,
		pool:      cfg.Pool,
		registry:  cfg.Registry,
		renderer:  cfg.Renderer,
		queries:   store.New(cfg.DB),
		scheduler: cfg.Scheduler,
		counter:   cfg.Counter,
		pageSize:  pageSize,
		logger:    logger,
	}
}

// Routes registers the admin routes on r. Callers wrap r with RequireAuth.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Get(RouteRoot, h.Dashboard)
	r.Get(RouteUnread, h.Unread)
	r.Post(RouteFeatureToggle, h.ToggleFeature)
	r.Get(RouteResource, h.List)
	r.Post(RouteResource, h.Create)
	r.Post(RouteItemField, h.UpdateField)
	r.Post(RouteItemDelete, h.Delete)
	r.Post(RouteItemRead, h.MarkRead)
}

// SectionStatus is one resource section as shown on the dashboard.
type SectionStatus struct {
	Name    string
	Title   string
	Path    string
	Enabled bool
	Tracked bool
	Unread  int
}

// DashboardData is passed to the dashboard template.
type DashboardData struct {
	Sections    []SectionStatus
	TotalUnread int
	Events      []store.Event
	Error       string
}

// Dashboard handles GET /admin.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetAdminLang(r)
	features := FeaturesFrom(r.Context())

	counts, err := h.unreadCounts(r.Context())
	if h.redirected(w, r) {
		return
	}

	data := DashboardData{}
	if err != nil {
		data.Error = errorMessage(lang, err)
	}
	for _, def := range h.registry.All() {
		s := SectionStatus{
			Name:    def.Name,
			Title:   i18n.T(lang, def.Title),
			Path:    RouteAdmin + "/" + def.Name,
			Enabled: features.Enabled(def.Name),
			Tracked: def.HasReadState,
			Unread:  counts[def.Name],
		}
		if s.Enabled {
			data.TotalUnread += s.Unread
		}
		data.Sections = append(data.Sections, s)
	}

	events, err := h.queries.ListEvents(r.Context(), store.ListEventsParams{Limit: recentEventsLimit})
	if err != nil {
		h.logger.Error("failed to list events", "error", err)
	} else {
		data.Events = events
	}

	h.render(w, r, http.StatusOK, "admin/dashboard", i18n.T(lang, "dashboard.title"), "", counts, data)
}

// Unread handles GET /admin/unread and returns unread counts as JSON.
func (h *AdminHandler) Unread(w http.ResponseWriter, r *http.Request) {
	counts, err := h.unreadCounts(r.Context())
	if h.redirected(w, r) {
		return
	}
	if err != nil {
		writeJSONError(w, errorStatus(err), errorMessage(middleware.GetAdminLang(r), err))
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	writeJSONSuccess(w, map[string]any{"counts": counts, "total": total})
}

// ResourceData is passed to the resource list template.
type ResourceData struct {
	Definition resource.Definition
	Items      []resource.Record
	Pagination AdminPagination
	Filter     string
	Unread     int
	Error      string
	Busy       bool
}

// List handles GET /admin/{resource}.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	def, ok := h.section(w, r)
	if !ok {
		return
	}
	lang := middleware.GetAdminLang(r)
	m := h.manager(r.Context(), def)

	q := apiclient.ListQuery{
		Page:   queryInt(r, "page", resource.DefaultPage),
		Limit:  min(queryInt(r, "limit", h.pageSize), maxPageLimit),
		Filter: strings.TrimSpace(r.URL.Query().Get("filter")),
	}
	err := m.Load(r.Context(), q)
	if h.redirected(w, r) {
		return
	}
	// A superseded load leaves the newer result in place.
	if errors.Is(err, manager.ErrStale) {
		err = nil
	}

	state := m.Snapshot()
	if err == nil {
		err = state.Err
	}
	data := ResourceData{
		Definition: def,
		Items:      state.Items,
		Pagination: BuildAdminPagination(state.Pagination, RouteAdmin+"/"+def.Name, r.URL.Query()),
		Filter:     state.Query.Filter,
		Unread:     state.Unread,
		Error:      errorMessage(lang, err),
		Busy:       state.Busy,
	}

	counts := h.cachedCounts(r.Context())
	if def.HasReadState && err == nil {
		counts[def.Name] = state.Unread
	}
	h.render(w, r, http.StatusOK, "admin/resource", i18n.T(lang, def.Title), def.Name, counts, data)
}

// Create handles POST /admin/{resource}.
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	def, ok := h.section(w, r)
	if !ok {
		return
	}
	lang := middleware.GetAdminLang(r)
	listURL := RouteAdmin + "/" + def.Name

	input, err := h.readInput(w, r)
	if err != nil {
		h.fail(w, r, listURL, &resource.ValidationError{Field: "body", Message: "could not be read"})
		return
	}
	fields := make(map[string]string, len(def.Fields))
	for _, f := range def.Fields {
		if v, present := input[f.Name]; present && (v != "" || f.Required) {
			fields[f.Name] = v
		}
	}

	created, err := h.manager(r.Context(), def).Create(r.Context(), fields)
	if h.redirected(w, r) {
		return
	}
	if err != nil {
		if errors.Is(err, manager.ErrNotCreatable) {
			h.notFound(w, r)
			return
		}
		h.fail(w, r, listURL, err)
		return
	}

	h.logger.Info("resource record created", "resource", def.Name, "id", created.ID(), "actor", middleware.GetUsername(r))
	if middleware.WantsJSON(r) {
		writeJSONSuccess(w, map[string]any{"item": created})
		return
	}
	h.renderer.SetFlash(r, i18n.T(lang, "resource.created"), flashSuccess)
	http.Redirect(w, r, listURL, http.StatusSeeOther)
}

// UpdateField handles POST /admin/{resource}/{id}/field. The body carries
// "field" and "value" either as JSON or as form values.
func (h *AdminHandler) UpdateField(w http.ResponseWriter, r *http.Request) {
	def, ok := h.section(w, r)
	if !ok {
		return
	}
	lang := middleware.GetAdminLang(r)
	id := chi.URLParam(r, "id")
	listURL := RouteAdmin + "/" + def.Name

	input, err := h.readInput(w, r)
	if err != nil {
		h.fail(w, r, listURL, &resource.ValidationError{Field: "body", Message: "could not be read"})
		return
	}
	field, value := input["field"], input["value"]

	m := h.manager(r.Context(), def)
	err = m.UpdateField(r.Context(), id, field, value)
	if h.redirected(w, r) {
		return
	}
	if err != nil {
		h.fail(w, r, listURL, err)
		return
	}

	if middleware.WantsJSON(r) {
		resp := map[string]any{"id": id, "field": field}
		if item, found := findItem(m.Snapshot().Items, id); found {
			resp["item"] = item
			resp["value"] = item[field]
		}
		writeJSONSuccess(w, resp)
		return
	}
	h.renderer.SetFlash(r, i18n.T(lang, "resource.saved"), flashSuccess)
	http.Redirect(w, r, listURL, http.StatusSeeOther)
}

// Delete handles POST /admin/{resource}/{id}/delete. Nothing is sent to the
// API unless the request carries confirm=yes.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	def, ok := h.section(w, r)
	if !ok {
		return
	}
	lang := middleware.GetAdminLang(r)
	id := chi.URLParam(r, "id")
	listURL := RouteAdmin + "/" + def.Name

	input, err := h.readInput(w, r)
	if err != nil {
		input = nil
	}
	confirmed := manager.ConfirmFunc(func(context.Context, string) bool {
		return input["confirm"] == "yes"
	})

	m := h.manager(r.Context(), def)
	err = m.Remove(r.Context(), id, confirmed)
	if h.redirected(w, r) {
		return
	}
	if err != nil {
		h.fail(w, r, listURL, err)
		return
	}

	h.logger.Info("resource record deleted", "resource", def.Name, "id", id, "actor", middleware.GetUsername(r))
	if middleware.WantsJSON(r) {
		state := m.Snapshot()
		writeJSONSuccess(w, map[string]any{"id": id, "total": state.Pagination.Total, "unread": state.Unread})
		return
	}
	h.renderer.SetFlash(r, i18n.T(lang, "resource.deleted"), flashSuccess)
	http.Redirect(w, r, listURL, http.StatusSeeOther)
}

// MarkRead handles POST /admin/{resource}/{id}/read.
func (h *AdminHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	def, ok := h.section(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	listURL := RouteAdmin + "/" + def.Name

	m := h.manager(r.Context(), def)
	err := m.MarkAsRead(r.Context(), id)
	if h.redirected(w, r) {
		return
	}
	if errors.Is(err, manager.ErrNoReadState) {
		h.notFound(w, r)
		return
	}
	if err != nil {
		h.fail(w, r, listURL, err)
		return
	}

	if middleware.WantsJSON(r) {
		writeJSONSuccess(w, map[string]any{"id": id, "unread": m.Snapshot().Unread})
		return
	}
	http.Redirect(w, r, listURL, http.StatusSeeOther)
}

// ToggleFeature handles POST /admin/features/{name}/{enable|disable}.
func (h *AdminHandler) ToggleFeature(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetAdminLang(r)
	name := chi.URLParam(r, "name")
	features := FeaturesFrom(r.Context())

	def, ok := h.registry.Lookup(name)
	if !ok || features == nil {
		h.notFound(w, r)
		return
	}

	var enabled bool
	switch chi.URLParam(r, "action") {
	case "enable":
		enabled = true
	case "disable":
		enabled = false
	default:
		h.notFound(w, r)
		return
	}
	features.Set(name, enabled)
	h.logger.Info("admin section toggled", "resource", name, "enabled", enabled, "actor", middleware.GetUsername(r))

	if middleware.WantsJSON(r) {
		writeJSONSuccess(w, map[string]any{"name": name, "enabled": enabled})
		return
	}
	key := "dashboard.section_enabled"
	if !enabled {
		key = "dashboard.section_disabled"
	}
	h.renderer.SetFlash(r, i18n.T(lang, key, i18n.T(lang, def.Title)), flashInfo)
	http.Redirect(w, r, redirectAdmin, http.StatusSeeOther)
}

// section resolves the {resource} URL parameter. Unknown and disabled sections
// get a 404 and ok is false.
func (h *AdminHandler) section(w http.ResponseWriter, r *http.Request) (resource.Definition, bool) {
	name := chi.URLParam(r, "resource")
	def, ok := h.registry.Lookup(name)
	if !ok || !FeaturesFrom(r.Context()).Enabled(name) {
		h.notFound(w, r)
		return resource.Definition{}, false
	}
	return def, true
}

func (h *AdminHandler) manager(ctx context.Context, def resource.Definition) *manager.Manager {
	return h.pool.Get(h.auth.Key(ctx), def)
}

// unreadCounts returns the polled counts for the session, fetching them
// directly when the poller has nothing yet.
func (h *AdminHandler) unreadCounts(ctx context.Context) (map[string]int, error) {
	if h.scheduler != nil {
		key := h.auth.Key(ctx)
		if counts, ok := h.scheduler.Counts(ctx, key); ok {
			return h.enabledCounts(ctx, counts), nil
		}
		// Sessions outlive restarts; polling is resumed on first use.
		if key != "" && h.counter != nil && !h.scheduler.Watching(key) {
			if err := h.scheduler.Watch(key, h.counter.For(h.auth.Token(ctx))); err != nil {
				h.logger.Warn("failed to resume unread polling", "error", err)
			}
		}
	}
	if h.counter == nil {
		return map[string]int{}, nil
	}
	counts, err := h.counter.Count(ctx)
	if err != nil {
		return map[string]int{}, err
	}
	return h.enabledCounts(ctx, counts), nil
}

// cachedCounts returns the polled counts without calling the API.
func (h *AdminHandler) cachedCounts(ctx context.Context) map[string]int {
	if h.scheduler != nil {
		if counts, ok := h.scheduler.Counts(ctx, h.auth.Key(ctx)); ok {
			return h.enabledCounts(ctx, counts)
		}
	}
	return map[string]int{}
}

func (h *AdminHandler) enabledCounts(ctx context.Context, counts map[string]int) map[string]int {
	features := FeaturesFrom(ctx)
	out := make(map[string]int, len(counts))
	for name, n := range counts {
		if features.Enabled(name) {
			out[name] = n
		}
	}
	return out
}

// readInput returns the request body as string values, from JSON or a form.
func (h *AdminHandler) readInput(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var input map[string]string
		if err := decodeJSONBody(w, r, &input); err != nil {
			return nil, err
		}
		return input, nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	input := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		input[k] = r.PostForm.Get(k)
	}
	return input, nil
}

// redirected finishes the request when an API call asked for the login page.
func (h *AdminHandler) redirected(w http.ResponseWriter, r *http.Request) bool {
	target := session.RedirectTarget(r.Context())
	if target == "" {
		return false
	}
	lang := middleware.GetAdminLang(r)
	if middleware.WantsJSON(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success":  false,
			"error":    i18n.T(lang, "auth.session_expired"),
			"redirect": target,
		})
		return true
	}
	h.renderer.SetFlash(r, i18n.T(lang, "auth.session_expired"), flashError)
	http.Redirect(w, r, target, http.StatusSeeOther)
	return true
}

// fail reports err as JSON or as a flash on the list page.
func (h *AdminHandler) fail(w http.ResponseWriter, r *http.Request, back string, err error) {
	lang := middleware.GetAdminLang(r)
	msg := errorMessage(lang, err)
	if middleware.WantsJSON(r) {
		writeJSONError(w, errorStatus(err), msg)
		return
	}
	h.renderer.SetFlash(r, msg, flashError)
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (h *AdminHandler) notFound(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetAdminLang(r)
	if middleware.WantsJSON(r) {
		writeJSONError(w, http.StatusNotFound, i18n.T(lang, "resource.disabled"))
		return
	}
	h.render(w, r, http.StatusNotFound, "admin/notfound", i18n.T(lang, "error.not_found"), "", h.cachedCounts(r.Context()), nil)
}

func (h *AdminHandler) render(w http.ResponseWriter, r *http.Request, status int, name, title, active string, counts map[string]int, data any) {
	lang := middleware.GetAdminLang(r)
	td := render.TemplateData{
		Title: title,
		Lang:  lang,
		User:  middleware.GetUser(r),
		Nav:   h.nav(r.Context(), lang, active, counts),
		Data:  data,
	}
	if err := h.renderer.RenderStatus(w, r, status, name, td); err != nil {
		h.logger.Error("render error", "error", err, "template", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *AdminHandler) nav(ctx context.Context, lang, active string, counts map[string]int) []render.NavItem {
	features := FeaturesFrom(ctx)
	items := []render.NavItem{{
		Name:   "dashboard",
		Title:  i18n.T(lang, "nav.dashboard"),
		Path:   RouteAdmin,
		Active: active == "",
	}}
	for _, def := range h.registry.All() {
		if !features.Enabled(def.Name) {
			continue
		}
		items = append(items, render.NavItem{
			Name:   def.Name,
			Title:  i18n.T(lang, def.Title),
			Path:   RouteAdmin + "/" + def.Name,
			Active: def.Name == active,
			Unread: counts[def.Name],
		})
	}
	return items
}

func findItem(items []resource.Record, id string) (resource.Record, bool) {
	for _, item := range items {
		if item.ID() == id {
			return item, true
		}
	}
	return nil, false
}
