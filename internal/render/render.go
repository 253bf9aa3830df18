// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render renders the admin shell's embedded HTML templates.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/clinic-admin/internal/apiclient"
	"github.com/olegiv/clinic-admin/internal/i18n"
)

// Session keys for flash messages.
const (
	FlashKey     = "flash"
	FlashTypeKey = "flash_type"
)

// Renderer handles template rendering with caching.
type Renderer struct {
	templates      map[string]*template.Template
	sessionManager *scs.SessionManager
	now            func() time.Time
}

// Config holds renderer configuration.
type Config struct {
	TemplatesFS    fs.FS
	SessionManager *scs.SessionManager
}

// New creates a Renderer and parses all templates up front.
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		templates:      make(map[string]*template.Template),
		sessionManager: cfg.SessionManager,
		now:            time.Now,
	}
	if err := r.parseTemplates(cfg.TemplatesFS); err != nil {
		return nil, err
	}
	return r, nil
}

// parseTemplates builds one template set per page: admin pages get the admin
// layout, auth pages only the base layout.
func (r *Renderer) parseTemplates(templatesFS fs.FS) error {
	partials, err := templateFiles(templatesFS, "partials")
	if err != nil {
		return fmt.Errorf("getting partials: %w", err)
	}

	groups := []struct {
		dir     string
		layouts []string
	}{
		{"admin", []string{"layouts/base.html", "layouts/admin.html"}},
		{"auth", []string{"layouts/base.html"}},
	}
	for _, g := range groups {
		pages, err := templateFiles(templatesFS, g.dir)
		if err != nil {
			return fmt.Errorf("getting %s templates: %w", g.dir, err)
		}
		for _, page := range pages {
			name := g.dir + "/" + strings.TrimSuffix(path.Base(page), ".html")

			files := append(append(append([]string{}, g.layouts...), partials...), page)
			tmpl, err := template.New("").Funcs(Funcs()).ParseFS(templatesFS, files...)
			if err != nil {
				return fmt.Errorf("parsing template %s: %w", name, err)
			}
			r.templates[name] = tmpl
		}
	}
	return nil
}

func templateFiles(templatesFS fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(templatesFS, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".html") {
			files = append(files, path.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// Has reports whether a template named name was parsed.
func (r *Renderer) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

// NavItem is one entry of the admin sidebar.
type NavItem struct {
	Name   string
	Title  string
	Path   string
	Active bool
	Unread int
}

// TemplateData holds data passed to templates.
type TemplateData struct {
	Title       string
	Lang        string
	Dir         string
	User        *apiclient.User
	Nav         []NavItem
	Data        any
	Flash       string
	FlashType   string
	CurrentYear int
	RequestPath string
}

// Render executes the "base" template of name with data.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, name string, data TemplateData) error {
	return r.RenderStatus(w, req, http.StatusOK, name, data)
}

// RenderStatus is Render with an explicit status code.
func (r *Renderer) RenderStatus(w http.ResponseWriter, req *http.Request, status int, name string, data TemplateData) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	data.CurrentYear = r.now().Year()
	if data.Lang == "" {
		data.Lang = i18n.DefaultLanguage
	}
	data.Dir = i18n.Dir(data.Lang)
	if data.RequestPath == "" {
		data.RequestPath = req.URL.Path
	}
	if flash, flashType := r.popFlash(req); flash != "" && data.Flash == "" {
		data.Flash, data.FlashType = flash, flashType
	}

	// Render to a buffer first so a failing template does not send a partial page.
	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, "base", data); err != nil {
		return fmt.Errorf("executing template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}

// SetFlash stores a one-time message for the next rendered page.
func (r *Renderer) SetFlash(req *http.Request, message, flashType string) {
	if r.sessionManager == nil {
		return
	}
	r.sessionManager.Put(req.Context(), FlashKey, message)
	r.sessionManager.Put(req.Context(), FlashTypeKey, flashType)
}

func (r *Renderer) popFlash(req *http.Request) (msg, kind string) {
	if r.sessionManager == nil {
		return "", ""
	}
	defer func() {
		// No session loaded in ctx.
		if recover() != nil {
			msg, kind = "", ""
		}
	}()
	msg = r.sessionManager.PopString(req.Context(), FlashKey)
	if msg == "" {
		return "", ""
	}
	kind = r.sessionManager.PopString(req.Context(), FlashTypeKey)
	if kind == "" {
		kind = "info"
	}
	return msg, kind
}
