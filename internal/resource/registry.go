// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package resource

import (
	"fmt"
	"net/http"
)

// Built-in resource names.
const (
	Pages    = "pages"
	Services = "services"
	Forms    = "forms"
	Messages = "messages"
	Leads    = "leads"
)

// Registry holds resource definitions in display order.
type Registry struct {
	defs  []Definition
	index map[string]int
}

// NewRegistry creates a registry from the given definitions.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{index: make(map[string]int, len(defs))}
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a definition. Names must be unique and non-empty.
func (r *Registry) Register(d Definition) error {
	if d.Name == "" || d.Endpoint == "" {
		return fmt.Errorf("resource: definition needs a name and an endpoint")
	}
	if _, exists := r.index[d.Name]; exists {
		return fmt.Errorf("resource: %q already registered", d.Name)
	}
	r.index[d.Name] = len(r.defs)
	r.defs = append(r.defs, d)
	return nil
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	i, ok := r.index[name]
	if !ok {
		return Definition{}, false
	}
	return r.defs[i], true
}

// All returns every definition in registration order.
func (r *Registry) All() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// WithReadState returns the definitions that track read/unread state.
func (r *Registry) WithReadState() []Definition {
	var out []Definition
	for _, d := range r.defs {
		if d.HasReadState {
			out = append(out, d)
		}
	}
	return out
}

// Builtin returns the clinic site's collections.
func Builtin() *Registry {
	r, err := NewRegistry(
		Definition{
			Name:       Pages,
			Title:      "nav.pages",
			Endpoint:   "pages",
			ItemKey:    "pages",
			Orderable:  true,
			TitleField: "title",
			SlugField:  "slug",
			Fields: []Field{
				{Name: "title", Label: "field.title", Kind: KindText, Required: true, MaxLen: 200},
				{Name: "title_en", Label: "field.title_en", Kind: KindText, MaxLen: 200},
				{Name: "slug", Label: "field.slug", Kind: KindText, MaxLen: 200},
				{Name: "content", Label: "field.content", Kind: KindRichText},
				{Name: "image_url", Label: "field.image_url", Kind: KindURL},
				{Name: FieldDisplayOrder, Label: "field.display_order", Kind: KindNumber},
			},
		},
		Definition{
			Name:       Services,
			Title:      "nav.services",
			Endpoint:   "services",
			ItemKey:    "services",
			Orderable:  true,
			TitleField: "title",
			Fields: []Field{
				{Name: "title", Label: "field.title", Kind: KindText, Required: true, MaxLen: 200},
				{Name: "title_en", Label: "field.title_en", Kind: KindText, MaxLen: 200},
				{Name: "description", Label: "field.description", Kind: KindRichText},
				{Name: "icon_url", Label: "field.icon_url", Kind: KindURL},
				{Name: FieldDisplayOrder, Label: "field.display_order", Kind: KindNumber},
			},
		},
		Definition{
			Name:         Forms,
			Title:        "nav.forms",
			Endpoint:     "forms",
			ItemKey:      "forms",
			Orderable:    true,
			UpdateMethod: http.MethodPut,
			TitleField:   "title",
			Fields: []Field{
				{Name: "title", Label: "field.title", Kind: KindText, Required: true, MaxLen: 200},
				{Name: "description", Label: "field.description", Kind: KindText, MaxLen: 1000},
				{Name: "file_url", Label: "field.file_url", Kind: KindURL},
				{Name: FieldDisplayOrder, Label: "field.display_order", Kind: KindNumber},
			},
		},
		Definition{
			Name:         Messages,
			Title:        "nav.messages",
			Endpoint:     "messages",
			ItemKey:      "messages",
			HasReadState: true,
			TitleField:   "name",
			Columns:      []string{"name", "email", "phone", "message", FieldDateReceived},
		},
		Definition{
			Name:         Leads,
			Title:        "nav.leads",
			Endpoint:     "leads",
			ItemKey:      "leads",
			HasReadState: true,
			TitleField:   "name",
			Columns:      []string{"name", "email", "phone", "source", FieldCreatedAt},
			Fields: []Field{
				{Name: "notes", Label: "field.notes", Kind: KindText, MaxLen: 2000},
			},
		},
	)
	if err != nil {
		panic(err)
	}
	return r
}
