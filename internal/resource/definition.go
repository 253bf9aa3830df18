// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package resource

import (
	"fmt"
	"html"
	"net/http"
	"net/mail"
	"net/url"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Kind is the editing type of a field.
type Kind string

// Field kinds.
const (
	KindText     Kind = "text"
	KindRichText Kind = "richtext"
	KindNumber   Kind = "number"
	KindURL      Kind = "url"
	KindEmail    Kind = "email"
)

var (
	// plainPolicy strips all markup from single-line text.
	plainPolicy = bluemonday.StrictPolicy()
	// richPolicy allows the safe HTML subset used in page bodies and descriptions.
	richPolicy = bluemonday.UGCPolicy()
)

// ValidationError reports user input rejected before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Field describes one inline-editable field of a resource.
type Field struct {
	Name     string
	Label    string // i18n key
	Kind     Kind
	Required bool
	MaxLen   int
}

// Parse validates raw user input for the field and converts it into the value sent to the API.
func (f Field) Parse(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if f.Required {
			return nil, &ValidationError{Field: f.Name, Message: "is required"}
		}
		if f.Kind == KindNumber {
			return nil, &ValidationError{Field: f.Name, Message: "must be a whole number"}
		}
		return "", nil
	}
	if f.MaxLen > 0 && len([]rune(raw)) > f.MaxLen {
		return nil, &ValidationError{Field: f.Name, Message: fmt.Sprintf("must be at most %d characters", f.MaxLen)}
	}

	switch f.Kind {
	case KindNumber:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &ValidationError{Field: f.Name, Message: "must be a whole number"}
		}
		return n, nil
	case KindURL:
		if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
			return raw, nil
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, &ValidationError{Field: f.Name, Message: "must be an http(s) URL or a site path"}
		}
		return u.String(), nil
	case KindEmail:
		addr, err := mail.ParseAddress(raw)
		if err != nil {
			return nil, &ValidationError{Field: f.Name, Message: "must be a valid e-mail address"}
		}
		return addr.Address, nil
	case KindRichText:
		return richPolicy.Sanitize(raw), nil
	default:
		return strings.TrimSpace(html.UnescapeString(plainPolicy.Sanitize(raw))), nil
	}
}

// Definition configures one managed collection.
type Definition struct {
	Name         string // route and feature-flag name
	Title        string // i18n key for the section title
	Endpoint     string // API path relative to the base URL
	ItemKey      string // response key holding the list when not "items"/"data"
	Fields       []Field
	Columns      []string // read-only fields shown in the list
	Orderable    bool
	HasReadState bool
	UpdateMethod string // PATCH (default) or PUT
	TitleField   string // field shown as the item heading
	SlugField    string // derived from TitleField on create when empty
}

// Field looks up an editable field by name.
func (d Definition) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Editable reports whether the definition has any inline-editable fields.
func (d Definition) Editable() bool {
	return len(d.Fields) > 0
}

// Creatable reports whether new items can be created from the admin panel.
// Messages and leads originate from the public site.
func (d Definition) Creatable() bool {
	return !d.HasReadState && len(d.Fields) > 0
}

// Method returns the HTTP method used for field updates.
func (d Definition) Method() string {
	if d.UpdateMethod == "" {
		return http.MethodPatch
	}
	return d.UpdateMethod
}

// ParseInput validates a set of raw inputs against the definition's fields.
// Unknown fields are rejected; fields not present in input are left out.
func (d Definition) ParseInput(input map[string]string) (Record, error) {
	out := make(Record, len(input))
	for name, raw := range input {
		f, ok := d.Field(name)
		if !ok {
			return nil, &ValidationError{Field: name, Message: "is not editable"}
		}
		v, err := f.Parse(raw)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	for _, f := range d.Fields {
		if _, ok := input[f.Name]; !ok && f.Required {
			return nil, &ValidationError{Field: f.Name, Message: "is required"}
		}
	}
	return out, nil
}
