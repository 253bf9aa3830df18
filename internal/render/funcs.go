// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/olegiv/clinic-admin/internal/i18n"
	"github.com/olegiv/clinic-admin/internal/resource"
)

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithUnsafe()),
	)
	markdownPolicy = bluemonday.UGCPolicy()
)

// Markdown converts rich-text field content to sanitized HTML for previews.
func Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(markdownPolicy.Sanitize(buf.String())) //nolint:gosec // sanitized by bluemonday
}

// Dates from the API arrive as RFC 3339 strings or plain dates.
var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// FormatDate renders a time or an API date string as "02/01/2006 15:04".
// Unparseable strings are returned as they are.
func FormatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format("02/01/2006 15:04")
	case string:
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return FormatDate(parsed)
			}
		}
		return t
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// Truncate shortens s to n runes, adding an ellipsis.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

// Funcs returns the template function map.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"t":          i18n.T,
		"markdown":   Markdown,
		"formatDate": FormatDate,
		"truncate":   Truncate,
		"field": func(rec resource.Record, name string) string {
			return rec.String(name)
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"seq": func(start, end int) []int {
			var out []int
			for i := start; i <= end; i++ {
				out = append(out, i)
			}
			return out
		},
	}
}
