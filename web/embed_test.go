// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package web

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFile(t *testing.T, name string) string {
	t.Helper()
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(name, "static/") {
		data, err = Static.ReadFile(name)
	} else {
		data, err = Templates.ReadFile(name)
	}
	require.NoError(t, err)
	return string(data)
}

func TestResourceTemplate_FormsGuardResubmission(t *testing.T) {
	page := readFile(t, "templates/admin/resource.html")

	assert.Regexp(t, regexp.MustCompile(`<form method="post" action="/admin/\{\{\$def.Name\}\}" data-once>`), page)
	assert.Contains(t, page, `/read" class="inline" data-async>`)
	assert.Contains(t, page, `/delete" class="inline delete" data-confirm=`)
}

func TestAdminScript_InFlightControls(t *testing.T) {
	js := readFile(t, "static/admin.js")

	// Failed field commits put the saved value back before the error is shown.
	assert.Regexp(t, regexp.MustCompile(`\.catch\(function \(err\) \{\s+el\.value = el\.dataset\.saved;`), js)
	assert.Contains(t, js, "el.disabled = true;")
	assert.Contains(t, js, "el.disabled = false;")

	assert.Contains(t, js, "document.querySelectorAll('form[data-once]').forEach(bindOnce);")
	assert.Regexp(t, regexp.MustCompile(`setBusy\(form, true\);\s+request\(form\.action\)`), js)
	assert.Regexp(t, regexp.MustCompile(`\.catch\(function \(err\) \{\s+setBusy\(form, false\);`), js)
}
