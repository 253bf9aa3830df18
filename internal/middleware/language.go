// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/clinic-admin/internal/i18n"
)

// ContextKeyAdminLang holds the admin UI language code.
const ContextKeyAdminLang ContextKey = "admin_lang"

// SessionKeyAdminLang stores an explicit language choice.
const SessionKeyAdminLang = "admin_lang"

// AdminLanguage resolves the admin UI language. Priority order:
//  1. ?lang=XX, which is also saved in the session
//  2. the language saved in the session
//  3. the Accept-Language header
//  4. the default language
func AdminLanguage(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			lang := ""

			if q := r.URL.Query().Get("lang"); q != "" && i18n.IsSupported(q) {
				lang = q
				if sm != nil {
					sm.Put(ctx, SessionKeyAdminLang, lang)
				}
			}
			if lang == "" && sm != nil {
				if saved := sm.GetString(ctx, SessionKeyAdminLang); i18n.IsSupported(saved) {
					lang = saved
				}
			}
			if lang == "" {
				lang = i18n.MatchLanguage(r.Header.Get("Accept-Language"))
			}

			ctx = context.WithValue(ctx, ContextKeyAdminLang, lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdminLang returns the admin UI language for r.
func GetAdminLang(r *http.Request) string {
	if lang, ok := r.Context().Value(ContextKeyAdminLang).(string); ok && lang != "" {
		return lang
	}
	return i18n.MatchLanguage(r.Header.Get("Accept-Language"))
}
