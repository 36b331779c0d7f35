// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"

	"campusboard/internal/i18n"
)

// Locale picks the request language and stores it in the context. A choice
// made with ?lang= is remembered in a cookie.
func Locale(bundle *i18n.Bundle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag, persist := bundle.Match(r)
			if persist {
				i18n.SetCookie(w, tag)
			}
			w.Header().Set("Content-Language", tag.String())

			next.ServeHTTP(w, r.WithContext(i18n.WithTag(r.Context(), tag)))
		})
	}
}
