// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"fmt"
	"html"
	"net/http"

	"campusboard/internal/i18n"
)

// Readiness reports whether the auth-state feed has answered. Implemented
// by *session.Gate.
type Readiness interface {
	Ready() bool
}

// loadingPage shows neither signed-in nor signed-out chrome. It refreshes
// itself once a second. Verbs: language, title, message.
const loadingPage = `<!DOCTYPE html>
<html lang="%s">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="1">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
<link rel="stylesheet" href="/static/board.css">
</head>
<body class="loading">
<div class="spinner" role="status" aria-label="%[3]s"></div>
<p class="hint">%[3]s</p>
</body>
</html>
`

// RequireReady holds every request on a loading page until the readiness
// source answers. The page is localised with bundle in the language that
// Locale picked.
func RequireReady(ready Readiness, bundle *i18n.Bundle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ready.Ready() {
				next.ServeHTTP(w, r)
				return
			}

			tag := i18n.TagFromContext(r.Context(), bundle.Default())
			page := fmt.Sprintf(loadingPage,
				tag.String(),
				html.EscapeString(bundle.T(tag, "loading.title")),
				html.EscapeString(bundle.T(tag, "loading.message")),
			)

			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("Cache-Control", "no-store")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(page))
		})
	}
}
