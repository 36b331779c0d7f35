// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecureHeaders(t *testing.T) {
	handler := SecureHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/signin", http.StatusSeeOther)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/home/general", nil))

	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"X-XSS-Protection":        "0",
		"Referrer-Policy":         "strict-origin-when-cross-origin",
		"Permissions-Policy":      "interest-cohort=()",
		"Content-Security-Policy": contentSecurityPolicy,
	}
	for header, value := range want {
		assert.Equal(t, value, rec.Header().Get(header), header)
	}

	// Redirects carry the headers too.
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestContentSecurityPolicyAllowsQRCode(t *testing.T) {
	// The TOTP setup page embeds its QR code as a data: URI.
	assert.Contains(t, contentSecurityPolicy, "img-src 'self' data:")
	assert.NotContains(t, contentSecurityPolicy, "unsafe-inline")
}
