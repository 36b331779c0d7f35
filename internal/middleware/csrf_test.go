// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// csrfRecorder wraps NewCSRF around a handler that records the context token.
type csrfRecorder struct {
	handler http.Handler
	seen    string
	calls   int
}

func newCSRFRecorder(secure bool) *csrfRecorder {
	p := &csrfRecorder{}
	p.handler = NewCSRF(secure)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.calls++
		p.seen = CSRFTokenFromCtx(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	return p
}

// issue performs a GET and returns the token cookie it was handed.
func (p *csrfRecorder) issue(t *testing.T) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	p.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/post/create", nil))
	for _, c := range rec.Result().Cookies() {
		if c.Name == CSRFCookieName {
			return c
		}
	}
	t.Fatal("no csrf cookie issued")
	return nil
}

func TestCSRFCookieAttributes(t *testing.T) {
	for _, secure := range []bool{true, false} {
		p := newCSRFRecorder(secure)
		c := p.issue(t)

		if c.Secure != secure {
			t.Errorf("secure=%v: cookie Secure is %v", secure, c.Secure)
		}
		if !c.HttpOnly || c.SameSite != http.SameSiteStrictMode || c.Path != "/" {
			t.Errorf("secure=%v: unexpected cookie %+v", secure, c)
		}
		if len(c.Value) != 2*csrfTokenLength {
			t.Errorf("token length: got %d, want %d", len(c.Value), 2*csrfTokenLength)
		}
		if p.seen != c.Value {
			t.Errorf("context token %q differs from cookie %q", p.seen, c.Value)
		}
	}
}

func TestCSRFKeepsExistingToken(t *testing.T) {
	p := newCSRFRecorder(false)

	req := httptest.NewRequest(http.MethodGet, "/home/general", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "kept"})
	rec := httptest.NewRecorder()
	p.handler.ServeHTTP(rec, req)

	if p.seen != "kept" {
		t.Errorf("context token: got %q, want %q", p.seen, "kept")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("an existing token must not be replaced")
	}
}

func TestCSRFTokenFromCtxEmpty(t *testing.T) {
	if tok := CSRFTokenFromCtx(httptest.NewRequest(http.MethodGet, "/", nil).Context()); tok != "" {
		t.Errorf("got %q, want empty", tok)
	}
}

func TestCSRFSubmission(t *testing.T) {
	tests := []struct {
		name   string
		method string
		header string
		field  string
		want   int
	}{
		{"comment with form field", http.MethodPost, "", "good", http.StatusNoContent},
		{"comment with header", http.MethodPost, "good", "", http.StatusNoContent},
		{"header wins over field", http.MethodPost, "good", "bad", http.StatusNoContent},
		{"missing token", http.MethodPost, "", "", http.StatusForbidden},
		{"wrong token", http.MethodPost, "", "bad", http.StatusForbidden},
		{"put without token", http.MethodPut, "", "", http.StatusForbidden},
		{"patch without token", http.MethodPatch, "", "", http.StatusForbidden},
		{"delete without token", http.MethodDelete, "", "", http.StatusForbidden},
		{"head skips check", http.MethodHead, "", "", http.StatusNoContent},
		{"options skips check", http.MethodOptions, "", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newCSRFRecorder(false)

			form := url.Values{"text": {"see you at the library"}}
			if tt.field != "" {
				form.Set(CSRFFormField, tt.field)
			}
			req := httptest.NewRequest(tt.method, "/post/1/comments", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "good"})
			if tt.header != "" {
				req.Header.Set(CSRFHeaderName, tt.header)
			}
			rec := httptest.NewRecorder()
			p.handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
			if wantCalled := tt.want == http.StatusNoContent; (p.calls == 1) != wantCalled {
				t.Errorf("handler called %d times", p.calls)
			}
		})
	}
}

func TestCSRFRejectsPostWithoutCookie(t *testing.T) {
	p := newCSRFRecorder(false)

	form := url.Values{CSRFFormField: {"forged"}}
	req := httptest.NewRequest(http.MethodPost, "/signout", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	p.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want 403", rec.Code)
	}
}
