// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/text/language"

	"campusboard/internal/i18n"
)

type flagReady struct{ ok atomic.Bool }

func (f *flagReady) Ready() bool { return f.ok.Load() }

func TestRequireReady(t *testing.T) {
	bundle, err := i18n.Load("ko")
	if err != nil {
		t.Fatalf("load bundle: %v", err)
	}
	ready := &flagReady{}
	var calls int
	handler := RequireReady(ready, bundle)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/home/general", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status before ready: got %d, want 503", rr.Code)
	}
	if calls != 0 {
		t.Errorf("next handler called %d times before ready", calls)
	}
	if got := rr.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After: got %q, want %q", got, "1")
	}
	body := rr.Body.String()
	if !strings.Contains(body, `http-equiv="refresh"`) {
		t.Error("loading page should refresh itself")
	}
	if strings.Contains(body, "/signin") {
		t.Error("loading page must not link to sign-in")
	}
	if !strings.Contains(body, "불러오는 중") {
		t.Errorf("loading page should use the default language, got %s", body)
	}

	enReq := req.WithContext(i18n.WithTag(req.Context(), language.English))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, enReq)
	if !strings.Contains(rr.Body.String(), "<title>Loading</title>") {
		t.Errorf("loading page should follow the request language, got %s", rr.Body.String())
	}

	ready.ok.Store(true)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status after ready: got %d, want 200", rr.Code)
	}
	if calls != 1 {
		t.Errorf("next handler calls: got %d, want 1", calls)
	}
}
