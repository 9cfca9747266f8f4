// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/olegiv/institute-cms/internal/testutil"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xForwarded string
		want       string
	}{
		{"host and port", "192.168.1.1:12345", "", "192.168.1.1"},
		{"ipv6 host and port", "[2001:db8::1]:443", "", "2001:db8::1"},
		{"no port", "192.168.1.1", "", "192.168.1.1"},
		{"forwarded header is ignored", "127.0.0.1:8080", "10.0.0.1", "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xForwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.xForwarded)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLimiterCache(t *testing.T) {
	lc := newLimiterCache[string](1, 1)

	a := lc.get("a")
	if lc.get("a") != a {
		t.Error("get() should return the same limiter for a key")
	}
	lc.get("b")
	if lc.size() != 2 {
		t.Errorf("size() = %d, want 2", lc.size())
	}

	if lc.clearIfExceeds(5) {
		t.Error("clearIfExceeds(5) cleared a cache of 2")
	}
	if !lc.clearIfExceeds(1) {
		t.Error("clearIfExceeds(1) should clear a cache of 2")
	}
	if lc.size() != 0 {
		t.Errorf("size() after clear = %d, want 0", lc.size())
	}
}

func TestIPRateLimiterMiddleware(t *testing.T) {
	rl := NewIPRateLimiter(0.001, 3, testutil.TestLoggerSilent())
	wrapped := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 4)
	for range 4 {
		req := httptest.NewRequest(http.MethodGet, "/search?q=go", nil)
		req.RemoteAddr = "10.1.1.1:999"
		rr := httptest.NewRecorder()
		wrapped.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	want := []int{http.StatusNoContent, http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d status = %d, want %d", i+1, codes[i], want[i])
		}
	}
}
