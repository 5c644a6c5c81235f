// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/authgate/internal/platform/ctxutil"
	"github.com/taibuivan/authgate/internal/platform/middleware"
	"github.com/taibuivan/authgate/internal/platform/sec"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

type devConfig bool

func (d devConfig) IsDevelopment() bool { return bool(d) }

type stubVerifier struct{}

func (stubVerifier) VerifyToken(token string) (*sec.AuthClaims, error) {
	if token == "good" {
		return &sec.AuthClaims{UserID: "acc-1", Role: sec.RoleAdmin.String()}, nil
	}
	return nil, errors.New("invalid")
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = ctxutil.GetRequestID(r.Context())
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, recorder.Header().Get("X-Request-ID"))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("X-Request-ID", "client-id")
	handler.ServeHTTP(httptest.NewRecorder(), request)
	assert.Equal(t, "client-id", seen)
}

func TestStructuredLogger_InjectsLogger(t *testing.T) {
	base := slog.New(slog.NewTextHandler(io.Discard, nil))

	var injected *slog.Logger
	handler := middleware.StructuredLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		injected = ctxutil.LoggerOr(r.Context(), nil)
		w.WriteHeader(http.StatusTeapot)
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotNil(t, injected)
	assert.Equal(t, http.StatusTeapot, recorder.Code)
}

func TestPanicRecovery(t *testing.T) {
	handler := middleware.PanicRecovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	recorder := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "INTERNAL_ERROR")
}

func TestRateLimiter(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, 2, nil)
	handler := limiter.Handler(ok)

	codes := make([]int, 0, 3)
	for range 3 {
		request := httptest.NewRequest(http.MethodPost, "/", nil)
		request.RemoteAddr = "10.0.0.1:5555"
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		codes = append(codes, recorder.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	assert.True(t, limiter.Allow("10.0.0.2"), "buckets are per IP")
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name    string
		dev     bool
		origin  string
		allowed bool
	}{
		{"dev_allows_any", true, "http://localhost:3000", true},
		{"prod_allows_listed", false, "https://app.school.edu", true},
		{"prod_rejects_unlisted", false, "https://evil.example", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.CORS(devConfig(tt.dev), []string{"https://app.school.edu/"})(ok)

			request := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
			request.Header.Set("Origin", tt.origin)
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.Equal(t, http.StatusNoContent, recorder.Code)
			if tt.allowed {
				assert.Equal(t, tt.origin, recorder.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	var caller *sec.AuthClaims
	handler := middleware.Authenticate(stubVerifier{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller = ctxutil.GetCaller(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"anonymous", "", ""},
		{"valid_bearer", "Bearer good", "acc-1"},
		{"invalid_bearer_is_anonymous", "Bearer expired", ""},
		{"other_scheme_is_anonymous", "Basic abc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller = nil
			request := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				request.Header.Set("Authorization", tt.header)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.Equal(t, http.StatusOK, recorder.Code)
			if tt.want == "" {
				assert.Nil(t, caller)
			} else {
				require.NotNil(t, caller)
				assert.Equal(t, tt.want, caller.UserID)
			}
		})
	}
}

func TestProxyTrust_ClientIP(t *testing.T) {
	trust, err := middleware.NewProxyTrust([]string{"10.0.0.0/8", " 192.0.2.10 ", ""})
	require.NoError(t, err)

	tests := []struct {
		name      string
		peer      string
		realIP    string
		forwarded string
		want      string
	}{
		{"direct_no_headers", "203.0.113.9:1234", "", "", "203.0.113.9"},
		{"direct_spoofed_real_ip", "203.0.113.9:1234", "198.51.100.7", "", "203.0.113.9"},
		{"direct_spoofed_forwarded", "203.0.113.9:1234", "", "198.51.100.7", "203.0.113.9"},
		{"proxy_real_ip", "10.1.2.3:80", "198.51.100.7", "", "198.51.100.7"},
		{"proxy_forwarded_rightmost_untrusted", "10.1.2.3:80", "", "6.6.6.6, 198.51.100.7, 10.9.9.9", "198.51.100.7"},
		{"bare_address_proxy", "192.0.2.10:80", "", "198.51.100.8", "198.51.100.8"},
		{"proxy_without_headers", "10.1.2.3:80", "", "", "10.1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request.RemoteAddr = tt.peer
			if tt.realIP != "" {
				request.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.forwarded != "" {
				request.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, trust.ClientIP(request))
		})
	}

	var none *middleware.ProxyTrust
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.RemoteAddr = "192.0.2.1:1234"
	request.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "192.0.2.1", none.ClientIP(request))
}

func TestNewProxyTrust_Invalid(t *testing.T) {
	_, err := middleware.NewProxyTrust([]string{"not-an-ip"})
	assert.Error(t, err)

	_, err = middleware.NewProxyTrust([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}

func TestRateLimiter_IgnoresSpoofedForwardingHeaders(t *testing.T) {
	handler := middleware.NewRateLimiter(1, 1, nil).Handler(ok)

	codes := make([]int, 0, 2)
	for _, spoofed := range []string{"198.51.100.1", "198.51.100.2"} {
		request := httptest.NewRequest(http.MethodPost, "/", nil)
		request.RemoteAddr = "203.0.113.9:5555"
		request.Header.Set("X-Forwarded-For", spoofed)
		request.Header.Set("X-Real-IP", spoofed)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		codes = append(codes, recorder.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}
