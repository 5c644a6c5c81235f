// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/authgate/internal/account/accounttest"
	"github.com/taibuivan/authgate/internal/api"
	"github.com/taibuivan/authgate/internal/auth"
	"github.com/taibuivan/authgate/internal/platform/config"
	"github.com/taibuivan/authgate/internal/platform/metrics"
	"github.com/taibuivan/authgate/internal/platform/middleware"
	"github.com/taibuivan/authgate/internal/platform/sec"
	"github.com/taibuivan/authgate/internal/profile"
	"github.com/taibuivan/authgate/internal/session"
)

func newServer(t *testing.T, health api.HealthDependencies) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{ServerPort: "0", Environment: "production", ExtraOrigins: []string{"https://app.school.edu"}}

	tokens, err := sec.NewTokenService(sec.TokenConfig{Secret: strings.Repeat("k", 32), Issuer: "authgate", Audience: "authgate-clients"})
	require.NoError(t, err)

	profiles := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(profiles.Close)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	m := metrics.New()
	service := auth.NewService(auth.Dependencies{
		Store:    accounttest.NewMemoryStore(),
		Cache:    session.NewRedisCache(client, time.Minute, time.Second, logger, session.WithMetrics(m)),
		Tokens:   tokens,
		Profiles: profile.NewClient(profiles.URL, time.Second, profiles.Client()),
		Metrics:  m,
		Logger:   logger,
	}, auth.Config{AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour, CompensationTimeout: time.Second})

	liveness, readiness := api.NewHealthHandlers(health, logger)
	server := api.NewServer(cfg, logger, tokens, middleware.NewRateLimiter(1000, 1000, nil), api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   m.Handler(),
		Auth:      auth.NewHandler(service),
	})
	return server.Handler()
}

func healthy(context.Context) error { return nil }

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
	return recorder
}

func TestServer_Liveness(t *testing.T) {
	recorder := get(t, newServer(t, api.HealthDependencies{}), "/health")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.NotEmpty(t, recorder.Header().Get("X-Request-ID"))
	assert.Contains(t, recorder.Body.String(), `"app":"authgate"`)
}

func TestServer_Readiness(t *testing.T) {
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name   string
		deps   api.HealthDependencies
		status int
		state  string
	}{
		{"all_up", api.HealthDependencies{CheckStore: healthy, CheckCache: healthy}, http.StatusOK, "ready"},
		{"store_down", api.HealthDependencies{CheckStore: down, CheckCache: healthy}, http.StatusServiceUnavailable, "degraded"},
		{"cache_down_still_ready", api.HealthDependencies{CheckStore: healthy, CheckCache: down}, http.StatusOK, "ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := get(t, newServer(t, tt.deps), "/ready")
			assert.Equal(t, tt.status, recorder.Code)

			var body struct {
				Data struct {
					Status string `json:"status"`
					Checks []struct {
						Name string `json:"name"`
						OK   bool   `json:"ok"`
					} `json:"checks"`
				} `json:"data"`
			}
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
			assert.Equal(t, tt.state, body.Data.Status)
			assert.Len(t, body.Data.Checks, 2)
		})
	}
}

func TestServer_MetricsAndAuthRoutes(t *testing.T) {
	handler := newServer(t, api.HealthDependencies{})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"email":"a@x.com","password":"pw123456","role":"Student"}`)))
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	recorder = get(t, handler, "/api/auth/health")
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = get(t, handler, "/metrics")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "authgate_registrations_total")
}

func TestServer_CORS(t *testing.T) {
	handler := newServer(t, api.HealthDependencies{})

	request := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	request.Header.Set("Origin", "https://app.school.edu")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "https://app.school.edu", recorder.Header().Get("Access-Control-Allow-Origin"))

	request = httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	request.Header.Set("Origin", "https://evil.example")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
}
