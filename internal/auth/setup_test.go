// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/authgate/internal/account/accounttest"
	"github.com/taibuivan/authgate/internal/auth"
	"github.com/taibuivan/authgate/internal/platform/metrics"
	"github.com/taibuivan/authgate/internal/platform/sec"
	"github.com/taibuivan/authgate/internal/profile"
	"github.com/taibuivan/authgate/internal/session"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testIssuer   = "authgate"
	testAudience = "authgate-clients"
	cacheTTL     = 30 * time.Minute
)

// harness wires a real service against in-memory collaborators: the
// identity store is a map, the cache is miniredis, the profile service is an
// httptest server whose answer each test controls.
type harness struct {
	service  *auth.Service
	store    *accounttest.MemoryStore
	redis    *miniredis.Miniredis
	tokens   *sec.TokenService
	metrics  *metrics.Metrics
	profiles *httptest.Server

	// profileStatus is the status the profile server answers with.
	profileStatus atomic.Int32
	// profileDelay stalls the profile server before answering.
	profileDelay atomic.Int64
	// profileCalls counts requests received by the profile server.
	profileCalls atomic.Int32
	// profileAuth is the last Authorization header received.
	profileAuth atomic.Value
}

type harnessOption func(*auth.Dependencies)

func withTokens(codec auth.TokenCodec) harnessOption {
	return func(deps *auth.Dependencies) { deps.Tokens = codec }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		store:   accounttest.NewMemoryStore(),
		redis:   miniredis.RunT(t),
		metrics: metrics.New(),
	}
	h.profileStatus.Store(http.StatusCreated)

	h.profiles = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.profileCalls.Add(1)
		h.profileAuth.Store(r.Header.Get("Authorization"))
		if delay := time.Duration(h.profileDelay.Load()); delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		w.WriteHeader(int(h.profileStatus.Load()))
	}))
	t.Cleanup(h.profiles.Close)

	tokens, err := sec.NewTokenService(sec.TokenConfig{Secret: testSecret, Issuer: testIssuer, Audience: testAudience})
	require.NoError(t, err)
	h.tokens = tokens

	client := redis.NewClient(&redis.Options{Addr: h.redis.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps := auth.Dependencies{
		Store:    h.store,
		Cache:    session.NewRedisCache(client, cacheTTL, 200*time.Millisecond, logger, session.WithMetrics(h.metrics)),
		Tokens:   tokens,
		Profiles: profile.NewClient(h.profiles.URL, 200*time.Millisecond, h.profiles.Client()),
		Metrics:  h.metrics,
		Logger:   logger,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	h.service = auth.NewService(deps, auth.Config{
		AccessTokenTTL:      15 * time.Minute,
		RefreshTokenTTL:     7 * 24 * time.Hour,
		CompensationTimeout: time.Second,
	})

	return h
}

// adminClaims returns the claims an admin's access token carries.
func adminClaims(t *testing.T, h *harness, id string) *sec.AuthClaims {
	t.Helper()
	token, err := h.tokens.GenerateAccessToken(id, "root@school.edu", sec.RoleAdmin.String(), time.Minute)
	require.NoError(t, err)
	claims, err := h.tokens.VerifyToken(token)
	require.NoError(t, err)
	return claims
}

// emptyTokenCodec signs nothing, simulating an issuer that yields no token.
type emptyTokenCodec struct {
	*sec.TokenService
}

func (emptyTokenCodec) GenerateAccessToken(string, string, string, time.Duration) (string, error) {
	return "", nil
}
