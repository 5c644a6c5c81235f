// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the credential flows of the platform: registration,
login and refresh-token rotation.

# Architecture

[Service] orchestrates four collaborators through narrow interfaces:

  - the identity store ([account.Store]), the source of truth;
  - the session cache, a best-effort accelerator that may miss at any time;
  - the token codec that signs and decodes access tokens;
  - the remote profile service, the second store a registration writes to.

Registration is an ordered saga across the identity store and the profile
service with compensation on failure. Login and refresh consult the cache
first and fall back to the store, writing the store's answer back to the
cache. A cache failure is logged and never fails a flow.

# Review Process

This service is critical for security. Any change to credential checks or
token issuance must be reviewed by the security team.
*/
package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/authgate/internal/account"
	"github.com/taibuivan/authgate/internal/platform/ctxutil"
	"github.com/taibuivan/authgate/internal/platform/metrics"
	"github.com/taibuivan/authgate/internal/platform/sec"
	"github.com/taibuivan/authgate/internal/profile"
	"github.com/taibuivan/authgate/internal/session"
)

// TokenCodec signs access tokens and decodes possibly expired ones.
type TokenCodec interface {
	GenerateAccessToken(accountID, email, role string, timeToLive time.Duration) (string, error)
	VerifyExpiredToken(token string) (*sec.AuthClaims, error)
}

// SessionCache is the cache contract the flows rely on. A miss is (nil, nil).
type SessionCache interface {
	Get(ctx context.Context, id string) (*session.CachedSession, error)
	GetByEmail(ctx context.Context, email string) (*session.CachedSession, error)
	Set(ctx context.Context, snapshot *session.CachedSession) error
	Invalidate(ctx context.Context, id, email string) error
}

// ProfileCreator creates the remote profile of a new account.
type ProfileCreator interface {
	Create(ctx context.Context, bearer string, p profile.Profile) error
}

// Config holds the lifetimes the flows issue credentials with.
type Config struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// CompensationTimeout bounds the rollback of a failed registration, which
	// runs detached from the request's cancellation.
	CompensationTimeout time.Duration
}

// Dependencies groups the collaborators of [NewService].
type Dependencies struct {
	Store    account.Store
	Cache    SessionCache
	Tokens   TokenCodec
	Profiles ProfileCreator
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Service implements the credential use cases.
type Service struct {
	store    account.Store
	cache    SessionCache
	tokens   TokenCodec
	profiles ProfileCreator
	metrics  *metrics.Metrics
	logger   *slog.Logger
	cfg      Config
	now      func() time.Time
}

// NewService constructs a [Service].
func NewService(deps Dependencies, cfg Config) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:    deps.Store,
		cache:    deps.Cache,
		tokens:   deps.Tokens,
		profiles: deps.Profiles,
		metrics:  deps.Metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// log prefers the request-scoped logger placed by the logging middleware.
func (service *Service) log(ctx context.Context) *slog.Logger {
	return ctxutil.LoggerOr(ctx, service.logger)
}

// # Cache Helpers

// remember writes snapshot to the cache, logging instead of failing.
func (service *Service) remember(ctx context.Context, snapshot *session.CachedSession) {
	if err := service.cache.Set(ctx, snapshot); err != nil {
		service.log(ctx).WarnContext(ctx, "session_cache_write_failed",
			slog.String("account_id", snapshot.ID),
			slog.Any("error", err),
		)
	}
}

// forget drops the cached snapshot of an account, logging instead of failing.
func (service *Service) forget(ctx context.Context, id, email string) {
	if err := service.cache.Invalidate(ctx, id, email); err != nil {
		service.log(ctx).WarnContext(ctx, "session_cache_invalidate_failed",
			slog.String("account_id", id),
			slog.Any("error", err),
		)
	}
}

// lookupByEmail and lookupByID treat a cache error as a miss.

func (service *Service) lookupByEmail(ctx context.Context, email string) *session.CachedSession {
	snapshot, err := service.cache.GetByEmail(ctx, email)
	if err != nil {
		service.log(ctx).WarnContext(ctx, "session_cache_read_failed", slog.Any("error", err))
		return nil
	}
	return snapshot
}

func (service *Service) lookupByID(ctx context.Context, id string) *session.CachedSession {
	snapshot, err := service.cache.Get(ctx, id)
	if err != nil {
		service.log(ctx).WarnContext(ctx, "session_cache_read_failed",
			slog.String("account_id", id),
			slog.Any("error", err),
		)
		return nil
	}
	return snapshot
}
