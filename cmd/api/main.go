// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the authgate credential server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Run database migrations (idempotent).
//  4. Connect to PostgreSQL (pgxpool).
//  5. Connect to Redis. An unreachable cache is logged, not fatal.
//  6. Wire the credential service and HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/authgate/internal/account"
	"github.com/taibuivan/authgate/internal/api"
	"github.com/taibuivan/authgate/internal/auth"
	"github.com/taibuivan/authgate/internal/platform/config"
	"github.com/taibuivan/authgate/internal/platform/constants"
	"github.com/taibuivan/authgate/internal/platform/metrics"
	"github.com/taibuivan/authgate/internal/platform/middleware"
	"github.com/taibuivan/authgate/internal/platform/migration"
	pgstore "github.com/taibuivan/authgate/internal/platform/postgres"
	redisstore "github.com/taibuivan/authgate/internal/platform/redis"
	"github.com/taibuivan/authgate/internal/platform/sec"
	"github.com/taibuivan/authgate/internal/profile"
	"github.com/taibuivan/authgate/internal/session"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String(constants.FieldVersion, constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for the process lifetime. Cancelled on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Use a 30s deadline for startup so misconfiguration is caught quickly
	// rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(ctx, 30*time.Second)
	defer startupCancel()

	// ── 3. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 4. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, cfg.StoreTimeout, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing_postgres_pool")
		pool.Close()
	}()

	// ── 5. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, cfg.CacheTimeout, log)
	must(log, err, "configure redis")
	defer func() {
		log.Info("closing_redis_client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_error", slog.Any("error", cerr))
		}
	}()

	// ── 6. Credential Service ─────────────────────────────────────────────
	tokens, err := sec.NewTokenService(sec.TokenConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	})
	must(log, err, "initialize token service")

	registry := metrics.New()

	service := auth.NewService(auth.Dependencies{
		Store:    account.NewPostgresStore(pool, sec.NewPasswordHasher(bcrypt.DefaultCost), cfg.StoreTimeout),
		Cache:    session.NewRedisCache(rdb, cfg.SessionCacheTTL, cfg.CacheTimeout, log, session.WithMetrics(registry)),
		Tokens:   tokens,
		Profiles: profile.NewClient(cfg.ProfileServiceURL, cfg.ProfileTimeout, nil),
		Metrics:  registry,
		Logger:   log,
	}, auth.Config{
		AccessTokenTTL:      cfg.AccessTokenTTL,
		RefreshTokenTTL:     cfg.RefreshTokenTTL,
		CompensationTimeout: cfg.StoreTimeout,
	})

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckStore: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) },
		CheckCache: func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) },
	}, log)

	// ── 7. HTTP Server ────────────────────────────────────────────────────
	proxies, err := middleware.NewProxyTrust(cfg.TrustedProxies)
	must(log, err, "parse trusted proxies")

	limiter := middleware.NewRateLimiter(constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst, proxies)
	go limiter.Run(ctx)

	server := api.NewServer(cfg, log, tokens, limiter, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   registry.Handler(),
		Auth:      auth.NewHandler(service),
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case <-ctx.Done():
		log.Info("shutdown_signal_received")
	case err := <-serverErr:
		log.Error("server_startup_error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting_down_server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped_cleanly")
}

// newLogger builds the process JSON logger tagged with the application name.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String(constants.FieldApp, constants.AppName))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
