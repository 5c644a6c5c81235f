// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (token service, session cache,
    profile client) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// minSecretLength is the smallest HS256 secret accepted at startup.
const minSecretLength = 32

// # Configuration Schema

// Config holds all runtime configuration for the authgate API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Identity store (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Session cache (Redis)
	RedisURL string `env:"REDIS_URL,required,notEmpty"`

	// Token signing, shared with the verification middleware of other services
	JWTSecret   string `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer   string `env:"JWT_ISSUER"   envDefault:"authgate"`
	JWTAudience string `env:"JWT_AUDIENCE" envDefault:"authgate-clients"`

	// Token and cache lifetimes
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL"  envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	SessionCacheTTL time.Duration `env:"SESSION_CACHE_TTL" envDefault:"30m"`

	// Per-call deadlines for external collaborators
	CacheTimeout   time.Duration `env:"CACHE_TIMEOUT"   envDefault:"500ms"`
	StoreTimeout   time.Duration `env:"STORE_TIMEOUT"   envDefault:"3s"`
	ProfileTimeout time.Duration `env:"PROFILE_TIMEOUT" envDefault:"5s"`

	// Profile-creation collaborator
	ProfileServiceURL string `env:"PROFILE_SERVICE_URL" envDefault:"http://profile-service"`

	// Cross-Origin Resource Sharing
	ExtraOrigins []string `env:"EXTRA_ORIGINS" envSeparator:","`

	// TrustedProxies are the CIDRs or addresses whose X-Real-IP and
	// X-Forwarded-For headers are believed. Empty means none.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if len(c.JWTSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLength))
	}

	durations := map[string]time.Duration{
		"ACCESS_TOKEN_TTL":  c.AccessTokenTTL,
		"REFRESH_TOKEN_TTL": c.RefreshTokenTTL,
		"SESSION_CACHE_TTL": c.SessionCacheTTL,
		"CACHE_TIMEOUT":     c.CacheTimeout,
		"STORE_TIMEOUT":     c.StoreTimeout,
		"PROFILE_TIMEOUT":   c.ProfileTimeout,
	}
	for name, value := range durations {
		if value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: invalid configuration: %w", err)
	}

	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
