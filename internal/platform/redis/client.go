// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package redis provides the managed client behind the session cache.

Every cache call in the credential flows carries its own short deadline, so
the socket timeouts configured here only bound what that deadline cannot,
such as dialing a dead host.
*/
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dialTimeout = 3 * time.Second
	pingTimeout = 2 * time.Second
	poolSize    = 10
)

// NewClient parses redisURL and returns a client with per-operation socket
// timeouts of opTimeout.
//
// An unreachable server is logged and tolerated: the cache is optional for
// correctness, so the service starts and every flow falls back to the store.
func NewClient(ctx context.Context, redisURL string, opTimeout time.Duration, logger *slog.Logger) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis_invalid_url: %w", err)
	}

	options.PoolSize = poolSize
	options.MinIdleConns = 2
	options.DialTimeout = dialTimeout
	if opTimeout > 0 {
		options.ReadTimeout = opTimeout
		options.WriteTimeout = opTimeout
	}

	client := redis.NewClient(options)

	if err := Ping(ctx, client); err != nil {
		logger.Warn("redis_unreachable_at_startup",
			slog.String("addr", options.Addr),
			slog.Any("error", err),
		)
		return client, nil
	}

	logger.Info("redis_client_connected",
		slog.String("addr", options.Addr),
		slog.Int("pool_size", options.PoolSize),
	)

	return client, nil
}

// Ping verifies that the Redis server answers.
func Ping(ctx context.Context, client *redis.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis_ping_failed: %w", err)
	}

	return nil
}
