// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/authgate/internal/account"
	"github.com/taibuivan/authgate/internal/platform/constants"
	"github.com/taibuivan/authgate/internal/platform/metrics"
)

// Lookup operations, used as the "op" metric label.
const (
	opGet        = "get"
	opGetByEmail = "get_by_email"
)

// RedisCache stores [CachedSession] snapshots in Redis.
type RedisCache struct {
	client  redis.UniversalClient
	ttl     time.Duration
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option customizes a [RedisCache].
type Option func(*RedisCache)

// WithMetrics records every lookup on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *RedisCache) { c.metrics = m }
}

// WithClock replaces the wall clock used to stamp and age snapshots.
func WithClock(now func() time.Time) Option {
	return func(c *RedisCache) { c.now = now }
}

// NewRedisCache creates a cache whose entries live for ttl and whose backend
// calls are each bounded by timeout.
func NewRedisCache(client redis.UniversalClient, ttl, timeout time.Duration, logger *slog.Logger, opts ...Option) *RedisCache {
	cache := &RedisCache{
		client:  client,
		ttl:     ttl,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

func userKey(id string) string {
	return constants.RedisPrefixSession + id
}

func emailKey(email string) string {
	return constants.RedisPrefixSessionEmail + account.NormalizeEmail(email)
}

func (c *RedisCache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// # Reads

// Get returns the snapshot of account id, or (nil, nil) on a miss.
func (c *RedisCache) Get(ctx context.Context, id string) (*CachedSession, error) {
	if id == "" {
		c.metrics.CacheLookup(opGet, metrics.ResultMiss)
		return nil, nil
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	snapshot, err := c.load(ctx, id)
	c.record(opGet, snapshot, err)
	return snapshot, err
}

// GetByEmail resolves the email index and returns the snapshot it points at,
// or (nil, nil) on a miss. A snapshot whose email differs from the index is
// treated as a miss.
func (c *RedisCache) GetByEmail(ctx context.Context, email string) (*CachedSession, error) {
	if email == "" {
		c.metrics.CacheLookup(opGetByEmail, metrics.ResultMiss)
		return nil, nil
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	id, err := c.client.Get(ctx, emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		c.record(opGetByEmail, nil, nil)
		return nil, nil
	}
	if err != nil {
		err = fmt.Errorf("session_cache_index_read_failed: %w", err)
		c.record(opGetByEmail, nil, err)
		return nil, err
	}

	snapshot, err := c.load(ctx, id)
	if snapshot != nil && account.NormalizeEmail(snapshot.Email) != account.NormalizeEmail(email) {
		snapshot = nil
	}
	c.record(opGetByEmail, snapshot, err)
	return snapshot, err
}

func (c *RedisCache) load(ctx context.Context, id string) (*CachedSession, error) {
	raw, err := c.client.Get(ctx, userKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session_cache_read_failed: %w", err)
	}

	var snapshot CachedSession
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		c.logger.Warn("session_cache_corrupt_entry",
			slog.String("account_id", id),
			slog.Any("error", err),
		)
		return nil, nil
	}

	if snapshot.ID != id || c.now().Sub(snapshot.CachedAt) >= c.ttl {
		return nil, nil
	}

	return &snapshot, nil
}

func (c *RedisCache) record(op string, snapshot *CachedSession, err error) {
	switch {
	case err != nil:
		c.metrics.CacheLookup(op, metrics.ResultError)
	case snapshot == nil:
		c.metrics.CacheLookup(op, metrics.ResultMiss)
	default:
		c.metrics.CacheLookup(op, metrics.ResultHit)
	}
}

// # Writes

// Set stamps snapshot with the current time and stores it together with its
// email index.
func (c *RedisCache) Set(ctx context.Context, snapshot *CachedSession) error {
	if snapshot == nil || snapshot.ID == "" {
		return errors.New("session_cache_write_failed: snapshot has no account id")
	}

	stamped := *snapshot
	stamped.CachedAt = c.now().UTC()

	payload, err := json.Marshal(&stamped)
	if err != nil {
		return fmt.Errorf("session_cache_encode_failed: %w", err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, userKey(stamped.ID), payload, c.ttl)
		if stamped.Email != "" {
			pipe.Set(ctx, emailKey(stamped.Email), stamped.ID, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("session_cache_write_failed: %w", err)
	}

	snapshot.CachedAt = stamped.CachedAt
	return nil
}

// Invalidate removes the snapshot of account id and its email index. When
// email is empty it is read from the stored snapshot, if any.
func (c *RedisCache) Invalidate(ctx context.Context, id, email string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if email == "" {
		if raw, err := c.client.Get(ctx, userKey(id)).Bytes(); err == nil {
			var snapshot CachedSession
			if json.Unmarshal(raw, &snapshot) == nil {
				email = snapshot.Email
			}
		}
	}

	keys := []string{userKey(id)}
	if email != "" {
		keys = append(keys, emailKey(email))
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("session_cache_invalidate_failed: %w", err)
	}
	return nil
}
