// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ctxutil_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/authgate/internal/platform/ctxutil"
	"github.com/taibuivan/authgate/internal/platform/sec"
)

/*
TestContext_RequestID verifies that Request IDs can be injected and retrieved.
*/
func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ctxutil.GetRequestID(ctx))

	ctx = ctxutil.WithRequestID(ctx, "req-1")
	assert.Equal(t, "req-1", ctxutil.GetRequestID(ctx))
}

/*
TestContext_Logger verifies the per-request logger and its default fallback.
*/
func TestContext_Logger(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctx))

	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Equal(t, logger, ctxutil.GetLogger(ctx))

	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctxutil.WithLogger(context.Background(), nil)))
}

/*
TestContext_Caller verifies that bearer claims travel through the context.
*/
func TestContext_Caller(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, ctxutil.GetCaller(ctx))

	claims := &sec.AuthClaims{UserID: "acc-1", Role: sec.RoleAdmin.String()}
	ctx = ctxutil.WithCaller(ctx, claims)

	caller := ctxutil.GetCaller(ctx)
	assert.Equal(t, "acc-1", caller.UserID)
	assert.Equal(t, "Admin", caller.Role)
}

/*
TestContext_LoggerOr verifies the explicit fallback logger.
*/
func TestContext_LoggerOr(t *testing.T) {
	fallback := slog.New(slog.NewTextHandler(io.Discard, nil))
	assert.Equal(t, fallback, ctxutil.LoggerOr(context.Background(), fallback))

	scoped := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ctx := ctxutil.WithLogger(context.Background(), scoped)
	assert.Equal(t, scoped, ctxutil.LoggerOr(ctx, fallback))
}
