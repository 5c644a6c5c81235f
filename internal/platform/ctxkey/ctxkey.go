// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxkey defines the typed context keys shared by middleware, handlers
// and the response helpers.
//
// The key type is unexported, so no other package can construct a colliding
// key even with the same string value.
package ctxkey

type key string

const (
	// KeyRequestID carries the X-Request-ID correlation value.
	KeyRequestID key = "request_id"

	// KeyCaller carries the verified [sec.AuthClaims] of the bearer token, if any.
	KeyCaller key = "caller"

	// KeyLogger carries the per-request [*log/slog.Logger].
	KeyLogger key = "logger"
)
