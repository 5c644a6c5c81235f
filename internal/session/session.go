// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session implements the session cache: a Redis-backed accelerator that
holds a snapshot of an account for a fixed absolute TTL.

# Keys

Each snapshot lives under one canonical key and one secondary email index
that points at it:

	auth:session:user:<accountID>     -> JSON CachedSession
	auth:session:email:<email>        -> accountID

Both keys are written in the same MULTI/EXEC transaction with the same TTL,
so a reader can never observe an index whose target was written by another
generation of the same Set.

# Failure Model

The cache is never the source of truth. A miss is reported as (nil, nil).
Backend failures are returned to the caller, which is expected to log them
and fall back to the identity store.
*/
package session

import (
	"time"

	"github.com/taibuivan/authgate/internal/account"
	"github.com/taibuivan/authgate/internal/platform/sec"
	"github.com/taibuivan/authgate/pkg/pointer"
)

// CachedSession is the snapshot of an account kept in the cache.
//
// PasswordHash is carried so the login fast path can verify credentials
// without reaching the store. The snapshot never leaves the service.
type CachedSession struct {
	ID                 string       `json:"id"`
	Email              string       `json:"email"`
	Role               sec.UserRole `json:"role"`
	PasswordHash       string       `json:"password_hash"`
	RefreshToken       string       `json:"refresh_token,omitempty"`
	RefreshTokenExpiry time.Time    `json:"refresh_token_expiry"`
	CachedAt           time.Time    `json:"cached_at"`
}

// FromAccount snapshots a store record.
func FromAccount(a *account.Account) *CachedSession {
	return &CachedSession{
		ID:                 a.ID,
		Email:              a.Email,
		Role:               a.Role,
		PasswordHash:       a.PasswordHash,
		RefreshToken:       pointer.Val(a.RefreshToken),
		RefreshTokenExpiry: a.RefreshTokenExpiry,
	}
}

// HasRefreshToken reports whether token matches the cached refresh token and
// the cached expiry is strictly after now.
func (s *CachedSession) HasRefreshToken(token string, now time.Time) bool {
	if s.RefreshToken == "" || token == "" {
		return false
	}
	return s.RefreshToken == token && s.RefreshTokenExpiry.After(now)
}
