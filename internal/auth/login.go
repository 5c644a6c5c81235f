// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"

	"github.com/taibuivan/authgate/internal/account"
	"github.com/taibuivan/authgate/internal/platform/apperr"
	"github.com/taibuivan/authgate/internal/platform/sec"
	"github.com/taibuivan/authgate/internal/session"
)

// errInvalidCredentials never reveals whether the email or the password was wrong.
var errInvalidCredentials = apperr.Unauthorized("Invalid login credentials")

// Login authenticates email and password and issues a new token pair.
//
// # Flow
//  1. Cache lookup by email; a hit whose hash matches the password is used
//     as is.
//  2. Otherwise the store is consulted and the account verified there.
//  3. Tokens are issued (the refresh token is always persisted to the store)
//     and the snapshot is written back to the cache.
func (service *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	if email == "" || password == "" {
		return nil, errInvalidCredentials
	}

	// ── 1. Cache ──────────────────────────────────────────────────────────

	snapshot := service.lookupByEmail(ctx, email)
	if snapshot != nil && !sec.CheckPasswordHash(password, snapshot.PasswordHash) {
		// A stale hash must not lock the user out; the store decides.
		snapshot = nil
	}

	// ── 2. Store ──────────────────────────────────────────────────────────

	if snapshot == nil {
		found, err := service.store.FindByEmail(ctx, email)
		if err != nil {
			if account.IsNotFound(err) {
				return nil, errInvalidCredentials
			}
			return nil, err
		}
		if !service.store.VerifyPassword(found, password) {
			return nil, errInvalidCredentials
		}

		snapshot = session.FromAccount(found)
		service.remember(ctx, snapshot)
	}

	// ── 3. Issuance ───────────────────────────────────────────────────────

	pair, err := service.issue(ctx, snapshot, flowLogin)
	if err != nil {
		return nil, err
	}
	service.remember(ctx, snapshot)

	return pair, nil
}
