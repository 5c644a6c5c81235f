// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"

	"github.com/taibuivan/authgate/internal/account"
	"github.com/taibuivan/authgate/internal/platform/apperr"
	"github.com/taibuivan/authgate/internal/session"
)

var errInvalidRefresh = apperr.Unauthorized("Invalid or expired refresh token")

// Refresh exchanges a (typically expired) access token and its refresh token
// for a new pair.
//
// # Flow
//  1. Decode the access token without enforcing expiry to recover the
//     account ID. Signature, issuer and audience are still enforced.
//  2. Cache lookup by ID; a snapshot holding the same unexpired refresh token
//     is used as is.
//  3. Otherwise the store must hold the same refresh token with an expiry
//     strictly in the future.
//  4. The refresh token is rotated with a compare-and-swap, so of two
//     concurrent refreshes presenting the same token only one succeeds.
func (service *Service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	if accessToken == "" || refreshToken == "" {
		return nil, errInvalidRefresh
	}

	// ── 1. Decode ─────────────────────────────────────────────────────────

	claims, err := service.tokens.VerifyExpiredToken(accessToken)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid access token: " + err.Error()).WithCause(err)
	}

	now := service.now()

	// ── 2. Cache ──────────────────────────────────────────────────────────

	snapshot := service.lookupByID(ctx, claims.UserID)
	if snapshot != nil && !snapshot.HasRefreshToken(refreshToken, now) {
		snapshot = nil
	}

	// ── 3. Store ──────────────────────────────────────────────────────────

	if snapshot == nil {
		found, err := service.store.FindByID(ctx, claims.UserID)
		if err != nil {
			if account.IsNotFound(err) {
				return nil, errInvalidRefresh
			}
			return nil, err
		}
		if !found.HasRefreshToken(refreshToken, now) {
			return nil, errInvalidRefresh
		}

		snapshot = session.FromAccount(found)
		service.remember(ctx, snapshot)
	}

	// ── 4. Rotation ───────────────────────────────────────────────────────

	pair, err := service.rotate(ctx, snapshot, refreshToken)
	if err != nil {
		return nil, err
	}
	service.remember(ctx, snapshot)

	return pair, nil
}
