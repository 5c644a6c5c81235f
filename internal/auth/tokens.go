// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/authgate/internal/account"
	"github.com/taibuivan/authgate/internal/platform/apperr"
	"github.com/taibuivan/authgate/internal/platform/sec"
	"github.com/taibuivan/authgate/internal/session"
)

// refreshTokenBytes is the entropy of a refresh token before encoding.
const refreshTokenBytes = 32

// Issuance flows, used as the "flow" metric label.
const (
	flowRegister = "register"
	flowLogin    = "login"
	flowRefresh  = "refresh"
)

// TokenPair is the credential pair handed to clients.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`

	// RefreshTokenExpiry is kept server-side only.
	RefreshTokenExpiry time.Time `json:"-"`
}

// mint signs a fresh access token and draws a fresh refresh token for the
// identity in snapshot. Nothing is persisted.
func (service *Service) mint(snapshot *session.CachedSession) (*TokenPair, error) {
	accessToken, err := service.tokens.GenerateAccessToken(
		snapshot.ID,
		snapshot.Email,
		snapshot.Role.String(),
		service.cfg.AccessTokenTTL,
	)
	if err != nil {
		return nil, apperr.IssuanceFailed(fmt.Errorf("auth_sign_access_token_failed: %w", err))
	}
	if accessToken == "" {
		return nil, apperr.IssuanceFailed(errors.New("auth_sign_access_token_failed: empty token"))
	}

	refreshToken, err := sec.GenerateSecureToken(refreshTokenBytes)
	if err != nil {
		return nil, apperr.IssuanceFailed(fmt.Errorf("auth_refresh_token_failed: %w", err))
	}

	return &TokenPair{
		AccessToken:        accessToken,
		RefreshToken:       refreshToken,
		RefreshTokenExpiry: service.now().Add(service.cfg.RefreshTokenTTL).UTC(),
	}, nil
}

// issue mints a pair for snapshot and unconditionally persists its refresh
// token, replacing whatever the account held. On success snapshot carries
// the new refresh token and is ready to be cached.
func (service *Service) issue(ctx context.Context, snapshot *session.CachedSession, flow string) (*TokenPair, error) {
	pair, err := service.mint(snapshot)
	if err != nil {
		return nil, err
	}

	if err := service.store.UpdateRefreshToken(ctx, snapshot.ID, pair.RefreshToken, pair.RefreshTokenExpiry); err != nil {
		if account.IsNotFound(err) {
			// Served from a snapshot of an account the store no longer has.
			service.forget(ctx, snapshot.ID, snapshot.Email)
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("auth_persist_refresh_token_failed: %w", err)
	}

	snapshot.RefreshToken = pair.RefreshToken
	snapshot.RefreshTokenExpiry = pair.RefreshTokenExpiry
	service.metrics.TokenIssued(flow)

	return pair, nil
}

// rotate mints a pair for snapshot and swaps the refresh token only if the
// store still holds presented. Losing the swap to a concurrent refresh is
// Unauthorized and leaves the winner's token in place.
func (service *Service) rotate(ctx context.Context, snapshot *session.CachedSession, presented string) (*TokenPair, error) {
	pair, err := service.mint(snapshot)
	if err != nil {
		return nil, err
	}

	err = service.store.RotateRefreshToken(ctx, snapshot.ID, presented, pair.RefreshToken, pair.RefreshTokenExpiry)
	if errors.Is(err, account.ErrStaleRefreshToken) {
		service.log(ctx).WarnContext(ctx, "refresh_token_rotation_conflict",
			slog.String("account_id", snapshot.ID),
		)
		service.forget(ctx, snapshot.ID, snapshot.Email)
		return nil, apperr.Unauthorized("Invalid or expired refresh token").WithCause(err)
	}
	if err != nil {
		return nil, fmt.Errorf("auth_rotate_refresh_token_failed: %w", err)
	}

	snapshot.RefreshToken = pair.RefreshToken
	snapshot.RefreshTokenExpiry = pair.RefreshTokenExpiry
	service.metrics.TokenIssued(flowRefresh)

	return pair, nil
}
