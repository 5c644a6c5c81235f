// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"errors"
	"time"
)

// ErrStaleRefreshToken is returned by [Store.RotateRefreshToken] when the
// stored refresh token no longer matches, typically because a concurrent
// refresh rotated it first or it expired in between.
var ErrStaleRefreshToken = errors.New("account: refresh token is stale")

// Store defines the data access contract for accounts.
//
// # Review Process
//
// This interface is placed in a separate file from account.go so entity changes
// and storage-contract changes can be reviewed independently by the team.
//
// # Implementations
//
// The canonical implementation is PostgreSQL ([PostgresStore]).
type Store interface {
	// Create validates input, hashes the password and persists a new account.
	//
	// Returns a VALIDATION_ERROR [apperr.AppError] with field details when the
	// input is rejected, including duplicate emails.
	Create(ctx context.Context, input NewAccount) (*Account, error)

	// FindByID returns the account with the given ID.
	//
	// Returns [apperr.NotFound] if the account does not exist.
	FindByID(ctx context.Context, id string) (*Account, error)

	// FindByEmail returns the account with the given (normalized) email.
	//
	// Returns [apperr.NotFound] if no account is registered with this email.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// VerifyPassword reports whether plaintext matches the account's password.
	VerifyPassword(account *Account, plaintext string) bool

	// UpdateRefreshToken unconditionally replaces the stored refresh token.
	// Used when a login or registration issues a brand new pair.
	UpdateRefreshToken(ctx context.Context, id, token string, expiry time.Time) error

	// RotateRefreshToken replaces the stored refresh token only if it still
	// equals expected and has not expired.
	//
	// Returns [ErrStaleRefreshToken] when the swap did not happen.
	RotateRefreshToken(ctx context.Context, id, expected, next string, expiry time.Time) error

	// Delete removes the account permanently. Deleting a missing account is
	// not an error.
	Delete(ctx context.Context, id string) error
}
