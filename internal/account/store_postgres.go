// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/authgate/internal/platform/database/schema"
	"github.com/taibuivan/authgate/internal/platform/dberr"
	"github.com/taibuivan/authgate/internal/platform/sec"
	"github.com/taibuivan/authgate/pkg/uuid"
)

// PostgresStore implements [Store] on the auth.account table.
//
// # Error Mapping
//
// Storage-specific errors are mapped through [dberr.Wrap] so callers only see
// [apperr.AppError] values. A unique violation on the email column becomes a
// VALIDATION_ERROR on the "email" field.
type PostgresStore struct {
	pool    *pgxpool.Pool
	hasher  sec.PasswordHasher
	timeout time.Duration
	now     func() time.Time
}

// NewPostgresStore creates a store on pool. Every call is bounded by timeout
// when it is positive.
func NewPostgresStore(pool *pgxpool.Pool, hasher sec.PasswordHasher, timeout time.Duration) *PostgresStore {
	return &PostgresStore{pool: pool, hasher: hasher, timeout: timeout, now: time.Now}
}

var accountColumns = strings.Join(schema.AuthAccount.Columns(), ", ")

func (store *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if store.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, store.timeout)
}

// Create persists a new account after validation and password hashing.
func (store *PostgresStore) Create(ctx context.Context, input NewAccount) (*Account, error) {
	input.Email = NormalizeEmail(input.Email)
	if err := ValidateNew(input); err != nil {
		return nil, err
	}

	hash, err := store.hasher.Hash(input.Password)
	if err != nil {
		return nil, HashError(err)
	}

	now := store.now().UTC()
	account := &Account{
		ID:           uuid.New(),
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		schema.AuthAccount.Table,
		schema.AuthAccount.ID, schema.AuthAccount.Email, schema.AuthAccount.Password,
		schema.AuthAccount.Role, schema.AuthAccount.CreatedAt, schema.AuthAccount.UpdatedAt,
	)

	ctx, cancel := store.withTimeout(ctx)
	defer cancel()

	_, err = store.pool.Exec(ctx, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.Role.String(),
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if _, ok := dberr.UniqueViolation(err); ok {
			return nil, DuplicateEmailError(account.Email).WithCause(err)
		}
		return nil, dberr.Wrap(err, "account_store_create")
	}

	return account, nil
}

// FindByID returns the account with the given ID.
func (store *PostgresStore) FindByID(ctx context.Context, id string) (*Account, error) {
	if !uuid.Valid(id) {
		return nil, dberr.Wrap(pgx.ErrNoRows, "Account")
	}
	return store.findOne(ctx, schema.AuthAccount.ID, id)
}

// FindByEmail returns the account registered with email.
func (store *PostgresStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return store.findOne(ctx, schema.AuthAccount.Email, NormalizeEmail(email))
}

func (store *PostgresStore) findOne(ctx context.Context, column, value string) (*Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		accountColumns, schema.AuthAccount.Table, column)

	ctx, cancel := store.withTimeout(ctx)
	defer cancel()

	account := &Account{}
	var (
		role   string
		expiry *time.Time
	)
	err := store.pool.QueryRow(ctx, query, value).Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&role,
		&account.RefreshToken,
		&expiry,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "Account")
	}

	account.Role = sec.UserRole(role)
	if expiry != nil {
		account.RefreshTokenExpiry = *expiry
	}

	return account, nil
}

// VerifyPassword compares plaintext against the stored bcrypt hash.
func (store *PostgresStore) VerifyPassword(account *Account, plaintext string) bool {
	if account == nil {
		return false
	}
	return store.hasher.Check(plaintext, account.PasswordHash)
}

// UpdateRefreshToken overwrites the refresh token and its expiry.
func (store *PostgresStore) UpdateRefreshToken(ctx context.Context, id, token string, expiry time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3, %s = $4 WHERE %s = $1`,
		schema.AuthAccount.Table,
		schema.AuthAccount.RefreshToken, schema.AuthAccount.RefreshTokenExpiry, schema.AuthAccount.UpdatedAt,
		schema.AuthAccount.ID,
	)

	ctx, cancel := store.withTimeout(ctx)
	defer cancel()

	tag, err := store.pool.Exec(ctx, query, id, token, expiry.UTC(), store.now().UTC())
	if err != nil {
		return dberr.Wrap(err, "account_store_update_refresh_token")
	}
	if tag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "Account")
	}

	return nil
}

// RotateRefreshToken swaps expected for next in a single conditional UPDATE.
// Only one of several concurrent rotations presenting the same token can
// match the WHERE clause.
//
// $5 is the current time. It is both the new updatedat and the bound the
// stored expiry must exceed, so a token expiring exactly now is stale.
func (store *PostgresStore) RotateRefreshToken(ctx context.Context, id, expected, next string, expiry time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = $3, %s = $4, %s = $5
		WHERE %s = $1 AND %s = $2 AND %s > $5`,
		schema.AuthAccount.Table,
		schema.AuthAccount.RefreshToken, schema.AuthAccount.RefreshTokenExpiry, schema.AuthAccount.UpdatedAt,
		schema.AuthAccount.ID, schema.AuthAccount.RefreshToken, schema.AuthAccount.RefreshTokenExpiry,
	)

	ctx, cancel := store.withTimeout(ctx)
	defer cancel()

	tag, err := store.pool.Exec(ctx, query, id, expected, next, expiry.UTC(), store.now().UTC())
	if err != nil {
		return dberr.Wrap(err, "account_store_rotate_refresh_token")
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleRefreshToken
	}

	return nil
}

// Delete removes the account row.
func (store *PostgresStore) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.AuthAccount.Table, schema.AuthAccount.ID)

	ctx, cancel := store.withTimeout(ctx)
	defer cancel()

	if _, err := store.pool.Exec(ctx, query, id); err != nil {
		return dberr.Wrap(err, "account_store_delete")
	}

	return nil
}
