// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account implements the identity store: durable account records that
are the source of truth whenever the session cache misses.

# Architecture

The [Store] interface is the narrow adapter the credential flows consume. The
canonical implementation is PostgreSQL ([PostgresStore]). Password hashing
happens inside the adapter, so plain-text passwords never leave [Store.Create]
and [Store.VerifyPassword].

Accounts are created by registration and mutated only by refresh-token
issuance and rotation.
*/
package account

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"

	"github.com/taibuivan/authgate/internal/platform/apperr"
	"github.com/taibuivan/authgate/internal/platform/sec"
	"github.com/taibuivan/authgate/internal/platform/validate"
)

const (
	// MinPasswordLength is the shortest password the store accepts, in characters.
	MinPasswordLength = 6

	// MaxPasswordBytes is bcrypt's input limit. Multibyte characters count
	// once per byte.
	MaxPasswordBytes = 72
)

// # Domain Entities

// Account is a registered identity of the platform.
type Account struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Explicitly omitted from JSON for security.
	Role         sec.UserRole `json:"role"`

	// RefreshToken is nil until the first issuance. It is overwritten on every
	// rotation, which is what invalidates the previous token.
	RefreshToken       *string   `json:"-"`
	RefreshTokenExpiry time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasRefreshToken reports whether token equals the stored refresh token and
// the stored expiry is strictly after now.
func (a *Account) HasRefreshToken(token string, now time.Time) bool {
	if a.RefreshToken == nil || token == "" {
		return false
	}
	return *a.RefreshToken == token && a.RefreshTokenExpiry.After(now)
}

// NewAccount is the input of [Store.Create].
type NewAccount struct {
	Email    string
	Password string
	Role     sec.UserRole
}

// # Field Identifiers

const (
	FieldEmail    = "email"
	FieldPassword = "password"
	FieldRole     = "role"
)

// NormalizeEmail trims and Unicode case-folds an email so lookups and cache
// keys agree on one spelling.
func NormalizeEmail(email string) string {
	// cases.Caser is stateful, so a fresh one is built per call.
	return cases.Fold().String(strings.TrimSpace(email))
}

// ValidateNew applies the store's own validation rules to a registration.
//
// Returns a VALIDATION_ERROR [apperr.AppError] listing every failing field.
func ValidateNew(input NewAccount) error {
	roles := make([]string, 0, len(sec.AllRoles))
	for _, role := range sec.AllRoles {
		roles = append(roles, role.String())
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		MaxLen(FieldEmail, input.Email, 254).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, MinPasswordLength).
		MaxBytes(FieldPassword, input.Password, MaxPasswordBytes).
		OneOf(FieldRole, input.Role.String(), roles...)

	return validator.Err()
}

// DuplicateEmailError is the validation failure for an email already in use.
func DuplicateEmailError(email string) *apperr.AppError {
	return apperr.ValidationError("Validation failed", apperr.FieldError{
		Field:   FieldEmail,
		Message: "Email '" + email + "' is already taken",
	})
}

// HashError maps a password hashing failure. Input bcrypt refuses becomes a
// validation error on the password field; anything else is wrapped as is.
func HashError(err error) error {
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return apperr.ValidationError("Validation failed", apperr.FieldError{
			Field:   FieldPassword,
			Message: fmt.Sprintf("Maximum %d bytes", MaxPasswordBytes),
		})
	}
	return fmt.Errorf("account_store_hash_failed: %w", err)
}

// IsNotFound reports whether err means the account does not exist.
func IsNotFound(err error) bool {
	return apperr.HasCode(err, apperr.CodeNotFound)
}
