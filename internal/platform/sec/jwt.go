// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via the [auth.TokenCodec] interface.
//
// Tokens are signed with a shared HS256 secret so that the verification
// middleware of every other platform service can trust them with the same
// secret, issuer and audience.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for malformed tokens, bad signatures and bad claims.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrEmptySecret is returned when the token service is built without a secret.
	ErrEmptySecret = errors.New("auth: signing secret must not be empty")
)

// AuthClaims represents the payload embedded inside a JWT Access Token.
//
// # Why custom claims?
//
// By embedding the account ID, email, and Role directly inside the JWT,
// the [middleware.Authenticate] can reconstruct the active user context
// WITHOUT querying the database on every single API request.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID string `json:"uid"`
	Email  string `json:"eml"`
	Role   string `json:"rol"`
}

// TokenConfig is the explicit signing configuration injected at construction.
type TokenConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// TokenService handles generation and verification of JWT tokens using HS256.
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time

	// lapsedValidator checks issuer, audience and not-before for the refresh
	// path, where expiry is ignored.
	lapsedValidator *jwt.Validator
}

// NewTokenService creates a new TokenService from an explicit [TokenConfig].
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, ErrEmptySecret
	}

	service := &TokenService{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      time.Now,
	}
	service.lapsedValidator = jwt.NewValidator(
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithTimeFunc(service.clock),
	)

	return service, nil
}

// GenerateAccessToken creates a new JWT access token for an account.
func (service *TokenService) GenerateAccessToken(accountID, email, role string, timeToLive time.Duration) (string, error) {
	currentTime := service.now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    service.issuer,
			Audience:  jwt.ClaimStrings{service.audience},
			IssuedAt:  jwt.NewNumericDate(currentTime),
			NotBefore: jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		UserID: accountID,
		Email:  email,
		Role:   role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("auth: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// VerifyToken checks the signature and every claim of a JWT string,
// including its expiry.
func (service *TokenService) VerifyToken(tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, service.signingKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(service.issuer),
		jwt.WithAudience(service.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.clock),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return claims, nil
}

// VerifyExpiredToken is [VerifyToken] minus the expiry check.
//
// The signature, algorithm, issuer, audience and subject must still be valid,
// and the token must still carry an expiry. It exists only for the refresh
// flow, which needs the account identity of an access token that has already
// lapsed.
func (service *TokenService) VerifyExpiredToken(tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, service.signingKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, jwt.ErrTokenRequiredClaimMissing)
	}

	if err := service.lapsedValidator.Validate(lapsedClaims{claims}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return claims, nil
}

// signingKey is the jwt.Keyfunc of every parse.
func (service *TokenService) signingKey(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
	}
	return service.secret, nil
}

func (service *TokenService) clock() time.Time {
	return service.now()
}

// Validate runs after the registered-claim checks of the jwt validator and
// enforces the claims specific to this service.
func (claims *AuthClaims) Validate() error {
	if claims.Subject == "" || claims.Subject != claims.UserID {
		return jwt.ErrTokenInvalidSubject
	}

	if !IsValidRole(claims.Role) {
		return errors.New("auth: unknown role claim")
	}

	return nil
}

// lapsedClaims hides the expiry from the jwt validator so every other rule,
// [AuthClaims.Validate] included, still applies.
type lapsedClaims struct {
	*AuthClaims
}

func (lapsedClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return nil, nil
}
