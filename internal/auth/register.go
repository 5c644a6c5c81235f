// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/taibuivan/authgate/internal/account"
	"github.com/taibuivan/authgate/internal/platform/apperr"
	"github.com/taibuivan/authgate/internal/platform/metrics"
	"github.com/taibuivan/authgate/internal/platform/saga"
	"github.com/taibuivan/authgate/internal/platform/sec"
	"github.com/taibuivan/authgate/internal/profile"
	"github.com/taibuivan/authgate/internal/session"
)

// Registration saga step names.
const (
	stepCreateAccount = "create_account"
	stepIssueTokens   = "issue_tokens"
	stepCreateProfile = "create_profile"
	stepCacheSession  = "cache_session"
)

// RegisterInput holds the data required to enroll a new account.
type RegisterInput struct {
	Email    string
	Password string
	Role     string

	// Caller is the authenticated requester, nil for anonymous sign-ups.
	// Only required when Role is privileged.
	Caller *sec.AuthClaims
}

// RegisterResult acknowledges a registration. Tokens are never returned;
// the new user logs in separately.
type RegisterResult struct {
	AccountID string `json:"account_id"`
	Message   string `json:"message"`
}

// Register creates an account and its remote profile as one all-or-nothing
// operation.
//
// # Flow
//  1. Reject unknown roles (INVALID_ROLE).
//  2. Privileged roles require a caller who still holds that role in the
//     store (FORBIDDEN).
//  3. Run the saga: create_account, issue_tokens, create_profile,
//     cache_session. On failure, completed steps are undone in reverse
//     before returning, so a failed registration leaves no account behind.
//
// # Errors
//   - INVALID_ROLE, FORBIDDEN: nothing was created.
//   - VALIDATION_ERROR: the store rejected the input (duplicate email included).
//   - ISSUANCE_FAILED: tokens could not be produced; the account was removed.
//   - DEPENDENCY_FAILED: the profile service failed; the account was removed.
func (service *Service) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	// ── 1. Role ───────────────────────────────────────────────────────────

	role, ok := sec.ParseRole(input.Role)
	if !ok {
		service.metrics.Registration(metrics.ResultFailed)
		return nil, apperr.InvalidRole(input.Role)
	}

	// ── 2. Privilege ──────────────────────────────────────────────────────

	if role.IsPrivileged() {
		if err := service.authorizePrivileged(ctx, input.Caller, role); err != nil {
			service.metrics.Registration(metrics.ResultFailed)
			return nil, err
		}
	}

	// ── 3. Saga ───────────────────────────────────────────────────────────

	var (
		created  *account.Account
		snapshot *session.CachedSession
		pair     *TokenPair
	)

	steps := []saga.Step{
		{
			Name: stepCreateAccount,
			Do: func(ctx context.Context) error {
				var err error
				created, err = service.store.Create(ctx, account.NewAccount{
					Email:    input.Email,
					Password: input.Password,
					Role:     role,
				})
				if err != nil {
					return classifyStoreError(err)
				}
				snapshot = session.FromAccount(created)
				return nil
			},
			Undo: func(ctx context.Context) error {
				service.forget(ctx, created.ID, created.Email)
				return service.store.Delete(ctx, created.ID)
			},
		},
		{
			Name: stepIssueTokens,
			Do: func(ctx context.Context) error {
				var err error
				pair, err = service.issue(ctx, snapshot, flowRegister)
				if err != nil && !apperr.HasCode(err, apperr.CodeIssuanceFailed) {
					return apperr.IssuanceFailed(err)
				}
				return err
			},
		},
		{
			Name: stepCreateProfile,
			Do: func(ctx context.Context) error {
				if err := service.profiles.Create(ctx, pair.AccessToken, profile.Placeholder(created.ID)); err != nil {
					return apperr.DependencyFailed("profile", err)
				}
				return nil
			},
		},
		{
			Name: stepCacheSession,
			Do: func(ctx context.Context) error {
				service.remember(ctx, snapshot)
				return nil
			},
		},
	}

	err := saga.New(service.log(ctx), steps, saga.WithUndoContext(service.compensationContext)).Run(ctx)
	if err != nil {
		return nil, service.registrationFailed(ctx, err)
	}

	service.metrics.Registration(metrics.ResultSuccess)
	service.log(ctx).InfoContext(ctx, "account_registered",
		slog.String("account_id", created.ID),
		slog.String("role", role.String()),
	)

	return &RegisterResult{
		AccountID: created.ID,
		Message:   "User created successfully",
	}, nil
}

// authorizePrivileged checks that caller holds role both in its token and,
// still, in the store.
func (service *Service) authorizePrivileged(ctx context.Context, caller *sec.AuthClaims, role sec.UserRole) error {
	denied := apperr.Forbidden("Only an administrator can create an account with role " + role.String())

	if caller == nil || caller.Role != role.String() {
		return denied
	}

	current, err := service.store.FindByID(ctx, caller.UserID)
	if err != nil {
		if account.IsNotFound(err) {
			return denied
		}
		return err
	}
	if current.Role != role {
		return denied
	}

	return nil
}

// compensationContext detaches rollback from the request's cancellation and
// bounds it on its own.
func (service *Service) compensationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if service.cfg.CompensationTimeout <= 0 {
		return detached, func() {}
	}
	return context.WithTimeout(detached, service.cfg.CompensationTimeout)
}

// registrationFailed records a failed saga and returns the error of the
// failing step.
func (service *Service) registrationFailed(ctx context.Context, err error) error {
	service.metrics.Registration(metrics.ResultFailed)

	var stepErr *saga.StepError
	if !errors.As(err, &stepErr) {
		return err
	}

	if stepErr.Step != stepCreateAccount {
		result := metrics.ResultCompensated
		if !stepErr.Compensated() {
			result = metrics.ResultFailed
		}
		service.metrics.Compensation(result)

		service.log(ctx).WarnContext(ctx, "registration_rolled_back",
			slog.String("failed_step", stepErr.Step),
			slog.Bool("compensated", stepErr.Compensated()),
			slog.Any("error", stepErr.Err),
			slog.Any("undo_error", stepErr.UndoErr),
		)
	}

	if apperr.IsAppError(stepErr.Err) {
		return stepErr.Err
	}
	return apperr.Internal(stepErr.Err)
}

// classifyStoreError keeps the store's own classification (validation
// failures included) and treats anything unclassified as internal.
func classifyStoreError(err error) error {
	if apperr.IsAppError(err) {
		return err
	}
	return apperr.Internal(err)
}
