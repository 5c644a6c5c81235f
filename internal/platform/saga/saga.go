// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package saga runs ordered multi-step operations across independently owned
stores, undoing completed steps when a later one fails.

It replaces a distributed transaction with explicit compensation:

  - Steps run strictly in order; a step may assume every earlier step committed.
  - On the first failure, the Undo of every completed step runs in reverse order.
  - Undo failures are logged and never replace the original error. Cleanup is
    best effort, not guaranteed.

Everything runs synchronously, so when [Run] returns the compensation has
already been attempted.
*/
package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Step is one forward action and its optional compensation.
type Step struct {
	// Name identifies the step in logs and in [StepError].
	Name string

	// Do performs the forward action.
	Do func(ctx context.Context) error

	// Undo reverts Do. Nil means there is nothing to revert.
	Undo func(ctx context.Context) error
}

// StepError reports which step failed and whether compensation succeeded.
type StepError struct {
	Step string
	Err  error

	// UndoErr joins every compensation failure, nil when all undos succeeded.
	UndoErr error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("saga step %q failed: %v", e.Step, e.Err)
}

// Unwrap exposes the original failure so callers can match it with errors.As.
func (e *StepError) Unwrap() error { return e.Err }

// Compensated reports whether every undo ran without error.
func (e *StepError) Compensated() bool { return e.UndoErr == nil }

// Saga is an ordered list of steps plus the context used for compensation.
type Saga struct {
	steps  []Step
	logger *slog.Logger

	// undoContext derives the context handed to Undo functions. By default it
	// detaches from the caller's cancellation so a cancelled request still
	// cleans up after itself.
	undoContext func(ctx context.Context) (context.Context, context.CancelFunc)
}

// Option customizes a [Saga].
type Option func(*Saga)

// WithUndoContext overrides how the compensation context is derived.
func WithUndoContext(fn func(ctx context.Context) (context.Context, context.CancelFunc)) Option {
	return func(s *Saga) { s.undoContext = fn }
}

// New builds a saga over steps.
func New(logger *slog.Logger, steps []Step, opts ...Option) *Saga {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Saga{
		steps:  steps,
		logger: logger,
		undoContext: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return context.WithoutCancel(ctx), func() {}
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run executes every step in order. It returns nil on success or a
// [*StepError] after unwinding the completed steps.
func (s *Saga) Run(ctx context.Context) error {
	for index, step := range s.steps {
		if err := ctx.Err(); err != nil {
			return s.unwind(ctx, index, step.Name, err)
		}

		if err := step.Do(ctx); err != nil {
			return s.unwind(ctx, index, step.Name, err)
		}
	}

	return nil
}

// unwind undoes steps[0:failed] in reverse order.
func (s *Saga) unwind(ctx context.Context, failed int, name string, cause error) error {
	stepErr := &StepError{Step: name, Err: cause}

	if failed == 0 {
		return stepErr
	}

	undoCtx, cancel := s.undoContext(ctx)
	defer cancel()

	var undoErrs []error
	for index := failed - 1; index >= 0; index-- {
		step := s.steps[index]
		if step.Undo == nil {
			continue
		}

		if err := step.Undo(undoCtx); err != nil {
			s.logger.ErrorContext(ctx, "saga_undo_failed",
				slog.String("step", step.Name),
				slog.String("failed_step", name),
				slog.Any("error", err),
			)
			undoErrs = append(undoErrs, fmt.Errorf("undo %s: %w", step.Name, err))
			continue
		}

		s.logger.InfoContext(ctx, "saga_step_compensated",
			slog.String("step", step.Name),
			slog.String("failed_step", name),
		)
	}

	stepErr.UndoErr = errors.Join(undoErrs...)
	return stepErr
}

// Run is a shortcut for New(logger, steps).Run(ctx).
func Run(ctx context.Context, logger *slog.Logger, steps ...Step) error {
	return New(logger, steps).Run(ctx)
}
