// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package saga records compensating actions for multi-step operations that span
stores without a shared transaction.

Usage:

	var steps saga.Saga
	steps.Add("delete_user", func(ctx context.Context) error { return store.Delete(ctx, id) })
	...
	if err != nil {
	    _ = steps.Compensate(ctx, logger)
	    return err
	}
	steps.Complete()
*/
package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Action undoes one completed step.
type Action func(ctx context.Context) error

type step struct {
	name string
	undo Action
}

// Saga is an ordered list of compensations. Not safe for concurrent use.
type Saga struct {
	steps []step
}

// Add registers the compensation for a step that just completed.
func (s *Saga) Add(name string, undo Action) {
	s.steps = append(s.steps, step{name: name, undo: undo})
}

// Complete forgets every pending compensation once the operation succeeded.
func (s *Saga) Complete() { s.steps = nil }

// Len returns the number of pending compensations.
func (s *Saga) Len() int { return len(s.steps) }

/*
Compensate runs every pending action in reverse order of registration.

Each action runs once: the list is cleared before returning. Actions run on a
context detached from ctx's cancellation. Failures are logged and joined.

Parameters:
  - ctx: context.Context
  - logger: *slog.Logger

Returns:
  - error: all compensation failures joined, or nil
*/
func (s *Saga) Compensate(ctx context.Context, logger *slog.Logger) error {
	pending := s.steps
	s.steps = nil

	detached := context.WithoutCancel(ctx)

	var errs []error
	for i := len(pending) - 1; i >= 0; i-- {
		current := pending[i]
		if err := current.undo(detached); err != nil {
			logger.ErrorContext(ctx, "saga_compensation_failed",
				slog.String("step", current.name),
				slog.Any("error", err),
			)
			errs = append(errs, fmt.Errorf("saga_%s_failed: %w", current.name, err))
			continue
		}
		logger.InfoContext(ctx, "saga_compensation_applied", slog.String("step", current.name))
	}

	return errors.Join(errs...)
}
