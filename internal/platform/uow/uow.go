// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package uow runs a function inside a store transaction with a guaranteed
commit or rollback on every exit path.

Rules:

  - fn returns nil: the transaction is committed.
  - fn returns an error or panics: the transaction is rolled back (the panic is re-raised).
  - ctx is cancelled before commit: the transaction is rolled back and ctx.Err() is returned.

Commit and rollback run on a context detached from cancellation, so a request
that is abandoned mid-flight still releases its transaction.
*/
package uow

import (
	"context"
	"errors"
	"fmt"
)

// Tx is a single store transaction.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Provider opens transactions of type T.
type Provider[T Tx] interface {
	Begin(ctx context.Context) (T, error)
}

/*
Run opens a transaction from provider and executes fn within it.

Parameters:
  - ctx: context.Context
  - provider: Provider[T]
  - fn: func(context.Context, T) (R, error)

Returns:
  - R: fn's value when the transaction committed, zero otherwise
  - error: fn's error, a cancellation, or a begin/commit failure
*/
func Run[T Tx, R any](ctx context.Context, provider Provider[T], fn func(context.Context, T) (R, error)) (result R, err error) {
	var zero R

	tx, err := provider.Begin(ctx)
	if err != nil {
		return zero, fmt.Errorf("uow_begin_failed: %w", err)
	}

	guard := &guarded{tx: tx}
	detached := context.WithoutCancel(ctx)

	defer func() {
		if recovered := recover(); recovered != nil {
			_ = guard.rollback(detached)
			panic(recovered)
		}
	}()

	result, err = fn(ctx, tx)
	if err != nil {
		return zero, guard.abort(detached, err)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, guard.abort(detached, ctxErr)
	}

	if err := guard.commit(detached); err != nil {
		return zero, fmt.Errorf("uow_commit_failed: %w", err)
	}

	return result, nil
}

// guarded closes a transaction at most once.
type guarded struct {
	tx     Tx
	closed bool
}

func (g *guarded) commit(ctx context.Context) error {
	if g.closed {
		return nil
	}
	g.closed = true
	return g.tx.Commit(ctx)
}

func (g *guarded) rollback(ctx context.Context) error {
	if g.closed {
		return nil
	}
	g.closed = true
	return g.tx.Rollback(ctx)
}

// abort rolls back and joins any rollback failure onto cause.
func (g *guarded) abort(ctx context.Context, cause error) error {
	if err := g.rollback(ctx); err != nil {
		return errors.Join(cause, fmt.Errorf("uow_rollback_failed: %w", err))
	}
	return cause
}
