// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/authd/internal/platform/apperr"
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
//
// The action and any constraint name travel only in the cause, which is
// logged server-side and never rendered. Cancellation is returned wrapped but
// unclassified so the translator can report it as OperationCanceled.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	cause := fmt.Errorf("%s: %w", action, err)

	// 1. Cancellation stays cancellation
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return cause
	}

	// 2. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.New(apperr.CodeNotFound, "").WithCause(cause)
	}

	// 3. SQLSTATE classification
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return apperr.New(apperr.CodeDuplicateResource, "").WithCause(cause)
		case pgerrcode.ForeignKeyViolation:
			return apperr.New(apperr.CodeInvalidInput, "").WithCause(cause)
		case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
			return apperr.New(apperr.CodeDomainValidationError, "").WithCause(cause)
		}
	}

	// 4. Everything else is a database failure
	return apperr.New(apperr.CodeDatabaseError, "").WithCause(cause)
}

// IsUniqueViolation reports whether err carries SQLSTATE 23505.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
