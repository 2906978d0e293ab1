// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// # Translation

/*
FromError converts an arbitrary error into an [AppError].

This is the only place uncontrolled errors enter the taxonomy:
  - an [*AppError] already in the chain is kept (tagged with correlationID if it has none)
  - a kept server-class error with no details gets the operation and correlation id as details
  - [context.Canceled] and [context.DeadlineExceeded] become OperationCanceled
  - anything else becomes UnknownError

Parameters:
  - err: error (nil yields nil)
  - operation: string (e.g. "Refresh")
  - correlationID: string

Returns:
  - *AppError
*/
func FromError(err error, operation, correlationID string) *AppError {
	if err == nil {
		return nil
	}

	if ae := As(err); ae != nil {
		if ae.CorrelationID == "" && correlationID != "" {
			ae = ae.WithCorrelationID(correlationID)
		}
		if ae.Details == "" && ae.HTTPStatus >= http.StatusInternalServerError && operation != "" {
			ae = ae.WithDetails(errorDuring(operation, correlationID))
		}
		return ae
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		ae := New(CodeOperationCanceled, "")
		ae.Details = fmt.Sprintf("Operation '%s' was canceled. CorrelationId: %s", operation, correlationID)
		ae.CorrelationID = correlationID
		ae.Cause = err
		return ae
	}

	ae := New(CodeUnknownError, "")
	ae.Details = errorDuring(operation, correlationID)
	ae.CorrelationID = correlationID
	ae.Cause = err
	return ae
}

func errorDuring(operation, correlationID string) string {
	return fmt.Sprintf("Error during %s. CorrelationId: %s", operation, correlationID)
}

// FromPanic converts a recovered panic value into an UnknownError.
func FromPanic(recovered any, operation, correlationID string) *AppError {
	cause, ok := recovered.(error)
	if !ok {
		cause = fmt.Errorf("panic: %v", recovered)
	}
	return FromError(cause, operation, correlationID)
}

// Fail translates err and wraps it in a failed [Result].
func Fail[T any](err error, operation, correlationID string) Result[T] {
	return Failure[T](FromError(err, operation, correlationID))
}
