// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr

import (
	"fmt"
	"strings"
	"time"
)

// # Operation Result

// Result is the outcome of an operation: a value on success, or one or more
// [AppError] values on failure. Exactly one side is meaningful.
//
// The zero value is a failure carrying no errors. Such a result is a defect
// and is rendered as UnknownError at the HTTP boundary.
type Result[T any] struct {
	value     T
	errs      []*AppError
	ok        bool
	timestamp time.Time
}

// Success wraps value in a successful [Result].
func Success[T any](value T) Result[T] {
	return Result[T]{value: value, ok: true, timestamp: time.Now().UTC()}
}

// Failure wraps one or more errors in a failed [Result]. Nil entries are dropped.
func Failure[T any](errs ...*AppError) Result[T] {
	kept := make([]*AppError, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			kept = append(kept, err)
		}
	}
	return Result[T]{errs: kept, timestamp: time.Now().UTC()}
}

// FailureFrom builds a failed [Result] from a single error description.
func FailureFrom[T any](code ErrorCode, message, details, correlationID string) Result[T] {
	ae := New(code, message)
	ae.Details = details
	ae.CorrelationID = correlationID
	return Failure[T](ae)
}

// IsSuccess reports whether the result carries a value.
func (r Result[T]) IsSuccess() bool { return r.ok }

// IsError reports whether the result is a failure. Always the negation of IsSuccess.
func (r Result[T]) IsError() bool { return !r.ok }

// Value returns the payload. It is the zero value for failed results.
func (r Result[T]) Value() T { return r.value }

// Timestamp returns the UTC instant the result was produced.
func (r Result[T]) Timestamp() time.Time { return r.timestamp }

// Errors returns a copy of the failure list.
func (r Result[T]) Errors() []*AppError {
	out := make([]*AppError, len(r.errs))
	copy(out, r.errs)
	return out
}

// HasErrors reports whether at least one error is attached.
func (r Result[T]) HasErrors() bool { return len(r.errs) > 0 }

// ErrorMessage joins every error message with "; ".
func (r Result[T]) ErrorMessage() string {
	messages := make([]string, 0, len(r.errs))
	for _, err := range r.errs {
		messages = append(messages, err.Message)
	}
	return strings.Join(messages, "; ")
}

// FirstError returns the first attached error, or nil.
func (r Result[T]) FirstError() *AppError {
	if len(r.errs) == 0 {
		return nil
	}
	return r.errs[0]
}

// FirstErrorMessage returns the message of the first error, or "".
func (r Result[T]) FirstErrorMessage() string {
	if first := r.FirstError(); first != nil {
		return first.Message
	}
	return ""
}

// HasError reports whether any attached error carries code.
func (r Result[T]) HasError(code ErrorCode) bool {
	for _, err := range r.errs {
		if err.Code == code {
			return true
		}
	}
	return false
}

// String renders the result for logs.
func (r Result[T]) String() string {
	if r.ok {
		return fmt.Sprintf("Success: %v", r.value)
	}
	return "Failure: " + r.ErrorMessage()
}
