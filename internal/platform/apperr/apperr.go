// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error handling framework for authd.

It provides a rich error type that bridges the gap between low-level storage
errors and high-level HTTP responses.

Architecture:

  - ErrorCode: A stable numeric taxonomy. Status and severity derive from it.
  - AppError: An immutable value carrying the code, a client-safe message, details and a correlation id.
  - Result: A success-or-failures outcome returned by every auth operation.

Every error that leaves the service layer should be an [AppError] (or a failed
[Result]) to ensure consistent API responses.
*/
package apperr

import (
	"errors"
	"fmt"
	"time"
)

// AppError is the canonical error type for the authd API.
//
// # Immutability
//
// Values are never mutated after construction. The With* helpers return copies.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries).
type AppError struct {
	// Code is the machine-readable failure class.
	Code ErrorCode `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"message"`
	// Details is free-form diagnostic context (operation name, sub-errors).
	Details string `json:"details,omitempty"`
	// CorrelationID ties the error to the request that produced it.
	CorrelationID string `json:"correlation_id,omitempty"`
	// Timestamp is the UTC instant the error was created.
	Timestamp time.Time `json:"timestamp"`
	// Severity is derived from Code.
	Severity Severity `json:"severity"`
	// HTTPStatus is derived from Code.
	HTTPStatus int `json:"-"`
	// Fields holds per-field validation errors for ValidationError responses.
	Fields []FieldError `json:"fields,omitempty"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

/*
New builds an [AppError] for the given code.

Parameters:
  - code: ErrorCode
  - message: string (Falls back to the per-code description when empty)

Returns:
  - *AppError: Status and severity already resolved from code
*/
func New(code ErrorCode, message string) *AppError {
	if message == "" {
		message = code.Description()
	}
	return &AppError{
		Code:       code,
		Message:    message,
		Timestamp:  time.Now().UTC(),
		Severity:   code.Severity(),
		HTTPStatus: code.HTTPStatus(),
	}
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// WithDetails returns a copy of e carrying the given details.
func (e *AppError) WithDetails(details string) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// WithCorrelationID returns a copy of e tagged with the given correlation id.
func (e *AppError) WithCorrelationID(id string) *AppError {
	clone := *e
	clone.CorrelationID = id
	return &clone
}

// WithCause returns a copy of e wrapping cause for server-side logging.
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// Equal reports whether two errors share code, message, details and status.
// Timestamp, correlation id and cause do not take part in equality.
func (e *AppError) Equal(other *AppError) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.Code == other.Code &&
		e.Message == other.Message &&
		e.Details == other.Details &&
		e.HTTPStatus == other.HTTPStatus
}

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("Refresh token") // Returns "Refresh token not found."
func NotFound(resource string) *AppError {
	return New(CodeNotFound, resource+" not found.")
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return New(CodeUnauthorized, msg)
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return New(CodeForbidden, msg)
}

// Conflict creates a 409 [AppError] for duplicate or unique-constraint violations.
func Conflict(msg string) *AppError {
	return New(CodeConflict, msg)
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, fields ...FieldError) *AppError {
	ae := New(CodeValidationError, msg)
	ae.Fields = fields
	return ae
}

// RateLimited creates a 429 [AppError].
func RateLimited(retryAfterSeconds int) *AppError {
	return New(CodeTooManyRequests, fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds))
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	ae := New(CodeInternalServerError, "An unexpected error occurred.")
	ae.Cause = cause
	return ae
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// HasCode reports whether err's chain holds an [*AppError] with the given code.
func HasCode(err error, code ErrorCode) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}
