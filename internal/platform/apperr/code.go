// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr

import (
	"fmt"
	"net/http"
)

// # Error Taxonomy

// ErrorCode is the stable, machine-readable identifier of a failure class.
//
// The numeric values are part of the public contract (they are logged and
// rendered to clients) and must never be renumbered.
type ErrorCode int

const (
	// Generic / System
	CodeUnknownError        ErrorCode = 999
	CodeInternalServerError ErrorCode = 1000
	CodeApplicationError    ErrorCode = 1005
	CodeOperationCanceled   ErrorCode = 1006
	CodeDependencyFailure   ErrorCode = 1012

	// Validation
	CodeBadRequest            ErrorCode = 1002
	CodeInvalidInput          ErrorCode = 1003
	CodeDomainValidationError ErrorCode = 1007
	CodeValidationError       ErrorCode = 1013

	// Security / Auth
	CodeForbidden                 ErrorCode = 1008
	CodeUnauthorized              ErrorCode = 1009
	CodeTooManyRequests           ErrorCode = 1011
	CodeAccessDenied              ErrorCode = 1016
	CodeUserLocked                ErrorCode = 1017
	CodeValidRefreshTokenNotFound ErrorCode = 1018

	// Resource Handling
	CodeNotFound               ErrorCode = 1001
	CodeDatabaseError          ErrorCode = 1004
	CodeConflict               ErrorCode = 1010
	CodeResourceCreationFailed ErrorCode = 1014
	CodeAssignmentFailed       ErrorCode = 1015
	CodeResourceUpdateFailed   ErrorCode = 1019
	CodeResourceDeletionFailed ErrorCode = 1020
	CodeDuplicateResource      ErrorCode = 1021
)

// codeInfo holds the static metadata of a single [ErrorCode].
type codeInfo struct {
	name        string
	description string
}

var codeTable = map[ErrorCode]codeInfo{
	CodeUnknownError:              {"UnknownError", "An unknown error occurred."},
	CodeInternalServerError:       {"InternalServerError", "The server encountered an unexpected error."},
	CodeApplicationError:          {"ApplicationError", "Unexpected application error."},
	CodeOperationCanceled:         {"OperationCanceled", "The operation was canceled."},
	CodeDependencyFailure:         {"DependencyFailure", "A dependency service failed."},
	CodeBadRequest:                {"BadRequest", "The request was malformed."},
	CodeInvalidInput:              {"InvalidInput", "Invalid input provided."},
	CodeDomainValidationError:     {"DomainValidationError", "Domain validation failed."},
	CodeValidationError:           {"ValidationError", "Validation failed for the given input."},
	CodeForbidden:                 {"Forbidden", "You do not have permission to perform this action."},
	CodeUnauthorized:              {"Unauthorized", "Authentication is required."},
	CodeTooManyRequests:           {"TooManyRequests", "Too many requests. Please try again later."},
	CodeAccessDenied:              {"AccessDenied", "Access denied."},
	CodeUserLocked:                {"UserLocked", "The user account is locked."},
	CodeValidRefreshTokenNotFound: {"ValidRefreshTokenNotFound", "No valid refresh token found."},
	CodeNotFound:                  {"NotFound", "The requested resource was not found."},
	CodeDatabaseError:             {"DatabaseError", "A database error occurred."},
	CodeConflict:                  {"Conflict", "A conflict occurred with the current state of the resource."},
	CodeResourceCreationFailed:    {"ResourceCreationFailed", "Failed to create the resource."},
	CodeAssignmentFailed:          {"AssignmentFailed", "Failed to assign the resource."},
	CodeResourceUpdateFailed:      {"ResourceUpdateFailed", "Failed to update the resource."},
	CodeResourceDeletionFailed:    {"ResourceDeletionFailed", "Failed to delete the resource."},
	CodeDuplicateResource:         {"DuplicateResource", "A duplicate resource exists."},
}

// String returns the symbolic name of the code (e.g. "NotFound").
func (code ErrorCode) String() string {
	if info, ok := codeTable[code]; ok {
		return info.name
	}
	return fmt.Sprintf("ErrorCode(%d)", int(code))
}

// Description returns the static, client-safe default message for the code.
func (code ErrorCode) Description() string {
	if info, ok := codeTable[code]; ok {
		return info.description
	}
	return code.String()
}

// MarshalText renders the code by name so JSON payloads stay readable.
func (code ErrorCode) MarshalText() ([]byte, error) {
	return []byte(code.String()), nil
}

// # HTTP Mapping

// HTTPStatus maps the code to the HTTP status returned to clients.
//
// The mapping is a pure function of the code: unknown and system codes
// (including OperationCanceled) fall through to 500.
func (code ErrorCode) HTTPStatus() int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeBadRequest, CodeInvalidInput, CodeValidationError, CodeDomainValidationError:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeUserLocked, CodeValidRefreshTokenNotFound:
		return http.StatusUnauthorized
	case CodeForbidden, CodeAccessDenied:
		return http.StatusForbidden
	case CodeConflict, CodeDuplicateResource:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeResourceCreationFailed, CodeResourceUpdateFailed, CodeResourceDeletionFailed, CodeAssignmentFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// # Severity

// Severity classifies how loudly a failure should be reported.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityWarning  Severity = "Warning"
	SeverityInfo     Severity = "Info"
)

// Severity derives the reporting severity from the code.
func (code ErrorCode) Severity() Severity {
	switch code {
	case CodeInternalServerError, CodeUnknownError, CodeApplicationError, CodeDatabaseError:
		return SeverityCritical
	case CodeValidationError, CodeInvalidInput, CodeBadRequest, CodeDomainValidationError:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}
