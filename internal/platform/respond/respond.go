// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package respond provides HTTP response helpers used by all API handlers.
//
// # Architecture
//
// This package centralizes the presentation logic for HTTP responses.
// Successful payloads are wrapped in a {"data": ...} envelope and every failure
// is rendered as an [ErrorResponse], so clients parse exactly two shapes.
package respond

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/taibuivan/authd/internal/platform/apperr"
	"github.com/taibuivan/authd/internal/platform/ctxutil"
)

// SuccessEnvelope is the JSON envelope for successful single-resource responses.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorResponse is the JSON envelope for error responses.
type ErrorResponse struct {
	StatusCode    int                 `json:"status_code"`
	StatusPhrase  apperr.Severity     `json:"status_phrase"`
	Errors        []string            `json:"errors"`
	ErrorDetails  []string            `json:"error_details,omitempty"`
	ErrorCodes    []string            `json:"error_codes"`
	Fields        []apperr.FieldError `json:"fields,omitempty"`
	Timestamp     time.Time           `json:"timestamp"`
	Path          string              `json:"path"`
	Method        string              `json:"method"`
	Detail        string              `json:"detail"`
	CorrelationID string              `json:"correlation_id"`
}

// JSON writes a JSON response with the given status code.
func JSON(writer http.ResponseWriter, statusCode int, payload any) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// OK writes a 200 OK response with data wrapped in the standard success envelope.
func OK(writer http.ResponseWriter, data any) {
	JSON(writer, http.StatusOK, SuccessEnvelope{Data: data})
}

// Created writes a 201 Created response with data wrapped in the standard success envelope.
func Created(writer http.ResponseWriter, data any) {
	JSON(writer, http.StatusCreated, SuccessEnvelope{Data: data})
}

// NoContent writes a 204 No Content response.
func NoContent(writer http.ResponseWriter) {
	writer.WriteHeader(http.StatusNoContent)
}

// Error converts any Go error into a standardized JSON API error response.
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	correlationID := ctxutil.GetCorrelationID(request.Context())
	logger := ctxutil.GetLogger(request.Context())

	appError := apperr.As(err)
	if appError == nil {
		// Unexpected internal error: log full details but hide them from the client.
		logger.ErrorContext(request.Context(), "unhandled_error_swallowed",
			slog.String("error", err.Error()),
		)
		appError = apperr.Internal(err).WithCorrelationID(correlationID)
	}

	writeErrors(writer, request, []*apperr.AppError{appError}, appError.Timestamp)
}

/*
Result renders a failed [apperr.Result].

A failed result that carries no errors is itself a defect. It is logged and
rendered as UnknownError so the client still gets a well-formed envelope.

Parameters:
  - writer: http.ResponseWriter
  - request: *http.Request
  - result: apperr.Result[T] (Must be a failure)
*/
func Result[T any](writer http.ResponseWriter, request *http.Request, result apperr.Result[T]) {
	correlationID := ctxutil.GetCorrelationID(request.Context())

	if !result.HasErrors() {
		ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "result_failed_without_errors")

		unknown := apperr.New(apperr.CodeUnknownError, "An unknown error occurred.").
			WithDetails("No error details provided.").
			WithCorrelationID(correlationID)
		writeErrors(writer, request, []*apperr.AppError{unknown}, unknown.Timestamp)
		return
	}

	writeErrors(writer, request, result.Errors(), result.Timestamp())
}

// writeErrors builds the envelope from the first error's status and lists every message.
func writeErrors(writer http.ResponseWriter, request *http.Request, errs []*apperr.AppError, timestamp time.Time) {
	first := errs[0]
	logger := ctxutil.GetLogger(request.Context())

	correlationID := first.CorrelationID
	if correlationID == "" {
		correlationID = ctxutil.GetCorrelationID(request.Context())
	}

	body := ErrorResponse{
		StatusCode:    first.HTTPStatus,
		StatusPhrase:  first.Severity,
		Timestamp:     timestamp,
		Path:          request.URL.Path,
		Method:        request.Method,
		Detail:        fmt.Sprintf("An error occurred while processing the request: %s", first.Message),
		CorrelationID: correlationID,
	}

	for _, appError := range errs {
		body.Errors = append(body.Errors, appError.Message)
		body.ErrorCodes = append(body.ErrorCodes, appError.Code.String())
		if appError.Details != "" {
			body.ErrorDetails = append(body.ErrorDetails, appError.Details)
		}
		body.Fields = append(body.Fields, appError.Fields...)
	}

	level := slog.LevelWarn
	if first.HTTPStatus >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(request.Context(), level, "api_error_response",
		slog.Int("status", first.HTTPStatus),
		slog.String("codes", strings.Join(body.ErrorCodes, ",")),
		slog.String("correlation_id", correlationID),
		slog.Any("cause", first.Cause),
	)

	JSON(writer, first.HTTPStatus, body)
}
