// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package respond_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/authd/internal/platform/apperr"
	"github.com/taibuivan/authd/internal/platform/ctxutil"
	"github.com/taibuivan/authd/internal/platform/respond"
)

func decode(t *testing.T, recorder *httptest.ResponseRecorder) respond.ErrorResponse {
	t.Helper()
	var body respond.ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
	return body
}

/*
TestError_AppError renders the envelope from the error's code.
*/
func TestError_AppError(t *testing.T) {
	request := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	request = request.WithContext(ctxutil.WithCorrelationID(request.Context(), "cid-1"))
	recorder := httptest.NewRecorder()

	respond.Error(recorder, request, apperr.Unauthorized("Invalid username or password."))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	body := decode(t, recorder)
	assert.Equal(t, http.StatusUnauthorized, body.StatusCode)
	assert.Equal(t, apperr.SeverityInfo, body.StatusPhrase)
	assert.Equal(t, []string{"Invalid username or password."}, body.Errors)
	assert.Equal(t, []string{"Unauthorized"}, body.ErrorCodes)
	assert.Equal(t, "/api/v1/auth/login", body.Path)
	assert.Equal(t, http.MethodPost, body.Method)
	assert.Equal(t, "cid-1", body.CorrelationID)
	assert.Contains(t, body.Detail, "Invalid username or password.")
}

/*
TestError_PlainErrorIsHidden maps unknown errors to a generic 500.
*/
func TestError_PlainErrorIsHidden(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/x", nil)
	recorder := httptest.NewRecorder()

	respond.Error(recorder, request, errors.New("pq: relation does not exist"))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	body := decode(t, recorder)
	assert.Equal(t, []string{"An unexpected error occurred."}, body.Errors)
	assert.NotContains(t, recorder.Body.String(), "relation")
}

/*
TestResult covers failed results with and without errors.
*/
func TestResult(t *testing.T) {
	t.Run("with_errors", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", nil)
		recorder := httptest.NewRecorder()

		result := apperr.Failure[bool](
			apperr.Conflict("Email is already registered.").WithDetails("email=a@x.com"),
		)
		respond.Result(recorder, request, result)

		assert.Equal(t, http.StatusConflict, recorder.Code)
		body := decode(t, recorder)
		assert.Equal(t, []string{"Conflict"}, body.ErrorCodes)
		assert.Equal(t, []string{"email=a@x.com"}, body.ErrorDetails)
	})

	t.Run("without_errors", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
		recorder := httptest.NewRecorder()

		respond.Result(recorder, request, apperr.Failure[bool]())

		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
		body := decode(t, recorder)
		assert.Equal(t, []string{"UnknownError"}, body.ErrorCodes)
		assert.Equal(t, []string{"No error details provided."}, body.ErrorDetails)
	})
}

/*
TestOK wraps payloads in the data envelope.
*/
func TestOK(t *testing.T) {
	recorder := httptest.NewRecorder()
	respond.OK(recorder, true)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"data":true}`, recorder.Body.String())
}
