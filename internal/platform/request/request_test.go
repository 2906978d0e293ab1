// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package requestutil_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/authd/internal/platform/apperr"
	"github.com/taibuivan/authd/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/authd/internal/platform/request"
	"github.com/taibuivan/authd/internal/platform/sec"
)

func TestDecodeJSON(t *testing.T) {
	var payload struct {
		Email string `json:"email"`
	}

	request := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@x.com"}`))
	require.NoError(t, requestutil.DecodeJSON(request, &payload))
	assert.Equal(t, "a@x.com", payload.Email)

	request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":`))
	err := requestutil.DecodeJSON(request, &payload)
	assert.True(t, apperr.HasCode(err, apperr.CodeValidationError))
}

func TestID(t *testing.T) {
	withParam := func(value string) *http.Request {
		routeContext := chi.NewRouteContext()
		routeContext.URLParams.Add("id", value)
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		return request.WithContext(context.WithValue(request.Context(), chi.RouteCtxKey, routeContext))
	}

	id, err := requestutil.ID(withParam("0190a6b2-7c1e-7f00-8a00-000000000001"), "id")
	require.NoError(t, err)
	assert.Equal(t, "0190a6b2-7c1e-7f00-8a00-000000000001", id)

	_, err = requestutil.ID(withParam("not-a-uuid"), "id")
	assert.True(t, apperr.HasCode(err, apperr.CodeValidationError))
}

func TestRequiredUserID(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := requestutil.RequiredUserID(request)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))

	request = request.WithContext(ctxutil.WithAuthUser(request.Context(), &sec.AuthClaims{UserID: "u-1"}))
	userID, err := requestutil.RequiredUserID(request)
	require.NoError(t, err)
	assert.Equal(t, "u-1", userID)
}
