// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/authd/internal/platform/ctxutil"
	"github.com/taibuivan/authd/internal/platform/middleware"
	requestutil "github.com/taibuivan/authd/internal/platform/request"
	"github.com/taibuivan/authd/internal/platform/respond"
	"github.com/taibuivan/authd/internal/platform/sec"
)

// # Handler Definitions

// Handler implements account HTTP endpoints.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] with account routes. Every route requires
// an authenticated caller; administration also requires the Admin role.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	// Self-service
	router.Get("/me", handler.getMe)
	router.Get("/me/sessions", handler.listSessions)

	// Administration
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(sec.RoleAdmin))
		r.Post("/{id}/deactivate", handler.deactivate)
		r.Post("/{id}/reactivate", handler.reactivate)
	})

	return router
}

// # Self-service Endpoints

/*
GET /api/v1/accounts/me.

Response:
  - 200: User: Profile of the caller
  - 401: Unauthorized
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.GetProfile(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
GET /api/v1/accounts/me/sessions.

Response:
  - 200: []SessionInfo: Sessions the caller can still refresh
  - 401: Unauthorized
*/
func (handler *Handler) listSessions(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessions, err := handler.accountService.ListSessions(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessions)
}

// # Administration Endpoints

/*
POST /api/v1/accounts/{id}/deactivate.

Response:
  - 200: {"revoked_sessions": n}
  - 400: Invalid id
  - 403: Forbidden (Admin role required)
  - 404: NotFound
*/
func (handler *Handler) deactivate(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	revoked, err := handler.accountService.Deactivate(request.Context(), userID, ctxutil.GetCorrelationID(request.Context()))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]int{"revoked_sessions": revoked})
}

/*
POST /api/v1/accounts/{id}/reactivate.

Response:
  - 204: No Content
  - 403: Forbidden (Admin role required)
  - 404: NotFound
*/
func (handler *Handler) reactivate(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.Reactivate(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
