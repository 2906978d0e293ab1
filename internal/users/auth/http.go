// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/authd/internal/platform/constants"
	"github.com/taibuivan/authd/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/authd/internal/platform/request"
	"github.com/taibuivan/authd/internal/platform/respond"
	"github.com/taibuivan/authd/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the authentication HTTP endpoints.
//
// # Scope
//
// Registration, login, refresh token rotation and logout. The refresh token
// is returned in the JSON body and mirrored into an HttpOnly cookie scoped
// to the auth routes, so browser and API clients can both use it.
type Handler struct {
	authService   *Service
	secureCookies bool
}

// NewHandler constructs a new [Handler]. secureCookies sets the Secure cookie flag.
func NewHandler(service *Service, secureCookies bool) *Handler {
	return &Handler{authService: service, secureCookies: secureCookies}
}

// Routes returns a [chi.Router] configured with authentication routes.
//
// # Endpoints
//   - POST /register : Creates an account and returns a token pair.
//   - POST /login    : Authenticates and returns a token pair.
//   - POST /refresh  : Rotates a refresh token.
//   - POST /logout   : Ends every session of the token's owner.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/logout", handler.logout)

	return router
}

// # Request Payloads

type registerRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	DisplayName     string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

/*
Register handles the creation of a new account.

POST /api/v1/auth/register

Request:
  - Body: registerRequest (Email, Password, ConfirmPassword, DisplayName)

Response:
  - 201: TokenResponse
  - 400: ValidationError or ResourceCreationFailed
  - 409: Conflict (Email already exists)
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, strings.TrimSpace(input.Email)).
		MaxLen(FieldEmail, input.Email, emailMaxLength).
		Required(FieldPassword, input.Password).
		Matches(FieldConfirmPassword, input.ConfirmPassword, input.Password, "The password and confirmation password do not match.").
		MaxLen(FieldDisplayName, input.DisplayName, displayNameMaxLength)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result := handler.authService.Register(request.Context(), RegisterCommand{
		Email:         input.Email,
		Password:      input.Password,
		DisplayName:   input.DisplayName,
		CorrelationID: ctxutil.GetCorrelationID(request.Context()),
	})
	if result.IsError() {
		respond.Result(writer, request, result)
		return
	}

	handler.setRefreshCookie(writer, result.Value())
	respond.Created(writer, result.Value())
}

/*
Login authenticates an account.

POST /api/v1/auth/login

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: TokenResponse
  - 401: Unauthorized (Bad credentials, inactive or locked account)
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		MaxLen(FieldEmail, input.Email, emailMaxLength).
		Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result := handler.authService.Login(request.Context(), LoginCommand{
		Email:         input.Email,
		Password:      input.Password,
		CorrelationID: ctxutil.GetCorrelationID(request.Context()),
	})
	if result.IsError() {
		respond.Result(writer, request, result)
		return
	}

	handler.setRefreshCookie(writer, result.Value())
	respond.OK(writer, result.Value())
}

/*
Refresh rotates a refresh token.

POST /api/v1/auth/refresh

Description: The token is read from the body, falling back to the cookie.
Presenting an already rotated token revokes every session of its owner.
The cookie is cleared only when the token is refused.

Response:
  - 200: TokenResponse
  - 401: Unauthorized (Unknown, reused or expired token)
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	token, err := presentedRefreshToken(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	result := handler.authService.Refresh(request.Context(), RefreshCommand{
		RefreshToken:  token,
		CorrelationID: ctxutil.GetCorrelationID(request.Context()),
	})
	if result.IsError() {
		if first := result.FirstError(); first != nil && first.HTTPStatus == http.StatusUnauthorized {
			handler.clearRefreshCookie(writer)
		}
		respond.Result(writer, request, result)
		return
	}

	handler.setRefreshCookie(writer, result.Value())
	respond.OK(writer, result.Value())
}

/*
Logout ends every session of the presented token's owner.

POST /api/v1/auth/logout

Description: The token is read from the body, falling back to the cookie.
The cookie is always cleared.

Response:
  - 200: true
  - 404: NotFound (Unknown refresh token)
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	token, err := presentedRefreshToken(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	result := handler.authService.Logout(request.Context(), LogoutCommand{
		RefreshToken:  token,
		CorrelationID: ctxutil.GetCorrelationID(request.Context()),
	})

	handler.clearRefreshCookie(writer)
	if result.IsError() {
		respond.Result(writer, request, result)
		return
	}

	respond.OK(writer, result.Value())
}

// # Cookie Helpers

// presentedRefreshToken reads the refresh token from an optional JSON body or the cookie.
func presentedRefreshToken(request *http.Request) (string, error) {
	var input refreshTokenRequest

	if request.ContentLength != 0 {
		if err := requestutil.DecodeJSON(request, &input); err != nil {
			return "", err
		}
	}

	token := strings.TrimSpace(input.RefreshToken)
	if token == "" {
		if cookie, err := request.Cookie(constants.RefreshTokenCookieName); err == nil {
			token = cookie.Value
		}
	}

	validator := &validate.Validator{}
	validator.Required(FieldRefreshToken, token).
		MaxLen(FieldRefreshToken, token, refreshTokenMaxLength)
	if err := validator.Err(); err != nil {
		return "", err
	}

	return token, nil
}

func (handler *Handler) setRefreshCookie(writer http.ResponseWriter, response TokenResponse) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    response.RefreshToken,
		Path:     constants.RefreshTokenCookiePath,
		Expires:  response.RefreshTokenExpiresAt,
		Secure:   handler.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (handler *Handler) clearRefreshCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    "",
		Path:     constants.RefreshTokenCookiePath,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   handler.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
