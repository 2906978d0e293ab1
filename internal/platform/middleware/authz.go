// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/taibuivan/authd/internal/platform/apperr"
	"github.com/taibuivan/authd/internal/platform/constants"
	"github.com/taibuivan/authd/internal/platform/ctxutil"
	"github.com/taibuivan/authd/internal/platform/respond"
	"github.com/taibuivan/authd/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify tokens in middleware.
type TokenVerifier interface {
	VerifyToken(tokenStr string) (*sec.AuthClaims, error)
}

// RevocationChecker reports the instant a user's sessions were last revoked.
//
// found is false when the user has no active revocation marker.
type RevocationChecker interface {
	RevokedBefore(ctx context.Context, userID string) (revokedAt time.Time, found bool, err error)
}

/*
Authenticate extracts and verifies the JWT from the Authorization header.

Flow:
 1. No header: the request proceeds as anonymous.
 2. Malformed header or invalid token: 401.
 3. Token issued before the user's last session revocation: 401.
 4. Otherwise the claims are injected into the request context.

The revocation lookup is best effort. A cache outage is logged and the token
is accepted on its signature alone.

Parameters:
  - verifier: TokenVerifier
  - revocations: RevocationChecker (May be nil to skip the lookup)

Returns:
  - func(http.Handler) http.Handler
*/
func Authenticate(verifier TokenVerifier, revocations RevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authHeader := request.Header.Get(constants.HeaderAuthorization)

			// 1. Anonymous access
			if authHeader == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// 2. Format validation
			scheme, tokenStr, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(tokenStr) == "" {
				respond.Error(writer, request, apperr.Unauthorized("Invalid authorization format."))
				return
			}

			// 3. Token verification
			claims, err := verifier.VerifyToken(strings.TrimSpace(tokenStr))
			if err != nil {
				respond.Error(writer, request, apperr.Unauthorized("Invalid or expired token."))
				return
			}

			// 4. Session revocation
			if revocations != nil && isRevoked(request, revocations, claims) {
				respond.Error(writer, request, apperr.Unauthorized("Session has been revoked. Please log in again."))
				return
			}

			ctx := ctxutil.WithAuthUser(request.Context(), claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// isRevoked refuses tokens issued at or before the revocation instant,
// compared at millisecond precision.
func isRevoked(request *http.Request, revocations RevocationChecker, claims *sec.AuthClaims) bool {
	revokedAt, found, err := revocations.RevokedBefore(request.Context(), claims.UserID)
	if err != nil {
		ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "revocation_lookup_failed",
			slog.String("user_id", claims.UserID),
			slog.Any("error", err),
		)
		return false
	}
	issuedAt := claims.IssuedAtTime()
	if !found || issuedAt.IsZero() {
		return false
	}
	return !issuedAt.After(revokedAt.Truncate(time.Millisecond))
}

// RequireAuth blocks requests that are not authenticated.
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetAuthUser(request.Context()) == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required."))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireRole blocks requests whose token does not carry the given role.
//
// It implies [RequireAuth] so you don't need to mount both.
func RequireRole(role sec.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := ctxutil.GetAuthUser(request.Context())

			if claims == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required."))
				return
			}

			if !claims.HasRole(role) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions."))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
