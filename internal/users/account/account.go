// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account handles account administration on top of the auth core.

It lets a signed-in user read their profile and active sessions, and lets an
administrator deactivate or reactivate an account.

# Architecture

  - Entities: SessionInfo (DTO). Accounts are the auth package's User.
  - Domain: Deactivation ends every session through the auth orchestrator so
    reuse detection and the revocation cache stay the single source of truth.
*/
package account

import (
	"context"
	"time"

	"github.com/taibuivan/authd/internal/platform/apperr"
	"github.com/taibuivan/authd/internal/users/auth"
)

// # Domain Entities

// SessionInfo is a transport-safe view of one active refresh token.
// It omits the token hash.
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// # Repository Contracts

// AccountRepository defines the persistence contract for account administration.
type AccountRepository interface {
	/*
		FindByID retrieves an account by its unique ID.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - *auth.User: Loaded account entity
		  - error: apperr.NotFound or storage failures
	*/
	FindByID(context context.Context, id string) (*auth.User, error)

	/*
		SetActive switches the account's active flag.

		Parameters:
		  - context: context.Context
		  - id: string
		  - active: bool

		Returns:
		  - error: apperr.NotFound or storage failures
	*/
	SetActive(context context.Context, id string, active bool) error
}

// SessionRepository lists the sessions a user can still refresh.
type SessionRepository interface {
	/*
		ListSessions lists every refresh token of userID that is still active at now.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - now: time.Time

		Returns:
		  - []*auth.RefreshToken: Newest first
		  - error: Retrieval errors
	*/
	ListSessions(context context.Context, userID string, now time.Time) ([]*auth.RefreshToken, error)
}

// SessionRevoker ends every session of a user. [*auth.Service] implements it.
type SessionRevoker interface {
	RevokeAllSessions(context context.Context, userID, correlationID string) apperr.Result[int]
}
