// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"

	"github.com/taibuivan/authd/internal/platform/sec"
	"github.com/taibuivan/authd/internal/platform/uow"
)

// # Credential Data Access

// CredentialStore defines the data access contract for accounts, passwords,
// lockout bookkeeping and role membership.
type CredentialStore interface {

	/*
		FindByEmail returns the account with the given normalized email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr NotFound when absent, or storage failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr NotFound when absent, or storage failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		Create hashes password and persists a brand-new account.

		Parameters:
		  - context: context.Context
		  - user: *User (ID, Email and DisplayName set by the caller)
		  - password: string (Plain text, never stored)

		Returns:
		  - error: apperr DuplicateResource, ValidationError, or storage failures
	*/
	Create(context context.Context, user *User, password string) error

	/*
		Delete physically removes an account. Used only to undo a failed registration.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: Persistence failures
	*/
	Delete(context context.Context, id string) error

	/*
		CheckPassword compares password with the stored hash.

		Parameters:
		  - context: context.Context
		  - user: *User
		  - password: string

		Returns:
		  - bool: true on match
		  - error: Malformed hash or storage failures
	*/
	CheckPassword(context context.Context, user *User, password string) (bool, error)

	/*
		IsLockedOut reports whether the account's lockout window is open now.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - bool: true while locked
		  - error: Storage failures
	*/
	IsLockedOut(context context.Context, user *User) (bool, error)

	/*
		IncrementFailedAccess records one failed password check and locks the
		account once the counter reaches MaxFailedAccessAttempts.

		Parameters:
		  - context: context.Context
		  - user: *User (Updated in place with the new counter and lockout)

		Returns:
		  - int: Failed attempts counted so far
		  - error: Persistence failures
	*/
	IncrementFailedAccess(context context.Context, user *User) (int, error)

	/*
		ResetFailedAccess clears the failed attempt counter and any lockout.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Persistence failures
	*/
	ResetFailedAccess(context context.Context, user *User) error

	/*
		GetRoles lists the role names assigned to the account.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - []string: Role names (may be empty)
		  - error: Retrieval failures
	*/
	GetRoles(context context.Context, user *User) ([]string, error)

	/*
		AddToRole assigns an existing role to the account.

		Parameters:
		  - context: context.Context
		  - user: *User
		  - role: sec.UserRole

		Returns:
		  - error: apperr NotFound for unknown roles, or persistence failures
	*/
	AddToRole(context context.Context, user *User, role sec.UserRole) error

	// MaxFailedAccessAttempts is the lockout threshold.
	MaxFailedAccessAttempts() int
}

// # Refresh Token Data Access

// RefreshTokenStore defines the data access contract for issued refresh tokens.
// Implementations are bound to the transaction they were obtained from.
type RefreshTokenStore interface {

	/*
		FindByValue locks and returns the row issued for the raw token value.

		Parameters:
		  - context: context.Context
		  - value: string (Raw token as presented by the client)

		Returns:
		  - *RefreshToken: Hydrated row in any state
		  - error: apperr NotFound when no row matches, or storage failures
	*/
	FindByValue(context context.Context, value string) (*RefreshToken, error)

	/*
		FindActiveForUser locks and returns every non-revoked row owned by userID.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - []*RefreshToken: Possibly empty
		  - error: Retrieval failures
	*/
	FindActiveForUser(context context.Context, userID string) ([]*RefreshToken, error)

	/*
		Insert persists a newly issued row.

		Parameters:
		  - context: context.Context
		  - token: *RefreshToken

		Returns:
		  - error: Persistence failures
	*/
	Insert(context context.Context, token *RefreshToken) error

	/*
		Update writes the used and revoked flags of an existing row.

		Parameters:
		  - context: context.Context
		  - token: *RefreshToken

		Returns:
		  - error: Persistence failures
	*/
	Update(context context.Context, token *RefreshToken) error
}

// # Transactions

// Tx is a store transaction that exposes the refresh token store bound to it.
type Tx interface {
	uow.Tx
	RefreshTokens() RefreshTokenStore
}

// UnitOfWork opens refresh token transactions.
type UnitOfWork = uow.Provider[Tx]

// # Collaborators

// TokenIssuer mints access and refresh tokens. [*sec.TokenService] implements it.
type TokenIssuer interface {
	GenerateAccessToken(subject sec.AccessSubject, roles []string) (string, error)
	GenerateRefreshToken() (string, error)
	RefreshTokenExpiry() time.Time
	AccessTokenTTL() time.Duration
}

// RevocationCache remembers when a user's sessions were revoked so bearer
// access tokens minted earlier can be refused before they expire.
type RevocationCache interface {
	MarkRevoked(context context.Context, userID string, at time.Time) error
}

// Metrics receives orchestrator outcomes. [*metrics.Metrics] implements it.
type Metrics interface {
	ObserveAuth(operation, outcome string, elapsed time.Duration)
	RecordReuseDetected()
}
