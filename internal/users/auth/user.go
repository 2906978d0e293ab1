// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the user identity and session token layer.

It defines the core domain entities (User, Role, RefreshToken), the contracts
of the stores it depends on, and the orchestrator that drives registration,
login, refresh-token rotation and logout.

# Architecture

Entities defined here have no storage dependencies and encapsulate the rules
of the refresh token lifecycle. Postgres and Redis implementations of the
contracts live next to them (store_postgres.go, store_redis.go).
*/
package auth

import (
	"time"

	"github.com/taibuivan/authd/internal/platform/sec"
)

// # Domain Entities

// User represents a registered account.
type User struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"` // Explicitly omitted from JSON for security.
	DisplayName       string     `json:"display_name"`
	IsActive          bool       `json:"is_active"`
	FailedAccessCount int        `json:"-"`
	LockoutUntil      *time.Time `json:"lockout_until,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Username is the login name embedded in access tokens. Accounts log in by email.
func (user *User) Username() string { return user.Email }

// IsLockedOut reports whether the lockout window is still open at now.
func (user *User) IsLockedOut(now time.Time) bool {
	return user.LockoutUntil != nil && user.LockoutUntil.After(now)
}

// Subject builds the access token identity for the user.
func (user *User) Subject() sec.AccessSubject {
	return sec.AccessSubject{
		UserID:   user.ID,
		Username: user.Username(),
		Email:    user.Email,
	}
}

// Role is a named permission set assigned to users.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// # Refresh Tokens

// TokenState is the lifecycle position of a refresh token.
type TokenState int

const (
	// TokenActive can be exchanged exactly once.
	TokenActive TokenState = iota
	// TokenRetired was used by rotation or revoked. Terminal.
	TokenRetired
	// TokenExpired passed its expiry without being retired.
	TokenExpired
)

func (state TokenState) String() string {
	switch state {
	case TokenActive:
		return "active"
	case TokenRetired:
		return "retired"
	case TokenExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// RefreshToken is one issued refresh token row.
//
// The raw token value is never kept: TokenHash is the SHA-256 of the value
// handed to the client.
type RefreshToken struct {
	ID        string    `json:"id"`
	TokenHash string    `json:"-"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	IsUsed    bool      `json:"is_used"`
	IsRevoked bool      `json:"is_revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRefreshToken builds an unsaved, active row for value.
func NewRefreshToken(id, value, userID string, expiresAt, now time.Time) *RefreshToken {
	return &RefreshToken{
		ID:        id,
		TokenHash: sec.HashToken(value),
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
}

// State derives the lifecycle state. Retirement wins over expiry.
func (token *RefreshToken) State(now time.Time) TokenState {
	if token.IsUsed || token.IsRevoked {
		return TokenRetired
	}
	if !token.ExpiresAt.After(now) {
		return TokenExpired
	}
	return TokenActive
}

// IsActive reports whether the token may still be exchanged at now.
func (token *RefreshToken) IsActive(now time.Time) bool {
	return token.State(now) == TokenActive
}

// Retire marks the token used and revoked. There is no way back.
func (token *RefreshToken) Retire() {
	token.IsUsed = true
	token.IsRevoked = true
}

// # Field Identifiers

// Field names for validation and request mapping in the authentication domain.
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirm_password"
	FieldDisplayName     = "display_name"
	FieldRefreshToken    = "refresh_token"
)
