// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, JWT signing, refresh
// token generation) from the domain logic. It is stateless: it reads only its
// configuration and the injected clock, and never touches a store.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/authd/internal/platform/clock"
)

// minSecretLength is the HS256 key floor (256 bits).
const minSecretLength = 32

// ErrWeakSecret is returned when the signing key is shorter than 32 bytes.
var ErrWeakSecret = errors.New("sec: signing secret must be at least 32 bytes")

// AuthClaims represents the payload embedded inside a JWT Access Token.
//
// # Why custom claims?
//
// By embedding the user identity and roles directly inside the JWT,
// the [middleware.Authenticate] can reconstruct the active user context
// without querying the database on every request.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID   string   `json:"uid"`
	Username string   `json:"unm"`
	Email    string   `json:"eml"`
	Roles    []string `json:"rol"`

	// IssuedAtMilli is iat at millisecond precision, for revocation checks.
	IssuedAtMilli int64 `json:"iam,omitempty"`
}

// IssuedAtTime returns the most precise issue instant the token carries.
// It is the zero time when the token has neither iam nor iat.
func (claims *AuthClaims) IssuedAtTime() time.Time {
	if claims.IssuedAtMilli > 0 {
		return time.UnixMilli(claims.IssuedAtMilli).UTC()
	}
	if claims.IssuedAt != nil {
		return claims.IssuedAt.Time
	}
	return time.Time{}
}

// HasRole reports whether the claims carry role.
func (claims *AuthClaims) HasRole(role UserRole) bool {
	return HasRole(claims.Roles, role)
}

// AccessSubject is the identity an access token is minted for.
type AccessSubject struct {
	UserID   string
	Username string
	Email    string
}

// TokenConfig holds the signing parameters.
type TokenConfig struct {
	// Secret is the HMAC-SHA256 key. Sourced from JWT_SECRET_KEY, never hard-coded.
	Secret string
	// Issuer is the 'iss' claim.
	Issuer string
	// Audience is the 'aud' claim.
	Audience string
	// AccessTokenTTL is the access token lifetime.
	AccessTokenTTL time.Duration
	// RefreshTokenTTL is the refresh token lifetime.
	RefreshTokenTTL time.Duration
}

// TokenService handles generation and verification of tokens using HS256.
type TokenService struct {
	secret []byte
	config TokenConfig
	clock  clock.Clock
}

/*
NewTokenService creates a new TokenService.

Parameters:
  - config: TokenConfig
  - clk: clock.Clock (Source of iat/exp and refresh expiry)

Returns:
  - *TokenService
  - error: [ErrWeakSecret] when the secret is too short
*/
func NewTokenService(config TokenConfig, clk clock.Clock) (*TokenService, error) {
	if len(config.Secret) < minSecretLength {
		return nil, ErrWeakSecret
	}
	if config.AccessTokenTTL <= 0 || config.RefreshTokenTTL <= 0 {
		return nil, fmt.Errorf("sec: token lifetimes must be positive (access=%s refresh=%s)", config.AccessTokenTTL, config.RefreshTokenTTL)
	}
	return &TokenService{
		secret: []byte(config.Secret),
		config: config,
		clock:  clk,
	}, nil
}

// AccessTokenTTL returns the configured access token lifetime.
func (service *TokenService) AccessTokenTTL() time.Duration {
	return service.config.AccessTokenTTL
}

/*
GenerateAccessToken creates a signed JWT access token.

Parameters:
  - subject: AccessSubject
  - roles: []string (One 'rol' entry per role)

Returns:
  - string: Compact JWS
  - error: Signing failure
*/
func (service *TokenService) GenerateAccessToken(subject AccessSubject, roles []string) (string, error) {
	currentTime := service.clock.Now()

	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.UserID,
			Issuer:    service.config.Issuer,
			Audience:  jwt.ClaimStrings{service.config.Audience},
			IssuedAt:  jwt.NewNumericDate(currentTime),
			NotBefore: jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(service.config.AccessTokenTTL)),
		},
		UserID:   subject.UserID,
		Username: subject.Username,
		Email:    subject.Email,
		Roles:    append([]string(nil), roles...),

		IssuedAtMilli: currentTime.UnixMilli(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec_sign_token_failed: %w", err)
	}

	return signedToken, nil
}

// VerifyToken checks the signature, issuer, audience and validity window of a JWT string.
func (service *TokenService) VerifyToken(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return service.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(service.config.Issuer),
		jwt.WithAudience(service.config.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("sec: invalid token claims")
	}

	return claims, nil
}
