// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/authd/internal/platform/apperr"
	"github.com/taibuivan/authd/internal/platform/clock"
	"github.com/taibuivan/authd/internal/platform/ctxutil"
	"github.com/taibuivan/authd/internal/users/auth"
)

// # Service Layer

// Service orchestrates account administration.
type Service struct {
	accountRepository AccountRepository
	sessionRepository SessionRepository
	revoker           SessionRevoker
	clock             clock.Clock
}

// NewService constructs a new [Service] with its dependencies.
func NewService(
	accountRepo AccountRepository,
	sessionRepo SessionRepository,
	revoker SessionRevoker,
	clk clock.Clock,
) *Service {
	return &Service{
		accountRepository: accountRepo,
		sessionRepository: sessionRepo,
		revoker:           revoker,
		clock:             clk,
	}
}

// # Profile

/*
GetProfile retrieves the account of userID.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *auth.User: The hydrated account
  - error: Not found or execution failures
*/
func (service *Service) GetProfile(context context.Context, userID string) (*auth.User, error) {
	user, err := service.accountRepository.FindByID(context, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_get_profile_failed: %w", err)
	}
	return user, nil
}

// # Sessions

/*
ListSessions enumerates the sessions userID can still refresh.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []SessionInfo: Newest first, never nil
  - error: Retrieval failures
*/
func (service *Service) ListSessions(context context.Context, userID string) ([]SessionInfo, error) {
	tokens, err := service.sessionRepository.ListSessions(context, userID, service.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("account_service_list_sessions_failed: %w", err)
	}

	sessions := make([]SessionInfo, 0, len(tokens))
	for _, token := range tokens {
		sessions = append(sessions, SessionInfo{
			ID:        token.ID,
			CreatedAt: token.CreatedAt,
			ExpiresAt: token.ExpiresAt,
		})
	}
	return sessions, nil
}

// # Administration

/*
Deactivate blocks an account and ends all of its sessions.

Description: Once inactive the account fails the authentication gate on
login and refresh. Existing refresh tokens are retired and the revocation
cache refuses access tokens minted before now.

Parameters:
  - context: context.Context
  - userID: string
  - correlationID: string

Returns:
  - int: Number of sessions ended
  - error: apperr failures from storage or revocation
*/
func (service *Service) Deactivate(context context.Context, userID, correlationID string) (int, error) {
	if err := service.accountRepository.SetActive(context, userID, false); err != nil {
		return 0, fmt.Errorf("account_service_deactivate_failed: %w", err)
	}

	result := service.revoker.RevokeAllSessions(context, userID, correlationID)
	if result.IsError() {
		if first := result.FirstError(); first != nil {
			return 0, first
		}
		return 0, apperr.New(apperr.CodeUnknownError, "")
	}

	ctxutil.GetLogger(context).InfoContext(context, "account_deactivated",
		slog.String("user_id", userID),
		slog.Int("revoked_sessions", result.Value()),
	)
	return result.Value(), nil
}

/*
Reactivate lifts a deactivation. Sessions ended by it stay ended.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: apperr.NotFound or storage failures
*/
func (service *Service) Reactivate(context context.Context, userID string) error {
	if err := service.accountRepository.SetActive(context, userID, true); err != nil {
		return fmt.Errorf("account_service_reactivate_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "account_reactivated", slog.String("user_id", userID))
	return nil
}
