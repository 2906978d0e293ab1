// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/taibuivan/authd/internal/platform/apperr"
	"github.com/taibuivan/authd/internal/platform/clock"
	"github.com/taibuivan/authd/internal/platform/ctxutil"
	"github.com/taibuivan/authd/internal/platform/saga"
	"github.com/taibuivan/authd/internal/platform/sec"
	"github.com/taibuivan/authd/internal/platform/uow"
	"github.com/taibuivan/authd/internal/platform/validate"
	"github.com/taibuivan/authd/pkg/uuid"
)

// # Contracts & Types

// TokenResponse is the token pair handed out by Register, Login and Refresh.
type TokenResponse struct {
	AccessToken           string    `json:"access_token"`
	TokenType             string    `json:"token_type"`
	ExpiresIn             int64     `json:"expires_in"`
	RefreshToken          string    `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	Message               string    `json:"message"`
}

// RegisterCommand holds the data required to enroll a new account.
type RegisterCommand struct {
	Email         string
	Password      string
	DisplayName   string
	CorrelationID string
}

// LoginCommand defines credentials for an authentication attempt.
type LoginCommand struct {
	Email         string
	Password      string
	CorrelationID string
}

// RefreshCommand presents a refresh token for rotation.
type RefreshCommand struct {
	RefreshToken  string
	CorrelationID string
}

// LogoutCommand presents a refresh token whose session family is ended.
type LogoutCommand struct {
	RefreshToken  string
	CorrelationID string
}

// Service implements the authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any change to the refresh token
// rotation order (detect reuse, revoke family, then trust) needs review.
type Service struct {
	credentials CredentialStore
	unitOfWork  UnitOfWork
	tokens      TokenIssuer
	revocations RevocationCache
	metrics     Metrics
	clock       clock.Clock
}

/*
NewService constructs the orchestrator.

Parameters:
  - credentials: CredentialStore
  - unitOfWork: UnitOfWork (Refresh token transactions)
  - tokens: TokenIssuer
  - revocations: RevocationCache (nil disables access token revocation)
  - metrics: Metrics (nil disables instrumentation)
  - clk: clock.Clock (nil uses the system clock)

Returns:
  - *Service
*/
func NewService(
	credentials CredentialStore,
	unitOfWork UnitOfWork,
	tokens TokenIssuer,
	revocations RevocationCache,
	metrics Metrics,
	clk clock.Clock,
) *Service {
	if revocations == nil {
		revocations = noopRevocations{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{
		credentials: credentials,
		unitOfWork:  unitOfWork,
		tokens:      tokens,
		revocations: revocations,
		metrics:     metrics,
		clock:       clk,
	}
}

// # Registration Flow

/*
Register creates an account, assigns the default role and issues a token pair.

Description: Every completed step registers its undo in a saga. Any failure
after the account row exists (role assignment, token issuance, refresh token
persistence, panic) deletes the account again before returning.

Parameters:
  - ctx: context.Context
  - command: RegisterCommand

Returns:
  - apperr.Result[TokenResponse]: Conflict, ResourceCreationFailed, or the new token pair
*/
func (service *Service) Register(ctx context.Context, command RegisterCommand) apperr.Result[TokenResponse] {
	return observe(ctx, service, OperationRegister, command.CorrelationID, func(ctx context.Context, logger *slog.Logger) apperr.Result[TokenResponse] {
		email := validate.NormalizeEmail(command.Email)

		// 1. Re-check existence to return a clean Conflict
		existing, err := service.findByEmail(ctx, email)
		if err != nil {
			return failure[TokenResponse](ctx, logger, OperationRegister, command.CorrelationID, err)
		}
		if existing != nil {
			logger.WarnContext(ctx, "auth_register_email_taken")
			return reject[TokenResponse](apperr.CodeConflict, fmt.Sprintf(MessageEmailTaken, email), command.CorrelationID)
		}

		// 2. Create the credential record
		user := &User{
			ID:          uuid.New(),
			Email:       email,
			DisplayName: strings.TrimSpace(command.DisplayName),
			IsActive:    true,
		}
		if err := service.credentials.Create(ctx, user, command.Password); err != nil {
			return creationFailed[TokenResponse](ctx, logger, email, command.CorrelationID, err)
		}

		var steps saga.Saga
		steps.Add("delete_user", func(ctx context.Context) error {
			return service.credentials.Delete(ctx, user.ID)
		})
		defer func() {
			if steps.Len() > 0 {
				_ = steps.Compensate(ctx, logger)
			}
		}()

		// 3. Default role
		if err := service.credentials.AddToRole(ctx, user, sec.DefaultRole); err != nil {
			if isCancellation(err) {
				return failure[TokenResponse](ctx, logger, OperationRegister, command.CorrelationID, err)
			}
			logger.ErrorContext(ctx, "auth_register_role_assignment_failed",
				slog.String("user_id", user.ID),
				slog.Any("error", err),
			)
			return reject[TokenResponse](apperr.CodeResourceCreationFailed, fmt.Sprintf(MessageRoleAssignFailed, sec.DefaultRole), command.CorrelationID)
		}

		// 4. Tokens
		response, row, err := service.issue(user, []string{string(sec.DefaultRole)}, MessageRegistered)
		if err != nil {
			return failure[TokenResponse](ctx, logger, OperationRegister, command.CorrelationID, err)
		}

		// 5. Persist the refresh token in its own transaction
		_, err = uow.Run(ctx, service.unitOfWork, func(ctx context.Context, tx Tx) (struct{}, error) {
			return struct{}{}, tx.RefreshTokens().Insert(ctx, row)
		})
		if err != nil {
			return failure[TokenResponse](ctx, logger, OperationRegister, command.CorrelationID, err)
		}

		steps.Complete()
		logger.InfoContext(ctx, "auth_register_succeeded", slog.String("user_id", user.ID))
		return apperr.Success(response)
	})
}

// # Authentication Flow

/*
Login verifies credentials with lockout bookkeeping and issues a token pair.

Description: A wrong password increments the failed attempt counter. The
message tells the caller how many attempts remain, or that the account is
now locked. Unknown accounts and wrong passwords share one message.

Parameters:
  - ctx: context.Context
  - command: LoginCommand

Returns:
  - apperr.Result[TokenResponse]: Unauthorized, or the new token pair
*/
func (service *Service) Login(ctx context.Context, command LoginCommand) apperr.Result[TokenResponse] {
	return observe(ctx, service, OperationLogin, command.CorrelationID, func(ctx context.Context, logger *slog.Logger) apperr.Result[TokenResponse] {
		user, err := service.findByEmail(ctx, validate.NormalizeEmail(command.Email))
		if err != nil {
			return failure[TokenResponse](ctx, logger, OperationLogin, command.CorrelationID, err)
		}

		if err := service.ValidateUserCanAuthenticate(ctx, user, OperationLogin); err != nil {
			return failure[TokenResponse](ctx, logger, OperationLogin, command.CorrelationID, err)
		}

		matched, err := service.credentials.CheckPassword(ctx, user, command.Password)
		if err != nil {
			return failure[TokenResponse](ctx, logger, OperationLogin, command.CorrelationID, err)
		}

		if !matched {
			failedCount, err := service.credentials.IncrementFailedAccess(ctx, user)
			if err != nil {
				return failure[TokenResponse](ctx, logger, OperationLogin, command.CorrelationID, err)
			}

			attemptsLeft := service.credentials.MaxFailedAccessAttempts() - failedCount
			message := MessageLockedAfterFailure
			if attemptsLeft > 0 {
				message = fmt.Sprintf(MessageAttemptsLeft, attemptsLeft)
			}

			logger.WarnContext(ctx, "auth_login_password_mismatch",
				slog.String("user_id", user.ID),
				slog.Int("failed_count", failedCount),
			)
			return reject[TokenResponse](apperr.CodeUnauthorized, message, command.CorrelationID)
		}

		if err := service.credentials.ResetFailedAccess(ctx, user); err != nil {
			return failure[TokenResponse](ctx, logger, OperationLogin, command.CorrelationID, err)
		}

		roles, err := service.credentials.GetRoles(ctx, user)
		if err != nil {
			return failure[TokenResponse](ctx, logger, OperationLogin, command.CorrelationID, err)
		}

		response, row, err := service.issue(user, roles, MessageLoggedIn)
		if err != nil {
			return failure[TokenResponse](ctx, logger, OperationLogin, command.CorrelationID, err)
		}

		_, err = uow.Run(ctx, service.unitOfWork, func(ctx context.Context, tx Tx) (struct{}, error) {
			return struct{}{}, tx.RefreshTokens().Insert(ctx, row)
		})
		if err != nil {
			return failure[TokenResponse](ctx, logger, OperationLogin, command.CorrelationID, err)
		}

		logger.InfoContext(ctx, "auth_login_succeeded", slog.String("user_id", user.ID))
		return apperr.Success(response)
	})
}

// # Session Management

// rotation is what the refresh transaction hands back to Refresh.
type rotation struct {
	result        apperr.Result[TokenResponse]
	revokedUserID string
}

/*
Refresh implements refresh token rotation with reuse detection.

Description: Runs entirely inside one transaction. The presented token is
looked up by value only. A token that is not active (used, revoked or
expired) is treated as stolen: every non-revoked token of its owner is
retired, the transaction commits, and the call fails. Otherwise the owner
must still be allowed to authenticate, the presented token is retired and a
new pair is issued. Failure paths that wrote nothing commit an empty
transaction.

Parameters:
  - ctx: context.Context
  - command: RefreshCommand

Returns:
  - apperr.Result[TokenResponse]: Unauthorized, or the rotated token pair
*/
func (service *Service) Refresh(ctx context.Context, command RefreshCommand) apperr.Result[TokenResponse] {
	return observe(ctx, service, OperationRefresh, command.CorrelationID, func(ctx context.Context, logger *slog.Logger) apperr.Result[TokenResponse] {
		outcome, err := uow.Run(ctx, service.unitOfWork, func(ctx context.Context, tx Tx) (rotation, error) {
			return service.rotate(ctx, logger, tx.RefreshTokens(), command)
		})
		if err != nil {
			return failure[TokenResponse](ctx, logger, OperationRefresh, command.CorrelationID, err)
		}

		if outcome.revokedUserID != "" {
			service.metrics.RecordReuseDetected()
			service.markRevoked(ctx, logger, outcome.revokedUserID)
		}
		return outcome.result
	})
}

func (service *Service) rotate(ctx context.Context, logger *slog.Logger, store RefreshTokenStore, command RefreshCommand) (rotation, error) {

	// 1. Look up by value only
	presented, err := store.FindByValue(ctx, command.RefreshToken)
	if apperr.HasCode(err, apperr.CodeNotFound) {
		logger.WarnContext(ctx, "auth_refresh_token_not_found")
		return rotation{result: reject[TokenResponse](apperr.CodeUnauthorized, MessageInvalidRefresh, command.CorrelationID)}, nil
	}
	if err != nil {
		return rotation{}, err
	}

	// 2. Reuse detection: revoke the whole family before trusting anything
	now := service.clock.Now()
	if state := presented.State(now); state != TokenActive {
		revoked, err := retireFamily(ctx, store, presented.UserID)
		if err != nil {
			return rotation{}, err
		}

		logger.WarnContext(ctx, "auth_refresh_reuse_detected",
			slog.String("user_id", presented.UserID),
			slog.String("token_state", state.String()),
			slog.Int("revoked_count", revoked),
		)
		return rotation{
			result:        reject[TokenResponse](apperr.CodeUnauthorized, MessageReuseDetected, command.CorrelationID),
			revokedUserID: presented.UserID,
		}, nil
	}

	// 3. Owner must still be allowed in
	user, err := service.findByID(ctx, presented.UserID)
	if err != nil {
		return rotation{}, err
	}
	if err := service.ValidateUserCanAuthenticate(ctx, user, OperationRefresh); err != nil {
		if appError := apperr.As(err); appError != nil {
			return rotation{result: apperr.Failure[TokenResponse](appError.WithCorrelationID(command.CorrelationID))}, nil
		}
		return rotation{}, err
	}

	// 4. Rotate: retire the presented token, then issue its successor
	presented.Retire()
	if err := store.Update(ctx, presented); err != nil {
		return rotation{}, err
	}

	roles, err := service.credentials.GetRoles(ctx, user)
	if err != nil {
		return rotation{}, err
	}

	response, row, err := service.issue(user, roles, MessageRefreshed)
	if err != nil {
		return rotation{}, err
	}
	if err := store.Insert(ctx, row); err != nil {
		return rotation{}, err
	}

	logger.InfoContext(ctx, "auth_refresh_rotated", slog.String("user_id", user.ID))
	return rotation{result: apperr.Success(response)}, nil
}

// familyRevocation is what the logout transaction hands back.
type familyRevocation struct {
	found   bool
	userID  string
	revoked int
}

/*
Logout ends every session of the presented token's owner.

Description: Logout is family-wide, not single-token. Presenting a token
whose family was already revoked still succeeds.

Parameters:
  - ctx: context.Context
  - command: LogoutCommand

Returns:
  - apperr.Result[bool]: NotFound for unknown tokens, or true
*/
func (service *Service) Logout(ctx context.Context, command LogoutCommand) apperr.Result[bool] {
	return observe(ctx, service, OperationLogout, command.CorrelationID, func(ctx context.Context, logger *slog.Logger) apperr.Result[bool] {
		outcome, err := uow.Run(ctx, service.unitOfWork, func(ctx context.Context, tx Tx) (familyRevocation, error) {
			store := tx.RefreshTokens()

			current, err := store.FindByValue(ctx, command.RefreshToken)
			if apperr.HasCode(err, apperr.CodeNotFound) {
				return familyRevocation{}, nil
			}
			if err != nil {
				return familyRevocation{}, err
			}

			revoked, err := retireFamily(ctx, store, current.UserID)
			if err != nil {
				return familyRevocation{}, err
			}
			return familyRevocation{found: true, userID: current.UserID, revoked: revoked}, nil
		})
		if err != nil {
			return failure[bool](ctx, logger, OperationLogout, command.CorrelationID, err)
		}

		if !outcome.found {
			logger.WarnContext(ctx, "auth_logout_token_not_found")
			return apperr.Failure[bool](apperr.NotFound("Refresh token").WithCorrelationID(command.CorrelationID))
		}

		service.markRevoked(ctx, logger, outcome.userID)
		logger.InfoContext(ctx, "auth_logout_succeeded",
			slog.String("user_id", outcome.userID),
			slog.Int("revoked_count", outcome.revoked),
		)
		return apperr.Success(true)
	})
}

/*
RevokeAllSessions retires every non-revoked refresh token of a user.

Description: Used by account administration when an account is deactivated.

Parameters:
  - ctx: context.Context
  - userID: string
  - correlationID: string

Returns:
  - apperr.Result[int]: Number of tokens retired
*/
func (service *Service) RevokeAllSessions(ctx context.Context, userID, correlationID string) apperr.Result[int] {
	return observe(ctx, service, OperationRevokeAll, correlationID, func(ctx context.Context, logger *slog.Logger) apperr.Result[int] {
		revoked, err := uow.Run(ctx, service.unitOfWork, func(ctx context.Context, tx Tx) (int, error) {
			return retireFamily(ctx, tx.RefreshTokens(), userID)
		})
		if err != nil {
			return failure[int](ctx, logger, OperationRevokeAll, correlationID, err)
		}

		service.markRevoked(ctx, logger, userID)
		logger.InfoContext(ctx, "auth_sessions_revoked",
			slog.String("user_id", userID),
			slog.Int("revoked_count", revoked),
		)
		return apperr.Success(revoked)
	})
}

// # Eligibility

/*
ValidateUserCanAuthenticate gates Login and Refresh.

A missing user, an inactive account and an open lockout window all fail
with Unauthorized. A missing user never reveals that the email is unknown.

Parameters:
  - ctx: context.Context
  - user: *User (nil when the lookup found nothing)
  - operation: string (Named in the access denied message)

Returns:
  - error: *apperr.AppError when the user may not authenticate, storage failures, or nil
*/
func (service *Service) ValidateUserCanAuthenticate(ctx context.Context, user *User, operation string) error {
	logger := ctxutil.GetLogger(ctx)

	if user == nil {
		logger.WarnContext(ctx, "auth_user_not_found")
		return apperr.Unauthorized(MessageInvalidCredentials)
	}

	if !user.IsActive {
		logger.WarnContext(ctx, "auth_user_inactive", slog.String("user_id", user.ID))
		return apperr.Unauthorized(fmt.Sprintf(MessageAccessDenied, operation))
	}

	locked, err := service.credentials.IsLockedOut(ctx, user)
	if err != nil {
		return err
	}
	if locked {
		logger.WarnContext(ctx, "auth_user_locked_out", slog.String("user_id", user.ID))
		return apperr.Unauthorized(MessageAccountLocked)
	}

	return nil
}

// # Helpers

// issue mints an access token and an unsaved refresh token row for user.
func (service *Service) issue(user *User, roles []string, message string) (TokenResponse, *RefreshToken, error) {
	accessToken, err := service.tokens.GenerateAccessToken(user.Subject(), roles)
	if err != nil {
		return TokenResponse{}, nil, fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	refreshValue, err := service.tokens.GenerateRefreshToken()
	if err != nil {
		return TokenResponse{}, nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	expiresAt := service.tokens.RefreshTokenExpiry()
	row := NewRefreshToken(uuid.New(), refreshValue, user.ID, expiresAt, service.clock.Now())

	return TokenResponse{
		AccessToken:           accessToken,
		TokenType:             "Bearer",
		ExpiresIn:             int64(service.tokens.AccessTokenTTL() / time.Second),
		RefreshToken:          refreshValue,
		RefreshTokenExpiresAt: expiresAt,
		Message:               message,
	}, row, nil
}

// retireFamily marks every non-revoked token of userID used and revoked.
func retireFamily(ctx context.Context, store RefreshTokenStore, userID string) (int, error) {
	tokens, err := store.FindActiveForUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	for _, token := range tokens {
		token.Retire()
		if err := store.Update(ctx, token); err != nil {
			return 0, err
		}
	}
	return len(tokens), nil
}

// markRevoked records the revocation instant. Failures only cost the early
// rejection of already-issued access tokens, so they are logged and dropped.
func (service *Service) markRevoked(ctx context.Context, logger *slog.Logger, userID string) {
	if err := service.revocations.MarkRevoked(context.WithoutCancel(ctx), userID, service.clock.Now()); err != nil {
		logger.WarnContext(ctx, "auth_revocation_cache_failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
}

// findByEmail returns nil without error when no account matches.
func (service *Service) findByEmail(ctx context.Context, email string) (*User, error) {
	user, err := service.credentials.FindByEmail(ctx, email)
	if apperr.HasCode(err, apperr.CodeNotFound) {
		return nil, nil
	}
	return user, err
}

// findByID returns nil without error when no account matches.
func (service *Service) findByID(ctx context.Context, id string) (*User, error) {
	user, err := service.credentials.FindByID(ctx, id)
	if apperr.HasCode(err, apperr.CodeNotFound) {
		return nil, nil
	}
	return user, err
}

/*
observe wraps one orchestrator operation.

It rejects already-cancelled contexts, enriches the context logger with the
operation and correlation id, converts panics into UnknownError, and records
the outcome metric.
*/
func observe[T any](
	ctx context.Context,
	service *Service,
	operation, correlationID string,
	fn func(context.Context, *slog.Logger) apperr.Result[T],
) (result apperr.Result[T]) {
	start := time.Now()
	logger := ctxutil.GetLogger(ctx).With(
		slog.String("operation", operation),
		slog.String("correlation_id", correlationID),
	)

	defer func() {
		if recovered := recover(); recovered != nil {
			logger.ErrorContext(ctx, "auth_operation_panicked",
				slog.Any("panic", recovered),
				slog.String("stack", string(debug.Stack())),
			)
			result = apperr.Failure[T](apperr.FromPanic(recovered, operation, correlationID))
		}
		service.metrics.ObserveAuth(operation, outcomeOf(result), time.Since(start))
	}()

	if err := ctx.Err(); err != nil {
		return failure[T](ctx, logger, operation, correlationID, err)
	}

	return fn(ctxutil.WithLogger(ctx, logger), logger)
}

// failure translates err into the typed taxonomy and logs it.
func failure[T any](ctx context.Context, logger *slog.Logger, operation, correlationID string, err error) apperr.Result[T] {
	appError := apperr.FromError(err, operation, correlationID)

	level := slog.LevelWarn
	if appError.HTTPStatus >= 500 {
		level = slog.LevelError
	}
	logger.Log(ctx, level, "auth_operation_failed",
		slog.String("code", appError.Code.String()),
		slog.Any("error", err),
	)

	return apperr.Failure[T](appError)
}

// reject builds an expected, client-facing failure.
func reject[T any](code apperr.ErrorCode, message, correlationID string) apperr.Result[T] {
	return apperr.Failure[T](apperr.New(code, message).WithCorrelationID(correlationID))
}

// creationFailed maps a credential store Create error.
//
// Typed store errors become ResourceCreationFailed with their sub-errors
// joined into details. A unique violation that slipped past the existence
// check is still a Conflict.
func creationFailed[T any](ctx context.Context, logger *slog.Logger, email, correlationID string, err error) apperr.Result[T] {
	appError := apperr.As(err)
	if appError == nil || isCancellation(err) {
		return failure[T](ctx, logger, OperationRegister, correlationID, err)
	}

	logger.ErrorContext(ctx, "auth_register_create_failed",
		slog.String("code", appError.Code.String()),
		slog.Any("error", err),
	)

	if appError.Code == apperr.CodeDuplicateResource || appError.Code == apperr.CodeConflict {
		return apperr.Failure[T](apperr.Conflict(fmt.Sprintf(MessageEmailTaken, email)).WithCorrelationID(correlationID).WithCause(err))
	}

	details := make([]string, 0, len(appError.Fields)+1)
	for _, field := range appError.Fields {
		details = append(details, field.Message)
	}
	if len(details) == 0 {
		details = append(details, appError.Message)
	}

	created := apperr.New(apperr.CodeResourceCreationFailed, "").
		WithDetails(strings.Join(details, "; ")).
		WithCorrelationID(correlationID).
		WithCause(err)
	return apperr.Failure[T](created)
}

func isCancellation(err error) bool {
	return apperr.FromError(err, "", "").Code == apperr.CodeOperationCanceled
}

func outcomeOf[T any](result apperr.Result[T]) string {
	if result.IsSuccess() {
		return outcomeSuccess
	}
	if first := result.FirstError(); first != nil {
		return first.Code.String()
	}
	return apperr.CodeUnknownError.String()
}

// # No-op Collaborators

type noopRevocations struct{}

func (noopRevocations) MarkRevoked(context.Context, string, time.Time) error { return nil }

type noopMetrics struct{}

func (noopMetrics) ObserveAuth(string, string, time.Duration) {}
func (noopMetrics) RecordReuseDetected()                      {}
