// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/taibuivan/authd/internal/platform/apperr"
	"github.com/taibuivan/authd/internal/platform/sec"
	"github.com/taibuivan/authd/internal/users/auth"
)

// # Register

/*
TestService_Register verifies the happy path.

It checks that:
  - The account is stored with a normalized email and the default role.
  - The access token carries the account identity and roles.
  - Exactly one active refresh token is persisted.
*/
func TestService_Register(t *testing.T) {
	f := newFixture()

	result := f.service.Register(context.Background(), auth.RegisterCommand{
		Email:       "  Reader@Example.COM ",
		Password:    testPassword,
		DisplayName: "Reader",
	})
	require.True(t, result.IsSuccess(), result.ErrorMessage())

	response := result.Value()
	assert.Equal(t, "Bearer", response.TokenType)
	assert.Equal(t, int64(900), response.ExpiresIn)
	assert.Equal(t, auth.MessageRegistered, response.Message)
	assert.Equal(t, f.clock.Now().Add(7*24*time.Hour), response.RefreshTokenExpiresAt)

	user, err := f.credentials.FindByEmail(context.Background(), testEmail)
	require.NoError(t, err)
	assert.True(t, user.IsActive)

	claims, err := f.issuer.VerifyToken(response.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, testEmail, claims.Email)
	assert.True(t, claims.HasRole(sec.RoleUser))

	row, ok := f.tokens.byValue(response.RefreshToken)
	require.True(t, ok)
	assert.Equal(t, user.ID, row.UserID)
	assert.True(t, row.IsActive(f.clock.Now()))
	assert.Equal(t, "Register:success", f.metrics.last())
}

func TestService_Register_Conflict(t *testing.T) {
	f := newFixture()
	f.register()

	result := f.service.Register(context.Background(), auth.RegisterCommand{
		Email:         "READER@example.com",
		Password:      testPassword,
		CorrelationID: "cid-2",
	})

	require.True(t, result.IsError())
	first := result.FirstError()
	assert.Equal(t, apperr.CodeConflict, first.Code)
	assert.Equal(t, fmt.Sprintf(auth.MessageEmailTaken, testEmail), first.Message)
	assert.Equal(t, "cid-2", first.CorrelationID)
}

/*
TestService_Register_CreateFailure verifies that store sub-errors are joined
into the ResourceCreationFailed details.
*/
func TestService_Register_CreateFailure(t *testing.T) {
	f := newFixture()
	f.credentials.createErr = apperr.ValidationError("Validation failed",
		apperr.FieldError{Field: auth.FieldPassword, Message: "Passwords must have at least one digit ('0'-'9')"},
		apperr.FieldError{Field: auth.FieldPassword, Message: "Passwords must have at least one uppercase ('A'-'Z')"},
	)

	result := f.service.Register(context.Background(), auth.RegisterCommand{Email: testEmail, Password: "weakpass!"})

	require.True(t, result.IsError())
	first := result.FirstError()
	assert.Equal(t, apperr.CodeResourceCreationFailed, first.Code)
	assert.Equal(t, "Passwords must have at least one digit ('0'-'9'); Passwords must have at least one uppercase ('A'-'Z')", first.Details)
	assert.Empty(t, f.credentials.deleted)
}

/*
TestService_Register_Compensation verifies that an account created before a
later step failed is deleted again.
*/
func TestService_Register_Compensation(t *testing.T) {
	tests := []struct {
		name     string
		arrange  func(f *fixture)
		wantCode apperr.ErrorCode
		wantMsg  string
	}{
		{
			name:     "role assignment fails",
			arrange:  func(f *fixture) { f.credentials.addRoleErr = errors.New("role table missing") },
			wantCode: apperr.CodeResourceCreationFailed,
			wantMsg:  fmt.Sprintf(auth.MessageRoleAssignFailed, sec.DefaultRole),
		},
		{
			name:     "refresh token insert fails",
			arrange:  func(f *fixture) { f.tokens.insertErr = errors.New("disk full") },
			wantCode: apperr.CodeUnknownError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.arrange(f)

			result := f.service.Register(context.Background(), auth.RegisterCommand{Email: testEmail, Password: testPassword})

			require.True(t, result.IsError())
			assert.Equal(t, tt.wantCode, result.FirstError().Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, result.FirstError().Message)
			}

			require.Len(t, f.credentials.deleted, 1)
			_, err := f.credentials.FindByEmail(context.Background(), testEmail)
			assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
		})
	}
}

// # Login

func TestService_Login(t *testing.T) {
	f := newFixture()
	userID, _ := f.register()

	result := f.service.Login(context.Background(), auth.LoginCommand{Email: "Reader@Example.com", Password: testPassword})

	require.True(t, result.IsSuccess(), result.ErrorMessage())
	assert.Equal(t, auth.MessageLoggedIn, result.Value().Message)
	assert.Len(t, f.tokens.forUser(userID), 2)
}

/*
TestService_Login_Failures verifies that every rejected login is Unauthorized
and that unknown emails and wrong passwords look alike.
*/
func TestService_Login_Failures(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		arrange func(f *fixture, userID string)
		wantMsg string
	}{
		{
			name:    "unknown email",
			email:   "nobody@example.com",
			wantMsg: auth.MessageInvalidCredentials,
		},
		{
			name:    "inactive account",
			email:   testEmail,
			arrange: func(f *fixture, userID string) { f.credentials.setActive(userID, false) },
			wantMsg: fmt.Sprintf(auth.MessageAccessDenied, auth.OperationLogin),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			userID, _ := f.register()
			if tt.arrange != nil {
				tt.arrange(f, userID)
			}

			result := f.service.Login(context.Background(), auth.LoginCommand{Email: tt.email, Password: testPassword, CorrelationID: "cid"})

			require.True(t, result.IsError())
			assert.Equal(t, apperr.CodeUnauthorized, result.FirstError().Code)
			assert.Equal(t, tt.wantMsg, result.FirstError().Message)
			assert.Equal(t, "cid", result.FirstError().CorrelationID)
		})
	}
}

/*
TestService_Login_Lockout walks an account through the lockout window.

It checks that:
  - Each wrong password reports the remaining attempts.
  - The last allowed failure locks the account.
  - A correct password is refused while locked.
  - The account works again once the window has passed.
*/
func TestService_Login_Lockout(t *testing.T) {
	f := newFixture()
	userID, _ := f.register()
	ctx := context.Background()

	wrong := auth.LoginCommand{Email: testEmail, Password: "Wr0ng!pass"}

	result := f.service.Login(ctx, wrong)
	assert.Equal(t, fmt.Sprintf(auth.MessageAttemptsLeft, 2), result.FirstErrorMessage())

	result = f.service.Login(ctx, wrong)
	assert.Equal(t, fmt.Sprintf(auth.MessageAttemptsLeft, 1), result.FirstErrorMessage())

	result = f.service.Login(ctx, wrong)
	assert.Equal(t, auth.MessageLockedAfterFailure, result.FirstErrorMessage())

	user, ok := f.credentials.user(userID)
	require.True(t, ok)
	assert.Equal(t, 3, user.FailedAccessCount)
	require.NotNil(t, user.LockoutUntil)

	result = f.service.Login(ctx, auth.LoginCommand{Email: testEmail, Password: testPassword})
	require.True(t, result.IsError())
	assert.Equal(t, apperr.CodeUnauthorized, result.FirstError().Code)
	assert.Equal(t, auth.MessageAccountLocked, result.FirstErrorMessage())

	f.clock.Advance(16 * time.Minute)

	result = f.service.Login(ctx, auth.LoginCommand{Email: testEmail, Password: testPassword})
	require.True(t, result.IsSuccess(), result.ErrorMessage())

	user, _ = f.credentials.user(userID)
	assert.Zero(t, user.FailedAccessCount)
	assert.Nil(t, user.LockoutUntil)
}

// # Refresh

/*
TestService_Refresh_RotationAndReuse replays a stolen refresh token.

It checks that:
  - A rotation retires the presented token and issues a new active one.
  - Replaying the retired token fails and revokes the whole family.
  - The token issued by the rotation is now unusable as well.
*/
func TestService_Refresh_RotationAndReuse(t *testing.T) {
	f := newFixture()
	userID, registered := f.register()
	ctx := context.Background()

	rotated := f.service.Refresh(ctx, auth.RefreshCommand{RefreshToken: registered.RefreshToken})
	require.True(t, rotated.IsSuccess(), rotated.ErrorMessage())
	assert.Equal(t, auth.MessageRefreshed, rotated.Value().Message)
	assert.NotEqual(t, registered.RefreshToken, rotated.Value().RefreshToken)

	old, _ := f.tokens.byValue(registered.RefreshToken)
	assert.True(t, old.IsUsed)
	assert.True(t, old.IsRevoked)

	fresh, _ := f.tokens.byValue(rotated.Value().RefreshToken)
	assert.True(t, fresh.IsActive(f.clock.Now()))

	replayed := f.service.Refresh(ctx, auth.RefreshCommand{RefreshToken: registered.RefreshToken, CorrelationID: "cid-replay"})
	require.True(t, replayed.IsError())
	assert.Equal(t, apperr.CodeUnauthorized, replayed.FirstError().Code)
	assert.Equal(t, auth.MessageReuseDetected, replayed.FirstErrorMessage())

	for _, row := range f.tokens.forUser(userID) {
		assert.True(t, row.IsRevoked, "token %s should be revoked", row.ID)
	}
	assert.Equal(t, 1, f.metrics.reuseCount())
	assert.True(t, f.revocations.isMarked(userID))

	afterward := f.service.Refresh(ctx, auth.RefreshCommand{RefreshToken: rotated.Value().RefreshToken})
	require.True(t, afterward.IsError())
	assert.Equal(t, auth.MessageReuseDetected, afterward.FirstErrorMessage())
}

func TestService_Refresh_UnknownToken(t *testing.T) {
	f := newFixture()
	f.register()
	commitsBefore, _ := f.tokens.counts()

	result := f.service.Refresh(context.Background(), auth.RefreshCommand{RefreshToken: "never-issued"})

	require.True(t, result.IsError())
	assert.Equal(t, apperr.CodeUnauthorized, result.FirstError().Code)
	assert.Equal(t, auth.MessageInvalidRefresh, result.FirstErrorMessage())

	commitsAfter, _ := f.tokens.counts()
	assert.Equal(t, commitsBefore+1, commitsAfter)
	assert.Zero(t, f.metrics.reuseCount())
}

func TestService_Refresh_ExpiredTokenRevokesFamily(t *testing.T) {
	f := newFixture()
	userID, registered := f.register()

	login := f.service.Login(context.Background(), auth.LoginCommand{Email: testEmail, Password: testPassword})
	require.True(t, login.IsSuccess())

	f.clock.Advance(8 * 24 * time.Hour)

	result := f.service.Refresh(context.Background(), auth.RefreshCommand{RefreshToken: registered.RefreshToken})

	require.True(t, result.IsError())
	assert.Equal(t, auth.MessageReuseDetected, result.FirstErrorMessage())
	for _, row := range f.tokens.forUser(userID) {
		assert.True(t, row.IsRevoked)
	}
}

func TestService_Refresh_InactiveOwner(t *testing.T) {
	f := newFixture()
	userID, registered := f.register()
	f.credentials.setActive(userID, false)

	result := f.service.Refresh(context.Background(), auth.RefreshCommand{RefreshToken: registered.RefreshToken})

	require.True(t, result.IsError())
	assert.Equal(t, apperr.CodeUnauthorized, result.FirstError().Code)
	assert.Equal(t, fmt.Sprintf(auth.MessageAccessDenied, auth.OperationRefresh), result.FirstErrorMessage())

	row, _ := f.tokens.byValue(registered.RefreshToken)
	assert.False(t, row.IsRevoked)
}

/*
TestService_Refresh_Concurrent verifies that two racing rotations of one token
never both succeed.
*/
func TestService_Refresh_Concurrent(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture()
	_, registered := f.register()

	var wg sync.WaitGroup
	results := make([]apperr.Result[auth.TokenResponse], 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = f.service.Refresh(context.Background(), auth.RefreshCommand{RefreshToken: registered.RefreshToken})
		}()
	}
	wg.Wait()

	successes := 0
	for _, result := range results {
		if result.IsSuccess() {
			successes++
		}
	}
	assert.Equal(t, 1, successes)
}

// # Logout

func TestService_Logout(t *testing.T) {
	f := newFixture()
	userID, registered := f.register()
	ctx := context.Background()

	login := f.service.Login(ctx, auth.LoginCommand{Email: testEmail, Password: testPassword})
	require.True(t, login.IsSuccess())

	result := f.service.Logout(ctx, auth.LogoutCommand{RefreshToken: registered.RefreshToken})
	require.True(t, result.IsSuccess(), result.ErrorMessage())
	assert.True(t, result.Value())

	for _, row := range f.tokens.forUser(userID) {
		assert.True(t, row.IsUsed)
		assert.True(t, row.IsRevoked)
	}
	assert.True(t, f.revocations.isMarked(userID))

	refreshed := f.service.Refresh(ctx, auth.RefreshCommand{RefreshToken: login.Value().RefreshToken})
	require.True(t, refreshed.IsError())
	assert.Equal(t, apperr.CodeUnauthorized, refreshed.FirstError().Code)

	again := f.service.Logout(ctx, auth.LogoutCommand{RefreshToken: registered.RefreshToken})
	assert.True(t, again.IsSuccess())
}

func TestService_Logout_UnknownToken(t *testing.T) {
	f := newFixture()

	result := f.service.Logout(context.Background(), auth.LogoutCommand{RefreshToken: "never-issued", CorrelationID: "cid"})

	require.True(t, result.IsError())
	assert.Equal(t, apperr.CodeNotFound, result.FirstError().Code)
	assert.Equal(t, "Refresh token not found.", result.FirstErrorMessage())
	assert.Equal(t, "cid", result.FirstError().CorrelationID)
}

func TestService_RevokeAllSessions(t *testing.T) {
	f := newFixture()
	userID, _ := f.register()
	require.True(t, f.service.Login(context.Background(), auth.LoginCommand{Email: testEmail, Password: testPassword}).IsSuccess())

	result := f.service.RevokeAllSessions(context.Background(), userID, "cid")

	require.True(t, result.IsSuccess())
	assert.Equal(t, 2, result.Value())
	assert.True(t, f.revocations.isMarked(userID))
}

func TestService_RevocationCacheFailureIsIgnored(t *testing.T) {
	f := newFixture()
	_, registered := f.register()
	f.revocations.err = errors.New("redis down")

	result := f.service.Logout(context.Background(), auth.LogoutCommand{RefreshToken: registered.RefreshToken})

	assert.True(t, result.IsSuccess())
}

// # Cross-cutting

func TestService_CancelledContext(t *testing.T) {
	f := newFixture()
	_, registered := f.register()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := map[string]apperr.Result[auth.TokenResponse]{
		auth.OperationRegister: f.service.Register(ctx, auth.RegisterCommand{Email: "other@example.com", Password: testPassword, CorrelationID: "cid"}),
		auth.OperationLogin:    f.service.Login(ctx, auth.LoginCommand{Email: testEmail, Password: testPassword, CorrelationID: "cid"}),
		auth.OperationRefresh:  f.service.Refresh(ctx, auth.RefreshCommand{RefreshToken: registered.RefreshToken, CorrelationID: "cid"}),
	}

	for operation, result := range results {
		require.True(t, result.IsError(), operation)
		assert.Equal(t, apperr.CodeOperationCanceled, result.FirstError().Code, operation)
		assert.Contains(t, result.FirstError().Details, operation)
		assert.Equal(t, "cid", result.FirstError().CorrelationID)
	}

	logout := f.service.Logout(ctx, auth.LogoutCommand{RefreshToken: registered.RefreshToken})
	assert.True(t, logout.HasError(apperr.CodeOperationCanceled))

	row, _ := f.tokens.byValue(registered.RefreshToken)
	assert.False(t, row.IsRevoked)
}

func TestService_PanicBecomesUnknownError(t *testing.T) {
	f := newFixture()
	f.register()
	f.credentials.panicOnRole = true

	result := f.service.Login(context.Background(), auth.LoginCommand{Email: testEmail, Password: testPassword, CorrelationID: "cid"})

	require.True(t, result.IsError())
	assert.Equal(t, apperr.CodeUnknownError, result.FirstError().Code)
	assert.Equal(t, "cid", result.FirstError().CorrelationID)
	assert.Equal(t, "Login:UnknownError", f.metrics.last())
}

func TestService_ValidateUserCanAuthenticate(t *testing.T) {
	f := newFixture()
	now := f.clock.Now()
	until := now.Add(time.Minute)

	tests := []struct {
		name    string
		user    *auth.User
		wantMsg string
	}{
		{name: "missing", user: nil, wantMsg: auth.MessageInvalidCredentials},
		{name: "inactive", user: &auth.User{ID: "u", IsActive: false}, wantMsg: fmt.Sprintf(auth.MessageAccessDenied, "Op")},
		{name: "locked", user: &auth.User{ID: "u", IsActive: true, LockoutUntil: &until}, wantMsg: auth.MessageAccountLocked},
		{name: "eligible", user: &auth.User{ID: "u", IsActive: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.service.ValidateUserCanAuthenticate(context.Background(), tt.user, "Op")
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}
