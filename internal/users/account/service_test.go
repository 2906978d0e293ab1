// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/authd/internal/platform/apperr"
	"github.com/taibuivan/authd/internal/platform/clock"
	"github.com/taibuivan/authd/internal/users/account"
	"github.com/taibuivan/authd/internal/users/auth"
)

const readerID = "0195f3a2-7c1e-7b4d-9a10-3c5e8f2d4b61"

var accountNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// # Fakes

type memoryAccounts struct {
	users map[string]*auth.User
}

func (accounts *memoryAccounts) FindByID(_ context.Context, id string) (*auth.User, error) {
	user, ok := accounts.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	copied := *user
	return &copied, nil
}

func (accounts *memoryAccounts) SetActive(_ context.Context, id string, active bool) error {
	user, ok := accounts.users[id]
	if !ok {
		return apperr.NotFound("User")
	}
	user.IsActive = active
	return nil
}

type memorySessions struct {
	tokens []*auth.RefreshToken
	asked  time.Time
}

func (sessions *memorySessions) ListSessions(_ context.Context, _ string, now time.Time) ([]*auth.RefreshToken, error) {
	sessions.asked = now
	return sessions.tokens, nil
}

type stubRevoker struct {
	result apperr.Result[int]
	calls  []string
}

func (revoker *stubRevoker) RevokeAllSessions(_ context.Context, userID, _ string) apperr.Result[int] {
	revoker.calls = append(revoker.calls, userID)
	return revoker.result
}

type accountFixture struct {
	accounts *memoryAccounts
	sessions *memorySessions
	revoker  *stubRevoker
	service  *account.Service
}

func newAccountFixture() *accountFixture {
	f := &accountFixture{
		accounts: &memoryAccounts{users: map[string]*auth.User{
			readerID: {ID: readerID, Email: "reader@example.com", DisplayName: "Reader", IsActive: true, CreatedAt: accountNow},
		}},
		sessions: &memorySessions{},
		revoker:  &stubRevoker{result: apperr.Success(2)},
	}
	f.service = account.NewService(f.accounts, f.sessions, f.revoker, clock.NewMock(accountNow))
	return f
}

// # Tests

func TestService_GetProfile(t *testing.T) {
	f := newAccountFixture()

	user, err := f.service.GetProfile(context.Background(), readerID)
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", user.Email)

	_, err = f.service.GetProfile(context.Background(), "missing")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestService_ListSessions(t *testing.T) {
	f := newAccountFixture()

	sessions, err := f.service.ListSessions(context.Background(), readerID)
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)
	assert.Equal(t, accountNow, f.sessions.asked)

	f.sessions.tokens = []*auth.RefreshToken{
		{ID: "t-2", TokenHash: "h2", UserID: readerID, CreatedAt: accountNow, ExpiresAt: accountNow.Add(time.Hour)},
		{ID: "t-1", TokenHash: "h1", UserID: readerID, CreatedAt: accountNow.Add(-time.Hour), ExpiresAt: accountNow.Add(time.Minute)},
	}

	sessions, err = f.service.ListSessions(context.Background(), readerID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "t-2", sessions[0].ID)
	assert.Equal(t, accountNow.Add(time.Minute), sessions[1].ExpiresAt)
}

/*
TestService_Deactivate blocks the account and ends its sessions.
*/
func TestService_Deactivate(t *testing.T) {
	f := newAccountFixture()

	revoked, err := f.service.Deactivate(context.Background(), readerID, "cid-1")
	require.NoError(t, err)
	assert.Equal(t, 2, revoked)
	assert.False(t, f.accounts.users[readerID].IsActive)
	assert.Equal(t, []string{readerID}, f.revoker.calls)

	require.NoError(t, f.service.Reactivate(context.Background(), readerID))
	assert.True(t, f.accounts.users[readerID].IsActive)
}

func TestService_Deactivate_Failures(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		result   apperr.Result[int]
		wantCode apperr.ErrorCode
		revokes  int
	}{
		{
			name:     "unknown account",
			userID:   "missing",
			result:   apperr.Success(0),
			wantCode: apperr.CodeNotFound,
		},
		{
			name:     "revocation failure",
			userID:   readerID,
			result:   apperr.Failure[int](apperr.New(apperr.CodeDatabaseError, "")),
			wantCode: apperr.CodeDatabaseError,
			revokes:  1,
		},
		{
			name:     "failure without detail",
			userID:   readerID,
			result:   apperr.Failure[int](),
			wantCode: apperr.CodeUnknownError,
			revokes:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAccountFixture()
			f.revoker.result = tt.result

			revoked, err := f.service.Deactivate(context.Background(), tt.userID, "cid-1")

			require.Error(t, err)
			assert.Zero(t, revoked)
			assert.True(t, apperr.HasCode(err, tt.wantCode), err.Error())
			assert.Len(t, f.revoker.calls, tt.revokes)
		})
	}
}

func TestService_Reactivate_Unknown(t *testing.T) {
	f := newAccountFixture()

	err := f.service.Reactivate(context.Background(), "missing")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}
