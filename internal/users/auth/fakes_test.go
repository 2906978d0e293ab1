// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/authd/internal/platform/apperr"
	"github.com/taibuivan/authd/internal/platform/clock"
	"github.com/taibuivan/authd/internal/platform/sec"
	"github.com/taibuivan/authd/internal/users/auth"
)

// # Credentials

type memoryCredentials struct {
	mu          sync.Mutex
	clock       clock.Clock
	maxAttempts int
	lockout     time.Duration

	users   map[string]auth.User
	roles   map[string][]string
	deleted []string

	createErr   error
	addRoleErr  error
	panicOnRole bool
}

func newMemoryCredentials(clk clock.Clock) *memoryCredentials {
	return &memoryCredentials{
		clock:       clk,
		maxAttempts: 3,
		lockout:     15 * time.Minute,
		users:       map[string]auth.User{},
		roles:       map[string][]string{},
	}
}

func (store *memoryCredentials) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	for _, user := range store.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (store *memoryCredentials) FindByID(_ context.Context, id string) (*auth.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	user, ok := store.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	return &user, nil
}

func (store *memoryCredentials) Create(_ context.Context, user *auth.User, password string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.createErr != nil {
		return store.createErr
	}
	for _, existing := range store.users {
		if existing.Email == user.Email {
			return apperr.New(apperr.CodeDuplicateResource, "")
		}
	}
	user.PasswordHash = "hash:" + password
	user.CreatedAt = store.clock.Now()
	user.UpdatedAt = user.CreatedAt
	store.users[user.ID] = *user
	return nil
}

func (store *memoryCredentials) Delete(_ context.Context, id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.users, id)
	delete(store.roles, id)
	store.deleted = append(store.deleted, id)
	return nil
}

func (store *memoryCredentials) CheckPassword(_ context.Context, user *auth.User, password string) (bool, error) {
	return user.PasswordHash == "hash:"+password, nil
}

func (store *memoryCredentials) IsLockedOut(_ context.Context, user *auth.User) (bool, error) {
	return user.IsLockedOut(store.clock.Now()), nil
}

func (store *memoryCredentials) IncrementFailedAccess(_ context.Context, user *auth.User) (int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	now := store.clock.Now()
	stored := store.users[user.ID]
	if stored.LockoutUntil != nil && !stored.LockoutUntil.After(now) {
		stored.FailedAccessCount = 0
		stored.LockoutUntil = nil
	}
	stored.FailedAccessCount++
	if stored.FailedAccessCount >= store.maxAttempts {
		until := now.Add(store.lockout)
		stored.LockoutUntil = &until
	}
	store.users[user.ID] = stored

	user.FailedAccessCount = stored.FailedAccessCount
	user.LockoutUntil = stored.LockoutUntil
	return stored.FailedAccessCount, nil
}

func (store *memoryCredentials) ResetFailedAccess(_ context.Context, user *auth.User) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	stored := store.users[user.ID]
	stored.FailedAccessCount = 0
	stored.LockoutUntil = nil
	store.users[user.ID] = stored
	user.FailedAccessCount = 0
	user.LockoutUntil = nil
	return nil
}

func (store *memoryCredentials) GetRoles(_ context.Context, user *auth.User) ([]string, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.panicOnRole {
		panic("role table exploded")
	}
	return append([]string(nil), store.roles[user.ID]...), nil
}

func (store *memoryCredentials) AddToRole(_ context.Context, user *auth.User, role sec.UserRole) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.addRoleErr != nil {
		return store.addRoleErr
	}
	store.roles[user.ID] = append(store.roles[user.ID], string(role))
	return nil
}

func (store *memoryCredentials) MaxFailedAccessAttempts() int { return store.maxAttempts }

func (store *memoryCredentials) setActive(id string, active bool) {
	store.mu.Lock()
	defer store.mu.Unlock()
	user := store.users[id]
	user.IsActive = active
	store.users[id] = user
}

func (store *memoryCredentials) user(id string) (auth.User, bool) {
	store.mu.Lock()
	defer store.mu.Unlock()
	user, ok := store.users[id]
	return user, ok
}

// # Refresh Tokens

// memoryTokens serializes transactions with a mutex held from Begin to
// Commit or Rollback, like row locks on a single family would.
type memoryTokens struct {
	tx        sync.Mutex
	mu        sync.Mutex
	rows      map[string]auth.RefreshToken
	commits   int
	rollbacks int
	insertErr error
}

func newMemoryTokens() *memoryTokens {
	return &memoryTokens{rows: map[string]auth.RefreshToken{}}
}

func (store *memoryTokens) Begin(context.Context) (auth.Tx, error) {
	store.tx.Lock()
	store.mu.Lock()
	defer store.mu.Unlock()
	return &memoryTx{parent: store, rows: maps.Clone(store.rows)}, nil
}

func (store *memoryTokens) byValue(value string) (auth.RefreshToken, bool) {
	store.mu.Lock()
	defer store.mu.Unlock()
	row, ok := store.rows[sec.HashToken(value)]
	return row, ok
}

func (store *memoryTokens) forUser(userID string) []auth.RefreshToken {
	store.mu.Lock()
	defer store.mu.Unlock()
	var rows []auth.RefreshToken
	for _, row := range store.rows {
		if row.UserID == userID {
			rows = append(rows, row)
		}
	}
	return rows
}

func (store *memoryTokens) counts() (int, int) {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.commits, store.rollbacks
}

type memoryTx struct {
	parent *memoryTokens
	rows   map[string]auth.RefreshToken
}

func (tx *memoryTx) Commit(context.Context) error {
	tx.parent.mu.Lock()
	tx.parent.rows = tx.rows
	tx.parent.commits++
	tx.parent.mu.Unlock()
	tx.parent.tx.Unlock()
	return nil
}

func (tx *memoryTx) Rollback(context.Context) error {
	tx.parent.mu.Lock()
	tx.parent.rollbacks++
	tx.parent.mu.Unlock()
	tx.parent.tx.Unlock()
	return nil
}

func (tx *memoryTx) RefreshTokens() auth.RefreshTokenStore { return tx }

func (tx *memoryTx) FindByValue(_ context.Context, value string) (*auth.RefreshToken, error) {
	row, ok := tx.rows[sec.HashToken(value)]
	if !ok {
		return nil, apperr.NotFound("Refresh token")
	}
	return &row, nil
}

func (tx *memoryTx) FindActiveForUser(_ context.Context, userID string) ([]*auth.RefreshToken, error) {
	var tokens []*auth.RefreshToken
	for _, row := range tx.rows {
		if row.UserID == userID && !row.IsRevoked {
			tokens = append(tokens, &row)
		}
	}
	return tokens, nil
}

func (tx *memoryTx) Insert(_ context.Context, token *auth.RefreshToken) error {
	if tx.parent.insertErr != nil {
		return tx.parent.insertErr
	}
	tx.rows[token.TokenHash] = *token
	return nil
}

func (tx *memoryTx) Update(_ context.Context, token *auth.RefreshToken) error {
	if _, ok := tx.rows[token.TokenHash]; !ok {
		return apperr.NotFound("Refresh token")
	}
	tx.rows[token.TokenHash] = *token
	return nil
}

// # Collaborators

type recordingRevocations struct {
	mu     sync.Mutex
	marked map[string]time.Time
	err    error
}

func (cache *recordingRevocations) MarkRevoked(_ context.Context, userID string, at time.Time) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.err != nil {
		return cache.err
	}
	if cache.marked == nil {
		cache.marked = map[string]time.Time{}
	}
	cache.marked[userID] = at
	return nil
}

func (cache *recordingRevocations) isMarked(userID string) bool {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	_, ok := cache.marked[userID]
	return ok
}

type recordingMetrics struct {
	mu       sync.Mutex
	outcomes []string
	reuses   int
}

func (metrics *recordingMetrics) ObserveAuth(operation, outcome string, _ time.Duration) {
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	metrics.outcomes = append(metrics.outcomes, operation+":"+outcome)
}

func (metrics *recordingMetrics) RecordReuseDetected() {
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	metrics.reuses++
}

func (metrics *recordingMetrics) last() string {
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if len(metrics.outcomes) == 0 {
		return ""
	}
	return metrics.outcomes[len(metrics.outcomes)-1]
}

func (metrics *recordingMetrics) reuseCount() int {
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	return metrics.reuses
}

// # Fixture

type fixture struct {
	clock       *clock.Mock
	credentials *memoryCredentials
	tokens      *memoryTokens
	revocations *recordingRevocations
	metrics     *recordingMetrics
	issuer      *sec.TokenService
	service     *auth.Service
}

func newFixture() *fixture {
	clk := clock.NewMock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	issuer, err := sec.NewTokenService(sec.TokenConfig{
		Secret:          strings.Repeat("s", 32),
		Issuer:          "authd",
		Audience:        "authd-clients",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	}, clk)
	if err != nil {
		panic(err)
	}

	f := &fixture{
		clock:       clk,
		credentials: newMemoryCredentials(clk),
		tokens:      newMemoryTokens(),
		revocations: &recordingRevocations{},
		metrics:     &recordingMetrics{},
		issuer:      issuer,
	}
	f.service = auth.NewService(f.credentials, f.tokens, issuer, f.revocations, f.metrics, clk)
	return f
}

const (
	testEmail    = "reader@example.com"
	testPassword = "Str0ng!pass"
)

// register enrolls the default account and returns its id and token pair.
func (f *fixture) register() (string, auth.TokenResponse) {
	result := f.service.Register(context.Background(), auth.RegisterCommand{
		Email:         testEmail,
		Password:      testPassword,
		DisplayName:   "Reader",
		CorrelationID: "cid-register",
	})
	if result.IsError() {
		panic(result.ErrorMessage())
	}

	user, err := f.credentials.FindByEmail(context.Background(), testEmail)
	if err != nil {
		panic(err)
	}
	return user.ID, result.Value()
}
