// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/authd/internal/platform/apperr"
	"github.com/taibuivan/authd/internal/platform/clock"
	"github.com/taibuivan/authd/internal/platform/database/schema"
	"github.com/taibuivan/authd/internal/platform/dberr"
	"github.com/taibuivan/authd/internal/platform/postgres"
	"github.com/taibuivan/authd/internal/platform/sec"
	"github.com/taibuivan/authd/internal/platform/validate"
)

// # Credential Store

var accountColumns = strings.Join(schema.UserAccount.Columns(), ", ")

// PostgresCredentialStore implements [CredentialStore] on the users schema.
type PostgresCredentialStore struct {
	db              postgres.Querier
	clock           clock.Clock
	maxAttempts     int
	lockoutDuration time.Duration
}

/*
NewCredentialStore creates the PostgreSQL credential store.

Parameters:
  - db: postgres.Querier (Pool or transaction)
  - clk: clock.Clock
  - maxAttempts: int (Failed password checks before lockout)
  - lockoutDuration: time.Duration

Returns:
  - *PostgresCredentialStore
*/
func NewCredentialStore(db postgres.Querier, clk clock.Clock, maxAttempts int, lockoutDuration time.Duration) *PostgresCredentialStore {
	return &PostgresCredentialStore{
		db:              db,
		clock:           clk,
		maxAttempts:     maxAttempts,
		lockoutDuration: lockoutDuration,
	}
}

// MaxFailedAccessAttempts returns the configured lockout threshold.
func (repository *PostgresCredentialStore) MaxFailedAccessAttempts() int {
	return repository.maxAttempts
}

/*
FindByEmail retrieves an account by its normalized email.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresCredentialStore) FindByEmail(context context.Context, email string) (*User, error) {
	query := `SELECT ` + accountColumns + ` FROM users.account WHERE lower(email) = lower($1)`

	user, err := scanUser(repository.db.QueryRow(context, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, dberr.Wrap(err, "postgres_credential_store_find_by_email_failed")
	}

	return user, nil
}

/*
FindByID retrieves an account by primary key.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresCredentialStore) FindByID(context context.Context, id string) (*User, error) {
	query := `SELECT ` + accountColumns + ` FROM users.account WHERE id = $1`

	user, err := scanUser(repository.db.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, dberr.Wrap(err, "postgres_credential_store_find_by_id_failed")
	}

	return user, nil
}

/*
Create validates and hashes password, then inserts the account.

Description: Password rules are enforced here so every sub-error can be
reported back to the caller in one failure.

Parameters:
  - context: context.Context
  - user: *User (ID, Email and DisplayName set by the caller)
  - password: string

Returns:
  - error: ValidationError, DuplicateResource, or database errors
*/
func (repository *PostgresCredentialStore) Create(context context.Context, user *User, password string) error {
	validator := &validate.Validator{}
	validator.Password(FieldPassword, password)
	if err := validator.Err(); err != nil {
		return err
	}

	hash, err := sec.HashPassword(password)
	if err != nil {
		return fmt.Errorf("postgres_credential_store_hash_failed: %w", err)
	}

	const query = `
		INSERT INTO users.account (
			id, email, passwordhash, displayname, isactive, failedaccesscount, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, 0, $6, $6)`

	now := repository.clock.Now()
	_, err = repository.db.Exec(context, query,
		user.ID,
		user.Email,
		hash,
		user.DisplayName,
		user.IsActive,
		now,
	)
	if err != nil {
		return dberr.Wrap(err, "postgres_credential_store_create_failed")
	}

	user.PasswordHash = hash
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

/*
Delete physically removes an account and its role links.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: Database errors
*/
func (repository *PostgresCredentialStore) Delete(context context.Context, id string) error {
	const query = `DELETE FROM users.account WHERE id = $1`

	if _, err := repository.db.Exec(context, query, id); err != nil {
		return dberr.Wrap(err, "postgres_credential_store_delete_failed")
	}
	return nil
}

// CheckPassword compares password with the stored bcrypt hash.
func (repository *PostgresCredentialStore) CheckPassword(_ context.Context, user *User, password string) (bool, error) {
	return sec.CheckPasswordHash(password, user.PasswordHash)
}

// IsLockedOut reports whether the stored lockout window is still open.
func (repository *PostgresCredentialStore) IsLockedOut(_ context.Context, user *User) (bool, error) {
	return user.IsLockedOut(repository.clock.Now()), nil
}

/*
IncrementFailedAccess records one failed password check.

Description: A single statement counts the failure and opens the lockout
window once the threshold is reached. An elapsed window restarts the count
at one, so concurrent failures can never lose an increment.

Parameters:
  - context: context.Context
  - user: *User (Updated in place)

Returns:
  - int: Failed attempts counted so far
  - error: Database errors
*/
func (repository *PostgresCredentialStore) IncrementFailedAccess(context context.Context, user *User) (int, error) {
	const query = `
		UPDATE users.account SET
			failedaccesscount = CASE
				WHEN lockoutuntil IS NOT NULL AND lockoutuntil <= $2 THEN 1
				ELSE failedaccesscount + 1
			END,
			lockoutuntil = CASE
				WHEN (CASE WHEN lockoutuntil IS NOT NULL AND lockoutuntil <= $2 THEN 1 ELSE failedaccesscount + 1 END) >= $3 THEN $4
				WHEN lockoutuntil IS NOT NULL AND lockoutuntil <= $2 THEN NULL
				ELSE lockoutuntil
			END,
			updatedat = $2
		WHERE id = $1
		RETURNING failedaccesscount, lockoutuntil`

	now := repository.clock.Now()
	err := repository.db.QueryRow(context, query,
		user.ID,
		now,
		repository.maxAttempts,
		now.Add(repository.lockoutDuration),
	).Scan(&user.FailedAccessCount, &user.LockoutUntil)
	if err != nil {
		return 0, dberr.Wrap(err, "postgres_credential_store_increment_failed_access_failed")
	}

	user.UpdatedAt = now
	return user.FailedAccessCount, nil
}

/*
ResetFailedAccess clears the counter and lockout after a successful login.

Parameters:
  - context: context.Context
  - user: *User (Updated in place)

Returns:
  - error: Database errors
*/
func (repository *PostgresCredentialStore) ResetFailedAccess(context context.Context, user *User) error {
	if user.FailedAccessCount == 0 && user.LockoutUntil == nil {
		return nil
	}

	const query = `
		UPDATE users.account
		SET failedaccesscount = 0, lockoutuntil = NULL, updatedat = $2
		WHERE id = $1`

	now := repository.clock.Now()
	if _, err := repository.db.Exec(context, query, user.ID, now); err != nil {
		return dberr.Wrap(err, "postgres_credential_store_reset_failed_access_failed")
	}

	user.FailedAccessCount = 0
	user.LockoutUntil = nil
	user.UpdatedAt = now
	return nil
}

/*
GetRoles lists the role names linked to the account.

Parameters:
  - context: context.Context
  - user: *User

Returns:
  - []string: Role names ordered by name
  - error: Database errors
*/
func (repository *PostgresCredentialStore) GetRoles(context context.Context, user *User) ([]string, error) {
	const query = `
		SELECT r.name
		FROM users.accountrole ar
		JOIN users.role r ON r.id = ar.roleid
		WHERE ar.accountid = $1
		ORDER BY r.name`

	rows, err := repository.db.Query(context, query, user.ID)
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_credential_store_get_roles_failed")
	}

	roles, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_credential_store_scan_roles_failed")
	}

	return roles, nil
}

/*
AddToRole links the account to an existing role.

Parameters:
  - context: context.Context
  - user: *User
  - role: sec.UserRole

Returns:
  - error: apperr.NotFound for unknown roles, or database errors
*/
func (repository *PostgresCredentialStore) AddToRole(context context.Context, user *User, role sec.UserRole) error {
	const query = `
		INSERT INTO users.accountrole (accountid, roleid)
		SELECT $1, r.id FROM users.role r WHERE r.name = $2
		ON CONFLICT DO NOTHING`

	tag, err := repository.db.Exec(context, query, user.ID, string(role))
	if err != nil {
		return dberr.Wrap(err, "postgres_credential_store_add_to_role_failed")
	}

	// Zero rows means the role does not exist. Existing links are a no-op.
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := repository.db.QueryRow(context, `SELECT EXISTS (SELECT 1 FROM users.role WHERE name = $1)`, string(role)).Scan(&exists); err != nil {
			return dberr.Wrap(err, "postgres_credential_store_role_lookup_failed")
		}
		if !exists {
			return apperr.NotFound("Role")
		}
	}

	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.IsActive,
		&user.FailedAccessCount,
		&user.LockoutUntil,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// # Refresh Token Store

var refreshTokenColumns = strings.Join(schema.UserRefreshToken.Columns(), ", ")

// PostgresRefreshTokenStore implements [RefreshTokenStore] on users.refreshtoken.
type PostgresRefreshTokenStore struct {
	db postgres.Querier
}

// NewRefreshTokenStore binds a refresh token store to a pool or transaction.
func NewRefreshTokenStore(db postgres.Querier) *PostgresRefreshTokenStore {
	return &PostgresRefreshTokenStore{db: db}
}

/*
FindByValue hashes value and locks the matching row.

Parameters:
  - context: context.Context
  - value: string (Raw token)

Returns:
  - *RefreshToken: Row in any state
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresRefreshTokenStore) FindByValue(context context.Context, value string) (*RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + ` FROM users.refreshtoken WHERE tokenhash = $1 FOR UPDATE`

	rows, err := repository.db.Query(context, query, sec.HashToken(value))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_refresh_token_store_find_failed")
	}

	token, err := pgx.CollectExactlyOneRow(rows, scanRefreshToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Refresh token")
		}
		return nil, dberr.Wrap(err, "postgres_refresh_token_store_scan_failed")
	}

	return token, nil
}

/*
FindActiveForUser locks every non-revoked row of userID.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []*RefreshToken
  - error: Database errors
*/
func (repository *PostgresRefreshTokenStore) FindActiveForUser(context context.Context, userID string) ([]*RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + ` FROM users.refreshtoken
		WHERE userid = $1 AND isrevoked = FALSE
		ORDER BY createdat
		FOR UPDATE`

	rows, err := repository.db.Query(context, query, userID)
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_refresh_token_store_list_failed")
	}

	tokens, err := pgx.CollectRows(rows, scanRefreshToken)
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_refresh_token_store_scan_failed")
	}

	return tokens, nil
}

/*
ListSessions returns the rows of userID that can still be exchanged at now.

Used for read-only session listings outside any transaction.

Parameters:
  - context: context.Context
  - userID: string
  - now: time.Time

Returns:
  - []*RefreshToken: Newest first
  - error: Database errors
*/
func (repository *PostgresRefreshTokenStore) ListSessions(context context.Context, userID string, now time.Time) ([]*RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + ` FROM users.refreshtoken
		WHERE userid = $1 AND isused = FALSE AND isrevoked = FALSE AND expiresat > $2
		ORDER BY createdat DESC`

	rows, err := repository.db.Query(context, query, userID, now)
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_refresh_token_store_sessions_failed")
	}

	tokens, err := pgx.CollectRows(rows, scanRefreshToken)
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_refresh_token_store_scan_failed")
	}

	return tokens, nil
}

// Insert persists a newly issued row.
func (repository *PostgresRefreshTokenStore) Insert(context context.Context, token *RefreshToken) error {
	const query = `
		INSERT INTO users.refreshtoken (
			id, tokenhash, userid, expiresat, isused, isrevoked, createdat
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := repository.db.Exec(context, query,
		token.ID,
		token.TokenHash,
		token.UserID,
		token.ExpiresAt,
		token.IsUsed,
		token.IsRevoked,
		token.CreatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "postgres_refresh_token_store_insert_failed")
	}

	return nil
}

// Update writes the lifecycle flags of an existing row.
func (repository *PostgresRefreshTokenStore) Update(context context.Context, token *RefreshToken) error {
	const query = `UPDATE users.refreshtoken SET isused = $2, isrevoked = $3 WHERE id = $1`

	tag, err := repository.db.Exec(context, query, token.ID, token.IsUsed, token.IsRevoked)
	if err != nil {
		return dberr.Wrap(err, "postgres_refresh_token_store_update_failed")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Refresh token")
	}

	return nil
}

func scanRefreshToken(row pgx.CollectableRow) (*RefreshToken, error) {
	token := &RefreshToken{}
	err := row.Scan(
		&token.ID,
		&token.TokenHash,
		&token.UserID,
		&token.ExpiresAt,
		&token.IsUsed,
		&token.IsRevoked,
		&token.CreatedAt,
	)
	return token, err
}

// # Unit of Work

// PostgresUnitOfWork opens pgx transactions for the refresh token flows.
type PostgresUnitOfWork struct {
	db postgres.DB
}

// NewUnitOfWork creates the PostgreSQL unit of work.
func NewUnitOfWork(db postgres.DB) *PostgresUnitOfWork {
	return &PostgresUnitOfWork{db: db}
}

// Begin starts a transaction. The caller owns commit or rollback.
func (unitOfWork *PostgresUnitOfWork) Begin(context context.Context) (Tx, error) {
	tx, err := unitOfWork.db.Begin(context)
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_unit_of_work_begin_failed")
	}
	return &postgresTx{tx: tx}, nil
}

type postgresTx struct {
	tx pgx.Tx
}

func (transaction *postgresTx) Commit(context context.Context) error {
	return transaction.tx.Commit(context)
}

func (transaction *postgresTx) Rollback(context context.Context) error {
	err := transaction.tx.Rollback(context)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func (transaction *postgresTx) RefreshTokens() RefreshTokenStore {
	return NewRefreshTokenStore(transaction.tx)
}
