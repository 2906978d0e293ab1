// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/authd/internal/platform/apperr"
	"github.com/taibuivan/authd/internal/platform/clock"
	"github.com/taibuivan/authd/internal/platform/database/schema"
	"github.com/taibuivan/authd/internal/platform/dberr"
	"github.com/taibuivan/authd/internal/platform/postgres"
	"github.com/taibuivan/authd/internal/users/auth"
)

// # Account Repository

// PostgresAccountRepository implements [AccountRepository] on users.account.
type PostgresAccountRepository struct {
	db    postgres.Querier
	clock clock.Clock
}

// NewAccountRepository creates a new PostgreSQL implementation of AccountRepository.
func NewAccountRepository(db postgres.Querier, clk clock.Clock) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db, clock: clk}
}

/*
FindByID retrieves the administrative view of an account.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *auth.User: Account without its password hash
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresAccountRepository) FindByID(context context.Context, id string) (*auth.User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s = $1`,
		strings.Join(schema.UserAccount.ProfileColumns(), ", "),
		schema.UserAccount.Table, schema.UserAccount.ID,
	)

	user := &auth.User{}
	err := repository.db.QueryRow(context, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.IsActive,
		&user.LockoutUntil,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, dberr.Wrap(err, "postgres_account_repo_find_by_id_failed")
	}

	return user, nil
}

/*
SetActive switches the active flag of an account.

Parameters:
  - context: context.Context
  - id: string
  - active: bool

Returns:
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresAccountRepository) SetActive(context context.Context, id string, active bool) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1`,
		schema.UserAccount.Table, schema.UserAccount.IsActive,
		schema.UserAccount.UpdatedAt, schema.UserAccount.ID,
	)

	tag, err := repository.db.Exec(context, query, id, active, repository.clock.Now())
	if err != nil {
		return dberr.Wrap(err, "postgres_account_repo_set_active_failed")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}
