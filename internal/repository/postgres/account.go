package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/reputalia/creditos/internal/apperrors"
	"github.com/reputalia/creditos/internal/models"
)

type AccountRepo struct {
	DB DBTX
}

const createAccount = `-- name: CreateAccount
INSERT INTO accounts (id, username, hashed_password, segment)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, username, hashed_password, segment
`

func (r *AccountRepo) CreateAccount(ctx context.Context, username string, hashedPassword string, segment string) (models.Account, error) {
	rows, _ := r.DB.Query(ctx, createAccount, uuid.New(), username, hashedPassword, segment)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			return account, apperrors.ErrAccountAlreadyExists
		}
		return account, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

const getAccountByID = `-- name: GetAccountByID
SELECT id, created_at, username, hashed_password, segment FROM accounts
WHERE id = $1
`

func (r *AccountRepo) GetAccountByID(ctx context.Context, accountID uuid.UUID) (models.Account, error) {
	rows, _ := r.DB.Query(ctx, getAccountByID, accountID)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, pgx.ErrNoRows):
		return account, apperrors.ErrAccountNotFound
	default:
		return account, fmt.Errorf("db error: %w", err)
	}
}

const getAccountByUsername = `-- name: GetAccountByUsername
SELECT id, created_at, username, hashed_password, segment FROM accounts
WHERE username = $1
`

func (r *AccountRepo) GetAccountByUsername(ctx context.Context, username string) (models.Account, error) {
	rows, _ := r.DB.Query(ctx, getAccountByUsername, username)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, pgx.ErrNoRows):
		return account, apperrors.ErrAccountNotFound
	default:
		return account, fmt.Errorf("db error: %w", err)
	}
}

func rowToAccount(row pgx.CollectableRow) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.CreatedAt, &a.Username, &a.HashedPassword, &a.Segment)
	return a, err
}
