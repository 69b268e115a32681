package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/reputalia/creditos/internal/apperrors"
	"github.com/reputalia/creditos/internal/models"
)

type LedgerRepo struct {
	DB DBTX
}

const createBalance = `-- name: CreateBalance
INSERT INTO balances (account_id, current, granted, spent)
VALUES ($1, 0, 0, 0)
`

func (r *LedgerRepo) CreateBalance(ctx context.Context, accountID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, createBalance, accountID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("account balance already exists: %w", err)
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

const getBalance = `-- name: GetBalance
SELECT account_id, current, granted, spent FROM balances
WHERE account_id = $1
`

func (r *LedgerRepo) GetBalance(ctx context.Context, accountID uuid.UUID) (models.Balance, error) {
	rows, _ := r.DB.Query(ctx, getBalance, accountID)
	balance, err := pgx.CollectOneRow(rows, rowToBalance)

	switch {
	case err == nil:
		return balance, nil
	case errors.Is(err, pgx.ErrNoRows):
		return balance, apperrors.ErrAccountNotFound
	default:
		return balance, fmt.Errorf("db error: %w", err)
	}
}

const lockBalance = `-- name: LockBalance
SELECT account_id, current, granted, spent FROM balances
WHERE account_id = $1
FOR UPDATE
`

const updateBalance = `-- name: UpdateBalance
UPDATE balances
SET current = $2, granted = $3, spent = $4
WHERE account_id = $1
RETURNING account_id, current, granted, spent
`

const insertTransaction = `-- name: InsertTransaction
INSERT INTO transactions (id, account_id, recorded_at, kind, amount, description, channel, plan_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, account_id, recorded_at, kind, amount, description, channel, plan_id
`

// Append records the transaction and moves the materialized balance in one
// database transaction. The balance row lock serializes appends per account.
func (r *LedgerRepo) Append(ctx context.Context, t models.Transaction) (models.Transaction, models.Balance, error) {
	var recorded models.Transaction
	var balance models.Balance

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return recorded, balance, fmt.Errorf("db tx error: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the account balance row first: every concurrent append for this
	// account queues up here, including replays of the same transaction id
	rows, _ := tx.Query(ctx, lockBalance, t.AccountID)
	balance, err = pgx.CollectOneRow(rows, rowToBalance)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return recorded, balance, apperrors.ErrAccountNotFound
	case err != nil:
		return recorded, balance, fmt.Errorf("db error: %w", err)
	}

	// Replayed id: return the committed entry as is, do not apply it twice
	rows, _ = tx.Query(ctx, getTransaction, t.ID)
	recorded, err = pgx.CollectOneRow(rows, rowToTransaction)
	switch {
	case err == nil:
		return recorded, balance, apperrors.ErrTransactionExists
	case !errors.Is(err, pgx.ErrNoRows):
		return recorded, balance, fmt.Errorf("db error: %w", err)
	}

	amount := t.Amount
	switch t.Kind {
	case models.KindAllocation, models.KindPurchase, models.KindAdjustment:
		balance.Current += amount
		balance.Granted += amount
	case models.KindConsumption:
		if balance.Current < amount {
			return recorded, balance, apperrors.ErrInsufficientBalance
		}
		balance.Current -= amount
		balance.Spent += amount
	case models.KindExpiration:
		// Expire whatever is left, never below zero
		if amount > balance.Current {
			amount = balance.Current
		}
		if amount == 0 {
			return recorded, balance, apperrors.ErrInsufficientBalance
		}
		balance.Current -= amount
	default:
		return recorded, balance, apperrors.ErrInvalidKind
	}

	rows, _ = tx.Query(ctx, updateBalance, t.AccountID, balance.Current, balance.Granted, balance.Spent)
	balance, err = pgx.CollectOneRow(rows, rowToBalance)
	if err != nil {
		return recorded, balance, fmt.Errorf("db error: %w", err)
	}

	recordedAt := t.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	rows, _ = tx.Query(ctx, insertTransaction, t.ID, t.AccountID, recordedAt, t.Kind, amount, t.Description, t.Channel, t.PlanID)
	recorded, err = pgx.CollectOneRow(rows, rowToTransaction)
	if err != nil {
		return recorded, balance, fmt.Errorf("db error: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return recorded, balance, fmt.Errorf("db tx error: %w", err)
	}

	return recorded, balance, nil
}

const getTransaction = `-- name: GetTransaction
SELECT id, account_id, recorded_at, kind, amount, description, channel, plan_id
FROM transactions
WHERE id = $1
`

func (r *LedgerRepo) GetTransaction(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, getTransaction, id)
	t, err := pgx.CollectOneRow(rows, rowToTransaction)

	switch {
	case err == nil:
		return t, nil
	case errors.Is(err, pgx.ErrNoRows):
		return t, apperrors.ErrTransactionNotFound
	default:
		return t, fmt.Errorf("db error: %w", err)
	}
}

const listTransactions = `-- name: ListTransactions
SELECT id, account_id, recorded_at, kind, amount, description, channel, plan_id
FROM transactions
WHERE account_id = $1 AND ($2 = '' OR kind = $2)
ORDER BY recorded_at DESC, id
`

func (r *LedgerRepo) ListTransactions(ctx context.Context, accountID uuid.UUID, kind string) ([]models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, listTransactions, accountID, kind)
	transactions, err := pgx.CollectRows(rows, rowToTransaction)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return transactions, nil
}

const projectBalance = `-- name: ProjectBalance
SELECT
	COALESCE(SUM(CASE WHEN kind IN ('allocation', 'purchase', 'adjustment') THEN amount ELSE -amount END), 0) AS current,
	COALESCE(SUM(CASE WHEN kind IN ('allocation', 'purchase', 'adjustment') THEN amount ELSE 0 END), 0) AS granted,
	COALESCE(SUM(CASE WHEN kind = 'consumption' THEN amount ELSE 0 END), 0) AS spent
FROM transactions
WHERE account_id = $1
`

// ProjectBalance folds the whole log for the account.
// It exists to verify the incrementally maintained balances row: for any
// committed history both must agree.
func (r *LedgerRepo) ProjectBalance(ctx context.Context, accountID uuid.UUID) (models.Balance, error) {
	balance := models.Balance{AccountID: accountID}

	err := r.DB.QueryRow(ctx, projectBalance, accountID).Scan(&balance.Current, &balance.Granted, &balance.Spent)
	if err != nil {
		return balance, fmt.Errorf("db error: %w", err)
	}

	return balance, nil
}

// Debits are counted against the oldest grants first, so the expirable
// remainder is what was granted before the cutoff minus everything debited
// since the account was created.
const expirableCredits = `-- name: ExpirableCredits
SELECT b.account_id,
	LEAST(b.current, GREATEST(0, old.granted - (b.granted - b.current))) AS amount
FROM balances b
JOIN (
	SELECT account_id, SUM(amount) AS granted
	FROM transactions
	WHERE kind IN ('allocation', 'purchase', 'adjustment') AND recorded_at < $1
	GROUP BY account_id
) old USING (account_id)
WHERE LEAST(b.current, GREATEST(0, old.granted - (b.granted - b.current))) > 0
ORDER BY b.account_id
`

func (r *LedgerRepo) ExpirableCredits(ctx context.Context, before time.Time) ([]models.ExpirableCredit, error) {
	rows, _ := r.DB.Query(ctx, expirableCredits, before)
	credits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ExpirableCredit, error) {
		var c models.ExpirableCredit
		err := row.Scan(&c.AccountID, &c.Amount)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return credits, nil
}

func rowToBalance(row pgx.CollectableRow) (models.Balance, error) {
	var b models.Balance
	err := row.Scan(&b.AccountID, &b.Current, &b.Granted, &b.Spent)
	return b, err
}

func rowToTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.AccountID, &t.RecordedAt, &t.Kind, &t.Amount, &t.Description, &t.Channel, &t.PlanID)
	return t, err
}
