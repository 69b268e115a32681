package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/reputalia/creditos/internal/models"
)

// Account repository interface
type AccountRepo interface {
	// Create account
	// If account with username exists already has to return apperrors.ErrAccountAlreadyExists
	CreateAccount(ctx context.Context, username string, hashedPassword string, segment string) (models.Account, error)

	// Get account by its id or username
	// If account not found must return apperrors.ErrAccountNotFound
	GetAccountByID(ctx context.Context, accountID uuid.UUID) (models.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (models.Account, error)
}

// Ledger repository interface
// The transaction log is append only: there are no update or delete
// operations here on purpose, corrections enter as adjustment entries.
type LedgerRepo interface {
	// Create zeroed balance row for the account
	CreateBalance(ctx context.Context, accountID uuid.UUID) error

	// Get the materialized balance
	// If account balance not found must return apperrors.ErrAccountNotFound
	GetBalance(ctx context.Context, accountID uuid.UUID) (models.Balance, error)

	// Append transaction and update the materialized balance atomically.
	// The balance row is locked for the duration of the append, so two
	// concurrent appends for one account are serialized while appends for
	// different accounts proceed in parallel.
	//
	// Consumption that would drive the balance negative is rejected with
	// apperrors.ErrInsufficientBalance and leaves the log unchanged.
	// Expiration is clamped to the current balance; a fully clamped (zero)
	// expiration is rejected the same way.
	//
	// Replaying an already committed transaction id returns the stored
	// transaction, the current balance and apperrors.ErrTransactionExists.
	Append(ctx context.Context, t models.Transaction) (models.Transaction, models.Balance, error)

	// Get single transaction by id
	// If not found must return apperrors.ErrTransactionNotFound
	GetTransaction(ctx context.Context, id uuid.UUID) (models.Transaction, error)

	// List account transactions newest first, optionally filtered by kind
	// (empty kind means all kinds)
	ListTransactions(ctx context.Context, accountID uuid.UUID, kind string) ([]models.Transaction, error)

	// Recompute the balance by folding the whole log for the account.
	// The result must equal GetBalance at all times; used to verify the
	// materialized projection against the authoritative log.
	ProjectBalance(ctx context.Context, accountID uuid.UUID) (models.Balance, error)

	// Find accounts holding credits granted before the cutoff that are not
	// yet consumed or expired. Debits are counted against the oldest grants
	// first, so the reported amount is the expirable remainder.
	ExpirableCredits(ctx context.Context, before time.Time) ([]models.ExpirableCredit, error)
}

// RefreshToken repository interface
type RefreshTokenRepo interface {
	// Save token
	Save(ctx context.Context, token models.RefreshToken) error

	// Return the token if it exists
	// If not found must return apperrors.ErrRefreshTokenNotFound
	Get(ctx context.Context, tokenString string) (models.RefreshToken, error)

	// Mark token as used
	// Must be idempotent: if the token is used already it has to return
	// apperrors.ErrRefreshTokenIsUsed and keep the original usedAt
	MarkUsed(ctx context.Context, tokenString string) (time.Time, error)
}

// Storage combines the repositories over a single database handle
type Storage interface {
	Account() AccountRepo
	Ledger() LedgerRepo
	Refresh() RefreshTokenRepo

	// Run fn within a database transaction
	// The transaction commits when fn returns nil and rolls back otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}
