package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/reputalia/creditos/internal/apperrors"
	"github.com/reputalia/creditos/internal/logger"
	"github.com/reputalia/creditos/internal/models"
	"github.com/reputalia/creditos/internal/repository"
	"github.com/reputalia/creditos/internal/service/plans"
)

// BalanceCache is the hot read path for balance projections.
// The service works without one: a nil cache means every read hits the
// database.
type BalanceCache interface {
	Get(ctx context.Context, accountID uuid.UUID) (models.Balance, bool)
	Set(ctx context.Context, balance models.Balance) error
	Invalidate(ctx context.Context, accountID uuid.UUID) error
}

type Config struct {
	// Percent of total granted credits at which the balance counts as low
	// Default is DefaultThresholdPercent
	ThresholdPercent int64
}

type LedgerService struct {
	storage  repository.Storage
	catalog  *plans.Catalog
	notifier Notifier
	cache    BalanceCache
	logger   logger.Logger
}

func NewService(cfg Config, storage repository.Storage, catalog *plans.Catalog, cache BalanceCache, l logger.Logger) *LedgerService {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &LedgerService{
		storage:  storage,
		catalog:  catalog,
		notifier: NewNotifier(cfg.ThresholdPercent),
		cache:    cache,
		logger:   l,
	}
}

// AppendParams describe one ledger entry to record.
// ID may be set by callers that need replay safety; a zero ID gets a fresh
// one. Channel and PlanID are optional metadata.
type AppendParams struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	Kind        string
	Amount      int64
	Description string
	Channel     string
	PlanID      string
}

// Receipt is what every mutating ledger operation returns: the recorded
// entry, the balance after it and the threshold classification of that
// balance.
type Receipt struct {
	Transaction models.Transaction
	Balance     models.Balance
	Alert       models.AlertLevel
}

// Consume debits credits for a metered feature call.
// Returns apperrors.ErrInsufficientBalance if the account holds fewer
// credits than requested; the log stays unchanged then.
func (s *LedgerService) Consume(ctx context.Context, accountID uuid.UUID, amount int64, description string, channel string) (Receipt, error) {
	return s.Append(ctx, AppendParams{
		AccountID:   accountID,
		Kind:        models.KindConsumption,
		Amount:      amount,
		Description: description,
		Channel:     channel,
	})
}

// Purchase credits the account with the credits of the plan
func (s *LedgerService) Purchase(ctx context.Context, accountID uuid.UUID, planID string) (Receipt, error) {
	plan, err := s.catalog.Resolve(planID)
	if err != nil {
		return Receipt{}, err
	}

	return s.Append(ctx, AppendParams{
		AccountID:   accountID,
		Kind:        models.KindPurchase,
		Amount:      plan.Credits,
		Description: fmt.Sprintf("plan %s purchase", plan.ID),
		PlanID:      plan.ID,
	})
}

// Allocate grants credits not tied to a purchase
func (s *LedgerService) Allocate(ctx context.Context, accountID uuid.UUID, amount int64, description string) (Receipt, error) {
	return s.Append(ctx, AppendParams{
		AccountID:   accountID,
		Kind:        models.KindAllocation,
		Amount:      amount,
		Description: description,
	})
}

// Adjust records a compensating credit entry.
// The ledger is append only, so corrections never rewrite history.
func (s *LedgerService) Adjust(ctx context.Context, accountID uuid.UUID, amount int64, description string) (Receipt, error) {
	return s.Append(ctx, AppendParams{
		AccountID:   accountID,
		Kind:        models.KindAdjustment,
		Amount:      amount,
		Description: description,
	})
}

// Expire debits stale credits, clamped to whatever is left on the balance
func (s *LedgerService) Expire(ctx context.Context, accountID uuid.UUID, amount int64, description string) (Receipt, error) {
	return s.Append(ctx, AppendParams{
		AccountID:   accountID,
		Kind:        models.KindExpiration,
		Amount:      amount,
		Description: description,
	})
}

// Append records a single ledger entry and refreshes the cached balance.
// Replaying an id that is committed already returns the stored entry without
// applying it twice.
func (s *LedgerService) Append(ctx context.Context, params AppendParams) (Receipt, error) {
	if params.Amount <= 0 {
		return Receipt{}, apperrors.ErrInvalidAmount
	}
	if !models.IsValidKind(params.Kind) {
		return Receipt{}, apperrors.ErrInvalidKind
	}

	entry := models.Transaction{
		ID:          params.ID,
		AccountID:   params.AccountID,
		Kind:        params.Kind,
		Amount:      params.Amount,
		Description: params.Description,
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if params.Channel != "" {
		entry.Channel = &params.Channel
	}
	if params.PlanID != "" {
		entry.PlanID = &params.PlanID
	}

	var recorded models.Transaction
	var balance models.Balance

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		var err error
		recorded, balance, err = st.Ledger().Append(ctx, entry)

		if errors.Is(err, apperrors.ErrTransactionExists) {
			// Replay of a committed entry: nothing to apply, nothing to roll back
			return nil
		}
		return err
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("can't append %s: %w", params.Kind, err)
	}

	s.refreshCache(ctx, balance)

	alert := s.notifier.Classify(balance)
	switch alert {
	case models.AlertCritical:
		s.logger.Warn("credits exhausted", "account_id", balance.AccountID)
	case models.AlertLow:
		s.logger.Warn("credit balance below threshold", "account_id", balance.AccountID, "current", balance.Current, "granted", balance.Granted)
	}

	return Receipt{Transaction: recorded, Balance: balance, Alert: alert}, nil
}

// Balance returns the current projection and its threshold classification
func (s *LedgerService) Balance(ctx context.Context, accountID uuid.UUID) (models.Balance, models.AlertLevel, error) {
	if s.cache != nil {
		if balance, ok := s.cache.Get(ctx, accountID); ok {
			return balance, s.notifier.Classify(balance), nil
		}
	}

	balance, err := s.storage.Ledger().GetBalance(ctx, accountID)
	if err != nil {
		return balance, models.AlertNone, err
	}

	s.refreshCache(ctx, balance)

	return balance, s.notifier.Classify(balance), nil
}

// History lists account transactions newest first, optionally one kind only
func (s *LedgerService) History(ctx context.Context, accountID uuid.UUID, kind string) ([]models.Transaction, error) {
	if kind != "" && !models.IsValidKind(kind) {
		return nil, apperrors.ErrInvalidKind
	}

	return s.storage.Ledger().ListTransactions(ctx, accountID, kind)
}

func (s *LedgerService) refreshCache(ctx context.Context, balance models.Balance) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Set(ctx, balance); err != nil {
		// The cache is best effort, the database already holds the truth
		s.logger.Warn("failed to refresh balance cache", "account_id", balance.AccountID, "error", err)
	}
}
