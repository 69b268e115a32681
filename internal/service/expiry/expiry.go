package expiry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/reputalia/creditos/internal/logger"
	"github.com/reputalia/creditos/internal/models"
	"github.com/reputalia/creditos/internal/repository"
	ledgersvc "github.com/reputalia/creditos/internal/service/ledger"
)

const defaultMaxAge = 365 * 24 * time.Hour

type ledgerService interface {
	Expire(ctx context.Context, accountID uuid.UUID, amount int64, description string) (ledgersvc.Receipt, error)
}

type Config struct {
	// Cron expression for the sweep, e.g. "0 3 * * *"
	// Empty string disables the sweeper
	Schedule string

	// Credits granted earlier than now-MaxAge are swept
	// If not set the default is used
	MaxAge time.Duration
}

// Sweeper expires stale credits on a cron schedule
// Each account gets a single clamped expiration entry per sweep
type Sweeper struct {
	cron     *cron.Cron
	storage  repository.Storage
	ledger   ledgerService
	schedule string
	maxAge   time.Duration
	logger   logger.Logger
}

func New(cfg Config, storage repository.Storage, ledger ledgerService, l logger.Logger) (*Sweeper, error) {
	if l == nil {
		l = logger.NewNoOpLogger()
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = defaultMaxAge
	}

	s := &Sweeper{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		storage:  storage,
		ledger:   ledger,
		schedule: cfg.Schedule,
		maxAge:   cfg.MaxAge,
		logger:   l,
	}

	if cfg.Schedule != "" {
		_, err := s.cron.AddFunc(cfg.Schedule, s.runSweep)
		if err != nil {
			return nil, fmt.Errorf("can't schedule expiry sweep. Err: %w", err)
		}
	}

	return s, nil
}

func (s *Sweeper) Start() {
	if s.schedule == "" {
		s.logger.Info("Expiry sweeper disabled, no schedule set")
		return
	}
	s.cron.Start()
	s.logger.Info("Expiry sweeper started", "schedule", s.schedule)
}

// Stop the scheduler and wait for a running sweep to finish
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) runSweep() {
	if _, err := s.Sweep(context.Background()); err != nil {
		s.logger.Error("Expiry sweep failed", "error", err)
	}
}

// Sweep expires credits granted before now-maxAge
// Returns how many accounts were swept
// One account failing does not stop the rest of the sweep
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.maxAge)

	credits, err := s.storage.Ledger().ExpirableCredits(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("can't list expirable credits. Err: %w", err)
	}

	swept := 0
	for _, credit := range credits {
		receipt, err := s.ledger.Expire(ctx, credit.AccountID, credit.Amount, "credit expiry")
		if err != nil {
			s.logger.Warn("Can't expire account credits",
				"accountID", credit.AccountID,
				"amount", credit.Amount,
				"error", err,
			)
			continue
		}

		swept++
		if receipt.Alert != models.AlertNone {
			s.logger.Info("Account credits expired",
				"accountID", credit.AccountID,
				"amount", receipt.Transaction.Amount,
				"alert", receipt.Alert,
			)
		}
	}

	return swept, nil
}
