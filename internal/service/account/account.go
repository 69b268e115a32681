package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/reputalia/creditos/internal/apperrors"
	"github.com/reputalia/creditos/internal/models"
	"github.com/reputalia/creditos/internal/repository"
	"github.com/reputalia/creditos/internal/service/auth"
)

type Config struct {
	// Credits granted to every fresh account, zero disables the grant
	WelcomeCredits int64
}

type AccountService struct {
	hasher         auth.PasswordHasher
	storage        repository.Storage
	welcomeCredits int64
}

func NewService(cfg Config, hasher auth.PasswordHasher, storage repository.Storage) *AccountService {
	if hasher == nil {
		hasher = auth.DefaultHasher
	}

	return &AccountService{
		hasher:         hasher,
		storage:        storage,
		welcomeCredits: cfg.WelcomeCredits,
	}
}

// CreateAccount registers the account with its zeroed balance and the
// welcome allocation in one transaction, so a half created account can
// never be observed
func (s *AccountService) CreateAccount(ctx context.Context, username string, password string, segment string) (models.Account, error) {
	var account models.Account

	if password == "" {
		return account, errors.New("password must not be empty")
	}

	switch segment {
	case "":
		segment = models.SegmentIndividual
	case models.SegmentIndividual, models.SegmentAgency:
	default:
		return account, apperrors.ErrUnknownSegment
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return account, fmt.Errorf("can't use this as password. Err: %w", err)
	}

	err = s.storage.InTx(ctx, func(st repository.Storage) error {
		var err error
		account, err = st.Account().CreateAccount(ctx, username, hash, segment)
		if err != nil {
			return err
		}

		if err := st.Ledger().CreateBalance(ctx, account.ID); err != nil {
			return err
		}

		if s.welcomeCredits > 0 {
			_, _, err = st.Ledger().Append(ctx, models.Transaction{
				ID:          uuid.New(),
				AccountID:   account.ID,
				Kind:        models.KindAllocation,
				Amount:      s.welcomeCredits,
				Description: "welcome credits",
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return account, fmt.Errorf("can't create account. Err: %w", err)
	}

	return account, nil
}

// Login returns the account when username and password match
// Both a missing account and a wrong password come back as
// apperrors.ErrAccountNotFound, callers can't probe for usernames
func (s *AccountService) Login(ctx context.Context, username string, password string) (models.Account, error) {
	account, err := s.storage.Account().GetAccountByUsername(ctx, username)
	if err != nil {
		return account, apperrors.ErrAccountNotFound
	}

	if err := s.hasher.Compare(account.HashedPassword, password); err != nil {
		return models.Account{}, apperrors.ErrAccountNotFound
	}

	return account, nil
}

func (s *AccountService) GetAccountByID(ctx context.Context, accountID uuid.UUID) (models.Account, error) {
	return s.storage.Account().GetAccountByID(ctx, accountID)
}
