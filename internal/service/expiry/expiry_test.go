package expiry

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/reputalia/creditos/internal/models"
	"github.com/reputalia/creditos/internal/repository"
	"github.com/reputalia/creditos/internal/repository/postgres"
	"github.com/reputalia/creditos/internal/service/ledger"
	"github.com/reputalia/creditos/internal/service/plans"
	"github.com/reputalia/creditos/internal/testutil"
)

func Test_Sweeper(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(cfg Config, t *testing.T, fn func(s *Sweeper, ls *ledger.LedgerService, storage repository.Storage)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			ls := ledger.NewService(ledger.Config{}, storage, plans.NewCatalog(), nil, nil)
			s, err := New(cfg, storage, ls, nil)
			require.NoError(t, err)
			fn(s, ls, storage)
		})
	}

	createAccount := func(t *testing.T, storage repository.Storage, username string) models.Account {
		t.Helper()

		account, err := storage.Account().CreateAccount(t.Context(), username, "hash", models.SegmentIndividual)
		require.NoError(t, err)
		err = storage.Ledger().CreateBalance(t.Context(), account.ID)
		require.NoError(t, err)

		return account
	}

	grantAt := func(t *testing.T, storage repository.Storage, accountID uuid.UUID, amount int64, at time.Time) {
		t.Helper()

		_, _, err := storage.Ledger().Append(t.Context(), models.Transaction{
			ID:         uuid.New(),
			AccountID:  accountID,
			RecordedAt: at,
			Kind:       models.KindAllocation,
			Amount:     amount,
		})
		require.NoError(t, err)
	}

	t.Run("bad schedule fail", func(t *testing.T) {
		_, err := New(Config{Schedule: "not-a-cron-spec"}, nil, nil, nil)

		require.Error(t, err)
	})

	t.Run("sweeps stale credits only", func(t *testing.T) {
		inTx(Config{MaxAge: 24 * time.Hour}, t, func(s *Sweeper, ls *ledger.LedgerService, storage repository.Storage) {
			stale := createAccount(t, storage, "stale-account")
			fresh := createAccount(t, storage, "fresh-account")

			grantAt(t, storage, stale.ID, 1000, time.Now().Add(-48*time.Hour))
			grantAt(t, storage, fresh.ID, 1000, time.Now())

			swept, err := s.Sweep(t.Context())

			require.NoError(t, err)
			require.Equal(t, 1, swept)

			staleBalance, _, err := ls.Balance(t.Context(), stale.ID)
			require.NoError(t, err)
			require.Zero(t, staleBalance.Current)

			freshBalance, _, err := ls.Balance(t.Context(), fresh.ID)
			require.NoError(t, err)
			require.EqualValues(t, 1000, freshBalance.Current)

			// The sweep leaves an expiration entry in the log
			history, err := ls.History(t.Context(), stale.ID, models.KindExpiration)
			require.NoError(t, err)
			require.Len(t, history, 1)
			require.EqualValues(t, 1000, history[0].Amount)
		})
	})

	t.Run("partially consumed grant expires what is left", func(t *testing.T) {
		inTx(Config{MaxAge: 24 * time.Hour}, t, func(s *Sweeper, ls *ledger.LedgerService, storage repository.Storage) {
			account := createAccount(t, storage, "stale-account")
			grantAt(t, storage, account.ID, 1000, time.Now().Add(-48*time.Hour))

			_, err := ls.Consume(t.Context(), account.ID, 300, "scan", "")
			require.NoError(t, err)

			swept, err := s.Sweep(t.Context())

			require.NoError(t, err)
			require.Equal(t, 1, swept)

			balance, _, err := ls.Balance(t.Context(), account.ID)
			require.NoError(t, err)
			require.Zero(t, balance.Current)
			require.EqualValues(t, 1000, balance.Granted, "expiration must not touch granted")
		})
	})

	t.Run("nothing to sweep", func(t *testing.T) {
		inTx(Config{}, t, func(s *Sweeper, _ *ledger.LedgerService, storage repository.Storage) {
			account := createAccount(t, storage, "fresh-account")
			grantAt(t, storage, account.ID, 500, time.Now())

			swept, err := s.Sweep(t.Context())

			require.NoError(t, err)
			require.Zero(t, swept)
		})
	})
}
