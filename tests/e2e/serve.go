package e2e

import (
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stretchr/testify/require"

	"github.com/reputalia/creditos/internal/handlers"
	"github.com/reputalia/creditos/internal/logger"
	"github.com/reputalia/creditos/internal/repository"
	"github.com/reputalia/creditos/internal/repository/postgres"
	"github.com/reputalia/creditos/internal/service/account"
	"github.com/reputalia/creditos/internal/service/auth"
	"github.com/reputalia/creditos/internal/service/auth/tokenmanager"
	"github.com/reputalia/creditos/internal/service/ledger"
	"github.com/reputalia/creditos/internal/service/plans"
	"github.com/reputalia/creditos/internal/testutil"
)

type Services struct {
	AuthService    *auth.AuthService
	AccountService *account.AccountService
	LedgerService  *ledger.LedgerService
	Storage        repository.Storage
}

func newServer(t *testing.T, storage repository.Storage) (string, Services) {
	t.Helper()

	tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: "test-secret"}, storage.Refresh())
	require.NoError(t, err, "token manager should be created without errors")

	catalog := plans.NewCatalog()
	accountService := account.NewService(account.Config{WelcomeCredits: 500}, nil, storage)
	ledgerService := ledger.NewService(ledger.Config{}, storage, catalog, nil, nil)

	authService, err := auth.NewService(auth.Config{}, tokenManager, accountService)
	require.NoError(t, err, "auth service starting error")

	router := handlers.NewRouter(authService, ledgerService, catalog, logger.NewNoOpLogger())

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv.URL, Services{
		AuthService:    authService,
		AccountService: accountService,
		LedgerService:  ledgerService,
		Storage:        storage,
	}
}

// Create db transaction and run server with that connection (one connection cause one transaction)
// The created transaction passed to inner function: so, you can safely use testutil.InTx with it
func ServeInTx(dbpool *pgxpool.Pool, t *testing.T, fn func(tx pgx.Tx, srvURL string, services Services)) {
	testutil.InTx(dbpool, t, func(tx pgx.Tx) {
		srvURL, services := newServer(t, postgres.NewStorage(tx))
		fn(tx, srvURL, services)
	})
}

// Run server over the whole pool, commits included
// Needed for tests that exercise concurrent requests: a single transaction
// serves one connection only
func Serve(dbpool *pgxpool.Pool, t *testing.T, fn func(srvURL string, services Services)) {
	srvURL, services := newServer(t, postgres.NewStorage(dbpool))
	fn(srvURL, services)
}
