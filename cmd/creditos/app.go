package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/reputalia/creditos/internal/cache"
	"github.com/reputalia/creditos/internal/db"
	"github.com/reputalia/creditos/internal/handlers"
	"github.com/reputalia/creditos/internal/logger"
	"github.com/reputalia/creditos/internal/repository/postgres"
	"github.com/reputalia/creditos/internal/service/account"
	"github.com/reputalia/creditos/internal/service/auth"
	"github.com/reputalia/creditos/internal/service/auth/tokenmanager"
	"github.com/reputalia/creditos/internal/service/expiry"
	"github.com/reputalia/creditos/internal/service/ledger"
	"github.com/reputalia/creditos/internal/service/plans"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	sweeper *expiry.Sweeper
	logger  logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	l, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Redis balance cache is optional, the service reads the database without it
	var balanceCache ledger.BalanceCache
	if c.RedisDSN != "" {
		rdb, err := cache.Connect(ctx, c.RedisDSN)
		if err != nil {
			return nil, fmt.Errorf("error while connecting to redis. Err: %w", err)
		}
		balanceCache = cache.NewBalanceCache(rdb, 0)
	}

	// Initialize services
	catalog := plans.NewCatalog()
	ledgerService := ledger.NewService(
		ledger.Config{ThresholdPercent: c.AlertThresholdPercent},
		storage, catalog, balanceCache, l,
	)
	accountService := account.NewService(account.Config{WelcomeCredits: c.WelcomeCredits}, nil, storage)

	tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: c.SecretKey}, storage.Refresh())
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}
	authService, err := auth.NewService(auth.Config{}, tokenManager, accountService)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	sweeper, err := expiry.New(
		expiry.Config{
			Schedule: c.ExpirySchedule,
			MaxAge:   time.Duration(c.CreditsTTLDays) * 24 * time.Hour,
		},
		storage, ledgerService, l,
	)
	if err != nil {
		return nil, fmt.Errorf("error while creating expiry sweeper. Err: %w", err)
	}

	mux := handlers.NewRouter(authService, ledgerService, catalog, l)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		sweeper:    sweeper,
		logger:     l,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	s.sweeper.Start()
	defer s.sweeper.Stop()

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
