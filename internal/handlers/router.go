package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/reputalia/creditos/internal/handlers/middleware"
	"github.com/reputalia/creditos/internal/logger"
	"github.com/reputalia/creditos/internal/models"
	"github.com/reputalia/creditos/internal/service/ledger"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	creditsService creditsService,
	catalog plansCatalog,
	l logger.Logger,
) http.Handler {
	withAuth := middleware.NewAuth(authService).Auth

	apiaccount := http.NewServeMux()
	apiaccount.Handle("/", NewAuth(authService, l).Handler())
	apiaccount.Handle("GET /me", withAuth(handleAccountMe()))

	root := http.NewServeMux()
	root.Handle("/api/account/", http.StripPrefix("/api/account", apiaccount))
	root.Handle("/api/credits/", http.StripPrefix("/api/credits", withAuth(NewCredits(creditsService, l).Handler())))
	root.Handle("/api/plans", NewPlans(catalog).Handler())

	return chain(root,
		middleware.LoggerMiddleware(l),
	)
}

type authService interface {
	// Register account with username, password and optional segment
	// Has to return apperrors.ErrAccountAlreadyExists if username is taken
	Register(ctx context.Context, username string, password string, segment string) (models.TokenPair, error)

	// Login account with username and password
	// Has to return apperrors.ErrAccountNotFound for wrong credentials
	Login(ctx context.Context, username string, password string) (models.TokenPair, error)

	// Rotate tokens using the refresh token
	// If token expired: has to return apperrors.ErrRefreshTokenExpired
	// If token not found: has to return apperrors.ErrRefreshTokenNotFound
	RefreshPair(ctx context.Context, refresh string) (models.TokenPair, error)

	// Set auth tokens (access, refresh) to response
	SetTokensToResponse(w http.ResponseWriter, pair models.TokenPair)

	// Get refresh token from request
	GetRefresh(r *http.Request) (string, error)

	// Return the account the request is authenticated as
	Auth(ctx context.Context, r *http.Request) (models.Account, error)
}

type creditsService interface {
	Consume(ctx context.Context, accountID uuid.UUID, amount int64, description string, channel string) (ledger.Receipt, error)
	Purchase(ctx context.Context, accountID uuid.UUID, planID string) (ledger.Receipt, error)
	Balance(ctx context.Context, accountID uuid.UUID) (models.Balance, models.AlertLevel, error)
	History(ctx context.Context, accountID uuid.UUID, kind string) ([]models.Transaction, error)
}

type plansCatalog interface {
	List(segment string) ([]models.Plan, error)
}
