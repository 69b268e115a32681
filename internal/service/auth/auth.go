package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/reputalia/creditos/internal/models"
	"github.com/reputalia/creditos/internal/service/auth/tokenmanager"
)

const (
	defaultAccessHeaderName  = "Authorization"
	defaultAccessAuthScheme  = "Bearer"
	defaultRefreshCookieName = "refresh-token"
)

// Accounts collaborator the auth service needs
// Registration and credential checks live in the account service
type accountService interface {
	CreateAccount(ctx context.Context, username string, password string, segment string) (models.Account, error)

	// Has to return apperrors.ErrAccountNotFound for wrong credentials
	Login(ctx context.Context, username string, password string) (models.Account, error)

	GetAccountByID(ctx context.Context, accountID uuid.UUID) (models.Account, error)
}

type Config struct {
	// Header and scheme the access token travels in
	// If not set the defaults are used
	AccessHeaderName string
	AccessAuthScheme string

	// Cookie the refresh token travels in
	RefreshCookieName string
}

type AuthService struct {
	token    *tokenmanager.TokenManager
	accounts accountService

	accessHeaderName  string
	accessAuthScheme  string
	refreshCookieName string
}

func NewService(cfg Config, token *tokenmanager.TokenManager, accounts accountService) (*AuthService, error) {
	setDefault := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	setDefault(&cfg.AccessHeaderName, defaultAccessHeaderName)
	setDefault(&cfg.AccessAuthScheme, defaultAccessAuthScheme)
	setDefault(&cfg.RefreshCookieName, defaultRefreshCookieName)

	return &AuthService{
		token:             token,
		accounts:          accounts,
		accessHeaderName:  cfg.AccessHeaderName,
		accessAuthScheme:  cfg.AccessAuthScheme,
		refreshCookieName: cfg.RefreshCookieName,
	}, nil
}

// Register account and issue its first token pair
// Has to return apperrors.ErrAccountAlreadyExists if username is taken
func (s *AuthService) Register(ctx context.Context, username string, password string, segment string) (models.TokenPair, error) {
	account, err := s.accounts.CreateAccount(ctx, username, password, segment)
	if err != nil {
		return models.TokenPair{}, err
	}

	pair, err := s.token.GeneratePair(ctx, account)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not be generated, sorry. %w", err)
	}

	return pair, nil
}

func (s *AuthService) Login(ctx context.Context, username string, password string) (models.TokenPair, error) {
	account, err := s.accounts.Login(ctx, username, password)
	if err != nil {
		return models.TokenPair{}, err
	}

	pair, err := s.token.GeneratePair(ctx, account)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not be generated, sorry. %w", err)
	}

	return pair, nil
}

// RefreshPair rotates the pair using a refresh token
// If token expired: has to return apperrors.ErrRefreshTokenExpired
// If token used already: has to return apperrors.ErrRefreshTokenIsUsed
// If token not found: has to return apperrors.ErrRefreshTokenNotFound
func (s *AuthService) RefreshPair(ctx context.Context, refresh string) (models.TokenPair, error) {
	token, err := s.token.UseRefreshToken(ctx, refresh)
	if err != nil {
		return models.TokenPair{}, err
	}

	account, err := s.accounts.GetAccountByID(ctx, token.AccountID)
	if err != nil {
		return models.TokenPair{}, err
	}

	pair, err := s.token.GeneratePair(ctx, account)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not be generated, sorry. %w", err)
	}

	return pair, nil
}

// Auth returns the account the request is authenticated as
func (s *AuthService) Auth(ctx context.Context, r *http.Request) (models.Account, error) {
	header := r.Header.Get(s.accessHeaderName)
	if header == "" {
		return models.Account{}, errors.New("no access token in request")
	}

	access, ok := strings.CutPrefix(header, s.accessAuthScheme+" ")
	if !ok {
		return models.Account{}, fmt.Errorf("access token scheme is not '%s'", s.accessAuthScheme)
	}

	accountID, err := s.token.ParseAccess(ctx, access)
	if err != nil {
		return models.Account{}, err
	}

	return s.accounts.GetAccountByID(ctx, accountID)
}

// Set tokens to response: access in the auth header, refresh in a cookie
func (s *AuthService) SetTokensToResponse(w http.ResponseWriter, pair models.TokenPair) {
	w.Header().Set(s.accessHeaderName, s.accessAuthScheme+" "+pair.Access.Value)

	http.SetCookie(w, &http.Cookie{
		Name:     s.refreshCookieName,
		Value:    pair.Refresh.Value,
		Path:     "/",
		Expires:  pair.Refresh.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// Set tokens to request the same way SetTokensToResponse does
// Meant for clients and tests
func (s *AuthService) SetTokensToRequest(r *http.Request, pair models.TokenPair) {
	r.Header.Set(s.accessHeaderName, s.accessAuthScheme+" "+pair.Access.Value)
	r.AddCookie(&http.Cookie{
		Name:  s.refreshCookieName,
		Value: pair.Refresh.Value,
	})
}

// Get refresh token string from the request cookie
func (s *AuthService) GetRefresh(r *http.Request) (string, error) {
	cookie, err := r.Cookie(s.refreshCookieName)
	if err != nil {
		return "", fmt.Errorf("no refresh token in request. Err: %w", err)
	}
	return cookie.Value, nil
}
