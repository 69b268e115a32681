package middleware

import (
	"context"
	"net/http"

	"github.com/reputalia/creditos/internal/handlers/accountctx"
	"github.com/reputalia/creditos/internal/handlers/render"
	"github.com/reputalia/creditos/internal/models"
)

type authService interface {
	Auth(ctx context.Context, r *http.Request) (models.Account, error)
}

type AuthMiddleware struct {
	auth authService
}

func NewAuth(as authService) *AuthMiddleware {
	return &AuthMiddleware{auth: as}
}

// Auth authenticates the request and puts the account into the context
// Unauthenticated requests are rejected, wrapped handlers can rely on the
// account being there
func (m *AuthMiddleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, err := m.auth.Auth(r.Context(), r)
		if err != nil {
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := accountctx.New(r.Context(), account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
