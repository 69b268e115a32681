package handlers

import (
	"errors"
	"net/http"

	"github.com/reputalia/creditos/internal/apperrors"
	"github.com/reputalia/creditos/internal/handlers/render"
	"github.com/reputalia/creditos/internal/logger"
)

type AuthHandler struct {
	auth   authService
	logger logger.Logger
}

func NewAuth(auth authService, l logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: l}
}

func (h *AuthHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", h.register)
	mux.HandleFunc("POST /login", h.login)
	mux.HandleFunc("POST /refresh", h.refresh)

	return mux
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	type RegisterRequest struct {
		Login    string `json:"login" validate:"required,min=2,max=50"`
		Password string `json:"password" validate:"required,min=8"`
		Segment  string `json:"segment" validate:"omitempty,segment"`
	}
	type RegisterSuccessResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[RegisterRequest](w, r)
	if err != nil {
		return
	}

	pair, err := h.auth.Register(r.Context(), data.Login, data.Password, data.Segment)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrAccountAlreadyExists):
			render.ServiceError(w, "Account already exists", http.StatusConflict)
		case errors.Is(err, apperrors.ErrUnknownSegment):
			render.ServiceError(w, "Unknown segment", http.StatusUnprocessableEntity)
		default:
			h.logger.Error("Failed to register account", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.auth.SetTokensToResponse(w, pair)
	render.JSON(w, RegisterSuccessResponse{Message: "Account registered successfully"})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	type LoginRequest struct {
		Login    string `json:"login" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	type LoginSuccessResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[LoginRequest](w, r)
	if err != nil {
		return
	}

	pair, err := h.auth.Login(r.Context(), data.Login, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrAccountNotFound):
			render.ServiceError(w, "Account not found", http.StatusUnauthorized)
		default:
			h.logger.Error("Failed to login account", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.auth.SetTokensToResponse(w, pair)
	render.JSON(w, LoginSuccessResponse{Message: "Account logged in successfully"})
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	type RefreshSuccessResponse struct {
		Message string `json:"message"`
	}

	refresh, err := h.auth.GetRefresh(r)
	if err != nil {
		render.ServiceError(w, "Refresh token not found", http.StatusUnauthorized)
		return
	}

	pair, err := h.auth.RefreshPair(r.Context(), refresh)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrRefreshTokenExpired):
			render.ServiceError(w, "Refresh token expired", http.StatusUnauthorized)
		default:
			render.ServiceError(w, "Refresh token not found", http.StatusUnauthorized)
		}
		return
	}

	h.auth.SetTokensToResponse(w, pair)
	render.JSON(w, RefreshSuccessResponse{Message: "Tokens refreshed successfully"})
}
