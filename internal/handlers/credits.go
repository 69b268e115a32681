package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/reputalia/creditos/internal/apperrors"
	"github.com/reputalia/creditos/internal/handlers/accountctx"
	"github.com/reputalia/creditos/internal/handlers/render"
	"github.com/reputalia/creditos/internal/logger"
	"github.com/reputalia/creditos/internal/models"
)

type CreditsHandler struct {
	credits creditsService
	logger  logger.Logger
}

func NewCredits(credits creditsService, l logger.Logger) *CreditsHandler {
	return &CreditsHandler{credits: credits, logger: l}
}

func (h *CreditsHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /balance", h.balance)
	mux.HandleFunc("POST /consume", h.consume)
	mux.HandleFunc("POST /purchase", h.purchase)
	mux.HandleFunc("GET /transactions", h.transactions)

	return mux
}

// Balance and alert classification the mutating operations answer with
type balanceResponse struct {
	Current int64  `json:"current"`
	Granted int64  `json:"granted"`
	Spent   int64  `json:"spent"`
	Alert   string `json:"alert"`
}

func newBalanceResponse(balance models.Balance, alert models.AlertLevel) balanceResponse {
	return balanceResponse{
		Current: balance.Current,
		Granted: balance.Granted,
		Spent:   balance.Spent,
		Alert:   string(alert),
	}
}

func (h *CreditsHandler) balance(w http.ResponseWriter, r *http.Request) {
	account, ok := accountctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	balance, alert, err := h.credits.Balance(r.Context(), account.ID)
	if err != nil {
		h.logger.Error("Failed to get balance", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, newBalanceResponse(balance, alert))
}

func (h *CreditsHandler) consume(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Amount      int64  `json:"amount" validate:"required,gt=0"`
		Description string `json:"description" validate:"required,max=200"`
		Channel     string `json:"channel" validate:"omitempty,max=50"`
	}
	type response struct {
		TransactionID uuid.UUID `json:"transaction_id"`
		balanceResponse
	}

	account, ok := accountctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	data, err := render.BindAndValidate[request](w, r)
	if err != nil {
		return
	}

	receipt, err := h.credits.Consume(r.Context(), account.ID, data.Amount, data.Description, data.Channel)
	switch {
	case err == nil:
		render.JSON(w, response{receipt.Transaction.ID, newBalanceResponse(receipt.Balance, receipt.Alert)})
	case errors.Is(err, apperrors.ErrInsufficientBalance):
		render.ServiceError(w, "Insufficient balance", http.StatusPaymentRequired)
	default:
		h.logger.Error("Failed to consume credits", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *CreditsHandler) purchase(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Plan string `json:"plan" validate:"required"`
	}
	type response struct {
		TransactionID uuid.UUID `json:"transaction_id"`
		Plan          string    `json:"plan"`
		balanceResponse
	}

	account, ok := accountctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	data, err := render.BindAndValidate[request](w, r)
	if err != nil {
		return
	}

	receipt, err := h.credits.Purchase(r.Context(), account.ID, data.Plan)
	switch {
	case err == nil:
		render.JSON(w, response{receipt.Transaction.ID, data.Plan, newBalanceResponse(receipt.Balance, receipt.Alert)})
	case errors.Is(err, apperrors.ErrUnknownPlan):
		render.ServiceError(w, "Unknown plan", http.StatusUnprocessableEntity)
	default:
		h.logger.Error("Failed to purchase plan", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *CreditsHandler) transactions(w http.ResponseWriter, r *http.Request) {
	type transaction struct {
		ID          uuid.UUID `json:"id"`
		Kind        string    `json:"kind"`
		Amount      int64     `json:"amount"`
		Description string    `json:"description,omitempty"`
		Channel     *string   `json:"channel,omitempty"`
		Plan        *string   `json:"plan,omitempty"`
		RecordedAt  time.Time `json:"recorded_at"`
	}

	account, ok := accountctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	history, err := h.credits.History(r.Context(), account.ID, r.URL.Query().Get("kind"))
	switch {
	case err == nil:
		transactions := make([]transaction, 0, len(history))
		for _, t := range history {
			transactions = append(transactions, transaction{
				ID:          t.ID,
				Kind:        t.Kind,
				Amount:      t.Amount,
				Description: t.Description,
				Channel:     t.Channel,
				Plan:        t.PlanID,
				RecordedAt:  t.RecordedAt,
			})
		}
		render.JSON(w, transactions)
	case errors.Is(err, apperrors.ErrInvalidKind):
		render.ServiceError(w, "Unknown transaction kind", http.StatusUnprocessableEntity)
	default:
		h.logger.Error("Failed to list transactions", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}
