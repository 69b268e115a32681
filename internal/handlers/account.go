package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/reputalia/creditos/internal/handlers/accountctx"
	"github.com/reputalia/creditos/internal/handlers/render"
)

func handleAccountMe() http.Handler {
	type response struct {
		ID       uuid.UUID `json:"id"`
		Username string    `json:"username"`
		Segment  string    `json:"segment"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, _ := accountctx.FromContext(r.Context())
		render.JSON(w, response{ID: account.ID, Username: account.Username, Segment: account.Segment})
	})
}
