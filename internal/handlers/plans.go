package handlers

import (
	"errors"
	"net/http"

	"github.com/reputalia/creditos/internal/apperrors"
	"github.com/reputalia/creditos/internal/handlers/render"
	"github.com/reputalia/creditos/internal/models"
)

type PlansHandler struct {
	catalog plansCatalog
}

func NewPlans(catalog plansCatalog) *PlansHandler {
	return &PlansHandler{catalog: catalog}
}

func (h *PlansHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", h.list)

	return mux
}

func (h *PlansHandler) list(w http.ResponseWriter, r *http.Request) {
	type plan struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Segment string `json:"segment"`
		Credits int64  `json:"credits"`
		Price   string `json:"price"`
		Cycle   string `json:"cycle"`
	}

	segment := r.URL.Query().Get("segment")
	if segment == "" {
		segment = models.SegmentIndividual
	}

	catalogPlans, err := h.catalog.List(segment)
	switch {
	case err == nil:
		plans := make([]plan, 0, len(catalogPlans))
		for _, p := range catalogPlans {
			plans = append(plans, plan{
				ID:      p.ID,
				Name:    p.Name,
				Segment: p.Segment,
				Credits: p.Credits,
				Price:   p.Price.StringFixed(2),
				Cycle:   p.Cycle,
			})
		}
		render.JSON(w, plans)
	case errors.Is(err, apperrors.ErrUnknownSegment):
		render.ServiceError(w, "Unknown segment", http.StatusUnprocessableEntity)
	default:
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}
