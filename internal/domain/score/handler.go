package score

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fitcircle/scoring-api/internal/pkg/errorhandler"
	"github.com/fitcircle/scoring-api/internal/pkg/response"
)

// Handler handles score HTTP requests.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// UserScore handles GET /users/{id}/score
func (h *Handler) UserScore(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user id")
		return
	}

	payload, err := h.service.UserScore(r.Context(), userID)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "SCORE_FETCH_FAILED", "Failed to load user score", err)
		return
	}

	response.OK(w, payload)
}
