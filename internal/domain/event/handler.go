package event

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fitcircle/scoring-api/internal/middleware"
	"github.com/fitcircle/scoring-api/internal/pkg/errorhandler"
	"github.com/fitcircle/scoring-api/internal/pkg/response"
	"github.com/fitcircle/scoring-api/internal/pkg/validator"
)

// Handler handles event HTTP requests.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the event router.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/dispatch", h.Dispatch)
	r.Get("/", h.ListRecent)

	return r
}

// Dispatch handles POST /events/dispatch
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if fieldErrors := validator.Validate(req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	result, err := h.service.Dispatch(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownEventType):
			response.ErrorWithDetails(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed",
				map[string]string{"event_type": "Unknown event type"})
		case errors.Is(err, ErrMissingEntity):
			response.ErrorWithDetails(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed",
				map[string]string{"entity_id": "This field is required for this event type"})
		default:
			errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "EVENT_DISPATCH_FAILED", "Failed to dispatch event", err)
		}
		return
	}

	response.OK(w, result)
}

// ListRecent handles GET /events
func (h *Handler) ListRecent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	events, err := h.service.ListRecent(r.Context(), userID, limit, offset)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "EVENT_LIST_FAILED", "Failed to load events", err)
		return
	}

	response.OK(w, map[string]interface{}{
		"events": events,
		"limit":  limit,
		"offset": offset,
	})
}
