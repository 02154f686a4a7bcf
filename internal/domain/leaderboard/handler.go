package leaderboard

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fitcircle/scoring-api/internal/pkg/errorhandler"
	"github.com/fitcircle/scoring-api/internal/pkg/period"
	"github.com/fitcircle/scoring-api/internal/pkg/response"
)

// Handler handles leaderboard HTTP requests.
type Handler struct {
	service *Service
	periods *period.Calculator
}

func NewHandler(service *Service, periods *period.Calculator) *Handler {
	return &Handler{service: service, periods: periods}
}

// Routes returns the leaderboard router.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/weekly", h.Weekly)
	r.Get("/monthly", h.Monthly)
	r.Get("/live", h.Live)
	r.Get("/circles", h.Circles)

	return r
}

// Weekly handles GET /leaderboard/weekly?week_start=YYYY-MM-DD
func (h *Handler) Weekly(w http.ResponseWriter, r *http.Request) {
	var weekStart time.Time
	if raw := r.URL.Query().Get("week_start"); raw != "" {
		parsed, err := h.periods.ParseWeekStart(raw)
		if err != nil {
			response.BadRequest(w, "week_start must be a Monday in YYYY-MM-DD format")
			return
		}
		weekStart = parsed
	}

	limit, offset := pagination(r)
	b, err := h.service.Weekly(r.Context(), weekStart, limit, offset)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "LEADERBOARD_FAILED", "Failed to load leaderboard", err)
		return
	}

	response.OK(w, b)
}

// Monthly handles GET /leaderboard/monthly?month_start=YYYY-MM-DD
func (h *Handler) Monthly(w http.ResponseWriter, r *http.Request) {
	var monthStart time.Time
	if raw := r.URL.Query().Get("month_start"); raw != "" {
		parsed, err := h.periods.ParseMonthStart(raw)
		if err != nil {
			response.BadRequest(w, "month_start must be the first of a month in YYYY-MM-DD format")
			return
		}
		monthStart = parsed
	}

	limit, offset := pagination(r)
	b, err := h.service.Monthly(r.Context(), monthStart, limit, offset)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "LEADERBOARD_FAILED", "Failed to load leaderboard", err)
		return
	}

	response.OK(w, b)
}

// Live handles GET /leaderboard/live?period=weekly|monthly
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	pt := period.Type(r.URL.Query().Get("period"))
	if pt == "" {
		pt = period.TypeWeekly
	}

	limit, _ := pagination(r)
	b, err := h.service.Live(r.Context(), pt, limit)
	if err != nil {
		if errors.Is(err, ErrInvalidPeriod) {
			response.BadRequest(w, "period must be weekly or monthly")
			return
		}
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "LEADERBOARD_FAILED", "Failed to load live leaderboard", err)
		return
	}

	response.OK(w, b)
}

// Circles handles GET /leaderboard/circles
func (h *Handler) Circles(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	b, err := h.service.Circles(r.Context(), limit, offset)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "LEADERBOARD_FAILED", "Failed to load circle leaderboard", err)
		return
	}

	response.OK(w, b)
}

func pagination(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
