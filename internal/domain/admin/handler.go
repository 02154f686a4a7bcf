package admin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fitcircle/scoring-api/internal/domain/circle"
	"github.com/fitcircle/scoring-api/internal/domain/ledger"
	"github.com/fitcircle/scoring-api/internal/domain/score"
	"github.com/fitcircle/scoring-api/internal/pkg/errorhandler"
	"github.com/fitcircle/scoring-api/internal/pkg/period"
	"github.com/fitcircle/scoring-api/internal/pkg/response"
	"github.com/fitcircle/scoring-api/internal/pkg/validator"
)

// Handler exposes the repair and close operations. Every endpoint is
// idempotent: re-running a close or a recompute converges on ledger truth.
type Handler struct {
	scores  *score.Service
	ledger  *ledger.Service
	circles *circle.Service
	periods *period.Calculator
}

func NewHandler(scores *score.Service, ledgerSvc *ledger.Service, circles *circle.Service, periods *period.Calculator) *Handler {
	return &Handler{scores: scores, ledger: ledgerSvc, circles: circles, periods: periods}
}

// Routes returns the admin router. Callers must wrap it with auth + admin
// role middleware.
func (h *Handler) Routes(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares...)

	r.Post("/recompute/weekly", h.RecomputeWeekly)
	r.Post("/recompute/monthly", h.RecomputeMonthly)
	r.Post("/recompute/balance/{user_id}", h.RecomputeBalance)
	r.Post("/recompute/circle/{id}", h.RecomputeCircle)

	return r
}

// RecomputeWeekly handles POST /admin/recompute/weekly
func (h *Handler) RecomputeWeekly(w http.ResponseWriter, r *http.Request) {
	var req RecomputeWeeklyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if fieldErrors := validator.Validate(req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	weekStart, err := h.periods.ParseWeekStart(req.WeekStart)
	if err != nil {
		response.ErrorWithDetails(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed",
			map[string]string{"week_start": "Must be a Monday in YYYY-MM-DD format"})
		return
	}

	report, err := h.scores.RunWeeklyClose(r.Context(), weekStart)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "RECOMPUTE_FAILED", "Weekly close failed", err)
		return
	}

	response.OK(w, report)
}

// RecomputeMonthly handles POST /admin/recompute/monthly
func (h *Handler) RecomputeMonthly(w http.ResponseWriter, r *http.Request) {
	var req RecomputeMonthlyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if fieldErrors := validator.Validate(req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	monthStart, err := h.periods.ParseMonthStart(req.MonthStart)
	if err != nil {
		response.ErrorWithDetails(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed",
			map[string]string{"month_start": "Must be the first of a month in YYYY-MM-DD format"})
		return
	}

	report, err := h.scores.RunMonthlyClose(r.Context(), monthStart)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "RECOMPUTE_FAILED", "Monthly close failed", err)
		return
	}

	response.OK(w, report)
}

// RecomputeBalance handles POST /admin/recompute/balance/{user_id}
func (h *Handler) RecomputeBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		response.BadRequest(w, "Invalid user id")
		return
	}

	balance, err := h.ledger.RecomputeBalance(r.Context(), userID)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "RECOMPUTE_FAILED", "Balance recompute failed", err)
		return
	}

	response.OK(w, map[string]interface{}{
		"user_id": userID,
		"balance": balance,
	})
}

// RecomputeCircle handles POST /admin/recompute/circle/{id}
func (h *Handler) RecomputeCircle(w http.ResponseWriter, r *http.Request) {
	circleID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid circle id")
		return
	}

	total, err := h.circles.RecomputeTotal(r.Context(), circleID)
	if err != nil {
		if errors.Is(err, circle.ErrCircleNotFound) {
			response.NotFound(w, "Circle not found")
			return
		}
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "RECOMPUTE_FAILED", "Circle recompute failed", err)
		return
	}

	response.OK(w, map[string]interface{}{
		"circle_id":   circleID,
		"total_score": total,
	})
}
