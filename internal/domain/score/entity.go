package score

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is a materialized, recomputable sum of ledger activity over a
// closed period. [PeriodStart, PeriodEnd) in the business timezone.
type Snapshot struct {
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	PeriodType  string    `db:"period_type" json:"period_type"` // weekly | monthly
	PeriodStart time.Time `db:"period_start" json:"period_start"`
	PeriodEnd   time.Time `db:"period_end" json:"period_end"`
	Score       int       `db:"score" json:"score"`
	ComputedAt  time.Time `db:"computed_at" json:"computed_at"`
}

// CloseReport summarizes one period-close run. Individual user failures are
// logged and counted, never abort the batch.
type CloseReport struct {
	PeriodType  string    `json:"period_type"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Processed   int       `json:"processed"`
	Failures    int       `json:"failures"`
}

// PeriodScore is one period's live sum in the user score payload.
type PeriodScore struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Score int       `json:"score"`
}

// UserScore is the GET /users/{id}/score payload.
type UserScore struct {
	UserID           uuid.UUID   `json:"user_id"`
	TotalBalance     int         `json:"total_balance"`
	League           League      `json:"league"`
	CurrentWeek      PeriodScore `json:"current_week"`
	CurrentMonth     PeriodScore `json:"current_month"`
	WeeklySnapshots  []Snapshot  `json:"weekly_snapshots"`
	MonthlySnapshots []Snapshot  `json:"monthly_snapshots"`
}
