package leaderboard

import (
	"time"

	"github.com/google/uuid"
)

// Row is one ranked user. Ties on score break toward the smaller user id so
// repeated reads of the same period return a stable order.
type Row struct {
	Rank        int       `db:"-" json:"rank"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Score       int       `db:"score" json:"score"`
}

// CircleRow is one ranked circle.
type CircleRow struct {
	Rank        int       `db:"-" json:"rank"`
	CircleID    uuid.UUID `db:"circle_id" json:"circle_id"`
	Name        string    `db:"name" json:"name"`
	TotalScore  int       `db:"total_score" json:"total_score"`
	MemberCount int       `db:"member_count" json:"member_count"`
}

// Board is a leaderboard response payload.
type Board struct {
	PeriodType  string    `json:"period_type"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Rows        []Row     `json:"rows"`
}

// CircleBoard ranks circles by their running totals.
type CircleBoard struct {
	Rows []CircleRow `json:"rows"`
}
