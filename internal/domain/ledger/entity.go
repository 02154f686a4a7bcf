package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Well-known credit reasons beyond plain event types.
const (
	ReasonTaskReward       = "task_reward"
	ReasonCircleTaskReward = "circle_task_reward"
	ReasonAdminAdjustment  = "admin_adjustment"
	ReasonPenalty          = "penalty"
)

// Entry is an append-only ledger row. A user's balance is always the sum of
// their entries; the cached counter in user_points exists only for reads.
type Entry struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	PointsDelta int       `db:"points_delta" json:"points_delta"`
	Reason      string    `db:"reason" json:"reason"`
	ReferenceID *string   `db:"reference_id" json:"reference_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Pagination controls simple list pagination.
type Pagination struct {
	Limit  int
	Offset int
}
