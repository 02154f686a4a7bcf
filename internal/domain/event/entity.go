package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

// Valid event sources.
const (
	SourceMobile = "mobile"
	SourceWeb    = "web"
	SourceSystem = "system"
)

// Event is an immutable audit row for a user action. Written for every
// dispatched action before scoring, never updated or deleted.
type Event struct {
	ID         uuid.UUID      `db:"id" json:"id"`
	UserID     uuid.UUID      `db:"user_id" json:"user_id"`
	EventType  string         `db:"event_type" json:"event_type"`
	EntityType string         `db:"entity_type" json:"entity_type,omitempty"`
	EntityID   *string        `db:"entity_id" json:"entity_id,omitempty"`
	Context    types.JSONText `db:"context" json:"context,omitempty"`
	Source     string         `db:"source" json:"source"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// Dispatch statuses. Duplicate and limit_reached are expected outcomes, not
// failures; the audit event row exists either way.
const (
	StatusSuccess      = "success"
	StatusDuplicate    = "duplicate"
	StatusLimitReached = "limit_reached"
)

// Result is the outcome of ingesting one event.
type Result struct {
	Status        string `json:"status"`
	AwardedPoints int    `json:"points_earned"`
	Balance       int    `json:"total_score"`
}
