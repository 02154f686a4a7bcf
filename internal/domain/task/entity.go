package task

import (
	"time"

	"github.com/google/uuid"
)

// Task scopes.
const (
	ScopeUser   = "user"
	ScopeCircle = "circle"
)

// Task statuses. Completion is terminal for a period key.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Definition is an admin-managed task template. Read-heavy, rarely mutated.
type Definition struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Slug          string    `db:"slug" json:"slug"`
	Title         string    `db:"title" json:"title"`
	Description   string    `db:"description" json:"description"`
	Type          string    `db:"type" json:"type"` // daily | weekly | monthly
	Scope         string    `db:"scope" json:"scope"`
	Metric        string    `db:"metric" json:"metric"` // event metric that advances it
	TargetValue   int       `db:"target_value" json:"target_value"`
	RewardScore   int       `db:"reward_score" json:"reward_score"`
	BadgeProgress int       `db:"badge_progress_contribution" json:"badge_progress_contribution"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// UserTask is one user's progress against a definition within one period.
// Identity is (user_id, task_definition_id, period_key); a new period key
// produces a fresh row, nothing carries over.
type UserTask struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	UserID           uuid.UUID  `db:"user_id" json:"user_id"`
	TaskDefinitionID uuid.UUID  `db:"task_definition_id" json:"task_definition_id"`
	PeriodKey        string     `db:"period_key" json:"period_key"`
	CurrentValue     int        `db:"current_value" json:"current_value"`
	TargetValue      int        `db:"target_value" json:"target_value"`
	Status           string     `db:"status" json:"status"`
	CompletedAt      *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// CircleTask tracks aggregate progress of a circle against a definition;
// current_value is the sum of member contributions.
type CircleTask struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	CircleID         uuid.UUID  `db:"circle_id" json:"circle_id"`
	TaskDefinitionID uuid.UUID  `db:"task_definition_id" json:"task_definition_id"`
	PeriodKey        string     `db:"period_key" json:"period_key"`
	CurrentValue     int        `db:"current_value" json:"current_value"`
	TargetValue      int        `db:"target_value" json:"target_value"`
	Status           string     `db:"status" json:"status"`
	CompletedAt      *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Contribution is one member's share of a circle task's progress.
type Contribution struct {
	CircleTaskID uuid.UUID `db:"circle_task_id" json:"circle_task_id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	Value        int       `db:"value" json:"value"`
}
