package task

import "time"

// View is one task entry in the /tasks/me payload.
type View struct {
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Type        string     `json:"type"`
	Progress    int        `json:"progress"`
	Target      int        `json:"target"`
	Percent     int        `json:"percent"`
	Status      string     `json:"status"`
	RewardScore int        `json:"reward_score"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CircleView extends View with the circle's top contributors.
type CircleView struct {
	View
	CircleID        string            `json:"circle_id"`
	TopContributors []ContributorView `json:"top_contributors"`
}

// ContributorView is one member's share of a circle task.
type ContributorView struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	Value       int    `json:"value"`
}

// Summary aggregates the /tasks/me payload.
type Summary struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	PointsEarnable int `json:"points_earnable"`
	BadgeProgress  int `json:"badge_progress"`
}

// Overview is the full /tasks/me response.
type Overview struct {
	Daily   []View       `json:"daily"`
	Weekly  []View       `json:"weekly"`
	Monthly []View       `json:"monthly"`
	Circle  []CircleView `json:"circle"`
	Summary Summary      `json:"summary"`
}
