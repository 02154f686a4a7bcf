package circle

import (
	"time"

	"github.com/google/uuid"
)

// Circle is a scoring group. TotalScore is a cached counter kept in step with
// member credits; the authoritative value is the sum of member ledgers.
type Circle struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	TotalScore int       `db:"total_score" json:"total_score"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Member links a user to a circle. Membership writes are owned by the external
// CRUD layer; this service only reads it.
type Member struct {
	CircleID uuid.UUID `db:"circle_id" json:"circle_id"`
	UserID   uuid.UUID `db:"user_id" json:"user_id"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}
