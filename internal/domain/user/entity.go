package user

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleMember = "member"
	RoleCoach  = "coach"
	RoleAdmin  = "admin"
)

// User mirrors the profile rows owned by the external identity service. The
// scoring engine reads id, display name and role, never writes this table.
type User struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Role        string    `db:"role" json:"role"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
