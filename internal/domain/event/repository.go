package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

// Repository provides append and read access to the event log.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Insert appends an event row. Events are immutable; there is no update path.
func (r *Repository) Insert(ctx context.Context, e *Event) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx2, `
		INSERT INTO events (id, user_id, event_type, entity_type, entity_id, context, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.UserID, e.EventType, e.EntityType, e.EntityID, e.Context, e.Source)
	if err != nil {
		return fmt.Errorf("%w: insert event", ErrInternal)
	}

	return nil
}

// ListByUser returns a user's recent events, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Event, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	events := make([]Event, 0)
	err := r.db.SelectContext(ctx2, &events, `
		SELECT id, user_id, event_type, entity_type, entity_id, context, source, created_at
		FROM events
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list events", ErrInternal)
	}

	return events, nil
}
