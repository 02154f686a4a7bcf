package circle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 5 * time.Second

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// GetByID returns one circle.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Circle, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var c Circle
	err := r.db.GetContext(ctx2, &c, `
		SELECT id, name, total_score, created_at, updated_at
		FROM circles WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCircleNotFound
		}
		return nil, fmt.Errorf("%w: get circle", ErrInternal)
	}

	return &c, nil
}

// ListMemberIDs returns the circle's member user ids.
func (r *Repository) ListMemberIDs(ctx context.Context, circleID uuid.UUID) ([]uuid.UUID, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ids := make([]uuid.UUID, 0)
	err := r.db.SelectContext(ctx2, &ids, `
		SELECT user_id FROM circle_members WHERE circle_id = $1 ORDER BY joined_at
	`, circleID)
	if err != nil {
		return nil, fmt.Errorf("%w: list members", ErrInternal)
	}

	return ids, nil
}

// RecomputeTotal derives the circle total from its members' ledgers and
// repairs the cached counter. Returns the derived total.
func (r *Repository) RecomputeTotal(ctx context.Context, circleID uuid.UUID) (int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var total int
	err := r.db.GetContext(ctx2, &total, `
		SELECT COALESCE(SUM(l.points_delta), 0)
		FROM points_ledger l
		JOIN circle_members m ON m.user_id = l.user_id
		WHERE m.circle_id = $1
	`, circleID)
	if err != nil {
		return 0, fmt.Errorf("%w: sum member ledgers", ErrInternal)
	}

	res, err := r.db.ExecContext(ctx2, `
		UPDATE circles SET total_score = $2, updated_at = now() WHERE id = $1
	`, circleID, total)
	if err != nil {
		return 0, fmt.Errorf("%w: repair circle total", ErrInternal)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrCircleNotFound
	}

	return total, nil
}
