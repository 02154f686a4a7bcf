package score

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 10 * time.Second

// Repository provides snapshot storage and the ledger aggregate reads the
// close jobs are built on. Snapshots are always recomputed from the ledger,
// never incrementally maintained.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// ListActiveUserIDs pages through users with ledger activity in [from, to),
// keyset-ordered by user id so close jobs hold no long transactions.
func (r *Repository) ListActiveUserIDs(ctx context.Context, from, to time.Time, afterUser uuid.UUID, limit int) ([]uuid.UUID, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 500
	}

	ids := make([]uuid.UUID, 0)
	err := r.db.SelectContext(ctx2, &ids, `
		SELECT DISTINCT user_id
		FROM points_ledger
		WHERE created_at >= $1 AND created_at < $2 AND user_id > $3
		ORDER BY user_id
		LIMIT $4
	`, from, to, afterUser, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list active users", ErrInternal)
	}
	return ids, nil
}

// SumUser sums one user's ledger deltas in [from, to) straight from the
// ledger. The cached balance plays no part here.
func (r *Repository) SumUser(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var sum int
	err := r.db.GetContext(ctx2, &sum, `
		SELECT COALESCE(SUM(points_delta), 0)
		FROM points_ledger
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
	`, userID, from, to)
	if err != nil {
		return 0, fmt.Errorf("%w: sum user", ErrInternal)
	}
	return sum, nil
}

// UpsertSnapshot writes or overwrites a snapshot. Re-running a close for the
// same period lands on the same row.
func (r *Repository) UpsertSnapshot(ctx context.Context, s *Snapshot) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx2, `
		INSERT INTO score_snapshots (user_id, period_type, period_start, period_end, score, computed_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (user_id, period_type, period_start) DO UPDATE
		SET period_end = $4, score = $5, computed_at = now()
	`, s.UserID, s.PeriodType, s.PeriodStart, s.PeriodEnd, s.Score)
	if err != nil {
		return fmt.Errorf("%w: upsert snapshot", ErrInternal)
	}
	return nil
}

// ListSnapshots returns a user's snapshots of one type, most recent first.
func (r *Repository) ListSnapshots(ctx context.Context, userID uuid.UUID, periodType string, limit int) ([]Snapshot, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 12
	}

	snaps := make([]Snapshot, 0)
	err := r.db.SelectContext(ctx2, &snaps, `
		SELECT user_id, period_type, period_start, period_end, score, computed_at
		FROM score_snapshots
		WHERE user_id = $1 AND period_type = $2
		ORDER BY period_start DESC
		LIMIT $3
	`, userID, periodType, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list snapshots", ErrInternal)
	}
	return snaps, nil
}
