package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const queryTimeout = 5 * time.Second

// Repository reads ranked slices out of snapshots, the ledger and circle
// totals. Ordering is always (score DESC, id ASC) so equal scores rank
// deterministically.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// TopForPeriod ranks users by their closed snapshot for one period.
func (r *Repository) TopForPeriod(ctx context.Context, periodType string, periodStart time.Time, limit, offset int) ([]Row, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows := make([]Row, 0)
	err := r.db.SelectContext(ctx2, &rows, `
		SELECT s.user_id, u.display_name, s.score
		FROM score_snapshots s
		JOIN users u ON u.id = s.user_id
		WHERE s.period_type = $1 AND s.period_start = $2
		ORDER BY s.score DESC, s.user_id ASC
		LIMIT $3 OFFSET $4
	`, periodType, periodStart, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: top for period", ErrInternal)
	}

	return rows, nil
}

// TopLive ranks users by raw ledger sums over the still-open window [from, to).
// Fallback path when the cached live board is unavailable.
func (r *Repository) TopLive(ctx context.Context, from, to time.Time, limit int) ([]Row, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows := make([]Row, 0)
	err := r.db.SelectContext(ctx2, &rows, `
		SELECT l.user_id, u.display_name, COALESCE(SUM(l.points_delta), 0) AS score
		FROM points_ledger l
		JOIN users u ON u.id = l.user_id
		WHERE l.created_at >= $1 AND l.created_at < $2
		GROUP BY l.user_id, u.display_name
		ORDER BY score DESC, l.user_id ASC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: top live", ErrInternal)
	}

	return rows, nil
}

// DisplayNames resolves names for a set of user ids, for hydrating cached
// board entries.
func (r *Repository) DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	if len(userIDs) == 0 {
		return map[string]string{}, nil
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query, args, err := sqlx.In(`SELECT id, display_name FROM users WHERE id IN (?)`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: build name query", ErrInternal)
	}

	var pairs []struct {
		ID          string `db:"id"`
		DisplayName string `db:"display_name"`
	}
	if err := r.db.SelectContext(ctx2, &pairs, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%w: resolve display names", ErrInternal)
	}

	names := make(map[string]string, len(pairs))
	for _, p := range pairs {
		names[p.ID] = p.DisplayName
	}
	return names, nil
}

// TopCircles ranks circles by their running totals.
func (r *Repository) TopCircles(ctx context.Context, limit, offset int) ([]CircleRow, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows := make([]CircleRow, 0)
	err := r.db.SelectContext(ctx2, &rows, `
		SELECT c.id AS circle_id, c.name, c.total_score,
		       (SELECT COUNT(*) FROM circle_members m WHERE m.circle_id = c.id) AS member_count
		FROM circles c
		ORDER BY c.total_score DESC, c.id ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: top circles", ErrInternal)
	}

	return rows, nil
}
