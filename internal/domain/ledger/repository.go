package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const queryTimeout = 3 * time.Second

// Repository provides ledger and balance operations. The unique index on
// (user_id, reason, reference_id) is the idempotency backstop: application
// pre-checks are an optimization, losing the race to a concurrent insert
// surfaces as ErrDuplicateReference.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Credit atomically appends a ledger entry, bumps the cached user balance and
// propagates the delta to the user's circle total. Returns the new balance.
func (r *Repository) Credit(ctx context.Context, userID uuid.UUID, delta int, reason string, referenceID *string) (int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return 0, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	balance, err := r.CreditTx(ctx2, tx, userID, delta, reason, referenceID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return balance, nil
}

// CreditTx applies a credit within an external transaction. The caller is
// responsible for commit/rollback. Used by the task engine so that the state
// transition and the reward credit land atomically.
func (r *Repository) CreditTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, delta int, reason string, referenceID *string) (int, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO points_ledger (id, user_id, points_delta, reason, reference_id)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
	`, userID, delta, reason, referenceID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return 0, ErrDuplicateReference
		}
		return 0, fmt.Errorf("%w: insert ledger entry", ErrInternal)
	}

	// Atomic increment, never read-modify-write
	var balance int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO user_points (user_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET balance = user_points.balance + $2, updated_at = now()
		RETURNING balance
	`, userID, delta).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("%w: update user balance", ErrInternal)
	}

	// Circle totals follow the member delta inside the same transaction so a
	// credit can never apply to the user and skip (or double-apply to) the circle
	_, err = tx.ExecContext(ctx, `
		UPDATE circles
		SET total_score = total_score + $2, updated_at = now()
		WHERE id IN (SELECT circle_id FROM circle_members WHERE user_id = $1)
	`, userID, delta)
	if err != nil {
		return 0, fmt.Errorf("%w: update circle total", ErrInternal)
	}

	return balance, nil
}

// GetBalance returns the cached balance counter (0 for unknown users).
func (r *Repository) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var balance int
	err := r.db.GetContext(ctx2, &balance, `SELECT balance FROM user_points WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: get balance", ErrInternal)
	}

	return balance, nil
}

// RecomputeBalance derives the balance from the ledger and repairs the cache.
// The ledger sum is the truth; any drift in the counter is a bug this fixes.
func (r *Repository) RecomputeBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var balance int
	err := r.db.GetContext(ctx2, &balance, `
		SELECT COALESCE(SUM(points_delta), 0) FROM points_ledger WHERE user_id = $1
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: sum ledger", ErrInternal)
	}

	_, err = r.db.ExecContext(ctx2, `
		INSERT INTO user_points (user_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET balance = $2, updated_at = now()
	`, userID, balance)
	if err != nil {
		return 0, fmt.Errorf("%w: repair balance cache", ErrInternal)
	}

	return balance, nil
}

// ListEntries returns a user's ledger history, newest first.
func (r *Repository) ListEntries(ctx context.Context, userID uuid.UUID, pagination Pagination) ([]Entry, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	limit := pagination.Limit
	if limit <= 0 {
		limit = 20
	}

	entries := make([]Entry, 0)
	err := r.db.SelectContext(ctx2, &entries, `
		SELECT id, user_id, points_delta, reason, reference_id, created_at
		FROM points_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, pagination.Offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list entries", ErrInternal)
	}

	return entries, nil
}

// HasReference reports whether a credit with this dedup key already exists.
// Pre-check only; the unique index is the final arbiter.
func (r *Repository) HasReference(ctx context.Context, userID uuid.UUID, reason, referenceID string) (bool, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var exists bool
	err := r.db.GetContext(ctx2, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM points_ledger
			WHERE user_id = $1 AND reason = $2 AND reference_id = $3
		)
	`, userID, reason, referenceID)
	if err != nil {
		return false, fmt.Errorf("%w: check reference", ErrInternal)
	}

	return exists, nil
}

// CountInRange counts entries for (user, reason) with created_at in [from, to).
// Backs the per-action daily cap.
func (r *Repository) CountInRange(ctx context.Context, userID uuid.UUID, reason string, from, to time.Time) (int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var count int
	err := r.db.GetContext(ctx2, &count, `
		SELECT COUNT(*) FROM points_ledger
		WHERE user_id = $1 AND reason = $2 AND created_at >= $3 AND created_at < $4
	`, userID, reason, from, to)
	if err != nil {
		return 0, fmt.Errorf("%w: count entries", ErrInternal)
	}

	return count, nil
}

// SumInRange sums deltas for a user with created_at in [from, to).
func (r *Repository) SumInRange(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var sum int
	err := r.db.GetContext(ctx2, &sum, `
		SELECT COALESCE(SUM(points_delta), 0) FROM points_ledger
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
	`, userID, from, to)
	if err != nil {
		return 0, fmt.Errorf("%w: sum range", ErrInternal)
	}

	return sum, nil
}
