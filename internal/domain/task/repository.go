package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

// Repository provides task definition and progress storage. Progress mutation
// methods take an external transaction so the state transition and the reward
// credit commit together.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// ListActiveDefinitions returns all active definitions.
func (r *Repository) ListActiveDefinitions(ctx context.Context) ([]Definition, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	defs := make([]Definition, 0)
	err := r.db.SelectContext(ctx2, &defs, `
		SELECT id, slug, title, description, type, scope, metric, target_value,
		       reward_score, badge_progress_contribution, is_active, created_at
		FROM task_definitions
		WHERE is_active = true
		ORDER BY type, slug
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: list definitions", ErrInternal)
	}
	return defs, nil
}

// ListActiveByMetric returns active definitions advanced by the given metric.
func (r *Repository) ListActiveByMetric(ctx context.Context, metric string) ([]Definition, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	defs := make([]Definition, 0)
	err := r.db.SelectContext(ctx2, &defs, `
		SELECT id, slug, title, description, type, scope, metric, target_value,
		       reward_score, badge_progress_contribution, is_active, created_at
		FROM task_definitions
		WHERE is_active = true AND metric = $1
	`, metric)
	if err != nil {
		return nil, fmt.Errorf("%w: list definitions by metric", ErrInternal)
	}
	return defs, nil
}

// GetDefinitionBySlug returns an active definition by slug.
func (r *Repository) GetDefinitionBySlug(ctx context.Context, slug string) (*Definition, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var def Definition
	err := r.db.GetContext(ctx2, &def, `
		SELECT id, slug, title, description, type, scope, metric, target_value,
		       reward_score, badge_progress_contribution, is_active, created_at
		FROM task_definitions
		WHERE slug = $1 AND is_active = true
	`, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("%w: get definition", ErrInternal)
	}
	return &def, nil
}

// EnsureUserTask lazily creates the per-period row. Idempotent: the composite
// unique key (user_id, task_definition_id, period_key) absorbs repeats.
func (r *Repository) EnsureUserTask(ctx context.Context, userID, defID uuid.UUID, periodKey string, target int) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx2, `
		INSERT INTO user_tasks (id, user_id, task_definition_id, period_key, current_value, target_value, status)
		VALUES (gen_random_uuid(), $1, $2, $3, 0, $4, 'in_progress')
		ON CONFLICT (user_id, task_definition_id, period_key) DO NOTHING
	`, userID, defID, periodKey, target)
	if err != nil {
		return fmt.Errorf("%w: ensure user task", ErrInternal)
	}
	return nil
}

// EnsureUserTaskTx is the transactional variant of EnsureUserTask.
func (r *Repository) EnsureUserTaskTx(ctx context.Context, tx *sqlx.Tx, userID, defID uuid.UUID, periodKey string, target int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO user_tasks (id, user_id, task_definition_id, period_key, current_value, target_value, status)
		VALUES (gen_random_uuid(), $1, $2, $3, 0, $4, 'in_progress')
		ON CONFLICT (user_id, task_definition_id, period_key) DO NOTHING
	`, userID, defID, periodKey, target)
	if err != nil {
		return fmt.Errorf("%w: ensure user task", ErrInternal)
	}
	return nil
}

// LockUserTask loads a user task row FOR UPDATE.
func (r *Repository) LockUserTask(ctx context.Context, tx *sqlx.Tx, userID, defID uuid.UUID, periodKey string) (*UserTask, error) {
	var ut UserTask
	err := tx.GetContext(ctx, &ut, `
		SELECT id, user_id, task_definition_id, period_key, current_value, target_value,
		       status, completed_at, created_at, updated_at
		FROM user_tasks
		WHERE user_id = $1 AND task_definition_id = $2 AND period_key = $3
		FOR UPDATE
	`, userID, defID, periodKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("%w: lock user task", ErrInternal)
	}
	return &ut, nil
}

// UpdateUserTaskProgress persists a progress update within the transaction.
func (r *Repository) UpdateUserTaskProgress(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, value int, status string, completedAt *time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE user_tasks
		SET current_value = $2, status = $3, completed_at = $4, updated_at = now()
		WHERE id = $1
	`, id, value, status, completedAt)
	if err != nil {
		return fmt.Errorf("%w: update user task", ErrInternal)
	}
	return nil
}

// ListUserTasksByPeriodKeys returns a user's task rows for the given period
// keys (period key formats are disjoint across types, so keys select cleanly).
func (r *Repository) ListUserTasksByPeriodKeys(ctx context.Context, userID uuid.UUID, keys []string) ([]UserTask, error) {
	if len(keys) == 0 {
		return []UserTask{}, nil
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query, args, err := sqlx.In(`
		SELECT id, user_id, task_definition_id, period_key, current_value, target_value,
		       status, completed_at, created_at, updated_at
		FROM user_tasks
		WHERE user_id = ? AND period_key IN (?)
	`, userID, keys)
	if err != nil {
		return nil, fmt.Errorf("%w: build query", ErrInternal)
	}

	tasks := make([]UserTask, 0)
	if err := r.db.SelectContext(ctx2, &tasks, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%w: list user tasks", ErrInternal)
	}
	return tasks, nil
}

// GetUserCircle returns the circle the user belongs to, if any.
func (r *Repository) GetUserCircle(ctx context.Context, userID uuid.UUID) (uuid.UUID, bool, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var circleID uuid.UUID
	err := r.db.GetContext(ctx2, &circleID, `
		SELECT circle_id FROM circle_members WHERE user_id = $1
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("%w: get user circle", ErrInternal)
	}
	return circleID, true, nil
}

// EnsureCircleTask lazily creates the circle's per-period row.
func (r *Repository) EnsureCircleTask(ctx context.Context, circleID, defID uuid.UUID, periodKey string, target int) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx2, `
		INSERT INTO circle_tasks (id, circle_id, task_definition_id, period_key, current_value, target_value, status)
		VALUES (gen_random_uuid(), $1, $2, $3, 0, $4, 'in_progress')
		ON CONFLICT (circle_id, task_definition_id, period_key) DO NOTHING
	`, circleID, defID, periodKey, target)
	if err != nil {
		return fmt.Errorf("%w: ensure circle task", ErrInternal)
	}
	return nil
}

// EnsureCircleTaskTx is the transactional variant of EnsureCircleTask.
func (r *Repository) EnsureCircleTaskTx(ctx context.Context, tx *sqlx.Tx, circleID, defID uuid.UUID, periodKey string, target int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO circle_tasks (id, circle_id, task_definition_id, period_key, current_value, target_value, status)
		VALUES (gen_random_uuid(), $1, $2, $3, 0, $4, 'in_progress')
		ON CONFLICT (circle_id, task_definition_id, period_key) DO NOTHING
	`, circleID, defID, periodKey, target)
	if err != nil {
		return fmt.Errorf("%w: ensure circle task", ErrInternal)
	}
	return nil
}

// LockCircleTask loads a circle task row FOR UPDATE.
func (r *Repository) LockCircleTask(ctx context.Context, tx *sqlx.Tx, circleID, defID uuid.UUID, periodKey string) (*CircleTask, error) {
	var ct CircleTask
	err := tx.GetContext(ctx, &ct, `
		SELECT id, circle_id, task_definition_id, period_key, current_value, target_value,
		       status, completed_at, created_at, updated_at
		FROM circle_tasks
		WHERE circle_id = $1 AND task_definition_id = $2 AND period_key = $3
		FOR UPDATE
	`, circleID, defID, periodKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("%w: lock circle task", ErrInternal)
	}
	return &ct, nil
}

// UpdateCircleTaskProgress persists a circle progress update within the transaction.
func (r *Repository) UpdateCircleTaskProgress(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, value int, status string, completedAt *time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE circle_tasks
		SET current_value = $2, status = $3, completed_at = $4, updated_at = now()
		WHERE id = $1
	`, id, value, status, completedAt)
	if err != nil {
		return fmt.Errorf("%w: update circle task", ErrInternal)
	}
	return nil
}

// UpsertContribution accumulates a member's share of circle progress.
func (r *Repository) UpsertContribution(ctx context.Context, tx *sqlx.Tx, circleTaskID, userID uuid.UUID, increment int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO circle_task_contributions (circle_task_id, user_id, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (circle_task_id, user_id) DO UPDATE
		SET value = circle_task_contributions.value + $3
	`, circleTaskID, userID, increment)
	if err != nil {
		return fmt.Errorf("%w: upsert contribution", ErrInternal)
	}
	return nil
}

// ListContributorIDs returns every member who contributed to a circle task,
// read within the completing transaction.
func (r *Repository) ListContributorIDs(ctx context.Context, tx *sqlx.Tx, circleTaskID uuid.UUID) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	err := tx.SelectContext(ctx, &ids, `
		SELECT user_id FROM circle_task_contributions WHERE circle_task_id = $1
	`, circleTaskID)
	if err != nil {
		return nil, fmt.Errorf("%w: list contributors", ErrInternal)
	}
	return ids, nil
}

// contributorRow carries a contribution joined with the member's display name.
type contributorRow struct {
	UserID      uuid.UUID `db:"user_id"`
	DisplayName string    `db:"display_name"`
	Value       int       `db:"value"`
}

// TopContributors returns the highest-contributing members of a circle task.
func (r *Repository) TopContributors(ctx context.Context, circleTaskID uuid.UUID, limit int) ([]ContributorView, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 3
	}

	rows := make([]contributorRow, 0)
	err := r.db.SelectContext(ctx2, &rows, `
		SELECT c.user_id, COALESCE(u.display_name, '') AS display_name, c.value
		FROM circle_task_contributions c
		LEFT JOIN users u ON u.id = c.user_id
		WHERE c.circle_task_id = $1
		ORDER BY c.value DESC, c.user_id ASC
		LIMIT $2
	`, circleTaskID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: top contributors", ErrInternal)
	}

	views := make([]ContributorView, 0, len(rows))
	for _, row := range rows {
		views = append(views, ContributorView{
			UserID:      row.UserID.String(),
			DisplayName: row.DisplayName,
			Value:       row.Value,
		})
	}
	return views, nil
}

// ListCircleTasksByPeriodKeys returns a circle's task rows for the given period keys.
func (r *Repository) ListCircleTasksByPeriodKeys(ctx context.Context, circleID uuid.UUID, keys []string) ([]CircleTask, error) {
	if len(keys) == 0 {
		return []CircleTask{}, nil
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query, args, err := sqlx.In(`
		SELECT id, circle_id, task_definition_id, period_key, current_value, target_value,
		       status, completed_at, created_at, updated_at
		FROM circle_tasks
		WHERE circle_id = ? AND period_key IN (?)
	`, circleID, keys)
	if err != nil {
		return nil, fmt.Errorf("%w: build query", ErrInternal)
	}

	tasks := make([]CircleTask, 0)
	if err := r.db.SelectContext(ctx2, &tasks, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%w: list circle tasks", ErrInternal)
	}
	return tasks, nil
}
