package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/fitcircle/scoring-api/internal/domain/ledger"
	"github.com/fitcircle/scoring-api/internal/pkg/period"
)

// Service drives the per-period task state machine. Completion is the only
// transition: in_progress -> completed, exactly once per period key, and the
// reward credit commits in the same transaction as the transition. The credit
// reference is the user task id, so a replay after completion can never
// double-pay even if the status check is raced.
type Service struct {
	db      *sqlx.DB
	repo    *Repository
	ledger  *ledger.Service
	periods *period.Calculator
}

func NewService(db *sqlx.DB, repo *Repository, ledgerSvc *ledger.Service, periods *period.Calculator) *Service {
	return &Service{db: db, repo: repo, ledger: ledgerSvc, periods: periods}
}

// InitializeUserTasks ensures a row exists for every active user-scope
// definition of the given type in the current period. Idempotent.
func (s *Service) InitializeUserTasks(ctx context.Context, userID uuid.UUID, pt period.Type) error {
	defs, err := s.repo.ListActiveDefinitions(ctx)
	if err != nil {
		return err
	}

	now := s.periods.Now()
	for _, def := range defs {
		if def.Scope != ScopeUser || def.Type != string(pt) {
			continue
		}
		key, err := s.periods.Key(period.Type(def.Type), now)
		if err != nil {
			return err
		}
		if err := s.repo.EnsureUserTask(ctx, userID, def.ID, key, def.TargetValue); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEvent advances every active task subscribed to the metric and returns
// the reward points credited to this user by completions it triggered.
func (s *Service) ApplyEvent(ctx context.Context, userID uuid.UUID, metric string, increment int) (int, error) {
	if increment <= 0 {
		return 0, ErrInvalidIncrement
	}

	defs, err := s.repo.ListActiveByMetric(ctx, metric)
	if err != nil {
		return 0, err
	}

	now := s.periods.Now()
	rewarded := 0

	for _, def := range defs {
		key, err := s.periods.Key(period.Type(def.Type), now)
		if err != nil {
			return rewarded, err
		}

		switch def.Scope {
		case ScopeUser:
			_, reward, err := s.progressUserTask(ctx, userID, def, key, increment)
			if err != nil {
				return rewarded, err
			}
			rewarded += reward
		case ScopeCircle:
			reward, err := s.progressCircleTask(ctx, userID, def, key, increment)
			if err != nil {
				return rewarded, err
			}
			rewarded += reward
		}
	}

	return rewarded, nil
}

// RecordProgress advances one task by slug. Used for direct progress calls
// that do not flow through event dispatch.
func (s *Service) RecordProgress(ctx context.Context, userID uuid.UUID, slug string, increment int) (*UserTask, int, error) {
	if increment <= 0 {
		return nil, 0, ErrInvalidIncrement
	}

	def, err := s.repo.GetDefinitionBySlug(ctx, slug)
	if err != nil {
		return nil, 0, err
	}

	key, err := s.periods.Key(period.Type(def.Type), s.periods.Now())
	if err != nil {
		return nil, 0, err
	}

	return s.progressUserTaskResult(ctx, userID, *def, key, increment)
}

func (s *Service) progressUserTask(ctx context.Context, userID uuid.UUID, def Definition, periodKey string, increment int) (*UserTask, int, error) {
	return s.progressUserTaskResult(ctx, userID, def, periodKey, increment)
}

// progressUserTaskResult runs one state-machine step in a single transaction:
// ensure row, lock, clamp, transition, credit.
func (s *Service) progressUserTaskResult(ctx context.Context, userID uuid.UUID, def Definition, periodKey string, increment int) (*UserTask, int, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	if err := s.repo.EnsureUserTaskTx(ctx, tx, userID, def.ID, periodKey, def.TargetValue); err != nil {
		return nil, 0, err
	}

	ut, err := s.repo.LockUserTask(ctx, tx, userID, def.ID, periodKey)
	if err != nil {
		return nil, 0, err
	}

	// Completion is terminal for this period; further progress is a no-op
	if ut.Status == StatusCompleted {
		return ut, 0, nil
	}

	newValue := ut.CurrentValue + increment
	if newValue > ut.TargetValue {
		newValue = ut.TargetValue
	}

	status := ut.Status
	completedAt := ut.CompletedAt
	reward := 0

	if newValue >= ut.TargetValue {
		status = StatusCompleted
		now := time.Now()
		completedAt = &now

		if def.RewardScore > 0 {
			ref := ut.ID.String()
			_, err := s.ledger.CreditTx(ctx, tx, userID, def.RewardScore, ledger.ReasonTaskReward, &ref)
			if err != nil && !errors.Is(err, ledger.ErrDuplicateReference) {
				return nil, 0, err
			}
			if err == nil {
				reward = def.RewardScore
			}
		}
	}

	if err := s.repo.UpdateUserTaskProgress(ctx, tx, ut.ID, newValue, status, completedAt); err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	ut.CurrentValue = newValue
	ut.Status = status
	ut.CompletedAt = completedAt

	if status == StatusCompleted {
		log.Info().
			Str("user_id", userID.String()).
			Str("task", def.Slug).
			Str("period_key", periodKey).
			Int("reward", reward).
			Msg("task completed")
	}

	return ut, reward, nil
}

// progressCircleTask advances the user's circle task, tracks the member
// contribution, and on completion credits every contributor. Returns this
// user's share of the reward.
func (s *Service) progressCircleTask(ctx context.Context, userID uuid.UUID, def Definition, periodKey string, increment int) (int, error) {
	circleID, ok, err := s.repo.GetUserCircle(ctx, userID)
	if err != nil || !ok {
		return 0, err
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return 0, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	if err := s.repo.EnsureCircleTaskTx(ctx, tx, circleID, def.ID, periodKey, def.TargetValue); err != nil {
		return 0, err
	}

	ct, err := s.repo.LockCircleTask(ctx, tx, circleID, def.ID, periodKey)
	if err != nil {
		return 0, err
	}

	if ct.Status == StatusCompleted {
		return 0, nil
	}

	if err := s.repo.UpsertContribution(ctx, tx, ct.ID, userID, increment); err != nil {
		return 0, err
	}

	newValue := ct.CurrentValue + increment
	if newValue > ct.TargetValue {
		newValue = ct.TargetValue
	}

	status := ct.Status
	completedAt := ct.CompletedAt
	userReward := 0

	if newValue >= ct.TargetValue {
		status = StatusCompleted
		now := time.Now()
		completedAt = &now

		if def.RewardScore > 0 {
			contributors, err := s.repo.ListContributorIDs(ctx, tx, ct.ID)
			if err != nil {
				return 0, err
			}
			ref := ct.ID.String()
			for _, memberID := range contributors {
				_, err := s.ledger.CreditTx(ctx, tx, memberID, def.RewardScore, ledger.ReasonCircleTaskReward, &ref)
				if err != nil && !errors.Is(err, ledger.ErrDuplicateReference) {
					return 0, err
				}
				if err == nil && memberID == userID {
					userReward = def.RewardScore
				}
			}
		}
	}

	if err := s.repo.UpdateCircleTaskProgress(ctx, tx, ct.ID, newValue, status, completedAt); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	if status == StatusCompleted {
		log.Info().
			Str("circle_id", circleID.String()).
			Str("task", def.Slug).
			Str("period_key", periodKey).
			Msg("circle task completed")
	}

	return userReward, nil
}

// Overview assembles the /tasks/me payload, lazily initializing missing rows
// for the current periods.
func (s *Service) Overview(ctx context.Context, userID uuid.UUID) (*Overview, error) {
	defs, err := s.repo.ListActiveDefinitions(ctx)
	if err != nil {
		return nil, err
	}

	now := s.periods.Now()
	keysByType := make(map[string]string, 3)
	for _, pt := range []period.Type{period.TypeDaily, period.TypeWeekly, period.TypeMonthly} {
		key, err := s.periods.Key(pt, now)
		if err != nil {
			return nil, err
		}
		keysByType[string(pt)] = key
	}

	defByID := make(map[uuid.UUID]Definition, len(defs))
	keys := make([]string, 0, 3)
	for _, k := range keysByType {
		keys = append(keys, k)
	}

	for _, def := range defs {
		defByID[def.ID] = def
		if def.Scope == ScopeUser {
			if err := s.repo.EnsureUserTask(ctx, userID, def.ID, keysByType[def.Type], def.TargetValue); err != nil {
				return nil, err
			}
		}
	}

	userTasks, err := s.repo.ListUserTasksByPeriodKeys(ctx, userID, keys)
	if err != nil {
		return nil, err
	}

	overview := &Overview{
		Daily:   []View{},
		Weekly:  []View{},
		Monthly: []View{},
		Circle:  []CircleView{},
	}

	for _, ut := range userTasks {
		def, ok := defByID[ut.TaskDefinitionID]
		if !ok {
			continue
		}

		expires, err := s.expiry(period.Type(def.Type))
		if err != nil {
			return nil, err
		}

		view := buildView(def, ut.CurrentValue, ut.TargetValue, ut.Status, ut.CompletedAt, expires)

		overview.Summary.Total++
		if ut.Status == StatusCompleted {
			overview.Summary.Completed++
			overview.Summary.BadgeProgress += def.BadgeProgress
		} else {
			overview.Summary.PointsEarnable += def.RewardScore
		}

		switch def.Type {
		case string(period.TypeDaily):
			overview.Daily = append(overview.Daily, view)
		case string(period.TypeWeekly):
			overview.Weekly = append(overview.Weekly, view)
		case string(period.TypeMonthly):
			overview.Monthly = append(overview.Monthly, view)
		}
	}

	if err := s.attachCircleTasks(ctx, userID, defs, keysByType, overview); err != nil {
		return nil, err
	}

	return overview, nil
}

func (s *Service) attachCircleTasks(ctx context.Context, userID uuid.UUID, defs []Definition, keysByType map[string]string, overview *Overview) error {
	circleID, ok, err := s.repo.GetUserCircle(ctx, userID)
	if err != nil || !ok {
		return err
	}

	circleDefs := make(map[uuid.UUID]Definition)
	keys := make([]string, 0, 3)
	seen := make(map[string]struct{}, 3)
	for _, def := range defs {
		if def.Scope != ScopeCircle {
			continue
		}
		circleDefs[def.ID] = def
		if err := s.repo.EnsureCircleTask(ctx, circleID, def.ID, keysByType[def.Type], def.TargetValue); err != nil {
			return err
		}
		if _, dup := seen[keysByType[def.Type]]; !dup {
			seen[keysByType[def.Type]] = struct{}{}
			keys = append(keys, keysByType[def.Type])
		}
	}

	if len(circleDefs) == 0 {
		return nil
	}

	circleTasks, err := s.repo.ListCircleTasksByPeriodKeys(ctx, circleID, keys)
	if err != nil {
		return err
	}

	for _, ct := range circleTasks {
		def, ok := circleDefs[ct.TaskDefinitionID]
		if !ok {
			continue
		}

		expires, err := s.expiry(period.Type(def.Type))
		if err != nil {
			return err
		}

		contributors, err := s.repo.TopContributors(ctx, ct.ID, 3)
		if err != nil {
			return err
		}

		overview.Summary.Total++
		if ct.Status == StatusCompleted {
			overview.Summary.Completed++
		}

		overview.Circle = append(overview.Circle, CircleView{
			View:            buildView(def, ct.CurrentValue, ct.TargetValue, ct.Status, ct.CompletedAt, expires),
			CircleID:        circleID.String(),
			TopContributors: contributors,
		})
	}

	return nil
}

func (s *Service) expiry(pt period.Type) (time.Time, error) {
	return s.periods.PeriodEnd(pt)
}

func buildView(def Definition, current, target int, status string, completedAt *time.Time, expires time.Time) View {
	percent := 0
	if target > 0 {
		percent = current * 100 / target
	}
	if percent > 100 {
		percent = 100
	}

	return View{
		Slug:        def.Slug,
		Title:       def.Title,
		Description: def.Description,
		Type:        def.Type,
		Progress:    current,
		Target:      target,
		Percent:     percent,
		Status:      status,
		RewardScore: def.RewardScore,
		ExpiresAt:   expires,
		CompletedAt: completedAt,
	}
}
