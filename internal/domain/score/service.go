package score

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fitcircle/scoring-api/internal/domain/ledger"
	"github.com/fitcircle/scoring-api/internal/pkg/period"
)

// Service rolls ledger activity up into period snapshots and classifies
// balances into leagues. Close jobs are idempotent: a pure function of ledger
// state, safe to re-run for any past period.
type Service struct {
	repo      *Repository
	ledger    *ledger.Service
	periods   *period.Calculator
	batchSize int
}

func NewService(repo *Repository, ledgerSvc *ledger.Service, periods *period.Calculator, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Service{repo: repo, ledger: ledgerSvc, periods: periods, batchSize: batchSize}
}

// CalculateScore sums ledger deltas in [from, to).
func (s *Service) CalculateScore(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error) {
	return s.repo.SumUser(ctx, userID, from, to)
}

// RunWeeklyClose snapshots every user with ledger activity in the week
// containing weekStart. Safe to re-run; overwrites produce identical rows.
func (s *Service) RunWeeklyClose(ctx context.Context, weekStart time.Time) (*CloseReport, error) {
	start, end := s.periods.WeekBounds(weekStart)
	return s.runClose(ctx, string(period.TypeWeekly), start, end)
}

// RunMonthlyClose snapshots every user with ledger activity in the month
// containing monthStart.
func (s *Service) RunMonthlyClose(ctx context.Context, monthStart time.Time) (*CloseReport, error) {
	start, end := s.periods.MonthBounds(monthStart)
	return s.runClose(ctx, string(period.TypeMonthly), start, end)
}

func (s *Service) runClose(ctx context.Context, periodType string, start, end time.Time) (*CloseReport, error) {
	report := &CloseReport{PeriodType: periodType, PeriodStart: start, PeriodEnd: end}

	after := uuid.Nil
	for {
		ids, err := s.repo.ListActiveUserIDs(ctx, start, end, after, s.batchSize)
		if err != nil {
			return report, err
		}
		if len(ids) == 0 {
			break
		}

		for _, userID := range ids {
			if err := s.closeUser(ctx, userID, periodType, start, end); err != nil {
				// One bad user must not sink the batch
				report.Failures++
				log.Error().Err(err).
					Str("user_id", userID.String()).
					Str("period_type", periodType).
					Time("period_start", start).
					Msg("snapshot failed")
				continue
			}
			report.Processed++
		}

		after = ids[len(ids)-1]
		if len(ids) < s.batchSize {
			break
		}
	}

	log.Info().
		Str("period_type", periodType).
		Time("period_start", start).
		Int("processed", report.Processed).
		Int("failures", report.Failures).
		Msg("period close finished")

	return report, nil
}

func (s *Service) closeUser(ctx context.Context, userID uuid.UUID, periodType string, start, end time.Time) error {
	sum, err := s.repo.SumUser(ctx, userID, start, end)
	if err != nil {
		return err
	}
	return s.repo.UpsertSnapshot(ctx, &Snapshot{
		UserID:      userID,
		PeriodType:  periodType,
		PeriodStart: start,
		PeriodEnd:   end,
		Score:       sum,
	})
}

// UserScore assembles the full score payload: balance, league, live sums for
// the in-progress week and month, and stored snapshots.
func (s *Service) UserScore(ctx context.Context, userID uuid.UUID) (*UserScore, error) {
	balance, err := s.ledger.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.periods.Now()
	weekStart, weekEnd := s.periods.WeekBounds(now)
	monthStart, monthEnd := s.periods.MonthBounds(now)

	weekScore, err := s.repo.SumUser(ctx, userID, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}
	monthScore, err := s.repo.SumUser(ctx, userID, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}

	weekly, err := s.repo.ListSnapshots(ctx, userID, string(period.TypeWeekly), 12)
	if err != nil {
		return nil, err
	}
	monthly, err := s.repo.ListSnapshots(ctx, userID, string(period.TypeMonthly), 12)
	if err != nil {
		return nil, err
	}

	return &UserScore{
		UserID:           userID,
		TotalBalance:     balance,
		League:           LeagueFor(balance),
		CurrentWeek:      PeriodScore{Start: weekStart, End: weekEnd, Score: weekScore},
		CurrentMonth:     PeriodScore{Start: monthStart, End: monthEnd, Score: monthScore},
		WeeklySnapshots:  weekly,
		MonthlySnapshots: monthly,
	}, nil
}
