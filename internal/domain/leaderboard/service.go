package leaderboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fitcircle/scoring-api/internal/pkg/period"
)

// Service assembles leaderboard payloads. Weekly and monthly boards read
// closed snapshots; the live board reads the Redis cache and falls back to a
// ledger scan when the cache is cold or Redis is down.
type Service struct {
	repo    *Repository
	live    *Live
	periods *period.Calculator
}

func NewService(repo *Repository, live *Live, periods *period.Calculator) *Service {
	return &Service{repo: repo, live: live, periods: periods}
}

// Weekly returns the board for the closed week starting at weekStart. A zero
// weekStart means the most recently closed week.
func (s *Service) Weekly(ctx context.Context, weekStart time.Time, limit, offset int) (*Board, error) {
	if weekStart.IsZero() {
		prev := s.periods.Now().AddDate(0, 0, -7)
		weekStart, _ = s.periods.WeekBounds(prev)
	}
	start, end := s.periods.WeekBounds(weekStart)

	rows, err := s.repo.TopForPeriod(ctx, string(period.TypeWeekly), start, limit, offset)
	if err != nil {
		return nil, err
	}

	return board(string(period.TypeWeekly), start, end, rows, offset), nil
}

// Monthly returns the board for the closed month starting at monthStart. A
// zero monthStart means the most recently closed month.
func (s *Service) Monthly(ctx context.Context, monthStart time.Time, limit, offset int) (*Board, error) {
	if monthStart.IsZero() {
		cur, _ := s.periods.MonthBounds(s.periods.Now())
		monthStart = cur.AddDate(0, -1, 0)
	}
	start, end := s.periods.MonthBounds(monthStart)

	rows, err := s.repo.TopForPeriod(ctx, string(period.TypeMonthly), start, limit, offset)
	if err != nil {
		return nil, err
	}

	return board(string(period.TypeMonthly), start, end, rows, offset), nil
}

// Live returns the in-progress period's board. Approximate by contract: the
// Redis set can lag the ledger, and the fallback scan is the slow exact path.
func (s *Service) Live(ctx context.Context, pt period.Type, limit int) (*Board, error) {
	if pt != period.TypeWeekly && pt != period.TypeMonthly {
		return nil, ErrInvalidPeriod
	}

	start, end, err := s.periods.Bounds(pt, s.periods.Now())
	if err != nil {
		return nil, ErrInvalidPeriod
	}

	if s.live.Enabled() {
		entries, err := s.live.Top(ctx, pt, limit)
		if err == nil && len(entries) > 0 {
			rows, hydrateErr := s.hydrate(ctx, entries)
			if hydrateErr == nil {
				return board("live_"+string(pt), start, end, rows, 0), nil
			}
			err = hydrateErr
		}
		if err != nil {
			log.Warn().Err(err).Msg("live board cache read failed, using ledger scan")
		}
	}

	rows, err := s.repo.TopLive(ctx, start, end, limit)
	if err != nil {
		return nil, err
	}
	return board("live_"+string(pt), start, end, rows, 0), nil
}

// Circles ranks circles by running total.
func (s *Service) Circles(ctx context.Context, limit, offset int) (*CircleBoard, error) {
	rows, err := s.repo.TopCircles(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Rank = offset + i + 1
	}
	return &CircleBoard{Rows: rows}, nil
}

func (s *Service) hydrate(ctx context.Context, entries []LiveEntry) ([]Row, error) {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}
	names, err := s.repo.DisplayNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		id, err := uuid.Parse(e.UserID)
		if err != nil {
			continue
		}
		rows = append(rows, Row{UserID: id, DisplayName: names[e.UserID], Score: e.Score})
	}
	return rows, nil
}

func board(periodType string, start, end time.Time, rows []Row, offset int) *Board {
	for i := range rows {
		rows[i].Rank = offset + i + 1
	}
	return &Board{PeriodType: periodType, PeriodStart: start, PeriodEnd: end, Rows: rows}
}
