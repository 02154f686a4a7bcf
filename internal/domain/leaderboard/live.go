package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/fitcircle/scoring-api/internal/pkg/period"
)

const (
	liveWeeklyTTL  = 9 * 24 * time.Hour
	liveMonthlyTTL = 33 * 24 * time.Hour
)

// Live maintains approximate in-progress boards in Redis sorted sets, one per
// period key. Updates are best effort: a Redis outage degrades reads to the
// SQL fallback and never blocks point ingestion. With a nil client every
// method is a no-op.
type Live struct {
	rdb     *redis.Client
	periods *period.Calculator
}

func NewLive(rdb *redis.Client, periods *period.Calculator) *Live {
	return &Live{rdb: rdb, periods: periods}
}

func (l *Live) Enabled() bool {
	return l != nil && l.rdb != nil
}

func (l *Live) key(pt period.Type) string {
	now := l.periods.Now()
	switch pt {
	case period.TypeMonthly:
		return fmt.Sprintf("leaderboard:live:monthly:%s", l.periods.MonthKey(now))
	default:
		return fmt.Sprintf("leaderboard:live:weekly:%s", l.periods.WeekKey(now))
	}
}

// Record folds a score delta into the current week's and month's sorted sets.
// Errors are logged, never returned; callers treat these boards as caches.
func (l *Live) Record(ctx context.Context, userID uuid.UUID, delta int) {
	if !l.Enabled() || delta == 0 {
		return
	}

	member := userID.String()
	weekKey := l.key(period.TypeWeekly)
	monthKey := l.key(period.TypeMonthly)

	pipe := l.rdb.Pipeline()
	pipe.ZIncrBy(ctx, weekKey, float64(delta), member)
	pipe.ZIncrBy(ctx, monthKey, float64(delta), member)
	// TTLs outlive their period so the sets survive until the close lands
	pipe.Expire(ctx, weekKey, liveWeeklyTTL)
	pipe.Expire(ctx, monthKey, liveMonthlyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Str("key", weekKey).Msg("live board update failed")
	}
}

// LiveEntry is one cached board member before name hydration.
type LiveEntry struct {
	UserID string
	Score  int
}

// Top reads the current period's cached board, highest score first.
func (l *Live) Top(ctx context.Context, pt period.Type, limit int) ([]LiveEntry, error) {
	if !l.Enabled() {
		return nil, nil
	}

	members, err := l.rdb.ZRevRangeWithScores(ctx, l.key(pt), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: read live board", ErrInternal)
	}

	entries := make([]LiveEntry, 0, len(members))
	for _, m := range members {
		id, ok := m.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, LiveEntry{UserID: id, Score: int(m.Score)})
	}
	return entries, nil
}
