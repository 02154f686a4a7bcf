package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Service is the only point-mutating surface of the scoring subsystem.
// Event ingestion and the task engine call Credit/CreditTx; nothing else
// writes to the ledger.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Credit appends a signed points delta. Negative deltas (penalties) are valid;
// zero is not. referenceID carries the idempotency key, nil means no dedup.
func (s *Service) Credit(ctx context.Context, userID uuid.UUID, delta int, reason string, referenceID *string) (int, error) {
	if delta == 0 {
		return 0, ErrInvalidDelta
	}
	if strings.TrimSpace(reason) == "" {
		return 0, ErrInvalidReason
	}

	balance, err := s.repo.Credit(ctx, userID, delta, reason, referenceID)
	if err != nil {
		return 0, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Int("delta", delta).
		Str("reason", reason).
		Int("balance", balance).
		Msg("ledger credit applied")
	return balance, nil
}

// CreditTx is the external-transaction variant of Credit.
func (s *Service) CreditTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, delta int, reason string, referenceID *string) (int, error) {
	if delta == 0 {
		return 0, ErrInvalidDelta
	}
	if strings.TrimSpace(reason) == "" {
		return 0, ErrInvalidReason
	}
	return s.repo.CreditTx(ctx, tx, userID, delta, reason, referenceID)
}

// Penalize deducts points. Thin wrapper to keep call sites honest about sign.
func (s *Service) Penalize(ctx context.Context, userID uuid.UUID, points int, referenceID *string) (int, error) {
	if points <= 0 {
		return 0, ErrInvalidDelta
	}
	return s.Credit(ctx, userID, -points, ReasonPenalty, referenceID)
}

// GetBalance returns the cached balance counter.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.GetBalance(ctx, userID)
}

// RecomputeBalance re-derives the balance from the ledger, repairing the cache.
func (s *Service) RecomputeBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	balance, err := s.repo.RecomputeBalance(ctx, userID)
	if err != nil {
		return 0, err
	}
	log.Info().Str("user_id", userID.String()).Int("balance", balance).Msg("ledger balance recomputed")
	return balance, nil
}

// GetHistory returns paginated ledger entries, newest first.
func (s *Service) GetHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListEntries(ctx, userID, Pagination{Limit: limit, Offset: offset})
}

// HasReference reports whether a dedup key was already credited.
func (s *Service) HasReference(ctx context.Context, userID uuid.UUID, reason, referenceID string) (bool, error) {
	return s.repo.HasReference(ctx, userID, reason, referenceID)
}

// CountInRange counts entries for (user, reason) in [from, to).
func (s *Service) CountInRange(ctx context.Context, userID uuid.UUID, reason string, from, to time.Time) (int, error) {
	return s.repo.CountInRange(ctx, userID, reason, from, to)
}

// SumInRange sums a user's deltas in [from, to).
func (s *Service) SumInRange(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error) {
	return s.repo.SumInRange(ctx, userID, from, to)
}
