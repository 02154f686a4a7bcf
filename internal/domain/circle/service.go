package circle

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Service exposes circle reads and cache repair. Circle CRUD and membership
// management live in the external profile layer.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Circle, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) MemberIDs(ctx context.Context, circleID uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.ListMemberIDs(ctx, circleID)
}

// RecomputeTotal rebuilds the cached circle total from member ledgers.
func (s *Service) RecomputeTotal(ctx context.Context, circleID uuid.UUID) (int, error) {
	total, err := s.repo.RecomputeTotal(ctx, circleID)
	if err != nil {
		return 0, err
	}

	log.Info().
		Str("circle_id", circleID.String()).
		Int("total_score", total).
		Msg("circle total recomputed")

	return total, nil
}
