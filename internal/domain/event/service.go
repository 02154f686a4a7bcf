package event

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/rs/zerolog/log"

	"github.com/fitcircle/scoring-api/internal/domain/ledger"
	"github.com/fitcircle/scoring-api/internal/domain/rules"
	"github.com/fitcircle/scoring-api/internal/pkg/period"
)

// RoleResolver resolves a user's role. Identity is owned by the external
// CRUD layer; the scoring core only needs role for earning eligibility.
type RoleResolver interface {
	GetRole(ctx context.Context, userID uuid.UUID) (string, error)
}

// TaskRecorder advances task progress for an event metric and returns the
// total reward points credited by completions it triggered.
type TaskRecorder interface {
	ApplyEvent(ctx context.Context, userID uuid.UUID, metric string, increment int) (int, error)
}

// LiveBoard receives best-effort score updates for the in-progress period
// leaderboard. Implementations must tolerate being a no-op.
type LiveBoard interface {
	Record(ctx context.Context, userID uuid.UUID, delta int)
}

// Service is the single ingestion entry point: every point-affecting action
// flows through Dispatch. Event Log append happens first, scoring after; a
// scoring failure still leaves the audit row behind.
type Service struct {
	repo          *Repository
	ledger        *ledger.Service
	tasks         TaskRecorder
	roles         RoleResolver
	live          LiveBoard
	rules         *rules.Table
	periods       *period.Calculator
	excludedRoles map[string]struct{}
}

func NewService(repo *Repository, ledgerSvc *ledger.Service, tasks TaskRecorder, roles RoleResolver, live LiveBoard, table *rules.Table, periods *period.Calculator, excludedRoles []string) *Service {
	excluded := make(map[string]struct{}, len(excludedRoles))
	for _, r := range excludedRoles {
		excluded[r] = struct{}{}
	}
	return &Service{
		repo:          repo,
		ledger:        ledgerSvc,
		tasks:         tasks,
		roles:         roles,
		live:          live,
		rules:         table,
		periods:       periods,
		excludedRoles: excluded,
	}
}

// Dispatch ingests one user action: audit append, rule resolution, daily cap,
// idempotent flat credit, task progress fan-out. Duplicate and limit outcomes
// come back as statuses, not errors.
func (s *Service) Dispatch(ctx context.Context, userID uuid.UUID, req DispatchRequest) (*Result, error) {
	rule, ok := s.rules.Lookup(req.EventType)
	if !ok {
		return nil, ErrUnknownEventType
	}
	if rule.DedupScope == rules.ScopePerEntity && req.EntityID == "" {
		return nil, ErrMissingEntity
	}

	if err := s.appendEvent(ctx, userID, req); err != nil {
		return nil, err
	}

	role, err := s.roles.GetRole(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, excluded := s.excludedRoles[role]; excluded {
		balance, err := s.ledger.GetBalance(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &Result{Status: StatusSuccess, AwardedPoints: 0, Balance: balance}, nil
	}

	now := s.periods.Now()
	reference := s.dedupReference(rule, req, now)

	// Duplicate beats limit_reached: a replayed action reports duplicate even
	// when the daily cap is also exhausted. The unique constraint stays the
	// authoritative guard for races.
	if rule.Points != 0 && reference != nil {
		exists, err := s.ledger.HasReference(ctx, userID, req.EventType, *reference)
		if err != nil {
			return nil, err
		}
		if exists {
			balance, err := s.ledger.GetBalance(ctx, userID)
			if err != nil {
				return nil, err
			}
			return &Result{Status: StatusDuplicate, AwardedPoints: 0, Balance: balance}, nil
		}
	}

	if rule.DailyLimit > 0 {
		dayStart, dayEnd := s.periods.DayBounds(now)
		count, err := s.ledger.CountInRange(ctx, userID, req.EventType, dayStart, dayEnd)
		if err != nil {
			return nil, err
		}
		if count >= rule.DailyLimit {
			balance, err := s.ledger.GetBalance(ctx, userID)
			if err != nil {
				return nil, err
			}
			return &Result{Status: StatusLimitReached, AwardedPoints: 0, Balance: balance}, nil
		}
	}

	awarded := 0
	balance := 0

	if rule.Points != 0 {
		balance, err = s.ledger.Credit(ctx, userID, rule.Points, req.EventType, reference)
		if errors.Is(err, ledger.ErrDuplicateReference) {
			current, berr := s.ledger.GetBalance(ctx, userID)
			if berr != nil {
				return nil, berr
			}
			return &Result{Status: StatusDuplicate, AwardedPoints: 0, Balance: current}, nil
		}
		if err != nil {
			return nil, err
		}
		awarded += rule.Points
	}

	taskReward, err := s.tasks.ApplyEvent(ctx, userID, rule.Metric(), 1)
	if err != nil {
		// The flat credit is committed; losing task progress here is worth a
		// log line but not a failed dispatch
		log.Error().Err(err).
			Str("user_id", userID.String()).
			Str("event_type", req.EventType).
			Msg("task progress failed after credit")
	} else {
		awarded += taskReward
	}

	if awarded != 0 {
		if balance, err = s.ledger.GetBalance(ctx, userID); err != nil {
			return nil, err
		}
		if s.live != nil {
			s.live.Record(ctx, userID, awarded)
		}
	} else if balance, err = s.ledger.GetBalance(ctx, userID); err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("event_type", req.EventType).
		Int("awarded", awarded).
		Int("balance", balance).
		Msg("event dispatched")

	return &Result{Status: StatusSuccess, AwardedPoints: awarded, Balance: balance}, nil
}

// ListRecent returns the user's own audit trail.
func (s *Service) ListRecent(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Event, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) appendEvent(ctx context.Context, userID uuid.UUID, req DispatchRequest) error {
	var entityID *string
	if req.EntityID != "" {
		entityID = &req.EntityID
	}

	source := req.Source
	if source == "" {
		source = SourceMobile
	}

	e := &Event{
		ID:         uuid.New(),
		UserID:     userID,
		EventType:  req.EventType,
		EntityType: req.EntityType,
		EntityID:   entityID,
		Context:    types.JSONText("{}"),
		Source:     source,
		CreatedAt:  time.Now(),
	}
	if len(req.Context) > 0 {
		data, err := json.Marshal(req.Context)
		if err != nil {
			return ErrInternal
		}
		e.Context = data
	}

	return s.repo.Insert(ctx, e)
}

// dedupReference derives the idempotency key for a rule. Per-entity rules use
// the acted-on entity, per-day rules the business-timezone day key, and
// unscoped rules return nil (no dedup, daily cap only).
func (s *Service) dedupReference(rule rules.Rule, req DispatchRequest, now time.Time) *string {
	switch rule.DedupScope {
	case rules.ScopePerEntity:
		ref := req.EntityID
		return &ref
	case rules.ScopePerDay:
		ref := s.periods.DayKey(now)
		return &ref
	default:
		return nil
	}
}
