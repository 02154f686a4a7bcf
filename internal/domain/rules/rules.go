package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// DedupScope controls how the idempotency reference for an event is derived.
type DedupScope string

const (
	// ScopePerEntity dedups on the acted-on entity: one credit per
	// (user, event_type, entity_id), ever.
	ScopePerEntity DedupScope = "per_entity"
	// ScopePerDay dedups on the business-timezone day: one credit per
	// (user, event_type, day).
	ScopePerDay DedupScope = "per_day"
	// ScopeNone awards every occurrence, bounded only by the daily limit.
	ScopeNone DedupScope = "none"
)

// Rule describes how one event type is scored.
type Rule struct {
	EventType  string     `json:"event_type"`
	Points     int        `json:"points"`
	DailyLimit int        `json:"daily_limit"` // 0 = unlimited
	DedupScope DedupScope `json:"dedup_scope"`
	TaskMetric string     `json:"task_metric,omitempty"` // event type task definitions subscribe to, defaults to EventType
}

// Metric returns the metric name task definitions match against.
func (r Rule) Metric() string {
	if r.TaskMetric != "" {
		return r.TaskMetric
	}
	return r.EventType
}

// Table is the resolved rule set: built-in defaults overridden by the
// admin-configured file, merged once at startup.
type Table struct {
	rules map[string]Rule
}

// Defaults returns the built-in rule set.
func Defaults() []Rule {
	return []Rule{
		{EventType: "daily_login", Points: 10, DailyLimit: 1, DedupScope: ScopePerDay},
		{EventType: "meal_logged", Points: 5, DailyLimit: 6, DedupScope: ScopePerEntity},
		{EventType: "workout_completed", Points: 20, DailyLimit: 3, DedupScope: ScopePerEntity},
		{EventType: "weight_logged", Points: 5, DailyLimit: 1, DedupScope: ScopePerDay},
		{EventType: "plan_purchased", Points: 50, DailyLimit: 0, DedupScope: ScopePerEntity},
		{EventType: "post_liked", Points: 1, DailyLimit: 20, DedupScope: ScopePerEntity},
		{EventType: "comment_posted", Points: 2, DailyLimit: 10, DedupScope: ScopePerEntity},
		{EventType: "friend_invited", Points: 25, DailyLimit: 5, DedupScope: ScopePerEntity},
	}
}

// Load builds the table from defaults plus an optional JSON override file.
// Overrides win per event type; an override may also introduce new event types.
func Load(path string) (*Table, error) {
	t := &Table{rules: make(map[string]Rule)}
	for _, r := range Defaults() {
		t.rules[r.EventType] = r
	}

	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var overrides []Rule
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}

	for _, r := range overrides {
		if err := validateRule(r); err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.EventType, err)
		}
		t.rules[r.EventType] = r
	}

	log.Info().Int("defaults", len(Defaults())).Int("overrides", len(overrides)).Msg("Scoring rules loaded")
	return t, nil
}

// Lookup resolves the rule for an event type.
func (t *Table) Lookup(eventType string) (Rule, bool) {
	r, ok := t.rules[eventType]
	return r, ok
}

// EventTypes returns all configured event types.
func (t *Table) EventTypes() []string {
	types := make([]string, 0, len(t.rules))
	for et := range t.rules {
		types = append(types, et)
	}
	return types
}

func validateRule(r Rule) error {
	if strings.TrimSpace(r.EventType) == "" {
		return fmt.Errorf("missing event_type")
	}
	if r.DailyLimit < 0 {
		return fmt.Errorf("negative daily_limit")
	}
	switch r.DedupScope {
	case ScopePerEntity, ScopePerDay, ScopeNone:
		return nil
	default:
		return fmt.Errorf("unknown dedup_scope %q", r.DedupScope)
	}
}
