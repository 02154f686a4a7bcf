package rules

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsOnly(t *testing.T) {
	table, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rule, ok := table.Lookup("daily_login")
	if !ok {
		t.Fatal("expected daily_login rule")
	}
	if rule.Points != 10 || rule.DailyLimit != 1 || rule.DedupScope != ScopePerDay {
		t.Fatalf("unexpected daily_login rule: %+v", rule)
	}

	if _, ok := table.Lookup("unknown_event"); ok {
		t.Fatal("expected unknown_event to be absent")
	}
}

func TestLoadOverridesWin(t *testing.T) {
	path := writeRulesFile(t, `[
		{"event_type": "daily_login", "points": 15, "daily_limit": 1, "dedup_scope": "per_day"},
		{"event_type": "challenge_won", "points": 100, "daily_limit": 0, "dedup_scope": "per_entity"}
	]`)

	table, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rule, _ := table.Lookup("daily_login")
	if rule.Points != 15 {
		t.Fatalf("expected override points 15, got %d", rule.Points)
	}

	// New event types can be introduced by the override file
	rule, ok := table.Lookup("challenge_won")
	if !ok || rule.Points != 100 {
		t.Fatalf("expected challenge_won rule, got %+v ok=%v", rule, ok)
	}

	// Defaults not named in the override remain intact
	rule, _ = table.Lookup("meal_logged")
	if rule.Points != 5 {
		t.Fatalf("expected default meal_logged points 5, got %d", rule.Points)
	}
}

func TestLoadRejectsInvalidOverride(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad scope", `[{"event_type": "x", "points": 1, "dedup_scope": "per_hour"}]`},
		{"missing event type", `[{"points": 1, "dedup_scope": "none"}]`},
		{"negative limit", `[{"event_type": "x", "points": 1, "daily_limit": -1, "dedup_scope": "none"}]`},
		{"not json", `points: 1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeRulesFile(t, tt.body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRuleMetricFallsBackToEventType(t *testing.T) {
	r := Rule{EventType: "meal_logged"}
	if r.Metric() != "meal_logged" {
		t.Fatalf("expected metric meal_logged, got %s", r.Metric())
	}

	r.TaskMetric = "nutrition"
	if r.Metric() != "nutrition" {
		t.Fatalf("expected metric nutrition, got %s", r.Metric())
	}
}

func writeRulesFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write rules file: %v", err)
	}
	return path
}
