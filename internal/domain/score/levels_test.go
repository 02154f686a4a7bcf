package score

import "testing"

func TestLeagueFor(t *testing.T) {
	tests := []struct {
		balance  int
		name     string
		progress int
		hasNext  bool
	}{
		{0, "bronze", 0, true},
		{250, "bronze", 50, true},
		{499, "bronze", 99, true},
		{500, "silver", 0, true},
		{1499, "silver", 99, true},
		{1500, "gold", 0, true},
		{4000, "platinum", 0, true},
		{9999, "platinum", 99, true},
		{10000, "diamond", 100, false},
		{50000, "diamond", 100, false},
		{-10, "bronze", 0, true},
	}

	for _, tt := range tests {
		got := LeagueFor(tt.balance)
		if got.Name != tt.name {
			t.Errorf("balance %d: expected %s, got %s", tt.balance, tt.name, got.Name)
		}
		if got.Progress != tt.progress {
			t.Errorf("balance %d: expected progress %d, got %d", tt.balance, tt.progress, got.Progress)
		}
		if (got.NextAt != nil) != tt.hasNext {
			t.Errorf("balance %d: expected hasNext=%v", tt.balance, tt.hasNext)
		}
	}
}

func TestLeagueForDeterministic(t *testing.T) {
	a := LeagueFor(1234)
	b := LeagueFor(1234)
	if a != b && (a.NextAt == nil) != (b.NextAt == nil) {
		t.Fatal("classification is not deterministic")
	}
	if a.Name != b.Name || a.Progress != b.Progress {
		t.Fatal("classification is not deterministic")
	}
}
