package period

import (
	"testing"
	"time"
)

func newTestCalculator(t *testing.T) *Calculator {
	t.Helper()
	c, err := NewCalculator("Europe/Berlin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestWeekBoundsStartsMonday(t *testing.T) {
	c := newTestCalculator(t)

	// 2024-01-17 is a Wednesday
	ref := time.Date(2024, 1, 17, 15, 30, 0, 0, c.Location())
	start, end := c.WeekBounds(ref)

	if start.Weekday() != time.Monday {
		t.Fatalf("expected Monday start, got %s", start.Weekday())
	}
	if start.Hour() != 0 || start.Minute() != 0 || start.Second() != 0 {
		t.Fatalf("expected midnight start, got %s", start)
	}
	if got := start.Format("2006-01-02"); got != "2024-01-15" {
		t.Fatalf("expected week start 2024-01-15, got %s", got)
	}
	if got := end.Format("2006-01-02"); got != "2024-01-22" {
		t.Fatalf("expected week end 2024-01-22 (exclusive), got %s", got)
	}
}

func TestWeekBoundsOnMonday(t *testing.T) {
	c := newTestCalculator(t)

	// Reference exactly at Monday midnight stays in its own week
	ref := time.Date(2024, 1, 15, 0, 0, 0, 0, c.Location())
	start, _ := c.WeekBounds(ref)
	if !start.Equal(ref) {
		t.Fatalf("expected start %s, got %s", ref, start)
	}

	// Sunday late evening belongs to the previous week
	sunday := time.Date(2024, 1, 14, 23, 59, 59, 0, c.Location())
	start, end := c.WeekBounds(sunday)
	if got := start.Format("2006-01-02"); got != "2024-01-08" {
		t.Fatalf("expected week start 2024-01-08, got %s", got)
	}
	if !end.Equal(ref) {
		t.Fatalf("expected end %s, got %s", ref, end)
	}
}

func TestWeekBoundsDeterministic(t *testing.T) {
	c := newTestCalculator(t)

	ref := time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC)
	s1, e1 := c.WeekBounds(ref)
	s2, e2 := c.WeekBounds(ref)
	if !s1.Equal(s2) || !e1.Equal(e2) {
		t.Fatal("week bounds are not deterministic for a fixed reference")
	}
}

func TestWeekBoundsIndependentOfInputZone(t *testing.T) {
	c := newTestCalculator(t)

	// Same instant expressed in two zones must yield identical bounds
	utc := time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)
	tokyo := utc.In(mustLoadLocation(t, "Asia/Tokyo"))

	s1, _ := c.WeekBounds(utc)
	s2, _ := c.WeekBounds(tokyo)
	if !s1.Equal(s2) {
		t.Fatalf("bounds differ by input zone: %s vs %s", s1, s2)
	}
}

func TestMonthBounds(t *testing.T) {
	c := newTestCalculator(t)

	ref := time.Date(2024, 2, 20, 8, 0, 0, 0, c.Location())
	start, end := c.MonthBounds(ref)

	if got := start.Format("2006-01-02"); got != "2024-02-01" {
		t.Fatalf("expected month start 2024-02-01, got %s", got)
	}
	if got := end.Format("2006-01-02"); got != "2024-03-01" {
		t.Fatalf("expected month end 2024-03-01 (exclusive), got %s", got)
	}
}

func TestDayBoundsAcrossDSTTransition(t *testing.T) {
	c := newTestCalculator(t)

	// 2024-03-31 is the spring DST transition in Berlin: the day is 23 hours
	ref := time.Date(2024, 3, 31, 12, 0, 0, 0, c.Location())
	start, end := c.DayBounds(ref)

	if got := end.Sub(start); got != 23*time.Hour {
		t.Fatalf("expected 23h DST day, got %s", got)
	}
	if got := end.Format("2006-01-02"); got != "2024-04-01" {
		t.Fatalf("expected day end 2024-04-01, got %s", got)
	}
}

func TestPeriodKeys(t *testing.T) {
	c := newTestCalculator(t)

	tests := []struct {
		name string
		pt   Type
		ref  time.Time
		want string
	}{
		{"daily", TypeDaily, time.Date(2024, 1, 15, 9, 0, 0, 0, c.Location()), "2024-01-15"},
		{"weekly", TypeWeekly, time.Date(2024, 1, 17, 9, 0, 0, 0, c.Location()), "2024-W03"},
		{"weekly ISO year boundary", TypeWeekly, time.Date(2024, 12, 30, 9, 0, 0, 0, c.Location()), "2025-W01"},
		{"monthly", TypeMonthly, time.Date(2024, 1, 15, 9, 0, 0, 0, c.Location()), "2024-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Key(tt.pt, tt.ref)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestKeyInvalidType(t *testing.T) {
	c := newTestCalculator(t)
	if _, err := c.Key(Type("yearly"), time.Now()); err == nil {
		t.Fatal("expected error for unknown period type")
	}
}

func TestCurrentKeyUsesInjectedClock(t *testing.T) {
	c := newTestCalculator(t)
	fixed := time.Date(2024, 7, 4, 6, 0, 0, 0, c.Location())
	c = c.WithNow(func() time.Time { return fixed })

	key, err := c.CurrentKey(TypeWeekly)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "2024-W27" {
		t.Fatalf("expected 2024-W27, got %s", key)
	}

	end, err := c.PeriodEnd(TypeDaily)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := end.Format("2006-01-02"); got != "2024-07-05" {
		t.Fatalf("expected period end 2024-07-05, got %s", got)
	}
}

func TestParseWeekStart(t *testing.T) {
	c := newTestCalculator(t)

	if _, err := c.ParseWeekStart("2024-01-15"); err != nil {
		t.Fatalf("expected Monday 2024-01-15 to parse, got %v", err)
	}
	if _, err := c.ParseWeekStart("2024-01-16"); err != ErrNotWeekStart {
		t.Fatalf("expected ErrNotWeekStart, got %v", err)
	}
	if _, err := c.ParseWeekStart("15.01.2024"); err != ErrInvalidDate {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestParseMonthStart(t *testing.T) {
	c := newTestCalculator(t)

	if _, err := c.ParseMonthStart("2024-02-01"); err != nil {
		t.Fatalf("expected 2024-02-01 to parse, got %v", err)
	}
	if _, err := c.ParseMonthStart("2024-02-02"); err != ErrNotMonthStart {
		t.Fatalf("expected ErrNotMonthStart, got %v", err)
	}
}

func mustLoadLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load location %s: %v", name, err)
	}
	return loc
}
