package period

import (
	"errors"
	"fmt"
	"time"
)

// Type identifies a recurring period granularity.
type Type string

const (
	TypeDaily   Type = "daily"
	TypeWeekly  Type = "weekly"
	TypeMonthly Type = "monthly"
)

var (
	ErrInvalidType      = errors.New("invalid period type")
	ErrInvalidDate      = errors.New("invalid date, expected YYYY-MM-DD")
	ErrNotWeekStart     = errors.New("date is not a Monday")
	ErrNotMonthStart    = errors.New("date is not the first of a month")
	errUnsupportedBound = errors.New("unsupported period type")
)

const dateLayout = "2006-01-02"

// Calculator computes calendar-aligned period boundaries in a fixed business
// timezone. Daily resets, weekly closes and monthly closes all align with the
// product's local day, regardless of server locale. All methods are pure
// given a reference time; Now is injectable for tests.
type Calculator struct {
	loc *time.Location
	now func() time.Time
}

// NewCalculator creates a calculator for the given IANA timezone name.
func NewCalculator(timezone string) (*Calculator, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load business timezone %q: %w", timezone, err)
	}
	return &Calculator{loc: loc, now: time.Now}, nil
}

// WithNow returns a copy using the given clock. Test hook.
func (c *Calculator) WithNow(now func() time.Time) *Calculator {
	return &Calculator{loc: c.loc, now: now}
}

// Location returns the business timezone.
func (c *Calculator) Location() *time.Location { return c.loc }

// DayBounds returns [midnight, next midnight) around ref in the business timezone.
func (c *Calculator) DayBounds(ref time.Time) (time.Time, time.Time) {
	t := ref.In(c.loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
	return start, start.AddDate(0, 0, 1)
}

// WeekBounds returns [Monday 00:00, next Monday 00:00) around ref.
func (c *Calculator) WeekBounds(ref time.Time) (time.Time, time.Time) {
	t := ref.In(c.loc)
	// time.Weekday has Sunday == 0; shift so Monday == 0
	offset := (int(t.Weekday()) + 6) % 7
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc).AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}

// MonthBounds returns [first of month 00:00, first of next month 00:00) around ref.
func (c *Calculator) MonthBounds(ref time.Time) (time.Time, time.Time) {
	t := ref.In(c.loc)
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, c.loc)
	return start, start.AddDate(0, 1, 0)
}

// Bounds returns the period bounds of the given type around ref.
func (c *Calculator) Bounds(pt Type, ref time.Time) (time.Time, time.Time, error) {
	switch pt {
	case TypeDaily:
		s, e := c.DayBounds(ref)
		return s, e, nil
	case TypeWeekly:
		s, e := c.WeekBounds(ref)
		return s, e, nil
	case TypeMonthly:
		s, e := c.MonthBounds(ref)
		return s, e, nil
	default:
		return time.Time{}, time.Time{}, errUnsupportedBound
	}
}

// DayKey returns the day period key, e.g. "2024-01-15".
func (c *Calculator) DayKey(ref time.Time) string {
	return ref.In(c.loc).Format(dateLayout)
}

// WeekKey returns the ISO week period key, e.g. "2024-W03".
func (c *Calculator) WeekKey(ref time.Time) string {
	year, week := ref.In(c.loc).ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// MonthKey returns the month period key, e.g. "2024-01".
func (c *Calculator) MonthKey(ref time.Time) string {
	return ref.In(c.loc).Format("2006-01")
}

// Key returns the period key of the given type for ref.
func (c *Calculator) Key(pt Type, ref time.Time) (string, error) {
	switch pt {
	case TypeDaily:
		return c.DayKey(ref), nil
	case TypeWeekly:
		return c.WeekKey(ref), nil
	case TypeMonthly:
		return c.MonthKey(ref), nil
	default:
		return "", ErrInvalidType
	}
}

// CurrentKey returns the period key of the given type for the current time.
func (c *Calculator) CurrentKey(pt Type) (string, error) {
	return c.Key(pt, c.now())
}

// PeriodEnd returns when the current period of the given type closes.
func (c *Calculator) PeriodEnd(pt Type) (time.Time, error) {
	_, end, err := c.Bounds(pt, c.now())
	return end, err
}

// Now returns the calculator's current time in the business timezone.
func (c *Calculator) Now() time.Time {
	return c.now().In(c.loc)
}

// ParseWeekStart parses a YYYY-MM-DD date and requires it to be a Monday.
func (c *Calculator) ParseWeekStart(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, c.loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	if t.Weekday() != time.Monday {
		return time.Time{}, ErrNotWeekStart
	}
	return t, nil
}

// ParseMonthStart parses a YYYY-MM-DD date and requires it to be the first of a month.
func (c *Calculator) ParseMonthStart(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, c.loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	if t.Day() != 1 {
		return time.Time{}, ErrNotMonthStart
	}
	return t, nil
}

// ValidType reports whether s names a known period type.
func ValidType(s string) bool {
	switch Type(s) {
	case TypeDaily, TypeWeekly, TypeMonthly:
		return true
	}
	return false
}
