package admin

// RecomputeWeeklyRequest names the week to close. The date must be a Monday
// in the business timezone.
type RecomputeWeeklyRequest struct {
	WeekStart string `json:"week_start" validate:"required"`
}

// RecomputeMonthlyRequest names the month to close. The date must be the
// first of a month.
type RecomputeMonthlyRequest struct {
	MonthStart string `json:"month_start" validate:"required"`
}
