package leaderboard

import "errors"

var (
	ErrInvalidPeriod = errors.New("invalid leaderboard period")
	ErrInternal      = errors.New("internal leaderboard error")
)
