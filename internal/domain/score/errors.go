package score

import "errors"

var (
	// ErrInvalidPeriod is returned when a close is requested for a malformed
	// or misaligned period start
	ErrInvalidPeriod = errors.New("invalid period start")

	ErrInternal = errors.New("internal error")
)
