package ledger

import "errors"

var (
	// ErrDuplicateReference is returned when a credit with the same
	// (user_id, reason, reference_id) was already applied. Expected under
	// concurrent retries, not a failure.
	ErrDuplicateReference = errors.New("duplicate ledger reference")

	// ErrInvalidDelta is returned when points delta is zero
	ErrInvalidDelta = errors.New("invalid points delta: must be non-zero")

	// ErrInvalidReason is returned when reason is empty
	ErrInvalidReason = errors.New("invalid reason: must not be empty")

	ErrInternal = errors.New("internal error")
)
