package task

import "errors"

var (
	// ErrTaskNotFound is returned when no active definition matches a slug
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidIncrement is returned when increment is <= 0
	ErrInvalidIncrement = errors.New("invalid increment: must be greater than 0")

	ErrInternal = errors.New("internal error")
)
