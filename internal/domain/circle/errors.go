package circle

import "errors"

var (
	ErrCircleNotFound = errors.New("circle not found")
	ErrInternal       = errors.New("internal circle error")
)
