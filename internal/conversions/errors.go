package conversions

import "errors"

var (
	ErrNotFound     = errors.New("conversion not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotReady     = errors.New("conversion output not available")
)
