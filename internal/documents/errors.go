package documents

import "errors"

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrTooLarge     = errors.New("file exceeds maximum upload size")
	ErrPrecondition = errors.New("document text must be extracted first")
)
