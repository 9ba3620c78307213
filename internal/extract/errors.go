package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrFileNotFound means the stored bytes for a document are gone.
	ErrFileNotFound = errors.New("file not found")
	// ErrUnsupportedFormat means no extractor is registered for the MIME type.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrTimeout means extraction did not finish before the context deadline.
	ErrTimeout = errors.New("extraction timed out")
)

// ExtractionError is a format-specific parse or recognition failure.
type ExtractionError struct {
	Format string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("error processing %s: %v", e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func failf(format string, msg string, args ...any) error {
	return &ExtractionError{Format: format, Err: fmt.Errorf(msg, args...)}
}

func fail(format string, err error) error {
	return &ExtractionError{Format: format, Err: err}
}

// guard converts a parser panic into an ExtractionError.
func guard(format string, errp *error) {
	if r := recover(); r != nil {
		*errp = failf(format, "parser panic: %v", r)
	}
}
