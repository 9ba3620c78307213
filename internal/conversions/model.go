package conversions

import (
	"time"

	"docproc-backend/internal/shared/patch"
)

// Status is the lifecycle state of a conversion job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transitions happen from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Conversion is a request to render a document's text into another format.
type Conversion struct {
	ID             int64
	DocumentID     int64
	FromFormat     string // MIME type of the source document
	ToFormat       string
	Status         Status
	OutputFilename *string // storage key of the rendered output
	ErrorMessage   *string
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

// NewConversion holds the caller-supplied fields of a conversion.
type NewConversion struct {
	DocumentID int64
	FromFormat string
	ToFormat   string
}

// Patch is a partial update; present fields replace stored values.
type Patch struct {
	Status         *Status
	OutputFilename patch.Field[string]
	ErrorMessage   patch.Field[string]
	CompletedAt    patch.Field[time.Time]
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Status == nil && !p.OutputFilename.Set && !p.ErrorMessage.Set && !p.CompletedAt.Set
}

// Apply writes the patch into c.
func (p Patch) Apply(c *Conversion) {
	if p.Status != nil {
		c.Status = *p.Status
	}
	p.OutputFilename.Apply(&c.OutputFilename)
	p.ErrorMessage.Apply(&c.ErrorMessage)
	p.CompletedAt.Apply(&c.CompletedAt)
}

func clone(c Conversion) Conversion {
	out := c
	out.OutputFilename = clonePtr(c.OutputFilename)
	out.ErrorMessage = clonePtr(c.ErrorMessage)
	out.CompletedAt = clonePtr(c.CompletedAt)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
