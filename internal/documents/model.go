package documents

import (
	"time"

	"docproc-backend/internal/extract"
	"docproc-backend/internal/shared/patch"
)

// Status is the extraction lifecycle state of a document.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusError:
		return true
	}
	return false
}

// Document is an uploaded file and everything derived from it.
type Document struct {
	ID            int64
	Filename      string // storage key of the uploaded bytes
	OriginalName  string
	MimeType      string
	Size          int64
	Status        Status
	ExtractedText *string
	Metadata      *extract.Metadata
	Summary       *string
	ErrorMessage  *string
	UploadedAt    time.Time
	ProcessedAt   *time.Time
	UserID        *int64
}

// NewDocument holds the caller-supplied fields of a document. The store
// assigns the id, status and upload time.
type NewDocument struct {
	Filename     string
	OriginalName string
	MimeType     string
	Size         int64
	UserID       *int64
}

// Patch is a partial update. Every field that is present fully replaces the
// stored value; Metadata is never merged.
type Patch struct {
	Status        *Status
	ExtractedText patch.Field[string]
	Metadata      patch.Field[extract.Metadata]
	Summary       patch.Field[string]
	ErrorMessage  patch.Field[string]
	ProcessedAt   patch.Field[time.Time]
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Status == nil && !p.ExtractedText.Set && !p.Metadata.Set &&
		!p.Summary.Set && !p.ErrorMessage.Set && !p.ProcessedAt.Set
}

// Apply writes the patch into doc.
func (p Patch) Apply(doc *Document) {
	if p.Status != nil {
		doc.Status = *p.Status
	}
	p.ExtractedText.Apply(&doc.ExtractedText)
	p.Metadata.Apply(&doc.Metadata)
	if doc.Metadata != nil {
		doc.Metadata.Sheets = cloneStrings(doc.Metadata.Sheets)
		if doc.Metadata.Dimensions != nil {
			dims := *doc.Metadata.Dimensions
			doc.Metadata.Dimensions = &dims
		}
	}
	p.Summary.Apply(&doc.Summary)
	p.ErrorMessage.Apply(&doc.ErrorMessage)
	p.ProcessedAt.Apply(&doc.ProcessedAt)
}

// clone returns a copy of doc that shares no pointers with it.
func clone(doc Document) Document {
	out := doc
	out.ExtractedText = clonePtr(doc.ExtractedText)
	out.Summary = clonePtr(doc.Summary)
	out.ErrorMessage = clonePtr(doc.ErrorMessage)
	out.ProcessedAt = clonePtr(doc.ProcessedAt)
	out.UserID = clonePtr(doc.UserID)
	if doc.Metadata != nil {
		md := *doc.Metadata
		md.Sheets = cloneStrings(md.Sheets)
		md.Dimensions = clonePtr(md.Dimensions)
		out.Metadata = &md
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
