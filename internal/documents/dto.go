package documents

import (
	"time"

	"docproc-backend/internal/extract"
)

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID            int64             `json:"id"`
	Filename      string            `json:"filename"`
	OriginalName  string            `json:"originalName"`
	MimeType      string            `json:"mimeType"`
	Size          int64             `json:"size"`
	Status        Status            `json:"status"`
	ExtractedText *string           `json:"extractedText"`
	Metadata      *extract.Metadata `json:"metadata"`
	Summary       *string           `json:"summary"`
	ErrorMessage  *string           `json:"errorMessage"`
	UploadedAt    time.Time         `json:"uploadedAt"`
	ProcessedAt   *time.Time        `json:"processedAt"`
	UserID        *int64            `json:"userId"`
}

// ExtractionResponse is returned by the extract-text endpoint.
type ExtractionResponse struct {
	Text     string           `json:"text"`
	Metadata extract.Metadata `json:"metadata"`
	Document DocumentResponse `json:"document"`
}

// SummaryResponse is returned by the summarize endpoint.
type SummaryResponse struct {
	Summary  string           `json:"summary"`
	Document DocumentResponse `json:"document"`
}

// ToResponse converts a document for the wire.
func ToResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		ID:            doc.ID,
		Filename:      doc.Filename,
		OriginalName:  doc.OriginalName,
		MimeType:      doc.MimeType,
		Size:          doc.Size,
		Status:        doc.Status,
		ExtractedText: doc.ExtractedText,
		Metadata:      doc.Metadata,
		Summary:       doc.Summary,
		ErrorMessage:  doc.ErrorMessage,
		UploadedAt:    doc.UploadedAt,
		ProcessedAt:   doc.ProcessedAt,
		UserID:        doc.UserID,
	}
}

func toResponses(docs []Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, ToResponse(d))
	}
	return out
}
