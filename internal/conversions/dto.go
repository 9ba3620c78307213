package conversions

import "time"

// ConversionResponse is the outward-facing representation of a conversion.
type ConversionResponse struct {
	ID             int64      `json:"id"`
	DocumentID     int64      `json:"documentId"`
	FromFormat     string     `json:"fromFormat"`
	ToFormat       string     `json:"toFormat"`
	Status         Status     `json:"status"`
	OutputFilename *string    `json:"outputFilename"`
	ErrorMessage   *string    `json:"errorMessage"`
	CreatedAt      time.Time  `json:"createdAt"`
	CompletedAt    *time.Time `json:"completedAt"`
}

type convertRequest struct {
	ToFormat string `json:"toFormat"`
}

func toResponse(c Conversion) ConversionResponse {
	return ConversionResponse{
		ID:             c.ID,
		DocumentID:     c.DocumentID,
		FromFormat:     c.FromFormat,
		ToFormat:       c.ToFormat,
		Status:         c.Status,
		OutputFilename: c.OutputFilename,
		ErrorMessage:   c.ErrorMessage,
		CreatedAt:      c.CreatedAt,
		CompletedAt:    c.CompletedAt,
	}
}
