//go:build !cgo

package ocr

import (
	"context"

	"docproc-backend/internal/extract"
)

// Tesseract is the cgo-free stand-in: libtesseract is not linked, so every
// image fails with extract.ErrOCRUnavailable.
type Tesseract struct{}

// NewTesseract ignores its arguments in builds without cgo.
func NewTesseract(languages []string, maxConcurrent int) *Tesseract {
	return &Tesseract{}
}

// Version is empty when libtesseract is not linked.
func (t *Tesseract) Version() string { return "" }

// Recognize always reports OCR as unavailable.
func (t *Tesseract) Recognize(context.Context, []byte) (string, error) {
	return "", extract.ErrOCRUnavailable
}
