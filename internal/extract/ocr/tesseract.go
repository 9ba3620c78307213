//go:build cgo

// Package ocr binds the Tesseract engine to extract.Recognizer. Builds
// without cgo get a stand-in that reports OCR as unavailable.
package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract recognizes text with libtesseract. A client is not safe for
// concurrent use, so each call gets its own; the semaphore bounds how many
// engines run at once.
type Tesseract struct {
	languages []string
	sem       chan struct{}
}

// NewTesseract builds a recognizer for the given language codes (e.g. "spa", "eng").
// maxConcurrent below 1 means 1.
func NewTesseract(languages []string, maxConcurrent int) *Tesseract {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Tesseract{
		languages: languages,
		sem:       make(chan struct{}, maxConcurrent),
	}
}

// Version reports the linked libtesseract version.
func (t *Tesseract) Version() string {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}

// Recognize runs OCR on encoded image bytes.
func (t *Tesseract) Recognize(ctx context.Context, data []byte) (string, error) {
	select {
	case t.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-t.sem }()

	client := gosseract.NewClient()
	defer client.Close()

	if len(t.languages) > 0 {
		if err := client.SetLanguage(t.languages...); err != nil {
			return "", fmt.Errorf("set language: %w", err)
		}
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return text, nil
}
