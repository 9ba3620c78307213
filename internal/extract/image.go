package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

const formatImage = "image"

// Recognizer performs optical character recognition on encoded image bytes.
type Recognizer interface {
	Recognize(ctx context.Context, data []byte) (string, error)
}

// ErrOCRUnavailable is returned when no recognizer is configured.
var ErrOCRUnavailable = errors.New("ocr engine not configured")

// ImageExtractor reads the pixel size from the image header and the text via OCR.
type ImageExtractor struct {
	Recognizer Recognizer
}

func (e ImageExtractor) Extract(ctx context.Context, data []byte) (Result, error) {
	cfg, kind, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Result{}, fail(formatImage, fmt.Errorf("decode header: %w", err))
	}
	if e.Recognizer == nil {
		return Result{}, fail(formatImage, ErrOCRUnavailable)
	}

	text, err := e.Recognizer.Recognize(ctx, data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		return Result{}, fail(formatImage, fmt.Errorf("ocr %s: %w", kind, err))
	}

	res := textResult(strings.TrimSpace(text))
	res.Metadata.Dimensions = &Dimensions{Width: cfg.Width, Height: cfg.Height}
	return res, nil
}
