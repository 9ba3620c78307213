package extract

import (
	"context"
	"errors"
)

const formatWord = "Word document"

// WordExtractor handles docx. A docx body declared as application/msword is
// read normally; the legacy binary format is rejected.
type WordExtractor struct{}

func (WordExtractor) Extract(ctx context.Context, data []byte) (Result, error) {
	switch {
	case isOLE(data):
		return Result{}, fail(formatWord, errors.New("legacy binary .doc format is not supported"))
	case !isZip(data):
		return Result{}, fail(formatWord, errors.New("not an Office Open XML document"))
	}

	zr, err := openZip(data)
	if err != nil {
		return Result{}, fail(formatWord, err)
	}
	raw, err := readZipEntry(zr, "word/document.xml")
	if err != nil {
		return Result{}, fail(formatWord, err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	text, err := ooxmlText(raw)
	if err != nil {
		return Result{}, fail(formatWord, err)
	}
	return textResult(text), nil
}
