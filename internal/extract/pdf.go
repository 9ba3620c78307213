package extract

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/ledongthuc/pdf"
)

const formatPDF = "PDF"

// PDFExtractor reads the text layer of every page.
type PDFExtractor struct{}

func (PDFExtractor) Extract(ctx context.Context, data []byte) (res Result, err error) {
	defer guard(formatPDF, &err)
	if len(data) == 0 {
		return Result{}, fail(formatPDF, errors.New("empty file"))
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fail(formatPDF, err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return Result{}, fail(formatPDF, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return Result{}, fail(formatPDF, err)
	}

	res = textResult(buf.String())
	res.Metadata.Pages = reader.NumPage()
	return res, nil
}
