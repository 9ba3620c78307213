package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

const formatCSV = "CSV file"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TextExtractor returns the file content as-is, BOM included.
// Invalid UTF-8 sequences become U+FFFD.
type TextExtractor struct{}

func (TextExtractor) Extract(_ context.Context, data []byte) (Result, error) {
	return textResult(strings.ToValidUTF8(string(data), "\uFFFD")), nil
}

// CSVExtractor renders the table as tab-separated rows.
type CSVExtractor struct{}

func (CSVExtractor) Extract(ctx context.Context, data []byte) (Result, error) {
	// A BOM would otherwise end up in the first header cell.
	r := csv.NewReader(strings.NewReader(decodeText(data)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fail(formatCSV, err)
		}
		rows = append(rows, record)
		if len(rows)%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
	}
	return textResult(renderRows(rows)), nil
}

func decodeText(data []byte) string {
	return strings.ToValidUTF8(string(bytes.TrimPrefix(data, utf8BOM)), "�")
}
