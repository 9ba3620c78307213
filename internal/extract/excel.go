package extract

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

const formatExcel = "Excel file"

// ExcelExtractor renders every sheet, in workbook order, as a "Sheet: <name>"
// header followed by tab-separated rows. The container is chosen by content,
// so a workbook saved with the wrong extension still reads.
type ExcelExtractor struct{}

type sheet struct {
	name string
	rows [][]string
}

func (ExcelExtractor) Extract(ctx context.Context, data []byte) (res Result, err error) {
	defer guard(formatExcel, &err)

	var sheets []sheet
	switch {
	case isZip(data):
		sheets, err = readXLSX(data)
	case isOLE(data):
		sheets, err = readXLS(data)
	default:
		err = errors.New("not a spreadsheet")
	}
	if err != nil {
		return Result{}, fail(formatExcel, err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var buf strings.Builder
	names := make([]string, 0, len(sheets))
	for _, s := range sheets {
		names = append(names, s.name)
		buf.WriteString("Sheet: ")
		buf.WriteString(s.name)
		buf.WriteByte('\n')
		buf.WriteString(renderRows(s.rows))
		buf.WriteString("\n\n")
	}

	res = textResult(buf.String())
	res.Metadata.Sheets = names
	return res, nil
}

func readXLSX(data []byte) ([]sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, err
		}
		out = append(out, sheet{name: name, rows: rows})
	}
	return out, nil
}

func readXLS(data []byte) ([]sheet, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if wb == nil {
		return nil, errors.New("no workbook stream in file")
	}

	var out []sheet
	for i := 0; i < wb.NumSheets(); i++ {
		ws := wb.GetSheet(i)
		if ws == nil {
			continue
		}
		var rows [][]string
		for r := 0; r <= int(ws.MaxRow); r++ {
			row := ws.Row(r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			var cells []string
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			rows = append(rows, cells)
		}
		out = append(out, sheet{name: ws.Name, rows: trimTrailingEmpty(rows)})
	}
	return out, nil
}

func renderRows(rows [][]string) string {
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = strings.Join(row, "\t")
	}
	return strings.Join(lines, "\n")
}

func trimTrailingEmpty(rows [][]string) [][]string {
	for len(rows) > 0 && len(rows[len(rows)-1]) == 0 {
		rows = rows[:len(rows)-1]
	}
	return rows
}
