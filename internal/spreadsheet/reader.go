// Package spreadsheet reads uploaded workbook files into raw header-keyed
// rows for the normalizer.  Only the first sheet of a workbook is read; CSV
// files are treated as a single-sheet workbook.
package spreadsheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/utsavhq/guestsheet/internal/normalize"
)

// ErrParse wraps any malformed or unreadable upload.  Handlers translate it
// to a 400 and leave no partial import behind.
var ErrParse = errors.New("spreadsheet: unreadable file")

// Read parses an uploaded spreadsheet into raw rows keyed by the header row.
// filename selects the format: ".csv" goes through the CSV reader, anything
// else through excelize.  Rows with no non-empty cell are skipped; everything
// else is kept in file order.
func Read(r io.Reader, filename string) ([]normalize.RawRow, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.HasSuffix(strings.ToLower(filename), ".csv") {
		rows, err = readCSV(r)
	} else {
		rows, err = readWorkbook(r)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: file has no rows", ErrParse)
	}
	return keyByHeader(rows), nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	return cr.ReadAll()
}

func readWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

// keyByHeader turns the first row into column keys and every later row into a
// header->value map.  Short rows simply leave trailing columns unset.
func keyByHeader(rows [][]string) []normalize.RawRow {
	header := rows[0]
	out := make([]normalize.RawRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if emptyRow(row) {
			continue
		}
		raw := normalize.RawRow{}
		for i, h := range header {
			h = strings.TrimSpace(h)
			if h == "" || i >= len(row) {
				continue
			}
			raw[h] = row[i]
		}
		out = append(out, raw)
	}
	return out
}

func emptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
