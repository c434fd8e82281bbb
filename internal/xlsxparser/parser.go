// =============================================================================
// Patient Import - XLSX Parser Module
// =============================================================================
//
// Clinics frequently hand over spreadsheets instead of delimited text. This
// module reads an .xlsx workbook into the same CSVData structure the CSV
// parser produces, so the rest of the pipeline never knows the difference.
//
// SHEET LAYOUT:
//   - The first sheet is used unless a sheet name is given
//   - The first non-empty row holds the headers
//   - Every following non-empty row is one RawRow
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/patient-import/internal/csvparser"
	"github.com/ginjaninja78/patient-import/internal/types"
)

// Options selects what part of the workbook to read.
type Options struct {
	// SheetName is the sheet to read. Empty means the first sheet.
	SheetName string
}

// IsWorkbook reports whether the path looks like an Excel workbook.
func IsWorkbook(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// ParseFile reads a workbook from disk.
//
// PARAMETERS:
//   - path: The path to the .xlsx file.
//   - opts: Sheet selection.
//
// RETURNS:
//   - The parsed rows, or an error. Malformed workbooks surface as a
//     *csvparser.ParseError so callers treat them like broken CSV.
func ParseFile(path string, opts Options) (*csvparser.CSVData, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &csvparser.ParseError{Err: fmt.Errorf("failed to open workbook: %w", err)}
	}
	defer f.Close()

	data, err := parseWorkbook(f, opts)
	if err != nil {
		return nil, err
	}
	data.SourceFile = path
	return data, nil
}

// Parse reads a workbook from r.
func Parse(r io.Reader, opts Options) (*csvparser.CSVData, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &csvparser.ParseError{Err: fmt.Errorf("failed to open workbook: %w", err)}
	}
	defer f.Close()

	return parseWorkbook(f, opts)
}

func parseWorkbook(f *excelize.File, opts Options) (*csvparser.CSVData, error) {
	sheetName := opts.SheetName
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, &csvparser.ParseError{Err: fmt.Errorf("workbook has no sheets")}
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, &csvparser.ParseError{Err: fmt.Errorf("failed to read rows of sheet %q: %w", sheetName, err)}
	}

	var (
		headers []string
		records []types.RawRow
	)

	for i, row := range rows {
		if len(row) == 0 || csvparser.IsRowEmpty(row) {
			continue
		}

		if headers == nil {
			headers = csvparser.CleanHeaders(row)
			continue
		}

		// Excel rows are 1-indexed.
		records = append(records, types.NewRawRow(headers, row, i+1))
	}

	if headers == nil {
		return nil, &csvparser.ParseError{Err: fmt.Errorf("sheet %q is empty", sheetName)}
	}

	return &csvparser.CSVData{
		Headers:     headers,
		Rows:        records,
		RowCount:    len(records),
		ColumnCount: len(headers),
	}, nil
}
