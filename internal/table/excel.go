package table

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet names that capture exports commonly use. Checked before
// falling back to a content scan.
var candidateSheets = []string{"Data", "Raw Data", "All Data", "Sheet1", "Sheet 1"}

// LoadExcel reads the first plausible worksheet of an xlsx/xls
// workbook into a table.
func LoadExcel(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	defer f.Close()

	rows, sheetName, err := findDataSheet(f)
	if err != nil {
		return nil, err
	}

	headerRow := findHeaderRow(rows)
	if headerRow == -1 {
		return nil, fmt.Errorf("%w: no header row in sheet %q", ErrUnreadableFile, sheetName)
	}
	if headerRow+1 >= len(rows) {
		return nil, fmt.Errorf("%w: sheet %q has a header but no data rows", ErrUnreadableFile, sheetName)
	}

	slog.Debug("parsed workbook sheet",
		slog.String("path", path),
		slog.String("sheet", sheetName),
		slog.Int("header_row", headerRow),
		slog.Int("total_rows", len(rows)))

	return New(buildColumns(rows[headerRow], rows[headerRow+1:])), nil
}

// findDataSheet tries the common sheet names first, then any sheet
// with more than one row.
func findDataSheet(f *excelize.File) ([][]string, string, error) {
	for _, name := range candidateSheets {
		if rows, err := f.GetRows(name); err == nil && len(rows) > 1 {
			return rows, name, nil
		}
	}

	for _, name := range f.GetSheetList() {
		if rows, err := f.GetRows(name); err == nil && len(rows) > 1 {
			return rows, name, nil
		}
	}

	return nil, "", fmt.Errorf("%w: workbook has no sheet with data", ErrUnreadableFile)
}

// findHeaderRow returns the index of the first row that looks like a
// header: at least two non-empty cells, none of which parse as a
// number. Capture exports occasionally carry a title row with a single
// cell above the real header.
func findHeaderRow(rows [][]string) int {
	for i, row := range rows {
		nonEmpty := 0
		numeric := false
		for _, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			nonEmpty++
			if _, ok := parseCell(cell); ok {
				numeric = true
			}
		}
		if nonEmpty >= 2 && !numeric {
			return i
		}
	}
	return -1
}
