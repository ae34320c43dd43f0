// =============================================================================
// File Mapper - Spreadsheet Parser
// =============================================================================
//
// This module is responsible for reading the first sheet of a spreadsheet
// workbook into a Dataset. Two container formats are supported:
//   - OOXML workbooks (.xlsx), read with excelize
//   - Legacy BIFF workbooks (.xls), read with extrame/xls
//
// The container is chosen from the leading magic bytes, not the file name.
//
// SHEET LAYOUT:
//   The first non-empty row is the header row. Every later non-empty row is
//   a data row keyed by the header of its column.
//
//   | Date       | Description | (empty) | Amount |
//   |------------|-------------|---------|--------|
//   | 2024-01-01 | Coffee      |         | -12.5  |
//
//   - Empty header cells are named __EMPTY, __EMPTY_1, ...
//   - Repeated headers are suffixed _1, _2, ...
//   - Blank cells are omitted from the row, so later rows may lack keys.
//   - Cell values are coerced the same way as CSV cells.
//
// =============================================================================

package xlsxparser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/file-mapper/internal/types"
)

// EmptyHeader is the base name given to an empty header cell.
const EmptyHeader = "__EMPTY"

// legacyCharset is the code page assumed for pre-BIFF8 workbooks.
const legacyCharset = "cp1252"

var (
	zipMagic = []byte("PK\x03\x04")
	cfbMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads the first sheet of a workbook.
//
// PARAMETERS:
//   - data: The raw workbook bytes.
//
// RETURNS:
//   - The dataset, one row per non-empty data row.
//   - An error wrapping ErrReadFailure when the workbook cannot be decoded,
//     or ErrEmptyDataset when the sheet has no data rows.
func Parse(data []byte) (*types.Dataset, error) {
	grid, err := readFirstSheet(data)
	if err != nil {
		return nil, types.Wrap(types.ErrReadFailure, "%v", err)
	}

	rows := buildRows(grid)
	if len(rows) == 0 {
		return nil, types.Wrap(types.ErrEmptyDataset, "first sheet has no data rows")
	}

	return &types.Dataset{
		Format: types.FormatSpreadsheet,
		Rows:   rows,
	}, nil
}

// SheetNames lists the sheets of a workbook in order. Only the first is
// ingested; the list is shown by the inspect command.
func SheetNames(data []byte) ([]string, error) {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook: %w", err)
		}
		defer f.Close()
		return f.GetSheetList(), nil

	case bytes.HasPrefix(data, cfbMagic):
		wb, err := openBIFF(data)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, wb.NumSheets())
		for i := 0; i < wb.NumSheets(); i++ {
			if sheet := wb.GetSheet(i); sheet != nil {
				names = append(names, sheet.Name)
			}
		}
		return names, nil

	default:
		return nil, fmt.Errorf("not a spreadsheet workbook")
	}
}

// readFirstSheet returns the cell grid of the first sheet. Missing cells at
// the end of a row are not represented.
func readFirstSheet(data []byte) ([][]string, error) {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return readOOXML(data)
	case bytes.HasPrefix(data, cfbMagic):
		return readBIFF(data)
	default:
		return nil, fmt.Errorf("not a spreadsheet workbook (%d bytes)", len(data))
	}
}

// readOOXML reads the first sheet of an .xlsx workbook with raw cell values,
// so numbers are not rounded to their display format.
func readOOXML(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	grid, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %q: %w", sheetName, err)
	}

	return grid, nil
}

// readBIFF reads the first sheet of a legacy .xls workbook.
func readBIFF(data []byte) (grid [][]string, err error) {
	wb, err := openBIFF(data)
	if err != nil {
		return nil, err
	}

	// The BIFF reader indexes records without bounds checks.
	defer func() {
		if r := recover(); r != nil {
			grid, err = nil, fmt.Errorf("corrupt workbook: %v", r)
		}
	}()

	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("could not read first sheet")
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}

		cells := make([]string, row.LastCol())
		for c := row.FirstCol(); c < row.LastCol(); c++ {
			cells[c] = row.Col(c)
		}
		grid = append(grid, cells)
	}

	return grid, nil
}

// openBIFF opens a legacy workbook, turning reader panics on truncated
// input into errors.
func openBIFF(data []byte) (wb *xls.WorkBook, err error) {
	defer func() {
		if r := recover(); r != nil {
			wb, err = nil, fmt.Errorf("corrupt workbook: %v", r)
		}
	}()

	wb, err = xls.OpenReader(bytes.NewReader(data), legacyCharset)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return wb, nil
}

// buildRows turns a cell grid into rows keyed by the header row.
func buildRows(grid [][]string) []*types.Row {
	start := -1
	for i, cells := range grid {
		if !isRowEmpty(cells) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	width := 0
	for _, cells := range grid[start:] {
		if len(cells) > width {
			width = len(cells)
		}
	}
	headers := headerNames(grid[start], width)

	var rows []*types.Row
	for _, cells := range grid[start+1:] {
		if isRowEmpty(cells) {
			continue
		}

		row := types.NewRow()
		for c, cell := range cells {
			if cell == "" {
				continue
			}
			row.Set(headers[c], types.Coerce(cell))
		}
		rows = append(rows, row)
	}

	return rows
}

// headerNames names width columns from the header cells.
func headerNames(cells []string, width int) []string {
	names := make([]string, width)
	seen := make(map[string]int, width)

	for c := 0; c < width; c++ {
		name := ""
		if c < len(cells) {
			name = strings.TrimSpace(cells[c])
		}
		if name == "" {
			name = EmptyHeader
		}
		names[c] = types.UniqueName(name, seen)
	}

	return names
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
