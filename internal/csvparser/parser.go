// =============================================================================
// File Mapper - CSV Parser Module
// =============================================================================
//
// This module parses CSV text into a Dataset. It handles:
//   - Comma (or configured) delimiter with double-quote quoting
//   - The first line as the header row
//   - Blank and whitespace-only lines (skipped)
//   - Numeric and boolean coercion of cell values
//
// FAILURE MODES:
//   - Any row-level reader error, including a row whose field count differs
//     from the header, fails with ErrInvalidCsv.
//   - A header row with no data rows fails with ErrEmptyDataset.
//   - An empty header cell fails with ErrInvalidCsv when strict headers are
//     enabled; otherwise it is renamed Column_N.
//
// =============================================================================

package csvparser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ginjaninja78/file-mapper/internal/config"
	"github.com/ginjaninja78/file-mapper/internal/types"
)

// utf8BOM is stripped from the start of the input.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads CSV text and returns the parsed dataset.
//
// PARAMETERS:
//   - data: The raw CSV bytes.
//   - settings: The CSV parsing settings.
//
// RETURNS:
//   - The dataset, one row per non-blank data line, keys equal to the headers.
//   - An error wrapping ErrInvalidCsv or ErrEmptyDataset.
//
// PARSING PROCESS:
//   1. Configure the CSV reader with the delimiter and quote settings
//   2. Read and clean the header row
//   3. Read data rows, skipping blank ones
//   4. Convert each row to a types.Row, coercing values
func Parse(data []byte, settings config.CSVSettings) (*types.Dataset, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	configureReader(reader, settings)

	// Read the header row.
	record, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, types.Wrap(types.ErrEmptyDataset, "file has no header row")
	}
	if err != nil {
		return nil, types.Wrap(types.ErrInvalidCsv, "%v", err)
	}

	headers, err := cleanHeaders(record, settings.StrictHeaders)
	if err != nil {
		return nil, err
	}

	rows, err := extractDataRows(reader, headers, settings)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, types.Wrap(types.ErrEmptyDataset, "header row only")
	}

	return &types.Dataset{
		Format: types.FormatCSV,
		Rows:   rows,
	}, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	reader.Comma = settings.DelimiterRune()

	// Field counts are checked after blank rows are skipped.
	reader.FieldsPerRecord = -1

	// Quotes must follow RFC 4180; a stray quote is a row-level error.
	reader.LazyQuotes = false

	// Leading spaces are data. Trimming them would break round trips.
	reader.TrimLeadingSpace = false
}

// cleanHeaders trims header cells, resolves empty names and makes duplicate
// names unique by suffixing _1, _2, ...
//
// PARAMETERS:
//   - headers: The raw header cells.
//   - strict: Whether an empty header cell is an error.
//
// RETURNS:
//   - Cleaned header values.
//   - An error wrapping ErrInvalidCsv for an empty header in strict mode.
func cleanHeaders(headers []string, strict bool) ([]string, error) {
	cleaned := make([]string, len(headers))
	seen := make(map[string]int, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(header)

		if header == "" {
			if strict {
				return nil, types.Wrap(types.ErrInvalidCsv, "header cell %d is empty", i+1)
			}
			header = fmt.Sprintf("Column_%d", i+1)
		}

		cleaned[i] = types.UniqueName(header, seen)
	}

	return cleaned, nil
}

// extractDataRows reads the remaining records and converts them to rows.
func extractDataRows(reader *csv.Reader, headers []string, settings config.CSVSettings) ([]*types.Row, error) {
	var rows []*types.Row

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, types.Wrap(types.ErrInvalidCsv, "%v", err)
		}

		// Skip blank lines.
		if isBlankLine(record, len(headers)) {
			continue
		}

		if len(record) != len(headers) {
			line, _ := reader.FieldPos(0)
			return nil, types.Wrap(types.ErrInvalidCsv,
				"line %d: expected %d fields, got %d", line, len(headers), len(record))
		}

		row := types.NewRow()
		for i, header := range headers {
			if settings.Coerce {
				row.Set(header, types.Coerce(record[i]))
			} else {
				row.Set(header, types.Text(record[i]))
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// isBlankLine reports whether a record came from a blank or whitespace-only
// line. A row of empty fields such as ",," is data and is kept.
func isBlankLine(record []string, width int) bool {
	if len(record) != 1 || strings.TrimSpace(record[0]) != "" {
		return false
	}
	// A single-column file writes an empty value as a quoted "" line, which
	// the reader returns as one empty field.
	return width > 1 || record[0] != ""
}
