// =============================================================================
// File Mapper - Exporters
// =============================================================================
//
// This package serializes mapped rows into downloadable artifacts:
//
//   | Format | File name        | Content type      |
//   |--------|------------------|-------------------|
//   | csv    | mapped_data.csv  | text/csv          |
//   | ofx    | mapped_data.ofx  | application/x-ofx |
//
// The CSV exporter writes exactly the mapped columns. The OFX exporter wraps
// every row in a fixed bank statement envelope and reads its fields through
// the alias table (see ofx.go).
//
// =============================================================================

package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ginjaninja78/file-mapper/internal/types"
)

// Format is an output format.
type Format string

const (
	FormatCSV Format = "csv"
	FormatOFX Format = "ofx"
)

// Formats lists every output format.
var Formats = []Format{FormatCSV, FormatOFX}

// DefaultBaseName is the file name of an artifact without its extension.
const DefaultBaseName = "mapped_data"

// ParseFormat reads a format name, case-insensitively.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatOFX:
		return FormatOFX, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want csv or ofx)", name)
	}
}

// Extension returns the file extension of f, with the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatOFX:
		return "application/x-ofx"
	default:
		return "text/csv"
	}
}

// FileName returns the artifact file name for f, mapped_data.csv or
// mapped_data.ofx.
func (f Format) FileName() string {
	return DefaultBaseName + f.Extension()
}

// Artifact is a serialized export ready for download.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// Write serializes rows in format f to w.
//
// PARAMETERS:
//   - f: The output format.
//   - mapping: The validated mapping the rows were produced with. Its target
//     order is the CSV column order.
//   - rows: The mapped rows.
//   - opts: OFX settings, ignored for CSV.
func Write(w io.Writer, f Format, mapping *types.ColumnMapping, rows []*types.Row, opts OFXOptions) error {
	switch f {
	case FormatCSV:
		return CSV(w, mapping, rows)
	case FormatOFX:
		return OFX(w, rows, opts)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

// Build serializes rows into an in-memory artifact named after f.
func Build(f Format, mapping *types.ColumnMapping, rows []*types.Row, opts OFXOptions) (*Artifact, error) {
	var buf bytes.Buffer
	if err := Write(&buf, f, mapping, rows, opts); err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", f, err)
	}

	return &Artifact{
		Name:        f.FileName(),
		ContentType: f.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}
