package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/file-mapper/internal/types"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		contentType string
		want        types.Format
	}{
		{"csv by type", "export", "text/csv", types.FormatCSV},
		{"csv type with charset", "export.bin", "text/csv; charset=utf-8", types.FormatCSV},
		{"csv by suffix", "bank.CSV", "", types.FormatCSV},
		{"ofx by suffix", "statement.ofx", "", types.FormatOFX},
		{"qfx by suffix", "statement.qfx", "application/octet-stream", types.FormatOFX},
		{"json by type", "data.txt", "application/json", types.FormatJSON},
		{"xml by suffix", "rows.xml", "", types.FormatXML},
		{"xlsx by mime", "upload", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", types.FormatSpreadsheet},
		{"xlsx by suffix", "book.xlsx", "", types.FormatSpreadsheet},
		{"xls by suffix", "legacy.xls", "", types.FormatSpreadsheet},
		{"content type wins over suffix", "data.csv", "application/json", types.FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(tt.file, tt.contentType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectUnsupported(t *testing.T) {
	_, err := Detect("notes.txt", "text/plain")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUnsupportedFormat)

	_, err = Detect("", "")
	assert.ErrorIs(t, err, types.ErrUnsupportedFormat)
}
