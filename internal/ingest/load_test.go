package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/file-mapper/internal/config"
	"github.com/ginjaninja78/file-mapper/internal/logging"
	"github.com/ginjaninja78/file-mapper/internal/types"
)

func testLoader() *Loader {
	return NewLoader(DefaultRegistry(config.Default().CSV))
}

func testContext() context.Context {
	return logging.WithLogger(context.Background(), logging.Discard())
}

func TestLoad_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    File
		format  types.Format
		rows    int
		headers []string
	}{
		{
			name:    "csv by suffix",
			file:    File{Name: "data.CSV", Data: []byte("Date,Amount\n2024-01-01,12.50\n2024-01-02,-3\n")},
			format:  types.FormatCSV,
			rows:    2,
			headers: []string{"Date", "Amount"},
		},
		{
			name:    "ofx by content type",
			file:    File{Name: "upload.bin", ContentType: "application/x-ofx", Data: []byte("<OFX><STMTTRN><DTPOSTED>20240101<TRNAMT>-12.50<NAME>Coffee</STMTTRN></OFX>")},
			format:  types.FormatOFX,
			rows:    1,
			headers: []string{"DTPOSTED", "TRNAMT", "NAME"},
		},
		{
			name:    "json",
			file:    File{Name: "rows.json", Data: []byte(`[{"a": 1}, {"a": 2}]`)},
			format:  types.FormatJSON,
			rows:    2,
			headers: []string{"a"},
		},
		{
			name:    "xml",
			file:    File{Name: "rows.xml", ContentType: "text/xml; charset=utf-8", Data: []byte("<rows><row><x>1</x></row></rows>")},
			format:  types.FormatXML,
			rows:    1,
			headers: []string{"x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := testLoader().Load(testContext(), tt.file)
			require.NoError(t, err)
			assert.Equal(t, tt.format, ds.Format)
			assert.Equal(t, tt.file.Name, ds.SourceName)
			assert.Equal(t, tt.rows, ds.Len())
			assert.Equal(t, tt.headers, ds.Headers())
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file File
		want error
	}{
		{"unsupported", File{Name: "notes.txt", Data: []byte("hello")}, types.ErrUnsupportedFormat},
		{"bad csv", File{Name: "a.csv", Data: []byte("a,b\n1,2,3\n")}, types.ErrInvalidCsv},
		{"header only csv", File{Name: "a.csv", Data: []byte("a,b\n")}, types.ErrEmptyDataset},
		{"ofx without root", File{Name: "a.ofx", Data: []byte("OFXHEADER:100\n")}, types.ErrMissingOfxRoot},
		{"ofx without transactions", File{Name: "a.qfx", Data: []byte("<OFX></OFX>")}, types.ErrNoTransactions},
		{"json object", File{Name: "a.json", Data: []byte(`{"a": 1}`)}, types.ErrNotAnArray},
		{"json of empty objects", File{Name: "a.json", Data: []byte(`[{}, {}]`)}, types.ErrEmptyDataset},
		{"xml without rows", File{Name: "a.xml", Data: []byte("<rows/>")}, types.ErrInvalidXmlFormat},
		{"broken spreadsheet", File{Name: "a.xlsx", Data: []byte("not a zip")}, types.ErrReadFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := testLoader().Load(testContext(), tt.file)
			require.Error(t, err)
			assert.Nil(t, ds)
			assert.ErrorIs(t, err, tt.want)
			assert.NotEmpty(t, types.Message(err))
		})
	}
}

func TestLoad_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(testContext())
	cancel()

	_, err := testLoader().Load(ctx, File{Name: "a.csv", Data: []byte("a\n1\n")})
	assert.ErrorIs(t, err, types.ErrReadFailure)
}

func TestLoad_UnclassifiedParserError(t *testing.T) {
	r := NewRegistry()
	r.Register(ParserFunc{Kind: types.FormatCSV, Fn: func([]byte) (*types.Dataset, error) {
		return nil, errors.New("boom")
	}})

	_, err := NewLoader(r).Load(testContext(), File{Name: "a.csv"})
	assert.ErrorIs(t, err, types.ErrReadFailure)
	assert.Contains(t, err.Error(), "boom")
}

func TestLoad_MissingParser(t *testing.T) {
	_, err := NewLoader(NewRegistry()).Load(testContext(), File{Name: "a.csv"})
	assert.ErrorIs(t, err, types.ErrUnsupportedFormat)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\n1\n"), 0o644))

	f, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "in.csv", f.Name)
	assert.Equal(t, "", f.ContentType)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, types.ErrReadFailure)
}

func TestReadFrom_Limit(t *testing.T) {
	f, err := ReadFrom("a.csv", "text/csv", strings.NewReader("12345"), 5)
	require.NoError(t, err)
	assert.Len(t, f.Data, 5)

	_, err = ReadFrom("a.csv", "text/csv", strings.NewReader("123456"), 5)
	assert.ErrorIs(t, err, types.ErrReadFailure)
}

func TestRegistry_Formats(t *testing.T) {
	formats := DefaultRegistry(config.Default().CSV).Formats()
	assert.ElementsMatch(t, types.Formats, formats)
}
