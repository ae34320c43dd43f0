package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/file-mapper/internal/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestBuild_Defaults(t *testing.T) {
	cfg, err := Build(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, "mapped_data", cfg.OutputNameFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5, cfg.PreviewRows)
	assert.Equal(t, ",", cfg.CSV.Delimiter)
	assert.True(t, cfg.CSV.StrictHeaders)
	assert.True(t, cfg.CSV.Coerce)
	assert.Equal(t, "CREDIT", cfg.OFX.DefaultTrnType)
	assert.Equal(t, int64(32<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, DefaultAliases(), cfg.OFX.Aliases)

	assert.Equal(t, cfg, Default())
}

func TestBuild_FileEnvAndFlags(t *testing.T) {
	path := writeConfig(t, `
output_dir: ./from-file
preview_rows: 10
csv:
  delimiter: ";"
ofx:
  aliases:
    trnamt: [amt, value]
`)
	t.Setenv("CONVERTER_PREVIEW_ROWS", "7")
	t.Setenv("CONVERTER_OUTPUT_DIR", "./from-env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output-dir", ".", "")
	flags.Bool("no-coerce", false, "")
	require.NoError(t, flags.Set("output-dir", "./from-flag"))
	require.NoError(t, flags.Set("no-coerce", "true"))

	cfg, err := Build(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "./from-flag", cfg.OutputDir)
	assert.Equal(t, 7, cfg.PreviewRows)
	assert.Equal(t, ';', cfg.CSV.DelimiterRune())
	assert.False(t, cfg.CSV.Coerce)
	assert.True(t, cfg.CSV.StrictHeaders)

	assert.Equal(t, []string{"amt", "value"}, cfg.OFX.Aliases["TRNAMT"])
	assert.Equal(t, []string{"date"}, cfg.OFX.Aliases["DTPOSTED"])
}

func TestBuild_UnchangedFlagKeepsFileValue(t *testing.T) {
	path := writeConfig(t, "output_dir: ./from-file\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output-dir", ".", "")
	flags.Bool("lax-headers", false, "")

	cfg, err := Build(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "./from-file", cfg.OutputDir)
	assert.True(t, cfg.CSV.StrictHeaders)
}

func TestBuild_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"log level", "log_level: loud\n", "log_level"},
		{"log format", "log_format: xml\n", "log_format"},
		{"delimiter", "csv:\n  delimiter: ';;'\n", "csv.delimiter"},
		{"preview rows", "preview_rows: -1\n", "preview_rows"},
		{"malformed", "output_dir: [\n", "failed to read config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDelimiterRune(t *testing.T) {
	assert.Equal(t, '\t', CSVSettings{Delimiter: "tab"}.DelimiterRune())
	assert.Equal(t, '\t', CSVSettings{Delimiter: "\\t"}.DelimiterRune())
	assert.Equal(t, ',', CSVSettings{}.DelimiterRune())
	assert.Equal(t, '|', CSVSettings{Delimiter: "|"}.DelimiterRune())
}

func TestMapping_SaveLoad(t *testing.T) {
	m := &types.ColumnMapping{Targets: []types.Target{
		{Name: "date", Source: "DTPOSTED"},
		{Name: "amount", Source: "TRNAMT", Actions: []types.Action{{Type: "format_number", Value: "2"}}},
		{Name: "note"},
	}}

	path := filepath.Join(t.TempDir(), "m.yaml")
	require.NoError(t, SaveMapping(path, m))

	got, err := LoadMapping(path)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestParseMapping(t *testing.T) {
	m, err := ParseMapping(nil)
	require.NoError(t, err)
	assert.Empty(t, m.Targets)

	_, err = ParseMapping([]byte("columns:\n  - target: a\n    sourse: b\n"))
	assert.Error(t, err)

	_, err = LoadMapping(filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorContains(t, err, "failed to read mapping file")
}
