// =============================================================================
// File Mapper - Configuration Module
// =============================================================================
//
// This module is responsible for loading the application configuration. It
// merges, from lowest to highest precedence:
//   1. Built-in defaults
//   2. The YAML configuration file (config.yaml, optional)
//   3. Environment variables prefixed with CONVERTER_
//   4. Command-line flags that were explicitly set
//
// Column mappings are not part of the main configuration. They live in their
// own YAML files (see mapping.go) because their order matters.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for configuration environment variables.
// Example: CONVERTER_OUTPUT_DIR=./out
const EnvPrefix = "CONVERTER"

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the application configuration.
type Config struct {
	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputDir is the directory where exported artifacts are written.
	// Default: "."
	OutputDir string `mapstructure:"output_dir"`

	// OutputNameFormat defines the base name of exported files, without
	// extension. Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {date}      - Current date (YYYYMMDD)
	//   {source}    - Base name of the input file without extension
	// Default: "mapped_data"
	OutputNameFormat string `mapstructure:"output_name_format"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `mapstructure:"log_level"`

	// LogFormat selects the log encoding: "text", "json" or "logfmt".
	// Default: "text"
	LogFormat string `mapstructure:"log_format"`

	// =========================================================================
	// PREVIEW SETTINGS
	// =========================================================================

	// PreviewRows is the number of rows shown in raw and mapped previews.
	// Default: 5
	PreviewRows int `mapstructure:"preview_rows"`

	// =========================================================================
	// FORMAT SETTINGS
	// =========================================================================

	CSV    CSVSettings    `mapstructure:"csv"`
	OFX    OFXSettings    `mapstructure:"ofx"`
	Server ServerSettings `mapstructure:"server"`
}

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields.
	// Default: ","
	Delimiter string `mapstructure:"delimiter"`

	// StrictHeaders makes an empty header cell a hard error. When false an
	// empty header is renamed Column_N.
	// Default: true
	StrictHeaders bool `mapstructure:"strict_headers"`

	// Coerce enables numeric and boolean coercion of cell values.
	// Default: true
	Coerce bool `mapstructure:"coerce"`
}

// OFXSettings contains settings for the OFX exporter.
type OFXSettings struct {
	// Aliases maps a canonical OFX field (TRNTYPE, DTPOSTED, TRNAMT, NAME,
	// MEMO, FITID) to the mapped column names accepted in its place.
	// Matching is case-insensitive.
	Aliases map[string][]string `mapstructure:"aliases"`

	// DefaultTrnType is written when a row carries no transaction type.
	// Default: "CREDIT"
	DefaultTrnType string `mapstructure:"default_trntype"`
}

// ServerSettings contains settings for the HTTP server.
type ServerSettings struct {
	// Addr is the listen address.
	// Default: "127.0.0.1:8080"
	Addr string `mapstructure:"addr"`

	// MaxUploadBytes limits the size of an uploaded file.
	// Default: 32 MiB
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// DefaultAliases is the accepted alias table for the canonical OFX fields.
func DefaultAliases() map[string][]string {
	return map[string][]string{
		"TRNTYPE":  {"type"},
		"DTPOSTED": {"date"},
		"TRNAMT":   {"amount"},
		"NAME":     {"description", "memo", "payee"},
		"MEMO":     {},
		"FITID":    {"id"},
	}
}

// =============================================================================
// CONFIGURATION LOADING
// =============================================================================

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"output-dir":   "output_dir",
	"name-format":  "output_name_format",
	"log-level":    "log_level",
	"log-format":   "log_format",
	"rows":         "preview_rows",
	"delimiter":    "csv.delimiter",
	"addr":         "server.addr",
	"max-upload":   "server.max_upload_bytes",
	"default-type": "ofx.default_trntype",
}

// Build loads the configuration from the given file, the environment and the
// given flag set.
//
// PARAMETERS:
//   - cfgFile: Path to the YAML configuration file. A missing file is not an
//     error; defaults apply.
//   - flags: The command flags. Only flags listed in flagKeys are bound. May
//     be nil.
//
// RETURNS:
//   - The merged configuration.
//   - An error if the file exists but cannot be parsed, or validation fails.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			v.SetConfigFile(cfgFile)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if flags != nil {
		if f := flags.Lookup("lax-headers"); f != nil && f.Changed && f.Value.String() == "true" {
			cfg.CSV.StrictHeaders = false
		}
		if f := flags.Lookup("no-coerce"); f != nil && f.Changed && f.Value.String() == "true" {
			cfg.CSV.Coerce = false
		}
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration with only defaults applied.
func Default() *Config {
	cfg := &Config{
		CSV: CSVSettings{StrictHeaders: true, Coerce: true},
	}
	applyDefaults(cfg)
	return cfg
}

// setDefaults registers defaults with viper so that env variables for keys
// absent from the file are still picked up by Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("output_dir", ".")
	v.SetDefault("output_name_format", "mapped_data")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("preview_rows", 5)
	v.SetDefault("csv.delimiter", ",")
	v.SetDefault("csv.strict_headers", true)
	v.SetDefault("csv.coerce", true)
	v.SetDefault("ofx.default_trntype", "CREDIT")
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.max_upload_bytes", 32<<20)
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(cfg *Config) {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	if cfg.OutputNameFormat == "" {
		cfg.OutputNameFormat = "mapped_data"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.PreviewRows == 0 {
		cfg.PreviewRows = 5
	}
	if cfg.CSV.Delimiter == "" {
		cfg.CSV.Delimiter = ","
	}
	if cfg.OFX.DefaultTrnType == "" {
		cfg.OFX.DefaultTrnType = "CREDIT"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8080"
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 32 << 20
	}

	// Viper lowercases map keys; canonical OFX field names are uppercase.
	aliases := DefaultAliases()
	for field, names := range cfg.OFX.Aliases {
		aliases[strings.ToUpper(field)] = names
	}
	cfg.OFX.Aliases = aliases
}

// validate checks the configuration for invalid values.
func validate(cfg *Config) error {
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error (got %q)", cfg.LogLevel)
	}

	switch strings.ToLower(cfg.LogFormat) {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("log_format must be one of text, json, logfmt (got %q)", cfg.LogFormat)
	}

	if cfg.PreviewRows < 0 {
		return fmt.Errorf("preview_rows must not be negative")
	}

	switch d := cfg.CSV.Delimiter; d {
	case "\\t", "tab", "TAB":
	default:
		if utf8.RuneCountInString(d) != 1 {
			return fmt.Errorf("csv.delimiter must be a single character (got %q)", d)
		}
	}

	if cfg.Server.MaxUploadBytes < 0 {
		return fmt.Errorf("server.max_upload_bytes must not be negative")
	}

	return nil
}

// DelimiterRune returns the configured delimiter as a rune.
func (s CSVSettings) DelimiterRune() rune {
	switch s.Delimiter {
	case "\\t", "tab", "TAB":
		return '\t'
	case "", ",":
		return ','
	}
	return []rune(s.Delimiter)[0]
}
