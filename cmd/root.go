// =============================================================================
// File Mapper - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (converter)
//   ├── convertCmd (converter convert)
//   ├── previewCmd (converter preview)
//   ├── mapCmd     (converter map)
//   ├── inspectCmd (converter inspect)
//   ├── serveCmd   (converter serve)
//   └── versionCmd (converter version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose, logging)
//   2. Loading the configuration before any subcommand runs
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/file-mapper/internal/config"
	"github.com/ginjaninja78/file-mapper/internal/ingest"
	"github.com/ginjaninja78/file-mapper/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// cfg is the configuration loaded for the running command.
var cfg *config.Config

// logger is the application logger for the running command.
var logger *log.Logger

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "converter",
	Short: "File Mapper - Remap the columns of CSV, OFX, JSON, XML and spreadsheet files",
	Long: `File Mapper reads a tabular or financial file, lets you choose which of its
columns to keep and how to name them, and exports the result as CSV or OFX.

Supported input formats:
  - CSV (.csv)
  - OFX / QFX bank statements, SGML or XML (.ofx, .qfx)
  - JSON arrays of objects (.json)
  - XML documents with repeated row elements (.xml)
  - Spreadsheets (.xlsx, .xls; first sheet)

Example Usage:
  converter preview statement.ofx               # Show the first rows
  converter map statement.ofx --save m.yaml     # Build a mapping interactively
  converter convert statement.ofx -m m.yaml     # Convert with a saved mapping
  converter serve                               # Start the web interface`,

	SilenceUsage: true,

	// PersistentPreRunE loads the configuration for every subcommand. Flags
	// of the subcommand override the file and the environment.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Build(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		if verbose {
			cfg.LogLevel = "debug"
		}
		logger = logging.New(cfg.LogLevel, cfg.LogFormat)
		logger.Debug("configuration loaded", "file", cfgFile, "output_dir", cfg.OutputDir)
		return nil
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	// ==========================================================================
	// PERSISTENT FLAGS
	// ==========================================================================
	// Persistent flags are available to this command and all subcommands.

	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)

	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text, json, logfmt")
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// commandContext returns the command context carrying the logger.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logging.WithLogger(ctx, logger)
}

// newLoader returns a loader for every supported input format.
func newLoader() *ingest.Loader {
	return ingest.NewLoader(ingest.DefaultRegistry(cfg.CSV))
}

// addInputFlags registers the flags that affect parsing.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().String("delimiter", ",", `CSV field delimiter ("tab" for tabs)`)
	cmd.Flags().Bool("lax-headers", false, "Rename empty CSV header cells to Column_N instead of failing")
	cmd.Flags().Bool("no-coerce", false, "Keep CSV cells as text instead of detecting numbers and booleans")
}
