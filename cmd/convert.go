// =============================================================================
// File Mapper - Convert Command
// =============================================================================
//
// This file defines the 'convert' command, the batch path of the mapper. It
// applies a saved column mapping to one or more files and writes the exports.
//
// COMMAND USAGE:
//   converter convert <file|dir>... --mapping m.yaml [flags]
//
// FLAGS:
//   --mapping, -m  : Mapping file (see 'converter map --save')
//   --suggest      : Use the built-in date/description/amount mapping
//   --format, -f   : csv, ofx or both (default csv)
//   --output-dir   : Directory for the exported files
//   --name-format  : Output base name, e.g. "{source}_mapped"
//
// PROCESSING PIPELINE:
//   1. Load the mapping
//   2. Expand directories into their supported files
//   3. For each file (concurrently):
//      a. Detect the format, parse and normalize
//      b. Validate the mapping against the file's columns
//      c. Apply the mapping
//      d. Export and write each format
//   4. Print a summary
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/file-mapper/internal/config"
	"github.com/ginjaninja78/file-mapper/internal/converter"
	"github.com/ginjaninja78/file-mapper/internal/export"
	"github.com/ginjaninja78/file-mapper/internal/ingest"
	"github.com/ginjaninja78/file-mapper/internal/mapper"
	"github.com/ginjaninja78/file-mapper/internal/types"
	"github.com/ginjaninja78/file-mapper/internal/validation"
	"github.com/ginjaninja78/file-mapper/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	mappingFile   string
	suggestPreset bool
	outputFormat  string
)

// inputExtensions are the suffixes picked up when a directory is given.
var inputExtensions = []string{".csv", ".ofx", ".qfx", ".json", ".xml", ".xlsx", ".xls"}

// =============================================================================
// CONVERT COMMAND DEFINITION
// =============================================================================

var convertCmd = &cobra.Command{
	Use:   "convert <file|dir>...",
	Short: "Apply a column mapping to files and export them",
	Long: `The convert command applies a saved column mapping to each input file and
writes the result as CSV, OFX or both.

A directory argument is expanded to the supported files it contains. Files
are processed concurrently; an error in one file does not stop the others.

If the mapping does not fit a file (a target without source, or a source
column the file lacks), that file is skipped and an error log is written to
the output directory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&mappingFile, "mapping", "m", "", "Mapping file (YAML)")
	convertCmd.Flags().BoolVar(&suggestPreset, "suggest", false, "Use the built-in date/description/amount mapping")
	convertCmd.Flags().StringVarP(&outputFormat, "format", "f", "csv", "Output format: csv, ofx or both")
	convertCmd.Flags().String("output-dir", ".", "Directory for the exported files")
	convertCmd.Flags().String("name-format", "mapped_data", "Output base name; placeholders {source} {date} {timestamp} {uuid}")
	convertCmd.Flags().String("default-type", "CREDIT", "TRNTYPE written for OFX rows without one")
	addInputFlags(convertCmd)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runConvert(cmd *cobra.Command, args []string) error {
	startTime := time.Now()
	ctx := commandContext(cmd)

	formats, err := parseFormats(outputFormat)
	if err != nil {
		return err
	}

	if mappingFile == "" && !suggestPreset {
		return errors.New("a mapping is required: use --mapping or --suggest")
	}

	var files []string
	for _, arg := range args {
		found, err := utils.DiscoverInputFiles(arg, inputExtensions)
		if err != nil {
			return err
		}
		files = append(files, found...)
	}

	if len(files) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No supported files found.")
		return nil
	}

	loader := newLoader()

	var shared *types.ColumnMapping
	if mappingFile != "" {
		shared, err = config.LoadMapping(mappingFile)
		if err != nil {
			return err
		}
		logger.Debug("mapping loaded", "file", mappingFile, "targets", len(shared.Targets))
	}

	logger.Info("converting", "files", len(files), "formats", outputFormat)

	// =========================================================================
	// PROCESS FILES CONCURRENTLY
	// =========================================================================

	var wg sync.WaitGroup
	results := make(chan converter.Result, len(files))

	for _, file := range files {
		wg.Add(1)

		go func(path string) {
			defer wg.Done()

			mapping := shared
			if mapping == nil {
				m, err := suggestedMapping(cmd, loader, path)
				if err != nil {
					results <- converter.Result{FilePath: path, Error: err}
					return
				}
				mapping = m
			}

			results <- converter.New(path, mapping, formats, cfg, loader).Run(ctx)
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// =========================================================================
	// COLLECT RESULTS AND PRINT SUMMARY
	// =========================================================================

	out := cmd.OutOrStdout()
	var successCount, errorCount int

	for result := range results {
		name := filepath.Base(result.FilePath)
		if result.Success {
			successCount++
			fmt.Fprintf(out, "  ✓ %s (%s, %d rows) -> %s\n", name, result.Format, result.Stats.RowsMapped, strings.Join(result.OutputFiles, ", "))
			continue
		}

		errorCount++
		fmt.Fprintf(out, "  ✗ %s: %v\n", name, result.Error)
		if result.Report != nil && !result.Report.IsValid {
			fmt.Fprint(out, indent(validation.FormatErrors(result.Report.Errors), "      "))
		}
		if result.ErrorLog != "" {
			fmt.Fprintf(out, "      error log: %s\n", result.ErrorLog)
		}
	}

	fmt.Fprintln(out, "\n=== Conversion Complete ===")
	fmt.Fprintf(out, "Total files:     %d\n", len(files))
	fmt.Fprintf(out, "Successful:      %d\n", successCount)
	fmt.Fprintf(out, "Errors:          %d\n", errorCount)
	fmt.Fprintf(out, "Time elapsed:    %s\n", time.Since(startTime).Round(time.Millisecond))

	if errorCount > 0 {
		return fmt.Errorf("%d of %d file(s) failed", errorCount, len(files))
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// parseFormats reads the --format flag.
func parseFormats(value string) ([]export.Format, error) {
	if strings.EqualFold(strings.TrimSpace(value), "both") {
		return export.Formats, nil
	}

	var formats []export.Format
	for _, name := range strings.Split(value, ",") {
		f, err := export.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	return formats, nil
}

// suggestedMapping builds the built-in mapping for the columns of path. The
// file is parsed once here and again by the converter.
func suggestedMapping(cmd *cobra.Command, loader *ingest.Loader, path string) (*types.ColumnMapping, error) {
	f, err := ingest.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ds, err := loader.Load(commandContext(cmd), f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", types.Message(err), err)
	}

	m := mapper.New(ds.Headers())
	m.SetAliases(cfg.OFX.Aliases)
	m.Suggest()
	return m.Mapping(), nil
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
