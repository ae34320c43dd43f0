// =============================================================================
// File Mapper - Converter Module
// =============================================================================
//
// This module runs the batch conversion of a single file with a mapping
// read from a mapping file. It is the non-interactive path through the same
// components the interactive mapper uses.
//
// CONVERSION PIPELINE:
//   1. Read the input file
//   2. Detect its format, parse and normalize it
//   3. Validate the mapping against the dataset keys
//   4. Apply the mapping (and any per-target actions)
//   5. Export each requested format
//   6. Write the output files
//
// CONCURRENCY:
//   A Converter handles one file and shares nothing mutable, so the convert
//   command runs one Converter per file in its own goroutine.
//
// =============================================================================

package converter

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ginjaninja78/file-mapper/internal/config"
	"github.com/ginjaninja78/file-mapper/internal/export"
	"github.com/ginjaninja78/file-mapper/internal/ingest"
	"github.com/ginjaninja78/file-mapper/internal/logging"
	"github.com/ginjaninja78/file-mapper/internal/types"
	"github.com/ginjaninja78/file-mapper/internal/validation"
	"github.com/ginjaninja78/file-mapper/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// Format is the detected input format.
	Format types.Format

	// OutputFiles are the paths of the written exports, in the order of
	// the requested formats. Empty if processing failed.
	OutputFiles []string

	// ErrorLog is the path of the error log written for a rejected
	// mapping, if any.
	ErrorLog string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Report is the mapping validation report. Nil if the file could not
	// be loaded.
	Report *validation.Report

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsProcessed is the number of dataset rows after normalization.
	RowsProcessed int

	// RowsMapped is the number of rows written to each export.
	RowsMapped int

	// ValidationErrors is the number of mapping problems, warnings included.
	ValidationErrors int

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter converts a single file.
type Converter struct {
	inputPath string
	mapping   *types.ColumnMapping
	formats   []export.Format
	cfg       *config.Config
	loader    *ingest.Loader
	files     *utils.FileManager
	logger    *log.Logger
}

// New creates a new Converter.
//
// PARAMETERS:
//   - inputPath: The path to the input file.
//   - mapping: The column mapping to apply.
//   - formats: The export formats to write. Empty means CSV only.
//   - cfg: The application configuration.
//   - loader: The ingest loader used to parse the file.
//
// RETURNS:
//   - A new Converter instance.
func New(inputPath string, mapping *types.ColumnMapping, formats []export.Format, cfg *config.Config, loader *ingest.Loader) *Converter {
	if len(formats) == 0 {
		formats = []export.Format{export.FormatCSV}
	}
	return &Converter{
		inputPath: inputPath,
		mapping:   mapping,
		formats:   formats,
		cfg:       cfg,
		loader:    loader,
		files:     utils.NewFileManager(cfg.OutputDir, cfg.OutputNameFormat),
		logger:    logging.Discard(),
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the conversion pipeline for the file. The logger is taken
// from ctx.
//
// RETURNS:
//   - A Result struct containing the outcome of the processing.
func (c *Converter) Run(ctx context.Context) (result Result) {
	startTime := time.Now()
	c.logger = logging.FromContext(ctx).With("file", c.inputPath)

	result = Result{FilePath: c.inputPath}
	defer func() { result.Stats.ProcessingTime = time.Since(startTime) }()

	// =========================================================================
	// STEP 1: READ AND PARSE INPUT
	// =========================================================================

	c.logger.Info("processing file")

	file, err := ingest.ReadFile(c.inputPath)
	if err != nil {
		result.Error = err
		return result
	}

	ds, err := c.loader.Load(ctx, file)
	if err != nil {
		result.Error = fmt.Errorf("%s: %w", types.Message(err), err)
		return result
	}

	result.Format = ds.Format
	result.Stats.RowsProcessed = ds.Len()

	// =========================================================================
	// STEP 2: VALIDATE MAPPING
	// =========================================================================
	// Sources must exist in the dataset and every action must compile.

	report := validation.NewValidator(validation.Options{
		HasSource:   ds.HasKey,
		CheckAction: CheckAction,
	}).ValidateMapping(c.mapping)

	result.Report = report
	result.Stats.ValidationErrors = len(report.Errors)

	for _, ve := range report.Errors {
		if ve.Severity == validation.SeverityWarning {
			c.logger.Warn("mapping warning", "problem", ve.Error())
		}
	}

	if !report.IsValid {
		result.Error = report.Err()
		result.ErrorLog = c.writeErrorLog(report)
		return result
	}

	transformer, err := NewTransformer(c.mapping)
	if err != nil {
		result.Error = fmt.Errorf("failed to compile actions: %w", err)
		return result
	}

	// =========================================================================
	// STEP 3: APPLY MAPPING
	// =========================================================================

	rows := ApplyWith(ds, c.mapping, transformer)
	result.Stats.RowsMapped = len(rows)

	c.logger.Debug("mapping applied", "rows", len(rows), "targets", len(c.mapping.Targets))

	// =========================================================================
	// STEP 4: EXPORT AND WRITE
	// =========================================================================

	if err := c.files.EnsureDirectories(); err != nil {
		result.Error = err
		return result
	}

	opts := export.OFXOptionsFrom(c.cfg.OFX)

	for _, format := range c.formats {
		if err := ctx.Err(); err != nil {
			result.Error = err
			return result
		}

		var buf bytes.Buffer
		if err := export.Write(&buf, format, c.mapping, rows, opts); err != nil {
			result.Error = fmt.Errorf("failed to export %s: %w", format, err)
			return result
		}

		path, err := c.files.WriteOutput(c.inputPath, format.Extension(), buf.Bytes())
		if err != nil {
			result.Error = fmt.Errorf("failed to write output: %w", err)
			return result
		}

		result.OutputFiles = append(result.OutputFiles, path)
		c.logger.Info("wrote output", "format", format, "path", path)
	}

	result.Success = true
	return result
}

// writeErrorLog records the problems of a rejected mapping in the output
// directory. Failure to write the log is logged, not returned.
func (c *Converter) writeErrorLog(report *validation.Report) string {
	now := time.Now()
	entries := make([]utils.ErrorLogEntry, 0, len(report.Errors))
	for _, ve := range report.Errors {
		entries = append(entries, utils.ErrorLogEntry{
			Timestamp:    now,
			FileName:     c.inputPath,
			ErrorType:    ve.Rule,
			ErrorMessage: ve.Message,
			Column:       ve.Column,
			FieldName:    ve.Target,
			FieldValue:   ve.Source,
		})
	}

	if err := c.files.EnsureDirectories(); err != nil {
		c.logger.Warn("failed to write error log", "err", err)
		return ""
	}

	path, err := utils.WriteErrorLog(entries, c.files.OutputDir)
	if err != nil {
		c.logger.Warn("failed to write error log", "err", err)
		return ""
	}
	return path
}
