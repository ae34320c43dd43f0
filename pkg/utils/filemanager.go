// =============================================================================
// File Mapper - File Manager Utility
// =============================================================================
//
// This module provides the file handling used by the batch converter:
//   - Input discovery (a file, or every supported file in a directory)
//   - Output naming from a placeholder format
//   - Writing exported artifacts without overwriting earlier ones
//   - Error log generation for rejected mappings
//
// =============================================================================

package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the converter.
type FileManager struct {
	// OutputDir is the directory where exported files are placed.
	OutputDir string

	// NameFormat is the output base name format. See GenerateOutputFileName.
	NameFormat string

	// Overwrite allows replacing an existing output file. When false, a
	// numeric suffix is added instead.
	Overwrite bool

	now func() time.Time
}

// NewFileManager creates a new FileManager writing to outputDir.
func NewFileManager(outputDir, nameFormat string) *FileManager {
	return &FileManager{
		OutputDir:  outputDir,
		NameFormat: nameFormat,
		now:        time.Now,
	}
}

// EnsureDirectories creates the output directory if it doesn't exist.
func (fm *FileManager) EnsureDirectories() error {
	if err := os.MkdirAll(fm.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", fm.OutputDir, err)
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles expands path into the files to convert.
//
// PARAMETERS:
//   - path: A file or a directory. A file is returned as is, whatever its
//     extension.
//   - extensions: The extensions to match inside a directory (e.g. ".csv").
//     Matching ignores case. Subdirectories are not scanned.
//
// RETURNS:
//   - The matching file paths, sorted.
//   - An error if path cannot be read.
func DiscoverInputFiles(path string, extensions []string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if hasExtension(entry.Name(), extensions) {
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}

	sort.Strings(files)
	return files, nil
}

func hasExtension(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates an output file name.
//
// PARAMETERS:
//   - format: The format string for the base name.
//     Placeholders:
//     {uuid}      - A random UUID
//     {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//     {date}      - Current date (YYYYMMDD)
//     {time}      - Current time (HHMMSS)
//     Any key of params, e.g. {source}.
//   - params: A map of placeholder values.
//   - extension: The extension to ensure, with its dot (e.g. ".csv").
//
// RETURNS:
//   - The generated file name.
//
// EXAMPLE:
//
//	format:  "{source}_{date}"
//	params:  {"source": "bank"}
//	output:  "bank_20240115.ofx"
func GenerateOutputFileName(format string, params map[string]string, extension string) string {
	return generateName(time.Now(), format, params, extension)
}

func generateName(now time.Time, format string, params map[string]string, extension string) string {
	replacements := map[string]string{
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	if strings.Contains(result, "{uuid}") {
		result = strings.ReplaceAll(result, "{uuid}", uuid.New().String())
	}
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	result = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, result)

	if result == "" {
		result = "output"
	}
	if extension != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(extension)) {
		result += extension
	}

	return result
}

// SourceName returns the base name of path without its extension, for use
// as the {source} placeholder.
func SourceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// =============================================================================
// OUTPUT WRITING
// =============================================================================

// WriteOutput writes data to the output directory.
//
// PARAMETERS:
//   - source: Path of the input file, used for the {source} placeholder.
//   - extension: The output extension, with its dot.
//   - data: The file content.
//
// RETURNS:
//   - The path of the written file.
//   - An error if the file cannot be written.
func (fm *FileManager) WriteOutput(source, extension string, data []byte) (string, error) {
	name := generateName(fm.now(), fm.NameFormat, map[string]string{"source": SourceName(source)}, extension)
	path := filepath.Join(fm.OutputDir, name)

	if fm.Overwrite {
		if err := os.WriteFile(path, data, 0644); err != nil {
			return "", fmt.Errorf("failed to write file: %w", err)
		}
		return path, nil
	}

	file, path, err := createFree(path)
	if err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return path, nil
}

// createFree creates path, or path with a _N suffix before the extension
// when that name is taken. Creation is exclusive, so concurrent writers
// never share a file.
func createFree(path string) (*os.File, string, error) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)

	candidate := path
	for i := 1; ; i++ {
		file, err := os.OpenFile(candidate, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return file, candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", err
		}
		candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents a single error log entry.
type ErrorLogEntry struct {
	Timestamp    time.Time
	FileName     string
	ErrorType    string
	ErrorMessage string
	Column       int
	FieldName    string
	FieldValue   string
}

// WriteErrorLog writes error entries to a log file named after the file of
// the first entry, error_log_<source>_<timestamp>.txt. An existing log is
// never replaced; a _N suffix is added instead.
//
// PARAMETERS:
//   - entries: The error entries to write.
//   - outputDir: The directory to write the log file.
//
// RETURNS:
//   - The path to the error log file, "" when there is nothing to write.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, outputDir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	timestamp := time.Now().Format("20060102_150405")
	name := fmt.Sprintf("error_log_%s_%s.txt", SourceName(entries[0].FileName), timestamp)

	file, logPath, err := createFree(filepath.Join(outputDir, strings.ReplaceAll(name, " ", "_")))
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "File Mapper - Error Log\n"+
		"Generated: %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		time.Now().Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Error #%d\n"+
			"  Timestamp:      %s\n"+
			"  File:           %s\n"+
			"  Error Type:     %s\n"+
			"  Message:        %s\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.FileName,
			entry.ErrorType,
			entry.ErrorMessage)

		if entry.Column > 0 {
			fmt.Fprintf(writer, "  Column:         %d\n", entry.Column)
		}
		if entry.FieldName != "" {
			fmt.Fprintf(writer, "  Field:          %s\n", entry.FieldName)
		}
		if entry.FieldValue != "" {
			fmt.Fprintf(writer, "  Value:          %s\n", entry.FieldValue)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close error log: %w", err)
	}

	return logPath, nil
}
