// =============================================================================
// File Mapper - Ingestion
// =============================================================================
//
// Load runs the ingestion pipeline for one file:
//
//   File -> Format Detector -> Format Parser -> Row Normalizer -> Dataset
//
// A failure at any stage is terminal for that file. The returned error wraps
// exactly one sentinel of the types taxonomy; types.Message turns it into the
// single message shown to the user.
//
// =============================================================================

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ginjaninja78/file-mapper/internal/detect"
	"github.com/ginjaninja78/file-mapper/internal/logging"
	"github.com/ginjaninja78/file-mapper/internal/types"
)

// File is an uploaded or opened input file.
type File struct {
	// Name is the file name, used for suffix detection.
	Name string

	// ContentType is the declared MIME type, "" when unknown.
	ContentType string

	// Data is the complete file content.
	Data []byte
}

// ReadFile opens a file from disk. The content type is left empty, so the
// format is detected from the suffix.
//
// RETURNS:
//   - The file.
//   - An error wrapping ErrReadFailure when the file cannot be read.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, types.Wrap(types.ErrReadFailure, "%v", err)
	}
	return File{Name: filepath.Base(path), Data: data}, nil
}

// ReadFrom reads a file body from r, failing when it is larger than limit
// bytes. A limit of 0 or less means no limit.
func ReadFrom(name, contentType string, r io.Reader, limit int64) (File, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, types.Wrap(types.ErrReadFailure, "%v", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return File{}, types.Wrap(types.ErrReadFailure, "file exceeds %d bytes", limit)
	}

	return File{Name: name, ContentType: contentType, Data: data}, nil
}

// Loader detects, parses and normalizes files.
type Loader struct {
	registry *Registry
}

// NewLoader returns a loader dispatching to the parsers of registry.
func NewLoader(registry *Registry) *Loader {
	return &Loader{registry: registry}
}

// Load turns f into a normalized Dataset.
//
// PARAMETERS:
//   - ctx: Carries the logger. A cancelled context aborts before parsing.
//   - f: The input file.
//
// RETURNS:
//   - The dataset, never empty.
//   - An error wrapping one taxonomy sentinel.
func (l *Loader) Load(ctx context.Context, f File) (*types.Dataset, error) {
	logger := logging.FromContext(ctx).With("file", f.Name)

	format, err := detect.Detect(f.Name, f.ContentType)
	if err != nil {
		logger.Warn("unsupported file", "content_type", f.ContentType)
		return nil, err
	}

	parser, ok := l.registry.Lookup(format)
	if !ok {
		return nil, types.Wrap(types.ErrUnsupportedFormat, "no parser registered for %s", format)
	}

	if err := ctx.Err(); err != nil {
		return nil, types.Wrap(types.ErrReadFailure, "%v", err)
	}

	start := time.Now()
	ds, err := parser.Parse(f.Data)
	if err != nil {
		logger.Warn("parse failed", "format", format, "err", err)
		return nil, classified(err)
	}

	ds, err = Normalize(ds)
	if err != nil {
		logger.Warn("no usable rows", "format", format)
		return nil, err
	}

	ds.Format = format
	ds.SourceName = f.Name

	logger.Info("file loaded",
		"format", format,
		"rows", ds.Len(),
		"columns", len(ds.Headers()),
		"elapsed", time.Since(start).Round(time.Microsecond),
	)

	return ds, nil
}

// classified makes sure err wraps a taxonomy sentinel.
func classified(err error) error {
	if kind := types.Classify(err); !errors.Is(err, kind) {
		return fmt.Errorf("%w: %v", types.ErrReadFailure, err)
	}
	return err
}
