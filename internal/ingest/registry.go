// =============================================================================
// File Mapper - Format Parser Registry
// =============================================================================
//
// Every input format is handled by exactly one Parser. The Registry maps a
// detected Format to its Parser so that Load can dispatch without knowing
// the formats:
//
//   csv         -> csvparser.Parse
//   ofx         -> ofxparser.Parse
//   json        -> jsonparser.Parse
//   xml         -> xmlparser.Parse
//   spreadsheet -> xlsxparser.Parse
//
// =============================================================================

package ingest

import (
	"sort"

	"github.com/ginjaninja78/file-mapper/internal/config"
	"github.com/ginjaninja78/file-mapper/internal/csvparser"
	"github.com/ginjaninja78/file-mapper/internal/jsonparser"
	"github.com/ginjaninja78/file-mapper/internal/ofxparser"
	"github.com/ginjaninja78/file-mapper/internal/types"
	"github.com/ginjaninja78/file-mapper/internal/xlsxparser"
	"github.com/ginjaninja78/file-mapper/internal/xmlparser"
)

// Parser turns the raw bytes of one format into a Dataset.
type Parser interface {
	// Format is the input format this parser reads.
	Format() types.Format

	// Parse reads data. Errors wrap one sentinel of the types taxonomy.
	Parse(data []byte) (*types.Dataset, error)
}

// ParserFunc adapts a plain function to the Parser interface.
type ParserFunc struct {
	Kind types.Format
	Fn   func(data []byte) (*types.Dataset, error)
}

// Format returns the format the function reads.
func (p ParserFunc) Format() types.Format { return p.Kind }

// Parse calls the function.
func (p ParserFunc) Parse(data []byte) (*types.Dataset, error) { return p.Fn(data) }

// Registry holds one Parser per format.
type Registry struct {
	parsers map[types.Format]Parser
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[types.Format]Parser)}
}

// DefaultRegistry returns a registry with the built-in parser of every
// supported format. CSV parsing follows settings.
func DefaultRegistry(settings config.CSVSettings) *Registry {
	r := NewRegistry()
	r.Register(ParserFunc{Kind: types.FormatCSV, Fn: func(data []byte) (*types.Dataset, error) {
		return csvparser.Parse(data, settings)
	}})
	r.Register(ParserFunc{Kind: types.FormatOFX, Fn: ofxparser.Parse})
	r.Register(ParserFunc{Kind: types.FormatJSON, Fn: jsonparser.Parse})
	r.Register(ParserFunc{Kind: types.FormatXML, Fn: xmlparser.Parse})
	r.Register(ParserFunc{Kind: types.FormatSpreadsheet, Fn: xlsxparser.Parse})
	return r
}

// Register adds p, replacing any parser already registered for its format.
func (r *Registry) Register(p Parser) {
	r.parsers[p.Format()] = p
}

// Lookup returns the parser for format.
func (r *Registry) Lookup(format types.Format) (Parser, bool) {
	p, ok := r.parsers[format]
	return p, ok
}

// Formats lists the registered formats in name order.
func (r *Registry) Formats() []types.Format {
	out := make([]types.Format, 0, len(r.parsers))
	for f := range r.parsers {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
