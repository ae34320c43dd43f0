// =============================================================================
// File Mapper - Shared Types
// =============================================================================
//
// This package contains the data model shared by every stage of the pipeline
// so that parsers, the mapper, the applier and the exporters can exchange
// values without importing each other. Types defined here are used by:
//   - csvparser, ofxparser, jsonparser, xmlparser, xlsxparser
//   - ingest
//   - mapper, converter, export
//
// =============================================================================

package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FORMATS
// =============================================================================

// Format identifies the input format of a file.
type Format string

const (
	FormatCSV         Format = "csv"
	FormatOFX         Format = "ofx"
	FormatJSON        Format = "json"
	FormatXML         Format = "xml"
	FormatSpreadsheet Format = "spreadsheet"
)

// Formats lists every supported input format in detection order.
var Formats = []Format{FormatCSV, FormatOFX, FormatJSON, FormatXML, FormatSpreadsheet}

// =============================================================================
// VALUES
// =============================================================================

// Kind records how a cell value was interpreted while parsing.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "null"
	}
}

// Value is an optional cell value.
//
// The zero Value is null. Text holds the source text, so a number parsed
// from "12.50" keeps "12.50" while Decimal reads 12.5.
type Value struct {
	kind Kind
	text string
}

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, text: s} }

// Number returns a number value in canonical decimal form.
func Number(d decimal.Decimal) Value { return Value{kind: KindNumber, text: d.String()} }

// Bool returns a boolean value.
func Bool(b bool) Value {
	if b {
		return Value{kind: KindBool, text: "true"}
	}
	return Value{kind: KindBool, text: "false"}
}

// Kind returns how the value was interpreted.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is absent.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Text returns the source text. Null reads as "".
func (v Value) Text() string { return v.text }

// Decimal returns the value as a decimal when it is numeric.
func (v Value) Decimal() (decimal.Decimal, bool) {
	if v.kind != KindNumber {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(v.text)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// =============================================================================
// ROWS
// =============================================================================

// Row maps column names to values and remembers insertion order.
type Row struct {
	keys   []string
	values map[string]Value
}

// NewRow creates an empty row.
func NewRow() *Row {
	return &Row{values: make(map[string]Value)}
}

// Set stores a value. A new key is appended to the key order; an existing key
// keeps its position.
func (r *Row) Set(key string, v Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// SetText is shorthand for Set(key, String(s)).
func (r *Row) SetText(key, s string) {
	r.Set(key, String(s))
}

// Get returns the value for key and whether the key is present.
func (r *Row) Get(key string) (Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Text returns the text of key, or "" when the key is absent or null.
func (r *Row) Text(key string) string {
	return r.values[key].Text()
}

// Has reports whether key is present.
func (r *Row) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Keys returns the keys in insertion order.
func (r *Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of keys.
func (r *Row) Len() int { return len(r.keys) }

// Strings returns the row as a plain map of texts.
func (r *Row) Strings() map[string]string {
	out := make(map[string]string, len(r.keys))
	for _, k := range r.keys {
		out[k] = r.values[k].Text()
	}
	return out
}

// Project returns the texts of keys in the given order, "" for absent keys.
func (r *Row) Project(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = r.Text(k)
	}
	return out
}

// =============================================================================
// DATASET
// =============================================================================

// Dataset is the normalized table produced by every format parser.
type Dataset struct {
	// Format is the format the rows were parsed from.
	Format Format

	// SourceName is the name of the file the rows came from.
	SourceName string

	// Rows holds the parsed rows in source order.
	Rows []*Row
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Headers returns the key set of the first row, used for display.
func (d *Dataset) Headers() []string {
	if d.Len() == 0 {
		return nil
	}
	return d.Rows[0].Keys()
}

// HasKey reports whether any row carries key.
func (d *Dataset) HasKey(key string) bool {
	if d == nil {
		return false
	}
	for _, r := range d.Rows {
		if r.Has(key) {
			return true
		}
	}
	return false
}

// Head returns at most n rows from the start of the dataset.
func (d *Dataset) Head(n int) []*Row {
	if d.Len() == 0 || n <= 0 {
		return nil
	}
	if n > len(d.Rows) {
		n = len(d.Rows)
	}
	return d.Rows[:n]
}

// =============================================================================
// COLUMN MAPPING
// =============================================================================

// Target is one user-declared output column.
type Target struct {
	// Name is the output column name.
	Name string `yaml:"target" json:"name"`

	// Source is the bound dataset key, "" when unbound.
	Source string `yaml:"source" json:"source"`

	// Actions are optional value transformations applied after lookup.
	Actions []Action `yaml:"actions,omitempty" json:"actions,omitempty"`
}

// Action is a single value transformation.
type Action struct {
	Type    string            `yaml:"type" json:"type"`
	Value   string            `yaml:"value,omitempty" json:"value,omitempty"`
	Find    string            `yaml:"find,omitempty" json:"find,omitempty"`
	Table   map[string]string `yaml:"table,omitempty" json:"table,omitempty"`
	Default string            `yaml:"default,omitempty" json:"default,omitempty"`
}

// ColumnMapping is an ordered list of targets. The order is the export column
// order.
type ColumnMapping struct {
	Targets []Target `yaml:"columns" json:"columns"`
}

// Names returns the target names in order.
func (m *ColumnMapping) Names() []string {
	out := make([]string, len(m.Targets))
	for i, t := range m.Targets {
		out[i] = t.Name
	}
	return out
}

// Clone returns a deep copy of the mapping.
func (m *ColumnMapping) Clone() *ColumnMapping {
	out := &ColumnMapping{Targets: make([]Target, len(m.Targets))}
	for i, t := range m.Targets {
		out.Targets[i] = Target{Name: t.Name, Source: t.Source}
		if len(t.Actions) > 0 {
			out.Targets[i].Actions = append([]Action(nil), t.Actions...)
		}
	}
	return out
}

// CleanKey trims surrounding whitespace from a column name.
func CleanKey(key string) string {
	return strings.TrimSpace(key)
}

// UniqueName returns name, or name_N when name was already seen. seen is
// updated so that later calls never return a name twice.
func UniqueName(name string, seen map[string]int) string {
	n, dup := seen[name]
	seen[name] = n + 1
	if !dup {
		return name
	}
	if n == 0 {
		n = 1
	}
	for {
		candidate := fmt.Sprintf("%s_%d", name, n)
		if _, taken := seen[candidate]; !taken {
			seen[candidate] = 1
			return candidate
		}
		n++
	}
}
