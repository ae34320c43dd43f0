// =============================================================================
// File Mapper - Column Mapper
// =============================================================================
//
// The column mapper holds the user's target columns while they are being
// declared and bound to dataset keys. It moves through three states:
//
//   empty     -> no target declared
//   declared  -> one or more targets, each bound or unbound
//   validated -> every target bound; the mapping can be applied
//
// Any edit made after validation moves the mapper back to declared. A new
// dataset resets it to empty.
//
// =============================================================================

package mapper

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ginjaninja78/file-mapper/internal/config"
	"github.com/ginjaninja78/file-mapper/internal/converter"
	"github.com/ginjaninja78/file-mapper/internal/types"
	"github.com/ginjaninja78/file-mapper/internal/validation"
)

// State is the mapper state.
type State int

const (
	StateEmpty State = iota
	StateDeclared
	StateValidated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateDeclared:
		return "declared"
	case StateValidated:
		return "validated"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var (
	// ErrIndex is returned for a target index out of range.
	ErrIndex = errors.New("target index out of range")

	// ErrUnknownSource is returned when binding a key the dataset lacks.
	ErrUnknownSource = errors.New("source column not in dataset")
)

// presets is the built-in date/description/amount mapping. Each target
// lists the OFX field it corresponds to; candidates come from that field
// and its aliases.
var presets = []struct {
	name  string
	field string
}{
	{"date", "DTPOSTED"},
	{"description", "MEMO"},
	{"amount", "TRNAMT"},
}

// Mapper is the column mapping editor for one dataset.
type Mapper struct {
	headers []string
	keys    map[string]bool
	targets []types.Target
	state   State
	aliases map[string][]string
}

// New returns an empty mapper over the given dataset headers.
func New(headers []string) *Mapper {
	m := &Mapper{aliases: config.DefaultAliases()}
	m.Reset(headers)
	return m
}

// SetAliases replaces the alias table used by Suggest.
func (m *Mapper) SetAliases(aliases map[string][]string) {
	if aliases != nil {
		m.aliases = aliases
	}
}

// Reset drops every target and rebinds the mapper to a new dataset.
func (m *Mapper) Reset(headers []string) {
	m.headers = append([]string(nil), headers...)
	m.keys = make(map[string]bool, len(headers))
	for _, h := range headers {
		m.keys[h] = true
	}
	m.targets = nil
	m.state = StateEmpty
}

// State returns the current state.
func (m *Mapper) State() State { return m.state }

// Headers returns the keys a target can be bound to.
func (m *Mapper) Headers() []string {
	return append([]string(nil), m.headers...)
}

// Targets returns a copy of the declared targets.
func (m *Mapper) Targets() []types.Target {
	return m.Mapping().Targets
}

// Mapping returns a copy of the current mapping, validated or not.
func (m *Mapper) Mapping() *types.ColumnMapping {
	return (&types.ColumnMapping{Targets: m.targets}).Clone()
}

// AddTarget appends an unnamed, unbound target and returns its index.
func (m *Mapper) AddTarget() int {
	m.targets = append(m.targets, types.Target{})
	m.edited()
	return len(m.targets) - 1
}

// RenameTarget sets the name of target i.
func (m *Mapper) RenameTarget(i int, name string) error {
	if err := m.check(i); err != nil {
		return err
	}
	m.targets[i].Name = name
	m.edited()
	return nil
}

// BindSource binds target i to a dataset key. An empty source unbinds it.
func (m *Mapper) BindSource(i int, source string) error {
	if err := m.check(i); err != nil {
		return err
	}
	if source != "" && !m.keys[source] {
		return fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	m.targets[i].Source = source
	m.edited()
	return nil
}

// RemoveTarget deletes target i.
func (m *Mapper) RemoveTarget(i int) error {
	if err := m.check(i); err != nil {
		return err
	}
	m.targets = append(m.targets[:i], m.targets[i+1:]...)
	m.edited()
	return nil
}

// Load replaces the targets with those of mapping, typically read from a
// mapping file. Sources are not checked here; Validate reports the ones
// the dataset lacks.
func (m *Mapper) Load(mapping *types.ColumnMapping) {
	m.targets = mapping.Clone().Targets
	m.edited()
}

// Suggest declares the built-in date/description/amount targets, binding
// each to the first header that matches its OFX field or one of the
// field's aliases, ignoring case. Targets with no matching header stay
// unbound.
func (m *Mapper) Suggest() {
	m.targets = nil
	for _, p := range presets {
		m.targets = append(m.targets, types.Target{
			Name:   p.name,
			Source: m.match(p.name, p.field),
		})
	}
	m.edited()
}

func (m *Mapper) match(name, field string) string {
	candidates := append([]string{field, name}, m.aliases[field]...)
	for _, c := range candidates {
		for _, h := range m.headers {
			if strings.EqualFold(h, c) {
				return h
			}
		}
	}
	return ""
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the current mapping.
//
// RETURNS:
//   - The mapping and the report when every target is bound and every
//     action is valid. The mapper is then validated.
//   - A nil mapping and the report otherwise. The report's Missing field
//     lists the unbound targets in order; the state does not change.
func (m *Mapper) Validate() (*types.ColumnMapping, *validation.Report) {
	mapping := m.Mapping()

	v := validation.NewValidator(validation.Options{
		HasSource:   func(s string) bool { return m.keys[s] },
		CheckAction: converter.CheckAction,
	})
	report := v.ValidateMapping(mapping)
	if !report.IsValid {
		return nil, report
	}

	m.state = StateValidated
	return mapping, report
}

func (m *Mapper) check(i int) error {
	if i < 0 || i >= len(m.targets) {
		return fmt.Errorf("%w: %d", ErrIndex, i)
	}
	return nil
}

func (m *Mapper) edited() {
	if len(m.targets) == 0 {
		m.state = StateEmpty
		return
	}
	m.state = StateDeclared
}
