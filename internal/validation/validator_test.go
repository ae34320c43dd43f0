package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/file-mapper/internal/types"
)

func keys(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(s string) bool { return set[s] }
}

func TestValidate_MissingSource(t *testing.T) {
	m := &types.ColumnMapping{Targets: []types.Target{
		{Name: "date", Source: ""},
		{Name: "amount", Source: "Amount"},
	}}

	report := Validate(m, keys("Date", "Amount"))
	assert.False(t, report.IsValid)
	assert.Equal(t, []string{"date"}, report.Missing)
	assert.Equal(t, 1, report.ErrorCount)
	require.Error(t, report.Err())
	assert.Contains(t, report.Err().Error(), `"date"`)
}

func TestValidate_MissingInOrder(t *testing.T) {
	m := &types.ColumnMapping{Targets: []types.Target{
		{Name: "c"}, {Name: "a", Source: "x"}, {Name: "b", Source: "  "},
	}}

	report := Validate(m, nil)
	assert.Equal(t, []string{"c", "b"}, report.Missing)
}

func TestValidate_Complete(t *testing.T) {
	m := &types.ColumnMapping{Targets: []types.Target{
		{Name: "date", Source: "Date"},
		{Name: "amount", Source: "Amount"},
	}}

	report := Validate(m, keys("Date", "Amount"))
	assert.True(t, report.IsValid)
	assert.Empty(t, report.Missing)
	assert.Empty(t, report.Errors)
	assert.NoError(t, report.Err())
	assert.Equal(t, 2, report.TargetsValidated)
}

func TestValidate_Rules(t *testing.T) {
	tests := []struct {
		name     string
		targets  []types.Target
		rule     string
		severity string
		valid    bool
	}{
		{"no targets", nil, RuleNoTargets, SeverityError, false},
		{"unknown source", []types.Target{{Name: "a", Source: "Nope"}}, RuleUnknownSource, SeverityError, false},
		{"empty name", []types.Target{{Name: " ", Source: "Date"}}, RuleEmptyName, SeverityWarning, true},
		{"duplicate name", []types.Target{{Name: "a", Source: "Date"}, {Name: "a", Source: "Date"}}, RuleDuplicateName, SeverityWarning, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Validate(&types.ColumnMapping{Targets: tt.targets}, keys("Date"))
			require.Len(t, report.Errors, 1)
			assert.Equal(t, tt.rule, report.Errors[0].Rule)
			assert.Equal(t, tt.severity, report.Errors[0].Severity)
			assert.Equal(t, tt.valid, report.IsValid)
		})
	}
}

func TestValidate_TreatWarningsAsErrors(t *testing.T) {
	m := &types.ColumnMapping{Targets: []types.Target{{Name: "", Source: "Date"}}}

	report := NewValidator(Options{TreatWarningsAsErrors: true}).ValidateMapping(m)
	assert.False(t, report.IsValid)
	assert.Equal(t, 1, report.WarningCount)
	assert.Empty(t, report.Missing)
}

func TestValidate_CheckAction(t *testing.T) {
	m := &types.ColumnMapping{Targets: []types.Target{{
		Name:    "a",
		Source:  "Date",
		Actions: []types.Action{{Type: "trim"}, {Type: "explode"}},
	}}}

	check := func(a types.Action) error {
		if a.Type == "explode" {
			return errors.New("unknown transformation type")
		}
		return nil
	}

	report := NewValidator(Options{CheckAction: check}).ValidateMapping(m)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, RuleInvalidAction, report.Errors[0].Rule)
	assert.Contains(t, report.Errors[0].Message, "Action 2")
}

func TestFormatErrors(t *testing.T) {
	assert.Equal(t, "No validation errors.", FormatErrors(nil))

	report := Validate(&types.ColumnMapping{Targets: []types.Target{{Name: "date"}}}, nil)
	out := FormatErrors(report.Errors)
	assert.Contains(t, out, "1 problem(s)")
	assert.Contains(t, out, `[ERROR] Column 1 ("date"): No source column selected`)
}
