// =============================================================================
// File Mapper - Mapping Validation
// =============================================================================
//
// This module checks a column mapping before it is applied. Validation only
// looks at the mapping itself, never at row values:
//   - Every target must be bound to a source column
//   - A bound source must exist in the dataset
//   - Target actions must be known and well-formed
//   - Target names should be non-empty and unique
//
// ERROR HANDLING:
//   - Problems are collected, not returned one at a time
//   - Each problem names the target column and the rule it violates
//   - Problems are errors (the mapping cannot be applied) or warnings (the
//     export is still produced)
//   - A failed validation is recoverable: the caller edits the mapping and
//     validates again
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/file-mapper/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Rule names.
const (
	RuleNoTargets     = "no_targets"
	RuleMissingSource = "missing_source"
	RuleUnknownSource = "unknown_source"
	RuleInvalidAction = "invalid_action"
	RuleEmptyName     = "empty_name"
	RuleDuplicateName = "duplicate_name"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single mapping problem.
type ValidationError struct {
	// Severity is "error" or "warning".
	Severity string `json:"severity"`

	// Column is the 1-based position of the target, 0 for mapping-wide
	// problems.
	Column int `json:"column"`

	// Target is the target name.
	Target string `json:"target"`

	// Source is the bound source column, if any.
	Source string `json:"source,omitempty"`

	// Rule is the rule that was violated.
	Rule string `json:"rule"`

	// Message is a human-readable message.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Column == 0 {
		return fmt.Sprintf("[%s] %s", strings.ToUpper(e.Severity), e.Message)
	}
	return fmt.Sprintf("[%s] Column %d (%q): %s", strings.ToUpper(e.Severity), e.Column, e.Target, e.Message)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// Report contains the result of validating a mapping.
type Report struct {
	// IsValid is true when there are no errors.
	IsValid bool `json:"valid"`

	// Missing lists, in mapping order, the names of targets with no source.
	Missing []string `json:"missing"`

	// Errors contains every problem, warnings included.
	Errors []*ValidationError `json:"errors"`

	// ErrorCount is the number of errors.
	ErrorCount int `json:"error_count"`

	// WarningCount is the number of warnings.
	WarningCount int `json:"warning_count"`

	// TargetsValidated is the number of targets checked.
	TargetsValidated int `json:"targets"`
}

func (r *Report) add(e *ValidationError, treatWarningsAsErrors bool) {
	r.Errors = append(r.Errors, e)

	if e.Severity == SeverityError {
		r.ErrorCount++
		r.IsValid = false
		return
	}

	r.WarningCount++
	if treatWarningsAsErrors {
		r.IsValid = false
	}
}

// Err returns nil for a valid report, otherwise an error summarizing it.
func (r *Report) Err() error {
	if r.IsValid {
		return nil
	}
	if len(r.Missing) > 0 {
		return fmt.Errorf("mapping incomplete: no source for %s", quoteList(r.Missing))
	}
	return fmt.Errorf("mapping invalid: %d error(s)", r.ErrorCount)
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Options contains options for validation.
type Options struct {
	// TreatWarningsAsErrors makes warnings invalidate the mapping.
	// Default: false
	TreatWarningsAsErrors bool

	// HasSource reports whether a source column exists. Nil skips the
	// unknown_source rule.
	HasSource func(source string) bool

	// CheckAction validates one action. Nil skips the invalid_action rule.
	CheckAction func(action types.Action) error
}

// Validator checks column mappings.
type Validator struct {
	options Options
}

// NewValidator creates a new Validator with the given options.
func NewValidator(options Options) *Validator {
	return &Validator{options: options}
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// Validate checks mapping against the default rules. hasSource may be nil.
func Validate(mapping *types.ColumnMapping, hasSource func(string) bool) *Report {
	return NewValidator(Options{HasSource: hasSource}).ValidateMapping(mapping)
}

// ValidateMapping checks every target of mapping.
//
// RETURNS:
//   - A report. Missing lists the targets without a source in mapping
//     order; the mapping is complete only when Missing is empty and there
//     are no other errors.
func (v *Validator) ValidateMapping(mapping *types.ColumnMapping) *Report {
	report := &Report{
		IsValid:          true,
		Missing:          []string{},
		Errors:           []*ValidationError{},
		TargetsValidated: len(mapping.Targets),
	}

	if len(mapping.Targets) == 0 {
		report.add(&ValidationError{
			Severity: SeverityError,
			Rule:     RuleNoTargets,
			Message:  "Mapping has no target columns",
		}, v.options.TreatWarningsAsErrors)
		return report
	}

	seen := make(map[string]int, len(mapping.Targets))

	for i, target := range mapping.Targets {
		for _, e := range v.validateTarget(i+1, target, seen) {
			if e.Rule == RuleMissingSource {
				report.Missing = append(report.Missing, target.Name)
			}
			report.add(e, v.options.TreatWarningsAsErrors)
		}
	}

	return report
}

// validateTarget checks a single target. seen tracks earlier target names.
func (v *Validator) validateTarget(column int, target types.Target, seen map[string]int) []*ValidationError {
	var errs []*ValidationError

	newError := func(severity, rule, message string) *ValidationError {
		return &ValidationError{
			Severity: severity,
			Column:   column,
			Target:   target.Name,
			Source:   target.Source,
			Rule:     rule,
			Message:  message,
		}
	}

	// =========================================================================
	// SOURCE BINDING
	// =========================================================================

	switch {
	case strings.TrimSpace(target.Source) == "":
		errs = append(errs, newError(SeverityError, RuleMissingSource, "No source column selected"))
	case v.options.HasSource != nil && !v.options.HasSource(target.Source):
		errs = append(errs, newError(SeverityError, RuleUnknownSource,
			fmt.Sprintf("Source column %q does not exist in the file", target.Source)))
	}

	// =========================================================================
	// TARGET NAME
	// =========================================================================

	name := strings.TrimSpace(target.Name)
	if name == "" {
		errs = append(errs, newError(SeverityWarning, RuleEmptyName, "Target name is empty"))
	} else if first, dup := seen[name]; dup {
		errs = append(errs, newError(SeverityWarning, RuleDuplicateName,
			fmt.Sprintf("Target name %q is already used by column %d", name, first)))
	} else {
		seen[name] = column
	}

	// =========================================================================
	// ACTIONS
	// =========================================================================

	if v.options.CheckAction != nil {
		for j, action := range target.Actions {
			if err := v.options.CheckAction(action); err != nil {
				errs = append(errs, newError(SeverityError, RuleInvalidAction,
					fmt.Sprintf("Action %d: %v", j+1, err)))
			}
		}
	}

	return errs
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
//
// PARAMETERS:
//   - errors: The validation errors to format.
//
// RETURNS:
//   - A formatted string containing all errors.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d problem(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}
