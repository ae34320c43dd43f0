// =============================================================================
// File Mapper - Transformation Engine
// =============================================================================
//
// This module applies the optional per-column actions of a mapping file to
// mapped values. Actions run in the order they are listed:
//
//   - target: amount
//     source: TRNAMT
//     actions:
//       - type: trim
//       - type: format_number
//         value: "2"
//
// TRANSFORMATION TYPES:
//   - String manipulations (prepend, append, trim, case conversion, replace)
//   - Numeric formatting (fixed decimal places, padding, leading zeros)
//   - Date conversions
//   - Lookup table replacements
//   - Defaults for empty values
//
// An action that cannot be applied to a value (a date that does not parse, a
// number that is not numeric) leaves the value unchanged, so applying a
// mapping never fails once its actions have been checked.
//
// =============================================================================

package converter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/file-mapper/internal/types"
)

// Action types.
const (
	ActionTrim               = "trim"
	ActionTrimLeft           = "trim_left"
	ActionTrimRight          = "trim_right"
	ActionUppercase          = "uppercase"
	ActionLowercase          = "lowercase"
	ActionPrependString      = "prepend_string"
	ActionAppendString       = "append_string"
	ActionReplace            = "replace"
	ActionRegexReplace       = "regex_replace"
	ActionSubstring          = "substring"
	ActionPadZerosToLength   = "pad_zeros_to_length"
	ActionFormatNumber       = "format_number"
	ActionNegate             = "negate"
	ActionRemoveLeadingZeros = "remove_leading_zeros"
	ActionFormatDate         = "format_date"
	ActionLookup             = "lookup"
	ActionIfEmptyUseDefault  = "if_empty_use_default"
	ActionIfEmptyUseField    = "if_empty_use_field"
	ActionExtractDigits      = "extract_digits"
	ActionNormalizeSpace     = "normalize_whitespace"
)

// ActionTypes lists every supported action type.
var ActionTypes = []string{
	ActionTrim, ActionTrimLeft, ActionTrimRight, ActionUppercase, ActionLowercase,
	ActionPrependString, ActionAppendString, ActionReplace, ActionRegexReplace,
	ActionSubstring, ActionPadZerosToLength, ActionFormatNumber, ActionNegate,
	ActionRemoveLeadingZeros, ActionFormatDate, ActionLookup,
	ActionIfEmptyUseDefault, ActionIfEmptyUseField, ActionExtractDigits,
	ActionNormalizeSpace,
}

var (
	digitsPattern     = regexp.MustCompile(`\d+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer applies the actions of every target of a mapping.
type Transformer struct {
	// steps holds the compiled actions per target, indexed like the mapping.
	steps [][]step
}

// step is one compiled action.
type step struct {
	action types.Action
	re     *regexp.Regexp
}

// NewTransformer compiles the actions of mapping.
//
// RETURNS:
//   - The transformer.
//   - An error naming the first target whose actions are invalid.
func NewTransformer(mapping *types.ColumnMapping) (*Transformer, error) {
	t := &Transformer{steps: make([][]step, len(mapping.Targets))}

	for i, target := range mapping.Targets {
		for j, action := range target.Actions {
			s, err := compile(action)
			if err != nil {
				return nil, fmt.Errorf("column %d (%q) action %d: %w", i+1, target.Name, j+1, err)
			}
			t.steps[i] = append(t.steps[i], s)
		}
	}

	return t, nil
}

// CheckAction reports whether action is a known, well-formed action.
func CheckAction(action types.Action) error {
	_, err := compile(action)
	return err
}

// compile validates an action and precompiles its pattern.
func compile(action types.Action) (step, error) {
	s := step{action: action}

	switch action.Type {
	case ActionTrim, ActionTrimLeft, ActionTrimRight, ActionUppercase,
		ActionLowercase, ActionPrependString, ActionAppendString, ActionReplace,
		ActionNegate, ActionRemoveLeadingZeros, ActionLookup,
		ActionIfEmptyUseDefault, ActionExtractDigits, ActionNormalizeSpace:
		return s, nil

	case ActionRegexReplace:
		re, err := regexp.Compile(action.Find)
		if err != nil {
			return s, fmt.Errorf("invalid regex pattern: %w", err)
		}
		s.re = re
		return s, nil

	case ActionSubstring:
		if _, _, ok := parseRange(action.Value); !ok {
			return s, fmt.Errorf("substring needs \"start,end\", got %q", action.Value)
		}
		return s, nil

	case ActionPadZerosToLength, ActionFormatNumber:
		if n, err := strconv.Atoi(action.Value); err != nil || n < 0 {
			return s, fmt.Errorf("%s needs a non-negative number, got %q", action.Type, action.Value)
		}
		return s, nil

	case ActionFormatDate:
		if _, _, ok := strings.Cut(action.Value, "|"); !ok {
			return s, fmt.Errorf("format_date needs \"input|output\", got %q", action.Value)
		}
		return s, nil

	case ActionIfEmptyUseField:
		if action.Value == "" {
			return s, fmt.Errorf("if_empty_use_field needs a column name")
		}
		return s, nil

	default:
		return s, fmt.Errorf("unknown transformation type: %q", action.Type)
	}
}

// Transform applies the actions of target i to value.
//
// PARAMETERS:
//   - i: Index of the target in the mapping.
//   - value: The mapped value.
//   - source: The whole source row, for actions that read other columns.
//
// RETURNS:
//   - The transformed value. A value untouched by actions keeps its kind;
//     a rewritten value is a string.
func (t *Transformer) Transform(i int, value types.Value, source *types.Row) types.Value {
	if i < 0 || i >= len(t.steps) || len(t.steps[i]) == 0 {
		return value
	}

	text := value.Text()
	for _, s := range t.steps[i] {
		text = s.apply(text, source)
	}

	if text == value.Text() {
		return value
	}
	return types.String(text)
}

// =============================================================================
// TRANSFORMATION FUNCTIONS
// =============================================================================

// apply runs one action.
func (s step) apply(value string, source *types.Row) string {
	action := s.action

	switch action.Type {

	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	case ActionTrim:
		return strings.TrimSpace(value)

	case ActionTrimLeft:
		if action.Value != "" {
			return strings.TrimLeft(value, action.Value)
		}
		return strings.TrimLeft(value, " \t\n\r")

	case ActionTrimRight:
		if action.Value != "" {
			return strings.TrimRight(value, action.Value)
		}
		return strings.TrimRight(value, " \t\n\r")

	case ActionUppercase:
		return strings.ToUpper(value)

	case ActionLowercase:
		return strings.ToLower(value)

	case ActionPrependString:
		// "123456" with value "A" -> "A123456"
		return action.Value + value

	case ActionAppendString:
		return value + action.Value

	case ActionReplace:
		// "hello-world" with find "-" and value "_" -> "hello_world"
		if action.Find == "" {
			return value
		}
		return strings.ReplaceAll(value, action.Find, action.Value)

	case ActionRegexReplace:
		if action.Find == "" {
			return value
		}
		return s.re.ReplaceAllString(value, action.Value)

	case ActionSubstring:
		// "ABCDEFGH" with value "2,5" -> "CDE"; positions count runes.
		start, end, _ := parseRange(action.Value)
		runes := []rune(value)
		if end > len(runes) {
			end = len(runes)
		}
		if start >= end {
			return ""
		}
		return string(runes[start:end])

	case ActionNormalizeSpace:
		return strings.TrimSpace(whitespacePattern.ReplaceAllString(value, " "))

	case ActionExtractDigits:
		// "ABC-123-DEF-456" -> "123456"
		return strings.Join(digitsPattern.FindAllString(value, -1), "")

	// =========================================================================
	// NUMERIC FORMATTING
	// =========================================================================

	case ActionPadZerosToLength:
		n, _ := strconv.Atoi(action.Value)
		return PadLeft(value, n, '0')

	case ActionFormatNumber:
		// "1234.5" with value "2" -> "1234.50"
		places, _ := strconv.Atoi(action.Value)
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return value
		}
		return d.StringFixed(int32(places))

	case ActionNegate:
		// Flips the sign of an amount, for sources that report debits as
		// positive numbers.
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return value
		}
		return d.Neg().String()

	case ActionRemoveLeadingZeros:
		// "00012345" -> "12345"
		result := strings.TrimLeft(value, "0")
		if result == "" && value != "" {
			return "0"
		}
		return result

	// =========================================================================
	// DATE CONVERSIONS
	// =========================================================================

	case ActionFormatDate:
		// "01/15/2024" with value "01/02/2006|20060102" -> "20240115"
		in, out, _ := strings.Cut(action.Value, "|")
		t, err := time.Parse(strings.TrimSpace(in), strings.TrimSpace(value))
		if err != nil {
			return value
		}
		return t.Format(strings.TrimSpace(out))

	// =========================================================================
	// LOOKUP AND DEFAULTS
	// =========================================================================

	case ActionLookup:
		// "01" with table {"01": "DEBIT"} -> "DEBIT"
		if replacement, ok := action.Table[value]; ok {
			return replacement
		}
		if action.Default != "" {
			return action.Default
		}
		return value

	case ActionIfEmptyUseDefault:
		if strings.TrimSpace(value) == "" {
			return action.Value
		}
		return value

	case ActionIfEmptyUseField:
		if strings.TrimSpace(value) == "" && source != nil {
			return source.Text(action.Value)
		}
		return value

	default:
		return value
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// PadLeft pads a string with a character on the left to reach the target
// length in runes.
func PadLeft(s string, length int, padChar rune) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-n) + s
}

// parseRange reads a "start,end" pair.
func parseRange(value string) (start, end int, ok bool) {
	a, b, found := strings.Cut(value, ",")
	if !found {
		return 0, 0, false
	}
	start, errA := strconv.Atoi(strings.TrimSpace(a))
	end, errB := strconv.Atoi(strings.TrimSpace(b))
	if errA != nil || errB != nil || start < 0 || end < start {
		return 0, 0, false
	}
	return start, end, true
}
