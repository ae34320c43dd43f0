package types

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// numericPattern matches plain decimal and scientific literals without
// surrounding whitespace.
var numericPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// maxNumberText bounds the canonical form of a coerced number. Literals such
// as "1e400" stay strings.
const maxNumberText = 64

// Coerce interprets a raw cell. Empty cells are null, true/false in any case
// are booleans, numeric literals are numbers and everything else is a
// string. The raw text is kept for every kind, so "12.50" and "007" read back
// unchanged and only Decimal sees the numeric value.
//
// Coerce(v.Text()) == v for every value it returns, so re-parsing exported
// text yields the same values.
func Coerce(raw string) Value {
	if raw == "" {
		return Null()
	}

	switch strings.ToLower(raw) {
	case "true", "false":
		return Value{kind: KindBool, text: raw}
	}

	if numericPattern.MatchString(raw) {
		d, err := decimal.NewFromString(raw)
		if err == nil {
			if len(d.String()) <= maxNumberText {
				return Value{kind: KindNumber, text: raw}
			}
		}
	}

	return String(raw)
}

// Text returns a string value, or null for "".
func Text(raw string) Value {
	if raw == "" {
		return Null()
	}
	return String(raw)
}
