package types

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR TAXONOMY
// =============================================================================
// Every parser failure wraps exactly one of these sentinels. Callers classify
// with errors.Is and show Message(err) at the upload boundary.

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrInvalidCsv        = errors.New("invalid CSV format")
	ErrEmptyDataset      = errors.New("no data rows found in file")
	ErrMissingOfxRoot    = errors.New("missing <OFX> root element")
	ErrNoTransactions    = errors.New("no transactions found in OFX file")
	ErrInvalidOfxFormat  = errors.New("invalid OFX format")
	ErrInvalidJson       = errors.New("invalid JSON format")
	ErrNotAnArray        = errors.New("JSON file must contain an array of objects")
	ErrInvalidXmlFormat  = errors.New("invalid XML format")
	ErrReadFailure       = errors.New("failed to read file")
)

var taxonomy = []error{
	ErrUnsupportedFormat,
	ErrInvalidCsv,
	ErrEmptyDataset,
	ErrMissingOfxRoot,
	ErrNoTransactions,
	ErrInvalidOfxFormat,
	ErrInvalidJson,
	ErrNotAnArray,
	ErrInvalidXmlFormat,
	ErrReadFailure,
}

// Wrap attaches detail to a taxonomy sentinel.
func Wrap(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// Classify returns the taxonomy sentinel err wraps, or ErrReadFailure when it
// wraps none.
func Classify(err error) error {
	for _, kind := range taxonomy {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrReadFailure
}

var messages = map[error]string{
	ErrUnsupportedFormat: "Unsupported file type",
	ErrInvalidCsv:        "Invalid CSV format",
	ErrEmptyDataset:      "No data found in the file",
	ErrMissingOfxRoot:    "OFX file has no <OFX> element",
	ErrNoTransactions:    "No transactions found in the OFX file",
	ErrInvalidOfxFormat:  "Invalid OFX format",
	ErrInvalidJson:       "Invalid JSON format",
	ErrNotAnArray:        "JSON file must contain an array of objects",
	ErrInvalidXmlFormat:  "Invalid XML format",
	ErrReadFailure:       "Failed to read file",
}

// Message returns the single human-readable message for an upload failure.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return messages[Classify(err)]
}

var codes = map[error]string{
	ErrUnsupportedFormat: "UnsupportedFormat",
	ErrInvalidCsv:        "InvalidCsv",
	ErrEmptyDataset:      "EmptyDataset",
	ErrMissingOfxRoot:    "MissingOfxRoot",
	ErrNoTransactions:    "NoTransactions",
	ErrInvalidOfxFormat:  "InvalidOfxFormat",
	ErrInvalidJson:       "InvalidJson",
	ErrNotAnArray:        "NotAnArray",
	ErrInvalidXmlFormat:  "InvalidXmlFormat",
	ErrReadFailure:       "ReadFailure",
}

// Code returns the machine-readable name of the taxonomy kind of err.
func Code(err error) string {
	if err == nil {
		return ""
	}
	return codes[Classify(err)]
}
