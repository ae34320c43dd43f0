// =============================================================================
// File Mapper - JSON Parser
// =============================================================================
//
// This module reads a JSON array of objects into a Dataset:
//
//   [{"date": "2024-01-01", "amount": -12.5, "cleared": true}]
//
// Objects are read with a token stream rather than unmarshalled into maps so
// that each Row keeps the key order of the source document.
//
// VALUE CONVERSION:
//   - string        -> string value
//   - number        -> number value (decimal canonical form)
//   - true / false  -> bool value
//   - null          -> null value
//   - array, object -> compact JSON text as a string value
//
// =============================================================================

package jsonparser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ginjaninja78/file-mapper/internal/types"
)

// errNotObject marks an array element that is not an object.
var errNotObject = errors.New("array element is not an object")

// Parse reads a JSON document whose top level is an array of objects.
//
// RETURNS:
//   - The dataset, one row per array element.
//   - An error wrapping ErrInvalidJson when the text does not decode,
//     ErrNotAnArray when the top level is not an array or an element is not
//     an object, or ErrEmptyDataset for an empty array.
func Parse(data []byte) (*types.Dataset, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, types.Wrap(types.ErrInvalidJson, "%v", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		// Still report broken documents as invalid rather than as a shape
		// problem.
		if err := skipRest(dec); err != nil {
			return nil, types.Wrap(types.ErrInvalidJson, "%v", err)
		}
		return nil, types.Wrap(types.ErrNotAnArray, "top-level value is %s", describe(tok))
	}

	var rows []*types.Row
	for index := 0; dec.More(); index++ {
		row, err := readObject(dec)
		if errors.Is(err, errNotObject) {
			return nil, types.Wrap(types.ErrNotAnArray, "element %d: %v", index, err)
		}
		if err != nil {
			return nil, types.Wrap(types.ErrInvalidJson, "element %d: %v", index, err)
		}
		rows = append(rows, row)
	}

	// Closing bracket.
	if _, err := dec.Token(); err != nil {
		return nil, types.Wrap(types.ErrInvalidJson, "%v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, types.Wrap(types.ErrInvalidJson, "unexpected data after top-level array")
	}

	if len(rows) == 0 {
		return nil, types.Wrap(types.ErrEmptyDataset, "empty JSON array")
	}

	return &types.Dataset{
		Format: types.FormatJSON,
		Rows:   rows,
	}, nil
}

// readObject reads one array element, which must be an object.
func readObject(dec *json.Decoder) (*types.Row, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: got %s", errNotObject, describe(tok))
	}

	row := types.NewRow()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is %s", describe(keyTok))
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}

		value, err := convert(raw)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		row.Set(key, value)
	}

	// Closing brace.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	return row, nil
}

// convert turns a raw JSON value into a cell value.
func convert(raw json.RawMessage) (types.Value, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return types.Null(), nil
	}

	switch trimmed[0] {
	case 'n':
		return types.Null(), nil
	case 't':
		return types.Bool(true), nil
	case 'f':
		return types.Bool(false), nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return types.Value{}, err
		}
		return types.String(s), nil
	case '[', '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return types.Value{}, err
		}
		return types.String(buf.String()), nil
	default:
		// Numbers share the CSV coercion; the literal text is kept.
		return types.Coerce(string(trimmed)), nil
	}
}

// skipRest drains the decoder so that syntax errors surface.
func skipRest(dec *json.Decoder) error {
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// describe names the JSON type of a token for error messages.
func describe(tok json.Token) string {
	switch t := tok.(type) {
	case json.Delim:
		if t == '{' {
			return "an object"
		}
		return "an array"
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", tok)
	}
}
