package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/file-mapper/internal/types"
)

// =============================================================================
// MAPPING FILES
// =============================================================================
// A mapping file is an ordered list of target columns:
//
//   columns:
//     - target: date
//       source: DTPOSTED
//     - target: amount
//       source: TRNAMT
//       actions:
//         - type: format_number
//           value: "2"
//
// The list order is the export column order.

// LoadMapping reads a column mapping from a YAML file.
func LoadMapping(path string) (*types.ColumnMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}
	return ParseMapping(data)
}

// ParseMapping decodes a column mapping from YAML. Unknown keys are rejected
// so that a misspelled "sourse" does not silently leave a target unbound.
func ParseMapping(data []byte) (*types.ColumnMapping, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m types.ColumnMapping
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return &m, nil
		}
		return nil, fmt.Errorf("failed to parse mapping file: %w", err)
	}
	return &m, nil
}

// SaveMapping writes a column mapping to a YAML file.
func SaveMapping(path string, m *types.ColumnMapping) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to encode mapping: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode mapping: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write mapping file: %w", err)
	}
	return nil
}
