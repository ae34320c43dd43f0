package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/ginjaninja78/file-mapper/internal/types"
)

// CSV writes rows as comma-separated text. The header row holds the target
// names in mapping order; every following line holds one row's values in the
// same order, "" for absent keys. Fields are quoted per RFC 4180 when they
// contain a comma, quote, or line break.
//
// A one-column row whose value is empty is written as a quoted "" so that the
// line is not read back as blank.
func CSV(w io.Writer, mapping *types.ColumnMapping, rows []*types.Row) error {
	names := mapping.Names()

	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)

	if err := writeRecord(bw, cw, names); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range rows {
		if err := writeRecord(bw, cw, row.Project(names)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Flush()
}

// writeRecord writes one record. encoding/csv writes a lone empty field as an
// empty line, which readers skip.
func writeRecord(bw *bufio.Writer, cw *csv.Writer, record []string) error {
	if len(record) == 1 && record[0] == "" {
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
		_, err := bw.WriteString("\"\"\n")
		return err
	}
	return cw.Write(record)
}
