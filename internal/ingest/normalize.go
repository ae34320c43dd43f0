package ingest

import (
	"github.com/ginjaninja78/file-mapper/internal/types"
)

// Normalize cleans a parsed dataset in place:
//   - key whitespace is trimmed; when two keys trim to the same name the
//     first one wins
//   - rows left without keys are dropped
//
// RETURNS:
//   - The same dataset.
//   - An error wrapping ErrEmptyDataset when no row remains.
func Normalize(ds *types.Dataset) (*types.Dataset, error) {
	if ds == nil {
		return nil, types.Wrap(types.ErrEmptyDataset, "no dataset")
	}

	kept := ds.Rows[:0]
	for _, row := range ds.Rows {
		if row == nil {
			continue
		}
		row = normalizeRow(row)
		if row.Len() == 0 {
			continue
		}
		kept = append(kept, row)
	}
	ds.Rows = kept

	if len(ds.Rows) == 0 {
		return nil, types.Wrap(types.ErrEmptyDataset, "every row is empty")
	}

	return ds, nil
}

// normalizeRow returns row with trimmed keys. A row whose keys are already
// clean is returned unchanged.
func normalizeRow(row *types.Row) *types.Row {
	keys := row.Keys()

	clean := true
	for _, k := range keys {
		if types.CleanKey(k) != k || k == "" {
			clean = false
			break
		}
	}
	if clean {
		return row
	}

	out := types.NewRow()
	for _, k := range keys {
		name := types.CleanKey(k)
		if name == "" || out.Has(name) {
			continue
		}
		v, _ := row.Get(k)
		out.Set(name, v)
	}
	return out
}
