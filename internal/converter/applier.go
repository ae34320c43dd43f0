package converter

import (
	"github.com/ginjaninja78/file-mapper/internal/types"
)

// Apply projects every dataset row onto the target columns of mapping.
//
// Row i of the result has exactly the target names as keys, in mapping
// order, and the value of target t is the source row's value for t.Source,
// or "" when the row lacks that key. Apply never fails and always returns
// one row per dataset row.
func Apply(ds *types.Dataset, mapping *types.ColumnMapping) []*types.Row {
	return ApplyWith(ds, mapping, nil)
}

// ApplyWith is Apply followed by the per-target actions of t. A nil
// transformer applies no actions.
func ApplyWith(ds *types.Dataset, mapping *types.ColumnMapping, t *Transformer) []*types.Row {
	out := make([]*types.Row, 0, ds.Len())
	if ds == nil {
		return out
	}

	for _, src := range ds.Rows {
		row := types.NewRow()
		for i, target := range mapping.Targets {
			value, ok := src.Get(target.Source)
			if !ok || target.Source == "" {
				value = types.String("")
			}
			if t != nil {
				value = t.Transform(i, value, src)
			}
			row.Set(target.Name, value)
		}
		out = append(out, row)
	}

	return out
}

// Preview returns at most n mapped rows from the start of the dataset.
func Preview(ds *types.Dataset, mapping *types.ColumnMapping, t *Transformer, n int) []*types.Row {
	head := &types.Dataset{Rows: ds.Head(n)}
	return ApplyWith(head, mapping, t)
}
