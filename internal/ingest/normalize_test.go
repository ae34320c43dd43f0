package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/file-mapper/internal/types"
)

func TestNormalize_TrimsKeys(t *testing.T) {
	row := types.NewRow()
	row.SetText(" Date ", "2024-01-01")
	row.SetText("Amount", "1")
	row.SetText("Amount ", "2")

	ds, err := Normalize(&types.Dataset{Rows: []*types.Row{row}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Amount"}, ds.Headers())
	assert.Equal(t, "1", ds.Rows[0].Text("Amount"))
}

func TestNormalize_DropsKeylessRows(t *testing.T) {
	keep := types.NewRow()
	keep.SetText("a", "1")

	blank := types.NewRow()
	blank.SetText("  ", "x")

	ds, err := Normalize(&types.Dataset{Rows: []*types.Row{types.NewRow(), keep, nil, blank}})
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, "1", ds.Rows[0].Text("a"))
}

func TestNormalize_Empty(t *testing.T) {
	_, err := Normalize(&types.Dataset{Rows: []*types.Row{types.NewRow()}})
	assert.ErrorIs(t, err, types.ErrEmptyDataset)

	_, err = Normalize(nil)
	assert.ErrorIs(t, err, types.ErrEmptyDataset)
}
