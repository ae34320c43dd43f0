package jsonparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/file-mapper/internal/types"
)

func TestParse(t *testing.T) {
	input := `[
		{"date": "2024-01-01", "amount": -12.50, "cleared": true, "memo": null},
		{"date": "2024-01-02", "amount": 100, "tags": ["a", "b"], "meta": {"k": 1}}
	]`

	ds, err := Parse([]byte(input))
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, types.FormatJSON, ds.Format)

	first := ds.Rows[0]
	assert.Equal(t, []string{"date", "amount", "cleared", "memo"}, first.Keys())

	amount, _ := first.Get("amount")
	assert.Equal(t, types.KindNumber, amount.Kind())
	assert.Equal(t, "-12.50", amount.Text())

	cleared, _ := first.Get("cleared")
	assert.Equal(t, types.KindBool, cleared.Kind())

	memo, ok := first.Get("memo")
	assert.True(t, ok)
	assert.True(t, memo.IsNull())

	second := ds.Rows[1]
	assert.Equal(t, "100", second.Text("amount"))
	assert.Equal(t, `["a","b"]`, second.Text("tags"))
	assert.Equal(t, `{"k":1}`, second.Text("meta"))
	assert.False(t, second.Has("cleared"))
}

func TestParse_KeyOrder(t *testing.T) {
	ds, err := Parse([]byte(`[{"z": 1, "a": 2, "m": 3}]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, ds.Rows[0].Keys())
}

func TestParse_StringsAreNotCoerced(t *testing.T) {
	ds, err := Parse([]byte(`[{"amount": "12.50", "flag": "true"}]`))
	require.NoError(t, err)

	amount, _ := ds.Rows[0].Get("amount")
	assert.Equal(t, types.KindString, amount.Kind())
	assert.Equal(t, "12.50", amount.Text())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty input", "", types.ErrInvalidJson},
		{"syntax error", `[{"a": 1,}]`, types.ErrInvalidJson},
		{"truncated", `[{"a": 1}`, types.ErrInvalidJson},
		{"trailing data", `[{"a": 1}] [`, types.ErrInvalidJson},
		{"broken object", `{"a": }`, types.ErrInvalidJson},
		{"object", `{"a": 1}`, types.ErrNotAnArray},
		{"string", `"rows"`, types.ErrNotAnArray},
		{"array of numbers", `[1, 2]`, types.ErrNotAnArray},
		{"mixed elements", `[{"a": 1}, "b"]`, types.ErrNotAnArray},
		{"empty array", `[]`, types.ErrEmptyDataset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParse_EmptyObject(t *testing.T) {
	ds, err := Parse([]byte(`[{}]`))
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, 0, ds.Rows[0].Len())
}
