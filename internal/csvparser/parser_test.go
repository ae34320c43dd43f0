package csvparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/file-mapper/internal/config"
	"github.com/ginjaninja78/file-mapper/internal/types"
)

func settings() config.CSVSettings {
	return config.Default().CSV
}

func TestParse_CoercesNumbers(t *testing.T) {
	ds, err := Parse([]byte("Date,Amount\n2024-01-01,12.50\n"), settings())
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())

	assert.Equal(t, []string{"Date", "Amount"}, ds.Headers())

	date, ok := ds.Rows[0].Get("Date")
	require.True(t, ok)
	assert.Equal(t, types.KindString, date.Kind())
	assert.Equal(t, "2024-01-01", date.Text())

	amount, ok := ds.Rows[0].Get("Amount")
	require.True(t, ok)
	assert.Equal(t, types.KindNumber, amount.Kind())
	assert.Equal(t, "12.50", amount.Text())
	d, ok := amount.Decimal()
	require.True(t, ok)
	assert.Equal(t, "12.5", d.String())
}

func TestParse_RowCountAndKeys(t *testing.T) {
	input := "a,b,c\n1,2,3\n\nx,\"y, z\",true\n   \n4,5,6\n"

	ds, err := Parse([]byte(input), settings())
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())

	for _, row := range ds.Rows {
		assert.Equal(t, []string{"a", "b", "c"}, row.Keys())
	}

	assert.Equal(t, "y, z", ds.Rows[1].Text("b"))
	v, _ := ds.Rows[1].Get("c")
	assert.Equal(t, types.KindBool, v.Kind())
}

func TestParse_EmptyCellsAreNull(t *testing.T) {
	ds, err := Parse([]byte("a,b\n,\n"), settings())
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())

	v, ok := ds.Rows[0].Get("a")
	require.True(t, ok)
	assert.True(t, v.IsNull())
	assert.Equal(t, "", ds.Rows[0].Text("b"))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"header only", "Date,Amount\n", types.ErrEmptyDataset},
		{"empty file", "", types.ErrEmptyDataset},
		{"header and blank lines", "Date,Amount\n\n\n", types.ErrEmptyDataset},
		{"too many fields", "a,b\n1,2,3\n", types.ErrInvalidCsv},
		{"too few fields", "a,b\n1\n", types.ErrInvalidCsv},
		{"bare quote", "a,b\n1,x\"y\n", types.ErrInvalidCsv},
		{"unterminated quote", "a,b\n1,\"open\n", types.ErrInvalidCsv},
		{"empty header", "a,,c\n1,2,3\n", types.ErrInvalidCsv},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input), settings())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParse_LaxHeaders(t *testing.T) {
	s := settings()
	s.StrictHeaders = false

	ds, err := Parse([]byte(" a ,,a\n1,2,3\n"), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "Column_2", "a_1"}, ds.Headers())
}

func TestParse_NoCoerce(t *testing.T) {
	s := settings()
	s.Coerce = false

	ds, err := Parse([]byte("Amount,Flag\n12.50,TRUE\n"), s)
	require.NoError(t, err)
	assert.Equal(t, "12.50", ds.Rows[0].Text("Amount"))
	assert.Equal(t, "TRUE", ds.Rows[0].Text("Flag"))
}

func TestParse_StripsBOMAndSemicolon(t *testing.T) {
	s := settings()
	s.Delimiter = ";"

	ds, err := Parse([]byte("\xEF\xBB\xBFDate;Amount\n2024-01-01;-3\n"), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Amount"}, ds.Headers())
	assert.Equal(t, "-3", ds.Rows[0].Text("Amount"))
}
