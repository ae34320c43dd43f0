package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/file-mapper/internal/config"
	"github.com/ginjaninja78/file-mapper/internal/csvparser"
	"github.com/ginjaninja78/file-mapper/internal/ofxparser"
	"github.com/ginjaninja78/file-mapper/internal/types"
)

func row(kv ...string) *types.Row {
	r := types.NewRow()
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i], types.Coerce(kv[i+1]))
	}
	return r
}

func mapping(names ...string) *types.ColumnMapping {
	m := &types.ColumnMapping{}
	for _, n := range names {
		m.Targets = append(m.Targets, types.Target{Name: n, Source: n})
	}
	return m
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)
}

func TestCSV(t *testing.T) {
	rows := []*types.Row{
		row("date", "2024-01-01", "amount", "12.50", "memo", "a, b"),
		row("date", "2024-01-02", "amount", "-3"),
	}

	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, mapping("date", "amount", "memo"), rows))

	want := "date,amount,memo\n" +
		"2024-01-01,12.50,\"a, b\"\n" +
		"2024-01-02,-3,\n"
	assert.Equal(t, want, buf.String())
}

func TestCSV_QuotesSpecialCharacters(t *testing.T) {
	r := types.NewRow()
	r.SetText("note", "say \"hi\"\nbye")

	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, mapping("note"), []*types.Row{r}))
	assert.Equal(t, "note\n\"say \"\"hi\"\"\nbye\"\n", buf.String())
}

func TestCSV_SingleEmptyColumn(t *testing.T) {
	rows := []*types.Row{row("x", ""), row("x", "1")}

	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, mapping("x"), rows))
	assert.Equal(t, "x\n\"\"\n1\n", buf.String())
}

func TestCSV_RoundTrip(t *testing.T) {
	names := []string{"date", "amount", "flag", "memo"}
	rows := []*types.Row{
		row("date", "2024-01-01", "amount", "-12.50", "flag", "TRUE", "memo", " leading space"),
		row("date", "2024-01-02", "amount", "1e3", "flag", "", "memo", "line\nbreak, comma"),
		row("date", "", "amount", "", "flag", "", "memo", ""),
	}

	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, mapping(names...), rows))

	ds, err := csvparser.Parse(buf.Bytes(), config.Default().CSV)
	require.NoError(t, err)
	require.Equal(t, len(rows), ds.Len())

	for i, want := range rows {
		got := ds.Rows[i]
		assert.Equal(t, names, got.Keys(), "row %d", i)
		for _, name := range names {
			wv, _ := want.Get(name)
			gv, _ := got.Get(name)
			assert.Equal(t, wv.Text(), gv.Text(), "row %d column %s", i, name)
			assert.Equal(t, wv.Kind(), gv.Kind(), "row %d column %s", i, name)
		}
	}
}

func TestCSV_RoundTripSingleColumn(t *testing.T) {
	rows := []*types.Row{row("x", ""), row("x", "a")}

	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, mapping("x"), rows))

	ds, err := csvparser.Parse(buf.Bytes(), config.Default().CSV)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, "", ds.Rows[0].Text("x"))
	assert.Equal(t, "a", ds.Rows[1].Text("x"))
}

func TestOFX(t *testing.T) {
	rows := []*types.Row{
		row("date", "20240101", "amount", "-12.5", "description", "Coffee & Co"),
		row("TRNTYPE", "DEBIT", "NAME", "Rent", "TRNAMT", "-800", "FITID", "abc"),
		row("other", "x"),
	}

	var buf bytes.Buffer
	require.NoError(t, OFX(&buf, rows, OFXOptions{Now: fixedClock}))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "OFXHEADER:100\nDATA:OFXSGML\nVERSION:102\n"))
	assert.Contains(t, out, "NEWFILEUID:NONE\n\n<OFX>\n    <BANKMSGSRSV1>\n        <STMTTRNRS>\n            <STMTRS>\n")
	assert.Equal(t, 3, strings.Count(out, "<STMTTRN>"))
	assert.Contains(t, out, "<NAME>Coffee &amp; Co</NAME>")
	assert.Contains(t, out, "<TRNAMT>-12.50</TRNAMT>")
	assert.Contains(t, out, "<TRNTYPE>DEBIT</TRNTYPE>")
	assert.Contains(t, out, "<FITID>abc</FITID>")
	assert.Contains(t, out, "<TRNAMT>-800.00</TRNAMT>")
	assert.True(t, strings.HasSuffix(out, "</OFX>\n"))

	// The third row carries no canonical field.
	assert.Contains(t, out, "<DTPOSTED>20240309</DTPOSTED>")
	assert.Contains(t, out, "<TRNAMT>0.00</TRNAMT>")
	assert.Contains(t, out, "<NAME>Unknown</NAME>")
	assert.Equal(t, 2, strings.Count(out, "<TRNTYPE>CREDIT</TRNTYPE>"))
}

func TestOFX_ReadsBack(t *testing.T) {
	rows := []*types.Row{
		row("Date", "20240105", "Amount", "3", "Payee", "Shop <north>"),
		row("Date", "20240106", "Amount", "-4.1", "Payee", "Cafe"),
	}

	var buf bytes.Buffer
	require.NoError(t, OFX(&buf, rows, OFXOptions{Now: fixedClock}))

	ds, err := ofxparser.Parse(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, []string{"TRNTYPE", "DTPOSTED", "TRNAMT", "NAME"}, ds.Rows[0].Keys())
	assert.Equal(t, "Shop <north>", ds.Rows[0].Text("NAME"))
	assert.Equal(t, "3.00", ds.Rows[0].Text("TRNAMT"))
	assert.Equal(t, "-4.10", ds.Rows[1].Text("TRNAMT"))
	assert.Equal(t, "20240106", ds.Rows[1].Text("DTPOSTED"))
}

func TestOFX_CustomAliasesAndType(t *testing.T) {
	rows := []*types.Row{row("Montant", "5", "Libelle", "Pain")}

	var buf bytes.Buffer
	err := OFX(&buf, rows, OFXOptions{
		Aliases:        map[string][]string{"TRNAMT": {"montant"}, "NAME": {"libelle"}},
		DefaultTrnType: "DEBIT",
		Now:            fixedClock,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "<TRNAMT>5.00</TRNAMT>")
	assert.Contains(t, out, "<NAME>Pain</NAME>")
	assert.Contains(t, out, "<TRNTYPE>DEBIT</TRNTYPE>")
}

func TestOFX_NonNumericAmountKept(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, OFX(&buf, []*types.Row{row("amount", "12,50")}, OFXOptions{Now: fixedClock}))
	assert.Contains(t, buf.String(), "<TRNAMT>12,50</TRNAMT>")
}

func TestBuild(t *testing.T) {
	a, err := Build(FormatCSV, mapping("x"), []*types.Row{row("x", "1")}, OFXOptions{})
	require.NoError(t, err)
	assert.Equal(t, "mapped_data.csv", a.Name)
	assert.Equal(t, "text/csv", a.ContentType)
	assert.Equal(t, "x\n1\n", string(a.Data))

	a, err = Build(FormatOFX, mapping("x"), nil, OFXOptions{Now: fixedClock})
	require.NoError(t, err)
	assert.Equal(t, "mapped_data.ofx", a.Name)
	assert.Equal(t, "application/x-ofx", a.ContentType)
	assert.NotContains(t, string(a.Data), "<STMTTRN>")

	_, err = Build(Format("pdf"), mapping("x"), nil, OFXOptions{})
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" OFX ")
	require.NoError(t, err)
	assert.Equal(t, FormatOFX, f)

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}
