package ofxparser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/file-mapper/internal/types"
)

const sgmlStatement = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240131120000
<LANGUAGE>ENG
<FI>
<ORG>FIRSTBANK
<FID>1001
</FI>
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>121000248
<ACCTID>000123456789
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101
<DTEND>20240131
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240105
<TRNAMT>-12.50
<FITID>2024010501
<NAME>Coffee Corner
<MEMO>Card 1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240115
<TRNAMT>1500.00
<FITID>2024011501
<NAME>Payroll
<MEMO>January salary
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1487.50
<DTASOF>20240131
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>
`

func TestParse_Fragment(t *testing.T) {
	ds, err := Parse([]byte(`<OFX><STMTTRN><DTPOSTED>20240101<TRNAMT>-12.50<NAME>Coffee</STMTTRN></OFX>`))
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())

	row := ds.Rows[0]
	assert.Equal(t, []string{"DTPOSTED", "TRNAMT", "NAME"}, row.Keys())
	assert.Equal(t, map[string]string{
		"DTPOSTED": "20240101",
		"TRNAMT":   "-12.50",
		"NAME":     "Coffee",
	}, row.Strings())
}

func TestParse_Statement(t *testing.T) {
	ds, err := Parse([]byte(sgmlStatement))
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, types.FormatOFX, ds.Format)

	first := ds.Rows[0]
	assert.Equal(t, []string{"TRNTYPE", "DTPOSTED", "TRNAMT", "FITID", "NAME", "MEMO"}, first.Keys())
	assert.Equal(t, "Coffee Corner", first.Text("NAME"))
	assert.Equal(t, "Card 1234", first.Text("MEMO"))

	second := ds.Rows[1]
	assert.Equal(t, "1500.00", second.Text("TRNAMT"))
	assert.Equal(t, "January salary", second.Text("MEMO"))
}

func TestParse_EmptyLeafAndAmpersand(t *testing.T) {
	input := "<OFX>\n<STMTTRN>\n<NAME>Coffee & Co\n<MEMO>\n<TRNAMT>-2\n</STMTTRN>\n</OFX>\n"

	ds, err := Parse([]byte(input))
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())

	row := ds.Rows[0]
	assert.Equal(t, "Coffee & Co", row.Text("NAME"))
	assert.True(t, row.Has("MEMO"))
	assert.Equal(t, "", row.Text("MEMO"))
	assert.Equal(t, "-2", row.Text("TRNAMT"))
}

func TestParse_EmptyLeafNamedLikeAClosedOne(t *testing.T) {
	input := "<OFX>\n<STMTTRN>\n<TRNAMT>-1\n<MEMO>first</MEMO>\n</STMTTRN>\n" +
		"<STMTTRN>\n<TRNAMT>-2\n<MEMO>\n</STMTTRN>\n</OFX>\n"

	ds, err := Parse([]byte(input))
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())

	assert.Equal(t, "first", ds.Rows[0].Text("MEMO"))
	assert.True(t, ds.Rows[1].Has("MEMO"))
	assert.Equal(t, "", ds.Rows[1].Text("MEMO"))
	assert.Equal(t, "-2", ds.Rows[1].Text("TRNAMT"))
}

func TestParse_XMLStatement(t *testing.T) {
	input := `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<?OFX OFXHEADER="200" VERSION="220" SECURITY="NONE" OLDFILEUID="NONE" NEWFILEUID="NONE"?>
<OFX>
  <BANKMSGSRSV1><STMTTRNRS><STMTRS><BANKTRANLIST>
    <STMTTRN>
      <TRNTYPE>DEBIT</TRNTYPE>
      <DTPOSTED>20240105</DTPOSTED>
      <TRNAMT>-4.00</TRNAMT>
      <MEMO>   </MEMO>
    </STMTTRN>
  </BANKTRANLIST></STMTRS></STMTTRNRS></BANKMSGSRSV1>
</OFX>`

	ds, err := Parse([]byte(input))
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, "-4.00", ds.Rows[0].Text("TRNAMT"))
	assert.True(t, ds.Rows[0].Has("MEMO"))
	assert.Equal(t, "", ds.Rows[0].Text("MEMO"))
}

func TestParse_Windows1252(t *testing.T) {
	input := "OFXHEADER:100\nCHARSET:1252\n\n<OFX><STMTTRN><NAME>Caf\xe9<TRNAMT>1</STMTTRN></OFX>"

	ds, err := Parse([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, "Café", ds.Rows[0].Text("NAME"))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"no root", "<STMTTRN><NAME>x</STMTTRN>", types.ErrMissingOfxRoot},
		{"lowercase root", "<ofx><STMTTRN><NAME>x</STMTTRN></ofx>", types.ErrMissingOfxRoot},
		{"no transactions", "<OFX><BANKMSGSRSV1></BANKMSGSRSV1></OFX>", types.ErrNoTransactions},
		{"stray closing tag", "<OFX><STMTTRN><NAME>x</MEMO></STMTTRN></OFX>", types.ErrInvalidOfxFormat},
		{"attribute tag", `<OFX><STMTTRN><NAME lang="en">x</STMTTRN></OFX>`, types.ErrInvalidOfxFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRepair(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "closes leaves",
			input: "<OFX><STMTTRN><DTPOSTED>20240101<TRNAMT>-12.50</STMTTRN></OFX>",
			want:  "<OFX><STMTTRN><DTPOSTED>20240101</DTPOSTED><TRNAMT>-12.50</TRNAMT></STMTTRN></OFX>",
		},
		{
			name:  "keeps trailing whitespace after the synthesized tag",
			input: "<OFX>\n<CODE>0\n</OFX>",
			want:  "<OFX>\n<CODE>0</CODE>\n</OFX>",
		},
		{
			name:  "leaves closed leaves untouched",
			input: "<OFX><NAME>x</NAME></OFX>",
			want:  "<OFX><NAME>x</NAME></OFX>",
		},
		{
			name:  "closes empty leaves",
			input: "<OFX><STMTTRN><MEMO>\n<NAME>x\n</STMTTRN></OFX>",
			want:  "<OFX><STMTTRN><MEMO></MEMO>\n<NAME>x</NAME>\n</STMTTRN></OFX>",
		},
		{
			name:  "closes an empty leaf before its parent closes",
			input: "<OFX><STMTTRN><MEMO>x</MEMO></STMTTRN><STMTTRN><MEMO>\n</STMTTRN></OFX>",
			want:  "<OFX><STMTTRN><MEMO>x</MEMO></STMTTRN><STMTTRN><MEMO></MEMO>\n</STMTTRN></OFX>",
		},
		{
			name:  "drops preamble",
			input: "OFXHEADER:100\nDATA:OFXSGML\n\n<OFX></OFX>",
			want:  "<OFX></OFX>",
		},
		{
			name:  "escapes bare ampersands only",
			input: "<OFX><NAME>A&B &amp; C &#38;</OFX>",
			want:  "<OFX><NAME>A&amp;B &amp; C &#38;</NAME></OFX>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Repair(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRepair_Idempotent(t *testing.T) {
	inputs := []string{
		sgmlStatement,
		"<OFX><STMTTRN><DTPOSTED>20240101<TRNAMT>-12.50<NAME>Coffee</STMTTRN></OFX>",
		"<OFX><STMTTRN>\r\n<MEMO>\r\n<NAME>  spaced out  \r\n</STMTTRN></OFX>",
		"<OFX><STMTTRN><NAME>R&D<MEMO>x</MEMO></STMTTRN></OFX>",
		"<OFX><STMTTRN><MEMO>x</MEMO></STMTTRN><STMTTRN><MEMO>\n</STMTTRN></OFX>",
	}

	for i, input := range inputs {
		once, err := Repair(input)
		require.NoError(t, err, "input %d", i)

		twice, err := Repair(once)
		require.NoError(t, err, "input %d", i)
		assert.Equal(t, once, twice, "input %d", i)
	}
}

func TestRepair_MissingRoot(t *testing.T) {
	_, err := Repair("OFXHEADER:100\n<STMTTRN>")
	assert.ErrorIs(t, err, types.ErrMissingOfxRoot)
}

func TestHeader(t *testing.T) {
	h := Header([]byte(sgmlStatement))
	assert.Equal(t, "100", h["OFXHEADER"])
	assert.Equal(t, "1252", h["CHARSET"])
	assert.Equal(t, "NONE", h["NEWFILEUID"])
	_, ok := h["<OFX>"]
	assert.False(t, ok)
}

func TestSummarize(t *testing.T) {
	summaries, resp, err := Summarize([]byte(sgmlStatement))
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Equal(t, "bank", s.Kind)
	assert.Equal(t, "FIRSTBANK", s.Institution)
	assert.Equal(t, "000123456789", s.AccountID)
	assert.Equal(t, "CHECKING", s.AccountType)
	assert.Equal(t, "USD", s.Currency)
	assert.Equal(t, 2, s.Transactions)
	assert.NotEmpty(t, s.LedgerBalance)
	assert.Equal(t, 2024, s.End.Year())
}

func TestSummarize_NotOFX(t *testing.T) {
	_, _, err := Summarize([]byte("Date,Amount\n"))
	assert.Error(t, err)
}

func TestParse_LargeSingleLine(t *testing.T) {
	var b strings.Builder
	b.WriteString("<OFX><BANKTRANLIST>")
	for i := 0; i < 2000; i++ {
		b.WriteString("<STMTTRN><TRNTYPE>DEBIT<TRNAMT>-1.00<NAME>Item</STMTTRN>")
	}
	b.WriteString("</BANKTRANLIST></OFX>")

	ds, err := Parse([]byte(b.String()))
	require.NoError(t, err)
	assert.Equal(t, 2000, ds.Len())
}
