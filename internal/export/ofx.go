package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/file-mapper/internal/config"
	"github.com/ginjaninja78/file-mapper/internal/types"
)

// =============================================================================
// OFX STRUCTURE
// =============================================================================
// The generated document is an OFX 1.02 bank statement response:
//
//   OFXHEADER:100
//   ...
//   NEWFILEUID:NONE
//
//   <OFX>
//     <BANKMSGSRSV1>
//       <STMTTRNRS>
//         <STMTRS>
//           <STMTTRN>
//             <TRNTYPE>CREDIT</TRNTYPE>
//             <DTPOSTED>20240101</DTPOSTED>
//             <TRNAMT>-12.50</TRNAMT>
//             <NAME>Coffee</NAME>
//           </STMTTRN>
//         </STMTRS>
//       </STMTTRNRS>
//     </BANKMSGSRSV1>
//   </OFX>
//
// Every leaf carries its closing tag, so the output reads back through the
// OFX parser unchanged.

// ofxHeader is the SGML header block, followed by a blank line.
var ofxHeader = []string{
	"OFXHEADER:100",
	"DATA:OFXSGML",
	"VERSION:102",
	"SECURITY:NONE",
	"ENCODING:USASCII",
	"CHARSET:1252",
	"COMPRESSION:NONE",
	"OLDFILEUID:NONE",
	"NEWFILEUID:NONE",
}

// Canonical transaction fields, in output order.
const (
	FieldTrnType  = "TRNTYPE"
	FieldDtPosted = "DTPOSTED"
	FieldTrnAmt   = "TRNAMT"
	FieldName     = "NAME"
	FieldMemo     = "MEMO"
	FieldFitID    = "FITID"
)

// CanonicalFields lists the fields written for each transaction.
var CanonicalFields = []string{FieldTrnType, FieldDtPosted, FieldTrnAmt, FieldName, FieldMemo, FieldFitID}

// Fallbacks for fields a row does not provide. MEMO and FITID are omitted
// when absent.
const (
	DefaultTrnType = "CREDIT"
	DefaultTrnAmt  = "0.00"
	DefaultName    = "Unknown"
)

// dateLayout is the OFX date format used for DTPOSTED.
const dateLayout = "20060102"

// =============================================================================
// OFX GENERATION OPTIONS
// =============================================================================

// OFXOptions contains options for OFX generation.
type OFXOptions struct {
	// Aliases maps each canonical field to the mapped column names accepted
	// in its place. Matching is case-insensitive. Nil means
	// config.DefaultAliases().
	Aliases map[string][]string

	// DefaultTrnType replaces CREDIT as the fallback transaction type.
	DefaultTrnType string

	// Now supplies the fallback posting date. Nil means time.Now.
	Now func() time.Time

	// Indent is the indentation unit. Default: four spaces.
	Indent string
}

// OFXOptionsFrom builds exporter options from the OFX settings.
func OFXOptionsFrom(s config.OFXSettings) OFXOptions {
	return OFXOptions{
		Aliases:        s.Aliases,
		DefaultTrnType: s.DefaultTrnType,
	}
}

func (o OFXOptions) withDefaults() OFXOptions {
	if o.Aliases == nil {
		o.Aliases = config.DefaultAliases()
	}
	if o.DefaultTrnType == "" {
		o.DefaultTrnType = DefaultTrnType
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Indent == "" {
		o.Indent = "    "
	}
	return o
}

// =============================================================================
// OFX GENERATION FUNCTIONS
// =============================================================================

// OFX writes rows as an OFX statement with one STMTTRN per row.
//
// PARAMETERS:
//   - w: The destination.
//   - rows: The mapped rows.
//   - opts: Generation options.
//
// FIELD RESOLUTION:
//   For each canonical field the row key equal to the field name is used
//   first (case-insensitive), then each alias in order. An empty value
//   counts as missing and falls back to the field default:
//   TRNTYPE -> CREDIT, DTPOSTED -> today (YYYYMMDD, UTC), TRNAMT -> 0.00,
//   NAME -> Unknown. A numeric TRNAMT is written with two decimal places.
func OFX(w io.Writer, rows []*types.Row, opts OFXOptions) error {
	opts = opts.withDefaults()
	today := opts.Now().UTC().Format(dateLayout)

	bw := bufio.NewWriter(w)

	for _, line := range ofxHeader {
		bw.WriteString(line)
		bw.WriteString("\n")
	}
	bw.WriteString("\n")

	envelope := []string{"OFX", "BANKMSGSRSV1", "STMTTRNRS", "STMTRS"}
	for level, name := range envelope {
		writeIndent(bw, opts.Indent, level)
		fmt.Fprintf(bw, "<%s>\n", name)
	}

	level := len(envelope)
	for _, row := range rows {
		fields := resolve(row, opts.Aliases)

		writeIndent(bw, opts.Indent, level)
		bw.WriteString("<STMTTRN>\n")

		writeElement(bw, opts.Indent, level+1, FieldTrnType, orDefault(fields[FieldTrnType], opts.DefaultTrnType))
		writeElement(bw, opts.Indent, level+1, FieldDtPosted, orDefault(fields[FieldDtPosted], today))
		writeElement(bw, opts.Indent, level+1, FieldTrnAmt, formatAmount(fields[FieldTrnAmt]))
		writeElement(bw, opts.Indent, level+1, FieldName, orDefault(fields[FieldName], DefaultName))
		if memo := fields[FieldMemo]; memo != "" {
			writeElement(bw, opts.Indent, level+1, FieldMemo, memo)
		}
		if fitID := fields[FieldFitID]; fitID != "" {
			writeElement(bw, opts.Indent, level+1, FieldFitID, fitID)
		}

		writeIndent(bw, opts.Indent, level)
		bw.WriteString("</STMTTRN>\n")
	}

	for i := len(envelope) - 1; i >= 0; i-- {
		writeIndent(bw, opts.Indent, i)
		fmt.Fprintf(bw, "</%s>\n", envelope[i])
	}

	return bw.Flush()
}

// resolve reads the canonical fields of row through the alias table.
func resolve(row *types.Row, aliases map[string][]string) map[string]string {
	byFold := make(map[string]string, row.Len())
	for _, key := range row.Keys() {
		folded := strings.ToLower(key)
		if _, ok := byFold[folded]; !ok {
			byFold[folded] = key
		}
	}

	fields := make(map[string]string, len(CanonicalFields))
	for _, field := range CanonicalFields {
		candidates := append([]string{field}, aliases[field]...)
		for _, name := range candidates {
			key, ok := byFold[strings.ToLower(name)]
			if !ok {
				continue
			}
			if v := strings.TrimSpace(row.Text(key)); v != "" {
				fields[field] = v
				break
			}
		}
	}

	return fields
}

// formatAmount renders TRNAMT with two decimal places when it is numeric.
func formatAmount(value string) string {
	if value == "" {
		return DefaultTrnAmt
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return value
	}
	return d.StringFixed(2)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func writeIndent(bw *bufio.Writer, indent string, level int) {
	for i := 0; i < level; i++ {
		bw.WriteString(indent)
	}
}

// writeElement writes a leaf element with its closing tag.
func writeElement(bw *bufio.Writer, indent string, level int, name, value string) {
	writeIndent(bw, indent, level)
	bw.WriteString("<")
	bw.WriteString(name)
	bw.WriteString(">")
	bw.WriteString(escapeXML(value))
	bw.WriteString("</")
	bw.WriteString(name)
	bw.WriteString(">\n")
}

// escapeXML escapes special characters in XML text content.
func escapeXML(s string) string {
	var b strings.Builder

	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&apos;")
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}
