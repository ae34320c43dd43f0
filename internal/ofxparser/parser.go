// =============================================================================
// File Mapper - OFX Parser
// =============================================================================
//
// This module turns an OFX statement (SGML 1.x or XML 2.x) into a Dataset of
// transaction rows. Each STMTTRN element becomes a Row keyed by its child tag
// names:
//
//   <STMTTRN><DTPOSTED>20240101<TRNAMT>-12.50<NAME>Coffee</STMTTRN>
//   -> {DTPOSTED: "20240101", TRNAMT: "-12.50", NAME: "Coffee"}
//
// PARSING PROCESS:
//   1. Decode Windows-1252 / Latin-1 bodies to UTF-8
//   2. Repair the SGML into well-formed XML (repair.go)
//   3. Parse the XML and collect STMTTRN elements
//
// There is no partial extraction: a document that is still malformed after
// repair fails as a whole.
//
// =============================================================================

package ofxparser

import (
	"bufio"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/ginjaninja78/file-mapper/internal/types"
	"github.com/ginjaninja78/file-mapper/internal/xmlparser"
)

// TransactionElement is the OFX record element.
const TransactionElement = "STMTTRN"

// Parse reads an OFX document and returns one row per STMTTRN element.
//
// RETURNS:
//   - The dataset, values are the trimmed text of each child element.
//   - An error wrapping ErrMissingOfxRoot, ErrInvalidOfxFormat or
//     ErrNoTransactions.
func Parse(data []byte) (*types.Dataset, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, types.Wrap(types.ErrInvalidOfxFormat, "decode body: %v", err)
	}

	repaired, err := Repair(text)
	if err != nil {
		return nil, err
	}

	rows, err := xmlparser.Collect(strings.NewReader(repaired), TransactionElement)
	if err != nil {
		return nil, types.Wrap(types.ErrInvalidOfxFormat, "%v", err)
	}
	if len(rows) == 0 {
		return nil, types.Wrap(types.ErrNoTransactions, "no <%s> elements", TransactionElement)
	}

	return &types.Dataset{
		Format: types.FormatOFX,
		Rows:   rows,
	}, nil
}

// decodeText returns data as UTF-8 text. Bodies that are not valid UTF-8 are
// decoded with the charset from the SGML header, Windows-1252 by default.
func decodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}

	decoded, err := headerEncoding(Header(data)).NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// headerEncoding picks the decoder for a CHARSET header value.
func headerEncoding(header map[string]string) encoding.Encoding {
	switch strings.ToUpper(header["CHARSET"]) {
	case "ISO-8859-1", "8859-1", "LATIN1":
		return charmap.ISO8859_1
	case "ISO-8859-15", "8859-15":
		return charmap.ISO8859_15
	default:
		return charmap.Windows1252
	}
}

// Header parses the KEY:VALUE lines of an OFX 1.x header block, which ends
// at the first blank line or at <OFX>.
func Header(data []byte) map[string]string {
	header := make(map[string]string)

	sc := bufio.NewScanner(strings.NewReader(string(data)))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			if len(header) > 0 {
				break
			}
			continue
		}
		if strings.HasPrefix(line, "<") {
			break
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		header[strings.ToUpper(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	return header
}
