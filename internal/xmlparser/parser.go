// =============================================================================
// File Mapper - XML Rows Parser
// =============================================================================
//
// This module reads well-formed XML with repeated record elements. Every
// record element becomes one Row whose keys are the tag names of its
// immediate children and whose values are their trimmed text content.
//
//   <rows>
//     <row><Date>2024-01-01</Date><Amount>12.50</Amount></row>
//   </rows>
//
// The same extraction backs the OFX parser, which collects STMTTRN records
// from repaired SGML.
//
// =============================================================================

package xmlparser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/ginjaninja78/file-mapper/internal/types"
)

// RowElement is the record element of generic XML input.
const RowElement = "row"

// Parse reads generic tabular XML and returns one row per <row> element.
//
// RETURNS:
//   - The dataset.
//   - An error wrapping ErrInvalidXmlFormat when the document is malformed or
//     holds no <row> elements.
func Parse(data []byte) (*types.Dataset, error) {
	rows, err := Collect(bytes.NewReader(data), RowElement)
	if err != nil {
		return nil, types.Wrap(types.ErrInvalidXmlFormat, "%v", err)
	}
	if len(rows) == 0 {
		return nil, types.Wrap(types.ErrInvalidXmlFormat, "no <%s> elements found", RowElement)
	}

	return &types.Dataset{
		Format: types.FormatXML,
		Rows:   rows,
	}, nil
}

// Collect decodes the whole document and returns a row for every element
// named element.
//
// PARAMETERS:
//   - r: The XML document.
//   - element: Local name of the record element, matched exactly.
//
// RETURNS:
//   - One row per record element, in document order. A child with only
//     whitespace content yields "" and its key is still present. The text of
//     a child is the concatenated text of all its descendants.
//   - An error when the document is not well-formed. Rows found before the
//     error are discarded.
//
// A record element nested inside another record element is read as a child
// of the outer record.
func Collect(r io.Reader, element string) ([]*types.Row, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charsetReader

	var (
		rows     []*types.Row
		current  *types.Row
		depth    int
		rowDepth int
		child    string
		text     strings.Builder
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch {
			case current == nil && t.Name.Local == element:
				current = types.NewRow()
				rowDepth = depth
			case current != nil && depth == rowDepth+1:
				child = t.Name.Local
				text.Reset()
			}

		case xml.CharData:
			if current != nil && depth > rowDepth {
				text.Write(t)
			}

		case xml.EndElement:
			switch {
			case current != nil && depth == rowDepth+1:
				current.Set(child, types.String(strings.TrimSpace(text.String())))
			case current != nil && depth == rowDepth:
				rows = append(rows, current)
				current = nil
			}
			depth--
		}
	}

	if depth != 0 {
		return nil, fmt.Errorf("unexpected end of document")
	}

	return rows, nil
}

// charsetReader decodes documents that declare a non UTF-8 encoding.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
