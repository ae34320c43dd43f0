// =============================================================================
// File Mapper - SGML Repair
// =============================================================================
//
// Legacy OFX 1.x files are SGML. Leaf elements are opened but never closed:
//
//   <STMTTRN>
//     <TRNTYPE>DEBIT
//     <DTPOSTED>20240101
//     <TRNAMT>-12.50
//   </STMTTRN>
//
// An XML parser rejects this. Repair rewrites the document so that every
// leaf carries its closing tag, in one pass over the whole text:
//
//   - <NAME>text</NAME>           already closed, untouched
//   - <NAME> + whitespace, NAME   aggregate, untouched
//     closed elsewhere
//   - <NAME> + whitespace, NAME   empty leaf, becomes <NAME></NAME>
//     never closed, or followed
//     by another element's close
//   - <NAME>text                  leaf, becomes <NAME>text</NAME>
//
// Bare ampersands in leaf text are escaped. Only flat tag/value pairs are
// handled; attribute-bearing tags and mixed content are copied verbatim.
// Repair(Repair(x)) == Repair(x).
//
// =============================================================================

package ofxparser

import (
	"regexp"
	"strings"

	"github.com/ginjaninja78/file-mapper/internal/types"
)

// RootTag opens the OFX payload.
const RootTag = "<OFX>"

var (
	openTag  = regexp.MustCompile(`<([A-Za-z][A-Za-z0-9_.]*)>`)
	closeTag = regexp.MustCompile(`</([A-Za-z][A-Za-z0-9_.]*)\s*>`)
	entity   = regexp.MustCompile(`^&(#[0-9]+|#x[0-9A-Fa-f]+|[A-Za-z][A-Za-z0-9]*);`)
)

// Repair locates the OFX payload and closes its unclosed leaf elements.
//
// RETURNS:
//   - The payload from <OFX> onward, rewritten as well-formed markup for the
//     shapes listed above. The preamble before <OFX> is discarded.
//   - An error wrapping ErrMissingOfxRoot when the text has no <OFX> tag.
func Repair(text string) (string, error) {
	start := strings.Index(text, RootTag)
	if start < 0 {
		return "", types.Wrap(types.ErrMissingOfxRoot, "no %s tag in %d bytes", RootTag, len(text))
	}
	body := text[start:]

	closed := make(map[string]bool)
	for _, m := range closeTag.FindAllStringSubmatch(body, -1) {
		closed[m[1]] = true
	}

	var out strings.Builder
	out.Grow(len(body) + len(body)/4)

	last := 0
	for _, m := range openTag.FindAllStringSubmatchIndex(body, -1) {
		tagEnd := m[1]
		name := body[m[2]:m[3]]

		contentEnd := len(body)
		if i := strings.IndexByte(body[tagEnd:], '<'); i >= 0 {
			contentEnd = tagEnd + i
		}
		content := body[tagEnd:contentEnd]

		out.WriteString(body[last:tagEnd])
		last = contentEnd

		switch {
		case closesImmediately(body[contentEnd:], name):
			out.WriteString(escapeAmpersands(content))

		case strings.TrimSpace(content) == "":
			if !closed[name] || closesOther(body[contentEnd:], name) {
				out.WriteString("</" + name + ">")
			}
			out.WriteString(content)

		default:
			value := strings.TrimRight(content, " \t\r\n")
			out.WriteString(escapeAmpersands(value))
			out.WriteString("</" + name + ">")
			out.WriteString(content[len(value):])
		}
	}
	out.WriteString(body[last:])

	return out.String(), nil
}

// closesImmediately reports whether rest starts with the closing tag of name.
func closesImmediately(rest, name string) bool {
	m := closeTag.FindStringSubmatchIndex(rest)
	return m != nil && m[0] == 0 && rest[m[2]:m[3]] == name
}

// closesOther reports whether rest starts with the closing tag of an element
// other than name. An open tag followed directly by its parent's close is an
// empty leaf, even when the same name is closed elsewhere.
func closesOther(rest, name string) bool {
	m := closeTag.FindStringSubmatchIndex(rest)
	return m != nil && m[0] == 0 && rest[m[2]:m[3]] != name
}

// escapeAmpersands escapes every & that does not start a character or
// entity reference.
func escapeAmpersands(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '&' && !entity.MatchString(s[i:]) {
			b.WriteString("&amp;")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
