// Package detect classifies an input file into one of the supported formats.
//
// Detection looks at the declared content type first and falls back to the
// file name suffix. It never inspects the file body; a file that is
// mislabelled fails later in its format parser.
package detect

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/file-mapper/internal/types"
)

var contentTypes = map[string]types.Format{
	"text/csv":                    types.FormatCSV,
	"application/csv":             types.FormatCSV,
	"text/comma-separated-values": types.FormatCSV,
	"application/x-ofx":           types.FormatOFX,
	"application/ofx":             types.FormatOFX,
	"application/vnd.intu.qfx":    types.FormatOFX,
	"application/json":            types.FormatJSON,
	"text/json":                   types.FormatJSON,
	"text/xml":                    types.FormatXML,
	"application/xml":             types.FormatXML,

	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": types.FormatSpreadsheet,
	"application/vnd.ms-excel": types.FormatSpreadsheet,
}

var suffixes = map[string]types.Format{
	".csv":  types.FormatCSV,
	".ofx":  types.FormatOFX,
	".qfx":  types.FormatOFX,
	".json": types.FormatJSON,
	".xml":  types.FormatXML,
	".xlsx": types.FormatSpreadsheet,
	".xls":  types.FormatSpreadsheet,
}

// Detect returns the format of a file from its declared content type and
// name. It fails with types.ErrUnsupportedFormat when neither is recognized.
func Detect(fileName, contentType string) (types.Format, error) {
	if f, ok := ByContentType(contentType); ok {
		return f, nil
	}
	if f, ok := BySuffix(fileName); ok {
		return f, nil
	}
	return "", types.Wrap(types.ErrUnsupportedFormat, "%q (content type %q)", fileName, contentType)
}

// ByContentType matches a MIME type, ignoring parameters and case.
func ByContentType(contentType string) (types.Format, bool) {
	if strings.TrimSpace(contentType) == "" {
		return "", false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	f, ok := contentTypes[mediaType]
	return f, ok
}

// BySuffix matches the file name extension, ignoring case.
func BySuffix(fileName string) (types.Format, bool) {
	f, ok := suffixes[strings.ToLower(filepath.Ext(fileName))]
	return f, ok
}

// ContentType returns the preferred MIME type of a format.
func ContentType(f types.Format) string {
	switch f {
	case types.FormatCSV:
		return "text/csv"
	case types.FormatOFX:
		return "application/x-ofx"
	case types.FormatJSON:
		return "application/json"
	case types.FormatXML:
		return "text/xml"
	case types.FormatSpreadsheet:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}
