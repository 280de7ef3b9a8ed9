package extractor

import (
	"strings"
	"unicode/utf8"

	"github.com/beaconhq/beacon/internal/models"
	"github.com/beaconhq/beacon/pkg/fault"
)

// Extractor produces plain text from raw document bytes. It is a pure
// function over its input: same bytes and content type, same text.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Extract dispatches on the declared content type. Unknown types fail with
// UnsupportedFormat; payloads that cannot be parsed as the declared type
// fail with CorruptInput.
func (e *Extractor) Extract(data []byte, contentType string) (models.ExtractedText, error) {
	switch normalizeType(contentType) {
	case "pdf":
		return extractPDF(data)
	case "html":
		return extractHTML(data)
	case "text":
		return extractPlain(data)
	default:
		return models.ExtractedText{}, fault.New(fault.UnsupportedFormat,
			"unsupported content type: "+contentType)
	}
}

// normalizeType accepts MIME types, file extensions and bare format names.
func normalizeType(contentType string) string {
	t := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(t, ";"); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	t = strings.TrimPrefix(t, "application/")
	t = strings.TrimPrefix(t, "text/")
	t = strings.TrimPrefix(t, ".")

	switch t {
	case "pdf":
		return "pdf"
	case "html", "htm", "xhtml+xml":
		return "html"
	case "plain", "text", "txt", "md", "markdown":
		return "text"
	}
	return ""
}

func extractPlain(data []byte) (models.ExtractedText, error) {
	return models.ExtractedText{Segments: []string{sanitizeUTF8(string(data))}}, nil
}

// sanitizeUTF8 drops invalid byte sequences so downstream storage never sees
// broken encoding.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(s[i:])
			if size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
