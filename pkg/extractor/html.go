package extractor

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/beaconhq/beacon/internal/models"
	"github.com/beaconhq/beacon/pkg/fault"
)

// extractHTML pulls the main content area of an HTML document, falling back
// to the whole body when no content container is found.
func extractHTML(data []byte) (models.ExtractedText, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return models.ExtractedText{}, fault.Wrap(fault.CorruptInput, err)
	}

	selectors := []string{
		"main",
		"article",
		".content",
		"#content",
		".documentation",
		"#documentation",
	}

	var content string
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}
	if content == "" {
		content = doc.Find("body").Text()
	}

	// Collapse whitespace runs left behind by markup.
	content = strings.Join(strings.Fields(content), " ")
	if content == "" {
		return models.ExtractedText{}, nil
	}
	return models.ExtractedText{Segments: []string{sanitizeUTF8(content)}}, nil
}
