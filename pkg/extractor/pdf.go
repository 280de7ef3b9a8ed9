package extractor

import (
	"bytes"
	"fmt"

	"github.com/dslipak/pdf"

	"github.com/beaconhq/beacon/internal/models"
	"github.com/beaconhq/beacon/pkg/fault"
)

// extractPDF reads every page in order, one segment per page. Pages whose
// content streams cannot be decoded are skipped rather than failing the
// whole document.
func extractPDF(data []byte) (_ models.ExtractedText, err error) {
	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fault.New(fault.CorruptInput, fmt.Sprintf("malformed pdf: %v", r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return models.ExtractedText{}, fault.Wrap(fault.CorruptInput, err)
	}

	var segments []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		segments = append(segments, sanitizeUTF8(text))
	}

	return models.ExtractedText{Segments: segments}, nil
}
