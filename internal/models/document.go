package models

// Document is a raw payload handed to ingestion. It lives for the duration
// of one ingestion call and is never persisted.
type Document struct {
	ID          string
	ContentType string
	Data        []byte
}

// ExtractedText is the text of one document, one segment per source page or
// logical unit, in source order.
type ExtractedText struct {
	Segments []string
}

// Join concatenates the segments in source order.
func (t ExtractedText) Join() string {
	switch len(t.Segments) {
	case 0:
		return ""
	case 1:
		return t.Segments[0]
	}
	n := 0
	for _, s := range t.Segments {
		n += len(s) + 1
	}
	out := make([]byte, 0, n)
	for i, s := range t.Segments {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, s...)
	}
	return string(out)
}

// IndexRecord is the durable unit stored in the vector index. ID is derived
// deterministically from the source document identifier, so re-ingesting the
// same document overwrites its record.
type IndexRecord struct {
	ID        string
	Content   string
	Embedding []float32
}

// SearchHit is one ranked match: the stored text and its relevance score.
// Results are ordered by descending score.
type SearchHit struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}
