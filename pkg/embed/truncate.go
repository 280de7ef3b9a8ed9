package embed

// Truncate cuts text to at most max runes. Slicing by runes keeps the cut
// from splitting a UTF-8 sequence; the cut point is otherwise a plain index,
// so identical input always yields an identical result.
func Truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
