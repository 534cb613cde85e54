package parser

// TruncationMarker is appended to truncated values and counts against the cap
const TruncationMarker = "…"

// TruncateRunes caps s at limit code points, marker included. It never splits a
// multi-byte character. limit <= 0 disables truncation.
func TruncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}

	count := 0
	cut := -1
	for i := range s {
		if count == limit-1 {
			cut = i
		}
		count++
		if count > limit {
			return s[:cut] + TruncationMarker
		}
	}
	return s
}
