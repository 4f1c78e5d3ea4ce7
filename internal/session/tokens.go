package session

// EstimateTokens estimates the token count for a given text using a
// Unicode-aware heuristic. ASCII characters are weighted at ~4 per
// token; non-ASCII (CJK, Cyrillic, Arabic, Emoji) at ~1 per token.
// Used only to annotate user messages for display; billing totals come
// from the provider's usage field.
func EstimateTokens(text string) int {
	weight := 0
	for _, r := range text {
		if r <= 127 {
			weight += 1
		} else {
			weight += 4
		}
	}
	return (weight + 3) / 4
}
