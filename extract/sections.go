package extract

import "strings"

// Section trigger keywords, matched case-insensitively against the collapsed
// body text. The capture starts at the first keyword hit.
var (
	ingredientKeywords = []string{"ingredients", "contains", "composition", "formula"}
	howToUseKeywords   = []string{"how to use", "directions", "instructions", "application"}
)

// captureSection finds the earliest occurrence of any keyword in body and
// returns up to limit bytes starting there, cut back to the last sentence
// boundary so the capture does not end mid-word.
func captureSection(body string, keywords []string, limit int) string {
	lower := strings.ToLower(body)

	start := -1
	for _, kw := range keywords {
		idx := strings.Index(lower, kw)
		if idx >= 0 && (start < 0 || idx < start) {
			start = idx
		}
	}
	if start < 0 {
		return ""
	}

	end := start + limit
	if end >= len(body) {
		return strings.TrimSpace(body[start:])
	}

	window := body[start:end]
	// Prefer ending at a sentence; keep at least half the window so a stray
	// period right after the keyword doesn't produce a stub.
	if idx := strings.LastIndexByte(window, '.'); idx > limit/2 {
		window = window[:idx+1]
	} else if idx := strings.LastIndexByte(window, ' '); idx > 0 {
		window = window[:idx]
	}
	return strings.TrimSpace(window)
}
