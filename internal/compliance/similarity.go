package compliance

import "strings"

// BigramSimilarity returns the Dice coefficient over character bigrams of the
// two strings, case-insensitive. 1.0 for identical strings, 0.0 when the
// strings share no bigrams or either is shorter than two characters.
func BigramSimilarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 1.0
	}
	if len(a) < 2 || len(b) < 2 {
		return 0.0
	}

	counts := make(map[string]int, len(a)-1)
	for i := 0; i+2 <= len(a); i++ {
		counts[a[i:i+2]]++
	}

	matches := 0
	for i := 0; i+2 <= len(b); i++ {
		bg := b[i : i+2]
		if counts[bg] > 0 {
			counts[bg]--
			matches++
		}
	}

	total := (len(a) - 1) + (len(b) - 1)
	return 2.0 * float64(matches) / float64(total)
}

// normalizeWhitespace collapses all runs of whitespace to single spaces and
// trims the ends.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripPunctuation removes the punctuation characters that OCR most often
// garbles or drops: periods, commas, apostrophes and hyphens.
func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '.', ',', '\'', '-':
		default:
			b.WriteRune(r)
		}
	}
	return normalizeWhitespace(b.String())
}
