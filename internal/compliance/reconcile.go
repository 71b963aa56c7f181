package compliance

import (
	"strings"

	"labelcheck/internal/rules"
)

// Fuzzy-matching thresholds. HighSimilarity accepts a match outright;
// MinSimilarity is the floor for the last-resort fallback candidate.
const (
	HighSimilarity = 0.75
	MinSimilarity  = 0.60

	// scatterLenTolerance is the maximum length difference for a fuzzy
	// token hit during scattered-word matching.
	scatterLenTolerance = 3

	// phraseWordLenTolerance is the maximum length difference for a fuzzy
	// token hit during warning body-phrase verification.
	phraseWordLenTolerance = 2
)

// Reconciler locates expected field text inside raw OCR output, tolerating
// the noise real label scans produce: dropped punctuation, garbled legal
// boilerplate, and words scattered across decorative layouts.
type Reconciler struct {
	warning rules.Warning
}

// NewReconciler creates a reconciler using the given rule tables.
func NewReconciler(rs *rules.Ruleset) *Reconciler {
	return &Reconciler{warning: rs.Warning}
}

// FindInText searches ocrText for the best evidence that expected is present.
// It returns the matched text and true on success, or "" and false when the
// value could not be located.
//
// Strategies run in a fixed order and the first success wins:
//
//  1. exact case-insensitive substring (returns the OCR slice as scanned)
//  2. punctuation-normalized substring (returns the expected value;
//     a hit here means only punctuation was garbled)
//  3. landmark-prefix verification for standardized legal text, which
//     additionally requires enough of the body key-phrases to be legible
//  4. word-window sliding match at high similarity
//  5. scattered-word matching for non-contiguous layouts
//  6. the best sliding-window candidate above the minimum similarity
//
// Scattered-word matching deliberately runs before the low-confidence
// fallback: a full scattered hit is stronger evidence than a partial
// contiguous one. Do not reorder without golden-sample coverage.
func (r *Reconciler) FindInText(ocrText, expected string) (string, bool) {
	ocrNorm := normalizeWhitespace(ocrText)
	expNorm := normalizeWhitespace(expected)
	if ocrNorm == "" || expNorm == "" {
		return "", false
	}

	ocrLower := strings.ToLower(ocrNorm)
	expLower := strings.ToLower(expNorm)

	// 1. Exact substring. Return the OCR slice so the original casing is
	// preserved for audit display.
	if idx := strings.Index(ocrLower, expLower); idx >= 0 {
		end := idx + len(expLower)
		if end <= len(ocrNorm) {
			return ocrNorm[idx:end], true
		}
		return expNorm, true
	}

	// 2. Punctuation-normalized substring. Presence here means the text is
	// on the label with only punctuation mangled, so the expected value is
	// the truthful rendering.
	expStripped := strings.ToLower(stripPunctuation(expNorm))
	ocrStripped := strings.ToLower(stripPunctuation(ocrNorm))
	if expStripped != "" && strings.Contains(ocrStripped, expStripped) {
		return expNorm, true
	}

	ocrWords := strings.Fields(ocrNorm)

	// 3. Landmark-prefix verification for standardized legal text.
	if strings.HasPrefix(expLower, strings.ToLower(r.warning.LandmarkPrefix)) {
		if r.landmarkPresent(ocrWords) && r.bodyPhrasesLegible(ocrLower, ocrWords) {
			return expNorm, true
		}
	}

	// 4. Word-window sliding match.
	best, bestCandidate := r.slideWindow(ocrWords, expNorm)
	if best >= HighSimilarity {
		// The residual difference is attributed to OCR noise, so report
		// the expected value rather than the noisy slice.
		return expNorm, true
	}

	// 5. Scattered-word matching.
	if r.scatteredMatch(ocrWords, expNorm) {
		return expNorm, true
	}

	// 6. Low-confidence fallback on the best window candidate.
	if best >= MinSimilarity {
		return bestCandidate, true
	}

	return "", false
}

// slideWindow slides word windows sized around the expected word count over
// the OCR words and returns the best bigram similarity and its candidate.
func (r *Reconciler) slideWindow(ocrWords []string, expected string) (float64, string) {
	n := len(strings.Fields(expected))
	var best float64
	var bestCandidate string

	for size := n - 2; size <= n+3; size++ {
		if size < 1 {
			continue
		}
		for i := 0; i+size <= len(ocrWords); i++ {
			candidate := strings.Join(ocrWords[i:i+size], " ")
			if score := BigramSimilarity(candidate, expected); score > best {
				best = score
				bestCandidate = candidate
			}
		}
	}
	return best, bestCandidate
}

// landmarkPresent slides a window the size of the landmark prefix across the
// OCR words looking for a high-confidence fuzzy hit.
func (r *Reconciler) landmarkPresent(ocrWords []string) bool {
	prefixWords := strings.Fields(r.warning.LandmarkPrefix)
	size := len(prefixWords)
	if size == 0 || len(ocrWords) < size {
		return false
	}
	prefix := strings.Join(prefixWords, " ")
	for i := 0; i+size <= len(ocrWords); i++ {
		window := strings.Join(ocrWords[i:i+size], " ")
		if BigramSimilarity(window, prefix) >= HighSimilarity {
			return true
		}
	}
	return false
}

// bodyPhrasesLegible checks how many of the required warning body phrases
// appear in the OCR text, either verbatim or with every phrase word fuzzy-
// matching some OCR word. A legible heading over an illegible body must not
// pass, so enough of the body has to be present.
func (r *Reconciler) bodyPhrasesLegible(ocrLower string, ocrWords []string) bool {
	tokens := lowerStrippedTokens(ocrWords)

	legible := 0
	for _, phrase := range r.warning.BodyPhrases {
		if strings.Contains(ocrLower, strings.ToLower(phrase)) {
			legible++
			continue
		}
		if allWordsFuzzyPresent(strings.Fields(phrase), tokens, phraseWordLenTolerance) {
			legible++
		}
	}
	return legible >= r.warning.MinBodyPhrases
}

// scatteredMatch accepts an expected value whose significant words all appear
// somewhere in the OCR token stream, even when not contiguous. Embossed and
// multi-line decorative labels scatter brand words across the scan.
func (r *Reconciler) scatteredMatch(ocrWords []string, expected string) bool {
	var significant []string
	for _, w := range strings.Fields(stripPunctuation(expected)) {
		if len(w) >= 3 {
			significant = append(significant, w)
		}
	}
	if len(significant) < 2 {
		return false
	}
	return allWordsFuzzyPresent(significant, lowerStrippedTokens(ocrWords), scatterLenTolerance)
}

// allWordsFuzzyPresent reports whether every word has either an exact
// case-insensitive token hit or a fuzzy one within the length tolerance.
func allWordsFuzzyPresent(words, tokens []string, lenTolerance int) bool {
	for _, w := range words {
		w = strings.ToLower(stripPunctuation(w))
		if w == "" {
			continue
		}
		if !tokenPresent(w, tokens, lenTolerance) {
			return false
		}
	}
	return true
}

func tokenPresent(word string, tokens []string, lenTolerance int) bool {
	for _, t := range tokens {
		if t == word {
			return true
		}
		diff := len(t) - len(word)
		if diff < 0 {
			diff = -diff
		}
		if diff <= lenTolerance && BigramSimilarity(t, word) >= HighSimilarity {
			return true
		}
	}
	return false
}

func lowerStrippedTokens(words []string) []string {
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		t := strings.ToLower(stripPunctuation(w))
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
