package compliance

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"labelcheck/internal/rules"
	"labelcheck/pkg/models"
)

// Numeric equivalence tolerances.
const (
	abvTolerancePct  = 0.1
	netContentsTolMl = 1.0
)

// Comparison is the classification of one field for one validation run.
type Comparison struct {
	Status     models.MatchStatus
	Confidence float64 // 0-100
	Reasoning  string
}

// Comparator classifies per-field match status. Textual reconciliation is
// delegated to the Reconciler; this type only decides equivalence and scores.
type Comparator struct {
	rules      *rules.Ruleset
	reconciler *Reconciler
}

// NewComparator creates a comparator over the given rule tables.
func NewComparator(rs *rules.Ruleset) *Comparator {
	return &Comparator{
		rules:      rs,
		reconciler: NewReconciler(rs),
	}
}

// Reconciler exposes the underlying text reconciler.
func (c *Comparator) Reconciler() *Reconciler {
	return c.reconciler
}

// CompareField classifies one field. extracted is the candidate value from
// the extraction stage, empty when the extractor produced none; ocrText is
// the raw text the extraction stage saw, used to search for values the
// extractor missed. Pure: identical inputs always produce the identical
// Comparison.
func (c *Comparator) CompareField(field models.FieldID, expected, extracted, ocrText string) Comparison {
	expected = normalizeWhitespace(expected)
	extracted = normalizeWhitespace(extracted)

	if extracted == "" {
		return c.classifyMissing(field, expected, ocrText)
	}

	switch field {
	case models.FieldAlcoholContent:
		if cmp, ok := c.compareAlcohol(expected, extracted); ok {
			return cmp
		}
	case models.FieldNetContents:
		if cmp, ok := c.compareNetContents(expected, extracted); ok {
			return cmp
		}
	case models.FieldHealthWarning, models.FieldSulfiteDeclaration:
		// Standardized legal text: the extractor often returns a garbled
		// rendition, so confirm presence through the reconciler first.
		if _, found := c.reconciler.FindInText(extracted, expected); found {
			return Comparison{
				Status:     models.MatchStatusMatch,
				Confidence: 95,
				Reasoning:  "statutory text verified on label",
			}
		}
	}

	return c.compareText(expected, extracted)
}

// classifyMissing handles fields the extractor produced no candidate for.
// The raw OCR text is searched before declaring the field absent.
func (c *Comparator) classifyMissing(field models.FieldID, expected, ocrText string) Comparison {
	if ocrText == "" {
		return Comparison{
			Status:     models.MatchStatusNotFound,
			Confidence: 0,
			Reasoning:  "no candidate extracted and no label text available to search",
		}
	}

	found, ok := c.reconciler.FindInText(ocrText, expected)
	if !ok {
		return Comparison{
			Status:     models.MatchStatusNotFound,
			Confidence: 0,
			Reasoning:  "expected text not found on any label image",
		}
	}

	if strings.EqualFold(normalizeWhitespace(found), expected) {
		return Comparison{
			Status:     models.MatchStatusMatch,
			Confidence: 90,
			Reasoning:  "found in label text despite extractor miss",
		}
	}

	// A low-confidence reconciler candidate: the text is probably there but
	// too garbled to confirm, so the label needs a corrected print.
	score := BigramSimilarity(found, expected)
	return Comparison{
		Status:     models.MatchStatusNeedsCorrection,
		Confidence: math.Round(score * 100),
		Reasoning:  fmt.Sprintf("partially legible text %q resembles expected value", found),
	}
}

func (c *Comparator) compareText(expected, extracted string) Comparison {
	if strings.EqualFold(expected, extracted) {
		return Comparison{
			Status:     models.MatchStatusMatch,
			Confidence: 100,
			Reasoning:  "exact match",
		}
	}

	if strings.EqualFold(stripPunctuation(expected), stripPunctuation(extracted)) {
		return Comparison{
			Status:     models.MatchStatusMatch,
			Confidence: 97,
			Reasoning:  "match after punctuation normalization",
		}
	}

	score := BigramSimilarity(expected, extracted)
	if score >= HighSimilarity {
		return Comparison{
			Status:     models.MatchStatusMatch,
			Confidence: math.Round(score * 100),
			Reasoning:  fmt.Sprintf("fuzzy match (similarity %.2f), difference attributed to OCR noise", score),
		}
	}

	return Comparison{
		Status:     models.MatchStatusMismatch,
		Confidence: math.Round(score * 100),
		Reasoning:  fmt.Sprintf("label shows %q, application states %q", extracted, expected),
	}
}

func (c *Comparator) compareAlcohol(expected, extracted string) (Comparison, bool) {
	expPct, okExp := ParseAlcoholPercent(expected)
	extPct, okExt := ParseAlcoholPercent(extracted)
	if !okExp || !okExt {
		return Comparison{}, false
	}

	if math.Abs(expPct-extPct) <= abvTolerancePct {
		return Comparison{
			Status:     models.MatchStatusMatch,
			Confidence: 100,
			Reasoning:  fmt.Sprintf("alcohol content %.1f%% matches application", extPct),
		}, true
	}
	return Comparison{
		Status:     models.MatchStatusMismatch,
		Confidence: 20,
		Reasoning:  fmt.Sprintf("label states %.1f%% alcohol, application states %.1f%%", extPct, expPct),
	}, true
}

func (c *Comparator) compareNetContents(expected, extracted string) (Comparison, bool) {
	expMl, okExp := ParseNetContentsMl(expected)
	extMl, okExt := ParseNetContentsMl(extracted)
	if !okExp || !okExt {
		return Comparison{}, false
	}

	if math.Abs(expMl-extMl) <= netContentsTolMl {
		return Comparison{
			Status:     models.MatchStatusMatch,
			Confidence: 100,
			Reasoning:  fmt.Sprintf("net contents %.0f ml matches application", extMl),
		}, true
	}
	return Comparison{
		Status:     models.MatchStatusMismatch,
		Confidence: 20,
		Reasoning:  fmt.Sprintf("label states %.0f ml, application states %.0f ml", extMl, expMl),
	}, true
}

var (
	abvPattern   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*%`)
	proofPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*proof`)
	volPattern   = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(ml|mls|milliliters?|cl|l|liters?|litres?|fl\.?\s*oz\.?|oz)`)
)

// ParseAlcoholPercent extracts an alcohol-by-volume percentage from label
// text such as "13.5% ALC/VOL", "ALC. 40% BY VOL." or "90 PROOF".
func ParseAlcoholPercent(s string) (float64, bool) {
	if m := abvPattern.FindStringSubmatch(s); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return v, true
		}
	}
	if m := proofPattern.FindStringSubmatch(s); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return v / 2, true
		}
	}
	// A bare number is accepted as a percentage; application data is often
	// stored that way.
	if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return v, true
	}
	return 0, false
}

// ParseNetContentsMl extracts a net-contents volume in milliliters from label
// text such as "750 mL", "1.5 L" or "12 FL OZ".
func ParseNetContentsMl(s string) (float64, bool) {
	m := volPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0, false
	}

	unit := strings.ToLower(strings.Join(strings.Fields(m[2]), ""))
	switch {
	case strings.HasPrefix(unit, "ml") || strings.HasPrefix(unit, "milli"):
		return v, true
	case strings.HasPrefix(unit, "cl"):
		return v * 10, true
	case strings.HasPrefix(unit, "l"):
		return v * 1000, true
	case strings.Contains(unit, "oz"):
		return v * 29.5735, true
	}
	return 0, false
}
