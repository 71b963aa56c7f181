package compliance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelcheck/internal/compliance"
	"labelcheck/internal/rules"
	"labelcheck/pkg/models"
)

func newComparator() *compliance.Comparator {
	return compliance.NewComparator(rules.Default())
}

func TestCompareFieldExactMatch(t *testing.T) {
	c := newComparator()

	cmp := c.CompareField(models.FieldBrandName, "Old Tom Reserve", "Old Tom Reserve", "")
	assert.Equal(t, models.MatchStatusMatch, cmp.Status)
	assert.Equal(t, float64(100), cmp.Confidence)
}

func TestCompareFieldCaseInsensitive(t *testing.T) {
	c := newComparator()

	cmp := c.CompareField(models.FieldBrandName, "Old Tom Reserve", "OLD TOM RESERVE", "")
	assert.Equal(t, models.MatchStatusMatch, cmp.Status)
}

func TestCompareFieldFuzzyOCRNoise(t *testing.T) {
	c := newComparator()

	cmp := c.CompareField(models.FieldBrandName, "Old Tom Reserve", "0ld Tom Reserve", "")
	assert.Equal(t, models.MatchStatusMatch, cmp.Status)
	assert.Greater(t, cmp.Confidence, float64(75))
}

func TestCompareFieldMismatch(t *testing.T) {
	c := newComparator()

	cmp := c.CompareField(models.FieldBrandName, "Old Tom Reserve", "Silver Creek", "")
	assert.Equal(t, models.MatchStatusMismatch, cmp.Status)
	assert.NotEmpty(t, cmp.Reasoning)
}

func TestCompareFieldAlcoholContentEquivalence(t *testing.T) {
	c := newComparator()

	tests := []struct {
		name      string
		expected  string
		extracted string
		status    models.MatchStatus
	}{
		{name: "different notation", expected: "45% ALC/VOL", extracted: "ALC. 45% BY VOL.", status: models.MatchStatusMatch},
		{name: "bare number application value", expected: "13.5", extracted: "13.5% ALC/VOL", status: models.MatchStatusMatch},
		{name: "proof notation", expected: "45%", extracted: "90 PROOF", status: models.MatchStatusMatch},
		{name: "different strength", expected: "13.5%", extracted: "14.8% ALC/VOL", status: models.MatchStatusMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp := c.CompareField(models.FieldAlcoholContent, tt.expected, tt.extracted, "")
			assert.Equal(t, tt.status, cmp.Status)
		})
	}
}

func TestCompareFieldNetContentsEquivalence(t *testing.T) {
	c := newComparator()

	tests := []struct {
		name      string
		expected  string
		extracted string
		status    models.MatchStatus
	}{
		{name: "same unit", expected: "750 mL", extracted: "750ML", status: models.MatchStatusMatch},
		{name: "centiliters", expected: "750 mL", extracted: "75 cl", status: models.MatchStatusMatch},
		{name: "liters", expected: "1500 mL", extracted: "1.5 L", status: models.MatchStatusMatch},
		{name: "fluid ounces", expected: "355 ml", extracted: "12 FL OZ", status: models.MatchStatusMatch},
		{name: "wrong size", expected: "750 mL", extracted: "1 L", status: models.MatchStatusMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp := c.CompareField(models.FieldNetContents, tt.expected, tt.extracted, "")
			assert.Equal(t, tt.status, cmp.Status)
		})
	}
}

func TestCompareFieldGarbledStatutoryText(t *testing.T) {
	c := newComparator()

	garbled := "GOVERIMENT WARNING: Accordlng to the surgean general women should " +
		"not drink alcoholic beverages during pregnancy because of the risk of birth " +
		"defects. Consumption impairs your ability to drive a car or operate machinery " +
		"and may cause health problems."

	cmp := c.CompareField(models.FieldHealthWarning, rules.StatutoryWarningText, garbled, "")
	assert.Equal(t, models.MatchStatusMatch, cmp.Status)
}

func TestCompareFieldMissingFoundInOCRText(t *testing.T) {
	c := newComparator()

	ocr := "KENTUCKY STRAIGHT\nOld Tom Reserve\n45% ALC/VOL 750 mL"
	cmp := c.CompareField(models.FieldBrandName, "Old Tom Reserve", "", ocr)
	assert.Equal(t, models.MatchStatusMatch, cmp.Status)
	assert.Greater(t, cmp.Confidence, float64(80))
}

func TestCompareFieldMissingNotFound(t *testing.T) {
	c := newComparator()

	cmp := c.CompareField(models.FieldAppellation, "Napa Valley", "", "bottled in kentucky by old tom distilling")
	assert.Equal(t, models.MatchStatusNotFound, cmp.Status)
	assert.Equal(t, float64(0), cmp.Confidence)
}

func TestCompareFieldMissingNoOCRText(t *testing.T) {
	c := newComparator()

	cmp := c.CompareField(models.FieldBrandName, "Old Tom Reserve", "", "")
	assert.Equal(t, models.MatchStatusNotFound, cmp.Status)
}

func TestCompareFieldIdempotent(t *testing.T) {
	c := newComparator()

	first := c.CompareField(models.FieldClassType, "Straight Bourbon Whiskey", "Straihgt Bourbon Whiskey", "")
	for i := 0; i < 5; i++ {
		again := c.CompareField(models.FieldClassType, "Straight Bourbon Whiskey", "Straihgt Bourbon Whiskey", "")
		assert.Equal(t, first, again)
	}
}

func TestParseAlcoholPercent(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"13.5% ALC/VOL", 13.5, true},
		{"ALC. 40% BY VOL.", 40, true},
		{"90 PROOF", 45, true},
		{"13.5", 13.5, true},
		{"no percentage here", 0, false},
	}
	for _, tt := range tests {
		got, ok := compliance.ParseAlcoholPercent(tt.in)
		require.Equal(t, tt.ok, ok, tt.in)
		if ok {
			assert.InDelta(t, tt.want, got, 0.001, tt.in)
		}
	}
}

func TestParseNetContentsMl(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"750 mL", 750, true},
		{"750ML", 750, true},
		{"75 cl", 750, true},
		{"1.5 L", 1500, true},
		{"1,5 l", 1500, true},
		{"12 FL OZ", 354.882, true},
		{"a fifth", 0, false},
	}
	for _, tt := range tests {
		got, ok := compliance.ParseNetContentsMl(tt.in)
		require.Equal(t, tt.ok, ok, tt.in)
		if ok {
			assert.InDelta(t, tt.want, got, 0.01, tt.in)
		}
	}
}
