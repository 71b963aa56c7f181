package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBigramSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "bourbon", b: "bourbon", want: 1.0},
		{name: "identical after case folding", a: "BOURBON", b: "bourbon", want: 1.0},
		{name: "classic dice example", a: "night", b: "nacht", want: 0.25},
		{name: "disjoint", a: "abcd", b: "wxyz", want: 0.0},
		{name: "single char", a: "a", b: "ab", want: 0.0},
		{name: "empty", a: "", b: "bourbon", want: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, BigramSimilarity(tt.a, tt.b), 0.001)
		})
	}
}

func TestBigramSimilarityDeterministic(t *testing.T) {
	a, b := "Straight Bourbon Whiskey", "Straihgt Bourbn Whiskey"
	first := BigramSimilarity(a, b)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BigramSimilarity(a, b))
	}
	assert.Greater(t, first, 0.0)
	assert.Less(t, first, 1.0)
}

func TestStripPunctuation(t *testing.T) {
	assert.Equal(t, "Old Toms Reserve", stripPunctuation("Old Tom's Reserve"))
	assert.Equal(t, "ALC 455% BY VOL", stripPunctuation("ALC. 45.5% BY VOL."))
	assert.Equal(t, "semidry", stripPunctuation("semi-dry"))
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", normalizeWhitespace("  a \t b\n\nc  "))
}
