package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelcheck/pkg/models"
)

func TestParseClassifierResponse(t *testing.T) {
	raw := `{"fields":[{"field":"brand_name","value":"Old Tom Reserve","confidence":95,"image_index":0}],"images":[{"image_index":0,"image_type":"front","confidence":90}]}`

	tests := []struct {
		name    string
		content string
	}{
		{"plain JSON", raw},
		{"json fence", "```json\n" + raw + "\n```"},
		{"bare fence", "```\n" + raw + "\n```"},
		{"surrounding whitespace", "\n  " + raw + "  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := parseClassifierResponse(tt.content)
			require.NoError(t, err)
			require.Len(t, parsed.Fields, 1)
			assert.Equal(t, "brand_name", parsed.Fields[0].Field)
			assert.Equal(t, "Old Tom Reserve", parsed.Fields[0].Value)
			require.Len(t, parsed.Images, 1)
			assert.Equal(t, "front", parsed.Images[0].ImageType)
		})
	}
}

func TestParseClassifierResponseStringConfidence(t *testing.T) {
	parsed, err := parseClassifierResponse(`{"fields":[{"field":"brand_name","value":"X","confidence":"88.5","image_index":0}]}`)
	require.NoError(t, err)
	require.Len(t, parsed.Fields, 1)
	assert.Equal(t, 88.5, parseConfidence(parsed.Fields[0].Confidence))
}

func TestParseClassifierResponseInvalid(t *testing.T) {
	_, err := parseClassifierResponse("The label shows Old Tom Reserve bourbon.")
	assert.Error(t, err)
}

func TestParseConfidence(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"number", float64(87), 87},
		{"string number", "92.5", 92.5},
		{"zero to one scale", 0.85, 85},
		{"exactly one", float64(1), 100},
		{"above range clamped", float64(250), 100},
		{"negative clamped", float64(-3), 0},
		{"unparseable string", "high", 0},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseConfidence(tt.in))
		})
	}
}

func TestBuildResultDropsUnknownFields(t *testing.T) {
	e := NewOpenAIExtractorWithDeps(nil, nil, DefaultClassifierConfig())

	parsed, err := parseClassifierResponse(`{
		"fields": [
			{"field": "brand_name", "value": "Old Tom Reserve", "confidence": 95, "image_index": 0},
			{"field": "barcode", "value": "0123456", "confidence": 80, "image_index": 0},
			{"field": "class_type", "value": "   ", "confidence": 70, "image_index": 0}
		],
		"images": [
			{"image_index": 0, "image_type": "front", "confidence": 90},
			{"image_index": 1, "image_type": "label", "confidence": 75}
		]
	}`)
	require.NoError(t, err)

	result := e.buildResult(parsed, []string{"OLD TOM RESERVE"}, "raw")

	// Unknown field identifiers and blank values are dropped; unknown image
	// types degrade to "other".
	require.Len(t, result.Fields, 1)
	assert.Equal(t, models.FieldBrandName, result.Fields[0].Field)
	assert.Equal(t, "Old Tom Reserve", result.Fields[0].Value)
	require.Len(t, result.ImageClassifications, 2)
	assert.Equal(t, models.ImageTypeFront, result.ImageClassifications[0].ImageType)
	assert.Equal(t, models.ImageTypeOther, result.ImageClassifications[1].ImageType)
	assert.Equal(t, []string{"OLD TOM RESERVE"}, result.OCRText)
	assert.Equal(t, "raw", result.RawResponse)
}

func TestCombinedText(t *testing.T) {
	r := &Result{OCRText: []string{"OLD TOM RESERVE", "", "GOVERNMENT WARNING"}}
	assert.Equal(t, "OLD TOM RESERVE\nGOVERNMENT WARNING", r.CombinedText())

	empty := &Result{}
	assert.Equal(t, "", empty.CombinedText())
}

func TestLocateBounds(t *testing.T) {
	words := []Word{
		{Text: "KENTUCKY", Bounds: models.BoundingBox{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.05}},
		{Text: "Old", Bounds: models.BoundingBox{X: 0.1, Y: 0.2, Width: 0.1, Height: 0.05}},
		{Text: "Tom", Bounds: models.BoundingBox{X: 0.22, Y: 0.2, Width: 0.1, Height: 0.05}},
		{Text: "Reserve", Bounds: models.BoundingBox{X: 0.34, Y: 0.21, Width: 0.15, Height: 0.06}},
	}

	box := locateBounds(words, "Old Tom Reserve")
	require.NotNil(t, box)
	assert.InDelta(t, 0.1, box.X, 1e-9)
	assert.InDelta(t, 0.2, box.Y, 1e-9)
	assert.InDelta(t, 0.39, box.Width, 1e-9)
	assert.InDelta(t, 0.07, box.Height, 1e-9)
}

func TestLocateBoundsCaseAndPunctuation(t *testing.T) {
	words := []Word{
		{Text: "OLD", Bounds: models.BoundingBox{X: 0.1, Y: 0.1, Width: 0.1, Height: 0.05}},
		{Text: "TOM'S", Bounds: models.BoundingBox{X: 0.22, Y: 0.1, Width: 0.1, Height: 0.05}},
	}

	box := locateBounds(words, "old tom's")
	require.NotNil(t, box)
	assert.InDelta(t, 0.22, box.Width, 1e-9)
}

func TestLocateBoundsNotFound(t *testing.T) {
	words := []Word{
		{Text: "KENTUCKY", Bounds: models.BoundingBox{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.05}},
	}

	assert.Nil(t, locateBounds(words, "Old Tom Reserve"))
	assert.Nil(t, locateBounds(nil, "Old Tom Reserve"))
	assert.Nil(t, locateBounds(words, ""))
}

func TestUnionBoxes(t *testing.T) {
	a := models.BoundingBox{X: 0.1, Y: 0.1, Width: 0.1, Height: 0.1}
	b := models.BoundingBox{X: 0.3, Y: 0.05, Width: 0.1, Height: 0.1}

	u := unionBoxes(a, b)
	assert.InDelta(t, 0.1, u.X, 1e-9)
	assert.InDelta(t, 0.05, u.Y, 1e-9)
	assert.InDelta(t, 0.3, u.Width, 1e-9)
	assert.InDelta(t, 0.15, u.Height, 1e-9)
}
