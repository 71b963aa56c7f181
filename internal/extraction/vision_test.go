package extraction

import (
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wordOf(text string, confidence float32, vertices []*visionpb.Vertex) *visionpb.Word {
	symbols := make([]*visionpb.Symbol, 0, len(text))
	for _, r := range text {
		symbols = append(symbols, &visionpb.Symbol{Text: string(r)})
	}
	return &visionpb.Word{
		Symbols:     symbols,
		Confidence:  confidence,
		BoundingBox: &visionpb.BoundingPoly{Vertices: vertices},
	}
}

func TestParseAnnotation(t *testing.T) {
	annotation := &visionpb.TextAnnotation{
		Text: "OLD TOM",
		Pages: []*visionpb.Page{{
			Width:  1000,
			Height: 500,
			Blocks: []*visionpb.Block{{
				Paragraphs: []*visionpb.Paragraph{{
					Words: []*visionpb.Word{
						wordOf("OLD", 0.9, []*visionpb.Vertex{
							{X: 100, Y: 50}, {X: 200, Y: 50}, {X: 200, Y: 100}, {X: 100, Y: 100},
						}),
						wordOf("TOM", 0.7, []*visionpb.Vertex{
							{X: 220, Y: 50}, {X: 320, Y: 50}, {X: 320, Y: 100}, {X: 220, Y: 100},
						}),
					},
				}},
			}},
		}},
	}

	result := parseAnnotation(annotation)

	assert.Equal(t, "OLD TOM", result.Text)
	require.Len(t, result.Words, 2)
	assert.Equal(t, "OLD", result.Words[0].Text)
	assert.Equal(t, "TOM", result.Words[1].Text)
	assert.InDelta(t, 0.8, result.Confidence, 0.001)

	// Pixel vertices are normalized against the page dimensions.
	b := result.Words[0].Bounds
	assert.InDelta(t, 0.1, b.X, 1e-6)
	assert.InDelta(t, 0.1, b.Y, 1e-6)
	assert.InDelta(t, 0.1, b.Width, 1e-6)
	assert.InDelta(t, 0.1, b.Height, 1e-6)
}

func TestParseAnnotationNil(t *testing.T) {
	result := parseAnnotation(nil)
	assert.Empty(t, result.Text)
	assert.Empty(t, result.Words)
}

func TestNormalizeBoundsNormalizedVertices(t *testing.T) {
	poly := &visionpb.BoundingPoly{
		NormalizedVertices: []*visionpb.NormalizedVertex{
			{X: 0.2, Y: 0.3}, {X: 0.5, Y: 0.3}, {X: 0.5, Y: 0.4}, {X: 0.2, Y: 0.4},
		},
	}

	b := normalizeBounds(poly, 0, 0)
	assert.InDelta(t, 0.2, b.X, 1e-6)
	assert.InDelta(t, 0.3, b.Y, 1e-6)
	assert.InDelta(t, 0.3, b.Width, 1e-6)
	assert.InDelta(t, 0.1, b.Height, 1e-6)
}

func TestNormalizeBoundsSkewedPolygon(t *testing.T) {
	// A rotated quadrilateral collapses to its axis-aligned hull.
	poly := &visionpb.BoundingPoly{
		NormalizedVertices: []*visionpb.NormalizedVertex{
			{X: 0.3, Y: 0.1}, {X: 0.5, Y: 0.2}, {X: 0.4, Y: 0.4}, {X: 0.2, Y: 0.3},
		},
	}

	b := normalizeBounds(poly, 0, 0)
	assert.InDelta(t, 0.2, b.X, 1e-6)
	assert.InDelta(t, 0.1, b.Y, 1e-6)
	assert.InDelta(t, 0.3, b.Width, 1e-6)
	assert.InDelta(t, 0.3, b.Height, 1e-6)
}

func TestNormalizeBoundsMissingData(t *testing.T) {
	assert.Zero(t, normalizeBounds(nil, 100, 100))

	// Pixel vertices without page dimensions cannot be normalized.
	poly := &visionpb.BoundingPoly{Vertices: []*visionpb.Vertex{{X: 10, Y: 10}}}
	assert.Zero(t, normalizeBounds(poly, 0, 0))
}
