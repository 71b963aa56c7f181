package extraction

import (
	"context"
	"fmt"
	"os"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"labelcheck/pkg/models"
)

// Word is one OCR-detected word with its normalized position.
type Word struct {
	Text       string
	Confidence float64
	Bounds     models.BoundingBox
}

// ImageText is the OCR output for one label image.
type ImageText struct {
	Text       string
	Words      []Word
	Confidence float64
}

// VisionOCR reads label images with the Google Cloud Vision API.
type VisionOCR struct {
	client *vision.ImageAnnotatorClient
}

// NewVisionOCR creates an OCR service with credentials from the environment.
// It expects either GOOGLE_APPLICATION_CREDENTIALS path or GOOGLE_CREDENTIALS
// JSON in env.
func NewVisionOCR(ctx context.Context) (*VisionOCR, error) {
	const op = "NewVisionOCR"

	var client *vision.ImageAnnotatorClient
	var err error

	// Check for inline credentials first
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapExtractionError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapExtractionError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		// Try default credentials as fallback
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapExtractionError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return &VisionOCR{client: client}, nil
}

// NewVisionOCRWithClient creates an OCR service with an explicit client
// (for testing).
func NewVisionOCRWithClient(client *vision.ImageAnnotatorClient) *VisionOCR {
	return &VisionOCR{client: client}
}

// AnnotateImages runs document text detection over the given images and
// returns one ImageText per image, in input order.
func (o *VisionOCR) AnnotateImages(ctx context.Context, images [][]byte) ([]ImageText, error) {
	const op = "AnnotateImages"

	if len(images) < MinImages {
		return nil, WrapExtractionError(op, ErrNoImages, "")
	}
	if len(images) > MaxImages {
		return nil, WrapExtractionError(op, ErrTooManyImages, fmt.Sprintf("%d images supplied", len(images)))
	}

	requests := make([]*visionpb.AnnotateImageRequest, 0, len(images))
	for i, img := range images {
		if len(img) > MaxImageSizeBytes {
			return nil, WrapExtractionError(op, ErrImageTooLarge, fmt.Sprintf("image %d: %d bytes", i, len(img)))
		}
		requests = append(requests, &visionpb.AnnotateImageRequest{
			Image: &visionpb.Image{Content: img},
			Features: []*visionpb.Feature{
				{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
			},
		})
	}

	resp, err := o.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: requests,
	})
	if err != nil {
		return nil, WrapExtractionError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) != len(images) {
		return nil, WrapExtractionError(op, ErrOCRFailed, fmt.Sprintf("expected %d responses, got %d", len(images), len(resp.Responses)))
	}

	results := make([]ImageText, len(images))
	for i, imgResp := range resp.Responses {
		if imgResp.Error != nil {
			return nil, WrapExtractionError(op, ErrOCRFailed, fmt.Sprintf("image %d: %s", i, imgResp.Error.Message))
		}
		results[i] = parseAnnotation(imgResp.FullTextAnnotation)
	}
	return results, nil
}

// parseAnnotation flattens a Vision full-text annotation into plain text and
// word-level entries with unit-square bounding boxes.
func parseAnnotation(annotation *visionpb.TextAnnotation) ImageText {
	if annotation == nil {
		return ImageText{}
	}

	result := ImageText{Text: annotation.Text}

	var confidenceSum float64
	var confidenceCount int

	for _, page := range annotation.Pages {
		width := float64(page.Width)
		height := float64(page.Height)

		for _, block := range page.Blocks {
			for _, paragraph := range block.Paragraphs {
				for _, word := range paragraph.Words {
					var sb strings.Builder
					for _, symbol := range word.Symbols {
						sb.WriteString(symbol.Text)
					}
					text := sb.String()
					if text == "" {
						continue
					}

					w := Word{
						Text:       text,
						Confidence: float64(word.Confidence),
						Bounds:     normalizeBounds(word.BoundingBox, width, height),
					}
					result.Words = append(result.Words, w)

					if word.Confidence > 0 {
						confidenceSum += float64(word.Confidence)
						confidenceCount++
					}
				}
			}
		}
	}

	if confidenceCount > 0 {
		result.Confidence = confidenceSum / float64(confidenceCount)
	}
	return result
}

// normalizeBounds converts a Vision bounding polygon to an axis-aligned box
// in unit-square coordinates. Vision may report either normalized or pixel
// vertices depending on the feature; both are handled.
func normalizeBounds(poly *visionpb.BoundingPoly, pageWidth, pageHeight float64) models.BoundingBox {
	if poly == nil {
		return models.BoundingBox{}
	}

	var xs, ys []float64
	if len(poly.NormalizedVertices) > 0 {
		for _, v := range poly.NormalizedVertices {
			xs = append(xs, float64(v.X))
			ys = append(ys, float64(v.Y))
		}
	} else if pageWidth > 0 && pageHeight > 0 {
		for _, v := range poly.Vertices {
			xs = append(xs, float64(v.X)/pageWidth)
			ys = append(ys, float64(v.Y)/pageHeight)
		}
	}
	if len(xs) == 0 {
		return models.BoundingBox{}
	}

	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for i := 1; i < len(xs); i++ {
		if xs[i] < minX {
			minX = xs[i]
		}
		if xs[i] > maxX {
			maxX = xs[i]
		}
		if ys[i] < minY {
			minY = ys[i]
		}
		if ys[i] > maxY {
			maxY = ys[i]
		}
	}

	return models.BoundingBox{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// Close closes the underlying Vision client.
func (o *VisionOCR) Close() error {
	if o.client != nil {
		return o.client.Close()
	}
	return nil
}
