// Package extraction provides the external collaborators that read label
// photographs: Google Cloud Vision OCR for word-level text with bounding
// boxes, an OpenAI classifier that maps OCR text to candidate field values,
// and a Document AI backend for PDF label submissions.
//
// Required Environment Variables:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//   - OPENAI_API_KEY: OpenAI API key for the field classifier
//
// Cloud Vision API Limitations:
//   - Maximum 10 images per extraction call
//   - Maximum file size: 20MB per image
package extraction

import (
	"context"
	"strings"
	"time"

	"labelcheck/pkg/models"
)

const (
	// MinImages and MaxImages bound one extraction call.
	MinImages = 1
	MaxImages = 10

	// MaxImageSizeBytes is the maximum size of a single image (20MB).
	MaxImageSizeBytes = 20 * 1024 * 1024
)

// Extractor is the collaborator contract the compliance pipeline consumes.
type Extractor interface {
	// ExtractFields runs OCR over the label images and classifies the text
	// into candidate field values. Callable with 1-10 images.
	ExtractFields(ctx context.Context, images [][]byte, bt models.BeverageType, hints map[models.FieldID]string) (*Result, error)
}

// ImageClassification is the extractor's guess at which container face an
// image shows.
type ImageClassification struct {
	ImageIndex int              `json:"image_index"`
	ImageType  models.ImageType `json:"image_type"`
	Confidence float64          `json:"confidence"` // 0-100
}

// TokenMetrics records the model token usage of one extraction call.
type TokenMetrics struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is the full output of one extraction call.
type Result struct {
	Fields               []models.ExtractedField `json:"fields"`
	ImageClassifications []ImageClassification   `json:"image_classifications"`

	// OCRText holds the raw OCR text per image, in image order.
	OCRText []string `json:"ocr_text"`

	RawResponse    string        `json:"raw_response,omitempty"`
	ProcessingTime time.Duration `json:"processing_time"`
	ModelUsed      string        `json:"model_used"`
	Tokens         TokenMetrics  `json:"tokens"`
}

// CombinedText returns the OCR text of all images joined in image order.
// Images that produced no text are skipped.
func (r *Result) CombinedText() string {
	parts := make([]string, 0, len(r.OCRText))
	for _, t := range r.OCRText {
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}
