package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"labelcheck/internal/logger"
	"labelcheck/pkg/models"
)

// ClassifierConfig configures the OpenAI field classifier.
type ClassifierConfig struct {
	Model       string  // e.g. gpt-4o-mini
	Temperature float32 // low values keep extraction deterministic
	MaxRetries  int     // attempts before giving up on malformed responses
	MaxTokens   int
}

// DefaultClassifierConfig returns a ClassifierConfig with sensible defaults.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		Model:       "gpt-4o-mini",
		Temperature: 0.1,
		MaxRetries:  3,
		MaxTokens:   1500,
	}
}

// OpenAIExtractor implements Extractor by running Vision OCR over the images
// and asking an OpenAI model to map the OCR text onto candidate field values
// and image-type classifications.
type OpenAIExtractor struct {
	ocr    *VisionOCR
	client *openai.Client
	config ClassifierConfig
	log    zerolog.Logger
}

// classifierResponse is the structured JSON the model is asked to return.
type classifierResponse struct {
	Fields []struct {
		Field      string `json:"field"`
		Value      string `json:"value"`
		Confidence any    `json:"confidence"` // model sometimes returns a string
		ImageIndex int    `json:"image_index"`
	} `json:"fields"`
	Images []struct {
		ImageIndex int    `json:"image_index"`
		ImageType  string `json:"image_type"`
		Confidence any    `json:"confidence"`
	} `json:"images"`
}

// NewOpenAIExtractor creates an extractor with dependencies from environment.
func NewOpenAIExtractor(ctx context.Context) (*OpenAIExtractor, error) {
	const op = "NewOpenAIExtractor"

	ocr, err := NewVisionOCR(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create OCR service: %w", op, err)
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("%s: OPENAI_API_KEY environment variable is required", op)
	}

	config := DefaultClassifierConfig()
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		config.Model = model
	}
	if retries := os.Getenv("CLASSIFIER_MAX_RETRIES"); retries != "" {
		if n, err := strconv.Atoi(retries); err == nil && n > 0 {
			config.MaxRetries = n
		}
	}

	return NewOpenAIExtractorWithDeps(ocr, openai.NewClient(apiKey), config), nil
}

// NewOpenAIExtractorWithDeps creates an extractor with explicit dependencies.
func NewOpenAIExtractorWithDeps(ocr *VisionOCR, client *openai.Client, config ClassifierConfig) *OpenAIExtractor {
	return &OpenAIExtractor{
		ocr:    ocr,
		client: client,
		config: config,
		log:    logger.WithComponent("field-classifier"),
	}
}

// ExtractFields implements Extractor.
func (e *OpenAIExtractor) ExtractFields(ctx context.Context, images [][]byte, bt models.BeverageType, hints map[models.FieldID]string) (*Result, error) {
	const op = "ExtractFields"
	start := time.Now()

	pages, err := e.ocr.AnnotateImages(ctx, images)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.Text
	}

	result, err := e.classify(ctx, texts, bt, hints)
	if err != nil {
		return nil, WrapExtractionError(op, err, "")
	}

	// Attach word-level bounding boxes to the candidates the model found.
	for i := range result.Fields {
		f := &result.Fields[i]
		if f.ImageIndex >= 0 && f.ImageIndex < len(pages) {
			f.Bounds = locateBounds(pages[f.ImageIndex].Words, f.Value)
		}
	}

	result.ProcessingTime = time.Since(start)
	return result, nil
}

// ExtractFromText classifies pre-extracted OCR text, one string per source
// page. Used for PDF submissions that were OCR'd with Document AI; no
// bounding boxes are available on this path.
func (e *OpenAIExtractor) ExtractFromText(ctx context.Context, texts []string, bt models.BeverageType, hints map[models.FieldID]string) (*Result, error) {
	const op = "ExtractFromText"
	start := time.Now()

	result, err := e.classify(ctx, texts, bt, hints)
	if err != nil {
		return nil, WrapExtractionError(op, err, "")
	}
	result.ProcessingTime = time.Since(start)
	return result, nil
}

func (e *OpenAIExtractor) classify(ctx context.Context, texts []string, bt models.BeverageType, hints map[models.FieldID]string) (*Result, error) {
	prompt := e.buildPrompt(texts, bt, hints)

	e.log.Debug().
		Int("prompt_length", len(prompt)).
		Int("image_count", len(texts)).
		Str("model", e.config.Model).
		Msg("Sending classification request")

	var lastErr error
	for attempt := 1; attempt <= e.config.MaxRetries; attempt++ {
		resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       e.config.Model,
			Temperature: e.config.Temperature,
			MaxTokens:   e.config.MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			lastErr = err
			e.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_retries", e.config.MaxRetries).
				Msg("Classification request failed, retrying")
			continue
		}

		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("no response choices from model")
			continue
		}
		content := resp.Choices[0].Message.Content

		parsed, err := parseClassifierResponse(content)
		if err != nil {
			lastErr = err
			e.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Msg("Failed to parse classifier response, retrying")
			continue
		}

		result := e.buildResult(parsed, texts, content)
		result.ModelUsed = resp.Model
		result.Tokens = TokenMetrics{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}

		e.log.Info().
			Int("fields_extracted", len(result.Fields)).
			Int("images_classified", len(result.ImageClassifications)).
			Int("total_tokens", result.Tokens.TotalTokens).
			Int("attempt", attempt).
			Msg("Field classification completed")

		return result, nil
	}

	return nil, fmt.Errorf("%w: all %d attempts failed, last error: %v", ErrClassifierFailed, e.config.MaxRetries, lastErr)
}

func parseClassifierResponse(content string) (*classifierResponse, error) {
	// Some models wrap JSON in a markdown fence.
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var parsed classifierResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse classifier JSON response: %w", err)
	}
	return &parsed, nil
}

func (e *OpenAIExtractor) buildResult(parsed *classifierResponse, texts []string, raw string) *Result {
	result := &Result{
		OCRText:     texts,
		RawResponse: raw,
	}

	for _, f := range parsed.Fields {
		id := models.FieldID(f.Field)
		if !id.Valid() {
			e.log.Warn().
				Str("field", f.Field).
				Msg("Classifier returned unknown field identifier, dropping")
			continue
		}
		if strings.TrimSpace(f.Value) == "" {
			continue
		}
		result.Fields = append(result.Fields, models.ExtractedField{
			Field:      id,
			Value:      strings.TrimSpace(f.Value),
			Confidence: parseConfidence(f.Confidence),
			ImageIndex: f.ImageIndex,
		})
	}

	for _, img := range parsed.Images {
		imageType := models.ImageType(img.ImageType)
		switch imageType {
		case models.ImageTypeFront, models.ImageTypeBack, models.ImageTypeNeck, models.ImageTypeOther:
		default:
			imageType = models.ImageTypeOther
		}
		result.ImageClassifications = append(result.ImageClassifications, ImageClassification{
			ImageIndex: img.ImageIndex,
			ImageType:  imageType,
			Confidence: parseConfidence(img.Confidence),
		})
	}

	return result
}

// parseConfidence accepts the confidence as number or string, normalized to
// a 0-100 scale.
func parseConfidence(v any) float64 {
	var conf float64
	switch val := v.(type) {
	case float64:
		conf = val
	case string:
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			conf = parsed
		}
	}
	if conf > 0 && conf <= 1 {
		conf *= 100
	}
	if conf < 0 {
		conf = 0
	}
	if conf > 100 {
		conf = 100
	}
	return conf
}

const systemPrompt = `You classify OCR text from alcoholic beverage label photographs for regulatory review.

You receive the OCR text of 1-10 label images. Identify regulated label fields and which container face each image shows.

Known field identifiers (use EXACTLY these keys):
brand_name, fanciful_name, class_type, alcohol_content, net_contents, health_warning, name_address, appellation, grape_varietal, vintage_date, sulfite_declaration, country_of_origin

Image types: front, back, neck, other

IMPORTANT: Return ONLY valid JSON with NO trailing commas, in this shape:
{
  "fields": [{"field": "brand_name", "value": "...", "confidence": 0-100, "image_index": 0}],
  "images": [{"image_index": 0, "image_type": "front", "confidence": 0-100}]
}

Rules:
- Report values exactly as printed, do not correct spelling.
- Omit fields that do not appear. Never invent values.
- image_index refers to the image the value was read from.`

func (e *OpenAIExtractor) buildPrompt(texts []string, bt models.BeverageType, hints map[models.FieldID]string) string {
	var prompt strings.Builder

	fmt.Fprintf(&prompt, "Beverage category: %s\n\n", bt)

	if len(hints) > 0 {
		prompt.WriteString("The application declares these values (locate them if present, but report what the label actually shows):\n")
		for _, id := range models.AllFields {
			if v, ok := hints[id]; ok && v != "" {
				fmt.Fprintf(&prompt, "- %s: %s\n", id, v)
			}
		}
		prompt.WriteString("\n")
	}

	for i, text := range texts {
		fmt.Fprintf(&prompt, "--- Image %d OCR text ---\n%s\n\n", i, text)
	}

	return prompt.String()
}

// locateBounds finds the value's words in the OCR word list and returns the
// union of their boxes, or nil when the value cannot be located.
func locateBounds(words []Word, value string) *models.BoundingBox {
	tokens := strings.Fields(strings.ToLower(value))
	if len(tokens) == 0 || len(words) == 0 {
		return nil
	}

	for start := 0; start < len(words); start++ {
		if !strings.EqualFold(strings.Trim(words[start].Text, ".,'-"), strings.Trim(tokens[0], ".,'-")) {
			continue
		}

		end := start
		matched := 1
		for matched < len(tokens) && end+1 < len(words) {
			next := strings.ToLower(strings.Trim(words[end+1].Text, ".,'-"))
			if next != strings.Trim(tokens[matched], ".,'-") {
				break
			}
			end++
			matched++
		}
		if matched < len(tokens) && len(tokens) > 1 {
			continue
		}

		box := words[start].Bounds
		for i := start + 1; i <= end; i++ {
			box = unionBoxes(box, words[i].Bounds)
		}
		return &box
	}
	return nil
}

func unionBoxes(a, b models.BoundingBox) models.BoundingBox {
	minX := a.X
	if b.X < minX {
		minX = b.X
	}
	minY := a.Y
	if b.Y < minY {
		minY = b.Y
	}
	maxX := a.X + a.Width
	if bx := b.X + b.Width; bx > maxX {
		maxX = bx
	}
	maxY := a.Y + a.Height
	if by := b.Y + b.Height; by > maxY {
		maxY = by
	}
	return models.BoundingBox{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
