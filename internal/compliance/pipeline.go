package compliance

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"labelcheck/internal/extraction"
	"labelcheck/internal/logger"
	"labelcheck/internal/rules"
	"labelcheck/pkg/models"
)

// ImageTypeAcceptConfidence is the minimum classification confidence before
// the pipeline proposes relabeling an image's type.
const ImageTypeAcceptConfidence = 60

// VerifyInput is everything one validation run needs.
type VerifyInput struct {
	Expected        ExpectedFieldSet
	Images          [][]byte
	BeverageType    models.BeverageType
	ContainerSizeMl int // 0 = not declared
}

// ImageRelabel proposes changing a stored image's type. The pipeline only
// reports proposals; applying them to storage is the caller's job.
type ImageRelabel struct {
	ImageIndex int              `json:"image_index"`
	ImageType  models.ImageType `json:"image_type"`
	Confidence float64          `json:"confidence"`
}

// ExtractionMeta is the audit-trail slice of the extraction call, opaque to
// the core and carried for the caller to persist.
type ExtractionMeta struct {
	ModelUsed      string                  `json:"model_used"`
	ProcessingTime time.Duration           `json:"processing_time"`
	Tokens         extraction.TokenMetrics `json:"tokens"`
	RawResponse    string                  `json:"raw_response,omitempty"`
}

// VerifyOutput is the packaged result of one validation run. It carries
// everything the caller needs to persist the run and gate auto-approval;
// persistence and supersession of prior results stay with the caller.
type VerifyOutput struct {
	Fields        []models.FieldComparisonResult `json:"fields"`
	Status        models.LabelStatus             `json:"status"`
	DeadlineDays  int                            `json:"deadline_days"`
	Confidence    float64                        `json:"confidence"` // mean of per-field confidences
	ImageRelabels []ImageRelabel                 `json:"image_relabels,omitempty"`
	Extraction    ExtractionMeta                 `json:"extraction"`
}

// Verifier orchestrates one validation run: extraction, per-field
// comparison, and the overall-status decision. It holds no per-run state and
// is safe for concurrent use.
type Verifier struct {
	extractor  extraction.Extractor
	comparator *Comparator
	engine     *RuleEngine
	log        zerolog.Logger
}

// NewVerifier creates a verifier over the given extractor and rule tables.
func NewVerifier(extractor extraction.Extractor, rs *rules.Ruleset) *Verifier {
	return &Verifier{
		extractor:  extractor,
		comparator: NewComparator(rs),
		engine:     NewRuleEngine(rs),
		log:        logger.WithComponent("verifier"),
	}
}

// Verify runs one validation attempt. An extraction failure is returned
// unchanged; the caller decides whether to retry or record the failure.
func (v *Verifier) Verify(ctx context.Context, in VerifyInput) (*VerifyOutput, error) {
	result, err := v.extractor.ExtractFields(ctx, in.Images, in.BeverageType, in.Expected)
	if err != nil {
		return nil, err
	}

	out := &VerifyOutput{
		Status: models.StatusPending,
		Extraction: ExtractionMeta{
			ModelUsed:      result.ModelUsed,
			ProcessingTime: result.ProcessingTime,
			Tokens:         result.Tokens,
			RawResponse:    result.RawResponse,
		},
	}

	for _, ic := range result.ImageClassifications {
		if ic.Confidence >= ImageTypeAcceptConfidence {
			out.ImageRelabels = append(out.ImageRelabels, ImageRelabel{
				ImageIndex: ic.ImageIndex,
				ImageType:  ic.ImageType,
				Confidence: ic.Confidence,
			})
		}
	}

	ocrText := result.CombinedText()

	var statuses []FieldStatus
	var confidenceSum float64
	for _, field := range in.Expected.SortedFields() {
		expected := in.Expected[field]
		candidate := bestCandidate(result.Fields, field)

		var extracted string
		if candidate != nil {
			extracted = candidate.Value
		}

		cmp := v.comparator.CompareField(field, expected, extracted, ocrText)

		fieldResult := models.FieldComparisonResult{
			Field:      field,
			Expected:   expected,
			Extracted:  extracted,
			Status:     cmp.Status,
			Confidence: cmp.Confidence,
			Reasoning:  cmp.Reasoning,
		}
		if candidate != nil {
			fieldResult.Bounds = candidate.Bounds
			fieldResult.ImageIndex = candidate.ImageIndex
		}

		out.Fields = append(out.Fields, fieldResult)
		statuses = append(statuses, FieldStatus{Field: field, Status: cmp.Status})
		confidenceSum += cmp.Confidence
	}

	if len(out.Fields) > 0 {
		out.Confidence = math.Round(confidenceSum/float64(len(out.Fields))*10) / 10
	}

	decision := v.engine.Determine(statuses, in.BeverageType, in.ContainerSizeMl)
	out.Status = decision.Status
	out.DeadlineDays = decision.DeadlineDays

	v.log.Info().
		Str("status", string(out.Status)).
		Int("deadline_days", out.DeadlineDays).
		Float64("confidence", out.Confidence).
		Int("fields", len(out.Fields)).
		Int("relabel_proposals", len(out.ImageRelabels)).
		Msg("Validation run completed")

	return out, nil
}

// bestCandidate picks the highest-confidence extracted value for a field.
func bestCandidate(fields []models.ExtractedField, id models.FieldID) *models.ExtractedField {
	var best *models.ExtractedField
	for i := range fields {
		f := &fields[i]
		if f.Field != id {
			continue
		}
		if best == nil || f.Confidence > best.Confidence {
			best = f
		}
	}
	return best
}
