// Package rules holds the beverage-category rule tables the compliance core
// is driven by: mandatory fields per category, valid container sizes,
// rejection/minor field sets, correction windows, and the statutory health
// warning text.
//
// The tables are plain immutable data. Default() returns the built-in tables;
// Load() reads a YAML override so tests and deployments can substitute
// alternate configurations deterministically.
package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"labelcheck/pkg/models"
)

// StatutoryWarningText is the health warning statement required verbatim on
// every alcoholic-beverage label.
const StatutoryWarningText = "GOVERNMENT WARNING: (1) According to the Surgeon General, " +
	"women should not drink alcoholic beverages during pregnancy because of the risk of birth defects. " +
	"(2) Consumption of alcoholic beverages impairs your ability to drive a car or operate machinery, " +
	"and may cause health problems."

// WarningLandmarkPrefix is the standardized opening phrase of the statutory
// warning, used as a landmark when reconciling garbled OCR text.
const WarningLandmarkPrefix = "GOVERNMENT WARNING"

// SulfiteDeclarationText is the standard sulfite statement for wine.
const SulfiteDeclarationText = "CONTAINS SULFITES"

// Category describes the labeling requirements for one beverage category.
type Category struct {
	Type            models.BeverageType `yaml:"type"`
	MandatoryFields []models.FieldID    `yaml:"mandatory_fields"`

	// ValidSizesMl is the closed set of permitted container sizes in
	// milliliters. Empty means the category has no size restriction.
	ValidSizesMl []int `yaml:"valid_sizes_ml"`

	// MinWarningTypeMm is the minimum legible type size for the statutory
	// warning on this category's containers. Carried as part of the config
	// surface; legibility itself is assessed outside this core.
	MinWarningTypeMm float64 `yaml:"min_warning_type_mm"`
}

// SizeValid reports whether a container size is permitted for the category.
// Categories without a size restriction accept every size.
func (c Category) SizeValid(sizeMl int) bool {
	if len(c.ValidSizesMl) == 0 {
		return true
	}
	for _, s := range c.ValidSizesMl {
		if s == sizeMl {
			return true
		}
	}
	return false
}

// Mandatory reports whether the field is required for this category.
func (c Category) Mandatory(field models.FieldID) bool {
	for _, f := range c.MandatoryFields {
		if f == field {
			return true
		}
	}
	return false
}

// Warning holds the statutory warning text and the phrases used to verify
// its presence on a noisy scan.
type Warning struct {
	Text           string   `yaml:"text"`
	LandmarkPrefix string   `yaml:"landmark_prefix"`
	BodyPhrases    []string `yaml:"body_phrases"`

	// MinBodyPhrases is how many body phrases must be legible before a
	// landmark-prefix hit counts as the full warning being present.
	MinBodyPhrases int `yaml:"min_body_phrases"`
}

// Ruleset is the full immutable rule configuration passed into the core.
type Ruleset struct {
	Categories map[models.BeverageType]Category `yaml:"categories"`

	// RejectionFields force overall rejection when absent or mismatched.
	RejectionFields []models.FieldID `yaml:"rejection_fields"`

	// MinorFields only downgrade to conditional approval on mismatch.
	MinorFields []models.FieldID `yaml:"minor_fields"`

	// CorrectionDays is the deadline attached to needs_correction.
	CorrectionDays int `yaml:"correction_days"`

	// ConditionalDays is the deadline attached to conditionally_approved.
	ConditionalDays int `yaml:"conditional_days"`

	Warning Warning `yaml:"warning"`
}

// Default returns the built-in rule tables.
func Default() *Ruleset {
	return &Ruleset{
		Categories: map[models.BeverageType]Category{
			models.BeverageDistilledSpirits: {
				Type: models.BeverageDistilledSpirits,
				MandatoryFields: []models.FieldID{
					models.FieldBrandName,
					models.FieldClassType,
					models.FieldAlcoholContent,
					models.FieldNetContents,
					models.FieldHealthWarning,
					models.FieldNameAddress,
				},
				ValidSizesMl:     []int{50, 100, 200, 375, 700, 720, 750, 900, 1000, 1750},
				MinWarningTypeMm: 2.0,
			},
			models.BeverageWine: {
				Type: models.BeverageWine,
				MandatoryFields: []models.FieldID{
					models.FieldBrandName,
					models.FieldClassType,
					models.FieldAlcoholContent,
					models.FieldNetContents,
					models.FieldHealthWarning,
					models.FieldNameAddress,
					models.FieldSulfiteDeclaration,
				},
				ValidSizesMl:     []int{50, 100, 187, 200, 250, 355, 375, 500, 750, 1000, 1500, 3000},
				MinWarningTypeMm: 2.0,
			},
			models.BeverageMalt: {
				Type: models.BeverageMalt,
				MandatoryFields: []models.FieldID{
					models.FieldBrandName,
					models.FieldClassType,
					models.FieldNetContents,
					models.FieldHealthWarning,
					models.FieldNameAddress,
				},
				// Malt beverages have no container size restriction.
				ValidSizesMl:     nil,
				MinWarningTypeMm: 1.8,
			},
		},
		RejectionFields: []models.FieldID{
			models.FieldHealthWarning,
		},
		MinorFields: []models.FieldID{
			models.FieldBrandName,
			models.FieldFancifulName,
			models.FieldAppellation,
			models.FieldGrapeVarietal,
		},
		CorrectionDays:  30,
		ConditionalDays: 7,
		Warning: Warning{
			Text:           StatutoryWarningText,
			LandmarkPrefix: WarningLandmarkPrefix,
			BodyPhrases: []string{
				"surgeon general",
				"pregnancy",
				"birth defects",
				"drive a car",
				"operate machinery",
				"health problems",
			},
			MinBodyPhrases: 4,
		},
	}
}

// Load reads a YAML rule file. Fields absent from the file keep their
// built-in defaults.
func Load(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: failed to read %s: %w", path, err)
	}

	rs := Default()
	if err := yaml.Unmarshal(data, rs); err != nil {
		return nil, fmt.Errorf("rules: failed to parse %s: %w", path, err)
	}

	if err := rs.validate(); err != nil {
		return nil, fmt.Errorf("rules: invalid rule file %s: %w", path, err)
	}
	return rs, nil
}

func (r *Ruleset) validate() error {
	if len(r.Categories) == 0 {
		return fmt.Errorf("no beverage categories defined")
	}
	if r.CorrectionDays <= 0 || r.ConditionalDays <= 0 {
		return fmt.Errorf("deadline day counts must be positive")
	}
	if r.Warning.Text == "" || r.Warning.LandmarkPrefix == "" {
		return fmt.Errorf("statutory warning text and landmark prefix are required")
	}
	if r.Warning.MinBodyPhrases > len(r.Warning.BodyPhrases) {
		return fmt.Errorf("min_body_phrases exceeds the number of body phrases")
	}
	return nil
}

// Category returns the rule entry for a beverage type. Unknown categories
// get a zero Category, which is unrestricted and mandates nothing.
func (r *Ruleset) Category(bt models.BeverageType) (Category, bool) {
	c, ok := r.Categories[bt]
	return c, ok
}

// IsMandatory reports whether the field is mandatory for the given category.
func (r *Ruleset) IsMandatory(bt models.BeverageType, field models.FieldID) bool {
	c, ok := r.Categories[bt]
	return ok && c.Mandatory(field)
}

// IsRejection reports whether a failure on the field forces rejection.
func (r *Ruleset) IsRejection(field models.FieldID) bool {
	return containsField(r.RejectionFields, field)
}

// IsMinor reports whether a mismatch on the field is a minor discrepancy.
func (r *Ruleset) IsMinor(field models.FieldID) bool {
	return containsField(r.MinorFields, field)
}

func containsField(fields []models.FieldID, field models.FieldID) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}
