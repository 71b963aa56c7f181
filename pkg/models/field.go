package models

// FieldID names one regulated label attribute. The set is closed: external
// application-data keys are mapped onto it via ParseFieldID, and keys that do
// not map are surfaced to the caller instead of being silently compared.
type FieldID string

const (
	FieldBrandName          FieldID = "brand_name"
	FieldFancifulName       FieldID = "fanciful_name"
	FieldClassType          FieldID = "class_type"
	FieldAlcoholContent     FieldID = "alcohol_content"
	FieldNetContents        FieldID = "net_contents"
	FieldHealthWarning      FieldID = "health_warning"
	FieldNameAddress        FieldID = "name_address"
	FieldAppellation        FieldID = "appellation"
	FieldGrapeVarietal      FieldID = "grape_varietal"
	FieldVintageDate        FieldID = "vintage_date"
	FieldSulfiteDeclaration FieldID = "sulfite_declaration"
	FieldCountryOfOrigin    FieldID = "country_of_origin"
)

// AllFields lists every known field identifier in stable order.
var AllFields = []FieldID{
	FieldBrandName,
	FieldFancifulName,
	FieldClassType,
	FieldAlcoholContent,
	FieldNetContents,
	FieldHealthWarning,
	FieldNameAddress,
	FieldAppellation,
	FieldGrapeVarietal,
	FieldVintageDate,
	FieldSulfiteDeclaration,
	FieldCountryOfOrigin,
}

// applicationKeys maps external application-data keys (both the snake_case
// form and the camelCase form used by the filing frontend) to field IDs.
var applicationKeys = map[string]FieldID{
	"brand_name":             FieldBrandName,
	"brandName":              FieldBrandName,
	"fanciful_name":          FieldFancifulName,
	"fancifulName":           FieldFancifulName,
	"class_type":             FieldClassType,
	"classType":              FieldClassType,
	"class_type_designation": FieldClassType,
	"alcohol_content":        FieldAlcoholContent,
	"alcoholContent":         FieldAlcoholContent,
	"net_contents":           FieldNetContents,
	"netContents":            FieldNetContents,
	"health_warning":         FieldHealthWarning,
	"healthWarning":          FieldHealthWarning,
	"name_address":           FieldNameAddress,
	"nameAddress":            FieldNameAddress,
	"bottler_name_address":   FieldNameAddress,
	"appellation":            FieldAppellation,
	"grape_varietal":         FieldGrapeVarietal,
	"grapeVarietal":          FieldGrapeVarietal,
	"vintage_date":           FieldVintageDate,
	"vintageDate":            FieldVintageDate,
	"sulfite_declaration":    FieldSulfiteDeclaration,
	"sulfiteDeclaration":     FieldSulfiteDeclaration,
	"country_of_origin":      FieldCountryOfOrigin,
	"countryOfOrigin":        FieldCountryOfOrigin,
}

// ParseFieldID maps an external application-data key to a field identifier.
// The second return is false for keys outside the closed set.
func ParseFieldID(key string) (FieldID, bool) {
	id, ok := applicationKeys[key]
	return id, ok
}

// Valid reports whether f is a member of the closed field set.
func (f FieldID) Valid() bool {
	for _, known := range AllFields {
		if f == known {
			return true
		}
	}
	return false
}

// MatchStatus classifies the outcome of comparing one expected field value
// against what was read off the label.
type MatchStatus string

const (
	// MatchStatusMatch means the label text agrees with the application.
	MatchStatusMatch MatchStatus = "match"

	// MatchStatusMismatch means the label shows a different value.
	MatchStatusMismatch MatchStatus = "mismatch"

	// MatchStatusNotFound means no trace of the expected value was found.
	MatchStatusNotFound MatchStatus = "not_found"

	// MatchStatusNeedsCorrection means the value is present but garbled or
	// only partially legible, so the label needs a corrected print.
	MatchStatusNeedsCorrection MatchStatus = "needs_correction"
)

// BoundingBox locates text on a source image in unit-square coordinates
// (0.0–1.0, origin top-left).
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ExtractedField is one candidate field value produced by the extraction
// collaborator. Immutable once produced.
type ExtractedField struct {
	Field      FieldID      `json:"field"`
	Value      string       `json:"value"`
	Confidence float64      `json:"confidence"`
	ImageIndex int          `json:"image_index"`
	Bounds     *BoundingBox `json:"bounds,omitempty"`
}

// FieldComparisonResult is the per-field verdict for one validation run.
type FieldComparisonResult struct {
	Field      FieldID      `json:"field"`
	Expected   string       `json:"expected"`
	Extracted  string       `json:"extracted"`
	Status     MatchStatus  `json:"status"`
	Confidence float64      `json:"confidence"` // 0-100
	Reasoning  string       `json:"reasoning"`
	Bounds     *BoundingBox `json:"bounds,omitempty"`
	ImageIndex int          `json:"image_index"`
}

// ImageType classifies which face of the container an image shows.
type ImageType string

const (
	ImageTypeFront ImageType = "front"
	ImageTypeBack  ImageType = "back"
	ImageTypeNeck  ImageType = "neck"
	ImageTypeOther ImageType = "other"
)
