// Package compliance implements the label compliance verification core:
// fuzzy reconciliation of OCR text against expected field values, per-field
// comparison classification, the overall-status rule engine, lazy deadline
// expiration, and the pipeline that ties them together.
//
// Everything here is pure computation except the pipeline's single call to
// the extraction collaborator. Validation runs share no mutable state, so
// any number of labels may be verified concurrently.
package compliance

import (
	"sort"

	"labelcheck/internal/rules"
	"labelcheck/pkg/models"
)

// ExpectedFieldSet maps field identifiers to the values the label is
// expected to show, built once per validation attempt from a frozen snapshot
// of the application data.
type ExpectedFieldSet map[models.FieldID]string

// BuildExpectedFields maps external application-data keys onto the closed
// field enumeration and injects category-mandated constant values (the
// statutory health warning, the sulfite declaration where required) so the
// comparator never silently skips a mandatory check. Keys outside the known
// set are returned in unknown for the caller to report.
func BuildExpectedFields(application map[string]string, bt models.BeverageType, rs *rules.Ruleset) (ExpectedFieldSet, []string) {
	expected := make(ExpectedFieldSet, len(application))
	var unknown []string

	for key, value := range application {
		id, ok := models.ParseFieldID(key)
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		if value != "" {
			expected[id] = value
		}
	}
	sort.Strings(unknown)

	// Mandated fields with fixed statutory text always get an entry.
	if rs.IsMandatory(bt, models.FieldHealthWarning) {
		if _, ok := expected[models.FieldHealthWarning]; !ok {
			expected[models.FieldHealthWarning] = rs.Warning.Text
		}
	}
	if rs.IsMandatory(bt, models.FieldSulfiteDeclaration) {
		if _, ok := expected[models.FieldSulfiteDeclaration]; !ok {
			expected[models.FieldSulfiteDeclaration] = rules.SulfiteDeclarationText
		}
	}

	return expected, unknown
}

// MissingMandatory returns the mandatory fields of the category that have no
// entry in the set, in stable order. A non-empty result means the
// application data is incomplete and the attempt should be sent back to the
// filer rather than validated.
func (s ExpectedFieldSet) MissingMandatory(bt models.BeverageType, rs *rules.Ruleset) []models.FieldID {
	category, ok := rs.Category(bt)
	if !ok {
		return nil
	}
	var missing []models.FieldID
	for _, f := range category.MandatoryFields {
		if _, present := s[f]; !present {
			missing = append(missing, f)
		}
	}
	return missing
}

// SortedFields returns the set's field identifiers in stable order, so that
// validation output is deterministic.
func (s ExpectedFieldSet) SortedFields() []models.FieldID {
	fields := make([]models.FieldID, 0, len(s))
	for f := range s {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}
