package compliance

import (
	"labelcheck/internal/rules"
	"labelcheck/pkg/models"
)

// FieldStatus is the per-field input to the rule engine.
type FieldStatus struct {
	Field  models.FieldID
	Status models.MatchStatus
}

// Decision is the overall outcome of one validation run. DeadlineDays is 0
// for approved and rejected, positive otherwise.
type Decision struct {
	Status       models.LabelStatus `json:"status"`
	DeadlineDays int                `json:"deadline_days"`
}

// RuleEngine turns per-field statuses into one deterministic overall
// compliance decision.
type RuleEngine struct {
	rules *rules.Ruleset
}

// NewRuleEngine creates a rule engine over the given rule tables.
func NewRuleEngine(rs *rules.Ruleset) *RuleEngine {
	return &RuleEngine{rules: rs}
}

// Determine computes the overall status. containerSizeMl of 0 means the
// container size was not declared and the size check is skipped.
//
// The function is pure and total: any combination of field statuses yields
// exactly one of the four statuses. An empty items list finds no violations
// and returns approved; guaranteeing every mandatory field is represented is
// the expected-field-set builder's job, not this engine's.
func (e *RuleEngine) Determine(items []FieldStatus, bt models.BeverageType, containerSizeMl int) Decision {
	category, _ := e.rules.Category(bt)

	// Container size is checked first and is grounds for outright
	// rejection. Categories without a size restriction accept any size.
	if containerSizeMl > 0 && !category.SizeValid(containerSizeMl) {
		return Decision{Status: models.StatusRejected}
	}

	var rejections, substantive, minor int
	for _, item := range items {
		switch item.Status {
		case models.MatchStatusMatch:
			// Compliant, contributes nothing.

		case models.MatchStatusNotFound:
			if !e.rules.IsMandatory(bt, item.Field) {
				continue
			}
			if e.rules.IsRejection(item.Field) {
				rejections++
			} else {
				substantive++
			}

		case models.MatchStatusMismatch, models.MatchStatusNeedsCorrection:
			switch {
			case e.rules.IsRejection(item.Field):
				rejections++
			case e.rules.IsMinor(item.Field):
				minor++
			case e.rules.IsMandatory(bt, item.Field):
				substantive++
			default:
				// Optional field discrepancies are minor.
				minor++
			}
		}
	}

	switch {
	case rejections > 0:
		return Decision{Status: models.StatusRejected}
	case substantive > 0:
		return Decision{Status: models.StatusNeedsCorrection, DeadlineDays: e.rules.CorrectionDays}
	case minor > 0:
		return Decision{Status: models.StatusConditionallyApproved, DeadlineDays: e.rules.ConditionalDays}
	default:
		return Decision{Status: models.StatusApproved}
	}
}
