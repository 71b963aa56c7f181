package compliance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelcheck/internal/compliance"
	"labelcheck/internal/rules"
	"labelcheck/pkg/models"
)

func newEngine() *compliance.RuleEngine {
	return compliance.NewRuleEngine(rules.Default())
}

func TestDetermineAllMatchApproved(t *testing.T) {
	e := newEngine()

	decision := e.Determine([]compliance.FieldStatus{
		{Field: models.FieldBrandName, Status: models.MatchStatusMatch},
		{Field: models.FieldAlcoholContent, Status: models.MatchStatusMatch},
		{Field: models.FieldHealthWarning, Status: models.MatchStatusMatch},
	}, models.BeverageDistilledSpirits, 750)

	assert.Equal(t, models.StatusApproved, decision.Status)
	assert.Zero(t, decision.DeadlineDays)
}

func TestDetermineRejectionFieldMissing(t *testing.T) {
	e := newEngine()

	// The statutory health warning is a rejection field: its absence
	// forces rejection regardless of everything else.
	decision := e.Determine([]compliance.FieldStatus{
		{Field: models.FieldBrandName, Status: models.MatchStatusMatch},
		{Field: models.FieldHealthWarning, Status: models.MatchStatusNotFound},
	}, models.BeverageDistilledSpirits, 0)

	assert.Equal(t, models.StatusRejected, decision.Status)
	assert.Zero(t, decision.DeadlineDays)
}

func TestDeterminePriorityLaw(t *testing.T) {
	e := newEngine()

	// A rejection-field mismatch wins over any number of other outcomes.
	decision := e.Determine([]compliance.FieldStatus{
		{Field: models.FieldHealthWarning, Status: models.MatchStatusMismatch},
		{Field: models.FieldAlcoholContent, Status: models.MatchStatusMismatch},
	}, models.BeverageDistilledSpirits, 0)

	assert.Equal(t, models.StatusRejected, decision.Status)
	assert.Zero(t, decision.DeadlineDays)
}

func TestDetermineSubstantiveMismatch(t *testing.T) {
	e := newEngine()

	decision := e.Determine([]compliance.FieldStatus{
		{Field: models.FieldBrandName, Status: models.MatchStatusMatch},
		{Field: models.FieldAlcoholContent, Status: models.MatchStatusMismatch},
	}, models.BeverageWine, 750)

	assert.Equal(t, models.StatusNeedsCorrection, decision.Status)
	assert.Equal(t, 30, decision.DeadlineDays)
}

func TestDetermineMinorDiscrepancy(t *testing.T) {
	e := newEngine()

	// Brand name is in the minor set: mismatch only downgrades to
	// conditional approval.
	decision := e.Determine([]compliance.FieldStatus{
		{Field: models.FieldBrandName, Status: models.MatchStatusMismatch},
		{Field: models.FieldHealthWarning, Status: models.MatchStatusMatch},
	}, models.BeverageWine, 750)

	assert.Equal(t, models.StatusConditionallyApproved, decision.Status)
	assert.Equal(t, 7, decision.DeadlineDays)
}

func TestDetermineOptionalFieldMismatchIsMinor(t *testing.T) {
	e := newEngine()

	// Vintage date is optional for spirits: a mismatch is a minor
	// discrepancy with the short deadline.
	decision := e.Determine([]compliance.FieldStatus{
		{Field: models.FieldBrandName, Status: models.MatchStatusMatch},
		{Field: models.FieldHealthWarning, Status: models.MatchStatusMatch},
		{Field: models.FieldVintageDate, Status: models.MatchStatusMismatch},
	}, models.BeverageDistilledSpirits, 750)

	assert.Equal(t, models.StatusConditionallyApproved, decision.Status)
	assert.Equal(t, 7, decision.DeadlineDays)
}

func TestDetermineOptionalFieldNotFoundIgnored(t *testing.T) {
	e := newEngine()

	decision := e.Determine([]compliance.FieldStatus{
		{Field: models.FieldBrandName, Status: models.MatchStatusMatch},
		{Field: models.FieldFancifulName, Status: models.MatchStatusNotFound},
	}, models.BeverageDistilledSpirits, 0)

	assert.Equal(t, models.StatusApproved, decision.Status)
}

func TestDetermineInvalidContainerSize(t *testing.T) {
	e := newEngine()

	decision := e.Determine([]compliance.FieldStatus{
		{Field: models.FieldBrandName, Status: models.MatchStatusMatch},
	}, models.BeverageWine, 537)

	assert.Equal(t, models.StatusRejected, decision.Status)
	assert.Zero(t, decision.DeadlineDays)
}

func TestDetermineMaltBeverageSizeUnrestricted(t *testing.T) {
	e := newEngine()

	// Malt beverages carry no size restriction: any size is valid.
	for _, size := range []int{1, 537, 40000} {
		decision := e.Determine([]compliance.FieldStatus{
			{Field: models.FieldBrandName, Status: models.MatchStatusMatch},
		}, models.BeverageMalt, size)
		assert.Equal(t, models.StatusApproved, decision.Status, "size %d", size)
	}
}

func TestDetermineEmptyItemsApproved(t *testing.T) {
	e := newEngine()

	// No statuses finds no violations. Guaranteeing mandatory coverage is
	// the expected-field-set builder's job.
	decision := e.Determine(nil, models.BeverageWine, 0)
	assert.Equal(t, models.StatusApproved, decision.Status)
}

func TestDetermineTotality(t *testing.T) {
	e := newEngine()

	allStatuses := []models.MatchStatus{
		models.MatchStatusMatch,
		models.MatchStatusMismatch,
		models.MatchStatusNotFound,
		models.MatchStatusNeedsCorrection,
	}
	validOverall := map[models.LabelStatus]bool{
		models.StatusApproved:              true,
		models.StatusConditionallyApproved: true,
		models.StatusNeedsCorrection:       true,
		models.StatusRejected:              true,
	}

	// Every combination over a fixed three-field set terminates and yields
	// exactly one of the four statuses, with a deadline consistent with it.
	for _, s1 := range allStatuses {
		for _, s2 := range allStatuses {
			for _, s3 := range allStatuses {
				items := []compliance.FieldStatus{
					{Field: models.FieldHealthWarning, Status: s1},
					{Field: models.FieldAlcoholContent, Status: s2},
					{Field: models.FieldGrapeVarietal, Status: s3},
				}
				decision := e.Determine(items, models.BeverageWine, 750)

				require.True(t, validOverall[decision.Status], "items %v produced %q", items, decision.Status)
				switch decision.Status {
				case models.StatusApproved, models.StatusRejected:
					assert.Zero(t, decision.DeadlineDays)
				default:
					assert.Positive(t, decision.DeadlineDays)
				}
			}
		}
	}
}

func TestDetermineDeterministic(t *testing.T) {
	e := newEngine()

	items := []compliance.FieldStatus{
		{Field: models.FieldBrandName, Status: models.MatchStatusMismatch},
		{Field: models.FieldNetContents, Status: models.MatchStatusNeedsCorrection},
	}
	first := e.Determine(items, models.BeverageWine, 750)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.Determine(items, models.BeverageWine, 750))
	}
}
