package compliance

import (
	"math"
	"time"

	"labelcheck/pkg/models"
)

// LabelState is the persisted slice of a label the resolver needs.
type LabelState struct {
	Status             models.LabelStatus
	CorrectionDeadline *time.Time

	// DeadlineExpired is an eager hint a caller may have set; correctness
	// does not depend on it. The deadline counts as passed when the flag
	// is true or the timestamp is at or before now.
	DeadlineExpired bool
}

// EffectiveStatus computes the status that should be shown and acted upon
// right now, without requiring a background job to have rewritten the stored
// status. Expiry escalates one step per cycle: needs_correction becomes
// rejected, conditionally_approved becomes needs_correction (which then gets
// a fresh correction window and only becomes rejected on a second expiry).
// Any other status passes through unchanged.
func EffectiveStatus(st LabelState, now time.Time) models.LabelStatus {
	if st.CorrectionDeadline == nil {
		return st.Status
	}

	passed := st.DeadlineExpired || !st.CorrectionDeadline.After(now)
	if !passed {
		return st.Status
	}

	switch st.Status {
	case models.StatusNeedsCorrection:
		return models.StatusRejected
	case models.StatusConditionallyApproved:
		return models.StatusNeedsCorrection
	default:
		return st.Status
	}
}

// Urgency is the display classification of a correction deadline.
type Urgency string

const (
	UrgencyGreen   Urgency = "green"   // more than 7 days remaining
	UrgencyAmber   Urgency = "amber"   // 1-7 days remaining
	UrgencyRed     Urgency = "red"     // less than 24 hours remaining
	UrgencyExpired Urgency = "expired" // deadline passed
)

// DeadlineInfo summarizes how much time remains before a deadline.
type DeadlineInfo struct {
	DaysRemaining int     `json:"days_remaining"`
	Urgency       Urgency `json:"urgency"`
}

// Deadline classifies a correction deadline against the given wall clock.
// DaysRemaining rounds remaining time up to whole days.
func Deadline(deadline, now time.Time) DeadlineInfo {
	remaining := deadline.Sub(now)
	if remaining <= 0 {
		return DeadlineInfo{DaysRemaining: 0, Urgency: UrgencyExpired}
	}

	days := int(math.Ceil(float64(remaining.Milliseconds()) / float64(24*time.Hour/time.Millisecond)))

	switch {
	case remaining < 24*time.Hour:
		return DeadlineInfo{DaysRemaining: days, Urgency: UrgencyRed}
	case days <= 7:
		return DeadlineInfo{DaysRemaining: days, Urgency: UrgencyAmber}
	default:
		return DeadlineInfo{DaysRemaining: days, Urgency: UrgencyGreen}
	}
}
