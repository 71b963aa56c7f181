// Package models contains the shared data types exchanged between the
// compliance core, the extraction services, and the persistence layer.
package models

import (
	"time"

	"github.com/google/uuid"
)

// BeverageType is the regulated beverage category a label is filed under.
type BeverageType string

const (
	BeverageDistilledSpirits BeverageType = "distilled_spirits"
	BeverageWine             BeverageType = "wine"
	BeverageMalt             BeverageType = "malt_beverage"
)

// LabelStatus is the compliance state of a label application.
type LabelStatus string

const (
	StatusPending               LabelStatus = "pending"
	StatusApproved              LabelStatus = "approved"
	StatusConditionallyApproved LabelStatus = "conditionally_approved"
	StatusNeedsCorrection       LabelStatus = "needs_correction"
	StatusRejected              LabelStatus = "rejected"
)

// Label is the persisted label application this core validates against.
// The core references it but does not own its storage.
type Label struct {
	ID              uuid.UUID    `json:"id"`
	BrandName       string       `json:"brand_name"`
	BeverageType    BeverageType `json:"beverage_type"`
	ContainerSizeMl int          `json:"container_size_ml"` // 0 = not declared

	// Status is the currently effective status as last written. A passed
	// correction deadline may make the effective status differ; resolution
	// happens lazily at read time, DeadlineExpired is only an eager hint.
	Status             LabelStatus `json:"status"`
	CorrectionDeadline *time.Time  `json:"correction_deadline,omitempty"`
	DeadlineExpired    bool        `json:"deadline_expired"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidationResult ties one packaged comparison run to a label. Exactly one
// result per label is current at any time; superseding the old current result
// and inserting the new one happen in the same transaction.
type ValidationResult struct {
	ID        uuid.UUID `json:"id"`
	LabelID   uuid.UUID `json:"label_id"`
	IsCurrent bool      `json:"is_current"`

	Status       LabelStatus             `json:"status"`
	DeadlineDays int                     `json:"deadline_days"` // 0 = no deadline
	Confidence   float64                 `json:"confidence"`    // 0-100 aggregate
	Fields       []FieldComparisonResult `json:"fields"`

	// Audit trail of the extraction call, opaque to the core.
	ModelUsed        string `json:"model_used,omitempty"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`

	CreatedAt time.Time `json:"created_at"`
}
