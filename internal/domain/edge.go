package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RelationType is the typed relationship between two lexical entities.
type RelationType string

const (
	RelDescendsFrom RelationType = "DESCENDS_FROM"
	RelBorrowedFrom RelationType = "BORROWED_FROM"
	RelCognateOf    RelationType = "COGNATE_OF"
	RelShiftedTo    RelationType = "SHIFTED_TO"
	RelMergedWith   RelationType = "MERGED_WITH"
)

// IsAncestral reports whether the relation carries temporal direction and
// therefore participates in cycle and temporal-ordering checks.
func (t RelationType) IsAncestral() bool {
	return t == RelDescendsFrom || t == RelBorrowedFrom
}

// Shift subtypes for SHIFTED_TO edges.
const (
	ShiftGeneralization = "generalization"
	ShiftSpecialization = "specialization"
	ShiftMetaphor       = "metaphor"
)

// Edge is a typed, confidence-weighted relationship between two entities.
// For DESCENDS_FROM and BORROWED_FROM the source is the ancestor/donor and
// the target the descendant/recipient; time flows source to target.
type Edge struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SourceID     uuid.UUID      `gorm:"type:uuid;column:source_id;not null;index" json:"source_id"`
	TargetID     uuid.UUID      `gorm:"type:uuid;column:target_id;not null;index" json:"target_id"`
	Relation     RelationType   `gorm:"column:relation;not null;index" json:"relation"`
	Confidence   float64        `gorm:"column:confidence;not null;default:1" json:"confidence"`
	DateOfChange *int           `gorm:"column:date_of_change" json:"date_of_change,omitempty"`
	ChangeType   string         `gorm:"column:change_type" json:"change_type,omitempty"`
	Evidence     datatypes.JSON `gorm:"column:evidence;type:jsonb" json:"evidence,omitempty"` // []string

	HumanValidated bool `gorm:"column:human_validated;not null;default:false" json:"human_validated"`
	NeedsReview    bool `gorm:"column:needs_review;not null;default:false" json:"needs_review"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}
