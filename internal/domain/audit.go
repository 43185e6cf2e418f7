package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Audit actions recorded per mutated entity or edge.
const (
	AuditEntityCreated        = "entity_created"
	AuditEntityMerged         = "entity_merged"
	AuditEdgeCreated          = "edge_created"
	AuditEdgeRejected         = "edge_rejected"
	AuditObservationDiscarded = "observation_discarded"
	AuditConfidenceUpdated    = "confidence_updated"
	AuditPropagationAborted   = "propagation_aborted"
)

// AuditRecord is the append-only trail of every mutation (or rejection) the
// engine produced. ObservationSourceID is indexed so a re-run of the same
// observation finds its prior work; single processing is guaranteed by the
// pre-mutation trail check under the resolution-key lock, not by the index.
type AuditRecord struct {
	ID                  uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ObservationSourceID string         `gorm:"column:observation_source_id;not null;index" json:"observation_source_id"`
	Action              string         `gorm:"column:action;not null" json:"action"`
	EntityID            *uuid.UUID     `gorm:"type:uuid;column:entity_id;index" json:"entity_id,omitempty"`
	EdgeID              *uuid.UUID     `gorm:"type:uuid;column:edge_id;index" json:"edge_id,omitempty"`
	Before              datatypes.JSON `gorm:"column:before;type:jsonb" json:"before,omitempty"`
	After               datatypes.JSON `gorm:"column:after;type:jsonb" json:"after,omitempty"`
	Outcome             string         `gorm:"column:outcome;not null" json:"outcome"`
	ErrorCode           string         `gorm:"column:error_code" json:"error_code,omitempty"`
	CreatedAt           time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

// Review reasons emitted to the review queue.
const (
	ReviewMergeFlagged       = "merge_flagged"
	ReviewCandidateDuplicate = "candidate_duplicate"
	ReviewTemporalConflict   = "temporal_conflict"
	ReviewAnomaly            = "anomaly"
	ReviewAnachronism        = "anachronism"
)

// ReviewItem is one unit of asynchronous human-review work. Emission is a
// side effect of the pipeline, never a gate.
type ReviewItem struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EntityID  *uuid.UUID `gorm:"type:uuid;column:entity_id;index" json:"entity_id,omitempty"`
	EdgeID    *uuid.UUID `gorm:"type:uuid;column:edge_id;index" json:"edge_id,omitempty"`
	Reason    string     `gorm:"column:reason;not null;index" json:"reason"`
	Priority  int        `gorm:"column:priority;not null;default:0" json:"priority"`
	Note      string     `gorm:"column:note;type:text" json:"note,omitempty"`
	Resolved  bool       `gorm:"column:resolved;not null;default:false" json:"resolved"`
	CreatedAt time.Time  `gorm:"not null;default:now()" json:"created_at"`
}
