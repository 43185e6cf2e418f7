package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DateSource tags where a date (or a reconstructed form's dating) came from.
type DateSource string

const (
	DateAttested      DateSource = "ATTESTED"
	DateInterpolated  DateSource = "INTERPOLATED"
	DateReconstructed DateSource = "RECONSTRUCTED"
)

// Register is the usage register of a word form.
type Register string

const (
	RegisterFormal     Register = "FORMAL"
	RegisterColloquial Register = "COLLOQUIAL"
	RegisterTechnical  Register = "TECHNICAL"
	RegisterSacred     Register = "SACRED"
	RegisterLiterary   Register = "LITERARY"
	RegisterSlang      Register = "SLANG"
)

// Attestation years are bounded to a sane historical window.
const (
	MinYear = -10000
	MaxYear = 2100
)

// LexicalEntity is the graph node of record: one word's form-meaning-usage
// bundle fixed at a language and time window. Entities are never hard
// deleted; a superseded entity points at its survivor via MergedIntoID.
type LexicalEntity struct {
	ID      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Version int       `gorm:"column:version;not null;default:1" json:"version"`

	// Form
	FormOrthographic string `gorm:"column:form_orthographic;not null" json:"form_orthographic"`
	FormPhonetic     string `gorm:"column:form_phonetic" json:"form_phonetic,omitempty"`
	// Normalized form plus language code is the resolution key.
	FormNormalized string `gorm:"column:form_normalized;not null;index:idx_entity_resolution_key,priority:1" json:"form_normalized"`
	PhoneticCode   string `gorm:"column:phonetic_code;index" json:"phonetic_code,omitempty"`

	// Language & time
	LanguageCode   string         `gorm:"column:language_code;not null;index:idx_entity_resolution_key,priority:2" json:"language_code"`
	LanguageName   string         `gorm:"column:language_name" json:"language_name,omitempty"`
	LanguageFamily string         `gorm:"column:language_family;index" json:"language_family,omitempty"`
	LanguageBranch datatypes.JSON `gorm:"column:language_branch;type:jsonb" json:"language_branch,omitempty"` // []string lineage path
	PeriodLabel    string         `gorm:"column:period_label" json:"period_label,omitempty"`
	DateStart      *int           `gorm:"column:date_start" json:"date_start,omitempty"`
	DateEnd        *int           `gorm:"column:date_end" json:"date_end,omitempty"`
	DateConfidence float64        `gorm:"column:date_confidence;not null;default:1" json:"date_confidence"`
	DateSource     DateSource     `gorm:"column:date_source;not null;default:'ATTESTED'" json:"date_source"`

	// Semantics. The vector itself lives in the external embedding store;
	// VectorID is the only reference kept here.
	DefinitionPrimary    string         `gorm:"column:definition_primary;type:text" json:"definition_primary,omitempty"`
	DefinitionsAlternate datatypes.JSON `gorm:"column:definitions_alternate;type:jsonb" json:"definitions_alternate,omitempty"` // []string
	SemanticFields       datatypes.JSON `gorm:"column:semantic_fields;type:jsonb" json:"semantic_fields,omitempty"`             // []string synset ids
	ConceptualDomain     datatypes.JSON `gorm:"column:conceptual_domain;type:jsonb" json:"conceptual_domain,omitempty"`         // []string
	VectorID             string         `gorm:"column:vector_id;index" json:"vector_id,omitempty"`

	// Usage
	Register        Register       `gorm:"column:register" json:"register,omitempty"`
	FrequencyScore  float64        `gorm:"column:frequency_score;not null;default:0" json:"frequency_score"`
	FrequencySource string         `gorm:"column:frequency_source" json:"frequency_source,omitempty"`
	PartOfSpeech    datatypes.JSON `gorm:"column:part_of_speech;type:jsonb" json:"part_of_speech,omitempty"` // []string

	// Evidence
	Attestations []*Attestation `gorm:"foreignKey:EntityID;references:ID" json:"attestations,omitempty"`

	// Metadata
	Reconstruction    bool           `gorm:"column:reconstruction;not null;default:false" json:"reconstruction"`
	ConfidenceOverall float64        `gorm:"column:confidence_overall;not null;default:1" json:"confidence_overall"`
	SourceDatabases   datatypes.JSON `gorm:"column:source_databases;type:jsonb" json:"source_databases,omitempty"` // []string
	HumanValidated    bool           `gorm:"column:human_validated;not null;default:false" json:"human_validated"`
	ValidationNotes   string         `gorm:"column:validation_notes;type:text" json:"validation_notes,omitempty"`
	NeedsReview       bool           `gorm:"column:needs_review;not null;default:false" json:"needs_review"`
	MergedIntoID      *uuid.UUID     `gorm:"type:uuid;column:merged_into_id;index" json:"merged_into_id,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// Attestation is one recorded usage of a word form in a dated source. Each
// attestation belongs to exactly one entity; merges move them, never copy.
type Attestation struct {
	ID                 uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EntityID           uuid.UUID `gorm:"type:uuid;column:entity_id;not null;index" json:"entity_id"`
	TextExcerpt        string    `gorm:"column:text_excerpt;type:text" json:"text_excerpt,omitempty"`
	TextSource         string    `gorm:"column:text_source" json:"text_source,omitempty"`
	TextDate           *int      `gorm:"column:text_date" json:"text_date,omitempty"`
	TextDateConfidence float64   `gorm:"column:text_date_confidence;not null;default:1" json:"text_date_confidence"`
	PageReference      string    `gorm:"column:page_reference" json:"page_reference,omitempty"`
	URL                string    `gorm:"column:url" json:"url,omitempty"`
	CreatedAt          time.Time `gorm:"not null;default:now()" json:"created_at"`
}

// ResolutionKey scopes the per-key pipeline lock: two observations sharing a
// normalized form and language must serialize.
func (e *LexicalEntity) ResolutionKey() string {
	return e.FormNormalized + "\x00" + e.LanguageCode
}

// DatedAttestationCount counts attestations carrying an exact date; a
// reconstruction must have zero.
func (e *LexicalEntity) DatedAttestationCount() int {
	n := 0
	for _, a := range e.Attestations {
		if a != nil && a.TextDate != nil {
			n++
		}
	}
	return n
}
