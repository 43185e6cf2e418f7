package domain

import "encoding/json"

// RawObservation is the ephemeral pipeline input produced by a source
// adapter. It is consumed into entity/edge mutations plus an audit record
// and never persisted as-is.
type RawObservation struct {
	// SourceID must be stable and source-unique; it is the idempotence key
	// for the whole pipeline run.
	SourceID   string `json:"source_id"`
	SourceName string `json:"source_name"`

	Form         string `json:"form"`
	FormPhonetic string `json:"form_phonetic,omitempty"`

	LanguageCode string `json:"language_code"`
	LanguageName string `json:"language_name,omitempty"`

	Gloss                string   `json:"gloss,omitempty"`
	DefinitionsAlternate []string `json:"definitions_alternate,omitempty"`
	SemanticFields       []string `json:"semantic_fields,omitempty"`
	PartOfSpeech         []string `json:"part_of_speech,omitempty"`
	Register             Register `json:"register,omitempty"`

	EtymologyText string            `json:"etymology_text,omitempty"`
	RelatedForms  []RelatedFormHint `json:"related_forms,omitempty"`

	DateStart      *int       `json:"date_start,omitempty"`
	DateEnd        *int       `json:"date_end,omitempty"`
	DateConfidence float64    `json:"date_confidence,omitempty"`
	DateSource     DateSource `json:"date_source,omitempty"`
	Reconstruction bool       `json:"reconstruction,omitempty"`

	FrequencyScore  float64 `json:"frequency_score,omitempty"`
	FrequencySource string  `json:"frequency_source,omitempty"`

	Attestation *AttestationInput `json:"attestation,omitempty"`

	// RawPayload is the adapter's untouched record, kept for the audit log.
	RawPayload json.RawMessage `json:"raw_payload,omitempty"`
}

// RelatedFormHint is a candidate relationship named by the source itself
// (e.g. a Wiktionary cognate list entry).
type RelatedFormHint struct {
	Form         string `json:"form"`
	LanguageCode string `json:"language_code"`
	Hint         string `json:"hint,omitempty"` // e.g. "cognate", "descendant", "borrowing"
}

// AttestationInput is the observation-side shape of an attestation before it
// is bound to an entity.
type AttestationInput struct {
	TextExcerpt        string  `json:"text_excerpt,omitempty"`
	TextSource         string  `json:"text_source,omitempty"`
	TextDate           *int    `json:"text_date,omitempty"`
	TextDateConfidence float64 `json:"text_date_confidence,omitempty"`
	PageReference      string  `json:"page_reference,omitempty"`
	URL                string  `json:"url,omitempty"`
}
