package resolution

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
)

// ConfidenceFn recomputes an entity's aggregate confidence from its own
// evidence. The propagation pass later tightens it against ancestors; merge
// never uses simple averaging of the two inputs.
type ConfidenceFn func(e *types.LexicalEntity) float64

// Merger applies resolution decisions: build a new entity from an
// observation, or fold an observation into an existing entity under
// deterministic combination rules.
type Merger struct {
	confidence ConfidenceFn
}

func NewMerger(confidence ConfidenceFn) *Merger {
	return &Merger{confidence: confidence}
}

// BuildEntity creates a version-1 entity from the observation verbatim.
func (m *Merger) BuildEntity(obs *types.RawObservation, nf NormalizedForm) *types.LexicalEntity {
	now := time.Now().UTC()
	e := &types.LexicalEntity{
		ID:               uuid.New(),
		Version:          1,
		FormOrthographic: strings.TrimSpace(obs.Form),
		FormPhonetic:     strings.TrimSpace(obs.FormPhonetic),
		FormNormalized:   nf.Key,
		PhoneticCode:     nf.PhoneticCode,
		LanguageCode:     obs.LanguageCode,
		LanguageName:     obs.LanguageName,

		DefinitionPrimary:    strings.TrimSpace(obs.Gloss),
		DefinitionsAlternate: toJSONList(obs.DefinitionsAlternate),
		SemanticFields:       toJSONList(obs.SemanticFields),
		PartOfSpeech:         toJSONList(obs.PartOfSpeech),
		Register:             obs.Register,
		FrequencyScore:       obs.FrequencyScore,
		FrequencySource:      obs.FrequencySource,

		DateStart:      copyYear(obs.DateStart),
		DateEnd:        copyYear(obs.DateEnd),
		DateConfidence: normalizeConfidence(obs.DateConfidence),
		DateSource:     obs.DateSource,
		Reconstruction: obs.Reconstruction || strings.HasPrefix(strings.TrimSpace(obs.Form), "*"),

		SourceDatabases: toJSONList([]string{obs.SourceName}),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if e.DateSource == "" {
		e.DateSource = types.DateAttested
	}
	if e.Reconstruction {
		// A reconstruction has no directly attested dating.
		e.DateSource = types.DateReconstructed
	}
	if a := attestationFrom(obs, e.ID); a != nil {
		e.Attestations = append(e.Attestations, a)
		widenDates(e, a)
	}
	e.ConfidenceOverall = m.confidence(e)
	return e
}

// MergeOutcome reports what ApplyMerge changed, for the audit record.
type MergeOutcome struct {
	NewAttestation *types.Attestation
	VersionBefore  int
}

// ApplyMerge folds the observation into the target entity in memory. Rules
// are deterministic: attestation and source unions, date range union, and
// the provenance agreement rule for date confidence. The caller persists.
func (m *Merger) ApplyMerge(target *types.LexicalEntity, obs *types.RawObservation, nf NormalizedForm) MergeOutcome {
	out := MergeOutcome{VersionBefore: target.Version}

	if a := attestationFrom(obs, target.ID); a != nil {
		target.Attestations = append(target.Attestations, a)
		out.NewAttestation = a
		widenDates(target, a)
	}

	if obs.DateStart != nil && (target.DateStart == nil || *obs.DateStart < *target.DateStart) {
		target.DateStart = copyYear(obs.DateStart)
	}
	if obs.DateEnd != nil && (target.DateEnd == nil || *obs.DateEnd > *target.DateEnd) {
		target.DateEnd = copyYear(obs.DateEnd)
	}

	obsSource := obs.DateSource
	if obsSource == "" {
		obsSource = types.DateAttested
	}
	target.DateSource, target.DateConfidence = combineDateProvenance(
		target.DateSource, target.DateConfidence,
		obsSource, normalizeConfidence(obs.DateConfidence),
	)

	target.SourceDatabases = unionJSONList(target.SourceDatabases, []string{obs.SourceName})
	target.SemanticFields = unionJSONList(target.SemanticFields, obs.SemanticFields)
	target.PartOfSpeech = unionJSONList(target.PartOfSpeech, obs.PartOfSpeech)

	alternates := obs.DefinitionsAlternate
	if g := strings.TrimSpace(obs.Gloss); g != "" && g != target.DefinitionPrimary {
		if target.DefinitionPrimary == "" {
			target.DefinitionPrimary = g
		} else {
			alternates = append(alternates, g)
		}
	}
	target.DefinitionsAlternate = unionJSONList(target.DefinitionsAlternate, alternates)

	if target.FormPhonetic == "" && obs.FormPhonetic != "" {
		target.FormPhonetic = strings.TrimSpace(obs.FormPhonetic)
	}
	if target.Register == "" && obs.Register != "" {
		target.Register = obs.Register
	}
	if obs.FrequencyScore > target.FrequencyScore {
		target.FrequencyScore = obs.FrequencyScore
		target.FrequencySource = obs.FrequencySource
	}

	target.Version++
	target.UpdatedAt = time.Now().UTC()
	target.ConfidenceOverall = m.confidence(target)
	return out
}

// DuplicateEdge builds the low-confidence, unvalidated MERGED_WITH candidate
// link from a CANDIDATE_DUPLICATE entity to its closest match.
func (m *Merger) DuplicateEdge(newEntity, closest *types.LexicalEntity, score float64) *types.Edge {
	evidence, _ := json.Marshal([]string{"possible duplicate, resolution score below merge threshold"})
	return &types.Edge{
		ID:             uuid.New(),
		SourceID:       newEntity.ID,
		TargetID:       closest.ID,
		Relation:       types.RelMergedWith,
		Confidence:     score,
		Evidence:       datatypes.JSON(evidence),
		HumanValidated: false,
		NeedsReview:    true,
	}
}

// provenanceRank orders tags by evidentiary strength.
func provenanceRank(s types.DateSource) int {
	switch s {
	case types.DateAttested:
		return 2
	case types.DateInterpolated:
		return 1
	default:
		return 0
	}
}

func provenanceFromRank(r int) types.DateSource {
	switch {
	case r >= 2:
		return types.DateAttested
	case r == 1:
		return types.DateInterpolated
	default:
		return types.DateReconstructed
	}
}

// combineDateProvenance: agreeing tags keep the tag and take the higher
// confidence; disagreeing tags downgrade one step below the stronger tag
// (ATTESTED+RECONSTRUCTED yields INTERPOLATED) and take the lower
// confidence.
func combineDateProvenance(aTag types.DateSource, aConf float64, bTag types.DateSource, bConf float64) (types.DateSource, float64) {
	if aTag == bTag {
		if bConf > aConf {
			return aTag, bConf
		}
		return aTag, aConf
	}
	stronger := provenanceRank(aTag)
	if r := provenanceRank(bTag); r > stronger {
		stronger = r
	}
	conf := aConf
	if bConf < conf {
		conf = bConf
	}
	return provenanceFromRank(stronger - 1), conf
}

func attestationFrom(obs *types.RawObservation, entityID uuid.UUID) *types.Attestation {
	in := obs.Attestation
	if in == nil {
		return nil
	}
	return &types.Attestation{
		ID:                 uuid.New(),
		EntityID:           entityID,
		TextExcerpt:        in.TextExcerpt,
		TextSource:         in.TextSource,
		TextDate:           copyYear(in.TextDate),
		TextDateConfidence: normalizeConfidence(in.TextDateConfidence),
		PageReference:      in.PageReference,
		URL:                in.URL,
	}
}

// widenDates grows the entity's date range to cover a dated attestation.
func widenDates(e *types.LexicalEntity, a *types.Attestation) {
	if a == nil || a.TextDate == nil {
		return
	}
	if e.DateStart == nil || *a.TextDate < *e.DateStart {
		e.DateStart = copyYear(a.TextDate)
	}
	if e.DateEnd == nil || *a.TextDate > *e.DateEnd {
		e.DateEnd = copyYear(a.TextDate)
	}
}

func toJSONList(values []string) datatypes.JSON {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			cleaned = append(cleaned, v)
		}
	}
	raw, _ := json.Marshal(cleaned)
	return datatypes.JSON(raw)
}

func unionJSONList(existing datatypes.JSON, add []string) datatypes.JSON {
	var current []string
	if len(existing) > 0 {
		_ = json.Unmarshal(existing, &current)
	}
	seen := map[string]bool{}
	for _, v := range current {
		seen[v] = true
	}
	for _, v := range add {
		if v = strings.TrimSpace(v); v != "" && !seen[v] {
			seen[v] = true
			current = append(current, v)
		}
	}
	raw, _ := json.Marshal(current)
	return datatypes.JSON(raw)
}

func copyYear(y *int) *int {
	if y == nil {
		return nil
	}
	v := *y
	return &v
}

func normalizeConfidence(c float64) float64 {
	if c <= 0 {
		return 1.0 // unspecified means the source did not qualify its date
	}
	if c > 1 {
		return 1.0
	}
	return c
}
