package resolution

import (
	"encoding/json"
	"testing"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
)

func staticConfidence(score float64) ConfidenceFn {
	return func(*types.LexicalEntity) float64 { return score }
}

func decodeList(t *testing.T, raw []byte) []string {
	t.Helper()
	var out []string
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("unmarshal list: %v", err)
		}
	}
	return out
}

func TestBuildEntityFromObservation(t *testing.T) {
	m := NewMerger(staticConfidence(0.9))
	start, end := 900, 1100
	obs := &types.RawObservation{
		SourceID:     "wiktionary:water",
		SourceName:   "wiktionary",
		Form:         "Water",
		LanguageCode: "eng",
		Gloss:        "clear liquid",
		DateStart:    &start,
		DateEnd:      &end,
	}
	nf, err := Normalize(obs.Form)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	e := m.BuildEntity(obs, nf)
	if e.Version != 1 {
		t.Fatalf("new entity version = %d, want 1", e.Version)
	}
	if e.FormOrthographic != "Water" || e.FormNormalized != "water" {
		t.Fatalf("forms wrong: %q / %q", e.FormOrthographic, e.FormNormalized)
	}
	if e.DateSource != types.DateAttested {
		t.Fatalf("date source = %s, want ATTESTED", e.DateSource)
	}
	if sources := decodeList(t, e.SourceDatabases); len(sources) != 1 || sources[0] != "wiktionary" {
		t.Fatalf("source databases = %v", sources)
	}
	if e.ConfidenceOverall != 0.9 {
		t.Fatalf("confidence not taken from the confidence fn: %v", e.ConfidenceOverall)
	}
}

func TestBuildEntityStarFormIsReconstruction(t *testing.T) {
	m := NewMerger(staticConfidence(0.9))
	obs := &types.RawObservation{
		SourceID:     "clld:wodr",
		SourceName:   "clld",
		Form:         "*wodr",
		LanguageCode: "ine-pro",
	}
	nf, err := Normalize(obs.Form)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	e := m.BuildEntity(obs, nf)
	if !e.Reconstruction {
		t.Fatalf("star-prefixed form should be a reconstruction")
	}
	if e.DateSource != types.DateReconstructed {
		t.Fatalf("reconstruction date source = %s, want RECONSTRUCTED", e.DateSource)
	}
}

func TestApplyMergeUnionsAndVersions(t *testing.T) {
	m := NewMerger(staticConfidence(0.9))

	seedObs := &types.RawObservation{
		SourceID:     "wiktionary:water",
		SourceName:   "wiktionary",
		Form:         "water",
		LanguageCode: "eng",
		Gloss:        "clear liquid",
	}
	nf, _ := Normalize(seedObs.Form)
	target := m.BuildEntity(seedObs, nf)

	start, end := 900, 1100
	incoming := &types.RawObservation{
		SourceID:             "corpus:water",
		SourceName:           "corpus",
		Form:                 "water",
		LanguageCode:         "eng",
		Gloss:                "H2O",
		DefinitionsAlternate: []string{"body of water"},
		SemanticFields:       []string{"nature"},
		DateStart:            &start,
		DateEnd:              &end,
	}

	out := m.ApplyMerge(target, incoming, nf)
	if out.VersionBefore != 1 || target.Version != 2 {
		t.Fatalf("version: before=%d after=%d, want 1 -> 2", out.VersionBefore, target.Version)
	}
	if target.DefinitionPrimary != "clear liquid" {
		t.Fatalf("primary gloss must not be overwritten, got %q", target.DefinitionPrimary)
	}
	alternates := decodeList(t, target.DefinitionsAlternate)
	found := false
	for _, a := range alternates {
		if a == "H2O" {
			found = true
		}
	}
	if !found {
		t.Fatalf("conflicting gloss should land in alternates: %v", alternates)
	}
	if sources := decodeList(t, target.SourceDatabases); len(sources) != 2 {
		t.Fatalf("source union = %v, want both sources", sources)
	}
	if target.DateStart == nil || *target.DateStart != 900 {
		t.Fatalf("date range should widen to the observation's range")
	}
}

func TestApplyMergeIdempotentUnions(t *testing.T) {
	m := NewMerger(staticConfidence(0.9))
	nf, _ := Normalize("water")
	obs := &types.RawObservation{
		SourceID:       "corpus:water",
		SourceName:     "corpus",
		Form:           "water",
		LanguageCode:   "eng",
		SemanticFields: []string{"nature"},
	}
	target := m.BuildEntity(obs, nf)

	m.ApplyMerge(target, obs, nf)
	m.ApplyMerge(target, obs, nf)
	if sources := decodeList(t, target.SourceDatabases); len(sources) != 1 {
		t.Fatalf("repeated merges must not duplicate sources: %v", sources)
	}
	if fields := decodeList(t, target.SemanticFields); len(fields) != 1 {
		t.Fatalf("repeated merges must not duplicate semantic fields: %v", fields)
	}
}

func TestApplyMergeAttestationWidensDates(t *testing.T) {
	m := NewMerger(staticConfidence(0.9))
	nf, _ := Normalize("water")

	seed := &types.RawObservation{SourceID: "a", SourceName: "a", Form: "water", LanguageCode: "eng"}
	target := m.BuildEntity(seed, nf)

	year := 825
	out := m.ApplyMerge(target, &types.RawObservation{
		SourceID:     "b",
		SourceName:   "b",
		Form:         "water",
		LanguageCode: "eng",
		Attestation: &types.AttestationInput{
			TextExcerpt: "swa claene wæter",
			TextSource:  "charter",
			TextDate:    &year,
		},
	}, nf)

	if out.NewAttestation == nil {
		t.Fatalf("merge should report the new attestation")
	}
	if out.NewAttestation.EntityID != target.ID {
		t.Fatalf("attestation bound to wrong entity")
	}
	if target.DateStart == nil || *target.DateStart != 825 {
		t.Fatalf("dated attestation should widen the entity range")
	}
}

func TestCombineDateProvenance(t *testing.T) {
	cases := []struct {
		name     string
		aTag     types.DateSource
		aConf    float64
		bTag     types.DateSource
		bConf    float64
		wantTag  types.DateSource
		wantConf float64
	}{
		{"agree keeps max", types.DateAttested, 0.8, types.DateAttested, 0.9, types.DateAttested, 0.9},
		{"attested vs reconstructed", types.DateAttested, 0.9, types.DateReconstructed, 0.5, types.DateInterpolated, 0.5},
		{"attested vs interpolated", types.DateAttested, 0.9, types.DateInterpolated, 0.7, types.DateInterpolated, 0.7},
		{"interpolated vs reconstructed", types.DateInterpolated, 0.6, types.DateReconstructed, 0.4, types.DateReconstructed, 0.4},
	}
	for _, c := range cases {
		tag, conf := combineDateProvenance(c.aTag, c.aConf, c.bTag, c.bConf)
		if tag != c.wantTag || conf != c.wantConf {
			t.Fatalf("%s: got (%s, %v), want (%s, %v)", c.name, tag, conf, c.wantTag, c.wantConf)
		}
	}
}

func TestDuplicateEdge(t *testing.T) {
	m := NewMerger(staticConfidence(0.9))
	nf, _ := Normalize("water")
	a := m.BuildEntity(&types.RawObservation{SourceID: "a", SourceName: "a", Form: "water", LanguageCode: "eng"}, nf)
	b := m.BuildEntity(&types.RawObservation{SourceID: "b", SourceName: "b", Form: "water", LanguageCode: "eng"}, nf)

	edge := m.DuplicateEdge(a, b, 0.8)
	if edge.Relation != types.RelMergedWith {
		t.Fatalf("relation = %s, want MERGED_WITH", edge.Relation)
	}
	if !edge.NeedsReview || edge.HumanValidated {
		t.Fatalf("duplicate edge must be unvalidated and flagged for review")
	}
	if edge.Confidence != 0.8 {
		t.Fatalf("confidence = %v, want the resolution score", edge.Confidence)
	}
}
