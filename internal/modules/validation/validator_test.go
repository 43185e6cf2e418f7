package validation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
)

func validEntity() *types.LexicalEntity {
	return &types.LexicalEntity{
		ID:               uuid.New(),
		FormOrthographic: "water",
		FormNormalized:   "water",
		LanguageCode:     "eng",
		DateConfidence:   1.0,
		DateSource:       types.DateAttested,
	}
}

func TestCheckEntitySchema(t *testing.T) {
	v := NewValidator(&fakeGraph{}, testLogger(t))

	if err := v.CheckEntitySchema(validEntity()); err != nil {
		t.Fatalf("valid entity rejected: %v", err)
	}

	year := func(y int) *int { return &y }
	cases := []struct {
		name      string
		mutate    func(*types.LexicalEntity)
		wantField string
	}{
		{"missing orthographic form", func(e *types.LexicalEntity) { e.FormOrthographic = "" }, "form_orthographic"},
		{"missing normalized form", func(e *types.LexicalEntity) { e.FormNormalized = "" }, "form_normalized"},
		{"missing language", func(e *types.LexicalEntity) { e.LanguageCode = "" }, "language_code"},
		{"confidence out of range", func(e *types.LexicalEntity) { e.ConfidenceOverall = 1.5 }, "confidence_overall"},
		{"date outside window", func(e *types.LexicalEntity) { e.DateStart = year(5000) }, "date_start"},
		{"inverted date range", func(e *types.LexicalEntity) {
			e.DateStart, e.DateEnd = year(1500), year(1200)
		}, "date_start"},
		{"reconstruction with attested dating", func(e *types.LexicalEntity) {
			e.Reconstruction = true
		}, "date_source"},
		{"reconstruction with dated attestation", func(e *types.LexicalEntity) {
			e.Reconstruction = true
			e.DateSource = types.DateReconstructed
			e.Attestations = []*types.Attestation{{TextDate: year(1000)}}
		}, "attestations"},
		{"attestation date outside window", func(e *types.LexicalEntity) {
			e.Attestations = []*types.Attestation{{TextDate: year(9000)}}
		}, "attestations"},
	}
	for _, c := range cases {
		e := validEntity()
		c.mutate(e)
		err := v.CheckEntitySchema(e)
		if err == nil {
			t.Fatalf("%s: expected a schema violation", c.name)
		}
		var sv *SchemaViolationError
		if !errors.As(err, &sv) {
			t.Fatalf("%s: error type = %T", c.name, err)
		}
		if sv.Field != c.wantField {
			t.Fatalf("%s: violated field = %q, want %q", c.name, sv.Field, c.wantField)
		}
	}
}

func TestCheckEdgeSchema(t *testing.T) {
	v := NewValidator(&fakeGraph{}, testLogger(t))
	a, b := uuid.New(), uuid.New()

	good := &types.Edge{SourceID: a, TargetID: b, Relation: types.RelDescendsFrom, Confidence: 0.8}
	if err := v.CheckEdgeSchema(good); err != nil {
		t.Fatalf("valid edge rejected: %v", err)
	}

	// A SHIFTED_TO self-reference is the one permitted loop shape.
	shift := &types.Edge{SourceID: a, TargetID: a, Relation: types.RelShiftedTo, Confidence: 0.5}
	if err := v.CheckEdgeSchema(shift); err != nil {
		t.Fatalf("SHIFTED_TO self-reference rejected: %v", err)
	}

	cases := []struct {
		name string
		edge *types.Edge
	}{
		{"missing endpoint", &types.Edge{SourceID: a, Relation: types.RelDescendsFrom, Confidence: 0.5}},
		{"ancestral self-loop", &types.Edge{SourceID: a, TargetID: a, Relation: types.RelDescendsFrom, Confidence: 0.5}},
		{"confidence out of range", &types.Edge{SourceID: a, TargetID: b, Relation: types.RelCognateOf, Confidence: 1.2}},
		{"unknown relation", &types.Edge{SourceID: a, TargetID: b, Relation: "RELATED_TO", Confidence: 0.5}},
	}
	for _, c := range cases {
		err := v.CheckEdgeSchema(c.edge)
		var sv *SchemaViolationError
		if err == nil || !errors.As(err, &sv) {
			t.Fatalf("%s: expected a schema violation, got %v", c.name, err)
		}
	}
}

func TestCheckCyclesDetectsClosedChain(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	stored := []*types.Edge{
		{ID: uuid.New(), SourceID: a, TargetID: b, Relation: types.RelDescendsFrom, Confidence: 0.9},
		{ID: uuid.New(), SourceID: b, TargetID: c, Relation: types.RelDescendsFrom, Confidence: 0.9},
	}
	v := NewValidator(&fakeGraph{edges: stored}, testLogger(t))

	proposed := []*types.Edge{
		{SourceID: c, TargetID: a, Relation: types.RelDescendsFrom, Confidence: 0.9},
	}
	err := v.CheckCycles(context.Background(), proposed)
	if err == nil {
		t.Fatalf("closing edge should create a cycle")
	}
	var cd *CycleDetectedError
	if !errors.As(err, &cd) {
		t.Fatalf("error type = %T, want CycleDetectedError", err)
	}
	// Closed path: the cycle's three members plus the repeated head.
	if len(cd.Path) != 4 {
		t.Fatalf("cycle path length = %d, want 4: %v", len(cd.Path), cd.Path)
	}
}

func TestCheckCyclesAcceptsChain(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	stored := []*types.Edge{
		{ID: uuid.New(), SourceID: a, TargetID: b, Relation: types.RelDescendsFrom, Confidence: 0.9},
	}
	v := NewValidator(&fakeGraph{edges: stored}, testLogger(t))

	proposed := []*types.Edge{
		{SourceID: b, TargetID: c, Relation: types.RelDescendsFrom, Confidence: 0.9},
	}
	if err := v.CheckCycles(context.Background(), proposed); err != nil {
		t.Fatalf("acyclic extension rejected: %v", err)
	}
}

func TestCheckCyclesIgnoresNonAncestral(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	stored := []*types.Edge{
		{ID: uuid.New(), SourceID: a, TargetID: b, Relation: types.RelDescendsFrom, Confidence: 0.9},
	}
	v := NewValidator(&fakeGraph{edges: stored}, testLogger(t))

	// Cognacy is symmetric and never participates in the ancestral order.
	proposed := []*types.Edge{
		{SourceID: b, TargetID: a, Relation: types.RelCognateOf, Confidence: 0.9},
	}
	if err := v.CheckCycles(context.Background(), proposed); err != nil {
		t.Fatalf("non-ancestral edge must not trigger a cycle: %v", err)
	}
}

func TestCheckTemporal(t *testing.T) {
	v := NewValidator(&fakeGraph{}, testLogger(t))
	year := func(y int) *int { return &y }

	ancestor := validEntity()
	ancestor.DateStart = year(1200)
	descendant := validEntity()
	descendant.DateStart = year(900)
	edge := &types.Edge{SourceID: ancestor.ID, TargetID: descendant.ID, Relation: types.RelDescendsFrom, Confidence: 0.8}

	flag := v.CheckTemporal(edge, ancestor, descendant)
	if flag == nil || flag.Reason != types.ReviewTemporalConflict {
		t.Fatalf("ancestor starting after descendant should flag, got %+v", flag)
	}

	// Correct ordering: no flag.
	ancestor.DateStart, descendant.DateStart = year(900), year(1200)
	if flag := v.CheckTemporal(edge, ancestor, descendant); flag != nil {
		t.Fatalf("correctly ordered edge flagged: %+v", flag)
	}

	// Undated endpoints and symmetric relations stay silent.
	ancestor.DateStart = nil
	if flag := v.CheckTemporal(edge, ancestor, descendant); flag != nil {
		t.Fatalf("undated ancestor flagged: %+v", flag)
	}
	cognate := &types.Edge{SourceID: ancestor.ID, TargetID: descendant.ID, Relation: types.RelCognateOf, Confidence: 0.8}
	if flag := v.CheckTemporal(cognate, descendant, descendant); flag != nil {
		t.Fatalf("symmetric relation flagged: %+v", flag)
	}
}

func TestCheckAnomalies(t *testing.T) {
	var bucket []*types.LexicalEntity
	for i := 0; i < 12; i++ {
		e := validEntity()
		e.FrequencyScore = 0.4 + float64(i%3)*0.1
		bucket = append(bucket, e)
	}

	outlier := validEntity()
	outlier.FrequencyScore = 100
	reader := &fakeGraph{entities: append(bucket, outlier)}
	v := NewValidator(reader, testLogger(t))

	flags, err := v.CheckAnomalies(context.Background(), outlier)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(flags) != 1 || flags[0].Reason != types.ReviewAnomaly {
		t.Fatalf("expected one anomaly flag, got %+v", flags)
	}
	if !strings.Contains(flags[0].Detail, "frequency_score") {
		t.Fatalf("flag should name the anomalous field: %q", flags[0].Detail)
	}

	// An unremarkable entity passes clean.
	normal := validEntity()
	normal.FrequencyScore = 0.5
	reader.entities = append(bucket, normal)
	flags, err = v.CheckAnomalies(context.Background(), normal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(flags) != 0 {
		t.Fatalf("typical entity flagged: %+v", flags)
	}
}
