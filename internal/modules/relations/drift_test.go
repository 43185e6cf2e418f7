package relations

import (
	"context"
	"encoding/json"
	"testing"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
	"github.com/yungbote/lexigraph-backend/internal/platform/embedding"
)

func datedEntity(form, lang, gloss string, start, end int, fields ...string) *types.LexicalEntity {
	e := entityIn(form, lang, gloss)
	e.DateStart, e.DateEnd = &start, &end
	if len(fields) > 0 {
		raw, _ := json.Marshal(fields)
		e.SemanticFields = raw
	}
	return e
}

func TestSemanticShiftBetweenAdjacentPeriods(t *testing.T) {
	old := datedEntity("mouse", "eng", "small rodent", 900, 1700, "animals")
	modern := datedEntity("mouse", "eng", "pointing device", 1970, 2020, "computing")
	reader := &fakeReader{entities: []*types.LexicalEntity{old, modern}}
	x := newTestExtractor(t, reader, embedding.Fixed(0.1))

	edges, err := x.semanticShifts(context.Background(), old)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	edge := findEdge(edges, old.ID, modern.ID, types.RelShiftedTo)
	if edge == nil {
		t.Fatalf("expected a SHIFTED_TO edge from the earlier period, got %+v", edges)
	}
	if edge.Confidence < 0.89 || edge.Confidence > 0.91 {
		t.Fatalf("drift confidence = %v, want 0.9", edge.Confidence)
	}
	if edge.ChangeType != types.ShiftMetaphor {
		t.Fatalf("disjoint semantic fields should read as metaphor, got %q", edge.ChangeType)
	}
	if edge.DateOfChange == nil || *edge.DateOfChange != 1970 {
		t.Fatalf("date of change should be the later period's start, got %v", edge.DateOfChange)
	}
}

func TestSemanticShiftOrdersByDate(t *testing.T) {
	old := datedEntity("mouse", "eng", "small rodent", 900, 1700)
	modern := datedEntity("mouse", "eng", "pointing device", 1970, 2020)
	reader := &fakeReader{entities: []*types.LexicalEntity{old, modern}}
	x := newTestExtractor(t, reader, embedding.Fixed(0.1))

	// Processing the later entity must still point the edge earlier -> later.
	edges, err := x.semanticShifts(context.Background(), modern)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if findEdge(edges, old.ID, modern.ID, types.RelShiftedTo) == nil {
		t.Fatalf("edge direction must follow chronology, got %+v", edges)
	}
}

func TestSemanticShiftSkipsNonAdjacentPeriods(t *testing.T) {
	cases := []struct {
		name   string
		other  *types.LexicalEntity
		reason string
	}{
		{
			name:   "overlap",
			other:  datedEntity("mouse", "eng", "pointing device", 1500, 2020),
			reason: "overlapping ranges are the same period",
		},
		{
			name:   "gap too wide",
			other:  datedEntity("mouse", "eng", "pointing device", 2200, 2300),
			reason: "gap beyond the adjacency bound",
		},
	}
	for _, c := range cases {
		old := datedEntity("mouse", "eng", "small rodent", 900, 1700)
		reader := &fakeReader{entities: []*types.LexicalEntity{old, c.other}}
		x := newTestExtractor(t, reader, embedding.Fixed(0.1))

		edges, err := x.semanticShifts(context.Background(), old)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", c.name, err)
		}
		if len(edges) != 0 {
			t.Fatalf("%s: %s, got %+v", c.name, c.reason, edges)
		}
	}
}

func TestSemanticShiftBelowThreshold(t *testing.T) {
	old := datedEntity("mouse", "eng", "small rodent", 900, 1700)
	modern := datedEntity("mouse", "eng", "small gray rodent", 1970, 2020)
	reader := &fakeReader{entities: []*types.LexicalEntity{old, modern}}
	// Similar senses: drift 0.2 stays under the gate.
	x := newTestExtractor(t, reader, embedding.Fixed(0.8))

	edges, err := x.semanticShifts(context.Background(), old)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edges) != 0 {
		t.Fatalf("mild drift must not emit a shift, got %+v", edges)
	}
}

func TestShiftSubtype(t *testing.T) {
	cases := []struct {
		name   string
		before []string
		after  []string
		want   string
	}{
		{"fields grew", []string{"animals"}, []string{"animals", "computing"}, types.ShiftGeneralization},
		{"fields shrank", []string{"animals", "computing"}, []string{"computing"}, types.ShiftSpecialization},
		{"fields replaced", []string{"animals"}, []string{"computing"}, types.ShiftMetaphor},
		{"no fields", nil, nil, types.ShiftMetaphor},
	}
	for _, c := range cases {
		earlier := datedEntity("mouse", "eng", "a", 900, 1700, c.before...)
		later := datedEntity("mouse", "eng", "b", 1970, 2020, c.after...)
		if got := shiftSubtype(earlier, later); got != c.want {
			t.Fatalf("%s: got %q, want %q", c.name, got, c.want)
		}
	}
}
