package relations

import (
	"context"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
	"github.com/yungbote/lexigraph-backend/internal/pkg/logger"
	"github.com/yungbote/lexigraph-backend/internal/platform/embedding"
)

type fakeReader struct {
	entities []*types.LexicalEntity
}

func (f *fakeReader) ByNormalizedForm(_ context.Context, form, lang string) ([]*types.LexicalEntity, error) {
	var out []*types.LexicalEntity
	for _, e := range f.entities {
		if e.FormNormalized == form && e.LanguageCode == lang {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeReader) ByLanguage(_ context.Context, lang string, limit int) ([]*types.LexicalEntity, error) {
	var out []*types.LexicalEntity
	for _, e := range f.entities {
		if e.LanguageCode == lang {
			out = append(out, e)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeReader) ByIDs(_ context.Context, ids []uuid.UUID) ([]*types.LexicalEntity, error) {
	want := map[uuid.UUID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []*types.LexicalEntity
	for _, e := range f.entities {
		if want[e.ID] {
			out = append(out, e)
		}
	}
	return out, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := LoadRegistry()
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	return r
}

func newTestExtractor(t *testing.T, reader *fakeReader, compare embedding.Comparator) *Extractor {
	t.Helper()
	if compare == nil {
		compare = embedding.Fixed(0.5)
	}
	return NewExtractor(testRegistry(t), reader, compare, testLogger(t))
}

func entityIn(form, lang, gloss string) *types.LexicalEntity {
	return &types.LexicalEntity{
		ID:                uuid.New(),
		FormOrthographic:  form,
		FormNormalized:    form,
		LanguageCode:      lang,
		DefinitionPrimary: gloss,
	}
}

func findEdge(edges []CandidateEdge, source, target uuid.UUID, rel types.RelationType) *CandidateEdge {
	for i := range edges {
		e := edges[i]
		if e.SourceID == source && e.TargetID == target && e.Relation == rel {
			return &edges[i]
		}
	}
	return nil
}

func TestExtractAgreementRaisesConfidence(t *testing.T) {
	liberty := entityIn("liberty", "eng", "freedom")
	liberte := entityIn("liberte", "fro", "freedom")
	reader := &fakeReader{entities: []*types.LexicalEntity{liberty, liberte}}
	x := newTestExtractor(t, reader, nil)

	// The etymology and the source's related-forms list independently name
	// the same borrowing.
	edges, err := x.Extract(context.Background(), liberty,
		"borrowed from Old French liberte",
		[]types.RelatedFormHint{{Form: "liberte", LanguageCode: "fro", Hint: "borrowing"}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	edge := findEdge(edges, liberte.ID, liberty.ID, types.RelBorrowedFrom)
	if edge == nil {
		t.Fatalf("expected a BORROWED_FROM edge, got %v", edges)
	}
	// Base 0.75 from the etymology, plus 0.1 for two agreeing extractors.
	if edge.Confidence < 0.84 || edge.Confidence > 0.86 {
		t.Fatalf("agreement calibration: confidence = %v, want ~0.85", edge.Confidence)
	}
	if len(edges) != 1 {
		t.Fatalf("agreeing candidates should collapse to one edge, got %d", len(edges))
	}
}

func TestExtractReconstructedEndpointLowersConfidence(t *testing.T) {
	water := entityIn("water", "eng", "clear liquid")
	proto := entityIn("*wodr", "ine-pro", "water")
	proto.Reconstruction = true
	reader := &fakeReader{entities: []*types.LexicalEntity{water, proto}}
	x := newTestExtractor(t, reader, nil)

	edges, err := x.Extract(context.Background(), water, "",
		[]types.RelatedFormHint{{Form: "*wodr", LanguageCode: "ine-pro", Hint: "ancestor"}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	edge := findEdge(edges, proto.ID, water.ID, types.RelDescendsFrom)
	if edge == nil {
		t.Fatalf("expected a DESCENDS_FROM edge from the hint, got %v", edges)
	}
	// Hint base 0.7 minus 0.2 for the reconstructed endpoint.
	if edge.Confidence < 0.49 || edge.Confidence > 0.51 {
		t.Fatalf("reconstruction penalty: confidence = %v, want ~0.5", edge.Confidence)
	}
}

func TestExtractValidatedEndpointRaisesConfidence(t *testing.T) {
	night := entityIn("night", "eng", "dark hours")
	nacht := entityIn("nacht", "deu", "dark hours")
	nacht.HumanValidated = true
	reader := &fakeReader{entities: []*types.LexicalEntity{night, nacht}}
	x := newTestExtractor(t, reader, nil)

	edges, err := x.Extract(context.Background(), night, "",
		[]types.RelatedFormHint{{Form: "nacht", LanguageCode: "deu", Hint: "cognate"}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	edge := findEdge(edges, night.ID, nacht.ID, types.RelCognateOf)
	if edge == nil {
		t.Fatalf("expected a COGNATE_OF edge from the hint, got %v", edges)
	}
	if edge.Confidence < 0.89 || edge.Confidence > 0.91 {
		t.Fatalf("validated endpoint bonus: confidence = %v, want ~0.9", edge.Confidence)
	}
}

func TestExtractNothingForIsolatedEntity(t *testing.T) {
	lonely := entityIn("zzzz", "eng", "nothing")
	reader := &fakeReader{entities: []*types.LexicalEntity{lonely}}
	x := newTestExtractor(t, reader, nil)

	edges, err := x.Extract(context.Background(), lonely, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edges) != 0 {
		t.Fatalf("isolated entity should produce no edges, got %v", edges)
	}
}
