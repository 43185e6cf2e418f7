package testutil

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
)

// EntityFixture describes the fields a test cares about; everything else
// gets sensible defaults.
type EntityFixture struct {
	Form          string
	FormPhonetic  string
	Language      string
	Gloss         string
	DateStart     *int
	DateEnd       *int
	Sources       []string
	Reconstructed bool
}

func SeedEntity(tb testing.TB, tx *gorm.DB, f EntityFixture) *types.LexicalEntity {
	tb.Helper()

	if f.Form == "" {
		f.Form = "word"
	}
	if f.Language == "" {
		f.Language = "eng"
	}
	if len(f.Sources) == 0 {
		f.Sources = []string{"test"}
	}
	sources, _ := json.Marshal(f.Sources)

	e := &types.LexicalEntity{
		ID:                uuid.New(),
		Version:           1,
		FormOrthographic:  f.Form,
		FormNormalized:    f.Form,
		FormPhonetic:      f.FormPhonetic,
		LanguageCode:      f.Language,
		DefinitionPrimary: f.Gloss,
		DateStart:         f.DateStart,
		DateEnd:           f.DateEnd,
		DateConfidence:    1,
		DateSource:        types.DateAttested,
		Reconstruction:    f.Reconstructed,
		ConfidenceOverall: 1,
		SourceDatabases:   datatypes.JSON(sources),
	}
	if f.Reconstructed {
		e.DateSource = types.DateReconstructed
	}
	if err := tx.Create(e).Error; err != nil {
		tb.Fatalf("seed entity: %v", err)
	}
	return e
}

func SeedEdge(tb testing.TB, tx *gorm.DB, source, target uuid.UUID, relation types.RelationType, confidence float64) *types.Edge {
	tb.Helper()

	edge := &types.Edge{
		ID:         uuid.New(),
		SourceID:   source,
		TargetID:   target,
		Relation:   relation,
		Confidence: confidence,
	}
	if err := tx.Create(edge).Error; err != nil {
		tb.Fatalf("seed edge: %v", err)
	}
	return edge
}

func Year(y int) *int { return &y }
