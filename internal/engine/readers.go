package engine

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/lexigraph-backend/internal/data/repos"
	types "github.com/yungbote/lexigraph-backend/internal/domain"
)

// storeReader adapts the repos to the read-only interfaces the resolution,
// relations and validation modules declare. A nil tx reads committed state.
type storeReader struct {
	tx       *gorm.DB
	entities repos.EntityRepo
	edges    repos.EdgeRepo
}

func (s *storeReader) ByNormalizedForm(ctx context.Context, formNormalized, languageCode string) ([]*types.LexicalEntity, error) {
	return s.entities.GetByNormalizedForm(ctx, s.tx, formNormalized, languageCode)
}

func (s *storeReader) ByPhoneticCode(ctx context.Context, phoneticCode, languageCode string, limit int) ([]*types.LexicalEntity, error) {
	return s.entities.GetByPhoneticCode(ctx, s.tx, phoneticCode, languageCode, limit)
}

func (s *storeReader) ByLanguage(ctx context.Context, languageCode string, limit int) ([]*types.LexicalEntity, error) {
	return s.entities.GetByLanguage(ctx, s.tx, languageCode, limit)
}

func (s *storeReader) ByIDs(ctx context.Context, ids []uuid.UUID) ([]*types.LexicalEntity, error) {
	return s.entities.GetByIDs(ctx, s.tx, ids)
}

func (s *storeReader) EntitiesByIDs(ctx context.Context, ids []uuid.UUID) ([]*types.LexicalEntity, error) {
	return s.entities.GetByIDs(ctx, s.tx, ids)
}

func (s *storeReader) LanguageStats(ctx context.Context, languageCode string, limit int) ([]*types.LexicalEntity, error) {
	return s.entities.LanguageStats(ctx, s.tx, languageCode, limit)
}

func (s *storeReader) EdgesTouching(ctx context.Context, ids []uuid.UUID, ancestralOnly bool) ([]*types.Edge, error) {
	return s.edges.GetTouching(ctx, s.tx, ids, ancestralOnly)
}
