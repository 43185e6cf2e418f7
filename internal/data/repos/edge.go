package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
	"github.com/yungbote/lexigraph-backend/internal/pkg/logger"
)

type EdgeRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Edge) ([]*types.Edge, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error

	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Edge, error)
	// GetTouching returns every edge with either endpoint in ids, optionally
	// restricted to ancestral relations. This is the component adjacency
	// fetch for cycle checks and confidence propagation.
	GetTouching(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, ancestralOnly bool) ([]*types.Edge, error)
	GetBetween(ctx context.Context, tx *gorm.DB, sourceID, targetID uuid.UUID, relation types.RelationType) ([]*types.Edge, error)
}

type edgeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEdgeRepo(db *gorm.DB, baseLog *logger.Logger) EdgeRepo {
	return &edgeRepo{db: db, log: baseLog.With("repo", "EdgeRepo")}
}

func (r *edgeRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *edgeRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Edge) ([]*types.Edge, error) {
	if len(rows) == 0 {
		return []*types.Edge{}, nil
	}
	if err := r.conn(tx).WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *edgeRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return r.conn(tx).WithContext(ctx).
		Model(&types.Edge{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *edgeRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Edge, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.Edge
	if err := r.conn(tx).WithContext(ctx).Where("id = ?", id).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *edgeRepo) GetTouching(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, ancestralOnly bool) ([]*types.Edge, error) {
	var out []*types.Edge
	if len(ids) == 0 {
		return out, nil
	}
	q := r.conn(tx).WithContext(ctx).
		Where("source_id IN ? OR target_id IN ?", ids, ids)
	if ancestralOnly {
		q = q.Where("relation IN ?", []types.RelationType{types.RelDescendsFrom, types.RelBorrowedFrom})
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *edgeRepo) GetBetween(ctx context.Context, tx *gorm.DB, sourceID, targetID uuid.UUID, relation types.RelationType) ([]*types.Edge, error) {
	var out []*types.Edge
	if sourceID == uuid.Nil || targetID == uuid.Nil {
		return out, nil
	}
	if err := r.conn(tx).WithContext(ctx).
		Where("source_id = ? AND target_id = ? AND relation = ?", sourceID, targetID, relation).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
