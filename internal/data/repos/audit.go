package repos

import (
	"context"

	"gorm.io/gorm"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
	"github.com/yungbote/lexigraph-backend/internal/pkg/logger"
)

type AuditRepo interface {
	Append(ctx context.Context, tx *gorm.DB, rows []*types.AuditRecord) error
	// GetByObservation returns prior audit records for an observation's
	// source id; a non-empty result means the observation was already
	// processed and the pipeline must not mutate again.
	GetByObservation(ctx context.Context, tx *gorm.DB, observationSourceID string) ([]*types.AuditRecord, error)
}

type ReviewRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.ReviewItem) ([]*types.ReviewItem, error)
}

type auditRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuditRepo(db *gorm.DB, baseLog *logger.Logger) AuditRepo {
	return &auditRepo{db: db, log: baseLog.With("repo", "AuditRepo")}
}

func (r *auditRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *auditRepo) Append(ctx context.Context, tx *gorm.DB, rows []*types.AuditRecord) error {
	if len(rows) == 0 {
		return nil
	}
	return r.conn(tx).WithContext(ctx).Create(&rows).Error
}

func (r *auditRepo) GetByObservation(ctx context.Context, tx *gorm.DB, observationSourceID string) ([]*types.AuditRecord, error) {
	var out []*types.AuditRecord
	if observationSourceID == "" {
		return out, nil
	}
	if err := r.conn(tx).WithContext(ctx).
		Where("observation_source_id = ?", observationSourceID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type reviewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewRepo(db *gorm.DB, baseLog *logger.Logger) ReviewRepo {
	return &reviewRepo{db: db, log: baseLog.With("repo", "ReviewRepo")}
}

func (r *reviewRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.ReviewItem) ([]*types.ReviewItem, error) {
	if len(rows) == 0 {
		return []*types.ReviewItem{}, nil
	}
	t := tx
	if t == nil {
		t = r.db
	}
	if err := t.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
