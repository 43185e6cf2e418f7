package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
	"github.com/yungbote/lexigraph-backend/internal/pkg/logger"
)

type EntityRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.LexicalEntity) ([]*types.LexicalEntity, error)
	Update(ctx context.Context, tx *gorm.DB, row *types.LexicalEntity) error
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error

	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.LexicalEntity, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.LexicalEntity, error)
	GetByNormalizedForm(ctx context.Context, tx *gorm.DB, formNormalized, languageCode string) ([]*types.LexicalEntity, error)
	GetByPhoneticCode(ctx context.Context, tx *gorm.DB, phoneticCode, languageCode string, limit int) ([]*types.LexicalEntity, error)
	GetByLanguage(ctx context.Context, tx *gorm.DB, languageCode string, limit int) ([]*types.LexicalEntity, error)

	// LanguageStats feeds the anomaly check: a slim per-language sample of
	// dates, confidence and frequency, with no attestation preload.
	LanguageStats(ctx context.Context, tx *gorm.DB, languageCode string, limit int) ([]*types.LexicalEntity, error)
}

type entityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEntityRepo(db *gorm.DB, baseLog *logger.Logger) EntityRepo {
	return &entityRepo{db: db, log: baseLog.With("repo", "EntityRepo")}
}

func (r *entityRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *entityRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.LexicalEntity) ([]*types.LexicalEntity, error) {
	if len(rows) == 0 {
		return []*types.LexicalEntity{}, nil
	}
	if err := r.conn(tx).WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Update persists the row's columns only; attestations are owned by the
// attestation repo and never written through the association.
func (r *entityRepo) Update(ctx context.Context, tx *gorm.DB, row *types.LexicalEntity) error {
	if row == nil || row.ID == uuid.Nil {
		return nil
	}
	return r.conn(tx).WithContext(ctx).Omit(clause.Associations).Save(row).Error
}

func (r *entityRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return r.conn(tx).WithContext(ctx).
		Model(&types.LexicalEntity{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *entityRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.LexicalEntity, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(ctx, tx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *entityRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.LexicalEntity, error) {
	var out []*types.LexicalEntity
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.conn(tx).WithContext(ctx).
		Preload("Attestations").
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entityRepo) GetByNormalizedForm(ctx context.Context, tx *gorm.DB, formNormalized, languageCode string) ([]*types.LexicalEntity, error) {
	var out []*types.LexicalEntity
	if formNormalized == "" || languageCode == "" {
		return out, nil
	}
	if err := r.conn(tx).WithContext(ctx).
		Preload("Attestations").
		Where("form_normalized = ? AND language_code = ? AND merged_into_id IS NULL", formNormalized, languageCode).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entityRepo) GetByPhoneticCode(ctx context.Context, tx *gorm.DB, phoneticCode, languageCode string, limit int) ([]*types.LexicalEntity, error) {
	var out []*types.LexicalEntity
	if phoneticCode == "" || languageCode == "" {
		return out, nil
	}
	q := r.conn(tx).WithContext(ctx).
		Preload("Attestations").
		Where("phonetic_code = ? AND language_code = ? AND merged_into_id IS NULL", phoneticCode, languageCode).
		Order("updated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entityRepo) GetByLanguage(ctx context.Context, tx *gorm.DB, languageCode string, limit int) ([]*types.LexicalEntity, error) {
	var out []*types.LexicalEntity
	if languageCode == "" {
		return out, nil
	}
	q := r.conn(tx).WithContext(ctx).
		Preload("Attestations").
		Where("language_code = ? AND merged_into_id IS NULL", languageCode).
		Order("updated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entityRepo) LanguageStats(ctx context.Context, tx *gorm.DB, languageCode string, limit int) ([]*types.LexicalEntity, error) {
	var out []*types.LexicalEntity
	if languageCode == "" {
		return out, nil
	}
	q := r.conn(tx).WithContext(ctx).
		Select("id", "date_start", "date_end", "confidence_overall", "frequency_score").
		Where("language_code = ? AND merged_into_id IS NULL", languageCode)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
