package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
	"github.com/yungbote/lexigraph-backend/internal/pkg/logger"
)

type AttestationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Attestation) ([]*types.Attestation, error)
	GetByEntity(ctx context.Context, tx *gorm.DB, entityID uuid.UUID) ([]*types.Attestation, error)
	// MoveToEntity re-homes attestations during a merge; attestations are
	// owned by exactly one entity so they move, never copy.
	MoveToEntity(ctx context.Context, tx *gorm.DB, fromEntityID, toEntityID uuid.UUID) error
}

type attestationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttestationRepo(db *gorm.DB, baseLog *logger.Logger) AttestationRepo {
	return &attestationRepo{db: db, log: baseLog.With("repo", "AttestationRepo")}
}

func (r *attestationRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *attestationRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Attestation) ([]*types.Attestation, error) {
	if len(rows) == 0 {
		return []*types.Attestation{}, nil
	}
	if err := r.conn(tx).WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *attestationRepo) GetByEntity(ctx context.Context, tx *gorm.DB, entityID uuid.UUID) ([]*types.Attestation, error) {
	var out []*types.Attestation
	if entityID == uuid.Nil {
		return out, nil
	}
	if err := r.conn(tx).WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *attestationRepo) MoveToEntity(ctx context.Context, tx *gorm.DB, fromEntityID, toEntityID uuid.UUID) error {
	if fromEntityID == uuid.Nil || toEntityID == uuid.Nil || fromEntityID == toEntityID {
		return nil
	}
	return r.conn(tx).WithContext(ctx).
		Model(&types.Attestation{}).
		Where("entity_id = ?", fromEntityID).
		Update("entity_id", toEntityID).Error
}
