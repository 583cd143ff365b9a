package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/petersonmatiss/mpm/internal/audit/entity"
	"gorm.io/gorm"
)

// AuditRepository is append-only: entries are created once and only read
// afterwards. There is deliberately no Update or Delete.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends one audit entry.
func (r *AuditRepository) Create(ctx context.Context, e *entity.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(e).Error
}

// FindByEntity returns all entries for one entity, newest first.
func (r *AuditRepository) FindByEntity(ctx context.Context, tenantID, entityType, entityID string) ([]entity.AuditEntry, error) {
	var items []entity.AuditEntry
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_type = ? AND entity_id = ?", tenantID, entityType, entityID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// FindByActor returns all entries written by one actor within [from, to],
// newest first.
func (r *AuditRepository) FindByActor(ctx context.Context, tenantID, actorID string, from, to time.Time) ([]entity.AuditEntry, error) {
	var items []entity.AuditEntry
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND actor_id = ? AND created_at >= ? AND created_at <= ?", tenantID, actorID, from, to).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// CountByEntity returns how many entries exist for one entity.
func (r *AuditRepository) CountByEntity(ctx context.Context, tenantID, entityType, entityID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&entity.AuditEntry{}).
		Where("tenant_id = ? AND entity_type = ? AND entity_id = ?", tenantID, entityType, entityID).
		Count(&total).Error
	return total, err
}
