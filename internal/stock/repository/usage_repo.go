package repository

import (
	"context"

	"github.com/petersonmatiss/mpm/internal/stock/entity"
	"gorm.io/gorm"
)

// UsageRepository reads the append-only usage ledger. Writes happen inside
// the consumption transaction, not through this repository.
type UsageRepository struct {
	db *gorm.DB
}

func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// ListByProfile returns the usage history of one lot, newest first.
func (r *UsageRepository) ListByProfile(ctx context.Context, tenantID, profileID string) ([]entity.ProfileUsage, error) {
	var items []entity.ProfileUsage
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND profile_id = ?", tenantID, profileID).
		Order("used_at DESC").
		Find(&items).Error
	return items, err
}

// ListByProject returns all profile usage booked to one project.
func (r *UsageRepository) ListByProject(ctx context.Context, tenantID, projectID string) ([]entity.ProfileUsage, error) {
	var items []entity.ProfileUsage
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND project_id = ?", tenantID, projectID).
		Order("used_at DESC").
		Find(&items).Error
	return items, err
}

// CountByProfile counts usage events for one lot, remnant cuts included.
func (r *UsageRepository) CountByProfile(ctx context.Context, tenantID, profileID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&entity.ProfileUsage{}).
		Where("tenant_id = ? AND profile_id = ?", tenantID, profileID).
		Count(&total).Error
	return total, err
}

// ListSheetUsage returns the usage history of one sheet, newest first.
func (r *UsageRepository) ListSheetUsage(ctx context.Context, tenantID, sheetID string) ([]entity.SheetUsage, error) {
	var items []entity.SheetUsage
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND sheet_id = ?", tenantID, sheetID).
		Order("used_at DESC").
		Find(&items).Error
	return items, err
}
