package repository

import (
	"context"
	"errors"

	"github.com/petersonmatiss/mpm/internal/apperror"
	"github.com/petersonmatiss/mpm/internal/stock/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SheetRepository persists sheets.
type SheetRepository struct {
	db *gorm.DB
}

func NewSheetRepository(db *gorm.DB) *SheetRepository {
	return &SheetRepository{db: db}
}

// FindBySheetID finds an active sheet by its human-readable code.
func (r *SheetRepository) FindBySheetID(ctx context.Context, tenantID, sheetID string) (*entity.Sheet, error) {
	var s entity.Sheet
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND sheet_id = ? AND active = true", tenantID, sheetID).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// LockBySheetID loads a sheet inside tx with a FOR UPDATE row lock.
func (r *SheetRepository) LockBySheetID(tx *gorm.DB, tenantID, sheetID string) (*entity.Sheet, error) {
	var s entity.Sheet
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND sheet_id = ? AND active = true", tenantID, sheetID).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Create inserts a new sheet, rejecting code collisions within the tenant.
func (r *SheetRepository) Create(ctx context.Context, s *entity.Sheet) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.Sheet{}).
		Where("tenant_id = ? AND sheet_id = ?", s.TenantID, s.SheetID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return &apperror.DuplicateIdentityError{Entity: "sheet", Identity: s.SheetID}
	}
	return r.db.WithContext(ctx).Create(s).Error
}

// UpdateVersioned saves the sheet guarded by its optimistic version token.
func (r *SheetRepository) UpdateVersioned(tx *gorm.DB, s *entity.Sheet) error {
	currentVersion := s.Version
	s.Version++
	res := tx.Model(&entity.Sheet{}).
		Where("id = ? AND version = ?", s.ID, currentVersion).
		Updates(map[string]interface{}{
			"available_area": s.AvailableArea,
			"is_used":        s.IsUsed,
			"is_reserved":    s.IsReserved,
			"active":         s.Active,
			"version":        s.Version,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.ErrConflict
	}
	return nil
}

// SheetListParams filters the sheet listing.
type SheetListParams struct {
	Grade     string
	Thickness float64
	Unused    bool
	Page      int
	Size      int
}

// List returns active sheets for one tenant.
func (r *SheetRepository) List(ctx context.Context, tenantID string, params SheetListParams) ([]entity.Sheet, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Sheet{}).
		Where("tenant_id = ? AND active = true", tenantID)

	if params.Grade != "" {
		query = query.Where("grade = ?", params.Grade)
	}
	if params.Thickness > 0 {
		query = query.Where("thickness = ?", params.Thickness)
	}
	if params.Unused {
		query = query.Where("is_used = false")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}

	var items []entity.Sheet
	err := query.
		Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).
		Limit(params.Size).
		Find(&items).Error
	return items, total, err
}

// ListAll returns every active sheet for one tenant, for report export.
func (r *SheetRepository) ListAll(ctx context.Context, tenantID string) ([]entity.Sheet, error) {
	var items []entity.Sheet
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = true", tenantID).
		Order("sheet_id ASC").
		Find(&items).Error
	return items, err
}
