package repository

import (
	"context"
	"errors"

	"github.com/petersonmatiss/mpm/internal/apperror"
	"github.com/petersonmatiss/mpm/internal/stock/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RemnantRepository persists profile remnants.
type RemnantRepository struct {
	db *gorm.DB
}

func NewRemnantRepository(db *gorm.DB) *RemnantRepository {
	return &RemnantRepository{db: db}
}

// FindByID finds a remnant by primary key.
func (r *RemnantRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.ProfileRemnant, error) {
	var rem entity.ProfileRemnant
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&rem).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &rem, nil
}

// LockByID loads a remnant inside tx with a FOR UPDATE row lock.
func (r *RemnantRepository) LockByID(tx *gorm.DB, tenantID, id string) (*entity.ProfileRemnant, error) {
	var rem entity.ProfileRemnant
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&rem).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &rem, nil
}

// UpdateVersioned saves the remnant guarded by its optimistic version
// token. A stale write returns ErrConflict.
func (r *RemnantRepository) UpdateVersioned(tx *gorm.DB, rem *entity.ProfileRemnant) error {
	currentVersion := rem.Version
	rem.Version++
	res := tx.Model(&entity.ProfileRemnant{}).
		Where("id = ? AND version = ?", rem.ID, currentVersion).
		Updates(map[string]interface{}{
			"length":    rem.Length,
			"weight":    rem.Weight,
			"is_usable": rem.IsUsable,
			"is_used":   rem.IsUsed,
			"version":   rem.Version,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.ErrConflict
	}
	return nil
}

// ListByProfile returns all remnants cut from one lot.
func (r *RemnantRepository) ListByProfile(ctx context.Context, tenantID, profileID string) ([]entity.ProfileRemnant, error) {
	var items []entity.ProfileRemnant
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND profile_id = ?", tenantID, profileID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// ListUsable returns remnants still available for cutting, longest first so
// operators pick the best-fitting piece.
func (r *RemnantRepository) ListUsable(ctx context.Context, tenantID string, minLength float64) ([]entity.ProfileRemnant, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_usable = true AND is_used = false", tenantID)
	if minLength > 0 {
		query = query.Where("length >= ?", minLength)
	}
	var items []entity.ProfileRemnant
	err := query.Order("length DESC").Find(&items).Error
	return items, err
}

// CountByProfile returns how many remnants a lot has spawned.
func (r *RemnantRepository) CountByProfile(ctx context.Context, tenantID, profileID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&entity.ProfileRemnant{}).
		Where("tenant_id = ? AND profile_id = ?", tenantID, profileID).
		Count(&total).Error
	return total, err
}
