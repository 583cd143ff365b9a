package repository

import (
	"context"
	"errors"

	"github.com/petersonmatiss/mpm/internal/apperror"
	"github.com/petersonmatiss/mpm/internal/stock/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository persists profile lots. All lookups are tenant-scoped;
// the tenant id is always an explicit parameter.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByLotID finds an active lot by its human-readable code.
func (r *ProfileRepository) FindByLotID(ctx context.Context, tenantID, lotID string) (*entity.Profile, error) {
	var p entity.Profile
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND lot_id = ? AND active = true", tenantID, lotID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindByID finds an active lot by primary key.
func (r *ProfileRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.Profile, error) {
	var p entity.Profile
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ? AND active = true", tenantID, id).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// LockByLotID loads a lot inside tx with a FOR UPDATE row lock so
// concurrent consumption serializes on the same lot.
func (r *ProfileRepository) LockByLotID(tx *gorm.DB, tenantID, lotID string) (*entity.Profile, error) {
	var p entity.Profile
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND lot_id = ? AND active = true", tenantID, lotID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts a new lot. A lot id collision within the tenant surfaces
// as DuplicateIdentityError.
func (r *ProfileRepository) Create(ctx context.Context, p *entity.Profile) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.Profile{}).
		Where("tenant_id = ? AND lot_id = ?", p.TenantID, p.LotID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return &apperror.DuplicateIdentityError{Entity: "profile lot", Identity: p.LotID}
	}
	return r.db.WithContext(ctx).Create(p).Error
}

// UpdateVersioned saves the lot guarded by its optimistic version token.
// A stale write returns ErrConflict.
func (r *ProfileRepository) UpdateVersioned(tx *gorm.DB, p *entity.Profile) error {
	currentVersion := p.Version
	p.Version++
	res := tx.Model(&entity.Profile{}).
		Where("id = ? AND version = ?", p.ID, currentVersion).
		Updates(map[string]interface{}{
			"available_length": p.AvailableLength,
			"is_reserved":      p.IsReserved,
			"active":           p.Active,
			"version":          p.Version,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.ErrConflict
	}
	return nil
}

// ListParams filters the lot listing.
type ListParams struct {
	Grade       string
	ProfileType string
	Available   bool // only lots with available length > 0
	Unreserved  bool
	Page        int
	Size        int
}

// List returns active lots for one tenant, newest arrivals first.
func (r *ProfileRepository) List(ctx context.Context, tenantID string, params ListParams) ([]entity.Profile, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Profile{}).
		Where("tenant_id = ? AND active = true", tenantID)

	if params.Grade != "" {
		query = query.Where("grade = ?", params.Grade)
	}
	if params.ProfileType != "" {
		query = query.Where("profile_type = ?", params.ProfileType)
	}
	if params.Available {
		query = query.Where("available_length > 0")
	}
	if params.Unreserved {
		query = query.Where("is_reserved = false")
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

	var items []entity.Profile
	err := query.
		Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).
		Limit(params.Size).
		Find(&items).Error
	return items, total, err
}

// ListAll returns every active lot for one tenant, for report export.
func (r *ProfileRepository) ListAll(ctx context.Context, tenantID string) ([]entity.Profile, error) {
	var items []entity.Profile
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = true", tenantID).
		Order("lot_id ASC").
		Find(&items).Error
	return items, err
}
