package repository

import (
	"context"

	"github.com/petersonmatiss/mpm/internal/stock/entity"
	"gorm.io/gorm"
)

// ReservationRepository persists material reservations.
type ReservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// ListByProfile returns all active reservations against one lot.
func (r *ReservationRepository) ListByProfile(ctx context.Context, tenantID, profileID string) ([]entity.MaterialReservation, error) {
	var items []entity.MaterialReservation
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND profile_id = ?", tenantID, profileID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// SumByProfile returns the total reserved length against one lot. Runs
// inside tx when called from a reservation transaction.
func (r *ReservationRepository) SumByProfile(tx *gorm.DB, tenantID, profileID string) (float64, error) {
	var result struct{ Total float64 }
	err := tx.Raw(`
		SELECT COALESCE(SUM(reserved_length), 0) AS total
		FROM stock_material_reservations
		WHERE tenant_id = ? AND profile_id = ?
	`, tenantID, profileID).Scan(&result).Error
	return result.Total, err
}

// ListByProject returns all reservations held for one project.
func (r *ReservationRepository) ListByProject(ctx context.Context, tenantID, projectID string) ([]entity.MaterialReservation, error) {
	var items []entity.MaterialReservation
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND project_id = ?", tenantID, projectID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}
