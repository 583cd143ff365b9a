package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/petersonmatiss/mpm/internal/apperror"
	auditentity "github.com/petersonmatiss/mpm/internal/audit/entity"
	"github.com/petersonmatiss/mpm/internal/stock/entity"
	"github.com/petersonmatiss/mpm/internal/stock/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReservationService holds and releases lot length for projects and work
// orders. A lot's IsReserved flag is derived state: true exactly when the
// sum of its reservations reaches its total length.
type ReservationService struct {
	profileRepo     *repository.ProfileRepository
	reservationRepo *repository.ReservationRepository
	db              *gorm.DB
	logger          *zap.Logger
}

func NewReservationService(repos *repository.Repositories, db *gorm.DB, logger *zap.Logger) *ReservationService {
	return &ReservationService{
		profileRepo:     repos.Profile,
		reservationRepo: repos.Reservation,
		db:              db,
		logger:          logger,
	}
}

// ReserveRequest holds length against a lot.
type ReserveRequest struct {
	ReservedLength float64 `json:"reserved_length" binding:"required,gt=0"` // mm
	ProjectID      *string `json:"project_id"`
	WorkOrderID    *string `json:"work_order_id"`
	CreatedBy      string  `json:"created_by"`
}

// Reserve creates a reservation and recomputes the lot's reserved flag in
// the same transaction. Over-reserving beyond the lot's total length fails
// with the required and free amounts.
func (s *ReservationService) Reserve(ctx context.Context, tenantID, lotID string, actor auditentity.Actor, req *ReserveRequest) (*entity.MaterialReservation, error) {
	if err := ValidateLotID(lotID); err != nil {
		return nil, err
	}
	if req.ReservedLength <= 0 {
		return nil, apperror.Validation("reserved_length", "must be greater than zero")
	}
	if strings.TrimSpace(req.CreatedBy) == "" {
		req.CreatedBy = actor.Name
	}

	var reservation *entity.MaterialReservation

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prof, err := s.profileRepo.LockByLotID(tx, tenantID, lotID)
		if err != nil {
			return err
		}

		reserved, err := s.reservationRepo.SumByProfile(tx, tenantID, prof.ID)
		if err != nil {
			return err
		}
		if reserved+req.ReservedLength > prof.Length {
			return &apperror.InsufficientStockError{
				LotID:     prof.LotID,
				Required:  req.ReservedLength,
				Available: prof.Length - reserved,
			}
		}

		reservation = &entity.MaterialReservation{
			ID:             uuid.New().String(),
			TenantID:       tenantID,
			ProfileID:      prof.ID,
			ReservedLength: req.ReservedLength,
			ProjectID:      req.ProjectID,
			WorkOrderID:    req.WorkOrderID,
			CreatedBy:      req.CreatedBy,
		}
		if err := tx.Create(reservation).Error; err != nil {
			return fmt.Errorf("failed to create reservation: %w", err)
		}

		wasReserved := prof.IsReserved
		prof.IsReserved = reserved+req.ReservedLength >= prof.Length
		if err := s.profileRepo.UpdateVersioned(tx, prof); err != nil {
			return err
		}

		return tx.Create(&auditentity.AuditEntry{
			ID:            uuid.New().String(),
			TenantID:      tenantID,
			EntityType:    "profile",
			EntityID:      prof.ID,
			Action:        auditentity.ActionReserve,
			FieldName:     "is_reserved",
			OldValue:      strconv.FormatBool(wasReserved),
			NewValue:      strconv.FormatBool(prof.IsReserved),
			ActorID:       actor.ID,
			ActorName:     actor.Name,
			CorrelationID: actor.CorrelationID,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Lot reserved",
		zap.String("tenant_id", tenantID),
		zap.String("lot_id", lotID),
		zap.Float64("reserved_length", req.ReservedLength),
	)
	return reservation, nil
}

// Unreserve releases the whole lot: all its reservations are removed and
// the reserved flag cleared. No reason is required because this is a full
// release, not a partial adjustment.
func (s *ReservationService) Unreserve(ctx context.Context, tenantID, lotID string, actor auditentity.Actor) error {
	if err := ValidateLotID(lotID); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prof, err := s.profileRepo.LockByLotID(tx, tenantID, lotID)
		if err != nil {
			return err
		}

		if err := tx.Where("tenant_id = ? AND profile_id = ?", tenantID, prof.ID).
			Delete(&entity.MaterialReservation{}).Error; err != nil {
			return fmt.Errorf("failed to remove reservations: %w", err)
		}

		wasReserved := prof.IsReserved
		prof.IsReserved = false
		if err := s.profileRepo.UpdateVersioned(tx, prof); err != nil {
			return err
		}

		return tx.Create(&auditentity.AuditEntry{
			ID:            uuid.New().String(),
			TenantID:      tenantID,
			EntityType:    "profile",
			EntityID:      prof.ID,
			Action:        auditentity.ActionUnreserve,
			FieldName:     "is_reserved",
			OldValue:      strconv.FormatBool(wasReserved),
			NewValue:      "false",
			ActorID:       actor.ID,
			ActorName:     actor.Name,
			CorrelationID: actor.CorrelationID,
		}).Error
	})
	if err != nil {
		return err
	}

	s.logger.Info("Lot released",
		zap.String("tenant_id", tenantID),
		zap.String("lot_id", lotID),
	)
	return nil
}

// ListByProfile returns all reservations against a lot.
func (s *ReservationService) ListByProfile(ctx context.Context, tenantID, lotID string) ([]entity.MaterialReservation, error) {
	prof, err := s.profileRepo.FindByLotID(ctx, tenantID, lotID)
	if err != nil {
		return nil, err
	}
	return s.reservationRepo.ListByProfile(ctx, tenantID, prof.ID)
}
