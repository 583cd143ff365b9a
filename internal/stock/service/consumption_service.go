package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petersonmatiss/mpm/internal/apperror"
	auditentity "github.com/petersonmatiss/mpm/internal/audit/entity"
	"github.com/petersonmatiss/mpm/internal/stock/entity"
	"github.com/petersonmatiss/mpm/internal/stock/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// lotIDPattern: one uppercase letter followed by digits, e.g. A15, Z999.
var lotIDPattern = regexp.MustCompile(`^[A-Z][0-9]+$`)

// ValidateLotID rejects malformed lot codes before any store access.
func ValidateLotID(lotID string) error {
	if !lotIDPattern.MatchString(lotID) {
		return apperror.Validation("lot_id", "invalid lot id %q: expected one uppercase letter followed by digits", lotID)
	}
	return nil
}

// ConsumptionService applies usage requests against profile lots, remnants
// and sheets. Each call runs in a single transaction: availability
// decrement, the usage event and the optional spawned remnant commit or
// roll back together.
type ConsumptionService struct {
	profileRepo *repository.ProfileRepository
	remnantRepo *repository.RemnantRepository
	sheetRepo   *repository.SheetRepository
	db          *gorm.DB
	cache       *ListingCache
	logger      *zap.Logger
}

func NewConsumptionService(repos *repository.Repositories, db *gorm.DB, cache *ListingCache, logger *zap.Logger) *ConsumptionService {
	return &ConsumptionService{
		profileRepo: repos.Profile,
		remnantRepo: repos.Remnant,
		sheetRepo:   repos.Sheet,
		db:          db,
		cache:       cache,
		logger:      logger,
	}
}

// ConsumeRequest describes one cut against a profile lot or remnant.
type ConsumeRequest struct {
	UsedLength    float64 `json:"used_length" binding:"required,gt=0"` // mm per piece
	PiecesUsed    int     `json:"pieces_used" binding:"required,gt=0"`
	UsedBy        string  `json:"used_by" binding:"required"`
	ProjectID     *string `json:"project_id"`
	WorkOrderID   *string `json:"work_order_id"`
	RemnantLength float64 `json:"remnant_length"` // >0 spawns a remnant
}

func (req *ConsumeRequest) validate() error {
	if req.UsedLength <= 0 {
		return apperror.Validation("used_length", "must be greater than zero")
	}
	if req.PiecesUsed <= 0 {
		return apperror.Validation("pieces_used", "must be greater than zero")
	}
	if strings.TrimSpace(req.UsedBy) == "" {
		return apperror.Validation("used_by", "must not be empty")
	}
	if req.RemnantLength < 0 {
		return apperror.Validation("remnant_length", "must not be negative")
	}
	return nil
}

// Consume cuts pieces from a profile lot. On success the lot's available
// length is decremented by used_length*pieces_used, a usage event is
// appended, and a remnant is spawned when remnant_length > 0. No partial
// state is ever observable: a failure anywhere rolls everything back.
func (s *ConsumptionService) Consume(ctx context.Context, tenantID, lotID string, actor auditentity.Actor, req *ConsumeRequest) (*entity.ProfileUsage, error) {
	if err := ValidateLotID(lotID); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	totalNeeded := req.UsedLength * float64(req.PiecesUsed)
	var usage *entity.ProfileUsage

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prof, err := s.profileRepo.LockByLotID(tx, tenantID, lotID)
		if err != nil {
			return err
		}

		if totalNeeded > prof.AvailableLength {
			return &apperror.InsufficientStockError{
				LotID:     prof.LotID,
				Required:  totalNeeded,
				Available: prof.AvailableLength,
			}
		}

		prof.AvailableLength -= totalNeeded
		if err := s.profileRepo.UpdateVersioned(tx, prof); err != nil {
			return fmt.Errorf("failed to decrement lot %s: %w", lotID, err)
		}

		usage = &entity.ProfileUsage{
			ID:          uuid.New().String(),
			TenantID:    tenantID,
			ProfileID:   &prof.ID,
			UsedLength:  req.UsedLength,
			PiecesUsed:  req.PiecesUsed,
			TotalLength: totalNeeded,
			ProjectID:   req.ProjectID,
			WorkOrderID: req.WorkOrderID,
			UsedBy:      req.UsedBy,
			UsedAt:      time.Now(),
		}

		if req.RemnantLength > 0 {
			remnant := &entity.ProfileRemnant{
				ID:        uuid.New().String(),
				TenantID:  tenantID,
				ProfileID: prof.ID,
				Length:    req.RemnantLength,
				Weight:    remnantWeight(prof.Weight, req.RemnantLength, prof.Length),
				IsUsable:  true,
				IsUsed:    false,
			}
			if err := tx.Create(remnant).Error; err != nil {
				return fmt.Errorf("failed to create remnant: %w", err)
			}
			usage.CreatedRemnantID = &remnant.ID
		}

		if err := tx.Create(usage).Error; err != nil {
			return fmt.Errorf("failed to record usage: %w", err)
		}

		return tx.Create(&auditentity.AuditEntry{
			ID:            uuid.New().String(),
			TenantID:      tenantID,
			EntityType:    "profile",
			EntityID:      prof.ID,
			Action:        auditentity.ActionConsume,
			FieldName:     "available_length",
			OldValue:      fmt.Sprintf("%.2f", prof.AvailableLength+totalNeeded),
			NewValue:      fmt.Sprintf("%.2f", prof.AvailableLength),
			ActorID:       actor.ID,
			ActorName:     actor.Name,
			CorrelationID: actor.CorrelationID,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, tenantID)
	s.logger.Info("Profile consumed",
		zap.String("tenant_id", tenantID),
		zap.String("lot_id", lotID),
		zap.Float64("total_length", totalNeeded),
		zap.Float64("remnant_length", req.RemnantLength),
	)
	return usage, nil
}

// ConsumeRemnant cuts pieces from a remnant. A remnant cut to zero length
// is marked used and excluded from further consumption.
func (s *ConsumptionService) ConsumeRemnant(ctx context.Context, tenantID, remnantID string, actor auditentity.Actor, req *ConsumeRequest) (*entity.ProfileUsage, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.RemnantLength > 0 {
		return nil, apperror.Validation("remnant_length", "a remnant cut cannot spawn another remnant")
	}

	totalNeeded := req.UsedLength * float64(req.PiecesUsed)
	var usage *entity.ProfileUsage

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rem, err := s.remnantRepo.LockByID(tx, tenantID, remnantID)
		if err != nil {
			return err
		}
		if !rem.IsUsable || rem.IsUsed {
			return apperror.Validation("remnant_id", "remnant %s is no longer usable", remnantID)
		}

		if totalNeeded > rem.Length {
			return &apperror.InsufficientStockError{
				LotID:     rem.ID,
				Required:  totalNeeded,
				Available: rem.Length,
			}
		}

		oldLength := rem.Length
		// Weight shrinks in proportion to the consumed length.
		rem.Weight = remnantWeight(rem.Weight, rem.Length-totalNeeded, rem.Length)
		rem.Length -= totalNeeded
		if rem.Length <= 0 {
			rem.IsUsed = true
		}
		if err := s.remnantRepo.UpdateVersioned(tx, rem); err != nil {
			return fmt.Errorf("failed to decrement remnant %s: %w", remnantID, err)
		}

		usage = &entity.ProfileUsage{
			ID:          uuid.New().String(),
			TenantID:    tenantID,
			RemnantID:   &rem.ID,
			UsedLength:  req.UsedLength,
			PiecesUsed:  req.PiecesUsed,
			TotalLength: totalNeeded,
			ProjectID:   req.ProjectID,
			WorkOrderID: req.WorkOrderID,
			UsedBy:      req.UsedBy,
			UsedAt:      time.Now(),
		}
		if err := tx.Create(usage).Error; err != nil {
			return fmt.Errorf("failed to record usage: %w", err)
		}

		return tx.Create(&auditentity.AuditEntry{
			ID:            uuid.New().String(),
			TenantID:      tenantID,
			EntityType:    "remnant",
			EntityID:      rem.ID,
			Action:        auditentity.ActionConsume,
			FieldName:     "length",
			OldValue:      fmt.Sprintf("%.2f", oldLength),
			NewValue:      fmt.Sprintf("%.2f", rem.Length),
			ActorID:       actor.ID,
			ActorName:     actor.Name,
			CorrelationID: actor.CorrelationID,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Remnant consumed",
		zap.String("tenant_id", tenantID),
		zap.String("remnant_id", remnantID),
		zap.Float64("total_length", totalNeeded),
	)
	return usage, nil
}

// ConsumeSheetRequest describes one nesting job against a sheet.
type ConsumeSheetRequest struct {
	UsedArea    float64 `json:"used_area" binding:"required,gt=0"` // mm² per piece
	PiecesUsed  int     `json:"pieces_used" binding:"required,gt=0"`
	UsedBy      string  `json:"used_by" binding:"required"`
	ProjectID   *string `json:"project_id"`
	WorkOrderID *string `json:"work_order_id"`
}

// ConsumeSheet decrements a sheet's available area and appends the usage
// event atomically. A sheet cut to zero area is flagged used.
func (s *ConsumptionService) ConsumeSheet(ctx context.Context, tenantID, sheetID string, actor auditentity.Actor, req *ConsumeSheetRequest) (*entity.SheetUsage, error) {
	if req.UsedArea <= 0 {
		return nil, apperror.Validation("used_area", "must be greater than zero")
	}
	if req.PiecesUsed <= 0 {
		return nil, apperror.Validation("pieces_used", "must be greater than zero")
	}
	if strings.TrimSpace(req.UsedBy) == "" {
		return nil, apperror.Validation("used_by", "must not be empty")
	}

	totalNeeded := req.UsedArea * float64(req.PiecesUsed)
	var usage *entity.SheetUsage

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sheet, err := s.sheetRepo.LockBySheetID(tx, tenantID, sheetID)
		if err != nil {
			return err
		}
		if sheet.IsUsed {
			return apperror.Validation("sheet_id", "sheet %s is already fully used", sheetID)
		}

		if totalNeeded > sheet.AvailableArea {
			return &apperror.InsufficientStockError{
				LotID:     sheet.SheetID,
				Required:  totalNeeded,
				Available: sheet.AvailableArea,
			}
		}

		oldArea := sheet.AvailableArea
		sheet.AvailableArea -= totalNeeded
		if sheet.AvailableArea <= 0 {
			sheet.IsUsed = true
		}
		if err := s.sheetRepo.UpdateVersioned(tx, sheet); err != nil {
			return fmt.Errorf("failed to decrement sheet %s: %w", sheetID, err)
		}

		usage = &entity.SheetUsage{
			ID:          uuid.New().String(),
			TenantID:    tenantID,
			SheetID:     sheet.ID,
			UsedArea:    req.UsedArea,
			PiecesUsed:  req.PiecesUsed,
			ProjectID:   req.ProjectID,
			WorkOrderID: req.WorkOrderID,
			UsedBy:      req.UsedBy,
			UsedAt:      time.Now(),
		}
		if err := tx.Create(usage).Error; err != nil {
			return fmt.Errorf("failed to record sheet usage: %w", err)
		}

		return tx.Create(&auditentity.AuditEntry{
			ID:            uuid.New().String(),
			TenantID:      tenantID,
			EntityType:    "sheet",
			EntityID:      sheet.ID,
			Action:        auditentity.ActionConsume,
			FieldName:     "available_area",
			OldValue:      fmt.Sprintf("%.2f", oldArea),
			NewValue:      fmt.Sprintf("%.2f", sheet.AvailableArea),
			ActorID:       actor.ID,
			ActorName:     actor.Name,
			CorrelationID: actor.CorrelationID,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, tenantID)
	s.logger.Info("Sheet consumed",
		zap.String("tenant_id", tenantID),
		zap.String("sheet_id", sheetID),
		zap.Float64("total_area", totalNeeded),
	)
	return usage, nil
}

// remnantWeight computes the proportional weight of a cut piece. A parent
// with zero length yields weight 0 instead of dividing by zero.
func remnantWeight(parentWeight, length, parentLength float64) float64 {
	if parentLength == 0 {
		return 0
	}
	return parentWeight * length / parentLength
}
