package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petersonmatiss/mpm/internal/apperror"
	auditentity "github.com/petersonmatiss/mpm/internal/audit/entity"
	"github.com/petersonmatiss/mpm/internal/stock/entity"
	"github.com/petersonmatiss/mpm/internal/stock/repository"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StockService covers receipt, lookup and retirement of stock units.
// Consumption goes through ConsumptionService; this service never touches
// availability.
type StockService struct {
	profileRepo     *repository.ProfileRepository
	sheetRepo       *repository.SheetRepository
	remnantRepo     *repository.RemnantRepository
	usageRepo       *repository.UsageRepository
	reservationRepo *repository.ReservationRepository
	db              *gorm.DB
	cache           *ListingCache
	logger          *zap.Logger
}

func NewStockService(repos *repository.Repositories, db *gorm.DB, cache *ListingCache, logger *zap.Logger) *StockService {
	return &StockService{
		profileRepo:     repos.Profile,
		sheetRepo:       repos.Sheet,
		remnantRepo:     repos.Remnant,
		usageRepo:       repos.Usage,
		reservationRepo: repos.Reservation,
		db:              db,
		cache:           cache,
		logger:          logger,
	}
}

// ReceiveProfileRequest registers one incoming bar lot.
type ReceiveProfileRequest struct {
	LotID             string          `json:"lot_id" binding:"required"`
	ProfileType       string          `json:"profile_type" binding:"required"`
	Grade             string          `json:"grade" binding:"required"`
	Length            float64         `json:"length" binding:"required,gt=0"` // mm
	Weight            float64         `json:"weight"`
	HeatNumber        string          `json:"heat_number"`
	CertificateNumber string          `json:"certificate_number"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	SupplierID        *string         `json:"supplier_id"`
	ArrivalDate       *time.Time      `json:"arrival_date"`
	Notes             string          `json:"notes"`
}

// ReceiveProfile creates a lot with full availability.
func (s *StockService) ReceiveProfile(ctx context.Context, tenantID string, actor auditentity.Actor, req *ReceiveProfileRequest) (*entity.Profile, error) {
	if err := ValidateLotID(req.LotID); err != nil {
		return nil, err
	}
	if req.Length <= 0 {
		return nil, apperror.Validation("length", "must be greater than zero")
	}

	prof := &entity.Profile{
		ID:                uuid.New().String(),
		TenantID:          tenantID,
		LotID:             req.LotID,
		ProfileType:       req.ProfileType,
		Grade:             req.Grade,
		Length:            req.Length,
		AvailableLength:   req.Length,
		Weight:            req.Weight,
		HeatNumber:        req.HeatNumber,
		CertificateNumber: req.CertificateNumber,
		UnitPrice:         req.UnitPrice,
		SupplierID:        req.SupplierID,
		ArrivalDate:       req.ArrivalDate,
		Active:            true,
		Version:           1,
		Notes:             req.Notes,
	}

	if err := s.profileRepo.Create(ctx, prof); err != nil {
		return nil, err
	}

	s.audit(ctx, tenantID, "profile", prof.ID, auditentity.ActionCreate, "lot_id", "", prof.LotID, actor)
	s.cache.Invalidate(ctx, tenantID)
	s.logger.Info("Profile received",
		zap.String("tenant_id", tenantID),
		zap.String("lot_id", prof.LotID),
		zap.Float64("length", prof.Length),
	)
	return prof, nil
}

// ReceiveSheetRequest registers one incoming plate.
type ReceiveSheetRequest struct {
	SheetID           string          `json:"sheet_id" binding:"required"`
	Grade             string          `json:"grade" binding:"required"`
	Length            float64         `json:"length" binding:"required,gt=0"`
	Width             float64         `json:"width" binding:"required,gt=0"`
	Thickness         float64         `json:"thickness" binding:"required,gt=0"`
	Weight            float64         `json:"weight"`
	HeatNumber        string          `json:"heat_number"`
	CertificateNumber string          `json:"certificate_number"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	SupplierID        *string         `json:"supplier_id"`
	ArrivalDate       *time.Time      `json:"arrival_date"`
	Notes             string          `json:"notes"`
}

// ReceiveSheet creates a sheet with its full area available.
func (s *StockService) ReceiveSheet(ctx context.Context, tenantID string, actor auditentity.Actor, req *ReceiveSheetRequest) (*entity.Sheet, error) {
	if strings.TrimSpace(req.SheetID) == "" {
		return nil, apperror.Validation("sheet_id", "must not be empty")
	}
	if req.Length <= 0 || req.Width <= 0 || req.Thickness <= 0 {
		return nil, apperror.Validation("dimensions", "length, width and thickness must be greater than zero")
	}

	sheet := &entity.Sheet{
		ID:                uuid.New().String(),
		TenantID:          tenantID,
		SheetID:           req.SheetID,
		Grade:             req.Grade,
		Length:            req.Length,
		Width:             req.Width,
		Thickness:         req.Thickness,
		Weight:            req.Weight,
		AvailableArea:     req.Length * req.Width,
		HeatNumber:        req.HeatNumber,
		CertificateNumber: req.CertificateNumber,
		UnitPrice:         req.UnitPrice,
		SupplierID:        req.SupplierID,
		ArrivalDate:       req.ArrivalDate,
		Active:            true,
		Version:           1,
		Notes:             req.Notes,
	}

	if err := s.sheetRepo.Create(ctx, sheet); err != nil {
		return nil, err
	}

	s.audit(ctx, tenantID, "sheet", sheet.ID, auditentity.ActionCreate, "sheet_id", "", sheet.SheetID, actor)
	s.cache.Invalidate(ctx, tenantID)
	s.logger.Info("Sheet received",
		zap.String("tenant_id", tenantID),
		zap.String("sheet_id", sheet.SheetID),
	)
	return sheet, nil
}

// GetProfile returns one lot by its code.
func (s *StockService) GetProfile(ctx context.Context, tenantID, lotID string) (*entity.Profile, error) {
	if err := ValidateLotID(lotID); err != nil {
		return nil, err
	}
	return s.profileRepo.FindByLotID(ctx, tenantID, lotID)
}

// profileListing is the cached shape of the default listing.
type profileListing struct {
	Items []entity.Profile `json:"items"`
	Total int64            `json:"total"`
}

// ListProfiles returns lots for one tenant. The unfiltered first page is
// served from redis when possible.
func (s *StockService) ListProfiles(ctx context.Context, tenantID string, params repository.ListParams) ([]entity.Profile, int64, error) {
	defaultListing := params.Grade == "" && params.ProfileType == "" && !params.Available &&
		!params.Unreserved && params.Page <= 1 && (params.Size == 0 || params.Size == 20)

	if defaultListing {
		var cached profileListing
		if s.cache.GetProfiles(ctx, tenantID, &cached) {
			return cached.Items, cached.Total, nil
		}
	}

	items, total, err := s.profileRepo.List(ctx, tenantID, params)
	if err != nil {
		return nil, 0, err
	}

	if defaultListing {
		s.cache.SetProfiles(ctx, tenantID, profileListing{Items: items, Total: total})
	}
	return items, total, nil
}

// ListSheets returns sheets for one tenant, caching the default page.
func (s *StockService) ListSheets(ctx context.Context, tenantID string, params repository.SheetListParams) ([]entity.Sheet, int64, error) {
	defaultListing := params.Grade == "" && params.Thickness == 0 && !params.Unused &&
		params.Page <= 1 && (params.Size == 0 || params.Size == 20)

	if defaultListing {
		var cached struct {
			Items []entity.Sheet `json:"items"`
			Total int64          `json:"total"`
		}
		if s.cache.GetSheets(ctx, tenantID, &cached) {
			return cached.Items, cached.Total, nil
		}
	}

	items, total, err := s.sheetRepo.List(ctx, tenantID, params)
	if err != nil {
		return nil, 0, err
	}

	if defaultListing {
		s.cache.SetSheets(ctx, tenantID, struct {
			Items []entity.Sheet `json:"items"`
			Total int64          `json:"total"`
		}{items, total})
	}
	return items, total, nil
}

// ListRemnants returns usable remnants, optionally filtered by minimum length.
func (s *StockService) ListRemnants(ctx context.Context, tenantID string, minLength float64) ([]entity.ProfileRemnant, error) {
	return s.remnantRepo.ListUsable(ctx, tenantID, minLength)
}

// ListProfileUsage returns the usage ledger of one lot.
func (s *StockService) ListProfileUsage(ctx context.Context, tenantID, lotID string) ([]entity.ProfileUsage, error) {
	prof, err := s.GetProfile(ctx, tenantID, lotID)
	if err != nil {
		return nil, err
	}
	return s.usageRepo.ListByProfile(ctx, tenantID, prof.ID)
}

// ListSheetUsage returns the usage ledger of one sheet.
func (s *StockService) ListSheetUsage(ctx context.Context, tenantID, sheetID string) ([]entity.SheetUsage, error) {
	sheet, err := s.sheetRepo.FindBySheetID(ctx, tenantID, sheetID)
	if err != nil {
		return nil, err
	}
	return s.usageRepo.ListSheetUsage(ctx, tenantID, sheet.ID)
}

// ListProjectUsage returns all profile usage booked to one project.
func (s *StockService) ListProjectUsage(ctx context.Context, tenantID, projectID string) ([]entity.ProfileUsage, error) {
	return s.usageRepo.ListByProject(ctx, tenantID, projectID)
}

// CanDeleteProfile reports whether a lot may be retired: not reserved, no
// usage events, no remnants.
func (s *StockService) CanDeleteProfile(ctx context.Context, tenantID, lotID string) (bool, error) {
	prof, err := s.GetProfile(ctx, tenantID, lotID)
	if err != nil {
		return false, err
	}
	if prof.IsReserved {
		return false, nil
	}
	usages, err := s.usageRepo.CountByProfile(ctx, tenantID, prof.ID)
	if err != nil {
		return false, err
	}
	if usages > 0 {
		return false, nil
	}
	remnants, err := s.remnantRepo.CountByProfile(ctx, tenantID, prof.ID)
	if err != nil {
		return false, err
	}
	return remnants == 0, nil
}

// SoftDeleteProfile retires a lot. Lots with history are never removed;
// the row is only flagged inactive, and only when canDelete holds.
func (s *StockService) SoftDeleteProfile(ctx context.Context, tenantID, lotID string, actor auditentity.Actor) error {
	ok, err := s.CanDeleteProfile(ctx, tenantID, lotID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Validation("lot_id", "lot %s cannot be deleted: it is reserved or has usage history", lotID)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prof, err := s.profileRepo.LockByLotID(tx, tenantID, lotID)
		if err != nil {
			return err
		}
		prof.Active = false
		if err := s.profileRepo.UpdateVersioned(tx, prof); err != nil {
			return err
		}

		return tx.Create(&auditentity.AuditEntry{
			ID:            uuid.New().String(),
			TenantID:      tenantID,
			EntityType:    "profile",
			EntityID:      prof.ID,
			Action:        auditentity.ActionDelete,
			FieldName:     "active",
			OldValue:      "true",
			NewValue:      "false",
			ActorID:       actor.ID,
			ActorName:     actor.Name,
			CorrelationID: actor.CorrelationID,
		}).Error
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx, tenantID)
	s.logger.Info("Profile retired",
		zap.String("tenant_id", tenantID),
		zap.String("lot_id", lotID),
	)
	return nil
}

// ExportInventory builds an xlsx workbook with one sheet of profile lots,
// one of remnants and one of sheets.
func (s *StockService) ExportInventory(ctx context.Context, tenantID string) (*bytes.Buffer, error) {
	profiles, err := s.profileRepo.ListAll(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	sheets, err := s.sheetRepo.ListAll(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	remnants, err := s.remnantRepo.ListUsable(ctx, tenantID, 0)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	profileSheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(profileSheet, "Profiles"); err != nil {
		return nil, err
	}
	profileSheet = "Profiles"

	header := []interface{}{"lot_id", "profile_type", "grade", "length_mm", "available_mm", "weight_kg", "heat_number", "certificate", "reserved"}
	if err := f.SetSheetRow(profileSheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, p := range profiles {
		row := []interface{}{p.LotID, p.ProfileType, p.Grade, p.Length, p.AvailableLength, p.Weight, p.HeatNumber, p.CertificateNumber, p.IsReserved}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(profileSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet("Remnants"); err != nil {
		return nil, err
	}
	header = []interface{}{"remnant_id", "parent_profile_id", "length_mm", "weight_kg", "usable"}
	if err := f.SetSheetRow("Remnants", "A1", &header); err != nil {
		return nil, err
	}
	for i, r := range remnants {
		row := []interface{}{r.ID, r.ProfileID, r.Length, r.Weight, r.IsUsable}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow("Remnants", cell, &row); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet("Sheets"); err != nil {
		return nil, err
	}
	header = []interface{}{"sheet_id", "grade", "length_mm", "width_mm", "thickness_mm", "available_mm2", "weight_kg", "used"}
	if err := f.SetSheetRow("Sheets", "A1", &header); err != nil {
		return nil, err
	}
	for i, sh := range sheets {
		row := []interface{}{sh.SheetID, sh.Grade, sh.Length, sh.Width, sh.Thickness, sh.AvailableArea, sh.Weight, sh.IsUsed}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow("Sheets", cell, &row); err != nil {
			return nil, err
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}

// audit writes a best-effort entry outside a transaction, for plain CRUD
// where the write itself is a single insert.
func (s *StockService) audit(ctx context.Context, tenantID, entityType, entityID, action, field, oldVal, newVal string, actor auditentity.Actor) {
	entry := &auditentity.AuditEntry{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		EntityType:    entityType,
		EntityID:      entityID,
		Action:        action,
		FieldName:     field,
		OldValue:      oldVal,
		NewValue:      newVal,
		ActorID:       actor.ID,
		ActorName:     actor.Name,
		CorrelationID: actor.CorrelationID,
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		s.logger.Warn("Failed to write audit entry", zap.Error(err))
	}
}
