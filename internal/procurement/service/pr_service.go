package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petersonmatiss/mpm/internal/apperror"
	auditentity "github.com/petersonmatiss/mpm/internal/audit/entity"
	"github.com/petersonmatiss/mpm/internal/procurement/entity"
	"github.com/petersonmatiss/mpm/internal/procurement/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PRService drives the purchase-request lifecycle. Every transition locks
// the request row, checks the transition table, applies the change and
// writes exactly one audit entry, all in one transaction.
type PRService struct {
	prRepo *repository.PRRepository
	db     *gorm.DB
	logger *zap.Logger
}

func NewPRService(prRepo *repository.PRRepository, db *gorm.DB, logger *zap.Logger) *PRService {
	return &PRService{prRepo: prRepo, db: db, logger: logger}
}

// CreatePRLineRequest is one requested material position.
type CreatePRLineRequest struct {
	MaterialType string  `json:"material_type" binding:"required,oneof=profile sheet"`
	ProfileType  string  `json:"profile_type"`
	Dimensions   string  `json:"dimensions"`
	Grade        string  `json:"grade"`
	Quantity     float64 `json:"quantity" binding:"required,gt=0"`
	Unit         string  `json:"unit"`
	Notes        string  `json:"notes"`
}

// CreatePRRequest opens a new draft.
type CreatePRRequest struct {
	Title string                `json:"title" binding:"required"`
	Notes string                `json:"notes"`
	Lines []CreatePRLineRequest `json:"lines"`
}

// Create opens a draft purchase request with a generated number.
func (s *PRService) Create(ctx context.Context, tenantID string, actor auditentity.Actor, req *CreatePRRequest) (*entity.PurchaseRequest, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperror.Validation("title", "must not be empty")
	}

	number, err := s.prRepo.GenerateNumber(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PR number: %w", err)
	}

	pr := &entity.PurchaseRequest{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Number:    number,
		Title:     req.Title,
		Status:    entity.PRStatusDraft,
		CreatedBy: actor.Name,
		Version:   1,
		Notes:     req.Notes,
	}
	for i, l := range req.Lines {
		line, err := buildLine(pr.ID, i, &l)
		if err != nil {
			return nil, err
		}
		pr.Lines = append(pr.Lines, *line)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(pr).Error; err != nil {
			return err
		}
		return tx.Create(&auditentity.AuditEntry{
			ID:            uuid.New().String(),
			TenantID:      tenantID,
			EntityType:    "purchase_request",
			EntityID:      pr.ID,
			Action:        auditentity.ActionCreate,
			FieldName:     "status",
			OldValue:      "",
			NewValue:      entity.PRStatusDraft,
			ActorID:       actor.ID,
			ActorName:     actor.Name,
			CorrelationID: actor.CorrelationID,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Purchase request created",
		zap.String("tenant_id", tenantID),
		zap.String("number", pr.Number),
	)
	return pr, nil
}

// Get loads one purchase request with lines and quotes.
func (s *PRService) Get(ctx context.Context, tenantID, id string) (*entity.PurchaseRequest, error) {
	return s.prRepo.FindByID(ctx, tenantID, id)
}

// List pages purchase requests, optionally by status or free-text search.
func (s *PRService) List(ctx context.Context, tenantID string, page, pageSize int, filters map[string]string) ([]entity.PurchaseRequest, int64, error) {
	return s.prRepo.FindAll(ctx, tenantID, page, pageSize, filters)
}

// TransitionRequest carries the optional parameters of a status change.
type TransitionRequest struct {
	Target string `json:"target" binding:"required"`
	// Reason is mandatory for cancel, ignored elsewhere.
	Reason string `json:"reason"`
}

// Transition moves a purchase request to the target status. Guards:
// sending requires at least one line, completing requires a selected
// winner, canceling requires a reason. Illegal moves return
// InvalidTransitionError with the legal successors.
func (s *PRService) Transition(ctx context.Context, tenantID, id string, actor auditentity.Actor, req *TransitionRequest) (*entity.PurchaseRequest, error) {
	var result *entity.PurchaseRequest

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pr, err := s.prRepo.LockByID(tx, tenantID, id)
		if err != nil {
			return err
		}

		if !entity.CanTransition(pr.Status, req.Target) {
			return &apperror.InvalidTransitionError{
				Current:   pr.Status,
				Attempted: req.Target,
				Allowed:   entity.Transitions[pr.Status],
			}
		}

		from := pr.Status
		now := time.Now()

		switch req.Target {
		case entity.PRStatusSent:
			if len(pr.Lines) == 0 {
				return apperror.Validation("lines", "cannot send a purchase request without lines")
			}
			name := actor.Name
			pr.SentBy = &name
			pr.SentAt = &now
		case entity.PRStatusCollecting:
			// No extra guard: the request merely starts accepting quotes.
		case entity.PRStatusCompleted:
			if pr.WinnerQuoteID == nil {
				return apperror.ErrMissingWinner
			}
			pr.CompletedAt = &now
		case entity.PRStatusCanceled:
			if strings.TrimSpace(req.Reason) == "" {
				return apperror.ErrMissingReason
			}
			pr.CancelReason = req.Reason
			pr.CanceledAt = &now
		}

		pr.Status = req.Target
		if err := s.prRepo.UpdateVersioned(tx, pr); err != nil {
			return err
		}

		result = pr
		return tx.Create(&auditentity.AuditEntry{
			ID:            uuid.New().String(),
			TenantID:      tenantID,
			EntityType:    "purchase_request",
			EntityID:      pr.ID,
			Action:        auditentity.ActionStatusChange,
			FieldName:     "status",
			OldValue:      from,
			NewValue:      req.Target,
			Reason:        req.Reason,
			ActorID:       actor.ID,
			ActorName:     actor.Name,
			CorrelationID: actor.CorrelationID,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Purchase request transitioned",
		zap.String("tenant_id", tenantID),
		zap.String("number", result.Number),
		zap.String("status", result.Status),
	)
	return result, nil
}

// SelectWinner marks one supplier's quote as the winning offer. Allowed
// only while collecting; the supplier must have submitted a quote.
// Re-selecting replaces the previous winner.
func (s *PRService) SelectWinner(ctx context.Context, tenantID, id, supplierID string, actor auditentity.Actor) (*entity.PurchaseRequest, error) {
	if strings.TrimSpace(supplierID) == "" {
		return nil, apperror.Validation("supplier_id", "must not be empty")
	}

	var result *entity.PurchaseRequest

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pr, err := s.prRepo.LockByID(tx, tenantID, id)
		if err != nil {
			return err
		}
		if pr.Status != entity.PRStatusCollecting {
			return &apperror.InvalidTransitionError{
				Current:   pr.Status,
				Attempted: "select_winner",
				Allowed:   []string{entity.PRStatusCollecting},
			}
		}

		quote, err := s.prRepo.FindQuoteBySupplier(tx, pr.ID, supplierID)
		if err != nil {
			if err == apperror.ErrNotFound {
				return apperror.Validation("supplier_id", "supplier %s has not quoted on this request", supplierID)
			}
			return err
		}

		oldWinner := ""
		if pr.WinnerSupplierID != nil {
			oldWinner = *pr.WinnerSupplierID
		}
		if pr.WinnerQuoteID != nil && *pr.WinnerQuoteID != quote.ID {
			if err := tx.Model(&entity.SupplierQuote{}).
				Where("id = ?", *pr.WinnerQuoteID).
				Update("is_selected", false).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&entity.SupplierQuote{}).
			Where("id = ?", quote.ID).
			Update("is_selected", true).Error; err != nil {
			return err
		}

		pr.WinnerSupplierID = &quote.SupplierID
		pr.WinnerQuoteID = &quote.ID
		if err := s.prRepo.UpdateVersioned(tx, pr); err != nil {
			return err
		}

		result = pr
		return tx.Create(&auditentity.AuditEntry{
			ID:            uuid.New().String(),
			TenantID:      tenantID,
			EntityType:    "purchase_request",
			EntityID:      pr.ID,
			Action:        auditentity.ActionSelectWinner,
			FieldName:     "winner_supplier_id",
			OldValue:      oldWinner,
			NewValue:      supplierID,
			ActorID:       actor.ID,
			ActorName:     actor.Name,
			CorrelationID: actor.CorrelationID,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Winner selected",
		zap.String("tenant_id", tenantID),
		zap.String("number", result.Number),
		zap.String("supplier_id", supplierID),
	)
	return result, nil
}

// AddLine appends a material line. Lines are editable only while draft.
func (s *PRService) AddLine(ctx context.Context, tenantID, prID string, actor auditentity.Actor, req *CreatePRLineRequest) (*entity.PRLine, error) {
	var line *entity.PRLine

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pr, err := s.prRepo.LockByID(tx, tenantID, prID)
		if err != nil {
			return err
		}
		if pr.Status != entity.PRStatusDraft {
			return apperror.Validation("status", "lines can only be edited on a draft request")
		}

		line, err = buildLine(pr.ID, len(pr.Lines), req)
		if err != nil {
			return err
		}
		if err := tx.Create(line).Error; err != nil {
			return err
		}

		return tx.Create(&auditentity.AuditEntry{
			ID:            uuid.New().String(),
			TenantID:      tenantID,
			EntityType:    "purchase_request",
			EntityID:      pr.ID,
			Action:        auditentity.ActionUpdate,
			FieldName:     "lines",
			OldValue:      "",
			NewValue:      fmt.Sprintf("+%s %s", line.MaterialType, line.Dimensions),
			ActorID:       actor.ID,
			ActorName:     actor.Name,
			CorrelationID: actor.CorrelationID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// UpdateLine edits a draft line in place.
func (s *PRService) UpdateLine(ctx context.Context, tenantID, prID, lineID string, actor auditentity.Actor, req *CreatePRLineRequest) (*entity.PRLine, error) {
	var line *entity.PRLine

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pr, err := s.prRepo.LockByID(tx, tenantID, prID)
		if err != nil {
			return err
		}
		if pr.Status != entity.PRStatusDraft {
			return apperror.Validation("status", "lines can only be edited on a draft request")
		}

		line = nil
		for i := range pr.Lines {
			if pr.Lines[i].ID == lineID {
				line = &pr.Lines[i]
				break
			}
		}
		if line == nil {
			return apperror.ErrNotFound
		}
		if req.Quantity <= 0 {
			return apperror.Validation("quantity", "must be greater than zero")
		}

		old := fmt.Sprintf("%s %s x%.2f", line.MaterialType, line.Dimensions, line.Quantity)
		line.MaterialType = req.MaterialType
		line.ProfileType = req.ProfileType
		line.Dimensions = req.Dimensions
		line.Grade = req.Grade
		line.Quantity = req.Quantity
		if req.Unit != "" {
			line.Unit = req.Unit
		}
		line.Notes = req.Notes
		if err := tx.Save(line).Error; err != nil {
			return err
		}

		return tx.Create(&auditentity.AuditEntry{
			ID:            uuid.New().String(),
			TenantID:      tenantID,
			EntityType:    "purchase_request",
			EntityID:      pr.ID,
			Action:        auditentity.ActionUpdate,
			FieldName:     "lines",
			OldValue:      old,
			NewValue:      fmt.Sprintf("%s %s x%.2f", line.MaterialType, line.Dimensions, line.Quantity),
			ActorID:       actor.ID,
			ActorName:     actor.Name,
			CorrelationID: actor.CorrelationID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// RemoveLine deletes a draft line.
func (s *PRService) RemoveLine(ctx context.Context, tenantID, prID, lineID string, actor auditentity.Actor) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pr, err := s.prRepo.LockByID(tx, tenantID, prID)
		if err != nil {
			return err
		}
		if pr.Status != entity.PRStatusDraft {
			return apperror.Validation("status", "lines can only be edited on a draft request")
		}

		var removed *entity.PRLine
		for i := range pr.Lines {
			if pr.Lines[i].ID == lineID {
				removed = &pr.Lines[i]
				break
			}
		}
		if removed == nil {
			return apperror.ErrNotFound
		}
		if err := tx.Delete(&entity.PRLine{}, "id = ?", lineID).Error; err != nil {
			return err
		}

		return tx.Create(&auditentity.AuditEntry{
			ID:            uuid.New().String(),
			TenantID:      tenantID,
			EntityType:    "purchase_request",
			EntityID:      pr.ID,
			Action:        auditentity.ActionUpdate,
			FieldName:     "lines",
			OldValue:      fmt.Sprintf("%s %s", removed.MaterialType, removed.Dimensions),
			NewValue:      "",
			ActorID:       actor.ID,
			ActorName:     actor.Name,
			CorrelationID: actor.CorrelationID,
		}).Error
	})
}

// QuoteLineRequest prices one PR line.
type QuoteLineRequest struct {
	PRLineID     string          `json:"pr_line_id" binding:"required"`
	UnitPrice    decimal.Decimal `json:"unit_price" binding:"required"`
	DeliveryDays *int            `json:"delivery_days"`
}

// AddQuoteRequest records a supplier's offer.
type AddQuoteRequest struct {
	SupplierID string             `json:"supplier_id" binding:"required"`
	ValidUntil *time.Time         `json:"valid_until"`
	Notes      string             `json:"notes"`
	Lines      []QuoteLineRequest `json:"lines"`
}

// AddQuote records a supplier's quote. Quotes are accepted while the
// request is sent or collecting; one quote per supplier.
func (s *PRService) AddQuote(ctx context.Context, tenantID, prID string, actor auditentity.Actor, req *AddQuoteRequest) (*entity.SupplierQuote, error) {
	var quote *entity.SupplierQuote

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pr, err := s.prRepo.LockByID(tx, tenantID, prID)
		if err != nil {
			return err
		}
		if pr.Status != entity.PRStatusSent && pr.Status != entity.PRStatusCollecting {
			return apperror.Validation("status", "quotes are only accepted on a sent or collecting request")
		}

		if _, err := s.prRepo.FindQuoteBySupplier(tx, pr.ID, req.SupplierID); err == nil {
			return &apperror.DuplicateIdentityError{Entity: "quote", Identity: req.SupplierID}
		} else if err != apperror.ErrNotFound {
			return err
		}

		lineByID := make(map[string]*entity.PRLine, len(pr.Lines))
		for i := range pr.Lines {
			lineByID[pr.Lines[i].ID] = &pr.Lines[i]
		}

		quote = &entity.SupplierQuote{
			ID:         uuid.New().String(),
			PRID:       pr.ID,
			SupplierID: req.SupplierID,
			ReceivedAt: time.Now(),
			ValidUntil: req.ValidUntil,
			Notes:      req.Notes,
		}
		for _, ql := range req.Lines {
			prLine, ok := lineByID[ql.PRLineID]
			if !ok {
				return apperror.Validation("pr_line_id", "line %s does not belong to this request", ql.PRLineID)
			}
			quote.Lines = append(quote.Lines, entity.QuoteLine{
				ID:           uuid.New().String(),
				QuoteID:      quote.ID,
				PRLineID:     ql.PRLineID,
				UnitPrice:    ql.UnitPrice,
				TotalPrice:   ql.UnitPrice.Mul(decimal.NewFromFloat(prLine.Quantity)),
				DeliveryDays: ql.DeliveryDays,
			})
		}
		if err := tx.Create(quote).Error; err != nil {
			return err
		}

		return tx.Create(&auditentity.AuditEntry{
			ID:            uuid.New().String(),
			TenantID:      tenantID,
			EntityType:    "purchase_request",
			EntityID:      pr.ID,
			Action:        auditentity.ActionUpdate,
			FieldName:     "quotes",
			OldValue:      "",
			NewValue:      fmt.Sprintf("+quote from %s", req.SupplierID),
			ActorID:       actor.ID,
			ActorName:     actor.Name,
			CorrelationID: actor.CorrelationID,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Quote recorded",
		zap.String("tenant_id", tenantID),
		zap.String("pr_id", prID),
		zap.String("supplier_id", req.SupplierID),
	)
	return quote, nil
}

// RemoveQuote withdraws a supplier's quote. The selected winner's quote
// cannot be removed; deselect first by choosing another winner.
func (s *PRService) RemoveQuote(ctx context.Context, tenantID, prID, quoteID string, actor auditentity.Actor) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pr, err := s.prRepo.LockByID(tx, tenantID, prID)
		if err != nil {
			return err
		}
		if pr.Status != entity.PRStatusSent && pr.Status != entity.PRStatusCollecting {
			return apperror.Validation("status", "quotes can only be withdrawn on a sent or collecting request")
		}

		var removed *entity.SupplierQuote
		for i := range pr.Quotes {
			if pr.Quotes[i].ID == quoteID {
				removed = &pr.Quotes[i]
				break
			}
		}
		if removed == nil {
			return apperror.ErrNotFound
		}
		if removed.IsSelected {
			return apperror.Validation("quote_id", "the selected winning quote cannot be removed")
		}

		if err := tx.Delete(&entity.QuoteLine{}, "quote_id = ?", quoteID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&entity.SupplierQuote{}, "id = ?", quoteID).Error; err != nil {
			return err
		}

		return tx.Create(&auditentity.AuditEntry{
			ID:            uuid.New().String(),
			TenantID:      tenantID,
			EntityType:    "purchase_request",
			EntityID:      pr.ID,
			Action:        auditentity.ActionUpdate,
			FieldName:     "quotes",
			OldValue:      fmt.Sprintf("quote from %s", removed.SupplierID),
			NewValue:      "",
			ActorID:       actor.ID,
			ActorName:     actor.Name,
			CorrelationID: actor.CorrelationID,
		}).Error
	})
}

func buildLine(prID string, sortOrder int, req *CreatePRLineRequest) (*entity.PRLine, error) {
	if req.MaterialType != entity.MaterialTypeProfile && req.MaterialType != entity.MaterialTypeSheet {
		return nil, apperror.Validation("material_type", "must be profile or sheet")
	}
	if req.Quantity <= 0 {
		return nil, apperror.Validation("quantity", "must be greater than zero")
	}
	unit := req.Unit
	if unit == "" {
		unit = "pcs"
	}
	return &entity.PRLine{
		ID:           uuid.New().String(),
		PRID:         prID,
		MaterialType: req.MaterialType,
		ProfileType:  req.ProfileType,
		Dimensions:   req.Dimensions,
		Grade:        req.Grade,
		Quantity:     req.Quantity,
		Unit:         unit,
		SortOrder:    sortOrder,
		Notes:        req.Notes,
	}, nil
}
