package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petersonmatiss/mpm/internal/apperror"
	"github.com/petersonmatiss/mpm/internal/procurement/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PRRepository persists purchase requests with their lines and quotes.
type PRRepository struct {
	db *gorm.DB
}

func NewPRRepository(db *gorm.DB) *PRRepository {
	return &PRRepository{db: db}
}

// FindAll returns purchase requests for one tenant, filtered and paged.
func (r *PRRepository) FindAll(ctx context.Context, tenantID string, page, pageSize int, filters map[string]string) ([]entity.PurchaseRequest, int64, error) {
	var items []entity.PurchaseRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.PurchaseRequest{}).
		Where("tenant_id = ?", tenantID)

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("title ILIKE ? OR number ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	err := query.
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID loads one purchase request with lines and quotes.
func (r *PRRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.PurchaseRequest, error) {
	var pr entity.PurchaseRequest
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Quotes.Lines").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&pr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &pr, nil
}

// LockByID loads a purchase request inside tx with a FOR UPDATE row lock so
// concurrent transitions serialize.
func (r *PRRepository) LockByID(tx *gorm.DB, tenantID, id string) (*entity.PurchaseRequest, error) {
	var pr entity.PurchaseRequest
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&pr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	// Associations are loaded separately; the lock only needs the root row.
	if err := tx.Where("pr_id = ?", pr.ID).Order("sort_order ASC").Find(&pr.Lines).Error; err != nil {
		return nil, err
	}
	if err := tx.Preload("Lines").Where("pr_id = ?", pr.ID).Find(&pr.Quotes).Error; err != nil {
		return nil, err
	}
	return &pr, nil
}

// Create inserts a purchase request with its lines.
func (r *PRRepository) Create(ctx context.Context, pr *entity.PurchaseRequest) error {
	return r.db.WithContext(ctx).Create(pr).Error
}

// UpdateVersioned saves status fields guarded by the optimistic version
// token. A stale write returns ErrConflict.
func (r *PRRepository) UpdateVersioned(tx *gorm.DB, pr *entity.PurchaseRequest) error {
	currentVersion := pr.Version
	pr.Version++
	res := tx.Model(&entity.PurchaseRequest{}).
		Where("id = ? AND version = ?", pr.ID, currentVersion).
		Updates(map[string]interface{}{
			"status":             pr.Status,
			"winner_supplier_id": pr.WinnerSupplierID,
			"winner_quote_id":    pr.WinnerQuoteID,
			"cancel_reason":      pr.CancelReason,
			"sent_by":            pr.SentBy,
			"sent_at":            pr.SentAt,
			"completed_at":       pr.CompletedAt,
			"canceled_at":        pr.CanceledAt,
			"version":            pr.Version,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.ErrConflict
	}
	return nil
}

// FindQuoteBySupplier returns the supplier's quote on a request, if any.
func (r *PRRepository) FindQuoteBySupplier(tx *gorm.DB, prID, supplierID string) (*entity.SupplierQuote, error) {
	var quote entity.SupplierQuote
	err := tx.Where("pr_id = ? AND supplier_id = ?", prID, supplierID).
		First(&quote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &quote, nil
}

// FindLineByID returns one PR line.
func (r *PRRepository) FindLineByID(ctx context.Context, id string) (*entity.PRLine, error) {
	var line entity.PRLine
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &line, nil
}

// FindQuoteByID returns one quote with its lines.
func (r *PRRepository) FindQuoteByID(ctx context.Context, id string) (*entity.SupplierQuote, error) {
	var quote entity.SupplierQuote
	err := r.db.WithContext(ctx).Preload("Lines").Where("id = ?", id).First(&quote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &quote, nil
}

// GenerateNumber produces the next PR number, PR-{year}-{4 digits}, unique
// per tenant.
func (r *PRRepository) GenerateNumber(ctx context.Context, tenantID string) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("PR-%s-", year)

	var maxNumber string
	err := r.db.WithContext(ctx).
		Model(&entity.PurchaseRequest{}).
		Select("COALESCE(MAX(number), '')").
		Where("tenant_id = ? AND number LIKE ?", tenantID, prefix+"%").
		Scan(&maxNumber).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxNumber != "" {
		fmt.Sscanf(maxNumber, "PR-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("PR-%s-%04d", year, seq), nil
}
