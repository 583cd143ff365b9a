package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sheet is one received steel plate. AvailableArea tracks the remaining
// mm²; IsUsed flips when the sheet is exhausted.
type Sheet struct {
	ID       string `json:"id" gorm:"primaryKey;size:36"`
	TenantID string `json:"tenant_id" gorm:"size:36;not null;uniqueIndex:idx_sheet_code;index"`
	// SheetID is the human-readable plate code, unique per tenant.
	SheetID string `json:"sheet_id" gorm:"size:20;not null;uniqueIndex:idx_sheet_code"`
	Grade   string `json:"grade" gorm:"size:30;not null"`

	Length    float64 `json:"length" gorm:"type:decimal(12,2);not null"`    // mm
	Width     float64 `json:"width" gorm:"type:decimal(12,2);not null"`     // mm
	Thickness float64 `json:"thickness" gorm:"type:decimal(8,2);not null"`  // mm
	Weight    float64 `json:"weight" gorm:"type:decimal(12,3)"`             // kg
	// AvailableArea starts at Length*Width and decrements on use.
	AvailableArea float64 `json:"available_area" gorm:"type:decimal(16,2);not null"` // mm²

	HeatNumber        string          `json:"heat_number" gorm:"size:50"`
	CertificateNumber string          `json:"certificate_number" gorm:"size:50"`
	UnitPrice         decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,4)"`
	SupplierID        *string         `json:"supplier_id" gorm:"size:36"`
	ArrivalDate       *time.Time      `json:"arrival_date"`

	IsUsed     bool `json:"is_used" gorm:"default:false"`
	IsReserved bool `json:"is_reserved" gorm:"default:false"`
	Active     bool `json:"active" gorm:"default:true"`
	Version    int  `json:"version" gorm:"default:1"`

	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Usages []SheetUsage `json:"usages,omitempty" gorm:"foreignKey:SheetID"`
}

func (Sheet) TableName() string {
	return "stock_sheets"
}
