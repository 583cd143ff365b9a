package entity

import "time"

// ProfileUsage is one immutable consumption event against a profile lot or
// a remnant. Exactly one of ProfileID / RemnantID is set. The row is
// written in the same transaction as the availability decrement and is
// never updated or deleted afterwards.
type ProfileUsage struct {
	ID       string  `json:"id" gorm:"primaryKey;size:36"`
	TenantID string  `json:"tenant_id" gorm:"size:36;not null;index"`
	ProfileID *string `json:"profile_id" gorm:"size:36;index"`
	RemnantID *string `json:"remnant_id" gorm:"size:36;index"`

	UsedLength  float64 `json:"used_length" gorm:"type:decimal(12,2);not null"` // mm per piece
	PiecesUsed  int     `json:"pieces_used" gorm:"not null"`
	TotalLength float64 `json:"total_length" gorm:"type:decimal(12,2);not null"` // UsedLength * PiecesUsed

	ProjectID   *string `json:"project_id" gorm:"size:36;index"`
	WorkOrderID *string `json:"work_order_id" gorm:"size:36"`
	// CreatedRemnantID points at the remnant spawned by this cut, if any.
	CreatedRemnantID *string `json:"created_remnant_id" gorm:"size:36"`

	UsedBy string    `json:"used_by" gorm:"size:100;not null"`
	UsedAt time.Time `json:"used_at"`
}

func (ProfileUsage) TableName() string {
	return "stock_profile_usages"
}

// SheetUsage is one immutable consumption event against a sheet.
type SheetUsage struct {
	ID       string `json:"id" gorm:"primaryKey;size:36"`
	TenantID string `json:"tenant_id" gorm:"size:36;not null;index"`
	SheetID  string `json:"sheet_id" gorm:"size:36;not null;index"`

	UsedArea   float64 `json:"used_area" gorm:"type:decimal(16,2);not null"` // mm²
	PiecesUsed int     `json:"pieces_used" gorm:"not null"`

	ProjectID   *string `json:"project_id" gorm:"size:36;index"`
	WorkOrderID *string `json:"work_order_id" gorm:"size:36"`

	UsedBy string    `json:"used_by" gorm:"size:100;not null"`
	UsedAt time.Time `json:"used_at"`
}

func (SheetUsage) TableName() string {
	return "stock_sheet_usages"
}
