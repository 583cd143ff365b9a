package entity

import "time"

// MaterialReservation is a soft hold of length against a profile lot for a
// project or work order. The lot's IsReserved flag is recomputed from the
// sum of its reservations on every Reserve/Unreserve.
type MaterialReservation struct {
	ID        string `json:"id" gorm:"primaryKey;size:36"`
	TenantID  string `json:"tenant_id" gorm:"size:36;not null;index"`
	ProfileID string `json:"profile_id" gorm:"size:36;not null;index"`

	ReservedLength float64 `json:"reserved_length" gorm:"type:decimal(12,2);not null"` // mm

	ProjectID   *string `json:"project_id" gorm:"size:36;index"`
	WorkOrderID *string `json:"work_order_id" gorm:"size:36"`

	CreatedBy string    `json:"created_by" gorm:"size:100"`
	CreatedAt time.Time `json:"created_at"`
}

func (MaterialReservation) TableName() string {
	return "stock_material_reservations"
}
