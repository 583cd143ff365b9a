package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Profile is one received bar lot of a rolled profile. AvailableLength is
// the remaining millimetres of the lot; it is decremented only by the
// consumption engine and never exceeds Length or drops below zero.
type Profile struct {
	ID       string `json:"id" gorm:"primaryKey;size:36"`
	TenantID string `json:"tenant_id" gorm:"size:36;not null;uniqueIndex:idx_profile_lot;index"`
	// LotID is the human-readable lot code, one uppercase letter followed
	// by digits (A15, Z999). Unique per tenant.
	LotID       string `json:"lot_id" gorm:"size:10;not null;uniqueIndex:idx_profile_lot"`
	ProfileType string `json:"profile_type" gorm:"size:50;not null"` // HEA200, SHS100x5, ...
	Grade       string `json:"grade" gorm:"size:30;not null"`        // S355J2, S235JR, ...

	Length          float64 `json:"length" gorm:"type:decimal(12,2);not null"` // original mm
	AvailableLength float64 `json:"available_length" gorm:"type:decimal(12,2);not null"`
	Weight          float64 `json:"weight" gorm:"type:decimal(12,3)"` // kg

	HeatNumber        string          `json:"heat_number" gorm:"size:50"`
	CertificateNumber string          `json:"certificate_number" gorm:"size:50"`
	UnitPrice         decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,4)"`
	SupplierID        *string         `json:"supplier_id" gorm:"size:36"`
	ArrivalDate       *time.Time      `json:"arrival_date"`

	IsReserved bool `json:"is_reserved" gorm:"default:false"`
	Active     bool `json:"active" gorm:"default:true"`
	// Version is the optimistic-concurrency token; stale updates fail.
	Version int `json:"version" gorm:"default:1"`

	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Remnants []ProfileRemnant `json:"remnants,omitempty" gorm:"foreignKey:ProfileID"`
	Usages   []ProfileUsage   `json:"usages,omitempty" gorm:"foreignKey:ProfileID"`
}

func (Profile) TableName() string {
	return "stock_profiles"
}

// ProfileRemnant is a usable leftover spawned by a consumption event.
// Weight is proportional to the parent: parent.Weight * Length / parent.Length.
type ProfileRemnant struct {
	ID        string  `json:"id" gorm:"primaryKey;size:36"`
	TenantID  string  `json:"tenant_id" gorm:"size:36;not null;index"`
	ProfileID string  `json:"profile_id" gorm:"size:36;not null;index"`
	Length    float64 `json:"length" gorm:"type:decimal(12,2);not null"` // mm
	Weight    float64 `json:"weight" gorm:"type:decimal(12,3)"`          // kg
	IsUsable  bool    `json:"is_usable" gorm:"default:true"`
	IsUsed    bool    `json:"is_used" gorm:"default:false"`
	// Version guards concurrent remnant consumption.
	Version   int       `json:"version" gorm:"default:1"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProfileRemnant) TableName() string {
	return "stock_profile_remnants"
}
