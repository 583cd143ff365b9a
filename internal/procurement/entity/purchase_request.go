package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseRequest solicits supplier quotes for a set of material lines and
// ends with a winning quote. Lifecycle: draft -> sent -> collecting ->
// completed, with cancel allowed from any non-terminal state.
type PurchaseRequest struct {
	ID       string `json:"id" gorm:"primaryKey;size:36"`
	TenantID string `json:"tenant_id" gorm:"size:36;not null;uniqueIndex:idx_pr_number;index"`
	// Number is the human-readable PR code, PR-{year}-{seq}, unique per tenant.
	Number string `json:"number" gorm:"size:20;not null;uniqueIndex:idx_pr_number"`
	Title  string `json:"title" gorm:"size:200;not null"`
	Status string `json:"status" gorm:"size:20;not null;default:draft"`

	WinnerSupplierID *string `json:"winner_supplier_id" gorm:"size:36"`
	WinnerQuoteID    *string `json:"winner_quote_id" gorm:"size:36"`
	CancelReason     string  `json:"cancel_reason" gorm:"type:text"`

	SentBy      *string    `json:"sent_by" gorm:"size:100"`
	SentAt      *time.Time `json:"sent_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CanceledAt  *time.Time `json:"canceled_at"`

	CreatedBy string `json:"created_by" gorm:"size:100"`
	// Version is the optimistic-concurrency token checked on every update.
	Version   int       `json:"version" gorm:"default:1"`
	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Lines  []PRLine        `json:"lines,omitempty" gorm:"foreignKey:PRID"`
	Quotes []SupplierQuote `json:"quotes,omitempty" gorm:"foreignKey:PRID"`
}

func (PurchaseRequest) TableName() string {
	return "proc_purchase_requests"
}

// PR statuses
const (
	PRStatusDraft      = "draft"
	PRStatusSent       = "sent"
	PRStatusCollecting = "collecting"
	PRStatusCompleted  = "completed"
	PRStatusCanceled   = "canceled"
)

// Transitions is the single source of truth for legal status changes.
// Completed and Canceled are terminal.
var Transitions = map[string][]string{
	PRStatusDraft:      {PRStatusSent, PRStatusCanceled},
	PRStatusSent:       {PRStatusCollecting, PRStatusCanceled},
	PRStatusCollecting: {PRStatusCompleted, PRStatusCanceled},
	PRStatusCompleted:  {},
	PRStatusCanceled:   {},
}

// CanTransition reports whether current -> target is in the table.
func CanTransition(current, target string) bool {
	for _, s := range Transitions[current] {
		if s == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func IsTerminal(status string) bool {
	return len(Transitions[status]) == 0
}

// PRLine is one requested material position: material type plus dimensions,
// priced by quote lines.
type PRLine struct {
	ID   string `json:"id" gorm:"primaryKey;size:36"`
	PRID string `json:"pr_id" gorm:"size:36;not null;index"`

	MaterialType string  `json:"material_type" gorm:"size:20;not null"` // profile/sheet
	ProfileType  string  `json:"profile_type" gorm:"size:50"`           // HEA200 etc., for profiles
	Dimensions   string  `json:"dimensions" gorm:"size:100"`            // 12000 / 3000x1500x10
	Grade        string  `json:"grade" gorm:"size:30"`
	Quantity     float64 `json:"quantity" gorm:"type:decimal(12,2);not null"`
	Unit         string  `json:"unit" gorm:"size:20;default:pcs"`

	SortOrder int       `json:"sort_order" gorm:"default:0"`
	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PRLine) TableName() string {
	return "proc_pr_lines"
}

// Line material types
const (
	MaterialTypeProfile = "profile"
	MaterialTypeSheet   = "sheet"
)

// SupplierQuote is one supplier's offer on a purchase request. IsSelected
// marks the winner; a selected quote cannot be removed.
type SupplierQuote struct {
	ID         string `json:"id" gorm:"primaryKey;size:36"`
	PRID       string `json:"pr_id" gorm:"size:36;not null;index"`
	SupplierID string `json:"supplier_id" gorm:"size:36;not null;index"`

	ReceivedAt time.Time  `json:"received_at"`
	ValidUntil *time.Time `json:"valid_until"`
	IsSelected bool       `json:"is_selected" gorm:"default:false"`

	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Lines []QuoteLine `json:"lines,omitempty" gorm:"foreignKey:QuoteID"`
}

func (SupplierQuote) TableName() string {
	return "proc_supplier_quotes"
}

// QuoteLine prices one PR line within a quote.
type QuoteLine struct {
	ID       string `json:"id" gorm:"primaryKey;size:36"`
	QuoteID  string `json:"quote_id" gorm:"size:36;not null;index"`
	PRLineID string `json:"pr_line_id" gorm:"size:36;not null;index"`

	UnitPrice    decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,4);not null"`
	TotalPrice   decimal.Decimal `json:"total_price" gorm:"type:decimal(15,2)"`
	DeliveryDays *int            `json:"delivery_days"`

	CreatedAt time.Time `json:"created_at"`
}

func (QuoteLine) TableName() string {
	return "proc_quote_lines"
}
