package entity

import (
	"time"

	"gorm.io/gorm"
)

// AuditEntry records one mutating operation: the field that changed with
// its old and new values, who did it, when, and why. Rows are append-only;
// there is no update or delete API.
type AuditEntry struct {
	ID       string `json:"id" gorm:"primaryKey;size:36"`
	TenantID string `json:"tenant_id" gorm:"size:36;not null;index"`

	EntityType string `json:"entity_type" gorm:"size:50;not null;index:idx_audit_entity"`
	EntityID   string `json:"entity_id" gorm:"size:36;not null;index:idx_audit_entity"`
	Action     string `json:"action" gorm:"size:50;not null"`

	FieldName string `json:"field_name" gorm:"size:50"`
	OldValue  string `json:"old_value" gorm:"size:500"`
	NewValue  string `json:"new_value" gorm:"size:500"`

	ActorID   string `json:"actor_id" gorm:"size:36;not null;index"`
	ActorName string `json:"actor_name" gorm:"size:100"`
	Reason    string `json:"reason" gorm:"type:text"`
	// CorrelationID ties entries to the originating request id.
	CorrelationID string `json:"correlation_id" gorm:"size:36"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (AuditEntry) TableName() string {
	return "audit_entries"
}

// Common audit actions.
const (
	ActionCreate       = "create"
	ActionUpdate       = "update"
	ActionDelete       = "delete"
	ActionStatusChange = "status_change"
	ActionSelectWinner = "select_winner"
	ActionConsume      = "consume"
	ActionReserve      = "reserve"
	ActionUnreserve    = "unreserve"
)

// Actor identifies who performs a mutating operation. CorrelationID is the
// request id assigned by the HTTP layer.
type Actor struct {
	ID            string
	Name          string
	CorrelationID string
}

// AutoMigrate creates the audit table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&AuditEntry{})
}
