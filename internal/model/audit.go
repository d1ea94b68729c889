package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateRequest  = "CREATE_ORDER_REQUEST"
	ActionApproveRequest = "APPROVE_ORDER_REQUEST"
	ActionRejectRequest  = "REJECT_ORDER_REQUEST"
	ActionRecordPayment  = "RECORD_PAYMENT"
	ActionCloseTab       = "CLOSE_TAB"
	ActionCompleteLine   = "COMPLETE_ORDER_LINE"
	ActionCancelLine     = "CANCEL_ORDER_LINE"
)

// AuditLog tracks Who, What, and When for every ledger mutation
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StaffID    *uuid.UUID `gorm:"type:uuid;index" json:"staff_id"` // nil for unauthenticated QR submissions
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"` // serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
