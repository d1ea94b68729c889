package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestStatus enum constants
const (
	RequestPending  = "PENDING"
	RequestApproved = "APPROVED"
	RequestRejected = "REJECTED"
)

// OrderRequest is a customer- or waiter-submitted order awaiting a staff
// decision. It transitions Pending -> Approved/Rejected exactly once and is
// never deleted; decided requests stay behind as the ordering audit trail.
type OrderRequest struct {
	ID           uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	TableID      uuid.UUID          `gorm:"type:uuid;not null;index" json:"table_id"`
	Table        *Table             `gorm:"foreignKey:TableID" json:"table,omitempty"`
	CustomerNote string             `gorm:"type:text" json:"customer_note"`
	Status       string             `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	DecidedBy    *uuid.UUID         `gorm:"type:uuid" json:"decided_by"` // approving/rejecting staff
	DecidedAt    *time.Time         `json:"decided_at"`
	Lines        []OrderRequestLine `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"lines"`
	CreatedAt    time.Time          `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func (r *OrderRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// OrderRequestLine is one requested product within an OrderRequest.
type OrderRequestLine struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID uuid.UUID `gorm:"type:uuid;not null;index" json:"request_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int       `gorm:"not null;check:quantity > 0" json:"quantity"`
	Note      string    `gorm:"type:text" json:"note"`
}

func (l *OrderRequestLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
