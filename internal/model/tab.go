package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentMethod enum constants
const (
	PaymentMethodCash = "CASH"
	PaymentMethodCard = "CARD"
)

// ServiceDayFormat is the layout for Tab.ServiceDay values.
const ServiceDayFormat = "2006-01-02"

// Tab is the running account ("folyo") for one seating at one table. At most
// one open Tab may exist per table per service day; the partial unique index
// below backs that invariant at the store level. Total and Paid are the only
// accumulated figures, balance is always recomputed as Total - Paid.
type Tab struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TableID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uniq_open_tab_per_table,where:closed = false" json:"table_id"`
	Table       *Table          `gorm:"foreignKey:TableID" json:"table,omitempty"`
	ServiceDay  string          `gorm:"type:varchar(10);not null;uniqueIndex:uniq_open_tab_per_table,where:closed = false" json:"service_day"`
	OpenedAt    time.Time       `json:"opened_at"`
	LastOrderAt *time.Time      `json:"last_order_at"`
	Total       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total"`
	Paid        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"paid"`
	Closed      bool            `gorm:"not null;default:false;index" json:"closed"`
	Settled     bool            `gorm:"not null;default:false" json:"settled"`
	Description string          `gorm:"type:text" json:"description"`
	Lines       []LineEntry     `gorm:"foreignKey:TabID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
	Payments    []PaymentEntry  `gorm:"foreignKey:TabID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (t *Tab) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Balance reports the open amount, clamped at zero so a rounding residue from
// repeated partial payments still reads as fully settled.
func (t *Tab) Balance() decimal.Decimal {
	b := t.Total.Sub(t.Paid)
	if b.IsNegative() {
		return decimal.Zero
	}
	return b
}

// LineEntry is one priced, quantity-bearing item posted to a Tab ("folyo
// hareketi"). UnitPrice is snapshotted at posting time and immutable after.
// Cancelled lines are kept for audit but excluded from totals.
type LineEntry struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TabID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"tab_id"`
	Tab       *Tab            `gorm:"foreignKey:TabID" json:"-"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"line_total"` // unit_price * quantity
	Note      string          `gorm:"type:text" json:"note"`
	Cancelled bool            `gorm:"not null;default:false" json:"cancelled"`
	Closed    bool            `gorm:"not null;default:false" json:"closed"`
	CreatedAt time.Time       `gorm:"index" json:"created_at"`
}

func (l *LineEntry) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// PaymentEntry is one settlement transaction ("tahsilat") against a Tab.
type PaymentEntry struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TabID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"tab_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Method    string          `gorm:"type:varchar(20);not null" json:"method"` // CASH, CARD
	Currency  string          `gorm:"type:varchar(10);not null" json:"currency"`
	Cancelled bool            `gorm:"not null;default:false" json:"cancelled"`
	CreatedAt time.Time       `json:"created_at"`
}

func (p *PaymentEntry) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
