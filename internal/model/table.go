package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Table represents a physical table guests sit at. Code is the slug embedded
// in the table's QR link; guests order against it without authenticating.
type Table struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code      string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Label     string    `gorm:"type:varchar(100);not null" json:"label"`
	Area      string    `gorm:"type:varchar(100)" json:"area"` // salon / terrace / garden
	SortOrder int       `gorm:"default:9999" json:"sort_order"`
	Enabled   bool      `gorm:"default:true" json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Table) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
