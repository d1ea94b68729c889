package database

import (
	"log"

	"cafepos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}

// Migrate creates/updates the core schema, including the partial unique
// index that enforces one open tab per table per service day.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Table{},
		&model.Product{},
		&model.OrderRequest{},
		&model.OrderRequestLine{},
		&model.Tab{},
		&model.LineEntry{},
		&model.PaymentEntry{},
		&model.AuditLog{},
	)
}
