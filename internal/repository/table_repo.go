package repository

import (
	"context"

	"cafepos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TableRepository interface {
	Create(ctx context.Context, table *model.Table) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Table, error)
	FindByCode(ctx context.Context, code string) (*model.Table, error)
	ListEnabled(ctx context.Context) ([]model.Table, error)
}

type tableRepository struct {
	db *gorm.DB
}

func NewTableRepository(db *gorm.DB) TableRepository {
	return &tableRepository{db: db}
}

func (r *tableRepository) Create(ctx context.Context, table *model.Table) error {
	return GetDB(ctx, r.db).Create(table).Error
}

func (r *tableRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Table, error) {
	var table model.Table
	if err := GetDB(ctx, r.db).First(&table, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

func (r *tableRepository) FindByCode(ctx context.Context, code string) (*model.Table, error) {
	var table model.Table
	if err := GetDB(ctx, r.db).Where("code = ?", code).First(&table).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

func (r *tableRepository) ListEnabled(ctx context.Context) ([]model.Table, error) {
	var tables []model.Table
	err := GetDB(ctx, r.db).
		Where("enabled = ?", true).
		Order("sort_order ASC, label ASC").
		Find(&tables).Error
	if err != nil {
		return nil, err
	}
	return tables, nil
}
