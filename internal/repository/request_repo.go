package repository

import (
	"context"

	"cafepos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RequestRepository interface {
	Create(ctx context.Context, req *model.OrderRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.OrderRequest, error)
	// FindByIDForDecision loads the request with its lines under a row lock so
	// the pending check and the decision write form one serialized unit.
	FindByIDForDecision(ctx context.Context, id uuid.UUID) (*model.OrderRequest, error)
	Update(ctx context.Context, req *model.OrderRequest) error
	List(ctx context.Context, status string, page, limit int) ([]model.OrderRequest, int64, error)
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.OrderRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.OrderRequest, error) {
	var req model.OrderRequest
	if err := GetDB(ctx, r.db).
		Preload("Lines").Preload("Lines.Product").Preload("Table").
		First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) FindByIDForDecision(ctx context.Context, id uuid.UUID) (*model.OrderRequest, error) {
	var req model.OrderRequest
	if err := forUpdate(GetDB(ctx, r.db)).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := GetDB(ctx, r.db).Preload("Product").
		Where("request_id = ?", id).Find(&req.Lines).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) Update(ctx context.Context, req *model.OrderRequest) error {
	return GetDB(ctx, r.db).Save(req).Error
}

func (r *requestRepository) List(ctx context.Context, status string, page, limit int) ([]model.OrderRequest, int64, error) {
	var requests []model.OrderRequest
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.OrderRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetchQuery := db.Preload("Lines").Preload("Lines.Product").Preload("Table")
	if status != "" {
		fetchQuery = fetchQuery.Where("status = ?", status)
	}
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(limit).Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}
