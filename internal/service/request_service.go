package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cafepos/internal/model"
	"cafepos/internal/repository"
	ws "cafepos/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type RequestLineDTO struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	Note      string `json:"note"`
}

type CreateRequestDTO struct {
	Note  string           `json:"note"`
	Lines []RequestLineDTO `json:"lines" binding:"required,min=1,dive"`
}

type RequestLineResponse struct {
	ProductID string          `json:"product_id"`
	Product   string          `json:"product"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"` // current list price, shown to staff before approval
	Note      string          `json:"note,omitempty"`
}

type RequestResponse struct {
	ID           string                `json:"id"`
	TableID      string                `json:"table_id"`
	Table        string                `json:"table"`
	Status       string                `json:"status"`
	CustomerNote string                `json:"customer_note,omitempty"`
	DecidedBy    *string               `json:"decided_by,omitempty"`
	DecidedAt    *string               `json:"decided_at,omitempty"`
	CreatedAt    string                `json:"created_at"`
	Lines        []RequestLineResponse `json:"lines"`
}

type RequestFilter struct {
	Status string // PENDING, APPROVED, REJECTED or empty for pending
	Page   int
	Limit  int
}

// --- Interface ---

// RequestService takes in order requests from the QR flow (anonymous guests,
// table resolved by its QR code) and from waiter devices, and lists them for
// the approval screen. Submissions only create a pending request; nothing is
// posted to a tab until staff approve.
type RequestService interface {
	CreateFromQR(ctx context.Context, tableCode string, req CreateRequestDTO) (RequestResponse, error)
	CreateFromStaff(ctx context.Context, tableID, staffID string, req CreateRequestDTO) (RequestResponse, error)
	List(ctx context.Context, filter RequestFilter) ([]RequestResponse, int64, error)
}

type requestService struct {
	requests  repository.RequestRepository
	tables    repository.TableRepository
	audits    repository.AuditRepository
	catalog   Catalog
	txManager repository.TransactionManager
	clock     Clock
	bus       EventPublisher
}

func NewRequestService(
	requests repository.RequestRepository,
	tables repository.TableRepository,
	audits repository.AuditRepository,
	catalog Catalog,
	txManager repository.TransactionManager,
	clock Clock,
	bus EventPublisher,
) RequestService {
	return &requestService{
		requests:  requests,
		tables:    tables,
		audits:    audits,
		catalog:   catalog,
		txManager: txManager,
		clock:     clock,
		bus:       bus,
	}
}

// --- Implementation ---

func (s *requestService) CreateFromQR(ctx context.Context, tableCode string, req CreateRequestDTO) (RequestResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, repository.StoreTimeout)
	defer cancel()

	table, err := s.tables.FindByCode(ctx, tableCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RequestResponse{}, ErrTableNotFound
		}
		return RequestResponse{}, storeErr(err)
	}
	return s.create(ctx, table, nil, req)
}

func (s *requestService) CreateFromStaff(ctx context.Context, tableID, staffID string, req CreateRequestDTO) (RequestResponse, error) {
	tblID, err := uuid.Parse(tableID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid table id: %w", err)
	}
	staff, err := uuid.Parse(staffID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid staff id: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, repository.StoreTimeout)
	defer cancel()

	table, err := s.tables.FindByID(ctx, tblID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RequestResponse{}, ErrTableNotFound
		}
		return RequestResponse{}, storeErr(err)
	}
	return s.create(ctx, table, &staff, req)
}

func (s *requestService) create(ctx context.Context, table *model.Table, staff *uuid.UUID, req CreateRequestDTO) (RequestResponse, error) {
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return RequestResponse{}, fmt.Errorf("line quantity must be positive")
		}
	}

	request := model.OrderRequest{
		TableID:      table.ID,
		CustomerNote: req.Note,
		Status:       model.RequestPending,
		Lines:        make([]model.OrderRequestLine, 0, len(req.Lines)),
	}
	lines := make([]RequestLineResponse, 0, len(req.Lines))

	for _, line := range req.Lines {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			return RequestResponse{}, fmt.Errorf("invalid product id %q: %w", line.ProductID, err)
		}
		item, err := s.catalog.Lookup(ctx, productID)
		if err != nil {
			return RequestResponse{}, classify(err)
		}
		request.Lines = append(request.Lines, model.OrderRequestLine{
			ProductID: productID,
			Quantity:  line.Quantity,
			Note:      line.Note,
		})
		lines = append(lines, RequestLineResponse{
			ProductID: productID.String(),
			Product:   item.Name,
			Quantity:  line.Quantity,
			Price:     item.Price,
			Note:      line.Note,
		})
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requests.Create(txCtx, &request); err != nil {
			return storeErr(err)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"table": table.Label,
			"lines": len(request.Lines),
		})
		audit := &model.AuditLog{
			StaffID:    staff,
			Action:     model.ActionCreateRequest,
			EntityID:   request.ID.String(),
			EntityName: table.Label,
			Details:    string(details),
		}
		if err := s.audits.Log(txCtx, audit); err != nil {
			return storeErr(err)
		}
		return nil
	})
	if err != nil {
		return RequestResponse{}, classify(err)
	}

	event := map[string]interface{}{
		"request_id": request.ID.String(),
		"table":      table.Label,
		"note":       req.Note,
		"lines":      lines,
	}
	s.bus.Publish(ws.GroupWaiters, EventRequestCreated, event)
	s.bus.Publish(ws.GroupDashboard, EventRequestCreated, event)

	return RequestResponse{
		ID:           request.ID.String(),
		TableID:      table.ID.String(),
		Table:        table.Label,
		Status:       request.Status,
		CustomerNote: request.CustomerNote,
		CreatedAt:    request.CreatedAt.Format(time.RFC3339),
		Lines:        lines,
	}, nil
}

func (s *requestService) List(ctx context.Context, filter RequestFilter) ([]RequestResponse, int64, error) {
	if filter.Status == "" {
		filter.Status = model.RequestPending
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	ctx, cancel := context.WithTimeout(ctx, repository.StoreTimeout)
	defer cancel()

	requests, total, err := s.requests.List(ctx, filter.Status, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, storeErr(err)
	}

	result := make([]RequestResponse, 0, len(requests))
	for _, request := range requests {
		result = append(result, toRequestResponse(request))
	}

	return result, total, nil
}

// --- Helpers ---

func toRequestResponse(r model.OrderRequest) RequestResponse {
	resp := RequestResponse{
		ID:           r.ID.String(),
		TableID:      r.TableID.String(),
		Status:       r.Status,
		CustomerNote: r.CustomerNote,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
		Lines:        make([]RequestLineResponse, 0, len(r.Lines)),
	}
	if r.Table != nil {
		resp.Table = r.Table.Label
	}
	if r.DecidedBy != nil {
		s := r.DecidedBy.String()
		resp.DecidedBy = &s
	}
	if r.DecidedAt != nil {
		s := r.DecidedAt.Format(time.RFC3339)
		resp.DecidedAt = &s
	}
	for _, line := range r.Lines {
		view := RequestLineResponse{
			ProductID: line.ProductID.String(),
			Quantity:  line.Quantity,
			Note:      line.Note,
		}
		if line.Product != nil {
			view.Product = line.Product.Name
			view.Price = line.Product.Price
		}
		resp.Lines = append(resp.Lines, view)
	}
	return resp
}
