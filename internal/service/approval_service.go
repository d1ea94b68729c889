package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cafepos/internal/model"
	"cafepos/internal/repository"
	"cafepos/internal/station"
	ws "cafepos/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ApproveResult reports the tab an approval posted to and the amount the
// approval added to it.
type ApproveResult struct {
	TabID  string          `json:"tab_id"`
	Amount decimal.Decimal `json:"amount"`
}

// ApprovalService decides pending order requests. Approval atomically
// materializes the request into the table's open tab; rejection only marks
// the request. Either way a request is decided exactly once.
type ApprovalService interface {
	Approve(ctx context.Context, requestID, staffID string) (ApproveResult, error)
	Reject(ctx context.Context, requestID, staffID string) error
}

type approvalService struct {
	requests  repository.RequestRepository
	tabs      repository.TabRepository
	tables    repository.TableRepository
	audits    repository.AuditRepository
	catalog   Catalog
	txManager repository.TransactionManager
	router    *station.Router
	clock     Clock
	bus       EventPublisher
}

func NewApprovalService(
	requests repository.RequestRepository,
	tabs repository.TabRepository,
	tables repository.TableRepository,
	audits repository.AuditRepository,
	catalog Catalog,
	txManager repository.TransactionManager,
	router *station.Router,
	clock Clock,
	bus EventPublisher,
) ApprovalService {
	return &approvalService{
		requests:  requests,
		tabs:      tabs,
		tables:    tables,
		audits:    audits,
		catalog:   catalog,
		txManager: txManager,
		router:    router,
		clock:     clock,
		bus:       bus,
	}
}

func (s *approvalService) Approve(ctx context.Context, requestID, staffID string) (ApproveResult, error) {
	reqID, err := uuid.Parse(requestID)
	if err != nil {
		return ApproveResult{}, fmt.Errorf("invalid request id: %w", err)
	}
	staff, err := uuid.Parse(staffID)
	if err != nil {
		return ApproveResult{}, fmt.Errorf("invalid staff id: %w", err)
	}

	var (
		tab         *model.Tab
		incremental decimal.Decimal
		routed      []station.Line
		tableLabel  string
	)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, err := s.requests.FindByIDForDecision(txCtx, reqID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return storeErr(err)
		}
		if request.Status != model.RequestPending {
			return ErrAlreadyDecided
		}

		table, err := s.tables.FindByID(txCtx, request.TableID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTableNotFound
			}
			return storeErr(err)
		}
		tableLabel = table.Label

		now := s.clock.Now()
		request.Status = model.RequestApproved
		request.DecidedBy = &staff
		request.DecidedAt = &now
		if err := s.requests.Update(txCtx, request); err != nil {
			return storeErr(err)
		}

		tab, err = s.tabs.FindOrCreateOpen(txCtx, &model.Tab{
			TableID:     request.TableID,
			ServiceDay:  s.clock.ServiceDay(),
			OpenedAt:    now,
			Total:       decimal.Zero,
			Paid:        decimal.Zero,
			Description: "order request " + request.ID.String(),
		})
		if err != nil {
			return storeErr(err)
		}

		incremental = decimal.Zero
		routed = routed[:0]
		for _, line := range request.Lines {
			item, err := s.catalog.Lookup(txCtx, line.ProductID)
			if err != nil {
				return err
			}
			lineTotal := item.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			entry := &model.LineEntry{
				TabID:     tab.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: item.Price,
				LineTotal: lineTotal,
				Note:      line.Note,
			}
			if err := s.tabs.CreateLine(txCtx, entry); err != nil {
				return storeErr(err)
			}
			incremental = incremental.Add(lineTotal)
			routed = append(routed, station.Line{
				Category: item.Category,
				Product:  item.Name,
				Quantity: line.Quantity,
				Note:     line.Note,
			})
		}

		tab.Total = tab.Total.Add(incremental)
		tab.LastOrderAt = &now
		if err := s.tabs.Update(txCtx, tab); err != nil {
			return storeErr(err)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"request_id": request.ID.String(),
			"tab_id":     tab.ID.String(),
			"amount":     incremental.StringFixed(2),
		})
		audit := &model.AuditLog{
			StaffID:    &staff,
			Action:     model.ActionApproveRequest,
			EntityID:   request.ID.String(),
			EntityName: tableLabel,
			Details:    string(details),
		}
		if err := s.audits.Log(txCtx, audit); err != nil {
			return storeErr(err)
		}

		return nil
	})
	if err != nil {
		return ApproveResult{}, classify(err)
	}

	// Fan-out happens strictly after commit; a dead station screen must never
	// undo a posted ledger mutation.
	for target, payload := range s.router.Group(tableLabel, routed) {
		s.bus.Publish(string(target), EventOrderConfirmed, payload)
	}
	s.bus.Publish(ws.GroupDashboard, EventOrderConfirmedSummary, map[string]interface{}{
		"tab_id": tab.ID.String(),
		"amount": incremental,
	})

	return ApproveResult{TabID: tab.ID.String(), Amount: incremental}, nil
}

func (s *approvalService) Reject(ctx context.Context, requestID, staffID string) error {
	reqID, err := uuid.Parse(requestID)
	if err != nil {
		return fmt.Errorf("invalid request id: %w", err)
	}
	staff, err := uuid.Parse(staffID)
	if err != nil {
		return fmt.Errorf("invalid staff id: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, err := s.requests.FindByIDForDecision(txCtx, reqID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return storeErr(err)
		}
		if request.Status != model.RequestPending {
			return ErrAlreadyDecided
		}

		now := s.clock.Now()
		request.Status = model.RequestRejected
		request.DecidedBy = &staff
		request.DecidedAt = &now
		if err := s.requests.Update(txCtx, request); err != nil {
			return storeErr(err)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"request_id": request.ID.String(),
		})
		audit := &model.AuditLog{
			StaffID:  &staff,
			Action:   model.ActionRejectRequest,
			EntityID: request.ID.String(),
			Details:  string(details),
		}
		if err := s.audits.Log(txCtx, audit); err != nil {
			return storeErr(err)
		}

		return nil
	})
	if err != nil {
		return classify(err)
	}

	s.bus.Publish(ws.GroupDashboard, EventRequestRejected, map[string]interface{}{
		"request_id": reqID.String(),
	})

	return nil
}
