package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cafepos/internal/model"
	"cafepos/internal/repository"
	"cafepos/internal/station"
	ws "cafepos/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type PaymentResult struct {
	Paid       decimal.Decimal `json:"paid"`
	Balance    decimal.Decimal `json:"balance"`
	AutoClosed bool            `json:"auto_closed"`
}

type TabLineView struct {
	ID        string          `json:"id"`
	Product   string          `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	Note      string          `json:"note,omitempty"`
	Closed    bool            `json:"closed"`
	CreatedAt time.Time       `json:"created_at"`
}

type TabPaymentView struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
}

// TabSnapshot is the live "adisyon" view of a table's open account.
type TabSnapshot struct {
	TabID       string           `json:"tab_id"`
	Table       string           `json:"table"`
	Total       decimal.Decimal  `json:"total"`
	Paid        decimal.Decimal  `json:"paid"`
	Balance     decimal.Decimal  `json:"balance"`
	OpenedAt    time.Time        `json:"opened_at"`
	Description string           `json:"description,omitempty"`
	Lines       []TabLineView    `json:"lines"`
	Payments    []TabPaymentView `json:"payments"`
}

// TableStatus is one row of the floor overview: whether the table has an
// open tab today and for how much.
type TableStatus struct {
	ID       string          `json:"id"`
	Code     string          `json:"code"`
	Label    string          `json:"label"`
	Area     string          `json:"area,omitempty"`
	Occupied bool            `json:"occupied"`
	Amount   decimal.Decimal `json:"amount"`
}

// QueueItem is one still-open line on a station screen.
type QueueItem struct {
	ID        string    `json:"id"`
	Product   string    `json:"product"`
	Quantity  int       `json:"quantity"`
	Note      string    `json:"note,omitempty"`
	Table     string    `json:"table"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Interface ---

// TabService is the settlement engine plus the read surface over tabs:
// partial/full payments, the close-out transition and the floor/station
// views driven by the same ledger.
type TabService interface {
	GetOpenTab(ctx context.Context, tableID string) (*TabSnapshot, error)
	ApplyPayment(ctx context.Context, tableID string, amount decimal.Decimal, method, staffID string) (PaymentResult, error)
	CloseTab(ctx context.Context, tableID, staffID string) error
	// CompleteLine marks a posted line prepared, taking it off its station
	// queue. Completing an already-completed line is a no-op.
	CompleteLine(ctx context.Context, lineID, staffID string) error
	// CancelLine voids a posted line and removes its amount from the tab
	// total. Cancelled lines stay behind for audit.
	CancelLine(ctx context.Context, lineID, staffID string) error
	ListTables(ctx context.Context) ([]TableStatus, error)
	StationQueue(ctx context.Context, target station.Station) ([]QueueItem, error)
}

type tabService struct {
	tabs      repository.TabRepository
	tables    repository.TableRepository
	audits    repository.AuditRepository
	txManager repository.TransactionManager
	router    *station.Router
	clock     Clock
	bus       EventPublisher
	currency  string
}

func NewTabService(
	tabs repository.TabRepository,
	tables repository.TableRepository,
	audits repository.AuditRepository,
	txManager repository.TransactionManager,
	router *station.Router,
	clock Clock,
	bus EventPublisher,
	currency string,
) TabService {
	return &tabService{
		tabs:      tabs,
		tables:    tables,
		audits:    audits,
		txManager: txManager,
		router:    router,
		clock:     clock,
		bus:       bus,
		currency:  currency,
	}
}

// --- Implementation ---

func (s *tabService) GetOpenTab(ctx context.Context, tableID string) (*TabSnapshot, error) {
	tblID, err := uuid.Parse(tableID)
	if err != nil {
		return nil, fmt.Errorf("invalid table id: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, repository.StoreTimeout)
	defer cancel()

	open, err := s.tabs.FindOpen(ctx, tblID, s.clock.ServiceDay())
	if err != nil {
		return nil, storeErr(err)
	}
	if open == nil {
		return nil, nil
	}

	tab, err := s.tabs.FindByIDWithDetail(ctx, open.ID)
	if err != nil {
		return nil, storeErr(err)
	}

	snapshot := &TabSnapshot{
		TabID:       tab.ID.String(),
		Total:       tab.Total,
		Paid:        tab.Paid,
		Balance:     tab.Balance(),
		OpenedAt:    tab.OpenedAt,
		Description: tab.Description,
		Lines:       make([]TabLineView, 0, len(tab.Lines)),
		Payments:    make([]TabPaymentView, 0, len(tab.Payments)),
	}
	if tab.Table != nil {
		snapshot.Table = tab.Table.Label
	}
	for _, line := range tab.Lines {
		if line.Cancelled {
			continue
		}
		view := TabLineView{
			ID:        line.ID.String(),
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal,
			Note:      line.Note,
			Closed:    line.Closed,
			CreatedAt: line.CreatedAt,
		}
		if line.Product != nil {
			view.Product = line.Product.Name
		}
		snapshot.Lines = append(snapshot.Lines, view)
	}
	for _, payment := range tab.Payments {
		if payment.Cancelled {
			continue
		}
		snapshot.Payments = append(snapshot.Payments, TabPaymentView{
			ID:        payment.ID.String(),
			Amount:    payment.Amount,
			Method:    payment.Method,
			Currency:  payment.Currency,
			CreatedAt: payment.CreatedAt,
		})
	}

	return snapshot, nil
}

func (s *tabService) ApplyPayment(ctx context.Context, tableID string, amount decimal.Decimal, method, staffID string) (PaymentResult, error) {
	tblID, err := uuid.Parse(tableID)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("invalid table id: %w", err)
	}
	if !amount.IsPositive() {
		return PaymentResult{}, ErrInvalidAmount
	}
	switch method {
	case "":
		method = model.PaymentMethodCash
	case model.PaymentMethodCash, model.PaymentMethodCard:
	default:
		return PaymentResult{}, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}

	var (
		result PaymentResult
		tabID  uuid.UUID
	)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		tab, err := s.tabs.FindOpenForUpdate(txCtx, tblID, s.clock.ServiceDay())
		if err != nil {
			return storeErr(err)
		}
		if tab == nil {
			return ErrNoOpenTab
		}

		balance := tab.Balance()
		if amount.GreaterThan(balance) {
			return &OverpaymentError{Balance: balance}
		}

		payment := &model.PaymentEntry{
			TabID:    tab.ID,
			Amount:   amount,
			Method:   method,
			Currency: s.currency,
		}
		if err := s.tabs.CreatePayment(txCtx, payment); err != nil {
			return storeErr(err)
		}

		tab.Paid = tab.Paid.Add(amount)
		newBalance := tab.Total.Sub(tab.Paid)
		autoClosed := false
		// <= absorbs any rounding residue from repeated partial payments,
		// then the reported balance is clamped to zero.
		if newBalance.LessThanOrEqual(decimal.Zero) {
			tab.Closed = true
			tab.Settled = true
			if err := s.tabs.CloseLines(txCtx, tab.ID); err != nil {
				return storeErr(err)
			}
			newBalance = decimal.Zero
			autoClosed = true
		}
		if err := s.tabs.Update(txCtx, tab); err != nil {
			return storeErr(err)
		}

		if err := s.logTabAction(txCtx, model.ActionRecordPayment, tab, staffID, map[string]interface{}{
			"amount":      amount.StringFixed(2),
			"method":      method,
			"auto_closed": autoClosed,
		}); err != nil {
			return storeErr(err)
		}

		tabID = tab.ID
		result = PaymentResult{Paid: tab.Paid, Balance: newBalance, AutoClosed: autoClosed}
		return nil
	})
	if err != nil {
		return PaymentResult{}, classify(err)
	}

	s.bus.Publish(ws.GroupDashboard, EventPaymentRecorded, map[string]interface{}{
		"tab_id":      tabID.String(),
		"paid":        result.Paid,
		"balance":     result.Balance,
		"auto_closed": result.AutoClosed,
	})

	return result, nil
}

func (s *tabService) CloseTab(ctx context.Context, tableID, staffID string) error {
	tblID, err := uuid.Parse(tableID)
	if err != nil {
		return fmt.Errorf("invalid table id: %w", err)
	}

	var tabID uuid.UUID

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		tab, err := s.tabs.FindOpenForUpdate(txCtx, tblID, s.clock.ServiceDay())
		if err != nil {
			return storeErr(err)
		}
		if tab == nil {
			return ErrNoOpenTab
		}

		if balance := tab.Balance(); balance.IsPositive() {
			return &BalanceNotZeroError{Balance: balance}
		}

		tab.Closed = true
		tab.Settled = true
		if err := s.tabs.CloseLines(txCtx, tab.ID); err != nil {
			return storeErr(err)
		}
		if err := s.tabs.Update(txCtx, tab); err != nil {
			return storeErr(err)
		}

		if err := s.logTabAction(txCtx, model.ActionCloseTab, tab, staffID, map[string]interface{}{
			"total": tab.Total.StringFixed(2),
			"paid":  tab.Paid.StringFixed(2),
		}); err != nil {
			return storeErr(err)
		}

		tabID = tab.ID
		return nil
	})
	if err != nil {
		return classify(err)
	}

	s.bus.Publish(ws.GroupDashboard, EventTabClosed, map[string]interface{}{
		"tab_id": tabID.String(),
	})

	return nil
}

func (s *tabService) CompleteLine(ctx context.Context, lineID, staffID string) error {
	id, err := uuid.Parse(lineID)
	if err != nil {
		return fmt.Errorf("invalid line id: %w", err)
	}

	var (
		completed model.LineEntry
		target    station.Station
		already   bool
	)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		line, err := s.tabs.FindLineForUpdate(txCtx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLineNotFound
			}
			return storeErr(err)
		}
		if line.Cancelled {
			return ErrLineCancelled
		}
		if line.Closed {
			already = true
			return nil
		}

		line.Closed = true
		if err := s.tabs.UpdateLine(txCtx, line); err != nil {
			return storeErr(err)
		}

		if err := s.logLineAction(txCtx, model.ActionCompleteLine, line, staffID); err != nil {
			return storeErr(err)
		}

		completed = *line
		if line.Product != nil {
			target = s.router.Resolve(line.Product.Category)
		} else {
			target = s.router.Resolve("")
		}
		return nil
	})
	if err != nil {
		return classify(err)
	}
	if already {
		return nil
	}

	event := map[string]interface{}{
		"line_id": completed.ID.String(),
		"tab_id":  completed.TabID.String(),
	}
	if completed.Product != nil {
		event["product"] = completed.Product.Name
	}
	s.bus.Publish(string(target), EventLineCompleted, event)
	s.bus.Publish(ws.GroupDashboard, EventLineCompleted, event)

	return nil
}

func (s *tabService) CancelLine(ctx context.Context, lineID, staffID string) error {
	id, err := uuid.Parse(lineID)
	if err != nil {
		return fmt.Errorf("invalid line id: %w", err)
	}

	var tabID uuid.UUID

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		line, err := s.tabs.FindLineForUpdate(txCtx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLineNotFound
			}
			return storeErr(err)
		}
		if line.Cancelled {
			return ErrLineCancelled
		}

		tab, err := s.tabs.FindByIDForUpdate(txCtx, line.TabID)
		if err != nil {
			return storeErr(err)
		}
		if tab.Closed {
			return ErrNoOpenTab
		}

		line.Cancelled = true
		if err := s.tabs.UpdateLine(txCtx, line); err != nil {
			return storeErr(err)
		}

		tab.Total = tab.Total.Sub(line.LineTotal)
		if tab.Total.IsNegative() {
			tab.Total = decimal.Zero
		}
		if err := s.tabs.Update(txCtx, tab); err != nil {
			return storeErr(err)
		}

		if err := s.logLineAction(txCtx, model.ActionCancelLine, line, staffID); err != nil {
			return storeErr(err)
		}

		tabID = tab.ID
		return nil
	})
	if err != nil {
		return classify(err)
	}

	s.bus.Publish(ws.GroupDashboard, EventLineCancelled, map[string]interface{}{
		"line_id": id.String(),
		"tab_id":  tabID.String(),
	})

	return nil
}

func (s *tabService) ListTables(ctx context.Context) ([]TableStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, repository.StoreTimeout)
	defer cancel()

	tables, err := s.tables.ListEnabled(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	open, err := s.tabs.ListOpenByDay(ctx, s.clock.ServiceDay())
	if err != nil {
		return nil, storeErr(err)
	}

	openByTable := make(map[uuid.UUID]*model.Tab, len(open))
	for i := range open {
		openByTable[open[i].TableID] = &open[i]
	}

	statuses := make([]TableStatus, 0, len(tables))
	for _, table := range tables {
		status := TableStatus{
			ID:     table.ID.String(),
			Code:   table.Code,
			Label:  table.Label,
			Area:   table.Area,
			Amount: decimal.Zero,
		}
		if tab, ok := openByTable[table.ID]; ok {
			status.Occupied = true
			status.Amount = tab.Total
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}

func (s *tabService) StationQueue(ctx context.Context, target station.Station) ([]QueueItem, error) {
	ctx, cancel := context.WithTimeout(ctx, repository.StoreTimeout)
	defer cancel()

	lines, err := s.tabs.OpenLinesByDay(ctx, s.clock.ServiceDay())
	if err != nil {
		return nil, storeErr(err)
	}

	queue := make([]QueueItem, 0, len(lines))
	for _, line := range lines {
		category := ""
		if line.Product != nil {
			category = line.Product.Category
		}
		if s.router.Resolve(category) != target {
			continue
		}
		item := QueueItem{
			ID:        line.ID.String(),
			Quantity:  line.Quantity,
			Note:      line.Note,
			CreatedAt: line.CreatedAt,
		}
		if line.Product != nil {
			item.Product = line.Product.Name
		}
		if line.Tab != nil && line.Tab.Table != nil {
			item.Table = line.Tab.Table.Label
		}
		queue = append(queue, item)
	}

	return queue, nil
}

func (s *tabService) logLineAction(ctx context.Context, action string, line *model.LineEntry, staffID string) error {
	var staff *uuid.UUID
	if parsed, err := uuid.Parse(staffID); err == nil {
		staff = &parsed
	}
	details, _ := json.Marshal(map[string]interface{}{
		"tab_id": line.TabID.String(),
		"amount": line.LineTotal.StringFixed(2),
	})
	return s.audits.Log(ctx, &model.AuditLog{
		StaffID:  staff,
		Action:   action,
		EntityID: line.ID.String(),
		Details:  string(details),
	})
}

func (s *tabService) logTabAction(ctx context.Context, action string, tab *model.Tab, staffID string, payload map[string]interface{}) error {
	var staff *uuid.UUID
	if parsed, err := uuid.Parse(staffID); err == nil {
		staff = &parsed
	}
	details, _ := json.Marshal(payload)
	return s.audits.Log(ctx, &model.AuditLog{
		StaffID:  staff,
		Action:   action,
		EntityID: tab.ID.String(),
		Details:  string(details),
	})
}
