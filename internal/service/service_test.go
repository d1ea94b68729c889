package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"cafepos/internal/database"
	"cafepos/internal/model"
	"cafepos/internal/repository"
	"cafepos/internal/station"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fixedClock pins the service day so tests never straddle midnight.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func (c fixedClock) ServiceDay() string { return c.now.Format(model.ServiceDayFormat) }

// memoryBus records published events for assertions.
type memoryBus struct {
	mu     sync.Mutex
	events []busEvent
}

type busEvent struct {
	Group string
	Event string
	Data  interface{}
}

func (b *memoryBus) Publish(group, event string, data interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, busEvent{Group: group, Event: event, Data: data})
}

func (b *memoryBus) byEvent(event string) []busEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []busEvent
	for _, e := range b.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	db    *gorm.DB
	clock fixedClock
	bus   *memoryBus

	requests RequestService
	approval ApprovalService
	tabs     TabService
	menu     MenuService
	audits   AuditService

	tabRepo     repository.TabRepository
	requestRepo repository.RequestRepository
	auditRepo   repository.AuditRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	clock := fixedClock{now: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	bus := &memoryBus{}

	requestRepo := repository.NewRequestRepository(db)
	tabRepo := repository.NewTabRepository(db)
	tableRepo := repository.NewTableRepository(db)
	productRepo := repository.NewProductRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	catalog := NewCatalog(productRepo)
	router := station.NewRouter(station.DefaultMapping())

	return &testEnv{
		db:          db,
		clock:       clock,
		bus:         bus,
		requests:    NewRequestService(requestRepo, tableRepo, auditRepo, catalog, txManager, clock, bus),
		approval:    NewApprovalService(requestRepo, tabRepo, tableRepo, auditRepo, catalog, txManager, router, clock, bus),
		tabs:        NewTabService(tabRepo, tableRepo, auditRepo, txManager, router, clock, bus, "TRY"),
		menu:        NewMenuService(productRepo),
		audits:      NewAuditService(auditRepo),
		tabRepo:     tabRepo,
		requestRepo: requestRepo,
		auditRepo:   auditRepo,
	}
}

func (e *testEnv) seedTable(t *testing.T, code, label string) *model.Table {
	t.Helper()
	table := &model.Table{Code: code, Label: label, Enabled: true}
	if err := e.db.Create(table).Error; err != nil {
		t.Fatalf("seed table: %v", err)
	}
	return table
}

func (e *testEnv) seedProduct(t *testing.T, sku, name, category, price string) *model.Product {
	t.Helper()
	product := &model.Product{
		SKU:      sku,
		Name:     name,
		Category: category,
		Price:    mustDecimal(t, price),
		Enabled:  true,
	}
	if err := e.db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

// seedPendingRequest creates a pending order request directly in the store.
func (e *testEnv) seedPendingRequest(t *testing.T, table *model.Table, lines ...model.OrderRequestLine) *model.OrderRequest {
	t.Helper()
	request := &model.OrderRequest{
		TableID: table.ID,
		Status:  model.RequestPending,
		Lines:   lines,
	}
	if err := e.db.Create(request).Error; err != nil {
		t.Fatalf("seed request: %v", err)
	}
	return request
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func assertDecimal(t *testing.T, got decimal.Decimal, want string, label string) {
	t.Helper()
	if !got.Equal(mustDecimal(t, want)) {
		t.Errorf("%s = %s, want %s", label, got.String(), want)
	}
}

func testCtx() context.Context {
	return context.Background()
}

var testStaffID = uuid.New().String()
