package service

import (
	"context"
	"errors"
	"testing"

	"cafepos/internal/model"
	"cafepos/internal/station"
	ws "cafepos/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// openTabWith seeds a table, a product and an approved request so the table
// carries an open tab with the given total.
func openTabWith(t *testing.T, env *testEnv, total string) *model.Table {
	t.Helper()
	table := env.seedTable(t, "T1", "Table 1")
	product := env.seedProduct(t, "ITEM-1", "Mixed Grill", "grill", total)
	request := env.seedPendingRequest(t, table,
		model.OrderRequestLine{ProductID: product.ID, Quantity: 1},
	)
	if _, err := env.approval.Approve(testCtx(), request.ID.String(), testStaffID); err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}
	return table
}

func TestPartialThenFinalPayment(t *testing.T) {
	env := newTestEnv(t)
	table := openTabWith(t, env, "150.00")

	partial, err := env.tabs.ApplyPayment(testCtx(), table.ID.String(), mustDecimal(t, "50.00"), model.PaymentMethodCash, testStaffID)
	if err != nil {
		t.Fatalf("partial payment returned error: %v", err)
	}
	assertDecimal(t, partial.Paid, "50.00", "paid after partial")
	assertDecimal(t, partial.Balance, "100.00", "balance after partial")
	if partial.AutoClosed {
		t.Errorf("partial payment must not auto-close the tab")
	}

	final, err := env.tabs.ApplyPayment(testCtx(), table.ID.String(), mustDecimal(t, "100.00"), model.PaymentMethodCard, testStaffID)
	if err != nil {
		t.Fatalf("final payment returned error: %v", err)
	}
	assertDecimal(t, final.Paid, "150.00", "paid after settlement")
	assertDecimal(t, final.Balance, "0.00", "balance after settlement")
	if !final.AutoClosed {
		t.Errorf("settling payment should auto-close the tab")
	}

	// Settled tab no longer shows as open.
	snapshot, err := env.tabs.GetOpenTab(testCtx(), table.ID.String())
	if err != nil {
		t.Fatalf("GetOpenTab returned error: %v", err)
	}
	if snapshot != nil {
		t.Errorf("expected no open tab after auto-close")
	}

	// All lines were closed with the tab.
	var open int64
	if err := env.db.Model(&model.LineEntry{}).Where("closed = ?", false).Count(&open).Error; err != nil {
		t.Fatalf("count open lines: %v", err)
	}
	if open != 0 {
		t.Errorf("%d lines still open after auto-close, want 0", open)
	}

	recorded := env.bus.byEvent(EventPaymentRecorded)
	if len(recorded) != 2 {
		t.Errorf("expected 2 payment events, got %d", len(recorded))
	}
}

func TestOverpaymentRejected(t *testing.T) {
	env := newTestEnv(t)
	table := openTabWith(t, env, "100.00")

	_, err := env.tabs.ApplyPayment(testCtx(), table.ID.String(), mustDecimal(t, "200.00"), model.PaymentMethodCash, testStaffID)
	var overpay *OverpaymentError
	if !errors.As(err, &overpay) {
		t.Fatalf("ApplyPayment error = %v, want OverpaymentError", err)
	}
	assertDecimal(t, overpay.Balance, "100.00", "reported balance")

	// The rejected attempt must leave no payment row behind.
	var count int64
	if err := env.db.Model(&model.PaymentEntry{}).Count(&count).Error; err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if count != 0 {
		t.Errorf("%d payment rows after rejected overpayment, want 0", count)
	}

	snapshot, err := env.tabs.GetOpenTab(testCtx(), table.ID.String())
	if err != nil || snapshot == nil {
		t.Fatalf("GetOpenTab = (%v, %v)", snapshot, err)
	}
	assertDecimal(t, snapshot.Balance, "100.00", "balance after rejected overpayment")
}

func TestPaymentValidation(t *testing.T) {
	env := newTestEnv(t)
	table := openTabWith(t, env, "100.00")

	if _, err := env.tabs.ApplyPayment(testCtx(), table.ID.String(), decimal.Zero, model.PaymentMethodCash, testStaffID); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount error = %v, want ErrInvalidAmount", err)
	}
	if _, err := env.tabs.ApplyPayment(testCtx(), table.ID.String(), mustDecimal(t, "-5.00"), model.PaymentMethodCash, testStaffID); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative amount error = %v, want ErrInvalidAmount", err)
	}
}

func TestPaymentWithoutOpenTab(t *testing.T) {
	env := newTestEnv(t)
	table := env.seedTable(t, "T1", "Table 1")

	if _, err := env.tabs.ApplyPayment(testCtx(), table.ID.String(), mustDecimal(t, "10.00"), model.PaymentMethodCash, testStaffID); !errors.Is(err, ErrNoOpenTab) {
		t.Errorf("ApplyPayment error = %v, want ErrNoOpenTab", err)
	}
	if err := env.tabs.CloseTab(testCtx(), table.ID.String(), testStaffID); !errors.Is(err, ErrNoOpenTab) {
		t.Errorf("CloseTab error = %v, want ErrNoOpenTab", err)
	}
}

func TestManualCloseRequiresZeroBalance(t *testing.T) {
	env := newTestEnv(t)
	table := openTabWith(t, env, "80.00")

	err := env.tabs.CloseTab(testCtx(), table.ID.String(), testStaffID)
	var notZero *BalanceNotZeroError
	if !errors.As(err, &notZero) {
		t.Fatalf("CloseTab error = %v, want BalanceNotZeroError", err)
	}
	assertDecimal(t, notZero.Balance, "80.00", "reported balance")

	if _, err := env.tabs.ApplyPayment(testCtx(), table.ID.String(), mustDecimal(t, "80.00"), model.PaymentMethodCash, testStaffID); err != nil {
		t.Fatalf("settling payment returned error: %v", err)
	}

	// The settling payment already closed the tab.
	if err := env.tabs.CloseTab(testCtx(), table.ID.String(), testStaffID); !errors.Is(err, ErrNoOpenTab) {
		t.Errorf("CloseTab after settlement error = %v, want ErrNoOpenTab", err)
	}

	closed := env.bus.byEvent(EventTabClosed)
	if len(closed) != 0 {
		t.Errorf("manual close events = %d, want 0 (tab auto-closed)", len(closed))
	}
}

func TestNewTabAfterClose(t *testing.T) {
	env := newTestEnv(t)
	table := openTabWith(t, env, "30.00")

	if _, err := env.tabs.ApplyPayment(testCtx(), table.ID.String(), mustDecimal(t, "30.00"), model.PaymentMethodCash, testStaffID); err != nil {
		t.Fatalf("payment returned error: %v", err)
	}

	// Same table, same day: a fresh approval opens a fresh tab.
	product := env.seedProduct(t, "ITEM-2", "Baklava", "dessert", "60.00")
	request := env.seedPendingRequest(t, table,
		model.OrderRequestLine{ProductID: product.ID, Quantity: 1},
	)
	result, err := env.approval.Approve(testCtx(), request.ID.String(), testStaffID)
	if err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}

	snapshot, err := env.tabs.GetOpenTab(testCtx(), table.ID.String())
	if err != nil || snapshot == nil {
		t.Fatalf("GetOpenTab = (%v, %v)", snapshot, err)
	}
	if snapshot.TabID != result.TabID {
		t.Errorf("open tab id = %s, want %s", snapshot.TabID, result.TabID)
	}
	assertDecimal(t, snapshot.Total, "60.00", "fresh tab total")
	assertDecimal(t, snapshot.Paid, "0.00", "fresh tab paid")
}

func TestListTablesFloorOverview(t *testing.T) {
	env := newTestEnv(t)
	occupied := openTabWith(t, env, "100.00")
	env.seedTable(t, "T2", "Table 2")

	statuses, err := env.tabs.ListTables(testCtx())
	if err != nil {
		t.Fatalf("ListTables returned error: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("ListTables returned %d rows, want 2", len(statuses))
	}

	byID := make(map[string]TableStatus, len(statuses))
	for _, s := range statuses {
		byID[s.ID] = s
	}

	busy := byID[occupied.ID.String()]
	if !busy.Occupied {
		t.Errorf("expected table with open tab to be occupied")
	}
	assertDecimal(t, busy.Amount, "100.00", "occupied amount")

	for id, s := range byID {
		if id == occupied.ID.String() {
			continue
		}
		if s.Occupied {
			t.Errorf("expected table %s to be free", s.Label)
		}
		assertDecimal(t, s.Amount, "0.00", "free table amount")
	}
}

func TestStationQueue(t *testing.T) {
	env := newTestEnv(t)
	table := env.seedTable(t, "T1", "Table 1")
	kebab := env.seedProduct(t, "KBB-1", "Adana Kebab", "grill", "120.50")
	ayran := env.seedProduct(t, "AYR-1", "Ayran", "beverage", "15.00")
	request := env.seedPendingRequest(t, table,
		model.OrderRequestLine{ProductID: kebab.ID, Quantity: 2},
		model.OrderRequestLine{ProductID: ayran.ID, Quantity: 1},
	)
	if _, err := env.approval.Approve(testCtx(), request.ID.String(), testStaffID); err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}

	kitchen, err := env.tabs.StationQueue(testCtx(), station.Kitchen)
	if err != nil {
		t.Fatalf("StationQueue(kitchen) returned error: %v", err)
	}
	if len(kitchen) != 1 || kitchen[0].Product != "Adana Kebab" || kitchen[0].Quantity != 2 {
		t.Errorf("unexpected kitchen queue: %+v", kitchen)
	}
	if kitchen[0].Table != "Table 1" {
		t.Errorf("kitchen queue table = %q, want %q", kitchen[0].Table, "Table 1")
	}

	bar, err := env.tabs.StationQueue(testCtx(), station.Bar)
	if err != nil {
		t.Fatalf("StationQueue(bar) returned error: %v", err)
	}
	if len(bar) != 1 || bar[0].Product != "Ayran" {
		t.Errorf("unexpected bar queue: %+v", bar)
	}

	// Settling the tab drains both queues.
	if _, err := env.tabs.ApplyPayment(testCtx(), table.ID.String(), mustDecimal(t, "256.00"), model.PaymentMethodCash, testStaffID); err != nil {
		t.Fatalf("payment returned error: %v", err)
	}
	kitchen, err = env.tabs.StationQueue(testCtx(), station.Kitchen)
	if err != nil {
		t.Fatalf("StationQueue(kitchen) returned error: %v", err)
	}
	if len(kitchen) != 0 {
		t.Errorf("kitchen queue has %d items after settlement, want 0", len(kitchen))
	}
}

// lineIDFor returns the open tab line posted for the named product.
func lineIDFor(t *testing.T, env *testEnv, table *model.Table, product string) string {
	t.Helper()
	snapshot, err := env.tabs.GetOpenTab(testCtx(), table.ID.String())
	if err != nil || snapshot == nil {
		t.Fatalf("GetOpenTab = (%v, %v)", snapshot, err)
	}
	for _, line := range snapshot.Lines {
		if line.Product == product {
			return line.ID
		}
	}
	t.Fatalf("no line for product %q in %+v", product, snapshot.Lines)
	return ""
}

func TestCompleteLineClearsStationQueue(t *testing.T) {
	env := newTestEnv(t)
	table := env.seedTable(t, "T1", "Table 1")
	kebab := env.seedProduct(t, "KBB-1", "Adana Kebab", "grill", "120.50")
	ayran := env.seedProduct(t, "AYR-1", "Ayran", "beverage", "15.00")
	request := env.seedPendingRequest(t, table,
		model.OrderRequestLine{ProductID: kebab.ID, Quantity: 1},
		model.OrderRequestLine{ProductID: ayran.ID, Quantity: 1},
	)
	if _, err := env.approval.Approve(testCtx(), request.ID.String(), testStaffID); err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}

	id := lineIDFor(t, env, table, "Adana Kebab")
	if err := env.tabs.CompleteLine(testCtx(), id, testStaffID); err != nil {
		t.Fatalf("CompleteLine returned error: %v", err)
	}

	// The completed line leaves the kitchen queue; the bar line stays.
	kitchen, err := env.tabs.StationQueue(testCtx(), station.Kitchen)
	if err != nil {
		t.Fatalf("StationQueue(kitchen) returned error: %v", err)
	}
	if len(kitchen) != 0 {
		t.Errorf("kitchen queue has %d items after completion, want 0", len(kitchen))
	}
	bar, err := env.tabs.StationQueue(testCtx(), station.Bar)
	if err != nil {
		t.Fatalf("StationQueue(bar) returned error: %v", err)
	}
	if len(bar) != 1 {
		t.Errorf("bar queue has %d items, want 1", len(bar))
	}

	// Completion never touches the money side.
	snapshot, err := env.tabs.GetOpenTab(testCtx(), table.ID.String())
	if err != nil || snapshot == nil {
		t.Fatalf("GetOpenTab = (%v, %v)", snapshot, err)
	}
	assertDecimal(t, snapshot.Total, "135.50", "tab total after completion")
	if len(snapshot.Lines) != 2 {
		t.Errorf("snapshot has %d lines, want 2", len(snapshot.Lines))
	}

	// Completing the same line again is a no-op.
	if err := env.tabs.CompleteLine(testCtx(), id, testStaffID); err != nil {
		t.Errorf("repeated CompleteLine returned error: %v", err)
	}

	events := env.bus.byEvent(EventLineCompleted)
	if len(events) != 2 {
		t.Fatalf("expected 2 completion events (station + dashboard), got %d", len(events))
	}
	groups := map[string]bool{events[0].Group: true, events[1].Group: true}
	if !groups[ws.GroupKitchen] || !groups[ws.GroupDashboard] {
		t.Errorf("completion events went to %v, want kitchen and dashboard", groups)
	}
}

func TestCancelLineAdjustsTotal(t *testing.T) {
	env := newTestEnv(t)
	table := env.seedTable(t, "T1", "Table 1")
	kebab := env.seedProduct(t, "KBB-1", "Adana Kebab", "grill", "120.50")
	ayran := env.seedProduct(t, "AYR-1", "Ayran", "beverage", "15.00")
	request := env.seedPendingRequest(t, table,
		model.OrderRequestLine{ProductID: kebab.ID, Quantity: 2},
		model.OrderRequestLine{ProductID: ayran.ID, Quantity: 1},
	)
	if _, err := env.approval.Approve(testCtx(), request.ID.String(), testStaffID); err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}

	id := lineIDFor(t, env, table, "Adana Kebab")
	if err := env.tabs.CancelLine(testCtx(), id, testStaffID); err != nil {
		t.Fatalf("CancelLine returned error: %v", err)
	}

	snapshot, err := env.tabs.GetOpenTab(testCtx(), table.ID.String())
	if err != nil || snapshot == nil {
		t.Fatalf("GetOpenTab = (%v, %v)", snapshot, err)
	}
	assertDecimal(t, snapshot.Total, "15.00", "tab total after cancel")
	if len(snapshot.Lines) != 1 || snapshot.Lines[0].Product != "Ayran" {
		t.Errorf("cancelled line still in snapshot: %+v", snapshot.Lines)
	}

	// total == sum of non-cancelled line totals
	var lines []model.LineEntry
	if err := env.db.Where("cancelled = ?", false).Find(&lines).Error; err != nil {
		t.Fatalf("load lines: %v", err)
	}
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.LineTotal)
	}
	if !snapshot.Total.Equal(sum) {
		t.Errorf("tab total %s != sum of non-cancelled lines %s", snapshot.Total, sum)
	}

	// The cancelled line is off its station queue but kept in the store.
	kitchen, err := env.tabs.StationQueue(testCtx(), station.Kitchen)
	if err != nil {
		t.Fatalf("StationQueue(kitchen) returned error: %v", err)
	}
	if len(kitchen) != 0 {
		t.Errorf("kitchen queue has %d items after cancel, want 0", len(kitchen))
	}
	var total int64
	if err := env.db.Model(&model.LineEntry{}).Count(&total).Error; err != nil {
		t.Fatalf("count lines: %v", err)
	}
	if total != 2 {
		t.Errorf("%d line rows after cancel, want 2 (cancelled rows kept)", total)
	}

	// Settling the reduced balance still works end to end.
	result, err := env.tabs.ApplyPayment(testCtx(), table.ID.String(), mustDecimal(t, "15.00"), model.PaymentMethodCash, testStaffID)
	if err != nil {
		t.Fatalf("payment returned error: %v", err)
	}
	if !result.AutoClosed {
		t.Errorf("payment of the reduced total should auto-close the tab")
	}
}

func TestLineDecisionErrors(t *testing.T) {
	env := newTestEnv(t)
	table := env.seedTable(t, "T1", "Table 1")
	tea := env.seedProduct(t, "TEA-1", "Black Tea", "beverage", "10.00")
	request := env.seedPendingRequest(t, table,
		model.OrderRequestLine{ProductID: tea.ID, Quantity: 1},
	)
	if _, err := env.approval.Approve(testCtx(), request.ID.String(), testStaffID); err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}
	id := lineIDFor(t, env, table, "Black Tea")

	if err := env.tabs.CompleteLine(testCtx(), uuid.New().String(), testStaffID); !errors.Is(err, ErrLineNotFound) {
		t.Errorf("CompleteLine(unknown) error = %v, want ErrLineNotFound", err)
	}
	if err := env.tabs.CancelLine(testCtx(), uuid.New().String(), testStaffID); !errors.Is(err, ErrLineNotFound) {
		t.Errorf("CancelLine(unknown) error = %v, want ErrLineNotFound", err)
	}

	if err := env.tabs.CancelLine(testCtx(), id, testStaffID); err != nil {
		t.Fatalf("CancelLine returned error: %v", err)
	}
	if err := env.tabs.CancelLine(testCtx(), id, testStaffID); !errors.Is(err, ErrLineCancelled) {
		t.Errorf("repeated CancelLine error = %v, want ErrLineCancelled", err)
	}
	if err := env.tabs.CompleteLine(testCtx(), id, testStaffID); !errors.Is(err, ErrLineCancelled) {
		t.Errorf("CompleteLine on cancelled line error = %v, want ErrLineCancelled", err)
	}
}

func TestCancelLineOnClosedTab(t *testing.T) {
	env := newTestEnv(t)
	table := openTabWith(t, env, "30.00")
	if _, err := env.tabs.ApplyPayment(testCtx(), table.ID.String(), mustDecimal(t, "30.00"), model.PaymentMethodCash, testStaffID); err != nil {
		t.Fatalf("payment returned error: %v", err)
	}

	var line model.LineEntry
	if err := env.db.First(&line).Error; err != nil {
		t.Fatalf("load line: %v", err)
	}
	if err := env.tabs.CancelLine(testCtx(), line.ID.String(), testStaffID); !errors.Is(err, ErrNoOpenTab) {
		t.Errorf("CancelLine on settled tab error = %v, want ErrNoOpenTab", err)
	}
}

func TestUnknownPaymentMethodRejected(t *testing.T) {
	env := newTestEnv(t)
	table := openTabWith(t, env, "100.00")

	if _, err := env.tabs.ApplyPayment(testCtx(), table.ID.String(), mustDecimal(t, "10.00"), "VOUCHER", testStaffID); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("ApplyPayment(VOUCHER) error = %v, want ErrUnknownMethod", err)
	}

	// Empty method still defaults to cash.
	if _, err := env.tabs.ApplyPayment(testCtx(), table.ID.String(), mustDecimal(t, "10.00"), "", testStaffID); err != nil {
		t.Fatalf("ApplyPayment with empty method returned error: %v", err)
	}
	snapshot, err := env.tabs.GetOpenTab(testCtx(), table.ID.String())
	if err != nil || snapshot == nil {
		t.Fatalf("GetOpenTab = (%v, %v)", snapshot, err)
	}
	if len(snapshot.Payments) != 1 || snapshot.Payments[0].Method != model.PaymentMethodCash {
		t.Errorf("payments = %+v, want one CASH entry", snapshot.Payments)
	}
}

func TestStoreUnavailableOnCancelledContext(t *testing.T) {
	env := newTestEnv(t)
	table := env.seedTable(t, "T1", "Table 1")
	tea := env.seedProduct(t, "TEA-1", "Black Tea", "beverage", "10.00")
	request := env.seedPendingRequest(t, table,
		model.OrderRequestLine{ProductID: tea.ID, Quantity: 1},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.approval.Approve(ctx, request.ID.String(), testStaffID)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Approve with dead context error = %v, want ErrStoreUnavailable", err)
	}

	// The failed transaction left nothing behind.
	var pending model.OrderRequest
	if err := env.db.First(&pending, "id = ?", request.ID).Error; err != nil {
		t.Fatalf("reload request: %v", err)
	}
	if pending.Status != model.RequestPending {
		t.Errorf("request status = %q after failed approve, want PENDING", pending.Status)
	}
	var tabs int64
	if err := env.db.Model(&model.Tab{}).Count(&tabs).Error; err != nil {
		t.Fatalf("count tabs: %v", err)
	}
	if tabs != 0 {
		t.Errorf("%d tabs after failed approve, want 0", tabs)
	}

	// Same classification on the settlement side.
	if _, err := env.approval.Approve(testCtx(), request.ID.String(), testStaffID); err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}
	if _, err := env.tabs.ApplyPayment(ctx, table.ID.String(), mustDecimal(t, "10.00"), model.PaymentMethodCash, testStaffID); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("ApplyPayment with dead context error = %v, want ErrStoreUnavailable", err)
	}
	var payments int64
	if err := env.db.Model(&model.PaymentEntry{}).Count(&payments).Error; err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if payments != 0 {
		t.Errorf("%d payment rows after failed payment, want 0", payments)
	}
}

func TestGetOpenTabUnknownTable(t *testing.T) {
	env := newTestEnv(t)

	snapshot, err := env.tabs.GetOpenTab(testCtx(), uuid.New().String())
	if err != nil {
		t.Fatalf("GetOpenTab returned error: %v", err)
	}
	if snapshot != nil {
		t.Errorf("expected nil snapshot for unknown table")
	}
}
