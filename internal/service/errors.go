package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Stable failure kinds surfaced across the service boundary. Conflict and
// validation kinds are never retried; store/catalog kinds are retryable and
// guarantee no partial state was left behind.
var (
	ErrAlreadyDecided     = errors.New("order request already decided")
	ErrRequestNotFound    = errors.New("order request not found")
	ErrTableNotFound      = errors.New("table not found")
	ErrNoOpenTab          = errors.New("no open tab for table")
	ErrLineNotFound       = errors.New("order line not found")
	ErrLineCancelled      = errors.New("order line already cancelled")
	ErrInvalidAmount      = errors.New("payment amount must be positive")
	ErrUnknownMethod      = errors.New("unknown payment method")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrStoreUnavailable   = errors.New("store unavailable")
)

// OverpaymentError rejects a payment exceeding the open balance. It carries
// the authoritative balance so the caller can display it.
type OverpaymentError struct {
	Balance decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("remaining balance is %s, cannot accept a larger payment", e.Balance.StringFixed(2))
}

// BalanceNotZeroError rejects a manual close while the tab still owes money.
type BalanceNotZeroError struct {
	Balance decimal.Decimal
}

func (e *BalanceNotZeroError) Error() string {
	return fmt.Sprintf("remaining balance is %s, take payment before closing", e.Balance.StringFixed(2))
}

// classify passes already-typed domain failures through untouched and folds
// anything else (commit failures, timeouts, driver faults) into the
// retryable store kind.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var overpay *OverpaymentError
	var notZero *BalanceNotZeroError
	switch {
	case errors.Is(err, ErrAlreadyDecided),
		errors.Is(err, ErrRequestNotFound),
		errors.Is(err, ErrTableNotFound),
		errors.Is(err, ErrNoOpenTab),
		errors.Is(err, ErrLineNotFound),
		errors.Is(err, ErrLineCancelled),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrUnknownMethod),
		errors.Is(err, ErrCatalogUnavailable),
		errors.Is(err, ErrStoreUnavailable),
		errors.As(err, &overpay),
		errors.As(err, &notZero):
		return err
	}
	return storeErr(err)
}

// storeErr classifies raw persistence failures. Timeouts and transport
// faults become the retryable ErrStoreUnavailable; not-found passes through
// untouched so callers can map it to a domain kind.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
