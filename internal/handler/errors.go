package handler

import (
	"errors"
	"net/http"

	"cafepos/internal/service"
	"cafepos/pkg/response"

	"github.com/gin-gonic/gin"
)

// Stable failure codes exposed to API clients.
const (
	codeAlreadyDecided     = "ALREADY_DECIDED"
	codeNotFound           = "NOT_FOUND"
	codeNoOpenTab          = "NO_OPEN_TAB"
	codeLineCancelled      = "LINE_CANCELLED"
	codeInvalidAmount      = "INVALID_AMOUNT"
	codeUnknownMethod      = "UNKNOWN_METHOD"
	codeOverpayment        = "OVERPAYMENT"
	codeBalanceNotZero     = "BALANCE_NOT_ZERO"
	codeCatalogUnavailable = "CATALOG_UNAVAILABLE"
	codeStoreUnavailable   = "STORE_UNAVAILABLE"
)

// writeError maps service failure kinds onto HTTP statuses and stable codes.
// Conflict and validation failures carry the authoritative message (including
// the current balance where relevant); infrastructure failures are retryable.
func writeError(c *gin.Context, err error) {
	var overpay *service.OverpaymentError
	var notZero *service.BalanceNotZeroError

	switch {
	case errors.Is(err, service.ErrAlreadyDecided):
		c.JSON(http.StatusConflict, response.ErrorCode(http.StatusConflict, codeAlreadyDecided, err.Error()))
	case errors.Is(err, service.ErrRequestNotFound), errors.Is(err, service.ErrTableNotFound), errors.Is(err, service.ErrLineNotFound):
		c.JSON(http.StatusNotFound, response.ErrorCode(http.StatusNotFound, codeNotFound, err.Error()))
	case errors.Is(err, service.ErrNoOpenTab):
		c.JSON(http.StatusNotFound, response.ErrorCode(http.StatusNotFound, codeNoOpenTab, err.Error()))
	case errors.Is(err, service.ErrLineCancelled):
		c.JSON(http.StatusConflict, response.ErrorCode(http.StatusConflict, codeLineCancelled, err.Error()))
	case errors.Is(err, service.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, response.ErrorCode(http.StatusBadRequest, codeInvalidAmount, err.Error()))
	case errors.Is(err, service.ErrUnknownMethod):
		c.JSON(http.StatusBadRequest, response.ErrorCode(http.StatusBadRequest, codeUnknownMethod, err.Error()))
	case errors.As(err, &overpay):
		c.JSON(http.StatusBadRequest, response.ErrorCode(http.StatusBadRequest, codeOverpayment, err.Error()))
	case errors.As(err, &notZero):
		c.JSON(http.StatusBadRequest, response.ErrorCode(http.StatusBadRequest, codeBalanceNotZero, err.Error()))
	case errors.Is(err, service.ErrCatalogUnavailable):
		c.JSON(http.StatusServiceUnavailable, response.ErrorCode(http.StatusServiceUnavailable, codeCatalogUnavailable, err.Error()))
	case errors.Is(err, service.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, response.ErrorCode(http.StatusServiceUnavailable, codeStoreUnavailable, err.Error()))
	default:
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	}
}
