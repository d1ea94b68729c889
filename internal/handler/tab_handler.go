package handler

import (
	"net/http"

	"cafepos/internal/middleware"
	"cafepos/internal/service"
	"cafepos/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type TabHandler struct {
	tabService service.TabService
}

func NewTabHandler(tabService service.TabService) *TabHandler {
	return &TabHandler{tabService: tabService}
}

func (h *TabHandler) RegisterRoutes(router *gin.RouterGroup) {
	tables := router.Group("/api/tables", middleware.RequireStaff())
	{
		tables.GET("", h.ListTables)
		tables.GET("/:id/tab", h.GetOpenTab)
		tables.POST("/:id/payments", h.ApplyPayment)
		tables.POST("/:id/close", h.CloseTab)
	}
}

// ListTables returns the floor overview: every enabled table with its
// occupancy and open amount for the current service day
func (h *TabHandler) ListTables(c *gin.Context) {
	tables, err := h.tabService.ListTables(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, tables))
}

// GetOpenTab returns the table's live tab with lines and payment history
func (h *TabHandler) GetOpenTab(c *gin.Context) {
	snapshot, err := h.tabService.GetOpenTab(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if snapshot == nil {
		c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"active": false}))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"active": true, "tab": snapshot}))
}

// ApplyPayment records a partial or full payment against the table's open tab
func (h *TabHandler) ApplyPayment(c *gin.Context) {
	var req struct {
		Amount decimal.Decimal `json:"amount" binding:"required"`
		Method string          `json:"method"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	result, err := h.tabService.ApplyPayment(c.Request.Context(), c.Param("id"), req.Amount, req.Method, middleware.StaffID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// CloseTab closes a fully settled tab without taking a payment
func (h *TabHandler) CloseTab(c *gin.Context) {
	if err := h.tabService.CloseTab(c.Request.Context(), c.Param("id"), middleware.StaffID(c)); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "tab closed"}))
}
