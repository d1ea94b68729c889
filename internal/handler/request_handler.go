package handler

import (
	"net/http"

	"cafepos/internal/middleware"
	"cafepos/internal/service"
	"cafepos/pkg/pagination"
	"cafepos/pkg/response"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	requestService  service.RequestService
	approvalService service.ApprovalService
}

func NewRequestHandler(requestService service.RequestService, approvalService service.ApprovalService) *RequestHandler {
	return &RequestHandler{requestService: requestService, approvalService: approvalService}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	// QR submission is public: guests at the table order against its code
	router.POST("/api/qr/:tableCode/requests", h.CreateFromQR)

	requests := router.Group("/api/requests", middleware.RequireStaff())
	{
		requests.POST("", h.CreateFromStaff)
		requests.GET("", h.ListRequests)
		requests.PUT("/:id/approve", h.ApproveRequest)
		requests.PUT("/:id/reject", h.RejectRequest)
	}
}

// CreateFromQR accepts a guest order request submitted through the table QR link
func (h *RequestHandler) CreateFromQR(c *gin.Context) {
	var req service.CreateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	result, err := h.requestService.CreateFromQR(c.Request.Context(), c.Param("tableCode"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// CreateFromStaff accepts an order request entered by a waiter for a table
func (h *RequestHandler) CreateFromStaff(c *gin.Context) {
	var req struct {
		TableID string `json:"table_id" binding:"required"`
		service.CreateRequestDTO
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	result, err := h.requestService.CreateFromStaff(c.Request.Context(), req.TableID, middleware.StaffID(c), req.CreateRequestDTO)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListRequests returns order requests, pending ones by default
func (h *RequestHandler) ListRequests(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.RequestFilter{
		Status: c.Query("status"),
		Page:   params.Page,
		Limit:  params.Limit,
	}

	requests, total, err := h.requestService.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, params.Envelope(requests, total)))
}

// ApproveRequest approves a pending order request, posting its lines to the
// table's open tab
func (h *RequestHandler) ApproveRequest(c *gin.Context) {
	result, err := h.approvalService.Approve(c.Request.Context(), c.Param("id"), middleware.StaffID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// RejectRequest rejects a pending order request
func (h *RequestHandler) RejectRequest(c *gin.Context) {
	if err := h.approvalService.Reject(c.Request.Context(), c.Param("id"), middleware.StaffID(c)); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "request rejected"}))
}
