package handler

import (
	"net/http"

	"cafepos/internal/middleware"
	"cafepos/internal/service"
	"cafepos/internal/station"
	"cafepos/pkg/response"

	"github.com/gin-gonic/gin"
)

type StationHandler struct {
	tabService service.TabService
}

func NewStationHandler(tabService service.TabService) *StationHandler {
	return &StationHandler{tabService: tabService}
}

func (h *StationHandler) RegisterRoutes(router *gin.RouterGroup) {
	stations := router.Group("/api/stations", middleware.RequireStaff())
	{
		stations.GET("/kitchen", h.KitchenQueue)
		stations.GET("/bar", h.BarQueue)
	}

	lines := router.Group("/api/lines", middleware.RequireStaff())
	{
		lines.POST("/:id/complete", h.CompleteLine)
		lines.POST("/:id/cancel", h.CancelLine)
	}
}

// KitchenQueue returns the kitchen's open order lines for today
func (h *StationHandler) KitchenQueue(c *gin.Context) {
	h.queue(c, station.Kitchen)
}

// BarQueue returns the bar's open order lines for today
func (h *StationHandler) BarQueue(c *gin.Context) {
	h.queue(c, station.Bar)
}

// CompleteLine marks a queued line prepared, taking it off its station screen
func (h *StationHandler) CompleteLine(c *gin.Context) {
	if err := h.tabService.CompleteLine(c.Request.Context(), c.Param("id"), middleware.StaffID(c)); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "line completed"}))
}

// CancelLine voids a posted line and removes its amount from the tab total
func (h *StationHandler) CancelLine(c *gin.Context) {
	if err := h.tabService.CancelLine(c.Request.Context(), c.Param("id"), middleware.StaffID(c)); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "line cancelled"}))
}

func (h *StationHandler) queue(c *gin.Context, target station.Station) {
	items, err := h.tabService.StationQueue(c.Request.Context(), target)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}
