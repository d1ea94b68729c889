package handler

import (
	"net/http"

	"cafepos/internal/service"
	"cafepos/pkg/response"

	"github.com/gin-gonic/gin"
)

type MenuHandler struct {
	menuService service.MenuService
}

func NewMenuHandler(menuService service.MenuService) *MenuHandler {
	return &MenuHandler{menuService: menuService}
}

func (h *MenuHandler) RegisterRoutes(router *gin.RouterGroup) {
	// public: the QR landing page fetches this without a token
	router.GET("/api/menu", h.Menu)
}

// Menu returns the sellable catalog grouped by category
func (h *MenuHandler) Menu(c *gin.Context) {
	menu, err := h.menuService.Menu(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, menu))
}
