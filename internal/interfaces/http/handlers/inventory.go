// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/inventory"
)

// InventoryHandler handles admin stock management
type InventoryHandler struct {
	inventoryService *inventory.Service
	logger           *logrus.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventoryService *inventory.Service, logger *logrus.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
		logger:           logger,
	}
}

// AdjustStock handles POST /admin/inventory/adjust
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req inventory.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	movement, err := h.inventoryService.Adjust(c.Request.Context(), &req, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock adjusted successfully",
		"data":    movement,
	})
}

// ListMovements handles GET /admin/inventory/movements
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	var filter inventory.MovementFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondBindError(c, err)
		return
	}

	movements, total, err := h.inventoryService.ListMovements(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock movements retrieved successfully",
		"data": gin.H{
			"movements": movements,
			"total":     total,
		},
	})
}

// LowStock handles GET /admin/inventory/low-stock?threshold=5
func (h *InventoryHandler) LowStock(c *gin.Context) {
	threshold, err := strconv.Atoi(c.DefaultQuery("threshold", "5"))
	if err != nil || threshold < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid threshold",
		})
		return
	}

	levels, err := h.inventoryService.LowStock(c.Request.Context(), threshold)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Low stock report generated",
		"data":    levels,
	})
}
