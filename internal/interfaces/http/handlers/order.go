// internal/interfaces/http/handlers/order.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerGuestToken     = "X-Guest-Token"
)

// OrderHandler handles customer order endpoints, signed-in and guest
type OrderHandler struct {
	orderService *order.Service
	logger       *logrus.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *order.Service, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

type cancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// CreateOrder handles POST /orders. Guests check out with their session
// cart; a repeated Idempotency-Key returns the order the first call made.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req order.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	buyer := order.Buyer{
		UserID:         middleware.UserIDPtr(c),
		SessionID:      middleware.GetSessionID(c),
		IdempotencyKey: c.GetHeader(headerIdempotencyKey),
	}

	placed, err := h.orderService.CreateOrder(c.Request.Context(), buyer, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	status := http.StatusCreated
	message := "Order created successfully"
	if placed.Replayed {
		status = http.StatusOK
		message = "Order already created for this request"
	}
	c.JSON(status, gin.H{
		"message": message,
		"data":    placed,
	})
}

// GetOrders handles GET /orders (user's own orders)
func (h *OrderHandler) GetOrders(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	response, err := h.orderService.ListUserOrders(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data":    response,
	})
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}

	o, err := h.orderService.GetOrderForUser(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    o,
	})
}

// GetOrderByNumber handles GET /orders/number/:orderNumber
func (h *OrderHandler) GetOrderByNumber(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	o, err := h.orderService.GetOrderByNumber(c.Request.Context(), c.Param("orderNumber"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if o.UserID == nil || *o.UserID != userID {
		respondError(c, h.logger, order.ErrForbidden)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    o,
	})
}

// CancelOrder handles PUT /orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req cancelRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	o, err := h.orderService.CancelUserOrder(c.Request.Context(), userID, orderID, req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled successfully",
		"data":    o,
	})
}

func guestToken(c *gin.Context) string {
	if tok := c.GetHeader(headerGuestToken); tok != "" {
		return tok
	}
	return c.Query("token")
}

// GetGuestOrder handles GET /guest/orders/:orderNumber
func (h *OrderHandler) GetGuestOrder(c *gin.Context) {
	o, err := h.orderService.GetGuestOrder(c.Request.Context(), c.Param("orderNumber"), guestToken(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    o,
	})
}

// CancelGuestOrder handles POST /guest/orders/:orderNumber/cancel
func (h *OrderHandler) CancelGuestOrder(c *gin.Context) {
	var req cancelRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	o, err := h.orderService.CancelGuestOrder(c.Request.Context(), c.Param("orderNumber"), guestToken(c), req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled successfully",
		"data":    o,
	})
}
