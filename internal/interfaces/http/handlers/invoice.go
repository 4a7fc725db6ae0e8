// internal/interfaces/http/handlers/invoice.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/pkg/pdf"
)

// InvoiceHandler renders order invoices as PDF or HTML
type InvoiceHandler struct {
	orderService *order.Service
	pdfService   *pdf.Service
	logger       *logrus.Logger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(orderService *order.Service, pdfService *pdf.Service, logger *logrus.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		orderService: orderService,
		pdfService:   pdfService,
		logger:       logger,
	}
}

// UserInvoice handles GET /orders/:id/invoice
func (h *InvoiceHandler) UserInvoice(c *gin.Context) {
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
	h.render(c, o)
}

// GuestInvoice handles GET /guest/orders/:orderNumber/invoice
func (h *InvoiceHandler) GuestInvoice(c *gin.Context) {
	o, err := h.orderService.GetGuestOrder(c.Request.Context(), c.Param("orderNumber"), guestToken(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.render(c, o)
}

// AdminInvoice handles GET /admin/orders/:id/invoice
func (h *InvoiceHandler) AdminInvoice(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}

	o, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.render(c, o)
}

// InvoiceData handles GET /orders/:id/invoice/data for frontend previews
func (h *InvoiceHandler) InvoiceData(c *gin.Context) {
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
		"message": "Invoice data retrieved successfully",
		"data":    h.pdfService.Data(o),
	})
}

// render writes HTML for ?format=html and a PDF download otherwise
func (h *InvoiceHandler) render(c *gin.Context, o *order.Order) {
	if c.Query("format") == "html" {
		html, err := h.pdfService.RenderHTML(o)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
		return
	}

	buf, err := h.pdfService.GenerateInvoice(o)
	if err != nil {
		respondError(c, h.logger, fmt.Errorf("failed to generate invoice for %s: %w", o.OrderNumber, err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%s.pdf", o.OrderNumber))
	c.Header("Content-Length", strconv.Itoa(buf.Len()))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
