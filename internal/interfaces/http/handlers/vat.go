package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/domain/vat"
)

// VATHandler exposes the VAT calculator for storefront previews
type VATHandler struct {
	calc *vat.Calculator
}

// NewVATHandler creates a new VAT handler
func NewVATHandler(calc *vat.Calculator) *VATHandler {
	return &VATHandler{calc: calc}
}

type vatCalculateRequest struct {
	Amount    int64 `form:"amount" binding:"gte=0"`
	Inclusive bool  `form:"inclusive,default=true"`
}

// Calculate handles GET /vat/calculate?amount=1100000&inclusive=true
func (h *VATHandler) Calculate(c *gin.Context) {
	var req vatCalculateRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	breakdown := h.calc.FromExclusive(req.Amount)
	if req.Inclusive {
		breakdown = h.calc.FromInclusive(req.Amount)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "VAT calculated",
		"data": gin.H{
			"breakdown":            breakdown,
			"shipping_fee":         h.calc.ShippingCost(req.Amount),
			"vat_invoice_eligible": h.calc.IsEligibleForVATInvoice(req.Amount),
			"invoice_threshold":    h.calc.InvoiceThreshold(),
		},
	})
}

// ValidateInfo handles POST /vat/validate
func (h *VATHandler) ValidateInfo(c *gin.Context) {
	var info vat.Info
	if err := c.ShouldBindJSON(&info); err != nil {
		respondBindError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "VAT information checked",
		"data":    vat.ValidateVATInfo(info),
	})
}
