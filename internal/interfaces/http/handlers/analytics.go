// internal/interfaces/http/handlers/analytics.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/analytics"
	"github.com/your-org/storefront/internal/pkg/money"
)

// AnalyticsHandler handles admin reporting endpoints
type AnalyticsHandler struct {
	analyticsService *analytics.Service
	logger           *logrus.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyticsService *analytics.Service, logger *logrus.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		logger:           logger,
	}
}

// GetSales handles GET /admin/analytics/sales?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *AnalyticsHandler) GetSales(c *gin.Context) {
	var req analytics.SalesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	report, err := h.analyticsService.GetSalesReport(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sales report retrieved successfully",
		"data":    report,
		"formatted": gin.H{
			"revenue":           money.VND(report.Revenue),
			"avg_order_value":   money.VND(report.AvgOrderValue),
			"vat_collected":     money.VND(report.VATCollected),
			"coupon_discounts":  money.VND(report.CouponDiscounts),
			"loyalty_discounts": money.VND(report.LoyaltyDiscounts),
			"revenue_by_day":    formatTimeSeries(report.RevenueByDay),
		},
	})
}

func formatTimeSeries(data []analytics.TimeSeriesData) []gin.H {
	formatted := make([]gin.H, 0, len(data))
	for _, item := range data {
		formatted = append(formatted, gin.H{
			"date":  item.Date,
			"value": money.VND(item.Value),
			"count": item.Count,
		})
	}
	return formatted
}
