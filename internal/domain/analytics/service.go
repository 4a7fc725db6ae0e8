// internal/domain/analytics/service.go
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/loyalty"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/pkg/apperror"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

var ErrInvalidRange = apperror.Validation("analytics_invalid_range", "from and to must be YYYY-MM-DD with from <= to")

// Service builds admin sales reports from orders and the points ledger
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
	now    func() time.Time
}

// NewService creates a new analytics service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SalesRequest selects the reporting window. Both dates are inclusive.
type SalesRequest struct {
	From  string `form:"from"`
	To    string `form:"to"`
	Limit int    `form:"limit,default=5"`
}

// SalesReport summarizes orders placed in a window
type SalesReport struct {
	From             string             `json:"from"`
	To               string             `json:"to"`
	OrderCount       int64              `json:"order_count"`
	CancelledCount   int64              `json:"cancelled_count"`
	Revenue          int64              `json:"revenue"`
	AvgOrderValue    int64              `json:"avg_order_value"`
	VATCollected     int64              `json:"vat_collected"`
	CouponDiscounts  int64              `json:"coupon_discounts"`
	LoyaltyDiscounts int64              `json:"loyalty_discounts"`
	PointsIssued     int64              `json:"points_issued"`
	PointsRedeemed   int64              `json:"points_redeemed"`
	OrdersByStatus   []StatusData       `json:"orders_by_status"`
	RevenueByDay     []TimeSeriesData   `json:"revenue_by_day"`
	TopProducts      []ProductSalesData `json:"top_products"`
}

type TimeSeriesData struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
	Count int64  `json:"count"`
}

type ProductSalesData struct {
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	TotalSold   int64  `json:"total_sold"`
	Revenue     int64  `json:"revenue"`
	OrderCount  int64  `json:"order_count"`
}

type StatusData struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
	Value  int64  `json:"value"`
}

// window resolves the request into a half-open [from, to) range in UTC.
// Without dates the report covers the last 30 days including today.
func (s *Service) window(req *SalesRequest) (time.Time, time.Time, error) {
	today := s.now().Truncate(24 * time.Hour)
	to := today.AddDate(0, 0, 1)
	from := today.AddDate(0, 0, -29)

	if req.From != "" {
		t, err := time.Parse(dateLayout, req.From)
		if err != nil {
			return time.Time{}, time.Time{}, ErrInvalidRange
		}
		from = t
	}
	if req.To != "" {
		t, err := time.Parse(dateLayout, req.To)
		if err != nil {
			return time.Time{}, time.Time{}, ErrInvalidRange
		}
		to = t.AddDate(0, 0, 1)
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	return from, to, nil
}

// GetSalesReport aggregates revenue, discounts, points and best sellers.
// Cancelled orders count toward the status breakdown only.
func (s *Service) GetSalesReport(ctx context.Context, req *SalesRequest) (*SalesReport, error) {
	from, to, err := s.window(req)
	if err != nil {
		return nil, err
	}
	if req.Limit < 1 || req.Limit > 50 {
		req.Limit = 5
	}

	db := s.db.WithContext(ctx)
	inRange := func(q *gorm.DB, column string) *gorm.DB {
		return q.Where(column+" >= ? AND "+column+" < ?", from, to)
	}

	report := &SalesReport{
		From:           from.Format(dateLayout),
		To:             to.AddDate(0, 0, -1).Format(dateLayout),
		OrdersByStatus: []StatusData{},
		RevenueByDay:   []TimeSeriesData{},
		TopProducts:    []ProductSalesData{},
	}

	if err := inRange(db.Model(&order.Order{}), "created_at").
		Select("status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS value").
		Group("status").Order("status").
		Scan(&report.OrdersByStatus).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate orders by status: %w", err)
	}
	for _, st := range report.OrdersByStatus {
		if st.Status == string(order.OrderStatusCancelled) {
			report.CancelledCount = st.Count
		}
	}

	var totals struct {
		OrderCount       int64
		Revenue          int64
		VATCollected     int64
		CouponDiscounts  int64
		LoyaltyDiscounts int64
	}
	if err := inRange(db.Model(&order.Order{}), "created_at").
		Where("status <> ?", order.OrderStatusCancelled).
		Select("COUNT(*) AS order_count, " +
			"COALESCE(SUM(total_amount), 0) AS revenue, " +
			"COALESCE(SUM(vat_amount), 0) AS vat_collected, " +
			"COALESCE(SUM(discount_amount), 0) AS coupon_discounts, " +
			"COALESCE(SUM(loyalty_discount), 0) AS loyalty_discounts").
		Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue: %w", err)
	}
	report.OrderCount = totals.OrderCount
	report.Revenue = totals.Revenue
	report.VATCollected = totals.VATCollected
	report.CouponDiscounts = totals.CouponDiscounts
	report.LoyaltyDiscounts = totals.LoyaltyDiscounts
	if totals.OrderCount > 0 {
		report.AvgOrderValue = totals.Revenue / totals.OrderCount
	}

	// Bucket in Go so the day boundary is UTC on every driver.
	var rows []struct {
		CreatedAt   time.Time
		TotalAmount int64
	}
	if err := inRange(db.Model(&order.Order{}), "created_at").
		Where("status <> ?", order.OrderStatusCancelled).
		Select("created_at, total_amount").Order("created_at").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load daily revenue: %w", err)
	}
	for _, r := range rows {
		day := r.CreatedAt.UTC().Format(dateLayout)
		n := len(report.RevenueByDay)
		if n == 0 || report.RevenueByDay[n-1].Date != day {
			report.RevenueByDay = append(report.RevenueByDay, TimeSeriesData{Date: day})
			n++
		}
		report.RevenueByDay[n-1].Value += r.TotalAmount
		report.RevenueByDay[n-1].Count++
	}

	if err := db.Table("order_items AS oi").
		Select("oi.product_id, MAX(oi.name) AS product_name, "+
			"SUM(oi.quantity) AS total_sold, SUM(oi.total_price) AS revenue, "+
			"COUNT(DISTINCT oi.order_id) AS order_count").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where("o.status <> ? AND o.created_at >= ? AND o.created_at < ?", order.OrderStatusCancelled, from, to).
		Group("oi.product_id").
		Order("total_sold DESC, revenue DESC").
		Limit(req.Limit).
		Scan(&report.TopProducts).Error; err != nil {
		return nil, fmt.Errorf("failed to rank products: %w", err)
	}

	var points struct {
		Issued   int64
		Redeemed int64
	}
	if err := inRange(db.Model(&loyalty.PointsTransaction{}), "created_at").
		Select("COALESCE(SUM(CASE WHEN type = ? THEN points ELSE 0 END), 0) AS issued, "+
			"COALESCE(SUM(CASE WHEN type = ? THEN -points ELSE 0 END), 0) AS redeemed",
			loyalty.TxEarn, loyalty.TxRedeem).
		Scan(&points).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate points: %w", err)
	}
	report.PointsIssued = points.Issued
	report.PointsRedeemed = points.Redeemed

	s.logger.WithFields(logrus.Fields{
		"from":    report.From,
		"to":      report.To,
		"orders":  report.OrderCount,
		"revenue": report.Revenue,
	}).Debug("Sales report built")

	return report, nil
}
