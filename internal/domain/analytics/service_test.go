package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/domain/loyalty"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/testutil"
	"gorm.io/gorm"
)

var reportNow = time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)

func seedOrder(t *testing.T, db *gorm.DB, number string, status order.OrderStatus, at time.Time, total int64, items ...order.OrderItem) {
	t.Helper()
	o := &order.Order{
		OrderNumber:     number,
		Email:           "buyer@example.com",
		Status:          status,
		PaymentMethod:   "cod",
		PaymentStatus:   order.PaymentStatusPending,
		SubtotalAmount:  total,
		TotalAmount:     total,
		VATAmount:       total / 11,
		DiscountAmount:  1000,
		LoyaltyDiscount: 2000,
		Currency:        "VND",
		Items:           items,
		CreatedAt:       at,
	}
	require.NoError(t, db.Create(o).Error)
}

func newReportService(t *testing.T) (*Service, *gorm.DB) {
	db := testutil.NewDB(t, &order.Order{}, &order.OrderItem{}, &loyalty.PointsTransaction{})
	svc := NewService(db, logger.Discard())
	svc.now = func() time.Time { return reportNow }
	return svc, db
}

func TestSalesReport(t *testing.T) {
	svc, db := newReportService(t)
	ctx := context.Background()

	day1 := time.Date(2024, 6, 8, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 6, 9, 23, 30, 0, 0, time.UTC)

	seedOrder(t, db, "ORD-20240608-00001", order.OrderStatusDelivered, day1, 300000,
		order.OrderItem{ProductID: 1, Name: "Ấm đun nước", Quantity: 2, Price: 150000, TotalPrice: 300000})
	seedOrder(t, db, "ORD-20240609-00001", order.OrderStatusPending, day2, 100000,
		order.OrderItem{ProductID: 2, Name: "Tai nghe", Quantity: 1, Price: 100000, TotalPrice: 100000})
	seedOrder(t, db, "ORD-20240609-00002", order.OrderStatusCancelled, day2, 900000,
		order.OrderItem{ProductID: 2, Name: "Tai nghe", Quantity: 9, Price: 100000, TotalPrice: 900000})
	seedOrder(t, db, "ORD-20240401-00001", order.OrderStatusDelivered, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), 777000)

	require.NoError(t, db.Create(&[]loyalty.PointsTransaction{
		{UserID: 1, Type: loyalty.TxEarn, Points: 30, BalanceAfter: 30, CreatedAt: day1},
		{UserID: 1, Type: loyalty.TxRedeem, Points: -10, BalanceAfter: 20, CreatedAt: day2},
		{UserID: 1, Type: loyalty.TxRefund, Points: 10, BalanceAfter: 30, CreatedAt: day2},
	}).Error)

	report, err := svc.GetSalesReport(ctx, &SalesRequest{})
	require.NoError(t, err)

	assert.Equal(t, "2024-05-12", report.From)
	assert.Equal(t, "2024-06-10", report.To)
	assert.Equal(t, int64(2), report.OrderCount)
	assert.Equal(t, int64(1), report.CancelledCount)
	assert.Equal(t, int64(400000), report.Revenue)
	assert.Equal(t, int64(200000), report.AvgOrderValue)
	assert.Equal(t, int64(2000), report.CouponDiscounts)
	assert.Equal(t, int64(4000), report.LoyaltyDiscounts)
	assert.Equal(t, int64(30), report.PointsIssued)
	assert.Equal(t, int64(10), report.PointsRedeemed)

	assert.Len(t, report.OrdersByStatus, 3)
	assert.Equal(t, []TimeSeriesData{
		{Date: "2024-06-08", Value: 300000, Count: 1},
		{Date: "2024-06-09", Value: 100000, Count: 1},
	}, report.RevenueByDay)

	require.Len(t, report.TopProducts, 2)
	assert.Equal(t, uint(1), report.TopProducts[0].ProductID)
	assert.Equal(t, int64(2), report.TopProducts[0].TotalSold)
	assert.Equal(t, int64(1), report.TopProducts[1].TotalSold, "cancelled lines are not counted")
}

func TestSalesReportExplicitWindow(t *testing.T) {
	svc, db := newReportService(t)
	ctx := context.Background()

	seedOrder(t, db, "ORD-20240401-00001", order.OrderStatusDelivered, time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC), 500000)
	seedOrder(t, db, "ORD-20240402-00001", order.OrderStatusShipped, time.Date(2024, 4, 2, 8, 0, 0, 0, time.UTC), 250000)

	report, err := svc.GetSalesReport(ctx, &SalesRequest{From: "2024-04-01", To: "2024-04-01"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.OrderCount)
	assert.Equal(t, int64(500000), report.Revenue)
	assert.Empty(t, report.TopProducts)

	empty, err := svc.GetSalesReport(ctx, &SalesRequest{From: "2023-01-01", To: "2023-01-31"})
	require.NoError(t, err)
	assert.Zero(t, empty.Revenue)
	assert.Zero(t, empty.AvgOrderValue)
	assert.Empty(t, empty.RevenueByDay)
}

func TestSalesReportRejectsBadRange(t *testing.T) {
	svc, _ := newReportService(t)
	ctx := context.Background()

	_, err := svc.GetSalesReport(ctx, &SalesRequest{From: "06/01/2024"})
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = svc.GetSalesReport(ctx, &SalesRequest{From: "2024-06-05", To: "2024-06-01"})
	assert.ErrorIs(t, err, ErrInvalidRange)
}
