// internal/pkg/email/order_notifier.go
package email

import (
	"context"
	"fmt"

	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/pkg/money"
)

var statusMessages = map[order.OrderStatus]string{
	order.OrderStatusPending:   "Đơn hàng đang chờ xác nhận.",
	order.OrderStatusConfirmed: "Đơn hàng đã được xác nhận và đang được chuẩn bị.",
	order.OrderStatusShipped:   "Đơn hàng đã được giao cho đơn vị vận chuyển.",
	order.OrderStatusDelivered: "Đơn hàng đã được giao thành công. Cảm ơn bạn!",
	order.OrderStatusCancelled: "Đơn hàng đã bị hủy. Điểm thưởng và mã giảm giá đã dùng (nếu có) đã được hoàn lại.",
}

// OrderNotifier emails buyers about their orders
type OrderNotifier struct {
	mail *EmailService
}

// NewOrderNotifier creates an order notifier
func NewOrderNotifier(mail *EmailService) *OrderNotifier {
	return &OrderNotifier{mail: mail}
}

// OrderPlaced sends the confirmation email
func (n *OrderNotifier) OrderPlaced(ctx context.Context, o *order.Order) error {
	return n.mail.SendOrderConfirmationEmail(ctx, n.orderData(o))
}

// OrderStatusChanged sends a status update email
func (n *OrderNotifier) OrderStatusChanged(ctx context.Context, o *order.Order, previous order.OrderStatus) error {
	data := n.orderData(o)
	data.StatusMessage = statusMessages[o.Status]
	return n.mail.SendOrderStatusUpdateEmail(ctx, data)
}

func (n *OrderNotifier) orderData(o *order.Order) OrderEmailData {
	data := OrderEmailData{
		OrderNumber:   o.OrderNumber,
		OrderDate:     o.CreatedAt.Format("02/01/2006 15:04"),
		Status:        string(o.Status),
		PaymentMethod: paymentLabel(o.PaymentMethod),
		Subtotal:      money.VND(o.SubtotalAmount),
		Shipping:      money.VND(o.ShippingAmount),
		VAT:           money.VND(o.VATAmount),
		Total:         money.VND(o.TotalAmount),
		PointsEarned:  o.LoyaltyPointsEarned,
		ShippingAddress: Address{
			Name:         o.ShippingAddress.FullName(),
			AddressLine1: o.ShippingAddress.AddressLine1,
			AddressLine2: o.ShippingAddress.AddressLine2,
			City:         o.ShippingAddress.City,
			State:        o.ShippingAddress.State,
			Phone:        o.ShippingAddress.Phone,
		},
		OrderURL: fmt.Sprintf("%s/orders/%s", n.mail.config.BaseURL, o.OrderNumber),
		Guest:    o.IsGuest(),
	}
	data.UserName = o.CustomerName()
	data.UserEmail = o.Email
	if o.DiscountAmount > 0 {
		data.Discount = money.VND(o.DiscountAmount)
	}
	if o.LoyaltyDiscount > 0 {
		data.LoyaltyDiscount = money.VND(o.LoyaltyDiscount)
	}
	for i := range o.Items {
		it := &o.Items[i]
		data.Items = append(data.Items, OrderItem{
			Name:     it.DisplayName(),
			Quantity: it.Quantity,
			Price:    money.VND(it.Price),
			Total:    money.VND(it.TotalPrice),
		})
	}
	return data
}

func paymentLabel(m checkout.PaymentMethod) string {
	for _, opt := range checkout.PaymentOptions() {
		if opt.ID == m {
			return opt.Name
		}
	}
	return string(m)
}
