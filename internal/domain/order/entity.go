// internal/domain/order/entity.go
package order

import (
	"strings"
	"time"

	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/inventory"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/domain/vat"
	"github.com/your-org/storefront/internal/pkg/apperror"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentStatus represents payment status
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

var (
	ErrNotFound             = apperror.NotFound("order_not_found", "order not found")
	ErrForbidden            = apperror.Forbidden("order_forbidden", "order belongs to another customer")
	ErrInvalidStatus        = apperror.Validation("order_invalid_status", "unknown order status")
	ErrInvalidTransition    = apperror.Business("order_invalid_transition", "status change is not allowed")
	ErrCannotCancel         = apperror.Business("order_cannot_cancel", "order can no longer be cancelled")
	ErrConcurrentUpdate     = apperror.Conflict("order_concurrent_update", "order was changed by another request, reload and retry")
	ErrInvalidPaymentMethod = apperror.Validation("order_invalid_payment_method", "unsupported payment method")
	ErrInvalidAddress       = apperror.Validation("order_invalid_address", "shipping address is incomplete")
	ErrGuestEmailRequired   = apperror.Validation("order_guest_email_required", "guest checkout needs a valid email")
	ErrInvalidVATInfo       = apperror.Validation("order_invalid_vat_info", "VAT invoice information is invalid")
	ErrRequestInProgress    = apperror.Conflict("order_request_in_progress", "an identical checkout request is still being processed")
	ErrInvalidDate          = apperror.Validation("order_invalid_date", "date filter must be YYYY-MM-DD")
)

// Order represents the order entity. Line items are frozen at checkout;
// after creation only status, payment and loyalty/coupon bookkeeping change.
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID      *uint       `gorm:"index" json:"user_id,omitempty"` // nil for guest orders
	Email       string      `gorm:"not null;size:255;index" json:"email"`
	Guest       GuestInfo   `gorm:"embedded;embeddedPrefix:guest_" json:"guest,omitempty"`
	Status      OrderStatus `gorm:"not null;size:20;index" json:"status"`

	GuestAccessTokenHash string `gorm:"size:100" json:"-"`
	IdempotencyKey       string `gorm:"size:100" json:"-"`
	IdempotencyScope     string `gorm:"size:80" json:"-"` // user:<id> or session:<sha256>

	// Payment
	PaymentMethod  checkout.PaymentMethod `gorm:"not null;size:20" json:"payment_method"`
	PaymentStatus  PaymentStatus          `gorm:"not null;size:20" json:"payment_status"`
	PaymentDetails string                 `gorm:"type:text" json:"payment_details,omitempty"`

	// Financial information, whole VND
	SubtotalAmount  int64  `gorm:"not null" json:"subtotal_amount"`
	ShippingAmount  int64  `gorm:"not null" json:"shipping_amount"`
	DiscountAmount  int64  `gorm:"not null" json:"discount_amount"`
	LoyaltyDiscount int64  `gorm:"not null" json:"loyalty_discount"`
	VATAmount       int64  `gorm:"not null" json:"vat_amount"`
	TotalAmount     int64  `gorm:"not null" json:"total_amount"`
	Currency        string `gorm:"size:3;not null" json:"currency"`

	// Coupon snapshot
	CouponCode     string `gorm:"size:20" json:"coupon_code,omitempty"`
	CouponPercent  int    `gorm:"not null" json:"coupon_percent"`
	CouponRedeemed bool   `gorm:"not null" json:"-"`

	// Loyalty
	LoyaltyPointsUsed    int64 `gorm:"not null" json:"loyalty_points_used"`
	LoyaltyPointsEarned  int64 `gorm:"not null" json:"loyalty_points_earned"`
	LoyaltyPointsApplied bool  `gorm:"not null" json:"loyalty_points_applied"`

	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`

	// VAT invoice
	VATInvoiceRequested bool     `gorm:"not null" json:"vat_invoice_requested"`
	VATInfo             vat.Info `gorm:"embedded;embeddedPrefix:vat_" json:"vat_info"`
	VATInvoiceNumber    string   `gorm:"size:30" json:"vat_invoice_number,omitempty"`

	Notes string `gorm:"type:text" json:"notes,omitempty"`

	// Timestamps
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ShippedAt   *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relationships
	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderItem is a line frozen at checkout
type OrderItem struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	OrderID         uint      `gorm:"not null;index" json:"order_id"`
	ProductID       uint      `gorm:"not null;index" json:"product_id"`
	VariantOptionID *uint     `gorm:"index" json:"variant_option_id,omitempty"`
	Name            string    `gorm:"not null;size:255" json:"name"`
	VariantName     string    `gorm:"size:100" json:"variant_name,omitempty"`
	VariantValue    string    `gorm:"size:100" json:"variant_value,omitempty"`
	Quantity        int       `gorm:"not null" json:"quantity"`
	Price           int64     `gorm:"not null" json:"price"`       // unit price
	TotalPrice      int64     `gorm:"not null" json:"total_price"` // Quantity * Price
	CreatedAt       time.Time `json:"created_at"`
}

// OrderStatusHistory is the append-only audit log of status changes
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"not null;size:20" json:"status"`
	Note      string      `gorm:"type:text" json:"note,omitempty"`
	CreatedBy *uint       `json:"created_by,omitempty"` // nil for the customer or the system
	CreatedAt time.Time   `json:"created_at"`
}

// GuestInfo identifies the buyer of a guest order
type GuestInfo struct {
	Name  string `gorm:"size:200" json:"name,omitempty"`
	Email string `gorm:"size:255" json:"email,omitempty" binding:"omitempty,email"`
	Phone string `gorm:"size:20" json:"phone,omitempty"`
}

// Address represents the shipping address (embedded in Order)
type Address struct {
	FirstName    string `gorm:"size:100" json:"first_name" binding:"required"`
	LastName     string `gorm:"size:100" json:"last_name"`
	Company      string `gorm:"size:100" json:"company,omitempty"`
	AddressLine1 string `gorm:"size:255" json:"address_line1" binding:"required"`
	AddressLine2 string `gorm:"size:255" json:"address_line2,omitempty"`
	City         string `gorm:"size:100" json:"city" binding:"required"`
	State        string `gorm:"size:100" json:"state,omitempty"`
	PostalCode   string `gorm:"size:20" json:"postal_code,omitempty"`
	Country      string `gorm:"size:2" json:"country" binding:"omitempty,len=2"`
	Phone        string `gorm:"size:20" json:"phone" binding:"required"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// FullName joins the recipient name
func (a Address) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// IsGuest reports whether the order has no registered owner
func (o *Order) IsGuest() bool {
	return o.UserID == nil
}

// CustomerName returns the best display name for the buyer
func (o *Order) CustomerName() string {
	if name := o.ShippingAddress.FullName(); name != "" {
		return name
	}
	if o.Guest.Name != "" {
		return o.Guest.Name
	}
	return o.Email
}

// InvoiceNumber returns the VAT invoice number, or one derived from the order number
func (o *Order) InvoiceNumber() string {
	if o.VATInvoiceNumber != "" {
		return o.VATInvoiceNumber
	}
	return "INV-" + o.OrderNumber
}

// Variant returns the line's variant selection
func (i *OrderItem) Variant() product.VariantSelection {
	return product.VariantSelection{Name: i.VariantName, Value: i.VariantValue}
}

// DisplayName returns the line name with its variant
func (i *OrderItem) DisplayName() string {
	if label := i.Variant().Label(); label != "" {
		return i.Name + " (" + label + ")"
	}
	return i.Name
}

// StockLines returns the frozen quantities in inventory terms
func (o *Order) StockLines() []inventory.Line {
	lines := make([]inventory.Line, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, inventory.Line{
			ProductID:       it.ProductID,
			VariantOptionID: it.VariantOptionID,
			Name:            it.Name,
			Quantity:        it.Quantity,
		})
	}
	return lines
}

// VATInput rebuilds the calculator input from the frozen order
func (o *Order) VATInput() vat.OrderInput {
	items := make([]vat.Item, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, vat.Item{Name: it.DisplayName(), Price: it.Price, Quantity: it.Quantity})
	}
	return vat.OrderInput{
		Items:           items,
		ShippingFee:     o.ShippingAmount,
		Discount:        o.DiscountAmount,
		LoyaltyDiscount: o.LoyaltyDiscount,
	}
}
