// internal/domain/cart/entity.go
package cart

import (
	"strings"
	"time"

	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/pkg/apperror"
	"gorm.io/gorm"
)

const MaxLineQuantity = 99

var (
	ErrNoOwner             = apperror.Validation("cart_no_owner", "a user or a session is required")
	ErrEmpty               = apperror.Business("cart_empty", "cart is empty")
	ErrItemNotFound        = apperror.NotFound("cart_item_not_found", "cart item not found")
	ErrInvalidQuantity     = apperror.Validation("cart_invalid_quantity", "quantity must be between 1 and 99")
	ErrQuantityUnavailable = apperror.Business("cart_quantity_unavailable", "requested quantity is not in stock")
)

// Cart belongs to a user or, for guests, to a session id
type Cart struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         *uint      `gorm:"uniqueIndex" json:"user_id,omitempty"`
	SessionID      string     `gorm:"size:64;index" json:"session_id,omitempty"`
	CouponCode     string     `gorm:"size:20" json:"coupon_code,omitempty"`
	CouponDiscount int        `gorm:"not null" json:"coupon_discount"` // percent
	Items          []CartItem `gorm:"foreignKey:CartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CartItem is a live reference to a product; prices are resolved on read
type CartItem struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	CartID       uint             `gorm:"not null;index" json:"cart_id"`
	ProductID    uint             `gorm:"not null;index" json:"product_id"`
	Quantity     int              `gorm:"not null;check:quantity >= 1" json:"quantity"`
	VariantName  string           `gorm:"size:100" json:"variant_name,omitempty"`
	VariantValue string           `gorm:"size:100" json:"variant_value,omitempty"`
	Product      *product.Product `gorm:"foreignKey:ProductID" json:"-"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// TableName overrides
func (Cart) TableName() string     { return "carts" }
func (CartItem) TableName() string { return "cart_items" }

// Owner identifies whose cart is addressed
type Owner struct {
	UserID    *uint
	SessionID string
}

// IsGuest reports whether the owner is an anonymous session
func (o Owner) IsGuest() bool {
	return o.UserID == nil
}

func (o Owner) validate() error {
	if o.UserID == nil && strings.TrimSpace(o.SessionID) == "" {
		return ErrNoOwner
	}
	return nil
}

func (o Owner) scope(db *gorm.DB) *gorm.DB {
	if o.UserID != nil {
		return db.Where("user_id = ?", *o.UserID)
	}
	return db.Where("session_id = ? AND user_id IS NULL", o.SessionID)
}

// Variant returns the line's variant selection
func (i *CartItem) Variant() product.VariantSelection {
	return product.VariantSelection{Name: i.VariantName, Value: i.VariantValue}
}

// Coupon returns the applied coupon snapshot, if any
func (c *Cart) Coupon() *coupon.Snapshot {
	if c == nil || c.CouponCode == "" {
		return nil
	}
	return &coupon.Snapshot{Code: c.CouponCode, Discount: c.CouponDiscount}
}

// Line is a cart item resolved against the live catalog
type Line struct {
	ItemID          uint                     `json:"item_id"`
	ProductID       uint                     `json:"product_id"`
	VariantOptionID *uint                    `json:"variant_option_id,omitempty"`
	Name            string                   `json:"name"`
	Slug            string                   `json:"slug"`
	Variant         product.VariantSelection `json:"variant"`
	UnitPrice       int64                    `json:"unit_price"`
	Quantity        int                      `json:"quantity"`
	LineTotal       int64                    `json:"line_total"`
	Available       int                      `json:"available"`
	Problem         string                   `json:"problem,omitempty"`
}

// Totals are derived from lines and never stored
type Totals struct {
	ItemCount     int   `json:"item_count"`
	TotalQuantity int   `json:"total_quantity"`
	Subtotal      int64 `json:"subtotal"`
}

// View is the cart as shown to the buyer
type View struct {
	CartID uint             `json:"cart_id,omitempty"`
	Items  []Line           `json:"items"`
	Coupon *coupon.Snapshot `json:"coupon,omitempty"`
	Totals Totals           `json:"totals"`
}

// resolve prices one item against its preloaded product
func (i *CartItem) resolve() (Line, error) {
	line := Line{
		ItemID:    i.ID,
		ProductID: i.ProductID,
		Variant:   i.Variant(),
		Quantity:  i.Quantity,
	}
	p := i.Product
	if p == nil || !p.IsActive {
		return line, product.ErrUnavailable
	}
	line.Name = p.Name
	line.Slug = p.Slug

	price, opt, err := p.Resolve(line.Variant)
	if err != nil {
		return line, err
	}
	if opt != nil {
		id := opt.ID
		line.VariantOptionID = &id
	}
	line.UnitPrice = price
	line.LineTotal = price * int64(i.Quantity)
	line.Available = p.AvailableStock(opt)
	return line, nil
}

// Lines resolves every item; the first unusable item aborts
func (c *Cart) Lines() ([]Line, error) {
	if c == nil || len(c.Items) == 0 {
		return nil, ErrEmpty
	}
	lines := make([]Line, 0, len(c.Items))
	for idx := range c.Items {
		line, err := c.Items[idx].resolve()
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Subtotal sums line totals
func Subtotal(lines []Line) int64 {
	var total int64
	for _, l := range lines {
		total += l.LineTotal
	}
	return total
}
