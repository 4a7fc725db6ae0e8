// internal/domain/coupon/entity.go
package coupon

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/your-org/storefront/internal/pkg/apperror"
	"gorm.io/gorm"
)

const (
	// CodeLength is the fixed length of every coupon code
	CodeLength = 5
	// MaxUsesLimit caps how many orders one coupon may serve
	MaxUsesLimit = 10
)

var (
	ErrInvalidCode     = apperror.Validation("coupon_invalid_code", "coupon code must be exactly 5 characters")
	ErrInvalidDiscount = apperror.Validation("coupon_invalid_discount", "discount must be between 0 and 100")
	ErrInvalidMaxUses  = apperror.Validation("coupon_invalid_max_uses", "max uses must be between 1 and 10")
	ErrInvalidWindow   = apperror.Validation("coupon_invalid_window", "start date must be before end date")
	ErrNotFound        = apperror.NotFound("coupon_not_found", "coupon not found")
	ErrDuplicateCode   = apperror.Conflict("coupon_duplicate_code", "coupon code already exists")

	ErrInactive      = apperror.Business("coupon_inactive", "coupon is not active")
	ErrNotStarted    = apperror.Business("coupon_not_started", "coupon is not valid yet")
	ErrExpired       = apperror.Business("coupon_expired", "coupon has expired")
	ErrExhausted     = apperror.Business("coupon_exhausted", "coupon usage limit reached")
	ErrBelowMinimum  = apperror.Business("coupon_below_minimum", "order subtotal is below the coupon minimum")
	ErrNotRedeemable = apperror.Business("coupon_not_redeemable", "coupon can no longer be redeemed")
)

// Coupon is a percentage discount code
type Coupon struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Code      string         `gorm:"uniqueIndex;not null;size:5" json:"code"`
	Discount  int            `gorm:"not null" json:"discount"` // percent, 0-100
	MinAmount int64          `gorm:"not null" json:"min_amount"`
	MaxUses   int            `gorm:"not null" json:"max_uses"`
	UsedCount int            `gorm:"not null" json:"used_count"`
	Active    bool           `gorm:"not null;index" json:"active"`
	StartDate *time.Time     `json:"start_date,omitempty"`
	EndDate   *time.Time     `json:"end_date,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Coupon) TableName() string {
	return "coupons"
}

// Snapshot is the code and discount copied into carts and orders
type Snapshot struct {
	Code     string `json:"code"`
	Discount int    `json:"discount"`
}

// NormalizeCode trims and uppercases a code and enforces its length
func NormalizeCode(code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if utf8.RuneCountInString(normalized) != CodeLength {
		return "", ErrInvalidCode
	}
	return normalized, nil
}

// RemainingUses returns how many more orders may use the coupon
func (c *Coupon) RemainingUses() int {
	if c.UsedCount >= c.MaxUses {
		return 0
	}
	return c.MaxUses - c.UsedCount
}

// IsValid reports whether the coupon can be used at now, ignoring the order minimum
func (c *Coupon) IsValid(now time.Time) bool {
	return c.checkState(now) == nil
}

func (c *Coupon) checkState(now time.Time) error {
	if c.UsedCount >= c.MaxUses {
		return ErrExhausted
	}
	if !c.Active {
		return ErrInactive
	}
	if c.StartDate != nil && now.Before(*c.StartDate) {
		return ErrNotStarted
	}
	if c.EndDate != nil && now.After(*c.EndDate) {
		return ErrExpired
	}
	return nil
}

// Check validates the coupon against an order subtotal and returns the rejection reason
func (c *Coupon) Check(subtotal int64, now time.Time) error {
	if err := c.checkState(now); err != nil {
		return err
	}
	if subtotal < c.MinAmount {
		return ErrBelowMinimum.Messagef("order subtotal must be at least %d to use coupon %s", c.MinAmount, c.Code)
	}
	return nil
}

// DiscountFor returns floor(subtotal × discount / 100)
func (c *Coupon) DiscountFor(subtotal int64) int64 {
	if subtotal <= 0 || c.Discount <= 0 {
		return 0
	}
	return subtotal * int64(c.Discount) / 100
}

// Snapshot returns the denormalized terms stored on carts and orders
func (c *Coupon) Snapshot() Snapshot {
	return Snapshot{Code: c.Code, Discount: c.Discount}
}
