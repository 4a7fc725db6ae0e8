// Package loyalty accrues and redeems customer points.
package loyalty

import (
	"time"

	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/pkg/apperror"
)

const (
	DefaultPointValue  int64 = 1000  // đồng per redeemed point
	DefaultEarnDivisor int64 = 10000 // đồng spent per earned point
)

var (
	ErrInsufficientPoints = apperror.Business("insufficient_points", "not enough loyalty points")
	ErrInvalidPoints      = apperror.Validation("invalid_points", "points must not be negative")
	ErrGuestRedemption    = apperror.Validation("guest_cannot_redeem", "sign in to redeem loyalty points")
)

// TxType classifies a points movement
type TxType string

const (
	TxEarn   TxType = "earn"
	TxRedeem TxType = "redeem"
	TxRefund TxType = "refund"
)

// PointsTransaction records one change to a user's balance
type PointsTransaction struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	OrderID      *uint     `gorm:"index" json:"order_id,omitempty"`
	Type         TxType    `gorm:"not null;size:20" json:"type"`
	Points       int64     `gorm:"not null" json:"points"` // signed
	BalanceAfter int64     `gorm:"not null" json:"balance_after"`
	Reason       string    `gorm:"size:255" json:"reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName overrides the table name
func (PointsTransaction) TableName() string {
	return "loyalty_transactions"
}

// Rules holds the earn and redeem rates
type Rules struct {
	PointValue  int64
	EarnDivisor int64
}

// DefaultRules returns 1 point per 10,000đ spent, 1,000đ per redeemed point
func DefaultRules() Rules {
	return Rules{PointValue: DefaultPointValue, EarnDivisor: DefaultEarnDivisor}
}

// RulesFromConfig reads the rates from store config, falling back to defaults
func RulesFromConfig(cfg config.StoreConfig) Rules {
	r := DefaultRules()
	if cfg.LoyaltyPointValue > 0 {
		r.PointValue = cfg.LoyaltyPointValue
	}
	if cfg.LoyaltyEarnDivisor > 0 {
		r.EarnDivisor = cfg.LoyaltyEarnDivisor
	}
	return r
}

// PointsEarned is floor(total / EarnDivisor)
func (r Rules) PointsEarned(total int64) int64 {
	if total <= 0 {
		return 0
	}
	return total / r.EarnDivisor
}

// MaxRedeemable returns how many of the requested points can be used on an
// order of orderTotal. Asking for more than the balance is an error; the
// order-total cap clamps silently.
func (r Rules) MaxRedeemable(balance, orderTotal, requested int64) (int64, error) {
	if requested < 0 {
		return 0, ErrInvalidPoints
	}
	if requested == 0 {
		return 0, nil
	}
	if requested > balance {
		return 0, ErrInsufficientPoints.Messagef("requested %d points but only %d available", requested, balance)
	}
	limit := int64(0)
	if orderTotal > 0 {
		limit = orderTotal / r.PointValue
	}
	return min(requested, limit), nil
}

// RedemptionValue converts points into đồng
func (r Rules) RedemptionValue(points int64) int64 {
	return points * r.PointValue
}
