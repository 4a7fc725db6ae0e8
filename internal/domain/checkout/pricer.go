// internal/domain/checkout/pricer.go
package checkout

import (
	"time"

	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/loyalty"
	"github.com/your-org/storefront/internal/domain/vat"
)

// Pricer computes checkout totals. Quotes and order creation both go
// through Price so the previewed total is the charged total.
type Pricer struct {
	calc  *vat.Calculator
	rules loyalty.Rules
}

// NewPricer creates a pricer
func NewPricer(calc *vat.Calculator, rules loyalty.Rules) *Pricer {
	return &Pricer{calc: calc, rules: rules}
}

// PriceInput is everything that affects the total
type PriceInput struct {
	Lines           []cart.Line
	Coupon          *coupon.Coupon // live record, nil when none applied
	Guest           bool
	PointsBalance   int64
	PointsRequested int64
	Now             time.Time
}

// Totals is the priced checkout
type Totals struct {
	Subtotal           int64              `json:"subtotal"`
	ShippingFee        int64              `json:"shipping_fee"`
	CouponCode         string             `json:"coupon_code,omitempty"`
	CouponPercent      int                `json:"coupon_percent,omitempty"`
	CouponDiscount     int64              `json:"coupon_discount"`
	PointsUsed         int64              `json:"points_used"`
	LoyaltyDiscount    int64              `json:"loyalty_discount"`
	Total              int64              `json:"total"`
	PointsEarned       int64              `json:"points_earned"`
	VATInvoiceEligible bool               `json:"vat_invoice_eligible"`
	VAT                vat.OrderBreakdown `json:"vat"`
}

// Price runs, in order: subtotal, shipping, coupon, points, VAT
func (p *Pricer) Price(in PriceInput) (*Totals, error) {
	if len(in.Lines) == 0 {
		return nil, cart.ErrEmpty
	}

	t := &Totals{Subtotal: cart.Subtotal(in.Lines)}
	t.ShippingFee = p.calc.ShippingCost(t.Subtotal)

	if in.Coupon != nil {
		if err := in.Coupon.Check(t.Subtotal, in.Now); err != nil {
			return nil, err
		}
		t.CouponCode = in.Coupon.Code
		t.CouponPercent = in.Coupon.Discount
		t.CouponDiscount = in.Coupon.DiscountFor(t.Subtotal)
	}

	afterCoupon := max(t.Subtotal+t.ShippingFee-t.CouponDiscount, 0)

	if in.PointsRequested != 0 {
		if in.Guest {
			return nil, loyalty.ErrGuestRedemption
		}
		used, err := p.rules.MaxRedeemable(in.PointsBalance, afterCoupon, in.PointsRequested)
		if err != nil {
			return nil, err
		}
		t.PointsUsed = used
		t.LoyaltyDiscount = p.rules.RedemptionValue(used)
	}

	t.Total = max(afterCoupon-t.LoyaltyDiscount, 0)
	if !in.Guest {
		t.PointsEarned = p.rules.PointsEarned(t.Total)
	}
	t.VATInvoiceEligible = p.calc.IsEligibleForVATInvoice(t.Subtotal)

	items := make([]vat.Item, 0, len(in.Lines))
	for _, l := range in.Lines {
		name := l.Name
		if label := l.Variant.Label(); label != "" {
			name += " (" + label + ")"
		}
		items = append(items, vat.Item{Name: name, Price: l.UnitPrice, Quantity: l.Quantity})
	}
	t.VAT = p.calc.CalculateOrderVAT(vat.OrderInput{
		Items:           items,
		ShippingFee:     t.ShippingFee,
		Discount:        t.CouponDiscount,
		LoyaltyDiscount: t.LoyaltyDiscount,
	})
	return t, nil
}
