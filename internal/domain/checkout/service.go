// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/loyalty"
	"github.com/your-org/storefront/internal/domain/vat"
	"gorm.io/gorm"
)

// PaymentMethod is how the buyer pays
type PaymentMethod string

const (
	PaymentCOD          PaymentMethod = "cod"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCard         PaymentMethod = "card"
)

// PaymentOption describes a payment method offered at checkout
type PaymentOption struct {
	ID          PaymentMethod `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
}

// PaymentOptions lists the methods offered at checkout
func PaymentOptions() []PaymentOption {
	return []PaymentOption{
		{ID: PaymentCOD, Name: "Thanh toán khi nhận hàng", Description: "Pay the courier on delivery"},
		{ID: PaymentBankTransfer, Name: "Chuyển khoản ngân hàng", Description: "Transfer to our bank account before shipping"},
		{ID: PaymentCard, Name: "Thẻ tín dụng / ghi nợ", Description: "Pay online by card"},
	}
}

// Valid reports whether m is an offered payment method
func (m PaymentMethod) Valid() bool {
	for _, opt := range PaymentOptions() {
		if opt.ID == m {
			return true
		}
	}
	return false
}

// Service prices carts for preview and for order creation
type Service struct {
	db      *gorm.DB
	logger  *logrus.Logger
	pricer  *Pricer
	carts   *cart.Service
	coupons *coupon.Service
	ledger  *loyalty.Ledger
	now     func() time.Time
}

// NewService creates a new checkout service
func NewService(db *gorm.DB, logger *logrus.Logger, pricer *Pricer, carts *cart.Service, coupons *coupon.Service, ledger *loyalty.Ledger) *Service {
	return &Service{
		db:      db,
		logger:  logger,
		pricer:  pricer,
		carts:   carts,
		coupons: coupons,
		ledger:  ledger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// QuoteRequest represents checkout preview options
type QuoteRequest struct {
	CouponCode   string    `json:"coupon_code"`
	RedeemPoints int64     `json:"redeem_points" binding:"gte=0"`
	VATInfo      *vat.Info `json:"vat_info"`
}

// Quote is the checkout preview
type Quote struct {
	Cart           *cart.View            `json:"cart"`
	Totals         *Totals               `json:"totals"`
	PointsBalance  int64                 `json:"points_balance"`
	VATInfo        *vat.ValidationResult `json:"vat_info,omitempty"`
	PaymentOptions []PaymentOption       `json:"payment_options"`
}

// Prepared is a priced cart ready to become an order
type Prepared struct {
	Cart   *cart.Cart
	Lines  []cart.Line
	Coupon *coupon.Coupon
	Totals *Totals
}

// Prepare loads the owner's cart, resolves the coupon (explicit code first,
// then the cart's snapshot) against the live record, and prices it.
func (s *Service) Prepare(ctx context.Context, owner cart.Owner, couponCode string, redeemPoints int64) (*Prepared, error) {
	c, err := cart.Load(s.db.WithContext(ctx), owner)
	if err != nil {
		return nil, err
	}
	lines, err := c.Lines()
	if err != nil {
		return nil, err
	}

	code := couponCode
	if code == "" && c.CouponCode != "" {
		code = c.CouponCode
	}
	var live *coupon.Coupon
	if code != "" {
		live, err = s.coupons.GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
	}

	var balance int64
	if owner.UserID != nil && redeemPoints > 0 {
		balance, err = s.ledger.Balance(ctx, *owner.UserID)
		if err != nil {
			return nil, err
		}
	}

	totals, err := s.pricer.Price(PriceInput{
		Lines:           lines,
		Coupon:          live,
		Guest:           owner.IsGuest(),
		PointsBalance:   balance,
		PointsRequested: redeemPoints,
		Now:             s.now(),
	})
	if err != nil {
		return nil, err
	}
	return &Prepared{Cart: c, Lines: lines, Coupon: live, Totals: totals}, nil
}

// Quote previews totals, VAT and invoice eligibility for the current cart
func (s *Service) Quote(ctx context.Context, owner cart.Owner, req *QuoteRequest) (*Quote, error) {
	view, err := s.carts.GetCart(ctx, owner)
	if err != nil {
		return nil, err
	}

	prepared, err := s.Prepare(ctx, owner, req.CouponCode, req.RedeemPoints)
	if err != nil {
		return nil, err
	}

	q := &Quote{
		Cart:           view,
		Totals:         prepared.Totals,
		PaymentOptions: PaymentOptions(),
	}
	if owner.UserID != nil {
		if q.PointsBalance, err = s.ledger.Balance(ctx, *owner.UserID); err != nil {
			return nil, err
		}
	}
	if req.VATInfo != nil && !req.VATInfo.IsZero() {
		result := vat.ValidateVATInfo(req.VATInfo.Normalized())
		q.VATInfo = &result
	}
	return q, nil
}

// ApplyCoupon checks the code against the live coupon and the cart subtotal,
// then snapshots it on the cart
func (s *Service) ApplyCoupon(ctx context.Context, owner cart.Owner, code string) (*Quote, error) {
	c, err := cart.Load(s.db.WithContext(ctx), owner)
	if err != nil {
		return nil, err
	}
	lines, err := c.Lines()
	if err != nil {
		return nil, err
	}

	app, err := s.coupons.Apply(ctx, code, cart.Subtotal(lines))
	if err != nil {
		return nil, err
	}
	if err := s.carts.SetCoupon(ctx, owner, app.Coupon.Snapshot()); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"coupon_code": app.Coupon.Code,
		"discount":    app.DiscountAmount,
		"guest":       owner.IsGuest(),
	}).Info("Coupon applied to cart")

	return s.Quote(ctx, owner, &QuoteRequest{})
}

// RemoveCoupon drops the cart's coupon snapshot
func (s *Service) RemoveCoupon(ctx context.Context, owner cart.Owner) (*Quote, error) {
	if err := s.carts.ClearCoupon(ctx, owner); err != nil && !errors.Is(err, cart.ErrEmpty) {
		return nil, err
	}
	return s.Quote(ctx, owner, &QuoteRequest{})
}
