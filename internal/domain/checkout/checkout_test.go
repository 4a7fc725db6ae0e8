package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/loyalty"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/domain/user"
	"github.com/your-org/storefront/internal/domain/vat"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/testutil"
)

var now = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func line(name string, price int64, qty int) cart.Line {
	return cart.Line{Name: name, UnitPrice: price, Quantity: qty, LineTotal: price * int64(qty)}
}

func TestPriceReferenceScenario(t *testing.T) {
	p := NewPricer(vat.Default(), loyalty.DefaultRules())

	totals, err := p.Price(PriceInput{
		Lines: []cart.Line{line("A", 550000, 2), line("B", 330000, 1)},
		Now:   now,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1430000), totals.Subtotal)
	assert.Equal(t, int64(0), totals.ShippingFee)
	assert.Equal(t, int64(1430000), totals.Total)
	assert.Equal(t, int64(1300000), totals.VAT.PriceBeforeVAT)
	assert.Equal(t, int64(130000), totals.VAT.VATAmount)
	assert.Equal(t, int64(143), totals.PointsEarned)
	assert.True(t, totals.VATInvoiceEligible)
}

func TestPriceWithCouponAndPoints(t *testing.T) {
	p := NewPricer(vat.Default(), loyalty.DefaultRules())
	c := &coupon.Coupon{Code: "TEN10", Discount: 10, MaxUses: 5, Active: true}

	totals, err := p.Price(PriceInput{
		Lines:           []cart.Line{line("A", 200000, 1)},
		Coupon:          c,
		PointsBalance:   50,
		PointsRequested: 50,
		Now:             now,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(30000), totals.ShippingFee)
	assert.Equal(t, int64(20000), totals.CouponDiscount)
	assert.Equal(t, int64(50000), totals.LoyaltyDiscount)
	assert.Equal(t, int64(160000), totals.Total) // 200k + 30k - 20k - 50k
	assert.True(t, totals.VATInvoiceEligible, "eligibility uses the pre-discount subtotal")
	assert.Equal(t, totals.Total, totals.VAT.PriceWithVAT)
	assert.Equal(t, totals.Total, totals.VAT.PriceBeforeVAT+totals.VAT.VATAmount)
}

func TestPriceRejections(t *testing.T) {
	p := NewPricer(vat.Default(), loyalty.DefaultRules())
	lines := []cart.Line{line("A", 100000, 1)}

	_, err := p.Price(PriceInput{Now: now})
	assert.ErrorIs(t, err, cart.ErrEmpty)

	_, err = p.Price(PriceInput{Lines: lines, Guest: true, PointsRequested: 10, Now: now})
	assert.ErrorIs(t, err, loyalty.ErrGuestRedemption)

	_, err = p.Price(PriceInput{Lines: lines, PointsBalance: 5, PointsRequested: 10, Now: now})
	assert.ErrorIs(t, err, loyalty.ErrInsufficientPoints)

	minimum := &coupon.Coupon{Code: "BIG50", Discount: 50, MinAmount: 500000, MaxUses: 5, Active: true}
	_, err = p.Price(PriceInput{Lines: lines, Coupon: minimum, Now: now})
	assert.ErrorIs(t, err, coupon.ErrBelowMinimum)
}

func TestPriceNeverNegative(t *testing.T) {
	p := NewPricer(vat.Default(), loyalty.DefaultRules())
	full := &coupon.Coupon{Code: "FREE1", Discount: 100, MaxUses: 5, Active: true}

	totals, err := p.Price(PriceInput{
		Lines:           []cart.Line{line("A", 600000, 1)},
		Coupon:          full,
		PointsBalance:   1000,
		PointsRequested: 1000,
		Now:             now,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), totals.Total)
	assert.Equal(t, int64(0), totals.PointsUsed, "nothing left to pay with points")
}

func TestPaymentMethodValid(t *testing.T) {
	assert.True(t, PaymentCOD.Valid())
	assert.False(t, PaymentMethod("crypto").Valid())
}

func TestApplyCouponAndQuote(t *testing.T) {
	db := testutil.NewDB(t,
		&product.Product{}, &product.Specification{}, &product.ProductVariant{}, &product.VariantOption{},
		&cart.Cart{}, &cart.CartItem{}, &coupon.Coupon{}, &user.User{}, &user.Address{}, &loyalty.PointsTransaction{},
	)
	log := logger.Discard()
	carts := cart.NewService(db, log)
	coupons := coupon.NewService(db, log)
	ledger := loyalty.NewLedger(db, log, loyalty.DefaultRules())
	svc := NewService(db, log, NewPricer(vat.Default(), loyalty.DefaultRules()), carts, coupons, ledger)
	ctx := context.Background()

	u := &user.User{Email: "an@example.com", LoyaltyPoints: 30}
	require.NoError(t, db.Create(u).Error)
	p := &product.Product{Name: "Bình nước", Slug: "binh-nuoc", Price: 200000, Stock: 4, IsActive: true}
	require.NoError(t, db.Create(p).Error)
	_, err := coupons.CreateCoupon(ctx, &coupon.CreateCouponRequest{Code: "TEN10", Discount: 10, MaxUses: 5, MinAmount: 100000})
	require.NoError(t, err)

	owner := cart.Owner{UserID: &u.ID}
	_, err = svc.ApplyCoupon(ctx, owner, "TEN10")
	assert.ErrorIs(t, err, cart.ErrEmpty)

	_, err = carts.AddItem(ctx, owner, &cart.AddItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	q, err := svc.ApplyCoupon(ctx, owner, "ten10")
	require.NoError(t, err)
	assert.Equal(t, "TEN10", q.Totals.CouponCode)
	assert.Equal(t, int64(20000), q.Totals.CouponDiscount)
	assert.Equal(t, int64(210000), q.Totals.Total)
	assert.Equal(t, int64(30), q.PointsBalance)
	require.NotNil(t, q.Cart.Coupon)

	q, err = svc.Quote(ctx, owner, &QuoteRequest{
		RedeemPoints: 10,
		VATInfo:      &vat.Info{CompanyName: "X", Address: "short"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(200000), q.Totals.Total)
	require.NotNil(t, q.VATInfo)
	assert.False(t, q.VATInfo.IsValid)

	q, err = svc.RemoveCoupon(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, q.Totals.CouponCode)
	assert.Equal(t, int64(230000), q.Totals.Total)
}
