package coupon

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/testutil"
	"gorm.io/gorm"
)

func ptrTime(t time.Time) *time.Time { return &t }

func TestNormalizeCode(t *testing.T) {
	code, err := NormalizeCode(" low50 ")
	require.NoError(t, err)
	assert.Equal(t, "LOW50", code)

	for _, bad := range []string{"LOW5", "LOW500", "", "   "} {
		_, err := NormalizeCode(bad)
		assert.ErrorIs(t, err, ErrInvalidCode, bad)
	}
}

func TestIsValidUsageCap(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := &Coupon{Code: "SALE1", Discount: 10, MaxUses: 5, UsedCount: 4, Active: true}
	assert.True(t, c.IsValid(now))

	c.UsedCount = 5
	assert.False(t, c.IsValid(now))

	c.StartDate = ptrTime(now.Add(-time.Hour))
	c.EndDate = ptrTime(now.Add(time.Hour))
	assert.False(t, c.IsValid(now), "exhausted coupon is never valid, even inside its window")
}

func TestCheckReasons(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	base := Coupon{Code: "SALE1", Discount: 10, MinAmount: 100000, MaxUses: 3, Active: true}

	inactive := base
	inactive.Active = false
	assert.ErrorIs(t, inactive.Check(200000, now), ErrInactive)

	notStarted := base
	notStarted.StartDate = ptrTime(now.Add(24 * time.Hour))
	assert.ErrorIs(t, notStarted.Check(200000, now), ErrNotStarted)

	expired := base
	expired.EndDate = ptrTime(now.Add(-time.Minute))
	assert.ErrorIs(t, expired.Check(200000, now), ErrExpired)

	exhausted := base
	exhausted.UsedCount = 3
	assert.ErrorIs(t, exhausted.Check(200000, now), ErrExhausted)

	assert.ErrorIs(t, base.Check(99999, now), ErrBelowMinimum)
	assert.NoError(t, base.Check(100000, now))
}

func TestDiscountForFloors(t *testing.T) {
	c := &Coupon{Discount: 10}
	assert.Equal(t, int64(20000), c.DiscountFor(200000))

	c.Discount = 15
	// 199999 * 15 / 100 = 29999.85
	assert.Equal(t, int64(29999), c.DiscountFor(199999))

	c.Discount = 0
	assert.Equal(t, int64(0), c.DiscountFor(500000))
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	db := testutil.NewDB(t, &Coupon{})
	return NewService(db, logger.Discard()), db
}

func TestCreateCoupon(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.CreateCoupon(ctx, &CreateCouponRequest{Code: "low50", Discount: 50, MaxUses: 10, MinAmount: 300000})
	require.NoError(t, err)
	assert.Equal(t, "LOW50", c.Code)
	assert.True(t, c.Active)

	_, err = svc.CreateCoupon(ctx, &CreateCouponRequest{Code: "LOW50", Discount: 10, MaxUses: 1})
	assert.ErrorIs(t, err, ErrDuplicateCode)

	_, err = svc.CreateCoupon(ctx, &CreateCouponRequest{Code: "BIG11", Discount: 101, MaxUses: 1})
	assert.ErrorIs(t, err, ErrInvalidDiscount)

	_, err = svc.CreateCoupon(ctx, &CreateCouponRequest{Code: "BIG12", Discount: 10, MaxUses: 11})
	assert.ErrorIs(t, err, ErrInvalidMaxUses)

	_, err = svc.CreateCoupon(ctx, &CreateCouponRequest{Code: "TOOLONG", Discount: 10, MaxUses: 1})
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestApply(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateCoupon(ctx, &CreateCouponRequest{Code: "TEN10", Discount: 10, MaxUses: 5, MinAmount: 100000})
	require.NoError(t, err)

	app, err := svc.Apply(ctx, "ten10", 200000)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), app.DiscountAmount)

	_, err = svc.Apply(ctx, "TEN10", 50000)
	assert.ErrorIs(t, err, ErrBelowMinimum)

	_, err = svc.Apply(ctx, "NONE0", 500000)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedeemRespectsCap(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateCoupon(ctx, &CreateCouponRequest{Code: "ONCE1", Discount: 5, MaxUses: 2})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = db.Transaction(func(tx *gorm.DB) error {
				return svc.Redeem(tx, "ONCE1")
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrNotRedeemable)
		}
	}
	assert.Equal(t, 2, succeeded)

	c, err := svc.GetByCode(ctx, "ONCE1")
	require.NoError(t, err)
	assert.Equal(t, 2, c.UsedCount)
}

func TestReleaseNeverBelowZero(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateCoupon(ctx, &CreateCouponRequest{Code: "BACK1", Discount: 5, MaxUses: 3})
	require.NoError(t, err)

	require.NoError(t, svc.Redeem(db, "BACK1"))
	require.NoError(t, svc.Release(db, "BACK1"))
	require.NoError(t, svc.Release(db, "BACK1"))

	c, err := svc.GetByCode(ctx, "BACK1")
	require.NoError(t, err)
	assert.Equal(t, 0, c.UsedCount)
}

func TestRedeemInactiveCoupon(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateCoupon(ctx, &CreateCouponRequest{Code: "OFF01", Discount: 5, MaxUses: 3})
	require.NoError(t, err)
	_, err = svc.SetActive(ctx, "OFF01", false)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Redeem(db, "OFF01"), ErrNotRedeemable)
}

func TestRedeemOutsideValidityWindow(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	for _, code := range []string{"LATE1", "SOON1", "OPEN1"} {
		_, err := svc.CreateCoupon(ctx, &CreateCouponRequest{Code: code, Discount: 5, MaxUses: 3})
		require.NoError(t, err)
	}
	require.NoError(t, db.Model(&Coupon{}).Where("code = ?", "LATE1").
		Update("end_date", now.Add(-time.Minute)).Error)
	require.NoError(t, db.Model(&Coupon{}).Where("code = ?", "SOON1").
		Update("start_date", now.Add(24*time.Hour)).Error)
	require.NoError(t, db.Model(&Coupon{}).Where("code = ?", "OPEN1").
		Updates(map[string]interface{}{"start_date": now.Add(-time.Hour), "end_date": now.Add(time.Hour)}).Error)

	assert.ErrorIs(t, svc.Redeem(db, "LATE1"), ErrNotRedeemable)
	assert.ErrorIs(t, svc.Redeem(db, "SOON1"), ErrNotRedeemable)
	require.NoError(t, svc.Redeem(db, "OPEN1"))

	late, err := svc.GetByCode(ctx, "LATE1")
	require.NoError(t, err)
	assert.Equal(t, 0, late.UsedCount)
}
