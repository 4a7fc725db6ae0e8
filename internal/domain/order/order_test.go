package order

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/inventory"
	"github.com/your-org/storefront/internal/domain/loyalty"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/domain/user"
	"github.com/your-org/storefront/internal/domain/vat"
	"github.com/your-org/storefront/internal/pkg/auth"
	"github.com/your-org/storefront/internal/testutil"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	db      *gorm.DB
	carts   *cart.Service
	coupons *coupon.Service
	buyer   *user.User
	kettle  *product.Product
	hook    *test.Hook
}

func setup(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db := testutil.NewDB(t,
		&product.Product{}, &product.Specification{}, &product.ProductVariant{}, &product.VariantOption{},
		&user.User{}, &user.Address{},
		&cart.Cart{}, &cart.CartItem{},
		&coupon.Coupon{}, &inventory.StockMovement{}, &loyalty.PointsTransaction{},
		&Order{}, &OrderItem{}, &OrderStatusHistory{},
	)
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	rules := loyalty.DefaultRules()
	carts := cart.NewService(db, log)
	coupons := coupon.NewService(db, log)
	ledger := loyalty.NewLedger(db, log, rules)
	checkoutSvc := checkout.NewService(db, log, checkout.NewPricer(vat.Default(), rules), carts, coupons, ledger)

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	svc := NewService(db, &config.Config{Store: config.StoreConfig{Currency: "VND"}}, log, Deps{
		Checkout:  checkoutSvc,
		Coupons:   coupons,
		Inventory: inventory.NewService(db, log),
		Ledger:    ledger,
		Addresses: user.NewAddressService(db, log),
		Tokens:    auth.NewGuestTokenManager(bcrypt.MinCost),
	}, opts...)
	t.Cleanup(svc.Wait)

	buyer := &user.User{Email: "lan@example.com", FirstName: "Lan", LoyaltyPoints: 20}
	require.NoError(t, db.Create(buyer).Error)
	kettle := &product.Product{Name: "Ấm đun nước", Slug: "am-dun-nuoc", Price: 500000, Stock: 5, IsActive: true}
	require.NoError(t, db.Create(kettle).Error)
	_, err := coupons.CreateCoupon(context.Background(), &coupon.CreateCouponRequest{Code: "TEN10", Discount: 10, MaxUses: 5})
	require.NoError(t, err)

	return &fixture{svc: svc, db: db, carts: carts, coupons: coupons, buyer: buyer, kettle: kettle, hook: hook}
}

func (f *fixture) fillCart(t *testing.T, owner cart.Owner, qty int) {
	t.Helper()
	_, err := f.carts.AddItem(context.Background(), owner, &cart.AddItemRequest{ProductID: f.kettle.ID, Quantity: qty})
	require.NoError(t, err)
}

func (f *fixture) reload(t *testing.T) (stock, sold, couponUses int, points int64) {
	t.Helper()
	var p product.Product
	require.NoError(t, f.db.First(&p, f.kettle.ID).Error)
	c, err := f.coupons.GetByCode(context.Background(), "TEN10")
	require.NoError(t, err)
	var u user.User
	require.NoError(t, f.db.First(&u, f.buyer.ID).Error)
	return p.Stock, p.Sold, c.UsedCount, u.LoyaltyPoints
}

func shippingAddress() *Address {
	return &Address{
		FirstName:    "Lan",
		LastName:     "Nguyễn",
		AddressLine1: "12 Lý Thái Tổ",
		City:         "Hà Nội",
		Phone:        "0901234567",
	}
}

func (f *fixture) userRequest() *CreateOrderRequest {
	return &CreateOrderRequest{
		ShippingAddress: shippingAddress(),
		PaymentMethod:   checkout.PaymentCOD,
		CouponCode:      "TEN10",
		RedeemPoints:    10,
	}
}

func TestCreateOrderCommitsAllEffects(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	owner := cart.Owner{UserID: &f.buyer.ID}
	f.fillCart(t, owner, 2)

	placed, err := f.svc.CreateOrder(ctx, Buyer{UserID: &f.buyer.ID}, f.userRequest())
	require.NoError(t, err)
	o := placed.Order

	assert.Equal(t, "ORD-20240601-00001", o.OrderNumber)
	assert.Equal(t, OrderStatusPending, o.Status)
	assert.Equal(t, PaymentStatusPending, o.PaymentStatus)
	assert.Equal(t, "lan@example.com", o.Email)
	assert.Equal(t, int64(1000000), o.SubtotalAmount)
	assert.Equal(t, int64(0), o.ShippingAmount)
	assert.Equal(t, int64(100000), o.DiscountAmount)
	assert.Equal(t, int64(10000), o.LoyaltyDiscount)
	assert.Equal(t, int64(890000), o.TotalAmount)
	assert.Equal(t, int64(89), o.LoyaltyPointsEarned)
	assert.Equal(t, "VN", o.ShippingAddress.Country)
	assert.Empty(t, placed.GuestToken)
	require.Len(t, o.Items, 1)
	assert.Equal(t, int64(500000), o.Items[0].Price)
	require.Len(t, o.StatusHistory, 1)

	stock, sold, uses, points := f.reload(t)
	assert.Equal(t, 3, stock)
	assert.Equal(t, 2, sold)
	assert.Equal(t, 1, uses)
	assert.Equal(t, int64(10), points)

	_, err = cart.Load(f.db, owner)
	assert.ErrorIs(t, err, cart.ErrEmpty)

	var movements int64
	require.NoError(t, f.db.Model(&inventory.StockMovement{}).Where("order_id = ?", o.ID).Count(&movements).Error)
	assert.Equal(t, int64(1), movements)
}

func TestCreateOrderRollsBackOnFailure(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	owner := cart.Owner{UserID: &f.buyer.ID}
	f.fillCart(t, owner, 2)

	boom := errors.New("ledger write failed")
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("fail_ledger", func(tx *gorm.DB) {
		if tx.Statement.Table == "loyalty_transactions" {
			_ = tx.AddError(boom)
		}
	}))

	_, err := f.svc.CreateOrder(ctx, Buyer{UserID: &f.buyer.ID}, f.userRequest())
	require.ErrorIs(t, err, boom)

	stock, sold, uses, points := f.reload(t)
	assert.Equal(t, 5, stock)
	assert.Equal(t, 0, sold)
	assert.Equal(t, 0, uses)
	assert.Equal(t, int64(20), points)

	var orders int64
	require.NoError(t, f.db.Model(&Order{}).Count(&orders).Error)
	assert.Zero(t, orders)

	c, err := cart.Load(f.db, owner)
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)
}

func TestCreateOrderRejectsShortStock(t *testing.T) {
	f := setup(t)
	owner := cart.Owner{UserID: &f.buyer.ID}
	f.fillCart(t, owner, 3)
	require.NoError(t, f.db.Model(&product.Product{}).Where("id = ?", f.kettle.ID).Update("stock", 1).Error)

	_, err := f.svc.CreateOrder(context.Background(), Buyer{UserID: &f.buyer.ID}, f.userRequest())
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	shortage, ok := inventory.AsInsufficientStock(err)
	require.True(t, ok)
	require.Len(t, shortage.Shortfalls, 1)
	assert.Equal(t, 1, shortage.Shortfalls[0].Available)
}

func TestConcurrentCheckoutsForLastUnit(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.db.Model(&product.Product{}).Where("id = ?", f.kettle.ID).Update("stock", 1).Error)

	sessions := []string{"sess-a", "sess-b", "sess-c"}
	for _, s := range sessions {
		f.fillCart(t, cart.Owner{SessionID: s}, 1)
	}

	var wg sync.WaitGroup
	results := make([]error, len(sessions))
	for i, s := range sessions {
		wg.Add(1)
		go func(i int, session string) {
			defer wg.Done()
			_, results[i] = f.svc.CreateOrder(context.Background(), Buyer{SessionID: session}, &CreateOrderRequest{
				ShippingAddress: shippingAddress(),
				PaymentMethod:   checkout.PaymentCOD,
				Guest:           &GuestInfo{Email: session + "@example.com"},
			})
		}(i, s)
	}
	wg.Wait()

	placed := 0
	for _, err := range results {
		if err == nil {
			placed++
			continue
		}
		assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
	}
	assert.Equal(t, 1, placed)

	stock, sold, _, _ := f.reload(t)
	assert.Equal(t, 0, stock)
	assert.Equal(t, 1, sold)
}

func TestCreateOrderValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	buyer := Buyer{UserID: &f.buyer.ID}
	f.fillCart(t, cart.Owner{UserID: &f.buyer.ID}, 1)

	req := f.userRequest()
	req.PaymentMethod = "crypto"
	_, err := f.svc.CreateOrder(ctx, buyer, req)
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)

	req = f.userRequest()
	req.ShippingAddress = &Address{FirstName: "Lan"}
	_, err = f.svc.CreateOrder(ctx, buyer, req)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	req = f.userRequest()
	req.RequestVATInvoice = true
	req.VATInfo = &vat.Info{CompanyName: "Công ty", TaxCode: "12"}
	_, err = f.svc.CreateOrder(ctx, buyer, req)
	assert.ErrorIs(t, err, ErrInvalidVATInfo)

	guest := Buyer{SessionID: "sess-x"}
	req = f.userRequest()
	req.RedeemPoints = 0
	_, err = f.svc.CreateOrder(ctx, guest, req)
	assert.ErrorIs(t, err, ErrGuestEmailRequired)

	req.RedeemPoints = 5
	req.Guest = &GuestInfo{Email: "guest@example.com"}
	_, err = f.svc.CreateOrder(ctx, guest, req)
	assert.ErrorIs(t, err, loyalty.ErrGuestRedemption)

	require.NoError(t, f.db.Model(&user.User{}).Where("id = ?", f.buyer.ID).Update("is_banned", true).Error)
	_, err = f.svc.CreateOrder(ctx, buyer, f.userRequest())
	assert.ErrorIs(t, err, user.ErrBanned)
}

func TestCreateOrderFromSavedAddress(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.fillCart(t, cart.Owner{UserID: &f.buyer.ID}, 1)

	saved, err := user.NewAddressService(f.db, logrus.New()).CreateAddress(ctx, f.buyer.ID, &user.CreateAddressRequest{
		FirstName:    "Lan",
		LastName:     "Nguyễn",
		AddressLine1: "5 Nguyễn Huệ",
		City:         "TP. Hồ Chí Minh",
		Country:      "VN",
		Phone:        "0907654321",
	})
	require.NoError(t, err)

	req := &CreateOrderRequest{AddressID: &saved.ID, PaymentMethod: checkout.PaymentBankTransfer}
	placed, err := f.svc.CreateOrder(ctx, Buyer{UserID: &f.buyer.ID}, req)
	require.NoError(t, err)
	assert.Equal(t, "5 Nguyễn Huệ", placed.Order.ShippingAddress.AddressLine1)
	assert.Equal(t, int64(500000), placed.Order.TotalAmount)
}

func TestGuestOrderToken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	owner := cart.Owner{SessionID: "sess-guest"}
	f.fillCart(t, owner, 1)

	placed, err := f.svc.CreateOrder(ctx, Buyer{SessionID: "sess-guest"}, &CreateOrderRequest{
		ShippingAddress: shippingAddress(),
		PaymentMethod:   checkout.PaymentBankTransfer,
		Guest:           &GuestInfo{Name: "Minh", Email: " Minh@Example.com "},
	})
	require.NoError(t, err)
	require.Len(t, placed.GuestToken, 32)
	assert.True(t, placed.Order.IsGuest())
	assert.Equal(t, "minh@example.com", placed.Order.Email)
	assert.Zero(t, placed.Order.LoyaltyPointsEarned)

	number := placed.Order.OrderNumber
	got, err := f.svc.GetGuestOrder(ctx, number, placed.GuestToken)
	require.NoError(t, err)
	assert.Equal(t, placed.Order.ID, got.ID)

	_, err = f.svc.GetGuestOrder(ctx, number, strings.Repeat("0", 32))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.GetGuestOrder(ctx, number, "")
	assert.ErrorIs(t, err, ErrNotFound)

	cancelled, err := f.svc.CancelGuestOrder(ctx, number, placed.GuestToken, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, PaymentStatusCancelled, cancelled.PaymentStatus)

	stock, sold, _, _ := f.reload(t)
	assert.Equal(t, 5, stock)
	assert.Equal(t, 0, sold)
}

func TestCancelReversesCheckout(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.fillCart(t, cart.Owner{UserID: &f.buyer.ID}, 2)

	placed, err := f.svc.CreateOrder(ctx, Buyer{UserID: &f.buyer.ID}, f.userRequest())
	require.NoError(t, err)

	other := &user.User{Email: "other@example.com"}
	require.NoError(t, f.db.Create(other).Error)
	_, err = f.svc.CancelUserOrder(ctx, other.ID, placed.Order.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)

	cancelled, err := f.svc.CancelUserOrder(ctx, f.buyer.ID, placed.Order.ID, "ordered twice")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	require.Len(t, cancelled.StatusHistory, 2)
	assert.Equal(t, "Cancelled by customer: ordered twice", cancelled.StatusHistory[1].Note)

	stock, sold, uses, points := f.reload(t)
	assert.Equal(t, 5, stock)
	assert.Equal(t, 0, sold)
	assert.Equal(t, 0, uses)
	assert.Equal(t, int64(20), points)

	_, err = f.svc.CancelUserOrder(ctx, f.buyer.ID, placed.Order.ID, "")
	assert.ErrorIs(t, err, ErrCannotCancel)
}

func TestStatusLifecycleAndAccrual(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.fillCart(t, cart.Owner{UserID: &f.buyer.ID}, 2)
	admin := uint(99)

	placed, err := f.svc.CreateOrder(ctx, Buyer{UserID: &f.buyer.ID}, f.userRequest())
	require.NoError(t, err)
	id := placed.Order.ID

	_, err = f.svc.UpdateStatus(ctx, id, OrderStatusShipped, "", &admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.UpdateStatus(ctx, id, "lost", "", &admin)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	for _, next := range []OrderStatus{OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered} {
		_, err = f.svc.UpdateStatus(ctx, id, next, "", &admin)
		require.NoError(t, err, next)
	}
	delivered, err := f.svc.UpdateStatus(ctx, id, OrderStatusDelivered, "courier confirmed", &admin)
	require.NoError(t, err)

	assert.Equal(t, PaymentStatusPaid, delivered.PaymentStatus)
	assert.True(t, delivered.LoyaltyPointsApplied)
	assert.NotNil(t, delivered.DeliveredAt)
	require.Len(t, delivered.StatusHistory, 5)
	assert.Equal(t, "courier confirmed", delivered.StatusHistory[4].Note)
	assert.Equal(t, &admin, delivered.StatusHistory[4].CreatedBy)

	_, _, _, points := f.reload(t)
	assert.Equal(t, int64(10+89), points)

	_, err = f.svc.UpdateStatus(ctx, id, OrderStatusCancelled, "", &admin)
	assert.ErrorIs(t, err, ErrCannotCancel)
}

type failingNotifier struct{}

func (failingNotifier) OrderPlaced(context.Context, *Order) error {
	return errors.New("smtp unavailable")
}

func (failingNotifier) OrderStatusChanged(context.Context, *Order, OrderStatus) error {
	return errors.New("smtp unavailable")
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []EventType
}

func (p *recordingPublisher) Publish(_ context.Context, evt Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt.Type)
	return nil
}

func TestSideEffectFailuresAreLogged(t *testing.T) {
	events := &recordingPublisher{}
	f := setup(t, WithNotifier(failingNotifier{}), WithPublisher(events))
	ctx := context.Background()
	f.fillCart(t, cart.Owner{UserID: &f.buyer.ID}, 1)

	placed, err := f.svc.CreateOrder(ctx, Buyer{UserID: &f.buyer.ID}, &CreateOrderRequest{
		ShippingAddress: shippingAddress(),
		PaymentMethod:   checkout.PaymentCard,
	})
	require.NoError(t, err)
	_, err = f.svc.CancelUserOrder(ctx, f.buyer.ID, placed.Order.ID, "")
	require.NoError(t, err)
	f.svc.Wait()

	failures := 0
	for _, e := range f.hook.AllEntries() {
		if e.Message == "Order side effect failed" {
			failures++
			assert.Equal(t, logrus.WarnLevel, e.Level)
		}
	}
	assert.Equal(t, 2, failures)
	assert.ElementsMatch(t, []EventType{EventOrderCreated, EventOrderCancelled}, events.events)
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]uint
}

func (m *memoryIdempotency) Claim(_ context.Context, key string) (uint, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.keys[key]; ok {
		return id, false, nil
	}
	m.keys[key] = 0
	return 0, true, nil
}

func (m *memoryIdempotency) Complete(_ context.Context, key string, orderID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = orderID
	return nil
}

func (m *memoryIdempotency) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

func TestIdempotentCreate(t *testing.T) {
	store := &memoryIdempotency{keys: map[string]uint{}}
	f := setup(t, WithIdempotency(store))
	ctx := context.Background()
	f.fillCart(t, cart.Owner{UserID: &f.buyer.ID}, 1)
	buyer := Buyer{UserID: &f.buyer.ID, IdempotencyKey: "checkout-1"}
	scope := buyer.idempotencyScope()
	store.keys[scope+":in-flight"] = 0
	req := &CreateOrderRequest{ShippingAddress: shippingAddress(), PaymentMethod: checkout.PaymentCOD}

	first, err := f.svc.CreateOrder(ctx, buyer, req)
	require.NoError(t, err)
	assert.False(t, first.Replayed)
	assert.Equal(t, first.Order.ID, store.keys[scope+":checkout-1"])

	second, err := f.svc.CreateOrder(ctx, buyer, req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Order.ID, second.Order.ID)

	stock, _, _, _ := f.reload(t)
	assert.Equal(t, 4, stock)

	_, err = f.svc.CreateOrder(ctx, Buyer{UserID: &f.buyer.ID, IdempotencyKey: "in-flight"}, req)
	assert.ErrorIs(t, err, ErrRequestInProgress)

	_, err = f.svc.CreateOrder(ctx, Buyer{UserID: &f.buyer.ID, IdempotencyKey: "empty-cart"}, req)
	assert.ErrorIs(t, err, cart.ErrEmpty)
	_, held := store.keys[scope+":empty-cart"]
	assert.False(t, held, "failed attempts release their key")
}

func TestIdempotencyKeysAreScopedPerGuestSession(t *testing.T) {
	for _, tc := range []struct {
		name  string
		store *memoryIdempotency
	}{
		{name: "database only"},
		{name: "with store", store: &memoryIdempotency{keys: map[string]uint{}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var opts []Option
			if tc.store != nil {
				opts = append(opts, WithIdempotency(tc.store))
			}
			f := setup(t, opts...)
			ctx := context.Background()
			req := func(email string) *CreateOrderRequest {
				return &CreateOrderRequest{
					ShippingAddress: shippingAddress(),
					PaymentMethod:   checkout.PaymentCOD,
					Guest:           &GuestInfo{Email: email},
				}
			}

			f.fillCart(t, cart.Owner{SessionID: "sess-a"}, 1)
			f.fillCart(t, cart.Owner{SessionID: "sess-b"}, 2)
			alice := Buyer{SessionID: "sess-a", IdempotencyKey: "checkout-1"}
			bob := Buyer{SessionID: "sess-b", IdempotencyKey: "checkout-1"}

			first, err := f.svc.CreateOrder(ctx, alice, req("alice@example.com"))
			require.NoError(t, err)
			second, err := f.svc.CreateOrder(ctx, bob, req("bob@example.com"))
			require.NoError(t, err)

			assert.False(t, second.Replayed)
			assert.NotEqual(t, first.Order.ID, second.Order.ID)
			assert.Equal(t, "bob@example.com", second.Order.Email)
			assert.NotEmpty(t, second.GuestToken)
			assert.Len(t, second.Order.Items, 1)
			assert.Equal(t, 2, second.Order.Items[0].Quantity)

			again, err := f.svc.CreateOrder(ctx, alice, req("alice@example.com"))
			require.NoError(t, err)
			assert.True(t, again.Replayed)
			assert.Equal(t, first.Order.ID, again.Order.ID)
			assert.Empty(t, again.GuestToken)

			stock, _, _, _ := f.reload(t)
			assert.Equal(t, 2, stock)
			if tc.store != nil {
				assert.Len(t, tc.store.keys, 2)
				assert.NotContains(t, tc.store.keys, "checkout-1")
			}
		})
	}
}

// unavailableIdempotency fails every claim. The first claim runs onClaim
// to let a duplicate request commit in between.
type unavailableIdempotency struct {
	fired   bool
	onClaim func()
}

func (u *unavailableIdempotency) Claim(context.Context, string) (uint, bool, error) {
	if !u.fired {
		u.fired = true
		u.onClaim()
	}
	return 0, false, errors.New("redis: connection refused")
}

func (u *unavailableIdempotency) Complete(context.Context, string, uint) error { return nil }
func (u *unavailableIdempotency) Release(context.Context, string) error       { return nil }

func TestDuplicateCheckoutReplaysWinnerWhenStoreIsDown(t *testing.T) {
	store := &unavailableIdempotency{}
	f := setup(t, WithIdempotency(store))
	ctx := context.Background()
	f.fillCart(t, cart.Owner{UserID: &f.buyer.ID}, 1)
	buyer := Buyer{UserID: &f.buyer.ID, IdempotencyKey: "checkout-1"}
	req := &CreateOrderRequest{ShippingAddress: shippingAddress(), PaymentMethod: checkout.PaymentCOD}

	var winner *PlacedOrder
	store.onClaim = func() {
		var err error
		winner, err = f.svc.CreateOrder(ctx, buyer, req)
		require.NoError(t, err)
	}

	loser, err := f.svc.CreateOrder(ctx, buyer, req)
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.True(t, loser.Replayed)
	assert.Equal(t, winner.Order.ID, loser.Order.ID)

	var orders int64
	require.NoError(t, f.db.Model(&Order{}).Count(&orders).Error)
	assert.Equal(t, int64(1), orders)
	stock, _, _, _ := f.reload(t)
	assert.Equal(t, 4, stock)
}

func TestListOrders(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.fillCart(t, cart.Owner{UserID: &f.buyer.ID}, 1)
		_, err := f.svc.CreateOrder(ctx, Buyer{UserID: &f.buyer.ID}, &CreateOrderRequest{
			ShippingAddress: shippingAddress(),
			PaymentMethod:   checkout.PaymentCOD,
		})
		require.NoError(t, err)
	}
	_, err := f.svc.UpdateStatus(ctx, 1, OrderStatusConfirmed, "", nil)
	require.NoError(t, err)

	all, err := f.svc.ListUserOrders(ctx, f.buyer.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Pagination.Total)
	assert.Len(t, all.Orders, 2)
	assert.True(t, all.Pagination.HasNext)

	confirmed, err := f.svc.ListOrders(ctx, &OrderListRequest{Status: OrderStatusConfirmed})
	require.NoError(t, err)
	require.Len(t, confirmed.Orders, 1)
	assert.Equal(t, uint(1), confirmed.Orders[0].ID)

	byNumber, err := f.svc.GetOrderByNumber(ctx, "ord-20240601-00002")
	require.NoError(t, err)
	assert.Equal(t, uint(2), byNumber.ID)

	_, err = f.svc.ListOrders(ctx, &OrderListRequest{DateFrom: "01/06/2024"})
	assert.ErrorIs(t, err, ErrInvalidDate)
}
