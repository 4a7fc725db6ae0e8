// internal/domain/order/service.go
package order

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/inventory"
	"github.com/your-org/storefront/internal/domain/loyalty"
	"github.com/your-org/storefront/internal/domain/user"
	"github.com/your-org/storefront/internal/domain/vat"
	"gorm.io/gorm"
)

const defaultDispatchTimeout = 15 * time.Second

// Deps are the collaborators the order service needs
type Deps struct {
	Checkout  *checkout.Service
	Coupons   *coupon.Service
	Inventory *inventory.Service
	Ledger    *loyalty.Ledger
	Addresses *user.AddressService
	Tokens    TokenHasher
}

// Option customizes a Service
type Option func(*Service)

// WithNotifier sets the buyer notifier (email)
func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

// WithPublisher sets the lifecycle event publisher
func WithPublisher(p EventPublisher) Option { return func(s *Service) { s.events = p } }

// WithIdempotency sets the checkout idempotency store
func WithIdempotency(store IdempotencyStore) Option {
	return func(s *Service) { s.idempotency = store }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithDispatchTimeout bounds each post-commit side effect
func WithDispatchTimeout(d time.Duration) Option {
	return func(s *Service) { s.dispatchTimeout = d }
}

// Service handles order business logic
type Service struct {
	db              *gorm.DB
	config          *config.Config
	logger          *logrus.Logger
	deps            Deps
	notifier        Notifier
	events          EventPublisher
	idempotency     IdempotencyStore
	now             func() time.Time
	dispatchTimeout time.Duration
	wg              sync.WaitGroup
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger, deps Deps, opts ...Option) *Service {
	s := &Service{
		db:              db,
		config:          cfg,
		logger:          logger,
		deps:            deps,
		notifier:        noopNotifier{},
		events:          noopPublisher{},
		idempotency:     noopIdempotency{},
		now:             func() time.Time { return time.Now().UTC() },
		dispatchTimeout: defaultDispatchTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Buyer identifies who is checking out
type Buyer struct {
	UserID         *uint
	SessionID      string
	IdempotencyKey string
}

func (b Buyer) owner() cart.Owner {
	return cart.Owner{UserID: b.UserID, SessionID: b.SessionID}
}

// idempotencyScope namespaces idempotency keys per buyer. Guest sessions
// are stored hashed.
func (b Buyer) idempotencyScope() string {
	if b.UserID != nil {
		return "user:" + strconv.FormatUint(uint64(*b.UserID), 10)
	}
	sum := sha256.Sum256([]byte(strings.TrimSpace(b.SessionID)))
	return "session:" + hex.EncodeToString(sum[:])
}

// CreateOrderRequest represents order creation data
type CreateOrderRequest struct {
	ShippingAddress   *Address               `json:"shipping_address"`
	AddressID         *uint                  `json:"address_id"` // saved address, signed-in buyers only
	PaymentMethod     checkout.PaymentMethod `json:"payment_method" binding:"required"`
	CouponCode        string                 `json:"coupon_code"`
	RedeemPoints      int64                  `json:"redeem_points" binding:"gte=0"`
	Guest             *GuestInfo             `json:"guest"`
	RequestVATInvoice bool                   `json:"request_vat_invoice"`
	VATInfo           *vat.Info              `json:"vat_info"`
	Notes             string                 `json:"notes" binding:"max=1000"`
}

// PlacedOrder is the checkout result. GuestToken is only set on the
// request that created a guest order.
type PlacedOrder struct {
	Order      *Order `json:"order"`
	GuestToken string `json:"guest_access_token,omitempty"`
	Replayed   bool   `json:"replayed"`
}

// fieldValidator reads the same `binding` tags gin uses on requests
var fieldValidator = func() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// CreateOrder turns the buyer's cart into an order. The order row, frozen
// items, stock reservation, coupon redemption, points debit and cart clear
// commit together or not at all. Email and events follow on goroutines.
func (s *Service) CreateOrder(ctx context.Context, buyer Buyer, req *CreateOrderRequest) (placed *PlacedOrder, err error) {
	if !req.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod.Messagef("unsupported payment method %q", req.PaymentMethod)
	}

	email, guest, err := s.identify(ctx, buyer, req)
	if err != nil {
		return nil, err
	}
	address, err := s.resolveAddress(ctx, buyer, req)
	if err != nil {
		return nil, err
	}
	var vatInfo vat.Info
	if req.RequestVATInvoice {
		if req.VATInfo == nil {
			return nil, ErrInvalidVATInfo.Messagef("VAT invoice requested without buyer details")
		}
		vatInfo = req.VATInfo.Normalized()
		if res := vat.ValidateVATInfo(vatInfo); !res.IsValid {
			return nil, ErrInvalidVATInfo.WithDetails(res.Errors)
		}
	}

	key := strings.TrimSpace(buyer.IdempotencyKey)
	scope := buyer.idempotencyScope()
	if key != "" {
		storeKey := scope + ":" + key
		replay, held, claimErr := s.claimKey(ctx, scope, key)
		if claimErr != nil || replay != nil {
			return replay, claimErr
		}
		if held {
			defer func() {
				if placed != nil {
					if cerr := s.idempotency.Complete(ctx, storeKey, placed.Order.ID); cerr != nil {
						s.logger.WithError(cerr).WithField("idempotency_key", key).Warn("Failed to record idempotency key")
					}
					return
				}
				if rerr := s.idempotency.Release(ctx, storeKey); rerr != nil {
					s.logger.WithError(rerr).WithField("idempotency_key", key).Warn("Failed to release idempotency key")
				}
			}()
		}
		// A duplicate that slipped past the store loses on the unique
		// index or finds the cart already cleared; both replay the winner.
		defer func() {
			if err == nil {
				return
			}
			if existing, ferr := s.findByIdempotencyKey(ctx, scope, key); ferr == nil && existing != nil {
				placed, err = &PlacedOrder{Order: existing, Replayed: true}, nil
			}
		}()
	}

	prepared, err := s.deps.Checkout.Prepare(ctx, buyer.owner(), req.CouponCode, req.RedeemPoints)
	if err != nil {
		return nil, err
	}

	o := s.buildOrder(buyer, prepared, email, guest, address, req, vatInfo)
	if key != "" {
		o.IdempotencyKey = key
		o.IdempotencyScope = scope
	}
	if err := s.deps.Inventory.Check(s.db.WithContext(ctx), o.StockLines()); err != nil {
		return nil, err
	}

	var guestToken string
	if buyer.UserID == nil {
		guestToken = s.deps.Tokens.NewToken()
		hash, err := s.deps.Tokens.Hash(guestToken)
		if err != nil {
			return nil, err
		}
		o.GuestAccessTokenHash = hash
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(o).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		o.OrderNumber = s.orderNumber(o.ID)
		if err := tx.Model(&Order{}).Where("id = ?", o.ID).Update("order_number", o.OrderNumber).Error; err != nil {
			return fmt.Errorf("failed to update order number: %w", err)
		}

		if err := s.deps.Inventory.Reserve(tx, o.ID, o.StockLines()); err != nil {
			return err
		}
		if o.CouponRedeemed {
			if err := s.deps.Coupons.Redeem(tx, o.CouponCode); err != nil {
				return err
			}
		}
		if o.LoyaltyPointsUsed > 0 {
			if err := s.deps.Ledger.Debit(tx, *o.UserID, o.LoyaltyPointsUsed, o.ID); err != nil {
				return err
			}
		}
		return cart.Clear(tx, prepared.Cart.ID)
	})
	if err != nil {
		return nil, err
	}

	created, err := s.GetOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":     created.ID,
		"order_number": created.OrderNumber,
		"total":        created.TotalAmount,
		"user_id":      created.UserID,
		"guest":        created.IsGuest(),
		"coupon":       created.CouponCode,
		"points_used":  created.LoyaltyPointsUsed,
	}).Info("Order created")

	s.dispatch("notify_order_placed", created, func(ctx context.Context) error {
		return s.notifier.OrderPlaced(ctx, created)
	})
	s.publish(created, EventOrderCreated, "", "")

	return &PlacedOrder{Order: created, GuestToken: guestToken}, nil
}

// Wait blocks until post-commit side effects have finished
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) identify(ctx context.Context, buyer Buyer, req *CreateOrderRequest) (string, GuestInfo, error) {
	if buyer.UserID != nil {
		u, err := user.LoadBuyer(s.db.WithContext(ctx), *buyer.UserID)
		if err != nil {
			return "", GuestInfo{}, err
		}
		return u.Email, GuestInfo{}, nil
	}

	if strings.TrimSpace(buyer.SessionID) == "" {
		return "", GuestInfo{}, cart.ErrNoOwner
	}
	if req.RedeemPoints > 0 {
		return "", GuestInfo{}, loyalty.ErrGuestRedemption
	}
	if req.Guest == nil {
		return "", GuestInfo{}, ErrGuestEmailRequired
	}
	g := GuestInfo{
		Name:  strings.TrimSpace(req.Guest.Name),
		Email: strings.ToLower(strings.TrimSpace(req.Guest.Email)),
		Phone: strings.TrimSpace(req.Guest.Phone),
	}
	if g.Email == "" || fieldValidator.Var(g.Email, "email") != nil {
		return "", GuestInfo{}, ErrGuestEmailRequired
	}
	return g.Email, g, nil
}

func (s *Service) resolveAddress(ctx context.Context, buyer Buyer, req *CreateOrderRequest) (Address, error) {
	if req.AddressID != nil {
		if buyer.UserID == nil {
			return Address{}, ErrInvalidAddress.Messagef("saved addresses require signing in")
		}
		saved, err := s.deps.Addresses.GetAddress(ctx, *buyer.UserID, *req.AddressID)
		if err != nil {
			return Address{}, err
		}
		return Address{
			FirstName:    saved.FirstName,
			LastName:     saved.LastName,
			Company:      saved.Company,
			AddressLine1: saved.AddressLine1,
			AddressLine2: saved.AddressLine2,
			City:         saved.City,
			State:        saved.State,
			PostalCode:   saved.PostalCode,
			Country:      saved.Country,
			Phone:        saved.Phone,
		}, nil
	}

	if req.ShippingAddress == nil {
		return Address{}, ErrInvalidAddress
	}
	a := *req.ShippingAddress
	a.FirstName = strings.TrimSpace(a.FirstName)
	a.LastName = strings.TrimSpace(a.LastName)
	a.AddressLine1 = strings.TrimSpace(a.AddressLine1)
	a.City = strings.TrimSpace(a.City)
	a.Phone = strings.TrimSpace(a.Phone)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	if a.Country == "" {
		a.Country = "VN"
	}
	if err := validateAddress(a); err != nil {
		return Address{}, err
	}
	return a, nil
}

func validateAddress(a Address) error {
	err := fieldValidator.Struct(a)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ErrInvalidAddress.Wrap(err)
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field())
	}
	return ErrInvalidAddress.
		WithDetails(fields).
		Messagef("shipping address is missing or has invalid %s", strings.Join(fields, ", "))
}

// claimKey returns a replayed order when key was already used by this buyer.
// held reports that the store now holds a pending claim for the request.
func (s *Service) claimKey(ctx context.Context, scope, key string) (replay *PlacedOrder, held bool, err error) {
	existing, err := s.findByIdempotencyKey(ctx, scope, key)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return &PlacedOrder{Order: existing, Replayed: true}, false, nil
	}

	orderID, claimed, err := s.idempotency.Claim(ctx, scope+":"+key)
	if err != nil {
		s.logger.WithError(err).WithField("idempotency_key", key).Warn("Idempotency store unavailable, continuing without it")
		return nil, false, nil
	}
	if claimed {
		return nil, true, nil
	}
	if orderID == 0 {
		return nil, false, ErrRequestInProgress
	}
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	if o.IdempotencyScope != scope {
		return nil, false, ErrRequestInProgress
	}
	return &PlacedOrder{Order: o, Replayed: true}, false, nil
}

func (s *Service) findByIdempotencyKey(ctx context.Context, scope, key string) (*Order, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&Order{}).
		Where("idempotency_scope = ? AND idempotency_key = ?", scope, key).
		Limit(1).Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.GetOrder(ctx, ids[0])
}

func (s *Service) buildOrder(buyer Buyer, p *checkout.Prepared, email string, guest GuestInfo, address Address, req *CreateOrderRequest, vatInfo vat.Info) *Order {
	t := p.Totals
	o := &Order{
		OrderNumber:         "TMP-" + uuid.NewString(),
		UserID:              buyer.UserID,
		Email:               email,
		Guest:               guest,
		Status:              OrderStatusPending,
		PaymentMethod:       req.PaymentMethod,
		PaymentStatus:       PaymentStatusPending,
		SubtotalAmount:      t.Subtotal,
		ShippingAmount:      t.ShippingFee,
		DiscountAmount:      t.CouponDiscount,
		LoyaltyDiscount:     t.LoyaltyDiscount,
		VATAmount:           t.VAT.VATAmount,
		TotalAmount:         t.Total,
		Currency:            s.config.Store.Currency,
		CouponCode:          t.CouponCode,
		CouponPercent:       t.CouponPercent,
		CouponRedeemed:      t.CouponCode != "",
		LoyaltyPointsUsed:   t.PointsUsed,
		LoyaltyPointsEarned: t.PointsEarned,
		ShippingAddress:     address,
		VATInvoiceRequested: req.RequestVATInvoice,
		VATInfo:             vatInfo,
		Notes:               strings.TrimSpace(req.Notes),
	}
	if o.Currency == "" {
		o.Currency = "VND"
	}
	if req.RequestVATInvoice && t.VATInvoiceEligible {
		o.VATInvoiceNumber = vat.GenerateInvoiceNumber(s.now())
	}

	for _, l := range p.Lines {
		o.Items = append(o.Items, OrderItem{
			ProductID:       l.ProductID,
			VariantOptionID: l.VariantOptionID,
			Name:            l.Name,
			VariantName:     l.Variant.Name,
			VariantValue:    l.Variant.Value,
			Quantity:        l.Quantity,
			Price:           l.UnitPrice,
			TotalPrice:      l.LineTotal,
		})
	}
	o.StatusHistory = []OrderStatusHistory{{
		Status:    OrderStatusPending,
		Note:      "Order placed",
		CreatedAt: s.now(),
	}}
	return o
}

func (s *Service) orderNumber(id uint) string {
	// Format: ORD-YYYYMMDD-XXXXX
	return fmt.Sprintf("ORD-%s-%05d", s.now().Format("20060102"), id)
}

// dispatch runs a best-effort side effect after commit. Failures are
// logged and never reach the caller.
func (s *Service) dispatch(operation string, o *Order, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.dispatchTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"order_id":     o.ID,
				"order_number": o.OrderNumber,
				"operation":    operation,
			}).Warn("Order side effect failed")
		}
	}()
}

func (s *Service) publish(o *Order, kind EventType, previous OrderStatus, note string) {
	evt := Event{
		Type:           kind,
		Order:          o,
		PreviousStatus: previous,
		Note:           note,
		OccurredAt:     s.now(),
	}
	s.dispatch("publish_"+string(kind), o, func(ctx context.Context) error {
		return s.events.Publish(ctx, evt)
	})
}
