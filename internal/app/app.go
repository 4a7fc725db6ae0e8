// Package app assembles the domain services and HTTP handlers.
package app

import (
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/analytics"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/inventory"
	"github.com/your-org/storefront/internal/domain/loyalty"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/domain/user"
	"github.com/your-org/storefront/internal/domain/vat"
	"github.com/your-org/storefront/internal/interfaces/http/handlers"
	"github.com/your-org/storefront/internal/interfaces/http/routes"
	"github.com/your-org/storefront/internal/pkg/auth"
	"github.com/your-org/storefront/internal/pkg/pdf"
	"gorm.io/gorm"
)

// Services holds one instance of every domain service
type Services struct {
	VAT       *vat.Calculator
	Products  *product.Service
	Carts     *cart.Service
	Coupons   *coupon.Service
	Inventory *inventory.Service
	Ledger    *loyalty.Ledger
	Users     *user.Service
	Addresses *user.AddressService
	Checkout  *checkout.Service
	Orders    *order.Service
	Invoices  *pdf.Service
	Analytics *analytics.Service
}

// NewServices wires the services over db. Notifier, publisher and
// idempotency store are passed as order options.
func NewServices(cfg *config.Config, db *gorm.DB, logger *logrus.Logger, orderOpts ...order.Option) *Services {
	calc := vat.NewCalculatorFromConfig(cfg)
	rules := loyalty.RulesFromConfig(cfg.Store)

	s := &Services{
		VAT:       calc,
		Products:  product.NewService(db, logger),
		Carts:     cart.NewService(db, logger),
		Coupons:   coupon.NewService(db, logger),
		Inventory: inventory.NewService(db, logger),
		Ledger:    loyalty.NewLedger(db, logger, rules),
		Users:     user.NewService(db, logger),
		Addresses: user.NewAddressService(db, logger),
		Invoices:  pdf.NewService(cfg, calc, logger),
		Analytics: analytics.NewService(db, logger),
	}
	s.Checkout = checkout.NewService(db, logger, checkout.NewPricer(calc, rules), s.Carts, s.Coupons, s.Ledger)
	s.Orders = order.NewService(db, cfg, logger, order.Deps{
		Checkout:  s.Checkout,
		Coupons:   s.Coupons,
		Inventory: s.Inventory,
		Ledger:    s.Ledger,
		Addresses: s.Addresses,
		Tokens:    auth.NewGuestTokenManager(cfg.Security.BcryptCost),
	}, orderOpts...)
	return s
}

// Handlers builds the HTTP handlers over the services
func (s *Services) Handlers(logger *logrus.Logger) *routes.Handlers {
	return &routes.Handlers{
		Product:    handlers.NewProductHandler(s.Products, logger),
		Cart:       handlers.NewCartHandler(s.Carts, logger),
		Checkout:   handlers.NewCheckoutHandler(s.Checkout, logger),
		Order:      handlers.NewOrderHandler(s.Orders, logger),
		AdminOrder: handlers.NewAdminOrderHandler(s.Orders, logger),
		Invoice:    handlers.NewInvoiceHandler(s.Orders, s.Invoices, logger),
		Coupon:     handlers.NewCouponHandler(s.Coupons, logger),
		Inventory:  handlers.NewInventoryHandler(s.Inventory, logger),
		Address:    handlers.NewAddressHandler(s.Addresses, logger),
		Profile:    handlers.NewProfileHandler(s.Users, s.Ledger, logger),
		UserAdmin:  handlers.NewUserAdminHandler(s.Users, logger),
		VAT:        handlers.NewVATHandler(s.VAT),
		Analytics:  handlers.NewAnalyticsHandler(s.Analytics, logger),
	}
}
