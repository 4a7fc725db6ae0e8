// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/inventory"
	"github.com/your-org/storefront/internal/domain/loyalty"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/domain/user"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger *logrus.Logger) *Migration {
	return &Migration{
		db:     db,
		logger: logger,
	}
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		// User domain
		&user.User{},
		&user.Address{},

		// Catalog
		&product.Product{},
		&product.Specification{},
		&product.ProductVariant{},
		&product.VariantOption{},

		&coupon.Coupon{},

		&cart.Cart{},
		&cart.CartItem{},

		// Order domain
		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},

		// Ledgers
		&inventory.StockMovement{},
		&loyalty.PointsTransaction{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("Running database auto-migrations")

	for _, model := range Models() {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.logger.Info("Database auto-migrations completed")
	return nil
}

// CreateIndexes creates the composite indexes the order queries rely on
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		// Catalog
		"CREATE INDEX IF NOT EXISTS idx_products_category_active ON products(category, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_price ON products(price)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",

		// Carts: one guest cart per session
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_session ON carts(session_id) WHERE user_id IS NULL AND session_id <> ''",
		"CREATE INDEX IF NOT EXISTS idx_cart_items_cart_product ON cart_items(cart_id, product_id)",

		// Orders
		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_payment_status ON orders(payment_status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",
		"DROP INDEX IF EXISTS idx_orders_idempotency",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_idempotency_scope ON orders(idempotency_scope, idempotency_key) WHERE idempotency_key <> ''",
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, created_at DESC)",

		// Ledgers
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_product_created ON stock_movements(product_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_loyalty_transactions_user_created ON loyalty_transactions(user_id, created_at DESC)",

		// Addresses
		"CREATE INDEX IF NOT EXISTS idx_addresses_user_default ON addresses(user_id, is_default)",
	}

	failed := 0
	for _, stmt := range indexes {
		if err := m.db.Exec(stmt).Error; err != nil {
			m.logger.WithError(err).WithField("statement", stmt).Warn("Failed to create index")
			failed++
		}
	}

	m.logger.WithFields(logrus.Fields{
		"created": len(indexes) - failed,
		"failed":  failed,
	}).Info("Database indexes ensured")
	if failed > 0 {
		return fmt.Errorf("failed to create %d indexes", failed)
	}
	return nil
}

// SeedInitialData inserts development fixtures; running it twice is a no-op
func (m *Migration) SeedInitialData() error {
	m.logger.Info("Seeding initial data")

	if err := m.seedUsers(); err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	if err := m.seedProducts(); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}
	if err := m.seedCoupons(); err != nil {
		return fmt.Errorf("failed to seed coupons: %w", err)
	}

	m.logger.Info("Initial data seeded")
	return nil
}

func (m *Migration) seedUsers() error {
	users := []user.User{
		{Email: "admin@example.com", FirstName: "Quản trị", LastName: "Viên", IsAdmin: true},
		{
			Email:         "khachhang@example.com",
			FirstName:     "Lan",
			LastName:      "Nguyễn",
			Phone:         "0901234567",
			LoyaltyPoints: 200,
			Addresses: []user.Address{{
				FirstName:    "Lan",
				LastName:     "Nguyễn",
				AddressLine1: "12 Lê Lợi",
				City:         "Hồ Chí Minh",
				State:        "Quận 1",
				PostalCode:   "700000",
				Country:      "VN",
				Phone:        "0901234567",
				IsDefault:    true,
			}},
		},
	}

	for i := range users {
		u := &users[i]
		var existing user.User
		err := m.db.Where("email = ?", u.Email).First(&existing).Error
		if err == nil {
			m.logger.WithField("email", u.Email).Debug("Seed user already exists")
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := m.db.Create(u).Error; err != nil {
			return fmt.Errorf("failed to create user %s: %w", u.Email, err)
		}
		m.logger.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("Seeded user")
	}
	return nil
}

func (m *Migration) seedProducts() error {
	var count int64
	if err := m.db.Model(&product.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	discounted := int64(259000)
	products := []product.Product{
		{
			Name: "Áo thun cổ tròn", Slug: "ao-thun-co-tron", Category: "thoi-trang", Brand: "Sài Gòn Basic",
			Price: 299000, DiscountPrice: &discounted, IsActive: true,
			Specifications: []product.Specification{{Name: "Chất liệu", Value: "Cotton 100%"}},
			Variants: []product.ProductVariant{{
				Name: "Size",
				Options: []product.VariantOption{
					{Value: "M", Stock: 40},
					{Value: "L", Stock: 30},
					{Value: "XL", AdditionalPrice: 20000, Stock: 10},
				},
			}},
		},
		{
			Name: "Ấm siêu tốc 1.7L", Slug: "am-sieu-toc-1-7l", Category: "gia-dung", Brand: "Sunhouse",
			Price: 450000, Stock: 25, IsActive: true,
			Specifications: []product.Specification{{Name: "Công suất", Value: "1800W"}},
		},
		{
			Name: "Tai nghe không dây", Slug: "tai-nghe-khong-day", Category: "dien-tu", Brand: "Soundmax",
			Price: 1290000, Stock: 12, IsActive: true,
		},
	}

	return m.db.Transaction(func(tx *gorm.DB) error {
		for i := range products {
			if err := tx.Create(&products[i]).Error; err != nil {
				return fmt.Errorf("failed to create product %s: %w", products[i].Slug, err)
			}
		}
		m.logger.WithField("count", len(products)).Info("Seeded products")
		return nil
	})
}

func (m *Migration) seedCoupons() error {
	end := time.Now().UTC().AddDate(0, 3, 0)
	coupons := []coupon.Coupon{
		{Code: "WELCO", Discount: 10, MaxUses: 10, Active: true, EndDate: &end},
		{Code: "BIG20", Discount: 20, MinAmount: 1000000, MaxUses: 5, Active: true, EndDate: &end},
	}
	for i := range coupons {
		c := &coupons[i]
		if err := m.db.Where("code = ?", c.Code).FirstOrCreate(c).Error; err != nil {
			return fmt.Errorf("failed to seed coupon %s: %w", c.Code, err)
		}
	}
	return nil
}

// TableCounts reports the row count of every model table
func (m *Migration) TableCounts() (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, model := range Models() {
		stmt := &gorm.Statement{DB: m.db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("failed to parse model %T: %w", model, err)
		}
		var n int64
		if err := m.db.Model(model).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", stmt.Table, err)
		}
		counts[stmt.Table] = n
	}
	return counts, nil
}

// DropAllTables drops every model table in reverse dependency order
func (m *Migration) DropAllTables() error {
	models := Models()
	for i := len(models) - 1; i >= 0; i-- {
		if err := m.db.Migrator().DropTable(models[i]); err != nil {
			return fmt.Errorf("failed to drop %T: %w", models[i], err)
		}
	}
	m.logger.Warn("All tables dropped")
	return nil
}
