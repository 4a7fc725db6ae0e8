// internal/domain/inventory/service.go
package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/product"
	"gorm.io/gorm"
)

// Service reconciles stock with orders and keeps the movement ledger
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// AdjustRequest represents a manual stock correction. Positive quantities add stock.
type AdjustRequest struct {
	ProductID       uint           `json:"product_id" binding:"required"`
	VariantOptionID *uint          `json:"variant_option_id"`
	Quantity        int            `json:"quantity" binding:"required"`
	Reason          MovementReason `json:"reason" binding:"omitempty,oneof=purchase return damage adjustment"`
	Notes           string         `json:"notes"`
}

// MovementFilter narrows the movement list
type MovementFilter struct {
	ProductID uint `form:"product_id"`
	OrderID   uint `form:"order_id"`
	Page      int  `form:"page,default=1"`
	Limit     int  `form:"limit,default=50"`
}

// StockLevel is one row of the low-stock report
type StockLevel struct {
	ProductID       uint   `json:"product_id"`
	VariantOptionID *uint  `json:"variant_option_id,omitempty"`
	Name            string `json:"name"`
	VariantName     string `json:"variant_name,omitempty"`
	VariantValue    string `json:"variant_value,omitempty"`
	Stock           int    `json:"stock"`
}

// Check verifies every line can be served from current stock.
// Lines drawing from the same stock are summed. Nothing is written.
func (s *Service) Check(db *gorm.DB, lines []Line) error {
	requested := make(map[stockKey]int)
	first := make(map[stockKey]Line)
	var order []stockKey
	for _, l := range lines {
		k := l.key()
		if _, seen := first[k]; !seen {
			first[k] = l
			order = append(order, k)
		}
		requested[k] += l.Quantity
	}

	var shortfalls []Shortfall
	for _, k := range order {
		l := first[k]
		available, found, err := currentStock(db, l)
		if err != nil {
			return err
		}
		if !found {
			available = 0
		}
		if requested[k] > available {
			shortfalls = append(shortfalls, Shortfall{
				ProductID:       l.ProductID,
				VariantOptionID: l.VariantOptionID,
				Name:            l.Name,
				Requested:       requested[k],
				Available:       available,
			})
		}
	}
	if len(shortfalls) > 0 {
		return &InsufficientStockError{Shortfalls: shortfalls}
	}
	return nil
}

// Reserve takes stock for an order inside tx. Each decrement is conditional
// on enough stock remaining; a failed line aborts with ErrInsufficientStock.
func (s *Service) Reserve(tx *gorm.DB, orderID uint, lines []Line) error {
	for _, l := range lines {
		if l.Quantity <= 0 {
			return ErrInvalidMovement.Messagef("quantity for %s must be positive", l.Name)
		}
		ok, err := decrement(tx, l)
		if err != nil {
			return err
		}
		if !ok {
			available, _, err := currentStock(tx, l)
			if err != nil {
				return err
			}
			return &InsufficientStockError{Shortfalls: []Shortfall{{
				ProductID:       l.ProductID,
				VariantOptionID: l.VariantOptionID,
				Name:            l.Name,
				Requested:       l.Quantity,
				Available:       available,
			}}}
		}
		if err := s.record(tx, l, &orderID, MovementTypeOutbound, ReasonSale, -l.Quantity, "", nil); err != nil {
			return err
		}
	}
	return nil
}

// Restore gives back exactly the quantities recorded on an order inside tx.
// Lines whose product or option no longer exists are logged and skipped.
func (s *Service) Restore(tx *gorm.DB, orderID uint, lines []Line) error {
	for _, l := range lines {
		restored, err := increment(tx, l)
		if err != nil {
			return err
		}
		if !restored {
			s.logger.WithFields(logrus.Fields{
				"order_id":          orderID,
				"product_id":        l.ProductID,
				"variant_option_id": l.VariantOptionID,
				"quantity":          l.Quantity,
			}).Warn("Stock restore skipped: product or option no longer exists")
			continue
		}
		if err := s.record(tx, l, &orderID, MovementTypeInbound, ReasonCancellation, l.Quantity, "", nil); err != nil {
			return err
		}
	}
	return nil
}

// Adjust applies a manual stock correction and records it
func (s *Service) Adjust(ctx context.Context, req *AdjustRequest, userID uint) (*StockMovement, error) {
	if req.Quantity == 0 {
		return nil, ErrInvalidMovement.Messagef("quantity must not be zero")
	}
	reason := req.Reason
	if reason == "" {
		reason = ReasonAdjustment
	}

	var movement *StockMovement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p product.Product
		if err := tx.Select("id", "name").First(&p, req.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTargetNotFound
			}
			return fmt.Errorf("failed to retrieve product: %w", err)
		}
		if req.VariantOptionID != nil {
			var owned int64
			if err := tx.Table("product_variant_options o").
				Joins("JOIN product_variants v ON v.id = o.variant_id").
				Where("o.id = ? AND v.product_id = ?", *req.VariantOptionID, p.ID).
				Count(&owned).Error; err != nil {
				return fmt.Errorf("failed to check variant option: %w", err)
			}
			if owned == 0 {
				return ErrTargetNotFound
			}
		}
		l := Line{ProductID: p.ID, VariantOptionID: req.VariantOptionID, Name: p.Name}

		var (
			ok  bool
			err error
			mt  MovementType
		)
		if req.Quantity > 0 {
			l.Quantity = req.Quantity
			mt = MovementTypeInbound
			ok, err = addStock(tx, l)
		} else {
			l.Quantity = -req.Quantity
			mt = MovementTypeOutbound
			ok, err = takeStock(tx, l)
		}
		if err != nil {
			return err
		}
		if !ok {
			available, found, err := currentStock(tx, l)
			if err != nil {
				return err
			}
			if !found {
				return ErrTargetNotFound
			}
			return ErrInsufficientStock.Messagef("cannot remove %d of %s, only %d in stock", l.Quantity, p.Name, available)
		}

		uid := userID
		m, err := s.recordReturning(tx, l, nil, mt, reason, req.Quantity, req.Notes, &uid)
		if err != nil {
			return err
		}
		movement = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"product_id":   req.ProductID,
		"quantity":     req.Quantity,
		"reason":       reason,
		"new_quantity": movement.NewQuantity,
		"admin_id":     userID,
	}).Info("Stock adjusted")

	return movement, nil
}

// ListMovements returns ledger rows, newest first
func (s *Service) ListMovements(ctx context.Context, f *MovementFilter) ([]StockMovement, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 200 {
		f.Limit = 50
	}

	query := s.db.WithContext(ctx).Model(&StockMovement{})
	if f.ProductID != 0 {
		query = query.Where("product_id = ?", f.ProductID)
	}
	if f.OrderID != 0 {
		query = query.Where("order_id = ?", f.OrderID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count movements: %w", err)
	}

	var movements []StockMovement
	if err := query.Order("id DESC").Offset((f.Page - 1) * f.Limit).Limit(f.Limit).Find(&movements).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve movements: %w", err)
	}
	return movements, total, nil
}

// LowStock lists active products and variant options at or below threshold
func (s *Service) LowStock(ctx context.Context, threshold int) ([]StockLevel, error) {
	db := s.db.WithContext(ctx)

	var plain []StockLevel
	if err := db.Table("products").
		Select("products.id AS product_id, products.name AS name, products.stock AS stock").
		Where("products.is_active = ? AND products.deleted_at IS NULL AND products.stock <= ?", true, threshold).
		Where("NOT EXISTS (SELECT 1 FROM product_variants v WHERE v.product_id = products.id)").
		Scan(&plain).Error; err != nil {
		return nil, fmt.Errorf("failed to query product stock: %w", err)
	}

	var variants []StockLevel
	if err := db.Table("product_variant_options o").
		Select("p.id AS product_id, o.id AS variant_option_id, p.name AS name, v.name AS variant_name, o.value AS variant_value, o.stock AS stock").
		Joins("JOIN product_variants v ON v.id = o.variant_id").
		Joins("JOIN products p ON p.id = v.product_id").
		Where("p.is_active = ? AND p.deleted_at IS NULL AND o.stock <= ?", true, threshold).
		Scan(&variants).Error; err != nil {
		return nil, fmt.Errorf("failed to query variant stock: %w", err)
	}

	levels := append(plain, variants...)
	sort.SliceStable(levels, func(i, j int) bool { return levels[i].Stock < levels[j].Stock })
	return levels, nil
}

// decrement takes stock and counts the sale on the product
func decrement(tx *gorm.DB, l Line) (bool, error) {
	ok, err := takeStock(tx, l)
	if err != nil || !ok {
		return ok, err
	}
	if l.VariantOptionID != nil {
		if err := tx.Model(&product.Product{}).Where("id = ?", l.ProductID).
			Update("sold", gorm.Expr("sold + ?", l.Quantity)).Error; err != nil {
			return false, fmt.Errorf("failed to update sold count: %w", err)
		}
	}
	return true, nil
}

// increment reverses decrement; sold never goes below zero
func increment(tx *gorm.DB, l Line) (bool, error) {
	ok, err := addStock(tx, l)
	if err != nil || !ok {
		return ok, err
	}
	sold := gorm.Expr("CASE WHEN sold > ? THEN sold - ? ELSE 0 END", l.Quantity, l.Quantity)
	if err := tx.Unscoped().Model(&product.Product{}).Where("id = ?", l.ProductID).
		Update("sold", sold).Error; err != nil {
		return false, fmt.Errorf("failed to update sold count: %w", err)
	}
	return true, nil
}

// takeStock is the conditional decrement. For plain lines the sold counter
// moves in the same statement.
func takeStock(tx *gorm.DB, l Line) (bool, error) {
	var result *gorm.DB
	if l.VariantOptionID != nil {
		result = tx.Model(&product.VariantOption{}).
			Where("id = ? AND stock >= ?", *l.VariantOptionID, l.Quantity).
			Update("stock", gorm.Expr("stock - ?", l.Quantity))
	} else {
		result = tx.Model(&product.Product{}).
			Where("id = ? AND stock >= ?", l.ProductID, l.Quantity).
			Updates(map[string]interface{}{
				"stock": gorm.Expr("stock - ?", l.Quantity),
				"sold":  gorm.Expr("sold + ?", l.Quantity),
			})
	}
	if result.Error != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func addStock(tx *gorm.DB, l Line) (bool, error) {
	var result *gorm.DB
	if l.VariantOptionID != nil {
		result = tx.Model(&product.VariantOption{}).
			Where("id = ?", *l.VariantOptionID).
			Update("stock", gorm.Expr("stock + ?", l.Quantity))
	} else {
		result = tx.Unscoped().Model(&product.Product{}).
			Where("id = ?", l.ProductID).
			Update("stock", gorm.Expr("stock + ?", l.Quantity))
	}
	if result.Error != nil {
		return false, fmt.Errorf("failed to increment stock: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func currentStock(db *gorm.DB, l Line) (int, bool, error) {
	var stocks []int
	var err error
	if l.VariantOptionID != nil {
		err = db.Model(&product.VariantOption{}).Where("id = ?", *l.VariantOptionID).Pluck("stock", &stocks).Error
	} else {
		err = db.Model(&product.Product{}).Where("id = ?", l.ProductID).Pluck("stock", &stocks).Error
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read stock: %w", err)
	}
	if len(stocks) == 0 {
		return 0, false, nil
	}
	return stocks[0], true, nil
}

func (s *Service) record(tx *gorm.DB, l Line, orderID *uint, mt MovementType, reason MovementReason, delta int, notes string, by *uint) error {
	_, err := s.recordReturning(tx, l, orderID, mt, reason, delta, notes, by)
	return err
}

// recordReturning writes the ledger row after the stock update, so the
// current value is the new quantity
func (s *Service) recordReturning(tx *gorm.DB, l Line, orderID *uint, mt MovementType, reason MovementReason, delta int, notes string, by *uint) (*StockMovement, error) {
	current, _, err := currentStock(tx.Unscoped(), l)
	if err != nil {
		return nil, err
	}
	qty := delta
	if qty < 0 {
		qty = -qty
	}
	m := &StockMovement{
		ProductID:        l.ProductID,
		VariantOptionID:  l.VariantOptionID,
		OrderID:          orderID,
		MovementType:     mt,
		Reason:           reason,
		Quantity:         qty,
		PreviousQuantity: current - delta,
		NewQuantity:      current,
		Notes:            notes,
		CreatedBy:        by,
	}
	if err := tx.Create(m).Error; err != nil {
		return nil, fmt.Errorf("failed to record stock movement: %w", err)
	}
	return m, nil
}
