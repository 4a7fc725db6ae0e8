// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/product"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service handles cart business logic
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewService creates a new cart service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// AddItemRequest represents add to cart request
type AddItemRequest struct {
	ProductID uint                     `json:"product_id" binding:"required"`
	Variant   product.VariantSelection `json:"variant"`
	Quantity  int                      `json:"quantity" binding:"required,min=1,max=99"`
}

// UpdateItemRequest represents update cart item request
type UpdateItemRequest struct {
	Quantity int `json:"quantity" binding:"min=0,max=99"`
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("cart_items.id ASC")
	}).Preload("Items.Product.Variants.Options")
}

// Load fetches the owner's cart with products inside db (usually a transaction).
// It returns ErrEmpty when there is no cart or it has no items.
func Load(db *gorm.DB, owner Owner) (*Cart, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}
	var c Cart
	if err := preloadItems(owner.scope(db)).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("failed to retrieve cart: %w", err)
	}
	if len(c.Items) == 0 {
		return &c, ErrEmpty
	}
	return &c, nil
}

// Clear empties the cart and drops its coupon. The cart row is kept.
func Clear(tx *gorm.DB, cartID uint) error {
	if err := tx.Where("cart_id = ?", cartID).Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart items: %w", err)
	}
	if err := tx.Model(&Cart{}).Where("id = ?", cartID).
		Updates(map[string]interface{}{"coupon_code": "", "coupon_discount": 0}).Error; err != nil {
		return fmt.Errorf("failed to clear cart coupon: %w", err)
	}
	return nil
}

// GetCart returns the owner's cart resolved against the live catalog.
// Items that can no longer be bought are kept and flagged.
func (s *Service) GetCart(ctx context.Context, owner Owner) (*View, error) {
	c, err := Load(s.db.WithContext(ctx), owner)
	if err != nil && !errors.Is(err, ErrEmpty) {
		return nil, err
	}
	return buildView(c), nil
}

func buildView(c *Cart) *View {
	view := &View{Items: []Line{}}
	if c == nil {
		return view
	}
	view.CartID = c.ID
	view.Coupon = c.Coupon()

	for idx := range c.Items {
		line, err := c.Items[idx].resolve()
		if err != nil {
			line.Problem = err.Error()
		} else if line.Quantity > line.Available {
			line.Problem = ErrQuantityUnavailable.Error()
		}
		view.Items = append(view.Items, line)
		view.Totals.ItemCount++
		view.Totals.TotalQuantity += line.Quantity
		view.Totals.Subtotal += line.LineTotal
	}
	return view
}

// AddItem adds a product to the cart, merging with an identical line
func (s *Service) AddItem(ctx context.Context, owner Owner, req *AddItemRequest) (*View, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}
	if req.Quantity < 1 || req.Quantity > MaxLineQuantity {
		return nil, ErrInvalidQuantity
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p product.Product
		if err := tx.Preload("Variants.Options").First(&p, req.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return product.ErrNotFound
			}
			return fmt.Errorf("failed to retrieve product: %w", err)
		}
		if !p.IsActive {
			return product.ErrUnavailable
		}
		_, opt, err := p.Resolve(req.Variant)
		if err != nil {
			return err
		}

		c, err := findOrCreate(tx, owner)
		if err != nil {
			return err
		}

		var existing *CartItem
		for idx := range c.Items {
			it := &c.Items[idx]
			if it.ProductID == p.ID &&
				strings.EqualFold(it.VariantName, req.Variant.Name) &&
				strings.EqualFold(it.VariantValue, req.Variant.Value) {
				existing = it
				break
			}
		}

		quantity := req.Quantity
		if existing != nil {
			quantity += existing.Quantity
		}
		if quantity > MaxLineQuantity {
			return ErrInvalidQuantity
		}
		if available := p.AvailableStock(opt); quantity > available {
			return ErrQuantityUnavailable.Messagef("only %d of %s left in stock", available, p.Name)
		}

		if existing != nil {
			if err := tx.Model(&CartItem{}).Where("id = ?", existing.ID).Update("quantity", quantity).Error; err != nil {
				return fmt.Errorf("failed to update cart item: %w", err)
			}
			return nil
		}
		item := &CartItem{
			CartID:       c.ID,
			ProductID:    p.ID,
			Quantity:     quantity,
			VariantName:  strings.TrimSpace(req.Variant.Name),
			VariantValue: strings.TrimSpace(req.Variant.Value),
		}
		if err := tx.Omit(clause.Associations).Create(item).Error; err != nil {
			return fmt.Errorf("failed to add cart item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"product_id": req.ProductID,
		"quantity":   req.Quantity,
		"guest":      owner.IsGuest(),
	}).Debug("Item added to cart")

	return s.GetCart(ctx, owner)
}

// UpdateItem sets a line's quantity; zero removes the line
func (s *Service) UpdateItem(ctx context.Context, owner Owner, itemID uint, req *UpdateItemRequest) (*View, error) {
	if req.Quantity == 0 {
		return s.RemoveItem(ctx, owner, itemID)
	}
	if req.Quantity < 0 || req.Quantity > MaxLineQuantity {
		return nil, ErrInvalidQuantity
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := findItem(tx, owner, itemID)
		if err != nil {
			return err
		}
		if item.Product == nil || !item.Product.IsActive {
			return product.ErrUnavailable
		}
		_, opt, err := item.Product.Resolve(item.Variant())
		if err != nil {
			return err
		}
		if available := item.Product.AvailableStock(opt); req.Quantity > available {
			return ErrQuantityUnavailable.Messagef("only %d of %s left in stock", available, item.Product.Name)
		}
		if err := tx.Model(&CartItem{}).Where("id = ?", item.ID).Update("quantity", req.Quantity).Error; err != nil {
			return fmt.Errorf("failed to update cart item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, owner)
}

// RemoveItem deletes a line from the cart
func (s *Service) RemoveItem(ctx context.Context, owner Owner, itemID uint) (*View, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := findItem(tx, owner, itemID)
		if err != nil {
			return err
		}
		if err := tx.Delete(&CartItem{}, item.ID).Error; err != nil {
			return fmt.Errorf("failed to remove cart item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, owner)
}

// ClearCart empties the owner's cart
func (s *Service) ClearCart(ctx context.Context, owner Owner) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := Load(tx, owner)
		if err != nil {
			if errors.Is(err, ErrEmpty) {
				return nil
			}
			return err
		}
		return Clear(tx, c.ID)
	})
}

// SetCoupon stores a coupon snapshot on the cart
func (s *Service) SetCoupon(ctx context.Context, owner Owner, snap coupon.Snapshot) error {
	return s.updateCoupon(ctx, owner, snap.Code, snap.Discount)
}

// ClearCoupon removes the coupon snapshot from the cart
func (s *Service) ClearCoupon(ctx context.Context, owner Owner) error {
	return s.updateCoupon(ctx, owner, "", 0)
}

func (s *Service) updateCoupon(ctx context.Context, owner Owner, code string, discount int) error {
	if err := owner.validate(); err != nil {
		return err
	}
	result := owner.scope(s.db.WithContext(ctx).Model(&Cart{})).
		Updates(map[string]interface{}{"coupon_code": code, "coupon_discount": discount})
	if result.Error != nil {
		return fmt.Errorf("failed to update cart coupon: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrEmpty
	}
	return nil
}

// MergeSessionCart moves a guest cart into the user's cart after sign-in.
// Quantities of identical lines are added and capped at MaxLineQuantity.
func (s *Service) MergeSessionCart(ctx context.Context, sessionID string, userID uint) (*View, error) {
	userOwner := Owner{UserID: &userID}
	if strings.TrimSpace(sessionID) == "" {
		return s.GetCart(ctx, userOwner)
	}

	merged := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guest, err := Load(tx, Owner{SessionID: sessionID})
		if err != nil {
			if errors.Is(err, ErrEmpty) {
				return nil
			}
			return err
		}
		target, err := findOrCreate(tx, userOwner)
		if err != nil {
			return err
		}

		for _, gi := range guest.Items {
			var match *CartItem
			for idx := range target.Items {
				ti := &target.Items[idx]
				if ti.ProductID == gi.ProductID &&
					strings.EqualFold(ti.VariantName, gi.VariantName) &&
					strings.EqualFold(ti.VariantValue, gi.VariantValue) {
					match = ti
					break
				}
			}
			if match != nil {
				qty := min(match.Quantity+gi.Quantity, MaxLineQuantity)
				if err := tx.Model(&CartItem{}).Where("id = ?", match.ID).Update("quantity", qty).Error; err != nil {
					return fmt.Errorf("failed to merge cart item: %w", err)
				}
			} else if err := tx.Model(&CartItem{}).Where("id = ?", gi.ID).Update("cart_id", target.ID).Error; err != nil {
				return fmt.Errorf("failed to move cart item: %w", err)
			}
			merged++
		}

		if target.CouponCode == "" && guest.CouponCode != "" {
			if err := tx.Model(&Cart{}).Where("id = ?", target.ID).Updates(map[string]interface{}{
				"coupon_code":     guest.CouponCode,
				"coupon_discount": guest.CouponDiscount,
			}).Error; err != nil {
				return fmt.Errorf("failed to carry coupon: %w", err)
			}
		}
		if err := tx.Where("cart_id = ?", guest.ID).Delete(&CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete guest cart items: %w", err)
		}
		if err := tx.Delete(&Cart{}, guest.ID).Error; err != nil {
			return fmt.Errorf("failed to delete guest cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if merged > 0 {
		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"items":   merged,
		}).Info("Guest cart merged")
	}
	return s.GetCart(ctx, userOwner)
}

func findOrCreate(tx *gorm.DB, owner Owner) (*Cart, error) {
	var c Cart
	err := owner.scope(tx).Preload("Items").First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to retrieve cart: %w", err)
	}

	c = Cart{UserID: owner.UserID}
	if owner.UserID == nil {
		c.SessionID = owner.SessionID
	}
	if err := tx.Create(&c).Error; err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return &c, nil
}

func findItem(tx *gorm.DB, owner Owner, itemID uint) (*CartItem, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}
	var c Cart
	if err := owner.scope(tx).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to retrieve cart: %w", err)
	}
	var item CartItem
	err := tx.Preload("Product.Variants.Options").
		Where("id = ? AND cart_id = ?", itemID, c.ID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to retrieve cart item: %w", err)
	}
	return &item, nil
}
