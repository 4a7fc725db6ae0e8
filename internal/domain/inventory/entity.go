// internal/domain/inventory/entity.go
package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/your-org/storefront/internal/pkg/apperror"
)

// MovementType represents the direction of a stock movement
type MovementType string

const (
	MovementTypeInbound  MovementType = "inbound"  // restock, cancellation, adjustment increase
	MovementTypeOutbound MovementType = "outbound" // sale, damage, adjustment decrease
)

// MovementReason represents the reason for a stock movement
type MovementReason string

const (
	ReasonSale         MovementReason = "sale"
	ReasonCancellation MovementReason = "cancellation"
	ReasonPurchase     MovementReason = "purchase"
	ReasonReturn       MovementReason = "return"
	ReasonDamage       MovementReason = "damage"
	ReasonAdjustment   MovementReason = "adjustment"
)

var (
	ErrInsufficientStock = apperror.Business("insufficient_stock", "insufficient stock")
	ErrInvalidMovement   = apperror.Validation("inventory_invalid_movement", "invalid stock movement")
	ErrTargetNotFound    = apperror.NotFound("inventory_target_not_found", "product or variant option not found")
)

// StockMovement is the audit row written for every stock change
type StockMovement struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	ProductID        uint           `gorm:"not null;index" json:"product_id"`
	VariantOptionID  *uint          `gorm:"index" json:"variant_option_id,omitempty"`
	OrderID          *uint          `gorm:"index" json:"order_id,omitempty"`
	MovementType     MovementType   `gorm:"not null;size:20" json:"movement_type"`
	Reason           MovementReason `gorm:"not null;size:30" json:"reason"`
	Quantity         int            `gorm:"not null" json:"quantity"`
	PreviousQuantity int            `gorm:"not null" json:"previous_quantity"`
	NewQuantity      int            `gorm:"not null" json:"new_quantity"`
	Notes            string         `gorm:"type:text" json:"notes,omitempty"`
	CreatedBy        *uint          `json:"created_by,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// TableName overrides the table name
func (StockMovement) TableName() string {
	return "stock_movements"
}

// Line is one stock draw: a variant option when VariantOptionID is set,
// otherwise the product's own stock
type Line struct {
	ProductID       uint
	VariantOptionID *uint
	Name            string
	Quantity        int
}

type stockKey struct {
	productID uint
	optionID  uint
}

func (l Line) key() stockKey {
	k := stockKey{productID: l.ProductID}
	if l.VariantOptionID != nil {
		k.optionID = *l.VariantOptionID
	}
	return k
}

// Shortfall describes one line that cannot be fulfilled
type Shortfall struct {
	ProductID       uint   `json:"product_id"`
	VariantOptionID *uint  `json:"variant_option_id,omitempty"`
	Name            string `json:"name"`
	Requested       int    `json:"requested"`
	Available       int    `json:"available"`
}

// InsufficientStockError lists every shortfall found by Check
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("%s (requested %d, available %d)", s.Name, s.Requested, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

// Unwrap exposes the classified sentinel so callers can map the kind
func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock.WithDetails(e.Shortfalls).Messagef("%s", e.Error())
}

// AsInsufficientStock extracts the shortfall list from err
func AsInsufficientStock(err error) (*InsufficientStockError, bool) {
	var target *InsufficientStockError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
