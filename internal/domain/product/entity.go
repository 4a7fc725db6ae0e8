// internal/domain/product/entity.go
package product

import (
	"strings"
	"time"

	"github.com/your-org/storefront/internal/pkg/apperror"
	"gorm.io/gorm"
)

var (
	ErrNotFound        = apperror.NotFound("product_not_found", "product not found")
	ErrUnavailable     = apperror.Business("product_unavailable", "product is no longer available")
	ErrVariantNotFound = apperror.Validation("variant_not_found", "selected variant option does not exist")
	ErrVariantRequired = apperror.Validation("variant_required", "variant name and value must both be set")
	ErrInvalidPrice    = apperror.Validation("product_invalid_price", "discount price must be positive and below the list price")
)

// Product represents the product entity
type Product struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Name          string         `gorm:"not null;size:255" json:"name"`
	Slug          string         `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description   string         `gorm:"type:text" json:"description"`
	Price         int64          `gorm:"not null" json:"price"` // VND
	DiscountPrice *int64         `json:"discount_price,omitempty"`
	Category      string         `gorm:"size:100;index" json:"category"`
	Subcategory   string         `gorm:"size:100" json:"subcategory"`
	Brand         string         `gorm:"size:100;index" json:"brand"`
	Stock         int            `gorm:"not null;check:stock >= 0" json:"stock"`
	Sold          int            `gorm:"not null" json:"sold"`
	IsActive      bool           `gorm:"not null;index" json:"is_active"`
	Rating        float64        `json:"rating"`
	NumReviews    int            `json:"num_reviews"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Specifications []Specification  `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"specifications,omitempty"`
	Variants       []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"variants,omitempty"`
}

// Specification is a free-form {name, value} attribute
type Specification struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ProductID uint   `gorm:"not null;index" json:"product_id"`
	Name      string `gorm:"not null;size:100" json:"name"`
	Value     string `gorm:"not null;size:255" json:"value"`
}

// ProductVariant groups the options of one dimension (color, size, ...)
type ProductVariant struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	Name      string          `gorm:"not null;size:100" json:"name"`
	Options   []VariantOption `gorm:"foreignKey:VariantID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"options"`
}

// VariantOption carries its own stock and a price delta
type VariantOption struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	VariantID       uint   `gorm:"not null;index" json:"variant_id"`
	Value           string `gorm:"not null;size:100" json:"value"`
	AdditionalPrice int64  `gorm:"not null" json:"additional_price"`
	Stock           int    `gorm:"not null;check:stock >= 0" json:"stock"`
}

// VariantSelection identifies one option by variant name and option value
type VariantSelection struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// TableName overrides
func (Product) TableName() string        { return "products" }
func (Specification) TableName() string  { return "product_specifications" }
func (ProductVariant) TableName() string { return "product_variants" }
func (VariantOption) TableName() string  { return "product_variant_options" }

// IsZero reports whether no variant was selected
func (s VariantSelection) IsZero() bool {
	return s.Name == "" && s.Value == ""
}

// Label renders the selection for order lines and invoices
func (s VariantSelection) Label() string {
	if s.IsZero() {
		return ""
	}
	return s.Name + ": " + s.Value
}

// EffectivePrice returns the discount price when it undercuts the list price
func (p *Product) EffectivePrice() int64 {
	if p.DiscountPrice != nil && *p.DiscountPrice > 0 && *p.DiscountPrice < p.Price {
		return *p.DiscountPrice
	}
	return p.Price
}

// FindOption looks up a variant option by selection, case-insensitively
func (p *Product) FindOption(sel VariantSelection) (*VariantOption, bool) {
	for vi := range p.Variants {
		v := &p.Variants[vi]
		if !strings.EqualFold(v.Name, sel.Name) {
			continue
		}
		for oi := range v.Options {
			if strings.EqualFold(v.Options[oi].Value, sel.Value) {
				return &v.Options[oi], true
			}
		}
	}
	return nil, false
}

// Resolve validates a selection and returns the unit price and matched option.
// A zero selection resolves to the product itself.
func (p *Product) Resolve(sel VariantSelection) (int64, *VariantOption, error) {
	if sel.IsZero() {
		return p.EffectivePrice(), nil, nil
	}
	if sel.Name == "" || sel.Value == "" {
		return 0, nil, ErrVariantRequired
	}
	opt, ok := p.FindOption(sel)
	if !ok {
		return 0, nil, ErrVariantNotFound.Messagef("%s has no %s option %q", p.Name, sel.Name, sel.Value)
	}
	return p.EffectivePrice() + opt.AdditionalPrice, opt, nil
}

// AvailableStock returns the stock the selection draws from
func (p *Product) AvailableStock(opt *VariantOption) int {
	if opt != nil {
		return opt.Stock
	}
	return p.Stock
}

// IsInStock reports whether anything can be sold
func (p *Product) IsInStock() bool {
	if p.Stock > 0 {
		return true
	}
	for _, v := range p.Variants {
		for _, o := range v.Options {
			if o.Stock > 0 {
				return true
			}
		}
	}
	return false
}
