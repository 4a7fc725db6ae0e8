// internal/domain/product/service.go
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// Service handles product catalog reads and admin creation
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewService creates a new product service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=20"`
	Category  string `form:"category"`
	Brand     string `form:"brand"`
	Search    string `form:"search"`
	SortBy    string `form:"sort_by,default=created_at"`
	SortOrder string `form:"sort_order,default=desc"`
	MinPrice  int64  `form:"min_price"`
	MaxPrice  int64  `form:"max_price"`
	InStock   bool   `form:"in_stock"`
}

// ProductCreateRequest represents product creation data
type ProductCreateRequest struct {
	Name           string                 `json:"name" binding:"required"`
	Description    string                 `json:"description"`
	Price          int64                  `json:"price" binding:"required,gt=0"`
	DiscountPrice  *int64                 `json:"discount_price"`
	Category       string                 `json:"category"`
	Subcategory    string                 `json:"subcategory"`
	Brand          string                 `json:"brand"`
	Stock          int                    `json:"stock" binding:"gte=0"`
	IsActive       *bool                  `json:"is_active"`
	Specifications []SpecificationRequest `json:"specifications"`
	Variants       []VariantRequest       `json:"variants"`
}

type SpecificationRequest struct {
	Name  string `json:"name" binding:"required"`
	Value string `json:"value" binding:"required"`
}

type VariantRequest struct {
	Name    string                 `json:"name" binding:"required"`
	Options []VariantOptionRequest `json:"options" binding:"required,min=1"`
}

type VariantOptionRequest struct {
	Value           string `json:"value" binding:"required"`
	AdditionalPrice int64  `json:"additional_price"`
	Stock           int    `json:"stock" binding:"gte=0"`
}

// ProductResponse represents product response with pagination
type ProductResponse struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

func preloadCatalog(db *gorm.DB) *gorm.DB {
	return db.Preload("Specifications").Preload("Variants.Options")
}

// GetProducts retrieves active products with filtering and pagination
func (s *Service) GetProducts(ctx context.Context, req *ProductListRequest) (*ProductResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&Product{}).Where("is_active = ?", true)

	if req.Category != "" {
		query = query.Where("category = ?", req.Category)
	}
	if req.Brand != "" {
		query = query.Where("brand = ?", req.Brand)
	}
	if req.Search != "" {
		search := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", search, search)
	}
	if req.MinPrice > 0 {
		query = query.Where("price >= ?", req.MinPrice)
	}
	if req.MaxPrice > 0 {
		query = query.Where("price <= ?", req.MaxPrice)
	}
	if req.InStock {
		query = query.Where("stock > 0")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	var products []Product
	offset := (req.Page - 1) * req.Limit
	if err := preloadCatalog(query).
		Order(buildOrderClause(req.SortBy, req.SortOrder)).
		Offset(offset).Limit(req.Limit).
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &ProductResponse{
		Products: products,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// GetProduct retrieves a single product by ID
func (s *Service) GetProduct(ctx context.Context, id uint) (*Product, error) {
	var product Product
	if err := preloadCatalog(s.db.WithContext(ctx)).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &product, nil
}

// GetProductBySlug retrieves a single product by slug
func (s *Service) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	var product Product
	if err := preloadCatalog(s.db.WithContext(ctx)).Where("slug = ?", slug).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &product, nil
}

// CreateProduct stores a product with its specifications and variants
func (s *Service) CreateProduct(ctx context.Context, req *ProductCreateRequest) (*Product, error) {
	if req.DiscountPrice != nil && (*req.DiscountPrice <= 0 || *req.DiscountPrice >= req.Price) {
		return nil, ErrInvalidPrice
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	product := &Product{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		DiscountPrice: req.DiscountPrice,
		Category:      req.Category,
		Subcategory:   req.Subcategory,
		Brand:         req.Brand,
		Stock:         req.Stock,
		IsActive:      active,
	}
	for _, spec := range req.Specifications {
		product.Specifications = append(product.Specifications, Specification{Name: spec.Name, Value: spec.Value})
	}
	for _, v := range req.Variants {
		variant := ProductVariant{Name: v.Name}
		for _, o := range v.Options {
			variant.Options = append(variant.Options, VariantOption{
				Value:           o.Value,
				AdditionalPrice: o.AdditionalPrice,
				Stock:           o.Stock,
			})
		}
		product.Variants = append(product.Variants, variant)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		base := Slugify(req.Name)
		product.Slug = base
		for i := 2; ; i++ {
			var count int64
			if err := tx.Model(&Product{}).Unscoped().Where("slug = ?", product.Slug).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check slug: %w", err)
			}
			if count == 0 {
				break
			}
			product.Slug = fmt.Sprintf("%s-%d", base, i)
		}
		if err := tx.Create(product).Error; err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"product_id": product.ID,
		"slug":       product.Slug,
	}).Info("Product created")

	return product, nil
}

// Slugify turns a Vietnamese product name into an ASCII URL slug
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, name)
	if err != nil {
		plain = name
	}
	plain = strings.NewReplacer("đ", "d", "Đ", "D").Replace(plain)

	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(plain) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "product"
	}
	return slug
}

// buildOrderClause builds ORDER BY clause for sorting
func buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"name":       true,
		"price":      true,
		"created_at": true,
		"sold":       true,
		"rating":     true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s", sortBy, sortOrder)
}
