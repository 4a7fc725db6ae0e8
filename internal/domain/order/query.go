// internal/domain/order/query.go
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page          int           `form:"page,default=1"`
	Limit         int           `form:"limit,default=20"`
	Status        OrderStatus   `form:"status"`
	PaymentStatus PaymentStatus `form:"payment_status"`
	UserID        uint          `form:"user_id"`
	Email         string        `form:"email"`
	Search        string        `form:"search"` // order number prefix
	SortBy        string        `form:"sort_by,default=created_at"`
	SortOrder     string        `form:"sort_order,default=desc"`
	DateFrom      string        `form:"date_from"` // YYYY-MM-DD
	DateTo        string        `form:"date_to"`   // YYYY-MM-DD, inclusive
}

// OrderResponse represents order response with pagination
type OrderResponse struct {
	Orders     []Order    `json:"orders"`
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

func preloadOrder(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		})
}

// GetOrder retrieves a single order by ID
func (s *Service) GetOrder(ctx context.Context, id uint) (*Order, error) {
	var o Order
	if err := preloadOrder(s.db.WithContext(ctx)).First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &o, nil
}

// GetOrderByNumber retrieves a single order by its public number
func (s *Service) GetOrderByNumber(ctx context.Context, number string) (*Order, error) {
	var o Order
	err := preloadOrder(s.db.WithContext(ctx)).
		Where("order_number = ?", strings.ToUpper(strings.TrimSpace(number))).
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &o, nil
}

// GetOrderForUser retrieves an order owned by userID
func (s *Service) GetOrderForUser(ctx context.Context, userID, orderID uint) (*Order, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID == nil || *o.UserID != userID {
		return nil, ErrForbidden
	}
	return o, nil
}

// GetGuestOrder retrieves a guest order by number and access token.
// A wrong token looks the same as a missing order.
func (s *Service) GetGuestOrder(ctx context.Context, number, token string) (*Order, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrNotFound
	}
	o, err := s.GetOrderByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !o.IsGuest() || o.GuestAccessTokenHash == "" || !s.deps.Tokens.Verify(o.GuestAccessTokenHash, token) {
		return nil, ErrNotFound
	}
	return o, nil
}

// ListOrders retrieves orders with filtering and pagination
func (s *Service) ListOrders(ctx context.Context, req *OrderListRequest) (*OrderResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&Order{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.PaymentStatus != "" {
		query = query.Where("payment_status = ?", req.PaymentStatus)
	}
	if req.UserID != 0 {
		query = query.Where("user_id = ?", req.UserID)
	}
	if req.Email != "" {
		query = query.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email)))
	}
	if req.Search != "" {
		query = query.Where("order_number LIKE ?", strings.ToUpper(strings.TrimSpace(req.Search))+"%")
	}
	if req.DateFrom != "" {
		from, err := time.Parse("2006-01-02", req.DateFrom)
		if err != nil {
			return nil, ErrInvalidDate.Messagef("date_from %q is not YYYY-MM-DD", req.DateFrom)
		}
		query = query.Where("created_at >= ?", from)
	}
	if req.DateTo != "" {
		to, err := time.Parse("2006-01-02", req.DateTo)
		if err != nil {
			return nil, ErrInvalidDate.Messagef("date_to %q is not YYYY-MM-DD", req.DateTo)
		}
		query = query.Where("created_at < ?", to.AddDate(0, 0, 1))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []Order
	offset := (req.Page - 1) * req.Limit
	if err := preloadOrder(query).
		Order(buildOrderClause(req.SortBy, req.SortOrder)).
		Offset(offset).Limit(req.Limit).
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &OrderResponse{
		Orders: orders,
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

// ListUserOrders retrieves orders for a specific user
func (s *Service) ListUserOrders(ctx context.Context, userID uint, page, limit int) (*OrderResponse, error) {
	return s.ListOrders(ctx, &OrderListRequest{
		Page:   page,
		Limit:  limit,
		UserID: userID,
	})
}

func buildOrderClause(sortBy, sortOrder string) string {
	switch sortBy {
	case "created_at", "total_amount", "status", "order_number":
	default:
		sortBy = "created_at"
	}
	if sortOrder != "asc" {
		sortOrder = "desc"
	}
	return fmt.Sprintf("%s %s, id %s", sortBy, sortOrder, sortOrder)
}
