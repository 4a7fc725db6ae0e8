// internal/domain/coupon/service.go
package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service handles coupon business logic
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
	now    func() time.Time
}

// NewService creates a new coupon service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateCouponRequest represents coupon creation data
type CreateCouponRequest struct {
	Code      string     `json:"code" binding:"required"`
	Discount  int        `json:"discount"`
	MinAmount int64      `json:"min_amount"`
	MaxUses   int        `json:"max_uses" binding:"required"`
	Active    *bool      `json:"active,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// Application is the result of checking a coupon against a subtotal
type Application struct {
	Coupon         *Coupon `json:"coupon"`
	Subtotal       int64   `json:"subtotal"`
	DiscountAmount int64   `json:"discount_amount"`
}

// CreateCoupon validates and stores a new coupon
func (s *Service) CreateCoupon(ctx context.Context, req *CreateCouponRequest) (*Coupon, error) {
	code, err := NormalizeCode(req.Code)
	if err != nil {
		return nil, err
	}
	if req.Discount < 0 || req.Discount > 100 {
		return nil, ErrInvalidDiscount
	}
	if req.MaxUses < 1 || req.MaxUses > MaxUsesLimit {
		return nil, ErrInvalidMaxUses
	}
	if req.MinAmount < 0 {
		return nil, ErrBelowMinimum.Messagef("minimum amount must not be negative")
	}
	if req.StartDate != nil && req.EndDate != nil && !req.StartDate.Before(*req.EndDate) {
		return nil, ErrInvalidWindow
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&Coupon{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check coupon code: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateCode
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	c := &Coupon{
		Code:      code,
		Discount:  req.Discount,
		MinAmount: req.MinAmount,
		MaxUses:   req.MaxUses,
		Active:    active,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"coupon_code": c.Code,
		"discount":    c.Discount,
		"max_uses":    c.MaxUses,
	}).Info("Coupon created")

	return c, nil
}

// GetByCode retrieves a coupon by its (normalized) code
func (s *Service) GetByCode(ctx context.Context, code string) (*Coupon, error) {
	normalized, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	var c Coupon
	if err := s.db.WithContext(ctx).Where("code = ?", normalized).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve coupon: %w", err)
	}
	return &c, nil
}

// ListCoupons returns coupons, newest first
func (s *Service) ListCoupons(ctx context.Context, activeOnly bool) ([]Coupon, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	var coupons []Coupon
	if err := query.Find(&coupons).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve coupons: %w", err)
	}
	return coupons, nil
}

// SetActive enables or disables a coupon
func (s *Service) SetActive(ctx context.Context, code string, active bool) (*Coupon, error) {
	c, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(c).Update("active", active).Error; err != nil {
		return nil, fmt.Errorf("failed to update coupon: %w", err)
	}
	c.Active = active
	return c, nil
}

// Apply checks the live coupon against subtotal and computes the discount
func (s *Service) Apply(ctx context.Context, code string, subtotal int64) (*Application, error) {
	c, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := c.Check(subtotal, s.now()); err != nil {
		return nil, err
	}
	return &Application{
		Coupon:         c,
		Subtotal:       subtotal,
		DiscountAmount: c.DiscountFor(subtotal),
	}, nil
}

// Redeem consumes one use of the coupon inside tx.
// The increment is conditional on the usage cap and validity window, so
// concurrent checkouts cannot push used_count past max_uses and a coupon
// that lapsed after the quote is refused.
func (s *Service) Redeem(tx *gorm.DB, code string) error {
	now := s.now()
	result := tx.Model(&Coupon{}).
		Where("code = ? AND active = ? AND used_count < max_uses", code, true).
		Where("(start_date IS NULL OR start_date <= ?) AND (end_date IS NULL OR end_date >= ?)", now, now).
		Update("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to redeem coupon: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotRedeemable
	}
	return nil
}

// Release gives back one use of the coupon inside tx, never going below zero
func (s *Service) Release(tx *gorm.DB, code string) error {
	result := tx.Model(&Coupon{}).
		Where("code = ? AND used_count > 0", code).
		Update("used_count", gorm.Expr("used_count - 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to release coupon: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		s.logger.WithField("coupon_code", code).Warn("Coupon release skipped: coupon missing or unused")
	}
	return nil
}
