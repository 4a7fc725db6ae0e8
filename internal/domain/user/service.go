// internal/domain/user/service.go
package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service exposes the customer record to checkout and admin tooling
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewService creates a new user service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// GetUser loads a user by ID
func (s *Service) GetUser(ctx context.Context, id uint) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return &u, nil
}

// GetProfile loads a user with saved addresses
func (s *Service) GetProfile(ctx context.Context, id uint) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).
		Preload("Addresses", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_default DESC, created_at DESC")
		}).
		First(&u, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return &u, nil
}

// LoadBuyer loads the user inside tx and rejects suspended accounts
func LoadBuyer(tx *gorm.DB, id uint) (*User, error) {
	var u User
	if err := tx.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	if u.IsBanned {
		return nil, ErrBanned
	}
	return &u, nil
}

// SetBanned suspends or reinstates a customer
func (s *Service) SetBanned(ctx context.Context, id uint, banned bool) (*User, error) {
	result := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("is_banned", banned)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":   id,
		"is_banned": banned,
	}).Info("User ban status changed")

	return s.GetUser(ctx, id)
}
