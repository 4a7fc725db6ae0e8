// internal/domain/user/address_service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/pkg/apperror"
	"gorm.io/gorm"
)

var errInvalidCountry = apperror.Validation("address_invalid_country", "unsupported country code")

// Countries we ship to
var shippingCountries = map[string]bool{
	"VN": true,
}

// AddressService manages saved shipping addresses
type AddressService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewAddressService creates a new address service
func NewAddressService(db *gorm.DB, logger *logrus.Logger) *AddressService {
	return &AddressService{
		db:     db,
		logger: logger,
	}
}

// CreateAddressRequest represents address creation data
type CreateAddressRequest struct {
	FirstName    string `json:"first_name" binding:"required"`
	LastName     string `json:"last_name" binding:"required"`
	Company      string `json:"company"`
	AddressLine1 string `json:"address_line1" binding:"required"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city" binding:"required"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country" binding:"required,len=2"`
	Phone        string `json:"phone" binding:"required"`
	IsDefault    bool   `json:"is_default"`
}

// ListAddresses returns the user's addresses, default first
func (s *AddressService) ListAddresses(ctx context.Context, userID uint) ([]Address, error) {
	var addresses []Address
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC").
		Find(&addresses).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve addresses: %w", err)
	}
	return addresses, nil
}

// GetAddress retrieves an address owned by the user
func (s *AddressService) GetAddress(ctx context.Context, userID, addressID uint) (*Address, error) {
	var address Address
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", addressID, userID).First(&address).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("failed to retrieve address: %w", err)
	}
	return &address, nil
}

// CreateAddress saves a new address. The first address becomes the default.
func (s *AddressService) CreateAddress(ctx context.Context, userID uint, req *CreateAddressRequest) (*Address, error) {
	country := strings.ToUpper(strings.TrimSpace(req.Country))
	if !shippingCountries[country] {
		return nil, errInvalidCountry.Messagef("we do not ship to %q", req.Country)
	}

	address := &Address{
		UserID:       userID,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Company:      req.Company,
		AddressLine1: strings.TrimSpace(req.AddressLine1),
		AddressLine2: req.AddressLine2,
		City:         strings.TrimSpace(req.City),
		State:        req.State,
		PostalCode:   req.PostalCode,
		Country:      country,
		Phone:        strings.TrimSpace(req.Phone),
		IsDefault:    req.IsDefault,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Address{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count addresses: %w", err)
		}
		if count == 0 {
			address.IsDefault = true
		}
		if address.IsDefault {
			if err := tx.Model(&Address{}).
				Where("user_id = ? AND is_default = ?", userID, true).
				Update("is_default", false).Error; err != nil {
				return fmt.Errorf("failed to unset default address: %w", err)
			}
		}
		if err := tx.Create(address).Error; err != nil {
			return fmt.Errorf("failed to create address: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"address_id": address.ID,
	}).Debug("Address saved")

	return address, nil
}

// DeleteAddress removes an address owned by the user
func (s *AddressService) DeleteAddress(ctx context.Context, userID, addressID uint) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", addressID, userID).Delete(&Address{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete address: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAddressNotFound
	}
	return nil
}
