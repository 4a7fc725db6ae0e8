// internal/pkg/auth/guest_token.go
package auth

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// GuestTokenManager issues the one-time access tokens handed to guest
// buyers. Only the bcrypt hash is stored on the order.
type GuestTokenManager struct {
	cost int
}

// NewGuestTokenManager creates a token manager; cost falls back to bcrypt's default
func NewGuestTokenManager(cost int) *GuestTokenManager {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &GuestTokenManager{cost: cost}
}

// NewToken returns a random token to give to the guest
func (g *GuestTokenManager) NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Hash hashes a token for storage
func (g *GuestTokenManager) Hash(token string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), g.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash guest token: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether token matches hash
func (g *GuestTokenManager) Verify(hash, token string) bool {
	if hash == "" || token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}
