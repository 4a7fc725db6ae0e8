package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "storefront-test"
	cfg.JWT.Secret = "test-secret-with-enough-length-000"
	cfg.JWT.AccessTokenExpiry = time.Minute
	return cfg
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewJWTManager(testConfig())

	token, err := m.GenerateAccessToken(7, "admin@example.com", true)
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.True(t, claims.IsAdmin)

	other := testConfig()
	other.JWT.Secret = "a-different-secret-entirely-11111"
	_, err = NewJWTManager(other).ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign := testConfig()
	foreign.App.Name = "someone-else"
	_, err = NewJWTManager(foreign).ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "issuer must match")
}

func TestExpiredToken(t *testing.T) {
	m := NewJWTManager(testConfig())
	issued := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	token, err := m.GenerateAccessToken(3, "Lan@Example.com", false)
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(time.Minute + 10*time.Second) }
	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err, "inside the clock skew allowance")
	assert.Equal(t, "lan@example.com", claims.Email)
	assert.Equal(t, "3", claims.Subject)

	m.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = m.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromHeader("Bearer abc"))
	assert.Equal(t, "abc", ExtractTokenFromHeader("bearer  abc "))
	assert.Equal(t, "", ExtractTokenFromHeader("Basic abc"))
	assert.Equal(t, "", ExtractTokenFromHeader(""))
}

func TestGuestToken(t *testing.T) {
	g := NewGuestTokenManager(4)
	token := g.NewToken()
	assert.Len(t, token, 32)

	hash, err := g.Hash(token)
	require.NoError(t, err)
	assert.True(t, g.Verify(hash, token))
	assert.False(t, g.Verify(hash, g.NewToken()))
	assert.False(t, g.Verify("", token))
}
