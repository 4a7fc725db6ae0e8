package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.10, cfg.Store.VATRate)
	assert.Equal(t, int64(500000), cfg.Store.FreeShippingThreshold)
	assert.Equal(t, int64(30000), cfg.Store.ShippingFee)
	assert.Equal(t, int64(200000), cfg.Store.VATInvoiceThreshold)
	assert.Equal(t, int64(1000), cfg.Store.LoyaltyPointValue)
	assert.Equal(t, int64(10000), cfg.Store.LoyaltyEarnDivisor)
	assert.False(t, cfg.KafkaEnabled())
	assert.False(t, cfg.IsDevelopment())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STORE_SHIPPING_FEE", "25000")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(25000), cfg.Store.ShippingFee)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.KafkaEnabled())
}

func TestValidate(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")
	cfg, err := Load()
	require.NoError(t, err)

	cfg.JWT.Secret = "short"
	assert.Error(t, cfg.Validate())

	cfg.JWT.Secret = "a-secret-that-is-at-least-thirty-two-chars"
	cfg.Store.VATRate = 1.5
	assert.Error(t, cfg.Validate())

	cfg.Store.VATRate = 0.08
	cfg.Store.LoyaltyPointValue = 0
	assert.Error(t, cfg.Validate())
}
