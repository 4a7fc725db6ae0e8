// internal/infrastructure/database/redis/connection.go
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
)

const pingTimeout = 5 * time.Second

// Client owns the Redis connection pool shared by the idempotency
// store and the rate limiter
type Client struct {
	rdb *redis.Client
}

func options(cfg *config.Config) *redis.Options {
	return &redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  pingTimeout,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
}

// NewConnection opens the pool and pings the server
func NewConnection(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	c := &Client{rdb: redis.NewClient(options(cfg))}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := c.Health(ctx); err != nil {
		_ = c.rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.GetRedisAddr(), err)
	}

	logger.WithFields(logrus.Fields{
		"addr":      cfg.GetRedisAddr(),
		"db":        cfg.Redis.DB,
		"pool_size": cfg.Redis.PoolSize,
	}).Info("Redis connection established")
	return c, nil
}

// Cmdable exposes the commands used by the idempotency store and middleware
func (c *Client) Cmdable() redis.Cmdable {
	return c.rdb
}

// Health pings the server
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the pool
func (c *Client) Close() error {
	return c.rdb.Close()
}
