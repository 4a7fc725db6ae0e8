// internal/infrastructure/database/redis/idempotency.go
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// KeyIdemOrderCreate maps a buyer-scoped checkout Idempotency-Key
	// ("user:<id>:<key>" or "session:<sha256>:<key>") to the order it created
	KeyIdemOrderCreate = "idem:order:create:%s"

	// pendingMarker holds the key while the first request is still running
	pendingMarker = "pending"

	DefaultIdempotencyTTL = 24 * time.Hour
)

// IdempotencyStore claims checkout keys in Redis
type IdempotencyStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewIdempotencyStore creates a store; keys expire after ttl
func NewIdempotencyStore(rdb redis.Cmdable, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func idemKey(key string) string {
	return fmt.Sprintf(KeyIdemOrderCreate, key)
}

// Claim reserves key with SET NX. When another request holds it, the
// recorded order id is returned, or 0 while that request is in flight.
func (s *IdempotencyStore) Claim(ctx context.Context, key string) (uint, bool, error) {
	ok, err := s.rdb.SetNX(ctx, idemKey(key), pendingMarker, s.ttl).Result()
	if err != nil {
		return 0, false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if ok {
		return 0, true, nil
	}

	val, err := s.rdb.Get(ctx, idemKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return s.Claim(ctx, key)
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if val == pendingMarker {
		return 0, false, nil
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt idempotency value %q: %w", val, err)
	}
	return uint(id), false, nil
}

// Complete records the order created under key
func (s *IdempotencyStore) Complete(ctx context.Context, key string, orderID uint) error {
	if err := s.rdb.Set(ctx, idemKey(key), strconv.FormatUint(uint64(orderID), 10), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to complete idempotency key: %w", err)
	}
	return nil
}

// Release frees key after a failed attempt so the client can retry
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, idemKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
