package order

import (
	"context"
	"time"
)

// EventType names an order lifecycle event
type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventOrderCancelled     EventType = "order.cancelled"
)

// Event is published after a lifecycle change commits
type Event struct {
	Type           EventType
	Order          *Order
	PreviousStatus OrderStatus
	Note           string
	OccurredAt     time.Time
}

// Notifier tells the buyer about their order
type Notifier interface {
	OrderPlaced(ctx context.Context, o *Order) error
	OrderStatusChanged(ctx context.Context, o *Order, previous OrderStatus) error
}

// EventPublisher ships lifecycle events to other services
type EventPublisher interface {
	Publish(ctx context.Context, evt Event) error
}

// IdempotencyStore claims checkout request keys so client retries
// resolve to the order the first attempt created.
type IdempotencyStore interface {
	// Claim reserves key. When the key is already held it returns the
	// recorded order id, or 0 while the first request is still running.
	Claim(ctx context.Context, key string) (existingOrderID uint, claimed bool, err error)
	Complete(ctx context.Context, key string, orderID uint) error
	Release(ctx context.Context, key string) error
}

// TokenHasher issues, hashes and verifies guest access tokens
type TokenHasher interface {
	NewToken() string
	Hash(token string) (string, error)
	Verify(hash, token string) bool
}

type noopNotifier struct{}

func (noopNotifier) OrderPlaced(context.Context, *Order) error { return nil }
func (noopNotifier) OrderStatusChanged(context.Context, *Order, OrderStatus) error {
	return nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) error { return nil }

type noopIdempotency struct{}

func (noopIdempotency) Claim(context.Context, string) (uint, bool, error) { return 0, true, nil }
func (noopIdempotency) Complete(context.Context, string, uint) error      { return nil }
func (noopIdempotency) Release(context.Context, string) error             { return nil }
