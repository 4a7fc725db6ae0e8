// internal/infrastructure/messaging/kafka/publisher.go
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/your-org/storefront/internal/domain/order"
)

const eventVersion = 1

// Envelope wraps every order event on the topic
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id"` // order number
	Payload       json.RawMessage `json:"payload"`
}

// OrderPayload is the order snapshot carried by every event
type OrderPayload struct {
	OrderID        uint             `json:"order_id"`
	OrderNumber    string           `json:"order_number"`
	UserID         *uint            `json:"user_id,omitempty"`
	Status         string           `json:"status"`
	PreviousStatus string           `json:"previous_status,omitempty"`
	PaymentMethod  string           `json:"payment_method"`
	PaymentStatus  string           `json:"payment_status"`
	Total          int64            `json:"total"`
	Currency       string           `json:"currency"`
	CouponCode     string           `json:"coupon_code,omitempty"`
	PointsUsed     int64            `json:"points_used"`
	PointsEarned   int64            `json:"points_earned"`
	Note           string           `json:"note,omitempty"`
	Items          []OrderItemEvent `json:"items"`
}

// OrderItemEvent is one frozen order line
type OrderItemEvent struct {
	ProductID       uint  `json:"product_id"`
	VariantOptionID *uint `json:"variant_option_id,omitempty"`
	Quantity        int   `json:"quantity"`
	Price           int64 `json:"price"`
}

// sender is satisfied by *Producer
type sender interface {
	Send(ctx context.Context, key, value []byte, headers ...kafka.Header) error
}

// OrderEventPublisher publishes order lifecycle events
type OrderEventPublisher struct {
	producer sender
	service  string
}

// NewOrderEventPublisher creates a publisher; service names the producer in envelopes
func NewOrderEventPublisher(producer *Producer, service string) *OrderEventPublisher {
	return &OrderEventPublisher{producer: producer, service: service}
}

// Publish queues evt keyed by order number so one order's events stay ordered
func (p *OrderEventPublisher) Publish(ctx context.Context, evt order.Event) error {
	value, err := p.encode(evt)
	if err != nil {
		return err
	}
	return p.producer.Send(ctx, []byte(evt.Order.OrderNumber), value,
		kafka.Header{Key: "x-event-type", Value: []byte(evt.Type)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(eventVersion))},
	)
}

func (p *OrderEventPublisher) encode(evt order.Event) ([]byte, error) {
	o := evt.Order
	payload := OrderPayload{
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		UserID:         o.UserID,
		Status:         string(o.Status),
		PreviousStatus: string(evt.PreviousStatus),
		PaymentMethod:  string(o.PaymentMethod),
		PaymentStatus:  string(o.PaymentStatus),
		Total:          o.TotalAmount,
		Currency:       o.Currency,
		CouponCode:     o.CouponCode,
		PointsUsed:     o.LoyaltyPointsUsed,
		PointsEarned:   o.LoyaltyPointsEarned,
		Note:           evt.Note,
	}
	for _, it := range o.Items {
		payload.Items = append(payload.Items, OrderItemEvent{
			ProductID:       it.ProductID,
			VariantOptionID: it.VariantOptionID,
			Quantity:        it.Quantity,
			Price:           it.Price,
		})
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order payload: %w", err)
	}
	env, err := json.Marshal(Envelope{
		EventID:       uuid.NewString(),
		EventType:     string(evt.Type),
		EventVersion:  eventVersion,
		OccurredAt:    evt.OccurredAt.UTC(),
		Producer:      p.service,
		CorrelationID: o.OrderNumber,
		Payload:       raw,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode event envelope: %w", err)
	}
	return env, nil
}
