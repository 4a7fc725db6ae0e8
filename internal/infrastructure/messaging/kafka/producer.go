// internal/infrastructure/messaging/kafka/producer.go
package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// ErrBufferFull is returned when the producer cannot queue a message in time
var ErrBufferFull = errors.New("kafka producer buffer full")

// ErrClosed is returned by Send after Close
var ErrClosed = errors.New("kafka producer closed")

// messageWriter is the part of *kafka.Writer the producer uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer queues messages in memory and writes them from one goroutine
type Producer struct {
	w      messageWriter
	logger *logrus.Logger
	inbox  chan kafka.Message
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewProducer creates a producer for topic; call Start before Send
func NewProducer(brokers []string, topic string, buf int, logger *logrus.Logger) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}, buf, logger)
}

func newProducer(w messageWriter, buf int, logger *logrus.Logger) *Producer {
	if buf <= 0 {
		buf = 256
	}
	return &Producer{
		w:      w,
		logger: logger,
		inbox:  make(chan kafka.Message, buf),
		done:   make(chan struct{}),
	}
}

// Start runs the write loop until Close drains the inbox
func (p *Producer) Start() {
	go func() {
		defer close(p.done)
		for m := range p.inbox {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := p.w.WriteMessages(ctx, m); err != nil {
				p.logger.WithError(err).WithField("key", string(m.Key)).Error("Failed to write Kafka message")
			}
			cancel()
		}
		if err := p.w.Close(); err != nil {
			p.logger.WithError(err).Warn("Failed to close Kafka writer")
		}
	}()
}

// Send queues a message, waiting at most until ctx is done
func (p *Producer) Send(ctx context.Context, key, value []byte, headers ...kafka.Header) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	msg := kafka.Message{Key: key, Value: value, Time: time.Now(), Headers: headers}
	select {
	case p.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ErrBufferFull
	}
}

// Close stops accepting messages, flushes the queue and waits
func (p *Producer) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
	p.mu.Unlock()
	<-p.done
}
