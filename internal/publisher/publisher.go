package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic         = "order-events"
	EventTypeOrderPlaced = "OrderPlaced"
)

type Publisher interface {
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error
	Close() error
}

// OrderPlacedEvent is the payload consumers of the order topic receive.
type OrderPlacedEvent struct {
	OrderID   string                `json:"order_id"`
	SessionID string                `json:"session_id"`
	UserID    string                `json:"user_id"`
	Email     string                `json:"email"`
	Products  []domain.OrderProduct `json:"products"`
	Total     string                `json:"total"`
	PlacedAt  time.Time             `json:"placed_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
	}
	return &KafkaPublisher{writer: w, timeout: 5 * time.Second}
}

func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	payload, err := json.Marshal(OrderPlacedEvent{
		OrderID:   order.ID,
		SessionID: order.SessionID,
		UserID:    order.User.UserID,
		Email:     order.User.Email,
		Products:  order.Products,
		Total:     order.Total.StringFixed(2),
		PlacedAt:  order.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(order.User.UserID), // per-purchaser ordering
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeOrderPlaced)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish order event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops events; used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(context.Context, *domain.Order) error { return nil }

func (NopPublisher) Close() error { return nil }
