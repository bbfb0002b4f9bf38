// Package events publishes order events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/abdidvp/ordersvc/internal/domain"
)

const (
	batchTimeout = 10 * time.Millisecond
	batchSize    = 1
)

// OrderCreatedEvent is the payload written for every placed order.
type OrderCreatedEvent struct {
	OrderID    string           `json:"order_id"`
	CustomerID string           `json:"customer_id"`
	Total      string           `json:"total"`
	Items      []OrderEventItem `json:"items"`
	CreatedAt  time.Time        `json:"created_at"`
}

type OrderEventItem struct {
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	Quantity  string `json:"quantity"`
}

// Writer is the subset of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher implements domain.EventPublisher.
type KafkaPublisher struct {
	writer Writer
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: batchTimeout,
		BatchSize:    batchSize,
	})
}

// NewKafkaPublisherWithWriter wraps an existing writer.
func NewKafkaPublisherWithWriter(w Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// OrderPlaced writes one message keyed by order id.
func (p *KafkaPublisher) OrderPlaced(ctx context.Context, order *domain.Order) error {
	msg, err := NewOrderMessage(ctx, order)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write order %s: %w", order.ID, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NewOrderMessage builds the Kafka message for order. The current trace
// context is injected into the headers so consumers can continue the trace.
func NewOrderMessage(ctx context.Context, order *domain.Order) (kafka.Message, error) {
	event := OrderCreatedEvent{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Total:      order.Total().StringFixed(2),
		Items:      make([]OrderEventItem, 0, len(order.Items)),
		CreatedAt:  order.CreatedAt,
	}
	for _, it := range order.Items {
		event.Items = append(event.Items, OrderEventItem{
			ProductID: it.ProductID,
			Price:     it.Price.String(),
			Quantity:  it.Quantity.StringFixed(domain.QuantityScale),
		})
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode order %s: %w", order.ID, err)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	headers := make([]kafka.Header, 0, len(carrier))
	for _, k := range carrier.Keys() {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(carrier.Get(k))})
	}

	return kafka.Message{
		Key:     []byte(order.ID),
		Value:   payload,
		Headers: headers,
	}, nil
}
