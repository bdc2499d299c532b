package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	TypeCheckoutCompleted = "checkout.completed"
	HeaderEventType       = "event_type"
)

var ErrMissingCartSession = errors.New("event has no cart session")

// CheckoutCompleted is published once the payment processor confirms a
// checkout session. Consumers use CartSession to find the cart that was paid for.
type CheckoutCompleted struct {
	CheckoutSessionID string    `json:"checkout_session_id"`
	CartSession       string    `json:"cart_session"`
	CustomerEmail     string    `json:"customer_email,omitempty"`
	AmountTotal       int64     `json:"amount_total"`
	Currency          string    `json:"currency"`
	CompletedAt       time.Time `json:"completed_at"`
}

func DecodeCheckoutCompleted(b []byte) (CheckoutCompleted, error) {
	var ev CheckoutCompleted
	if err := json.Unmarshal(b, &ev); err != nil {
		return ev, fmt.Errorf("error parsing message: %w", err)
	}
	if ev.CartSession == "" {
		return ev, ErrMissingCartSession
	}
	return ev, nil
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer MessageWriter
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
	}
}

func NewPublisher(w MessageWriter) *Publisher {
	return &Publisher{writer: w}
}

// PublishCheckoutCompleted keys messages by cart session so events for one
// cart stay ordered on a partition.
func (p *Publisher) PublishCheckoutCompleted(ctx context.Context, ev CheckoutCompleted) error {
	if ev.CartSession == "" {
		return ErrMissingCartSession
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal checkout event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.CartSession),
		Value: payload,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(TypeCheckoutCompleted)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish checkout event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
