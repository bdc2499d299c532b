package poller

import (
	"context"
	"errors"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/events"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Clearer empties a cart session.
type Clearer interface {
	Clear(ctx context.Context, sessionID string) error
}

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Poller clears carts once their checkout has been paid.
type Poller struct {
	reader  MessageReader
	clearer Clearer
	log     *zap.Logger
}

func NewKafkaReader(topic, groupID string, brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 1e6,
	})
}

func NewPoller(reader MessageReader, clearer Clearer, log *zap.Logger) *Poller {
	return &Poller{reader: reader, clearer: clearer, log: log}
}

func (p *Poller) Run(ctx context.Context) {
	for ctx.Err() == nil {
		p.handleNext(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Warn("error closing reader", zap.Error(err))
	}
}

func (p *Poller) handleNext(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			p.log.Warn("error reading message", zap.Error(err))
		}
		return
	}

	if t := eventType(m); t != "" && t != events.TypeCheckoutCompleted {
		return
	}

	ev, err := events.DecodeCheckoutCompleted(m.Value)
	if err != nil {
		p.log.Warn("skipping checkout event", zap.Int64("offset", m.Offset), zap.Error(err))
		return
	}

	if err := p.clearer.Clear(ctx, ev.CartSession); err != nil {
		p.log.Error("failed to clear cart",
			zap.String("cart_session", ev.CartSession),
			zap.String("checkout_session_id", ev.CheckoutSessionID),
			zap.Error(err))
		return
	}
	p.log.Info("cart cleared after checkout",
		zap.String("cart_session", ev.CartSession),
		zap.String("checkout_session_id", ev.CheckoutSessionID))
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == events.HeaderEventType {
			return string(h.Value)
		}
	}
	return ""
}
