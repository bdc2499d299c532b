package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/events"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

type EventPublisher interface {
	PublishCheckoutCompleted(ctx context.Context, ev events.CheckoutCompleted) error
}

// Webhook turns verified checkout.session.completed notifications into
// checkout-completed events for the cart consumer.
type Webhook struct {
	secret    string
	publisher EventPublisher
	log       *zap.Logger
}

func NewWebhook(secret string, publisher EventPublisher, log *zap.Logger) *Webhook {
	return &Webhook{secret: secret, publisher: publisher, log: log}
}

// Handle verifies the signature and publishes completed sessions. Events of
// other types, and sessions without a cart session, are acknowledged and
// dropped.
func (w *Webhook) Handle(ctx context.Context, payload []byte, signature string) error {
	if w.secret == "" {
		return ErrNotConfigured
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, w.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		w.log.Debug("ignoring webhook event", zap.String("event_type", string(event.Type)))
		return nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return fmt.Errorf("decode checkout session: %w", err)
	}

	cartSession := cs.Metadata["cart_session"]
	if cartSession == "" {
		w.log.Warn("checkout session has no cart session", zap.String("checkout_session_id", cs.ID))
		return nil
	}

	email := cs.Metadata["customer_email"]
	if cs.CustomerDetails != nil && cs.CustomerDetails.Email != "" {
		email = cs.CustomerDetails.Email
	}

	ev := events.CheckoutCompleted{
		CheckoutSessionID: cs.ID,
		CartSession:       cartSession,
		CustomerEmail:     email,
		AmountTotal:       cs.AmountTotal,
		Currency:          string(cs.Currency),
		CompletedAt:       time.Unix(event.Created, 0).UTC(),
	}
	if err := w.publisher.PublishCheckoutCompleted(ctx, ev); err != nil {
		return err
	}

	w.log.Info("checkout completed",
		zap.String("checkout_session_id", cs.ID),
		zap.String("cart_session", cartSession))
	return nil
}
