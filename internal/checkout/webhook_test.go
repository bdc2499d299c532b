package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

const testSecret = "whsec_test_secret"

type mockPublisher struct {
	m      sync.RWMutex
	events []events.CheckoutCompleted
	err    error
}

func (p *mockPublisher) PublishCheckoutCompleted(_ context.Context, ev events.CheckoutCompleted) error {
	p.m.Lock()
	defer p.m.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *mockPublisher) published() []events.CheckoutCompleted {
	p.m.RLock()
	defer p.m.RUnlock()
	return append([]events.CheckoutCompleted(nil), p.events...)
}

func signed(t *testing.T, payload string) ([]byte, string) {
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return sp.Payload, sp.Header
}

const completedEvent = `{
	"id": "evt_1",
	"object": "event",
	"type": "checkout.session.completed",
	"created": 1700000000,
	"data": {"object": {
		"id": "cs_test_1",
		"object": "checkout.session",
		"amount_total": 10396,
		"currency": "gbp",
		"customer_details": {"email": "paid@example.com"},
		"metadata": {"cart_session": "sess-1", "customer_email": "jo@example.com"}
	}}
}`

func TestWebhook_PublishesCompletedCheckout(t *testing.T) {
	pub := &mockPublisher{}
	wh := NewWebhook(testSecret, pub, zap.NewNop())

	payload, sig := signed(t, completedEvent)
	require.NoError(t, wh.Handle(context.Background(), payload, sig))

	got := pub.published()
	require.Len(t, got, 1)
	assert.Equal(t, events.CheckoutCompleted{
		CheckoutSessionID: "cs_test_1",
		CartSession:       "sess-1",
		CustomerEmail:     "paid@example.com",
		AmountTotal:       10396,
		Currency:          "gbp",
		CompletedAt:       time.Unix(1700000000, 0).UTC(),
	}, got[0])
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	pub := &mockPublisher{}
	wh := NewWebhook(testSecret, pub, zap.NewNop())

	payload, _ := signed(t, completedEvent)
	err := wh.Handle(context.Background(), payload, "t=1,v1=deadbeef")

	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Empty(t, pub.published())
}

func TestWebhook_IgnoresOtherEvents(t *testing.T) {
	pub := &mockPublisher{}
	wh := NewWebhook(testSecret, pub, zap.NewNop())

	payload, sig := signed(t, `{"id":"evt_2","object":"event","type":"checkout.session.expired","data":{"object":{"id":"cs_2"}}}`)
	require.NoError(t, wh.Handle(context.Background(), payload, sig))
	assert.Empty(t, pub.published())
}

func TestWebhook_SkipsSessionsWithoutCart(t *testing.T) {
	pub := &mockPublisher{}
	wh := NewWebhook(testSecret, pub, zap.NewNop())

	payload, sig := signed(t, `{"id":"evt_3","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_3","metadata":{}}}}`)
	require.NoError(t, wh.Handle(context.Background(), payload, sig))
	assert.Empty(t, pub.published())
}

func TestWebhook_PublishFailureIsReturned(t *testing.T) {
	pub := &mockPublisher{err: errors.New("kafka down")}
	wh := NewWebhook(testSecret, pub, zap.NewNop())

	payload, sig := signed(t, completedEvent)
	assert.ErrorContains(t, wh.Handle(context.Background(), payload, sig), "kafka down")
}

func TestWebhook_NotConfigured(t *testing.T) {
	wh := NewWebhook("", &mockPublisher{}, zap.NewNop())
	assert.ErrorIs(t, wh.Handle(context.Background(), []byte(`{}`), ""), ErrNotConfigured)
}
