package checkout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
)

type capturedRequest struct {
	m    sync.Mutex
	path string
	auth string
	form url.Values
}

func newStripeServer(t *testing.T, status int, body string) (*StripeGateway, *capturedRequest) {
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.m.Lock()
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		if assert.NoError(t, r.ParseForm()) {
			captured.form = r.PostForm
		}
		captured.m.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return NewStripeGatewayWithBackend("sk_test_123", backend), captured
}

func TestStripeGateway_CreatesSessionFromLineItems(t *testing.T) {
	gw, captured := newStripeServer(t, http.StatusOK,
		`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`)

	payload, err := NewBuilder("gbp").Build(sampleRequest())
	require.NoError(t, err)
	payload.ShippingRateRef = "shr_123"

	redirect, err := gw.CreateSession(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", redirect)

	captured.m.Lock()
	defer captured.m.Unlock()
	assert.Equal(t, "/v1/checkout/sessions", captured.path)
	assert.Equal(t, "Bearer sk_test_123", captured.auth)

	f := captured.form
	assert.Equal(t, "payment", f.Get("mode"))
	assert.Equal(t, "jo@example.com", f.Get("customer_email"))
	assert.Equal(t, "2499", f.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "gbp", f.Get("line_items[0][price_data][currency]"))
	assert.Equal(t, "2", f.Get("line_items[0][quantity]"))
	assert.Equal(t, "Classic T-Shirt", f.Get("line_items[0][price_data][product_data][name]"))
	assert.Equal(t, "4938821288", f.Get("line_items[0][price_data][product_data][metadata][fulfillment_variant_id]"))
	assert.Equal(t, "bundle", f.Get("line_items[1][price_data][product_data][metadata][product_type]"))
	assert.Equal(t, "sess-1", f.Get("metadata[cart_session]"))
	assert.Equal(t, "103.96", f.Get("metadata[total]"))
	assert.Equal(t, "shr_123", f.Get("shipping_options[0][shipping_rate]"))
}

func TestStripeGateway_PriceRef(t *testing.T) {
	gw, captured := newStripeServer(t, http.StatusOK,
		`{"id":"cs_test_2","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_2"}`)

	_, err := gw.CreateSession(context.Background(), &SessionRequest{
		Mode: ModePayment, PriceRef: "price_abc", CustomerEmail: "jo@example.com",
		SuccessURL: "https://shop.test/success", CancelURL: "https://shop.test/cancel",
	})
	require.NoError(t, err)

	captured.m.Lock()
	defer captured.m.Unlock()
	assert.Equal(t, "price_abc", captured.form.Get("line_items[0][price]"))
	assert.Equal(t, "1", captured.form.Get("line_items[0][quantity]"))
}

func TestStripeGateway_AuthenticationFailure(t *testing.T) {
	gw, _ := newStripeServer(t, http.StatusUnauthorized,
		`{"error":{"type":"invalid_request_error","message":"Invalid API Key provided: sk_test_***123"}}`)

	_, err := gw.CreateSession(context.Background(), &SessionRequest{Mode: ModePayment, PriceRef: "price_abc"})
	require.Error(t, err)
	assert.Equal(t, KindAuthentication, Classify(err).Kind)
}

func TestStripeGateway_NotConfigured(t *testing.T) {
	_, err := NewStripeGateway("").CreateSession(context.Background(), &SessionRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, KindMisconfigured, Classify(err).Kind)
}
