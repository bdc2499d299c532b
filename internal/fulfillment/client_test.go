package fulfillment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/", Token: "secret", Timeout: time.Second}, zap.NewNop())
}

func TestVariantPrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/store/variants/4938821288", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"code":200,"result":{"id":4938821288,"retail_price":"26.50","currency":"GBP"}}`))
	})

	price, err := c.VariantPrice(context.Background(), "4938821288")
	require.NoError(t, err)
	assert.Equal(t, "26.5", price.Amount.String())
	assert.Equal(t, "gbp", price.Currency)
}

func TestSizeChart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/71/sizes", r.URL.Path)
		assert.Equal(t, "en_GB", r.Header.Get("X-PF-Language"))
		w.Write([]byte(`{"code":200,"result":{"product_id":71,"available_sizes":["S","M"],"size_tables":[
			{"type":"measure_yourself","unit":"inches","description":"<p>Chest</p>","measurements":[
				{"type_label":"Chest","values":[{"size":"S","min_value":"34","max_value":"37"},{"size":"M","value":"40"}]}]}]}}`))
	})

	chart, err := c.SizeChart(context.Background(), "71")
	require.NoError(t, err)
	assert.Equal(t, "71", chart.ProductRef)
	assert.Equal(t, []string{"S", "M"}, chart.AvailableSizes)
	require.Len(t, chart.Tables, 1)
	assert.Equal(t, "inches", chart.Tables[0].Unit)
	require.Len(t, chart.Tables[0].Measurements, 1)
	assert.Equal(t, []domain.SizeValue{
		{Size: "S", Min: "34", Max: "37"},
		{Size: "M", Value: "40"},
	}, chart.Tables[0].Measurements[0].Values)
}

func TestSizeChart_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.SizeChart(context.Background(), "404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVariantPrice_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.VariantPrice(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVariantPrice_BadPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":200,"result":{"retail_price":"n/a"}}`))
	})

	_, err := c.VariantPrice(context.Background(), "1")
	assert.ErrorContains(t, err, "bad retail price")
}

func TestVariantPrice_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	for range 5 {
		_, err := c.VariantPrice(context.Background(), "1")
		assert.ErrorIs(t, err, ErrUnavailable)
	}
	require.Equal(t, int32(5), hits.Load())

	_, err := c.VariantPrice(context.Background(), "1")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(5), hits.Load(), "open breaker must not reach the server")
}

func TestVariantPrice_NotFoundDoesNotTrip(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	for range 7 {
		_, err := c.VariantPrice(context.Background(), "1")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, int32(7), hits.Load())
}

func TestShippingRates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/shipping/rates", r.URL.Path)

		var req rateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "GB", req.Recipient.CountryCode)
		assert.Equal(t, "SW1A 1AA", req.Recipient.Zip)
		assert.Equal(t, "GBP", req.Currency)
		assert.Equal(t, []domain.ShippingItem{{VariantID: "4938946337", Quantity: 2}}, req.Items)

		w.Write([]byte(`{"code":200,"result":[
			{"id":"STANDARD","name":"Flat Rate","rate":"4.29","currency":"GBP","minDeliveryDays":2,"maxDeliveryDays":4},
			{"id":"EXPRESS","name":"Express","rate":"9.99","currency":"GBP"}
		]}`))
	})

	opts, err := c.ShippingRates(context.Background(),
		domain.ShippingAddress{Address: "1 Road", City: "London", Postcode: "SW1A 1AA", Country: "United Kingdom"},
		[]domain.ShippingItem{{VariantID: "4938946337", Quantity: 2}}, "gbp")
	require.NoError(t, err)
	require.Len(t, opts, 2)
	assert.Equal(t, "STANDARD", opts[0].ID)
	assert.Equal(t, "4.29", opts[0].Rate.String())
	assert.Equal(t, 4, opts[0].MaxDeliveryDays)
}

type stubRates struct {
	calls atomic.Int32
	opts  []domain.ShippingOption
	err   error
}

func (s *stubRates) ShippingRates(context.Context, domain.ShippingAddress, []domain.ShippingItem, string) ([]domain.ShippingOption, error) {
	s.calls.Add(1)
	return s.opts, s.err
}

func setupQuoter(t *testing.T, src RateSource) (*Quoter, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewQuoter(src, client, 5*time.Minute, zap.NewNop()), mr
}

var london = domain.ShippingAddress{Address: "1 Road", City: "London", Postcode: "sw1a 1aa", Country: "GB"}

func TestQuoter_CachesProviderAnswer(t *testing.T) {
	src := &stubRates{opts: []domain.ShippingOption{{ID: "STANDARD", Name: "Flat", Rate: decimal.RequireFromString("4.29"), Currency: "GBP"}}}
	q, mr := setupQuoter(t, src)
	items := []domain.ShippingItem{{VariantID: "b", Quantity: 1}, {VariantID: "a", Quantity: 2}}

	first := q.Quote(context.Background(), london, items, "gbp")
	second := q.Quote(context.Background(), london, []domain.ShippingItem{items[1], items[0]}, "gbp")

	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.True(t, first[0].Rate.Equal(second[0].Rate))
	assert.Equal(t, int32(1), src.calls.Load())

	key := "storefront:shipping:GB:SW1A1AA:a:2,b:1"
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 5*time.Minute, mr.TTL(key))
}

func TestQuoter_FallbackOnError(t *testing.T) {
	src := &stubRates{err: ErrUnavailable}
	q, mr := setupQuoter(t, src)

	opts := q.Quote(context.Background(), london, []domain.ShippingItem{{VariantID: "a", Quantity: 1}}, "gbp")
	require.Len(t, opts, 1)
	assert.Equal(t, "fallback_standard", opts[0].ID)
	assert.Equal(t, "3.99", opts[0].Rate.StringFixed(2))
	assert.Equal(t, time.Minute, mr.TTL("storefront:shipping:GB:SW1A1AA:a:1"))
}

func TestQuoter_WithoutRedis(t *testing.T) {
	src := &stubRates{}
	q := NewQuoter(src, nil, time.Minute, zap.NewNop())

	opts := q.Quote(context.Background(), london, nil, "gbp")
	assert.Equal(t, []domain.ShippingOption{FallbackOption}, opts)
}

func TestCountryCode(t *testing.T) {
	assert.Equal(t, "GB", CountryCode("United Kingdom"))
	assert.Equal(t, "DE", CountryCode("Germany"))
	assert.Equal(t, "US", CountryCode("us"))
	assert.Equal(t, "GB", CountryCode("Atlantis"))
}
