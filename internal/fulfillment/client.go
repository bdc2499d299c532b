package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

var (
	ErrUnavailable = errors.New("fulfillment service unavailable")
	ErrNotFound    = errors.New("fulfillment variant not found")
)

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the print-on-demand API through the credential-injecting
// proxy. Every call goes through a circuit breaker.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	prices     *gobreaker.CircuitBreaker[domain.Price]
	rates      *gobreaker.CircuitBreaker[[]domain.ShippingOption]
	charts     *gobreaker.CircuitBreaker[*domain.SizeChart]
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		prices:  newBreaker[domain.Price]("fulfillment-prices", log),
		rates:   newBreaker[[]domain.ShippingOption]("fulfillment-rates", log),
		charts:  newBreaker[*domain.SizeChart]("fulfillment-size-charts", log),
	}
}

func newBreaker[T any](name string, log *zap.Logger) *gobreaker.CircuitBreaker[T] {
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// not-found does not count towards tripping
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

type envelope[T any] struct {
	Code   int     `json:"code"`
	Result T       `json:"result"`
	Error  *apiErr `json:"error,omitempty"`
}

type apiErr struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type syncVariant struct {
	ID          json.Number `json:"id"`
	RetailPrice string      `json:"retail_price"`
	Currency    string      `json:"currency"`
}

// VariantPrice implements cart.PriceSource with the retail price of a
// fulfillment variant. The currency comes back lower-cased.
func (c *Client) VariantPrice(ctx context.Context, variantRef string) (domain.Price, error) {
	price, err := c.prices.Execute(func() (domain.Price, error) {
		var env envelope[syncVariant]
		if err := c.do(ctx, http.MethodGet, "/store/variants/"+url.PathEscape(variantRef), nil, &env); err != nil {
			return domain.Price{}, err
		}
		amount, err := decimal.NewFromString(env.Result.RetailPrice)
		if err != nil {
			return domain.Price{}, fmt.Errorf("variant %s: bad retail price %q: %w", variantRef, env.Result.RetailPrice, err)
		}
		return domain.Price{Amount: amount, Currency: strings.ToLower(env.Result.Currency)}, nil
	})
	return price, breakerErr(err)
}

type rateRecipient struct {
	Address1    string `json:"address1"`
	City        string `json:"city"`
	CountryCode string `json:"country_code"`
	Zip         string `json:"zip"`
}

type rateRequest struct {
	Recipient rateRecipient         `json:"recipient"`
	Items     []domain.ShippingItem `json:"items"`
	Currency  string                `json:"currency"`
}

type rateOption struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Rate            string `json:"rate"`
	Currency        string `json:"currency"`
	MinDeliveryDays int    `json:"minDeliveryDays"`
	MaxDeliveryDays int    `json:"maxDeliveryDays"`
}

// ShippingRates asks the provider for the rates available to addr.
func (c *Client) ShippingRates(ctx context.Context, addr domain.ShippingAddress, items []domain.ShippingItem, currency string) ([]domain.ShippingOption, error) {
	req := rateRequest{
		Recipient: rateRecipient{
			Address1:    addr.Address,
			City:        addr.City,
			CountryCode: CountryCode(addr.Country),
			Zip:         addr.Postcode,
		},
		Items:    items,
		Currency: strings.ToUpper(currency),
	}

	opts, err := c.rates.Execute(func() ([]domain.ShippingOption, error) {
		var env envelope[[]rateOption]
		if err := c.do(ctx, http.MethodPost, "/shipping/rates", req, &env); err != nil {
			return nil, err
		}

		out := make([]domain.ShippingOption, 0, len(env.Result))
		for _, o := range env.Result {
			rate, err := decimal.NewFromString(o.Rate)
			if err != nil {
				return nil, fmt.Errorf("rate %s: bad amount %q: %w", o.ID, o.Rate, err)
			}
			out = append(out, domain.ShippingOption{
				ID:              o.ID,
				Name:            o.Name,
				Rate:            rate,
				Currency:        o.Currency,
				MinDeliveryDays: o.MinDeliveryDays,
				MaxDeliveryDays: o.MaxDeliveryDays,
			})
		}
		return out, nil
	})
	return opts, breakerErr(err)
}

type sizeValue struct {
	Size     string `json:"size"`
	Value    string `json:"value"`
	MinValue string `json:"min_value"`
	MaxValue string `json:"max_value"`
}

type sizeTable struct {
	Type         string `json:"type"`
	Unit         string `json:"unit"`
	Description  string `json:"description"`
	ImageURL     string `json:"image_url"`
	Measurements []struct {
		TypeLabel string      `json:"type_label"`
		Values    []sizeValue `json:"values"`
	} `json:"measurements"`
}

type productSizes struct {
	AvailableSizes []string    `json:"available_sizes"`
	SizeTables     []sizeTable `json:"size_tables"`
}

// SizeChart fetches the provider's size guide for a catalog product.
func (c *Client) SizeChart(ctx context.Context, productRef string) (*domain.SizeChart, error) {
	chart, err := c.charts.Execute(func() (*domain.SizeChart, error) {
		var env envelope[productSizes]
		if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(productRef)+"/sizes", nil, &env); err != nil {
			return nil, err
		}

		out := &domain.SizeChart{
			ProductRef:     productRef,
			AvailableSizes: env.Result.AvailableSizes,
			Tables:         make([]domain.SizeTable, 0, len(env.Result.SizeTables)),
		}
		for _, t := range env.Result.SizeTables {
			table := domain.SizeTable{
				Type:        t.Type,
				Unit:        t.Unit,
				Description: t.Description,
				ImageURL:    t.ImageURL,
			}
			for _, m := range t.Measurements {
				row := domain.SizeMeasurement{Label: m.TypeLabel}
				for _, v := range m.Values {
					row.Values = append(row.Values, domain.SizeValue{Size: v.Size, Value: v.Value, Min: v.MinValue, Max: v.MaxValue})
				}
				table.Measurements = append(table.Measurements, row)
			}
			out.Tables = append(out.Tables, table)
		}
		return out, nil
	})
	return chart, breakerErr(err)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-PF-Language", "en_GB")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: status=%d body=%s", ErrUnavailable, resp.StatusCode, string(b))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func breakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
