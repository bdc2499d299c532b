package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	quoteKeyPrefix = "storefront:shipping:"
	fallbackTTL    = time.Minute
)

// FallbackOption is quoted whenever the provider cannot be reached.
var FallbackOption = domain.ShippingOption{
	ID:              "fallback_standard",
	Name:            "Standard Delivery",
	Rate:            decimal.RequireFromString("3.99"),
	Currency:        "GBP",
	MinDeliveryDays: 3,
	MaxDeliveryDays: 5,
}

type RateSource interface {
	ShippingRates(ctx context.Context, addr domain.ShippingAddress, items []domain.ShippingItem, currency string) ([]domain.ShippingOption, error)
}

// Quoter caches shipping quotes in redis and degrades to FallbackOption.
type Quoter struct {
	src RateSource
	rdb redis.UniversalClient
	ttl time.Duration
	log *zap.Logger
}

func NewQuoter(src RateSource, rdb redis.UniversalClient, ttl time.Duration, log *zap.Logger) *Quoter {
	return &Quoter{src: src, rdb: rdb, ttl: ttl, log: log}
}

// Quote never fails: provider errors and empty answers yield the fallback.
func (q *Quoter) Quote(ctx context.Context, addr domain.ShippingAddress, items []domain.ShippingItem, currency string) []domain.ShippingOption {
	key := quoteKey(addr, items)

	if cached, ok := q.cached(ctx, key); ok {
		return cached
	}

	opts, err := q.src.ShippingRates(ctx, addr, items, currency)
	if err != nil || len(opts) == 0 {
		q.log.Warn("shipping quote failed, using fallback", zap.Error(err))
		opts = []domain.ShippingOption{FallbackOption}
		q.store(ctx, key, opts, fallbackTTL)
		return opts
	}

	q.store(ctx, key, opts, q.ttl)
	return opts
}

func (q *Quoter) cached(ctx context.Context, key string) ([]domain.ShippingOption, bool) {
	if q.rdb == nil {
		return nil, false
	}
	data, err := q.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			q.log.Warn("shipping quote cache get error", zap.Error(err))
		}
		return nil, false
	}

	var opts []domain.ShippingOption
	if err := json.Unmarshal(data, &opts); err != nil {
		return nil, false
	}
	return opts, true
}

func (q *Quoter) store(ctx context.Context, key string, opts []domain.ShippingOption, ttl time.Duration) {
	if q.rdb == nil {
		return
	}
	data, err := json.Marshal(opts)
	if err != nil {
		return
	}
	if err := q.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		q.log.Warn("shipping quote cache set error", zap.Error(err))
	}
}

func quoteKey(addr domain.ShippingAddress, items []domain.ShippingItem) string {
	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b domain.ShippingItem) int {
		return strings.Compare(a.VariantID, b.VariantID)
	})

	parts := make([]string, len(sorted))
	for i, it := range sorted {
		parts[i] = fmt.Sprintf("%s:%d", it.VariantID, it.Quantity)
	}
	return fmt.Sprintf("%s%s:%s:%s", quoteKeyPrefix,
		CountryCode(addr.Country),
		strings.ToUpper(strings.ReplaceAll(addr.Postcode, " ", "")),
		strings.Join(parts, ","))
}

var countryCodes = map[string]string{
	"United Kingdom": "GB",
	"United States":  "US",
	"Canada":         "CA",
	"Australia":      "AU",
	"Germany":        "DE",
	"France":         "FR",
	"Italy":          "IT",
	"Spain":          "ES",
	"Netherlands":    "NL",
	"Belgium":        "BE",
	"Ireland":        "IE",
	"Austria":        "AT",
	"Switzerland":    "CH",
	"Sweden":         "SE",
	"Norway":         "NO",
	"Denmark":        "DK",
	"Finland":        "FI",
	"Poland":         "PL",
	"Czech Republic": "CZ",
	"Hungary":        "HU",
	"Romania":        "RO",
	"Bulgaria":       "BG",
	"Croatia":        "HR",
	"Slovenia":       "SI",
	"Slovakia":       "SK",
	"Lithuania":      "LT",
	"Latvia":         "LV",
	"Estonia":        "EE",
	"Cyprus":         "CY",
	"Malta":          "MT",
	"Luxembourg":     "LU",
}

// CountryCode maps a country name to its ISO-2 code. Two-letter input is
// taken as a code already; unknown names default to GB.
func CountryCode(country string) string {
	c := strings.TrimSpace(country)
	if len(c) == 2 {
		return strings.ToUpper(c)
	}
	if code, ok := countryCodes[c]; ok {
		return code
	}
	return "GB"
}
