package bundle

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrUnknownBundle = errors.New("unknown bundle")

// Component is one product slot of a fixed bundle.
type Component struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	ItemType  string `json:"item_type"`
}

// Definition describes a fixed bundle and the discount applied to the sum of
// its component prices.
type Definition struct {
	Key        string          `json:"key"`
	Name       string          `json:"name"`
	Discount   decimal.Decimal `json:"discount"`
	Components []Component     `json:"components"`
}

// FixedBundles are the bundles sold when the catalog has no overrides.
var FixedBundles = map[string]Definition{
	"starter": {
		Key:      "starter",
		Name:     "Starter Bundle",
		Discount: decimal.RequireFromString("0.10"),
		Components: []Component{
			{ProductID: "1", Name: "T-Shirt", ItemType: "tshirt"},
			{ProductID: "3", Name: "Cap", ItemType: "cap"},
			{ProductID: "4", Name: "Mug", ItemType: "mug"},
		},
	},
	"champion": {
		Key:      "champion",
		Name:     "Champion Bundle",
		Discount: decimal.RequireFromString("0.15"),
		Components: []Component{
			{ProductID: "2", Name: "Hoodie", ItemType: "hoodie"},
			{ProductID: "1", Name: "T-Shirt", ItemType: "tshirt"},
			{ProductID: "3", Name: "Cap", ItemType: "cap"},
			{ProductID: "5", Name: "Tote Bag", ItemType: "tote"},
		},
	},
	"activist": {
		Key:      "activist",
		Name:     "Activist Bundle",
		Discount: decimal.RequireFromString("0.20"),
		Components: []Component{
			{ProductID: "2", Name: "Hoodie", ItemType: "hoodie"},
			{ProductID: "1", Name: "T-Shirt", ItemType: "tshirt"},
			{ProductID: "3", Name: "Cap", ItemType: "cap"},
			{ProductID: "5", Name: "Tote Bag", ItemType: "tote"},
			{ProductID: "6", Name: "Water Bottle", ItemType: "water"},
			{ProductID: "4", Name: "Mug", ItemType: "mug"},
			{ProductID: "7", Name: "Mouse Pad", ItemType: "mousepad"},
		},
	},
}

// FallbackPrices are used per component when the live price lookup fails.
var FallbackPrices = map[string]decimal.Decimal{
	"1": decimal.RequireFromString("24.99"),
	"2": decimal.RequireFromString("39.99"),
	"3": decimal.RequireFromString("19.99"),
	"4": decimal.RequireFromString("9.99"),
	"5": decimal.RequireFromString("24.99"),
	"6": decimal.RequireFromString("24.99"),
	"7": decimal.RequireFromString("14.99"),
}

type PriceSource interface {
	ProductPrice(ctx context.Context, productID string) (decimal.Decimal, error)
}

type DefinitionSource interface {
	BundleDefinition(ctx context.Context, key string) (Definition, error)
}

// StaticDefinitions serves FixedBundles.
type StaticDefinitions struct{}

func (StaticDefinitions) BundleDefinition(_ context.Context, key string) (Definition, error) {
	def, ok := FixedBundles[key]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownBundle, key)
	}
	return def, nil
}

type ComponentPrice struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Fallback  bool            `json:"fallback,omitempty"`
}

type Savings struct {
	Absolute   decimal.Decimal `json:"absolute"`
	Percentage decimal.Decimal `json:"percentage"`
}

type Quote struct {
	Key           string           `json:"key"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice decimal.Decimal  `json:"originalPrice"`
	Savings       Savings          `json:"savings"`
	Components    []ComponentPrice `json:"components"`
}

type Pricer struct {
	defs        DefinitionSource
	prices      PriceSource
	fallbacks   map[string]decimal.Decimal
	concurrency int
	log         *zap.Logger
}

func NewPricer(defs DefinitionSource, prices PriceSource, concurrency int, log *zap.Logger) *Pricer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pricer{
		defs:        defs,
		prices:      prices,
		fallbacks:   FallbackPrices,
		concurrency: concurrency,
		log:         log,
	}
}

// Quote prices a fixed bundle from live component prices. Components whose
// lookup fails are priced from FallbackPrices; a quote is always produced for
// a known bundle.
func (p *Pricer) Quote(ctx context.Context, key string) (*Quote, error) {
	def, err := p.defs.BundleDefinition(ctx, key)
	if err != nil {
		return nil, err
	}

	components := make([]ComponentPrice, len(def.Components))
	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)
	for i, c := range def.Components {
		g.Go(func() error {
			cp := ComponentPrice{ProductID: c.ProductID, Name: c.Name}
			price, err := p.prices.ProductPrice(ctx, c.ProductID)
			if err != nil || !price.IsPositive() {
				p.log.Warn("component price unavailable, using fallback",
					zap.String("bundle", key),
					zap.String("product_id", c.ProductID),
					zap.Error(err))
				price = p.fallbacks[c.ProductID]
				cp.Fallback = true
			}
			cp.Price = price
			components[i] = cp
			return nil
		})
	}
	_ = g.Wait()

	original := decimal.Zero
	for _, c := range components {
		original = original.Add(c.Price)
	}

	discounted := original.Mul(decimal.NewFromInt(1).Sub(def.Discount))
	final := RoundTo99(discounted)

	savings := Savings{Absolute: original.Sub(final)}
	if original.IsPositive() {
		savings.Percentage = savings.Absolute.Div(original).Mul(hundred).Round(2)
	}

	return &Quote{
		Key:           def.Key,
		Name:          def.Name,
		Price:         final,
		OriginalPrice: original,
		Savings:       savings,
		Components:    components,
	}, nil
}

// RoundTo99 drops the fractional part and adds .99.
func RoundTo99(price decimal.Decimal) decimal.Decimal {
	return price.Floor().Add(decimal.RequireFromString("0.99"))
}
