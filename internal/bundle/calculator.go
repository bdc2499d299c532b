package bundle

import (
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultMarkup is the notional "bought separately" factor used for savings
// display. It is a policy value, not catalog pricing.
var DefaultMarkup = decimal.RequireFromString("1.2")

var hundred = decimal.NewFromInt(100)

// Selection is one product/variant pick inside a custom bundle.
type Selection struct {
	ProductID   string         `json:"product_id"`
	ProductName string         `json:"product_name"`
	Variant     domain.Variant `json:"variant"`
	Quantity    int            `json:"quantity"`
}

type Calculation struct {
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	IndividualPrice   decimal.Decimal `json:"individualPrice"`
	Savings           decimal.Decimal `json:"savings"`
	SavingsPercentage decimal.Decimal `json:"savingsPercentage"`
	Items             []Selection     `json:"items"`
}

type Calculator struct {
	markup decimal.Decimal
}

func NewCalculator(markup decimal.Decimal) *Calculator {
	if !markup.IsPositive() {
		markup = DefaultMarkup
	}
	return &Calculator{markup: markup}
}

func (c *Calculator) Markup() decimal.Decimal {
	return c.markup
}

// Calculate returns nil for an empty selection list.
func (c *Calculator) Calculate(items []Selection) *Calculation {
	if len(items) == 0 {
		return nil
	}

	total := decimal.Zero
	individual := decimal.Zero
	for _, it := range items {
		qty := decimal.NewFromInt(int64(quantityOrOne(it.Quantity)))
		line := it.Variant.Price.Mul(qty)
		total = total.Add(line)
		individual = individual.Add(line.Mul(c.markup))
	}

	savings := individual.Sub(total)
	pct := decimal.Zero
	if individual.IsPositive() {
		pct = savings.Div(individual).Mul(hundred)
	}

	return &Calculation{
		TotalPrice:        total,
		IndividualPrice:   individual,
		Savings:           savings,
		SavingsPercentage: pct,
		Items:             items,
	}
}

func quantityOrOne(q int) int {
	if q < 1 {
		return 1
	}
	return q
}

// AddItem merges by product id. An existing pick takes the new variant and
// its quantity grows by qty.
func AddItem(items []Selection, s Selection) []Selection {
	qty := quantityOrOne(s.Quantity)
	out := make([]Selection, 0, len(items)+1)
	merged := false
	for _, it := range items {
		if it.ProductID == s.ProductID {
			it.Variant = s.Variant
			if s.ProductName != "" {
				it.ProductName = s.ProductName
			}
			it.Quantity = quantityOrOne(it.Quantity) + qty
			merged = true
		}
		out = append(out, it)
	}
	if !merged {
		s.Quantity = qty
		out = append(out, s)
	}
	return out
}

func RemoveItem(items []Selection, productID string) []Selection {
	out := make([]Selection, 0, len(items))
	for _, it := range items {
		if it.ProductID != productID {
			out = append(out, it)
		}
	}
	return out
}

// UpdateItemQuantity removes the pick when qty <= 0.
func UpdateItemQuantity(items []Selection, productID string, qty int) []Selection {
	if qty <= 0 {
		return RemoveItem(items, productID)
	}
	out := make([]Selection, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ProductID == productID {
			out[i].Quantity = qty
		}
	}
	return out
}

func Clear([]Selection) []Selection {
	return []Selection{}
}

func ItemCount(items []Selection) int {
	n := 0
	for _, it := range items {
		n += quantityOrOne(it.Quantity)
	}
	return n
}
