package domain

import (
	"github.com/shopspring/decimal"
)

// LineItem is one row in a cart. Price is the unit price captured when the
// item was added; it only changes through a pricing refresh.
type LineItem struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Currency       string          `json:"currency,omitempty"`
	Image          string          `json:"image,omitempty"`
	Quantity       int             `json:"quantity"`
	IsBundle       bool            `json:"isBundle,omitempty"`
	BundleContents []BundleContent `json:"bundleContents,omitempty"`
	// VariantRef is the fulfillment variant id used to look up the
	// authoritative price. Empty for items that cannot be re-priced.
	VariantRef string `json:"variantRef,omitempty"`
}

// Subtotal is price times quantity.
func (i LineItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Price is an authoritative unit price with its currency.
type Price struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// BundleContent is a display snapshot of one component of a bundle line item.
type BundleContent struct {
	Name       string `json:"name"`
	Variant    string `json:"variant"`
	Image      string `json:"image,omitempty"`
	VariantRef string `json:"variantRef,omitempty"`
}
