package domain

import "github.com/shopspring/decimal"

// ShippingOption is a rate quoted by the fulfillment provider.
type ShippingOption struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Rate            decimal.Decimal `json:"rate"`
	Currency        string          `json:"currency"`
	MinDeliveryDays int             `json:"minDeliveryDays,omitempty"`
	MaxDeliveryDays int             `json:"maxDeliveryDays,omitempty"`
}

type ShippingAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
}

// ShippingItem is a fulfillment variant and quantity used for rate quotes.
type ShippingItem struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}
