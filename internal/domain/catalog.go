package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	Images      []string        `json:"images,omitempty"`
	Variants    []Variant       `json:"variants,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Variant is a purchasable color/size combination of a product.
type Variant struct {
	ID                   string          `json:"id"`
	ProductID            string          `json:"product_id"`
	Name                 string          `json:"name"`
	Color                string          `json:"color"`
	Size                 string          `json:"size"`
	Price                decimal.Decimal `json:"price"`
	Currency             string          `json:"currency"`
	InStock              bool            `json:"in_stock"`
	ImageURL             string          `json:"image_url"`
	FulfillmentVariantID string          `json:"fulfillment_variant_id"`
}

type Bundle struct {
	ID          string          `json:"id"`
	Key         string          `json:"key"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Discount    decimal.Decimal `json:"discount"`
	ImageURL    string          `json:"image_url"`
	Items       []BundleItem    `json:"items"`
}

// BundleItem is one component slot of a bundle, pointing at a catalog product.
type BundleItem struct {
	ID        string `json:"id"`
	BundleID  string `json:"bundle_id"`
	ProductID string `json:"product_id"`
	ItemType  string `json:"item_type"`
	Quantity  int    `json:"quantity"`
}
