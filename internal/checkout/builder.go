package checkout

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	ModePayment = "payment"

	// MaxMetadataValue is the payment processor's limit per metadata value.
	MaxMetadataValue = 500
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var hundred = decimal.NewFromInt(100)

// Request is everything the storefront knows when the customer presses pay.
type Request struct {
	Items    []domain.LineItem
	Shipping *ShippingChoice

	// SessionEmail comes from the signed-in identity and wins over Email,
	// which the customer typed into the form.
	SessionEmail string
	Email        string
	Address      domain.ShippingAddress

	SuccessURL string
	CancelURL  string

	// PriceRef sells one pre-priced catalog item instead of the cart lines.
	// PricedItem describes that item for the order metadata.
	PriceRef   string
	PricedItem *domain.LineItem

	CartSession string
	UserID      string
}

type LineItem struct {
	Name       string            `json:"name"`
	Image      string            `json:"image,omitempty"`
	UnitAmount int64             `json:"unit_amount"`
	Currency   string            `json:"currency"`
	Quantity   int64             `json:"quantity"`
	Metadata   map[string]string `json:"metadata"`
}

// SessionRequest is the payment-session payload. It is derived per checkout
// attempt and never stored.
type SessionRequest struct {
	Mode            string            `json:"mode"`
	PriceRef        string            `json:"price_ref,omitempty"`
	LineItems       []LineItem        `json:"line_items,omitempty"`
	Metadata        map[string]string `json:"metadata"`
	CustomerEmail   string            `json:"customer_email"`
	SuccessURL      string            `json:"success_url"`
	CancelURL       string            `json:"cancel_url"`
	ShippingRateRef string            `json:"shipping_rate_ref,omitempty"`
}

type Builder struct {
	currency string
}

func NewBuilder(currency string) *Builder {
	if currency == "" {
		currency = "gbp"
	}
	return &Builder{currency: strings.ToLower(currency)}
}

type cartSummaryItem struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Quantity             int    `json:"quantity"`
	FulfillmentVariantID string `json:"fulfillment_variant_id"`
	Price                string `json:"price"`
}

type compactSummaryItem struct {
	ID       string `json:"id"`
	Quantity int    `json:"q"`
}

// Build validates the request locally and assembles the payment-session
// payload. Nothing here talks to the network.
func (b *Builder) Build(req Request) (*SessionRequest, error) {
	email, err := resolveEmail(req)
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 && req.PriceRef == "" {
		return nil, ErrEmptyCart
	}
	if req.Shipping != nil {
		if err := ValidateShipping(*req.Shipping); err != nil {
			return nil, err
		}
	}

	out := &SessionRequest{
		Mode:          ModePayment,
		CustomerEmail: email,
		SuccessURL:    req.SuccessURL,
		CancelURL:     req.CancelURL,
	}

	if req.PriceRef != "" {
		out.PriceRef = req.PriceRef
	} else {
		out.LineItems = make([]LineItem, 0, len(req.Items))
		for _, it := range req.Items {
			out.LineItems = append(out.LineItems, b.lineItem(it))
		}
	}

	if req.Shipping != nil {
		out.ShippingRateRef = req.Shipping.RateRef
	}

	out.Metadata, err = b.metadata(req, email)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func resolveEmail(req Request) (string, error) {
	email := strings.TrimSpace(req.SessionEmail)
	if email == "" {
		email = strings.TrimSpace(req.Email)
	}
	if email == "" {
		return "", ErrEmailRequired
	}
	if !emailRe.MatchString(email) {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return email, nil
}

func (b *Builder) lineItem(it domain.LineItem) LineItem {
	productType := "single"
	if it.IsBundle {
		productType = "bundle"
	}
	currency := strings.ToLower(it.Currency)
	if currency == "" {
		currency = b.currency
	}

	return LineItem{
		Name:       it.Name,
		Image:      it.Image,
		UnitAmount: MinorUnits(it.Price),
		Currency:   currency,
		Quantity:   int64(it.Quantity),
		Metadata: map[string]string{
			"fulfillment_variant_id": fulfillmentRef(it),
			"product_type":           productType,
		},
	}
}

func (b *Builder) metadata(req Request, email string) (map[string]string, error) {
	items := req.Items
	if req.PriceRef != "" {
		items = nil
		if req.PricedItem != nil {
			items = []domain.LineItem{*req.PricedItem}
		}
	}

	subtotal := decimal.Zero
	summary := make([]cartSummaryItem, 0, len(items))
	for _, it := range items {
		subtotal = subtotal.Add(it.Subtotal())
		summary = append(summary, cartSummaryItem{
			ID:                   it.ID,
			Name:                 it.Name,
			Quantity:             it.Quantity,
			FulfillmentVariantID: fulfillmentRef(it),
			Price:                it.Price.StringFixed(2),
		})
	}

	cartItems, dropped, err := summarize(summary)
	if err != nil {
		return nil, err
	}

	rateID, shippingCost, shippingCurrency := "none", decimal.Zero, strings.ToUpper(b.currency)
	if req.Shipping != nil {
		rateID = req.Shipping.ID
		shippingCost = req.Shipping.Rate
		shippingCurrency = strings.ToUpper(req.Shipping.Currency)
	}

	a := req.Address
	md := map[string]string{
		"cart_items":        cartItems,
		"shipping_rate_id":  rateID,
		"shipping_cost":     shippingCost.StringFixed(2),
		"shipping_currency": shippingCurrency,
		"subtotal":          subtotal.StringFixed(2),
		"total":             subtotal.Add(shippingCost).StringFixed(2),
		"customer_email":    email,
		"customer_name":     strings.TrimSpace(a.FirstName + " " + a.LastName),
		"customer_address":  truncate(fmt.Sprintf("%s, %s, %s, %s", a.Address, a.City, a.Postcode, a.Country)),
	}
	if dropped > 0 {
		md["cart_items_dropped"] = strconv.Itoa(dropped)
	}
	if req.CartSession != "" {
		md["cart_session"] = req.CartSession
	}
	if req.UserID != "" {
		md["user_id"] = req.UserID
	}
	return md, nil
}

// summarize encodes the cart summary within MaxMetadataValue. It falls back
// to the compact form, then drops trailing entries until the value fits, and
// reports how many were dropped.
func summarize(summary []cartSummaryItem) (string, int, error) {
	full, err := json.Marshal(summary)
	if err != nil {
		return "", 0, fmt.Errorf("marshal cart summary: %w", err)
	}
	if len(full) <= MaxMetadataValue {
		return string(full), 0, nil
	}

	compact := make([]compactSummaryItem, len(summary))
	for i, s := range summary {
		compact[i] = compactSummaryItem{ID: s.ID, Quantity: s.Quantity}
	}
	for n := len(compact); n >= 0; n-- {
		out, err := json.Marshal(compact[:n])
		if err != nil {
			return "", 0, fmt.Errorf("marshal cart summary: %w", err)
		}
		if len(out) <= MaxMetadataValue {
			return string(out), len(compact) - n, nil
		}
	}
	return "[]", len(compact), nil
}

// MinorUnits converts a major-unit price into rounded minor units.
func MinorUnits(price decimal.Decimal) int64 {
	return price.Mul(hundred).Round(0).IntPart()
}

func fulfillmentRef(it domain.LineItem) string {
	if it.VariantRef != "" {
		return it.VariantRef
	}
	return it.ID
}

func truncate(s string) string {
	return truncateTo(s, MaxMetadataValue)
}

// truncateTo cuts s to at most limit bytes without splitting a rune.
func truncateTo(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
