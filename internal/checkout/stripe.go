package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
)

// StripeGateway creates Stripe Checkout sessions.
type StripeGateway struct {
	client *session.Client
}

// NewStripeGateway uses the default API backend. An empty key yields a
// gateway that fails every call with ErrNotConfigured.
func NewStripeGateway(secretKey string) *StripeGateway {
	return NewStripeGatewayWithBackend(secretKey, stripe.GetBackend(stripe.APIBackend))
}

func NewStripeGatewayWithBackend(secretKey string, backend stripe.Backend) *StripeGateway {
	if secretKey == "" {
		return &StripeGateway{}
	}
	return &StripeGateway{client: &session.Client{B: backend, Key: secretKey}}
}

func (g *StripeGateway) CreateSession(ctx context.Context, req *SessionRequest) (string, error) {
	if g.client == nil {
		return "", ErrNotConfigured
	}
	if req == nil {
		return "", errors.New("missing required parameters")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		CustomerEmail:      stripe.String(req.CustomerEmail),
		Metadata:           req.Metadata,
	}
	params.Context = ctx

	if req.PriceRef != "" {
		params.LineItems = []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(req.PriceRef),
			Quantity: stripe.Int64(1),
		}}
	} else {
		for _, li := range req.LineItems {
			product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name:     stripe.String(li.Name),
				Metadata: li.Metadata,
			}
			if li.Image != "" {
				product.Images = stripe.StringSlice([]string{li.Image})
			}
			params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String(li.Currency),
					ProductData: product,
					UnitAmount:  stripe.Int64(li.UnitAmount),
				},
				Quantity: stripe.Int64(li.Quantity),
			})
		}
	}

	if req.ShippingRateRef != "" {
		params.ShippingOptions = []*stripe.CheckoutSessionShippingOptionParams{{
			ShippingRate: stripe.String(req.ShippingRateRef),
		}}
	}

	s, err := g.client.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	return s.URL, nil
}
