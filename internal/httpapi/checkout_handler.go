package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/bundle"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/cart"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/checkout"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/domain"
	"github.com/RoseyCoUk/LVNClothing-sub003/pkg/logger"
	"go.uber.org/zap"
)

const maxWebhookBody = 65536

type CheckoutStarter interface {
	Start(ctx context.Context, req checkout.Request) (string, error)
}

type WebhookHandler interface {
	Handle(ctx context.Context, payload []byte, signature string) error
}

type ShippingQuoter interface {
	Quote(ctx context.Context, addr domain.ShippingAddress, items []domain.ShippingItem, currency string) []domain.ShippingOption
}

type CheckoutHandler struct {
	carts     *cart.Service
	checkout  CheckoutStarter
	webhook   WebhookHandler
	shipping  ShippingQuoter
	publicURL string
	currency  string
	log       *zap.Logger
}

func NewCheckoutHandler(
	carts *cart.Service,
	starter CheckoutStarter,
	webhook WebhookHandler,
	shipping ShippingQuoter,
	publicURL, currency string,
	log *zap.Logger,
) *CheckoutHandler {
	return &CheckoutHandler{
		carts:     carts,
		checkout:  starter,
		webhook:   webhook,
		shipping:  shipping,
		publicURL: strings.TrimRight(publicURL, "/"),
		currency:  currency,
		log:       log,
	}
}

type CheckoutRequestDTO struct {
	Email    string                   `json:"email"`
	Address  domain.ShippingAddress   `json:"address"`
	Shipping *checkout.ShippingChoice `json:"shipping,omitempty"`
	PriceRef string                   `json:"price_ref,omitempty"`
	Item     *domain.LineItem         `json:"item,omitempty"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}

type ShippingQuoteRequestDTO struct {
	Address domain.ShippingAddress `json:"address"`
}

type ShippingQuoteResponse struct {
	Options []domain.ShippingOption `json:"options"`
}

// StartCheckout turns the session's cart into a payment session and answers
// with the redirect URL. Validation failures never reach the payment API.
func (h *CheckoutHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Shipping != nil {
		if err := checkout.ValidateShipping(*req.Shipping); err != nil {
			respondErrorDetails(w, http.StatusBadRequest, "invalid_shipping", "invalid shipping selection", err.Error())
			return
		}
		if problems := checkout.ValidateAddress(req.Address); len(problems) > 0 {
			respondErrorDetails(w, http.StatusBadRequest, "invalid_address", "invalid shipping address", strings.Join(problems, "; "))
			return
		}
	}

	ctx := r.Context()
	session := cartSessionFrom(ctx)
	items, err := h.cartItems(ctx, session)
	if err != nil {
		h.cartUnavailable(w, r, err)
		return
	}
	creq := checkout.Request{
		Items:       items,
		Shipping:    req.Shipping,
		Email:       req.Email,
		Address:     req.Address,
		SuccessURL:  h.publicURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   h.publicURL + "/cart",
		PriceRef:    req.PriceRef,
		PricedItem:  req.Item,
		CartSession: session,
	}
	if id, ok := identityFrom(ctx); ok {
		creq.SessionEmail = id.Email
		creq.UserID = id.UserID
	}

	url, err := h.checkout.Start(ctx, creq)
	if err != nil {
		h.checkoutError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, CheckoutResponse{URL: url})
}

func (h *CheckoutHandler) checkoutError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, checkout.ErrEmailRequired):
		respondError(w, http.StatusBadRequest, "email_required", "Please enter your email address")
		return
	case errors.Is(err, checkout.ErrInvalidEmail):
		respondError(w, http.StatusBadRequest, "invalid_email", "Please enter a valid email address")
		return
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "Your cart is empty")
		return
	}

	var ue *checkout.UserError
	if errors.As(err, &ue) {
		status := http.StatusBadGateway
		switch ue.Kind {
		case checkout.KindMisconfigured:
			status = http.StatusServiceUnavailable
		case checkout.KindIncomplete:
			status = http.StatusBadRequest
		}
		respondError(w, status, string(ue.Kind), ue.Message)
		return
	}

	logger.FromContext(r.Context(), h.log).Error("checkout failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

// QuoteShipping asks the fulfillment provider for rates for the cart's
// contents. The provider falling over yields the standard fallback rate.
func (h *CheckoutHandler) QuoteShipping(w http.ResponseWriter, r *http.Request) {
	var req ShippingQuoteRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if problems := checkout.ValidateAddress(req.Address); len(problems) > 0 {
		respondErrorDetails(w, http.StatusBadRequest, "invalid_address", "invalid shipping address", strings.Join(problems, "; "))
		return
	}

	ctx := r.Context()
	items, err := h.cartItems(ctx, cartSessionFrom(ctx))
	if err != nil {
		h.cartUnavailable(w, r, err)
		return
	}
	if len(items) == 0 {
		respondError(w, http.StatusBadRequest, "empty_cart", "Your cart is empty")
		return
	}

	shipItems, err := bundle.ExpandForShipping(items)
	if err != nil {
		respondErrorDetails(w, http.StatusUnprocessableEntity, "unresolved_variant", "some items cannot be shipped", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, ShippingQuoteResponse{
		Options: h.shipping.Quote(ctx, req.Address, shipItems, h.currency),
	})
}

// Webhook receives payment processor events. The raw body is needed for the
// signature check.
func (h *CheckoutHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
		return
	}

	err = h.webhook.Handle(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]bool{"received": true})
	case errors.Is(err, checkout.ErrInvalidSignature):
		respondError(w, http.StatusBadRequest, "invalid_signature", "invalid signature")
	case errors.Is(err, checkout.ErrNotConfigured):
		respondError(w, http.StatusServiceUnavailable, "not_configured", "webhooks are not configured")
	default:
		logger.FromContext(r.Context(), h.log).Error("webhook handling failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func (h *CheckoutHandler) cartItems(ctx context.Context, session string) ([]domain.LineItem, error) {
	var items []domain.LineItem
	err := h.carts.With(ctx, session, func(st *cart.Store) error {
		items = st.Items()
		return nil
	})
	return items, err
}

func (h *CheckoutHandler) cartUnavailable(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context(), h.log).Error("cart load failed", zap.Error(err))
	respondError(w, http.StatusServiceUnavailable, "storage_unavailable", "cart is unavailable, please try again")
}
