package httpapi

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/cart"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/domain"
	"github.com/RoseyCoUk/LVNClothing-sub003/pkg/logger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CartHandler struct {
	carts  *cart.Service
	prices cart.PriceSource
	log    *zap.Logger
}

func NewCartHandler(carts *cart.Service, prices cart.PriceSource, log *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, prices: prices, log: log}
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type BuyNowResponse struct {
	SessionID string            `json:"session_id"`
	Items     []domain.LineItem `json:"items"`
}

type RefreshResponse struct {
	cart.Snapshot
	Updated int `json:"updated"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	session := cartSessionFrom(r.Context())
	snap, err := h.carts.Snapshot(r.Context(), session)
	if err != nil {
		h.cartError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// AddItem adds one unit of the posted line item. The quantity in the body is
// ignored.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var item domain.LineItem
	if !decodeJSON(w, r, &item) {
		return
	}

	ctx := r.Context()
	session := cartSessionFrom(ctx)
	var snap cart.Snapshot
	err := h.carts.With(ctx, session, func(st *cart.Store) error {
		if err := st.AddToCart(ctx, item); err != nil {
			return err
		}
		snap = cart.SnapshotOf(session, st)
		return nil
	})
	if err != nil {
		h.cartError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, snap)
}

// BuyNow adds the item and answers with the resulting lines so the client can
// go straight to checkout.
func (h *CartHandler) BuyNow(w http.ResponseWriter, r *http.Request) {
	var item domain.LineItem
	if !decodeJSON(w, r, &item) {
		return
	}

	ctx := r.Context()
	session := cartSessionFrom(ctx)
	var items []domain.LineItem
	err := h.carts.With(ctx, session, func(st *cart.Store) error {
		var err error
		items, err = st.AddToCartAndGetUpdated(ctx, item)
		return err
	})
	if err != nil {
		h.cartError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, BuyNowResponse{SessionID: session, Items: items})
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	h.mutate(w, r, func(st *cart.Store) error {
		return st.UpdateQuantity(r.Context(), id, req.Quantity)
	})
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	h.mutate(w, r, func(st *cart.Store) error {
		return st.RemoveFromCart(r.Context(), id)
	})
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(st *cart.Store) error {
		return st.ClearCart(r.Context())
	})
}

// RefreshPricing re-prices the cart against the fulfillment provider. Lines
// whose lookup fails keep their price.
func (h *CartHandler) RefreshPricing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := cartSessionFrom(ctx)

	var resp RefreshResponse
	err := h.carts.With(ctx, session, func(st *cart.Store) error {
		resp.Updated = st.RefreshPricing(ctx, h.prices)
		resp.Snapshot = cart.SnapshotOf(session, st)
		return nil
	})
	if err != nil {
		h.cartError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *CartHandler) mutate(w http.ResponseWriter, r *http.Request, fn func(*cart.Store) error) {
	ctx := r.Context()
	session := cartSessionFrom(ctx)

	var snap cart.Snapshot
	err := h.carts.With(ctx, session, func(st *cart.Store) error {
		if err := fn(st); err != nil {
			return err
		}
		snap = cart.SnapshotOf(session, st)
		return nil
	})
	if err != nil {
		h.cartError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (h *CartHandler) cartError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, cart.ErrInvalidItem):
		respondErrorDetails(w, http.StatusBadRequest, "invalid_item", "invalid cart item", err.Error())
	case errors.Is(err, cart.ErrPersist):
		logger.FromContext(r.Context(), h.log).Error("cart persistence failed", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "storage_unavailable", "cart is unavailable, please try again")
	default:
		logger.FromContext(r.Context(), h.log).Error("cart operation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// itemID reads the {id} path segment. Bundle ids contain slashes, so clients
// send them escaped.
func itemID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil || id == "" {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item id is required")
		return "", false
	}
	return id, true
}
