package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/domain"
)

type OrderLookup interface {
	ListForUser(ctx context.Context, userID, email string) []domain.Order
	Track(ctx context.Context, orderNumber, email string) *domain.Order
}

type OrdersHandler struct {
	lookup OrderLookup
}

func NewOrdersHandler(lookup OrderLookup) *OrdersHandler {
	return &OrdersHandler{lookup: lookup}
}

type OrdersResponse struct {
	Orders []domain.Order `json:"orders"`
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	respondJSON(w, http.StatusOK, OrdersResponse{
		Orders: h.lookup.ListForUser(r.Context(), id.UserID, id.Email),
	})
}

// TrackOrder is the unauthenticated lookup by order number and email.
func (h *OrdersHandler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	number := strings.TrimSpace(r.URL.Query().Get("number"))
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if number == "" || email == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "order number and email are required")
		return
	}

	o := h.lookup.Track(r.Context(), number, email)
	if o == nil {
		respondError(w, http.StatusNotFound, "order_not_found", "no order matches that number and email")
		return
	}
	respondJSON(w, http.StatusOK, o)
}
