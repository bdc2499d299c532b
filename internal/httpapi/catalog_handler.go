package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/bundle"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/cart"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/catalog"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/domain"
	"github.com/RoseyCoUk/LVNClothing-sub003/pkg/logger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Catalog interface {
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListBundles(ctx context.Context) ([]*domain.Bundle, error)
}

type CatalogHandler struct {
	catalog    Catalog
	defs       bundle.DefinitionSource
	pricer     *bundle.Pricer
	calculator *bundle.Calculator
	carts      *cart.Service
	currency   string
	log        *zap.Logger
}

func NewCatalogHandler(
	c Catalog,
	defs bundle.DefinitionSource,
	pricer *bundle.Pricer,
	calculator *bundle.Calculator,
	carts *cart.Service,
	currency string,
	log *zap.Logger,
) *CatalogHandler {
	return &CatalogHandler{
		catalog:    c,
		defs:       defs,
		pricer:     pricer,
		calculator: calculator,
		carts:      carts,
		currency:   currency,
		log:        log,
	}
}

type BundleQuoteRequestDTO struct {
	Items []bundle.Selection `json:"items"`
}

type BundleToCartRequestDTO struct {
	Choices bundle.Choices `json:"choices"`
	Image   string         `json:"image"`
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		h.internal(w, r, "failed to list products", err)
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrNotFound) {
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
		return
	}
	if err != nil {
		h.internal(w, r, "failed to get product", err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) ListBundles(w http.ResponseWriter, r *http.Request) {
	bundles, err := h.catalog.ListBundles(r.Context())
	if err != nil {
		h.internal(w, r, "failed to list bundles", err)
		return
	}
	if bundles == nil {
		bundles = []*domain.Bundle{}
	}
	respondJSON(w, http.StatusOK, bundles)
}

// BundlePrice prices a fixed bundle from live component prices.
func (h *CatalogHandler) BundlePrice(w http.ResponseWriter, r *http.Request) {
	q, err := h.pricer.Quote(r.Context(), chi.URLParam(r, "key"))
	if errors.Is(err, bundle.ErrUnknownBundle) {
		respondError(w, http.StatusNotFound, "bundle_not_found", "bundle not found")
		return
	}
	if err != nil {
		h.internal(w, r, "failed to price bundle", err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

// QuoteBundle runs the custom bundle calculator. An empty selection answers
// with a null calculation.
func (h *CatalogHandler) QuoteBundle(w http.ResponseWriter, r *http.Request) {
	var req BundleQuoteRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	respondJSON(w, http.StatusOK, h.calculator.Calculate(req.Items))
}

// AddBundleToCart snapshots the picked variants into a bundle line item at the
// current bundle price and adds it to the session's cart.
func (h *CatalogHandler) AddBundleToCart(w http.ResponseWriter, r *http.Request) {
	var req BundleToCartRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	key := chi.URLParam(r, "key")

	def, err := h.defs.BundleDefinition(ctx, key)
	if errors.Is(err, bundle.ErrUnknownBundle) {
		respondError(w, http.StatusNotFound, "bundle_not_found", "bundle not found")
		return
	}
	if err != nil {
		h.internal(w, r, "failed to load bundle", err)
		return
	}

	q, err := h.pricer.Quote(ctx, key)
	if err != nil {
		h.internal(w, r, "failed to price bundle", err)
		return
	}

	item, err := bundle.ToLineItem(def, req.Choices, q.Price, h.currency, req.Image)
	if err != nil {
		respondErrorDetails(w, http.StatusBadRequest, "incomplete_selection", "bundle selection is incomplete", err.Error())
		return
	}

	session := cartSessionFrom(ctx)
	var snap cart.Snapshot
	err = h.carts.With(ctx, session, func(st *cart.Store) error {
		if err := st.AddToCart(ctx, item); err != nil {
			return err
		}
		snap = cart.SnapshotOf(session, st)
		return nil
	})
	if errors.Is(err, cart.ErrPersist) {
		logger.FromContext(ctx, h.log).Error("cart persistence failed", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "storage_unavailable", "cart is unavailable, please try again")
		return
	}
	if err != nil {
		h.internal(w, r, "failed to add bundle to cart", err)
		return
	}
	respondJSON(w, http.StatusCreated, snap)
}

func (h *CatalogHandler) internal(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logger.FromContext(r.Context(), h.log).Error(msg, zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}
