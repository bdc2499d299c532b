package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Options struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	JWTSecret      string
	AdminToken     string

	// TrackRate and TrackBurst limit order tracking per client address.
	TrackRate  rate.Limit
	TrackBurst int
}

type Handlers struct {
	Cart       *CartHandler
	Catalog    *CatalogHandler
	Checkout   *CheckoutHandler
	Orders     *OrdersHandler
	Admin      *AdminHandler
	Newsletter *NewsletterHandler
	SizeCharts *SizeChartHandler
}

// NewRouter mounts the storefront API. The returned handler is traced with
// otelhttp.
func NewRouter(h Handlers, opts Options, log *zap.Logger) http.Handler {
	if opts.TrackRate == 0 {
		opts.TrackRate = rate.Every(6 * time.Second)
	}
	if opts.TrackBurst == 0 {
		opts.TrackBurst = 5
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}
	r.Use(middleware.Compress(5))
	r.Use(LimitBody(opts.MaxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/checkout/webhook", h.Checkout.Webhook)

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin(opts.AdminToken))
			r.Post("/products", h.Admin.CreateProduct)
			r.Put("/products/{id}", h.Admin.UpdateProduct)
			r.Delete("/products/{id}", h.Admin.DeleteProduct)
			r.Post("/products/{id}/variants", h.Admin.CreateVariant)
			r.Put("/products/{id}/variants/{variantID}", h.Admin.UpdateVariant)
			r.Delete("/products/{id}/variants/{variantID}", h.Admin.DeleteVariant)
			r.Post("/bundles", h.Admin.CreateBundle)
			r.Put("/bundles/{key}", h.Admin.UpdateBundle)
			r.Delete("/bundles/{key}", h.Admin.DeleteBundle)
			r.Post("/bundles/{key}/items", h.Admin.AddBundleItem)
			r.Delete("/bundles/{key}/items/{itemID}", h.Admin.RemoveBundleItem)
		})

		r.Group(func(r chi.Router) {
			r.Use(OptionalIdentity(opts.JWTSecret))

			r.Get("/products", h.Catalog.ListProducts)
			r.Get("/products/{id}", h.Catalog.GetProduct)
			r.Get("/bundles", h.Catalog.ListBundles)
			r.Get("/bundles/{key}/price", h.Catalog.BundlePrice)
			r.Post("/bundles/quote", h.Catalog.QuoteBundle)
			r.Get("/size-charts/{ref}", h.SizeCharts.GetSizeChart)

			r.Post("/newsletter", h.Newsletter.Subscribe)
			r.Post("/newsletter/unsubscribe", h.Newsletter.Unsubscribe)

			r.Get("/orders", h.Orders.ListOrders)
			r.With(RateLimit(opts.TrackRate, opts.TrackBurst)).Get("/orders/track", h.Orders.TrackOrder)

			r.Group(func(r chi.Router) {
				r.Use(CartSession)

				r.Post("/bundles/{key}/cart", h.Catalog.AddBundleToCart)

				r.Route("/cart", func(r chi.Router) {
					r.Get("/", h.Cart.GetCart)
					r.Delete("/", h.Cart.ClearCart)
					r.Post("/items", h.Cart.AddItem)
					r.Post("/items/buy-now", h.Cart.BuyNow)
					r.Put("/items/{id}", h.Cart.UpdateQuantity)
					r.Delete("/items/{id}", h.Cart.RemoveItem)
					r.Post("/refresh", h.Cart.RefreshPricing)
				})

				r.Post("/checkout", h.Checkout.StartCheckout)
				r.Post("/shipping/quote", h.Checkout.QuoteShipping)
			})
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
