package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/catalog"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/domain"
	"github.com/RoseyCoUk/LVNClothing-sub003/pkg/logger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CatalogAdmin interface {
	CreateProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, p *domain.Product) error
	DeleteProduct(ctx context.Context, id string) error
	CreateVariant(ctx context.Context, v *domain.Variant) error
	UpdateVariant(ctx context.Context, v *domain.Variant) error
	DeleteVariant(ctx context.Context, id string) error
	CreateBundle(ctx context.Context, b *domain.Bundle) error
	UpdateBundle(ctx context.Context, b *domain.Bundle) error
	DeleteBundle(ctx context.Context, key string) error
	AddBundleItem(ctx context.Context, key string, it *domain.BundleItem) error
	RemoveBundleItem(ctx context.Context, key, itemID string) error
}

type AdminHandler struct {
	admin CatalogAdmin
	log   *zap.Logger
}

func NewAdminHandler(admin CatalogAdmin, log *zap.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, log: log}
}

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if !decodeJSON(w, r, &p) {
		return
	}
	h.write(w, r, http.StatusCreated, &p, h.admin.CreateProduct(r.Context(), &p))
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if !decodeJSON(w, r, &p) {
		return
	}
	p.ID = chi.URLParam(r, "id")
	h.write(w, r, http.StatusOK, &p, h.admin.UpdateProduct(r.Context(), &p))
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, http.StatusNoContent, nil, h.admin.DeleteProduct(r.Context(), chi.URLParam(r, "id")))
}

func (h *AdminHandler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	var v domain.Variant
	if !decodeJSON(w, r, &v) {
		return
	}
	v.ProductID = chi.URLParam(r, "id")
	h.write(w, r, http.StatusCreated, &v, h.admin.CreateVariant(r.Context(), &v))
}

func (h *AdminHandler) UpdateVariant(w http.ResponseWriter, r *http.Request) {
	var v domain.Variant
	if !decodeJSON(w, r, &v) {
		return
	}
	v.ProductID = chi.URLParam(r, "id")
	v.ID = chi.URLParam(r, "variantID")
	h.write(w, r, http.StatusOK, &v, h.admin.UpdateVariant(r.Context(), &v))
}

func (h *AdminHandler) DeleteVariant(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, http.StatusNoContent, nil, h.admin.DeleteVariant(r.Context(), chi.URLParam(r, "variantID")))
}

func (h *AdminHandler) CreateBundle(w http.ResponseWriter, r *http.Request) {
	var b domain.Bundle
	if !decodeJSON(w, r, &b) {
		return
	}
	h.write(w, r, http.StatusCreated, &b, h.admin.CreateBundle(r.Context(), &b))
}

func (h *AdminHandler) UpdateBundle(w http.ResponseWriter, r *http.Request) {
	var b domain.Bundle
	if !decodeJSON(w, r, &b) {
		return
	}
	b.Key = chi.URLParam(r, "key")
	h.write(w, r, http.StatusOK, &b, h.admin.UpdateBundle(r.Context(), &b))
}

func (h *AdminHandler) DeleteBundle(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, http.StatusNoContent, nil, h.admin.DeleteBundle(r.Context(), chi.URLParam(r, "key")))
}

func (h *AdminHandler) AddBundleItem(w http.ResponseWriter, r *http.Request) {
	var it domain.BundleItem
	if !decodeJSON(w, r, &it) {
		return
	}
	h.write(w, r, http.StatusCreated, &it, h.admin.AddBundleItem(r.Context(), chi.URLParam(r, "key"), &it))
}

func (h *AdminHandler) RemoveBundleItem(w http.ResponseWriter, r *http.Request) {
	err := h.admin.RemoveBundleItem(r.Context(), chi.URLParam(r, "key"), chi.URLParam(r, "itemID"))
	h.write(w, r, http.StatusNoContent, nil, err)
}

func (h *AdminHandler) write(w http.ResponseWriter, r *http.Request, status int, body any, err error) {
	switch {
	case err == nil:
		if body == nil {
			w.WriteHeader(status)
			return
		}
		respondJSON(w, status, body)
	case errors.Is(err, catalog.ErrInvalid):
		respondErrorDetails(w, http.StatusBadRequest, "invalid_argument", "invalid catalog entry", err.Error())
	case errors.Is(err, catalog.ErrNotFound):
		respondErrorDetails(w, http.StatusNotFound, "not_found", "not found", err.Error())
	case errors.Is(err, catalog.ErrConflict):
		respondErrorDetails(w, http.StatusConflict, "already_exists", "catalog entry already exists", err.Error())
	default:
		logger.FromContext(r.Context(), h.log).Error("admin operation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
