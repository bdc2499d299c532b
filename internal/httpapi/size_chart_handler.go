package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/domain"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/fulfillment"
	"github.com/RoseyCoUk/LVNClothing-sub003/pkg/logger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type SizeCharts interface {
	SizeChart(ctx context.Context, productRef string) (*domain.SizeChart, error)
}

// SizeChartHandler passes the fulfillment provider's size guides through.
type SizeChartHandler struct {
	charts SizeCharts
	log    *zap.Logger
}

func NewSizeChartHandler(charts SizeCharts, log *zap.Logger) *SizeChartHandler {
	return &SizeChartHandler{charts: charts, log: log}
}

func (h *SizeChartHandler) GetSizeChart(w http.ResponseWriter, r *http.Request) {
	chart, err := h.charts.SizeChart(r.Context(), chi.URLParam(r, "ref"))
	switch {
	case errors.Is(err, fulfillment.ErrNotFound):
		respondError(w, http.StatusNotFound, "size_chart_not_found", "no size chart for this product")
	case err != nil:
		logger.FromContext(r.Context(), h.log).Warn("size chart lookup failed", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "fulfillment_unavailable", "size chart is unavailable, please try again")
	default:
		respondJSON(w, http.StatusOK, chart)
	}
}
