package httpapi

import (
	"net/http"
	"testing"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/domain"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/fulfillment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeChart_Passthrough(t *testing.T) {
	f := newFixture(t)
	f.charts.charts["71"] = &domain.SizeChart{
		ProductRef:     "71",
		AvailableSizes: []string{"S", "M"},
		Tables: []domain.SizeTable{{Type: "product_measure", Unit: "cm", Measurements: []domain.SizeMeasurement{
			{Label: "Length", Values: []domain.SizeValue{{Size: "S", Value: "71"}, {Size: "M", Value: "74"}}},
		}}},
	}

	w := f.do(t, call{method: http.MethodGet, path: "/api/v1/size-charts/71"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	chart := decode[domain.SizeChart](t, w)
	assert.Equal(t, []string{"S", "M"}, chart.AvailableSizes)
	require.Len(t, chart.Tables, 1)
	assert.Equal(t, "74", chart.Tables[0].Measurements[0].Values[1].Value)

	w = f.do(t, call{method: http.MethodGet, path: "/api/v1/size-charts/999"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	f.charts.m.Lock()
	f.charts.err = fulfillment.ErrUnavailable
	f.charts.m.Unlock()
	w = f.do(t, call{method: http.MethodGet, path: "/api/v1/size-charts/71"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
