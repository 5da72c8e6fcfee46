package handlers

import (
	"net/http"

	"github.com/ukydev/fleet-carbon/internal/analytics"
	"github.com/ukydev/fleet-carbon/internal/models"
)

// ChartView is the chart-ready payload for the pie chart on the emissions page.
type ChartView struct {
	Type     string             `json:"type"`
	Legend   string             `json:"legend"`
	Mode     analytics.Mode     `json:"mode"`
	Focus    string             `json:"focus,omitempty"`
	Series   models.ChartSeries `json:"series"`
	Tooltips []string           `json:"tooltips"`
}

// ChartHandler serves chart data derived from the fleet.
type ChartHandler struct {
	store    FleetStore
	analyzer *analytics.Analyzer
}

// NewChartHandler creates a new chart handler
func NewChartHandler(store FleetStore, analyzer *analytics.Analyzer) *ChartHandler {
	if analyzer == nil {
		analyzer = analytics.New(nil)
	}
	return &ChartHandler{store: store, analyzer: analyzer}
}

// ServeHTTP builds the series for the mode and focus query parameters.
func (h *ChartHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mode, err := analytics.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	focus := r.URL.Query().Get("focus")

	series, err := h.analyzer.Build(mode, focus, h.store.Load(r.Context()))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ChartView{
		Type:     "pie",
		Legend:   "bottom",
		Mode:     mode,
		Focus:    focus,
		Series:   series,
		Tooltips: analytics.Tooltips(series),
	})
}
