package handlers

import (
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-carbon/internal/metrics"
)

// CatalogHandler serves catalog status and lookups.
type CatalogHandler struct {
	catalog Catalog
	metrics *metrics.Metrics
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(c Catalog, m *metrics.Metrics) *CatalogHandler {
	return &CatalogHandler{catalog: c, metrics: m}
}

// CatalogStatus is the loading banner shown above the search box.
type CatalogStatus struct {
	Loaded bool   `json:"loaded"`
	Count  int    `json:"count"`
	Error  string `json:"error,omitempty"`
}

// Status reports whether the catalog loaded and how many records it holds.
func (h *CatalogHandler) Status(w http.ResponseWriter, r *http.Request) {
	status := CatalogStatus{Loaded: h.catalog.Loaded(), Count: h.catalog.Len()}
	if err := h.catalog.Err(); err != nil {
		status.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, status)
}

// Search looks up the vehicle whose identifier matches the utts parameter.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("utts")

	record, err := h.catalog.Find(query)
	if err != nil {
		code, msg := statusFor(err)
		h.count(outcomeFor(code))
		log.WithError(err).WithField("utts", query).Debug("Catalog lookup failed")
		writeError(w, code, msg)
		return
	}

	h.count("found")
	writeJSON(w, http.StatusOK, record)
}

func (h *CatalogHandler) count(outcome string) {
	if h.metrics != nil {
		h.metrics.CatalogLookups.WithLabelValues(outcome).Inc()
	}
}

func outcomeFor(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "invalid"
	case http.StatusNotFound:
		return "not_found"
	default:
		return "unavailable"
	}
}
