package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-carbon/internal/analytics"
	"github.com/ukydev/fleet-carbon/internal/metrics"
	"github.com/ukydev/fleet-carbon/internal/models"
)

// DefaultRecentCount is the number of cards on the "recently added" strip.
const DefaultRecentCount = 3

// AddVehicleRequest is the body of POST /api/fleet.
type AddVehicleRequest struct {
	UTTS string `json:"utts" validate:"required"`
}

// AddVehicleResponse reports the fleet entry after an add.
type AddVehicleResponse struct {
	Added   bool                 `json:"added"`
	Vehicle models.VehicleRecord `json:"vehicle"`
	Message string               `json:"message"`
}

// FleetHandler serves the persisted fleet and the figures derived from it.
type FleetHandler struct {
	store    FleetStore
	catalog  Catalog
	analyzer *analytics.Analyzer
	metrics  *metrics.Metrics
	validate *validator.Validate
}

// NewFleetHandler creates a new fleet handler
func NewFleetHandler(store FleetStore, c Catalog, analyzer *analytics.Analyzer, m *metrics.Metrics) *FleetHandler {
	if analyzer == nil {
		analyzer = analytics.New(nil)
	}
	return &FleetHandler{
		store:    store,
		catalog:  c,
		analyzer: analyzer,
		metrics:  m,
		validate: validator.New(),
	}
}

// ServeHTTP lists the fleet on GET and adds a catalog vehicle on POST.
func (h *FleetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.List(w, r)
	case http.MethodPost:
		h.Add(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// List returns the fleet snapshot in insertion order.
func (h *FleetHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Load(r.Context()))
}

// Add looks the identifier up in the catalog and adds the match to the fleet.
// A vehicle already in the fleet is left as is and answered with 200.
func (h *FleetHandler) Add(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var req AddVehicleRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Enter a UTTS number")
		return
	}

	record, err := h.catalog.Find(req.UTTS)
	if err != nil {
		code, msg := statusFor(err)
		writeError(w, code, msg)
		return
	}

	vehicle, added, err := h.store.Add(r.Context(), record)
	if err != nil {
		log.WithError(err).WithField("utts", record.Identifier).Error("Failed to add vehicle")
		writeError(w, http.StatusInternalServerError, "Failed to save fleet")
		return
	}

	if !added {
		if h.metrics != nil {
			h.metrics.DuplicateAdds.Inc()
		}
		writeJSON(w, http.StatusOK, AddVehicleResponse{Added: false, Vehicle: vehicle, Message: "Vehicle is already in the fleet"})
		return
	}

	if h.metrics != nil {
		h.metrics.VehiclesAdded.Inc()
	}
	writeJSON(w, http.StatusCreated, AddVehicleResponse{Added: true, Vehicle: vehicle, Message: "Vehicle added to the fleet"})
}

// KPIs returns the fleet-level emission figures.
func (h *FleetHandler) KPIs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.analyzer.KPIs(h.store.Load(r.Context())))
}

// Recent returns the last n vehicles added, n taken from the query (default 3).
func (h *FleetHandler) Recent(w http.ResponseWriter, r *http.Request) {
	n := DefaultRecentCount
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "n must be an integer")
			return
		}
		n = parsed
	}
	writeJSON(w, http.StatusOK, h.analyzer.RecentCards(h.store.Load(r.Context()), n))
}
