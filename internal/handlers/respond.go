// Package handlers implements the JSON HTTP API of the fleet service.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-carbon/internal/catalog"
	"github.com/ukydev/fleet-carbon/internal/models"
	"github.com/ukydev/fleet-carbon/internal/summary"
)

// Catalog is the read side of the vehicle catalog.
type Catalog interface {
	Find(query string) (models.VehicleRecord, error)
	Len() int
	Loaded() bool
	Err() error
}

// FleetStore is the persisted fleet.
type FleetStore interface {
	Load(ctx context.Context) []models.VehicleRecord
	Add(ctx context.Context, record models.VehicleRecord) (models.VehicleRecord, bool, error)
}

// SummaryGenerator runs AI summary requests.
type SummaryGenerator interface {
	State() summary.State
	Generate(ctx context.Context, fleet []models.VehicleRecord) summary.State
}

// errorResponse is the body of every error reply.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// statusFor maps a domain error onto an HTTP status and a user-facing message.
func statusFor(err error) (int, string) {
	var loadErr *catalog.LoadError
	var remoteErr *summary.RemoteError
	switch {
	case errors.Is(err, catalog.ErrEmptyQuery):
		return http.StatusBadRequest, "Enter a UTTS number"
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, "No vehicle found for this UTTS"
	case errors.As(err, &loadErr):
		return http.StatusServiceUnavailable, "Vehicle catalog could not be loaded: " + loadErr.Err.Error()
	case errors.Is(err, catalog.ErrNotLoaded):
		return http.StatusServiceUnavailable, "Vehicle catalog is still loading"
	case errors.Is(err, summary.ErrMissingCredential):
		return http.StatusServiceUnavailable, err.Error()
	case errors.As(err, &remoteErr):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, summary.ErrSuperseded):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
