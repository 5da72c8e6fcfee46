package handlers

import (
	"net/http"

	"github.com/ukydev/fleet-carbon/internal/summary"
)

// SummaryHandler exposes the AI summary lifecycle.
type SummaryHandler struct {
	store   FleetStore
	session SummaryGenerator
}

// NewSummaryHandler creates a new summary handler
func NewSummaryHandler(store FleetStore, session SummaryGenerator) *SummaryHandler {
	return &SummaryHandler{store: store, session: session}
}

// ServeHTTP returns the current state on GET and generates a new summary on POST.
func (h *SummaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.session.State())
	case http.MethodPost:
		h.Generate(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Generate requests a summary of the current fleet and blocks until it is
// answered. The body is the resulting state for both outcomes.
func (h *SummaryHandler) Generate(w http.ResponseWriter, r *http.Request) {
	state := h.session.Generate(r.Context(), h.store.Load(r.Context()))
	if state.Status == summary.StatusFailure {
		code, _ := statusFor(state.Err)
		writeJSON(w, code, state)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
