package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-carbon/internal/analytics"
	"github.com/ukydev/fleet-carbon/internal/catalog"
	"github.com/ukydev/fleet-carbon/internal/metrics"
	"github.com/ukydev/fleet-carbon/internal/models"
	"github.com/ukydev/fleet-carbon/internal/summary"
)

// MockCatalog is a mock implementation of Catalog
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Find(query string) (models.VehicleRecord, error) {
	args := m.Called(query)
	return args.Get(0).(models.VehicleRecord), args.Error(1)
}

func (m *MockCatalog) Len() int {
	return m.Called().Int(0)
}

func (m *MockCatalog) Loaded() bool {
	return m.Called().Bool(0)
}

func (m *MockCatalog) Err() error {
	return m.Called().Error(0)
}

// MockFleetStore is a mock implementation of FleetStore
type MockFleetStore struct {
	mock.Mock
}

func (m *MockFleetStore) Load(ctx context.Context) []models.VehicleRecord {
	args := m.Called(ctx)
	return args.Get(0).([]models.VehicleRecord)
}

func (m *MockFleetStore) Add(ctx context.Context, record models.VehicleRecord) (models.VehicleRecord, bool, error) {
	args := m.Called(ctx, record)
	return args.Get(0).(models.VehicleRecord), args.Bool(1), args.Error(2)
}

// MockSummaryGenerator is a mock implementation of SummaryGenerator
type MockSummaryGenerator struct {
	mock.Mock
}

func (m *MockSummaryGenerator) State() summary.State {
	return m.Called().Get(0).(summary.State)
}

func (m *MockSummaryGenerator) Generate(ctx context.Context, fleet []models.VehicleRecord) summary.State {
	args := m.Called(ctx, fleet)
	return args.Get(0).(summary.State)
}

var truck = models.VehicleRecord{Identifier: "UTTS-1", Plate: "34 ABC 01", VehicleType: "Truck", FuelType: "Diesel", TankAmount: "400"}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Error
}

func TestCatalogHandler_Search(t *testing.T) {
	loadErr := &catalog.LoadError{Source: "vehicles.json", Err: errors.New("HTTP 500")}

	tests := []struct {
		name     string
		query    string
		record   models.VehicleRecord
		err      error
		wantCode int
		outcome  string
	}{
		{"found", "utts-1", truck, nil, http.StatusOK, "found"},
		{"blank query", "", models.VehicleRecord{}, catalog.ErrEmptyQuery, http.StatusBadRequest, "invalid"},
		{"not found", "UTTS-9", models.VehicleRecord{}, catalog.ErrNotFound, http.StatusNotFound, "not_found"},
		{"load failure", "UTTS-1", models.VehicleRecord{}, loadErr, http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := new(MockCatalog)
			c.On("Find", tt.query).Return(tt.record, tt.err)
			m := metrics.New()
			h := NewCatalogHandler(c, m)

			req := httptest.NewRequest(http.MethodGet, "/api/catalog/search?utts="+tt.query, nil)
			w := httptest.NewRecorder()
			h.Search(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogLookups.WithLabelValues(tt.outcome)))
			if tt.err == nil {
				var got models.VehicleRecord
				require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
				assert.Equal(t, truck, got)
			}
			c.AssertExpectations(t)
		})
	}
}

func TestCatalogHandler_SearchMessagesAreDistinct(t *testing.T) {
	c := new(MockCatalog)
	c.On("Find", "missing").Return(models.VehicleRecord{}, catalog.ErrNotFound)
	c.On("Find", "broken").Return(models.VehicleRecord{}, &catalog.LoadError{Source: "x", Err: errors.New("timeout")})
	h := NewCatalogHandler(c, nil)

	w1 := httptest.NewRecorder()
	h.Search(w1, httptest.NewRequest(http.MethodGet, "/api/catalog/search?utts=missing", nil))
	w2 := httptest.NewRecorder()
	h.Search(w2, httptest.NewRequest(http.MethodGet, "/api/catalog/search?utts=broken", nil))

	assert.NotEqual(t, decodeError(t, w1), decodeError(t, w2))
}

func TestCatalogHandler_Status(t *testing.T) {
	c := new(MockCatalog)
	c.On("Loaded").Return(false)
	c.On("Len").Return(0)
	c.On("Err").Return(&catalog.LoadError{Source: "vehicles.json", Err: errors.New("HTTP 404")})
	h := NewCatalogHandler(c, nil)

	w := httptest.NewRecorder()
	h.Status(w, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var got CatalogStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.False(t, got.Loaded)
	assert.Contains(t, got.Error, "HTTP 404")
}

func TestFleetHandler_Add(t *testing.T) {
	added := truck.WithEmissions(5.8)

	t.Run("adds catalog vehicle", func(t *testing.T) {
		c := new(MockCatalog)
		c.On("Find", "UTTS-1").Return(truck, nil)
		store := new(MockFleetStore)
		store.On("Add", mock.Anything, truck).Return(added, true, nil)
		m := metrics.New()
		h := NewFleetHandler(store, c, nil, m)

		req := httptest.NewRequest(http.MethodPost, "/api/fleet", bytes.NewBufferString(`{"utts":"UTTS-1"}`))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var got AddVehicleResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.True(t, got.Added)
		require.NotNil(t, got.Vehicle.Emissions)
		assert.Equal(t, 5.8, *got.Vehicle.Emissions)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.VehiclesAdded))
		store.AssertExpectations(t)
	})

	t.Run("duplicate is a no-op", func(t *testing.T) {
		c := new(MockCatalog)
		c.On("Find", "utts-1").Return(truck, nil)
		store := new(MockFleetStore)
		store.On("Add", mock.Anything, truck).Return(added, false, nil)
		m := metrics.New()
		h := NewFleetHandler(store, c, nil, m)

		req := httptest.NewRequest(http.MethodPost, "/api/fleet", bytes.NewBufferString(`{"utts":"utts-1"}`))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.DuplicateAdds))
		assert.Equal(t, 0.0, testutil.ToFloat64(m.VehiclesAdded))
	})

	t.Run("invalid requests", func(t *testing.T) {
		for _, body := range []string{`{bad json`, `{}`, `{"utts":""}`} {
			store := new(MockFleetStore)
			h := NewFleetHandler(store, new(MockCatalog), nil, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/fleet", bytes.NewBufferString(body))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code, body)
			store.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
		}
	})

	t.Run("unknown vehicle", func(t *testing.T) {
		c := new(MockCatalog)
		c.On("Find", "UTTS-404").Return(models.VehicleRecord{}, catalog.ErrNotFound)
		store := new(MockFleetStore)
		h := NewFleetHandler(store, c, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/fleet", bytes.NewBufferString(`{"utts":"UTTS-404"}`))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		store.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	})

	t.Run("save failure", func(t *testing.T) {
		c := new(MockCatalog)
		c.On("Find", "UTTS-1").Return(truck, nil)
		store := new(MockFleetStore)
		store.On("Add", mock.Anything, truck).Return(truck, false, errors.New("disk full"))
		h := NewFleetHandler(store, c, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/fleet", bytes.NewBufferString(`{"utts":"UTTS-1"}`))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestFleetHandler_MethodNotAllowed(t *testing.T) {
	h := NewFleetHandler(new(MockFleetStore), new(MockCatalog), nil, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/fleet", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestFleetHandler_ListAndKPIs(t *testing.T) {
	fleet := []models.VehicleRecord{truck.WithEmissions(6), {Identifier: "UTTS-2", VehicleType: "Car", FuelType: "Gasoline"}}
	store := new(MockFleetStore)
	store.On("Load", mock.Anything).Return(fleet)
	h := NewFleetHandler(store, new(MockCatalog), nil, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/fleet", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var list []models.VehicleRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Len(t, list, 2)

	w = httptest.NewRecorder()
	h.KPIs(w, httptest.NewRequest(http.MethodGet, "/api/fleet/kpis", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var kpis models.KPIs
	require.NoError(t, json.NewDecoder(w.Body).Decode(&kpis))
	assert.Equal(t, 2, kpis.VehicleCount)
	assert.Equal(t, 6.68, kpis.TotalEmissions)
	assert.Equal(t, 40, kpis.OffsetPercentage)
}

func TestFleetHandler_Recent(t *testing.T) {
	fleet := []models.VehicleRecord{
		{Identifier: "A", VehicleType: "Car", FuelType: "Diesel"},
		{Identifier: "B", VehicleType: "Van", FuelType: "Diesel"},
		{Identifier: "C", VehicleType: "Truck", FuelType: "Diesel"},
		{Identifier: "D", VehicleType: "Van", FuelType: "Electric"},
	}
	store := new(MockFleetStore)
	store.On("Load", mock.Anything).Return(fleet)
	h := NewFleetHandler(store, new(MockCatalog), nil, nil)

	w := httptest.NewRecorder()
	h.Recent(w, httptest.NewRequest(http.MethodGet, "/api/fleet/recent", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var cards []models.RecentVehicle
	require.NoError(t, json.NewDecoder(w.Body).Decode(&cards))
	require.Len(t, cards, 3)
	assert.Equal(t, "B", cards[0].Identifier)
	assert.Equal(t, "medium", cards[0].Level)
	assert.Equal(t, "high", cards[1].Level)
	assert.Equal(t, "low", cards[2].Level)

	w = httptest.NewRecorder()
	h.Recent(w, httptest.NewRequest(http.MethodGet, "/api/fleet/recent?n=0", nil))
	assert.JSONEq(t, `[]`, w.Body.String())

	w = httptest.NewRecorder()
	h.Recent(w, httptest.NewRequest(http.MethodGet, "/api/fleet/recent?n=x", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChartHandler(t *testing.T) {
	fleet := []models.VehicleRecord{
		{Identifier: "UTTS-1", VehicleType: "Truck", FuelType: "Diesel"},
		{Identifier: "UTTS-2", VehicleType: "Car", FuelType: "Gasoline"},
	}
	store := new(MockFleetStore)
	store.On("Load", mock.Anything).Return(fleet)
	h := NewChartHandler(store, analytics.New(nil))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/charts?mode=selected&focus=utts-2", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var view ChartView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.Equal(t, "pie", view.Type)
	assert.Equal(t, "bottom", view.Legend)
	assert.Equal(t, analytics.ModeSelected, view.Mode)
	assert.Equal(t, []string{"Emission", "Offset", "Net"}, view.Series.Labels)
	assert.Equal(t, []float64{0.68, 0.27, 0.41}, view.Series.Values)
	assert.Equal(t, []string{"Emission: 0.68 ton CO₂", "Offset: 0.27 ton CO₂", "Net: 0.41 ton CO₂"}, view.Tooltips)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/charts?mode=allTypes", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.Equal(t, []string{"Truck", "Car"}, view.Series.Labels)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/charts?mode=bar", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChartHandler_EmptyFleet(t *testing.T) {
	store := new(MockFleetStore)
	store.On("Load", mock.Anything).Return([]models.VehicleRecord{})
	h := NewChartHandler(store, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/charts?mode=sameKind", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var view ChartView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.Equal(t, 0, view.Series.Len())
	assert.Empty(t, view.Tooltips)
}

func TestSummaryHandler(t *testing.T) {
	fleet := []models.VehicleRecord{truck}

	tests := []struct {
		name     string
		state    summary.State
		wantCode int
	}{
		{"success", summary.State{Status: summary.StatusSuccess, Text: "ok"}, http.StatusOK},
		{"missing key", summary.State{Status: summary.StatusFailure, Err: summary.ErrMissingCredential, Reason: summary.ErrMissingCredential.Error()}, http.StatusServiceUnavailable},
		{"remote failure", summary.State{Status: summary.StatusFailure, Err: &summary.RemoteError{StatusCode: 401, Message: "bad key"}}, http.StatusBadGateway},
		{"superseded", summary.State{Status: summary.StatusFailure, Err: summary.ErrSuperseded}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockFleetStore)
			store.On("Load", mock.Anything).Return(fleet)
			session := new(MockSummaryGenerator)
			session.On("Generate", mock.Anything, fleet).Return(tt.state)
			h := NewSummaryHandler(store, session)

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/summary", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			var got summary.State
			require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
			assert.Equal(t, tt.state.Status, got.Status)
			session.AssertExpectations(t)
		})
	}
}

func TestSummaryHandler_State(t *testing.T) {
	session := new(MockSummaryGenerator)
	session.On("State").Return(summary.State{Status: summary.StatusIdle})
	h := NewSummaryHandler(new(MockFleetStore), session)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/summary", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"idle"`)
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
