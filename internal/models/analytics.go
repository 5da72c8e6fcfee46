package models

// ChartSeries is chart-ready data. Labels, Values and Colors are index aligned
// and always have the same length.
type ChartSeries struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	Colors []string  `json:"colors"`
}

// Len returns the number of points in the series.
func (s ChartSeries) Len() int {
	return len(s.Labels)
}

// KPIs holds the fleet-level figures shown on the emissions page.
type KPIs struct {
	VehicleCount     int     `json:"vehicle_count"`
	TotalEmissions   float64 `json:"total_emissions"`
	TotalOffset      float64 `json:"total_offset"`
	Net              float64 `json:"net"`
	NetDisplay       float64 `json:"net_display"`
	OffsetRate       float64 `json:"offset_rate"`
	OffsetPercentage int     `json:"offset_percentage"`
}

// RecentVehicle is a fleet entry enriched for the "recently added" cards.
type RecentVehicle struct {
	VehicleRecord
	Emission float64 `json:"emission"`
	Level    string  `json:"level"`
}
