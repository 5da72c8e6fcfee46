// Package analytics derives KPIs and chart data from a fleet snapshot.
package analytics

import (
	"math"

	"github.com/ukydev/fleet-carbon/internal/emissions"
	"github.com/ukydev/fleet-carbon/internal/models"
)

// OffsetRate is the fraction of emissions assumed to be offset each month.
const OffsetRate = 0.40

// Analyzer derives figures from fleet snapshots. It holds no fleet state.
type Analyzer struct {
	estimator *emissions.Estimator
}

// New creates an analyzer resolving emission figures with estimator.
func New(estimator *emissions.Estimator) *Analyzer {
	if estimator == nil {
		estimator = emissions.Default
	}
	return &Analyzer{estimator: estimator}
}

// Emission returns the figure used for v everywhere in reports.
func (a *Analyzer) Emission(v models.VehicleRecord) float64 {
	return a.estimator.Resolve(v)
}

// TotalEmissions sums the fleet's emission figures, rounded to cents.
func (a *Analyzer) TotalEmissions(fleet []models.VehicleRecord) float64 {
	sum := 0.0
	for _, v := range fleet {
		sum += a.Emission(v)
	}
	return emissions.Round2(sum)
}

// KPIs computes the fleet-level figures. Net is left unclamped; NetDisplay is
// the value to show as a reduction and is never negative.
func (a *Analyzer) KPIs(fleet []models.VehicleRecord) models.KPIs {
	total := a.TotalEmissions(fleet)
	offset := emissions.Round2(total * OffsetRate)
	net := emissions.Round2(total - offset)

	pct := 0
	if total > 0 {
		pct = int(math.Round(offset / total * 100))
	}

	return models.KPIs{
		VehicleCount:     len(fleet),
		TotalEmissions:   total,
		TotalOffset:      offset,
		Net:              net,
		NetDisplay:       math.Max(net, 0),
		OffsetRate:       OffsetRate,
		OffsetPercentage: pct,
	}
}

// Recent returns the last n records in insertion order.
func Recent(fleet []models.VehicleRecord, n int) []models.VehicleRecord {
	if n <= 0 {
		return []models.VehicleRecord{}
	}
	if n > len(fleet) {
		n = len(fleet)
	}
	out := make([]models.VehicleRecord, n)
	copy(out, fleet[len(fleet)-n:])
	return out
}

// RecentCards returns the last n records with their emission figure and
// display level.
func (a *Analyzer) RecentCards(fleet []models.VehicleRecord, n int) []models.RecentVehicle {
	recent := Recent(fleet, n)
	cards := make([]models.RecentVehicle, 0, len(recent))
	for _, v := range recent {
		e := a.Emission(v)
		cards = append(cards, models.RecentVehicle{
			VehicleRecord: v,
			Emission:      e,
			Level:         string(emissions.Classify(e)),
		})
	}
	return cards
}
