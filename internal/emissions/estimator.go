// Package emissions estimates monthly CO2 output of fleet vehicles.
//
// All figures are heuristic: a base coefficient per vehicle type scaled by a
// fuel multiplier, in tons of CO2 per month.
package emissions

import (
	"math"

	"github.com/ukydev/fleet-carbon/internal/models"
)

// Level buckets an emission figure for display badges.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// Badge thresholds in tons CO2 per month.
const (
	HighThreshold   = 5.0
	MediumThreshold = 2.0
)

// Estimator maps vehicle records to estimated monthly emissions.
type Estimator struct {
	factors Factors
}

// NewEstimator creates an estimator over the given coefficient tables.
func NewEstimator(factors Factors) *Estimator {
	return &Estimator{factors: factors}
}

// Default is an estimator over the built-in tables.
var Default = NewEstimator(DefaultFactors())

// Estimate returns round2(base(type) * multiplier(fuel)). It never fails.
func (e *Estimator) Estimate(v models.VehicleRecord) float64 {
	return Round2(e.factors.Base(v.Kind()) * e.factors.Multiplier(v.FuelType))
}

// Resolve returns the emission figure to use for a record: the value stored
// at insertion time when present, otherwise a fresh estimate.
func (e *Estimator) Resolve(v models.VehicleRecord) float64 {
	if v.Emissions != nil {
		return *v.Emissions
	}
	return e.Estimate(v)
}

// Attach returns the record with Emissions set, keeping an existing value.
func (e *Estimator) Attach(v models.VehicleRecord) models.VehicleRecord {
	if v.Emissions != nil {
		return v
	}
	return v.WithEmissions(e.Estimate(v))
}

// Factors returns the tables the estimator was built with.
func (e *Estimator) Factors() Factors {
	return e.factors
}

// Classify buckets an emission figure.
func Classify(tons float64) Level {
	switch {
	case tons >= HighThreshold:
		return LevelHigh
	case tons >= MediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Round2 rounds to cents, half away from zero.
func Round2(n float64) float64 {
	return math.Round(n*100) / 100
}
