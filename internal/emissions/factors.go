package emissions

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fallbacks used when a vehicle or fuel type is not present in the tables.
const (
	DefaultBase       = 1.0
	DefaultMultiplier = 1.0
)

// Factors holds the emission coefficient tables.
// TypeBase is tons CO2 per month for a reference vehicle of that type.
// FuelMultiplier scales the base by fuel.
type Factors struct {
	TypeBase       map[string]float64 `yaml:"type_base"`
	FuelMultiplier map[string]float64 `yaml:"fuel_multiplier"`
}

// DefaultFactors returns the built-in coefficient tables.
func DefaultFactors() Factors {
	return Factors{
		TypeBase: map[string]float64{
			"Truck":            5.8,
			"Van":              2.1,
			"Car":              0.8,
			"Courier":          1.2,
			"Tractor":          3.5,
			"Kamyon":           6.0,
			"Tır":              6.5,
			"Binek":            0.9,
			"Motosiklet Kurye": 0.45,
			"Traktör":          3.5,
		},
		FuelMultiplier: map[string]float64{
			"Diesel":   1.0,
			"Dizel":    1.0,
			"Benzin":   0.85,
			"Gasoline": 0.85,
			"Electric": 0,
		},
	}
}

// Base returns the base coefficient for a vehicle type.
func (f Factors) Base(vehicleType string) float64 {
	if b, ok := f.TypeBase[vehicleType]; ok {
		return b
	}
	return DefaultBase
}

// Multiplier returns the fuel multiplier for a fuel type.
func (f Factors) Multiplier(fuelType string) float64 {
	if m, ok := f.FuelMultiplier[fuelType]; ok {
		return m
	}
	return DefaultMultiplier
}

// LoadFactors reads coefficient tables from a YAML file. Tables missing from
// the file keep their built-in values.
func LoadFactors(path string) (Factors, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Factors{}, fmt.Errorf("failed to read emission factors: %w", err)
	}
	return ParseFactors(data)
}

// ParseFactors decodes YAML coefficient tables.
func ParseFactors(data []byte) (Factors, error) {
	var f Factors
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Factors{}, fmt.Errorf("failed to parse emission factors: %w", err)
	}
	def := DefaultFactors()
	if len(f.TypeBase) == 0 {
		f.TypeBase = def.TypeBase
	}
	if len(f.FuelMultiplier) == 0 {
		f.FuelMultiplier = def.FuelMultiplier
	}
	for k, v := range f.TypeBase {
		if v < 0 {
			return Factors{}, fmt.Errorf("negative base for vehicle type %q", k)
		}
	}
	for k, v := range f.FuelMultiplier {
		if v < 0 {
			return Factors{}, fmt.Errorf("negative multiplier for fuel type %q", k)
		}
	}
	return f, nil
}
