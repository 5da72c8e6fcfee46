package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// VehicleRecord represents one vehicle, either from the catalog or in the fleet.
type VehicleRecord struct {
	Identifier  string     `bson:"utts" json:"utts" validate:"required"`
	Plate       string     `bson:"plate,omitempty" json:"plate,omitempty"`
	VehicleType string     `bson:"vehicleType" json:"vehicleType"`
	LegacyType  string     `bson:"type,omitempty" json:"type,omitempty"` // older catalogs used "type"
	FuelType    string     `bson:"fuelType" json:"fuelType"`
	TankAmount  TankAmount `bson:"tankAmount,omitempty" json:"tankAmount,omitempty"`
	Photo       string     `bson:"photo,omitempty" json:"photo,omitempty"`
	Emissions   *float64   `bson:"emissions,omitempty" json:"emissions,omitempty"`
}

// Key returns the case-insensitive fleet key of the record.
func (v VehicleRecord) Key() string {
	return strings.ToLower(strings.TrimSpace(v.Identifier))
}

// Kind returns the vehicle type, falling back to the legacy "type" field.
func (v VehicleRecord) Kind() string {
	if v.VehicleType != "" {
		return v.VehicleType
	}
	return v.LegacyType
}

// WithEmissions returns a copy of the record carrying the given estimate.
func (v VehicleRecord) WithEmissions(e float64) VehicleRecord {
	v.Emissions = &e
	return v
}

// TankAmount is display-only text. Catalogs ship it either as a JSON string
// ("60 L") or a bare number (60); both decode to the same text.
type TankAmount string

// UnmarshalJSON accepts a JSON string, number or null.
func (t *TankAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = TankAmount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = TankAmount(n.String())
	return nil
}

func (t TankAmount) String() string {
	return string(t)
}
