package analytics

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ukydev/fleet-carbon/internal/emissions"
	"github.com/ukydev/fleet-carbon/internal/models"
)

// Mode selects which breakdown a chart shows.
type Mode string

const (
	// ModeSelected breaks one vehicle down into emission, offset and net.
	ModeSelected Mode = "selected"
	// ModeSameKind compares every vehicle sharing the focus vehicle's type.
	ModeSameKind Mode = "sameKind"
	// ModeAllTypes totals emissions per vehicle type.
	ModeAllTypes Mode = "allTypes"
)

// ErrUnknownMode is returned for a mode outside the three above.
var ErrUnknownMode = errors.New("unknown chart mode")

// ParseMode validates a mode name. An empty name selects ModeSelected.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeSelected, nil
	case ModeSelected, ModeSameKind, ModeAllTypes:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Labels and colors of the single-vehicle breakdown, in order.
var (
	BreakdownLabels = []string{"Emission", "Offset", "Net"}
	BreakdownColors = []string{"#e11d48", "#10b981", "#d97706"}
)

// Palette is cycled for per-vehicle and per-type series.
var Palette = []string{
	"#0ea5e9", "#22c55e", "#f59e0b", "#ef4444", "#8b5cf6", "#14b8a6",
	"#eab308", "#f97316", "#a3e635", "#06b6d4", "#ec4899", "#84cc16",
}

// PickColor returns the palette color for position i, wrapping around.
func PickColor(i int) string {
	n := len(Palette)
	return Palette[((i%n)+n)%n]
}

// Build derives chart data for mode. focus selects the vehicle for the
// selected and sameKind modes; when it matches nothing the first fleet entry
// is used. An empty fleet yields an empty series.
func (a *Analyzer) Build(mode Mode, focus string, fleet []models.VehicleRecord) (models.ChartSeries, error) {
	switch mode {
	case ModeSelected, ModeSameKind, ModeAllTypes:
	default:
		return models.ChartSeries{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	if len(fleet) == 0 {
		return emptySeries(), nil
	}

	switch mode {
	case ModeSelected:
		return a.breakdown(resolveFocus(focus, fleet)), nil
	case ModeSameKind:
		return a.sameKind(resolveFocus(focus, fleet), fleet), nil
	default:
		return a.allTypes(fleet), nil
	}
}

func emptySeries() models.ChartSeries {
	return models.ChartSeries{Labels: []string{}, Values: []float64{}, Colors: []string{}}
}

// resolveFocus finds the focus vehicle by case-insensitive identifier.
// fleet must not be empty.
func resolveFocus(focus string, fleet []models.VehicleRecord) models.VehicleRecord {
	key := strings.ToLower(strings.TrimSpace(focus))
	if key != "" {
		for _, v := range fleet {
			if v.Key() == key {
				return v
			}
		}
	}
	return fleet[0]
}

func (a *Analyzer) breakdown(v models.VehicleRecord) models.ChartSeries {
	e := a.Emission(v)
	offset := emissions.Round2(e * OffsetRate)
	net := math.Max(emissions.Round2(e-offset), 0)
	return models.ChartSeries{
		Labels: append([]string(nil), BreakdownLabels...),
		Values: []float64{e, offset, net},
		Colors: append([]string(nil), BreakdownColors...),
	}
}

func (a *Analyzer) sameKind(pivot models.VehicleRecord, fleet []models.VehicleRecord) models.ChartSeries {
	kind := pivot.Kind()
	s := emptySeries()
	for _, v := range fleet {
		if v.Kind() != kind {
			continue
		}
		s.Labels = append(s.Labels, fmt.Sprintf("%s (%s)", v.Kind(), v.Identifier))
		s.Values = append(s.Values, a.Emission(v))
		s.Colors = append(s.Colors, PickColor(len(s.Colors)))
	}
	return s
}

func (a *Analyzer) allTypes(fleet []models.VehicleRecord) models.ChartSeries {
	var kinds []string
	sums := make(map[string]float64)
	for _, v := range fleet {
		k := v.Kind()
		if _, seen := sums[k]; !seen {
			kinds = append(kinds, k)
		}
		sums[k] += a.Emission(v)
	}

	s := emptySeries()
	for i, k := range kinds {
		s.Labels = append(s.Labels, k)
		s.Values = append(s.Values, emissions.Round2(sums[k]))
		s.Colors = append(s.Colors, PickColor(i))
	}
	return s
}

// Tooltip formats a chart point the way the chart surface displays it.
func Tooltip(label string, value float64) string {
	return fmt.Sprintf("%s: %s ton CO₂", label, strconv.FormatFloat(value, 'f', -1, 64))
}

// Tooltips formats every point of s.
func Tooltips(s models.ChartSeries) []string {
	out := make([]string, 0, s.Len())
	for i := range s.Labels {
		out = append(out, Tooltip(s.Labels[i], s.Values[i]))
	}
	return out
}
