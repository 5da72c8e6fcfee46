// Package summary produces the AI-written fleet commentary.
package summary

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ukydev/fleet-carbon/internal/analytics"
	"github.com/ukydev/fleet-carbon/internal/models"
)

// SystemInstruction steers the model toward short, actionable output.
const SystemInstruction = "Give short, clear and actionable insights."

// BuildPrompt renders the fleet figures and one line per vehicle into the user
// prompt sent to the model.
func BuildPrompt(a *analytics.Analyzer, fleet []models.VehicleRecord, kpis models.KPIs) string {
	lines := []string{
		"Company fleet carbon summary (monthly estimate):",
		fmt.Sprintf("- Total emissions: %s ton CO₂", num(kpis.TotalEmissions)),
		fmt.Sprintf("- Carbon offset (~%d%%): %s ton CO₂", int(math.Round(kpis.OffsetRate*100)), num(kpis.TotalOffset)),
		fmt.Sprintf("- Net: %s ton CO₂", num(kpis.Net)),
		"",
		"Vehicle details (utts | type | fuel | tank | emission):",
	}

	for _, v := range fleet {
		lines = append(lines, fmt.Sprintf("• %s | %s | %s | %s | %s ton CO₂",
			v.Identifier, v.Kind(), v.FuelType, v.TankAmount, num(a.Emission(v))))
	}

	lines = append(lines,
		"",
		"Based on this data, write a short 5-point analysis and 3 recommended actions; be concise, concrete and business focused.",
	)
	return strings.Join(lines, "\n")
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
