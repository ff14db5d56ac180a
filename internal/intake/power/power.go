// Package power derives the available power of a utility connection.
package power

import (
	"strconv"

	"solarintake/internal/intake/masking"
	"solarintake/internal/intake/models"
)

// sqrt3 matches the five-digit constant used on utility connection forms.
const sqrt3 = 1.73205

// Derive returns available power in kW with two decimals, or "" when voltage
// or breaker is missing, zero, or has no digits.
func Derive(voltage, breaker string, phase models.PhaseType) string {
	kw, ok := Compute(voltage, breaker, phase)
	if !ok {
		return ""
	}
	return strconv.FormatFloat(kw, 'f', 2, 64)
}

// Compute is Derive without formatting.
func Compute(voltage, breaker string, phase models.PhaseType) (float64, bool) {
	v := parseDigits(voltage)
	a := parseDigits(breaker)
	if v == 0 || a == 0 {
		return 0, false
	}
	if phase == models.PhaseThree {
		return float64(v) * float64(a) * sqrt3 / 1000, true
	}
	return float64(v) * float64(a) / 1000, true
}

// Apply recomputes AvailablePowerKW from the other profile fields.
func Apply(p *models.ElectricalProfile) {
	p.AvailablePowerKW = Derive(p.Voltage, p.Breaker, p.Phase)
}

func parseDigits(s string) int {
	n, err := strconv.Atoi(masking.Digits(s, 9))
	if err != nil {
		return 0
	}
	return n
}
