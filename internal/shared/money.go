package shared

import "math"

// Round2 rounds a rupiah amount to 2 decimal places. All monetary math in the
// backend passes through here before persisting or comparing.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
