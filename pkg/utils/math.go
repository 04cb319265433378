package utils

import "math"

// Round rounds v to the given number of decimal places. Used when writing
// m/z and intensity columns so output files are stable across platforms.
func Round(v float64, places int) float64 {
	pow := math.Pow10(places)
	return math.Round(v*pow) / pow
}
