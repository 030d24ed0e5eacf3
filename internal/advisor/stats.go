package advisor

import "math"

// Median of an ascending slice. Even lengths average the two middle values.
func Median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Quartiles returns the lower and upper quartile of an ascending slice by index,
// without interpolation.
func Quartiles(sorted []float64) (q1, q3 float64) {
	n := len(sorted)
	if n == 0 {
		return 0, 0
	}
	return sorted[n/4], sorted[3*n/4]
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
