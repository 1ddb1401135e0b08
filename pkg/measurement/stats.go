package measurement

import (
	"math"
	"slices"
)

// Modified z-score constants (Iglewicz and Hoaglin).
const (
	zScoreScale     = 0.6745
	zScoreThreshold = 3.5
)

// Reduce returns the mean and jitter (sample standard deviation) of samples.
// With discardOutliers and more than two samples, values whose modified
// z-score exceeds 3.5 are dropped first; the set is never emptied.
func Reduce(samples []float64, discardOutliers bool) (average, jitter float64) {
	if len(samples) == 0 {
		return 0, 0
	}

	values := samples
	if discardOutliers && len(samples) > 2 {
		if kept := withoutOutliers(samples); len(kept) > 0 {
			values = kept
		}
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	average = sum / float64(len(values))

	if len(values) > 1 {
		var sq float64
		for _, v := range values {
			d := v - average
			sq += d * d
		}
		jitter = math.Sqrt(sq / float64(len(values)-1))
	}
	return average, jitter
}

func withoutOutliers(samples []float64) []float64 {
	median := upperMedian(samples)

	deviations := make([]float64, len(samples))
	for i, v := range samples {
		deviations[i] = math.Abs(v - median)
	}
	mad := upperMedian(deviations)

	kept := make([]float64, 0, len(samples))
	for _, v := range samples {
		dev := math.Abs(v - median)
		switch {
		case mad > 0:
			if zScoreScale*dev/mad <= zScoreThreshold {
				kept = append(kept, v)
			}
		case v == median:
			kept = append(kept, v)
		default:
			tolerance := 0.01 * math.Abs(median)
			if median == 0 {
				tolerance = 0.01
			}
			if dev <= tolerance {
				kept = append(kept, v)
			}
		}
	}
	return kept
}

// upperMedian returns sorted(values)[n/2], the upper median for even n.
func upperMedian(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return sorted[len(sorted)/2]
}
