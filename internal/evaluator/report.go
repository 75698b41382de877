package evaluator

import (
	"math"
	"sort"
)

// summary holds the order-independent aggregates of one metric across a
// batch of results.
type summary struct {
	Avg    float64
	Min    float64
	Max    float64
	Median float64
}

// summarize computes avg/min/max/median over values. An empty input
// yields all NaN so callers can render a degenerate batch without
// special-casing.
func summarize(values []float64) summary {
	if len(values) == 0 {
		nan := math.NaN()

		return summary{Avg: nan, Min: nan, Max: nan, Median: nan}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	total := 0.0
	for _, v := range values {
		total += v
	}

	mid := len(sorted) / 2
	median := sorted[mid]

	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}

	return summary{
		Avg:    total / float64(len(values)),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Median: median,
	}
}
