// Package indicator provides series-based technical indicators for the
// bundled strategies and signal evaluators. Each function returns a slice
// aligned with its input; positions inside the warm-up window hold NaN.
package indicator

import (
	"math"

	"github.com/sirily11/quant-research-go/pkg/errors"
)

// SMA computes the simple moving average over the given window.
// The first window-1 positions are NaN.
func SMA(values []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "sma window must be positive, got %d", window)
	}

	out := make([]float64, len(values))
	sum := 0.0

	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}

		if i >= window-1 {
			out[i] = sum / float64(window)
		} else {
			out[i] = math.NaN()
		}
	}

	return out, nil
}

// EMA computes the exponential moving average with smoothing
// alpha = 2/(span+1), seeded with the first value.
func EMA(values []float64, span int) ([]float64, error) {
	if span <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "ema span must be positive, got %d", span)
	}

	out := make([]float64, len(values))
	if len(values) == 0 {
		return out, nil
	}

	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = values[0]

	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}

	return out, nil
}

// rollingStd computes the rolling sample standard deviation (N-1
// denominator) over the window, NaN inside the warm-up window.
func rollingStd(values []float64, window int) []float64 {
	out := make([]float64, len(values))

	for i := range values {
		if i < window-1 {
			out[i] = math.NaN()

			continue
		}

		sum := 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += values[j]
		}

		mean := sum / float64(window)

		variance := 0.0
		for j := i - window + 1; j <= i; j++ {
			d := values[j] - mean
			variance += d * d
		}

		out[i] = math.Sqrt(variance / float64(window-1))
	}

	return out
}
