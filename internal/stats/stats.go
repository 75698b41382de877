// Package stats computes portfolio performance statistics from a daily
// value series. All functions are pure; failure modes are limited to
// standard floating-point semantics (NaN/Inf propagation).
package stats

import (
	"math"

	"github.com/sirily11/quant-research-go/internal/types"
)

// DefaultSamplesPerYear is the number of trading days used to annualize
// the Sharpe ratio.
const DefaultSamplesPerYear = 252

// Stats holds the performance statistics of a daily portfolio value series.
type Stats struct {
	CumulativeReturn float64 `yaml:"cumulative_return"`
	AvgDailyReturn   float64 `yaml:"avg_daily_return"`
	StdDailyReturn   float64 `yaml:"std_daily_return"`
	SharpeRatio      float64 `yaml:"sharpe_ratio"`
}

// DailyReturns computes values[i]/values[i-1] - 1 for i >= 1.
// The return on the first day is undefined and excluded.
func DailyReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}

	returns := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		returns[i-1] = values[i]/values[i-1] - 1
	}

	return returns
}

// Compute calculates cumulative return, average and standard deviation of
// daily returns, and the annualized Sharpe ratio for the value series.
//
// The standard deviation is the sample deviation (divide by N-1). A
// constant value series has zero variance; in that case the Sharpe ratio
// is NaN (or +/-Inf when the mean excess return is non-zero) rather than
// an error, matching the behavior of statistical libraries.
func Compute(values types.ValueSeries, dailyRiskFree float64, samplesPerYear int) Stats {
	vals := values.Values()
	if len(vals) < 2 {
		return Stats{
			CumulativeReturn: 0,
			AvgDailyReturn:   math.NaN(),
			StdDailyReturn:   math.NaN(),
			SharpeRatio:      math.NaN(),
		}
	}

	returns := DailyReturns(vals)

	avg := mean(returns)
	std := sampleStd(returns, avg)
	sharpe := math.Sqrt(float64(samplesPerYear)) * (avg - dailyRiskFree) / std

	return Stats{
		CumulativeReturn: vals[len(vals)-1]/vals[0] - 1,
		AvgDailyReturn:   avg,
		StdDailyReturn:   std,
		SharpeRatio:      sharpe,
	}
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// sampleStd is the sample standard deviation (N-1 denominator).
// Returns NaN for a single observation.
func sampleStd(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}

	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}

	return math.Sqrt(sum / float64(len(values)-1))
}
