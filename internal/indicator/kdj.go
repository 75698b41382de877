package indicator

import (
	"math"

	"github.com/sirily11/quant-research-go/internal/types"
	"github.com/sirily11/quant-research-go/pkg/errors"
)

// KDJ computes the stochastic oscillator K, D and J lines over the given
// lookback period. RSV = (close - lowest low) / (highest high - lowest
// low) * 100; K and D use 1/3 smoothing seeded at 50; J = 3K - 2D. The J
// line overshoots the 0-100 range, which is what the reversal signals key
// on. The first period-1 positions are NaN.
func KDJ(prices types.PriceSeries, period int) (k, d, j []float64, err error) {
	if period <= 0 {
		return nil, nil, nil, errors.Newf(errors.ErrCodeInvalidPeriod, "kdj period must be positive, got %d", period)
	}

	n := len(prices)
	k = make([]float64, n)
	d = make([]float64, n)
	j = make([]float64, n)

	prevK, prevD := 50.0, 50.0

	for i := 0; i < n; i++ {
		if i < period-1 {
			k[i], d[i], j[i] = math.NaN(), math.NaN(), math.NaN()

			continue
		}

		low := prices[i-period+1].Low
		high := prices[i-period+1].High

		for m := i - period + 2; m <= i; m++ {
			low = math.Min(low, prices[m].Low)
			high = math.Max(high, prices[m].High)
		}

		rsv := 50.0
		if high != low {
			rsv = (prices[i].Close - low) / (high - low) * 100
		}

		prevK = prevK*2/3 + rsv/3
		prevD = prevD*2/3 + prevK/3

		k[i] = prevK
		d[i] = prevD
		j[i] = 3*prevK - 2*prevD
	}

	return k, d, j, nil
}
