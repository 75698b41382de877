package indicator

// MACD computes the moving average convergence divergence with the
// conventional 12/26/9 spans. Returns the MACD line, the signal line and
// the histogram.
func MACD(values []float64) (macd, signal, histogram []float64, err error) {
	ema12, err := EMA(values, 12)
	if err != nil {
		return nil, nil, nil, err
	}

	ema26, err := EMA(values, 26)
	if err != nil {
		return nil, nil, nil, err
	}

	macd = make([]float64, len(values))
	for i := range values {
		macd[i] = ema12[i] - ema26[i]
	}

	signal, err = EMA(macd, 9)
	if err != nil {
		return nil, nil, nil, err
	}

	histogram = make([]float64, len(values))
	for i := range values {
		histogram[i] = macd[i] - signal[i]
	}

	return macd, signal, histogram, nil
}
