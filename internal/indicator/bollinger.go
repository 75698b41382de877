package indicator

// Bollinger computes the Bollinger bands over the given window: the middle
// band is the simple moving average, the upper and lower bands sit two
// rolling standard deviations away. NaN inside the warm-up window.
func Bollinger(values []float64, window int) (middle, upper, lower []float64, err error) {
	middle, err = SMA(values, window)
	if err != nil {
		return nil, nil, nil, err
	}

	std := rollingStd(values, window)

	upper = make([]float64, len(values))
	lower = make([]float64, len(values))

	for i := range values {
		upper[i] = middle[i] + 2*std[i]
		lower[i] = middle[i] - 2*std[i]
	}

	return middle, upper, lower, nil
}
