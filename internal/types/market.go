package types

import "time"

// DateLayout is the date format used by the price cache and order files.
const DateLayout = "2006-01-02"

// PricePoint is one trading day of OHLCV data for a single symbol.
// It is immutable once fetched from a data source.
type PricePoint struct {
	Date   time.Time `csv:"Date" yaml:"date" json:"date"`
	Open   float64   `csv:"Open" yaml:"open" json:"open"`
	High   float64   `csv:"High" yaml:"high" json:"high"`
	Low    float64   `csv:"Low" yaml:"low" json:"low"`
	Close  float64   `csv:"Close" yaml:"close" json:"close"`
	Volume float64   `csv:"Volume" yaml:"volume" json:"volume"`
}

// PriceSeries is an ordered sequence of PricePoint for one symbol.
// Dates are unique and monotonically increasing.
type PriceSeries []PricePoint

// Day truncates a timestamp to its UTC calendar day. All calendar math in
// the simulator keys on Day output so that series from different sources
// compare equal regardless of location or sub-daily components.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Closes returns the close column of the series.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, p := range s {
		closes[i] = p.Close
	}

	return closes
}

// Dates returns the date column of the series, truncated to days.
func (s PriceSeries) Dates() []time.Time {
	dates := make([]time.Time, len(s))
	for i, p := range s {
		dates[i] = Day(p.Date)
	}

	return dates
}

// CloseOn returns the close price on the given day.
// The second return value is false if the day is not in the series.
func (s PriceSeries) CloseOn(day time.Time) (float64, bool) {
	day = Day(day)
	for _, p := range s {
		if Day(p.Date).Equal(day) {
			return p.Close, true
		}
	}

	return 0, false
}

// LastCloseBefore returns the most recent close on or before the given day,
// implementing forward-fill semantics for portfolio valuation.
// The second return value is false if the series has no data on or before day.
func (s PriceSeries) LastCloseBefore(day time.Time) (float64, bool) {
	day = Day(day)

	var (
		last  float64
		found bool
	)

	for _, p := range s {
		if Day(p.Date).After(day) {
			break
		}

		last = p.Close
		found = true
	}

	return last, found
}
