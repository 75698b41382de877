package types

import "time"

// ValuePoint is the mark-to-market portfolio value on one trading day.
type ValuePoint struct {
	Date  time.Time `yaml:"date" json:"date" csv:"date"`
	Value float64   `yaml:"value" json:"value" csv:"value"`
}

// ValueSeries is the daily portfolio value produced by a simulation run,
// with exactly one point per day of the trading calendar.
type ValueSeries []ValuePoint

// Values returns the value column of the series.
func (v ValueSeries) Values() []float64 {
	values := make([]float64, len(v))
	for i, p := range v {
		values[i] = p.Value
	}

	return values
}

// First returns the first point of the series. The second return value is
// false for an empty series.
func (v ValueSeries) First() (ValuePoint, bool) {
	if len(v) == 0 {
		return ValuePoint{}, false
	}

	return v[0], true
}

// Last returns the last point of the series. The second return value is
// false for an empty series.
func (v ValueSeries) Last() (ValuePoint, bool) {
	if len(v) == 0 {
		return ValuePoint{}, false
	}

	return v[len(v)-1], true
}
