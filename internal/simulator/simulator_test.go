package simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/sirily11/quant-research-go/internal/logger"
	"github.com/sirily11/quant-research-go/internal/types"
	"github.com/sirily11/quant-research-go/pkg/errors"
)

type SimulatorTestSuite struct {
	suite.Suite
	logger *logger.Logger
}

func TestSimulatorSuite(t *testing.T) {
	suite.Run(t, new(SimulatorTestSuite))
}

func (suite *SimulatorTestSuite) SetupSuite() {
	log, err := logger.NewDebugLogger()
	suite.Require().NoError(err)
	suite.logger = log
}

func day(n int) time.Time {
	return time.Date(2015, 1, 5, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

// flatSeries builds a series with the same close on n consecutive days.
func flatSeries(close float64, n int) types.PriceSeries {
	series := make(types.PriceSeries, n)
	for i := 0; i < n; i++ {
		series[i] = types.PricePoint{
			Date: day(i), Open: close, High: close, Low: close, Close: close, Volume: 1000,
		}
	}

	return series
}

func (suite *SimulatorTestSuite) newSimulator(config Config) *Simulator {
	sim, err := NewSimulator(config, suite.logger)
	suite.Require().NoError(err)

	return sim
}

func (suite *SimulatorTestSuite) TestBuyAndHoldFlatPrice() {
	// One BUY of 100 shares at $100 with $10000 starting cash: the whole
	// portfolio converts to stock and the value stays flat.
	sim := suite.newSimulator(Config{InitialCapital: 10000, MaxLeverage: 2.0, AllowShort: true})

	prices := map[string]types.PriceSeries{"X": flatSeries(100, 5)}
	orders := []types.Order{
		{Date: day(0), Symbol: "X", Side: types.SideBuy, Shares: 100},
	}

	values, err := sim.Run(prices, orders)
	suite.NoError(err)
	suite.Len(values, 5)

	for _, point := range values {
		suite.InDelta(10000.0, point.Value, 1e-9)
	}
}

func (suite *SimulatorTestSuite) TestRoundTripReturnsCash() {
	sim := suite.newSimulator(Config{InitialCapital: 10000, MaxLeverage: 2.0, AllowShort: true})

	prices := map[string]types.PriceSeries{"X": flatSeries(100, 5)}
	orders := []types.Order{
		{Date: day(0), Symbol: "X", Side: types.SideBuy, Shares: 100},
		{Date: day(2), Symbol: "X", Side: types.SideSell, Shares: 100},
	}

	values, err := sim.Run(prices, orders)
	suite.NoError(err)
	suite.Len(values, 5)

	for _, point := range values {
		suite.InDelta(10000.0, point.Value, 1e-9)
	}
}

func (suite *SimulatorTestSuite) TestLeverageLimitSkipsOrder() {
	// $1000 cash, $100/share, BUY 30: prospective leverage
	// 3000 / (3000 - 2000) = 3.0 > 1.0, so the order is skipped entirely.
	sim := suite.newSimulator(Config{InitialCapital: 1000, MaxLeverage: 1.0, AllowShort: true})

	recorder, err := NewRecorder(suite.logger)
	suite.Require().NoError(err)
	suite.Require().NoError(recorder.Initialize())
	defer recorder.Close()
	sim.SetRecorder(recorder)

	prices := map[string]types.PriceSeries{"X": flatSeries(100, 3)}
	orders := []types.Order{
		{Date: day(0), Symbol: "X", Side: types.SideBuy, Shares: 30},
	}

	values, err := sim.Run(prices, orders)
	suite.NoError(err)

	for _, point := range values {
		suite.InDelta(1000.0, point.Value, 1e-9)
	}

	skipped, err := recorder.SkippedCount(SkipReasonLeverageExceeded)
	suite.NoError(err)
	suite.Equal(1, skipped)
}

func (suite *SimulatorTestSuite) TestShortSaleDisallowedSkipsOrder() {
	sim := suite.newSimulator(Config{InitialCapital: 10000, MaxLeverage: 2.0, AllowShort: false})

	recorder, err := NewRecorder(suite.logger)
	suite.Require().NoError(err)
	suite.Require().NoError(recorder.Initialize())
	defer recorder.Close()
	sim.SetRecorder(recorder)

	prices := map[string]types.PriceSeries{"X": flatSeries(100, 3)}
	orders := []types.Order{
		{Date: day(0), Symbol: "X", Side: types.SideSell, Shares: 100},
	}

	values, err := sim.Run(prices, orders)
	suite.NoError(err)

	for _, point := range values {
		suite.InDelta(10000.0, point.Value, 1e-9)
	}

	skipped, err := recorder.SkippedCount(SkipReasonShortSaleDisallowed)
	suite.NoError(err)
	suite.Equal(1, skipped)
}

func (suite *SimulatorTestSuite) TestShortPositionAllowed() {
	// Short 50 at $100, price falls to $80: value rises by 50 * $20.
	sim := suite.newSimulator(Config{InitialCapital: 10000, MaxLeverage: 2.0, AllowShort: true})

	prices := map[string]types.PriceSeries{"X": {
		{Date: day(0), Close: 100},
		{Date: day(1), Close: 90},
		{Date: day(2), Close: 80},
	}}
	orders := []types.Order{
		{Date: day(0), Symbol: "X", Side: types.SideSell, Shares: 50},
	}

	values, err := sim.Run(prices, orders)
	suite.NoError(err)
	suite.Len(values, 3)

	suite.InDelta(10000.0, values[0].Value, 1e-9)  // 15000 cash - 50*100
	suite.InDelta(10500.0, values[1].Value, 1e-9)  // 15000 cash - 50*90
	suite.InDelta(11000.0, values[2].Value, 1e-9)  // 15000 cash - 50*80
}

func (suite *SimulatorTestSuite) TestSameDateOrdersRecheckLeverage() {
	// The second same-date BUY is only over the limit given the first one
	// applied; each order re-checks against the state left by the prior.
	sim := suite.newSimulator(Config{InitialCapital: 10000, MaxLeverage: 1.0, AllowShort: true})

	recorder, err := NewRecorder(suite.logger)
	suite.Require().NoError(err)
	suite.Require().NoError(recorder.Initialize())
	defer recorder.Close()
	sim.SetRecorder(recorder)

	prices := map[string]types.PriceSeries{"X": flatSeries(100, 3)}
	orders := []types.Order{
		{Date: day(0), Symbol: "X", Side: types.SideBuy, Shares: 50},
		{Date: day(0), Symbol: "X", Side: types.SideBuy, Shares: 60},
	}

	values, err := sim.Run(prices, orders)
	suite.NoError(err)

	// 50 shares applied at $100, 60-share order skipped
	for _, point := range values {
		suite.InDelta(10000.0, point.Value, 1e-9)
	}

	decisions, err := recorder.Decisions()
	suite.NoError(err)
	suite.Require().Len(decisions, 2)
	suite.Equal(OrderStatusApplied, decisions[0].Status)
	suite.Equal(OrderStatusSkipped, decisions[1].Status)
	suite.Equal(SkipReasonLeverageExceeded, decisions[1].Reason)
}

func (suite *SimulatorTestSuite) TestZeroOrdersConservesValue() {
	sim := suite.newSimulator(Config{InitialCapital: 5000, MaxLeverage: 2.0, AllowShort: true})

	prices := map[string]types.PriceSeries{"X": flatSeries(123, 4)}

	values, err := sim.Run(prices, nil)
	suite.NoError(err)
	suite.Len(values, 4)

	for _, point := range values {
		suite.Equal(5000.0, point.Value)
	}
}

func (suite *SimulatorTestSuite) TestIdempotence() {
	sim := suite.newSimulator(Config{InitialCapital: 10000, MaxLeverage: 2.0, AllowShort: true})

	prices := map[string]types.PriceSeries{"X": {
		{Date: day(0), Close: 100},
		{Date: day(1), Close: 104},
		{Date: day(2), Close: 98},
		{Date: day(3), Close: 110},
	}}
	orders := []types.Order{
		{Date: day(0), Symbol: "X", Side: types.SideBuy, Shares: 50},
		{Date: day(2), Symbol: "X", Side: types.SideSell, Shares: 20},
	}

	first, err := sim.Run(prices, orders)
	suite.NoError(err)

	second, err := sim.Run(prices, orders)
	suite.NoError(err)

	suite.Equal(first, second)
}

func (suite *SimulatorTestSuite) TestCalendarIsUnionAcrossSymbols() {
	sim := suite.newSimulator(Config{InitialCapital: 100000, MaxLeverage: 2.0, AllowShort: true})

	prices := map[string]types.PriceSeries{
		"X": {
			{Date: day(0), Close: 100},
			{Date: day(1), Close: 100},
			{Date: day(2), Close: 100},
		},
		"Y": {
			{Date: day(1), Close: 50},
			{Date: day(2), Close: 50},
			{Date: day(3), Close: 50},
		},
	}
	orders := []types.Order{
		{Date: day(0), Symbol: "X", Side: types.SideBuy, Shares: 10},
		{Date: day(1), Symbol: "Y", Side: types.SideBuy, Shares: 10},
	}

	values, err := sim.Run(prices, orders)
	suite.NoError(err)

	// union of both symbols' dates: day 0 through day 3
	suite.Len(values, 4)
	suite.Equal(day(0), values[0].Date)
	suite.Equal(day(3), values[3].Date)

	// day 3 has no X price; X is valued at its last known close
	suite.InDelta(100000.0, values[3].Value, 1e-9)
}

func (suite *SimulatorTestSuite) TestMissingPriceDataFailsRun() {
	sim := suite.newSimulator(Config{InitialCapital: 10000, MaxLeverage: 2.0, AllowShort: true})

	prices := map[string]types.PriceSeries{"X": flatSeries(100, 3)}
	orders := []types.Order{
		{Date: day(10), Symbol: "X", Side: types.SideBuy, Shares: 10},
	}

	_, err := sim.Run(prices, orders)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMissingPriceData))
}

func (suite *SimulatorTestSuite) TestOrderForUnknownSymbol() {
	sim := suite.newSimulator(Config{InitialCapital: 10000, MaxLeverage: 2.0, AllowShort: true})

	prices := map[string]types.PriceSeries{"X": flatSeries(100, 3)}
	orders := []types.Order{
		{Date: day(0), Symbol: "Y", Side: types.SideBuy, Shares: 10},
	}

	_, err := sim.Run(prices, orders)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidOrder))
}

func (suite *SimulatorTestSuite) TestUnsortedOrdersAreSortedDefensively() {
	sim := suite.newSimulator(Config{InitialCapital: 10000, MaxLeverage: 2.0, AllowShort: true})

	prices := map[string]types.PriceSeries{"X": flatSeries(100, 5)}

	sorted := []types.Order{
		{Date: day(0), Symbol: "X", Side: types.SideBuy, Shares: 100},
		{Date: day(2), Symbol: "X", Side: types.SideSell, Shares: 100},
	}
	shuffled := []types.Order{sorted[1], sorted[0]}

	fromSorted, err := sim.Run(prices, sorted)
	suite.NoError(err)

	fromShuffled, err := sim.Run(prices, shuffled)
	suite.NoError(err)

	suite.Equal(fromSorted, fromShuffled)
}

func (suite *SimulatorTestSuite) TestNoNegativePositionWhenShortsDisallowed() {
	// Sequence mixing legitimate sells and oversells: the position must
	// never go negative.
	sim := suite.newSimulator(Config{InitialCapital: 100000, MaxLeverage: 2.0, AllowShort: false})

	recorder, err := NewRecorder(suite.logger)
	suite.Require().NoError(err)
	suite.Require().NoError(recorder.Initialize())
	defer recorder.Close()
	sim.SetRecorder(recorder)

	prices := map[string]types.PriceSeries{"X": flatSeries(100, 6)}
	orders := []types.Order{
		{Date: day(0), Symbol: "X", Side: types.SideBuy, Shares: 100},
		{Date: day(1), Symbol: "X", Side: types.SideSell, Shares: 60},
		{Date: day(2), Symbol: "X", Side: types.SideSell, Shares: 60}, // would go to -20
		{Date: day(3), Symbol: "X", Side: types.SideSell, Shares: 40},
	}

	_, err = sim.Run(prices, orders)
	suite.NoError(err)

	decisions, err := recorder.Decisions()
	suite.NoError(err)
	suite.Require().Len(decisions, 4)

	position := int64(0)
	for _, d := range decisions {
		if d.Status != OrderStatusApplied {
			continue
		}

		if d.Order.Side == types.SideBuy {
			position += d.Order.Shares
		} else {
			position -= d.Order.Shares
		}

		suite.GreaterOrEqual(position, int64(0))
	}

	suite.Equal(int64(0), position)
}

func (suite *SimulatorTestSuite) TestInvalidConfig() {
	tests := []struct {
		name   string
		config Config
	}{
		{"zero capital", Config{InitialCapital: 0, MaxLeverage: 2.0}},
		{"negative leverage", Config{InitialCapital: 1000, MaxLeverage: -1}},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			_, err := NewSimulator(tc.config, suite.logger)
			suite.Error(err)
			suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
		})
	}
}
