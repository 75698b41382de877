package evaluator

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/sirily11/quant-research-go/internal/logger"
	"github.com/sirily11/quant-research-go/internal/strategy"
	"github.com/sirily11/quant-research-go/internal/types"
	"github.com/sirily11/quant-research-go/pkg/errors"
)

// fakeSource serves in-memory price series and fails for unknown symbols
// the same way the real sources do.
type fakeSource struct {
	prices map[string]types.PriceSeries
}

func (f *fakeSource) GetPrices(symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) (types.PriceSeries, error) {
	prices, ok := f.prices[symbol]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeDataSourceUnavailable, "no price data for symbol %s", symbol)
	}

	return prices, nil
}

func (f *fakeSource) Symbols() ([]string, error) {
	symbols := make([]string, 0, len(f.prices))
	for s := range f.prices {
		symbols = append(symbols, s)
	}

	sort.Strings(symbols)

	return symbols, nil
}

func (f *fakeSource) Close() error { return nil }

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

func trendingSeries(days int, startPrice, step float64) types.PriceSeries {
	base := time.Date(2015, 1, 5, 0, 0, 0, 0, time.UTC)
	prices := make(types.PriceSeries, days)

	for i := 0; i < days; i++ {
		c := startPrice + step*float64(i)
		prices[i] = types.PricePoint{
			Date: base.AddDate(0, 0, i),
			Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000,
		}
	}

	return prices
}

type EvaluatorTestSuite struct {
	suite.Suite
	logger *logger.Logger
	config Config
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorTestSuite))
}

func (suite *EvaluatorTestSuite) SetupTest() {
	log, err := logger.NewLogger()
	suite.Require().NoError(err)
	suite.logger = log

	suite.config = Config{
		Workers:        2,
		ThrottleMs:     0,
		StartDate:      "2015-01-01",
		EndDate:        "2015-12-30",
		InitialCapital: 100_000,
		MaxLeverage:    2.0,
		AllowShort:     true,
	}
}

func (suite *EvaluatorTestSuite) TestStrategyBatchSkipsUnavailableSymbol() {
	source := &fakeSource{prices: map[string]types.PriceSeries{}}

	universe := make([]string, 10)
	for i := range universe {
		universe[i] = fmt.Sprintf("SYM%02d", i)
		// SYM03 has no data and must be skipped, not crash the batch
		if universe[i] != "SYM03" {
			source.prices[universe[i]] = trendingSeries(60, 100, 0.5)
		}
	}

	var out bytes.Buffer

	eval, err := NewStrategyEvaluator(suite.config, strategy.SMA13Name, source, &out, suite.logger)
	suite.Require().NoError(err)

	results, report, err := eval.Run(context.Background(), universe)
	suite.NoError(err)
	suite.Len(results, 9)
	suite.Equal(9, report.SymbolCount)
	suite.Equal(PhaseDone, eval.Phase())

	for _, r := range results {
		suite.NotEqual("SYM03", r.Symbol)
	}

	// results come back sorted by symbol regardless of worker scheduling
	suite.True(sort.SliceIsSorted(results, func(i, j int) bool {
		return results[i].Symbol < results[j].Symbol
	}))
}

func (suite *EvaluatorTestSuite) TestStrategyReportFormat() {
	source := &fakeSource{prices: map[string]types.PriceSeries{
		"AAPL": trendingSeries(60, 100, 0.5),
		"GOOG": trendingSeries(60, 500, 1.0),
	}}

	var out bytes.Buffer

	eval, err := NewStrategyEvaluator(suite.config, strategy.SMA13Name, source, &out, suite.logger)
	suite.Require().NoError(err)

	_, report, err := eval.Run(context.Background(), []string{"AAPL", "GOOG"})
	suite.NoError(err)

	suite.Equal(strategy.SMA13Name, report.Strategy)
	suite.NotEmpty(report.ID)
	suite.Contains(report.Summary, "Cumulative return: AVG:")
	suite.Contains(report.Summary, "Sharpe ratio: AVG:")
	suite.Contains(report.Summary, "MEDIAN:")
}

func (suite *EvaluatorTestSuite) TestStrategyUnknownNameFailsAtStart() {
	source := &fakeSource{prices: map[string]types.PriceSeries{}}

	var out bytes.Buffer

	_, err := NewStrategyEvaluator(suite.config, "no-such-strategy", source, &out, suite.logger)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyNotFound))
}

func (suite *EvaluatorTestSuite) TestReversalBatch() {
	// a long decline followed by a rally drives the KDJ J line below zero
	// and back up, so the evaluator has crossings to count
	down := trendingSeries(40, 200, -3)
	up := trendingSeries(30, 80, 4)

	series := make(types.PriceSeries, 0, len(down)+len(up))
	series = append(series, down...)

	base := down[len(down)-1].Date
	for i, p := range up {
		p.Date = base.AddDate(0, 0, i+1)
		series = append(series, p)
	}

	source := &fakeSource{prices: map[string]types.PriceSeries{
		"AAPL": series,
		"GOOG": trendingSeries(60, 500, 1.0),
	}}

	var out bytes.Buffer

	eval, err := NewReversalEvaluator(suite.config, 5, source, &out, suite.logger)
	suite.Require().NoError(err)

	results, report, err := eval.Run(context.Background(), []string{"AAPL", "GOOG", "MISSING"})
	suite.NoError(err)
	suite.Len(results, 2)
	suite.Equal(2, report.SymbolCount)
	suite.Contains(report.Summary, "Bull Percent:")
	suite.Contains(report.Summary, "Bear Percent:")
}

func (suite *EvaluatorTestSuite) TestReversalSkipsShortSeries() {
	source := &fakeSource{prices: map[string]types.PriceSeries{
		"SHORT": trendingSeries(5, 100, 1),
		"LONG":  trendingSeries(60, 100, 1),
	}}

	var out bytes.Buffer

	eval, err := NewReversalEvaluator(suite.config, 5, source, &out, suite.logger)
	suite.Require().NoError(err)

	results, _, err := eval.Run(context.Background(), []string{"SHORT", "LONG"})
	suite.NoError(err)
	suite.Require().Len(results, 1)
	suite.Equal("LONG", results[0].Symbol)
}

func (suite *EvaluatorTestSuite) TestPercentZeroTotal() {
	suite.Equal("n/a", percent(0, 0))
	suite.Equal("50.0000%", percent(1, 2))
}

func (suite *EvaluatorTestSuite) TestSummarize() {
	s := summarize([]float64{3, 1, 2})
	suite.InDelta(2.0, s.Avg, 1e-9)
	suite.Equal(1.0, s.Min)
	suite.Equal(3.0, s.Max)
	suite.Equal(2.0, s.Median)

	s = summarize([]float64{4, 1, 3, 2})
	suite.Equal(2.5, s.Median)

	s = summarize(nil)
	suite.True(math.IsNaN(s.Avg))
	suite.True(math.IsNaN(s.Median))
}

func (suite *EvaluatorTestSuite) TestLoadConfig() {
	path := suite.T().TempDir() + "/eval.yaml"
	content := "workers: 3\nstart_date: \"2014-01-01\"\nend_date: \"2016-02-01\"\nallow_short: false\n"
	suite.Require().NoError(writeFile(path, content))

	config, err := LoadConfig(path)
	suite.NoError(err)
	suite.Equal(3, config.Workers)
	suite.Equal("2014-01-01", config.StartDate)
	suite.False(config.AllowShort)

	// unset fields keep their defaults
	suite.Equal(DefaultConfig().InitialCapital, config.InitialCapital)
	suite.Equal(DefaultConfig().ThrottleMs, config.ThrottleMs)

	_, err = LoadConfig(path + ".missing")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataNotFound))
}

func (suite *EvaluatorTestSuite) TestConfigValidation() {
	tests := []struct {
		name   string
		mutate func(*Config)
		code   errors.ErrorCode
	}{
		{name: "zero workers", mutate: func(c *Config) { c.Workers = 0 }, code: errors.ErrCodeInvalidConfiguration},
		{name: "negative capital", mutate: func(c *Config) { c.InitialCapital = -1 }, code: errors.ErrCodeInvalidConfiguration},
		{name: "bad start date", mutate: func(c *Config) { c.StartDate = "01/05/2015" }, code: errors.ErrCodeInvalidDateRange},
		{name: "inverted range", mutate: func(c *Config) { c.StartDate, c.EndDate = c.EndDate, c.StartDate }, code: errors.ErrCodeInvalidDateRange},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			config := DefaultConfig()
			tc.mutate(&config)

			err := config.Validate()
			suite.Error(err)
			suite.True(errors.HasCode(err, tc.code))
		})
	}

	config := DefaultConfig()
	suite.NoError(config.Validate())
}
