package evaluator

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"

	"github.com/sirily11/quant-research-go/internal/datasource"
	"github.com/sirily11/quant-research-go/internal/logger"
	"github.com/sirily11/quant-research-go/internal/simulator"
	"github.com/sirily11/quant-research-go/internal/stats"
	"github.com/sirily11/quant-research-go/internal/strategy"
	"github.com/sirily11/quant-research-go/internal/types"
	"github.com/sirily11/quant-research-go/pkg/errors"
)

// StrategyEvaluator backtests one registered strategy across a symbol
// universe. Each symbol is fetched, run through the strategy and the
// ledger simulator, and summarized into a SymbolResult; the batch report
// aggregates cumulative return and Sharpe ratio across symbols.
type StrategyEvaluator struct {
	config   Config
	strategy strategy.Strategy
	source   datasource.DataSource
	logger   *logger.Logger
	printer  *Printer
	harness  *Harness[types.SymbolResult]
}

// NewStrategyEvaluator resolves the strategy from the registry and builds
// the worker harness. Configuration problems, including an unknown
// strategy name, fail here so a bad batch never starts.
func NewStrategyEvaluator(
	config Config,
	strategyName string,
	source datasource.DataSource,
	out io.Writer,
	log *logger.Logger,
) (*StrategyEvaluator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	strat, err := strategy.Get(strategyName, strategy.Config{
		InitialCapital: config.InitialCapital,
		AllowShort:     config.AllowShort,
	})
	if err != nil {
		return nil, err
	}

	harness, err := NewHarness[types.SymbolResult](config.Workers, config.Throttle(), log)
	if err != nil {
		return nil, err
	}

	return &StrategyEvaluator{
		config:   config,
		strategy: strat,
		source:   source,
		logger:   log,
		printer:  NewPrinter(out),
		harness:  harness,
	}, nil
}

// SetProgress registers a per-symbol progress callback on the harness.
func (e *StrategyEvaluator) SetProgress(fn ProgressFunc) {
	e.harness.SetProgress(fn)
}

// Phase reports the harness lifecycle phase.
func (e *StrategyEvaluator) Phase() Phase {
	return e.harness.Phase()
}

// Run evaluates the whole universe and returns the per-symbol results
// sorted by symbol together with the aggregate report. Symbols whose data
// fetch or simulation fails are skipped; the report covers whatever
// succeeded.
func (e *StrategyEvaluator) Run(ctx context.Context, symbols []string) ([]types.SymbolResult, types.Report, error) {
	start, end, err := e.config.dateRange()
	if err != nil {
		return nil, types.Report{}, err
	}

	results, err := e.harness.Run(ctx, symbols, func(ctx context.Context, symbol string) (optional.Option[types.SymbolResult], error) {
		result, err := e.evaluateSymbol(symbol, start, end)
		if err != nil {
			return optional.None[types.SymbolResult](), err
		}

		return optional.Some(result), nil
	})
	if err != nil {
		return nil, types.Report{}, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Symbol < results[j].Symbol
	})

	report := e.generateReport(results)
	e.harness.Finish()

	return results, report, nil
}

func (e *StrategyEvaluator) evaluateSymbol(symbol string, start, end time.Time) (types.SymbolResult, error) {
	prices, err := e.source.GetPrices(symbol, optional.Some(start), optional.Some(end))
	if err != nil {
		return types.SymbolResult{}, err
	}

	orders, err := e.strategy.GenerateOrders(prices, symbol)
	if err != nil {
		return types.SymbolResult{}, errors.Wrapf(errors.ErrCodeCallbackFailed, err,
			"strategy %s failed on symbol %s", e.strategy.Name(), symbol)
	}

	sim, err := simulator.NewSimulator(simulator.Config{
		InitialCapital: e.config.InitialCapital,
		MaxLeverage:    e.config.MaxLeverage,
		AllowShort:     e.config.AllowShort,
	}, e.logger)
	if err != nil {
		return types.SymbolResult{}, err
	}

	values, err := sim.Run(map[string]types.PriceSeries{symbol: prices}, orders)
	if err != nil {
		return types.SymbolResult{}, errors.Wrapf(errors.ErrCodeSimulationFailed, err,
			"simulation of %s failed", symbol)
	}

	perf := stats.Compute(values, e.config.DailyRiskFree, stats.DefaultSamplesPerYear)

	result := types.SymbolResult{
		Symbol:           symbol,
		CumulativeReturn: perf.CumulativeReturn,
		AvgDailyReturn:   perf.AvgDailyReturn,
		StdDailyReturn:   perf.StdDailyReturn,
		SharpeRatio:      perf.SharpeRatio,
	}

	e.printer.Printf("%s: cum_ret=%.6f sharpe=%.6f", symbol, result.CumulativeReturn, result.SharpeRatio)

	return result, nil
}

func (e *StrategyEvaluator) generateReport(results []types.SymbolResult) types.Report {
	cumRets := make([]float64, len(results))
	sharpes := make([]float64, len(results))

	for i, r := range results {
		cumRets[i] = r.CumulativeReturn
		sharpes[i] = r.SharpeRatio
	}

	cum := summarize(cumRets)
	sharpe := summarize(sharpes)

	text := fmt.Sprintf(
		"Cumulative return: AVG:%.6f MIN:%.6f MAX:%.6f MEDIAN:%.6f\n"+
			"Sharpe ratio: AVG:%.6f MIN:%.6f MAX:%.6f MEDIAN:%.6f",
		cum.Avg, cum.Min, cum.Max, cum.Median,
		sharpe.Avg, sharpe.Min, sharpe.Max, sharpe.Median,
	)

	return types.Report{
		ID:          uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		Strategy:    e.strategy.Name(),
		SymbolCount: len(results),
		Summary:     text,
	}
}
