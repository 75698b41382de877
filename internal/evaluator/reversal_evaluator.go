package evaluator

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"

	"github.com/sirily11/quant-research-go/internal/datasource"
	"github.com/sirily11/quant-research-go/internal/indicator"
	"github.com/sirily11/quant-research-go/internal/logger"
	"github.com/sirily11/quant-research-go/internal/types"
	"github.com/sirily11/quant-research-go/pkg/errors"
)

// defaultTargetPeriod is the forward horizon, in trading days, over which
// a reversal signal is judged.
const defaultTargetPeriod = 5

// kdjPeriod is the lookback window of the KDJ oscillator.
const kdjPeriod = 9

// ReversalEvaluator measures how often KDJ J-line reversal signals are
// followed by a move in the signaled direction. A bull signal is the J
// line crossing up through 0, a bear signal crossing down through 100; a
// signal is valid when the close `targetPeriod` days later confirms the
// direction.
type ReversalEvaluator struct {
	config       Config
	targetPeriod int
	source       datasource.DataSource
	logger       *logger.Logger
	printer      *Printer
	harness      *Harness[types.ReversalResult]
}

func NewReversalEvaluator(
	config Config,
	targetPeriod int,
	source datasource.DataSource,
	out io.Writer,
	log *logger.Logger,
) (*ReversalEvaluator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if targetPeriod <= 0 {
		targetPeriod = defaultTargetPeriod
	}

	harness, err := NewHarness[types.ReversalResult](config.Workers, config.Throttle(), log)
	if err != nil {
		return nil, err
	}

	return &ReversalEvaluator{
		config:       config,
		targetPeriod: targetPeriod,
		source:       source,
		logger:       log,
		printer:      NewPrinter(out),
		harness:      harness,
	}, nil
}

// SetProgress registers a per-symbol progress callback on the harness.
func (e *ReversalEvaluator) SetProgress(fn ProgressFunc) {
	e.harness.SetProgress(fn)
}

// Phase reports the harness lifecycle phase.
func (e *ReversalEvaluator) Phase() Phase {
	return e.harness.Phase()
}

// Run counts signals across the universe and returns the per-symbol
// counts together with the aggregate hit-rate report.
func (e *ReversalEvaluator) Run(ctx context.Context, symbols []string) ([]types.ReversalResult, types.Report, error) {
	start, end, err := e.config.dateRange()
	if err != nil {
		return nil, types.Report{}, err
	}

	results, err := e.harness.Run(ctx, symbols, func(ctx context.Context, symbol string) (optional.Option[types.ReversalResult], error) {
		result, err := e.evaluateSymbol(symbol, start, end)
		if err != nil {
			return optional.None[types.ReversalResult](), err
		}

		return optional.Some(result), nil
	})
	if err != nil {
		return nil, types.Report{}, err
	}

	report := e.generateReport(results)
	e.harness.Finish()

	return results, report, nil
}

func (e *ReversalEvaluator) evaluateSymbol(symbol string, start, end time.Time) (types.ReversalResult, error) {
	prices, err := e.source.GetPrices(symbol, optional.Some(start), optional.Some(end))
	if err != nil {
		return types.ReversalResult{}, err
	}

	// a series shorter than the oscillator warm-up plus the forward
	// horizon cannot produce a single judged signal
	minBars := kdjPeriod + e.targetPeriod + 1
	if len(prices) < minBars {
		return types.ReversalResult{}, errors.NewInsufficientDataErrorf(minBars, len(prices), symbol,
			"reversal evaluation of %s needs %d bars, got %d", symbol, minBars, len(prices))
	}

	result := types.ReversalResult{Symbol: symbol}

	_, _, j, err := indicator.KDJ(prices, kdjPeriod)
	if err != nil {
		return types.ReversalResult{}, err
	}

	closes := prices.Closes()

	// gain[i] is the forward return over the target horizon
	for i := 1; i < len(closes)-e.targetPeriod; i++ {
		gain := closes[i+e.targetPeriod]/closes[i] - 1

		switch {
		case j[i-1] < 0 && j[i] > 0:
			result.BullSignals++

			if gain > 0 {
				result.ValidBullSignals++
			}
		case j[i-1] > 100 && j[i] < 100:
			result.BearSignals++

			if gain < 0 {
				result.ValidBearSignals++
			}
		}
	}

	e.printer.Printf("%s: bull=%d/%d bear=%d/%d",
		symbol, result.ValidBullSignals, result.BullSignals,
		result.ValidBearSignals, result.BearSignals)

	return result, nil
}

func (e *ReversalEvaluator) generateReport(results []types.ReversalResult) types.Report {
	var bull, validBull, bear, validBear int

	for _, r := range results {
		bull += r.BullSignals
		validBull += r.ValidBullSignals
		bear += r.BearSignals
		validBear += r.ValidBearSignals
	}

	text := fmt.Sprintf("Bull Percent: %s(%d) Bear Percent: %s(%d)",
		percent(validBull, bull), bull,
		percent(validBear, bear), bear)

	return types.Report{
		ID:          uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		Strategy:    "kdj-reversal",
		SymbolCount: len(results),
		Summary:     text,
	}
}

// percent renders valid/total as a percentage, with a zero total reported
// as n/a instead of dividing by zero.
func percent(valid, total int) string {
	if total == 0 {
		return "n/a"
	}

	return fmt.Sprintf("%.4f%%", float64(valid)*100/float64(total))
}
