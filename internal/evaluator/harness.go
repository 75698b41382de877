// Package evaluator runs per-symbol evaluation callbacks across a symbol
// universe on a fixed-size worker pool and aggregates the results into a
// report.
package evaluator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/sirily11/quant-research-go/internal/logger"
	"github.com/sirily11/quant-research-go/pkg/errors"
)

// Phase is the lifecycle state of a harness run.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseAggregating
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseAggregating:
		return "aggregating"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// EvalFunc evaluates one symbol. Returning None skips the symbol without
// contributing a result. Returning an error also skips the symbol; the
// harness logs it and keeps going. EvalFunc runs concurrently and must be
// safe to call from multiple goroutines.
type EvalFunc[R any] func(ctx context.Context, symbol string) (optional.Option[R], error)

// ProgressFunc is invoked after every evaluated symbol with the number of
// symbols processed so far and the batch total.
type ProgressFunc func(completed int, total int)

// Harness fans a symbol universe out over a fixed worker pool. Workers
// append to a shared result slice guarded by a mutex the harness passes
// into each of them; there is no other shared mutable state.
type Harness[R any] struct {
	workers  int
	throttle time.Duration
	logger   *logger.Logger
	progress optional.Option[ProgressFunc]
	phase    atomic.Int32
}

// NewHarness builds a harness with the given pool size and per-symbol
// throttle. A pool size below one is a programmer error and fails
// immediately rather than at run time.
func NewHarness[R any](workers int, throttle time.Duration, log *logger.Logger) (*Harness[R], error) {
	if workers < 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "worker count must be at least 1, got %d", workers)
	}

	if throttle < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "throttle must not be negative, got %s", throttle)
	}

	return &Harness[R]{
		workers:  workers,
		throttle: throttle,
		logger:   log,
	}, nil
}

// SetProgress registers a callback invoked after each evaluated symbol.
// The callback may run concurrently from several workers and must be
// safe for that.
func (h *Harness[R]) SetProgress(fn ProgressFunc) {
	h.progress = optional.Some(fn)
}

// Phase reports the current lifecycle phase.
func (h *Harness[R]) Phase() Phase {
	return Phase(h.phase.Load())
}

// Run partitions symbols into contiguous near-equal chunks, one per
// worker, and evaluates every chunk concurrently. It blocks until all
// workers finish; no partial results are observable mid-run. Results come
// back in scheduling order, not input order, so callers must aggregate
// order-independently.
//
// Per-symbol failures (including panics inside eval) are logged and
// skipped. Run itself fails only on cancellation, which is checked
// between symbols; already collected results are discarded.
func (h *Harness[R]) Run(ctx context.Context, symbols []string, eval EvalFunc[R]) ([]R, error) {
	if eval == nil {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "eval function must not be nil")
	}

	h.phase.Store(int32(PhaseRunning))

	chunks := partition(symbols, h.workers)

	h.logger.Info("starting evaluation batch",
		zap.Int("symbols", len(symbols)),
		zap.Int("workers", len(chunks)))

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		results   = make([]R, 0, len(symbols))
		completed int
	)

	for i, chunk := range chunks {
		wg.Add(1)

		go func(worker int, chunk []string) {
			defer wg.Done()

			for _, symbol := range chunk {
				if ctx.Err() != nil {
					return
				}

				result := h.evaluateOne(ctx, worker, symbol, eval)

				mu.Lock()
				if result.IsSome() {
					results = append(results, result.Unwrap())
				}

				completed++
				done := completed
				mu.Unlock()

				if h.progress.IsSome() {
					h.progress.Unwrap()(done, len(symbols))
				}

				if h.throttle > 0 {
					time.Sleep(h.throttle)
				}
			}
		}(i, chunk)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		h.phase.Store(int32(PhaseDone))

		return nil, errors.Wrap(errors.ErrCodeEvaluationFailed, "evaluation batch canceled", err)
	}

	h.phase.Store(int32(PhaseAggregating))

	return results, nil
}

// Finish marks the end of aggregation. Callers invoke it after turning
// the collected results into their report.
func (h *Harness[R]) Finish() {
	h.phase.Store(int32(PhaseDone))
}

// evaluateOne isolates a single symbol evaluation, converting errors and
// panics into a skipped symbol.
func (h *Harness[R]) evaluateOne(ctx context.Context, worker int, symbol string, eval EvalFunc[R]) (result optional.Option[R]) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("evaluation panicked, skipping symbol",
				zap.Int("worker", worker),
				zap.String("symbol", symbol),
				zap.Any("panic", r))

			result = optional.None[R]()
		}
	}()

	result, err := eval(ctx, symbol)
	if err != nil {
		// missing data is routine for ad-hoc universes, keep it quiet
		if errors.HasCode(err, errors.ErrCodeDataSourceUnavailable) {
			h.logger.Debug("no data for symbol, skipping",
				zap.Int("worker", worker),
				zap.String("symbol", symbol),
				zap.Error(err))
		} else {
			h.logger.Warn("evaluation failed, skipping symbol",
				zap.Int("worker", worker),
				zap.String("symbol", symbol),
				zap.Error(err))
		}

		return optional.None[R]()
	}

	return result
}

// partition splits symbols into at most workers contiguous chunks whose
// sizes differ by at most one. The division remainder is spread across
// the leading chunks so every symbol lands in exactly one chunk.
func partition(symbols []string, workers int) [][]string {
	if len(symbols) == 0 {
		return nil
	}

	if workers > len(symbols) {
		workers = len(symbols)
	}

	size := len(symbols) / workers
	remainder := len(symbols) % workers

	chunks := make([][]string, 0, workers)
	index := 0

	for i := 0; i < workers; i++ {
		end := index + size
		if i < remainder {
			end++
		}

		chunks = append(chunks, symbols[index:end])
		index = end
	}

	return chunks
}
