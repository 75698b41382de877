package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SymbolResult holds the simulated performance of one symbol under a
// strategy. Created by an evaluation worker, handed to the harness under
// lock, read-only afterwards.
type SymbolResult struct {
	Symbol           string  `yaml:"symbol"`
	CumulativeReturn float64 `yaml:"cumulative_return"`
	AvgDailyReturn   float64 `yaml:"avg_daily_return"`
	StdDailyReturn   float64 `yaml:"std_daily_return"`
	SharpeRatio      float64 `yaml:"sharpe_ratio"`
}

// ReversalResult holds the reversal-signal hit counts for one symbol.
type ReversalResult struct {
	Symbol           string `yaml:"symbol"`
	BullSignals      int    `yaml:"bull_signals"`
	ValidBullSignals int    `yaml:"valid_bull_signals"`
	BearSignals      int    `yaml:"bear_signals"`
	ValidBearSignals int    `yaml:"valid_bear_signals"`
}

// Report is the aggregated output of one evaluation batch.
type Report struct {
	// ID is the unique identifier for this evaluation run.
	ID string `yaml:"id"`
	// Timestamp is when this evaluation run finished.
	Timestamp time.Time `yaml:"timestamp"`
	// Strategy is the registry name of the evaluated strategy, if any.
	Strategy string `yaml:"strategy,omitempty"`
	// SymbolCount is the number of symbols that produced a result.
	SymbolCount int `yaml:"symbol_count"`
	// Summary is the human-readable aggregate summary.
	Summary string `yaml:"summary"`
}

// WriteReport writes the report to the given path as YAML.
func WriteReport(path string, report Report) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report to file: %w", err)
	}

	return nil
}
