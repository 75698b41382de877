// Package datasource defines the read interface the simulator and evaluator
// use to load daily price history, plus concrete CSV and DuckDB backends.
package datasource

import (
	"time"

	"github.com/moznion/go-optional"

	"github.com/sirily11/quant-research-go/internal/types"
)

// DataSource provides daily OHLCV history for a universe of symbols.
// Implementations must be safe for concurrent readers because evaluation
// workers share a single source.
type DataSource interface {
	// GetPrices returns the price series for a symbol, sorted by date,
	// optionally bounded to [start, end] inclusive. A symbol with no data
	// yields an error with code ErrCodeDataSourceUnavailable.
	GetPrices(symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) (types.PriceSeries, error)
	// Symbols lists the symbols the source can serve, sorted.
	Symbols() ([]string, error)
	// Close releases any underlying resources.
	Close() error
}
